package domain

// OrderStore описывает требования к хранилищу заказов.
type OrderStore interface {
	// Create сохраняет новый заказ. Возвращает ErrOrderVersionConflict,
	// если запись с таким reference уже существует.
	Create(order Order) error
	// Get возвращает заказ по reference или ErrOrderNotFound, если его нет.
	Get(reference string) (Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
}

// PaymentRecordStore описывает хранилище записей платежей.
type PaymentRecordStore interface {
	// Upsert создаёт или обновляет запись по transaction id. Существующий
	// слепок и метаданные не затираются отсутствующими полями.
	Upsert(record PaymentRecord) error
	// Get возвращает запись или ErrPaymentNotFound, если её нет.
	Get(transactionID string) (PaymentRecord, error)
}

// CatalogService — доверенный каталог цен. Единственный источник цены
// позиции: цена из запроса клиента никогда не используется напрямую.
type CatalogService interface {
	// UnitPrice возвращает актуальную цену товара или ErrProductUnknown.
	UnitPrice(productID string) (float64, error)
}

// VerificationRequest — входные данные синхронной верификации платежа.
type VerificationRequest struct {
	Provider       string
	PhoneNumber    string
	PaymentCode    string
	OrderReference string
	Amount         float64
	Currency       string
}

// VerificationResult — результат успешной верификации.
type VerificationResult struct {
	// TransactionID — свежевыданный идентификатор транзакции провайдера.
	TransactionID string
	Amount        float64
}

// VerificationService описывает синхронный вызов верификации платежа
// у mobile-money провайдера.
type VerificationService interface {
	// Verify выполняет одноразовую проверку платежа. Отклонения
	// возвращаются ошибками ErrWrongCode, ErrInsufficientBalance,
	// ErrUserCancelled либо DeclineError поверх ErrGatewayDeclined.
	Verify(req VerificationRequest) (VerificationResult, error)
}
