package retry

import "github.com/vladislavdragonenkov/checkout/internal/domain"

// orderStore оборачивает OrderStore retry-логикой для временных ошибок.
type orderStore struct {
	inner   domain.OrderStore
	retrier *Retrier
}

// NewOrderStore возвращает OrderStore, повторяющий операции при временных
// ошибках хранилища.
func NewOrderStore(inner domain.OrderStore, retrier *Retrier) domain.OrderStore {
	return &orderStore{inner: inner, retrier: retrier}
}

func (s *orderStore) Create(order domain.Order) error {
	return s.retrier.Do("order.create", func() error {
		return s.inner.Create(order)
	})
}

func (s *orderStore) Get(reference string) (domain.Order, error) {
	var order domain.Order
	err := s.retrier.Do("order.get", func() error {
		var opErr error
		order, opErr = s.inner.Get(reference)
		return opErr
	})
	return order, err
}

func (s *orderStore) Save(order domain.Order) error {
	return s.retrier.Do("order.save", func() error {
		return s.inner.Save(order)
	})
}

// paymentStore оборачивает PaymentRecordStore retry-логикой.
type paymentStore struct {
	inner   domain.PaymentRecordStore
	retrier *Retrier
}

// NewPaymentRecordStore возвращает PaymentRecordStore с повтором операций.
func NewPaymentRecordStore(inner domain.PaymentRecordStore, retrier *Retrier) domain.PaymentRecordStore {
	return &paymentStore{inner: inner, retrier: retrier}
}

func (s *paymentStore) Upsert(record domain.PaymentRecord) error {
	return s.retrier.Do("payment.upsert", func() error {
		return s.inner.Upsert(record)
	})
}

func (s *paymentStore) Get(transactionID string) (domain.PaymentRecord, error) {
	var record domain.PaymentRecord
	err := s.retrier.Do("payment.get", func() error {
		var opErr error
		record, opErr = s.inner.Get(transactionID)
		return opErr
	})
	return record, err
}

var (
	_ domain.OrderStore         = (*orderStore)(nil)
	_ domain.PaymentRecordStore = (*paymentStore)(nil)
)
