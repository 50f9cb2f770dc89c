package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

func checkoutCandidate() domain.Candidate {
	return domain.Candidate{
		Status:        statusPtr(domain.OrderStatusProcessingPayment),
		PaymentStatus: payStatusPtr(domain.PaymentStatusProcessing),
		PaymentMethod: methodPtr(domain.PaymentMethodCard),
		Items: []domain.OrderItem{
			{ProductID: "p-1", Name: "Rice 5kg", Qty: 2, UnitPrice: 5000},
		},
		Subtotal:    f64Ptr(10000),
		DeliveryFee: f64Ptr(0),
		Total:       f64Ptr(10000),
		Currency:    strPtr("XOF"),
		Contact:     &domain.Contact{Name: "Awa", Phone: "70123456"},
		Address:     &domain.Address{Street: "Rue 12", City: "Cotonou"},
	}
}

func paidWebhookCandidate() domain.Candidate {
	return domain.Candidate{
		Status:               statusPtr(domain.OrderStatusPaid),
		PaymentStatus:        payStatusPtr(domain.PaymentStatusPaid),
		PaymentMethod:        methodPtr(domain.PaymentMethodCard),
		GatewayTransactionID: strPtr("txn_abc"),
		Total:                f64Ptr(10000),
		Subtotal:             f64Ptr(10000),
		DeliveryFee:          f64Ptr(0),
		Currency:             strPtr("XOF"),
	}
}

func TestReconcileRequiresReference(t *testing.T) {
	engine := NewEngine(memory.NewOrderStore(), nil)

	_, err := engine.Reconcile("", checkoutCandidate())

	assert.ErrorIs(t, err, domain.ErrReferenceRequired)
}

func TestReconcileCreatesOrderOnFirstWrite(t *testing.T) {
	store := memory.NewOrderStore()
	engine := NewEngine(store, nil)

	order, err := engine.Reconcile("ORD-1001", checkoutCandidate())
	require.NoError(t, err)

	assert.Equal(t, "ORD-1001", order.Reference)
	assert.Equal(t, domain.OrderStatusProcessingPayment, order.Status)
	assert.Len(t, order.Items, 1)

	stored, err := store.Get("ORD-1001")
	require.NoError(t, err)
	assert.Equal(t, order.Status, stored.Status)
}

func TestReconcileIsIdempotent(t *testing.T) {
	store := memory.NewOrderStore()
	engine := NewEngine(store, nil)

	first, err := engine.Reconcile("ORD-1001", paidWebhookCandidate())
	require.NoError(t, err)
	second, err := engine.Reconcile("ORD-1001", paidWebhookCandidate())
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.GatewayTransactionID, second.GatewayTransactionID)
	require.NotNil(t, first.PaidAt)
	require.NotNil(t, second.PaidAt)
	// Повторная доставка не сдвигает исходное время оплаты.
	assert.Equal(t, *first.PaidAt, *second.PaidAt)
}

// Итоговое состояние не зависит от порядка прихода писателей: checkout
// перед вебхуком и вебхук перед checkout сходятся к одному заказу.
func TestReconcileConvergesRegardlessOfArrivalOrder(t *testing.T) {
	run := func(t *testing.T, candidates ...domain.Candidate) domain.Order {
		t.Helper()
		store := memory.NewOrderStore()
		engine := NewEngine(store, nil)
		for _, cand := range candidates {
			_, err := engine.Reconcile("ORD-1001", cand)
			require.NoError(t, err)
		}
		order, err := store.Get("ORD-1001")
		require.NoError(t, err)
		return order
	}

	checkoutFirst := run(t, checkoutCandidate(), paidWebhookCandidate())
	webhookFirst := run(t, paidWebhookCandidate(), checkoutCandidate())

	for _, order := range []domain.Order{checkoutFirst, webhookFirst} {
		assert.Equal(t, domain.OrderStatusPaid, order.Status)
		assert.Equal(t, domain.PaymentStatusPaid, order.PaymentStatus)
		assert.Equal(t, "txn_abc", order.GatewayTransactionID)
		assert.Len(t, order.Items, 1)
		assert.Equal(t, 10000.0, order.Total)
		require.NotNil(t, order.PaidAt)
	}
}

func TestReconcileTerminalStatusNotDowngraded(t *testing.T) {
	store := memory.NewOrderStore()
	engine := NewEngine(store, nil)

	_, err := engine.Reconcile("ORD-1001", paidWebhookCandidate())
	require.NoError(t, err)

	failed := domain.Candidate{
		Status:        statusPtr(domain.OrderStatusPaymentFailed),
		PaymentStatus: payStatusPtr(domain.PaymentStatusFailed),
	}
	order, err := engine.Reconcile("ORD-1001", failed)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, domain.PaymentStatusPaid, order.PaymentStatus)
}

func TestReconcileRejectsInconsistentAmounts(t *testing.T) {
	engine := NewEngine(memory.NewOrderStore(), nil)

	cand := checkoutCandidate()
	cand.Total = f64Ptr(9000) // subtotal + fee = 10000

	_, err := engine.Reconcile("ORD-1001", cand)

	assert.ErrorIs(t, err, domain.ErrTotalMismatch)
}

func TestReconcileValidatesFullInvariantsWithItems(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Candidate)
		wantErr error
	}{
		{
			name: "subtotal diverges from items",
			mutate: func(c *domain.Candidate) {
				c.Subtotal = f64Ptr(9000)
				c.Total = f64Ptr(9000)
			},
			wantErr: domain.ErrAmountMismatch,
		},
		{
			name:    "missing currency",
			mutate:  func(c *domain.Candidate) { c.Currency = nil },
			wantErr: domain.ErrCurrencyRequired,
		},
		{
			name: "zero qty item",
			mutate: func(c *domain.Candidate) {
				c.Items[0].Qty = 0
			},
			wantErr: domain.ErrItemQtyInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(memory.NewOrderStore(), nil)

			cand := checkoutCandidate()
			tt.mutate(&cand)

			_, err := engine.Reconcile("ORD-1001", cand)

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReconcileMergeValidatesFullInvariants(t *testing.T) {
	engine := NewEngine(memory.NewOrderStore(), nil)

	_, err := engine.Reconcile("ORD-1001", checkoutCandidate())
	require.NoError(t, err)

	// Кандидат с позициями, расходящимися с его же subtotal, отбрасывается
	// и на пути слияния.
	cand := checkoutCandidate()
	cand.Items[0].UnitPrice = 4000

	_, err = engine.Reconcile("ORD-1001", cand)

	assert.ErrorIs(t, err, domain.ErrAmountMismatch)
}

// raceOrderStore имитирует проигранную гонку вставки: первый Get сообщает
// об отсутствии заказа, хотя другой писатель уже успел его создать.
type raceOrderStore struct {
	domain.OrderStore
	missedGet bool
}

func (s *raceOrderStore) Get(reference string) (domain.Order, error) {
	if !s.missedGet {
		s.missedGet = true
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return s.OrderStore.Get(reference)
}

func TestReconcileLostInsertRaceFallsBackToMerge(t *testing.T) {
	inner := memory.NewOrderStore()
	require.NoError(t, inner.Create(newOrderFromCandidate("ORD-1001", checkoutCandidate(), time.Now().UTC())))

	engine := NewEngine(&raceOrderStore{OrderStore: inner}, nil)

	order, err := engine.Reconcile("ORD-1001", paidWebhookCandidate())
	require.NoError(t, err)

	// Заказ слит в существующий, а не создан заново.
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Len(t, order.Items, 1)
}

// conflictOrderStore всегда отвечает конфликтом версий на Save.
type conflictOrderStore struct {
	domain.OrderStore
	saves int
}

func (s *conflictOrderStore) Save(domain.Order) error {
	s.saves++
	return domain.ErrOrderVersionConflict
}

func TestReconcileGivesUpAfterMaxMergeAttempts(t *testing.T) {
	inner := memory.NewOrderStore()
	require.NoError(t, inner.Create(newOrderFromCandidate("ORD-1001", checkoutCandidate(), time.Now().UTC())))

	store := &conflictOrderStore{OrderStore: inner}
	engine := NewEngine(store, nil)

	_, err := engine.Reconcile("ORD-1001", paidWebhookCandidate())

	require.Error(t, err)
	assert.True(t, domain.IsVersionConflict(err))
	assert.Equal(t, maxMergeAttempts, store.saves)
}
