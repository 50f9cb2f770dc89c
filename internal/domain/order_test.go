package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// helper для создания оформленного заказа с одной позицией.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		Reference: "PK10000001",
		Items: []domain.OrderItem{
			{
				ProductID: "p1",
				Name:      "poulet braise",
				Qty:       2,
				UnitPrice: 5000,
			},
		},
		Subtotal:      10000,
		DeliveryFee:   1000,
		Total:         11000,
		Currency:      "XOF",
		PaymentMethod: domain.PaymentMethodCash,
		PaymentStatus: domain.PaymentStatusPending,
		Status:        domain.OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_PaidOk(t *testing.T) {
	order := makeOrder()
	now := time.Now().UTC()
	order.Status = domain.OrderStatusPaid
	order.PaymentStatus = domain.PaymentStatusPaid
	order.PaidAt = &now
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{
			name: "no reference",
			mut: func(o *domain.Order) {
				o.Reference = ""
			},
		},
		{
			name: "no currency",
			mut: func(o *domain.Order) {
				o.Currency = ""
			},
		},
		{
			name: "no items",
			mut: func(o *domain.Order) {
				o.Items = nil
			},
		},
		{
			name: "qty invalid",
			mut: func(o *domain.Order) {
				o.Items[0].Qty = 0
			},
		},
		{
			name: "price invalid",
			mut: func(o *domain.Order) {
				o.Items[0].UnitPrice = -5
			},
		},
		{
			name: "subtotal mismatch",
			mut: func(o *domain.Order) {
				o.Subtotal = 9000
				o.Total = 10000
			},
		},
		{
			name: "total mismatch",
			mut: func(o *domain.Order) {
				o.Total = 10500
			},
		},
		{
			name: "paid without paid_at",
			mut: func(o *domain.Order) {
				o.Status = domain.OrderStatusPaid
				o.PaymentStatus = domain.PaymentStatusPaid
			},
		},
		{
			name: "paid status disagreement",
			mut: func(o *domain.Order) {
				now := time.Now().UTC()
				o.Status = domain.OrderStatusPaid
				o.PaidAt = &now
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			if len(order.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestAmountsEqual_Tolerance(t *testing.T) {
	if !domain.AmountsEqual(100.00, 100.009) {
		t.Fatal("expected amounts within 0.01 to be equal")
	}
	if domain.AmountsEqual(100.00, 100.02) {
		t.Fatal("expected amounts beyond 0.01 to differ")
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.OrderStatus
		allowed  bool
	}{
		{domain.OrderStatusPending, domain.OrderStatusProcessingPayment, true},
		{domain.OrderStatusPending, domain.OrderStatusPaid, true},
		{domain.OrderStatusPending, domain.OrderStatusCancelled, true},
		{domain.OrderStatusProcessingPayment, domain.OrderStatusPaid, true},
		{domain.OrderStatusProcessingPayment, domain.OrderStatusPaymentFailed, true},
		{domain.OrderStatusPaymentFailed, domain.OrderStatusProcessingPayment, true},
		{domain.OrderStatusPaymentFailed, domain.OrderStatusPaid, false},
		{domain.OrderStatusPaid, domain.OrderStatusPending, false},
		{domain.OrderStatusPaid, domain.OrderStatusPaymentFailed, false},
		{domain.OrderStatusPaid, domain.OrderStatusCancelled, false},
		{domain.OrderStatusCancelled, domain.OrderStatusPending, false},
		{domain.OrderStatusPaid, domain.OrderStatusPaid, true},
	}

	for _, tc := range cases {
		if got := domain.CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if !domain.OrderStatusPaid.Terminal() || !domain.OrderStatusCancelled.Terminal() {
		t.Fatal("paid and cancelled must be terminal")
	}
	if domain.OrderStatusPending.Terminal() || domain.OrderStatusProcessingPayment.Terminal() ||
		domain.OrderStatusPaymentFailed.Terminal() {
		t.Fatal("non-final statuses must not be terminal")
	}
}
