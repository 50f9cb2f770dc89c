package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func TestPaymentRecordValidate(t *testing.T) {
	record := domain.PaymentRecord{
		TransactionID:  "txn-1",
		OrderReference: "PK10000001",
		Provider:       "card",
		Status:         "succeeded",
		Amount:         10000,
		Currency:       "XOF",
	}
	if errs := record.Validate(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	record.TransactionID = ""
	record.Amount = -1
	if errs := record.Validate(); len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}

func TestOrderSnapshotCandidate(t *testing.T) {
	snap := &domain.OrderSnapshot{
		Items: []domain.OrderItem{
			{ProductID: "p1", Qty: 2, UnitPrice: 5000},
		},
		Subtotal:      10000,
		DeliveryFee:   0,
		Total:         10000,
		Currency:      "XOF",
		PaymentMethod: domain.PaymentMethodCard,
		Contact:       domain.Contact{Name: "Awa", Phone: "90112233"},
	}

	cand := snap.Candidate()
	if cand.Subtotal == nil || *cand.Subtotal != 10000 {
		t.Fatal("snapshot subtotal must be carried")
	}
	if cand.Currency == nil || *cand.Currency != "XOF" {
		t.Fatal("snapshot currency must be carried")
	}
	if cand.Address != nil {
		t.Fatal("empty address must stay absent")
	}
	if cand.Contact == nil || cand.Contact.Name != "Awa" {
		t.Fatal("snapshot contact must be carried")
	}

	var empty *domain.OrderSnapshot
	if got := empty.Candidate(); got.Subtotal != nil || got.Items != nil {
		t.Fatal("nil snapshot must produce empty candidate")
	}
}

func TestCandidateOverlay(t *testing.T) {
	paid := domain.OrderStatusPaid
	base := domain.OrderSnapshot{Subtotal: 10000, Total: 10000, Currency: "XOF"}
	cand := base.Candidate().Overlay(domain.Candidate{Status: &paid})

	if cand.Status == nil || *cand.Status != domain.OrderStatusPaid {
		t.Fatal("overlay must apply status")
	}
	if cand.Subtotal == nil || *cand.Subtotal != 10000 {
		t.Fatal("overlay must keep base fields")
	}
}
