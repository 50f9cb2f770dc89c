package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func TestIsTransientStorage(t *testing.T) {
	codes := []domain.StorageErrorCode{
		domain.StorageUnavailable,
		domain.StorageDeadlineExceeded,
		domain.StorageResourceExhausted,
		domain.StorageAborted,
		domain.StorageInternal,
		domain.StorageCancelled,
	}
	for _, code := range codes {
		err := domain.NewStorageError(code, "save", errors.New("boom"))
		if !domain.IsTransientStorage(err) {
			t.Fatalf("code %s must be transient", code)
		}
	}

	if domain.IsTransientStorage(domain.ErrOrderNotFound) {
		t.Fatal("not-found is not a transient storage error")
	}
	if domain.IsTransientStorage(domain.ErrOrderVersionConflict) {
		t.Fatal("version conflict is not a transient storage error")
	}
}

func TestIsTransientStorage_Wrapped(t *testing.T) {
	err := fmt.Errorf("reconcile: %w",
		domain.NewStorageError(domain.StorageUnavailable, "get", errors.New("conn refused")))
	if !domain.IsTransientStorage(err) {
		t.Fatal("wrapped storage error must stay transient")
	}
}

func TestDeclineError(t *testing.T) {
	err := domain.NewDecline(domain.ErrGatewayDeclined, "operator timeout")
	if !domain.IsDecline(err) {
		t.Fatal("expected decline")
	}
	if !errors.Is(err, domain.ErrGatewayDeclined) {
		t.Fatal("decline must unwrap to its sentinel")
	}
	if got := domain.DeclineReason(err); got != "operator timeout" {
		t.Fatalf("unexpected reason: %q", got)
	}
}

func TestDeclineReason_Sentinels(t *testing.T) {
	cases := map[error]string{
		domain.ErrWrongCode:           "wrong payment code",
		domain.ErrInsufficientBalance: "insufficient balance",
		domain.ErrUserCancelled:       "payment cancelled by user",
		domain.ErrGatewayDeclined:     "payment declined",
	}
	for err, want := range cases {
		if got := domain.DeclineReason(err); got != want {
			t.Fatalf("DeclineReason(%v) = %q, want %q", err, got, want)
		}
	}
	if domain.DeclineReason(errors.New("other")) != "" {
		t.Fatal("non-decline errors have no reason")
	}
}

func TestIsVersionConflict(t *testing.T) {
	wrapped := fmt.Errorf("save order: %w", domain.ErrOrderVersionConflict)
	if !domain.IsVersionConflict(wrapped) {
		t.Fatal("wrapped conflict must be detected")
	}
	if domain.IsVersionConflict(domain.ErrOrderNotFound) {
		t.Fatal("not-found is not a conflict")
	}
}
