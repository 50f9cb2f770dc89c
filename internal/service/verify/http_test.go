package verify_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/verify"
)

func makeRequest() domain.VerificationRequest {
	return domain.VerificationRequest{
		Provider:       "tmoney",
		PhoneNumber:    "90112233",
		PaymentCode:    "482910",
		OrderReference: "PK10000001",
		Amount:         11000,
		Currency:       "XOF",
	}
}

func TestHTTPService_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"transaction_id":"txn-42","amount":11000}`))
	}))
	defer srv.Close()

	svc := verify.NewHTTPService(srv.URL, time.Second, nil)
	res, err := svc.Verify(makeRequest())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.TransactionID != "txn-42" || res.Amount != 11000 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHTTPService_DeclineMapping(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{"wrong_code", domain.ErrWrongCode},
		{"insufficient_balance", domain.ErrInsufficientBalance},
		{"user_cancelled", domain.ErrUserCancelled},
		{"operator_error", domain.ErrGatewayDeclined},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"success":false,"reason":"declined","reason_code":"` + tc.code + `"}`))
			}))
			defer srv.Close()

			svc := verify.NewHTTPService(srv.URL, time.Second, nil)
			_, err := svc.Verify(makeRequest())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestHTTPService_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	svc := verify.NewHTTPService(srv.URL, 20*time.Millisecond, nil)
	_, err := svc.Verify(makeRequest())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if domain.IsDecline(err) {
		t.Fatal("timeout must not look like a decline")
	}
}

func TestMockService_DeclineTable(t *testing.T) {
	svc := verify.NewMockService()

	cases := map[string]error{
		verify.MockCodeWrongCode:           domain.ErrWrongCode,
		verify.MockCodeInsufficientBalance: domain.ErrInsufficientBalance,
		verify.MockCodeUserCancelled:       domain.ErrUserCancelled,
	}
	for code, want := range cases {
		req := makeRequest()
		req.PaymentCode = code
		if _, err := svc.Verify(req); !errors.Is(err, want) {
			t.Fatalf("code %s: expected %v, got %v", code, want, err)
		}
	}

	req := makeRequest()
	res, err := svc.Verify(req)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.TransactionID == "" || res.Amount != req.Amount {
		t.Fatalf("unexpected result: %+v", res)
	}
	if svc.Calls != 4 {
		t.Fatalf("expected 4 calls, got %d", svc.Calls)
	}
}
