package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/catalog"
	"github.com/vladislavdragonenkov/checkout/internal/service/gateway/card"
	"github.com/vladislavdragonenkov/checkout/internal/service/gateway/momo"
	"github.com/vladislavdragonenkov/checkout/internal/service/pricing"
	"github.com/vladislavdragonenkov/checkout/internal/service/reconcile"
	"github.com/vladislavdragonenkov/checkout/internal/service/verify"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

const webhookSecret = "whsec_test"

type apiFixture struct {
	router   *gin.Engine
	orders   domain.OrderStore
	payments domain.PaymentRecordStore
	verifier *verify.MockService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orders := memory.NewOrderStore()
	payments := memory.NewPaymentRecordStore()
	return newAPIFixtureWithStores(t, orders, payments)
}

func newAPIFixtureWithStores(t *testing.T, orders domain.OrderStore, payments domain.PaymentRecordStore) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	prices := catalog.NewMockService(map[string]float64{
		"p1": 5000,
		"p2": 1500,
	})
	validator := pricing.NewValidator(prices, pricing.Config{
		FreeDeliveryThreshold: 10000,
		FlatDeliveryFee:       1000,
	}, nil)

	engine := reconcile.NewEngine(orders, nil)
	verifier := verify.NewMockService()
	verifier.TransactionID = "momo_txn_1"

	server := NewServer(
		validator,
		engine,
		card.NewAdapter(webhookSecret, payments, orders, engine, nil),
		momo.NewAdapter(verifier, payments, engine, nil),
		payments,
		orders,
		nil,
	)
	return &apiFixture{
		router:   server.Router(),
		orders:   orders,
		payments: payments,
		verifier: verifier,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if raw, ok := body.([]byte); ok {
		reader = bytes.NewReader(raw)
	} else if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func checkoutBody(reference string) map[string]interface{} {
	return map[string]interface{}{
		"reference": reference,
		"items": []map[string]interface{}{
			{"productId": "p1", "name": "Rice 5kg", "quantity": 2, "unitPrice": 5000},
		},
		"subtotal":      10000,
		"deliveryFee":   0,
		"total":         10000,
		"currency":      "XOF",
		"paymentMethod": "card",
		"contact":       map[string]string{"name": "Awa", "phone": "70123456"},
		"address":       map[string]string{"street": "Rue 12", "city": "Cotonou"},
	}
}

func TestCheckoutCreatesOrder(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody("ORD-1001"), nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ORD-1001", resp.Reference)
	assert.Equal(t, "processing_payment", resp.Status)
	assert.Equal(t, 10000.0, resp.Total)

	order, err := f.orders.Get("ORD-1001")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessingPayment, order.Status)
}

func TestCheckoutCashOrderStaysPending(t *testing.T) {
	f := newAPIFixture(t)
	body := checkoutBody("ORD-1001")
	body["paymentMethod"] = "cash"

	rec := f.do(t, http.MethodPost, "/api/v1/checkout", body, nil)

	require.Equal(t, http.StatusCreated, rec.Code)

	order, err := f.orders.Get("ORD-1001")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
}

func TestCheckoutCardStoresDraftSnapshot(t *testing.T) {
	f := newAPIFixture(t)
	body := checkoutBody("ORD-1001")
	body["gatewayTransactionId"] = "txn_1"

	rec := f.do(t, http.MethodPost, "/api/v1/checkout", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	record, err := f.payments.Get("txn_1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1001", record.OrderReference)
	require.NotNil(t, record.Snapshot)
	assert.Equal(t, 10000.0, record.Snapshot.Total)
}

func TestCheckoutRejectsTamperedAmounts(t *testing.T) {
	f := newAPIFixture(t)
	body := checkoutBody("ORD-1001")
	body["subtotal"] = 2000 // каталожная цена 2 x 5000
	body["total"] = 2000

	rec := f.do(t, http.MethodPost, "/api/v1/checkout", body, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	// Детали расхождения клиенту не раскрываются.
	assert.Contains(t, rec.Body.String(), "verification failed")
	assert.NotContains(t, rec.Body.String(), "10000")

	_, err := f.orders.Get("ORD-1001")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	f := newAPIFixture(t)
	body := checkoutBody("ORD-1001")
	body["paymentMethod"] = "crypto"

	rec := f.do(t, http.MethodPost, "/api/v1/checkout", body, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func webhookEvent(t *testing.T, eventType, txnID, reference string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":   "evt_1",
		"type": eventType,
		"data": map[string]interface{}{
			"transaction_id": txnID,
			"amount":         10000.0,
			"currency":       "XOF",
			"metadata":       map[string]string{"order_reference": reference},
		},
	})
	require.NoError(t, err)
	return body
}

func TestCardWebhookMarksOrderPaid(t *testing.T) {
	f := newAPIFixture(t)
	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody("ORD-1001"), nil).Code)

	body := webhookEvent(t, card.EventPaymentSucceeded, "txn_1", "ORD-1001")
	rec := f.do(t, http.MethodPost, "/api/v1/payments/card/webhook", body, map[string]string{
		webhookSignatureHeader: card.SignEvent(webhookSecret, body),
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	order, err := f.orders.Get("ORD-1001")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	require.NotNil(t, order.PaidAt)
}

func TestCardWebhookRejectsBadSignature(t *testing.T) {
	f := newAPIFixture(t)
	body := webhookEvent(t, card.EventPaymentSucceeded, "txn_1", "ORD-1001")

	rec := f.do(t, http.MethodPost, "/api/v1/payments/card/webhook", body, map[string]string{
		webhookSignatureHeader: card.SignEvent("wrong-secret", body),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, err := f.orders.Get("ORD-1001")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

// failingPaymentStore имитирует недоступное хранилище платежей.
type failingPaymentStore struct {
	domain.PaymentRecordStore
}

func (s *failingPaymentStore) Upsert(domain.PaymentRecord) error {
	return domain.NewStorageError(domain.StorageUnavailable, "payment.upsert", nil)
}

func TestCardWebhookStorageFailureTriggersRedelivery(t *testing.T) {
	orders := memory.NewOrderStore()
	payments := &failingPaymentStore{PaymentRecordStore: memory.NewPaymentRecordStore()}
	f := newAPIFixtureWithStores(t, orders, payments)

	body := webhookEvent(t, card.EventPaymentSucceeded, "txn_1", "ORD-1001")
	rec := f.do(t, http.MethodPost, "/api/v1/payments/card/webhook", body, map[string]string{
		webhookSignatureHeader: card.SignEvent(webhookSecret, body),
	})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func momoBody(code string) map[string]interface{} {
	return map[string]interface{}{
		"provider":       "mtn",
		"phoneNumber":    "70 12 34 56",
		"paymentCode":    code,
		"orderReference": "ORD-1001",
		"items": []map[string]interface{}{
			{"productId": "p1", "name": "Rice 5kg", "quantity": 2, "unitPrice": 5000},
		},
		"subtotal":    10000,
		"deliveryFee": 0,
		"total":       10000,
		"currency":    "XOF",
		"contact":     map[string]string{"name": "Awa", "phone": "70123456"},
	}
}

func TestMobileMoneySuccess(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/payments/mobile-money", momoBody("654321"), nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp mobileMoneyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "momo_txn_1", resp.TransactionID)
	assert.Equal(t, 10000.0, resp.Amount)

	order, err := f.orders.Get("ORD-1001")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, domain.PaymentMethodMobileMoney, order.PaymentMethod)
}

func TestMobileMoneyDeclineReturns402(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/payments/mobile-money", momoBody(verify.MockCodeInsufficientBalance), nil)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PAYMENT_FAILED", resp.Code)
	assert.Equal(t, "insufficient balance", resp.Error)

	_, err := f.orders.Get("ORD-1001")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestMobileMoneyRejectsBadPhone(t *testing.T) {
	f := newAPIFixture(t)
	body := momoBody("654321")
	body["phoneNumber"] = "123"

	rec := f.do(t, http.MethodPost, "/api/v1/payments/mobile-money", body, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.verifier.Calls)
}

func TestGetOrder(t *testing.T) {
	f := newAPIFixture(t)
	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody("ORD-1001"), nil).Code)

	rec := f.do(t, http.MethodGet, "/api/v1/orders/ORD-1001", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ORD-1001", resp.Reference)

	rec = f.do(t, http.MethodGet, "/api/v1/orders/ORD-missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
