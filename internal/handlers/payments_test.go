package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planstore-backend/internal/config"
	"planstore-backend/internal/models"
)

const testWebhookToken = "whsec-test-token"

func newWebhookRouter(store *fakeOrderStore, runner PipelineRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{PaymentWebhookToken: testWebhookToken}
	router := gin.New()
	router.POST("/webhooks/payments", NewPaymentWebhookHandler(cfg, store, runner).HandlePaymentWebhook)
	return router
}

func postWebhook(router *gin.Engine, token string, event models.PaymentWebhookEvent) *httptest.ResponseRecorder {
	body, _ := json.Marshal(event)
	req, _ := http.NewRequest("POST", "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPaymentWebhookSuccessTriggersPipeline(t *testing.T) {
	store := newFakeOrderStore()
	runner := newFakeRunner()
	order := seedOrder(store, uuid.New(), models.OrderStatusPending)
	router := newWebhookRouter(store, runner)

	w := postWebhook(router, testWebhookToken, models.PaymentWebhookEvent{
		OrderID:  order.ID.String(),
		Result:   models.PaymentResultSuccess,
		Provider: "mpesa",
		Receipt:  "QGH7X1KPLM",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OrderStatusPaid, store.status(order.ID))

	select {
	case ranID := <-runner.ran:
		assert.Equal(t, order.ID, ranID)
	case <-time.After(time.Second):
		t.Fatal("pipeline was not triggered")
	}
}

func TestPaymentWebhookDuplicateDeliveryIsIdempotent(t *testing.T) {
	store := newFakeOrderStore()
	runner := newFakeRunner()
	order := seedOrder(store, uuid.New(), models.OrderStatusPaid)
	router := newWebhookRouter(store, runner)

	w := postWebhook(router, testWebhookToken, models.PaymentWebhookEvent{
		OrderID: order.ID.String(),
		Result:  models.PaymentResultSuccess,
	})

	// Already paid: still 200 so the provider stops retrying; the
	// pipeline's own status guard handles the re-trigger.
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OrderStatusPaid, store.status(order.ID))
}

func TestPaymentWebhookFailureRecordsError(t *testing.T) {
	store := newFakeOrderStore()
	runner := newFakeRunner()
	order := seedOrder(store, uuid.New(), models.OrderStatusPending)
	router := newWebhookRouter(store, runner)

	w := postWebhook(router, testWebhookToken, models.PaymentWebhookEvent{
		OrderID:       order.ID.String(),
		Result:        models.PaymentResultFailed,
		FailureReason: "insufficient funds",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OrderStatusPending, store.status(order.ID))
	assert.Equal(t, "insufficient funds", store.errors[order.ID])

	select {
	case <-runner.ran:
		t.Fatal("pipeline must not run for a failed payment")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPaymentWebhookRejectsBadToken(t *testing.T) {
	store := newFakeOrderStore()
	order := seedOrder(store, uuid.New(), models.OrderStatusPending)
	router := newWebhookRouter(store, newFakeRunner())

	w := postWebhook(router, "wrong-token", models.PaymentWebhookEvent{
		OrderID: order.ID.String(),
		Result:  models.PaymentResultSuccess,
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.OrderStatusPending, store.status(order.ID))
}

func TestPaymentWebhookMissingToken(t *testing.T) {
	router := newWebhookRouter(newFakeOrderStore(), newFakeRunner())

	w := postWebhook(router, "", models.PaymentWebhookEvent{
		OrderID: uuid.New().String(),
		Result:  models.PaymentResultSuccess,
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentWebhookUnknownOrder(t *testing.T) {
	router := newWebhookRouter(newFakeOrderStore(), newFakeRunner())

	w := postWebhook(router, testWebhookToken, models.PaymentWebhookEvent{
		OrderID: uuid.New().String(),
		Result:  models.PaymentResultSuccess,
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentWebhookUnknownResult(t *testing.T) {
	store := newFakeOrderStore()
	order := seedOrder(store, uuid.New(), models.OrderStatusPending)
	router := newWebhookRouter(store, newFakeRunner())

	w := postWebhook(router, testWebhookToken, models.PaymentWebhookEvent{
		OrderID: order.ID.String(),
		Result:  "maybe",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
