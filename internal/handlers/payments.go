package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"planstore-backend/internal/config"
	"planstore-backend/internal/database"
	"planstore-backend/internal/models"
)

type PaymentWebhookHandler struct {
	config   *config.Config
	store    OrderStore
	pipeline PipelineRunner
}

func NewPaymentWebhookHandler(cfg *config.Config, store OrderStore, pipeline PipelineRunner) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{
		config:   cfg,
		store:    store,
		pipeline: pipeline,
	}
}

// HandlePaymentWebhook godoc
// @Summary     Payment confirmation webhook
// @Description Receives payment results from the payment collaborator (M-Pesa/PayPal integration). A successful payment moves the order to paid and triggers file generation. Delivery is retried by the caller; the handler is idempotent.
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       Authorization header string true "Shared webhook token"
// @Success     200 {object} map[string]string "status"
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /webhooks/payments [post]
func (h *PaymentWebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "missing authorization token"})
		return
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token != h.config.PaymentWebhookToken {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid authorization token"})
		return
	}

	var event models.PaymentWebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse event",
			Message: err.Error(),
		})
		return
	}

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid order id"})
		return
	}

	order, err := h.store.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to get order",
			Message: err.Error(),
		})
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "order not found"})
		return
	}

	switch event.Result {
	case models.PaymentResultSuccess:
		err := h.store.TransitionOrderStatus(c.Request.Context(), orderID,
			models.OrderStatusPaid, models.OrderStatusPending)
		if err != nil && !errors.Is(err, database.ErrStatusConflict) {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "failed to mark order paid",
				Message: err.Error(),
			})
			return
		}
		// A conflict means a duplicate delivery already moved the order
		// on; the pipeline's own status guard makes the re-trigger safe.
		log.Printf("[payments] order %s paid via %s (receipt %s)", orderID, event.Provider, event.Receipt)

		go func() {
			if err := h.pipeline.Run(context.Background(), orderID); err != nil {
				log.Printf("[payments] fulfillment failed for order %s: %v", orderID, err)
			}
		}()

	case models.PaymentResultFailed:
		reason := event.FailureReason
		if reason == "" {
			reason = "payment failed"
		}
		if err := h.store.RecordOrderError(c.Request.Context(), orderID, reason); err != nil {
			log.Printf("[payments] failed to record payment error for order %s: %v", orderID, err)
		}

	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unknown payment result"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
