package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"planstore-backend/internal/database"
	"planstore-backend/internal/models"
)

type RegenerateHandler struct {
	store    OrderStore
	pipeline PipelineRunner
}

func NewRegenerateHandler(store OrderStore, pipeline PipelineRunner) *RegenerateHandler {
	return &RegenerateHandler{
		store:    store,
		pipeline: pipeline,
	}
}

// Regenerate godoc
// @Summary     Re-run file generation for an order
// @Description Explicitly regenerates the deliverables for a completed or failed order. Prior archives are overwritten and prior file records replaced. Rejected while a generation is in flight.
// @Tags        orders
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID (UUID)"
// @Success     202 {object} models.RegenerateResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /orders/{order_id}/regenerate [post]
func (h *RegenerateHandler) Regenerate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid order id"})
		return
	}

	order, err := h.store.GetOrderForUser(c.Request.Context(), orderID, userID)
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

	// Reset a settled order back to paid; the pipeline takes it from there.
	// An in-flight generation or an unpaid order loses the transition.
	err = h.store.TransitionOrderStatus(c.Request.Context(), orderID, models.OrderStatusPaid,
		models.OrderStatusFilesReady, models.OrderStatusFailed)
	if err != nil {
		if errors.Is(err, database.ErrStatusConflict) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:   "order cannot be regenerated",
				Message: "order is not in a completed or failed state",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to reset order",
			Message: err.Error(),
		})
		return
	}

	go func() {
		if err := h.pipeline.Run(context.Background(), orderID); err != nil {
			log.Printf("[handlers] regeneration failed for order %s: %v", orderID, err)
		}
	}()

	c.JSON(http.StatusAccepted, models.RegenerateResponse{
		OrderID: orderID.String(),
		Status:  string(models.OrderStatusPaid),
	})
}
