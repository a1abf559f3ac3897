package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"planstore-backend/internal/middleware"
	"planstore-backend/internal/models"
)

type StatusHandler struct {
	store OrderStore
}

func NewStatusHandler(store OrderStore) *StatusHandler {
	return &StatusHandler{
		store: store,
	}
}

// GetStatus godoc
// @Summary     Get order fulfillment status
// @Description Returns the order status and whether all deliverable files are ready. The storefront polls this until files_ready or a terminal failure.
// @Tags        orders
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID (UUID)"
// @Success     200 {object} models.StatusResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /orders/{order_id}/status [get]
func (h *StatusHandler) GetStatus(c *gin.Context) {
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

	c.JSON(http.StatusOK, models.StatusResponse{
		OrderID:      order.ID.String(),
		Status:       string(order.Status),
		FilesReady:   order.Status == models.OrderStatusFilesReady,
		CreatedAt:    order.CreatedAt,
		AmountCents:  order.AmountCents,
		Currency:     order.Currency,
		ProductName:  order.ProductName,
		CustomerName: order.CustomerName,
	})
}

// userIDFromContext pulls the authenticated user id set by the auth
// middleware, writing the error response itself on failure.
func userIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user id"})
		return uuid.Nil, false
	}

	return userID, true
}
