package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"planstore-backend/internal/models"
)

type FilesHandler struct {
	store   OrderStore
	signer  URLSigner
	urlTTL  time.Duration
	nowFunc func() time.Time
}

func NewFilesHandler(store OrderStore, signer URLSigner, urlTTL time.Duration) *FilesHandler {
	return &FilesHandler{
		store:   store,
		signer:  signer,
		urlTTL:  urlTTL,
		nowFunc: time.Now,
	}
}

// GetFiles godoc
// @Summary     List order deliverables
// @Description Returns the generated deliverable archives for an order. Storage paths are never exposed; exchange a file id for a signed URL via the download endpoint.
// @Tags        files
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID (UUID)"
// @Success     200 {object} models.FilesResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /orders/{order_id}/files [get]
func (h *FilesHandler) GetFiles(c *gin.Context) {
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

	files, err := h.store.GetGeneratedFiles(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to get files",
			Message: err.Error(),
		})
		return
	}

	fileResponses := make([]models.FileResponse, len(files))
	for i, file := range files {
		fileResponses[i] = models.FileResponse{
			ID:        file.ID.String(),
			Type:      string(file.FileType),
			Name:      file.DisplayName,
			SizeBytes: file.SizeBytes,
			Size:      formatBytes(file.SizeBytes),
			CreatedAt: file.CreatedAt,
			ExpiresAt: file.ExpiresAt,
		}
	}

	c.JSON(http.StatusOK, models.FilesResponse{Files: fileResponses})
}

// Download godoc
// @Summary     Get a signed download URL
// @Description Issues a time-limited signed URL for one deliverable archive. Returns 410 once the file's retention window has passed.
// @Tags        files
// @Produce     json
// @Security    Bearer
// @Param       file_id path string true "File ID (UUID)"
// @Success     200 {object} models.DownloadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     410 {object} models.ErrorResponse
// @Router      /files/{file_id}/download [get]
func (h *FilesHandler) Download(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	fileID, err := uuid.Parse(c.Param("file_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid file id"})
		return
	}

	file, err := h.store.GetGeneratedFileForUser(c.Request.Context(), fileID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to get file",
			Message: err.Error(),
		})
		return
	}
	if file == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "file not found"})
		return
	}

	now := h.nowFunc()
	if now.After(file.ExpiresAt) {
		c.JSON(http.StatusGone, models.ErrorResponse{Error: "file has expired"})
		return
	}

	url, urlExpiresAt, err := h.signer.PresignedDownloadURL(c.Request.Context(), file.StoragePath, h.urlTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to sign download url",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.DownloadResponse{
		URL:       url,
		ExpiresAt: urlExpiresAt,
	})
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
