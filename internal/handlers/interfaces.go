package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"planstore-backend/internal/models"
)

// OrderStore is the persistence surface the handlers need. Get methods
// return (nil, nil) when the row is absent. *database.Client satisfies it.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetOrderForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	GetGeneratedFiles(ctx context.Context, orderID uuid.UUID) ([]models.GeneratedFile, error)
	GetGeneratedFileForUser(ctx context.Context, fileID, userID uuid.UUID) (*models.GeneratedFile, error)
	TransitionOrderStatus(ctx context.Context, orderID uuid.UUID, to models.OrderStatus, from ...models.OrderStatus) error
	RecordOrderError(ctx context.Context, orderID uuid.UUID, message string) error
}

// URLSigner issues time-limited download URLs for stored objects, returning
// the instant the URL stops working. *storage.ObjectStore satisfies it.
type URLSigner interface {
	PresignedDownloadURL(ctx context.Context, objectName string, expiry time.Duration) (string, time.Time, error)
}

// PipelineRunner triggers fulfillment for one order.
// *fulfillment.Pipeline satisfies it.
type PipelineRunner interface {
	Run(ctx context.Context, orderID uuid.UUID) error
}
