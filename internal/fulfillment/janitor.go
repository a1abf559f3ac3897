package fulfillment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"planstore-backend/internal/models"
)

// RetentionStore lists and deletes file records past their retention cutoff.
type RetentionStore interface {
	GetExpiredFiles(ctx context.Context, cutoff time.Time) ([]models.GeneratedFile, error)
	DeleteGeneratedFile(ctx context.Context, fileID uuid.UUID) error
}

// ObjectRemover deletes a stored object.
type ObjectRemover interface {
	RemoveObject(ctx context.Context, objectName string) error
}

// Janitor periodically removes deliverable archives whose retention window
// has passed, object first and row second, so a removal failure leaves the
// row behind for the next sweep.
type Janitor struct {
	store    RetentionStore
	remover  ObjectRemover
	interval time.Duration

	nowFunc func() time.Time
}

func NewJanitor(store RetentionStore, remover ObjectRemover, interval time.Duration) *Janitor {
	return &Janitor{
		store:    store,
		remover:  remover,
		interval: interval,
		nowFunc:  time.Now,
	}
}

// Run sweeps immediately and then on every interval tick until the context
// is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		if removed, err := j.Sweep(ctx); err != nil {
			log.Printf("[fulfillment] retention sweep failed: %v", err)
		} else if removed > 0 {
			log.Printf("[fulfillment] retention sweep removed %d expired file(s)", removed)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep removes all expired deliverables once and reports how many were
// fully cleaned up.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	expired, err := j.store.GetExpiredFiles(ctx, j.nowFunc())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired files: %w", err)
	}

	removed := 0
	for _, file := range expired {
		if err := j.remover.RemoveObject(ctx, file.StoragePath); err != nil {
			log.Printf("[fulfillment] failed to remove expired object %s: %v", file.StoragePath, err)
			continue
		}
		if err := j.store.DeleteGeneratedFile(ctx, file.ID); err != nil {
			log.Printf("[fulfillment] failed to delete expired file record %s: %v", file.ID, err)
			continue
		}
		removed++
	}

	return removed, nil
}
