package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"planstore-backend/internal/database"
	"planstore-backend/internal/models"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderNotPaid         = errors.New("order not paid")
	ErrGenerationInProgress = errors.New("file generation already in progress")
)

// OrderStore is the persistence surface the pipeline needs. Get methods
// return (nil, nil) when the row is absent.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	TransitionOrderStatus(ctx context.Context, orderID uuid.UUID, to models.OrderStatus, from ...models.OrderStatus) error
	MarkOrderFailed(ctx context.Context, orderID uuid.UUID, message string) error
	CreateGeneratedFile(ctx context.Context, file *models.GeneratedFile) error
	DeleteGeneratedFiles(ctx context.Context, orderID uuid.UUID) error
}

// Uploader stores a finished archive in the object store.
type Uploader interface {
	UploadFile(ctx context.Context, objectName, filePath, contentType string, metadata map[string]string) (int64, error)
}

// ObjectName is the deterministic storage layout for deliverables.
func ObjectName(orderID uuid.UUID, fileType models.FileType) string {
	return fmt.Sprintf("orders/%s/%s.zip", orderID, fileType)
}

// Pipeline drives one order from paid to files_ready: generate the three
// deliverable sets concurrently, archive and upload each, record a
// GeneratedFile row per type, then flip the order status. The conditional
// paid->generating transition is the run lock; a loser touches nothing.
type Pipeline struct {
	store      OrderStore
	uploader   Uploader
	generators []ContentGenerator
	timeout    time.Duration
	retention  time.Duration

	// workRoot overrides the parent of per-run working directories;
	// empty means the OS temp dir.
	workRoot string
	nowFunc  func() time.Time
}

func NewPipeline(store OrderStore, uploader Uploader, generators []ContentGenerator, timeout, retention time.Duration) *Pipeline {
	return &Pipeline{
		store:      store,
		uploader:   uploader,
		generators: generators,
		timeout:    timeout,
		retention:  retention,
		nowFunc:    time.Now,
	}
}

// Run produces and publishes all deliverables for the order. It is safe to
// call for an order that is already files_ready (no-op) or mid-generation
// (ErrGenerationInProgress); duplicate webhook deliveries land on one of
// those paths.
func (p *Pipeline) Run(ctx context.Context, orderID uuid.UUID) error {
	order, err := p.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	// Acquire the run: paid (or a prior failure being retried) -> generating.
	err = p.store.TransitionOrderStatus(ctx, orderID, models.OrderStatusGenerating,
		models.OrderStatusPaid, models.OrderStatusFailed)
	if err != nil {
		if !errors.Is(err, database.ErrStatusConflict) {
			return fmt.Errorf("failed to start generation: %w", err)
		}
		current, getErr := p.store.GetOrder(ctx, orderID)
		if getErr != nil || current == nil {
			return fmt.Errorf("failed to start generation: %w", err)
		}
		switch current.Status {
		case models.OrderStatusFilesReady:
			log.Printf("[fulfillment] order %s already has files, skipping", orderID)
			return nil
		case models.OrderStatusGenerating:
			return fmt.Errorf("%w: %s", ErrGenerationInProgress, orderID)
		case models.OrderStatusPending:
			return fmt.Errorf("%w: %s", ErrOrderNotPaid, orderID)
		}
		return fmt.Errorf("failed to start generation: %w", err)
	}

	if err := p.generate(ctx, order); err != nil {
		p.markFailed(ctx, orderID, err)
		return err
	}

	if err := p.store.TransitionOrderStatus(ctx, orderID, models.OrderStatusFilesReady,
		models.OrderStatusGenerating); err != nil {
		err = fmt.Errorf("failed to mark files ready: %w", err)
		p.markFailed(ctx, orderID, err)
		return err
	}

	log.Printf("[fulfillment] order %s files ready", orderID)
	return nil
}

func (p *Pipeline) generate(ctx context.Context, order *models.Order) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	items, err := p.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	// A regeneration must not leave rows from a previous run behind.
	if err := p.store.DeleteGeneratedFiles(ctx, order.ID); err != nil {
		return fmt.Errorf("failed to clear prior file records: %w", err)
	}

	workDir, err := os.MkdirTemp(p.workRoot, "order-"+order.ID.String()+"-*")
	if err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Printf("[fulfillment] failed to remove working directory %s: %v", workDir, err)
		}
	}()

	// Phase 1: the three generators write into their own subdirectories.
	gen, genCtx := errgroup.WithContext(ctx)
	for _, g := range p.generators {
		g := g
		subDir := filepath.Join(workDir, string(g.FileType()))
		if err := os.Mkdir(subDir, 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", g.FileType(), err)
		}
		gen.Go(func() error {
			if err := g.Generate(genCtx, order, items, subDir); err != nil {
				return fmt.Errorf("generation failed for %s: %w", g.FileType(), err)
			}
			return nil
		})
	}
	if err := gen.Wait(); err != nil {
		return err
	}

	// Phase 2: archive, upload, and record each type independently.
	pub, pubCtx := errgroup.WithContext(ctx)
	for _, g := range p.generators {
		fileType := g.FileType()
		pub.Go(func() error {
			return p.publish(pubCtx, order, fileType, workDir)
		})
	}
	return pub.Wait()
}

// publish zips one type's subdirectory, uploads the archive, and persists
// its GeneratedFile row. Rows land as each upload succeeds, so partial
// progress stays inspectable after a failure elsewhere.
func (p *Pipeline) publish(ctx context.Context, order *models.Order, fileType models.FileType, workDir string) error {
	archivePath := filepath.Join(workDir, string(fileType)+".zip")
	size, err := ArchiveDirectory(filepath.Join(workDir, string(fileType)), archivePath)
	if err != nil {
		return fmt.Errorf("archiving failed for %s: %w", fileType, err)
	}

	objectName := ObjectName(order.ID, fileType)
	if _, err := p.uploader.UploadFile(ctx, objectName, archivePath, "application/zip", map[string]string{
		"order_id":  order.ID.String(),
		"file_type": string(fileType),
	}); err != nil {
		return fmt.Errorf("upload failed for %s: %w", fileType, err)
	}

	now := p.nowFunc()
	record := &models.GeneratedFile{
		ID:          uuid.New(),
		OrderID:     order.ID,
		FileType:    fileType,
		DisplayName: fileType.DisplayName(),
		StoragePath: objectName,
		SizeBytes:   size,
		CreatedAt:   now,
		ExpiresAt:   now.Add(p.retention),
	}
	if err := p.store.CreateGeneratedFile(ctx, record); err != nil {
		return fmt.Errorf("failed to record %s: %w", fileType, err)
	}

	return nil
}

// markFailed is best-effort: a secondary failure is logged and never masks
// the primary error held by the caller.
func (p *Pipeline) markFailed(ctx context.Context, orderID uuid.UUID, cause error) {
	if err := p.store.MarkOrderFailed(ctx, orderID, cause.Error()); err != nil {
		log.Printf("[fulfillment] failed to mark order %s failed (cause: %v): %v", orderID, cause, err)
	}
}
