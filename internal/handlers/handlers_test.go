package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"planstore-backend/internal/database"
	"planstore-backend/internal/middleware"
	"planstore-backend/internal/models"
)

// fakeOrderStore is an in-memory OrderStore for handler tests.
type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
	files  map[uuid.UUID]*models.GeneratedFile
	errors map[uuid.UUID]string
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders: make(map[uuid.UUID]*models.Order),
		files:  make(map[uuid.UUID]*models.GeneratedFile),
		errors: make(map[uuid.UUID]string),
	}
}

func (s *fakeOrderStore) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, nil
	}
	copied := *order
	return &copied, nil
}

func (s *fakeOrderStore) GetOrderForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok || order.UserID != userID {
		return nil, nil
	}
	copied := *order
	return &copied, nil
}

func (s *fakeOrderStore) GetGeneratedFiles(ctx context.Context, orderID uuid.UUID) ([]models.GeneratedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GeneratedFile
	for _, f := range s.files {
		if f.OrderID == orderID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeOrderStore) GetGeneratedFileForUser(ctx context.Context, fileID, userID uuid.UUID) (*models.GeneratedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[fileID]
	if !ok {
		return nil, nil
	}
	order, ok := s.orders[file.OrderID]
	if !ok || order.UserID != userID {
		return nil, nil
	}
	copied := *file
	return &copied, nil
}

func (s *fakeOrderStore) TransitionOrderStatus(ctx context.Context, orderID uuid.UUID, to models.OrderStatus, from ...models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return database.ErrStatusConflict
	}
	for _, expected := range from {
		if order.Status == expected {
			order.Status = to
			return nil
		}
	}
	return database.ErrStatusConflict
}

func (s *fakeOrderStore) RecordOrderError(ctx context.Context, orderID uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[orderID] = message
	return nil
}

func (s *fakeOrderStore) status(orderID uuid.UUID) models.OrderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[orderID].Status
}

// fakeSigner issues deterministic URLs without a real object store. A zero
// now falls back to the wall clock.
type fakeSigner struct {
	err error
	now time.Time
}

func (f *fakeSigner) PresignedDownloadURL(ctx context.Context, objectName string, expiry time.Duration) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	base := f.now
	if base.IsZero() {
		base = time.Now()
	}
	url := fmt.Sprintf("https://storage.example.com/%s?expires=%d", objectName, int64(expiry.Seconds()))
	return url, base.Add(expiry), nil
}

// fakeRunner reports pipeline invocations on a channel so tests can wait
// for the goroutine the handlers spawn.
type fakeRunner struct {
	ran chan uuid.UUID
	err error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{ran: make(chan uuid.UUID, 1)}
}

func (f *fakeRunner) Run(ctx context.Context, orderID uuid.UUID) error {
	f.ran <- orderID
	return f.err
}

func seedOrder(store *fakeOrderStore, userID uuid.UUID, status models.OrderStatus) *models.Order {
	order := &models.Order{
		ID:           uuid.New(),
		UserID:       userID,
		CustomerName: "Njeri Mwangi",
		ProductName:  "Courtyard Villa",
		AmountCents:  7_200_000,
		Currency:     "KES",
		Status:       status,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		UpdatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	store.orders[order.ID] = order
	return order
}

func seedFile(store *fakeOrderStore, orderID uuid.UUID, fileType models.FileType, expiresAt time.Time) *models.GeneratedFile {
	file := &models.GeneratedFile{
		ID:          uuid.New(),
		OrderID:     orderID,
		FileType:    fileType,
		DisplayName: fileType.DisplayName(),
		StoragePath: fmt.Sprintf("orders/%s/%s.zip", orderID, fileType),
		SizeBytes:   2048,
		CreatedAt:   expiresAt.Add(-7 * 24 * time.Hour),
		ExpiresAt:   expiresAt,
	}
	store.files[file.ID] = file
	return file
}

// authAs stands in for the JWT middleware in handler tests.
func authAs(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID.String())
	}
}
