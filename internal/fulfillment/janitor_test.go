package fulfillment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planstore-backend/internal/models"
)

type fakeRetentionStore struct {
	mu    sync.Mutex
	files map[uuid.UUID]models.GeneratedFile
}

func newFakeRetentionStore() *fakeRetentionStore {
	return &fakeRetentionStore{files: make(map[uuid.UUID]models.GeneratedFile)}
}

func (s *fakeRetentionStore) add(fileType models.FileType, expiresAt time.Time) models.GeneratedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	file := models.GeneratedFile{
		ID:          uuid.New(),
		OrderID:     uuid.New(),
		FileType:    fileType,
		StoragePath: ObjectName(uuid.New(), fileType),
		SizeBytes:   1024,
		ExpiresAt:   expiresAt,
	}
	s.files[file.ID] = file
	return file
}

func (s *fakeRetentionStore) GetExpiredFiles(ctx context.Context, cutoff time.Time) ([]models.GeneratedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GeneratedFile
	for _, f := range s.files {
		if f.ExpiresAt.Before(cutoff) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeRetentionStore) DeleteGeneratedFile(ctx context.Context, fileID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, fileID)
	return nil
}

func (s *fakeRetentionStore) has(fileID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[fileID]
	return ok
}

type fakeRemover struct {
	mu      sync.Mutex
	removed []string
	failFor string
}

func (r *fakeRemover) RemoveObject(ctx context.Context, objectName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if objectName == r.failFor {
		return errors.New("object store unavailable")
	}
	r.removed = append(r.removed, objectName)
	return nil
}

func TestJanitorSweepRemovesExpiredFiles(t *testing.T) {
	store := newFakeRetentionStore()
	remover := &fakeRemover{}
	now := time.Now().UTC()

	expired := store.add(models.FileTypeRenderImages, now.Add(-time.Hour))
	fresh := store.add(models.FileTypeCADFiles, now.Add(24*time.Hour))

	janitor := NewJanitor(store, remover, time.Hour)
	janitor.nowFunc = func() time.Time { return now }

	removed, err := janitor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.False(t, store.has(expired.ID))
	assert.True(t, store.has(fresh.ID))
	assert.Equal(t, []string{expired.StoragePath}, remover.removed)
}

func TestJanitorSweepKeepsRowWhenRemovalFails(t *testing.T) {
	store := newFakeRetentionStore()
	now := time.Now().UTC()

	stuck := store.add(models.FileTypePDFFiles, now.Add(-time.Hour))
	remover := &fakeRemover{failFor: stuck.StoragePath}

	janitor := NewJanitor(store, remover, time.Hour)
	janitor.nowFunc = func() time.Time { return now }

	removed, err := janitor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	// The record stays so the next sweep retries the removal.
	assert.True(t, store.has(stuck.ID))
}

func TestJanitorSweepEmptyStore(t *testing.T) {
	janitor := NewJanitor(newFakeRetentionStore(), &fakeRemover{}, time.Hour)

	removed, err := janitor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestJanitorRunStopsOnCancel(t *testing.T) {
	janitor := NewJanitor(newFakeRetentionStore(), &fakeRemover{}, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		janitor.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancellation")
	}
}
