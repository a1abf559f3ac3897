package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order. Transitions only move
// forward: pending -> paid -> generating -> files_ready | file_generation_failed.
// A failed or completed order re-enters the flow only through an explicit
// regeneration, which resets it to paid.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusGenerating OrderStatus = "generating"
	OrderStatusFilesReady OrderStatus = "files_ready"
	OrderStatusFailed     OrderStatus = "file_generation_failed"
)

// Terminal reports whether the status is an end state of a generation run.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFilesReady || s == OrderStatusFailed
}

// FileType identifies one of the three deliverable archives produced per order.
type FileType string

const (
	FileTypeRenderImages FileType = "renderImages"
	FileTypeCADFiles     FileType = "cadFiles"
	FileTypePDFFiles     FileType = "pdfFiles"
)

// AllFileTypes returns every deliverable type in a stable order.
func AllFileTypes() []FileType {
	return []FileType{FileTypeRenderImages, FileTypeCADFiles, FileTypePDFFiles}
}

func (t FileType) Valid() bool {
	switch t {
	case FileTypeRenderImages, FileTypeCADFiles, FileTypePDFFiles:
		return true
	}
	return false
}

// DisplayName is the customer-facing name shown in the files listing.
func (t FileType) DisplayName() string {
	switch t {
	case FileTypeRenderImages:
		return "Render Images"
	case FileTypeCADFiles:
		return "CAD Files"
	case FileTypePDFFiles:
		return "PDF Documentation"
	}
	return string(t)
}

type Order struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	CustomerName string
	ProductName  string
	AmountCents  int64
	Currency     string
	Status       OrderStatus
	ErrorMessage sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderItem is one purchased plan with its selected customization.
// Items drive what the content generators produce.
type OrderItem struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	PlanID        string
	PlanName      string
	Customization sql.NullString
	CreatedAt     time.Time
}

// GeneratedFile records one uploaded deliverable archive. Rows are written
// after each upload succeeds, never mutated, and replaced wholesale on
// regeneration. ExpiresAt marks the retention cutoff enforced by the
// download endpoint.
type GeneratedFile struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	FileType    FileType
	DisplayName string
	StoragePath string
	SizeBytes   int64
	CreatedAt   time.Time
	ExpiresAt   time.Time
}
