package models

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type StatusResponse struct {
	OrderID      string    `json:"order_id"`
	Status       string    `json:"status"`
	FilesReady   bool      `json:"files_ready"`
	CreatedAt    time.Time `json:"created_at"`
	AmountCents  int64     `json:"amount_cents"`
	Currency     string    `json:"currency"`
	ProductName  string    `json:"product_name"`
	CustomerName string    `json:"customer_name"`
}

type FilesResponse struct {
	Files []FileResponse `json:"files"`
}

type FileResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	Size      string    `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type DownloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RegenerateResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
