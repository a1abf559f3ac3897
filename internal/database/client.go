package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"planstore-backend/internal/models"
)

// ErrStatusConflict is returned by TransitionOrderStatus when the order is
// not in any of the expected statuses. Callers use it as the lost side of
// the per-order generation lock.
var ErrStatusConflict = errors.New("order status conflict")

type Client struct {
	db *sql.DB
}

func NewClient(connectionString string) (*Client, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db}, nil
}

// DB exposes the underlying handle for the migrator.
func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) Close() error {
	return c.db.Close()
}

// GetOrder fetches an order by id. Returns (nil, nil) if not found.
func (c *Client) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return c.getOrder(ctx, `
		SELECT id, user_id, customer_name, product_name, amount_cents, currency, status, error_message, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, orderID)
}

// GetOrderForUser fetches an order scoped to its owning user. Returns
// (nil, nil) if the order does not exist or belongs to someone else.
func (c *Client) GetOrderForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	return c.getOrder(ctx, `
		SELECT id, user_id, customer_name, product_name, amount_cents, currency, status, error_message, created_at, updated_at
		FROM orders
		WHERE id = $1 AND user_id = $2
	`, orderID, userID)
}

func (c *Client) getOrder(ctx context.Context, query string, args ...interface{}) (*models.Order, error) {
	var order models.Order
	err := c.db.QueryRowContext(ctx, query, args...).Scan(
		&order.ID, &order.UserID, &order.CustomerName, &order.ProductName,
		&order.AmountCents, &order.Currency, &order.Status, &order.ErrorMessage,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

func (c *Client) GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, order_id, plan_id, plan_name, customization, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.PlanID, &item.PlanName,
			&item.Customization, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// TransitionOrderStatus moves an order to the given status only if its
// current status is one of the expected ones. The conditional UPDATE is the
// exclusivity guard for the fulfillment pipeline: the losing caller gets
// ErrStatusConflict and must not start work.
func (c *Client) TransitionOrderStatus(ctx context.Context, orderID uuid.UUID, to models.OrderStatus, from ...models.OrderStatus) error {
	expected := make([]string, len(from))
	for i, s := range from {
		expected[i] = string(s)
	}

	res, err := c.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`, string(to), orderID, pq.Array(expected))
	if err != nil {
		return fmt.Errorf("failed to transition order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrStatusConflict
	}

	return nil
}

// MarkOrderFailed records a generation failure. Only a generating order can
// fail; anything else means another run already settled the order.
func (c *Client) MarkOrderFailed(ctx context.Context, orderID uuid.UUID, message string) error {
	res, err := c.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`, string(models.OrderStatusFailed), message, orderID, string(models.OrderStatusGenerating))
	if err != nil {
		return fmt.Errorf("failed to mark order failed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrStatusConflict
	}

	return nil
}

// RecordOrderError stores a provider-side error message without touching
// the status. Used for failed payment attempts on a pending order.
func (c *Client) RecordOrderError(ctx context.Context, orderID uuid.UUID, message string) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE orders
		SET error_message = $1, updated_at = NOW()
		WHERE id = $2
	`, message, orderID)
	if err != nil {
		return fmt.Errorf("failed to record order error: %w", err)
	}
	return nil
}

func (c *Client) CreateGeneratedFile(ctx context.Context, file *models.GeneratedFile) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO generated_files (id, order_id, file_type, display_name, storage_path, size_bytes, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, file.ID, file.OrderID, string(file.FileType), file.DisplayName,
		file.StoragePath, file.SizeBytes, file.CreatedAt, file.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create generated file: %w", err)
	}
	return nil
}

// DeleteGeneratedFiles removes all file records for an order. Called at the
// start of a (re)generation so a completed order never carries stale rows.
func (c *Client) DeleteGeneratedFiles(ctx context.Context, orderID uuid.UUID) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM generated_files
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		return fmt.Errorf("failed to delete generated files: %w", err)
	}
	return nil
}

func (c *Client) GetGeneratedFiles(ctx context.Context, orderID uuid.UUID) ([]models.GeneratedFile, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, order_id, file_type, display_name, storage_path, size_bytes, created_at, expires_at
		FROM generated_files
		WHERE order_id = $1
		ORDER BY file_type ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get generated files: %w", err)
	}
	defer rows.Close()

	var files []models.GeneratedFile
	for rows.Next() {
		var file models.GeneratedFile
		err := rows.Scan(
			&file.ID, &file.OrderID, &file.FileType, &file.DisplayName,
			&file.StoragePath, &file.SizeBytes, &file.CreatedAt, &file.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generated file: %w", err)
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

// GetExpiredFiles lists file records whose retention window ended before
// the cutoff.
func (c *Client) GetExpiredFiles(ctx context.Context, cutoff time.Time) ([]models.GeneratedFile, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, order_id, file_type, display_name, storage_path, size_bytes, created_at, expires_at
		FROM generated_files
		WHERE expires_at < $1
		ORDER BY expires_at ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired files: %w", err)
	}
	defer rows.Close()

	var files []models.GeneratedFile
	for rows.Next() {
		var file models.GeneratedFile
		err := rows.Scan(
			&file.ID, &file.OrderID, &file.FileType, &file.DisplayName,
			&file.StoragePath, &file.SizeBytes, &file.CreatedAt, &file.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired file: %w", err)
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

// DeleteGeneratedFile removes a single file record by id.
func (c *Client) DeleteGeneratedFile(ctx context.Context, fileID uuid.UUID) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM generated_files
		WHERE id = $1
	`, fileID)
	if err != nil {
		return fmt.Errorf("failed to delete generated file: %w", err)
	}
	return nil
}

// GetGeneratedFileForUser fetches a file record scoped to the owning user
// of its order. Returns (nil, nil) if absent or owned by someone else.
func (c *Client) GetGeneratedFileForUser(ctx context.Context, fileID, userID uuid.UUID) (*models.GeneratedFile, error) {
	var file models.GeneratedFile
	err := c.db.QueryRowContext(ctx, `
		SELECT f.id, f.order_id, f.file_type, f.display_name, f.storage_path, f.size_bytes, f.created_at, f.expires_at
		FROM generated_files f
		JOIN orders o ON o.id = f.order_id
		WHERE f.id = $1 AND o.user_id = $2
	`, fileID, userID).Scan(
		&file.ID, &file.OrderID, &file.FileType, &file.DisplayName,
		&file.StoragePath, &file.SizeBytes, &file.CreatedAt, &file.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generated file: %w", err)
	}

	return &file, nil
}
