package models

// PaymentWebhookEvent is the payload the payment collaborator (M-Pesa or
// PayPal integration) posts once a payment attempt settles. The caller is
// expected to retry delivery; the handler is idempotent.
type PaymentWebhookEvent struct {
	OrderID       string `json:"order_id" binding:"required"`
	Result        string `json:"result" binding:"required"` // "success" or "failed"
	Provider      string `json:"provider"`
	Receipt       string `json:"receipt,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

const (
	PaymentResultSuccess = "success"
	PaymentResultFailed  = "failed"
)
