package models

// NotificationResult is the result code the processor reports in a webhook.
type NotificationResult string

const (
	NotificationResultSuccess NotificationResult = "SUCCESS"
	NotificationResultFailure NotificationResult = "FAILURE"
)

// Notification is a decoded webhook payload. It is never persisted.
type Notification struct {
	Result           NotificationResult
	OrderID          int64
	TransactionID    string
	ErrorExplanation string
}

// RedirectPage is what the shopper's browser needs to load the hosted
// payment page for an order.
type RedirectPage struct {
	SessionID         string `json:"sessionId"`
	OrderID           int64  `json:"orderId"`
	ThankYouURL       string `json:"thankYouUrl"`
	CheckoutScriptURL string `json:"checkoutScriptUrl"`
}
