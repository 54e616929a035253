package adapter

import "context"

// GatewayOrder is a payment order minted on the provider side.
type GatewayOrder struct {
	ID       string
	Amount   int64 // minor units (paise)
	Currency string
}

// GatewayPayment is a payment attempt the provider recorded against a
// gateway order. Status follows the provider vocabulary ("captured",
// "failed", "authorized", ...).
type GatewayPayment struct {
	ID      string
	OrderID string
	Status  string
}

const (
	GatewayPaymentCaptured = "captured"
	GatewayPaymentFailed   = "failed"
)

// PaymentGateway is the hex port for the payment provider.
type PaymentGateway interface {
	Name() string

	// CreateOrder mints a provider-side payment order for the given amount
	// in minor units. receipt is our order id, echoed back by the provider.
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*GatewayOrder, error)

	// ListOrderPayments fetches the payment attempts recorded against a
	// provider order. Used by the reconciler when a webhook was lost.
	ListOrderPayments(ctx context.Context, gatewayOrderID string) ([]GatewayPayment, error)
}

// SignatureScheme verifies the provider's HMAC signatures. Implementations
// must use constant-time comparison.
type SignatureScheme interface {
	// VerifyCheckout checks the browser-submitted signature over
	// "<gatewayOrderID>|<gatewayPaymentID>".
	VerifyCheckout(gatewayOrderID, gatewayPaymentID, signature string) bool
	// VerifyWebhook checks the webhook signature over the raw request body.
	VerifyWebhook(body []byte, signature string) bool
}
