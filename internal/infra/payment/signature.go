package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"tiffin-subscription-service/internal/domain/ports/adapter"
)

// HMACSignatureScheme verifies the gateway's HMAC-SHA256 signatures with
// constant-time comparison. The checkout signature is computed with the API
// secret over "<orderRef>|<paymentRef>"; the webhook signature with a
// separate webhook secret over the raw request body.
type HMACSignatureScheme struct {
	apiSecret     []byte
	webhookSecret []byte
}

var _ adapter.SignatureScheme = (*HMACSignatureScheme)(nil)

func NewHMACSignatureScheme(apiSecret, webhookSecret string) *HMACSignatureScheme {
	return &HMACSignatureScheme{
		apiSecret:     []byte(apiSecret),
		webhookSecret: []byte(webhookSecret),
	}
}

func (s *HMACSignatureScheme) VerifyCheckout(gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := hexHMAC(s.apiSecret, []byte(gatewayOrderID+"|"+gatewayPaymentID))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *HMACSignatureScheme) VerifyWebhook(body []byte, signature string) bool {
	expected := hexHMAC(s.webhookSecret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignCheckout produces the checkout signature; exported for tests and
// sandbox tooling.
func SignCheckout(apiSecret, gatewayOrderID, gatewayPaymentID string) string {
	return hexHMAC([]byte(apiSecret), []byte(gatewayOrderID+"|"+gatewayPaymentID))
}

// SignWebhook produces the webhook body signature.
func SignWebhook(webhookSecret string, body []byte) string {
	return hexHMAC([]byte(webhookSecret), body)
}

func hexHMAC(secret, data []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
