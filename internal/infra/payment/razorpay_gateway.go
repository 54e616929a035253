package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tiffin-subscription-service/internal/domain/ports/adapter"
)

// RazorpayGateway implements the PaymentGateway port using direct HTTP
// calls against the Razorpay Orders API.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

var _ adapter.PaymentGateway = (*RazorpayGateway)(nil)

func NewRazorpayGateway(keyID, keySecret, baseURL string) *RazorpayGateway {
	if baseURL == "" {
		baseURL = "https://api.razorpay.com"
	}
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type razorpayPaymentList struct {
	Count int `json:"count"`
	Items []struct {
		ID      string `json:"id"`
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	} `json:"items"`
}

// CreateOrder mints a payment order on the gateway. amountMinor is paise.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*adapter.GatewayOrder, error) {
	requestData := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		requestData["notes"] = notes
	}

	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request data: %w", err)
	}

	url := g.baseURL + "/v1/orders"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp razorpayErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Description != "" {
			return nil, fmt.Errorf("razorpay error: %s (%s)", errResp.Error.Description, errResp.Error.Code)
		}
		return nil, fmt.Errorf("razorpay error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var order razorpayOrderResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}
	if order.ID == "" {
		return nil, fmt.Errorf("razorpay returned empty order id, body: %s", string(body))
	}

	return &adapter.GatewayOrder{ID: order.ID, Amount: order.Amount, Currency: order.Currency}, nil
}

// ListOrderPayments fetches the payments recorded against a gateway order.
func (g *RazorpayGateway) ListOrderPayments(ctx context.Context, gatewayOrderID string) ([]adapter.GatewayPayment, error) {
	url := fmt.Sprintf("%s/v1/orders/%s/payments", g.baseURL, gatewayOrderID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("razorpay error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var list razorpayPaymentList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}

	out := make([]adapter.GatewayPayment, 0, len(list.Items))
	for _, it := range list.Items {
		out = append(out, adapter.GatewayPayment{ID: it.ID, OrderID: it.OrderID, Status: it.Status})
	}
	return out, nil
}
