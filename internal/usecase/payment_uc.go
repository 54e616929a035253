// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"tiffin-subscription-service/internal/domain"
	"tiffin-subscription-service/internal/domain/model"
	"tiffin-subscription-service/internal/domain/ports/adapter"
	"tiffin-subscription-service/internal/domain/ports/repository"
	"tiffin-subscription-service/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

const currencyINR = "INR"

// CheckoutIntent is what the checkout page needs to open the gateway UI.
type CheckoutIntent struct {
	GatewayOrderID string
	Amount         int64 // minor units (paise)
	Currency       string
}

// VerifyRequest is the browser-submitted payload after the gateway
// redirects back.
type VerifyRequest struct {
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	ClientIP         string
}

type VerifyResult struct {
	AlreadyPaid bool
}

// WebhookEvent mirrors the gateway's push payload.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

const (
	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
)

type PaymentUseCase interface {
	// EnsureGatewayOrder creates or reuses the gateway-side payment order
	// bound to an internal order. At most one gateway order is ever minted
	// per internal order.
	EnsureGatewayOrder(ctx context.Context, orderID string) (*CheckoutIntent, error)
	// Verify settles the client-driven verification path.
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
	// HandleWebhook settles the gateway-driven path from the raw webhook
	// body and signature header. Returns ErrInvalidSignature on a bad
	// signature; anything else recognized is applied or silently ignored.
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) error
}

type paymentUC struct {
	orders  repository.OrderRepository
	gateway adapter.PaymentGateway
	sig     adapter.SignatureScheme

	maxOrderAge time.Duration
	now         func() time.Time
	log         *zerolog.Logger
}

func NewPaymentUseCase(
	orders repository.OrderRepository,
	gateway adapter.PaymentGateway,
	sig adapter.SignatureScheme,
	maxOrderAge time.Duration,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		orders:      orders,
		gateway:     gateway,
		sig:         sig,
		maxOrderAge: maxOrderAge,
		now:         time.Now,
		log:         &l,
	}
}

func (u *paymentUC) EnsureGatewayOrder(ctx context.Context, orderID string) (*CheckoutIntent, error) {
	o, err := u.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == model.PaymentStatusPaid {
		return nil, domain.ErrAlreadyPaid
	}
	if o.TotalAmount <= 0 {
		return nil, domain.NewValidationError("amount", "order amount must be positive")
	}

	// Idempotency: a bound gateway order is returned unchanged, without
	// touching the gateway again.
	if o.GatewayOrderID != "" {
		return &CheckoutIntent{
			GatewayOrderID: o.GatewayOrderID,
			Amount:         o.TotalAmount * 100,
			Currency:       currencyINR,
		}, nil
	}

	gw, err := u.gateway.CreateOrder(ctx, o.TotalAmount*100, currencyINR, o.OrderID, map[string]string{
		"orderId": o.OrderID,
		"package": string(o.Package),
	})
	if err != nil {
		u.log.Error().Err(err).Str("order_id", orderID).Msg("gateway order creation failed")
		return nil, domain.ErrGatewayFailure
	}

	bound, err := u.orders.BindGatewayOrder(ctx, o.OrderID, gw.ID)
	if err != nil {
		return nil, err
	}
	if !bound {
		// A concurrent request bound a reference first; theirs wins.
		o, err = u.orders.FindByOrderID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		u.log.Warn().Str("order_id", orderID).Str("kept", o.GatewayOrderID).Str("orphaned", gw.ID).
			Msg("lost gateway-order bind race; returning stored reference")
		return &CheckoutIntent{
			GatewayOrderID: o.GatewayOrderID,
			Amount:         o.TotalAmount * 100,
			Currency:       currencyINR,
		}, nil
	}

	u.log.Info().Str("order_id", orderID).Str("gateway_order_id", gw.ID).Int64("amount", gw.Amount).
		Msg("gateway order created")
	return &CheckoutIntent{GatewayOrderID: gw.ID, Amount: gw.Amount, Currency: gw.Currency}, nil
}

func (u *paymentUC) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	switch {
	case req.OrderID == "":
		return nil, domain.NewValidationError("orderId", "missing payment details")
	case req.GatewayOrderID == "":
		return nil, domain.NewValidationError("gatewayOrderId", "missing payment details")
	case req.GatewayPaymentID == "":
		return nil, domain.NewValidationError("gatewayPaymentId", "missing payment details")
	case req.Signature == "":
		return nil, domain.NewValidationError("signature", "missing payment details")
	}

	o, err := u.orders.FindByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	// Repeated verification of a settled order is a success, not an error.
	if o.PaymentStatus == model.PaymentStatusPaid {
		return &VerifyResult{AlreadyPaid: true}, nil
	}

	// Stale pending orders are never resurrected, signature or not.
	if u.now().Sub(o.CreatedAt) > u.maxOrderAge {
		return nil, domain.ErrOrderExpired
	}

	if !u.sig.VerifyCheckout(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		u.log.Error().
			Str("order_id", req.OrderID).
			Str("gateway_order_id", req.GatewayOrderID).
			Str("gateway_payment_id", req.GatewayPaymentID).
			Str("client_ip", req.ClientIP).
			Msg("payment signature mismatch")
		return nil, domain.ErrInvalidSignature
	}

	// Conditional atomic transition: only applies while the order is still
	// pending and bound to the supplied gateway reference. Zero rows means
	// the webhook (or another verify call) won the race.
	ok, err := u.orders.MarkPaidIfPending(ctx, req.OrderID, req.GatewayOrderID, req.GatewayPaymentID, u.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrConflict
	}

	metrics.IncPayment("paid", "verify")
	metrics.AddPaymentRevenue(currencyINR, o.TotalAmount)
	u.log.Info().Str("order_id", req.OrderID).Str("gateway_payment_id", req.GatewayPaymentID).
		Msg("payment verified")
	return &VerifyResult{}, nil
}

func (u *paymentUC) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if !u.sig.VerifyWebhook(rawBody, signature) {
		metrics.IncWebhookEvent("unknown", "bad_signature")
		u.log.Error().Msg("webhook signature mismatch")
		return domain.ErrInvalidSignature
	}

	var ev WebhookEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		// Signed but unparseable; acknowledge so the gateway stops retrying.
		metrics.IncWebhookEvent("unknown", "ignored")
		u.log.Warn().Err(err).Msg("webhook body not parseable")
		return nil
	}

	entity := ev.Payload.Payment.Entity
	switch ev.Event {
	case eventPaymentCaptured:
		applied, err := u.orders.MarkPaidByGatewayOrder(ctx, entity.OrderID, entity.ID, u.now())
		if err != nil {
			return err
		}
		if applied {
			metrics.IncPayment("paid", "webhook")
			metrics.IncWebhookEvent(ev.Event, "applied")
			u.log.Info().Str("gateway_order_id", entity.OrderID).Str("gateway_payment_id", entity.ID).
				Msg("order paid via webhook")
		} else {
			// Already settled by the verification path, or unknown order.
			metrics.IncWebhookEvent(ev.Event, "noop")
		}
	case eventPaymentFailed:
		applied, err := u.orders.MarkFailedIfPending(ctx, entity.OrderID)
		if err != nil {
			return err
		}
		if applied {
			metrics.IncPayment("failed", "webhook")
			metrics.IncWebhookEvent(ev.Event, "applied")
			u.log.Info().Str("gateway_order_id", entity.OrderID).Msg("order failed via webhook")
		} else {
			metrics.IncWebhookEvent(ev.Event, "noop")
		}
	default:
		metrics.IncWebhookEvent(ev.Event, "ignored")
	}
	return nil
}
