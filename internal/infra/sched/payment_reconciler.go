package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tiffin-subscription-service/internal/domain/ports/adapter"
	"tiffin-subscription-service/internal/domain/ports/repository"
	"tiffin-subscription-service/internal/infra/metrics"
)

// PaymentReconciler periodically scans stale pending orders that already
// hold a gateway order reference and asks the gateway what actually
// happened. This covers the window where the customer paid but neither
// the browser verify call nor the webhook ever reached us.
type PaymentReconciler struct {
	orders     repository.OrderRepository
	gateway    adapter.PaymentGateway
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending order must be to re-check
	batchLimit int
	log        *zerolog.Logger
}

func NewPaymentReconciler(
	orders repository.OrderRepository,
	gateway adapter.PaymentGateway,
	interval, staleAfter time.Duration,
	batchLimit int,
	logger *zerolog.Logger,
) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if batchLimit <= 0 {
		batchLimit = 200
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		orders:     orders,
		gateway:    gateway,
		interval:   interval,
		staleAfter: staleAfter,
		batchLimit: batchLimit,
		log:        &l,
	}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.orders.ListPendingBoundOlderThan(ctx, cutoff, w.batchLimit)
	if err != nil {
		w.log.Error().Err(err).Msg("list stale pending orders failed")
		return
	}

	for _, o := range stale {
		w.reconcile(ctx, o.OrderID, o.GatewayOrderID)
	}
}

// reconcile settles one order from the gateway's view of its payments.
// The conditional repository updates make this safe to run concurrently
// with a late webhook or verify call.
func (w *PaymentReconciler) reconcile(ctx context.Context, orderID, gatewayOrderID string) {
	payments, err := w.gateway.ListOrderPayments(ctx, gatewayOrderID)
	if err != nil {
		w.log.Warn().Err(err).Str("order_id", orderID).Msg("gateway payment lookup failed")
		return
	}
	if len(payments) == 0 {
		// Customer never completed checkout; leave the order alone.
		return
	}

	allFailed := true
	for _, p := range payments {
		if p.Status == adapter.GatewayPaymentCaptured {
			applied, err := w.orders.MarkPaidByGatewayOrder(ctx, gatewayOrderID, p.ID, time.Now())
			if err != nil {
				w.log.Error().Err(err).Str("order_id", orderID).Msg("reconcile mark paid failed")
				return
			}
			if applied {
				metrics.IncPayment("paid", "reconciler")
				w.log.Info().Str("order_id", orderID).Str("gateway_payment_id", p.ID).
					Msg("order reconciled as paid")
			}
			return
		}
		if p.Status != adapter.GatewayPaymentFailed {
			allFailed = false
		}
	}

	// Only settle as failed once every attempt is terminally failed;
	// an authorized-but-uncaptured payment still has a chance.
	if allFailed {
		applied, err := w.orders.MarkFailedIfPending(ctx, gatewayOrderID)
		if err != nil {
			w.log.Error().Err(err).Str("order_id", orderID).Msg("reconcile mark failed failed")
			return
		}
		if applied {
			metrics.IncPayment("failed", "reconciler")
			w.log.Info().Str("order_id", orderID).Msg("order reconciled as failed")
		}
	}
}
