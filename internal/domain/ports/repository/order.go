package repository

import (
	"context"
	"time"

	"tiffin-subscription-service/internal/domain/model"
)

// OrderFilter narrows admin listing queries.
type OrderFilter struct {
	Active        *bool
	PaymentStatus model.PaymentStatus
	Limit         int
	Offset        int
}

// OrderRepository is the persistence port for orders. The conditional
// Mark* methods are the sole synchronization primitive for the
// verify-vs-webhook race: each applies a single-row update guarded by the
// current payment status and reports whether a row matched.
type OrderRepository interface {
	Save(ctx context.Context, o *model.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	List(ctx context.Context, f OrderFilter) ([]*model.Order, error)
	Count(ctx context.Context, f OrderFilter) (int, error)

	// CountRecentByPhone supports the spam-order guard.
	CountRecentByPhone(ctx context.Context, phone string, since time.Time) (int, error)

	// BindGatewayOrder sets the gateway order reference only if none is
	// bound yet. Returns false when another request already bound one.
	BindGatewayOrder(ctx context.Context, orderID, gatewayOrderID string) (bool, error)

	// MarkPaidIfPending transitions pending->paid for the verification
	// path, guarded on the bound gateway order reference.
	MarkPaidIfPending(ctx context.Context, orderID, gatewayOrderID, gatewayPaymentID string, at time.Time) (bool, error)

	// MarkPaidByGatewayOrder transitions to paid for the webhook path,
	// keyed on the gateway order reference; a no-op if already paid.
	MarkPaidByGatewayOrder(ctx context.Context, gatewayOrderID, gatewayPaymentID string, at time.Time) (bool, error)

	// MarkFailedIfPending records a gateway failure event; never moves an
	// order away from paid.
	MarkFailedIfPending(ctx context.Context, gatewayOrderID string) (bool, error)

	// ListPendingBoundOlderThan feeds the reconciler: pending orders with
	// a bound gateway reference created before the cutoff.
	ListPendingBoundOlderThan(ctx context.Context, olderThan time.Time, limit int) ([]*model.Order, error)

	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (bool, error)
	MarkMealDelivered(ctx context.Context, orderID string, meal model.MealType, at time.Time) (bool, error)
	Deactivate(ctx context.Context, orderID string) (bool, error)
}
