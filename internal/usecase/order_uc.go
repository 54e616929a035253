// File: internal/usecase/order_uc.go
package usecase

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"tiffin-subscription-service/internal/domain"
	"tiffin-subscription-service/internal/domain/model"
	"tiffin-subscription-service/internal/domain/ports/repository"
	"tiffin-subscription-service/internal/infra/metrics"
)

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

// CustomerInput is the untrusted customer payload from the checkout form.
type CustomerInput struct {
	FullName string
	Phone    string
	Address  string
	Pincode  string
}

type OrderUseCase interface {
	// Create validates input, snapshots the price and persists a pending
	// order. No gateway call happens here.
	Create(ctx context.Context, planKey string, in CustomerInput) (*model.Order, error)
	Get(ctx context.Context, orderID string) (*model.Order, error)
	List(ctx context.Context, f repository.OrderFilter) ([]*model.Order, int, error)
	// Deactivate sets active=false and status=cancelled, independent of
	// payment state.
	Deactivate(ctx context.Context, orderID string) error
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	// MarkMeal refuses delivery marking while the order is unpaid.
	MarkMeal(ctx context.Context, orderID string, meal model.MealType) error
}

type orderUC struct {
	orders repository.OrderRepository

	spamWindow time.Duration
	spamMax    int

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	log     *zerolog.Logger
}

func NewOrderUseCase(orders repository.OrderRepository, spamWindow time.Duration, spamMax int, logger *zerolog.Logger) *orderUC {
	l := logger.With().Str("component", "OrderUC").Logger()
	return &orderUC{
		orders:     orders,
		spamWindow: spamWindow,
		spamMax:    spamMax,
		entropy:    ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		log:        &l,
	}
}

// newOrderID mints a time-prefixed, monotonic order id ("ORD-<ULID>").
func (u *orderUC) newOrderID(now time.Time) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return "ORD-" + ulid.MustNew(ulid.Timestamp(now), u.entropy).String()
}

func (u *orderUC) Create(ctx context.Context, planKey string, in CustomerInput) (*model.Order, error) {
	pkg, ok := model.ResolvePackage(planKey)
	if !ok {
		metrics.IncOrderRejected("validation")
		return nil, domain.NewValidationError("package", "unknown package selected")
	}

	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.Pincode = strings.TrimSpace(in.Pincode)

	switch {
	case in.FullName == "":
		metrics.IncOrderRejected("validation")
		return nil, domain.NewValidationError("fullName", "customer name is required")
	case in.Phone == "":
		metrics.IncOrderRejected("validation")
		return nil, domain.NewValidationError("phone", "customer phone is required")
	case in.Address == "":
		metrics.IncOrderRejected("validation")
		return nil, domain.NewValidationError("address", "customer address is required")
	case in.Pincode == "":
		metrics.IncOrderRejected("validation")
		return nil, domain.NewValidationError("pincode", "customer pincode is required")
	}
	if !model.ValidPhone(in.Phone) {
		metrics.IncOrderRejected("validation")
		return nil, domain.NewValidationError("phone", "please enter a valid 10-digit Indian phone number")
	}
	if !model.ValidPincode(in.Pincode) {
		metrics.IncOrderRejected("validation")
		return nil, domain.NewValidationError("pincode", "please enter a valid 6-digit pincode")
	}

	// Spam guard: too many orders from one phone in a short window.
	recent, err := u.orders.CountRecentByPhone(ctx, in.Phone, time.Now().Add(-u.spamWindow))
	if err != nil {
		return nil, err
	}
	if recent >= u.spamMax {
		metrics.IncOrderRejected("spam")
		u.log.Warn().Str("phone", in.Phone).Int("recent_orders", recent).Msg("spam order guard tripped")
		return nil, domain.ErrRateLimited
	}

	now := time.Now()
	o := &model.Order{
		OrderID: u.newOrderID(now),
		Package: pkg,
		// Price comes from the server-side table only; a client-displayed
		// amount is never trusted.
		TotalAmount: pkg.Price(),
		Customer: model.Customer{
			Name:    in.FullName,
			Phone:   in.Phone,
			Address: in.Address,
			Pincode: in.Pincode,
		},
		PaymentStatus: model.PaymentStatusPending,
		Active:        false,
		Status:        model.OrderStatusPlaced,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := u.orders.Save(ctx, o); err != nil {
		return nil, err
	}

	metrics.IncOrderCreated(string(pkg))
	u.log.Info().Str("order_id", o.OrderID).Str("package", string(pkg)).Int64("amount", o.TotalAmount).Msg("order created")
	return o, nil
}

func (u *orderUC) Get(ctx context.Context, orderID string) (*model.Order, error) {
	return u.orders.FindByOrderID(ctx, orderID)
}

func (u *orderUC) List(ctx context.Context, f repository.OrderFilter) ([]*model.Order, int, error) {
	orders, err := u.orders.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := u.orders.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (u *orderUC) Deactivate(ctx context.Context, orderID string) error {
	ok, err := u.orders.Deactivate(ctx, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	u.log.Info().Str("order_id", orderID).Msg("order deactivated")
	return nil
}

func (u *orderUC) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	if !model.ValidOrderStatus(string(status)) {
		return domain.NewValidationError("status", "unknown order status")
	}
	ok, err := u.orders.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (u *orderUC) MarkMeal(ctx context.Context, orderID string, meal model.MealType) error {
	if !model.ValidMealType(string(meal)) {
		return domain.NewValidationError("meal", "unknown meal type")
	}
	o, err := u.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	// Unpaid orders never receive meals.
	if o.PaymentStatus != model.PaymentStatusPaid {
		return domain.ErrPaymentRequired
	}
	ok, err := u.orders.MarkMealDelivered(ctx, orderID, meal, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	metrics.IncMealDelivered(string(meal))
	return nil
}
