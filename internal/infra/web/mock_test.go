//go:build !integration

package web

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tiffin-subscription-service/internal/domain"
	"tiffin-subscription-service/internal/domain/model"
	"tiffin-subscription-service/internal/domain/ports/adapter"
	"tiffin-subscription-service/internal/domain/ports/repository"
)

// --- Mock Repositories (Ports) ---

// mockOrderRepo keeps orders in memory while preserving the conditional
// update semantics of the real repository, so race-sensitive handler
// paths behave the same as against Postgres.
type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.Order

	SaveError error
	FindError error
	ListError error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: map[string]*model.Order{}}
}

func (m *mockOrderRepo) put(o *model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.OrderID] = &cp
}

func (m *mockOrderRepo) get(orderID string) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[orderID]; ok {
		cp := *o
		return &cp
	}
	return nil
}

func (m *mockOrderRepo) Save(ctx context.Context, o *model.Order) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.OrderID]; ok {
		return domain.ErrConflict
	}
	cp := *o
	m.orders[o.OrderID] = &cp
	return nil
}

func (m *mockOrderRepo) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) List(ctx context.Context, f repository.OrderFilter) ([]*model.Order, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.orders {
		if f.Active != nil && o.Active != *f.Active {
			continue
		}
		if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockOrderRepo) Count(ctx context.Context, f repository.OrderFilter) (int, error) {
	out, err := m.List(ctx, f)
	return len(out), err
}

func (m *mockOrderRepo) CountRecentByPhone(ctx context.Context, phone string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.orders {
		if o.Customer.Phone == phone && o.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *mockOrderRepo) BindGatewayOrder(ctx context.Context, orderID, gatewayOrderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.GatewayOrderID != "" {
		return false, nil
	}
	o.GatewayOrderID = gatewayOrderID
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *mockOrderRepo) MarkPaidIfPending(ctx context.Context, orderID, gatewayOrderID, gatewayPaymentID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.PaymentStatus != model.PaymentStatusPending || o.GatewayOrderID != gatewayOrderID {
		return false, nil
	}
	o.PaymentStatus = model.PaymentStatusPaid
	o.Active = true
	o.GatewayPaymentID = gatewayPaymentID
	t := at
	o.VerifiedAt = &t
	o.PaidAt = &t
	o.UpdatedAt = at
	return true, nil
}

func (m *mockOrderRepo) MarkPaidByGatewayOrder(ctx context.Context, gatewayOrderID, gatewayPaymentID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.GatewayOrderID == gatewayOrderID && o.PaymentStatus != model.PaymentStatusPaid {
			o.PaymentStatus = model.PaymentStatusPaid
			o.Active = true
			o.GatewayPaymentID = gatewayPaymentID
			t := at
			o.PaidAt = &t
			o.UpdatedAt = at
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOrderRepo) MarkFailedIfPending(ctx context.Context, gatewayOrderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.GatewayOrderID == gatewayOrderID && o.PaymentStatus == model.PaymentStatusPending {
			o.PaymentStatus = model.PaymentStatusFailed
			o.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOrderRepo) ListPendingBoundOlderThan(ctx context.Context, olderThan time.Time, limit int) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.orders {
		if o.PaymentStatus == model.PaymentStatusPending && o.GatewayOrderID != "" && o.CreatedAt.Before(olderThan) {
			cp := *o
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return false, nil
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *mockOrderRepo) MarkMealDelivered(ctx context.Context, orderID string, meal model.MealType, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return false, nil
	}
	t := at
	switch meal {
	case model.MealBreakfast:
		o.Meals.Breakfast = model.MealStatus{Delivered: true, DeliveredAt: &t}
	case model.MealLunch:
		o.Meals.Lunch = model.MealStatus{Delivered: true, DeliveredAt: &t}
	case model.MealDinner:
		o.Meals.Dinner = model.MealStatus{Delivered: true, DeliveredAt: &t}
	}
	o.UpdatedAt = at
	return true, nil
}

func (m *mockOrderRepo) Deactivate(ctx context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return false, nil
	}
	o.Active = false
	o.Status = model.OrderStatusCancelled
	o.UpdatedAt = time.Now()
	return true, nil
}

// --- Mock payment gateway (adapter port) ---

type mockGateway struct {
	mu    sync.Mutex
	calls int

	CreateOrderError error
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*adapter.GatewayOrder, error) {
	if g.CreateOrderError != nil {
		return nil, g.CreateOrderError
	}
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.mu.Unlock()
	return &adapter.GatewayOrder{
		ID:       fmt.Sprintf("order_gw_%d", n),
		Amount:   amountMinor,
		Currency: currency,
	}, nil
}

func (g *mockGateway) ListOrderPayments(ctx context.Context, gatewayOrderID string) ([]adapter.GatewayPayment, error) {
	return nil, nil
}
