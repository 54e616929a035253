//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tiffin-subscription-service/internal/domain"
	"tiffin-subscription-service/internal/domain/model"
	"tiffin-subscription-service/internal/domain/ports/adapter"
	"tiffin-subscription-service/internal/domain/ports/repository"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

// =============================
// Mock OrderRepository
// =============================

// MockOrderRepo is an in-memory repository whose conditional Mark* methods
// mirror the atomic single-row update semantics of the real store: each
// checks the current state and applies the transition under one lock.
type MockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.Order

	SaveFunc               func(ctx context.Context, o *model.Order) error
	FindByOrderIDFunc      func(ctx context.Context, orderID string) (*model.Order, error)
	CountRecentByPhoneFunc func(ctx context.Context, phone string, since time.Time) (int, error)
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{orders: make(map[string]*model.Order)}
}

func (m *MockOrderRepo) Save(ctx context.Context, o *model.Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.OrderID] = &cp
	return nil
}

func (m *MockOrderRepo) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	if m.FindByOrderIDFunc != nil {
		return m.FindByOrderIDFunc(ctx, orderID)
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

func (m *MockOrderRepo) List(ctx context.Context, f repository.OrderFilter) ([]*model.Order, error) {
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

func (m *MockOrderRepo) Count(ctx context.Context, f repository.OrderFilter) (int, error) {
	out, _ := m.List(ctx, f)
	return len(out), nil
}

func (m *MockOrderRepo) CountRecentByPhone(ctx context.Context, phone string, since time.Time) (int, error) {
	if m.CountRecentByPhoneFunc != nil {
		return m.CountRecentByPhoneFunc(ctx, phone, since)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.orders {
		if o.Customer.Phone == phone && !o.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *MockOrderRepo) BindGatewayOrder(ctx context.Context, orderID, gatewayOrderID string) (bool, error) {
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

func (m *MockOrderRepo) MarkPaidIfPending(ctx context.Context, orderID, gatewayOrderID, gatewayPaymentID string, at time.Time) (bool, error) {
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

func (m *MockOrderRepo) MarkPaidByGatewayOrder(ctx context.Context, gatewayOrderID, gatewayPaymentID string, at time.Time) (bool, error) {
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

func (m *MockOrderRepo) MarkFailedIfPending(ctx context.Context, gatewayOrderID string) (bool, error) {
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

func (m *MockOrderRepo) ListPendingBoundOlderThan(ctx context.Context, olderThan time.Time, limit int) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.orders {
		if o.PaymentStatus == model.PaymentStatusPending && o.GatewayOrderID != "" && o.CreatedAt.Before(olderThan) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockOrderRepo) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return false, nil
	}
	o.Status = status
	return true, nil
}

func (m *MockOrderRepo) MarkMealDelivered(ctx context.Context, orderID string, meal model.MealType, at time.Time) (bool, error) {
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
	return true, nil
}

func (m *MockOrderRepo) Deactivate(ctx context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return false, nil
	}
	o.Active = false
	o.Status = model.OrderStatusCancelled
	return true, nil
}

// put inserts an order directly, bypassing Save overrides.
func (m *MockOrderRepo) put(o *model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.OrderID] = &cp
}

// =============================
// Mock PaymentGateway
// =============================

type MockPaymentGateway struct {
	mu               sync.Mutex
	CreateOrderCalls int

	CreateOrderFunc       func(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*adapter.GatewayOrder, error)
	ListOrderPaymentsFunc func(ctx context.Context, gatewayOrderID string) ([]adapter.GatewayPayment, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*adapter.GatewayOrder, error) {
	m.mu.Lock()
	m.CreateOrderCalls++
	n := m.CreateOrderCalls
	m.mu.Unlock()
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, amountMinor, currency, receipt, notes)
	}
	return &adapter.GatewayOrder{
		ID:       fmt.Sprintf("order_mock_%d", n),
		Amount:   amountMinor,
		Currency: currency,
	}, nil
}

func (m *MockPaymentGateway) ListOrderPayments(ctx context.Context, gatewayOrderID string) ([]adapter.GatewayPayment, error) {
	if m.ListOrderPaymentsFunc != nil {
		return m.ListOrderPaymentsFunc(ctx, gatewayOrderID)
	}
	return nil, nil
}

// =============================
// Mock SignatureScheme
// =============================

// MockSignature accepts the fixed tokens below unless overridden.
const (
	goodCheckoutSig = "sig-ok"
	goodWebhookSig  = "hook-ok"
)

type MockSignature struct {
	CheckoutFunc func(gatewayOrderID, gatewayPaymentID, signature string) bool
	WebhookFunc  func(body []byte, signature string) bool
}

var _ adapter.SignatureScheme = (*MockSignature)(nil)

func (m *MockSignature) VerifyCheckout(gatewayOrderID, gatewayPaymentID, signature string) bool {
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(gatewayOrderID, gatewayPaymentID, signature)
	}
	return signature == goodCheckoutSig
}

func (m *MockSignature) VerifyWebhook(body []byte, signature string) bool {
	if m.WebhookFunc != nil {
		return m.WebhookFunc(body, signature)
	}
	return signature == goodWebhookSig
}
