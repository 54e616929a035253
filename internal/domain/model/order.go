// File: internal/domain/model/order.go
package model

import (
	"regexp"
	"strings"
	"time"
)

type PackageType string

const (
	PackageDaily   PackageType = "daily"
	PackageWeekly  PackageType = "weekly"
	PackageMonthly PackageType = "monthly"
)

// packagePrices is the authoritative price table in whole rupees.
// Amounts are snapshotted onto the order at creation time and never
// recomputed from the enum afterwards.
var packagePrices = map[PackageType]int64{
	PackageDaily:   70,
	PackageWeekly:  455,
	PackageMonthly: 1950,
}

// planAliases maps storefront plan keys to package types. The landing
// page sells the daily package as a "trial".
var planAliases = map[string]PackageType{
	"trial":   PackageDaily,
	"daily":   PackageDaily,
	"weekly":  PackageWeekly,
	"monthly": PackageMonthly,
}

// ResolvePackage maps a client-supplied plan key to a known package type.
func ResolvePackage(planKey string) (PackageType, bool) {
	pkg, ok := planAliases[strings.ToLower(strings.TrimSpace(planKey))]
	return pkg, ok
}

// Price returns the rupee price for the package, or 0 for an unknown one.
func (p PackageType) Price() int64 { return packagePrices[p] }

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending" // awaiting verification or webhook
	PaymentStatusPaid    PaymentStatus = "paid"    // terminal
	PaymentStatusFailed  PaymentStatus = "failed"  // terminal
)

// OrderStatus tracks the delivery side of an order, independent of payment.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPlaced, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusExpired:
		return true
	}
	return false
}

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

func ValidMealType(s string) bool {
	switch MealType(s) {
	case MealBreakfast, MealLunch, MealDinner:
		return true
	}
	return false
}

type MealStatus struct {
	Delivered   bool       `json:"delivered"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
}

type Meals struct {
	Breakfast MealStatus `json:"breakfast"`
	Lunch     MealStatus `json:"lunch"`
	Dinner    MealStatus `json:"dinner"`
}

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Pincode string `json:"pincode"`
}

// Order is the persisted source of truth for payment and delivery state.
type Order struct {
	OrderID     string        `json:"orderId"`
	Package     PackageType   `json:"package"`
	TotalAmount int64         `json:"totalAmount"` // whole rupees, immutable once set
	Customer    Customer      `json:"customer"`
	Meals       Meals         `json:"meals"`

	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Active        bool          `json:"active"`
	Status        OrderStatus   `json:"status"`

	// Gateway correlation. GatewayOrderID is set at most once by the
	// payment-order bridge; GatewayPaymentID exactly once, alongside the
	// pending->paid transition.
	GatewayOrderID   string `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string `json:"gatewayPaymentId,omitempty"`

	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	PaidAt     *time.Time `json:"paidAt,omitempty"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var (
	// Indian mobile: 10 digits starting 6-9.
	phoneRe = regexp.MustCompile(`^[6-9]\d{9}$`)
	// Indian pincode: 6 digits.
	pincodeRe = regexp.MustCompile(`^\d{6}$`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

func ValidPhone(phone string) bool {
	return phoneRe.MatchString(spaceRe.ReplaceAllString(phone, ""))
}

func ValidPincode(pincode string) bool {
	return pincodeRe.MatchString(spaceRe.ReplaceAllString(pincode, ""))
}
