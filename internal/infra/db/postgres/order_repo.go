package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"tiffin-subscription-service/internal/domain"
	"tiffin-subscription-service/internal/domain/model"
	"tiffin-subscription-service/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `
order_id, package, total_amount,
customer_name, customer_phone, customer_address, customer_pincode,
breakfast_delivered, breakfast_delivered_at,
lunch_delivered, lunch_delivered_at,
dinner_delivered, dinner_delivered_at,
payment_status, active, status,
gateway_order_id, gateway_payment_id,
verified_at, paid_at, start_date, end_date,
created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var gwOrder, gwPayment *string
	err := row.Scan(
		&o.OrderID, &o.Package, &o.TotalAmount,
		&o.Customer.Name, &o.Customer.Phone, &o.Customer.Address, &o.Customer.Pincode,
		&o.Meals.Breakfast.Delivered, &o.Meals.Breakfast.DeliveredAt,
		&o.Meals.Lunch.Delivered, &o.Meals.Lunch.DeliveredAt,
		&o.Meals.Dinner.Delivered, &o.Meals.Dinner.DeliveredAt,
		&o.PaymentStatus, &o.Active, &o.Status,
		&gwOrder, &gwPayment,
		&o.VerifiedAt, &o.PaidAt, &o.StartDate, &o.EndDate,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if gwOrder != nil {
		o.GatewayOrderID = *gwOrder
	}
	if gwPayment != nil {
		o.GatewayPaymentID = *gwPayment
	}
	return o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *orderRepo) Save(ctx context.Context, o *model.Order) error {
	const q = `
INSERT INTO orders (
  order_id, package, total_amount,
  customer_name, customer_phone, customer_address, customer_pincode,
  breakfast_delivered, lunch_delivered, dinner_delivered,
  payment_status, active, status,
  gateway_order_id, gateway_payment_id,
  created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17);`

	_, err := r.pool.Exec(ctx, q,
		o.OrderID, o.Package, o.TotalAmount,
		o.Customer.Name, o.Customer.Phone, o.Customer.Address, o.Customer.Pincode,
		o.Meals.Breakfast.Delivered, o.Meals.Lunch.Delivered, o.Meals.Dinner.Delivered,
		o.PaymentStatus, o.Active, o.Status,
		nullable(o.GatewayOrderID), nullable(o.GatewayPaymentID),
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return domain.ErrConflict
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *orderRepo) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE order_id=$1;`
	return scanOrder(r.pool.QueryRow(ctx, q, orderID))
}

func (r *orderRepo) List(ctx context.Context, f repository.OrderFilter) ([]*model.Order, error) {
	where, args := filterClause(f)
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT %d OFFSET %d;`,
		orderColumns, where, limit, f.Offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *orderRepo) Count(ctx context.Context, f repository.OrderFilter) (int, error) {
	where, args := filterClause(f)
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders `+where+`;`, args...).Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func filterClause(f repository.OrderFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.Active != nil {
		args = append(args, *f.Active)
		conds = append(conds, fmt.Sprintf("active=$%d", len(args)))
	}
	if f.PaymentStatus != "" {
		args = append(args, f.PaymentStatus)
		conds = append(conds, fmt.Sprintf("payment_status=$%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *orderRepo) CountRecentByPhone(ctx context.Context, phone string, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM orders WHERE customer_phone=$1 AND created_at >= $2;`
	var n int
	if err := r.pool.QueryRow(ctx, q, phone, since).Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

// BindGatewayOrder sets the gateway reference only when none is bound yet,
// so repeated checkout-page loads never mint a second payment intent.
func (r *orderRepo) BindGatewayOrder(ctx context.Context, orderID, gatewayOrderID string) (bool, error) {
	const q = `
UPDATE orders
   SET gateway_order_id=$2, updated_at=NOW()
 WHERE order_id=$1
   AND gateway_order_id IS NULL;`
	tag, err := r.pool.Exec(ctx, q, orderID, gatewayOrderID)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() >= 1, nil
}

// MarkPaidIfPending applies the verification-path transition only while the
// stored state still matches {pending, bound gateway order}. Whichever of
// verify/webhook lands first wins; the other sees zero rows.
func (r *orderRepo) MarkPaidIfPending(ctx context.Context, orderID, gatewayOrderID, gatewayPaymentID string, at time.Time) (bool, error) {
	const q = `
UPDATE orders
   SET payment_status='paid',
       active=TRUE,
       gateway_payment_id=$3,
       verified_at=$4,
       paid_at=$4,
       updated_at=NOW()
 WHERE order_id=$1
   AND payment_status='pending'
   AND gateway_order_id=$2;`
	tag, err := r.pool.Exec(ctx, q, orderID, gatewayOrderID, gatewayPaymentID, at)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() >= 1, nil
}

func (r *orderRepo) MarkPaidByGatewayOrder(ctx context.Context, gatewayOrderID, gatewayPaymentID string, at time.Time) (bool, error) {
	const q = `
UPDATE orders
   SET payment_status='paid',
       active=TRUE,
       gateway_payment_id=$2,
       paid_at=$3,
       updated_at=NOW()
 WHERE gateway_order_id=$1
   AND payment_status <> 'paid';`
	tag, err := r.pool.Exec(ctx, q, gatewayOrderID, gatewayPaymentID, at)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() >= 1, nil
}

// MarkFailedIfPending guards against out-of-order failed-after-captured
// events: a paid order is never demoted.
func (r *orderRepo) MarkFailedIfPending(ctx context.Context, gatewayOrderID string) (bool, error) {
	const q = `
UPDATE orders
   SET payment_status='failed', updated_at=NOW()
 WHERE gateway_order_id=$1
   AND payment_status='pending';`
	tag, err := r.pool.Exec(ctx, q, gatewayOrderID)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() >= 1, nil
}

func (r *orderRepo) ListPendingBoundOlderThan(ctx context.Context, olderThan time.Time, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + orderColumns + `
  FROM orders
 WHERE payment_status='pending'
   AND gateway_order_id IS NOT NULL
   AND created_at < $1
 ORDER BY created_at ASC
 LIMIT $2;`
	rows, err := r.pool.Query(ctx, q, olderThan, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (bool, error) {
	const q = `UPDATE orders SET status=$2, updated_at=NOW() WHERE order_id=$1;`
	tag, err := r.pool.Exec(ctx, q, orderID, status)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() >= 1, nil
}

func (r *orderRepo) MarkMealDelivered(ctx context.Context, orderID string, meal model.MealType, at time.Time) (bool, error) {
	var col string
	switch meal {
	case model.MealBreakfast:
		col = "breakfast"
	case model.MealLunch:
		col = "lunch"
	case model.MealDinner:
		col = "dinner"
	default:
		return false, domain.ErrInvalidArgument
	}
	q := fmt.Sprintf(`UPDATE orders SET %s_delivered=TRUE, %s_delivered_at=$2, updated_at=NOW() WHERE order_id=$1;`, col, col)
	tag, err := r.pool.Exec(ctx, q, orderID, at)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() >= 1, nil
}

func (r *orderRepo) Deactivate(ctx context.Context, orderID string) (bool, error) {
	const q = `UPDATE orders SET active=FALSE, status='cancelled', updated_at=NOW() WHERE order_id=$1;`
	tag, err := r.pool.Exec(ctx, q, orderID)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() >= 1, nil
}
