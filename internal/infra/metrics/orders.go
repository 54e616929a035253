package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersCreatedTotal,
		ordersRejectedTotal,
		mealsDeliveredTotal,
	)
}

var (
	ordersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created, by package type.",
		},
		[]string{"package"},
	)

	ordersRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_rejected_total",
			Help: "Order creation rejections, by reason (validation/spam/rate_limited).",
		},
		[]string{"reason"},
	)

	mealsDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meals_delivered_total",
			Help: "Meals marked delivered by the admin dashboard.",
		},
		[]string{"meal"},
	)
)

func IncOrderCreated(pkg string)   { ordersCreatedTotal.WithLabelValues(norm(pkg)).Inc() }
func IncOrderRejected(why string)  { ordersRejectedTotal.WithLabelValues(norm(why)).Inc() }
func IncMealDelivered(meal string) { mealsDeliveredTotal.WithLabelValues(norm(meal)).Inc() }
