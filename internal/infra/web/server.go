package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tiffin-subscription-service/internal/infra/api"
	"tiffin-subscription-service/internal/infra/logging"
	"tiffin-subscription-service/internal/infra/metrics"
	"tiffin-subscription-service/internal/usecase"
)

// RateLimits carries the public and admin fixed-window budgets.
type RateLimits struct {
	PerMinute      int
	AdminPerMinute int
}

type Server struct {
	orderUC usecase.OrderUseCase
	payUC   usecase.PaymentUseCase
	auth    *AuthManager
	limiter api.Limiter
	limits  RateLimits
	// public gateway key id the checkout page embeds
	gatewayKey string
	log        *zerolog.Logger
}

func NewServer(
	orderUC usecase.OrderUseCase,
	payUC usecase.PaymentUseCase,
	auth *AuthManager,
	limiter api.Limiter,
	limits RateLimits,
	gatewayKey string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "Web").Logger()
	return &Server{
		orderUC:    orderUC,
		payUC:      payUC,
		auth:       auth,
		limiter:    limiter,
		limits:     limits,
		gatewayKey: gatewayKey,
		log:        &l,
	}
}

// Router assembles the full route tree with the shared middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	public := api.RateLimit(s.limiter, "public", s.limits.PerMinute, s.log)

	r.Route("/api", func(r chi.Router) {
		r.With(public).Post("/orders", s.handleOrderCreate)
		r.With(public).Get("/orders/{orderId}", s.handleOrderGet)

		r.Route("/payments", func(r chi.Router) {
			r.With(public).Post("/order", s.handlePaymentOrder)
			r.With(public).Post("/verify", s.handlePaymentVerify)
			// The gateway retries aggressively; webhooks bypass the
			// public budget and rely on the signature instead.
			r.Post("/webhook", s.handleWebhook)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(public).Post("/login", s.handleAdminLogin)
			r.Post("/logout", s.handleAdminLogout)

			r.Group(func(r chi.Router) {
				r.Get("/orders", s.adminGuard("list", s.handleAdminOrderList))
				r.Patch("/orders/{orderId}/status", s.adminGuard("status", s.handleAdminOrderStatus))
				r.Patch("/orders/{orderId}/meal", s.adminGuard("meal", s.handleAdminMarkMeal))
				r.Post("/orders/{orderId}/deactivate", s.adminGuard("deactivate", s.handleAdminDeactivate))
			})
		})
	})

	return api.Chain(r,
		api.TraceID(s.log),
		api.Recover(s.log),
		api.RequestLog(s.log),
		api.Timeout(30*time.Second),
	)
}

// adminGuard authenticates the session token and applies a per-admin,
// per-action window so a leaked token cannot hammer mutating endpoints.
func (s *Server) adminGuard(action string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		key := "rate_limit:admin:" + claims.Subject + ":" + action
		ok, lerr := s.limiter.Allow(r.Context(), key, s.limits.AdminPerMinute, time.Minute)
		if lerr != nil {
			logging.With(r.Context(), s.log).Warn().Err(lerr).Msg("admin rate limiter unavailable")
		} else if !ok {
			metrics.IncRateLimited("admin")
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		logging.With(r.Context(), s.log).Info().
			Str("admin", claims.Subject).
			Str("action", action).
			Str("path", r.URL.Path).
			Msg("admin action")
		next(w, r)
	}
}
