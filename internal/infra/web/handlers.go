package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tiffin-subscription-service/internal/domain"
	"tiffin-subscription-service/internal/domain/model"
	"tiffin-subscription-service/internal/domain/ports/repository"
	"tiffin-subscription-service/internal/infra/api"
	"tiffin-subscription-service/internal/infra/logging"
	"tiffin-subscription-service/internal/usecase"
)

const maxBodyBytes = 1 << 20 // webhooks and forms are small; cap reads

// ===== JSON envelope =====

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// writeDomainError maps domain errors onto HTTP statuses. Unrecognized
// errors become an opaque 500; internals never leak to the client.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "error": ve.Reason, "field": ve.Field,
		})
	case errors.Is(err, domain.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, "invalid payment signature")
	case errors.Is(err, domain.ErrOrderExpired):
		writeError(w, http.StatusBadRequest, "order has expired, please place a new order")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, domain.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, "order is already paid")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "order was already processed")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many orders, please try again later")
	case errors.Is(err, domain.ErrPaymentRequired):
		writeError(w, http.StatusForbidden, "payment not confirmed for this order")
	case errors.Is(err, domain.ErrGatewayFailure):
		writeError(w, http.StatusBadGateway, "payment gateway is unavailable, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// ===== Storefront: orders =====

type orderCreateRequest struct {
	Package  string `json:"package"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Pincode  string `json:"pincode"`
}

func (s *Server) handleOrderCreate(w http.ResponseWriter, r *http.Request) {
	var req orderCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := s.orderUC.Create(r.Context(), req.Package, usecase.CustomerInput{
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
		Pincode:  req.Pincode,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "order": o})
}

func (s *Server) handleOrderGet(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	o, err := s.orderUC.Get(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": o})
}

// ===== Storefront: payments =====

type paymentOrderRequest struct {
	OrderID string `json:"orderId"`
}

func (s *Server) handlePaymentOrder(w http.ResponseWriter, r *http.Request) {
	var req paymentOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}

	intent, err := s.payUC.EnsureGatewayOrder(r.Context(), req.OrderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"key":     s.gatewayKey,
		"order": map[string]any{
			"id":       intent.GatewayOrderID,
			"amount":   intent.Amount,
			"currency": intent.Currency,
		},
	})
}

type paymentVerifyRequest struct {
	OrderID          string `json:"orderId"`
	GatewayOrderID   string `json:"razorpay_order_id"`
	GatewayPaymentID string `json:"razorpay_payment_id"`
	Signature        string `json:"razorpay_signature"`
}

func (s *Server) handlePaymentVerify(w http.ResponseWriter, r *http.Request) {
	var req paymentVerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.payUC.Verify(r.Context(), usecase.VerifyRequest{
		OrderID:          req.OrderID,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
		ClientIP:         api.ClientIP(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "payment verified",
		"alreadyPaid": res.AlreadyPaid,
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	sig := r.Header.Get("X-Razorpay-Signature")
	if err := s.payUC.HandleWebhook(r.Context(), body, sig); err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			writeError(w, http.StatusBadRequest, "invalid webhook signature")
			return
		}
		// A transient store failure must surface as 5xx so the gateway
		// redelivers the event.
		logging.With(r.Context(), s.log).Error().Err(err).Msg("webhook processing failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
}

// ===== Admin =====

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !s.auth.CheckCredentials(req.Username, req.Password) {
		logging.With(r.Context(), s.log).Warn().Str("username", req.Username).Msg("admin login rejected")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.auth.Mint(w, req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAdminOrderList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := repository.OrderFilter{PaymentStatus: model.PaymentStatus(q.Get("paymentStatus"))}
	if v := q.Get("active"); v != "" {
		active := v == "true"
		f.Active = &active
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	orders, total, err := s.orderUC.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if orders == nil {
		orders = []*model.Order{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    orders,
		"total":   total,
		"limit":   f.Limit,
		"offset":  f.Offset,
	})
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleAdminOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	orderID := chi.URLParam(r, "orderId")
	if err := s.orderUC.UpdateStatus(r.Context(), orderID, model.OrderStatus(req.Status)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type markMealRequest struct {
	Meal string `json:"meal"`
}

func (s *Server) handleAdminMarkMeal(w http.ResponseWriter, r *http.Request) {
	var req markMealRequest
	if !decodeBody(w, r, &req) {
		return
	}

	orderID := chi.URLParam(r, "orderId")
	if err := s.orderUC.MarkMeal(r.Context(), orderID, model.MealType(req.Meal)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAdminDeactivate(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if err := s.orderUC.Deactivate(r.Context(), orderID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
