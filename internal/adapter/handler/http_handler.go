package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/logger"
	"github.com/rl1809/storefront/internal/port"
)

// Services are the core components exposed by the API handlers.
type Services struct {
	Storefront *service.Storefront
	Reviews    *service.ReviewCarousel
	Banner     *service.Carousel
	Contact    *service.ContactDesk
	Orders     port.OrderRepository // optional
}

type HTTPHandler struct {
	svc       Services
	presenter Presenter
	log       *zap.Logger
}

type AddItemHTTPRequest struct {
	ID int `json:"id"`
}

type ChangeQuantityHTTPRequest struct {
	Delta int `json:"delta"`
}

type CouponHTTPRequest struct {
	Code string `json:"code"`
}

type CheckoutHTTPRequest struct {
	RequestID      string              `json:"request_id"`
	Confirm        bool                `json:"confirm"`
	DisplayedTotal decimal.NullDecimal `json:"displayed_total"`
}

type CartHTTPResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Cart    CartView `json:"cart"`
}

type CheckoutHTTPResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	OrderID string   `json:"order_id,omitempty"`
	Cart    CartView `json:"cart"`
}

type MessageHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ProductsHTTPResponse struct {
	Catalog  string        `json:"catalog"`
	Products []ProductView `json:"products"`
}

type ReviewsHTTPResponse struct {
	Current  *ReviewView  `json:"current,omitempty"`
	Position int          `json:"position"`
	Total    int          `json:"total"`
	Reviews  []ReviewView `json:"reviews,omitempty"`
}

type BannerHTTPResponse struct {
	Position int `json:"position"`
	Total    int `json:"total"`
}

func NewHTTPHandler(svc Services, presenter Presenter, log *zap.Logger) *HTTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPHandler{svc: svc, presenter: presenter, log: log}
}

// Routes registers every endpoint on a new mux wrapped with request
// logging.
func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.ChangeQuantity)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.RemoveItem)
	mux.HandleFunc("POST /api/coupon", h.ApplyCoupon)
	mux.HandleFunc("POST /api/balance/funds", h.AddFunds)
	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("GET /api/reviews", h.GetReviews)
	mux.HandleFunc("POST /api/reviews/next", h.NextReview)
	mux.HandleFunc("POST /api/reviews/prev", h.PrevReview)
	mux.HandleFunc("GET /api/banner", h.GetBanner)
	mux.HandleFunc("POST /api/banner/next", h.NextBanner)
	mux.HandleFunc("POST /api/banner/prev", h.PrevBanner)
	mux.HandleFunc("POST /api/contact", h.SubmitContact)
	return requestLogger(h.log, mux)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"catalog": h.svc.Storefront.Catalog().State().String(),
	})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	catalog := h.svc.Storefront.Catalog()
	writeJSON(w, http.StatusOK, ProductsHTTPResponse{
		Catalog:  catalog.State().String(),
		Products: h.presenter.Products(catalog.Search(r.URL.Query().Get("q"))),
	})
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, r, h.svc.Storefront.Snapshot(), nil)
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == 0 {
		writeJSON(w, http.StatusBadRequest, MessageHTTPResponse{Message: "missing required fields"})
		return
	}

	snap, err := h.svc.Storefront.AddItem(r.Context(), req.ID)
	h.writeCart(w, r, snap, err)
}

func (h *HTTPHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ChangeQuantityHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	snap, err := h.svc.Storefront.ChangeQuantity(r.Context(), id, req.Delta)
	h.writeCart(w, r, snap, err)
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	snap, err := h.svc.Storefront.RemoveItem(r.Context(), id)
	h.writeCart(w, r, snap, err)
}

func (h *HTTPHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	snap, err := h.svc.Storefront.ApplyCoupon(r.Context(), req.Code)
	h.writeCart(w, r, snap, err)
}

func (h *HTTPHandler) AddFunds(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Storefront.AddFunds(r.Context())
	h.writeCart(w, r, snap, err)
}

// Checkout settles the cart. The confirm flag answers the confirmation
// prompt; without it nothing is committed.
func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.Storefront.Checkout(r.Context(), service.CheckoutInput{
		RequestID:      req.RequestID,
		DisplayedTotal: req.DisplayedTotal,
		Confirmer: port.ConfirmFunc(func(context.Context, decimal.Decimal) bool {
			return req.Confirm
		}),
	})
	if err != nil {
		status, message := errorStatus(r.Context(), err)
		writeJSON(w, status, CheckoutHTTPResponse{
			Success: false,
			Message: message,
			Cart:    h.presenter.Cart(res.Snapshot),
		})
		return
	}

	writeJSON(w, http.StatusOK, CheckoutHTTPResponse{
		Success: true,
		Message: domain.MsgOrderPlaced,
		OrderID: res.Order.ID,
		Cart:    h.presenter.Cart(res.Snapshot),
	})
}

// GetOrder returns an archived order. Orders become visible once an
// archive worker has saved them.
func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	var order *domain.Order
	if h.svc.Orders != nil {
		var err error
		order, err = h.svc.Orders.GetOrder(r.Context(), r.PathValue("id"))
		if err != nil {
			logger.FromContext(r.Context()).Error("failed to load order", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, MessageHTTPResponse{Message: "internal error"})
			return
		}
	}
	if order == nil {
		writeJSON(w, http.StatusNotFound, MessageHTTPResponse{Message: "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, h.presenter.Order(*order))
}

func (h *HTTPHandler) GetReviews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reviews(true))
}

func (h *HTTPHandler) NextReview(w http.ResponseWriter, r *http.Request) {
	h.svc.Reviews.Next()
	writeJSON(w, http.StatusOK, h.reviews(false))
}

func (h *HTTPHandler) PrevReview(w http.ResponseWriter, r *http.Request) {
	h.svc.Reviews.Prev()
	writeJSON(w, http.StatusOK, h.reviews(false))
}

func (h *HTTPHandler) reviews(all bool) ReviewsHTTPResponse {
	resp := ReviewsHTTPResponse{Total: h.svc.Reviews.Count()}
	if review, i, ok := h.svc.Reviews.Showing(); ok {
		v := h.presenter.Review(review)
		resp.Current = &v
		resp.Position = i + 1
	}
	if all {
		for _, review := range h.svc.Reviews.Reviews() {
			resp.Reviews = append(resp.Reviews, h.presenter.Review(review))
		}
	}
	return resp
}

func (h *HTTPHandler) GetBanner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.banner())
}

func (h *HTTPHandler) NextBanner(w http.ResponseWriter, r *http.Request) {
	h.svc.Banner.Next()
	writeJSON(w, http.StatusOK, h.banner())
}

func (h *HTTPHandler) PrevBanner(w http.ResponseWriter, r *http.Request) {
	h.svc.Banner.Prev()
	writeJSON(w, http.StatusOK, h.banner())
}

func (h *HTTPHandler) banner() BannerHTTPResponse {
	return BannerHTTPResponse{Position: h.svc.Banner.Current() + 1, Total: h.svc.Banner.Count()}
}

func (h *HTTPHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req domain.ContactMessage
	if !decodeBody(w, r, &req) {
		return
	}

	message, err := h.svc.Contact.Submit(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, MessageHTTPResponse{Success: false, Message: message})
		return
	}
	writeJSON(w, http.StatusOK, MessageHTTPResponse{Success: true, Message: message})
}

func (h *HTTPHandler) writeCart(w http.ResponseWriter, r *http.Request, snap domain.Snapshot, err error) {
	if err != nil {
		status, message := errorStatus(r.Context(), err)
		writeJSON(w, status, CartHTTPResponse{Success: false, Message: message, Cart: h.presenter.Cart(snap)})
		return
	}
	writeJSON(w, http.StatusOK, CartHTTPResponse{Success: true, Cart: h.presenter.Cart(snap)})
}

func errorStatus(ctx context.Context, err error) (int, string) {
	message := domain.WarningFor(err)
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrProductNotFound):
		status, message = http.StatusNotFound, "product not found"
	case errors.Is(err, domain.ErrDuplicateRequest):
		status, message = http.StatusConflict, "duplicate request"
	case errors.Is(err, domain.ErrTotalChanged):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCheckoutCancelled):
		status, message = http.StatusOK, "order not confirmed"
	case errors.Is(err, domain.ErrInvalidCoupon), errors.Is(err, domain.ErrEmptyCart):
		status = http.StatusUnprocessableEntity
	default:
		logger.FromContext(ctx).Error("request failed", zap.Error(err))
		message = "internal error"
	}
	return status, message
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, MessageHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, MessageHTTPResponse{
			Success: false,
			Message: "invalid product id",
		})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
