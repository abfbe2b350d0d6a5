package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/finplay/finplay-gobackend/internal/httpjson"
	"github.com/finplay/finplay-gobackend/internal/middleware"
	"github.com/finplay/finplay-gobackend/internal/services"
	"github.com/finplay/finplay-gobackend/internal/validate"
)

type TransactionHandler struct {
	transactions *services.TransactionService
}

func NewTransactionHandler(transactions *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

type createOrderRequest struct {
	Amount float64                `json:"amount" validate:"required,gt=0"`
	Notes  map[string]interface{} `json:"notes"`
}

func (h *TransactionHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	var req createOrderRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := validate.Struct(req); fields != nil {
		httpjson.ValidationError(w, fields)
		return
	}

	order, keyID, err := h.transactions.CreateOrder(r.Context(), user.ID, req.Amount, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpjson.OK(w, map[string]interface{}{
		"orderId":  order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
		"keyId":    keyID,
	})
}

type verifyPaymentRequest struct {
	OrderID       string                 `json:"orderId" validate:"required"`
	PaymentID     string                 `json:"paymentId" validate:"required"`
	Signature     string                 `json:"signature" validate:"required"`
	Description   string                 `json:"description" validate:"max=200"`
	Category      string                 `json:"category" validate:"required,oneof=food groceries transport shopping entertainment bills recharge travel health education rent emi investment other"`
	Merchant      string                 `json:"merchant" validate:"max=100"`
	PaymentMethod string                 `json:"paymentMethod" validate:"required,oneof=upi card netbanking wallet emi"`
	Metadata      map[string]interface{} `json:"metadata"`
}

func (h *TransactionHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	var req verifyPaymentRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := validate.Struct(req); fields != nil {
		httpjson.ValidationError(w, fields)
		return
	}

	tx, err := h.transactions.VerifyPayment(r.Context(), user.ID, services.VerifyPaymentInput{
		OrderID:       req.OrderID,
		PaymentID:     req.PaymentID,
		Signature:     req.Signature,
		Description:   req.Description,
		Category:      req.Category,
		Merchant:      req.Merchant,
		PaymentMethod: req.PaymentMethod,
		Metadata:      req.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSignatureMismatch):
			httpjson.Error(w, http.StatusBadRequest, "Invalid payment signature")
		case errors.Is(err, services.ErrDuplicate):
			httpjson.Error(w, http.StatusBadRequest, "Transaction already exists")
		default:
			writeServiceError(w, err)
		}
		return
	}

	httpjson.Created(w, "Payment verified", map[string]interface{}{"transaction": tx})
}

func (h *TransactionHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	err = h.transactions.HandleWebhook(r.Context(), body, r.Header.Get("X-Razorpay-Signature"))
	if err != nil {
		if errors.Is(err, services.ErrSignatureMismatch) {
			httpjson.Error(w, http.StatusBadRequest, "Invalid webhook signature")
			return
		}
		writeServiceError(w, err)
		return
	}

	httpjson.Message(w, "Webhook processed")
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	filters := services.ListFilters{
		Category:      q.Get("category"),
		Status:        q.Get("status"),
		PaymentMethod: q.Get("paymentMethod"),
		StartDate:     q.Get("startDate"),
		EndDate:       q.Get("endDate"),
	}

	txs, pageMeta, err := h.transactions.List(r.Context(), user.ID, page, limit, filters)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	httpjson.OK(w, map[string]interface{}{
		"transactions": txs,
		"pagination":   pageMeta,
	})
}

func (h *TransactionHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	analytics, err := h.transactions.GetSpendingAnalytics(r.Context(), user.ID, r.URL.Query().Get("period"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpjson.OK(w, analytics)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	tx, err := h.transactions.Get(r.Context(), user.ID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpjson.OK(w, map[string]interface{}{"transaction": tx})
}

type refundRequest struct {
	Amount float64                `json:"amount" validate:"omitempty,gte=0"`
	Notes  map[string]interface{} `json:"notes"`
}

func (h *TransactionHandler) Refund(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	var req refundRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := validate.Struct(req); fields != nil {
		httpjson.ValidationError(w, fields)
		return
	}

	refundID, err := h.transactions.Refund(r.Context(), user.ID, mux.Vars(r)["id"], req.Amount, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpjson.OK(w, map[string]string{"refundId": refundID})
}
