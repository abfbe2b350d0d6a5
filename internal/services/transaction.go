package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/finplay/finplay-gobackend/internal/models"
	"github.com/finplay/finplay-gobackend/internal/payments"
)

const maxPageSize = 100

// Gateway is the payment-gateway surface the transaction flows depend on.
// *payments.Client satisfies it.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount float64, currency, receipt string, notes map[string]interface{}) (*payments.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
	FetchPayment(ctx context.Context, paymentID string) (*payments.Payment, error)
	Refund(ctx context.Context, paymentID string, amount int64, notes map[string]interface{}) (string, error)
}

// TransactionStore is the persistence surface behind the transaction flows.
type TransactionStore interface {
	CountByPaymentID(ctx context.Context, paymentID string) (int64, error)
	Insert(ctx context.Context, tx *models.Transaction) error
	UpdateStatusByPaymentID(ctx context.Context, paymentID, status, failureReason string) (int64, error)
	Find(ctx context.Context, userID primitive.ObjectID, page, limit int, q ListQuery) ([]models.Transaction, int64, error)
	FindByID(ctx context.Context, userID primitive.ObjectID, id string) (*models.Transaction, error)
	SetRefundID(ctx context.Context, id primitive.ObjectID, refundID string) error
	AggregateSpending(ctx context.Context, userID primitive.ObjectID, start time.Time) ([]CategorySpend, error)
}

type TransactionService struct {
	store   TransactionStore
	gateway Gateway
}

func NewTransactionService(db *mongo.Database, gateway *payments.Client) *TransactionService {
	return &TransactionService{
		store:   newMongoTransactionStore(db),
		gateway: gateway,
	}
}

// CreateOrder opens a gateway order for the rupee amount and returns it along
// with the publishable key id the checkout needs.
func (s *TransactionService) CreateOrder(ctx context.Context, userID primitive.ObjectID, amount float64, notes map[string]interface{}) (*payments.Order, string, error) {
	receipt := "rcpt_" + uuid.NewString()
	if notes == nil {
		notes = map[string]interface{}{}
	}
	notes["user_id"] = userID.Hex()

	order, err := s.gateway.CreateOrder(ctx, amount, "INR", receipt, notes)
	if err != nil {
		return nil, "", err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  userID.Hex(),
		"order_id": order.ID,
		"amount":   order.Amount,
	}).Info("order created")
	return order, s.gateway.KeyID(), nil
}

// VerifyPaymentInput is the client-submitted confirmation of a checkout.
type VerifyPaymentInput struct {
	OrderID       string
	PaymentID     string
	Signature     string
	Description   string
	Category      string
	Merchant      string
	PaymentMethod string
	Metadata      map[string]interface{}
}

// paymentStatus maps the gateway's payment state to a transaction status.
// Anything short of captured stays pending until the webhook settles it.
func paymentStatus(gatewayStatus string) string {
	if gatewayStatus == "captured" {
		return models.StatusCompleted
	}
	return models.StatusPending
}

// VerifyPayment records a transaction after checking the checkout signature
// against the gateway's scheme and cross-checking the payment with the
// gateway. Amount and status come from the gateway record, never the client.
func (s *TransactionService) VerifyPayment(ctx context.Context, userID primitive.ObjectID, in VerifyPaymentInput) (*models.Transaction, error) {
	if !s.gateway.VerifySignature(in.OrderID, in.PaymentID, in.Signature) {
		return nil, ErrSignatureMismatch
	}

	payment, err := s.gateway.FetchPayment(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}

	// Friendly duplicate check; the unique index on razorpay_payment_id is
	// the real guard against the check-then-insert race.
	count, err := s.store.CountByPaymentID(ctx, in.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check payment id: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicate
	}

	now := time.Now()
	tx := &models.Transaction{
		ID:                primitive.NewObjectID(),
		UserID:            userID,
		RazorpayOrderID:   in.OrderID,
		RazorpayPaymentID: in.PaymentID,
		RazorpaySignature: in.Signature,
		Amount:            float64(payment.Amount) / 100,
		Currency:          "INR",
		Status:            paymentStatus(payment.Status),
		Description:       in.Description,
		Category:          in.Category,
		Merchant:          in.Merchant,
		PaymentMethod:     in.PaymentMethod,
		Metadata:          methodMetadata(payment, in.Metadata),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.Insert(ctx, tx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID.Hex(),
		"payment_id": in.PaymentID,
		"status":     tx.Status,
	}).Info("payment verified")
	return tx, nil
}

// methodMetadata merges client metadata with the method-specific fields the
// gateway reports.
func methodMetadata(p *payments.Payment, client map[string]interface{}) map[string]interface{} {
	meta := map[string]interface{}{}
	for k, v := range client {
		meta[k] = v
	}
	switch p.Method {
	case models.MethodUPI:
		if p.VPA != "" {
			meta["vpa"] = p.VPA
		}
	case models.MethodCard:
		if p.Bank != "" {
			meta["bank"] = p.Bank
		}
	case models.MethodNetbanking:
		if p.Bank != "" {
			meta["bank"] = p.Bank
		}
	case models.MethodWallet:
		if p.Wallet != "" {
			meta["wallet"] = p.Wallet
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// webhookEvent is the slice of the gateway webhook payload that matters here.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// webhookStatus maps a gateway webhook event to the transaction status it
// settles. ok is false for events that carry no state change.
func webhookStatus(event string) (status string, ok bool) {
	switch event {
	case "payment.captured":
		return models.StatusCompleted, true
	case "payment.failed":
		return models.StatusFailed, true
	default:
		return "", false
	}
}

// HandleWebhook applies the gateway's asynchronous settlement report. The
// webhook is authoritative: it overwrites whatever the synchronous verify
// path recorded for the same payment id. Unknown events are acknowledged.
func (s *TransactionService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(body, signature) {
		return ErrSignatureMismatch
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("invalid webhook payload: %w", err)
	}

	status, ok := webhookStatus(event.Event)
	if !ok {
		logrus.WithFields(logrus.Fields{"event": event.Event}).Debug("webhook event ignored")
		return nil
	}

	paymentID := event.Payload.Payment.Entity.ID
	matched, err := s.store.UpdateStatusByPaymentID(ctx, paymentID, status, event.Payload.Payment.Entity.ErrorDescription)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if matched == 0 {
		logrus.WithFields(logrus.Fields{"payment_id": paymentID, "event": event.Event}).Warn("webhook for unknown payment")
		return nil
	}

	logrus.WithFields(logrus.Fields{"payment_id": paymentID, "status": status}).Info("webhook applied")
	return nil
}

// ListFilters narrows a transaction listing. Dates are RFC 3339 strings as
// they arrive on the query string.
type ListFilters struct {
	Category      string
	Status        string
	PaymentMethod string
	StartDate     string
	EndDate       string
}

// ListQuery is a validated ListFilters with the date bounds parsed.
type ListQuery struct {
	Category      string
	Status        string
	PaymentMethod string
	Start         *time.Time
	End           *time.Time
}

// resolveFilters validates the raw filters and parses the date bounds.
func resolveFilters(f ListFilters) (ListQuery, error) {
	q := ListQuery{
		Category:      f.Category,
		Status:        f.Status,
		PaymentMethod: f.PaymentMethod,
	}
	if f.Category != "" && !models.ValidCategory(f.Category) {
		return q, fmt.Errorf("invalid category filter: %s", f.Category)
	}
	if f.Status != "" && !models.ValidStatus(f.Status) {
		return q, fmt.Errorf("invalid status filter: %s", f.Status)
	}
	if f.PaymentMethod != "" && !models.ValidPaymentMethod(f.PaymentMethod) {
		return q, fmt.Errorf("invalid payment method filter: %s", f.PaymentMethod)
	}
	if f.StartDate != "" {
		start, err := time.Parse(time.RFC3339, f.StartDate)
		if err != nil {
			return q, fmt.Errorf("invalid start date: %w", err)
		}
		q.Start = &start
	}
	if f.EndDate != "" {
		end, err := time.Parse(time.RFC3339, f.EndDate)
		if err != nil {
			return q, fmt.Errorf("invalid end date: %w", err)
		}
		q.End = &end
	}
	return q, nil
}

// Page carries offset-pagination metadata.
type Page struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// List returns the user's transactions, newest first, with filters and
// offset pagination.
func (s *TransactionService) List(ctx context.Context, userID primitive.ObjectID, page, limit int, f ListFilters) ([]models.Transaction, *Page, error) {
	q, err := resolveFilters(f)
	if err != nil {
		return nil, nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	txs, total, err := s.store.Find(ctx, userID, page, limit, q)
	if err != nil {
		return nil, nil, err
	}
	return txs, newPage(page, limit, total), nil
}

func newPage(page, limit int, total int64) *Page {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return &Page{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1 && total > 0,
	}
}

// Get fetches a single transaction scoped to its owner.
func (s *TransactionService) Get(ctx context.Context, userID primitive.ObjectID, id string) (*models.Transaction, error) {
	return s.store.FindByID(ctx, userID, id)
}

// Refund issues a full or partial gateway refund for a completed transaction.
// amount is in rupees; zero means a full refund.
func (s *TransactionService) Refund(ctx context.Context, userID primitive.ObjectID, id string, amount float64, notes map[string]interface{}) (string, error) {
	tx, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if tx.Status != models.StatusCompleted {
		return "", ErrNotRefundable
	}
	if amount > tx.Amount {
		return "", fmt.Errorf("refund amount exceeds transaction amount")
	}

	refundID, err := s.gateway.Refund(ctx, tx.RazorpayPaymentID, int64(amount*100), notes)
	if err != nil {
		return "", err
	}

	if err := s.store.SetRefundID(ctx, tx.ID, refundID); err != nil {
		return "", fmt.Errorf("failed to record refund: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"payment_id": tx.RazorpayPaymentID,
		"refund_id":  refundID,
	}).Info("refund issued")
	return refundID, nil
}
