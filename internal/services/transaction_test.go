package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/finplay/finplay-gobackend/internal/models"
	"github.com/finplay/finplay-gobackend/internal/payments"
)

type MockGateway struct {
	mock.Mock
}

func (g *MockGateway) KeyID() string {
	return g.Called().String(0)
}

func (g *MockGateway) CreateOrder(ctx context.Context, amount float64, currency, receipt string, notes map[string]interface{}) (*payments.Order, error) {
	args := g.Called(amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Order), args.Error(1)
}

func (g *MockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return g.Called(orderID, paymentID, signature).Bool(0)
}

func (g *MockGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return g.Called(body, signature).Bool(0)
}

func (g *MockGateway) FetchPayment(ctx context.Context, paymentID string) (*payments.Payment, error) {
	args := g.Called(paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Payment), args.Error(1)
}

func (g *MockGateway) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]interface{}) (string, error) {
	args := g.Called(paymentID, amount)
	return args.String(0), args.Error(1)
}

type MockTransactionStore struct {
	mock.Mock
}

func (s *MockTransactionStore) CountByPaymentID(ctx context.Context, paymentID string) (int64, error) {
	args := s.Called(paymentID)
	return args.Get(0).(int64), args.Error(1)
}

func (s *MockTransactionStore) Insert(ctx context.Context, tx *models.Transaction) error {
	return s.Called(tx).Error(0)
}

func (s *MockTransactionStore) UpdateStatusByPaymentID(ctx context.Context, paymentID, status, failureReason string) (int64, error) {
	args := s.Called(paymentID, status, failureReason)
	return args.Get(0).(int64), args.Error(1)
}

func (s *MockTransactionStore) Find(ctx context.Context, userID primitive.ObjectID, page, limit int, q ListQuery) ([]models.Transaction, int64, error) {
	args := s.Called(userID, page, limit, q)
	return args.Get(0).([]models.Transaction), args.Get(1).(int64), args.Error(2)
}

func (s *MockTransactionStore) FindByID(ctx context.Context, userID primitive.ObjectID, id string) (*models.Transaction, error) {
	args := s.Called(userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (s *MockTransactionStore) SetRefundID(ctx context.Context, id primitive.ObjectID, refundID string) error {
	return s.Called(id, refundID).Error(0)
}

func (s *MockTransactionStore) AggregateSpending(ctx context.Context, userID primitive.ObjectID, start time.Time) ([]CategorySpend, error) {
	args := s.Called(userID)
	return args.Get(0).([]CategorySpend), args.Error(1)
}

func verifyInput() VerifyPaymentInput {
	return VerifyPaymentInput{
		OrderID:       "order_1",
		PaymentID:     "pay_1",
		Signature:     "sig",
		Category:      "food",
		PaymentMethod: models.MethodUPI,
	}
}

func TestVerifyPaymentRejectsBadSignature(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockTransactionStore)
	svc := &TransactionService{store: store, gateway: gw}

	gw.On("VerifySignature", "order_1", "pay_1", "sig").Return(false)

	_, err := svc.VerifyPayment(context.Background(), primitive.NewObjectID(), verifyInput())
	assert.ErrorIs(t, err, ErrSignatureMismatch)
	gw.AssertNotCalled(t, "FetchPayment", mock.Anything)
}

func TestVerifyPaymentRecordsGatewayTruth(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockTransactionStore)
	svc := &TransactionService{store: store, gateway: gw}
	userID := primitive.NewObjectID()

	gw.On("VerifySignature", "order_1", "pay_1", "sig").Return(true)
	gw.On("FetchPayment", "pay_1").Return(&payments.Payment{
		ID:     "pay_1",
		Amount: 50000,
		Status: "captured",
		Method: models.MethodUPI,
		VPA:    "someone@upi",
	}, nil)
	store.On("CountByPaymentID", "pay_1").Return(int64(0), nil)

	var inserted *models.Transaction
	store.On("Insert", mock.AnythingOfType("*models.Transaction")).Run(func(args mock.Arguments) {
		inserted = args.Get(0).(*models.Transaction)
	}).Return(nil)

	tx, err := svc.VerifyPayment(context.Background(), userID, verifyInput())
	require.NoError(t, err)
	require.NotNil(t, inserted)
	assert.Equal(t, models.StatusCompleted, tx.Status)
	assert.Equal(t, 500.0, tx.Amount, "amount comes from the gateway in minor units")
	assert.Equal(t, userID, inserted.UserID)
	assert.Equal(t, "someone@upi", inserted.Metadata["vpa"])
}

func TestVerifyPaymentUncapturedStaysPending(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockTransactionStore)
	svc := &TransactionService{store: store, gateway: gw}

	gw.On("VerifySignature", "order_1", "pay_1", "sig").Return(true)
	gw.On("FetchPayment", "pay_1").Return(&payments.Payment{ID: "pay_1", Amount: 50000, Status: "authorized"}, nil)
	store.On("CountByPaymentID", "pay_1").Return(int64(0), nil)
	store.On("Insert", mock.Anything).Return(nil)

	tx, err := svc.VerifyPayment(context.Background(), primitive.NewObjectID(), verifyInput())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, tx.Status)
}

func TestVerifyPaymentDuplicatePaymentID(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockTransactionStore)
	svc := &TransactionService{store: store, gateway: gw}

	gw.On("VerifySignature", "order_1", "pay_1", "sig").Return(true)
	gw.On("FetchPayment", "pay_1").Return(&payments.Payment{ID: "pay_1", Amount: 50000, Status: "captured"}, nil)
	store.On("CountByPaymentID", "pay_1").Return(int64(1), nil)

	_, err := svc.VerifyPayment(context.Background(), primitive.NewObjectID(), verifyInput())
	assert.ErrorIs(t, err, ErrDuplicate)
	store.AssertNotCalled(t, "Insert", mock.Anything)
}

func TestVerifyPaymentDuplicateKeyAtInsert(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockTransactionStore)
	svc := &TransactionService{store: store, gateway: gw}

	gw.On("VerifySignature", "order_1", "pay_1", "sig").Return(true)
	gw.On("FetchPayment", "pay_1").Return(&payments.Payment{ID: "pay_1", Amount: 50000, Status: "captured"}, nil)
	// Concurrent verify slipped past the count check; the unique index
	// rejects the second insert.
	store.On("CountByPaymentID", "pay_1").Return(int64(0), nil)
	store.On("Insert", mock.Anything).Return(mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}},
	})

	_, err := svc.VerifyPayment(context.Background(), primitive.NewObjectID(), verifyInput())
	assert.ErrorIs(t, err, ErrDuplicate)
}

func webhookBody(event, paymentID, reason string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":"order_1","error_description":%q}}}}`,
		event, paymentID, reason))
}

func TestHandleWebhookCaptured(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockTransactionStore)
	svc := &TransactionService{store: store, gateway: gw}

	body := webhookBody("payment.captured", "pay_1", "")
	gw.On("VerifyWebhookSignature", body, "sig").Return(true)
	store.On("UpdateStatusByPaymentID", "pay_1", models.StatusCompleted, "").Return(int64(1), nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), body, "sig"))
	store.AssertExpectations(t)
}

func TestHandleWebhookFailed(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockTransactionStore)
	svc := &TransactionService{store: store, gateway: gw}

	body := webhookBody("payment.failed", "pay_1", "Card declined")
	gw.On("VerifyWebhookSignature", body, "sig").Return(true)
	store.On("UpdateStatusByPaymentID", "pay_1", models.StatusFailed, "Card declined").Return(int64(1), nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), body, "sig"))
	store.AssertExpectations(t)
}

func TestHandleWebhookUnknownEventIgnored(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockTransactionStore)
	svc := &TransactionService{store: store, gateway: gw}

	body := webhookBody("refund.processed", "pay_1", "")
	gw.On("VerifyWebhookSignature", body, "sig").Return(true)

	require.NoError(t, svc.HandleWebhook(context.Background(), body, "sig"))
	store.AssertNotCalled(t, "UpdateStatusByPaymentID", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhookBadSignature(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockTransactionStore)
	svc := &TransactionService{store: store, gateway: gw}

	body := webhookBody("payment.captured", "pay_1", "")
	gw.On("VerifyWebhookSignature", body, "bad").Return(false)

	assert.ErrorIs(t, svc.HandleWebhook(context.Background(), body, "bad"), ErrSignatureMismatch)
	store.AssertNotCalled(t, "UpdateStatusByPaymentID", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhookUnknownPaymentAcknowledged(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockTransactionStore)
	svc := &TransactionService{store: store, gateway: gw}

	body := webhookBody("payment.captured", "pay_unknown", "")
	gw.On("VerifyWebhookSignature", body, "sig").Return(true)
	store.On("UpdateStatusByPaymentID", "pay_unknown", models.StatusCompleted, "").Return(int64(0), nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), body, "sig"))
}

func TestWebhookStatus(t *testing.T) {
	status, ok := webhookStatus("payment.captured")
	assert.True(t, ok)
	assert.Equal(t, models.StatusCompleted, status)

	status, ok = webhookStatus("payment.failed")
	assert.True(t, ok)
	assert.Equal(t, models.StatusFailed, status)

	_, ok = webhookStatus("order.paid")
	assert.False(t, ok)
	_, ok = webhookStatus("")
	assert.False(t, ok)
}

func TestPaymentStatus(t *testing.T) {
	assert.Equal(t, models.StatusCompleted, paymentStatus("captured"))
	assert.Equal(t, models.StatusPending, paymentStatus("authorized"))
	assert.Equal(t, models.StatusPending, paymentStatus("failed"))
	assert.Equal(t, models.StatusPending, paymentStatus(""))
}

func TestResolveFilters(t *testing.T) {
	q, err := resolveFilters(ListFilters{
		Category:      "food",
		Status:        models.StatusCompleted,
		PaymentMethod: models.MethodUPI,
		StartDate:     "2026-01-01T00:00:00Z",
		EndDate:       "2026-02-01T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "food", q.Category)
	require.NotNil(t, q.Start)
	require.NotNil(t, q.End)
	assert.True(t, q.End.After(*q.Start))

	_, err = resolveFilters(ListFilters{Category: "gambling"})
	assert.Error(t, err)
	_, err = resolveFilters(ListFilters{Status: "done"})
	assert.Error(t, err)
	_, err = resolveFilters(ListFilters{PaymentMethod: "cheque"})
	assert.Error(t, err)
	_, err = resolveFilters(ListFilters{StartDate: "01-01-2026"})
	assert.Error(t, err)
}

func TestRefundRequiresCompletedStatus(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockTransactionStore)
	svc := &TransactionService{store: store, gateway: gw}
	userID := primitive.NewObjectID()
	txID := primitive.NewObjectID()

	store.On("FindByID", userID, txID.Hex()).Return(&models.Transaction{
		ID:     txID,
		UserID: userID,
		Status: models.StatusPending,
		Amount: 500,
	}, nil)

	_, err := svc.Refund(context.Background(), userID, txID.Hex(), 0, nil)
	assert.ErrorIs(t, err, ErrNotRefundable)
	gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
}

func TestRefundConvertsToMinorUnits(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockTransactionStore)
	svc := &TransactionService{store: store, gateway: gw}
	userID := primitive.NewObjectID()
	txID := primitive.NewObjectID()

	store.On("FindByID", userID, txID.Hex()).Return(&models.Transaction{
		ID:                txID,
		UserID:            userID,
		Status:            models.StatusCompleted,
		Amount:            500,
		RazorpayPaymentID: "pay_1",
	}, nil)
	gw.On("Refund", "pay_1", int64(25000)).Return("rfnd_1", nil)
	store.On("SetRefundID", txID, "rfnd_1").Return(nil)

	refundID, err := svc.Refund(context.Background(), userID, txID.Hex(), 250, nil)
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", refundID)
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		total      int64
		totalPages int
		hasNext    bool
		hasPrev    bool
	}{
		{"first of many", 1, 20, 45, 3, true, false},
		{"middle", 2, 20, 45, 3, true, true},
		{"last", 3, 20, 45, 3, false, true},
		{"exact fit", 2, 20, 40, 2, false, true},
		{"empty", 1, 20, 0, 0, false, false},
		{"single page", 1, 20, 5, 1, false, false},
		{"past the end", 4, 20, 45, 3, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPage(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.totalPages, p.TotalPages)
			assert.Equal(t, tt.hasNext, p.HasNext)
			assert.Equal(t, tt.hasPrev, p.HasPrev)
			assert.Equal(t, tt.total, p.Total)
		})
	}
}

func TestMethodMetadata(t *testing.T) {
	upi := &payments.Payment{Method: models.MethodUPI, VPA: "someone@upi"}
	meta := methodMetadata(upi, map[string]interface{}{"note": "lunch"})
	assert.Equal(t, "someone@upi", meta["vpa"])
	assert.Equal(t, "lunch", meta["note"])

	card := &payments.Payment{Method: models.MethodCard, Bank: "HDFC"}
	meta = methodMetadata(card, nil)
	assert.Equal(t, "HDFC", meta["bank"])

	wallet := &payments.Payment{Method: models.MethodWallet, Wallet: "paytm"}
	meta = methodMetadata(wallet, nil)
	assert.Equal(t, "paytm", meta["wallet"])

	// No gateway fields and no client metadata collapses to nil.
	assert.Nil(t, methodMetadata(&payments.Payment{Method: models.MethodEMI}, nil))
}
