package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/finplay/finplay-gobackend/internal/models"
)

// mongoTransactionStore is the MongoDB-backed TransactionStore.
type mongoTransactionStore struct {
	coll *mongo.Collection
}

func newMongoTransactionStore(db *mongo.Database) *mongoTransactionStore {
	return &mongoTransactionStore{coll: db.Collection("transactions")}
}

func (s *mongoTransactionStore) CountByPaymentID(ctx context.Context, paymentID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.coll.CountDocuments(ctx, bson.M{"razorpay_payment_id": paymentID})
}

func (s *mongoTransactionStore) Insert(ctx context.Context, tx *models.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.coll.InsertOne(ctx, tx)
	return err
}

func (s *mongoTransactionStore) UpdateStatusByPaymentID(ctx context.Context, paymentID, status, failureReason string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if failureReason != "" {
		set["metadata.failure_reason"] = failureReason
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"razorpay_payment_id": paymentID}, bson.M{"$set": set})
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (s *mongoTransactionStore) Find(ctx context.Context, userID primitive.ObjectID, page, limit int, q ListQuery) ([]models.Transaction, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{"user_id": userID}
	if q.Category != "" {
		query["category"] = q.Category
	}
	if q.Status != "" {
		query["status"] = q.Status
	}
	if q.PaymentMethod != "" {
		query["payment_method"] = q.PaymentMethod
	}
	if q.Start != nil || q.End != nil {
		rangeQuery := bson.M{}
		if q.Start != nil {
			rangeQuery["$gte"] = *q.Start
		}
		if q.End != nil {
			rangeQuery["$lte"] = *q.End
		}
		query["created_at"] = rangeQuery
	}

	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer cur.Close(ctx)

	txs := []models.Transaction{}
	if err := cur.All(ctx, &txs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return txs, total, nil
}

func (s *mongoTransactionStore) FindByID(ctx context.Context, userID primitive.ObjectID, id string) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var tx models.Transaction
	if err := s.coll.FindOne(ctx, bson.M{"_id": objID, "user_id": userID}).Decode(&tx); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	return &tx, nil
}

func (s *mongoTransactionStore) SetRefundID(ctx context.Context, id primitive.ObjectID, refundID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"metadata.refund_id": refundID,
		"updated_at":         time.Now(),
	}})
	return err
}

func (s *mongoTransactionStore) AggregateSpending(ctx context.Context, userID primitive.ObjectID, start time.Time) ([]CategorySpend, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id":    userID,
			"status":     models.StatusCompleted,
			"created_at": bson.M{"$gte": start},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$category",
			"total":   bson.M{"$sum": "$amount"},
			"count":   bson.M{"$sum": 1},
			"average": bson.M{"$avg": "$amount"},
		}}},
		{{Key: "$sort", Value: bson.M{"total": -1}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate spending: %w", err)
	}
	defer cur.Close(ctx)

	rows := []CategorySpend{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode spending rows: %w", err)
	}
	return rows, nil
}
