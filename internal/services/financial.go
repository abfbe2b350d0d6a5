package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/finplay/finplay-gobackend/internal/models"
)

const (
	platformStatsKey = "stats:platform"
	platformStatsTTL = 60 * time.Second
)

type FinancialService struct {
	users        *mongo.Collection
	transactions *mongo.Collection
	cache        *redis.Client
}

func NewFinancialService(db *mongo.Database, cache *redis.Client) *FinancialService {
	return &FinancialService{
		users:        db.Collection("users"),
		transactions: db.Collection("transactions"),
		cache:        cache,
	}
}

// DashboardStats is the landing-page summary for a user.
type DashboardStats struct {
	Coins         int     `json:"coins"`
	Level         string  `json:"level"`
	CompletedQuiz bool    `json:"completedQuiz"`
	MonthSpend    float64 `json:"monthSpend"`
	MonthCount    int64   `json:"monthCount"`
	TopCategory   string  `json:"topCategory,omitempty"`
}

// GetDashboardStats combines the user's gamification state with this month's
// completed spend.
func (s *FinancialService) GetDashboardStats(ctx context.Context, user *models.User) (*DashboardStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stats := &DashboardStats{
		Coins:         user.Coins,
		Level:         user.Level,
		CompletedQuiz: user.CompletedQuiz,
	}

	start := time.Now().AddDate(0, -1, 0)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id":    user.ID,
			"status":     models.StatusCompleted,
			"created_at": bson.M{"$gte": start},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$category",
			"total": bson.M{"$sum": "$amount"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"total": -1}}},
	}
	cur, err := s.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate month spend: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Category string  `bson:"_id"`
		Total    float64 `bson:"total"`
		Count    int64   `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode month spend: %w", err)
	}

	for i, r := range rows {
		stats.MonthSpend += r.Total
		stats.MonthCount += r.Count
		if i == 0 {
			stats.TopCategory = r.Category
		}
	}
	return stats, nil
}

// MoneyManagement is the monthly category breakdown with a savings hint.
type MoneyManagement struct {
	MonthSpend   float64            `json:"monthSpend"`
	ByCategory   map[string]float64 `json:"byCategory"`
	Largest      string             `json:"largestCategory,omitempty"`
	SuggestedCap float64            `json:"suggestedCap"`
}

// GetMoneyManagement summarizes the current month's completed spend per
// category. The suggested cap nudges the user 10% under this month's total.
func (s *FinancialService) GetMoneyManagement(ctx context.Context, user *models.User) (*MoneyManagement, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := time.Now().AddDate(0, -1, 0)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id":    user.ID,
			"status":     models.StatusCompleted,
			"created_at": bson.M{"$gte": start},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$category",
			"total": bson.M{"$sum": "$amount"},
		}}},
		{{Key: "$sort", Value: bson.M{"total": -1}}},
	}
	cur, err := s.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate spend: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Category string  `bson:"_id"`
		Total    float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode spend: %w", err)
	}

	mm := &MoneyManagement{ByCategory: map[string]float64{}}
	for i, r := range rows {
		mm.ByCategory[r.Category] = r.Total
		mm.MonthSpend += r.Total
		if i == 0 {
			mm.Largest = r.Category
		}
	}
	mm.SuggestedCap = mm.MonthSpend * 0.9
	return mm, nil
}

// PlatformStats is the public aggregate view of the platform.
type PlatformStats struct {
	TotalUsers        int64   `json:"totalUsers"`
	TotalTransactions int64   `json:"totalTransactions"`
	TotalVolume       float64 `json:"totalVolume"`
}

// GetPlatformStats returns platform-wide totals, cached in Redis for a
// minute. Cache failures fall through to the database.
func (s *FinancialService) GetPlatformStats(ctx context.Context) (*PlatformStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var cached PlatformStats
	if ok, err := cacheGet(ctx, s.cache, platformStatsKey, &cached); err == nil && ok {
		return &cached, nil
	}

	users, err := s.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.StatusCompleted}}},
		{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"count":  bson.M{"$sum": 1},
			"volume": bson.M{"$sum": "$amount"},
		}}},
	}
	cur, err := s.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate volume: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Count  int64   `bson:"count"`
		Volume float64 `bson:"volume"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode volume: %w", err)
	}

	stats := &PlatformStats{TotalUsers: users}
	if len(rows) > 0 {
		stats.TotalTransactions = rows[0].Count
		stats.TotalVolume = rows[0].Volume
	}

	if err := cacheSet(ctx, s.cache, platformStatsKey, stats, platformStatsTTL); err != nil {
		logrus.WithError(err).Warn("failed to cache platform stats")
	}
	return stats, nil
}

// cacheGet retrieves a value from Redis and unmarshals it into dest.
func cacheGet(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, json.Unmarshal([]byte(val), dest)
}

// cacheSet stores a value in Redis with a TTL.
func cacheSet(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, b, ttl).Err()
}
