package services

import (
	"context"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CategorySpend is one category's slice of the spending analytics.
type CategorySpend struct {
	Category   string  `bson:"_id" json:"category"`
	Total      float64 `bson:"total" json:"total"`
	Count      int64   `bson:"count" json:"count"`
	Average    float64 `bson:"average" json:"average"`
	Percentage int     `bson:"-" json:"percentage"`
}

// SpendingAnalytics is the per-period category breakdown of completed spend.
type SpendingAnalytics struct {
	Period     string          `json:"period"`
	StartDate  time.Time       `json:"startDate"`
	TotalSpend float64         `json:"totalSpend"`
	Categories []CategorySpend `json:"categories"`
}

// periodStart computes the aggregation window start for week/month/year.
// Unknown periods fall back to month.
func periodStart(period string, now time.Time) (string, time.Time) {
	switch period {
	case "week":
		return period, now.AddDate(0, 0, -7)
	case "year":
		return period, now.AddDate(-1, 0, 0)
	case "month":
		return period, now.AddDate(0, -1, 0)
	default:
		return "month", now.AddDate(0, -1, 0)
	}
}

// GetSpendingAnalytics aggregates the user's completed transactions in the
// period, grouped by category with each category's share of total spend.
func (s *TransactionService) GetSpendingAnalytics(ctx context.Context, userID primitive.ObjectID, period string) (*SpendingAnalytics, error) {
	period, start := periodStart(period, time.Now())

	rows, err := s.store.AggregateSpending(ctx, userID, start)
	if err != nil {
		return nil, err
	}

	total := derivePercentages(rows)
	return &SpendingAnalytics{
		Period:     period,
		StartDate:  start,
		TotalSpend: total,
		Categories: rows,
	}, nil
}

// derivePercentages fills each row's rounded share of total spend and returns
// the total. Rounding means shares sum to at most 100 plus rounding slack.
func derivePercentages(rows []CategorySpend) float64 {
	var total float64
	for _, r := range rows {
		total += r.Total
	}
	if total <= 0 {
		return 0
	}
	for i := range rows {
		rows[i].Percentage = int(math.Round(rows[i].Total / total * 100))
	}
	return total
}
