package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction statuses. Cancelled is a valid stored value but nothing
// transitions into it yet.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Payment methods supported by the gateway checkout.
const (
	MethodUPI        = "upi"
	MethodCard       = "card"
	MethodNetbanking = "netbanking"
	MethodWallet     = "wallet"
	MethodEMI        = "emi"
)

// Categories accepted on a transaction.
var Categories = []string{
	"food", "groceries", "transport", "shopping", "entertainment",
	"bills", "recharge", "travel", "health", "education",
	"rent", "emi", "investment", "other",
}

// Transaction represents a gateway-backed payment record tied to a user.
type Transaction struct {
	ID                primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID     `bson:"user_id" json:"userId"`
	RazorpayOrderID   string                 `bson:"razorpay_order_id" json:"razorpayOrderId"`
	RazorpayPaymentID string                 `bson:"razorpay_payment_id" json:"razorpayPaymentId"`
	RazorpaySignature string                 `bson:"razorpay_signature" json:"-"`
	Amount            float64                `bson:"amount" json:"amount"`
	Currency          string                 `bson:"currency" json:"currency"`
	Status            string                 `bson:"status" json:"status"`
	Description       string                 `bson:"description" json:"description"`
	Category          string                 `bson:"category" json:"category"`
	Merchant          string                 `bson:"merchant" json:"merchant"`
	PaymentMethod     string                 `bson:"payment_method" json:"paymentMethod"`
	Metadata          map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt         time.Time              `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time              `bson:"updated_at" json:"updatedAt"`
}

// ValidStatus reports whether s is one of the known transaction statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether m is a supported payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case MethodUPI, MethodCard, MethodNetbanking, MethodWallet, MethodEMI:
		return true
	}
	return false
}

// ValidCategory reports whether c is an accepted spending category.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}
