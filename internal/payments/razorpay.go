package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
)

// ErrTimeout is returned when the gateway does not answer within the
// order-creation deadline.
var ErrTimeout = errors.New("payment gateway timed out")

// GatewayError carries the gateway's own error text so handlers can pass it
// through to the client instead of masking it as an internal failure.
type GatewayError struct {
	Msg string
}

func (e *GatewayError) Error() string { return e.Msg }

func gatewayErrorf(format string, args ...interface{}) *GatewayError {
	return &GatewayError{Msg: fmt.Sprintf(format, args...)}
}

const orderTimeout = 10 * time.Second

// Order is the subset of the gateway order the application cares about.
type Order struct {
	ID       string
	Amount   int64 // minor units
	Currency string
	Receipt  string
}

// Payment is the authoritative payment record fetched from the gateway.
type Payment struct {
	ID      string
	OrderID string
	Amount  int64 // minor units
	Status  string
	Method  string
	Email   string
	Contact string
	Bank    string
	Wallet  string
	VPA     string
}

// Client wraps the Razorpay SDK together with the shared secrets needed for
// signature checks.
type Client struct {
	sdk           *razorpay.Client
	keyID         string
	keySecret     string
	webhookSecret string
}

// New creates a gateway client.
func New(keyID, keySecret, webhookSecret string) *Client {
	return &Client{
		sdk:           razorpay.NewClient(keyID, keySecret),
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

// KeyID returns the publishable key id the frontend checkout needs.
func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrder creates a gateway order for amount rupees. The SDK call has no
// context support, so it races against a 10 second deadline instead of
// hanging on a slow gateway.
func (c *Client) CreateOrder(ctx context.Context, amount float64, currency, receipt string, notes map[string]interface{}) (*Order, error) {
	data := map[string]interface{}{
		"amount":   int64(amount * 100),
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	type result struct {
		order map[string]interface{}
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		order, err := c.sdk.Order.Create(data, nil)
		ch <- result{order, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, gatewayErrorf("order creation failed: %v", r.err)
		}
		return &Order{
			ID:       asString(r.order["id"]),
			Amount:   asInt64(r.order["amount"]),
			Currency: asString(r.order["currency"]),
			Receipt:  asString(r.order["receipt"]),
		}, nil
	case <-time.After(orderTimeout):
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// VerifySignature recomputes the checkout signature over "orderID|paymentID"
// and compares it to the client-supplied one. The concatenation format and
// hash must match the gateway's scheme exactly or every verification fails.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the webhook signature over the raw request
// body. Webhooks are signed with a secret distinct from the key secret.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// FetchPayment fetches the authoritative payment record from the gateway so
// client-submitted data is cross-checked rather than trusted.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	p, err := c.sdk.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, gatewayErrorf("payment fetch failed: %v", err)
	}
	return &Payment{
		ID:      asString(p["id"]),
		OrderID: asString(p["order_id"]),
		Amount:  asInt64(p["amount"]),
		Status:  asString(p["status"]),
		Method:  asString(p["method"]),
		Email:   asString(p["email"]),
		Contact: asString(p["contact"]),
		Bank:    asString(p["bank"]),
		Wallet:  asString(p["wallet"]),
		VPA:     asString(p["vpa"]),
	}, nil
}

// Refund issues a refund for the payment. amount is in minor units; zero
// means a full refund. The payment refund endpoint always serializes an
// amount and the gateway rejects zero, so full refunds go through the
// refunds resource with the amount omitted entirely.
func (c *Client) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]interface{}) (string, error) {
	var (
		refund map[string]interface{}
		err    error
	)
	if amount > 0 {
		data := map[string]interface{}{}
		if len(notes) > 0 {
			data["notes"] = notes
		}
		refund, err = c.sdk.Payment.Refund(paymentID, int(amount), data, nil)
	} else {
		data := map[string]interface{}{"payment_id": paymentID}
		if len(notes) > 0 {
			data["notes"] = notes
		}
		refund, err = c.sdk.Refund.Create(data, nil)
	}
	if err != nil {
		return "", gatewayErrorf("refund failed: %v", err)
	}
	return asString(refund["id"]), nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// asInt64 handles the SDK decoding JSON numbers as float64.
func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
