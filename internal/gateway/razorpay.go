package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const EventPaymentCaptured = "payment.captured"

// RazorpayClient talks to the Razorpay Orders API.
type RazorpayClient struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	HTTP      *http.Client
}

func NewRazorpayClient(keyID, keySecret, baseURL string) *RazorpayClient {
	return &RazorpayClient{
		KeyID:     keyID,
		KeySecret: keySecret,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		HTTP:      &http.Client{Timeout: 10 * time.Second},
	}
}

type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay: status %d: %s", e.StatusCode, e.Body)
}

// CreateOrder creates a provider order; Amount is in the currency's minor unit.
func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if c.KeyID == "" || c.KeySecret == "" {
		return Order{}, fmt.Errorf("razorpay: key pair not configured")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Order{}, fmt.Errorf("razorpay: encode order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, fmt.Errorf("razorpay: build request: %w", err)
	}
	httpReq.SetBasicAuth(c.KeyID, c.KeySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return Order{}, fmt.Errorf("razorpay: create order: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Order{}, fmt.Errorf("razorpay: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Order{}, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return Order{}, fmt.Errorf("razorpay: decode order: %w", err)
	}
	return order, nil
}

// Sign returns hex(HMAC-SHA256(secret, msg)).
func Sign(secret string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(secret string, msg []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, msg)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// VerifyWebhookSignature checks X-Razorpay-Signature against the raw request body.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	return verify(secret, body, signature)
}

// VerifyCheckoutSignature checks the signature returned by the checkout widget,
// computed over "order_id|payment_id" with the key secret.
func VerifyCheckoutSignature(orderID, paymentID, signature, secret string) bool {
	return verify(secret, []byte(orderID+"|"+paymentID), signature)
}

// WebhookEvent is the subset of a Razorpay webhook delivery that drives confirmation.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type PaymentEntity struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	OrderID  string `json:"order_id"`
	Method   string `json:"method"`
	Notes    Notes  `json:"notes"`
}

// Notes holds the key/value notes attached to an order or payment. Razorpay
// sends an empty JSON array instead of an object when there are none.
type Notes map[string]any

func (n *Notes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*n = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		if len(items) > 0 {
			return fmt.Errorf("notes: expected object or empty array, got %d items", len(items))
		}
		*n = Notes{}
		return nil
	}
	m := map[string]any{}
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return err
	}
	*n = m
	return nil
}

func (n Notes) text(key string) string {
	switch v := n[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return ""
}

// BookingID reads notes.booking_id, accepting a JSON string or number.
func (e PaymentEntity) BookingID() (int64, bool) {
	raw := e.Notes.text("booking_id")
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
		return n, true
	}
	return 0, false
}

// BookingReference reads notes.booking_reference, falling back to a
// non-numeric notes.booking_id.
func (e PaymentEntity) BookingReference() string {
	if ref := e.Notes.text("booking_reference"); ref != "" {
		return strings.ToUpper(ref)
	}
	if _, ok := e.BookingID(); ok {
		return ""
	}
	return strings.ToUpper(e.Notes.text("booking_id"))
}
