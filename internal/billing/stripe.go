// Package billing talks to Stripe: creating checkout sessions for
// credit purchases and verifying webhook deliveries. The payment flow
// itself (card entry, redirect) belongs to Stripe; this package only
// starts sessions and authenticates what comes back.
package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const apiBase = "https://api.stripe.com/v1"

// signatureTolerance bounds how old a webhook timestamp may be before
// the delivery is rejected as a possible replay.
const signatureTolerance = 5 * time.Minute

var (
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")
	ErrInvalidPayload   = errors.New("billing: invalid webhook payload")
)

// StripeClient is a minimal REST client for the endpoints this service
// uses. Stripe's API is form-encoded in, JSON out.
type StripeClient struct {
	SecretKey     string
	WebhookSecret string
	HTTPClient    *http.Client

	// baseURL is overridable in tests.
	baseURL string
}

func NewStripeClient(secretKey, webhookSecret string) *StripeClient {
	return &StripeClient{
		SecretKey:     secretKey,
		WebhookSecret: webhookSecret,
		HTTPClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       apiBase,
	}
}

// CheckoutSession is the subset of Stripe's session object we read.
type CheckoutSession struct {
	ID                string            `json:"id"`
	PaymentIntent     string            `json:"payment_intent"`
	AmountTotal       int64             `json:"amount_total"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// CreateCheckoutSession starts a one-off payment session for the given
// price id. The user id rides along as client_reference_id and metadata
// so the webhook can attribute the payment.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, priceID, userID, email, baseURL string) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", priceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("mode", "payment")
	form.Set("success_url", baseURL+"/payment-status?status=success&session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", baseURL+"/payment-status?status=cancelled")
	form.Set("client_reference_id", userID)
	form.Set("metadata[user_id]", userID)
	if email != "" {
		form.Set("metadata[email]", email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.SecretKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		return nil, &APIError{Status: res.StatusCode, Body: string(body)}
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// APIError is a non-2xx response from Stripe.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe api error: status %d", e.Status)
}

// Event is the envelope Stripe posts to the webhook endpoint.
type Event struct {
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ConstructEvent verifies the Stripe-Signature header against the raw
// payload and, only if genuine and fresh, parses the event. The header
// format is "t=<unix>,v1=<hex hmac>[,v1=...]"; the signed payload is
// "<t>.<body>" keyed with the webhook secret.
func (c *StripeClient) ConstructEvent(payload []byte, sigHeader string) (*Event, error) {
	return constructEvent(payload, sigHeader, c.WebhookSecret, time.Now())
}

func constructEvent(payload []byte, sigHeader, secret string, now time.Time) (*Event, error) {
	var timestamp int64
	var signatures [][]byte

	for _, part := range strings.Split(sigHeader, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(v)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return nil, ErrInvalidSignature
	}
	if now.Sub(time.Unix(timestamp, 0)) > signatureTolerance {
		return nil, ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	verified := false
	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, ErrInvalidPayload
	}
	return &event, nil
}
