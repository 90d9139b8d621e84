package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func sign(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestConstructEvent_ValidSignature(t *testing.T) {
	payload := []byte(`{"type": "checkout.session.completed", "data": {"object": {"id": "cs_1"}}}`)
	now := time.Now()

	event, err := constructEvent(payload, sign(payload, testSecret, now), testSecret, now)

	require.NoError(t, err)
	assert.Equal(t, "checkout.session.completed", event.Type)
}

func TestConstructEvent_TamperedPayload(t *testing.T) {
	payload := []byte(`{"type": "checkout.session.completed"}`)
	now := time.Now()
	sig := sign(payload, testSecret, now)

	_, err := constructEvent([]byte(`{"type": "account.updated"}`), sig, testSecret, now)

	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestConstructEvent_WrongSecret(t *testing.T) {
	payload := []byte(`{"type": "checkout.session.completed"}`)
	now := time.Now()

	_, err := constructEvent(payload, sign(payload, "whsec_other", now), testSecret, now)

	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestConstructEvent_StaleTimestamp(t *testing.T) {
	// A replayed delivery older than the tolerance window is rejected
	// even when the signature itself is genuine.
	payload := []byte(`{"type": "checkout.session.completed"}`)
	now := time.Now()
	old := now.Add(-signatureTolerance - time.Minute)

	_, err := constructEvent(payload, sign(payload, testSecret, old), testSecret, now)

	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestConstructEvent_WithinTolerance(t *testing.T) {
	payload := []byte(`{"type": "checkout.session.completed"}`)
	now := time.Now()
	recent := now.Add(-signatureTolerance + time.Minute)

	_, err := constructEvent(payload, sign(payload, testSecret, recent), testSecret, now)

	assert.NoError(t, err)
}

func TestConstructEvent_MalformedHeaders(t *testing.T) {
	payload := []byte(`{"type": "x"}`)
	now := time.Now()

	headers := []string{
		"",
		"t=abc,v1=deadbeef",
		"v1=deadbeef",
		"t=" + strconv.FormatInt(now.Unix(), 10),
		"garbage",
	}
	for _, header := range headers {
		_, err := constructEvent(payload, header, testSecret, now)
		assert.ErrorIs(t, err, ErrInvalidSignature, "header %q", header)
	}
}

func TestConstructEvent_SecondSignatureAccepted(t *testing.T) {
	// During secret rotation Stripe sends multiple v1 entries; any one
	// matching is enough.
	payload := []byte(`{"type": "x"}`)
	now := time.Now()
	good := sign(payload, testSecret, now)
	_, goodSig, found := strings.Cut(good, ",")
	require.True(t, found)

	header := fmt.Sprintf("t=%d,v1=%s,%s", now.Unix(), hex.EncodeToString([]byte("wrong")), goodSig)

	_, err := constructEvent(payload, header, testSecret, now)
	assert.NoError(t, err)
}

func TestConstructEvent_UnparseablePayload(t *testing.T) {
	payload := []byte(`{not json`)
	now := time.Now()

	_, err := constructEvent(payload, sign(payload, testSecret, now), testSecret, now)

	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestCreateCheckoutSession_SendsFormAndParsesResponse(t *testing.T) {
	var gotForm map[string]string
	var gotAuthUser string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/checkout/sessions", r.URL.Path)
		gotAuthUser, _, _ = r.BasicAuth()

		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "cs_test_99", "payment_intent": "pi_99", "amount_total": 399}`)
	}))
	defer server.Close()

	client := NewStripeClient("sk_test_key", testSecret)
	client.baseURL = server.URL

	session, err := client.CreateCheckoutSession(context.Background(), "price_abc", "u1", "fox@example.com", "http://localhost:3000")

	require.NoError(t, err)
	assert.Equal(t, "cs_test_99", session.ID)
	assert.Equal(t, "pi_99", session.PaymentIntent)

	assert.Equal(t, "sk_test_key", gotAuthUser)
	assert.Equal(t, "price_abc", gotForm["line_items[0][price]"])
	assert.Equal(t, "payment", gotForm["mode"])
	assert.Equal(t, "u1", gotForm["client_reference_id"])
	assert.Equal(t, "u1", gotForm["metadata[user_id]"])
	assert.Equal(t, "fox@example.com", gotForm["metadata[email]"])
	assert.Contains(t, gotForm["success_url"], "{CHECKOUT_SESSION_ID}")
}

func TestCreateCheckoutSession_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error": {"message": "Your card was declined."}}`)
	}))
	defer server.Close()

	client := NewStripeClient("sk_test_key", testSecret)
	client.baseURL = server.URL

	_, err := client.CreateCheckoutSession(context.Background(), "price_abc", "u1", "", "http://localhost:3000")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.Status)
}
