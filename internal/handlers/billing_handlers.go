package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storyfairy/storyfairy-api/internal/billing"
	"github.com/storyfairy/storyfairy-api/internal/models"
)

//
// --- Billing HTTP Handlers ---
//

// PurchaseCreditsInput is the JSON body for POST /v1/credits/purchase.
// PackageID accepts either one of our package ids ("basic", "popular",
// "premium") or a raw Stripe price id.
type PurchaseCreditsInput struct {
	PackageID string `json:"packageId" binding:"required"`
}

// PurchaseCredits starts a Stripe checkout session for a credit pack
// and returns the session id for the frontend redirect.
func (h *Handlers) PurchaseCredits(c *gin.Context) {
	var input PurchaseCreditsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Package ID is required"})
		return
	}

	priceID := input.PackageID
	for _, p := range models.CreditPackages {
		if p.ID == input.PackageID {
			priceID = p.StripePriceID
			break
		}
	}

	session, err := h.Stripe.CreateCheckoutSession(
		c.Request.Context(), priceID, userID(c), "", h.Config.Stripe.FrontendBaseURL,
	)
	if err != nil {
		h.Log.Error("create checkout session failed", zap.String("userId", userID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start checkout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": session.ID})
}

// StripeWebhook is the handler for POST /v1/stripe/webhook. It is the
// only unauthenticated write endpoint; the webhook signature is the
// authentication. A completed checkout session credits the buyer,
// keyed on the payment intent so redelivered events are no-ops.
func (h *Handlers) StripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	event, err := h.Stripe.ConstructEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.Log.Warn("webhook rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	if event.Type == "checkout.session.completed" {
		var session billing.CheckoutSession
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
			return
		}

		uid := session.Metadata["user_id"]
		if uid == "" {
			uid = session.ClientReferenceID
		}
		creditAmount := models.CreditsForAmount(session.AmountTotal)

		if uid == "" || creditAmount == 0 {
			// Cannot attribute the payment to a user or a package. Accept
			// the delivery (retries will not help) but flag it loudly.
			h.Log.Error("unattributable checkout session",
				zap.String("sessionId", session.ID),
				zap.Int64("amountTotal", session.AmountTotal))
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		description := fmt.Sprintf("Credit purchase - $%.2f", float64(session.AmountTotal)/100)
		_, err := h.Credits.Add(c.Request.Context(), uid, creditAmount, description, session.PaymentIntent)
		if err != nil {
			// Non-2xx makes Stripe redeliver; the reference dedup makes the
			// retry safe even if the balance write already happened.
			h.Log.Error("webhook credit failed",
				zap.String("userId", uid),
				zap.String("paymentIntent", session.PaymentIntent),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add credits"})
			return
		}

		h.Log.Info("credited purchase",
			zap.String("userId", uid),
			zap.Int64("credits", creditAmount),
			zap.String("paymentIntent", session.PaymentIntent))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
