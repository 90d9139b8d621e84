package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storyfairy/storyfairy-api/internal/credits"
	"github.com/storyfairy/storyfairy-api/internal/models"
	"github.com/storyfairy/storyfairy-api/internal/pdf"
)

//
// --- Credit HTTP Handlers ---
//

// GetUserCredits is the handler for GET /v1/credits.
// First contact provisions the user with the free-tier grant.
func (h *Handlers) GetUserCredits(c *gin.Context) {
	balance, err := h.Credits.GetBalance(c.Request.Context(), userID(c))
	if err != nil {
		h.Log.Error("get balance failed", zap.String("userId", userID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user credits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"credits": balance})
}

// AddCreditsInput is the JSON body for POST /v1/credits/add.
type AddCreditsInput struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
}

// AddCredits is the handler for POST /v1/credits/add.
func (h *Handlers) AddCredits(c *gin.Context) {
	var input AddCreditsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}

	description := input.Description
	if description == "" {
		description = "Credit purchase"
	}

	balance, err := h.Credits.Add(c.Request.Context(), userID(c), input.Amount, description, input.Reference)
	if err != nil {
		h.creditError(c, err, "Failed to add credits")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"credits": balance,
		"message": "Credits added successfully",
	})
}

// DeductCreditsInput is the JSON body for POST /v1/credits/deduct.
type DeductCreditsInput struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description"`
}

// DeductCredits is the handler for POST /v1/credits/deduct.
func (h *Handlers) DeductCredits(c *gin.Context) {
	var input DeductCreditsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}

	description := input.Description
	if description == "" {
		description = "Credit deduction"
	}

	balance, err := h.Credits.Deduct(c.Request.Context(), userID(c), input.Amount, description)
	if err != nil {
		h.creditError(c, err, "Failed to deduct credits")
		return
	}

	c.JSON(http.StatusOK, gin.H{"credits": balance})
}

// GetTransactionHistory is the handler for GET /v1/credits/history.
func (h *Handlers) GetTransactionHistory(c *gin.Context) {
	transactions, err := h.Credits.History(c.Request.Context(), userID(c))
	if err != nil {
		h.Log.Error("get history failed", zap.String("userId", userID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve transaction history"})
		return
	}
	if transactions == nil {
		transactions = []models.CreditTransaction{}
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetCreditStatement is the handler for GET /v1/credits/statement.
// It returns the ledger as a PDF download.
func (h *Handlers) GetCreditStatement(c *gin.Context) {
	uid := userID(c)

	balance, err := h.Credits.GetBalance(c.Request.Context(), uid)
	if err != nil {
		h.Log.Error("get balance failed", zap.String("userId", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate statement"})
		return
	}
	transactions, err := h.Credits.History(c.Request.Context(), uid)
	if err != nil {
		h.Log.Error("get history failed", zap.String("userId", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate statement"})
		return
	}

	data, err := pdf.RenderStatement(uid, balance, transactions)
	if err != nil {
		h.Log.Error("render statement failed", zap.String("userId", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate statement"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="storyfairy-statement.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// creditError maps ledger-service errors onto status codes. Messages
// are fixed strings; internal error text never reaches the client.
func (h *Handlers) creditError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, credits.ErrInsufficientCredits):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient credits"})
	case errors.Is(err, credits.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, credits.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
	default:
		h.Log.Error("credit operation failed", zap.String("userId", userID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
