package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storyfairy/storyfairy-api/internal/models"
	"github.com/storyfairy/storyfairy-api/internal/store"
)

//
// --- Story HTTP Handlers ---
//

// GenerateStoryInput is the JSON body for POST /v1/stories.
// Topic may be empty for a surprise story.
type GenerateStoryInput struct {
	Topic       string `json:"topic"`
	StoryLength string `json:"storyLength"`
	StoryStyle  string `json:"storyStyle"`
}

// GenerateStory deducts the story's credit cost, generates the story,
// and persists it. If generation or persistence fails after the
// deduction, the cost is refunded.
func (h *Handlers) GenerateStory(c *gin.Context) {
	uid := userID(c)

	var input GenerateStoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if input.StoryLength == "" {
		input.StoryLength = "short"
	}
	if input.StoryStyle == "" {
		input.StoryStyle = "adventure"
	}

	cost, ok := models.StoryCreditCosts[input.StoryLength]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid story length"})
		return
	}

	balance, err := h.Credits.Deduct(c.Request.Context(), uid, cost, "Story generation")
	if err != nil {
		h.creditError(c, err, "Failed to deduct credits")
		return
	}

	generated, err := h.AI.GenerateStory(c.Request.Context(), input.Topic, input.StoryLength, input.StoryStyle)
	if err != nil {
		h.Log.Error("story generation failed", zap.String("userId", uid), zap.Error(err))
		balance = h.refund(c, uid, cost, "Refund - story generation failed", balance)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Story generation failed"})
		return
	}

	story := &models.Story{
		ID:        uuid.NewString(),
		UserID:    uid,
		Title:     generated.Title,
		Topic:     input.Topic,
		Length:    input.StoryLength,
		Style:     input.StoryStyle,
		Sentences: generated.Sentences,
		CreatedAt: time.Now(),
	}
	if err := h.Stories.CreateStory(c.Request.Context(), story); err != nil {
		h.Log.Error("story save failed", zap.String("userId", uid), zap.Error(err))
		h.refund(c, uid, cost, "Refund - story save failed", balance)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save story"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"story":   story,
		"credits": balance,
	})
}

// refund returns the story cost after a post-deduction failure. The
// request context may already be cancelled, so the refund runs on a
// detached context; losing it would strand the user's credits.
func (h *Handlers) refund(c *gin.Context, uid string, cost int64, reason string, fallback int64) int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	balance, err := h.Credits.Refund(ctx, uid, cost, reason)
	if err != nil {
		h.Log.Error("refund failed", zap.String("userId", uid), zap.Int64("cost", cost), zap.Error(err))
		return fallback
	}
	return balance
}

// GetUserStories is the handler for GET /v1/stories.
func (h *Handlers) GetUserStories(c *gin.Context) {
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	if err != nil || pageSize <= 0 {
		pageSize = 10
	}

	stories, err := h.Stories.ListUserStories(c.Request.Context(), userID(c), pageSize)
	if err != nil {
		h.Log.Error("list stories failed", zap.String("userId", userID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve stories"})
		return
	}
	if stories == nil {
		stories = []models.StorySummary{}
	}

	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

// GetStory is the handler for GET /v1/stories/:id.
func (h *Handlers) GetStory(c *gin.Context) {
	story, err := h.Stories.GetStory(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Story not found"})
			return
		}
		h.Log.Error("get story failed", zap.String("userId", userID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve story"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"story": story})
}

// DeleteStory is the handler for DELETE /v1/stories/:id. Ownership is
// part of the delete predicate, so another user's story id reads as
// not-found rather than forbidden.
func (h *Handlers) DeleteStory(c *gin.Context) {
	err := h.Stories.DeleteStory(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Story not found or unauthorized"})
			return
		}
		h.Log.Error("delete story failed", zap.String("userId", userID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete story"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Story deleted successfully"})
}
