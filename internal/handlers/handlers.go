package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storyfairy/storyfairy-api/internal/ai"
	"github.com/storyfairy/storyfairy-api/internal/billing"
	"github.com/storyfairy/storyfairy-api/internal/config"
	"github.com/storyfairy/storyfairy-api/internal/credits"
	"github.com/storyfairy/storyfairy-api/internal/store"
)

// StoryGenerator is what the handlers need from the AI package.
type StoryGenerator interface {
	GenerateStory(ctx context.Context, topic, length, style string) (*ai.GeneratedStory, error)
}

// Handlers holds all dependencies for the HTTP layer.
type Handlers struct {
	Credits *credits.Service
	Stories store.StoryStore
	AI      StoryGenerator
	Stripe  *billing.StripeClient
	Config  *config.Config
	Log     *zap.Logger
}

// userID returns the verified user id set by the auth middleware.
func userID(c *gin.Context) string {
	id, _ := c.Get("userID")
	s, _ := id.(string)
	return s
}
