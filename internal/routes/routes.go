package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storyfairy/storyfairy-api/internal/handlers"
	"github.com/storyfairy/storyfairy-api/internal/middleware"
)

// CORSMiddleware allows the StoryFairy frontend to call the API with
// its Authorization header.
func CORSMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers, verifier middleware.TokenValidator) *gin.Engine {
	router := gin.Default()

	router.Use(CORSMiddleware(h.Config.Stripe.FrontendBaseURL))

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Stripe Webhook (Public, signature-verified) ---
		v1.POST("/stripe/webhook", h.StripeWebhook)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(verifier))
		{
			// --- Credits ---
			auth.GET("/credits", h.GetUserCredits)
			auth.POST("/credits/add", h.AddCredits)
			auth.POST("/credits/deduct", h.DeductCredits)
			auth.GET("/credits/history", h.GetTransactionHistory)
			auth.GET("/credits/statement", h.GetCreditStatement)
			auth.POST("/credits/purchase", h.PurchaseCredits)

			// --- Stories ---
			auth.POST("/stories", h.GenerateStory)
			auth.GET("/stories", h.GetUserStories)
			auth.GET("/stories/:id", h.GetStory)
			auth.DELETE("/stories/:id", h.DeleteStory)
		}
	}

	return router
}
