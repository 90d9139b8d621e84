package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/storyfairy/storyfairy-api/internal/ai"
	"github.com/storyfairy/storyfairy-api/internal/auth"
	"github.com/storyfairy/storyfairy-api/internal/billing"
	"github.com/storyfairy/storyfairy-api/internal/config"
	"github.com/storyfairy/storyfairy-api/internal/credits"
	"github.com/storyfairy/storyfairy-api/internal/database"
	"github.com/storyfairy/storyfairy-api/internal/handlers"
	"github.com/storyfairy/storyfairy-api/internal/logger"
	"github.com/storyfairy/storyfairy-api/internal/models"
	"github.com/storyfairy/storyfairy-api/internal/routes"
	"github.com/storyfairy/storyfairy-api/internal/store"
)

func main() {
	// --- Environment & Configuration ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.Init(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	// --- Database Connection ---
	db, err := database.Open(cfg.MySQL.DSN)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	st := store.NewMySQLStore(db)

	// --- Identity Verification ---
	verifier, err := auth.NewVerifier(cfg.B2C)
	if err != nil {
		zl.Fatal("failed to initialize token verifier", zap.Error(err))
	}

	// --- Story Generation ---
	storyService, err := ai.NewStoryService(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		zl.Fatal("failed to initialize story service", zap.Error(err))
	}
	defer storyService.Close()

	// --- Application Setup ---
	app := &handlers.Handlers{
		Credits: credits.NewService(st, zl),
		Stories: st,
		AI:      storyService,
		Stripe:  billing.NewStripeClient(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret),
		Config:  cfg,
		Log:     zl,
	}

	// --- Background Worker ---
	// Hourly sweep over the ledger-sum invariant. A balance write whose
	// transaction append was lost shows up here; the sweep reports and
	// leaves the repair to an operator.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		zl.Info("ledger audit worker started")
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			mismatches, err := st.AuditBalances(ctx, models.InitialCredits)
			cancel()
			if err != nil {
				zl.Error("ledger audit failed", zap.Error(err))
				continue
			}
			for _, m := range mismatches {
				zl.Error("ledger sum mismatch",
					zap.String("userId", m.UserID),
					zap.Int64("credits", m.Credits),
					zap.Int64("expected", m.Expected))
			}
		}
	}()

	// --- Router & Server ---
	router := routes.SetupRouter(app, verifier)

	zl.Info("starting StoryFairy API server", zap.String("addr", cfg.Server.Addr()))
	if err := router.Run(cfg.Server.Addr()); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}
