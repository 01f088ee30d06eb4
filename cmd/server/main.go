package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Finn35/runnmate-server/internal/api"
	"github.com/Finn35/runnmate-server/internal/api/handlers"
	"github.com/Finn35/runnmate-server/internal/api/middleware"
	"github.com/Finn35/runnmate-server/internal/config"
	"github.com/Finn35/runnmate-server/internal/email"
	"github.com/Finn35/runnmate-server/internal/identity"
	"github.com/Finn35/runnmate-server/internal/logging"
	"github.com/Finn35/runnmate-server/internal/metrics"
	"github.com/Finn35/runnmate-server/internal/repositories"
	"github.com/Finn35/runnmate-server/internal/secrets"
	"github.com/Finn35/runnmate-server/internal/strava"
)

// @title Runnmate API
// @version 1.0
// @description Second-hand running shoe marketplace with magic-link auth and Strava runner verification.
// @BasePath /api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := repositories.Connect(cfg.DBURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	cipher, err := secrets.NewTokenCipher(cfg.EncryptionSecret)
	if err != nil {
		logger.Fatal("token cipher init failed", zap.Error(err))
	}

	users := repositories.NewUserStore(db)
	verifications := repositories.NewVerificationStore(db)
	listings := repositories.NewListingStore(db)
	offers := repositories.NewOfferStore(db)
	lottery := repositories.NewLotteryStore(db)
	images := repositories.NewImageStore(cfg.R2)

	provider := identity.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	mailer := email.NewClient(cfg.ResendAPIKey)
	stravaService := strava.NewService(
		strava.NewClient(cfg.Strava.ClientID, cfg.Strava.ClientSecret, cfg.Strava.RedirectURL),
		verifications,
		cipher,
		logger,
	)

	// One magic link per address per minute, with a small burst for resends.
	magicLinkLimiter := middleware.NewEmailRateLimiter(time.Minute, 3)
	defer magicLinkLimiter.Stop()

	handler := api.SetupRouter(api.Deps{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),

		Auth: handlers.NewAuthHandler(
			provider, mailer, users, magicLinkLimiter, logger,
			cfg.SiteURL, cfg.JWTSecret, cfg.EmailFrom, cfg.Environment,
		),
		Strava:  handlers.NewStravaHandler(stravaService, mailer, logger, cfg.SiteURL, cfg.EmailFrom),
		Listing: handlers.NewListingHandler(listings, images, logger),
		Offer:   handlers.NewOfferHandler(listings, offers, mailer, logger, cfg.EmailFrom),
		Contact: handlers.NewContactHandler(mailer, logger, cfg.EmailFrom, cfg.AdminEmail),
		Lottery: handlers.NewLotteryHandler(lottery, mailer, logger, cfg.EmailFrom),
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: handler,
		// Timeouts prevent resource exhaustion from slow clients
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("starting runnmate server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.Bool("maintenance", cfg.MaintenanceMode),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
