package api

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/Finn35/runnmate-server/docs"

	"github.com/Finn35/runnmate-server/internal/api/handlers"
	"github.com/Finn35/runnmate-server/internal/api/middleware"
	"github.com/Finn35/runnmate-server/internal/config"
	"github.com/Finn35/runnmate-server/internal/metrics"
)

// Deps is everything the router wires together. All dependencies are
// constructed in main and passed in; nothing here reaches for globals.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Auth    *handlers.AuthHandler
	Strava  *handlers.StravaHandler
	Listing *handlers.ListingHandler
	Offer   *handlers.OfferHandler
	Contact *handlers.ContactHandler
	Lottery *handlers.LotteryHandler
}

func SetupRouter(deps Deps) http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(deps.Config.CorsConfig)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.Handle("GET /metrics", deps.Metrics.Handler())
	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	apiMux := http.NewServeMux()

	apiMux.HandleFunc("POST /auth/magic-link", deps.Auth.MagicLink)
	apiMux.HandleFunc("GET /auth/callback", deps.Auth.Callback)
	apiMux.HandleFunc("POST /auth/logout", deps.Auth.Logout)

	apiMux.HandleFunc("POST /contact", deps.Contact.Contact)
	apiMux.HandleFunc("POST /lottery-signup", deps.Lottery.Signup)
	apiMux.HandleFunc("POST /send-offer", deps.Offer.SendOffer)

	apiMux.HandleFunc("GET /listings", deps.Listing.List)
	apiMux.HandleFunc("GET /listings/{id}", deps.Listing.Get)

	// The Strava redirect arrives without a session cookie; the state
	// parameter carries the user binding instead.
	apiMux.HandleFunc("GET /strava/callback", deps.Strava.Callback)

	// ---------- PROTECTED ROUTES ----------
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /listings", deps.Listing.Create)
	protectedMux.HandleFunc("POST /listings/images/presign", deps.Listing.PresignImage)
	protectedMux.HandleFunc("POST /listings/images/confirm", deps.Listing.ConfirmImage)
	protectedMux.HandleFunc("GET /strava/auth", deps.Strava.Auth)
	protectedMux.HandleFunc("POST /strava/refresh", deps.Strava.Refresh)
	protectedMux.HandleFunc("POST /strava/disconnect", deps.Strava.Disconnect)
	protectedMux.HandleFunc("POST /strava/test", deps.Strava.Test)

	authRequired := middleware.Auth(deps.Config.JWTSecret)
	apiMux.Handle("/", authRequired(protectedMux))

	maintenance := middleware.Maintenance(deps.Config.MaintenanceMode)
	mainMux.Handle("/api/v1/",
		http.StripPrefix("/api/v1", maintenance(apiMux)),
	)

	handler := c.Handler(mainMux)
	handler = deps.Metrics.Middleware(handler)
	handler = middleware.Logger(deps.Logger)(handler)
	return handler
}
