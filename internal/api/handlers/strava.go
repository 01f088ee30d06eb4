package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Finn35/runnmate-server/internal/api/middleware"
	"github.com/Finn35/runnmate-server/internal/email"
	"github.com/Finn35/runnmate-server/internal/strava"
	"github.com/Finn35/runnmate-server/internal/utils"
)

// StravaHandler exposes the fitness-verification OAuth bridge.
type StravaHandler struct {
	svc       *strava.Service
	mailer    email.Mailer
	logger    *zap.Logger
	siteURL   string
	emailFrom string
}

func NewStravaHandler(svc *strava.Service, mailer email.Mailer, logger *zap.Logger, siteURL, emailFrom string) *StravaHandler {
	return &StravaHandler{
		svc:       svc,
		mailer:    mailer,
		logger:    logger,
		siteURL:   siteURL,
		emailFrom: emailFrom,
	}
}

// GET /api/v1/strava/auth
func (h *StravaHandler) Auth(w http.ResponseWriter, r *http.Request) {
	userEmail := middleware.UserEmail(r.Context())

	authURL, err := h.svc.AuthorizeURL(userEmail)
	if err != nil {
		h.logger.Error("building authorize url failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "authorize_failed")
		return
	}
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// GET /api/v1/strava/callback
//
// Browser-navigated. Failures redirect back to the profile page with a
// distinguishable error code so the user-facing flow stays diagnosable.
func (h *StravaHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	lang := r.URL.Query().Get("lang")

	verification, err := h.svc.HandleCallback(r.Context(), code, state)
	if err != nil {
		http.Redirect(w, r, h.siteURL+"/profile?error="+callbackErrorCode(err), http.StatusTemporaryRedirect)
		return
	}

	// Confirmation mail is a courtesy; the verification itself already stuck.
	subject, html := email.VerificationEmail(lang, verification.AthleteName, verification.TotalDistanceKm, verification.ActivityCount)
	err = h.mailer.Send(r.Context(), email.Message{
		From:    h.emailFrom,
		To:      []string{verification.Email},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		h.logger.Warn("verification confirmation email failed", zap.Error(err))
	}

	http.Redirect(w, r, h.siteURL+"/profile?verified=true", http.StatusTemporaryRedirect)
}

func callbackErrorCode(err error) string {
	switch {
	case errors.Is(err, strava.ErrMissingCode):
		return "missing_code"
	case errors.Is(err, strava.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, strava.ErrMissingEmail):
		return "missing_email"
	case errors.Is(err, strava.ErrTokenExchange):
		return "token_exchange_failed"
	default:
		return "verification_failed"
	}
}

// POST /api/v1/strava/refresh
func (h *StravaHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userEmail := middleware.UserEmail(r.Context())

	refreshed, err := h.svc.Refresh(r.Context(), userEmail)
	if err != nil {
		if errors.Is(err, strava.ErrNotVerified) {
			utils.JSONError(w, http.StatusNotFound, "not_verified")
			return
		}
		h.logger.Error("token refresh failed", zap.String("email", userEmail), zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "refresh_failed")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data:    map[string]any{"refreshed": refreshed},
	})
}

// POST /api/v1/strava/disconnect
func (h *StravaHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userEmail := middleware.UserEmail(r.Context())

	if err := h.svc.Disconnect(r.Context(), userEmail); err != nil {
		if errors.Is(err, strava.ErrNotVerified) {
			utils.JSONError(w, http.StatusNotFound, "not_verified")
			return
		}
		h.logger.Error("disconnect failed", zap.String("email", userEmail), zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "disconnect_failed")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Strava disconnected",
	})
}

// POST /api/v1/strava/test
//
// Diagnostic: decrypts the stored token, calls the provider, and updates the
// cached statistics.
func (h *StravaHandler) Test(w http.ResponseWriter, r *http.Request) {
	userEmail := middleware.UserEmail(r.Context())

	verification, err := h.svc.TestConnection(r.Context(), userEmail)
	if err != nil {
		if errors.Is(err, strava.ErrNotVerified) {
			utils.JSONError(w, http.StatusNotFound, "not_verified")
			return
		}
		h.logger.Error("strava test failed", zap.String("email", userEmail), zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "test_failed")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Data: map[string]any{
			"athleteName":     verification.AthleteName,
			"totalDistanceKm": verification.TotalDistanceKm,
			"activityCount":   verification.ActivityCount,
			"tokenExpiresAt":  verification.TokenExpiresAt,
		},
	})
}
