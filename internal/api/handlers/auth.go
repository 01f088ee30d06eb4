package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Finn35/runnmate-server/internal/api/middleware"
	"github.com/Finn35/runnmate-server/internal/email"
	"github.com/Finn35/runnmate-server/internal/identity"
	"github.com/Finn35/runnmate-server/internal/models"
	"github.com/Finn35/runnmate-server/internal/repositories"
	"github.com/Finn35/runnmate-server/internal/utils"
)

const sessionTTL = 24 * time.Hour

// AuthHandler owns the passwordless sign-in flow: issuing rewritten magic
// links over branded email and verifying the one-time token on callback.
type AuthHandler struct {
	provider    identity.Provider
	mailer      email.Mailer
	users       *repositories.UserStore
	limiter     *middleware.EmailRateLimiter
	logger      *zap.Logger
	siteURL     string
	jwtSecret   string
	emailFrom   string
	environment string
}

func NewAuthHandler(
	provider identity.Provider,
	mailer email.Mailer,
	users *repositories.UserStore,
	limiter *middleware.EmailRateLimiter,
	logger *zap.Logger,
	siteURL, jwtSecret, emailFrom, environment string,
) *AuthHandler {
	return &AuthHandler{
		provider:    provider,
		mailer:      mailer,
		users:       users,
		limiter:     limiter,
		logger:      logger,
		siteURL:     siteURL,
		jwtSecret:   jwtSecret,
		emailFrom:   emailFrom,
		environment: environment,
	}
}

// POST /api/v1/auth/magic-link
// MagicLink godoc
// @Summary Request a magic sign-in link
// @Description Generates a one-time sign-in link and emails it with Runnmate branding.
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Failure 500 {object} utils.Payload
// @Router /api/v1/auth/magic-link [post]
func (h *AuthHandler) MagicLink(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email       string `json:"email"`
		Destination string `json:"destination"`
		Language    string `json:"language"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid_input")
		return
	}
	if input.Email == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing_email")
		return
	}

	if !h.limiter.Allow(input.Email) {
		utils.JSONError(w, http.StatusTooManyRequests, "rate_limited")
		return
	}

	actionLink, err := h.provider.GenerateMagicLink(r.Context(), input.Email, h.siteURL+"/auth/callback")
	if err != nil {
		h.logger.Error("magic link generation failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "link_generation_failed")
		return
	}

	callbackURL, err := identity.RewriteActionLink(actionLink, h.siteURL, input.Destination)
	if err != nil {
		// The provider handed back a link without a token; nothing sane to email.
		h.logger.Error("action link rewrite failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "link_rewrite_failed")
		return
	}

	subject, html := email.MagicLinkEmail(input.Language, callbackURL)
	err = h.mailer.Send(r.Context(), email.Message{
		From:    h.emailFrom,
		To:      []string{input.Email},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		h.logger.Error("magic link email failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "email_failed")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Magic link sent",
	})
}

// GET /api/v1/auth/callback
//
// Browser-navigated: verifies the one-time token, sets the session cookie,
// and redirects to the original destination. Failures redirect to the login
// page with an error code rather than rendering JSON.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	tokenType := r.URL.Query().Get("type")
	returnTo := r.URL.Query().Get("returnTo")

	if token == "" {
		http.Redirect(w, r, h.siteURL+"/login?error=missing_token", http.StatusTemporaryRedirect)
		return
	}
	if tokenType == "" {
		tokenType = "magiclink"
	}

	session, err := h.provider.VerifyToken(r.Context(), token, tokenType)
	if err != nil {
		h.logger.Warn("token verification failed", zap.Error(err))
		http.Redirect(w, r, h.siteURL+"/login?error=verification_failed", http.StatusTemporaryRedirect)
		return
	}

	// The account exists from the first verified sign-in onward. A failed
	// write is logged, not surfaced: the session cookie is the source of
	// truth for the browser.
	err = h.users.Upsert(r.Context(), &models.User{
		Email: session.User.Email,
		Name:  session.User.UserMetadata.Name,
	})
	if err != nil {
		h.logger.Error("user upsert failed", zap.String("email", session.User.Email), zap.Error(err))
	}

	if err := h.setSessionCookie(w, session.User.Email, session.User.UserMetadata.Name); err != nil {
		h.logger.Error("session cookie failed", zap.Error(err))
		http.Redirect(w, r, h.siteURL+"/login?error=session_failed", http.StatusTemporaryRedirect)
		return
	}

	// Only same-site relative destinations; anything else falls back to browse.
	if returnTo == "" || !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") {
		returnTo = "/browse"
	}
	http.Redirect(w, r, h.siteURL+returnTo, http.StatusTemporaryRedirect)
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	isProd := h.environment == "production"

	// maxAge < 0 deletes the cookie
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   isProd,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Logged out successfully",
	})
}

type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, userEmail, name string) error {
	expiration := time.Now().Add(sessionTTL)
	claims := &sessionClaims{
		Email: userEmail,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
	if err != nil {
		return err
	}

	isProd := h.environment == "production"
	sameSite := http.SameSiteLaxMode
	if isProd {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    tokenString,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		Secure:   isProd,
		HttpOnly: true,
		SameSite: sameSite,
	})
	return nil
}
