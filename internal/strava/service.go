package strava

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Finn35/runnmate-server/internal/models"
	"github.com/Finn35/runnmate-server/internal/secrets"
)

// RefreshBuffer is the safety margin before token expiry at which a refresh
// is performed instead of skipped.
const RefreshBuffer = 5 * time.Minute

// Sentinel errors the HTTP layer maps to the user-facing redirect error codes.
var (
	ErrMissingCode   = errors.New("strava: missing authorization code")
	ErrInvalidState  = errors.New("strava: invalid state")
	ErrMissingEmail  = errors.New("strava: state carries no email")
	ErrTokenExchange = errors.New("strava: token exchange failed")
	ErrNotVerified   = errors.New("strava: no active verification")
)

// VerificationStore persists verification records. Implemented by
// repositories.VerificationStore; faked in tests.
type VerificationStore interface {
	Upsert(ctx context.Context, v *models.StravaVerification) error
	FindActiveByEmail(ctx context.Context, email string) (*models.StravaVerification, error)
	UpdateTokens(ctx context.Context, email string, access, refresh secrets.EncryptedToken, expiresAt time.Time) error
	UpdateStats(ctx context.Context, email string, totalKm, activities int) error
	Deactivate(ctx context.Context, email string, at time.Time) error
}

// Service is the OAuth bridge: authorize, exchange, enrich, persist, refresh,
// disconnect.
type Service struct {
	api    API
	store  VerificationStore
	cipher *secrets.TokenCipher
	logger *zap.Logger

	// Coalesces concurrent refreshes per user so two racing callers cannot
	// overwrite each other's rotated token pair.
	refreshGroup singleflight.Group
}

func NewService(api API, store VerificationStore, cipher *secrets.TokenCipher, logger *zap.Logger) *Service {
	return &Service{
		api:    api,
		store:  store,
		cipher: cipher,
		logger: logger,
	}
}

// AuthorizeURL builds the provider authorization URL with a state parameter
// bound to the initiating user.
func (s *Service) AuthorizeURL(email string) (string, error) {
	state, err := EncodeState(email)
	if err != nil {
		return "", err
	}
	return s.api.AuthCodeURL(state), nil
}

// TotalDistanceKm sums the all-time and recent run distances (meters) and
// rounds to whole kilometers.
func TotalDistanceKm(stats *Stats) int {
	meters := stats.AllRunTotals.Distance + stats.RecentRunTotals.Distance
	return int(math.Round(meters / 1000))
}

// HandleCallback processes the OAuth redirect: validates the state, exchanges
// the code, enriches with athlete and statistics data, and upserts the
// verification record keyed by email. Tokens are encrypted before they are
// written.
func (s *Service) HandleCallback(ctx context.Context, code, state string) (*models.StravaVerification, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	email, err := DecodeState(state)
	if err != nil {
		if errors.Is(err, ErrMissingEmail) {
			return nil, ErrMissingEmail
		}
		s.logger.Warn("rejecting oauth callback state", zap.Error(err))
		return nil, ErrInvalidState
	}

	token, err := s.api.Exchange(ctx, code)
	if err != nil || token.AccessToken == "" {
		s.logger.Error("token exchange failed", zap.Error(err))
		return nil, ErrTokenExchange
	}

	athlete, err := s.api.Athlete(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetching athlete: %w", err)
	}
	stats, err := s.api.Stats(ctx, token.AccessToken, athlete.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching athlete stats: %w", err)
	}

	encAccess, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting access token: %w", err)
	}
	encRefresh, err := s.cipher.Encrypt(token.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting refresh token: %w", err)
	}

	verification := &models.StravaVerification{
		Email:           email,
		AthleteID:       athlete.ID,
		AthleteName:     athlete.DisplayName(),
		AccessToken:     encAccess.Ciphertext,
		AccessTokenIV:   encAccess.IV,
		AccessTokenTag:  encAccess.AuthTag,
		RefreshToken:    encRefresh.Ciphertext,
		RefreshTokenIV:  encRefresh.IV,
		RefreshTokenTag: encRefresh.AuthTag,
		TokenExpiresAt:  token.Expiry,
		TotalDistanceKm: TotalDistanceKm(stats),
		ActivityCount:   stats.AllRunTotals.Count,
		IsActive:        true,
		VerifiedAt:      time.Now(),
		DisconnectedAt:  nil,
	}

	if err := s.store.Upsert(ctx, verification); err != nil {
		return nil, fmt.Errorf("storing verification: %w", err)
	}

	s.logger.Info("strava verification stored",
		zap.String("email", email),
		zap.Int64("athlete_id", athlete.ID),
		zap.Int("total_km", verification.TotalDistanceKm),
	)
	return verification, nil
}

// Refresh renews the stored token pair when it expires within RefreshBuffer.
// Returns false when the current token is still comfortably valid. Concurrent
// calls for the same email coalesce into one refresh.
func (s *Service) Refresh(ctx context.Context, email string) (bool, error) {
	verification, err := s.store.FindActiveByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if time.Until(verification.TokenExpiresAt) > RefreshBuffer {
		return false, nil
	}

	_, err, _ = s.refreshGroup.Do(email, func() (any, error) {
		return nil, s.doRefresh(ctx, email)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) doRefresh(ctx context.Context, email string) error {
	// Re-read inside the flight: a coalesced caller may arrive after the
	// winner already rotated the pair.
	verification, err := s.store.FindActiveByEmail(ctx, email)
	if err != nil {
		return err
	}
	if time.Until(verification.TokenExpiresAt) > RefreshBuffer {
		return nil
	}

	refreshToken, err := s.cipher.Decrypt(secrets.EncryptedToken{
		Ciphertext: verification.RefreshToken,
		IV:         verification.RefreshTokenIV,
		AuthTag:    verification.RefreshTokenTag,
	})
	if err != nil {
		return fmt.Errorf("decrypting refresh token: %w", err)
	}

	token, err := s.api.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}

	encAccess, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypting access token: %w", err)
	}
	newRefresh := token.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	encRefresh, err := s.cipher.Encrypt(newRefresh)
	if err != nil {
		return fmt.Errorf("encrypting refresh token: %w", err)
	}

	if err := s.store.UpdateTokens(ctx, email, encAccess, encRefresh, token.Expiry); err != nil {
		return fmt.Errorf("storing refreshed tokens: %w", err)
	}

	s.logger.Info("strava tokens refreshed", zap.String("email", email))
	return nil
}

// Disconnect revokes the access token with the provider (best effort) and
// deactivates the local record. The user's intent to disconnect is never
// blocked by an unreachable third party.
func (s *Service) Disconnect(ctx context.Context, email string) error {
	verification, err := s.store.FindActiveByEmail(ctx, email)
	if err != nil {
		return err
	}

	accessToken, err := s.cipher.Decrypt(secrets.EncryptedToken{
		Ciphertext: verification.AccessToken,
		IV:         verification.AccessTokenIV,
		AuthTag:    verification.AccessTokenTag,
	})
	if err == nil {
		if revokeErr := s.api.Revoke(ctx, accessToken); revokeErr != nil {
			s.logger.Warn("strava revoke failed, deactivating locally anyway",
				zap.String("email", email), zap.Error(revokeErr))
		}
	} else {
		s.logger.Warn("could not decrypt access token for revoke",
			zap.String("email", email), zap.Error(err))
	}

	return s.store.Deactivate(ctx, email, time.Now())
}

// TestConnection decrypts the stored access token, calls the provider, and
// updates the cached distance and activity statistics. Diagnostic endpoint
// behind it.
func (s *Service) TestConnection(ctx context.Context, email string) (*models.StravaVerification, error) {
	verification, err := s.store.FindActiveByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.cipher.Decrypt(secrets.EncryptedToken{
		Ciphertext: verification.AccessToken,
		IV:         verification.AccessTokenIV,
		AuthTag:    verification.AccessTokenTag,
	})
	if err != nil {
		return nil, fmt.Errorf("decrypting access token: %w", err)
	}

	athlete, err := s.api.Athlete(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("fetching athlete: %w", err)
	}
	stats, err := s.api.Stats(ctx, accessToken, athlete.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching athlete stats: %w", err)
	}

	totalKm := TotalDistanceKm(stats)
	if err := s.store.UpdateStats(ctx, email, totalKm, stats.AllRunTotals.Count); err != nil {
		return nil, fmt.Errorf("updating stats: %w", err)
	}

	verification.TotalDistanceKm = totalKm
	verification.ActivityCount = stats.AllRunTotals.Count
	return verification, nil
}
