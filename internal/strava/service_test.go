package strava

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/Finn35/runnmate-server/internal/models"
	"github.com/Finn35/runnmate-server/internal/secrets"
)

// fakeAPI is an in-memory stand-in for the Strava endpoints.
type fakeAPI struct {
	exchangeToken *oauth2.Token
	exchangeErr   error
	refreshToken  *oauth2.Token
	refreshErr    error
	refreshCalls  int
	athlete       Athlete
	stats         Stats
	revokeErr     error
	revokeCalls   int
}

func (f *fakeAPI) AuthCodeURL(state string) string {
	return "https://www.strava.com/oauth/authorize?state=" + state
}

func (f *fakeAPI) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangeToken, nil
}

func (f *fakeAPI) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshToken, nil
}

func (f *fakeAPI) Athlete(ctx context.Context, accessToken string) (*Athlete, error) {
	return &f.athlete, nil
}

func (f *fakeAPI) Stats(ctx context.Context, accessToken string, athleteID int64) (*Stats, error) {
	return &f.stats, nil
}

func (f *fakeAPI) Revoke(ctx context.Context, accessToken string) error {
	f.revokeCalls++
	return f.revokeErr
}

// fakeStore keeps one verification per email, mirroring the upsert semantics.
type fakeStore struct {
	records map[string]*models.StravaVerification
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*models.StravaVerification)}
}

func (f *fakeStore) Upsert(ctx context.Context, v *models.StravaVerification) error {
	copied := *v
	f.records[v.Email] = &copied
	return nil
}

func (f *fakeStore) FindActiveByEmail(ctx context.Context, email string) (*models.StravaVerification, error) {
	v, ok := f.records[email]
	if !ok || !v.IsActive {
		return nil, ErrNotVerified
	}
	copied := *v
	return &copied, nil
}

func (f *fakeStore) UpdateTokens(ctx context.Context, email string, access, refresh secrets.EncryptedToken, expiresAt time.Time) error {
	v := f.records[email]
	v.AccessToken, v.AccessTokenIV, v.AccessTokenTag = access.Ciphertext, access.IV, access.AuthTag
	v.RefreshToken, v.RefreshTokenIV, v.RefreshTokenTag = refresh.Ciphertext, refresh.IV, refresh.AuthTag
	v.TokenExpiresAt = expiresAt
	return nil
}

func (f *fakeStore) UpdateStats(ctx context.Context, email string, totalKm, activities int) error {
	v := f.records[email]
	v.TotalDistanceKm = totalKm
	v.ActivityCount = activities
	return nil
}

func (f *fakeStore) Deactivate(ctx context.Context, email string, at time.Time) error {
	v, ok := f.records[email]
	if !ok {
		return ErrNotVerified
	}
	v.IsActive = false
	v.DisconnectedAt = &at
	return nil
}

func newTestService(t *testing.T, api *fakeAPI, store *fakeStore) (*Service, *secrets.TokenCipher) {
	t.Helper()
	cipher, err := secrets.NewTokenCipher("test-secret")
	require.NoError(t, err)
	return NewService(api, store, cipher, zap.NewNop()), cipher
}

func seedVerification(t *testing.T, store *fakeStore, cipher *secrets.TokenCipher, email string, expiry time.Time) {
	t.Helper()
	access, err := cipher.Encrypt("stored-access-token")
	require.NoError(t, err)
	refresh, err := cipher.Encrypt("stored-refresh-token")
	require.NoError(t, err)
	store.records[email] = &models.StravaVerification{
		Email:           email,
		AthleteID:       42,
		AccessToken:     access.Ciphertext,
		AccessTokenIV:   access.IV,
		AccessTokenTag:  access.AuthTag,
		RefreshToken:    refresh.Ciphertext,
		RefreshTokenIV:  refresh.IV,
		RefreshTokenTag: refresh.AuthTag,
		TokenExpiresAt:  expiry,
		IsActive:        true,
		VerifiedAt:      time.Now(),
	}
}

func TestTotalDistanceKm(t *testing.T) {
	stats := &Stats{
		AllRunTotals:    RunTotals{Distance: 50000, Count: 120},
		RecentRunTotals: RunTotals{Distance: 12000, Count: 8},
	}
	assert.Equal(t, 62, TotalDistanceKm(stats))
}

func TestHandleCallback_StoresEncryptedVerification(t *testing.T) {
	api := &fakeAPI{
		exchangeToken: &oauth2.Token{
			AccessToken:  "fresh-access",
			RefreshToken: "fresh-refresh",
			Expiry:       time.Now().Add(6 * time.Hour),
		},
		athlete: Athlete{ID: 42, Firstname: "Kara", Lastname: "Visser"},
		stats: Stats{
			AllRunTotals:    RunTotals{Distance: 50000, Count: 120},
			RecentRunTotals: RunTotals{Distance: 12000, Count: 8},
		},
	}
	store := newFakeStore()
	svc, cipher := newTestService(t, api, store)

	state, err := EncodeState("a@b.com")
	require.NoError(t, err)

	v, err := svc.HandleCallback(context.Background(), "authcode", state)
	require.NoError(t, err)

	assert.Equal(t, "a@b.com", v.Email)
	assert.Equal(t, int64(42), v.AthleteID)
	assert.Equal(t, "Kara Visser", v.AthleteName)
	assert.Equal(t, 62, v.TotalDistanceKm)
	assert.Equal(t, 120, v.ActivityCount)
	assert.True(t, v.IsActive)

	stored := store.records["a@b.com"]
	require.NotNil(t, stored)
	// Tokens must not be stored in the clear.
	assert.NotEqual(t, "fresh-access", stored.AccessToken)
	plain, err := cipher.Decrypt(secrets.EncryptedToken{
		Ciphertext: stored.AccessToken, IV: stored.AccessTokenIV, AuthTag: stored.AccessTokenTag,
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", plain)
}

func TestHandleCallback_ErrorCodes(t *testing.T) {
	store := newFakeStore()

	t.Run("missing code", func(t *testing.T) {
		svc, _ := newTestService(t, &fakeAPI{}, store)
		state, _ := EncodeState("a@b.com")
		_, err := svc.HandleCallback(context.Background(), "", state)
		assert.ErrorIs(t, err, ErrMissingCode)
	})

	t.Run("invalid state", func(t *testing.T) {
		svc, _ := newTestService(t, &fakeAPI{}, store)
		_, err := svc.HandleCallback(context.Background(), "code", "garbage")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("missing email", func(t *testing.T) {
		svc, _ := newTestService(t, &fakeAPI{}, store)
		_, err := svc.HandleCallback(context.Background(), "code", stateWithoutEmail(t))
		assert.ErrorIs(t, err, ErrMissingEmail)
	})

	t.Run("exchange failure", func(t *testing.T) {
		svc, _ := newTestService(t, &fakeAPI{exchangeErr: errors.New("boom")}, store)
		state, _ := EncodeState("a@b.com")
		_, err := svc.HandleCallback(context.Background(), "code", state)
		assert.ErrorIs(t, err, ErrTokenExchange)
	})

	t.Run("empty access token", func(t *testing.T) {
		svc, _ := newTestService(t, &fakeAPI{exchangeToken: &oauth2.Token{}}, store)
		state, _ := EncodeState("a@b.com")
		_, err := svc.HandleCallback(context.Background(), "code", state)
		assert.ErrorIs(t, err, ErrTokenExchange)
	})
}

func TestRefresh_SkipsOutsideBuffer(t *testing.T) {
	api := &fakeAPI{}
	store := newFakeStore()
	svc, cipher := newTestService(t, api, store)
	seedVerification(t, store, cipher, "a@b.com", time.Now().Add(time.Hour))

	refreshed, err := svc.Refresh(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Zero(t, api.refreshCalls)
}

func TestRefresh_RotatesWithinBuffer(t *testing.T) {
	api := &fakeAPI{
		refreshToken: &oauth2.Token{
			AccessToken:  "rotated-access",
			RefreshToken: "rotated-refresh",
			Expiry:       time.Now().Add(6 * time.Hour),
		},
	}
	store := newFakeStore()
	svc, cipher := newTestService(t, api, store)
	seedVerification(t, store, cipher, "a@b.com", time.Now().Add(2*time.Minute))

	refreshed, err := svc.Refresh(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, 1, api.refreshCalls)

	stored := store.records["a@b.com"]
	plain, err := cipher.Decrypt(secrets.EncryptedToken{
		Ciphertext: stored.AccessToken, IV: stored.AccessTokenIV, AuthTag: stored.AccessTokenTag,
	})
	require.NoError(t, err)
	assert.Equal(t, "rotated-access", plain)
	assert.WithinDuration(t, api.refreshToken.Expiry, stored.TokenExpiresAt, time.Second)
}

func TestRefresh_ExpiredTokenTriggers(t *testing.T) {
	api := &fakeAPI{
		refreshToken: &oauth2.Token{
			AccessToken:  "rotated-access",
			RefreshToken: "rotated-refresh",
			Expiry:       time.Now().Add(6 * time.Hour),
		},
	}
	store := newFakeStore()
	svc, cipher := newTestService(t, api, store)
	seedVerification(t, store, cipher, "a@b.com", time.Now().Add(-time.Hour))

	refreshed, err := svc.Refresh(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.True(t, refreshed)
}

func TestRefresh_NoActiveVerification(t *testing.T) {
	svc, _ := newTestService(t, &fakeAPI{}, newFakeStore())
	_, err := svc.Refresh(context.Background(), "nobody@b.com")
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestDisconnect_DeactivatesEvenWhenRevokeFails(t *testing.T) {
	api := &fakeAPI{revokeErr: errors.New("strava is down")}
	store := newFakeStore()
	svc, cipher := newTestService(t, api, store)
	seedVerification(t, store, cipher, "a@b.com", time.Now().Add(time.Hour))

	err := svc.Disconnect(context.Background(), "a@b.com")
	require.NoError(t, err)

	assert.Equal(t, 1, api.revokeCalls)
	stored := store.records["a@b.com"]
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.DisconnectedAt)
}

func TestTestConnection_UpdatesCachedStats(t *testing.T) {
	api := &fakeAPI{
		athlete: Athlete{ID: 42},
		stats: Stats{
			AllRunTotals:    RunTotals{Distance: 100000, Count: 200},
			RecentRunTotals: RunTotals{Distance: 5000, Count: 3},
		},
	}
	store := newFakeStore()
	svc, cipher := newTestService(t, api, store)
	seedVerification(t, store, cipher, "a@b.com", time.Now().Add(time.Hour))

	v, err := svc.TestConnection(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, 105, v.TotalDistanceKm)
	assert.Equal(t, 200, v.ActivityCount)
	assert.Equal(t, 105, store.records["a@b.com"].TotalDistanceKm)
}

func stateWithoutEmail(t *testing.T) string {
	t.Helper()
	// Built by hand because EncodeState refuses to omit the email.
	return "eyJ0aW1lc3RhbXAiOjk5OTk5OTk5OTksIm5vbmNlIjoibiJ9"
}
