package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Finn35/runnmate-server/internal/models"
	"github.com/Finn35/runnmate-server/internal/secrets"
	"github.com/Finn35/runnmate-server/internal/strava"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func testVerification(email string) *models.StravaVerification {
	return &models.StravaVerification{
		Email:           email,
		AthleteID:       42,
		AthleteName:     "Kara Visser",
		AccessToken:     "ct-access",
		AccessTokenIV:   "iv-access",
		AccessTokenTag:  "tag-access",
		RefreshToken:    "ct-refresh",
		RefreshTokenIV:  "iv-refresh",
		RefreshTokenTag: "tag-refresh",
		TokenExpiresAt:  time.Now().Add(6 * time.Hour),
		TotalDistanceKm: 62,
		ActivityCount:   120,
		IsActive:        true,
		VerifiedAt:      time.Now(),
	}
}

func TestUserStore_UpsertKeepsOneRowAndName(t *testing.T) {
	store := NewUserStore(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &models.User{Email: "a@b.com", Name: "Kara"}))
	require.NoError(t, store.Upsert(ctx, &models.User{Email: "a@b.com"}))

	got, err := store.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "Kara", got.Name)

	require.NoError(t, store.Upsert(ctx, &models.User{Email: "a@b.com", Name: "Kara V."}))
	got, err = store.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "Kara V.", got.Name)

	var count int64
	require.NoError(t, store.db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestVerificationStore_UpsertKeepsOneRowPerEmail(t *testing.T) {
	store := NewVerificationStore(newTestDB(t))
	ctx := context.Background()

	first := testVerification("a@b.com")
	require.NoError(t, store.Upsert(ctx, first))

	second := testVerification("a@b.com")
	second.AthleteID = 99
	second.TotalDistanceKm = 100
	require.NoError(t, store.Upsert(ctx, second))

	got, err := store.FindActiveByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.AthleteID)
	assert.Equal(t, 100, got.TotalDistanceKm)

	var count int64
	require.NoError(t, store.db.Model(&models.StravaVerification{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestVerificationStore_FindActiveExcludesDisconnected(t *testing.T) {
	store := NewVerificationStore(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testVerification("a@b.com")))
	require.NoError(t, store.Deactivate(ctx, "a@b.com", time.Now()))

	_, err := store.FindActiveByEmail(ctx, "a@b.com")
	assert.ErrorIs(t, err, strava.ErrNotVerified)
}

func TestVerificationStore_UpdateTokens(t *testing.T) {
	store := NewVerificationStore(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, testVerification("a@b.com")))

	expiry := time.Now().Add(12 * time.Hour).Truncate(time.Second)
	err := store.UpdateTokens(ctx, "a@b.com",
		secrets.EncryptedToken{Ciphertext: "new-access", IV: "new-iv", AuthTag: "new-tag"},
		secrets.EncryptedToken{Ciphertext: "new-refresh", IV: "new-riv", AuthTag: "new-rtag"},
		expiry,
	)
	require.NoError(t, err)

	got, err := store.FindActiveByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "new-refresh", got.RefreshToken)
	assert.WithinDuration(t, expiry, got.TokenExpiresAt, time.Second)
}

func TestVerificationStore_DeactivateSetsTimestamp(t *testing.T) {
	store := NewVerificationStore(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, testVerification("a@b.com")))

	at := time.Now()
	require.NoError(t, store.Deactivate(ctx, "a@b.com", at))

	var v models.StravaVerification
	require.NoError(t, store.db.Where("email = ?", "a@b.com").First(&v).Error)
	assert.False(t, v.IsActive)
	require.NotNil(t, v.DisconnectedAt)
	assert.WithinDuration(t, at, *v.DisconnectedAt, time.Second)
}

func TestLotteryStore_UpsertIdempotent(t *testing.T) {
	store := NewLotteryStore(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &models.LotterySignup{
		Email:    "a@b.com",
		Consent:  true,
		Interest: "trail shoes",
		IsActive: true,
	}))
	require.NoError(t, store.Upsert(ctx, &models.LotterySignup{
		Email:    "a@b.com",
		Consent:  false,
		Interest: "road shoes size 44",
		IsActive: true,
	}))

	var count int64
	require.NoError(t, store.db.Model(&models.LotterySignup{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	got, err := store.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.False(t, got.Consent)
	assert.Equal(t, "road shoes size 44", got.Interest)
}

func TestListingStore_CreateAndGetKeepsImageOrder(t *testing.T) {
	store := NewListingStore(newTestDB(t))
	ctx := context.Background()

	listing := &models.Listing{
		Title:       "Pegasus 40",
		Brand:       "Nike",
		Size:        "42",
		Condition:   "good",
		PriceEUR:    55,
		SellerEmail: "seller@b.com",
		Images: []models.ListingImage{
			{URL: "https://img.runnmate.com/a.jpg"},
			{URL: "https://img.runnmate.com/b.jpg"},
			{URL: "https://img.runnmate.com/c.jpg"},
		},
	}
	require.NoError(t, store.Create(ctx, listing))

	got, err := store.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, got.Images, 3)
	assert.Equal(t, "https://img.runnmate.com/a.jpg", got.Images[0].URL)
	assert.Equal(t, 0, got.Images[0].Index)
	assert.Equal(t, "https://img.runnmate.com/c.jpg", got.Images[2].URL)
	assert.Equal(t, 2, got.Images[2].Index)
}

func TestListingStore_ListFilters(t *testing.T) {
	store := NewListingStore(newTestDB(t))
	ctx := context.Background()

	seed := []models.Listing{
		{Title: "Pegasus 40", Brand: "Nike", Size: "42", Condition: "good", PriceEUR: 55, SellerEmail: "s@b.com"},
		{Title: "Clifton 9", Brand: "Hoka", Size: "42", Condition: "used", PriceEUR: 40, SellerEmail: "s@b.com"},
		{Title: "Vaporfly 3", Brand: "Nike", Size: "44", Condition: "new", PriceEUR: 140, SellerEmail: "s@b.com"},
	}
	for i := range seed {
		require.NoError(t, store.Create(ctx, &seed[i]))
	}

	nikes, err := store.List(ctx, ListingFilter{Brand: "Nike"})
	require.NoError(t, err)
	assert.Len(t, nikes, 2)

	cheap, err := store.List(ctx, ListingFilter{MaxPriceEUR: 60})
	require.NoError(t, err)
	assert.Len(t, cheap, 2)

	size42Nike, err := store.List(ctx, ListingFilter{Brand: "Nike", Size: "42"})
	require.NoError(t, err)
	require.Len(t, size42Nike, 1)
	assert.Equal(t, "Pegasus 40", size42Nike[0].Title)
}

func TestListingStore_GetMissing(t *testing.T) {
	store := NewListingStore(newTestDB(t))

	_, err := store.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestOfferStore_CreateForcesPending(t *testing.T) {
	db := newTestDB(t)
	listings := NewListingStore(db)
	offers := NewOfferStore(db)
	ctx := context.Background()

	listing := &models.Listing{Title: "Pegasus 40", Brand: "Nike", Size: "42", Condition: "good", PriceEUR: 55, SellerEmail: "s@b.com"}
	require.NoError(t, listings.Create(ctx, listing))

	offer := &models.Offer{
		ListingID:  listing.ID,
		BuyerEmail: "buyer@b.com",
		BuyerName:  "Jip",
		PriceEUR:   45,
		Message:    "Would you take 45?",
		Status:     "accepted", // caller cannot pre-accept
	}
	require.NoError(t, offers.Create(ctx, offer))

	got, err := offers.ListByListing(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.OfferStatusPending, got[0].Status)
}
