package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Finn35/runnmate-server/internal/repositories"
)

func newLotteryHandler(t *testing.T, mailer *recordingMailer) *LotteryHandler {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	store := repositories.NewLotteryStore(db)
	return NewLotteryHandler(store, mailer, zap.NewNop(), "Runnmate <hello@runnmate.com>")
}

func TestLotterySignup_StoresAndConfirms(t *testing.T) {
	mailer := &recordingMailer{}
	h := newLotteryHandler(t, mailer)

	rec := postJSON(t, h.Signup, "/lottery-signup",
		`{"email":"runner@example.com","consent":true,"interest":"trail shoes","language":"en"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	signup, err := h.store.FindByEmail(context.Background(), "runner@example.com")
	require.NoError(t, err)
	assert.True(t, signup.Consent)
	assert.Equal(t, "trail shoes", signup.Interest)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"runner@example.com"}, mailer.sent[0].To)
}

func TestLotterySignup_MissingEmail(t *testing.T) {
	mailer := &recordingMailer{}
	h := newLotteryHandler(t, mailer)

	rec := postJSON(t, h.Signup, "/lottery-signup", `{"consent":true}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, mailer.sent)
}

func TestLotterySignup_EmailFailureStillSucceeds(t *testing.T) {
	mailer := &recordingMailer{sendErr: errors.New("resend down")}
	h := newLotteryHandler(t, mailer)

	rec := postJSON(t, h.Signup, "/lottery-signup",
		`{"email":"runner@example.com","consent":true}`)

	require.Equal(t, http.StatusOK, rec.Code)

	_, err := h.store.FindByEmail(context.Background(), "runner@example.com")
	assert.NoError(t, err)
}
