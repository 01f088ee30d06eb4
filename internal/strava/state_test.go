package strava

import (
	"encoding/base64"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_RoundTripRecoversEmail(t *testing.T) {
	state, err := EncodeState("a@b.com")
	require.NoError(t, err)

	email, err := DecodeState(state)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)
}

func TestState_UniqueNoncePerCall(t *testing.T) {
	a, err := EncodeState("a@b.com")
	require.NoError(t, err)
	b, err := EncodeState("a@b.com")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecodeState_EmailAliasAccepted(t *testing.T) {
	raw := []byte(`{"email":"legacy@b.com","timestamp":` + timestampNow() + `,"nonce":"n"}`)
	state := base64.RawURLEncoding.EncodeToString(raw)

	email, err := DecodeState(state)
	require.NoError(t, err)
	assert.Equal(t, "legacy@b.com", email)
}

func TestDecodeState_MissingEmail(t *testing.T) {
	raw := []byte(`{"timestamp":` + timestampNow() + `,"nonce":"n"}`)
	state := base64.RawURLEncoding.EncodeToString(raw)

	_, err := DecodeState(state)
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestDecodeState_Garbage(t *testing.T) {
	_, err := DecodeState("not a state")
	assert.Error(t, err)

	_, err = DecodeState(base64.RawURLEncoding.EncodeToString([]byte("not json")))
	assert.Error(t, err)
}

func TestDecodeState_Expired(t *testing.T) {
	old := time.Now().Add(-11 * time.Minute).Unix()
	raw := []byte(`{"userEmail":"a@b.com","timestamp":` + strconv.FormatInt(old, 10) + `,"nonce":"n"}`)
	state := base64.RawURLEncoding.EncodeToString(raw)

	_, err := DecodeState(state)
	assert.Error(t, err)
}

func timestampNow() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}
