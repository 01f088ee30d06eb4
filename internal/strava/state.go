package strava

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// maxStateAge bounds how long an authorize redirect may sit before the
// callback returns; older states are treated as forged or stale.
const maxStateAge = 10 * time.Minute

// statePayload correlates an OAuth callback with the user who started the
// flow. Wire format: base64url-encoded JSON carried in the `state` parameter.
type statePayload struct {
	UserEmail string `json:"userEmail"`
	// Older clients sent the email under "email"; accepted on decode.
	Email     string `json:"email,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
}

// EncodeState packs the initiating user's email, the current time, and a
// random nonce into an opaque state string.
func EncodeState(email string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	payload, err := json.Marshal(statePayload{
		UserEmail: email,
		Timestamp: time.Now().Unix(),
		Nonce:     base64.RawURLEncoding.EncodeToString(nonce),
	})
	if err != nil {
		return "", fmt.Errorf("encoding state: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// DecodeState validates a callback state and recovers the user email.
func DecodeState(state string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		return "", fmt.Errorf("decoding state: %w", err)
	}

	var payload statePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("unmarshaling state: %w", err)
	}

	email := payload.UserEmail
	if email == "" {
		email = payload.Email
	}
	if email == "" {
		return "", ErrMissingEmail
	}

	if payload.Timestamp > 0 {
		age := time.Since(time.Unix(payload.Timestamp, 0))
		if age > maxStateAge || age < -time.Minute {
			return "", fmt.Errorf("state expired")
		}
	}

	return email, nil
}
