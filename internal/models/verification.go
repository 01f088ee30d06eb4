package models

import (
	"time"

	"github.com/google/uuid"
)

// StravaVerification holds the outcome of a completed Strava OAuth flow for one
// user. At most one row exists per email (upsert on conflict); a repeated OAuth
// completion overwrites the previous one.
//
// Access and refresh tokens are stored as {ciphertext, iv, authTag} base64
// triples produced by secrets.TokenCipher. They are never written in the clear.
type StravaVerification struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Email           string     `json:"email" gorm:"uniqueIndex;not null"`
	AthleteID       int64      `json:"athleteId" gorm:"not null"`
	AthleteName     string     `json:"athleteName"`
	AccessToken     string     `json:"-" gorm:"column:access_token;type:text;not null"`
	AccessTokenIV   string     `json:"-" gorm:"column:access_token_iv;not null"`
	AccessTokenTag  string     `json:"-" gorm:"column:access_token_tag;not null"`
	RefreshToken    string     `json:"-" gorm:"column:refresh_token;type:text;not null"`
	RefreshTokenIV  string     `json:"-" gorm:"column:refresh_token_iv;not null"`
	RefreshTokenTag string     `json:"-" gorm:"column:refresh_token_tag;not null"`
	TokenExpiresAt  time.Time  `json:"tokenExpiresAt" gorm:"not null"`
	TotalDistanceKm int        `json:"totalDistanceKm"`
	ActivityCount   int        `json:"activityCount"`
	IsActive        bool       `json:"isActive" gorm:"default:true"`
	VerifiedAt      time.Time  `json:"verifiedAt"`
	DisconnectedAt  *time.Time `json:"disconnectedAt"`
	CreatedAt       time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}
