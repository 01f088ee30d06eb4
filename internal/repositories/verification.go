package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Finn35/runnmate-server/internal/models"
	"github.com/Finn35/runnmate-server/internal/secrets"
	"github.com/Finn35/runnmate-server/internal/strava"
)

// VerificationStore persists Strava verification records. One row per email:
// a second completed OAuth flow overwrites the first through the upsert.
type VerificationStore struct {
	db *gorm.DB
}

func NewVerificationStore(db *gorm.DB) *VerificationStore {
	return &VerificationStore{db: db}
}

// Upsert inserts the verification or, when a row with the same email already
// exists, replaces its athlete, token, stats and status fields.
func (s *VerificationStore) Upsert(ctx context.Context, v *models.StravaVerification) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"athlete_id", "athlete_name",
			"access_token", "access_token_iv", "access_token_tag",
			"refresh_token", "refresh_token_iv", "refresh_token_tag",
			"token_expires_at", "total_distance_km", "activity_count",
			"is_active", "verified_at", "disconnected_at", "updated_at",
		}),
	}).Create(v).Error
}

func (s *VerificationStore) FindActiveByEmail(ctx context.Context, email string) (*models.StravaVerification, error) {
	var v models.StravaVerification
	err := s.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", email, true).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, strava.ErrNotVerified
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *VerificationStore) UpdateTokens(ctx context.Context, email string, access, refresh secrets.EncryptedToken, expiresAt time.Time) error {
	return s.db.WithContext(ctx).Model(&models.StravaVerification{}).
		Where("email = ? AND is_active = ?", email, true).
		Updates(map[string]any{
			"access_token":      access.Ciphertext,
			"access_token_iv":   access.IV,
			"access_token_tag":  access.AuthTag,
			"refresh_token":     refresh.Ciphertext,
			"refresh_token_iv":  refresh.IV,
			"refresh_token_tag": refresh.AuthTag,
			"token_expires_at":  expiresAt,
		}).Error
}

func (s *VerificationStore) UpdateStats(ctx context.Context, email string, totalKm, activities int) error {
	return s.db.WithContext(ctx).Model(&models.StravaVerification{}).
		Where("email = ? AND is_active = ?", email, true).
		Updates(map[string]any{
			"total_distance_km": totalKm,
			"activity_count":    activities,
		}).Error
}

// Deactivate marks the record inactive and stamps the disconnection time. The
// row itself is kept so a later re-connect reuses it through the upsert.
func (s *VerificationStore) Deactivate(ctx context.Context, email string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.StravaVerification{}).
		Where("email = ?", email).
		Updates(map[string]any{
			"is_active":       false,
			"disconnected_at": at,
		}).Error
}
