package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Finn35/runnmate-server/internal/models"
)

var ErrSignupNotFound = errors.New("lottery signup not found")

type LotteryStore struct {
	db *gorm.DB
}

func NewLotteryStore(db *gorm.DB) *LotteryStore {
	return &LotteryStore{db: db}
}

// Upsert makes re-signup idempotent: the same email keeps one row carrying
// the latest consent and interest values.
func (s *LotteryStore) Upsert(ctx context.Context, signup *models.LotterySignup) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"consent", "interest", "is_active", "updated_at",
		}),
	}).Create(signup).Error
}

func (s *LotteryStore) FindByEmail(ctx context.Context, email string) (*models.LotterySignup, error) {
	var signup models.LotterySignup
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&signup).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSignupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &signup, nil
}
