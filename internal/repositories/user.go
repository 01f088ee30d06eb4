package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Finn35/runnmate-server/internal/models"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Upsert creates the user on their first verified sign-in and keeps the name
// current on later ones. A sign-in without a name never blanks a stored one.
func (s *UserStore) Upsert(ctx context.Context, user *models.User) error {
	assignments := []string{"updated_at"}
	if user.Name != "" {
		assignments = append(assignments, "name")
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns(assignments),
	}).Create(user).Error
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
