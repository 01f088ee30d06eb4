package repositories

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Finn35/runnmate-server/internal/models"
)

// Connect opens the managed Postgres database and runs migrations. The
// returned handle is passed down to the stores; nothing in this package holds
// package-level state.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the schema migrations. Split out so tests can run it against
// an in-memory sqlite database.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.StravaVerification{},
		&models.Listing{},
		&models.ListingImage{},
		&models.Offer{},
		&models.LotterySignup{},
	)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
