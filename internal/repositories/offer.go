package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Finn35/runnmate-server/internal/models"
)

type OfferStore struct {
	db *gorm.DB
}

func NewOfferStore(db *gorm.DB) *OfferStore {
	return &OfferStore{db: db}
}

// Create stores a new offer. Status is always "pending"; transitions happen
// outside this system.
func (s *OfferStore) Create(ctx context.Context, offer *models.Offer) error {
	offer.Status = models.OfferStatusPending
	return s.db.WithContext(ctx).Create(offer).Error
}

func (s *OfferStore) ListByListing(ctx context.Context, listingID uuid.UUID) ([]models.Offer, error) {
	var offers []models.Offer
	err := s.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at DESC").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}
