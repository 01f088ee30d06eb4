package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Finn35/runnmate-server/internal/models"
)

var ErrListingNotFound = errors.New("listing not found")

// ListingFilter narrows a browse query. Zero values mean "no filter".
type ListingFilter struct {
	Brand       string
	Size        string
	MaxPriceEUR int
}

type ListingStore struct {
	db *gorm.DB
}

func NewListingStore(db *gorm.DB) *ListingStore {
	return &ListingStore{db: db}
}

// Create stores the listing together with its ordered images in one
// transaction.
func (s *ListingStore) Create(ctx context.Context, listing *models.Listing) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		images := listing.Images
		listing.Images = nil
		if err := tx.Create(listing).Error; err != nil {
			return fmt.Errorf("creating listing: %w", err)
		}
		for i := range images {
			images[i].ListingID = listing.ID
			images[i].Index = i
			if err := tx.Create(&images[i]).Error; err != nil {
				return fmt.Errorf("creating listing image: %w", err)
			}
		}
		listing.Images = images
		return nil
	})
}

func (s *ListingStore) List(ctx context.Context, filter ListingFilter) ([]models.Listing, error) {
	query := s.db.WithContext(ctx).Model(&models.Listing{}).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"index" ASC`)
		}).
		Order("created_at DESC")

	if filter.Brand != "" {
		query = query.Where("brand = ?", filter.Brand)
	}
	if filter.Size != "" {
		query = query.Where("size = ?", filter.Size)
	}
	if filter.MaxPriceEUR > 0 {
		query = query.Where("price_eur <= ?", filter.MaxPriceEUR)
	}

	var listings []models.Listing
	if err := query.Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (s *ListingStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order(`"index" ASC`)
		}).
		First(&listing, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}
