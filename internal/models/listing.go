package models

import (
	"time"

	"github.com/google/uuid"
)

type Listing struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Title          string         `json:"title" gorm:"not null"`
	Brand          string         `json:"brand" gorm:"index;not null"`
	Size           string         `json:"size" gorm:"index;not null"` // EU shoe size, stored as text ("42", "42.5")
	Condition      string         `json:"condition" gorm:"not null"`  // "new" | "good" | "used"
	PriceEUR       int            `json:"priceEur" gorm:"not null"`
	Description    string         `json:"description" gorm:"type:text"`
	Location       string         `json:"location"`
	SellerEmail    string         `json:"sellerEmail" gorm:"index;not null"`
	CleaningStatus string         `json:"cleaningStatus"` // "cleaned" | "buyer_handles"
	Images         []ListingImage `json:"images" gorm:"foreignKey:ListingID"` // one-to-many, ordered by Index
	CreatedAt      time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
}

type ListingImage struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ListingID uuid.UUID `json:"listingId" gorm:"type:uuid;index;not null"` // foreign key
	URL       string    `json:"url" gorm:"not null"`
	Index     int       `json:"index" gorm:"not null"` // per-listing order (0,1,2…)
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
