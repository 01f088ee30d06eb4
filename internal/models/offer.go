package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	OfferStatusPending  = "pending"
	OfferStatusAccepted = "accepted"
	OfferStatusDeclined = "declined"
)

// Offer is always created with status "pending"; there is no accept/decline
// endpoint in this service, the seller responds over email.
type Offer struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ListingID  uuid.UUID `json:"listingId" gorm:"type:uuid;index;not null"`
	BuyerEmail string    `json:"buyerEmail" gorm:"index;not null"`
	BuyerName  string    `json:"buyerName"`
	PriceEUR   int       `json:"priceEur" gorm:"not null"`
	Message    string    `json:"message" gorm:"type:text"`
	Status     string    `json:"status" gorm:"default:pending;not null"`
	CreatedAt  time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
