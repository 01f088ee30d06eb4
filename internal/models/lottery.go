package models

import (
	"time"

	"github.com/google/uuid"
)

// LotterySignup is upserted by email: signing up twice keeps one row carrying
// the latest consent and interest values.
type LotterySignup struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email      string    `json:"email" gorm:"uniqueIndex;not null"`
	Consent    bool      `json:"consent" gorm:"not null"`
	Interest   string    `json:"interest" gorm:"type:text"`
	IsActive   bool      `json:"isActive" gorm:"default:true"`
	SignedUpAt time.Time `json:"signedUpAt" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
