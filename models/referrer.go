package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferrerStatus represents whether a referral code is accepted at intake
type ReferrerStatus string

const (
	ReferrerStatusActive   ReferrerStatus = "active"
	ReferrerStatusInactive ReferrerStatus = "inactive"
)

// Referrer represents a participant of the referral program. Influencers
// are referrers created by an admin with a vanity slug as their code.
type Referrer struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	Name      string  `gorm:"type:varchar(255);not null" json:"name"`
	Email     string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Whatsapp  string  `gorm:"type:varchar(20);uniqueIndex;not null" json:"whatsapp"` // Normalized, digits only
	Instagram *string `gorm:"type:varchar(255)" json:"instagram,omitempty"`
	PixKey    *string `gorm:"type:varchar(255)" json:"pix_key,omitempty"` // Normalized

	// ReferralCode is what leads submit; Token is the private stats credential
	ReferralCode string `gorm:"type:varchar(64);uniqueIndex;not null" json:"referral_code"`
	Token        string `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"` // 64 hex chars

	IsInfluencer bool    `gorm:"not null;default:false" json:"is_influencer"`
	Slug         *string `gorm:"type:varchar(30);uniqueIndex" json:"slug,omitempty"`

	Status ReferrerStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate ensures UUID is set
func (r *Referrer) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	return nil
}

// IsActive returns true if leads may attach this referrer's code
func (r *Referrer) IsActive() bool {
	return r.Status == ReferrerStatusActive
}

// ReferrerFilter represents filter criteria for referrer queries
type ReferrerFilter struct {
	ID           *uint           `json:"id,omitempty"`
	UUID         *uuid.UUID      `json:"uuid,omitempty"`
	Email        *string         `json:"email,omitempty"`
	Whatsapp     *string         `json:"whatsapp,omitempty"`
	ReferralCode *string         `json:"referral_code,omitempty"`
	Token        *string         `json:"token,omitempty"`
	Slug         *string         `json:"slug,omitempty"`
	IsInfluencer *bool           `json:"is_influencer,omitempty"`
	Status       *ReferrerStatus `json:"status,omitempty"`
}
