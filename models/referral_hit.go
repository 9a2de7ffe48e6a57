package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferralHit represents a tracked visit through a referral link. At most one
// hit is recorded per (referral_code, ip_address) pair; repeat visits from the
// same IP are deduplicated at insert time.
type ReferralHit struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	ReferralCode string  `gorm:"type:varchar(64);not null;uniqueIndex:idx_referral_hits_code_ip" json:"referral_code"`
	IPAddress    string  `gorm:"type:varchar(45);not null;uniqueIndex:idx_referral_hits_code_ip" json:"ip_address"`
	UserAgent    string  `gorm:"type:text;not null" json:"user_agent"` // Normalized, lowercase
	LandingPage  *string `gorm:"type:text" json:"landing_page,omitempty"`

	// Derived client data
	Device  *string `gorm:"type:varchar(20)" json:"device,omitempty"`
	OS      *string `gorm:"type:varchar(20)" json:"os,omitempty"`
	Browser *string `gorm:"type:varchar(20)" json:"browser,omitempty"`

	// Campaign attribution
	UTMSource   *string `gorm:"type:varchar(255)" json:"utm_source,omitempty"`
	UTMMedium   *string `gorm:"type:varchar(255)" json:"utm_medium,omitempty"`
	UTMCampaign *string `gorm:"type:varchar(255)" json:"utm_campaign,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// BeforeCreate ensures UUID is set
func (h *ReferralHit) BeforeCreate(tx *gorm.DB) error {
	if h.UUID == uuid.Nil {
		h.UUID = uuid.New()
	}
	return nil
}

// ReferralHitFilter represents filter criteria for referral hit queries
type ReferralHitFilter struct {
	ID            *uint      `json:"id,omitempty"`
	ReferralCode  *string    `json:"referral_code,omitempty"`
	IPAddress     *string    `json:"ip_address,omitempty"`
	UserAgent     *string    `json:"user_agent,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
