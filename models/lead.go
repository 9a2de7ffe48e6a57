package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadStage represents where a lead sits in the sales funnel
type LeadStage string

const (
	LeadStageNaBase    LeadStage = "NA_BASE"    // Captured, no contact yet
	LeadStageEmContato LeadStage = "EM_CONTATO" // Being worked by sales
	LeadStageComprado  LeadStage = "COMPRADO"   // Paid for a session
	LeadStageRejeitado LeadStage = "REJEITADO"  // Disqualified
)

// ValidLeadStage reports whether s is one of the known funnel stages
func ValidLeadStage(s LeadStage) bool {
	switch s {
	case LeadStageNaBase, LeadStageEmContato, LeadStageComprado, LeadStageRejeitado:
		return true
	}
	return false
}

// Lead represents a captured prospect from the landing page
type Lead struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	// Contact information
	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	Email    string `gorm:"type:varchar(255);not null;index" json:"email"`
	Whatsapp string `gorm:"type:varchar(20);not null;index" json:"whatsapp"` // Normalized, digits only

	// Qualification data
	Company          *string `gorm:"type:varchar(255)" json:"company,omitempty"`
	MonthlyAdsBudget *string `gorm:"type:varchar(100)" json:"monthly_ads_budget,omitempty"`

	// Funnel state
	Stage LeadStage `gorm:"type:varchar(20);not null;default:'NA_BASE';index" json:"stage"`

	// Attribution
	ReferralCode *string `gorm:"type:varchar(64);index" json:"referral_code,omitempty"` // Direct or inherited
	TrackingID   *string `gorm:"type:varchar(128);index" json:"tracking_id,omitempty"`

	// Request fingerprint
	IPAddress *string `gorm:"type:varchar(45);index" json:"ip_address,omitempty"`
	UserAgent *string `gorm:"type:text" json:"user_agent,omitempty"` // Normalized, lowercase

	// Derived client data
	Device  *string `gorm:"type:varchar(20)" json:"device,omitempty"`
	OS      *string `gorm:"type:varchar(20)" json:"os,omitempty"`
	Browser *string `gorm:"type:varchar(20)" json:"browser,omitempty"`

	// Campaign attribution
	UTMSource   *string `gorm:"type:varchar(255)" json:"utm_source,omitempty"`
	UTMMedium   *string `gorm:"type:varchar(255)" json:"utm_medium,omitempty"`
	UTMCampaign *string `gorm:"type:varchar(255)" json:"utm_campaign,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate ensures UUID is set
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	return nil
}

// HasReferralCode returns true if the lead carries a non-empty referral code
func (l *Lead) HasReferralCode() bool {
	return l.ReferralCode != nil && *l.ReferralCode != ""
}

// LeadFilter represents filter criteria for lead queries
type LeadFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	Email         *string    `json:"email,omitempty"`
	Whatsapp      *string    `json:"whatsapp,omitempty"`
	Stage         *LeadStage `json:"stage,omitempty"`
	ReferralCode  *string    `json:"referral_code,omitempty"`
	TrackingID    *string    `json:"tracking_id,omitempty"`
	IPAddress     *string    `json:"ip_address,omitempty"`
	UserAgent     *string    `json:"user_agent,omitempty"`
	HasReferral   *bool      `json:"has_referral,omitempty"` // Only leads with a non-null referral code
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
