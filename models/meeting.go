package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MeetingStatus represents the lifecycle of a booked session
type MeetingStatus string

const (
	MeetingStatusScheduled MeetingStatus = "scheduled"
	MeetingStatusCompleted MeetingStatus = "completed"
	MeetingStatusCanceled  MeetingStatus = "canceled"
	MeetingStatusNoShow    MeetingStatus = "no_show"
)

// Meeting represents a booked optimization session. The unique index on
// TransactionID makes webhook replays idempotent at the database level:
// a second insert for the same transaction fails instead of double-booking.
type Meeting struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	LeadID        uint  `gorm:"not null;index" json:"lead_id"`
	TransactionID uint  `gorm:"not null;uniqueIndex" json:"transaction_id"`
	AffiliateID   *uint `gorm:"index" json:"affiliate_id,omitempty"`

	ScheduledAt time.Time     `gorm:"not null;index" json:"scheduled_at"`
	Status      MeetingStatus `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Lead        Lead        `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE" json:"lead,omitempty"`
	Transaction Transaction `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE" json:"transaction,omitempty"`
}

// BeforeCreate ensures UUID is set
func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	return nil
}

// MeetingFilter represents filter criteria for meeting queries
type MeetingFilter struct {
	ID              *uint          `json:"id,omitempty"`
	UUID            *uuid.UUID     `json:"uuid,omitempty"`
	LeadID          *uint          `json:"lead_id,omitempty"`
	TransactionID   *uint          `json:"transaction_id,omitempty"`
	Status          *MeetingStatus `json:"status,omitempty"`
	ScheduledAt     *time.Time     `json:"scheduled_at,omitempty"`
	ScheduledAfter  *time.Time     `json:"scheduled_after,omitempty"`
	ScheduledBefore *time.Time     `json:"scheduled_before,omitempty"`
}
