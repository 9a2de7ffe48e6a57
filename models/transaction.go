package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentMethod represents how the customer chose to pay
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodPix  PaymentMethod = "pix"
)

// TransactionStatus mirrors the payment intent lifecycle of the provider
type TransactionStatus string

const (
	TransactionStatusPending               TransactionStatus = "pending"                 // Created but not yet submitted to a provider
	TransactionStatusRequiresPaymentMethod TransactionStatus = "requires_payment_method" // Card intent created or payment failed
	TransactionStatusRequiresConfirmation  TransactionStatus = "requires_confirmation"
	TransactionStatusRequiresAction        TransactionStatus = "requires_action"
	TransactionStatusProcessing            TransactionStatus = "processing"
	TransactionStatusSucceeded             TransactionStatus = "succeeded"
	TransactionStatusCanceled              TransactionStatus = "canceled"
	TransactionStatusFailed                TransactionStatus = "failed"
)

// HoldStatuses are the in-flight statuses that soft-hold a meeting slot
func HoldStatuses() []TransactionStatus {
	return []TransactionStatus{
		TransactionStatusProcessing,
		TransactionStatusRequiresAction,
		TransactionStatusRequiresConfirmation,
	}
}

// Transaction represents one payment attempt for a session booking
type Transaction struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	LeadID uint `gorm:"not null;index" json:"lead_id"`

	// AffiliateID is set when the attribution resolver credits a referrer
	AffiliateID *uint `gorm:"index" json:"affiliate_id,omitempty"`

	Amount          int64             `gorm:"not null" json:"amount"`                          // BRL centavos charged to the customer
	AmountAffiliate int64             `gorm:"not null;default:0" json:"amount_affiliate"`      // BRL centavos owed to the affiliate
	PaymentMethod   PaymentMethod     `gorm:"type:varchar(10);not null" json:"payment_method"`
	Status          TransactionStatus `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`

	// Stripe payment intent ID for cards; "openpix_<correlationID>" for PIX
	ProviderReference *string `gorm:"type:varchar(255);index" json:"provider_reference,omitempty"`

	// The slot this payment attempt is trying to book
	MeetingSlot time.Time `gorm:"not null;index" json:"meeting_slot"`

	Metadata  json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Lead      Lead      `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE" json:"lead,omitempty"`
	Affiliate *Referrer `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"`
}

// BeforeCreate ensures UUID is set
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	return nil
}

// IsHold returns true while the transaction soft-holds its slot
func (t *Transaction) IsHold() bool {
	for _, s := range HoldStatuses() {
		if t.Status == s {
			return true
		}
	}
	return false
}

// IsFinal returns true once the transaction can no longer change state
func (t *Transaction) IsFinal() bool {
	return t.Status == TransactionStatusSucceeded ||
		t.Status == TransactionStatusCanceled ||
		t.Status == TransactionStatusFailed
}

// TransactionFilter represents filter criteria for transaction queries
type TransactionFilter struct {
	ID                *uint               `json:"id,omitempty"`
	UUID              *uuid.UUID          `json:"uuid,omitempty"`
	LeadID            *uint               `json:"lead_id,omitempty"`
	PaymentMethod     *PaymentMethod      `json:"payment_method,omitempty"`
	Status            *TransactionStatus  `json:"status,omitempty"`
	Statuses          []TransactionStatus `json:"statuses,omitempty"`
	ProviderReference *string             `json:"provider_reference,omitempty"`
	MeetingSlot       *time.Time          `json:"meeting_slot,omitempty"`
	SlotAfter         *time.Time          `json:"slot_after,omitempty"`
	SlotBefore        *time.Time          `json:"slot_before,omitempty"`
}
