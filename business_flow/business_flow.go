// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/impulso-digital/leadshub/app/dto"
	"github.com/impulso-digital/leadshub/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information captured from the request
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: make(map[string]string),
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToLeadDTO converts a lead model to LeadDTO for API responses
func ToLeadDTO(lead models.Lead) dto.LeadDTO {
	d := dto.LeadDTO{
		UUID:         lead.UUID.String(),
		Name:         lead.Name,
		Email:        lead.Email,
		Whatsapp:     lead.Whatsapp,
		Stage:        string(lead.Stage),
		ReferralCode: lead.ReferralCode,
		CreatedAt:    lead.CreatedAt.Format(time.RFC3339),
	}
	if lead.Company != nil {
		d.Company = *lead.Company
	}
	return d
}

// ToTransactionDTO converts a transaction model to TransactionDTO
func ToTransactionDTO(tx models.Transaction) dto.TransactionDTO {
	return dto.TransactionDTO{
		UUID:          tx.UUID.String(),
		Amount:        tx.Amount,
		PaymentMethod: string(tx.PaymentMethod),
		Status:        string(tx.Status),
		MeetingSlot:   tx.MeetingSlot.Format(time.RFC3339),
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
	}
}

// ToMeetingDTO converts a meeting model to MeetingDTO
func ToMeetingDTO(meeting models.Meeting) dto.MeetingDTO {
	return dto.MeetingDTO{
		UUID:        meeting.UUID.String(),
		ScheduledAt: meeting.ScheduledAt.Format(time.RFC3339),
		Status:      string(meeting.Status),
		CreatedAt:   meeting.CreatedAt.Format(time.RFC3339),
	}
}
