// Package dto contains Data Transfer Objects for API request and response structures
package dto

// CreatePaymentIntentRequest represents a card checkout request. The email is
// collected again at checkout and replaces the one captured at intake.
type CreatePaymentIntentRequest struct {
	LeadUUID    string `json:"leadId" validate:"required,uuid4"`
	Email       string `json:"email" validate:"omitempty,email"`
	MeetingSlot string `json:"meetingSlot" validate:"required"` // RFC3339
}

// CreatePaymentIntentResponse carries the Stripe client secret back to the frontend
type CreatePaymentIntentResponse struct {
	TransactionUUID string `json:"transactionId"`
	ClientSecret    string `json:"clientSecret"`
	Amount          int64  `json:"amount"`
}

// CreatePixRequest represents a PIX checkout request. The CPF is forwarded
// to the PIX provider as the payer tax id.
type CreatePixRequest struct {
	LeadUUID    string `json:"leadId" validate:"required,uuid4"`
	Email       string `json:"email" validate:"omitempty,email"`
	MeetingSlot string `json:"meetingSlot" validate:"required"` // RFC3339
	CPF         string `json:"cpf" validate:"required,len=11,numeric"`
}

// CreatePixResponse carries the PIX charge data back to the frontend
type CreatePixResponse struct {
	TransactionUUID string `json:"transactionId"`
	BRCode          string `json:"brCode"`
	QRCodeImage     string `json:"qrCodeImage"`
	Amount          int64  `json:"amount"`
	ExpiresIn       int    `json:"expiresIn"` // Seconds
}

// TransactionDTO represents a payment attempt for API responses
type TransactionDTO struct {
	UUID          string `json:"uuid"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
	MeetingSlot   string `json:"meeting_slot"`
	CreatedAt     string `json:"created_at"`
}
