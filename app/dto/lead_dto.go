// Package dto contains Data Transfer Objects for API request and response structures
package dto

// CreateLeadRequest represents the landing page lead form data
type CreateLeadRequest struct {
	Name             string  `json:"name" validate:"required,max=255"`
	Email            string  `json:"email" validate:"required,email,max=255"`
	Whatsapp         string  `json:"whatsapp" validate:"required,min=8,max=20"`
	Company          *string `json:"company,omitempty" validate:"omitempty,max=255"`
	MonthlyAdsBudget *string `json:"monthlyAdsBudget,omitempty" validate:"omitempty,max=100"`
	ReferralCode     *string `json:"referralCode,omitempty" validate:"omitempty,max=64"`
	TrackingID       *string `json:"trackingId,omitempty" validate:"omitempty,max=128"`

	// UTM parameters forwarded by the landing page
	UTMSource   *string `json:"utmSource,omitempty" validate:"omitempty,max=255"`
	UTMMedium   *string `json:"utmMedium,omitempty" validate:"omitempty,max=255"`
	UTMCampaign *string `json:"utmCampaign,omitempty" validate:"omitempty,max=255"`
}

// CreateLeadResponse represents the response after a lead is captured
type CreateLeadResponse struct {
	Lead LeadDTO `json:"lead"`
}

// LeadDTO represents lead data for API responses
type LeadDTO struct {
	UUID         string  `json:"uuid"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Whatsapp     string  `json:"whatsapp"`
	Company      string  `json:"company,omitempty"`
	Stage        string  `json:"stage"`
	ReferralCode *string `json:"referral_code,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// UpdateLeadStageRequest represents an admin request to move a lead in the funnel
type UpdateLeadStageRequest struct {
	Stage string `json:"stage" validate:"required,oneof=NA_BASE EM_CONTATO COMPRADO REJEITADO"`
}

// ListLeadsResponse represents a paginated admin lead listing
type ListLeadsResponse struct {
	Leads    []LeadDTO `json:"leads"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}
