// Package dto contains Data Transfer Objects for API request and response structures
package dto

// AdminLoginRequest represents the admin login form
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminLoginResponse carries the admin bearer token
type AdminLoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"` // Seconds
}

// CreateInfluencerRequest represents an admin request to onboard an influencer
type CreateInfluencerRequest struct {
	Name     string  `json:"name" validate:"required,max=255"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Whatsapp string  `json:"whatsapp" validate:"required,min=8,max=20"`
	Slug     string  `json:"slug" validate:"required,min=3,max=30"`
	PixKey   *string `json:"pixKey,omitempty" validate:"omitempty,max=255"`
}

// InfluencerDTO represents an influencer row in admin listings
type InfluencerDTO struct {
	UUID         string `json:"uuid"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Slug         string `json:"slug"`
	ReferralCode string `json:"referral_code"`
	Status       string `json:"status"`
	Clicks       int64  `json:"clicks"`
	Leads        int64  `json:"leads"`
	Conversions  int64  `json:"conversions"`
	PixKey       string `json:"pix_key,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// CreateInfluencerResponse carries the new influencer's code and token
type CreateInfluencerResponse struct {
	Influencer InfluencerDTO `json:"influencer"`
	Token      string        `json:"token"`
}

// ListInfluencersResponse represents the admin influencer listing
type ListInfluencersResponse struct {
	Influencers []InfluencerDTO `json:"influencers"`
}

// ToggleInfluencerResponse reports the new status after a toggle
type ToggleInfluencerResponse struct {
	UUID   string `json:"uuid"`
	Status string `json:"status"`
}

// UpdateInfluencerPixRequest represents an admin pix key update for an influencer
type UpdateInfluencerPixRequest struct {
	PixKey string `json:"pixKey" validate:"required,max=255"`
}
