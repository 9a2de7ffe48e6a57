// Package dto contains Data Transfer Objects for API request and response structures
package dto

// CreateReferrerRequest represents the referral program signup form
type CreateReferrerRequest struct {
	Name      string  `json:"name" validate:"required,max=255"`
	Email     string  `json:"email" validate:"required,email,max=255"`
	Whatsapp  string  `json:"whatsapp" validate:"required,min=8,max=20"`
	Instagram *string `json:"instagram,omitempty" validate:"omitempty,max=255"`
	PixKey    *string `json:"pixKey,omitempty" validate:"omitempty,max=255"`
}

// CreateReferrerResponse carries the new referrer's code and private token
type CreateReferrerResponse struct {
	ReferralCode string `json:"referralCode"`
	Token        string `json:"token"`
	ShareLink    string `json:"shareLink"`
}

// TrackReferralRequest represents a referral link visit ping
type TrackReferralRequest struct {
	Code        string  `json:"code" validate:"required,max=64"`
	LandingPage *string `json:"landingPage,omitempty" validate:"omitempty,max=2048"`
}

// TrackReferralResponse reports whether the visit was recorded
type TrackReferralResponse struct {
	Tracked bool `json:"tracked"`
}

// ReferralPersonDTO represents one deduplicated referred person in stats
type ReferralPersonDTO struct {
	Name              string `json:"name"`
	Stage             string `json:"stage"`
	TransactionStatus string `json:"transaction_status,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// ReferralStatsResponse represents the private referrer dashboard payload
type ReferralStatsResponse struct {
	ReferralCode        string              `json:"referralCode"`
	Clicks              int64               `json:"clicks"`
	People              []ReferralPersonDTO `json:"people"`
	Conversions         int                 `json:"conversions"`
	PendingCommission   int64               `json:"pendingCommission"`   // Centavos, inside release window
	AvailableCommission int64               `json:"availableCommission"` // Centavos, past release window
	FreeOptimization    bool                `json:"freeOptimization"`
	PixKey              string              `json:"pixKey,omitempty"`
}

// UpdatePixKeyRequest represents a referrer pix key update
type UpdatePixKeyRequest struct {
	Token  string `json:"token" validate:"required,len=64,hexadecimal"`
	PixKey string `json:"pixKey" validate:"required,max=255"`
}
