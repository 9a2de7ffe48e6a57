package utils

import (
	"time"
)

// Token and session time constants
const (
	// AdminTokenTTL is the time-to-live for admin access tokens (24 hours)
	AdminTokenTTL = 24 * time.Hour

	// AdminTokenTTLSeconds is the time-to-live for admin access tokens in seconds
	AdminTokenTTLSeconds = 86400
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Pricing constants (amounts in BRL centavos)
const (
	// ProductAmountCents is the price of an optimization session (R$200)
	ProductAmountCents = 20000

	// AffiliateAmountCents is the commission per converted referral (R$60)
	AffiliateAmountCents = 6000

	BRLCurrency = "brl"
)

// Meeting scheduling constants
const (
	// SessionDurationHours is the length of a booked session
	SessionDurationHours = 4

	// FirstSlotHour and LastSlotHour bound the hourly start times (inclusive)
	FirstSlotHour = 14
	LastSlotHour  = 20

	// SlotLeadTime is how far in the future a slot must start to be bookable today
	SlotLeadTime = 30 * time.Minute

	// BookingHorizonMonths is how far ahead slots can be queried or booked
	BookingHorizonMonths = 3
)

// Commission release windows
const (
	// CardReleaseDays is the card chargeback window before commission release
	CardReleaseDays = 31

	// PixReleaseDays is the PIX dispute window before commission release
	PixReleaseDays = 7
)

// Fraud limits
const (
	// MaxLeadsPerIPWindow caps lead submissions per IP inside VelocityWindow
	MaxLeadsPerIPWindow = 5

	// VelocityWindow is the rolling window for the per-IP lead cap
	VelocityWindow = 60 * time.Minute

	// MaxUserAgentRepeats is how often one user agent may appear under a referral code
	MaxUserAgentRepeats = 3

	// MaxLeadAttemptsPerIP caps raw submission attempts per IP inside LeadAttemptWindow
	MaxLeadAttemptsPerIP = 10

	// LeadAttemptWindow is the rolling window for the attempt throttle
	LeadAttemptWindow = 15 * time.Minute
)

// Referral program constants
const (
	// FreeOptimizationThreshold is the conversion count that unlocks a free session
	FreeOptimizationThreshold = 5
)
