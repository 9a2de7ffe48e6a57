// Package businessflow contains the core business logic and use cases for lead capture and booking workflows
package businessflow

import (
	"errors"
	"fmt"
	"time"
)

// Error codes carried on BusinessError and mapped to HTTP statuses by handlers
const (
	CodeValidationError = "validation_error"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeRateLimited     = "rate_limited"
	CodeAuthError       = "auth_error"
	CodeUpstreamError   = "upstream_error"
	CodeInternalError   = "internal_error"

	// Conflict sub-codes surfaced to clients
	CodeAlreadyPaid   = "ALREADY_PAID"
	CodeSlotTaken     = "SLOT_TAKEN"
	CodePixNotEnabled = "PIX_NOT_ENABLED"
)

// Business flow error constants
var (
	// Lead-related errors
	ErrLeadNotFound        = errors.New("lead not found")
	ErrDuplicateReferral   = errors.New("duplicate referral detected")
	ErrTooManyLeadsFromIP  = errors.New("too many submissions from this IP")
	ErrLeadStageInvalid    = errors.New("invalid lead stage")

	// Referrer-related errors
	ErrReferrerNotFound       = errors.New("referrer not found")
	ErrReferrerEmailExists    = errors.New("email already registered")
	ErrReferrerWhatsappExists = errors.New("whatsapp already registered")
	ErrInvalidToken           = errors.New("invalid referral token")
	ErrInvalidSlug            = errors.New("invalid influencer slug")
	ErrSlugTaken              = errors.New("slug already in use")

	// Booking-related errors
	ErrSlotOutsideHours = errors.New("slot outside business hours")
	ErrSlotInPast       = errors.New("slot is in the past")
	ErrSlotTaken        = errors.New("slot already taken")
	ErrAlreadyPaid      = errors.New("lead already paid for a session")
	ErrDateOutOfRange   = errors.New("date outside booking horizon")

	// Payment-related errors
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrPixNotEnabled       = errors.New("pix payments are not enabled")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrPaymentProvider     = errors.New("payment provider error")

	// Admin errors
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// RateLimitError carries the retry-after hint for throttled requests
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "rate limited"
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// AsRateLimitError extracts a RateLimitError from an error chain, if present
func AsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// AsBusinessError extracts a BusinessError from an error chain, if present
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsDuplicateReferral(err error) bool {
	return errors.Is(err, ErrDuplicateReferral)
}

func IsTooManyLeadsFromIP(err error) bool {
	return errors.Is(err, ErrTooManyLeadsFromIP)
}

func IsLeadStageInvalid(err error) bool {
	return errors.Is(err, ErrLeadStageInvalid)
}

func IsReferrerNotFound(err error) bool {
	return errors.Is(err, ErrReferrerNotFound)
}

func IsReferrerEmailExists(err error) bool {
	return errors.Is(err, ErrReferrerEmailExists)
}

func IsReferrerWhatsappExists(err error) bool {
	return errors.Is(err, ErrReferrerWhatsappExists)
}

func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsInvalidSlug(err error) bool {
	return errors.Is(err, ErrInvalidSlug)
}

func IsSlugTaken(err error) bool {
	return errors.Is(err, ErrSlugTaken)
}

func IsSlotOutsideHours(err error) bool {
	return errors.Is(err, ErrSlotOutsideHours)
}

func IsSlotInPast(err error) bool {
	return errors.Is(err, ErrSlotInPast)
}

func IsSlotTaken(err error) bool {
	return errors.Is(err, ErrSlotTaken)
}

func IsAlreadyPaid(err error) bool {
	return errors.Is(err, ErrAlreadyPaid)
}

func IsDateOutOfRange(err error) bool {
	return errors.Is(err, ErrDateOutOfRange)
}

func IsTransactionNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound)
}

func IsPixNotEnabled(err error) bool {
	return errors.Is(err, ErrPixNotEnabled)
}

func IsInvalidSignature(err error) bool {
	return errors.Is(err, ErrInvalidSignature)
}

func IsPaymentProvider(err error) bool {
	return errors.Is(err, ErrPaymentProvider)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}
