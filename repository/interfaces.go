// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/impulso-digital/leadshub/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// LeadRepository defines operations for captured leads
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Lead, error)
	// EarliestAttributed returns the oldest lead matching the filter that
	// carries a referral code and was created before the cutoff, excluding
	// the given lead ID.
	EarliestAttributed(ctx context.Context, filter models.LeadFilter, before time.Time, excludeID uint) (*models.Lead, error)
	CountByIPSince(ctx context.Context, ip string, since time.Time) (int64, error)
	UpdateReferralCode(ctx context.Context, leadID uint, code string) error
	UpdateEmail(ctx context.Context, leadID uint, email string) error
	UpdateStage(ctx context.Context, leadID uint, stage models.LeadStage) error
	ListByReferralCode(ctx context.Context, code string) ([]*models.Lead, error)
}

// ReferrerRepository defines operations for referral program participants
type ReferrerRepository interface {
	Repository[models.Referrer, models.ReferrerFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Referrer, error)
	ByReferralCode(ctx context.Context, code string) (*models.Referrer, error)
	ByToken(ctx context.Context, token string) (*models.Referrer, error)
	ByEmail(ctx context.Context, email string) (*models.Referrer, error)
	ByWhatsapp(ctx context.Context, whatsapp string) (*models.Referrer, error)
	UpdatePixKey(ctx context.Context, referrerID uint, pixKey string) error
	UpdateStatus(ctx context.Context, referrerID uint, status models.ReferrerStatus) error
	ListInfluencers(ctx context.Context) ([]*models.Referrer, error)
}

// ReferralHitRepository defines operations for tracked referral visits
type ReferralHitRepository interface {
	Repository[models.ReferralHit, models.ReferralHitFilter]
	CountByCode(ctx context.Context, code string) (int64, error)
}

// TransactionRepository defines operations for payment transactions
type TransactionRepository interface {
	Repository[models.Transaction, models.TransactionFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Transaction, error)
	ByProviderReference(ctx context.Context, ref string) (*models.Transaction, error)
	ListHoldsInRange(ctx context.Context, from, to time.Time) ([]*models.Transaction, error)
	HasSucceededForLead(ctx context.Context, leadID uint) (bool, error)
	UpdateStatus(ctx context.Context, transactionID uint, status models.TransactionStatus) error
	CancelPending(ctx context.Context, leadID uint, statuses []models.TransactionStatus) error
	ListByLead(ctx context.Context, leadID uint) ([]*models.Transaction, error)
}

// MeetingRepository defines operations for booked sessions
type MeetingRepository interface {
	Repository[models.Meeting, models.MeetingFilter]
	ByTransactionID(ctx context.Context, transactionID uint) (*models.Meeting, error)
	ListScheduledInRange(ctx context.Context, from, to time.Time) ([]*models.Meeting, error)
}
