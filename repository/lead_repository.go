package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/utils"
	"gorm.io/gorm"

	"time"
)

// LeadRepositoryImpl implements LeadRepository interface
type LeadRepositoryImpl struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &LeadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Lead, models.LeadFilter](db),
	}
}

// ByUUID finds a lead by UUID
func (r *LeadRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Lead, error) {
	db := r.getDB(ctx)
	var lead models.Lead
	err := db.Where("uuid = ?", uuid).Last(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lead, nil
}

// EarliestAttributed returns the oldest lead matching the filter that carries
// a referral code, created strictly before the cutoff, excluding excludeID.
// The earliest lead wins so attribution is stable across resubmissions.
func (r *LeadRepositoryImpl) EarliestAttributed(ctx context.Context, filter models.LeadFilter, before time.Time, excludeID uint) (*models.Lead, error) {
	db := r.getDB(ctx)

	query := r.applyFilter(db.Model(&models.Lead{}), filter).
		Where("referral_code IS NOT NULL AND referral_code <> ''").
		Where("created_at < ?", before)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var lead models.Lead
	err := query.Order("created_at ASC").First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lead, nil
}

// CountByIPSince counts leads submitted from one IP after the given time
func (r *LeadRepositoryImpl) CountByIPSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.Lead{}).
		Where("ip_address = ?", ip).
		Where("created_at > ?", since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateReferralCode persists an inherited referral code on a lead
func (r *LeadRepositoryImpl) UpdateReferralCode(ctx context.Context, leadID uint, code string) error {
	db := r.getDB(ctx)
	return db.Model(&models.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]any{
			"referral_code": code,
			"updated_at":    utils.UTCNow(),
		}).Error
}

// UpdateEmail replaces the email captured at intake
func (r *LeadRepositoryImpl) UpdateEmail(ctx context.Context, leadID uint, email string) error {
	db := r.getDB(ctx)
	return db.Model(&models.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]any{
			"email":      email,
			"updated_at": utils.UTCNow(),
		}).Error
}

// UpdateStage moves a lead to a new funnel stage
func (r *LeadRepositoryImpl) UpdateStage(ctx context.Context, leadID uint, stage models.LeadStage) error {
	db := r.getDB(ctx)
	return db.Model(&models.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]any{
			"stage":      stage,
			"updated_at": utils.UTCNow(),
		}).Error
}

// ListByReferralCode lists all leads attributed to a referral code
func (r *LeadRepositoryImpl) ListByReferralCode(ctx context.Context, code string) ([]*models.Lead, error) {
	db := r.getDB(ctx)
	var leads []*models.Lead
	err := db.Where("referral_code = ?", code).Order("created_at ASC").Find(&leads).Error
	if err != nil {
		return nil, err
	}
	return leads, nil
}

// ByFilter retrieves leads based on filter criteria
func (r *LeadRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	db := r.getDB(ctx)
	var leads []*models.Lead

	query := db.Model(&models.Lead{})
	query = r.applyFilter(query, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	} else {
		query = query.Order("created_at DESC")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&leads).Error
	if err != nil {
		return nil, err
	}
	return leads, nil
}

// Count returns the number of leads matching the filter
func (r *LeadRepositoryImpl) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.Lead{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any lead matching the filter exists
func (r *LeadRepositoryImpl) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to check lead existence: %w", err)
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *LeadRepositoryImpl) applyFilter(query *gorm.DB, filter models.LeadFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Email != nil {
		query = query.Where("LOWER(email) = LOWER(?)", *filter.Email)
	}
	if filter.Whatsapp != nil {
		query = query.Where("whatsapp = ?", *filter.Whatsapp)
	}
	if filter.Stage != nil {
		query = query.Where("stage = ?", *filter.Stage)
	}
	if filter.ReferralCode != nil {
		query = query.Where("referral_code = ?", *filter.ReferralCode)
	}
	if filter.TrackingID != nil {
		query = query.Where("tracking_id = ?", *filter.TrackingID)
	}
	if filter.IPAddress != nil {
		query = query.Where("ip_address = ?", *filter.IPAddress)
	}
	if filter.UserAgent != nil {
		query = query.Where("user_agent = ?", *filter.UserAgent)
	}
	if filter.HasReferral != nil {
		if *filter.HasReferral {
			query = query.Where("referral_code IS NOT NULL AND referral_code <> ''")
		} else {
			query = query.Where("referral_code IS NULL OR referral_code = ''")
		}
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
