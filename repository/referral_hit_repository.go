package repository

import (
	"context"

	"github.com/impulso-digital/leadshub/models"
	"gorm.io/gorm"
)

// ReferralHitRepositoryImpl implements ReferralHitRepository interface
type ReferralHitRepositoryImpl struct {
	*BaseRepository[models.ReferralHit, models.ReferralHitFilter]
}

// NewReferralHitRepository creates a new referral hit repository
func NewReferralHitRepository(db *gorm.DB) ReferralHitRepository {
	return &ReferralHitRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ReferralHit, models.ReferralHitFilter](db),
	}
}

// CountByCode counts tracked visits for a referral code
func (r *ReferralHitRepositoryImpl) CountByCode(ctx context.Context, code string) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.ReferralHit{}).Where("referral_code = ?", code).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ByFilter retrieves referral hits based on filter criteria
func (r *ReferralHitRepositoryImpl) ByFilter(ctx context.Context, filter models.ReferralHitFilter, orderBy string, limit, offset int) ([]*models.ReferralHit, error) {
	db := r.getDB(ctx)
	var hits []*models.ReferralHit

	query := db.Model(&models.ReferralHit{})
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

	err := query.Find(&hits).Error
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// Count returns the number of referral hits matching the filter
func (r *ReferralHitRepositoryImpl) Count(ctx context.Context, filter models.ReferralHitFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.ReferralHit{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any referral hit matching the filter exists
func (r *ReferralHitRepositoryImpl) Exists(ctx context.Context, filter models.ReferralHitFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *ReferralHitRepositoryImpl) applyFilter(query *gorm.DB, filter models.ReferralHitFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.ReferralCode != nil {
		query = query.Where("referral_code = ?", *filter.ReferralCode)
	}
	if filter.IPAddress != nil {
		query = query.Where("ip_address = ?", *filter.IPAddress)
	}
	if filter.UserAgent != nil {
		query = query.Where("user_agent = ?", *filter.UserAgent)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
