package repository

import (
	"context"
	"errors"

	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/utils"
	"gorm.io/gorm"
)

// ReferrerRepositoryImpl implements ReferrerRepository interface
type ReferrerRepositoryImpl struct {
	*BaseRepository[models.Referrer, models.ReferrerFilter]
}

// NewReferrerRepository creates a new referrer repository
func NewReferrerRepository(db *gorm.DB) ReferrerRepository {
	return &ReferrerRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Referrer, models.ReferrerFilter](db),
	}
}

// ByUUID finds a referrer by UUID
func (r *ReferrerRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Referrer, error) {
	db := r.getDB(ctx)
	var referrer models.Referrer
	err := db.Where("uuid = ?", uuid).Last(&referrer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referrer, nil
}

// ByReferralCode finds a referrer by referral code
func (r *ReferrerRepositoryImpl) ByReferralCode(ctx context.Context, code string) (*models.Referrer, error) {
	db := r.getDB(ctx)
	var referrer models.Referrer
	err := db.Where("referral_code = ?", code).Last(&referrer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referrer, nil
}

// ByToken finds a referrer by its private stats token
func (r *ReferrerRepositoryImpl) ByToken(ctx context.Context, token string) (*models.Referrer, error) {
	db := r.getDB(ctx)
	var referrer models.Referrer
	err := db.Where("token = ?", token).Last(&referrer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referrer, nil
}

// ByEmail finds a referrer by email address
func (r *ReferrerRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Referrer, error) {
	db := r.getDB(ctx)
	var referrer models.Referrer
	err := db.Where("LOWER(email) = LOWER(?)", email).Last(&referrer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referrer, nil
}

// ByWhatsapp finds a referrer by normalized whatsapp number
func (r *ReferrerRepositoryImpl) ByWhatsapp(ctx context.Context, whatsapp string) (*models.Referrer, error) {
	db := r.getDB(ctx)
	var referrer models.Referrer
	err := db.Where("whatsapp = ?", whatsapp).Last(&referrer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referrer, nil
}

// UpdatePixKey stores a new (already normalized) pix key
func (r *ReferrerRepositoryImpl) UpdatePixKey(ctx context.Context, referrerID uint, pixKey string) error {
	db := r.getDB(ctx)
	return db.Model(&models.Referrer{}).
		Where("id = ?", referrerID).
		Updates(map[string]any{
			"pix_key":    pixKey,
			"updated_at": utils.UTCNow(),
		}).Error
}

// UpdateStatus activates or deactivates a referral code
func (r *ReferrerRepositoryImpl) UpdateStatus(ctx context.Context, referrerID uint, status models.ReferrerStatus) error {
	db := r.getDB(ctx)
	return db.Model(&models.Referrer{}).
		Where("id = ?", referrerID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		}).Error
}

// ListInfluencers lists all admin-created influencer referrers
func (r *ReferrerRepositoryImpl) ListInfluencers(ctx context.Context) ([]*models.Referrer, error) {
	db := r.getDB(ctx)
	var referrers []*models.Referrer
	err := db.Where("is_influencer = ?", true).Order("created_at DESC").Find(&referrers).Error
	if err != nil {
		return nil, err
	}
	return referrers, nil
}

// ByFilter retrieves referrers based on filter criteria
func (r *ReferrerRepositoryImpl) ByFilter(ctx context.Context, filter models.ReferrerFilter, orderBy string, limit, offset int) ([]*models.Referrer, error) {
	db := r.getDB(ctx)
	var referrers []*models.Referrer

	query := db.Model(&models.Referrer{})
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

	err := query.Find(&referrers).Error
	if err != nil {
		return nil, err
	}
	return referrers, nil
}

// Count returns the number of referrers matching the filter
func (r *ReferrerRepositoryImpl) Count(ctx context.Context, filter models.ReferrerFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.Referrer{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any referrer matching the filter exists
func (r *ReferrerRepositoryImpl) Exists(ctx context.Context, filter models.ReferrerFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *ReferrerRepositoryImpl) applyFilter(query *gorm.DB, filter models.ReferrerFilter) *gorm.DB {
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
	if filter.ReferralCode != nil {
		query = query.Where("referral_code = ?", *filter.ReferralCode)
	}
	if filter.Token != nil {
		query = query.Where("token = ?", *filter.Token)
	}
	if filter.Slug != nil {
		query = query.Where("slug = ?", *filter.Slug)
	}
	if filter.IsInfluencer != nil {
		query = query.Where("is_influencer = ?", *filter.IsInfluencer)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}
