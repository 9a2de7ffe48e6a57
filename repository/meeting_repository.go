package repository

import (
	"context"
	"errors"
	"time"

	"github.com/impulso-digital/leadshub/models"
	"gorm.io/gorm"
)

// MeetingRepositoryImpl implements MeetingRepository interface
type MeetingRepositoryImpl struct {
	*BaseRepository[models.Meeting, models.MeetingFilter]
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) MeetingRepository {
	return &MeetingRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Meeting, models.MeetingFilter](db),
	}
}

// ByTransactionID finds the meeting booked by a transaction, if any
func (r *MeetingRepositoryImpl) ByTransactionID(ctx context.Context, transactionID uint) (*models.Meeting, error) {
	db := r.getDB(ctx)
	var meeting models.Meeting
	err := db.Where("transaction_id = ?", transactionID).Last(&meeting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &meeting, nil
}

// ListScheduledInRange lists scheduled meetings starting inside [from, to)
func (r *MeetingRepositoryImpl) ListScheduledInRange(ctx context.Context, from, to time.Time) ([]*models.Meeting, error) {
	db := r.getDB(ctx)
	var meetings []*models.Meeting
	err := db.Where("status = ?", models.MeetingStatusScheduled).
		Where("scheduled_at >= ? AND scheduled_at < ?", from, to).
		Find(&meetings).Error
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

// ByFilter retrieves meetings based on filter criteria
func (r *MeetingRepositoryImpl) ByFilter(ctx context.Context, filter models.MeetingFilter, orderBy string, limit, offset int) ([]*models.Meeting, error) {
	db := r.getDB(ctx)
	var meetings []*models.Meeting

	query := db.Model(&models.Meeting{})
	query = r.applyFilter(query, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	} else {
		query = query.Order("scheduled_at ASC")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&meetings).Error
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

// Count returns the number of meetings matching the filter
func (r *MeetingRepositoryImpl) Count(ctx context.Context, filter models.MeetingFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.Meeting{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any meeting matching the filter exists
func (r *MeetingRepositoryImpl) Exists(ctx context.Context, filter models.MeetingFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *MeetingRepositoryImpl) applyFilter(query *gorm.DB, filter models.MeetingFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.LeadID != nil {
		query = query.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.TransactionID != nil {
		query = query.Where("transaction_id = ?", *filter.TransactionID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ScheduledAt != nil {
		query = query.Where("scheduled_at = ?", *filter.ScheduledAt)
	}
	if filter.ScheduledAfter != nil {
		query = query.Where("scheduled_at >= ?", *filter.ScheduledAfter)
	}
	if filter.ScheduledBefore != nil {
		query = query.Where("scheduled_at < ?", *filter.ScheduledBefore)
	}
	return query
}
