package repository

import (
	"context"
	"errors"
	"time"

	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/utils"
	"gorm.io/gorm"
)

// TransactionRepositoryImpl implements TransactionRepository interface
type TransactionRepositoryImpl struct {
	*BaseRepository[models.Transaction, models.TransactionFilter]
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &TransactionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Transaction, models.TransactionFilter](db),
	}
}

// ByUUID finds a transaction by UUID
func (r *TransactionRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Transaction, error) {
	db := r.getDB(ctx)
	var transaction models.Transaction
	err := db.Where("uuid = ?", uuid).Last(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

// ByProviderReference finds a transaction by Stripe payment intent ID or
// the openpix_<correlationID> marker
func (r *TransactionRepositoryImpl) ByProviderReference(ctx context.Context, ref string) (*models.Transaction, error) {
	db := r.getDB(ctx)
	var transaction models.Transaction
	err := db.Where("provider_reference = ?", ref).Last(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

// ListHoldsInRange lists transactions soft-holding a slot inside [from, to)
func (r *TransactionRepositoryImpl) ListHoldsInRange(ctx context.Context, from, to time.Time) ([]*models.Transaction, error) {
	db := r.getDB(ctx)
	var transactions []*models.Transaction
	err := db.Where("status IN ?", models.HoldStatuses()).
		Where("meeting_slot >= ? AND meeting_slot < ?", from, to).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// HasSucceededForLead reports whether the lead already paid
func (r *TransactionRepositoryImpl) HasSucceededForLead(ctx context.Context, leadID uint) (bool, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.Transaction{}).
		Where("lead_id = ?", leadID).
		Where("status = ?", models.TransactionStatusSucceeded).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateStatus moves a transaction to a new status
func (r *TransactionRepositoryImpl) UpdateStatus(ctx context.Context, transactionID uint, status models.TransactionStatus) error {
	db := r.getDB(ctx)
	return db.Model(&models.Transaction{}).
		Where("id = ?", transactionID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		}).Error
}

// CancelPending cancels the lead's transactions currently in any of the given
// statuses. Called before creating a replacement payment attempt.
func (r *TransactionRepositoryImpl) CancelPending(ctx context.Context, leadID uint, statuses []models.TransactionStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	db := r.getDB(ctx)
	return db.Model(&models.Transaction{}).
		Where("lead_id = ?", leadID).
		Where("status IN ?", statuses).
		Updates(map[string]any{
			"status":     models.TransactionStatusCanceled,
			"updated_at": utils.UTCNow(),
		}).Error
}

// ListByLead lists all payment attempts of a lead, newest first
func (r *TransactionRepositoryImpl) ListByLead(ctx context.Context, leadID uint) ([]*models.Transaction, error) {
	db := r.getDB(ctx)
	var transactions []*models.Transaction
	err := db.Where("lead_id = ?", leadID).Order("created_at DESC").Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// ByFilter retrieves transactions based on filter criteria
func (r *TransactionRepositoryImpl) ByFilter(ctx context.Context, filter models.TransactionFilter, orderBy string, limit, offset int) ([]*models.Transaction, error) {
	db := r.getDB(ctx)
	var transactions []*models.Transaction

	query := db.Model(&models.Transaction{})
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

	err := query.Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// Count returns the number of transactions matching the filter
func (r *TransactionRepositoryImpl) Count(ctx context.Context, filter models.TransactionFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.Transaction{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any transaction matching the filter exists
func (r *TransactionRepositoryImpl) Exists(ctx context.Context, filter models.TransactionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *TransactionRepositoryImpl) applyFilter(query *gorm.DB, filter models.TransactionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.LeadID != nil {
		query = query.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.PaymentMethod != nil {
		query = query.Where("payment_method = ?", *filter.PaymentMethod)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.ProviderReference != nil {
		query = query.Where("provider_reference = ?", *filter.ProviderReference)
	}
	if filter.MeetingSlot != nil {
		query = query.Where("meeting_slot = ?", *filter.MeetingSlot)
	}
	if filter.SlotAfter != nil {
		query = query.Where("meeting_slot >= ?", *filter.SlotAfter)
	}
	if filter.SlotBefore != nil {
		query = query.Where("meeting_slot < ?", *filter.SlotBefore)
	}
	return query
}
