package businessflow

import (
	"context"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/impulso-digital/leadshub/app/services"
	"github.com/impulso-digital/leadshub/metrics"
	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/repository"
)

// Stripe event types the flow reacts to
const (
	StripeEventSucceeded     = "payment_intent.succeeded"
	StripeEventProcessing    = "payment_intent.processing"
	StripeEventPaymentFailed = "payment_intent.payment_failed"
	StripeEventCanceled      = "payment_intent.canceled"
)

// OpenPix event types the flow reacts to
const (
	PixEventChargeCompleted = "OPENPIX:CHARGE_COMPLETED"
	PixEventChargeExpired   = "OPENPIX:CHARGE_EXPIRED"
)

// WebhookFlow processes payment provider callbacks. Handlers must stay
// idempotent since providers retry deliveries.
type WebhookFlow interface {
	HandleStripeEvent(ctx context.Context, payload []byte, signature string) (map[string]any, error)
	HandlePixEvent(ctx context.Context, payload []byte, authorization string) (map[string]any, error)
}

// WebhookFlowImpl implements the webhook business flow
type WebhookFlowImpl struct {
	leadRepo        repository.LeadRepository
	transactionRepo repository.TransactionRepository
	meetingRepo     repository.MeetingRepository
	stripeClient    *services.StripeClient
	openPixClient   *services.OpenPixClient
	notificationSvc services.NotificationService
	db              *gorm.DB
}

// NewWebhookFlow creates a new webhook flow instance
func NewWebhookFlow(
	leadRepo repository.LeadRepository,
	transactionRepo repository.TransactionRepository,
	meetingRepo repository.MeetingRepository,
	stripeClient *services.StripeClient,
	openPixClient *services.OpenPixClient,
	notificationSvc services.NotificationService,
	db *gorm.DB,
) WebhookFlow {
	return &WebhookFlowImpl{
		leadRepo:        leadRepo,
		transactionRepo: transactionRepo,
		meetingRepo:     meetingRepo,
		stripeClient:    stripeClient,
		openPixClient:   openPixClient,
		notificationSvc: notificationSvc,
		db:              db,
	}
}

// HandleStripeEvent verifies and applies a Stripe event. A bad signature is
// the only rejection; unknown events and unknown payment intents are
// acknowledged so Stripe stops retrying them.
func (f *WebhookFlowImpl) HandleStripeEvent(ctx context.Context, payload []byte, signature string) (map[string]any, error) {
	event, err := f.stripeClient.ParseWebhookEvent(payload, signature)
	if err != nil {
		return nil, NewBusinessError(CodeValidationError, "Invalid webhook signature", ErrInvalidSignature)
	}

	intentID := event.Data.Object.ID
	if intentID == "" {
		return map[string]any{"received": true}, nil
	}

	tx, err := f.transactionRepo.ByProviderReference(ctx, intentID)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to look up transaction", err)
	}
	if tx == nil {
		return map[string]any{"received": true}, nil
	}

	switch event.Type {
	case StripeEventSucceeded:
		if err := f.confirmPayment(ctx, tx); err != nil {
			return nil, err
		}
	case StripeEventProcessing:
		err = f.moveTo(ctx, tx, models.TransactionStatusProcessing)
	case StripeEventPaymentFailed:
		// Back to requires_payment_method so the customer can retry the card
		err = f.moveTo(ctx, tx, models.TransactionStatusRequiresPaymentMethod)
	case StripeEventCanceled:
		err = f.moveTo(ctx, tx, models.TransactionStatusCanceled)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"received": true}, nil
}

// HandlePixEvent applies an OpenPix event. OpenPix sends an endpoint
// verification ping with no charge attached; it gets an empty 200 body.
func (f *WebhookFlowImpl) HandlePixEvent(ctx context.Context, payload []byte, authorization string) (map[string]any, error) {
	if !f.openPixClient.VerifyWebhookAuthorization(authorization) {
		return nil, NewBusinessError(CodeValidationError, "Invalid webhook authorization", ErrInvalidSignature)
	}

	event, err := f.openPixClient.ParseWebhookEvent(payload)
	if err != nil {
		return nil, NewBusinessError(CodeValidationError, "Malformed webhook payload", err)
	}
	if event.IsTestPing() {
		return map[string]any{}, nil
	}

	tx, err := f.transactionRepo.ByProviderReference(ctx, "openpix_"+event.Charge.CorrelationID)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to look up transaction", err)
	}
	if tx == nil {
		return map[string]any{"received": true}, nil
	}

	switch event.Event {
	case PixEventChargeCompleted:
		if err := f.confirmPayment(ctx, tx); err != nil {
			return nil, err
		}
	case PixEventChargeExpired:
		if err := f.moveTo(ctx, tx, models.TransactionStatusCanceled); err != nil {
			return nil, err
		}
	}
	return map[string]any{"received": true}, nil
}

// confirmPayment finalizes a paid transaction: marks it succeeded, books the
// meeting and promotes the lead. The unique index on meetings.transaction_id
// backs up the existence check against concurrent deliveries.
func (f *WebhookFlowImpl) confirmPayment(ctx context.Context, tx *models.Transaction) error {
	existing, err := f.meetingRepo.ByTransactionID(ctx, tx.ID)
	if err != nil {
		return NewBusinessError(CodeInternalError, "Failed to check for existing meeting", err)
	}
	if existing != nil && tx.Status == models.TransactionStatusSucceeded {
		return nil
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.transactionRepo.UpdateStatus(txCtx, tx.ID, models.TransactionStatusSucceeded); err != nil {
			return err
		}
		if existing == nil {
			meeting := &models.Meeting{
				LeadID:        tx.LeadID,
				TransactionID: tx.ID,
				AffiliateID:   tx.AffiliateID,
				ScheduledAt:   tx.MeetingSlot,
				Status:        models.MeetingStatusScheduled,
			}
			if err := f.meetingRepo.Save(txCtx, meeting); err != nil {
				if isUniqueViolation(err) {
					return nil
				}
				return err
			}
		}
		return f.leadRepo.UpdateStage(txCtx, tx.LeadID, models.LeadStageComprado)
	})
	if err != nil {
		return NewBusinessError(CodeInternalError, "Failed to confirm payment", err)
	}

	metrics.RecordPaymentConfirmed(string(tx.PaymentMethod))
	f.notifyConfirmed(tx)
	return nil
}

func (f *WebhookFlowImpl) moveTo(ctx context.Context, tx *models.Transaction, status models.TransactionStatus) error {
	if tx.Status == status {
		return nil
	}
	if err := f.transactionRepo.UpdateStatus(ctx, tx.ID, status); err != nil {
		return NewBusinessError(CodeInternalError, "Failed to update transaction status", err)
	}
	return nil
}

func (f *WebhookFlowImpl) notifyConfirmed(tx *models.Transaction) {
	go func() {
		ctx := context.Background()
		lead, err := f.leadRepo.ByID(ctx, tx.LeadID)
		if err != nil || lead == nil {
			log.Printf("webhook: failed to load lead %d for notification: %v", tx.LeadID, err)
			return
		}
		f.notificationSvc.NotifyPaymentConfirmed(ctx, lead.Name, tx.Amount, string(tx.PaymentMethod))
		f.notificationSvc.NotifyMeetingBooked(ctx, lead.Name, tx.MeetingSlot)
	}()
}

// isUniqueViolation detects PostgreSQL unique constraint errors without
// binding the flow layer to a driver error type.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "SQLSTATE 23505")
}
