package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/impulso-digital/leadshub/app/dto"
	"github.com/impulso-digital/leadshub/app/services"
	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/repository"
	"github.com/impulso-digital/leadshub/utils"
)

// PixChargeExpirySeconds is how long a PIX charge stays payable
const PixChargeExpirySeconds = 3600

// CheckoutFlow creates payment attempts for a booked session slot
type CheckoutFlow interface {
	CreatePaymentIntent(ctx context.Context, req *dto.CreatePaymentIntentRequest, metadata *ClientMetadata) (*dto.CreatePaymentIntentResponse, error)
	CreatePix(ctx context.Context, req *dto.CreatePixRequest, metadata *ClientMetadata) (*dto.CreatePixResponse, error)
}

// CheckoutFlowImpl implements the checkout business flow
type CheckoutFlowImpl struct {
	leadRepo        repository.LeadRepository
	transactionRepo repository.TransactionRepository
	meetingRepo     repository.MeetingRepository
	attribution     AttributionResolver
	stripeClient    *services.StripeClient
	openPixClient   *services.OpenPixClient
	location        *time.Location
	db              *gorm.DB
	now             func() time.Time
}

// NewCheckoutFlow creates a new checkout flow instance
func NewCheckoutFlow(
	leadRepo repository.LeadRepository,
	transactionRepo repository.TransactionRepository,
	meetingRepo repository.MeetingRepository,
	attribution AttributionResolver,
	stripeClient *services.StripeClient,
	openPixClient *services.OpenPixClient,
	location *time.Location,
	db *gorm.DB,
	now func() time.Time,
) CheckoutFlow {
	if now == nil {
		now = time.Now
	}
	return &CheckoutFlowImpl{
		leadRepo:        leadRepo,
		transactionRepo: transactionRepo,
		meetingRepo:     meetingRepo,
		attribution:     attribution,
		stripeClient:    stripeClient,
		openPixClient:   openPixClient,
		location:        location,
		db:              db,
		now:             now,
	}
}

// CreatePaymentIntent starts a card payment for a slot. The transaction is
// persisted in requires_payment_method and only confirmed via webhook.
func (f *CheckoutFlowImpl) CreatePaymentIntent(ctx context.Context, req *dto.CreatePaymentIntentRequest, metadata *ClientMetadata) (*dto.CreatePaymentIntentResponse, error) {
	lead, slot, err := f.prepareBooking(ctx, req.LeadUUID, req.MeetingSlot, cardCancelStatuses())
	if err != nil {
		return nil, err
	}
	if err := f.refreshEmail(ctx, lead, req.Email); err != nil {
		return nil, err
	}

	affiliate, err := f.attribution.Resolve(ctx, lead)
	if err != nil {
		return nil, err
	}

	tx := f.newTransaction(lead, affiliate, models.PaymentMethodCard, models.TransactionStatusRequiresPaymentMethod, slot)

	intent, err := f.stripeClient.CreatePaymentIntent(ctx, tx.Amount, utils.BRLCurrency, map[string]string{
		"transactionId": tx.UUID.String(),
		"leadId":        lead.UUID.String(),
	})
	if err != nil {
		return nil, NewBusinessError(CodeUpstreamError, "Payment provider unavailable", fmt.Errorf("%w: %v", ErrPaymentProvider, err))
	}
	ref := intent.ID
	tx.ProviderReference = &ref

	if err := f.transactionRepo.Save(ctx, tx); err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to record payment attempt", err)
	}

	return &dto.CreatePaymentIntentResponse{
		TransactionUUID: tx.UUID.String(),
		ClientSecret:    intent.ClientSecret,
		Amount:          tx.Amount,
	}, nil
}

// CreatePix starts a PIX payment for a slot. A successful charge creation
// moves the transaction straight to processing since the BR code is live.
func (f *CheckoutFlowImpl) CreatePix(ctx context.Context, req *dto.CreatePixRequest, metadata *ClientMetadata) (*dto.CreatePixResponse, error) {
	if !f.openPixClient.Enabled() {
		return nil, NewBusinessError(CodePixNotEnabled, "PIX payments are not enabled", ErrPixNotEnabled)
	}

	lead, slot, err := f.prepareBooking(ctx, req.LeadUUID, req.MeetingSlot, pixCancelStatuses())
	if err != nil {
		return nil, err
	}
	if err := f.refreshEmail(ctx, lead, req.Email); err != nil {
		return nil, err
	}

	affiliate, err := f.attribution.Resolve(ctx, lead)
	if err != nil {
		return nil, err
	}

	tx := f.newTransaction(lead, affiliate, models.PaymentMethodPix, models.TransactionStatusProcessing, slot)

	customer := &services.PixCustomer{
		Name:  lead.Name,
		Email: lead.Email,
		Phone: lead.Whatsapp,
		TaxID: req.CPF,
	}
	charge, err := f.openPixClient.CreateCharge(ctx, tx.UUID.String(), tx.Amount, "Sessão de otimização - "+lead.Name, customer, PixChargeExpirySeconds)
	if err != nil {
		return nil, NewBusinessError(CodeUpstreamError, "Payment provider unavailable", fmt.Errorf("%w: %v", ErrPaymentProvider, err))
	}
	ref := "openpix_" + charge.CorrelationID
	tx.ProviderReference = &ref

	if err := f.transactionRepo.Save(ctx, tx); err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to record payment attempt", err)
	}

	return &dto.CreatePixResponse{
		TransactionUUID: tx.UUID.String(),
		BRCode:          charge.BRCode,
		QRCodeImage:     charge.QRCodeImage,
		Amount:          tx.Amount,
		ExpiresIn:       charge.ExpiresIn,
	}, nil
}

// prepareBooking runs the shared booking guard: slot shape, paid-lead check,
// collision check, then cancellation of the lead's superseded attempts.
func (f *CheckoutFlowImpl) prepareBooking(ctx context.Context, leadUUID, meetingSlot string, cancelStatuses []models.TransactionStatus) (*models.Lead, time.Time, error) {
	lead, err := f.leadRepo.ByUUID(ctx, leadUUID)
	if err != nil {
		return nil, time.Time{}, NewBusinessError(CodeInternalError, "Failed to look up lead", err)
	}
	if lead == nil {
		return nil, time.Time{}, NewBusinessError(CodeNotFound, "Lead not found", ErrLeadNotFound)
	}

	slot, err := f.parseSlot(meetingSlot)
	if err != nil {
		return nil, time.Time{}, err
	}

	paid, err := f.transactionRepo.HasSucceededForLead(ctx, lead.ID)
	if err != nil {
		return nil, time.Time{}, NewBusinessError(CodeInternalError, "Failed to check payment history", err)
	}
	if paid {
		return nil, time.Time{}, NewBusinessError(CodeAlreadyPaid, "Lead has already completed a payment", ErrAlreadyPaid)
	}

	// Collision is window overlap, not exact-start equality: a 15:00 request
	// collides with a session running 14:00-18:00.
	duration := time.Duration(utils.SessionDurationHours) * time.Hour
	windowStart := slot.Add(-duration)
	windowEnd := slot.Add(duration)

	meetings, err := f.meetingRepo.ListScheduledInRange(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, time.Time{}, NewBusinessError(CodeInternalError, "Failed to check slot availability", err)
	}
	for _, m := range meetings {
		if SlotsOverlap(slot, m.ScheduledAt.In(f.location)) {
			return nil, time.Time{}, NewBusinessError(CodeSlotTaken, "Slot is no longer available", ErrSlotTaken)
		}
	}

	holds, err := f.transactionRepo.ListHoldsInRange(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, time.Time{}, NewBusinessError(CodeInternalError, "Failed to check slot availability", err)
	}
	for _, hold := range holds {
		// The lead's own holds are superseded below, never a collision
		if hold.LeadID == lead.ID {
			continue
		}
		if SlotsOverlap(slot, hold.MeetingSlot.In(f.location)) {
			return nil, time.Time{}, NewBusinessError(CodeSlotTaken, "Slot is no longer available", ErrSlotTaken)
		}
	}

	// A lead retrying checkout abandons any earlier in-flight attempt
	if err := f.transactionRepo.CancelPending(ctx, lead.ID, cancelStatuses); err != nil {
		return nil, time.Time{}, NewBusinessError(CodeInternalError, "Failed to cancel previous attempts", err)
	}

	return lead, slot, nil
}

// refreshEmail replaces the lead's intake email with the one submitted at
// checkout. The updated address feeds the email attribution tier.
func (f *CheckoutFlowImpl) refreshEmail(ctx context.Context, lead *models.Lead, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || email == lead.Email {
		return nil
	}
	if err := f.leadRepo.UpdateEmail(ctx, lead.ID, email); err != nil {
		return NewBusinessError(CodeInternalError, "Failed to update lead email", err)
	}
	lead.Email = email
	return nil
}

func (f *CheckoutFlowImpl) parseSlot(value string) (time.Time, error) {
	slot, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, NewBusinessError(CodeValidationError, "Invalid meeting slot, expected RFC3339", err)
	}
	slot = slot.In(f.location)

	if slot.Minute() != 0 || slot.Second() != 0 {
		return time.Time{}, NewBusinessError(CodeValidationError, "Meeting slot must start on the hour", ErrSlotOutsideHours)
	}
	if slot.Hour() < utils.FirstSlotHour || slot.Hour() > utils.LastSlotHour {
		return time.Time{}, NewBusinessError(CodeValidationError, "Meeting slot outside business hours", ErrSlotOutsideHours)
	}
	if !slot.After(f.now().In(f.location).Add(utils.SlotLeadTime)) {
		return time.Time{}, NewBusinessError(CodeValidationError, "Meeting slot is in the past", ErrSlotInPast)
	}
	return slot, nil
}

func (f *CheckoutFlowImpl) newTransaction(lead *models.Lead, affiliate *models.Referrer, method models.PaymentMethod, status models.TransactionStatus, slot time.Time) *models.Transaction {
	tx := &models.Transaction{
		UUID:          uuid.New(),
		LeadID:        lead.ID,
		Amount:        utils.ProductAmountCents,
		PaymentMethod: method,
		Status:        status,
		MeetingSlot:   slot,
	}
	if affiliate != nil {
		tx.AffiliateID = &affiliate.ID
		tx.AmountAffiliate = utils.AffiliateAmountCents
	}
	return tx
}

func cardCancelStatuses() []models.TransactionStatus {
	return append(pixCancelStatuses(), models.TransactionStatusRequiresConfirmation)
}

func pixCancelStatuses() []models.TransactionStatus {
	return []models.TransactionStatus{
		models.TransactionStatusRequiresPaymentMethod,
		models.TransactionStatusProcessing,
		models.TransactionStatusRequiresAction,
	}
}
