package businessflow

import (
	"context"
	"strings"

	"github.com/impulso-digital/leadshub/app/dto"
	"github.com/impulso-digital/leadshub/app/services"
	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/repository"
	"github.com/impulso-digital/leadshub/utils"
	"gorm.io/gorm"
)

// LeadFlow handles lead intake from the landing page: normalization,
// fraud heuristics, referral hit recording and notification dispatch.
type LeadFlow interface {
	CreateLead(ctx context.Context, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.CreateLeadResponse, error)
}

// LeadFlowImpl implements the lead intake business flow
type LeadFlowImpl struct {
	leadRepo        repository.LeadRepository
	referrerRepo    repository.ReferrerRepository
	hitRepo         repository.ReferralHitRepository
	rateLimiter     services.RateLimitService
	notificationSvc services.NotificationService
	db              *gorm.DB
}

// NewLeadFlow creates a new lead flow instance
func NewLeadFlow(
	leadRepo repository.LeadRepository,
	referrerRepo repository.ReferrerRepository,
	hitRepo repository.ReferralHitRepository,
	rateLimiter services.RateLimitService,
	notificationSvc services.NotificationService,
	db *gorm.DB,
) LeadFlow {
	return &LeadFlowImpl{
		leadRepo:        leadRepo,
		referrerRepo:    referrerRepo,
		hitRepo:         hitRepo,
		rateLimiter:     rateLimiter,
		notificationSvc: notificationSvc,
		db:              db,
	}
}

// fraudCheck is one named step of the referral fraud pipeline. Checks run in
// order; the first tripped check determines the rejection reason.
type fraudCheck struct {
	name string
	run  func(ctx context.Context) (bool, error)
}

// CreateLead captures a landing page submission
func (f *LeadFlowImpl) CreateLead(ctx context.Context, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.CreateLeadResponse, error) {
	whatsapp := utils.NormalizePhone(req.Whatsapp)
	if whatsapp == "" {
		return nil, NewBusinessError(CodeValidationError, "Whatsapp number must contain digits", nil)
	}
	userAgent := utils.NormalizeUserAgent(metadata.UserAgent)
	ip := metadata.IPAddress

	// Attempt throttle counts every submission from the IP, accepted or not
	if ip != "" {
		count, remaining, err := f.rateLimiter.Hit(ctx, "leads:ip:"+ip, utils.LeadAttemptWindow)
		if err != nil {
			return nil, NewBusinessError(CodeInternalError, "Failed to check submission rate", err)
		}
		if count > utils.MaxLeadAttemptsPerIP {
			return nil, &RateLimitError{RetryAfter: remaining, Err: ErrTooManyLeadsFromIP}
		}
	}

	// An inactive or unknown referral code is silently dropped, never rejected
	referrer, err := f.resolveActiveReferrer(ctx, req.ReferralCode)
	if err != nil {
		return nil, err
	}

	if referrer != nil {
		if err := f.runFraudChecks(ctx, referrer.ReferralCode, whatsapp, ip, userAgent); err != nil {
			return nil, err
		}
	}

	// The velocity cap counts stored leads inside the trailing window, so
	// rejected submissions never consume the allowance
	if ip != "" {
		count, err := f.leadRepo.CountByIPSince(ctx, ip, utils.UTCNow().Add(-utils.VelocityWindow))
		if err != nil {
			return nil, NewBusinessError(CodeInternalError, "Failed to check submission rate", err)
		}
		if count >= utils.MaxLeadsPerIPWindow {
			return nil, &RateLimitError{RetryAfter: utils.VelocityWindow, Err: ErrTooManyLeadsFromIP}
		}
	}

	tracking := utils.ExtractTracking(metadata.UserAgent, map[string]string{
		"utm_source":   deref(req.UTMSource),
		"utm_medium":   deref(req.UTMMedium),
		"utm_campaign": deref(req.UTMCampaign),
	})

	lead := &models.Lead{
		Name:             strings.TrimSpace(req.Name),
		Email:            strings.TrimSpace(strings.ToLower(req.Email)),
		Whatsapp:         whatsapp,
		Company:          req.Company,
		MonthlyAdsBudget: req.MonthlyAdsBudget,
		Stage:            models.LeadStageNaBase,
		TrackingID:       req.TrackingID,
		Device:           utils.ToPtr(tracking.Device),
		OS:               utils.ToPtr(tracking.OS),
		Browser:          utils.ToPtr(tracking.Browser),
		UTMSource:        req.UTMSource,
		UTMMedium:        req.UTMMedium,
		UTMCampaign:      req.UTMCampaign,
	}
	if referrer != nil {
		lead.ReferralCode = utils.ToPtr(referrer.ReferralCode)
	}
	if ip != "" {
		lead.IPAddress = utils.ToPtr(ip)
	}
	lead.UserAgent = utils.ToPtr(userAgent)

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.leadRepo.Save(txCtx, lead); err != nil {
			return err
		}
		if referrer != nil && ip != "" {
			return f.recordHit(txCtx, referrer.ReferralCode, ip, userAgent, &tracking, lead)
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("LEAD_CREATE_FAILED", "Failed to create lead", err)
	}

	// Best-effort notification, never blocks the response
	go func() {
		code := ""
		if lead.ReferralCode != nil {
			code = *lead.ReferralCode
		}
		f.notificationSvc.NotifyNewLead(context.Background(), lead.Name, lead.Email, lead.Whatsapp, code)
	}()

	return &dto.CreateLeadResponse{Lead: ToLeadDTO(*lead)}, nil
}

// resolveActiveReferrer returns the active referrer for a submitted code, or
// nil when the code is absent, unknown or inactive. Influencer slugs are
// stored lowercase so a second lowercase lookup covers mixed-case input.
func (f *LeadFlowImpl) resolveActiveReferrer(ctx context.Context, rawCode *string) (*models.Referrer, error) {
	if rawCode == nil {
		return nil, nil
	}
	code := strings.TrimSpace(*rawCode)
	if code == "" {
		return nil, nil
	}

	referrer, err := f.referrerRepo.ByReferralCode(ctx, code)
	if err != nil {
		return nil, NewBusinessError("REFERRER_LOOKUP_FAILED", "Failed to lookup referral code", err)
	}
	if referrer == nil && code != strings.ToLower(code) {
		referrer, err = f.referrerRepo.ByReferralCode(ctx, strings.ToLower(code))
		if err != nil {
			return nil, NewBusinessError("REFERRER_LOOKUP_FAILED", "Failed to lookup referral code", err)
		}
	}
	if referrer == nil || !referrer.IsActive() {
		return nil, nil
	}
	return referrer, nil
}

// runFraudChecks executes the duplicate detection pipeline for a referral
// code. All checks compare against previously captured leads under the same
// code; the first tripped check rejects the submission.
func (f *LeadFlowImpl) runFraudChecks(ctx context.Context, code, whatsapp, ip, userAgent string) error {
	checks := []fraudCheck{
		{
			name: "duplicate whatsapp",
			run: func(ctx context.Context) (bool, error) {
				return f.leadRepo.Exists(ctx, models.LeadFilter{
					ReferralCode: &code,
					Whatsapp:     &whatsapp,
				})
			},
		},
		{
			name: "duplicate ip",
			run: func(ctx context.Context) (bool, error) {
				if ip == "" {
					return false, nil
				}
				return f.leadRepo.Exists(ctx, models.LeadFilter{
					ReferralCode: &code,
					IPAddress:    &ip,
				})
			},
		},
		{
			name: "duplicate ip and user agent",
			run: func(ctx context.Context) (bool, error) {
				if ip == "" || userAgent == utils.UnknownUserAgent {
					return false, nil
				}
				return f.leadRepo.Exists(ctx, models.LeadFilter{
					ReferralCode: &code,
					IPAddress:    &ip,
					UserAgent:    &userAgent,
				})
			},
		},
		{
			name: "user agent reuse cap",
			run: func(ctx context.Context) (bool, error) {
				if userAgent == utils.UnknownUserAgent {
					return false, nil
				}
				count, err := f.leadRepo.Count(ctx, models.LeadFilter{
					ReferralCode: &code,
					UserAgent:    &userAgent,
				})
				if err != nil {
					return false, err
				}
				return count >= utils.MaxUserAgentRepeats, nil
			},
		},
	}

	for _, check := range checks {
		tripped, err := check.run(ctx)
		if err != nil {
			return NewBusinessError(CodeInternalError, "Fraud check failed", err)
		}
		if tripped {
			return NewBusinessErrorf(CodeValidationError, "Referral rejected: %s", ErrDuplicateReferral, check.name)
		}
	}
	return nil
}

// recordHit stores one click-through record per (code, ip) pair
func (f *LeadFlowImpl) recordHit(ctx context.Context, code, ip, userAgent string, tracking *utils.TrackingInfo, lead *models.Lead) error {
	exists, err := f.hitRepo.Exists(ctx, models.ReferralHitFilter{
		ReferralCode: &code,
		IPAddress:    &ip,
	})
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hit := &models.ReferralHit{
		ReferralCode: code,
		IPAddress:    ip,
		UserAgent:    userAgent,
		Device:       utils.ToPtr(tracking.Device),
		OS:           utils.ToPtr(tracking.OS),
		Browser:      utils.ToPtr(tracking.Browser),
		UTMSource:    lead.UTMSource,
		UTMMedium:    lead.UTMMedium,
		UTMCampaign:  lead.UTMCampaign,
	}
	return f.hitRepo.Save(ctx, hit)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
