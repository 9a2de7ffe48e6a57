package businessflow

import (
	"context"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/impulso-digital/leadshub/app/dto"
	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/repository"
	"github.com/impulso-digital/leadshub/utils"
)

const (
	referralCodeLength = 8
	referralTokenBytes = 32 // 64 hex chars
	codeGenAttempts    = 5
)

// leadStagePriority ranks funnel stages when collapsing a person's leads
var leadStagePriority = map[models.LeadStage]int{
	models.LeadStageComprado:  100,
	models.LeadStageEmContato: 50,
	models.LeadStageNaBase:    30,
	models.LeadStageRejeitado: 10,
}

// transactionStatusPriority ranks payment statuses when a person has several
// attempts; the most advanced one represents them in stats.
var transactionStatusPriority = map[models.TransactionStatus]int{
	models.TransactionStatusSucceeded:             100,
	models.TransactionStatusProcessing:            80,
	models.TransactionStatusRequiresAction:        60,
	models.TransactionStatusRequiresConfirmation:  50,
	models.TransactionStatusRequiresPaymentMethod: 40,
	models.TransactionStatusPending:               30,
	models.TransactionStatusFailed:                20,
	models.TransactionStatusCanceled:              10,
}

// ReferralFlow handles the referral program public surface: signup, visit
// tracking and the token-gated stats dashboard.
type ReferralFlow interface {
	CreateReferrer(ctx context.Context, req *dto.CreateReferrerRequest, metadata *ClientMetadata) (*dto.CreateReferrerResponse, error)
	Track(ctx context.Context, req *dto.TrackReferralRequest, metadata *ClientMetadata) (*dto.TrackReferralResponse, error)
	Stats(ctx context.Context, token string) (*dto.ReferralStatsResponse, error)
	UpdatePixKey(ctx context.Context, req *dto.UpdatePixKeyRequest) error
}

// ReferralFlowImpl implements the referral program business flow
type ReferralFlowImpl struct {
	referrerRepo    repository.ReferrerRepository
	leadRepo        repository.LeadRepository
	hitRepo         repository.ReferralHitRepository
	transactionRepo repository.TransactionRepository
	shareBaseURL    string
	db              *gorm.DB
	now             func() time.Time
}

// NewReferralFlow creates a new referral flow instance. shareBaseURL is the
// public landing page origin used to build share links.
func NewReferralFlow(
	referrerRepo repository.ReferrerRepository,
	leadRepo repository.LeadRepository,
	hitRepo repository.ReferralHitRepository,
	transactionRepo repository.TransactionRepository,
	shareBaseURL string,
	db *gorm.DB,
	now func() time.Time,
) ReferralFlow {
	if now == nil {
		now = time.Now
	}
	return &ReferralFlowImpl{
		referrerRepo:    referrerRepo,
		leadRepo:        leadRepo,
		hitRepo:         hitRepo,
		transactionRepo: transactionRepo,
		shareBaseURL:    strings.TrimRight(shareBaseURL, "/"),
		db:              db,
		now:             now,
	}
}

// CreateReferrer signs a new participant up and hands back their code plus
// the private token. The token is shown exactly once.
func (f *ReferralFlowImpl) CreateReferrer(ctx context.Context, req *dto.CreateReferrerRequest, metadata *ClientMetadata) (*dto.CreateReferrerResponse, error) {
	whatsapp := utils.NormalizePhone(req.Whatsapp)
	if whatsapp == "" {
		return nil, NewBusinessError(CodeValidationError, "Whatsapp number must contain digits", nil)
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	if existing, err := f.referrerRepo.ByEmail(ctx, email); err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to check email", err)
	} else if existing != nil {
		return nil, NewBusinessError(CodeConflict, "Email is already registered", ErrReferrerEmailExists)
	}
	if existing, err := f.referrerRepo.ByWhatsapp(ctx, whatsapp); err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to check whatsapp", err)
	} else if existing != nil {
		return nil, NewBusinessError(CodeConflict, "Whatsapp is already registered", ErrReferrerWhatsappExists)
	}

	code, err := f.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	token, err := utils.GenerateHexToken(referralTokenBytes)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to generate token", err)
	}

	referrer := &models.Referrer{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Whatsapp:     whatsapp,
		Instagram:    req.Instagram,
		ReferralCode: code,
		Token:        token,
		Status:       models.ReferrerStatusActive,
	}
	if req.PixKey != nil {
		referrer.PixKey = utils.ToPtr(utils.NormalizePixKey(*req.PixKey))
	}

	if err := f.referrerRepo.Save(ctx, referrer); err != nil {
		return nil, NewBusinessError("REFERRER_CREATE_FAILED", "Failed to create referrer", err)
	}

	return &dto.CreateReferrerResponse{
		ReferralCode: code,
		Token:        token,
		ShareLink:    f.shareBaseURL + "/?ref=" + code,
	}, nil
}

// Track records a referral link visit. Unknown or inactive codes are
// acknowledged but not recorded; repeat visits from the same IP collapse
// into the first hit.
func (f *ReferralFlowImpl) Track(ctx context.Context, req *dto.TrackReferralRequest, metadata *ClientMetadata) (*dto.TrackReferralResponse, error) {
	referrer, err := f.resolveCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if referrer == nil || !referrer.IsActive() {
		return &dto.TrackReferralResponse{Tracked: false}, nil
	}

	ip := metadata.IPAddress
	if ip == "" {
		return &dto.TrackReferralResponse{Tracked: false}, nil
	}

	exists, err := f.hitRepo.Exists(ctx, models.ReferralHitFilter{
		ReferralCode: &referrer.ReferralCode,
		IPAddress:    &ip,
	})
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to check visit history", err)
	}
	if exists {
		return &dto.TrackReferralResponse{Tracked: true}, nil
	}

	tracking := utils.ExtractTracking(metadata.UserAgent, landingPageQuery(req.LandingPage))
	hit := &models.ReferralHit{
		ReferralCode: referrer.ReferralCode,
		IPAddress:    ip,
		UserAgent:    utils.NormalizeUserAgent(metadata.UserAgent),
		LandingPage:  req.LandingPage,
		Device:       utils.ToPtr(tracking.Device),
		OS:           utils.ToPtr(tracking.OS),
		Browser:      utils.ToPtr(tracking.Browser),
	}
	if tracking.UTMSource != "" {
		hit.UTMSource = utils.ToPtr(tracking.UTMSource)
	}
	if tracking.UTMMedium != "" {
		hit.UTMMedium = utils.ToPtr(tracking.UTMMedium)
	}
	if tracking.UTMCampaign != "" {
		hit.UTMCampaign = utils.ToPtr(tracking.UTMCampaign)
	}

	if err := f.hitRepo.Save(ctx, hit); err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to record visit", err)
	}
	return &dto.TrackReferralResponse{Tracked: true}, nil
}

// Stats builds the private dashboard for a referrer token
func (f *ReferralFlowImpl) Stats(ctx context.Context, token string) (*dto.ReferralStatsResponse, error) {
	token = strings.TrimSpace(token)
	if !validToken(token) {
		return nil, NewBusinessError(CodeValidationError, "Invalid token format", ErrInvalidToken)
	}

	referrer, err := f.referrerRepo.ByToken(ctx, token)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to look up referrer", err)
	}
	if referrer == nil {
		return nil, NewBusinessError(CodeNotFound, "Referrer not found", ErrReferrerNotFound)
	}

	clicks, err := f.hitRepo.CountByCode(ctx, referrer.ReferralCode)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to count visits", err)
	}

	leads, err := f.leadRepo.ListByReferralCode(ctx, referrer.ReferralCode)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to list referred leads", err)
	}

	resp := &dto.ReferralStatsResponse{
		ReferralCode: referrer.ReferralCode,
		Clicks:       clicks,
	}
	if referrer.PixKey != nil {
		resp.PixKey = *referrer.PixKey
	}

	people := make(map[string]*dto.ReferralPersonDTO)
	var order []string
	now := f.now()

	for _, lead := range leads {
		best, err := f.bestTransaction(ctx, lead.ID)
		if err != nil {
			return nil, err
		}

		key := lead.Whatsapp
		person, seen := people[key]
		if !seen {
			person = &dto.ReferralPersonDTO{
				Name:      lead.Name,
				Stage:     string(lead.Stage),
				CreatedAt: lead.CreatedAt.Format(time.RFC3339),
			}
			people[key] = person
			order = append(order, key)
		} else if leadStagePriority[lead.Stage] > leadStagePriority[models.LeadStage(person.Stage)] {
			person.Stage = string(lead.Stage)
		}
		if best != nil {
			current := models.TransactionStatus(person.TransactionStatus)
			if person.TransactionStatus == "" || transactionStatusPriority[best.Status] > transactionStatusPriority[current] {
				person.TransactionStatus = string(best.Status)
			}
		}

		f.accumulateCommission(ctx, resp, lead.ID, now)
	}

	for _, key := range order {
		person := people[key]
		resp.People = append(resp.People, *person)
		if person.Stage == string(models.LeadStageComprado) {
			resp.Conversions++
		}
	}
	resp.FreeOptimization = resp.Conversions >= utils.FreeOptimizationThreshold

	return resp, nil
}

// UpdatePixKey stores a normalized pix key for a referrer token
func (f *ReferralFlowImpl) UpdatePixKey(ctx context.Context, req *dto.UpdatePixKeyRequest) error {
	referrer, err := f.referrerRepo.ByToken(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		return NewBusinessError(CodeInternalError, "Failed to look up referrer", err)
	}
	if referrer == nil {
		return NewBusinessError(CodeNotFound, "Referrer not found", ErrReferrerNotFound)
	}

	pixKey := utils.NormalizePixKey(req.PixKey)
	if pixKey == "" {
		return NewBusinessError(CodeValidationError, "Pix key must not be empty", nil)
	}
	if err := f.referrerRepo.UpdatePixKey(ctx, referrer.ID, pixKey); err != nil {
		return NewBusinessError(CodeInternalError, "Failed to update pix key", err)
	}
	return nil
}

// accumulateCommission adds a lead's succeeded payments to the commission
// totals, split by whether the release window has elapsed. Failures here only
// skew totals, never the request, so the error is swallowed upstream.
func (f *ReferralFlowImpl) accumulateCommission(ctx context.Context, resp *dto.ReferralStatsResponse, leadID uint, now time.Time) {
	txs, err := f.transactionRepo.ListByLead(ctx, leadID)
	if err != nil {
		return
	}
	for _, tx := range txs {
		if tx.Status != models.TransactionStatusSucceeded || tx.AmountAffiliate == 0 {
			continue
		}
		releaseDays := utils.CardReleaseDays
		if tx.PaymentMethod == models.PaymentMethodPix {
			releaseDays = utils.PixReleaseDays
		}
		release := tx.CreatedAt.AddDate(0, 0, releaseDays)
		if now.Before(release) {
			resp.PendingCommission += tx.AmountAffiliate
		} else {
			resp.AvailableCommission += tx.AmountAffiliate
		}
	}
}

func (f *ReferralFlowImpl) bestTransaction(ctx context.Context, leadID uint) (*models.Transaction, error) {
	txs, err := f.transactionRepo.ListByLead(ctx, leadID)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to list transactions", err)
	}
	var best *models.Transaction
	for _, tx := range txs {
		if best == nil || transactionStatusPriority[tx.Status] > transactionStatusPriority[best.Status] {
			best = tx
		}
	}
	return best, nil
}

func (f *ReferralFlowImpl) uniqueCode(ctx context.Context) (string, error) {
	for range codeGenAttempts {
		code, err := utils.GenerateReferralCode(referralCodeLength)
		if err != nil {
			return "", NewBusinessError(CodeInternalError, "Failed to generate referral code", err)
		}
		existing, err := f.referrerRepo.ByReferralCode(ctx, code)
		if err != nil {
			return "", NewBusinessError(CodeInternalError, "Failed to check referral code", err)
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", NewBusinessError(CodeInternalError, "Failed to allocate a unique referral code", nil)
}

// resolveCode looks a code up as-is, then lowercased. Influencer slugs are
// stored lowercase so mixed-case links still resolve.
func (f *ReferralFlowImpl) resolveCode(ctx context.Context, raw string) (*models.Referrer, error) {
	code := strings.TrimSpace(raw)
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
	return referrer, nil
}

func validToken(token string) bool {
	if len(token) != 64 {
		return false
	}
	for _, c := range token {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// landingPageQuery extracts the query parameters of the landing page URL so
// UTM values survive into the hit record.
func landingPageQuery(landingPage *string) map[string]string {
	query := map[string]string{}
	if landingPage == nil {
		return query
	}
	parsed, err := url.Parse(*landingPage)
	if err != nil {
		return query
	}
	for k, vs := range parsed.Query() {
		if len(vs) > 0 {
			query[k] = vs[0]
		}
	}
	return query
}
