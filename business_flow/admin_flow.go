package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/impulso-digital/leadshub/app/dto"
	"github.com/impulso-digital/leadshub/app/services"
	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/repository"
	"github.com/impulso-digital/leadshub/utils"
)

const (
	minSlugLength = 3
	maxSlugLength = 30
)

// reservedSlugs cannot be claimed as influencer slugs since they collide
// with route segments or future route segments.
var reservedSlugs = map[string]bool{
	"admin":    true,
	"api":      true,
	"checkout": true,
	"referral": true,
	"webhook":  true,
	"meetings": true,
	"leads":    true,
	"stats":    true,
	"login":    true,
}

// AdminFlow handles the admin surface: login, influencer management and the
// lead pipeline.
type AdminFlow interface {
	Login(ctx context.Context, req *dto.AdminLoginRequest) (*dto.AdminLoginResponse, error)
	CreateInfluencer(ctx context.Context, req *dto.CreateInfluencerRequest) (*dto.CreateInfluencerResponse, error)
	ListInfluencers(ctx context.Context) (*dto.ListInfluencersResponse, error)
	ToggleInfluencer(ctx context.Context, influencerUUID string) (*dto.ToggleInfluencerResponse, error)
	UpdateInfluencerPixKey(ctx context.Context, influencerUUID string, req *dto.UpdateInfluencerPixRequest) error
	ExportInfluencers(ctx context.Context) ([]byte, string, error)
	ListLeads(ctx context.Context, page, pageSize int, stage string) (*dto.ListLeadsResponse, error)
	UpdateLeadStage(ctx context.Context, leadUUID string, req *dto.UpdateLeadStageRequest) (*dto.LeadDTO, error)
}

// AdminFlowImpl implements the admin business flow
type AdminFlowImpl struct {
	referrerRepo      repository.ReferrerRepository
	leadRepo          repository.LeadRepository
	hitRepo           repository.ReferralHitRepository
	tokenService      services.TokenService
	adminEmail        string
	adminPasswordHash string
	db                *gorm.DB
}

// NewAdminFlow creates a new admin flow instance. adminPasswordHash is a
// bcrypt hash; the plaintext password never reaches configuration.
func NewAdminFlow(
	referrerRepo repository.ReferrerRepository,
	leadRepo repository.LeadRepository,
	hitRepo repository.ReferralHitRepository,
	tokenService services.TokenService,
	adminEmail string,
	adminPasswordHash string,
	db *gorm.DB,
) AdminFlow {
	return &AdminFlowImpl{
		referrerRepo:      referrerRepo,
		leadRepo:          leadRepo,
		hitRepo:           hitRepo,
		tokenService:      tokenService,
		adminEmail:        strings.ToLower(strings.TrimSpace(adminEmail)),
		adminPasswordHash: adminPasswordHash,
		db:                db,
	}
}

// Login checks the configured admin credential pair and issues a bearer
// token. Both failure modes return the same error.
func (f *AdminFlowImpl) Login(ctx context.Context, req *dto.AdminLoginRequest) (*dto.AdminLoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != f.adminEmail || f.adminEmail == "" {
		return nil, NewBusinessError(CodeAuthError, "Invalid credentials", ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(f.adminPasswordHash), []byte(req.Password)); err != nil {
		return nil, NewBusinessError(CodeAuthError, "Invalid credentials", ErrInvalidCredentials)
	}

	token, expiresIn, err := f.tokenService.GenerateAdminToken(email)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to issue token", err)
	}
	return &dto.AdminLoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: expiresIn,
	}, nil
}

// CreateInfluencer onboards an influencer whose vanity slug doubles as their
// referral code.
func (f *AdminFlowImpl) CreateInfluencer(ctx context.Context, req *dto.CreateInfluencerRequest) (*dto.CreateInfluencerResponse, error) {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if err := validateSlug(slug); err != nil {
		return nil, err
	}

	whatsapp := utils.NormalizePhone(req.Whatsapp)
	if whatsapp == "" {
		return nil, NewBusinessError(CodeValidationError, "Whatsapp number must contain digits", nil)
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	if existing, err := f.referrerRepo.ByReferralCode(ctx, slug); err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to check slug", err)
	} else if existing != nil {
		return nil, NewBusinessError(CodeConflict, "Slug is already taken", ErrSlugTaken)
	}
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

	token, err := utils.GenerateHexToken(referralTokenBytes)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to generate token", err)
	}

	influencer := &models.Referrer{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Whatsapp:     whatsapp,
		ReferralCode: slug,
		Token:        token,
		IsInfluencer: true,
		Slug:         utils.ToPtr(slug),
		Status:       models.ReferrerStatusActive,
	}
	if req.PixKey != nil {
		influencer.PixKey = utils.ToPtr(utils.NormalizePixKey(*req.PixKey))
	}

	if err := f.referrerRepo.Save(ctx, influencer); err != nil {
		return nil, NewBusinessError("INFLUENCER_CREATE_FAILED", "Failed to create influencer", err)
	}

	row, err := f.influencerRow(ctx, influencer)
	if err != nil {
		return nil, err
	}
	return &dto.CreateInfluencerResponse{Influencer: *row, Token: token}, nil
}

// ListInfluencers returns every influencer with their funnel counters
func (f *AdminFlowImpl) ListInfluencers(ctx context.Context) (*dto.ListInfluencersResponse, error) {
	influencers, err := f.referrerRepo.ListInfluencers(ctx)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to list influencers", err)
	}

	resp := &dto.ListInfluencersResponse{Influencers: make([]dto.InfluencerDTO, 0, len(influencers))}
	for _, influencer := range influencers {
		row, err := f.influencerRow(ctx, influencer)
		if err != nil {
			return nil, err
		}
		resp.Influencers = append(resp.Influencers, *row)
	}
	return resp, nil
}

// ToggleInfluencer flips an influencer between active and inactive
func (f *AdminFlowImpl) ToggleInfluencer(ctx context.Context, influencerUUID string) (*dto.ToggleInfluencerResponse, error) {
	influencer, err := f.findInfluencer(ctx, influencerUUID)
	if err != nil {
		return nil, err
	}

	next := models.ReferrerStatusInactive
	if influencer.Status == models.ReferrerStatusInactive {
		next = models.ReferrerStatusActive
	}
	if err := f.referrerRepo.UpdateStatus(ctx, influencer.ID, next); err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to update status", err)
	}

	return &dto.ToggleInfluencerResponse{
		UUID:   influencer.UUID.String(),
		Status: string(next),
	}, nil
}

// UpdateInfluencerPixKey stores a normalized pix key for an influencer
func (f *AdminFlowImpl) UpdateInfluencerPixKey(ctx context.Context, influencerUUID string, req *dto.UpdateInfluencerPixRequest) error {
	influencer, err := f.findInfluencer(ctx, influencerUUID)
	if err != nil {
		return err
	}

	pixKey := utils.NormalizePixKey(req.PixKey)
	if pixKey == "" {
		return NewBusinessError(CodeValidationError, "Pix key must not be empty", nil)
	}
	if err := f.referrerRepo.UpdatePixKey(ctx, influencer.ID, pixKey); err != nil {
		return NewBusinessError(CodeInternalError, "Failed to update pix key", err)
	}
	return nil
}

// ExportInfluencers renders the influencer listing as an xlsx workbook
func (f *AdminFlowImpl) ExportInfluencers(ctx context.Context) ([]byte, string, error) {
	listing, err := f.ListInfluencers(ctx)
	if err != nil {
		return nil, "", err
	}

	wb := excelize.NewFile()
	defer wb.Close()

	sheet := "Influencers"
	wb.SetSheetName(wb.GetSheetName(0), sheet)

	headers := []string{"Name", "Email", "Slug", "Status", "Clicks", "Leads", "Conversions", "Pix Key", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := wb.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", NewBusinessError(CodeInternalError, "Failed to build export", err)
		}
	}

	for rowIdx, row := range listing.Influencers {
		values := []any{
			row.Name, row.Email, row.Slug, row.Status,
			row.Clicks, row.Leads, row.Conversions,
			row.PixKey, row.CreatedAt,
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := wb.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", NewBusinessError(CodeInternalError, "Failed to build export", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		return nil, "", NewBusinessError(CodeInternalError, "Failed to serialize export", err)
	}

	filename := fmt.Sprintf("influencers_%s.xlsx", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ListLeads returns a paginated slice of the lead pipeline, newest first
func (f *AdminFlowImpl) ListLeads(ctx context.Context, page, pageSize int, stage string) (*dto.ListLeadsResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	filter := models.LeadFilter{}
	if stage != "" {
		parsed := models.LeadStage(strings.ToUpper(strings.TrimSpace(stage)))
		if !models.ValidLeadStage(parsed) {
			return nil, NewBusinessError(CodeValidationError, "Unknown lead stage", ErrLeadStageInvalid)
		}
		filter.Stage = &parsed
	}

	total, err := f.leadRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to count leads", err)
	}
	leads, err := f.leadRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to list leads", err)
	}

	resp := &dto.ListLeadsResponse{
		Leads:    make([]dto.LeadDTO, 0, len(leads)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, lead := range leads {
		resp.Leads = append(resp.Leads, ToLeadDTO(*lead))
	}
	return resp, nil
}

// UpdateLeadStage moves a lead through the funnel
func (f *AdminFlowImpl) UpdateLeadStage(ctx context.Context, leadUUID string, req *dto.UpdateLeadStageRequest) (*dto.LeadDTO, error) {
	stage := models.LeadStage(req.Stage)
	if !models.ValidLeadStage(stage) {
		return nil, NewBusinessError(CodeValidationError, "Unknown lead stage", ErrLeadStageInvalid)
	}

	lead, err := f.leadRepo.ByUUID(ctx, leadUUID)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to look up lead", err)
	}
	if lead == nil {
		return nil, NewBusinessError(CodeNotFound, "Lead not found", ErrLeadNotFound)
	}

	if err := f.leadRepo.UpdateStage(ctx, lead.ID, stage); err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to update stage", err)
	}

	lead.Stage = stage
	result := ToLeadDTO(*lead)
	return &result, nil
}

func (f *AdminFlowImpl) findInfluencer(ctx context.Context, influencerUUID string) (*models.Referrer, error) {
	influencer, err := f.referrerRepo.ByUUID(ctx, influencerUUID)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to look up influencer", err)
	}
	if influencer == nil || !influencer.IsInfluencer {
		return nil, NewBusinessError(CodeNotFound, "Influencer not found", ErrReferrerNotFound)
	}
	return influencer, nil
}

// influencerRow builds a listing row with click, lead and conversion counters
func (f *AdminFlowImpl) influencerRow(ctx context.Context, influencer *models.Referrer) (*dto.InfluencerDTO, error) {
	clicks, err := f.hitRepo.CountByCode(ctx, influencer.ReferralCode)
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to count visits", err)
	}
	leads, err := f.leadRepo.Count(ctx, models.LeadFilter{ReferralCode: &influencer.ReferralCode})
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to count leads", err)
	}
	stage := models.LeadStageComprado
	conversions, err := f.leadRepo.Count(ctx, models.LeadFilter{
		ReferralCode: &influencer.ReferralCode,
		Stage:        &stage,
	})
	if err != nil {
		return nil, NewBusinessError(CodeInternalError, "Failed to count conversions", err)
	}

	row := &dto.InfluencerDTO{
		UUID:         influencer.UUID.String(),
		Name:         influencer.Name,
		Email:        influencer.Email,
		ReferralCode: influencer.ReferralCode,
		Status:       string(influencer.Status),
		Clicks:       clicks,
		Leads:        leads,
		Conversions:  conversions,
		CreatedAt:    influencer.CreatedAt.Format(time.RFC3339),
	}
	if influencer.Slug != nil {
		row.Slug = *influencer.Slug
	}
	if influencer.PixKey != nil {
		row.PixKey = *influencer.PixKey
	}
	return row, nil
}

// validateSlug enforces the influencer slug shape: lowercase alphanumerics
// with inner hyphens or underscores, and none of the reserved route words.
func validateSlug(slug string) error {
	if len(slug) < minSlugLength || len(slug) > maxSlugLength {
		return NewBusinessError(CodeValidationError, "Slug must be 3 to 30 characters", ErrInvalidSlug)
	}
	for _, c := range slug {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return NewBusinessError(CodeValidationError, "Slug may only contain a-z, 0-9, hyphen and underscore", ErrInvalidSlug)
		}
	}
	if slug[0] == '-' || slug[0] == '_' || slug[len(slug)-1] == '-' || slug[len(slug)-1] == '_' {
		return NewBusinessError(CodeValidationError, "Slug must not start or end with hyphen or underscore", ErrInvalidSlug)
	}
	if reservedSlugs[slug] {
		return NewBusinessError(CodeValidationError, "Slug is reserved", ErrInvalidSlug)
	}
	return nil
}
