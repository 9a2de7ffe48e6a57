package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/impulso-digital/leadshub/app/dto"
	businessflow "github.com/impulso-digital/leadshub/business_flow"
	"github.com/impulso-digital/leadshub/utils"
)

// AdminHandlerInterface defines the contract for admin handlers
type AdminHandlerInterface interface {
	Login(c fiber.Ctx) error
	CreateInfluencer(c fiber.Ctx) error
	ListInfluencers(c fiber.Ctx) error
	ToggleInfluencer(c fiber.Ctx) error
	UpdateInfluencerPixKey(c fiber.Ctx) error
	ExportInfluencers(c fiber.Ctx) error
	ListLeads(c fiber.Ctx) error
	UpdateLeadStage(c fiber.Ctx) error
}

// AdminHandler handles admin HTTP requests
type AdminHandler struct {
	adminFlow businessflow.AdminFlow
	validator *validator.Validate
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminFlow businessflow.AdminFlow) *AdminHandler {
	return &AdminHandler{
		adminFlow: adminFlow,
		validator: validator.New(),
	}
}

func (h *AdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Login authenticates the configured admin
// @Summary Admin Login
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body dto.AdminLoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AdminLoginResponse} "Token issued"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Router /api/v1/admin/auth/login [post]
func (h *AdminHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.adminFlow.Login(h.createRequestContext(c, "/api/v1/admin/auth/login"), &req)
	if err != nil {
		if businessflow.IsInvalidCredentials(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS", nil)
		}

		log.Println("Admin login failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// CreateInfluencer onboards an influencer with a vanity slug
// @Summary Create Influencer
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body dto.CreateInfluencerRequest true "Influencer data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateInfluencerResponse} "Influencer created"
// @Failure 400 {object} dto.APIResponse "Invalid slug"
// @Failure 409 {object} dto.APIResponse "Slug, email or whatsapp already taken"
// @Router /api/v1/admin/influencers [post]
func (h *AdminHandler) CreateInfluencer(c fiber.Ctx) error {
	var req dto.CreateInfluencerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.adminFlow.CreateInfluencer(h.createRequestContext(c, "/api/v1/admin/influencers"), &req)
	if err != nil {
		if businessflow.IsInvalidSlug(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid slug", "INVALID_SLUG", nil)
		}
		if businessflow.IsSlugTaken(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Slug is already taken", "SLUG_TAKEN", nil)
		}
		if businessflow.IsReferrerEmailExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email is already registered", "EMAIL_EXISTS", nil)
		}
		if businessflow.IsReferrerWhatsappExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Whatsapp is already registered", "WHATSAPP_EXISTS", nil)
		}
		if be, ok := businessflow.AsBusinessError(err); ok && be.Code == businessflow.CodeValidationError {
			return h.ErrorResponse(c, fiber.StatusBadRequest, be.Message, "VALIDATION_ERROR", nil)
		}

		log.Println("Create influencer failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create influencer", "INFLUENCER_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Influencer created", result)
}

// ListInfluencers lists influencers with funnel counters
// @Summary List Influencers
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListInfluencersResponse} "Influencers"
// @Router /api/v1/admin/influencers [get]
func (h *AdminHandler) ListInfluencers(c fiber.Ctx) error {
	result, err := h.adminFlow.ListInfluencers(h.createRequestContext(c, "/api/v1/admin/influencers"))
	if err != nil {
		log.Println("List influencers failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list influencers", "INFLUENCER_LIST_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Influencers loaded", result)
}

// ToggleInfluencer flips an influencer between active and inactive
// @Summary Toggle Influencer Status
// @Tags Admin
// @Produce json
// @Param uuid path string true "Influencer UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ToggleInfluencerResponse} "Status flipped"
// @Failure 404 {object} dto.APIResponse "Influencer not found"
// @Router /api/v1/admin/influencers/{uuid}/toggle [post]
func (h *AdminHandler) ToggleInfluencer(c fiber.Ctx) error {
	result, err := h.adminFlow.ToggleInfluencer(h.createRequestContext(c, "/api/v1/admin/influencers/toggle"), c.Params("uuid"))
	if err != nil {
		if businessflow.IsReferrerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Influencer not found", "INFLUENCER_NOT_FOUND", nil)
		}

		log.Println("Toggle influencer failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to toggle influencer", "INFLUENCER_TOGGLE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Status updated", result)
}

// UpdateInfluencerPixKey stores an influencer's payout key
// @Summary Update Influencer Pix Key
// @Tags Admin
// @Accept json
// @Produce json
// @Param uuid path string true "Influencer UUID"
// @Param request body dto.UpdateInfluencerPixRequest true "Pix key"
// @Success 200 {object} dto.APIResponse "Pix key updated"
// @Failure 404 {object} dto.APIResponse "Influencer not found"
// @Router /api/v1/admin/influencers/{uuid}/pix [put]
func (h *AdminHandler) UpdateInfluencerPixKey(c fiber.Ctx) error {
	var req dto.UpdateInfluencerPixRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	err := h.adminFlow.UpdateInfluencerPixKey(h.createRequestContext(c, "/api/v1/admin/influencers/pix"), c.Params("uuid"), &req)
	if err != nil {
		if businessflow.IsReferrerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Influencer not found", "INFLUENCER_NOT_FOUND", nil)
		}
		if be, ok := businessflow.AsBusinessError(err); ok && be.Code == businessflow.CodeValidationError {
			return h.ErrorResponse(c, fiber.StatusBadRequest, be.Message, "VALIDATION_ERROR", nil)
		}

		log.Println("Update influencer pix failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update pix key", "PIX_UPDATE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Pix key updated", nil)
}

// ExportInfluencers downloads the influencer listing as xlsx
// @Summary Export Influencers
// @Tags Admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary "Workbook"
// @Router /api/v1/admin/influencers/export [get]
func (h *AdminHandler) ExportInfluencers(c fiber.Ctx) error {
	content, filename, err := h.adminFlow.ExportInfluencers(h.createRequestContext(c, "/api/v1/admin/influencers/export"))
	if err != nil {
		log.Println("Export influencers failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export influencers", "EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(content)
}

// ListLeads returns a paginated lead pipeline view
// @Summary List Leads
// @Tags Admin
// @Produce json
// @Param page query int false "Page (1-based)"
// @Param page_size query int false "Page size"
// @Param stage query string false "Filter by funnel stage"
// @Success 200 {object} dto.APIResponse{data=dto.ListLeadsResponse} "Leads"
// @Router /api/v1/admin/leads [get]
func (h *AdminHandler) ListLeads(c fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "50"))

	result, err := h.adminFlow.ListLeads(h.createRequestContext(c, "/api/v1/admin/leads"), page, pageSize, c.Query("stage"))
	if err != nil {
		if businessflow.IsLeadStageInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown lead stage", "INVALID_STAGE", nil)
		}

		log.Println("List leads failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list leads", "LEAD_LIST_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Leads loaded", result)
}

// UpdateLeadStage moves a lead through the funnel
// @Summary Update Lead Stage
// @Tags Admin
// @Accept json
// @Produce json
// @Param uuid path string true "Lead UUID"
// @Param request body dto.UpdateLeadStageRequest true "New stage"
// @Success 200 {object} dto.APIResponse{data=dto.LeadDTO} "Updated lead"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Router /api/v1/admin/leads/{uuid}/stage [put]
func (h *AdminHandler) UpdateLeadStage(c fiber.Ctx) error {
	var req dto.UpdateLeadStageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.adminFlow.UpdateLeadStage(h.createRequestContext(c, "/api/v1/admin/leads/stage"), c.Params("uuid"), &req)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		if businessflow.IsLeadStageInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown lead stage", "INVALID_STAGE", nil)
		}

		log.Println("Update lead stage failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update stage", "STAGE_UPDATE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Stage updated", result)
}

func (h *AdminHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
