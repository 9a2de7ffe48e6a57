package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/impulso-digital/leadshub/app/dto"
	businessflow "github.com/impulso-digital/leadshub/business_flow"
	"github.com/impulso-digital/leadshub/utils"
)

// ReferralHandlerInterface defines the contract for referral program handlers
type ReferralHandlerInterface interface {
	Create(c fiber.Ctx) error
	Track(c fiber.Ctx) error
	Stats(c fiber.Ctx) error
	UpdatePixKey(c fiber.Ctx) error
}

// ReferralHandler handles referral program HTTP requests
type ReferralHandler struct {
	referralFlow businessflow.ReferralFlow
	validator    *validator.Validate
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(referralFlow businessflow.ReferralFlow) *ReferralHandler {
	return &ReferralHandler{
		referralFlow: referralFlow,
		validator:    validator.New(),
	}
}

func (h *ReferralHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ReferralHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Create signs a new referrer up
// @Summary Join Referral Program
// @Description Register as a referrer and receive a code plus private token
// @Tags Referral
// @Accept json
// @Produce json
// @Param request body dto.CreateReferrerRequest true "Referrer signup data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateReferrerResponse} "Referrer created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Email or whatsapp already registered"
// @Router /api/v1/referral/create [post]
func (h *ReferralHandler) Create(c fiber.Ctx) error {
	var req dto.CreateReferrerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.referralFlow.CreateReferrer(h.createRequestContext(c, "/api/v1/referral/create"), &req, metadata)
	if err != nil {
		if businessflow.IsReferrerEmailExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email is already registered", "EMAIL_EXISTS", nil)
		}
		if businessflow.IsReferrerWhatsappExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Whatsapp is already registered", "WHATSAPP_EXISTS", nil)
		}
		if be, ok := businessflow.AsBusinessError(err); ok && be.Code == businessflow.CodeValidationError {
			return h.ErrorResponse(c, fiber.StatusBadRequest, be.Message, "VALIDATION_ERROR", nil)
		}

		log.Println("Create referrer failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create referrer", "REFERRER_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Referrer created", result)
}

// Track records a referral link visit
// @Summary Track Referral Visit
// @Tags Referral
// @Accept json
// @Produce json
// @Param request body dto.TrackReferralRequest true "Visit data"
// @Success 200 {object} dto.APIResponse{data=dto.TrackReferralResponse} "Visit processed"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/referral/track [post]
func (h *ReferralHandler) Track(c fiber.Ctx) error {
	var req dto.TrackReferralRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.referralFlow.Track(h.createRequestContext(c, "/api/v1/referral/track"), &req, metadata)
	if err != nil {
		log.Println("Track referral failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to track visit", "TRACK_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Visit processed", result)
}

// Stats returns the private referrer dashboard
// @Summary Referral Stats
// @Description Token-gated referrer dashboard with clicks, people and commissions
// @Tags Referral
// @Produce json
// @Param token query string true "Referrer token (64 hex chars)"
// @Success 200 {object} dto.APIResponse{data=dto.ReferralStatsResponse} "Stats"
// @Failure 400 {object} dto.APIResponse "Bad token format"
// @Failure 404 {object} dto.APIResponse "Unknown token"
// @Router /api/v1/referral/stats [get]
func (h *ReferralHandler) Stats(c fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		token = c.Get("X-Referral-Token")
	}

	result, err := h.referralFlow.Stats(h.createRequestContext(c, "/api/v1/referral/stats"), token)
	if err != nil {
		if businessflow.IsInvalidToken(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid token format", "INVALID_TOKEN", nil)
		}
		if businessflow.IsReferrerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Referrer not found", "REFERRER_NOT_FOUND", nil)
		}

		log.Println("Referral stats failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load stats", "STATS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Stats loaded", result)
}

// UpdatePixKey stores a referrer's payout key
// @Summary Update Pix Key
// @Tags Referral
// @Accept json
// @Produce json
// @Param request body dto.UpdatePixKeyRequest true "Token and pix key"
// @Success 200 {object} dto.APIResponse "Pix key updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Unknown token"
// @Router /api/v1/referral/update-pix [put]
func (h *ReferralHandler) UpdatePixKey(c fiber.Ctx) error {
	var req dto.UpdatePixKeyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	if err := h.referralFlow.UpdatePixKey(h.createRequestContext(c, "/api/v1/referral/update-pix"), &req); err != nil {
		if businessflow.IsReferrerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Referrer not found", "REFERRER_NOT_FOUND", nil)
		}
		if be, ok := businessflow.AsBusinessError(err); ok && be.Code == businessflow.CodeValidationError {
			return h.ErrorResponse(c, fiber.StatusBadRequest, be.Message, "VALIDATION_ERROR", nil)
		}

		log.Println("Update pix key failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update pix key", "PIX_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Pix key updated", nil)
}

func (h *ReferralHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
