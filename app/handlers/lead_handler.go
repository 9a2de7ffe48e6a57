package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/impulso-digital/leadshub/app/dto"
	businessflow "github.com/impulso-digital/leadshub/business_flow"
	"github.com/impulso-digital/leadshub/metrics"
	"github.com/impulso-digital/leadshub/utils"
)

// LeadHandlerInterface defines the contract for lead intake handlers
type LeadHandlerInterface interface {
	Create(c fiber.Ctx) error
}

// LeadHandler handles lead intake HTTP requests
type LeadHandler struct {
	leadFlow  businessflow.LeadFlow
	validator *validator.Validate
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadFlow businessflow.LeadFlow) *LeadHandler {
	return &LeadHandler{
		leadFlow:  leadFlow,
		validator: validator.New(),
	}
}

func (h *LeadHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *LeadHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Create captures a landing page lead submission
// @Summary Capture Lead
// @Description Capture a landing page lead with optional referral code
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body dto.CreateLeadRequest true "Lead form data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateLeadResponse} "Lead captured"
// @Failure 400 {object} dto.APIResponse "Validation or referral rejection"
// @Failure 429 {object} dto.APIResponse "Too many submissions"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads [post]
func (h *LeadHandler) Create(c fiber.Ctx) error {
	var req dto.CreateLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.leadFlow.CreateLead(h.createRequestContext(c, "/api/v1/leads"), &req, metadata)
	if err != nil {
		if rle, ok := businessflow.AsRateLimitError(err); ok {
			retryAfter := int(rle.RetryAfter.Seconds())
			c.Set("Retry-After", fmt.Sprint(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many submissions, try again later",
				Error: dto.ErrorDetail{
					Code:       "RATE_LIMITED",
					RetryAfter: retryAfter,
				},
			})
		}
		if businessflow.IsDuplicateReferral(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Referral rejected", "REFERRAL_REJECTED", nil)
		}
		if be, ok := businessflow.AsBusinessError(err); ok && be.Code == businessflow.CodeValidationError {
			return h.ErrorResponse(c, fiber.StatusBadRequest, be.Message, "VALIDATION_ERROR", nil)
		}

		log.Println("Create lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to capture lead", "LEAD_CREATE_FAILED", nil)
	}

	metrics.RecordLeadCaptured()
	return h.SuccessResponse(c, fiber.StatusCreated, "Lead captured", result)
}

func (h *LeadHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
