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

// CheckoutHandlerInterface defines the contract for checkout handlers
type CheckoutHandlerInterface interface {
	CreatePaymentIntent(c fiber.Ctx) error
	CreatePix(c fiber.Ctx) error
}

// CheckoutHandler handles checkout HTTP requests
type CheckoutHandler struct {
	checkoutFlow businessflow.CheckoutFlow
	validator    *validator.Validate
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutFlow businessflow.CheckoutFlow) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutFlow: checkoutFlow,
		validator:    validator.New(),
	}
}

func (h *CheckoutHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CheckoutHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreatePaymentIntent starts a card payment for a slot
// @Summary Create Payment Intent
// @Description Start a card payment for a session slot
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body dto.CreatePaymentIntentRequest true "Checkout data"
// @Success 200 {object} dto.APIResponse{data=dto.CreatePaymentIntentResponse} "Intent created"
// @Failure 400 {object} dto.APIResponse "Validation error or booking conflict"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Failure 409 {object} dto.APIResponse "Lead already paid"
// @Failure 502 {object} dto.APIResponse "Payment provider error"
// @Router /api/v1/checkout/create-payment-intent [post]
func (h *CheckoutHandler) CreatePaymentIntent(c fiber.Ctx) error {
	var req dto.CreatePaymentIntentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.checkoutFlow.CreatePaymentIntent(h.createRequestContext(c, "/api/v1/checkout/create-payment-intent"), &req, metadata)
	if err != nil {
		return h.bookingError(c, err, "Create payment intent failed", "PAYMENT_INTENT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Payment intent created", result)
}

// CreatePix starts a PIX payment for a slot
// @Summary Create PIX Charge
// @Description Start a PIX payment for a session slot
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body dto.CreatePixRequest true "Checkout data"
// @Success 200 {object} dto.APIResponse{data=dto.CreatePixResponse} "Charge created"
// @Failure 400 {object} dto.APIResponse "Validation error or booking conflict"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Failure 409 {object} dto.APIResponse "Lead already paid"
// @Failure 502 {object} dto.APIResponse "Payment provider error"
// @Router /api/v1/checkout/create-pix [post]
func (h *CheckoutHandler) CreatePix(c fiber.Ctx) error {
	var req dto.CreatePixRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.checkoutFlow.CreatePix(h.createRequestContext(c, "/api/v1/checkout/create-pix"), &req, metadata)
	if err != nil {
		return h.bookingError(c, err, "Create pix charge failed", "PIX_CHARGE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Pix charge created", result)
}

// bookingError maps the shared booking guard failures onto HTTP statuses
func (h *CheckoutHandler) bookingError(c fiber.Ctx, err error, logMessage, fallbackCode string) error {
	if businessflow.IsLeadNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
	}
	if businessflow.IsAlreadyPaid(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Lead has already completed a payment", businessflow.CodeAlreadyPaid, nil)
	}
	if businessflow.IsSlotTaken(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Slot is no longer available", businessflow.CodeSlotTaken, nil)
	}
	if businessflow.IsPixNotEnabled(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "PIX payments are not enabled", businessflow.CodePixNotEnabled, nil)
	}
	if businessflow.IsSlotOutsideHours(err) || businessflow.IsSlotInPast(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid meeting slot", "INVALID_SLOT", nil)
	}
	if businessflow.IsPaymentProvider(err) {
		log.Println(logMessage, err)
		return h.ErrorResponse(c, fiber.StatusBadGateway, "Payment provider unavailable", "PAYMENT_PROVIDER_ERROR", nil)
	}
	if be, ok := businessflow.AsBusinessError(err); ok && be.Code == businessflow.CodeValidationError {
		return h.ErrorResponse(c, fiber.StatusBadRequest, be.Message, "VALIDATION_ERROR", nil)
	}

	log.Println(logMessage, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, "Checkout failed", fallbackCode, nil)
}

func (h *CheckoutHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
