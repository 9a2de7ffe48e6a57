package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/impulso-digital/leadshub/app/dto"
	businessflow "github.com/impulso-digital/leadshub/business_flow"
	"github.com/impulso-digital/leadshub/utils"
)

// WebhookHandlerInterface defines the contract for payment webhook handlers
type WebhookHandlerInterface interface {
	Stripe(c fiber.Ctx) error
	Pix(c fiber.Ctx) error
}

// WebhookHandler handles payment provider callbacks. Responses are bare JSON
// bodies, not the APIResponse envelope, since providers expect plain acks.
type WebhookHandler struct {
	webhookFlow businessflow.WebhookFlow
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookFlow businessflow.WebhookFlow) *WebhookHandler {
	return &WebhookHandler{webhookFlow: webhookFlow}
}

// Stripe processes a Stripe payment event
// @Summary Stripe Webhook
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} any "Acknowledged"
// @Failure 400 {object} any "Bad signature"
// @Router /api/v1/checkout/webhook [post]
func (h *WebhookHandler) Stripe(c fiber.Ctx) error {
	result, err := h.webhookFlow.HandleStripeEvent(
		h.createRequestContext(c, "/api/v1/checkout/webhook"),
		c.Body(),
		c.Get("Stripe-Signature"),
	)
	if err != nil {
		if businessflow.IsInvalidSignature(err) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{
				Success: false,
				Message: "Invalid signature",
				Error:   dto.ErrorDetail{Code: "INVALID_SIGNATURE"},
			})
		}

		// Processing failures are still acknowledged so the provider does not
		// retry-storm an event we already logged for operator follow-up.
		log.Println("Stripe webhook failed", err)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// Pix processes an OpenPix payment event
// @Summary OpenPix Webhook
// @Tags Webhooks
// @Accept json
// @Produce json
// @Success 200 {object} any "Acknowledged"
// @Router /api/v1/checkout/webhook-pix [post]
func (h *WebhookHandler) Pix(c fiber.Ctx) error {
	result, err := h.webhookFlow.HandlePixEvent(
		h.createRequestContext(c, "/api/v1/checkout/webhook-pix"),
		c.Body(),
		c.Get("Authorization"),
	)
	if err != nil {
		// OpenPix retries every non-200 response, bad authorization and
		// unparseable payloads included. Log and acknowledge.
		log.Println("Pix webhook failed", err)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *WebhookHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
