package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	businessflow "github.com/impulso-digital/leadshub/business_flow"
)

// stubWebhookFlow returns canned outcomes so the status mapping can be
// exercised without providers or a database.
type stubWebhookFlow struct {
	stripeErr error
	pixErr    error
}

func (s *stubWebhookFlow) HandleStripeEvent(ctx context.Context, payload []byte, signature string) (map[string]any, error) {
	if s.stripeErr != nil {
		return nil, s.stripeErr
	}
	return map[string]any{"received": true}, nil
}

func (s *stubWebhookFlow) HandlePixEvent(ctx context.Context, payload []byte, authorization string) (map[string]any, error) {
	if s.pixErr != nil {
		return nil, s.pixErr
	}
	return map[string]any{"received": true}, nil
}

func newWebhookApp(flow businessflow.WebhookFlow) *fiber.App {
	app := fiber.New()
	handler := NewWebhookHandler(flow)
	app.Post("/api/v1/checkout/webhook", handler.Stripe)
	app.Post("/api/v1/checkout/webhook-pix", handler.Pix)
	return app
}

func postWebhook(t *testing.T, app *fiber.App, path, body, authorization string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestStripeWebhookStatusMapping(t *testing.T) {
	t.Run("bad signature rejected", func(t *testing.T) {
		flow := &stubWebhookFlow{stripeErr: businessflow.NewBusinessError(
			businessflow.CodeValidationError, "Invalid webhook signature", businessflow.ErrInvalidSignature)}
		resp := postWebhook(t, newWebhookApp(flow), "/api/v1/checkout/webhook", `{}`, "")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("processing failure acknowledged", func(t *testing.T) {
		flow := &stubWebhookFlow{stripeErr: businessflow.NewBusinessError(
			businessflow.CodeInternalError, "Failed to confirm payment", nil)}
		resp := postWebhook(t, newWebhookApp(flow), "/api/v1/checkout/webhook", `{}`, "")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func TestPixWebhookAlwaysAcknowledges(t *testing.T) {
	t.Run("bad authorization", func(t *testing.T) {
		flow := &stubWebhookFlow{pixErr: businessflow.NewBusinessError(
			businessflow.CodeValidationError, "Invalid webhook authorization", businessflow.ErrInvalidSignature)}
		resp := postWebhook(t, newWebhookApp(flow), "/api/v1/checkout/webhook-pix",
			`{"event":"OPENPIX:CHARGE_COMPLETED"}`, "wrong_secret")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("malformed payload", func(t *testing.T) {
		flow := &stubWebhookFlow{pixErr: businessflow.NewBusinessError(
			businessflow.CodeValidationError, "Malformed webhook payload", nil)}
		resp := postWebhook(t, newWebhookApp(flow), "/api/v1/checkout/webhook-pix", `not json`, "secret")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("processing failure", func(t *testing.T) {
		flow := &stubWebhookFlow{pixErr: businessflow.NewBusinessError(
			businessflow.CodeInternalError, "Failed to look up transaction", nil)}
		resp := postWebhook(t, newWebhookApp(flow), "/api/v1/checkout/webhook-pix",
			`{"event":"OPENPIX:CHARGE_EXPIRED"}`, "secret")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}
