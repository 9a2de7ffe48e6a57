package services

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenPixClient is a minimal client for the OpenPix charge API. PIX support
// is optional: when no AppID is configured the checkout flow rejects PIX
// requests before ever calling this client.
type OpenPixClient struct {
	BaseURL       string
	AppID         string
	WebhookSecret string
	HTTPClient    *http.Client
	Timeout       time.Duration
}

func NewOpenPixClient(baseURL, appID, webhookSecret string, timeout time.Duration) *OpenPixClient {
	if baseURL == "" {
		baseURL = "https://api.openpix.com.br"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenPixClient{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		AppID:         appID,
		WebhookSecret: webhookSecret,
		HTTPClient:    &http.Client{Timeout: timeout},
		Timeout:       timeout,
	}
}

func (c *OpenPixClient) Name() string { return "openpix" }

// Enabled reports whether PIX payments are configured
func (c *OpenPixClient) Enabled() bool {
	return c.AppID != ""
}

// PixCharge is the subset of the OpenPix charge object the checkout flow reads
type PixCharge struct {
	CorrelationID string `json:"correlationID"`
	BRCode        string `json:"brCode"`
	QRCodeImage   string `json:"qrCodeImage"`
	ExpiresIn     int    `json:"expiresIn"`
}

// PixCustomer identifies the payer on a charge. TaxID is the CPF.
type PixCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	TaxID string `json:"taxID"`
}

type openpixChargeRequest struct {
	CorrelationID string       `json:"correlationID"`
	Value         int64        `json:"value"` // Centavos
	Comment       string       `json:"comment,omitempty"`
	Customer      *PixCustomer `json:"customer,omitempty"`
	ExpiresIn     int          `json:"expiresIn,omitempty"` // Seconds
}

type openpixChargeEnvelope struct {
	Charge struct {
		CorrelationID string `json:"correlationID"`
		BRCode        string `json:"brCode"`
		QRCodeImage   string `json:"qrCodeImage"`
		ExpiresIn     int    `json:"expiresIn"`
	} `json:"charge"`
	BRCode string `json:"brCode"` // Some API versions return brCode at the top level
	Error  string `json:"error,omitempty"`
}

// CreateCharge creates a PIX charge. correlationID must be unique per charge;
// we use the transaction UUID so webhooks map back to exactly one transaction.
func (c *OpenPixClient) CreateCharge(ctx context.Context, correlationID string, valueCents int64, comment string, customer *PixCustomer, expiresIn int) (*PixCharge, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("openpix: client not configured")
	}

	body, err := json.Marshal(openpixChargeRequest{
		CorrelationID: correlationID,
		Value:         valueCents,
		Comment:       comment,
		Customer:      customer,
		ExpiresIn:     expiresIn,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/charge", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.AppID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var env openpixChargeEnvelope
		if err := json.Unmarshal(respBody, &env); err == nil && env.Error != "" {
			return nil, fmt.Errorf("openpix: %s", env.Error)
		}
		return nil, fmt.Errorf("openpix: unexpected status %d", resp.StatusCode)
	}

	var env openpixChargeEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, err
	}

	charge := &PixCharge{
		CorrelationID: env.Charge.CorrelationID,
		BRCode:        env.Charge.BRCode,
		QRCodeImage:   env.Charge.QRCodeImage,
		ExpiresIn:     env.Charge.ExpiresIn,
	}
	if charge.BRCode == "" {
		charge.BRCode = env.BRCode
	}
	if charge.BRCode == "" {
		return nil, fmt.Errorf("openpix: empty brCode in response")
	}
	if charge.CorrelationID == "" {
		charge.CorrelationID = correlationID
	}
	return charge, nil
}

// PixWebhookEvent is the subset of an OpenPix webhook payload the flow reads.
// Test pings carry Event and DataCriacao but no charge.
type PixWebhookEvent struct {
	Event       string `json:"event"`
	DataCriacao string `json:"data_criacao,omitempty"`
	Charge      *struct {
		CorrelationID string `json:"correlationID"`
		Status        string `json:"status"`
	} `json:"charge,omitempty"`
}

// IsTestPing reports whether the payload is the OpenPix endpoint verification ping
func (e *PixWebhookEvent) IsTestPing() bool {
	return e.Charge == nil
}

// ParseWebhookEvent decodes an OpenPix webhook payload
func (c *OpenPixClient) ParseWebhookEvent(payload []byte) (*PixWebhookEvent, error) {
	var event PixWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("openpix: malformed webhook payload: %w", err)
	}
	return &event, nil
}

// VerifyWebhookAuthorization checks the webhook authorization header when a
// secret is configured. No secret configured means no check.
func (c *OpenPixClient) VerifyWebhookAuthorization(header string) bool {
	if c.WebhookSecret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(c.WebhookSecret)) == 1
}
