package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// StripeClient is a minimal client for the Stripe payment intents API.
// Only the operations the checkout and webhook flows need are implemented.
type StripeClient struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
	HTTPClient    *http.Client
	Timeout       time.Duration
}

func NewStripeClient(baseURL, secretKey, webhookSecret string, timeout time.Duration) *StripeClient {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StripeClient{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		SecretKey:     secretKey,
		WebhookSecret: webhookSecret,
		HTTPClient:    &http.Client{Timeout: timeout},
		Timeout:       timeout,
	}
}

func (c *StripeClient) Name() string { return "stripe" }

// PaymentIntent is the subset of the Stripe payment intent object we read
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type stripeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreatePaymentIntent creates a payment intent with the given amount, currency
// and metadata. Stripe's API is form-encoded.
func (c *StripeClient) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var errBody stripeErrorBody
		if err := json.Unmarshal(body, &errBody); err == nil && errBody.Error.Message != "" {
			return nil, fmt.Errorf("stripe: %s (%s)", errBody.Error.Message, errBody.Error.Type)
		}
		return nil, fmt.Errorf("stripe: unexpected status %d", resp.StatusCode)
	}

	var intent PaymentIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, err
	}
	if intent.ID == "" || intent.ClientSecret == "" {
		return nil, fmt.Errorf("stripe: incomplete payment intent in response")
	}
	return &intent, nil
}

// WebhookEvent is the subset of a Stripe event the webhook flow reads
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object PaymentIntent `json:"object"`
	} `json:"data"`
}

// DefaultSignatureTolerance bounds how old a signed webhook may be
const DefaultSignatureTolerance = 5 * time.Minute

// VerifyWebhookSignature checks the Stripe-Signature header against the raw
// payload. The header format is "t=<unix>,v1=<hex hmac>[,v1=...]" and the
// signed content is "<t>.<payload>".
func (c *StripeClient) VerifyWebhookSignature(payload []byte, sigHeader string, tolerance time.Duration) error {
	if sigHeader == "" {
		return fmt.Errorf("missing signature header")
	}
	if tolerance <= 0 {
		tolerance = DefaultSignatureTolerance
	}

	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(sigHeader, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("malformed timestamp in signature header")
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return fmt.Errorf("malformed signature header")
	}

	if d := time.Since(time.Unix(timestamp, 0)); d > tolerance || d < -tolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(c.WebhookSecret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return fmt.Errorf("no matching signature")
}

// ParseWebhookEvent verifies the signature and decodes the event payload
func (c *StripeClient) ParseWebhookEvent(payload []byte, sigHeader string) (*WebhookEvent, error) {
	if err := c.VerifyWebhookSignature(payload, sigHeader, DefaultSignatureTolerance); err != nil {
		return nil, err
	}
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("malformed event payload: %w", err)
	}
	return &event, nil
}
