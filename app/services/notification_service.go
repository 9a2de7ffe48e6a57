// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// NotificationService pushes operational events to the team channel.
// Dispatch is best-effort: failures are logged and never surfaced to callers.
type NotificationService interface {
	NotifyNewLead(ctx context.Context, name, email, whatsapp string, referralCode string)
	NotifyPaymentConfirmed(ctx context.Context, name string, amountCents int64, method string)
	NotifyMeetingBooked(ctx context.Context, name string, scheduledAt time.Time)
}

// DiscordNotificationService implements NotificationService against a Discord webhook
type DiscordNotificationService struct {
	WebhookURL string
	HTTPClient *http.Client
}

// NewDiscordNotificationService creates a Discord-backed notification service.
// An empty webhook URL disables dispatch entirely.
func NewDiscordNotificationService(webhookURL string, timeout time.Duration) NotificationService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DiscordNotificationService{
		WebhookURL: webhookURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

const (
	discordColorGreen = 0x2ecc71
	discordColorBlue  = 0x3498db
	discordColorGold  = 0xf1c40f
)

// NotifyNewLead announces a freshly captured lead
func (s *DiscordNotificationService) NotifyNewLead(ctx context.Context, name, email, whatsapp string, referralCode string) {
	fields := []discordEmbedField{
		{Name: "Email", Value: email, Inline: true},
		{Name: "WhatsApp", Value: whatsapp, Inline: true},
	}
	if referralCode != "" {
		fields = append(fields, discordEmbedField{Name: "Referral", Value: referralCode, Inline: true})
	}
	s.send(ctx, discordEmbed{
		Title:       "Novo lead capturado",
		Description: name,
		Color:       discordColorBlue,
		Fields:      fields,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

// NotifyPaymentConfirmed announces a succeeded payment
func (s *DiscordNotificationService) NotifyPaymentConfirmed(ctx context.Context, name string, amountCents int64, method string) {
	s.send(ctx, discordEmbed{
		Title:       "Pagamento confirmado",
		Description: name,
		Color:       discordColorGreen,
		Fields: []discordEmbedField{
			{Name: "Valor", Value: fmt.Sprintf("R$ %.2f", float64(amountCents)/100), Inline: true},
			{Name: "Método", Value: method, Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// NotifyMeetingBooked announces a booked session
func (s *DiscordNotificationService) NotifyMeetingBooked(ctx context.Context, name string, scheduledAt time.Time) {
	s.send(ctx, discordEmbed{
		Title:       "Sessão agendada",
		Description: name,
		Color:       discordColorGold,
		Fields: []discordEmbedField{
			{Name: "Horário", Value: scheduledAt.Format("02/01/2006 15:04"), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *DiscordNotificationService) send(ctx context.Context, embed discordEmbed) {
	if s.WebhookURL == "" {
		return
	}

	body, err := json.Marshal(discordWebhookPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		log.Printf("discord notification: marshal failed: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("discord notification: request failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		log.Printf("discord notification: send failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("discord notification: unexpected status %d", resp.StatusCode)
	}
}

// NoopNotificationService discards all notifications. Used in tests and when
// no webhook is configured.
type NoopNotificationService struct{}

func NewNoopNotificationService() NotificationService {
	return &NoopNotificationService{}
}

func (s *NoopNotificationService) NotifyNewLead(ctx context.Context, name, email, whatsapp string, referralCode string) {
}

func (s *NoopNotificationService) NotifyPaymentConfirmed(ctx context.Context, name string, amountCents int64, method string) {
}

func (s *NoopNotificationService) NotifyMeetingBooked(ctx context.Context, name string, scheduledAt time.Time) {
}
