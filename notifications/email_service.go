package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// Mailer delivers a single e-mail with plain text and HTML bodies.
type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, text, html string) error
}

type BrevoService struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	Endpoint    string

	client *http.Client
	log    *zap.Logger
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent,omitempty"`
	TextContent string              `json:"textContent,omitempty"`
}

// NewMailer returns a Brevo backed mailer, or a NoopMailer when any of the settings is missing.
func NewMailer(apiKey, senderEmail, senderName string, log *zap.Logger) Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	if apiKey == "" || senderEmail == "" || senderName == "" {
		log.Warn("email service not configured, mail will only be logged")
		return NoopMailer{log: log}
	}
	log.Info("email service initialized", zap.String("sender", senderEmail))
	return NewBrevoService(apiKey, senderEmail, senderName, log)
}

func NewBrevoService(apiKey, senderEmail, senderName string, log *zap.Logger) *BrevoService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BrevoService{
		APIKey:      apiKey,
		SenderEmail: senderEmail,
		SenderName:  senderName,
		Endpoint:    brevoEndpoint,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

func (s *BrevoService) Send(ctx context.Context, toEmail, toName, subject, text, html string) error {
	at := strings.Index(toEmail, "@")
	if at <= 0 {
		return fmt.Errorf("invalid recipient email: %q", toEmail)
	}
	if toName == "" {
		toName = toEmail[:at]
	}

	body, err := json.Marshal(brevoPayload{
		Sender:      map[string]string{"name": s.SenderName, "email": s.SenderEmail},
		To:          []map[string]string{{"email": toEmail, "name": toName}},
		Subject:     subject,
		HTMLContent: html,
		TextContent: text,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Warn("brevo rejected email", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		return fmt.Errorf("brevo: status %d: %s", resp.StatusCode, respBody)
	}

	s.log.Debug("email sent", zap.String("to", toEmail), zap.String("subject", subject))
	return nil
}

// NoopMailer logs mail instead of sending it.
type NoopMailer struct {
	log *zap.Logger
}

func NewNoopMailer(log *zap.Logger) NoopMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return NoopMailer{log: log}
}

func (m NoopMailer) Send(_ context.Context, toEmail, _, subject, text, _ string) error {
	if m.log != nil {
		m.log.Info("mail not sent (no-op)", zap.String("to", toEmail), zap.String("subject", subject), zap.String("text", text))
	}
	return nil
}
