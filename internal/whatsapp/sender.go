// Package whatsapp sends messages through the WhatsApp Business Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/giftist/engage/internal/engagement"
)

const (
	defaultBaseURL = "https://graph.facebook.com/v19.0"
	defaultTimeout = 10 * time.Second

	channelName = "whatsapp"
)

// Config holds WhatsApp sender configuration.
type Config struct {
	Enabled       bool          `koanf:"enabled"`
	PhoneNumberID string        `koanf:"phone_number_id"`
	AccessToken   string        `koanf:"access_token"`
	BaseURL       string        `koanf:"base_url"`
	RateLimit     float64       `koanf:"rate_limit"`
	Burst         int           `koanf:"burst"`
	Timeout       time.Duration `koanf:"timeout"`
}

// Sender implements engagement.Channel over the Cloud API. Proactive messages
// outside a 24h inbound session must use a pre-approved template; inside a
// session free-form text is allowed.
type Sender struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSender creates a new WhatsApp sender.
func NewSender(config Config) *Sender {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 10
	}
	if config.Burst <= 0 {
		config.Burst = 5
	}

	return &Sender{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst),
	}
}

// Name returns the channel name recorded in the ledger.
func (s *Sender) Name() string {
	return channelName
}

// Send delivers one message and returns the provider message ID. When the
// sender is disabled it logs the message instead of sending, which keeps
// non-production environments quiet without branching in callers.
func (s *Sender) Send(ctx context.Context, msg engagement.OutboundMessage) (string, error) {
	if !s.config.Enabled {
		slog.InfoContext(ctx, "whatsapp disabled, dropping message",
			"to", maskPhone(msg.To),
			"template", msg.Template)
		return "", nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", engagement.NewRetryableDispatchError(fmt.Errorf("rate limiter: %w", err))
	}

	payload := s.buildPayload(msg)
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.config.BaseURL, s.config.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &RetryableError{Message: fmt.Sprintf("send request: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	return s.handleResponse(ctx, resp, msg)
}

// Cloud API message payloads.
type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type templatePayload struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Template         templateBody `json:"template"`
}

type templateBody struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (s *Sender) buildPayload(msg engagement.OutboundMessage) any {
	if msg.Session {
		return textPayload{
			MessagingProduct: "whatsapp",
			To:               msg.To,
			Type:             "text",
			Text:             textBody{Body: msg.Body},
		}
	}

	tmpl := templateBody{
		Name:     msg.Template,
		Language: templateLanguage{Code: "en"},
	}
	if len(msg.TemplateParams) > 0 {
		params := make([]templateParameter, 0, len(msg.TemplateParams))
		for _, p := range msg.TemplateParams {
			params = append(params, templateParameter{Type: "text", Text: p})
		}
		tmpl.Components = []templateComponent{{Type: "body", Parameters: params}}
	}

	return templatePayload{
		MessagingProduct: "whatsapp",
		To:               msg.To,
		Type:             "template",
		Template:         tmpl,
	}
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (s *Sender) handleResponse(ctx context.Context, resp *http.Response, msg engagement.OutboundMessage) (string, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var parsed sendResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(parsed.Messages) == 0 {
			return "", fmt.Errorf("response carries no message id")
		}
		slog.DebugContext(ctx, "whatsapp message sent",
			"to", maskPhone(msg.To),
			"message_id", parsed.Messages[0].ID)
		return parsed.Messages[0].ID, nil

	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return "", &PermanentError{
			Code:    resp.StatusCode,
			Message: apiMessage(body),
		}

	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &RetryableError{
			Code:    resp.StatusCode,
			Message: "rate limited",
		}

	case resp.StatusCode >= 500:
		return "", &RetryableError{
			Code:    resp.StatusCode,
			Message: apiMessage(body),
		}

	default:
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

func apiMessage(body []byte) string {
	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return parsed.Error.Message + " (code " + strconv.Itoa(parsed.Error.Code) + ")"
	}
	return string(body)
}

// maskPhone hides most of the number for logging.
func maskPhone(phone string) string {
	if len(phone) > 4 {
		return "***" + phone[len(phone)-4:]
	}
	return "***"
}

// PermanentError indicates a permanent API error that should not be retried.
type PermanentError struct {
	Code    int
	Message string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("whatsapp error %d: %s", e.Code, e.Message)
}

// IsRetryable returns false as permanent errors should not be retried.
func (e *PermanentError) IsRetryable() bool { return false }

// RetryableError indicates a temporary error that can be retried.
type RetryableError struct {
	Code    int
	Message string
}

func (e *RetryableError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("whatsapp error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("whatsapp error: %s", e.Message)
}

// IsRetryable returns true as these errors are temporary.
func (e *RetryableError) IsRetryable() bool { return true }
