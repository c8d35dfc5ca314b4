package sms

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Provider sends a text message to one phone number. Implementations do
// transport only; logging and retry policy live with the caller.
type Provider interface {
	Send(ctx context.Context, phone, message string) error
	Cost() float64
}

// Config holds Fast2SMS route tuning
type Config struct {
	Route      string // "q" (quick/expensive), "dlt" (cheap/production), "v3" (promotional)
	SenderID   string // For DLT route
	TemplateID string // For DLT route
	EntityID   string // For DLT route (PEID)
	CostPerSMS float64
}

// Fast2SMS implements Provider for Fast2SMS (India)
type Fast2SMS struct {
	APIKey string
	Config *Config

	client *http.Client
}

func NewFast2SMS(apiKey string) *Fast2SMS {
	return &Fast2SMS{
		APIKey: apiKey,
		Config: &Config{
			Route:      "q", // Quick route works without DLT registration
			CostPerSMS: 5.0,
		},
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Fast2SMS) SetConfig(config *Config) {
	if config != nil {
		s.Config = config
	}
}

func (s *Fast2SMS) Cost() float64 {
	return s.Config.CostPerSMS
}

// Send delivers one message through the configured route.
func (s *Fast2SMS) Send(ctx context.Context, phone, message string) error {
	var apiURL string

	switch s.Config.Route {
	case "dlt":
		// DLT route (cheaper, requires registration)
		apiURL = fmt.Sprintf(
			"https://www.fast2sms.com/dev/bulkV2?authorization=%s&route=dlt&sender_id=%s&message=%s&variables_values=%s&flash=0&numbers=%s",
			url.QueryEscape(s.APIKey),
			url.QueryEscape(s.Config.SenderID),
			url.QueryEscape(s.Config.TemplateID),
			url.QueryEscape(message),
			url.QueryEscape(phone),
		)
	case "v3":
		// Promotional route (cheapest, 9am-9pm only)
		apiURL = fmt.Sprintf(
			"https://www.fast2sms.com/dev/bulkV2?authorization=%s&route=v3&sender_id=%s&message=%s&language=english&numbers=%s",
			url.QueryEscape(s.APIKey),
			url.QueryEscape(s.Config.SenderID),
			url.QueryEscape(message),
			url.QueryEscape(phone),
		)
	default:
		// Quick route (expensive but works immediately)
		apiURL = fmt.Sprintf(
			"https://www.fast2sms.com/dev/bulkV2?authorization=%s&route=q&message=%s&language=english&flash=0&numbers=%s",
			url.QueryEscape(s.APIKey),
			url.QueryEscape(message),
			url.QueryEscape(phone),
		)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create SMS request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("SMS API error (status %d): %s", resp.StatusCode, string(body))
	}
	if strings.Contains(string(body), "\"return\":false") {
		return fmt.Errorf("SMS API error: %s", string(body))
	}
	return nil
}

// Mock prints messages to the log instead of sending them. Used when no
// provider is configured and in tests.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Cost() float64 {
	return 0
}

func (m *Mock) Send(ctx context.Context, phone, message string) error {
	log.Printf("[SMS] (mock) to %s: %s", phone, message)
	return nil
}

// FormatPhone strips everything but digits and prefixes the Indian
// country code for bare 10-digit numbers.
func FormatPhone(phone string) string {
	cleaned := ""
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			cleaned += string(c)
		}
	}
	if len(cleaned) == 10 {
		return "91" + cleaned
	}
	return cleaned
}
