package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rentledger-backend/internal/sms"
)

// Service sends messages through the WhatsApp Cloud API. It satisfies
// sms.Provider so the notification layer can try WhatsApp first and fall
// back to plain SMS.
type Service struct {
	APIKey        string
	PhoneNumberID string

	client *http.Client
}

func NewService(apiKey, phoneNumberID string) *Service {
	return &Service{
		APIKey:        apiKey,
		PhoneNumberID: phoneNumberID,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
}

// Cost per message is effectively zero on the Cloud API free tier.
func (s *Service) Cost() float64 {
	return 0
}

// Send delivers a plain text message via the Cloud API.
func (s *Service) Send(ctx context.Context, phone, message string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                sms.FormatPhone(phone),
		"type":              "text",
		"text": map[string]string{
			"preview_url": "false",
			"body":        message,
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := fmt.Sprintf("https://graph.facebook.com/v18.0/%s/messages", s.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("WhatsApp API error: %s", string(body))
	}
	return nil
}
