// Package notify – SendGrid email transport.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SendGridClient sends email through the SendGrid v3 mail/send endpoint.
// Like TwilioClient it is a thin transport wrapper with no retry logic.
type SendGridClient struct {
	APIKey string
	From   string

	// BaseURL overrides the SendGrid API origin for tests.
	BaseURL string

	HTTPClient *http.Client
}

// NewSendGridClient builds a client for the given API key and sender
// address.
func NewSendGridClient(apiKey, from string) *SendGridClient {
	return &SendGridClient{
		APIKey:     apiKey,
		From:       from,
		BaseURL:    "https://api.sendgrid.com",
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMail struct {
	Personalizations []struct {
		To []sgAddress `json:"to"`
	} `json:"personalizations"`
	From    sgAddress   `json:"from"`
	Subject string      `json:"subject"`
	Content []sgContent `json:"content"`
}

// Send posts one email and returns the provider message ID (the
// X-Message-Id response header).
func (c *SendGridClient) Send(ctx context.Context, to, subject, text, html string) (string, error) {
	payload := sgMail{
		From:    sgAddress{Email: c.From},
		Subject: subject,
		Content: []sgContent{
			{Type: "text/plain", Value: text},
			{Type: "text/html", Value: html},
		},
	}
	payload.Personalizations = make([]struct {
		To []sgAddress `json:"to"`
	}, 1)
	payload.Personalizations[0].To = []sgAddress{{Email: to}}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("sendgrid request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	return resp.Header.Get("X-Message-Id"), nil
}

func (c *SendGridClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
