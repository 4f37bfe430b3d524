// Package notify – Twilio SMS transport.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioClient sends SMS through the Twilio Messages REST endpoint. It is a
// thin transport wrapper: one form POST per message, provider SID returned
// on success.
type TwilioClient struct {
	AccountSID string
	AuthToken  string
	From       string

	// BaseURL overrides the Twilio API origin; tests point it at a local
	// httptest server.
	BaseURL string

	HTTPClient *http.Client
}

// NewTwilioClient builds a client for the given account credentials and
// sending number.
func NewTwilioClient(accountSID, authToken, from string) *TwilioClient {
	return &TwilioClient{
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		BaseURL:    "https://api.twilio.com",
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// twilioMessage is the subset of the Messages resource we read back.
type twilioMessage struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"` // error description on non-2xx
}

// Send posts one SMS and returns the provider message SID.
func (c *TwilioClient) Send(ctx context.Context, to, body string) (string, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.BaseURL, c.AccountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.From)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.AccountSID, c.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("twilio response: %w", err)
	}

	var msg twilioMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", fmt.Errorf("twilio response decode: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("twilio status %d: %s", resp.StatusCode, msg.Message)
	}
	return msg.SID, nil
}

func (c *TwilioClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
