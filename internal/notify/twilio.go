package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	twilioBaseURL  = "https://api.twilio.com"
	maxSMSBodyLen  = 1600
	minPhoneDigits = 10
)

// Twilio sends SMS through the Twilio Messages API.
type Twilio struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	Client     *http.Client
}

func NewTwilio(sid, token, from string) *Twilio {
	if sid == "" || token == "" || from == "" {
		return nil
	}
	return &Twilio{
		AccountSID: sid,
		AuthToken:  token,
		From:       from,
		BaseURL:    twilioBaseURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Twilio) Send(ctx context.Context, recipient, body string) error {
	if t == nil || t.AccountSID == "" {
		return ErrDisabled
	}
	recipient = strings.TrimSpace(recipient)
	body = strings.TrimSpace(body)
	if len(strings.TrimPrefix(recipient, "+")) < minPhoneDigits {
		return fmt.Errorf("notify.Twilio.Send: recipient %q too short", recipient)
	}
	if body == "" || len(body) > maxSMSBodyLen {
		return fmt.Errorf("notify.Twilio.Send: body length %d out of range", len(body))
	}

	form := url.Values{}
	form.Set("From", t.From)
	form.Set("To", recipient)
	form.Set("Body", body)

	endpoint := strings.TrimRight(t.BaseURL, "/") + "/2010-04-01/Accounts/" + url.PathEscape(t.AccountSID) + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notify.Twilio.Send: %w", err)
	}
	req.SetBasicAuth(t.AccountSID, t.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("notify.Twilio.Send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify.Twilio.Send: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
