package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	APIBaseURL string        // default https://api.twilio.com
	Timeout    time.Duration // default 15s
}

// Messenger sends WhatsApp confirmations through the Twilio Messages API.
// Delivery is best effort: callers treat a failed send as log-worthy, not
// fatal, since the invoice row already exists by the time we get here.
type Messenger struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewMessenger(cfg Config, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.twilio.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Messenger{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Confirmation renders the message sent back to the invoice sender.
func Confirmation(invoiceNumber string) string {
	return fmt.Sprintf("✅ Invoice %s has been processed successfully and saved to our system.", invoiceNumber)
}

// Send posts one message to the recipient. One attempt, no retries.
func (m *Messenger) Send(ctx context.Context, to, body string) error {
	start := time.Now()

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", m.cfg.FromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", m.cfg.APIBaseURL, m.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(m.cfg.AccountSID, m.cfg.AuthToken)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("send message: non-2xx status: %d", resp.StatusCode)
	}

	var created struct {
		SID string `json:"sid"`
	}
	_ = json.Unmarshal(raw, &created)

	m.logger.Info("notify.send.ok",
		"to", to,
		"message_sid", created.SID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
