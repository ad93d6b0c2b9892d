package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/V4T54L/milestone-notifier/internal/domain"
)

const (
	defaultTwilioBaseURL = "https://api.twilio.com/2010-04-01"
	defaultHTTPTimeout   = 30 * time.Second
	maxResponseBytes     = 16 * 1024
	whatsAppScheme       = "whatsapp:"
)

// HTTPClient abstracts http.Client for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TwilioConfig carries the account credentials and sender number.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string // WhatsApp-enabled sender, with or without "whatsapp:"
	BaseURL    string
	Timeout    time.Duration // HTTP timeout when client is nil; defaults to 30s
}

// TwilioSender implements domain.MessageSender with the Twilio Messages API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient HTTPClient
	logger     *slog.Logger
}

// NewTwilioSender validates cfg and builds a sender. client may be nil.
func NewTwilioSender(cfg TwilioConfig, client HTTPClient, logger *slog.Logger) (*TwilioSender, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" {
		return nil, errors.New("twilio sender: account SID is required")
	}
	if strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, errors.New("twilio sender: auth token is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("twilio sender: from number is required")
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}

	return &TwilioSender{
		accountSID: strings.TrimSpace(cfg.AccountSID),
		authToken:  strings.TrimSpace(cfg.AuthToken),
		from:       whatsAppAddress(cfg.From),
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger.With("component", "twilio_sender"),
	}, nil
}

// Send posts one message. Any non-2xx response is an error; there are no retries.
func (s *TwilioSender) Send(ctx context.Context, to domain.PhoneDestination, body string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, url.PathEscape(s.accountSID))

	params := url.Values{}
	params.Set("To", whatsAppAddress(string(to)))
	params.Set("From", s.from)
	params.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("twilio sender: new request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio sender: http do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("twilio sender: read body: %w", err)
	}
	parsed := parseTwilioBody(raw)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.logger.Debug("message accepted", "sid", parsed.SID, "status", parsed.Status)
		return nil
	}

	message := parsed.Message
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	if parsed.Code > 0 {
		return fmt.Errorf("twilio sender: error %d: %s", parsed.Code, message)
	}
	return fmt.Errorf("twilio sender: http %d: %s", resp.StatusCode, message)
}

type twilioBody struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func parseTwilioBody(raw []byte) twilioBody {
	var parsed twilioBody
	if len(strings.TrimSpace(string(raw))) == 0 {
		return parsed
	}
	_ = json.Unmarshal(raw, &parsed)
	return parsed
}

func whatsAppAddress(number string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(strings.ToLower(number), whatsAppScheme) {
		return number
	}
	return whatsAppScheme + number
}
