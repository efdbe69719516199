// Package whatsapp sends WhatsApp text messages through Twilio or the Meta
// Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jordanlanch/campusflow/pkg/phone"
)

var (
	// ErrNotConfigured is returned when no provider credentials are set.
	ErrNotConfigured = errors.New("whatsapp provider not configured")
	// ErrSendFailed is returned when the provider rejects a message.
	ErrSendFailed = errors.New("failed to send WhatsApp message")
)

const (
	ProviderTwilio = "twilio"
	ProviderMeta   = "meta"

	defaultTwilioURL = "https://api.twilio.com"
	requestTimeout   = 10 * time.Second
)

// Sender delivers one text message to a phone number.
type Sender interface {
	Send(ctx context.Context, to, body string) error
	Name() string
}

// Config selects and configures a provider.
type Config struct {
	Provider      string
	Region        string
	AccountSID    string
	AuthToken     string
	From          string
	APIURL        string
	PhoneNumberID string
	AccessToken   string
	// TwilioURL overrides the Twilio API host.
	TwilioURL string
}

// NewSender returns the configured provider, or ErrNotConfigured.
func NewSender(cfg Config) (Sender, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderMeta:
		if cfg.PhoneNumberID == "" || cfg.AccessToken == "" {
			return nil, ErrNotConfigured
		}
		return NewMetaSender(cfg.APIURL, cfg.PhoneNumberID, cfg.AccessToken, cfg.Region), nil
	case ProviderTwilio, "":
		if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
			return nil, ErrNotConfigured
		}
		s := NewTwilioSender(cfg.AccountSID, cfg.AuthToken, cfg.From, cfg.Region)
		if cfg.TwilioURL != "" {
			s.baseURL = strings.TrimRight(cfg.TwilioURL, "/")
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown whatsapp provider %q", cfg.Provider)
	}
}

// TwilioSender sends messages through the Twilio Messages API.
type TwilioSender struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	region     string
	httpClient *http.Client
}

// NewTwilioSender creates a Twilio sender. from is the WhatsApp-enabled
// Twilio number.
func NewTwilioSender(accountSID, authToken, from, region string) *TwilioSender {
	return &TwilioSender{
		baseURL:    defaultTwilioURL,
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		region:     region,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (s *TwilioSender) Name() string { return ProviderTwilio }

func whatsappAddress(number, region string) string {
	number = strings.TrimPrefix(number, "whatsapp:")
	return "whatsapp:" + phone.BestEffort(number, region)
}

// Send posts the message as a form to Messages.json.
func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("From", whatsappAddress(s.from, s.region))
	form.Set("To", whatsappAddress(to, s.region))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return do(s.httpClient, req)
}

// MetaSender sends messages through the WhatsApp Cloud API.
type MetaSender struct {
	apiURL        string
	phoneNumberID string
	accessToken   string
	region        string
	httpClient    *http.Client
}

// NewMetaSender creates a Cloud API sender.
func NewMetaSender(apiURL, phoneNumberID, accessToken, region string) *MetaSender {
	if apiURL == "" {
		apiURL = "https://graph.facebook.com/v18.0"
	}
	return &MetaSender{
		apiURL:        strings.TrimRight(apiURL, "/"),
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		region:        region,
		httpClient:    &http.Client{Timeout: requestTimeout},
	}
}

func (s *MetaSender) Name() string { return ProviderMeta }

type metaMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             metaText `json:"text"`
}

type metaText struct {
	Body string `json:"body"`
}

// Send posts a text message. The Cloud API wants the number without "+".
func (s *MetaSender) Send(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(metaMessage{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(phone.BestEffort(to, s.region), "+"),
		Type:             "text",
		Text:             metaText{Body: body},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", s.apiURL, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	return do(s.httpClient, req)
}

func do(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// SentMessage is one call recorded by MockSender.
type SentMessage struct {
	To   string
	Body string
}

// MockSender records messages for tests.
type MockSender struct {
	SendFunc func(ctx context.Context, to, body string) error

	mu    sync.Mutex
	Calls []SentMessage
}

func (m *MockSender) Name() string { return "mock" }

func (m *MockSender) Send(ctx context.Context, to, body string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, SentMessage{To: to, Body: body})
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, to, body)
	}
	return nil
}

// CallCount returns how many messages were sent.
func (m *MockSender) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
