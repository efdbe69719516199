// Package webhook manages registered outbound webhooks and delivers
// notification payloads to them.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
)

// Header names sent with every registered delivery.
const (
	SignatureHeader = "X-Webhook-Signature"
	EventHeader     = "X-Webhook-Event"
)

const (
	registeredTimeout = 10 * time.Second
	settingsTimeout   = 5 * time.Second
)

// Service handles webhook operations
type Service struct {
	hooks          store.Webhooks
	httpClient     *http.Client
	settingsClient *http.Client
}

// NewService creates a new webhook service
func NewService(hooks store.Webhooks) *Service {
	return &Service{
		hooks:          hooks,
		httpClient:     &http.Client{Timeout: registeredTimeout},
		settingsClient: &http.Client{Timeout: settingsTimeout},
	}
}

// Create registers a webhook with a freshly generated secret.
func (s *Service) Create(ctx context.Context, req models.CreateWebhookRequest, createdBy string) (*models.Webhook, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to generate secret: %w", err))
	}

	wh := &models.Webhook{
		ID:        models.NewID(models.PrefixWebhook),
		Name:      req.Name,
		URL:       req.URL,
		Events:    req.Events,
		IsActive:  true,
		SecretKey: secret,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.hooks.Create(ctx, wh); err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to create webhook: %w", err))
	}
	return wh, nil
}

// List returns every registered webhook.
func (s *Service) List(ctx context.Context) ([]*models.Webhook, error) {
	hooks, err := s.hooks.List(ctx)
	if err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to list webhooks: %w", err))
	}
	return hooks, nil
}

// Delete removes a webhook.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.hooks.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewNotFoundError("Webhook no encontrado")
		}
		return domain.NewInternalError("", fmt.Errorf("failed to delete webhook: %w", err))
	}
	return nil
}

// Subscribers returns the active webhooks subscribed to event.
func (s *Service) Subscribers(ctx context.Context, event string) ([]*models.Webhook, error) {
	hooks, err := s.hooks.ListForEvent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhooks for event %s: %w", event, err)
	}
	return hooks, nil
}

// Deliver posts a signed payload to a registered webhook. It makes a
// single attempt.
func (s *Service) Deliver(ctx context.Context, wh *models.Webhook, payload models.WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}
	headers := map[string]string{
		SignatureHeader: generateSignature(body, wh.SecretKey),
		EventHeader:     payload.Event,
	}
	return post(ctx, s.httpClient, wh.URL, body, headers)
}

// Notify posts an unsigned payload to the URL configured in the
// notification settings.
func (s *Service) Notify(ctx context.Context, url string, payload models.WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}
	return post(ctx, s.settingsClient, url, body, nil)
}

func post(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned error status %d", resp.StatusCode)
	}
	return nil
}

// generateSecret generates a random secret for HMAC signature
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// generateSignature generates HMAC-SHA256 signature for webhook payload
func generateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies the HMAC signature of a webhook payload
func VerifySignature(payload []byte, signature string, secret string) bool {
	expected := generateSignature(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
