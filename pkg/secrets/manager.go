// Package secrets overlays credentials from a secrets backend onto the
// environment-derived configuration.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/jordanlanch/campusflow/config"
)

// Backends.
const (
	BackendEnv = "env"
	BackendAWS = "aws"
)

// ErrNotFound is returned when a backend has no value for a key.
var ErrNotFound = errors.New("secret not found")

// Manager retrieves secrets by key.
type Manager interface {
	GetSecret(ctx context.Context, key string) (string, error)
}

// Config holds secrets manager configuration
type Config struct {
	Backend       string
	AWSRegion     string
	CacheDuration time.Duration
}

// NewManager creates a secrets manager for cfg.Backend.
func NewManager(cfg Config) (Manager, error) {
	switch cfg.Backend {
	case BackendAWS, "aws-secrets-manager":
		log.Printf("🔐 Initializing AWS Secrets Manager (region: %s)", cfg.AWSRegion)
		return NewAWSSecretsManager(cfg)
	case BackendEnv, "":
		return EnvironmentManager{}, nil
	default:
		return nil, fmt.Errorf("unsupported secrets backend: %s", cfg.Backend)
	}
}

// EnvironmentManager reads secrets from environment variables.
type EnvironmentManager struct{}

// GetSecret returns the variable named key.
func (EnvironmentManager) GetSecret(_ context.Context, key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return value, nil
}

// AWSSecretsManager loads secrets from AWS Secrets Manager, caching each
// value for the configured duration.
type AWSSecretsManager struct {
	client *secretsmanager.SecretsManager
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// NewAWSSecretsManager creates a new AWS Secrets Manager client
func NewAWSSecretsManager(cfg Config) (*AWSSecretsManager, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.AWSRegion)})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	ttl := cfg.CacheDuration
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AWSSecretsManager{
		client: secretsmanager.New(sess),
		ttl:    ttl,
		cache:  make(map[string]cachedSecret),
	}, nil
}

// GetSecret retrieves a secret from AWS Secrets Manager
func (m *AWSSecretsManager) GetSecret(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	cached, ok := m.cache[key]
	m.mu.RUnlock()
	if ok && time.Now().Before(cached.expiresAt) {
		return cached.value, nil
	}

	out, err := m.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(key)})
	if err != nil {
		if aerr, ok := err.(interface{ Code() string }); ok && aerr.Code() == secretsmanager.ErrCodeResourceNotFoundException {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to get secret %s: %w", key, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", key)
	}

	m.mu.Lock()
	m.cache[key] = cachedSecret{value: *out.SecretString, expiresAt: time.Now().Add(m.ttl)}
	m.mu.Unlock()
	return *out.SecretString, nil
}

// Apply replaces the credential fields of cfg with the values m holds.
// Keys m does not know keep their environment value. It returns how many
// fields were replaced.
func Apply(ctx context.Context, m Manager, cfg *config.Config) (int, error) {
	fields := map[string]*string{
		"JWT_SECRET":             &cfg.JWTSecret,
		"MONGO_URL":              &cfg.MongoURL,
		"REDIS_URL":              &cfg.RedisURL,
		"SENDGRID_API_KEY":       &cfg.SendGridAPIKey,
		"SMTP_PASSWORD":          &cfg.SMTPPassword,
		"TWILIO_AUTH_TOKEN":      &cfg.TwilioAuthToken,
		"WHATSAPP_ACCESS_TOKEN":  &cfg.WhatsAppAccessToken,
		"GOOGLE_CLIENT_SECRET":   &cfg.GoogleClientSecret,
		"AWS_SECRET_ACCESS_KEY":  &cfg.AWSSecretAccessKey,
		"INCOMING_WEBHOOK_TOKEN": &cfg.IncomingWebhookToken,
		"SENTRY_DSN":             &cfg.SentryDSN,
	}

	replaced := 0
	for key, dst := range fields {
		value, err := m.GetSecret(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return replaced, err
		}
		*dst = value
		replaced++
	}
	return replaced, nil
}
