package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// API Configuration
	APIPort        string
	APIHost        string
	APIEnvironment string

	// Database
	Store         string
	SeedDemoData  bool
	MongoURL      string
	MongoDatabase string

	// Redis
	RedisURL string

	// JWT & Sessions
	JWTSecret          string
	JWTExpirationHours int
	SessionDays        int
	CookieSecure       bool

	// CORS
	CORSAllowedOrigins []string

	// Rate Limiting
	RateLimitRequestsPerMinute int
	RateLimitBurst             int

	// Frontend
	FrontendURL string

	// Email
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string

	// WhatsApp
	WhatsAppProvider      string
	TwilioAccountSID      string
	TwilioAuthToken       string
	TwilioWhatsAppFrom    string
	WhatsAppAPIURL        string
	WhatsAppPhoneNumberID string
	WhatsAppAccessToken   string
	DefaultPhoneRegion    string

	// Google Calendar
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Identity provider used by POST /auth/session
	AuthSessionProviderURL string

	// Storage
	StorageType        string
	StorageLocalPath   string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Bucket           string

	// Students
	InstitutionalEmailDomain string

	// Incoming webhooks
	IncomingWebhookToken string

	// Sentry
	SentryDSN         string
	SentryEnvironment string

	// Logging
	LogLevel string

	// Background jobs
	JobsEnabled bool

	// Secrets backend overlaying credentials ("env" or "aws")
	SecretsBackend string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// API
		APIPort:        getEnv("API_PORT", "8001"),
		APIHost:        getEnv("API_HOST", "0.0.0.0"),
		APIEnvironment: getEnv("API_ENVIRONMENT", "development"),

		// Database
		Store:         getEnv("STORE", "mongo"),
		SeedDemoData:  getEnvAsBool("SEED_DEMO_DATA", false),
		MongoURL:      getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "campusflow"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		// JWT
		JWTSecret:          getEnv("JWT_SECRET", "change-this-in-production"),
		JWTExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		SessionDays:        getEnvAsInt("SESSION_DAYS", 7),
		CookieSecure:       getEnvAsBool("COOKIE_SECURE", true),

		// CORS
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		// Rate Limiting
		RateLimitRequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
		RateLimitBurst:             getEnvAsInt("RATE_LIMIT_BURST", 10),

		// Frontend
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Email
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", "noreply@ucic.edu.mx"),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "UCIC"),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:       getEnv("SMTP_USER", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),

		// WhatsApp
		WhatsAppProvider:      getEnv("WHATSAPP_PROVIDER", "twilio"),
		TwilioAccountSID:      getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:       getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsAppFrom:    getEnv("TWILIO_WHATSAPP_FROM", ""),
		WhatsAppAPIURL:        getEnv("WHATSAPP_API_URL", "https://graph.facebook.com/v18.0"),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		DefaultPhoneRegion:    getEnv("DEFAULT_PHONE_REGION", "MX"),

		// Google Calendar
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),

		AuthSessionProviderURL: getEnv("AUTH_SESSION_PROVIDER_URL", ""),

		// Storage
		StorageType:        getEnv("STORAGE_TYPE", "local"),
		StorageLocalPath:   getEnv("STORAGE_LOCAL_PATH", "./uploads/students"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),

		InstitutionalEmailDomain: getEnv("INSTITUTIONAL_EMAIL_DOMAIN", "ucic.edu.mx"),
		IncomingWebhookToken:     getEnv("INCOMING_WEBHOOK_TOKEN", ""),

		// Sentry
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		JobsEnabled: getEnvAsBool("JOBS_ENABLED", true),

		SecretsBackend: getEnv("SECRETS_BACKEND", "env"),
	}
}

// IsProduction reports whether the API runs in production.
func (c *Config) IsProduction() bool {
	return c.APIEnvironment == "production"
}

// EmailConfigured reports whether any outbound email transport is set up.
func (c *Config) EmailConfigured() bool {
	return c.SendGridAPIKey != "" || c.SMTPHost != ""
}

// GoogleConfigured reports whether the Google OAuth client is set up.
func (c *Config) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
