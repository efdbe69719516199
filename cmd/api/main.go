package main

// @title CampusFlow API
// @version 1.0
// @description School CRM backend: leads, students, custom fields with approvals, notifications and Google Calendar.

// @contact.name API Support
// @contact.email soporte@ucic.edu.mx

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/jordanlanch/campusflow/config"
	"github.com/jordanlanch/campusflow/pkg/appointments"
	"github.com/jordanlanch/campusflow/pkg/audit"
	"github.com/jordanlanch/campusflow/pkg/auth"
	"github.com/jordanlanch/campusflow/pkg/cache"
	"github.com/jordanlanch/campusflow/pkg/calendar"
	"github.com/jordanlanch/campusflow/pkg/careers"
	"github.com/jordanlanch/campusflow/pkg/customfields"
	"github.com/jordanlanch/campusflow/pkg/dashboard"
	"github.com/jordanlanch/campusflow/pkg/database"
	"github.com/jordanlanch/campusflow/pkg/email"
	"github.com/jordanlanch/campusflow/pkg/export"
	"github.com/jordanlanch/campusflow/pkg/jobs"
	"github.com/jordanlanch/campusflow/pkg/leadassignment"
	"github.com/jordanlanch/campusflow/pkg/leads"
	"github.com/jordanlanch/campusflow/pkg/logger"
	"github.com/jordanlanch/campusflow/pkg/metrics"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/notification"
	"github.com/jordanlanch/campusflow/pkg/secrets"
	"github.com/jordanlanch/campusflow/pkg/storage"
	"github.com/jordanlanch/campusflow/pkg/store"
	"github.com/jordanlanch/campusflow/pkg/store/memstore"
	"github.com/jordanlanch/campusflow/pkg/store/mongostore"
	"github.com/jordanlanch/campusflow/pkg/students"
	"github.com/jordanlanch/campusflow/pkg/teachers"
	"github.com/jordanlanch/campusflow/pkg/testdata"
	"github.com/jordanlanch/campusflow/pkg/users"
	"github.com/jordanlanch/campusflow/pkg/webhook"
	"github.com/jordanlanch/campusflow/pkg/whatsapp"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)
	loadSecrets(cfg)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 0.2,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	structured := logger.New(cfg.LogLevel)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// Initialize the document store
	st, closeStore := openStore(startCtx, cfg)
	defer closeStore()

	if err := st.CareerCatalog.Seed(startCtx, models.DefaultCareers); err != nil {
		log.Printf("⚠️  Failed to seed career catalog: %v", err)
	}

	// Initialize Redis cache
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize document storage
	docs, err := storage.New(startCtx, storage.Config{
		Type:               cfg.StorageType,
		LocalPath:          cfg.StorageLocalPath,
		AWSRegion:          cfg.AWSRegion,
		AWSAccessKeyID:     cfg.AWSAccessKeyID,
		AWSSecretAccessKey: cfg.AWSSecretAccessKey,
		S3Bucket:           cfg.S3Bucket,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize document storage: %v", err)
	}
	log.Printf("✅ Document storage initialized (%s)", cfg.StorageType)

	// Initialize Prometheus metrics
	m := metrics.New(prometheus.DefaultRegisterer)
	log.Printf("✅ Prometheus metrics initialized")

	// Outbound integrations
	emailService := email.NewService(email.Config{
		SendGridAPIKey: cfg.SendGridAPIKey,
		SMTPHost:       cfg.SMTPHost,
		SMTPPort:       cfg.SMTPPort,
		SMTPUser:       cfg.SMTPUser,
		SMTPPassword:   cfg.SMTPPassword,
		FromEmail:      cfg.EmailFrom,
		FromName:       cfg.EmailFromName,
		FrontendURL:    cfg.FrontendURL,
	})

	var wa whatsapp.Sender
	sender, err := whatsapp.NewSender(whatsapp.Config{
		Provider:      cfg.WhatsAppProvider,
		Region:        cfg.DefaultPhoneRegion,
		AccountSID:    cfg.TwilioAccountSID,
		AuthToken:     cfg.TwilioAuthToken,
		From:          cfg.TwilioWhatsAppFrom,
		APIURL:        cfg.WhatsAppAPIURL,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		AccessToken:   cfg.WhatsAppAccessToken,
	})
	switch {
	case errors.Is(err, whatsapp.ErrNotConfigured):
		log.Printf("ℹ️  WhatsApp notifications disabled (no provider credentials)")
	case err != nil:
		log.Printf("⚠️  WhatsApp notifications disabled: %v", err)
	default:
		wa = sender
		log.Printf("✅ WhatsApp notifications enabled (%s)", sender.Name())
	}

	calendarService := calendar.NewService(calendar.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		FrontendURL:  cfg.FrontendURL,
	}, st.CalendarTokens, redisClient, m, structured)
	if !cfg.GoogleConfigured() {
		log.Printf("ℹ️  Google Calendar disabled (no OAuth client configured)")
	}

	// Initialize services
	auditService := audit.NewService(st.AuditLogs)
	webhookService := webhook.NewService(st.Webhooks)
	notificationService := notification.NewService(st, webhookService, wa, emailService, m, structured)
	authService := auth.NewService(st, redisClient, emailService, auth.NewProviderClient(cfg.AuthSessionProviderURL), auth.Config{
		JWTSecret:          cfg.JWTSecret,
		JWTExpirationHours: cfg.JWTExpirationHours,
		SessionDays:        cfg.SessionDays,
	})
	studentService := students.NewService(st.Students, docs, cfg.InstitutionalEmailDomain)
	leadService := leads.NewService(st, leadassignment.NewService(st.Users, st.Leads), studentService, auditService, notificationService, m, cfg.DefaultPhoneRegion)
	appointmentService := appointments.NewService(st, notificationService, calendarService)

	svc := services{
		auth:          authService,
		users:         users.NewService(st.Users),
		teachers:      teachers.NewService(st.Teachers),
		careers:       careers.NewService(st),
		leads:         leadService,
		students:      studentService,
		customFields:  customfields.NewService(st, auditService, m),
		audit:         auditService,
		export:        export.NewService(st, m),
		appointments:  appointmentService,
		calendar:      calendarService,
		webhooks:      webhookService,
		notifications: notificationService,
		dashboard:     dashboard.NewService(st, redisClient, m),
	}

	// Initialize cron manager for maintenance jobs
	var cronManager *jobs.CronManager
	if cfg.JobsEnabled {
		monitor := jobs.NewPipelineMonitor(st.Leads, st.Students, log.Default())
		cronManager = jobs.NewCronManager(authService, appointmentService, monitor, redisClient, m, log.Default())
		if err := cronManager.SetupJobs(); err != nil {
			log.Fatalf("❌ Failed to setup cron jobs: %v", err)
		}
		cronManager.Start()
		log.Printf("✅ Cron jobs started successfully")
	} else {
		log.Printf("ℹ️  Cron jobs disabled (JOBS_ENABLED=false)")
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()
	registerRoutes(appCtx, e, cfg, svc, st.Health, redisClient, m)

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 CampusFlow API starting on %s", address)
	log.Printf("📝 Log level: %s, store: %s", cfg.LogLevel, cfg.Store)
	log.Printf("🔐 JWT expiration: %d hours, sessions: %d days", cfg.JWTExpirationHours, cfg.SessionDays)
	log.Printf("🌍 CORS: %v", cfg.CORSAllowedOrigins)
	log.Printf("🛡️  Rate limiting: %d req/min (burst: %d)", cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)

	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	stopApp()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if cronManager != nil {
		cronManager.Stop(ctx)
		log.Println("✅ Cron jobs stopped")
	}

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}

// loadSecrets overlays credentials from the configured secrets backend.
func loadSecrets(cfg *config.Config) {
	if cfg.SecretsBackend == "" || cfg.SecretsBackend == secrets.BackendEnv {
		return
	}
	m, err := secrets.NewManager(secrets.Config{Backend: cfg.SecretsBackend, AWSRegion: cfg.AWSRegion})
	if err != nil {
		log.Fatalf("❌ Failed to initialize secrets manager: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	n, err := secrets.Apply(ctx, m, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to load secrets: %v", err)
	}
	log.Printf("✅ Loaded %d secrets from %s", n, cfg.SecretsBackend)
}

// openStore connects the configured backend. STORE=memory keeps everything
// in process and is meant for local development.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, func()) {
	if cfg.Store == "memory" {
		log.Printf("⚠️  Using in-memory store, data is lost on restart")
		st := memstore.New()
		if cfg.SeedDemoData {
			err := testdata.Seed(ctx, st, testdata.NewGenerator(time.Now().UnixNano(), nil), testdata.SeedConfig{Agents: 3, Leads: 40, Students: 15})
			if err != nil {
				log.Fatalf("❌ Failed to seed demo data: %v", err)
			}
			log.Printf("🌱 Seeded demo agents, leads and students")
		}
		return st, func() {}
	}

	db, err := database.NewClient(ctx, cfg.MongoURL, cfg.MongoDatabase, database.DefaultPoolConfig())
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Printf("⚠️  Failed to create indexes: %v", err)
	}
	return mongostore.New(db), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(ctx); err != nil {
			log.Printf("⚠️  Failed to close database: %v", err)
		}
	}
}
