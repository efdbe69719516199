package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jordanlanch/campusflow/config"
	"github.com/jordanlanch/campusflow/pkg/api/handlers"
	apimw "github.com/jordanlanch/campusflow/pkg/api/middleware"
	"github.com/jordanlanch/campusflow/pkg/appointments"
	"github.com/jordanlanch/campusflow/pkg/audit"
	"github.com/jordanlanch/campusflow/pkg/auth"
	"github.com/jordanlanch/campusflow/pkg/cache"
	"github.com/jordanlanch/campusflow/pkg/calendar"
	"github.com/jordanlanch/campusflow/pkg/careers"
	"github.com/jordanlanch/campusflow/pkg/customfields"
	"github.com/jordanlanch/campusflow/pkg/dashboard"
	"github.com/jordanlanch/campusflow/pkg/export"
	"github.com/jordanlanch/campusflow/pkg/leads"
	"github.com/jordanlanch/campusflow/pkg/metrics"
	custommiddleware "github.com/jordanlanch/campusflow/pkg/middleware"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/notification"
	"github.com/jordanlanch/campusflow/pkg/store"
	"github.com/jordanlanch/campusflow/pkg/students"
	"github.com/jordanlanch/campusflow/pkg/teachers"
	"github.com/jordanlanch/campusflow/pkg/users"
	"github.com/jordanlanch/campusflow/pkg/webhook"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

const (
	apiVersion             = "1.0.0"
	rateLimitCleanupPeriod = 5 * time.Minute
)

// services groups everything the HTTP layer depends on.
type services struct {
	auth          *auth.Service
	users         *users.Service
	teachers      *teachers.Service
	careers       *careers.Service
	leads         *leads.Service
	students      *students.Service
	customFields  *customfields.Service
	audit         *audit.Service
	export        *export.Service
	appointments  *appointments.Service
	calendar      *calendar.Service
	webhooks      *webhook.Service
	notifications *notification.Service
	dashboard     *dashboard.Service
}

// registerRoutes installs the global middleware and every route. Rate
// limiter cleanup runs until ctx is done.
func registerRoutes(ctx context.Context, e *echo.Echo, cfg *config.Config, svc services, db store.Pinger, redisClient *cache.Client, m *metrics.Metrics) {
	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	authRateLimiter := custommiddleware.NewRateLimiter(5, 2)       // login and register
	webhookRateLimiter := custommiddleware.NewRateLimiter(100, 20) // automation ingress
	for _, rl := range []*custommiddleware.RateLimiter{globalRateLimiter, authRateLimiter, webhookRateLimiter} {
		go rl.Cleanup(ctx, rateLimitCleanupPeriod)
	}

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(m.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig(cfg.CORSAllowedOrigins)))
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.DefaultSecurityHeadersConfig()))
	e.Use(middleware.Gzip())
	e.Use(globalRateLimiter.Middleware())

	// Operational endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "CampusFlow API",
			"version":     apiVersion,
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})
	e.GET("/health", healthHandler(db, redisClient))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authHandler := handlers.NewAuthHandler(svc.auth, cfg.CookieSecure)
	userHandler := handlers.NewUserHandler(svc.users, svc.auth)
	catalogHandler := handlers.NewCatalogHandler(svc.teachers, svc.careers)
	leadHandler := handlers.NewLeadHandler(svc.leads)
	studentHandler := handlers.NewStudentHandler(svc.students, svc.export)
	customFieldsHandler := handlers.NewCustomFieldsHandler(svc.customFields, svc.audit)
	appointmentHandler := handlers.NewAppointmentHandler(svc.appointments)
	calendarHandler := handlers.NewCalendarHandler(svc.calendar)
	webhookHandler := handlers.NewWebhookHandler(svc.webhooks, svc.leads, svc.notifications, cfg.IncomingWebhookToken)
	dashboardHandler := handlers.NewDashboardHandler(svc.dashboard)

	v1 := e.Group("/api/v1")
	authenticated := apimw.Authenticate(svc.auth)

	managers := apimw.RequireRoles(models.RoleAdmin, models.RoleGerente)
	adminOnly := apimw.RequireRoles(models.RoleAdmin)
	reviewers := apimw.RequireRoles(models.RoleAdmin, models.RoleGerente, models.RoleSupervisor)
	attendance := apimw.RequireRoles(models.RoleAdmin, models.RoleGerente, models.RoleSupervisor, models.RoleMaestro)

	// Authentication routes
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register, authRateLimiter.Middleware())
		authRoutes.POST("/login", authHandler.Login, authRateLimiter.Middleware())
		authRoutes.POST("/session", authHandler.Session, authRateLimiter.Middleware())
		authRoutes.GET("/me", authHandler.Me, authenticated)
		authRoutes.POST("/logout", authHandler.Logout, authenticated)
		authRoutes.POST("/forgot-password", authHandler.ForgotPassword, authRateLimiter.Middleware())
		authRoutes.POST("/reset-password", authHandler.ResetPassword, authRateLimiter.Middleware())

		calendarRoutes := authRoutes.Group("/google/calendar")
		calendarRoutes.GET("/callback", calendarHandler.Callback)
		calendarRoutes.GET("/connect", calendarHandler.Connect, authenticated)
		calendarRoutes.GET("/status", calendarHandler.Status, authenticated)
		calendarRoutes.DELETE("/disconnect", calendarHandler.Disconnect, authenticated)
		calendarRoutes.GET("/events", calendarHandler.ListEvents, authenticated)
		calendarRoutes.POST("/events", calendarHandler.CreateEvent, authenticated)
		calendarRoutes.DELETE("/events/:event_id", calendarHandler.DeleteEvent, authenticated)
	}

	// Public automation ingress
	v1.POST("/webhooks/incoming/lead", webhookHandler.IncomingLead, webhookRateLimiter.Middleware())

	protected := v1.Group("", authenticated)

	userRoutes := protected.Group("/users")
	{
		userRoutes.GET("", userHandler.List, managers)
		userRoutes.GET("/agents", userHandler.Agents)
		userRoutes.GET("/:id", userHandler.Get, managers)
		userRoutes.POST("", userHandler.Create, adminOnly)
		userRoutes.PUT("/:id", userHandler.Update, managers)
		userRoutes.DELETE("/:id", userHandler.Delete, adminOnly)
		userRoutes.POST("/:id/reset-password", userHandler.ResetPassword, adminOnly)
	}

	teacherRoutes := protected.Group("/teachers")
	{
		teacherRoutes.POST("", catalogHandler.CreateTeacher, managers)
		teacherRoutes.GET("", catalogHandler.ListTeachers)
		teacherRoutes.GET("/:id", catalogHandler.GetTeacher)
		teacherRoutes.PUT("/:id", catalogHandler.UpdateTeacher, managers)
		teacherRoutes.DELETE("/:id", catalogHandler.DeleteTeacher, adminOnly)
	}

	careerRoutes := protected.Group("/careers")
	{
		careerRoutes.GET("/list", catalogHandler.CareerNames)
		careerRoutes.POST("/full", catalogHandler.CreateCareer, managers)
		careerRoutes.GET("/full", catalogHandler.ListCareers)
		careerRoutes.GET("/full/:id", catalogHandler.GetCareer)
		careerRoutes.PUT("/full/:id", catalogHandler.UpdateCareer, managers)
		careerRoutes.DELETE("/full/:id", catalogHandler.DeleteCareer, adminOnly)
	}

	leadRoutes := protected.Group("/leads")
	{
		leadRoutes.POST("", leadHandler.Create)
		leadRoutes.GET("", leadHandler.List)
		leadRoutes.GET("/:id", leadHandler.Get)
		leadRoutes.PUT("/:id", leadHandler.Update)
		leadRoutes.DELETE("/:id", leadHandler.Delete, managers)
		leadRoutes.POST("/:id/convert", leadHandler.Convert, managers)
		leadRoutes.GET("/:id/conversations", leadHandler.Conversation)
		leadRoutes.POST("/:id/conversations", leadHandler.AddMessage)
	}

	studentRoutes := protected.Group("/students")
	{
		studentRoutes.GET("/custom-fields", customFieldsHandler.ListDefinitions)
		studentRoutes.POST("/custom-fields", customFieldsHandler.CreateDefinition, managers)
		studentRoutes.PUT("/custom-fields/:field_id", customFieldsHandler.UpdateDefinition, managers)
		studentRoutes.DELETE("/custom-fields/:field_id", customFieldsHandler.DeleteDefinition, adminOnly)
		studentRoutes.GET("/change-requests", customFieldsHandler.ListRequests, managers)
		studentRoutes.POST("/change-requests/:id/approve", customFieldsHandler.Approve, managers)
		studentRoutes.POST("/change-requests/:id/reject", customFieldsHandler.Reject, managers)
		studentRoutes.GET("/audit-logs", customFieldsHandler.AuditLogs, managers)
		studentRoutes.GET("/export/excel", studentHandler.ExportExcel, managers)
		studentRoutes.GET("/export/pdf", studentHandler.ExportPDF, managers)

		studentRoutes.POST("", studentHandler.Create, managers)
		studentRoutes.GET("", studentHandler.List)
		studentRoutes.GET("/:id", studentHandler.Get)
		studentRoutes.PUT("/:id", studentHandler.Update, managers)
		studentRoutes.DELETE("/:id", studentHandler.Delete, adminOnly)
		studentRoutes.PUT("/:id/custom-fields", customFieldsHandler.UpdateValues)
		studentRoutes.POST("/:id/documents", studentHandler.UploadDocument, reviewers)
		studentRoutes.DELETE("/:id/documents/:doc_id", studentHandler.DeleteDocument, managers)
		studentRoutes.GET("/:id/documents/:doc_id/download", studentHandler.DownloadDocument)
		studentRoutes.POST("/:id/attendance", studentHandler.RecordAttendance, attendance)
	}

	appointmentRoutes := protected.Group("/appointments")
	{
		appointmentRoutes.POST("", appointmentHandler.Create)
		appointmentRoutes.GET("", appointmentHandler.List)
		appointmentRoutes.GET("/:id", appointmentHandler.Get)
		appointmentRoutes.PUT("/:id", appointmentHandler.Update)
		appointmentRoutes.DELETE("/:id", appointmentHandler.Delete)
		appointmentRoutes.POST("/:id/calendar", appointmentHandler.PushToCalendar)
		appointmentRoutes.DELETE("/:id/calendar", appointmentHandler.RemoveFromCalendar)
	}

	webhookRoutes := protected.Group("/webhooks")
	{
		webhookRoutes.POST("", webhookHandler.Create, managers)
		webhookRoutes.GET("", webhookHandler.List, managers)
		webhookRoutes.DELETE("/:id", webhookHandler.Delete, adminOnly)
	}

	protected.GET("/settings/notifications", webhookHandler.GetSettings, managers)
	protected.PUT("/settings/notifications", webhookHandler.UpdateSettings, managers)

	dashboardRoutes := protected.Group("/dashboard")
	{
		dashboardRoutes.GET("/stats", dashboardHandler.Stats)
		dashboardRoutes.GET("/careers", dashboardHandler.Careers)
		dashboardRoutes.GET("/sources", dashboardHandler.Sources)
		dashboardRoutes.GET("/statuses", dashboardHandler.Statuses)
	}
}

// healthHandler reports whether the database and Redis answer a ping.
func healthHandler(db store.Pinger, redisClient *cache.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		dbStatus := "up"
		if err := db.Ping(ctx); err != nil {
			dbStatus = "down"
		}
		cacheStatus := "up"
		if err := redisClient.Ping(ctx); err != nil {
			cacheStatus = "down"
		}

		status, code := "healthy", http.StatusOK
		if dbStatus == "down" || cacheStatus == "down" {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		return c.JSON(code, map[string]any{
			"status":   status,
			"database": dbStatus,
			"cache":    cacheStatus,
			"version":  apiVersion,
		})
	}
}
