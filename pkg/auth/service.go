// Package auth covers staff identity: password and provider login, JWT
// issuance, cookie sessions and password recovery.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jordanlanch/campusflow/pkg/cache"
	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/email"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
)

const (
	resetTokenTTL   = time.Hour
	resetKeyPrefix  = "password_reset:"
	resetUserPrefix = "password_reset_user:"
)

// Messages shared with handlers.
const (
	MsgForgotPassword = "Si el email existe, recibirás un enlace de recuperación"
	MsgPasswordReset  = "Contraseña actualizada exitosamente"
	MsgLoggedOut      = "Sesión cerrada exitosamente"
	MsgPasswordLength = "La contraseña debe tener al menos 6 caracteres"
)

// Config holds the auth settings.
type Config struct {
	JWTSecret          string
	JWTExpirationHours int
	SessionDays        int
}

// Service implements the auth operations.
type Service struct {
	store    *store.Store
	cache    *cache.Client
	email    *email.Service
	provider *ProviderClient
	cfg      Config
	now      func() time.Time
}

// NewService creates an auth service. cache may be nil, in which case
// password recovery is unavailable.
func NewService(st *store.Store, c *cache.Client, mail *email.Service, provider *ProviderClient, cfg Config) *Service {
	if cfg.SessionDays <= 0 {
		cfg.SessionDays = 7
	}
	if cfg.JWTExpirationHours <= 0 {
		cfg.JWTExpirationHours = 24
	}
	return &Service{store: st, cache: c, email: mail, provider: provider, cfg: cfg, now: time.Now}
}

// SessionLifetime is how long a cookie session lasts.
func (s *Service) SessionLifetime() time.Duration {
	return time.Duration(s.cfg.SessionDays) * 24 * time.Hour
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// NewUser builds an active user with a hashed password. Role defaults to agente.
func NewUser(req models.CreateUserRequest, now time.Time) (*models.User, error) {
	if len(req.Password) < MinPasswordLength {
		return nil, domain.NewValidationError(MsgPasswordLength)
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("hash password: %w", err))
	}
	role := req.Role
	if role == "" {
		role = models.RoleAgente
	}
	careers := req.AssignedCareers
	if careers == nil {
		careers = []string{}
	}
	return &models.User{
		ID:              models.NewID(models.PrefixUser),
		Email:           NormalizeEmail(req.Email),
		Name:            strings.TrimSpace(req.Name),
		PasswordHash:    hash,
		Role:            role,
		Phone:           req.Phone,
		IsActive:        true,
		AssignedCareers: careers,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}, nil
}

// InsertUser stores u, mapping an existing email to a conflict.
func InsertUser(ctx context.Context, users store.Users, u *models.User) error {
	if _, err := users.GetByEmail(ctx, u.Email); err == nil {
		return domain.NewConflictError("El email ya está registrado")
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.NewInternalError("", err)
	}
	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.NewConflictError("El email ya está registrado")
		}
		return domain.NewInternalError("", err)
	}
	return nil
}

// Register creates a user and returns a token for it.
func (s *Service) Register(ctx context.Context, req models.CreateUserRequest) (*models.AuthResponse, error) {
	u, err := NewUser(req, s.now())
	if err != nil {
		return nil, err
	}
	if err := InsertUser(ctx, s.store.Users, u); err != nil {
		return nil, err
	}
	log.Printf("✅ User registered: %s (%s)", u.Email, u.Role)
	return s.respond(u)
}

// Login checks credentials and returns a token.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	u, err := s.store.Users.GetByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewUnauthorizedError("Credenciales inválidas")
		}
		return nil, domain.NewInternalError("", err)
	}
	if !CheckPassword(u.PasswordHash, req.Password) {
		return nil, domain.NewUnauthorizedError("Credenciales inválidas")
	}
	if !u.IsActive {
		return nil, domain.NewUnauthorizedError("Usuario desactivado")
	}
	return s.respond(u)
}

func (s *Service) respond(u *models.User) (*models.AuthResponse, error) {
	token, err := GenerateJWT(u.ID, u.Email, string(u.Role), s.cfg.JWTSecret, s.cfg.JWTExpirationHours)
	if err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("sign token: %w", err))
	}
	return &models.AuthResponse{Token: token, User: u}, nil
}

// Authenticate resolves the caller from the session cookie first and the
// bearer token second. The first credential that resolves wins.
func (s *Service) Authenticate(ctx context.Context, sessionToken, bearer string) (*models.User, error) {
	reason := "No autenticado"

	if sessionToken != "" {
		sess, err := s.store.Sessions.Get(ctx, sessionToken)
		switch {
		case err == nil && !sess.Expired(s.now()):
			return s.activeUser(ctx, sess.UserID)
		case err == nil:
			_ = s.store.Sessions.Delete(ctx, sessionToken)
			reason = "Sesión expirada"
		case !errors.Is(err, store.ErrNotFound):
			return nil, domain.NewInternalError("", err)
		}
	}

	if bearer != "" {
		claims, err := ValidateJWT(bearer, s.cfg.JWTSecret)
		if err != nil {
			return nil, domain.NewUnauthorizedError("Token inválido")
		}
		return s.activeUser(ctx, claims.UserID)
	}

	return nil, domain.NewUnauthorizedError(reason)
}

func (s *Service) activeUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewUnauthorizedError("Usuario no encontrado")
		}
		return nil, domain.NewInternalError("", err)
	}
	if !u.IsActive {
		return nil, domain.NewUnauthorizedError("Usuario desactivado")
	}
	return u, nil
}

// ProviderLogin exchanges an identity-provider session id for a local
// session, creating the user on first login.
func (s *Service) ProviderLogin(ctx context.Context, sessionID string) (*models.User, *models.Session, error) {
	if !s.provider.Configured() {
		return nil, nil, domain.NewInternalError("Proveedor de identidad no configurado", nil)
	}
	profile, err := s.provider.Profile(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrInvalidProviderSession) {
			return nil, nil, domain.NewUnauthorizedError("Sesión inválida")
		}
		return nil, nil, domain.NewInternalError("", err)
	}

	now := s.now().UTC()
	addr := NormalizeEmail(profile.Email)
	u, err := s.store.Users.GetByEmail(ctx, addr)
	switch {
	case err == nil:
		u.Name = profile.Name
		u.Picture = profile.Picture
		u.UpdatedAt = now
		if err := s.store.Users.Update(ctx, u); err != nil {
			return nil, nil, domain.NewInternalError("", err)
		}
	case errors.Is(err, store.ErrNotFound):
		u = &models.User{
			ID:              models.NewID(models.PrefixUser),
			Email:           addr,
			Name:            profile.Name,
			Role:            models.RoleAgente,
			IsActive:        true,
			Picture:         profile.Picture,
			AssignedCareers: []string{},
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.store.Users.Create(ctx, u); err != nil {
			return nil, nil, domain.NewInternalError("", err)
		}
		log.Printf("✅ User created from provider login: %s", addr)
	default:
		return nil, nil, domain.NewInternalError("", err)
	}

	if !u.IsActive {
		return nil, nil, domain.NewUnauthorizedError("Usuario desactivado")
	}

	token := profile.SessionToken
	if token == "" {
		if token, err = GenerateToken("session_"); err != nil {
			return nil, nil, domain.NewInternalError("", err)
		}
	}
	sess := &models.Session{
		Token:     token,
		UserID:    u.ID,
		ExpiresAt: now.Add(s.SessionLifetime()),
		CreatedAt: now,
	}
	if err := s.store.Sessions.Create(ctx, sess); err != nil {
		return nil, nil, domain.NewInternalError("", err)
	}
	return u, sess, nil
}

// Logout drops a cookie session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}
	if err := s.store.Sessions.Delete(ctx, sessionToken); err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.NewInternalError("", err)
	}
	return nil
}

// ForgotPassword emails a single-use reset link. Unknown addresses succeed
// silently so callers cannot probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, addr string) error {
	addr = NormalizeEmail(addr)
	u, err := s.store.Users.GetByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return domain.NewInternalError("", err)
	}

	if !s.email.Configured() {
		log.Printf("⚠️  Email service not configured, cannot send password reset email")
		return domain.NewInternalError("El servicio de email no está configurado", nil)
	}
	if s.cache == nil {
		return domain.NewInternalError("Servicio no disponible", errors.New("redis not available"))
	}

	token, err := GenerateToken("reset_")
	if err != nil {
		return domain.NewInternalError("", err)
	}
	hash := HashResetToken(token)

	// one live token per address
	if prev, err := s.cache.Get(ctx, resetUserPrefix+addr); err == nil {
		_ = s.cache.Delete(ctx, resetKeyPrefix+prev)
	}
	if err := s.cache.Set(ctx, resetKeyPrefix+hash, addr, resetTokenTTL); err != nil {
		return domain.NewInternalError("", fmt.Errorf("store reset token: %w", err))
	}
	if err := s.cache.Set(ctx, resetUserPrefix+addr, hash, resetTokenTTL); err != nil {
		return domain.NewInternalError("", fmt.Errorf("store reset token index: %w", err))
	}

	if err := s.email.SendPasswordResetEmail(ctx, addr, u.Name, token); err != nil {
		log.Printf("❌ Failed to send password reset email: %v", err)
		return domain.NewInternalError("Error al enviar el email", err)
	}
	log.Printf("📧 Password reset email sent to %s", addr)
	return nil
}

// ResetPassword redeems a reset token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if s.cache == nil {
		return domain.NewInternalError("Servicio no disponible", errors.New("redis not available"))
	}
	key := resetKeyPrefix + HashResetToken(token)

	if _, err := s.cache.Get(ctx, key); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return domain.NewValidationError("Token inválido o expirado")
		}
		return domain.NewInternalError("", err)
	}
	if len(newPassword) < MinPasswordLength {
		return domain.NewValidationError(MsgPasswordLength)
	}

	addr, err := s.cache.Take(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return domain.NewValidationError("Token inválido o expirado")
		}
		return domain.NewInternalError("", err)
	}
	_ = s.cache.Delete(ctx, resetUserPrefix+addr)

	u, err := s.store.Users.GetByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewNotFoundError("Usuario no encontrado")
		}
		return domain.NewInternalError("", err)
	}
	if err := s.setPassword(ctx, u, newPassword); err != nil {
		return err
	}
	log.Printf("✅ Password reset successful for %s", addr)
	return nil
}

// SetPassword replaces a user's password on an admin's behalf.
func (s *Service) SetPassword(ctx context.Context, userID, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return domain.NewValidationError(MsgPasswordLength)
	}
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewNotFoundError("Usuario no encontrado")
		}
		return domain.NewInternalError("", err)
	}
	return s.setPassword(ctx, u, newPassword)
}

func (s *Service) setPassword(ctx context.Context, u *models.User, pw string) error {
	hash, err := HashPassword(pw)
	if err != nil {
		return domain.NewInternalError("", err)
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now().UTC()
	if err := s.store.Users.Update(ctx, u); err != nil {
		return domain.NewInternalError("", err)
	}
	return nil
}

// PurgeExpiredSessions removes sessions past their expiry.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.store.Sessions.DeleteExpired(ctx, s.now())
}
