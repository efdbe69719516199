// Package calendar connects staff users to Google Calendar through the
// OAuth authorization code flow and talks to the Calendar v3 REST API.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jordanlanch/campusflow/pkg/cache"
	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/logger"
	"github.com/jordanlanch/campusflow/pkg/metrics"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
	"golang.org/x/oauth2"
)

const (
	defaultAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	defaultAPIURL   = "https://www.googleapis.com/calendar/v3"

	statePrefix = "calendar_oauth_state:"
	stateTTL    = 10 * time.Minute
	httpTimeout = 15 * time.Second
)

// Scopes requested on connect.
var Scopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/userinfo.email",
}

// Messages returned to clients.
const (
	MsgNotConfigured  = "Google Calendar no está configurado"
	MsgMissingParams  = "Código o estado faltante"
	MsgInvalidState   = "Estado inválido"
	MsgNotConnected   = "Google Calendar no conectado"
	MsgTokenExpired   = "Token expirado, reconecta Google Calendar"
	MsgRefreshFailed  = "No se pudo refrescar el token"
	MsgListFailed     = "Error al obtener eventos"
	MsgCreateFailed   = "Error al crear evento"
	MsgDeleteFailed   = "Error al eliminar evento"
	MsgDisconnected   = "Google Calendar desconectado"
	errExchangeFailed = "token_exchange_failed"
)

var (
	// ErrProviderAPIError is returned when Google answers with a non-2xx status.
	ErrProviderAPIError = errors.New("google api error")
	// ErrInvalidCode is returned when the authorization code is rejected.
	ErrInvalidCode = errors.New("invalid authorization code")
	// ErrRefreshFailed is returned when the refresh token is rejected.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// Config holds the OAuth client settings. The URL fields default to
// Google's endpoints and exist so tests can point at a local server.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	FrontendURL  string

	AuthURL  string
	TokenURL string
	APIURL   string
}

// Service handles calendar connections and events.
type Service struct {
	cfg     Config
	oauth   *oauth2.Config
	tokens  store.CalendarTokens
	states  *cache.Client
	client  *http.Client
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time
}

// NewService creates a new calendar service
func NewService(cfg Config, tokens store.CalendarTokens, states *cache.Client, m *metrics.Metrics, log logger.Logger) *Service {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		tokens:  tokens,
		states:  states,
		client:  &http.Client{Timeout: httpTimeout},
		metrics: m,
		log:     log.With("component", "calendar"),
		now:     time.Now,
	}
}

// Configured reports whether the OAuth client is set up.
func (s *Service) Configured() bool {
	return s.cfg.ClientID != "" && s.cfg.ClientSecret != ""
}

// AuthURL stores a fresh state for userID and returns the consent URL.
func (s *Service) AuthURL(ctx context.Context, userID string) (string, error) {
	if !s.Configured() {
		return "", domain.NewInternalError(MsgNotConfigured, nil)
	}

	state := userID + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if err := s.states.Set(ctx, statePrefix+state, userID, stateTTL); err != nil {
		return "", domain.NewInternalError("", fmt.Errorf("failed to store oauth state: %w", err))
	}

	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

func (s *Service) redirect(query string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + "/calendar?" + query
}

// Callback completes the consent flow and returns where the browser should
// be redirected. Missing parameters and unknown states are errors; provider
// and exchange failures are reported through the redirect.
func (s *Service) Callback(ctx context.Context, code, state, providerErr string) (string, error) {
	if providerErr != "" {
		s.log.Warn("google calendar consent failed", "error", providerErr)
		return s.redirect("error=" + url.QueryEscape(providerErr)), nil
	}
	if code == "" || state == "" {
		return "", domain.NewValidationError(MsgMissingParams)
	}

	userID, err := s.states.Take(ctx, statePrefix+state)
	if errors.Is(err, cache.ErrMiss) {
		return "", domain.NewValidationError(MsgInvalidState)
	}
	if err != nil {
		return "", domain.NewInternalError("", err)
	}

	tok, err := s.exchange(ctx, code)
	if err != nil {
		s.log.Error("token exchange failed", "user_id", userID, "error", err)
		return s.redirect("error=" + errExchangeFailed), nil
	}

	now := s.now().UTC()
	record := &models.CalendarToken{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Scope:        extraString(tok, "scope"),
		ExpiresAt:    s.expiresAt(tok, now),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if existing, err := s.tokens.Get(ctx, userID); err == nil {
		record.CreatedAt = existing.CreatedAt
		if record.RefreshToken == "" {
			record.RefreshToken = existing.RefreshToken
		}
	}
	if err := s.tokens.Save(ctx, record); err != nil {
		return "", domain.NewInternalError("", fmt.Errorf("failed to save calendar token: %w", err))
	}

	s.log.Info("google calendar connected", "user_id", userID)
	return s.redirect("connected=true"), nil
}

// Status reports whether userID has connected a calendar.
func (s *Service) Status(ctx context.Context, userID string) (*models.CalendarStatus, error) {
	tok, err := s.tokens.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &models.CalendarStatus{Connected: false}, nil
	}
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	expires := tok.ExpiresAt
	return &models.CalendarStatus{
		Connected: true,
		IsExpired: tok.Expired(s.now()),
		ExpiresAt: &expires,
	}, nil
}

// Disconnect forgets the stored credentials of userID.
func (s *Service) Disconnect(ctx context.Context, userID string) error {
	if err := s.tokens.Delete(ctx, userID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.NewInternalError("", err)
	}
	return nil
}

func (s *Service) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.client)
}

func (s *Service) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	start := s.now()
	tok, err := s.oauth.Exchange(s.clientContext(ctx), code)
	s.metrics.ObserveOutbound("google_oauth", s.now().Sub(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return tok, nil
}

// refresh trades refreshToken for a new access token. The refresh token in
// the result falls back to the old one when Google does not rotate it.
func (s *Service) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	start := s.now()
	tok, err := s.oauth.TokenSource(s.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	s.metrics.ObserveOutbound("google_oauth", s.now().Sub(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	return tok, nil
}

// expiresAt measures the lifetime from expires_in against the service clock,
// falling back to the expiry oauth2 computed.
func (s *Service) expiresAt(tok *oauth2.Token, now time.Time) time.Time {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return now.Add(time.Duration(v) * time.Second)
	case string:
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			return now.Add(time.Duration(secs) * time.Second)
		}
	}
	return tok.Expiry.UTC()
}

func extraString(tok *oauth2.Token, key string) string {
	v, _ := tok.Extra(key).(string)
	return v
}

// AccessToken returns a usable access token for userID, refreshing and
// persisting it when expired.
func (s *Service) AccessToken(ctx context.Context, userID string) (string, error) {
	tok, err := s.tokens.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", domain.NewValidationError(MsgNotConnected)
	}
	if err != nil {
		return "", domain.NewInternalError("", err)
	}
	if !tok.Expired(s.now()) {
		return tok.AccessToken, nil
	}

	if tok.RefreshToken == "" {
		return "", domain.NewValidationError(MsgTokenExpired)
	}
	fresh, err := s.refresh(ctx, tok.RefreshToken)
	if err != nil {
		s.log.Warn("token refresh failed", "user_id", userID, "error", err)
		return "", domain.NewValidationError(MsgRefreshFailed)
	}

	now := s.now().UTC()
	tok.AccessToken = fresh.AccessToken
	tok.ExpiresAt = s.expiresAt(fresh, now)
	tok.UpdatedAt = now
	if fresh.RefreshToken != "" {
		tok.RefreshToken = fresh.RefreshToken
	}
	if err := s.tokens.Save(ctx, tok); err != nil {
		return "", domain.NewInternalError("", fmt.Errorf("failed to save refreshed token: %w", err))
	}
	return tok.AccessToken, nil
}
