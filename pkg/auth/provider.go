package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrInvalidProviderSession is returned when the identity provider rejects
// a session id.
var ErrInvalidProviderSession = errors.New("auth: invalid provider session")

// ProviderProfile is what the identity provider returns for a session id.
type ProviderProfile struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Picture      string `json:"picture"`
	SessionToken string `json:"session_token"`
}

// ProviderClient exchanges identity-provider session ids for profiles.
type ProviderClient struct {
	url        string
	httpClient *http.Client
}

func NewProviderClient(url string) *ProviderClient {
	return &ProviderClient{
		url:        url,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether a provider URL was set.
func (p *ProviderClient) Configured() bool {
	return p != nil && p.url != ""
}

// Profile fetches the profile behind sessionID.
func (p *ProviderClient) Profile(ctx context.Context, sessionID string) (*ProviderProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("X-Session-ID", sessionID)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrInvalidProviderSession
	}

	var profile ProviderProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode provider profile: %w", err)
	}
	if profile.Email == "" {
		return nil, ErrInvalidProviderSession
	}
	return &profile, nil
}
