package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marketship/backend/internal/domain/shared"
)

// credentialSlot is the durable key-value slot the courier token pair is
// persisted under.
const credentialSlot = "courier"

const tokenPath = "/v1/auth/token"

// tokenResponse is the provider's token grant payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenSource manages the provider's rotating bearer-token pair. It loads
// persisted credentials on first use and persists the rotated pair after
// every successful refresh. Single-flight coordination around Refresh is
// the resilient client's responsibility.
type TokenSource struct {
	config     *Config
	store      shared.CredentialStore
	httpClient *http.Client
	logger     *zap.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	loaded       bool
}

// NewTokenSource creates a token source backed by the given credential store.
func NewTokenSource(cfg *Config, store shared.CredentialStore, logger *zap.Logger) *TokenSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenSource{
		config:     cfg,
		store:      store,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// Token returns the current access token, loading the persisted pair or
// issuing a fresh grant when none exists yet.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.loaded {
		t.loadLocked(ctx)
		t.loaded = true
	}
	if t.accessToken != "" {
		return t.accessToken, nil
	}
	return t.grantLocked(ctx)
}

// Refresh discards the current access token and obtains a new one using the
// stored refresh token when present, falling back to a client-credentials
// grant. Failures are terminal; there is no refresh retry loop.
func (t *TokenSource) Refresh(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.accessToken = ""
	return t.grantLocked(ctx)
}

// loadLocked pulls the persisted token pair, if any. Missing credentials
// are not an error; a fresh grant will be issued on demand.
func (t *TokenSource) loadLocked(ctx context.Context) {
	creds, err := t.store.Load(ctx, credentialSlot)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			t.logger.Warn("failed to load persisted courier credentials", zap.Error(err))
		}
		return
	}
	t.accessToken = creds.AccessToken
	t.refreshToken = creds.RefreshToken
}

// grantLocked requests a token grant and persists the rotated pair.
func (t *TokenSource) grantLocked(ctx context.Context) (string, error) {
	payload := map[string]string{
		"client_id":     t.config.ClientID,
		"client_secret": t.config.ClientSecret,
		"grant_type":    "client_credentials",
	}
	if t.refreshToken != "" {
		payload["grant_type"] = "refresh_token"
		payload["refresh_token"] = t.refreshToken
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("courier: failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.config.BaseURL+tokenPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("courier: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("courier: token request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("courier: failed to read token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("courier: token grant rejected: status=%d body=%s",
			resp.StatusCode, respBody)
	}

	var grant tokenResponse
	if err := json.Unmarshal(respBody, &grant); err != nil {
		return "", fmt.Errorf("courier: failed to parse token response: %w", err)
	}
	if grant.AccessToken == "" {
		return "", errors.New("courier: token response missing access_token")
	}

	t.accessToken = grant.AccessToken
	if grant.RefreshToken != "" {
		t.refreshToken = grant.RefreshToken
	}

	if err := t.store.Save(ctx, credentialSlot, &shared.Credentials{
		AccessToken:  t.accessToken,
		RefreshToken: t.refreshToken,
	}); err != nil {
		// Token is valid for this process even if persistence failed.
		t.logger.Warn("failed to persist rotated courier credentials", zap.Error(err))
	}

	return t.accessToken, nil
}
