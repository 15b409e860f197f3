package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshLeeway is how long before the access token's exp we refresh, so a
// request never leaves with a token about to lapse mid-flight.
const refreshLeeway = 30 * time.Second

// TokenSource holds the bearer token pair and refreshes the access token
// through the auth endpoint when it approaches expiry. Concurrent callers
// share one in-flight refresh; the rest wait for its outcome.
type TokenSource struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	refreshing   chan struct{} // non-nil while a refresh is in flight
}

func NewTokenSource(baseURL, accessToken, refreshToken string, httpc *http.Client, logger *slog.Logger) *TokenSource {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	ts := &TokenSource{
		baseURL:      baseURL,
		httpc:        httpc,
		logger:       logger,
		accessToken:  accessToken,
		refreshToken: refreshToken,
	}
	if accessToken != "" {
		ts.expiresAt = tokenExpiry(accessToken)
	}
	return ts
}

// Token returns a currently valid access token, refreshing first if needed.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	for {
		if ts.accessToken != "" && time.Until(ts.expiresAt) > refreshLeeway {
			token := ts.accessToken
			ts.mu.Unlock()
			return token, nil
		}
		if ts.refreshing == nil {
			break
		}
		wait := ts.refreshing
		ts.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		ts.mu.Lock()
	}

	done := make(chan struct{})
	ts.refreshing = done
	refreshToken := ts.refreshToken
	ts.mu.Unlock()

	access, refresh, err := ts.doRefresh(ctx, refreshToken)

	ts.mu.Lock()
	defer ts.mu.Unlock()
	close(done)
	ts.refreshing = nil
	if err != nil {
		return "", err
	}

	ts.accessToken = access
	if refresh != "" {
		ts.refreshToken = refresh
	}
	ts.expiresAt = tokenExpiry(access)
	return ts.accessToken, nil
}

func (ts *TokenSource) doRefresh(ctx context.Context, refreshToken string) (access, refresh string, err error) {
	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		ts.baseURL+"/api/v1/auth/refresh", bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.httpc.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("token refresh failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("token refresh failed with status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if body.AccessToken == "" {
		return "", "", fmt.Errorf("refresh response carried no access token")
	}

	ts.logger.Debug("access token refreshed")
	return body.AccessToken, body.RefreshToken, nil
}

// tokenExpiry reads the unverified exp claim; verification is the backend's
// job, the client only needs to know when to refresh. Tokens that do not
// parse are retried after a short grace period.
func tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Now().Add(time.Minute)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Now().Add(time.Minute)
	}
	return exp.Time
}
