package seatalk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultAuthURL is the known-good app token endpoint, used as a fallback
// when a stale configured URL answers 404.
const DefaultAuthURL = "https://openapi.seatalk.io/auth/app_access_token"

// tokenSafetyMargin is how much remaining lifetime a returned token must
// still have. Refreshing early avoids edge-expiry failures on in-flight
// requests.
const tokenSafetyMargin = 30 * time.Second

// TokenManager owns the shared app access token and refreshes it ahead of
// expiry. Safe for concurrent use; at most one refresh round trip happens per
// expiry regardless of how many callers race into Get.
type TokenManager struct {
	AppID     string
	AppSecret string
	AuthURL   string

	http        *http.Client
	now         func() time.Time
	fallbackURL string

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
}

// NewTokenManager creates a TokenManager. httpClient may be nil.
func NewTokenManager(appID, appSecret, authURL string, httpClient *http.Client) *TokenManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenManager{
		AppID:       appID,
		AppSecret:   appSecret,
		AuthURL:     authURL,
		http:        httpClient,
		now:         time.Now,
		fallbackURL: DefaultAuthURL,
	}
}

// Get returns a token valid for at least the safety margin, refreshing it
// first when needed.
func (m *TokenManager) Get() (string, error) {
	m.mu.RLock()
	if m.accessToken != "" && m.now().Before(m.expiresAt.Add(-tokenSafetyMargin)) {
		token := m.accessToken
		m.mu.RUnlock()
		return token, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double check: another caller may have refreshed while we waited.
	if m.accessToken != "" && m.now().Before(m.expiresAt.Add(-tokenSafetyMargin)) {
		return m.accessToken, nil
	}

	data, err := m.fetchTokenPayload()
	if err != nil {
		return "", err
	}

	token := firstString(data,
		"app_access_token",
		"access_token",
		"token",
	)
	if token == "" {
		token = strField(mapField(data, "data"), "access_token")
	}
	if token == "" {
		return "", &AuthError{Message: "response missing token field"}
	}

	now := m.now()
	expiresIn := extractExpiresIn(data, now)

	m.accessToken = token
	m.expiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	return m.accessToken, nil
}

// extractExpiresIn tolerates expiry key drift across provider versions: an
// absolute "expire" epoch, a relative "expires_in"/"expire_in" (possibly
// nested under "data"), else a 1-hour default. Lifetimes are floored at 60s.
func extractExpiresIn(data map[string]any, now time.Time) int64 {
	if expireAt, ok := numField(data, "expire"); ok {
		return floorLifetime(expireAt - now.Unix())
	}
	if v, ok := numField(data, "expires_in"); ok {
		return floorLifetime(v)
	}
	if v, ok := numField(data, "expire_in"); ok {
		return floorLifetime(v)
	}
	if v, ok := numField(mapField(data, "data"), "expires_in"); ok {
		return floorLifetime(v)
	}
	return 3600
}

func floorLifetime(seconds int64) int64 {
	if seconds < 60 {
		return 60
	}
	return seconds
}

func (m *TokenManager) fetchTokenPayload() (map[string]any, error) {
	primary := strings.TrimSpace(m.AuthURL)
	if primary == "" {
		primary = m.fallbackURL
	}

	data, status, err := m.postAuth(primary)
	if err == nil {
		return data, nil
	}
	// Compatibility fallback for outdated auth URL configuration.
	if status == http.StatusNotFound && primary != m.fallbackURL {
		data, _, err = m.postAuth(m.fallbackURL)
		return data, err
	}
	return nil, err
}

func (m *TokenManager) postAuth(url string) (map[string]any, int, error) {
	payload := map[string]string{
		"app_id":     m.AppID,
		"app_secret": m.AppSecret,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, 0, &TransportError{Op: "auth", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &TransportError{Op: "auth", Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Op: "auth", Err: err}
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, resp.StatusCode, &AuthError{Message: fmt.Sprintf("invalid response body: %v", err)}
	}
	return data, resp.StatusCode, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := strField(m, key); v != "" {
			return v
		}
	}
	return ""
}

func numField(m map[string]any, key string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
