package solinteg

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/deg-pilot/EnergyAgent/internal/env"
)

const (
	loginEndpoint = "/loginv2/auth"

	defaultHTTPTimeout = 30 * time.Second
	loginTimeout       = 20 * time.Second
	// Listing calls can be slow for accounts with many devices.
	listingTimeout    = 70 * time.Second
	rangeQueryTimeout = 30 * time.Second

	// The server-side token lifetime is around an hour; a shorter local window
	// avoids using a token that expires mid-flight.
	defaultTokenTTL       = 50 * time.Minute
	defaultDeviceCacheTTL = 30 * 24 * time.Hour
	defaultCachePath      = "server_device_cache.json"
)

// Credentials identify the vendor account. Immutable for the process lifetime.
type Credentials struct {
	BaseURL  string
	Account  string
	Password string
}

func (c Credentials) complete() bool {
	return c.BaseURL != "" && c.Account != "" && c.Password != ""
}

// Client talks to the Solinteg OpenAPI. It owns the bearer token lifecycle and
// the two-tier device-list cache; all exported operations are safe for
// concurrent use.
type Client struct {
	creds      Credentials
	httpClient *http.Client

	tokenMu       sync.Mutex
	token         string
	tokenExpireAt time.Time
	tokenTTL      time.Duration

	cacheMu       sync.Mutex
	cachedDevices []DeviceRecord
	cachedAt      time.Time
	cachePath     string
	cacheTTL      time.Duration
	fetchGroup    singleflight.Group

	// test hooks
	doRequestFunc func(req *http.Request) (*http.Response, error)
	clock         func() time.Time
	sleepFunc     func(ctx context.Context, d time.Duration) error
}

// Config customizes a Client beyond its credentials. Zero values fall back to
// defaults.
type Config struct {
	Credentials Credentials
	TokenTTL    time.Duration
	CachePath   string
	CacheTTL    time.Duration
	HTTPClient  *http.Client
}

// NewClient constructs a Client. Missing credentials are not fatal here; every
// authenticated operation will fail fast with ErrMissingCredentials instead.
func NewClient(cfg Config) *Client {
	creds := cfg.Credentials
	creds.BaseURL = strings.TrimRight(strings.TrimSpace(creds.BaseURL), "/")
	creds.Account = strings.TrimSpace(creds.Account)
	creds.Password = strings.TrimSpace(creds.Password)
	if !creds.complete() {
		log.Warn().Msg("solinteg: credentials incomplete; authenticated calls will fail")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	tokenTTL := cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultDeviceCacheTTL
	}
	cachePath := strings.TrimSpace(cfg.CachePath)
	if cachePath == "" {
		cachePath = defaultCachePath
	}
	return &Client{
		creds:      creds,
		httpClient: httpClient,
		tokenTTL:   tokenTTL,
		cachePath:  cachePath,
		cacheTTL:   cacheTTL,
	}
}

// NewClientFromEnv constructs a Client using environment variables.
//
// Required for authenticated calls:
//   - SOLINTEG_BASE_URL
//   - SOLINTEG_AUTH_ACCOUNT
//   - SOLINTEG_AUTH_PASSWORD
//
// Optional:
//   - SOLINTEG_TOKEN_TTL (defaults to 50m)
//   - SOLINTEG_DEVICE_CACHE_PATH (defaults to server_device_cache.json)
//   - SOLINTEG_DEVICE_CACHE_TTL (defaults to 720h)
func NewClientFromEnv() *Client {
	return NewClient(Config{
		Credentials: Credentials{
			BaseURL:  env.String("SOLINTEG_BASE_URL", ""),
			Account:  env.String("SOLINTEG_AUTH_ACCOUNT", ""),
			Password: env.String("SOLINTEG_AUTH_PASSWORD", ""),
		},
		TokenTTL:  env.Duration("SOLINTEG_TOKEN_TTL", defaultTokenTTL),
		CachePath: env.String("SOLINTEG_DEVICE_CACHE_PATH", defaultCachePath),
		CacheTTL:  env.Duration("SOLINTEG_DEVICE_CACHE_TTL", defaultDeviceCacheTTL),
	})
}

// envelope is the shared response wrapper of every Solinteg endpoint.
type envelope struct {
	Successful bool            `json:"successful"`
	ErrorCode  int             `json:"errorCode"`
	Info       string          `json:"info"`
	Body       json.RawMessage `json:"body"`
}

// getValidToken returns a cached token while it is still inside the validity
// window, logging in again otherwise. Logins are serialized behind the token
// mutex so concurrent expirations trigger a single auth call.
func (c *Client) getValidToken(ctx context.Context) (string, error) {
	if !c.creds.complete() {
		return "", ErrMissingCredentials
	}

	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpireAt) {
		return c.token, nil
	}

	log.Info().Str("base_url", c.creds.BaseURL).Msg("solinteg: token expired or missing, logging in")
	token, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.tokenExpireAt = c.now().Add(c.tokenTTL)
	return token, nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"authAccount":  c.creds.Account,
		"authPassword": c.creds.Password,
	})
	if err != nil {
		return "", errors.Wrap(err, "solinteg: marshal login payload")
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.creds.BaseURL+loginEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "solinteg: build login request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return "", &LoginError{Detail: err.Error()}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &LoginError{Detail: "read response: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &LoginError{Detail: errorDetailFromBody(resp.StatusCode, raw)}
	}

	var parsed struct {
		Successful bool   `json:"successful"`
		ErrorCode  int    `json:"errorCode"`
		Info       string `json:"info"`
		Body       string `json:"body"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &LoginError{Detail: "decode response: " + err.Error()}
	}
	if !parsed.Successful || parsed.ErrorCode != 0 {
		return "", &LoginError{Detail: errors.Errorf("errorCode=%d info=%s", parsed.ErrorCode, parsed.Info).Error()}
	}
	if strings.TrimSpace(parsed.Body) == "" {
		return "", &LoginError{Detail: "token missing in response body"}
	}
	log.Info().Msg("solinteg: login successful")
	return parsed.Body, nil
}

// request issues one authenticated call and classifies the outcome. It never
// retries; the command poller is the only retrying caller.
func (c *Client) request(ctx context.Context, method, endpoint string, query url.Values, body any, timeout time.Duration) (json.RawMessage, error) {
	token, err := c.getValidToken(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "authentication failed for %s %s", method, endpoint)
	}

	target := c.creds.BaseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrapf(err, "solinteg: marshal request body for %s", endpoint)
		}
		reader = bytes.NewReader(payload)
	}

	if timeout <= 0 {
		timeout = listingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "solinteg: build request for %s", endpoint)
	}
	req.Header.Set("token", token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, &TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Message: "read response: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Status: resp.StatusCode, Message: errorDetailFromBody(resp.StatusCode, raw)}
	}

	var wrapper envelope
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Message: "undecodable body: " + strings.TrimSpace(string(raw))}
	}
	if !wrapper.Successful || wrapper.ErrorCode != 0 {
		log.Warn().
			Int("error_code", wrapper.ErrorCode).
			Str("info", wrapper.Info).
			Str("endpoint", endpoint).
			Msg("solinteg: api rejected request")
		return nil, &APIError{Code: wrapper.ErrorCode, Info: wrapper.Info}
	}
	return wrapper.Body, nil
}

// errorDetailFromBody extracts info/errorCode from a JSON error payload when
// present, falling back to the raw body text.
func errorDetailFromBody(status int, raw []byte) string {
	var parsed struct {
		Info      string `json:"info"`
		ErrorCode *int   `json:"errorCode"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && (parsed.Info != "" || parsed.ErrorCode != nil) {
		code := 0
		if parsed.ErrorCode != nil {
			code = *parsed.ErrorCode
		}
		return errors.Errorf("status=%d errorCode=%d info=%s", status, code, parsed.Info).Error()
	}
	return strings.TrimSpace(string(raw))
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.doRequestFunc != nil {
		return c.doRequestFunc(req)
	}
	return c.httpClient.Do(req)
}

func (c *Client) now() time.Time {
	if c.clock != nil {
		return c.clock()
	}
	return time.Now()
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.sleepFunc != nil {
		return c.sleepFunc(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
