package deg

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/deg-pilot/EnergyAgent/internal/env"
)

const (
	defaultGatewayURL     = "http://localhost:4030"
	defaultGatewayTimeout = 30 * time.Second
)

// GatewayClient posts beckn messages to a DEG gateway.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client

	// test hook
	doRequestFunc func(req *http.Request) (*http.Response, error)
}

// NewGatewayClient returns a client for the given gateway base URL. An empty
// url falls back to DEG_GATEWAY_URL, then to the local pilot gateway.
func NewGatewayClient(baseURL string) *GatewayClient {
	resolved := strings.TrimSpace(baseURL)
	if resolved == "" {
		resolved = env.String("DEG_GATEWAY_URL", defaultGatewayURL)
	}
	return &GatewayClient{
		baseURL:    strings.TrimRight(resolved, "/"),
		httpClient: &http.Client{Timeout: defaultGatewayTimeout},
	}
}

// PostSearch submits a search intent. It returns the gateway status code and
// the decoded JSON response, or the raw response text when the body is not
// JSON.
func (c *GatewayClient) PostSearch(ctx context.Context, payload SearchPayload) (int, any, error) {
	log.Info().
		Str("transaction_id", payload.Context.TransactionID).
		Str("gateway", c.baseURL).
		Msg("deg: posting search intent")
	return c.post(ctx, "/search", payload)
}

// PostOnSearch submits a provider-side on_search answer.
func (c *GatewayClient) PostOnSearch(ctx context.Context, payload any) (int, any, error) {
	log.Info().Str("gateway", c.baseURL).Msg("deg: posting on_search response")
	return c.post(ctx, "/on_search", payload)
}

func (c *GatewayClient) post(ctx context.Context, endpoint string, payload any) (int, any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, errors.Wrap(err, "deg: encode payload failed")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, errors.Wrap(err, "deg: build request failed")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "deg: post %s failed", endpoint)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "deg: read response failed")
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(raw)).
			Msg("deg: gateway answered with non-JSON body")
		return resp.StatusCode, string(raw), nil
	}
	return resp.StatusCode, decoded, nil
}

func (c *GatewayClient) do(req *http.Request) (*http.Response, error) {
	if c.doRequestFunc != nil {
		return c.doRequestFunc(req)
	}
	return c.httpClient.Do(req)
}
