package deg

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultOnSearchPath = "deg/on_search_payload.json"

// LoadOnSearchPayload reads a canned on_search response from disk. An empty
// path uses the default pilot fixture location.
func LoadOnSearchPayload(path string) (map[string]any, error) {
	if path == "" {
		path = defaultOnSearchPath
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "deg: read on_search payload %s failed", path)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrapf(err, "deg: decode on_search payload %s failed", path)
	}
	return payload, nil
}

// SimulateBPPOnSearch plays the provider side of a trade: it loads the canned
// on_search payload and posts it to the gateway, standing in for a real BPP
// during pilots.
func (c *GatewayClient) SimulateBPPOnSearch(ctx context.Context, path string) (int, any, error) {
	payload, err := LoadOnSearchPayload(path)
	if err != nil {
		return 0, nil, err
	}
	status, response, err := c.PostOnSearch(ctx, payload)
	if err != nil {
		return status, response, err
	}
	log.Info().Int("status", status).Msg("deg: gateway acknowledged on_search")
	return status, response, nil
}
