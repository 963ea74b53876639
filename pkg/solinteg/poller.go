package solinteg

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const checkControlResultEndpoint = "/cmd/checkControlResult"

// CommandCheckResult is a snapshot of an in-flight device command identified
// by a server-issued recordId.
type CommandCheckResult struct {
	Success       bool   `json:"success"`
	ControlResult *bool  `json:"controlResult,omitempty"`
	CurrentValue  string `json:"currentValue,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
}

// AwaitCommandResult polls the checkControlResult endpoint until the command
// settles or the timeout elapses. A "pending" status is retried; a transport
// error or an empty body is terminal — a broken status endpoint is not the
// same thing as a command that has not settled yet.
func (c *Client) AwaitCommandResult(ctx context.Context, recordID, settingCode string, pollInterval, timeout time.Duration) CommandCheckResult {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := c.now().Add(timeout)
	query := url.Values{"recordId": {recordID}}

	for {
		if err := c.sleep(ctx, pollInterval); err != nil {
			return CommandCheckResult{ErrorMessage: "polling cancelled: " + err.Error()}
		}
		if !c.now().Before(deadline) {
			log.Error().
				Str("record_id", recordID).
				Str("setting_code", settingCode).
				Dur("timeout", timeout).
				Msg("solinteg: command polling timed out")
			return CommandCheckResult{ErrorMessage: "timeout waiting for command completion"}
		}

		log.Info().Str("record_id", recordID).Msg("solinteg: checking command result")
		body, err := c.request(ctx, http.MethodGet, checkControlResultEndpoint, query, nil, rangeQueryTimeout)
		if err != nil {
			return CommandCheckResult{ErrorMessage: "error checking status: " + err.Error()}
		}
		if isEmptyBody(body) {
			return CommandCheckResult{ErrorMessage: "empty body received while checking status"}
		}

		result, terminal := classifyCheckBody(body, recordID, settingCode)
		if terminal {
			return result
		}
	}
}

// classifyCheckBody inspects one status response. The endpoint answers in two
// shapes: a mapping keyed by settingCode, or a bare boolean used by simpler
// check endpoints. Anything else means the command has not settled.
func classifyCheckBody(body json.RawMessage, recordID, settingCode string) (CommandCheckResult, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		raw, ok := fields[settingCode]
		if !ok {
			log.Warn().
				Str("record_id", recordID).
				Str("setting_code", settingCode).
				Msg("solinteg: status response missing setting code, still pending")
			return CommandCheckResult{}, false
		}
		var entry struct {
			ControlResult *bool           `json:"controlResult"`
			CurrentValue  json.RawMessage `json:"currentValue"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil || entry.ControlResult == nil {
			log.Info().Str("record_id", recordID).Msg("solinteg: command status pending")
			return CommandCheckResult{}, false
		}
		value := rawToString(entry.CurrentValue)
		if *entry.ControlResult {
			log.Info().Str("record_id", recordID).Str("current_value", value).Msg("solinteg: command succeeded")
			return CommandCheckResult{Success: true, ControlResult: entry.ControlResult, CurrentValue: value}, true
		}
		log.Warn().Str("record_id", recordID).Msg("solinteg: command reported failure")
		return CommandCheckResult{
			ControlResult: entry.ControlResult,
			CurrentValue:  value,
			ErrorMessage:  "command failed according to API",
		}, true
	}

	var plain bool
	if err := json.Unmarshal(body, &plain); err == nil {
		result := plain
		if plain {
			return CommandCheckResult{Success: true, ControlResult: &result}, true
		}
		return CommandCheckResult{ControlResult: &result, ErrorMessage: "command failed (boolean check)"}, true
	}

	log.Warn().Str("record_id", recordID).Str("body", truncate(string(body), 200)).Msg("solinteg: unexpected status shape, still pending")
	return CommandCheckResult{}, false
}

func isEmptyBody(body json.RawMessage) bool {
	trimmed := string(body)
	return len(body) == 0 || trimmed == "null" || trimmed == `""` || trimmed == "{}"
}

func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(raw)
}
