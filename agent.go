package energyagent

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

// Role selects which recommendation prompt the agent runs with.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleProsumer Role = "prosumer"
)

const (
	defaultLLMBaseURL = "https://api.openai.com/v1"
	defaultLLMModel   = "gpt-4o-mini"
	llmTemperature    = 0.3
	llmTimeout        = 60 * time.Second
)

// Agent wraps one household role and its telemetry file.
type Agent struct {
	role     Role
	dataPath string
	llm      *LLMClient
}

// NewAgent validates the role and binds it to a telemetry CSV.
func NewAgent(role Role, dataPath string) (*Agent, error) {
	if role != RoleConsumer && role != RoleProsumer {
		return nil, errors.Errorf("role must be either %q or %q, got %q", RoleConsumer, RoleProsumer, role)
	}
	return &Agent{role: role, dataPath: dataPath, llm: NewLLMClientFromEnv()}, nil
}

// DecideEnergyAction summarizes the telemetry and asks the model for
// recommended time windows. The raw model text is returned so callers can
// show it before extracting a window.
func (a *Agent) DecideEnergyAction(ctx context.Context) (string, error) {
	summary, err := LoadCSVSummary(a.dataPath)
	if err != nil {
		return "", err
	}
	template := consumerPromptTemplate
	if a.role == RoleProsumer {
		template = prosumerPromptTemplate
	}
	log.Info().Str("role", string(a.role)).Str("data_path", a.dataPath).Msg("energyagent: requesting recommendation")
	return a.llm.Complete(ctx, renderPrompt(template, summary))
}

// LLMClient talks to an OpenAI-compatible chat completions endpoint.
type LLMClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	// test hook
	doRequestFunc func(req *http.Request) (*http.Response, error)
}

// NewLLMClientFromEnv reads OPENAI_API_KEY, OPENAI_BASE_URL and OPENAI_MODEL.
func NewLLMClientFromEnv() *LLMClient {
	return &LLMClient{
		baseURL:    strings.TrimRight(env.String("OPENAI_BASE_URL", defaultLLMBaseURL), "/"),
		apiKey:     env.String("OPENAI_API_KEY", ""),
		model:      env.String("OPENAI_MODEL", defaultLLMModel),
		httpClient: &http.Client{Timeout: llmTimeout},
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one user prompt and returns the first choice's text.
func (c *LLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("OPENAI_API_KEY is not set")
	}
	payload := chatCompletionRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: llmTemperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "encode completion request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build completion request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.do(req)
	if err != nil {
		return "", errors.Wrap(err, "call completion endpoint")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read completion response")
	}
	var decoded chatCompletionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", errors.Wrapf(err, "decode completion response (status %d)", resp.StatusCode)
	}
	if decoded.Error != nil {
		return "", errors.Errorf("completion endpoint rejected request: %s", decoded.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Errorf("completion endpoint returned HTTP %d", resp.StatusCode)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("completion response holds no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

func (c *LLMClient) do(req *http.Request) (*http.Response, error) {
	if c.doRequestFunc != nil {
		return c.doRequestFunc(req)
	}
	return c.httpClient.Do(req)
}
