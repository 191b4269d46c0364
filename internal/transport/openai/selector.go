package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/thebeast/llamarouter/internal/domain/target"
	logpkg "github.com/thebeast/llamarouter/internal/logger"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = `Some choices are given below. It is provided in a numbered list (1 to %d), ` +
	`where each item in the list corresponds to a summary.
---------------------
%s
---------------------
Using only the choices above and not prior knowledge, return the choice that is most relevant ` +
	`to the question. Respond with a JSON object of the form {"choice": <number>, "reason": "<short reason>"}.`

// Selector picks a retrieval target with an OpenAI-compatible chat model.
type Selector struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds the routing model settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewSelector creates an OpenAI-compatible target selector.
func NewSelector(cfg *Config) *Selector {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Selector{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}
}

type selection struct {
	Choice int    `json:"choice"`
	Reason string `json:"reason"`
}

// Select asks the model for the candidate whose description best fits query
// and returns its name. Unparsable or out-of-range answers are errors.
func (s *Selector) Select(ctx context.Context, query string, candidates []target.Target) (string, error) {
	if len(candidates) == 0 {
		return "", errors.New("no candidates to select from")
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildPrompt(candidates)},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Temperature:    0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty selection response")
	}

	content := resp.Choices[0].Message.Content
	var sel selection
	if err := json.Unmarshal([]byte(content), &sel); err != nil {
		return "", fmt.Errorf("invalid selection %q: %w", content, err)
	}
	if sel.Choice < 1 || sel.Choice > len(candidates) {
		return "", fmt.Errorf("selection out of range: %d not in 1..%d", sel.Choice, len(candidates))
	}

	name := candidates[sel.Choice-1].Name
	logpkg.FromContext(ctx, s.logger).Debug("model selection",
		zap.String("model", s.model),
		zap.String("target", name),
		zap.String("reason", sel.Reason),
		zap.Duration("duration", time.Since(start)),
	)
	return name, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (s *Selector) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func buildPrompt(candidates []target.Target) string {
	var b strings.Builder
	for i, c := range candidates {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "(%d) %s: %s", i+1, c.Name, c.Description)
	}
	return fmt.Sprintf(systemPrompt, len(candidates), b.String())
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("routing API error %d: %s", reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("routing API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("routing API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("routing request failed: %w", err)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
