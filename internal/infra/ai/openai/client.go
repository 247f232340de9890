package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/automaton-risk/internal/domain/ai"
	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
	"github.com/bryanwahyu/automaton-risk/internal/infra/ai/prompt"
)

const (
	defaultModel       = "gpt-4o-mini"
	riskMaxTokens      = 800
	controlMaxTokens   = 1000
	riskTemperature    = 0.5
	controlTemperature = 0.3
)

// Client produces the risk and control matrices directly from the chat
// completions API, in place of the external agent.
type Client struct {
	*openai.Client
	Model   string
	Library prompt.Library
}

func NewClient(apiKey, model string, lib prompt.Library) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model, Library: lib}
}

// NewClientWithConfig lets callers point at a compatible endpoint.
func NewClientWithConfig(cfg openai.ClientConfig, model string, lib prompt.Library) *Client {
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, Library: lib}
}

func (c *Client) Analyze(ctx context.Context, req ai.Request) (ai.Response, error) {
	if strings.TrimSpace(req.Summary) == "" || req.SessionID == "" {
		return ai.Response{}, fmt.Errorf("%w: summary and session id are required", ai.ErrMalformedResponse)
	}
	assessmentID := assessment.DerivedFromSession(req.SessionID)

	riskMatrix, err := c.complete(ctx, prompt.RiskMatrixSystemPrompt(c.Library), prompt.RiskMatrixUserPrompt(req.Summary), riskTemperature, riskMaxTokens)
	if err != nil {
		return ai.Response{}, fmt.Errorf("generate risk matrix: %w", err)
	}
	risks := prompt.ParseRiskTable(riskMatrix, assessmentID)

	controlMatrix, err := c.complete(ctx, prompt.ControlMatrixSystemPrompt(c.Library), prompt.ControlMatrixUserPrompt(riskMatrix), controlTemperature, controlMaxTokens)
	if err != nil {
		return ai.Response{}, fmt.Errorf("generate control matrix: %w", err)
	}

	return ai.Response{
		SessionID:        req.SessionID,
		RiskAssessmentID: assessmentID,
		RiskMatrix:       riskMatrix,
		ControlMatrix:    controlMatrix,
		ParsedRisks:      risks,
		ParsedControls:   prompt.ParseControlTable(controlMatrix, assessmentID, risks),
	}, nil
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens and the default temperature
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
		req.Temperature = temperature
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ai.ErrMalformedResponse)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("%w: %v", ai.ErrUpstreamUnavailable, err)
}
