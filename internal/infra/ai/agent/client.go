package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bryanwahyu/automaton-risk/internal/domain/ai"
)

// Path of the combined risk and control endpoint on the agent.
const Path = "/agent/risk-control"

const maxErrorBody = 512

// Client posts the questionnaire summary to the reasoning agent once.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient builds a client whose transport timeout matches timeout. The
// caller's context deadline still applies.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Analyze(ctx context.Context, req ai.Request) (ai.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return ai.Response{}, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+Path, bytes.NewReader(body))
	if err != nil {
		return ai.Response{}, fmt.Errorf("%w: %v", ai.ErrUpstreamUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	res, err := hc.Do(httpReq)
	if err != nil {
		return ai.Response{}, fmt.Errorf("%w: %v", ai.ErrUpstreamUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return ai.Response{}, fmt.Errorf("%w: agent returned 429", ai.ErrQuotaExceeded)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return ai.Response{}, fmt.Errorf("%w: agent returned %d: %s", ai.ErrUpstreamUnavailable, res.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out ai.Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return ai.Response{}, fmt.Errorf("%w: decode: %v", ai.ErrMalformedResponse, err)
	}
	return out, nil
}
