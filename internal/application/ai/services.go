package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/automaton-risk/internal/application"
	"github.com/bryanwahyu/automaton-risk/internal/domain/ai"
	"github.com/bryanwahyu/automaton-risk/internal/logging"
)

// DefaultTimeout bounds one analysis call.
const DefaultTimeout = 30 * time.Second

// Metrics is the subset of the metrics recorder the analysis policy reports to.
type Metrics interface {
	ObserveAnalysis(provider string, d time.Duration, err error)
}

// Outcome is the result of one analysis attempt. When Fallback is set the
// Response is ai.FallbackResponse() and Reason says why.
type Outcome struct {
	Response ai.Response
	Fallback bool
	Reason   string
	Provider string
}

// Service calls the configured provider once and substitutes the fallback
// response on any failure. It never returns an error.
type Service struct {
	Client   ai.Client
	Provider string
	Timeout  time.Duration
	Log      *logging.Logger
	Metrics  Metrics
	Clock    application.Clock
}

func NewService(client ai.Client, provider string, timeout time.Duration, log *logging.Logger, m Metrics) *Service {
	return &Service{
		Client:   client,
		Provider: provider,
		Timeout:  timeout,
		Log:      logging.OrNop(log),
		Metrics:  m,
		Clock:    application.SystemClock{},
	}
}

func (s *Service) Analyze(ctx context.Context, req ai.Request) Outcome {
	log := logging.OrNop(s.Log).With("session_id", req.SessionID, "provider", s.Provider)
	clock := application.ClockOrSystem(s.Clock)

	if s.Client == nil {
		return s.fallback(log, errors.New("no analysis provider configured"))
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := clock.Now()
	resp, err := s.Client.Analyze(callCtx, req)
	if err == nil {
		err = resp.Validate()
	}
	if s.Metrics != nil {
		s.Metrics.ObserveAnalysis(s.Provider, clock.Now().Sub(start), err)
	}
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: timed out after %s", ai.ErrUpstreamUnavailable, timeout)
		}
		return s.fallback(log, err)
	}

	log.Debug("analysis completed", "risks", len(resp.ParsedRisks), "controls", len(resp.ParsedControls))
	return Outcome{Response: resp, Provider: s.Provider}
}

func (s *Service) fallback(log *logging.Logger, cause error) Outcome {
	log.Warn("analysis fallback", "reason", cause.Error())
	return Outcome{
		Response: ai.FallbackResponse(),
		Fallback: true,
		Reason:   cause.Error(),
		Provider: s.Provider,
	}
}
