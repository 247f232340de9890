package ai

import (
	"context"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

// Request is the body sent to the reasoning service.
type Request struct {
	Summary   string  `json:"summary"`
	SessionID string  `json:"session_id"`
	ProjectID *string `json:"project_id"`
}

// Response is what the reasoning service returns.
type Response struct {
	SessionID        string                     `json:"session_id,omitempty"`
	RiskAssessmentID string                     `json:"risk_assessment_id"`
	RiskMatrix       string                     `json:"risk_matrix"`
	ControlMatrix    string                     `json:"control_matrix"`
	ParsedRisks      []assessment.ParsedRisk    `json:"parsed_risks"`
	ParsedControls   []assessment.ParsedControl `json:"parsed_controls"`
}

// Client calls an analysis provider once. Implementations never retry.
type Client interface {
	Analyze(ctx context.Context, req Request) (Response, error)
}
