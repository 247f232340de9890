package ai

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

const fallbackRiskMatrix = `| Risk | Owner | Severity | Justification | Mitigation | Target Date |
|------|-------|----------|---------------|------------|-------------|
| AI system complexity | Data Engineering Team | 3 | Generic placeholder, analysis service unavailable | Regular monitoring | - |
| Regulatory requirements | Compliance Team | 2 | Generic placeholder, analysis service unavailable | Documentation updates | - |
| Unauthorised data access | Security Team | 3 | Generic placeholder, analysis service unavailable | Access reviews and encryption | - |`

const fallbackControlMatrix = `| CODE | SECTION | CONTROL | REQUIREMENTS | STATUS | TICKETS |
|------|---------|---------|--------------|--------|---------|
| AI-001 | AI Governance | Model Validation | Validate AI models before deployment | Not Implemented | TICK-001 |
| CM-001 | Compliance | Regulatory Compliance | Ensure compliance with relevant regulations | Not Implemented | TICK-002 |
| AC-001 | Access Control | User Authentication | Implement multi-factor authentication for all users | Not Implemented | TICK-003 |`

// FallbackResponse is the deterministic result substituted when the analysis
// call fails. The first control is the header row that DropHeaderRow removes.
func FallbackResponse() Response {
	return Response{
		RiskMatrix:    fallbackRiskMatrix,
		ControlMatrix: fallbackControlMatrix,
		ParsedRisks: []assessment.ParsedRisk{
			{
				RiskName:      "AI system complexity",
				RiskOwner:     assessment.OwnerDataEngineering,
				Severity:      3,
				Justification: "Generic placeholder, analysis service unavailable",
				Mitigation:    "Regular monitoring",
			},
			{
				RiskName:      "Regulatory requirements",
				RiskOwner:     assessment.OwnerCompliance,
				Severity:      2,
				Justification: "Generic placeholder, analysis service unavailable",
				Mitigation:    "Documentation updates",
			},
			{
				RiskName:      "Unauthorised data access",
				RiskOwner:     assessment.OwnerSecurity,
				Severity:      3,
				Justification: "Generic placeholder, analysis service unavailable",
				Mitigation:    "Access reviews and encryption",
			},
		},
		ParsedControls: []assessment.ParsedControl{
			{Code: "CODE", Section: "SECTION", Control: "CONTROL", Requirements: "REQUIREMENTS", Status: "STATUS", Tickets: "TICKETS"},
			{Code: "AI-001", Section: "AI Governance", Control: "Model Validation", Requirements: "Validate AI models before deployment", Status: "Not Implemented", Tickets: "TICK-001", RelatedRisk: "AI system complexity"},
			{Code: "CM-001", Section: "Compliance", Control: "Regulatory Compliance", Requirements: "Ensure compliance with relevant regulations", Status: "Not Implemented", Tickets: "TICK-002", RelatedRisk: "Regulatory requirements"},
			{Code: "AC-001", Section: "Access Control", Control: "User Authentication", Requirements: "Implement multi-factor authentication for all users", Status: "Not Implemented", Tickets: "TICK-003", RelatedRisk: "Unauthorised data access"},
		},
	}
}

// Validate checks that a response carries usable rows: at least one risk and
// at least one control once the header row is dropped, each with the fields
// the stores require.
func (r Response) Validate() error {
	if len(r.ParsedRisks) == 0 {
		return fmt.Errorf("%w: parsed_risks is empty", ErrMalformedResponse)
	}
	if len(assessment.DropHeaderRow(r.ParsedControls)) == 0 {
		return fmt.Errorf("%w: parsed_controls has no rows after the header", ErrMalformedResponse)
	}
	for i, pr := range r.ParsedRisks {
		if strings.TrimSpace(pr.RiskName) == "" || strings.TrimSpace(pr.RiskOwner) == "" {
			return fmt.Errorf("%w: parsed_risks[%d] lacks risk_name or risk_owner", ErrMalformedResponse, i)
		}
		if pr.Severity < assessment.MinSeverity || pr.Severity > assessment.MaxSeverity {
			return fmt.Errorf("%w: parsed_risks[%d] severity %d out of range", ErrMalformedResponse, i, pr.Severity)
		}
	}
	for i, pc := range assessment.DropHeaderRow(r.ParsedControls) {
		if strings.TrimSpace(pc.Control) == "" {
			return fmt.Errorf("%w: parsed_controls[%d] has no control text", ErrMalformedResponse, i+assessment.ControlHeaderRows)
		}
	}
	return nil
}
