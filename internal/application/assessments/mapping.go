package assessments

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

// recordMeta is shared by every record of one batch.
type recordMeta struct {
	AssessmentID string
	SessionID    string
	ProjectID    string
	CreatedBy    string
	At           time.Time
}

var targetDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2006",
	"2006-01",
}

// parseTargetDate returns nil for blank or unparseable input.
func parseTargetDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil
	}
	for _, layout := range targetDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func buildRisks(parsed []assessment.ParsedRisk, m recordMeta) ([]*assessment.Risk, error) {
	out := make([]*assessment.Risk, 0, len(parsed))
	for i, pr := range parsed {
		name := strings.TrimSpace(pr.RiskName)
		owner := strings.TrimSpace(pr.RiskOwner)
		switch {
		case name == "":
			return nil, fmt.Errorf("%w: risk %d: risk_name is required", assessment.ErrValidation, i)
		case owner == "":
			return nil, fmt.Errorf("%w: risk %d: risk_owner is required", assessment.ErrValidation, i)
		case pr.Severity < assessment.MinSeverity || pr.Severity > assessment.MaxSeverity:
			return nil, fmt.Errorf("%w: risk %d: severity %d not in [%d,%d]",
				assessment.ErrValidation, i, pr.Severity, assessment.MinSeverity, assessment.MaxSeverity)
		}
		out = append(out, &assessment.Risk{
			ID:               uuid.NewString(),
			RiskAssessmentID: m.AssessmentID,
			SessionID:        m.SessionID,
			ProjectID:        m.ProjectID,
			RiskName:         name,
			RiskOwner:        owner,
			Severity:         pr.Severity,
			Justification:    strings.TrimSpace(pr.Justification),
			Mitigation:       strings.TrimSpace(pr.Mitigation),
			TargetDate:       parseTargetDate(pr.TargetDate),
			CreatedBy:        m.CreatedBy,
			IsActive:         true,
			CreatedAt:        m.At,
			UpdatedAt:        m.At,
		})
	}
	return out, nil
}

// buildControls expects the header row to be dropped already. risks, when
// given, supply the owner of each control through its related risk.
func buildControls(parsed []assessment.ParsedControl, m recordMeta, codes assessment.CodeGenerator, risks []*assessment.Risk) ([]*assessment.Control, error) {
	out := make([]*assessment.Control, 0, len(parsed))
	for i, pc := range parsed {
		text := strings.TrimSpace(pc.Control)
		if text == "" {
			return nil, fmt.Errorf("%w: control %d: control text is required", assessment.ErrValidation, i)
		}
		code := strings.TrimSpace(pc.Code)
		if code == "" {
			code = codes.Code(DefaultControlCodePrefix)
		}
		out = append(out, &assessment.Control{
			ID:               uuid.NewString(),
			RiskAssessmentID: m.AssessmentID,
			SessionID:        m.SessionID,
			ProjectID:        m.ProjectID,
			ControlID:        strings.TrimSpace(pc.ControlID),
			Code:             code,
			Section:          strings.TrimSpace(pc.Section),
			Control:          text,
			Requirements:     strings.TrimSpace(pc.Requirements),
			Status:           strings.TrimSpace(pc.Status),
			Tickets:          strings.TrimSpace(pc.Tickets),
			RelatedRisk:      strings.TrimSpace(pc.RelatedRisk),
			Owner:            ownerForControl(pc, risks),
			CreatedBy:        m.CreatedBy,
			IsActive:         true,
			CreatedAt:        m.At,
			UpdatedAt:        m.At,
		})
	}
	return out, nil
}

// ownerForControl picks the owner of the risk the control is linked to,
// defaulting to the compliance team.
func ownerForControl(pc assessment.ParsedControl, risks []*assessment.Risk) string {
	related := strings.ToLower(strings.TrimSpace(pc.RelatedRisk))
	if related != "" {
		for _, r := range risks {
			if strings.ToLower(r.RiskName) == related {
				return r.RiskOwner
			}
		}
	}
	return assessment.OwnerCompliance
}
