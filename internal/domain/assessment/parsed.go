package assessment

// ParsedRisk is a risk row as produced by the analysis service (snake_case wire shape).
type ParsedRisk struct {
	RiskID           string `json:"risk_id,omitempty"`
	RiskAssessmentID string `json:"risk_assessment_id,omitempty"`
	RiskName         string `json:"risk_name"`
	RiskOwner        string `json:"risk_owner"`
	Severity         int    `json:"severity"`
	Justification    string `json:"justification,omitempty"`
	Mitigation       string `json:"mitigation,omitempty"`
	TargetDate       string `json:"target_date,omitempty"`
}

// ParsedControl is a control row as produced by the analysis service.
type ParsedControl struct {
	ControlID        string `json:"control_id,omitempty"`
	RiskAssessmentID string `json:"risk_assessment_id,omitempty"`
	Code             string `json:"code"`
	Section          string `json:"section"`
	Control          string `json:"control"`
	Requirements     string `json:"requirements"`
	Status           string `json:"status"`
	Tickets          string `json:"tickets"`
	RelatedRisk      string `json:"related_risk,omitempty"`
}

// ControlHeaderRows is how many leading parsed controls are preamble, not data.
const ControlHeaderRows = 1

// DropHeaderRow removes the leading preamble element of a parsed-controls
// sequence. The first element is always discarded, whatever it contains.
func DropHeaderRow(controls []ParsedControl) []ParsedControl {
	if len(controls) <= ControlHeaderRows {
		return nil
	}
	out := make([]ParsedControl, len(controls)-ControlHeaderRows)
	copy(out, controls[ControlHeaderRows:])
	return out
}
