package assessment

import (
	"time"
)

// Kind selects how an assessment identifier is produced.
type Kind string

const (
	KindRisk        Kind = "risk"
	KindRiskControl Kind = "risk_control"
)

// UseCaseType coarse system category from the questionnaire
type UseCaseType string

const (
	UseCaseHuman UseCaseType = "human"
	UseCaseBot   UseCaseType = "bot"
)

// Organisational owners the analysis service assigns. Free text is accepted too.
const (
	OwnerDataEngineering = "Data Engineering Team"
	OwnerSecurity        = "Security Team"
	OwnerCompliance      = "Compliance Team"
)

const (
	MinSeverity = 1
	MaxSeverity = 5
)

// Risk is one discrete risk row of an assessment.
type Risk struct {
	ID               string     `json:"id"`
	RiskAssessmentID string     `json:"riskAssessmentId"`
	SessionID        string     `json:"sessionId"`
	ProjectID        string     `json:"projectId,omitempty"`
	RiskName         string     `json:"riskName"`
	RiskOwner        string     `json:"riskOwner"`
	Severity         int        `json:"severity"`
	Justification    string     `json:"justification,omitempty"`
	Mitigation       string     `json:"mitigation,omitempty"`
	TargetDate       *time.Time `json:"targetDate,omitempty"`
	CreatedBy        string     `json:"createdBy"`
	IsActive         bool       `json:"isActive"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Control is one discrete control row of an assessment.
type Control struct {
	ID               string    `json:"id"`
	RiskAssessmentID string    `json:"riskAssessmentId"`
	SessionID        string    `json:"sessionId"`
	ProjectID        string    `json:"projectId,omitempty"`
	ControlID        string    `json:"controlId,omitempty"`
	Code             string    `json:"code"`
	Section          string    `json:"section"`
	Control          string    `json:"control"`
	Requirements     string    `json:"requirements"`
	Status           string    `json:"status"`
	Tickets          string    `json:"tickets"`
	RelatedRisk      string    `json:"relatedRisk,omitempty"`
	Owner            string    `json:"owner"`
	CreatedBy        string    `json:"createdBy"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Result is the per-session summary blob: narrative summary plus a markdown
// risk table. Statistics are derived from MarkdownTable.
type Result struct {
	ID               string      `json:"id"`
	RiskAssessmentID string      `json:"riskAssessmentId,omitempty"`
	ProjectID        string      `json:"projectId"`
	SessionID        string      `json:"sessionId"`
	UseCaseType      UseCaseType `json:"useCaseType,omitempty"`
	Summary          string      `json:"summary"`
	MarkdownTable    string      `json:"markdownTable"`
	ControlMatrix    string      `json:"controlMatrix,omitempty"`
	ArtifactURL      string      `json:"artifactUrl,omitempty"`
	Fallback         bool        `json:"fallback"`
	CreatedBy        string      `json:"createdBy"`
	IsActive         bool        `json:"isActive"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// Batch is the unit written by Repository.SaveBatch. Every row carries the
// same AssessmentID; the batch is applied entirely or not at all.
type Batch struct {
	AssessmentID string
	SessionID    string
	ProjectID    string
	Kind         Kind
	CreatedBy    string
	CreatedAt    time.Time

	Result   *Result
	Risks    []*Risk
	Controls []*Control
}

// RiskUpdate carries the editable fields of a risk. Nil fields are left as is.
type RiskUpdate struct {
	RiskName      *string    `json:"riskName" validate:"omitempty,min=1,max=512"`
	RiskOwner     *string    `json:"riskOwner" validate:"omitempty,min=1,max=128"`
	Severity      *int       `json:"severity" validate:"omitempty,min=1,max=5"`
	Justification *string    `json:"justification"`
	Mitigation    *string    `json:"mitigation"`
	TargetDate    *time.Time `json:"targetDate"`
}

// ControlUpdate carries the editable fields of a control.
type ControlUpdate struct {
	Section      *string `json:"section" validate:"omitempty,max=255"`
	Control      *string `json:"control" validate:"omitempty,min=1"`
	Requirements *string `json:"requirements"`
	Status       *string `json:"status" validate:"omitempty,max=64"`
	Tickets      *string `json:"tickets" validate:"omitempty,max=255"`
	RelatedRisk  *string `json:"relatedRisk" validate:"omitempty,max=512"`
	Owner        *string `json:"owner" validate:"omitempty,max=128"`
}

// ResultUpdate edits the text of a summary blob. ArtifactURL is set by the
// pipeline only.
type ResultUpdate struct {
	Summary       *string `json:"summary"`
	MarkdownTable *string `json:"markdownTable"`
	ArtifactURL   *string `json:"-"`
}

// RiskFilter narrows a risk listing. Empty fields match everything.
type RiskFilter struct {
	ProjectID string
	SessionID string
}

// SeverityRow is the minimal projection of an active risk used by statistics.
type SeverityRow struct {
	RiskAssessmentID string
	SessionID        string
	Severity         int
}
