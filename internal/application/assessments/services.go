package assessments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bryanwahyu/automaton-risk/internal/application"
	aiapp "github.com/bryanwahyu/automaton-risk/internal/application/ai"
	"github.com/bryanwahyu/automaton-risk/internal/domain/ai"
	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
	"github.com/bryanwahyu/automaton-risk/internal/logging"
)

const (
	recordKindRisk    = "risk"
	recordKindControl = "control"
)

const (
	messageProcessed         = "Questionnaire processed successfully"
	messageProcessedFallback = "Questionnaire processed successfully (fallback mode)"
)

// Analyzer runs one fallback-safe analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req ai.Request) aiapp.Outcome
}

// Metrics is the subset of the metrics recorder this service reports to.
type Metrics interface {
	AssessmentProcessed(fallback bool)
	RecordsStored(kind string, n int)
}

// Service implements the assessment use-cases.
// Sequence, Artifacts and Metrics are optional.
type Service struct {
	Repo      assessment.Repository
	Risks     assessment.RiskRepository
	Controls  assessment.ControlRepository
	Results   assessment.ResultRepository
	Analysis  Analyzer
	Sequence  assessment.SequenceAllocator
	Codes     assessment.CodeGenerator
	Artifacts assessment.ArtifactStore
	Clock     application.Clock
	Log       *logging.Logger
	Metrics   Metrics
}

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New()

func (s *Service) clock() application.Clock { return application.ClockOrSystem(s.Clock) }

func (s *Service) log() *logging.Logger { return logging.OrNop(s.Log) }

func (s *Service) codes() assessment.CodeGenerator {
	if s.Codes == nil {
		return RandomCodes{}
	}
	return s.Codes
}

//
// ==== PIPELINE ====
//

// ProcessCommand is one questionnaire submission.
type ProcessCommand struct {
	Responses   Answers
	Catalog     []QuestionLabel
	ProjectID   string
	UseCaseType assessment.UseCaseType
}

type ProcessResult struct {
	SessionID        string                `json:"sessionId"`
	RiskAssessmentID string                `json:"riskAssessmentId"`
	RisksCount       int                   `json:"risksCount"`
	Risks            []*assessment.Risk    `json:"risks"`
	ControlsCount    int                   `json:"controlsCount"`
	Controls         []*assessment.Control `json:"controls"`
	Fallback         bool                  `json:"fallback"`
	FallbackReason   string                `json:"fallbackReason,omitempty"`
	Message          string                `json:"message"`
}

// Process composes the summary, runs the analysis (falling back on any
// failure) and stores the blob, risks and controls under one identifier in
// a single batch.
func (s *Service) Process(ctx context.Context, cmd ProcessCommand, creator string) (ProcessResult, error) {
	if cmd.Responses == nil {
		return ProcessResult{}, fmt.Errorf("%w: questionnaireResponses is required", assessment.ErrValidation)
	}
	if cmd.UseCaseType == "" {
		cmd.UseCaseType = assessment.UseCaseHuman
	}
	catalog := cmd.Catalog
	if len(catalog) == 0 {
		catalog = DefaultCatalog
	}

	sessionID := uuid.NewString()
	log := s.log().With("session_id", sessionID)
	summary := Compose(cmd.UseCaseType, catalog, cmd.Responses)

	req := ai.Request{Summary: summary, SessionID: sessionID}
	if cmd.ProjectID != "" {
		pid := cmd.ProjectID
		req.ProjectID = &pid
	}
	outcome := s.Analysis.Analyze(ctx, req)
	resp := outcome.Response

	assessmentID := resp.RiskAssessmentID
	if !assessment.ValidIdentifier(assessmentID) {
		var err error
		if assessmentID, err = s.nextIdentifier(ctx, assessment.KindRiskControl, sessionID); err != nil {
			return ProcessResult{}, err
		}
	}
	log = log.With("risk_assessment_id", assessmentID)

	now := s.clock().Now()
	meta := recordMeta{
		AssessmentID: assessmentID,
		SessionID:    sessionID,
		ProjectID:    cmd.ProjectID,
		CreatedBy:    creator,
		At:           now,
	}
	risks, err := buildRisks(resp.ParsedRisks, meta)
	if err != nil {
		return ProcessResult{}, err
	}
	controls, err := buildControls(assessment.DropHeaderRow(resp.ParsedControls), meta, s.codes(), risks)
	if err != nil {
		return ProcessResult{}, err
	}

	result := &assessment.Result{
		ID:               uuid.NewString(),
		RiskAssessmentID: assessmentID,
		ProjectID:        cmd.ProjectID,
		SessionID:        sessionID,
		UseCaseType:      cmd.UseCaseType,
		Summary:          summary,
		MarkdownTable:    assessment.RenderRiskTable(risks),
		ControlMatrix:    resp.ControlMatrix,
		Fallback:         outcome.Fallback,
		CreatedBy:        creator,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	batch := &assessment.Batch{
		AssessmentID: assessmentID,
		SessionID:    sessionID,
		ProjectID:    cmd.ProjectID,
		Kind:         assessment.KindRiskControl,
		CreatedBy:    creator,
		CreatedAt:    now,
		Result:       result,
		Risks:        risks,
		Controls:     controls,
	}
	if err := s.Repo.SaveBatch(ctx, batch); err != nil {
		log.Error("save assessment batch", "error", err)
		return ProcessResult{}, err
	}
	s.archive(ctx, log, result, resp)

	if s.Metrics != nil {
		s.Metrics.AssessmentProcessed(outcome.Fallback)
		s.Metrics.RecordsStored(recordKindRisk, len(risks))
		s.Metrics.RecordsStored(recordKindControl, len(controls))
	}
	log.Info("questionnaire processed", "risks", len(risks), "controls", len(controls), "fallback", outcome.Fallback)

	msg := messageProcessed
	if outcome.Fallback {
		msg = messageProcessedFallback
	}
	return ProcessResult{
		SessionID:        sessionID,
		RiskAssessmentID: assessmentID,
		RisksCount:       len(risks),
		Risks:            risks,
		ControlsCount:    len(controls),
		Controls:         controls,
		Fallback:         outcome.Fallback,
		FallbackReason:   outcome.Reason,
		Message:          msg,
	}, nil
}

// archive uploads the raw matrices of a stored blob and records the object
// URL on it. Failures are logged and leave the blob without a URL.
func (s *Service) archive(ctx context.Context, log *logging.Logger, result *assessment.Result, resp ai.Response) {
	if s.Artifacts == nil {
		return
	}
	var b strings.Builder
	b.WriteString("# Risk matrix\n\n")
	b.WriteString(resp.RiskMatrix)
	b.WriteString("\n\n# Control matrix\n\n")
	b.WriteString(resp.ControlMatrix)
	b.WriteString("\n")

	key := fmt.Sprintf("assessments/%s/%s.md", result.RiskAssessmentID, result.SessionID)
	url, err := s.Artifacts.Put(ctx, key, []byte(b.String()), "text/markdown")
	if err != nil {
		log.Warn("archive matrices", "key", key, "error", err)
		return
	}
	if _, err := s.Results.Update(ctx, result.ID, assessment.ResultUpdate{ArtifactURL: &url}, result.UpdatedAt); err != nil {
		log.Warn("record artifact url", "key", key, "error", err)
		return
	}
	result.ArtifactURL = url
}

// Status returns the active blob written for a processed session.
func (s *Service) Status(ctx context.Context, sessionID string) (*assessment.Result, error) {
	return s.ResultBySession(ctx, sessionID)
}

//
// ==== RISK STORE ====
//

type StoreRisksCommand struct {
	ProjectID    string                  `json:"projectId"`
	SessionID    string                  `json:"sessionId"`
	AssessmentID string                  `json:"riskAssessmentId"`
	ParsedRisks  []assessment.ParsedRisk `json:"parsedRisks"`
}

type StoreRisksResult struct {
	RiskAssessmentID string             `json:"riskAssessmentId"`
	SessionID        string             `json:"sessionId"`
	RisksCount       int                `json:"risksCount"`
	Risks            []*assessment.Risk `json:"risks"`
}

// StoreRisks persists a batch of parsed risks under one identifier. A
// missing identifier is allocated with the sequential strategy.
func (s *Service) StoreRisks(ctx context.Context, cmd StoreRisksCommand, creator string) (StoreRisksResult, error) {
	if len(cmd.ParsedRisks) == 0 {
		return StoreRisksResult{}, fmt.Errorf("%w: parsedRisks", assessment.ErrEmptyInput)
	}
	sessionID := cmd.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	assessmentID, err := s.resolveIdentifier(ctx, cmd.AssessmentID, assessment.KindRisk, sessionID)
	if err != nil {
		return StoreRisksResult{}, err
	}

	now := s.clock().Now()
	risks, err := buildRisks(cmd.ParsedRisks, recordMeta{
		AssessmentID: assessmentID,
		SessionID:    sessionID,
		ProjectID:    cmd.ProjectID,
		CreatedBy:    creator,
		At:           now,
	})
	if err != nil {
		return StoreRisksResult{}, err
	}

	if err := s.Repo.SaveBatch(ctx, &assessment.Batch{
		AssessmentID: assessmentID,
		SessionID:    sessionID,
		ProjectID:    cmd.ProjectID,
		Kind:         assessment.KindRisk,
		CreatedBy:    creator,
		CreatedAt:    now,
		Risks:        risks,
	}); err != nil {
		return StoreRisksResult{}, err
	}
	if s.Metrics != nil {
		s.Metrics.RecordsStored(recordKindRisk, len(risks))
	}
	s.log().Info("risks stored", "risk_assessment_id", assessmentID, "session_id", sessionID, "count", len(risks))

	return StoreRisksResult{
		RiskAssessmentID: assessmentID,
		SessionID:        sessionID,
		RisksCount:       len(risks),
		Risks:            risks,
	}, nil
}

func (s *Service) RisksByAssessment(ctx context.Context, assessmentID string) ([]*assessment.Risk, error) {
	if assessmentID == "" {
		return nil, fmt.Errorf("%w: riskAssessmentId is required", assessment.ErrValidation)
	}
	return s.Risks.ListByAssessment(ctx, assessmentID)
}

func (s *Service) RisksBySession(ctx context.Context, sessionID string) ([]*assessment.Risk, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", assessment.ErrValidation)
	}
	return s.Risks.ListBySession(ctx, sessionID)
}

func (s *Service) RisksByProject(ctx context.Context, projectID string, req assessment.PageRequest) (assessment.PaginatedResult[*assessment.Risk], error) {
	if projectID == "" {
		return assessment.PaginatedResult[*assessment.Risk]{}, fmt.Errorf("%w: projectId is required", assessment.ErrValidation)
	}
	req = req.Normalize()
	if req.Severity != 0 && (req.Severity < assessment.MinSeverity || req.Severity > assessment.MaxSeverity) {
		return assessment.PaginatedResult[*assessment.Risk]{}, fmt.Errorf("%w: severity must be 1..5", assessment.ErrValidation)
	}
	return s.Risks.ListByProject(ctx, projectID, req)
}

// ListRisks pages over active risks across projects and sessions.
func (s *Service) ListRisks(ctx context.Context, f assessment.RiskFilter, req assessment.PageRequest) (assessment.PaginatedResult[*assessment.Risk], error) {
	req = req.Normalize()
	if req.Severity != 0 && (req.Severity < assessment.MinSeverity || req.Severity > assessment.MaxSeverity) {
		return assessment.PaginatedResult[*assessment.Risk]{}, fmt.Errorf("%w: severity must be 1..5", assessment.ErrValidation)
	}
	return s.Risks.List(ctx, f, req)
}

func (s *Service) UpdateRisk(ctx context.Context, id string, u assessment.RiskUpdate) (*assessment.Risk, error) {
	if err := validate.Struct(u); err != nil {
		return nil, fmt.Errorf("%w: %v", assessment.ErrValidation, err)
	}
	return s.Risks.Update(ctx, id, u, s.clock().Now())
}

func (s *Service) DeleteRisk(ctx context.Context, id string) error {
	return s.Risks.SoftDelete(ctx, id, s.clock().Now())
}

//
// ==== CONTROL STORE ====
//

type StoreControlsCommand struct {
	ProjectID      string                     `json:"projectId"`
	SessionID      string                     `json:"sessionId"`
	AssessmentID   string                     `json:"riskAssessmentId"`
	ParsedControls []assessment.ParsedControl `json:"parsedControls"`
}

type StoreControlsResult struct {
	RiskAssessmentID string                `json:"riskAssessmentId"`
	SessionID        string                `json:"sessionId"`
	ControlsCount    int                   `json:"controlsCount"`
	Controls         []*assessment.Control `json:"controls"`
}

// StoreControls drops the leading header row and persists the rest. A
// missing identifier is derived from the session.
func (s *Service) StoreControls(ctx context.Context, cmd StoreControlsCommand, creator string) (StoreControlsResult, error) {
	rows := assessment.DropHeaderRow(cmd.ParsedControls)
	if len(rows) == 0 {
		return StoreControlsResult{}, fmt.Errorf("%w: parsedControls has no rows after the header", assessment.ErrEmptyInput)
	}
	sessionID := cmd.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	assessmentID, err := s.resolveIdentifier(ctx, cmd.AssessmentID, assessment.KindRiskControl, sessionID)
	if err != nil {
		return StoreControlsResult{}, err
	}

	now := s.clock().Now()
	controls, err := buildControls(rows, recordMeta{
		AssessmentID: assessmentID,
		SessionID:    sessionID,
		ProjectID:    cmd.ProjectID,
		CreatedBy:    creator,
		At:           now,
	}, s.codes(), nil)
	if err != nil {
		return StoreControlsResult{}, err
	}

	if err := s.Repo.SaveBatch(ctx, &assessment.Batch{
		AssessmentID: assessmentID,
		SessionID:    sessionID,
		ProjectID:    cmd.ProjectID,
		Kind:         assessment.KindRiskControl,
		CreatedBy:    creator,
		CreatedAt:    now,
		Controls:     controls,
	}); err != nil {
		return StoreControlsResult{}, err
	}
	if s.Metrics != nil {
		s.Metrics.RecordsStored(recordKindControl, len(controls))
	}
	s.log().Info("controls stored", "risk_assessment_id", assessmentID, "session_id", sessionID, "count", len(controls))

	return StoreControlsResult{
		RiskAssessmentID: assessmentID,
		SessionID:        sessionID,
		ControlsCount:    len(controls),
		Controls:         controls,
	}, nil
}

func (s *Service) ControlsByAssessment(ctx context.Context, assessmentID string) ([]*assessment.Control, error) {
	if assessmentID == "" {
		return nil, fmt.Errorf("%w: riskAssessmentId is required", assessment.ErrValidation)
	}
	return s.Controls.ListByAssessment(ctx, assessmentID)
}

func (s *Service) ControlsBySession(ctx context.Context, sessionID string) ([]*assessment.Control, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", assessment.ErrValidation)
	}
	return s.Controls.ListBySession(ctx, sessionID)
}

func (s *Service) ControlsByProject(ctx context.Context, projectID string, req assessment.PageRequest) (assessment.PaginatedResult[*assessment.Control], error) {
	if projectID == "" {
		return assessment.PaginatedResult[*assessment.Control]{}, fmt.Errorf("%w: projectId is required", assessment.ErrValidation)
	}
	return s.Controls.ListByProject(ctx, projectID, req.Normalize())
}

func (s *Service) AllControls(ctx context.Context) ([]*assessment.Control, error) {
	return s.Controls.ListActive(ctx)
}

func (s *Service) UpdateControl(ctx context.Context, id string, u assessment.ControlUpdate) (*assessment.Control, error) {
	if err := validate.Struct(u); err != nil {
		return nil, fmt.Errorf("%w: %v", assessment.ErrValidation, err)
	}
	return s.Controls.Update(ctx, id, u, s.clock().Now())
}

func (s *Service) DeleteControl(ctx context.Context, id string) error {
	return s.Controls.SoftDelete(ctx, id, s.clock().Now())
}

//
// ==== RESULT BLOBS ====
//

type CreateResultCommand struct {
	ProjectID     string                 `json:"projectId"`
	SessionID     string                 `json:"sessionId"`
	Summary       string                 `json:"summary"`
	MarkdownTable string                 `json:"markdownTable"`
	UseCaseType   assessment.UseCaseType `json:"useCaseType"`
}

// CreateResult stores a free-form blob. One blob per session.
func (s *Service) CreateResult(ctx context.Context, cmd CreateResultCommand, creator string) (*assessment.Result, error) {
	if strings.TrimSpace(cmd.SessionID) == "" {
		return nil, fmt.Errorf("%w: sessionId is required", assessment.ErrValidation)
	}
	if _, err := s.Results.GetBySession(ctx, cmd.SessionID); err == nil {
		return nil, fmt.Errorf("%w: %s", assessment.ErrDuplicateSession, cmd.SessionID)
	} else if !errors.Is(err, assessment.ErrNotFound) {
		return nil, err
	}

	now := s.clock().Now()
	r := &assessment.Result{
		ID:            uuid.NewString(),
		ProjectID:     cmd.ProjectID,
		SessionID:     cmd.SessionID,
		UseCaseType:   cmd.UseCaseType,
		Summary:       cmd.Summary,
		MarkdownTable: cmd.MarkdownTable,
		CreatedBy:     creator,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Results.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) ListResults(ctx context.Context, projectID string, req assessment.PageRequest) (assessment.PaginatedResult[*assessment.Result], error) {
	return s.Results.Paginate(ctx, projectID, req.Normalize())
}

func (s *Service) GetResult(ctx context.Context, id string) (*assessment.Result, error) {
	return s.Results.Get(ctx, id)
}

func (s *Service) ResultBySession(ctx context.Context, sessionID string) (*assessment.Result, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", assessment.ErrValidation)
	}
	return s.Results.GetBySession(ctx, sessionID)
}

// UpdateResult edits the summary and risk table of an active blob.
func (s *Service) UpdateResult(ctx context.Context, id string, u assessment.ResultUpdate) (*assessment.Result, error) {
	u.ArtifactURL = nil
	if u.Summary == nil && u.MarkdownTable == nil {
		return nil, fmt.Errorf("%w: summary or markdownTable is required", assessment.ErrValidation)
	}
	return s.Results.Update(ctx, id, u, s.clock().Now())
}

func (s *Service) DeleteResult(ctx context.Context, id string) error {
	return s.Results.SoftDelete(ctx, id, s.clock().Now())
}

// resolveIdentifier accepts a caller-supplied identifier when well formed
// and otherwise allocates one for kind.
func (s *Service) resolveIdentifier(ctx context.Context, supplied string, kind assessment.Kind, sessionID string) (string, error) {
	supplied = strings.TrimSpace(supplied)
	if supplied == "" {
		return s.nextIdentifier(ctx, kind, sessionID)
	}
	if !assessment.ValidIdentifier(supplied) {
		return "", fmt.Errorf("%w: riskAssessmentId %q is not R-### or RC-XXXXXXXX", assessment.ErrValidation, supplied)
	}
	return supplied, nil
}

// compile-time check that the analysis policy satisfies Analyzer
var _ Analyzer = (*aiapp.Service)(nil)
