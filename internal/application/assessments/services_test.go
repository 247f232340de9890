package assessments

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/bryanwahyu/automaton-risk/internal/application"
	aiapp "github.com/bryanwahyu/automaton-risk/internal/application/ai"
	"github.com/bryanwahyu/automaton-risk/internal/domain/ai"
	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
	"github.com/bryanwahyu/automaton-risk/internal/infra/db/memory"
)

type fakeAnalyzer struct {
	outcome aiapp.Outcome
	last    ai.Request
	calls   int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req ai.Request) aiapp.Outcome {
	f.calls++
	f.last = req
	return f.outcome
}

type fakeArtifacts struct {
	err  error
	keys []string
}

func (f *fakeArtifacts) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://minio.local/risk/" + key, nil
}

type fakeSequence struct{ floors []int }

func (f *fakeSequence) Next(_ context.Context, floor int) (int, error) {
	f.floors = append(f.floors, floor)
	return floor + 1, nil
}

type ServiceTestSuite struct {
	suite.Suite
	store    *memory.Store
	analyzer *fakeAnalyzer
	svc      *Service
	now      time.Time
}

func (s *ServiceTestSuite) SetupTest() {
	s.store = memory.New()
	repo, risks, controls, results := s.store.Repos()
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.analyzer = &fakeAnalyzer{outcome: aiapp.Outcome{Response: agentResponse()}}
	s.svc = &Service{
		Repo:     repo,
		Risks:    risks,
		Controls: controls,
		Results:  results,
		Analysis: s.analyzer,
		Codes:    &SequenceCodes{},
		Clock:    application.FixedClock{T: s.now},
	}
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func agentResponse() ai.Response {
	return ai.Response{
		RiskMatrix:    "| Risk | Owner | Severity |\n|---|---|---|\n| Data leakage | Security Team | 5 |",
		ControlMatrix: "| CODE | CONTROL |\n|---|---|\n| AC-001 | MFA |",
		ParsedRisks: []assessment.ParsedRisk{
			{RiskName: "Data leakage", RiskOwner: assessment.OwnerSecurity, Severity: 5, TargetDate: "2025-06-30"},
			{RiskName: "Model drift", RiskOwner: assessment.OwnerDataEngineering, Severity: 3, TargetDate: "soon"},
		},
		ParsedControls: []assessment.ParsedControl{
			{Code: "CODE", Control: "CONTROL"},
			{ControlID: "CTRL-X-001", Code: "AC-001", Control: "MFA", Status: "Not Implemented", RelatedRisk: "Data leakage"},
			{Control: "Drift monitoring", Status: "Planned", RelatedRisk: "Model drift"},
		},
	}
}

func (s *ServiceTestSuite) TestProcess_HappyPath() {
	ctx := context.Background()
	res, err := s.svc.Process(ctx, ProcessCommand{
		Responses:   Answers{"4": "Credit scoring"},
		ProjectID:   "proj-1",
		UseCaseType: assessment.UseCaseBot,
	}, "alice")
	s.Require().NoError(err)

	s.Equal(assessment.DerivedFromSession(res.SessionID), res.RiskAssessmentID)
	s.Equal(2, res.RisksCount)
	s.Equal(2, res.ControlsCount)
	s.False(res.Fallback)
	s.Equal("Questionnaire processed successfully", res.Message)

	s.Contains(s.analyzer.last.Summary, "AI System Type: Automated AI Bot")
	s.Require().NotNil(s.analyzer.last.ProjectID)
	s.Equal("proj-1", *s.analyzer.last.ProjectID)

	for _, r := range res.Risks {
		s.Equal(res.RiskAssessmentID, r.RiskAssessmentID)
		s.Equal("alice", r.CreatedBy)
		s.True(r.IsActive)
	}
	s.Require().NotNil(res.Risks[0].TargetDate)
	s.Nil(res.Risks[1].TargetDate)

	s.Equal("AC-001", res.Controls[0].Code)
	s.Equal(assessment.OwnerSecurity, res.Controls[0].Owner)
	s.Equal("AI-0001", res.Controls[1].Code)
	s.Equal(assessment.OwnerDataEngineering, res.Controls[1].Owner)

	blob, err := s.svc.Status(ctx, res.SessionID)
	s.Require().NoError(err)
	s.Equal(res.RiskAssessmentID, blob.RiskAssessmentID)
	s.Equal(assessment.UseCaseBot, blob.UseCaseType)
	s.Equal(1, assessment.CountTableLevels(blob.MarkdownTable).Critical)

	stored, err := s.svc.RisksBySession(ctx, res.SessionID)
	s.Require().NoError(err)
	s.Len(stored, 2)
	s.Equal(5, stored[0].Severity)
}

func (s *ServiceTestSuite) TestProcess_UsesAnalysisIdentifier() {
	resp := agentResponse()
	resp.RiskAssessmentID = "RC-1234ABCD"
	s.analyzer.outcome = aiapp.Outcome{Response: resp}

	res, err := s.svc.Process(context.Background(), ProcessCommand{Responses: Answers{}}, "bob")
	s.Require().NoError(err)
	s.Equal("RC-1234ABCD", res.RiskAssessmentID)
}

func (s *ServiceTestSuite) TestProcess_Fallback() {
	s.analyzer.outcome = aiapp.Outcome{Response: ai.FallbackResponse(), Fallback: true, Reason: "timed out"}

	res, err := s.svc.Process(context.Background(), ProcessCommand{Responses: Answers{"1": "x"}}, "bob")
	s.Require().NoError(err)
	s.True(res.Fallback)
	s.Equal("timed out", res.FallbackReason)
	s.Equal(3, res.RisksCount)
	s.Equal(3, res.ControlsCount)
	s.Equal("Questionnaire processed successfully (fallback mode)", res.Message)
	s.Equal(assessment.DerivedFromSession(res.SessionID), res.RiskAssessmentID)
}

func (s *ServiceTestSuite) TestProcess_NilResponsesIsValidationError() {
	_, err := s.svc.Process(context.Background(), ProcessCommand{}, "bob")
	s.ErrorIs(err, assessment.ErrValidation)
	s.Equal(0, s.analyzer.calls)
}

func (s *ServiceTestSuite) TestProcess_StorageFailureWritesNothing() {
	s.store.FailNextSave = true
	_, err := s.svc.Process(context.Background(), ProcessCommand{Responses: Answers{}}, "bob")
	s.ErrorIs(err, assessment.ErrStorage)

	page, err := s.svc.ListResults(context.Background(), "", assessment.PageRequest{})
	s.Require().NoError(err)
	s.Zero(page.Total)
}

func (s *ServiceTestSuite) TestProcess_ArchivesMatrices() {
	artifacts := &fakeArtifacts{}
	s.svc.Artifacts = artifacts

	res, err := s.svc.Process(context.Background(), ProcessCommand{Responses: Answers{}}, "bob")
	s.Require().NoError(err)
	s.Require().Len(artifacts.keys, 1)

	blob, err := s.svc.Status(context.Background(), res.SessionID)
	s.Require().NoError(err)
	s.Contains(blob.ArtifactURL, res.RiskAssessmentID)
}

func (s *ServiceTestSuite) TestProcess_FailedSaveArchivesNothing() {
	artifacts := &fakeArtifacts{}
	s.svc.Artifacts = artifacts
	s.store.FailNextSave = true

	_, err := s.svc.Process(context.Background(), ProcessCommand{Responses: Answers{}}, "bob")
	s.ErrorIs(err, assessment.ErrStorage)
	s.Empty(artifacts.keys)
}

func (s *ServiceTestSuite) TestProcess_ArchiveFailureIsNotFatal() {
	s.svc.Artifacts = &fakeArtifacts{err: errors.New("bucket gone")}

	res, err := s.svc.Process(context.Background(), ProcessCommand{Responses: Answers{}}, "bob")
	s.Require().NoError(err)

	blob, err := s.svc.Status(context.Background(), res.SessionID)
	s.Require().NoError(err)
	s.Empty(blob.ArtifactURL)
}

func (s *ServiceTestSuite) TestStoreRisks_SequentialIdentifiers() {
	ctx := context.Background()
	parsed := []assessment.ParsedRisk{{RiskName: "Bias", RiskOwner: assessment.OwnerCompliance, Severity: 2}}

	first, err := s.svc.StoreRisks(ctx, StoreRisksCommand{SessionID: "s1", ParsedRisks: parsed}, "alice")
	s.Require().NoError(err)
	s.Equal("R-001", first.RiskAssessmentID)

	second, err := s.svc.StoreRisks(ctx, StoreRisksCommand{SessionID: "s2", ParsedRisks: parsed}, "alice")
	s.Require().NoError(err)
	s.Equal("R-002", second.RiskAssessmentID)
}

func (s *ServiceTestSuite) TestStoreRisks_WithSequenceAllocator() {
	seq := &fakeSequence{}
	s.svc.Sequence = seq
	parsed := []assessment.ParsedRisk{{RiskName: "Bias", RiskOwner: assessment.OwnerCompliance, Severity: 2}}

	_, err := s.svc.StoreRisks(context.Background(), StoreRisksCommand{SessionID: "s1", AssessmentID: "R-041", ParsedRisks: parsed}, "a")
	s.Require().NoError(err)
	res, err := s.svc.StoreRisks(context.Background(), StoreRisksCommand{SessionID: "s2", ParsedRisks: parsed}, "a")
	s.Require().NoError(err)

	s.Equal([]int{41}, seq.floors)
	s.Equal("R-042", res.RiskAssessmentID)
}

func (s *ServiceTestSuite) TestStoreRisks_DuplicateIdentifierAcrossSessions() {
	ctx := context.Background()
	parsed := []assessment.ParsedRisk{{RiskName: "Bias", RiskOwner: assessment.OwnerCompliance, Severity: 2}}

	_, err := s.svc.StoreRisks(ctx, StoreRisksCommand{SessionID: "s1", AssessmentID: "R-007", ParsedRisks: parsed}, "a")
	s.Require().NoError(err)
	_, err = s.svc.StoreRisks(ctx, StoreRisksCommand{SessionID: "s2", AssessmentID: "R-007", ParsedRisks: parsed}, "a")
	s.ErrorIs(err, assessment.ErrDuplicateIdentifier)

	again, err := s.svc.StoreRisks(ctx, StoreRisksCommand{SessionID: "s1", AssessmentID: "R-007", ParsedRisks: parsed}, "a")
	s.Require().NoError(err)
	s.Equal("R-007", again.RiskAssessmentID)
}

func (s *ServiceTestSuite) TestStoreRisks_Validation() {
	ctx := context.Background()

	_, err := s.svc.StoreRisks(ctx, StoreRisksCommand{}, "a")
	s.ErrorIs(err, assessment.ErrEmptyInput)
	s.True(assessment.IsValidation(err))

	_, err = s.svc.StoreRisks(ctx, StoreRisksCommand{ParsedRisks: []assessment.ParsedRisk{
		{RiskName: "ok", RiskOwner: "x", Severity: 3},
		{RiskName: "bad", RiskOwner: "x", Severity: 6},
	}}, "a")
	s.ErrorIs(err, assessment.ErrValidation)

	last, err := s.store.LastSequentialID(ctx)
	s.Require().NoError(err)
	s.Empty(last, "nothing claimed when validation fails")

	_, err = s.svc.StoreRisks(ctx, StoreRisksCommand{AssessmentID: "X-1", ParsedRisks: []assessment.ParsedRisk{{RiskName: "ok", RiskOwner: "x", Severity: 3}}}, "a")
	s.ErrorIs(err, assessment.ErrValidation)
}

func (s *ServiceTestSuite) TestStoreControls_DropsHeaderRow() {
	res, err := s.svc.StoreControls(context.Background(), StoreControlsCommand{
		SessionID: "abcdef1234",
		ParsedControls: []assessment.ParsedControl{
			{Code: "CODE", Control: "CONTROL"},
			{Code: "DM-001", Control: "Data minimisation"},
		},
	}, "a")
	s.Require().NoError(err)
	s.Equal("RC-ABCDEF12", res.RiskAssessmentID)
	s.Equal(1, res.ControlsCount)
	s.Equal("DM-001", res.Controls[0].Code)
	s.Equal(assessment.OwnerCompliance, res.Controls[0].Owner)
}

func (s *ServiceTestSuite) TestStoreControls_HeaderOnlyIsEmpty() {
	_, err := s.svc.StoreControls(context.Background(), StoreControlsCommand{
		SessionID:      "abc",
		ParsedControls: []assessment.ParsedControl{{Code: "AC-001", Control: "real but first"}},
	}, "a")
	s.ErrorIs(err, assessment.ErrEmptyInput)

	rows, err := s.svc.ControlsBySession(context.Background(), "abc")
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *ServiceTestSuite) TestUpdateAndDeleteRisk() {
	ctx := context.Background()
	res, err := s.svc.StoreRisks(ctx, StoreRisksCommand{SessionID: "s1", ProjectID: "p", ParsedRisks: []assessment.ParsedRisk{
		{RiskName: "Bias", RiskOwner: assessment.OwnerCompliance, Severity: 2},
	}}, "a")
	s.Require().NoError(err)
	id := res.Risks[0].ID

	bad := 7
	_, err = s.svc.UpdateRisk(ctx, id, assessment.RiskUpdate{Severity: &bad})
	s.ErrorIs(err, assessment.ErrValidation)

	sev := 4
	updated, err := s.svc.UpdateRisk(ctx, id, assessment.RiskUpdate{Severity: &sev})
	s.Require().NoError(err)
	s.Equal(4, updated.Severity)
	s.Equal("Bias", updated.RiskName)

	s.Require().NoError(s.svc.DeleteRisk(ctx, id))
	s.ErrorIs(s.svc.DeleteRisk(ctx, id), assessment.ErrNotFound)
	_, err = s.svc.UpdateRisk(ctx, id, assessment.RiskUpdate{Severity: &sev})
	s.ErrorIs(err, assessment.ErrNotFound)

	page, err := s.svc.RisksByProject(ctx, "p", assessment.PageRequest{})
	s.Require().NoError(err)
	s.Zero(page.Total)

	byAssessment, err := s.svc.RisksByAssessment(ctx, res.RiskAssessmentID)
	s.Require().NoError(err)
	s.Empty(byAssessment)
	bySession, err := s.svc.RisksBySession(ctx, "s1")
	s.Require().NoError(err)
	s.Empty(bySession)
	listed, err := s.svc.ListRisks(ctx, assessment.RiskFilter{SessionID: "s1"}, assessment.PageRequest{})
	s.Require().NoError(err)
	s.Zero(listed.Total)

	all := s.store.AllRisks()
	s.Require().Len(all, 1)
	s.Equal(id, all[0].ID)
	s.False(all[0].IsActive)
	s.Equal(s.now, all[0].UpdatedAt)
}

func (s *ServiceTestSuite) TestUpdateAndDeleteControl() {
	ctx := context.Background()
	res, err := s.svc.StoreControls(ctx, StoreControlsCommand{SessionID: "s9", ProjectID: "p", ParsedControls: []assessment.ParsedControl{
		{}, {Code: "SC-001", Control: "Encrypt", Status: "Planned"},
	}}, "a")
	s.Require().NoError(err)
	id := res.Controls[0].ID

	status := "Implemented"
	updated, err := s.svc.UpdateControl(ctx, id, assessment.ControlUpdate{Status: &status})
	s.Require().NoError(err)
	s.Equal("Implemented", updated.Status)

	page, err := s.svc.ControlsByProject(ctx, "p", assessment.PageRequest{Status: "implemented"})
	s.Require().NoError(err)
	s.EqualValues(1, page.Total)

	s.Require().NoError(s.svc.DeleteControl(ctx, id))
	_, err = s.svc.UpdateControl(ctx, id, assessment.ControlUpdate{Status: &status})
	s.ErrorIs(err, assessment.ErrNotFound)

	byAssessment, err := s.svc.ControlsByAssessment(ctx, res.RiskAssessmentID)
	s.Require().NoError(err)
	s.Empty(byAssessment)
	bySession, err := s.svc.ControlsBySession(ctx, "s9")
	s.Require().NoError(err)
	s.Empty(bySession)
	active, err := s.svc.AllControls(ctx)
	s.Require().NoError(err)
	s.Empty(active)

	all := s.store.AllControls()
	s.Require().Len(all, 1)
	s.False(all[0].IsActive)
	s.Equal("Implemented", all[0].Status)
}

func (s *ServiceTestSuite) TestRisksByProject_PageBeyondRange() {
	ctx := context.Background()
	_, err := s.svc.StoreRisks(ctx, StoreRisksCommand{SessionID: "s", ProjectID: "p", ParsedRisks: []assessment.ParsedRisk{
		{RiskName: "r", RiskOwner: "o", Severity: 2},
	}}, "a")
	s.Require().NoError(err)

	s.NotPanics(func() {
		page, err := s.svc.RisksByProject(ctx, "p", assessment.PageRequest{Page: math.MaxInt, PageSize: 20})
		s.Require().NoError(err)
		s.Empty(page.Data)
		s.EqualValues(1, page.Total)
	})
}

func (s *ServiceTestSuite) TestListRisks() {
	ctx := context.Background()
	_, err := s.svc.StoreRisks(ctx, StoreRisksCommand{SessionID: "s1", ProjectID: "p1", ParsedRisks: []assessment.ParsedRisk{
		{RiskName: "Bias", RiskOwner: assessment.OwnerCompliance, Severity: 4, Justification: "Skewed training data"},
		{RiskName: "Leak", RiskOwner: assessment.OwnerSecurity, Severity: 5},
	}}, "a")
	s.Require().NoError(err)
	_, err = s.svc.StoreRisks(ctx, StoreRisksCommand{SessionID: "s2", ProjectID: "p2", ParsedRisks: []assessment.ParsedRisk{
		{RiskName: "Drift", RiskOwner: assessment.OwnerDataEngineering, Severity: 4},
	}}, "a")
	s.Require().NoError(err)

	page, err := s.svc.ListRisks(ctx, assessment.RiskFilter{}, assessment.PageRequest{Severity: 4})
	s.Require().NoError(err)
	s.EqualValues(2, page.Total)

	page, err = s.svc.ListRisks(ctx, assessment.RiskFilter{ProjectID: "p1"}, assessment.PageRequest{Search: "SKEWED"})
	s.Require().NoError(err)
	s.Require().Len(page.Data, 1)
	s.Equal("Bias", page.Data[0].RiskName)

	_, err = s.svc.ListRisks(ctx, assessment.RiskFilter{}, assessment.PageRequest{Severity: 6})
	s.ErrorIs(err, assessment.ErrValidation)
}

func (s *ServiceTestSuite) TestUpdateResult() {
	ctx := context.Background()
	r, err := s.svc.CreateResult(ctx, CreateResultCommand{SessionID: "legacy-2", Summary: "draft"}, "a")
	s.Require().NoError(err)

	table := "| 1 | Leak | High |"
	url := "https://elsewhere"
	updated, err := s.svc.UpdateResult(ctx, r.ID, assessment.ResultUpdate{MarkdownTable: &table, ArtifactURL: &url})
	s.Require().NoError(err)
	s.Equal("draft", updated.Summary)
	s.Equal(table, updated.MarkdownTable)
	s.Empty(updated.ArtifactURL)

	_, err = s.svc.UpdateResult(ctx, r.ID, assessment.ResultUpdate{})
	s.ErrorIs(err, assessment.ErrValidation)

	s.Require().NoError(s.svc.DeleteResult(ctx, r.ID))
	summary := "final"
	_, err = s.svc.UpdateResult(ctx, r.ID, assessment.ResultUpdate{Summary: &summary})
	s.ErrorIs(err, assessment.ErrNotFound)
}

func (s *ServiceTestSuite) TestRisksByProject_Pagination() {
	ctx := context.Background()
	var parsed []assessment.ParsedRisk
	for i := 0; i < 25; i++ {
		parsed = append(parsed, assessment.ParsedRisk{RiskName: "r", RiskOwner: "o", Severity: 1 + i%5})
	}
	_, err := s.svc.StoreRisks(ctx, StoreRisksCommand{SessionID: "s", ProjectID: "p", ParsedRisks: parsed}, "a")
	s.Require().NoError(err)

	page, err := s.svc.RisksByProject(ctx, "p", assessment.PageRequest{Page: 2})
	s.Require().NoError(err)
	s.Len(page.Data, 5)
	s.EqualValues(25, page.Total)
	s.Equal(2, page.TotalPages)

	high, err := s.svc.RisksByProject(ctx, "p", assessment.PageRequest{Severity: 5})
	s.Require().NoError(err)
	s.EqualValues(5, high.Total)

	_, err = s.svc.RisksByProject(ctx, "p", assessment.PageRequest{Severity: 9})
	s.ErrorIs(err, assessment.ErrValidation)
}

func (s *ServiceTestSuite) TestResults_CRUD() {
	ctx := context.Background()
	r, err := s.svc.CreateResult(ctx, CreateResultCommand{SessionID: "legacy-1", Summary: "Fraud model", MarkdownTable: "| a | b | High |"}, "a")
	s.Require().NoError(err)

	_, err = s.svc.CreateResult(ctx, CreateResultCommand{SessionID: "legacy-1"}, "a")
	s.ErrorIs(err, assessment.ErrDuplicateSession)

	_, err = s.svc.CreateResult(ctx, CreateResultCommand{}, "a")
	s.ErrorIs(err, assessment.ErrValidation)

	page, err := s.svc.ListResults(ctx, "", assessment.PageRequest{Search: "FRAUD"})
	s.Require().NoError(err)
	s.EqualValues(1, page.Total)

	got, err := s.svc.GetResult(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal("legacy-1", got.SessionID)

	s.Require().NoError(s.svc.DeleteResult(ctx, r.ID))
	_, err = s.svc.GetResult(ctx, r.ID)
	s.ErrorIs(err, assessment.ErrNotFound)
}

func TestParseTargetDate(t *testing.T) {
	got := parseTargetDate("2025-06-30")
	require.NotNil(t, got)
	assert.Equal(t, 2025, got.Year())
	assert.Nil(t, parseTargetDate("Q3"))
	assert.Nil(t, parseTargetDate(""))
	assert.Nil(t, parseTargetDate("-"))
}

func TestCodes(t *testing.T) {
	seq := &SequenceCodes{}
	assert.Equal(t, "AI-0001", seq.Code("AI"))
	assert.Equal(t, "AI-0002", seq.Code("AI"))
	assert.Equal(t, "P-0001", seq.Code("P"))

	assert.Regexp(t, `^AI-\d{4}$`, RandomCodes{}.Code("AI"))
}
