package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
	"github.com/bryanwahyu/automaton-risk/internal/infra/db/memory"
)

func seedBlob(t *testing.T, results assessment.ResultRepository, id, session, project, table string, at time.Time) {
	t.Helper()
	require.NoError(t, results.Create(context.Background(), &assessment.Result{
		ID:            id,
		SessionID:     session,
		ProjectID:     project,
		MarkdownTable: table,
		IsActive:      true,
		CreatedAt:     at,
	}))
}

func TestSummarize_BlobPath(t *testing.T) {
	store := memory.New()
	_, risks, _, results := store.Repos()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	table := "| ID | Risk | Level |\n|---|---|---|\n| 1 | Leak | Critical |\n| 2 | Drift | High |\n| 3 | Typos | low |\n| 4 | Misc | n/a |"
	seedBlob(t, results, "b1", "s1", "p1", table, base)
	seedBlob(t, results, "b2", "s2", "p1", "", base.Add(time.Hour))

	svc := &Service{Results: results, Risks: risks}
	st, err := svc.Summarize(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, assessment.LevelCounts{Critical: 1, High: 1, Low: 1}, st.RiskLevels)
	assert.Equal(t, 3, st.TotalRisks)
	assert.Equal(t, assessment.LevelCounts{Critical: 33, High: 33, Low: 33}, st.Percentages)
	assert.Equal(t, 1, st.TotalAssessments)
	assert.Equal(t, Summary{TotalAssessments: 2, CompletedAssessments: 1, PendingAssessments: 1}, st.Summary)

	require.Len(t, st.RecentAssessments, 2)
	assert.Equal(t, "b2", st.RecentAssessments[0].ID)
	assert.Equal(t, 0, st.RecentAssessments[0].RiskCount)
	assert.Equal(t, 4, st.RecentAssessments[1].RiskCount)
	assert.Equal(t, "Unknown", st.RecentAssessments[1].CreatedBy)
}

func TestSummarize_RecordPathSkipsSessionsWithBlobs(t *testing.T) {
	store := memory.New()
	repo, risks, _, results := store.Repos()
	ctx := context.Background()
	now := time.Now().UTC()

	seedBlob(t, results, "b1", "s-blob", "", "| 1 | x | Medium |", now)

	batch := func(id, session string, sevs ...int) {
		b := &assessment.Batch{AssessmentID: id, SessionID: session}
		for i, sev := range sevs {
			b.Risks = append(b.Risks, &assessment.Risk{
				ID: fmt.Sprintf("%s-%d", id, i), RiskAssessmentID: id, SessionID: session,
				RiskName: "r", RiskOwner: "o", Severity: sev, IsActive: true, CreatedAt: now,
			})
		}
		require.NoError(t, repo.SaveBatch(ctx, b))
	}
	batch("R-001", "s-records", 5, 4, 2)
	batch("RC-SBLOB", "s-blob", 5, 5)

	st, err := (&Service{Results: results, Risks: risks}).Summarize(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, assessment.LevelCounts{Critical: 1, High: 1, Medium: 1, Low: 1}, st.RiskLevels)
	assert.Equal(t, 2, st.TotalAssessments)
	assert.Equal(t, Summary{TotalAssessments: 2, CompletedAssessments: 2}, st.Summary)
}

func TestSummarize_Empty(t *testing.T) {
	store := memory.New()
	_, risks, _, results := store.Repos()

	st, err := (&Service{Results: results, Risks: risks}).Summarize(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, st.TotalRisks)
	assert.Equal(t, assessment.LevelCounts{}, st.Percentages)
	assert.NotNil(t, st.RecentAssessments)
}

func TestSummarize_RecentIsCappedAtFive(t *testing.T) {
	store := memory.New()
	_, _, _, results := store.Repos()
	base := time.Now().UTC()
	for i := 0; i < 7; i++ {
		seedBlob(t, results, fmt.Sprintf("b%d", i), fmt.Sprintf("s%d", i), "", "| a | b | High |", base.Add(time.Duration(i)*time.Minute))
	}

	st, err := (&Service{Results: results}).Summarize(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, st.RecentAssessments, RecentLimit)
	assert.Equal(t, "b6", st.RecentAssessments[0].ID)
	assert.Equal(t, 7, st.RiskLevels.High)
}

func TestPercentages_NotRenormalised(t *testing.T) {
	p := Percentages(assessment.LevelCounts{Critical: 1, High: 1, Medium: 1})
	assert.Equal(t, 33, p.Critical)
	assert.Equal(t, 99, p.Critical+p.High+p.Medium+p.Low)
}
