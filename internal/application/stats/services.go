package stats

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
	"github.com/bryanwahyu/automaton-risk/internal/logging"
)

// RecentLimit is how many blobs recentAssessments lists.
const RecentLimit = 5

// Service aggregates risk levels across stored assessments.
type Service struct {
	Results assessment.ResultRepository
	Risks   assessment.RiskRepository
	Log     *logging.Logger
}

type Recent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
	// RiskCount is table lines minus one for the header; it can be off for
	// tables without a header or with multi-line cells.
	RiskCount int `json:"riskCount"`
}

type Summary struct {
	TotalAssessments     int `json:"totalAssessments"`
	CompletedAssessments int `json:"completedAssessments"`
	PendingAssessments   int `json:"pendingAssessments"`
}

type Stats struct {
	RiskLevels        assessment.LevelCounts `json:"riskLevels"`
	Percentages       assessment.LevelCounts `json:"percentages"`
	TotalRisks        int                    `json:"totalRisks"`
	TotalAssessments  int                    `json:"totalAssessments"`
	RecentAssessments []Recent               `json:"recentAssessments"`
	Summary           Summary                `json:"summary"`
}

// Summarize scans every active blob's markdown table and every active risk
// record that has no blob for its session. projectID "" means all projects.
func (s *Service) Summarize(ctx context.Context, projectID string) (Stats, error) {
	blobs, err := s.Results.ListActive(ctx, projectID)
	if err != nil {
		return Stats{}, fmt.Errorf("list results: %w", err)
	}

	var st Stats
	covered := make(map[string]bool, len(blobs))
	completed := 0
	for _, b := range blobs {
		covered[b.SessionID] = true
		if strings.TrimSpace(b.MarkdownTable) == "" {
			continue
		}
		completed++
		counts := assessment.CountTableLevels(b.MarkdownTable)
		for _, l := range assessment.Levels {
			for i := 0; i < counts.Get(l); i++ {
				st.RiskLevels.Add(l)
			}
		}
	}

	recordAssessments := 0
	if s.Risks != nil {
		rows, err := s.Risks.ListSeverities(ctx, projectID)
		if err != nil {
			return Stats{}, fmt.Errorf("list risk severities: %w", err)
		}
		seen := make(map[string]bool)
		for _, r := range rows {
			if covered[r.SessionID] {
				continue
			}
			level := assessment.LevelForSeverity(r.Severity)
			if level == assessment.LevelNone {
				continue
			}
			st.RiskLevels.Add(level)
			if !seen[r.RiskAssessmentID] {
				seen[r.RiskAssessmentID] = true
				recordAssessments++
			}
		}
	}

	st.TotalRisks = st.RiskLevels.Total()
	st.Percentages = Percentages(st.RiskLevels)
	st.TotalAssessments = completed + recordAssessments
	st.Summary = Summary{
		TotalAssessments:     len(blobs) + recordAssessments,
		CompletedAssessments: completed + recordAssessments,
		PendingAssessments:   len(blobs) - completed,
	}

	st.RecentAssessments = make([]Recent, 0, RecentLimit)
	for i, b := range blobs {
		if i == RecentLimit {
			break
		}
		st.RecentAssessments = append(st.RecentAssessments, Recent{
			ID:        b.ID,
			SessionID: b.SessionID,
			Summary:   b.Summary,
			CreatedAt: b.CreatedAt,
			CreatedBy: createdByOrUnknown(b.CreatedBy),
			RiskCount: assessment.RowCountHeuristic(b.MarkdownTable),
		})
	}

	logging.OrNop(s.Log).Debug("stats summarized", "project_id", projectID, "blobs", len(blobs), "total_risks", st.TotalRisks)
	return st, nil
}

// Percentages rounds each bucket's share independently, so the sum may be
// 99 or 101. All zero when there are no risks.
func Percentages(c assessment.LevelCounts) assessment.LevelCounts {
	total := c.Total()
	if total == 0 {
		return assessment.LevelCounts{}
	}
	pct := func(n int) int { return int(math.Round(float64(n) / float64(total) * 100)) }
	return assessment.LevelCounts{
		Critical: pct(c.Critical),
		High:     pct(c.High),
		Medium:   pct(c.Medium),
		Low:      pct(c.Low),
	}
}

func createdByOrUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
