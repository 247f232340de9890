package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

const (
	riskColumns    = 6
	controlColumns = 6

	defaultSeverity    = 3
	defaultRelatedRisk = "General"
	keywordsPerRisk    = 3
)

// dataLines returns the non-separator table lines, header included.
func dataLines(table string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(table), "\n") {
		t := strings.TrimSpace(line)
		if t == "" || !strings.Contains(t, "|") || isSeparator(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func isSeparator(line string) bool {
	return strings.Trim(line, "|-: ") == "" && strings.Contains(line, "-")
}

// ParseRiskTable reads | Risk | Owner | Severity | Justification | Mitigation | Target Date |
// rows. The header is skipped, rows with fewer columns are ignored and a
// non-numeric severity becomes 3.
func ParseRiskTable(table, assessmentID string) []assessment.ParsedRisk {
	lines := dataLines(table)
	if len(lines) > 1 {
		lines = lines[1:]
	}
	var out []assessment.ParsedRisk
	for idx, line := range lines {
		cells := assessment.SplitCells(line)
		if len(cells) < riskColumns {
			continue
		}
		out = append(out, assessment.ParsedRisk{
			RiskID:           fmt.Sprintf("RISK-%s-%03d", assessmentID, idx+1),
			RiskAssessmentID: assessmentID,
			RiskName:         cells[0],
			RiskOwner:        cells[1],
			Severity:         parseSeverity(cells[2]),
			Justification:    cells[3],
			Mitigation:       cells[4],
			TargetDate:       cells[5],
		})
	}
	return out
}

func parseSeverity(cell string) int {
	for _, r := range cell {
		if r < '0' || r > '9' {
			return defaultSeverity
		}
	}
	n, err := strconv.Atoi(cell)
	if err != nil {
		return defaultSeverity
	}
	return n
}

// ParseControlTable reads | CODE | SECTION | CONTROL | REQUIREMENTS | STATUS | TICKETS |
// rows. The first element of the result is always the table's header row so
// consumers can drop it with assessment.DropHeaderRow. Each control is linked
// to the first risk sharing one of its first three name words.
func ParseControlTable(table, assessmentID string, risks []assessment.ParsedRisk) []assessment.ParsedControl {
	lines := dataLines(table)
	if len(lines) == 0 {
		return nil
	}
	out := []assessment.ParsedControl{headerControl(lines[0])}

	counter := 1
	for _, line := range lines[1:] {
		cells := assessment.SplitCells(line)
		if len(cells) < controlColumns {
			continue
		}
		out = append(out, assessment.ParsedControl{
			ControlID:        fmt.Sprintf("CTRL-%s-%03d", assessmentID, counter),
			RiskAssessmentID: assessmentID,
			Code:             cells[0],
			Section:          cells[1],
			Control:          cells[2],
			Requirements:     cells[3],
			Status:           cells[4],
			Tickets:          cells[5],
			RelatedRisk:      relatedRisk(cells[2], cells[3], risks),
		})
		counter++
	}
	return out
}

func headerControl(line string) assessment.ParsedControl {
	cells := assessment.SplitCells(line)
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	return assessment.ParsedControl{
		Code:         get(0),
		Section:      get(1),
		Control:      get(2),
		Requirements: get(3),
		Status:       get(4),
		Tickets:      get(5),
	}
}

func relatedRisk(control, requirements string, risks []assessment.ParsedRisk) string {
	control = strings.ToLower(control)
	requirements = strings.ToLower(requirements)
	for _, r := range risks {
		words := strings.Fields(strings.ToLower(r.RiskName))
		if len(words) > keywordsPerRisk {
			words = words[:keywordsPerRisk]
		}
		for _, w := range words {
			if strings.Contains(control, w) || strings.Contains(requirements, w) {
				return r.RiskName
			}
		}
	}
	return defaultRelatedRisk
}
