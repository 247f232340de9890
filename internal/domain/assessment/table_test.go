package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyCell(t *testing.T) {
	assert.Equal(t, LevelCritical, ClassifyCell("Critical"))
	assert.Equal(t, LevelCritical, ClassifyCell("critical / high"))
	assert.Equal(t, LevelHigh, ClassifyCell(" HIGH "))
	assert.Equal(t, LevelMedium, ClassifyCell("medium/low"))
	assert.Equal(t, LevelLow, ClassifyCell("low"))
	assert.Equal(t, LevelNone, ClassifyCell("4"))
	assert.Equal(t, LevelNone, ClassifyCell(""))
}

func TestClassifyRow(t *testing.T) {
	assert.Equal(t, LevelCritical, ClassifyRow("| R-1 | desc | Critical | owner |"))
	assert.Equal(t, LevelMedium, ClassifyRow("| R-2 | desc | medium/low | owner |"))
	assert.Equal(t, LevelNone, ClassifyRow("|----|------|-------|"))
	assert.Equal(t, LevelNone, ClassifyRow("| a | b |"))
	assert.Equal(t, LevelNone, ClassifyRow("no separators here, critical"))
	// empty cells are dropped before picking the third one
	assert.Equal(t, LevelHigh, ClassifyRow("| R-3 |  | desc | | High |"))
}

func TestCountTableLevels(t *testing.T) {
	table := "| ID | Risk | Level |\n" +
		"|----|------|-------|\n" +
		"| 1 | a | Critical |\n" +
		"| 2 | b | High |\n" +
		"| 3 | c | high |\n" +
		"| 4 | d | unknown |\n" +
		"| 5 | e | Low |"
	c := CountTableLevels(table)
	assert.Equal(t, LevelCounts{Critical: 1, High: 2, Medium: 0, Low: 1}, c)
	assert.Equal(t, 4, c.Total())
}

func TestRowCountHeuristic(t *testing.T) {
	assert.Equal(t, 0, RowCountHeuristic(""))
	assert.Equal(t, 2, RowCountHeuristic("| h |\n|---|\n| a |\n| b |"))
	assert.Equal(t, -1, RowCountHeuristic("no table"))
}

func TestRenderRiskTable_RoundTripsLevels(t *testing.T) {
	risks := []*Risk{
		{RiskName: "Data leakage", RiskOwner: OwnerSecurity, Severity: 5, Mitigation: "Encrypt | mask"},
		{RiskName: "Model drift", RiskOwner: OwnerDataEngineering, Severity: 3},
		{RiskName: "Audit gaps", RiskOwner: OwnerCompliance, Severity: 1, Mitigation: "a---b"},
	}
	table := RenderRiskTable(risks)

	assert.Equal(t, LevelCounts{Critical: 1, Medium: 1, Low: 1}, CountTableLevels(table))
	assert.Equal(t, 3, RowCountHeuristic(table))
	assert.Contains(t, table, "Encrypt / mask")
}

func TestLevelForSeverity(t *testing.T) {
	assert.Equal(t, LevelCritical, LevelForSeverity(5))
	assert.Equal(t, LevelHigh, LevelForSeverity(4))
	assert.Equal(t, LevelMedium, LevelForSeverity(3))
	assert.Equal(t, LevelLow, LevelForSeverity(2))
	assert.Equal(t, LevelLow, LevelForSeverity(1))
	assert.Equal(t, LevelNone, LevelForSeverity(0))
}
