package assessment

import (
	"fmt"
	"strings"
)

const (
	cellSeparator   = "|"
	headerSeparator = "---"
)

// IsTableRow reports whether a markdown line is a data or header row,
// i.e. it has a column separator and is not the |---|---| divider.
func IsTableRow(line string) bool {
	return strings.Contains(line, cellSeparator) && !strings.Contains(line, headerSeparator)
}

// SplitCells splits a table row on the separator and drops cells that are
// empty once trimmed. Remaining cells are trimmed.
func SplitCells(line string) []string {
	parts := strings.Split(line, cellSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ClassifyRow returns the level of a table line using its third non-empty
// cell. Lines that are not rows, have fewer than three cells or carry no
// level keyword yield LevelNone.
func ClassifyRow(line string) Level {
	if !IsTableRow(line) {
		return LevelNone
	}
	cells := SplitCells(line)
	if len(cells) < 3 {
		return LevelNone
	}
	return ClassifyCell(cells[2])
}

// CountTableLevels classifies every row of a markdown table.
func CountTableLevels(table string) LevelCounts {
	var c LevelCounts
	for _, line := range strings.Split(table, "\n") {
		c.Add(ClassifyRow(line))
	}
	return c
}

// RowCountHeuristic is the number of table rows minus the header. It is
// best-effort and can be negative or wrong for malformed tables.
func RowCountHeuristic(table string) int {
	if table == "" {
		return 0
	}
	n := 0
	for _, line := range strings.Split(table, "\n") {
		if IsTableRow(line) {
			n++
		}
	}
	return n - 1
}

// RenderRiskTable renders risks in the canonical blob layout whose third
// column is the level keyword.
func RenderRiskTable(risks []*Risk) string {
	var sb strings.Builder
	sb.WriteString("| ID | Risk | Level | Severity | Owner | Mitigation |\n")
	sb.WriteString("|----|------|-------|----------|-------|------------|\n")
	for i, r := range risks {
		fmt.Fprintf(&sb, "| %d | %s | %s | %d | %s | %s |\n",
			i+1,
			escapeCell(r.RiskName),
			LevelForSeverity(r.Severity),
			r.Severity,
			escapeCell(r.RiskOwner),
			escapeCell(r.Mitigation),
		)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, cellSeparator, "/")
	for strings.Contains(s, headerSeparator) {
		s = strings.ReplaceAll(s, headerSeparator, "--")
	}
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
