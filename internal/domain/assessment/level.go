package assessment

import "strings"

// Level is a coarse risk level bucket.
type Level string

const (
	LevelNone     Level = ""
	LevelCritical Level = "Critical"
	LevelHigh     Level = "High"
	LevelMedium   Level = "Medium"
	LevelLow      Level = "Low"
)

// Levels in classification priority order.
var Levels = []Level{LevelCritical, LevelHigh, LevelMedium, LevelLow}

// LevelCounts value object
type LevelCounts struct {
	Critical int `json:"Critical"`
	High     int `json:"High"`
	Medium   int `json:"Medium"`
	Low      int `json:"Low"`
}

// Add increments the bucket for l. LevelNone is ignored.
func (c *LevelCounts) Add(l Level) {
	switch l {
	case LevelCritical:
		c.Critical++
	case LevelHigh:
		c.High++
	case LevelMedium:
		c.Medium++
	case LevelLow:
		c.Low++
	}
}

// Get returns the count of one bucket.
func (c LevelCounts) Get(l Level) int {
	switch l {
	case LevelCritical:
		return c.Critical
	case LevelHigh:
		return c.High
	case LevelMedium:
		return c.Medium
	case LevelLow:
		return c.Low
	}
	return 0
}

// Total sums all buckets.
func (c LevelCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low
}

// ClassifyCell maps free text to a level by case-insensitive substring,
// first match wins in Critical > High > Medium > Low order.
// "medium/low" is Medium; "critical-high" is Critical.
func ClassifyCell(cell string) Level {
	s := strings.ToLower(strings.TrimSpace(cell))
	if s == "" {
		return LevelNone
	}
	for _, l := range Levels {
		if strings.Contains(s, strings.ToLower(string(l))) {
			return l
		}
	}
	return LevelNone
}

// LevelForSeverity maps a 1..5 severity onto a level.
func LevelForSeverity(severity int) Level {
	switch {
	case severity >= 5:
		return LevelCritical
	case severity == 4:
		return LevelHigh
	case severity == 3:
		return LevelMedium
	case severity >= MinSeverity:
		return LevelLow
	default:
		return LevelNone
	}
}
