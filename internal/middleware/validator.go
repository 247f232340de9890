package middleware

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

// Input validation and sanitization utilities

var (
	idPattern      = regexp.MustCompile(`^[a-zA-Z0-9_.:-]{1,128}$`)
	severityValues = map[string]int{"1": 1, "2": 2, "3": 3, "4": 4, "5": 5}
)

// ValidateID checks session, project and record identifiers taken from the URL.
func ValidateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s cannot be empty", assessment.ErrValidation, kind)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: invalid %s format", assessment.ErrValidation, kind)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return assessment.DefaultPageSize
	}
	if limit > assessment.MaxPageSize {
		return assessment.MaxPageSize
	}
	return limit
}

// ParsePage reads page and limit query values; malformed values fall back
// to the defaults.
func ParsePage(page, limit string) assessment.PageRequest {
	p, _ := strconv.Atoi(page)
	l, _ := strconv.Atoi(limit)
	if p <= 0 {
		p = 1
	}
	return assessment.PageRequest{Page: p, PageSize: ValidateLimit(l)}
}

// ParseSeverity accepts "", or 1..5.
func ParseSeverity(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, ok := severityValues[strings.TrimSpace(s)]
	if !ok {
		return 0, fmt.Errorf("%w: severity must be between 1 and 5", assessment.ErrValidation)
	}
	return v, nil
}
