package assessment

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Strategy is how an assessment identifier is produced.
type Strategy int

const (
	// StrategySequential reads the highest stored R-### and increments it.
	// Two concurrent callers can compute the same value; the registry's
	// primary key rejects the second claim with ErrDuplicateIdentifier.
	StrategySequential Strategy = iota + 1
	// StrategyDerivedFromSession builds RC-XXXXXXXX from the session token.
	StrategyDerivedFromSession
)

const (
	SequentialPrefix = "R-"
	DerivedPrefix    = "RC-"

	sequentialWidth = 3
	derivedLength   = 8
)

func (s Strategy) String() string {
	switch s {
	case StrategySequential:
		return "sequential"
	case StrategyDerivedFromSession:
		return "derived"
	default:
		return "unknown"
	}
}

// StrategyFor maps an assessment kind onto its identifier strategy.
func StrategyFor(kind Kind) Strategy {
	if kind == KindRisk {
		return StrategySequential
	}
	return StrategyDerivedFromSession
}

// NextSequential returns the identifier following last. An empty last means
// nothing has been stored yet.
func NextSequential(last string) (string, error) {
	if last == "" {
		return FormatSequential(1), nil
	}
	n, err := ParseSequential(last)
	if err != nil {
		return "", err
	}
	return FormatSequential(n + 1), nil
}

// ParseSequential extracts the numeric suffix of an R-### identifier.
func ParseSequential(id string) (int, error) {
	if !strings.HasPrefix(id, SequentialPrefix) {
		return 0, fmt.Errorf("%w: %q is not a sequential assessment id", ErrValidation, id)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, SequentialPrefix))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q has a non-numeric suffix", ErrValidation, id)
	}
	return n, nil
}

// FormatSequential renders n as R-### (wider once past 999).
func FormatSequential(n int) string {
	return fmt.Sprintf("%s%0*d", SequentialPrefix, sequentialWidth, n)
}

// DerivedFromSession builds the RC- identifier from the first eight
// characters of the session token.
func DerivedFromSession(sessionID string) string {
	s := []rune(sessionID)
	if len(s) > derivedLength {
		s = s[:derivedLength]
	}
	return DerivedPrefix + strings.ToUpper(string(s))
}

// ValidIdentifier reports whether id has one of the two accepted shapes.
func ValidIdentifier(id string) bool {
	switch {
	case strings.HasPrefix(id, DerivedPrefix):
		rest := strings.TrimPrefix(id, DerivedPrefix)
		return rest != "" && utf8.ValidString(rest) && utf8.RuneCountInString(rest) <= derivedLength && rest == strings.ToUpper(rest)
	case strings.HasPrefix(id, SequentialPrefix):
		_, err := ParseSequential(id)
		return err == nil
	default:
		return false
	}
}
