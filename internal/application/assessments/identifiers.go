package assessments

import (
	"context"
	"fmt"

	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
)

// nextIdentifier produces a fresh assessment identifier for kind. The
// sequential strategy reads the highest stored R-### and, when a Sequence
// allocator is configured, lets it hand out the number atomically.
func (s *Service) nextIdentifier(ctx context.Context, kind assessment.Kind, sessionID string) (string, error) {
	switch assessment.StrategyFor(kind) {
	case assessment.StrategySequential:
		last, err := s.Repo.LastSequentialID(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: read last assessment id: %v", assessment.ErrStorage, err)
		}
		if s.Sequence == nil {
			return assessment.NextSequential(last)
		}
		floor := 0
		if last != "" {
			if floor, err = assessment.ParseSequential(last); err != nil {
				return "", err
			}
		}
		n, err := s.Sequence.Next(ctx, floor)
		if err != nil {
			return "", fmt.Errorf("%w: allocate assessment id: %v", assessment.ErrStorage, err)
		}
		return assessment.FormatSequential(n), nil
	default:
		return assessment.DerivedFromSession(sessionID), nil
	}
}
