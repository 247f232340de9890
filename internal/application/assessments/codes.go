package assessments

import (
	"fmt"
	"math/rand"
	"sync"
)

// DefaultControlCodePrefix is used for controls the analysis left without a code.
const DefaultControlCodePrefix = "AI"

// RandomCodes draws four decimal digits per code, e.g. AI-0427.
// Collisions are possible and tolerated.
type RandomCodes struct{}

func (RandomCodes) Code(prefix string) string {
	return fmt.Sprintf("%s-%04d", prefix, rand.Intn(10000))
}

// SequenceCodes hands out PREFIX-0001, PREFIX-0002, ... per prefix.
type SequenceCodes struct {
	mu   sync.Mutex
	next map[string]int
}

func (s *SequenceCodes) Code(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == nil {
		s.next = make(map[string]int)
	}
	s.next[prefix]++
	return fmt.Sprintf("%s-%04d", prefix, s.next[prefix])
}
