package recon

import (
	"fmt"

	"github.com/google/uuid"
)

// IDSource produces match-id suffixes. The default draws random UUIDs; tests
// substitute a seeded source so runs are reproducible.
type IDSource interface {
	Next() string
}

// UUIDSource is the production id source: the first 8 hex characters of a
// random UUID, matching the match-id convention.
type UUIDSource struct{}

func (UUIDSource) Next() string {
	return uuid.NewString()[:8]
}

// SequenceSource is a deterministic id source for tests and replays.
type SequenceSource struct {
	n int
}

func (s *SequenceSource) Next() string {
	s.n++
	return fmt.Sprintf("%08d", s.n)
}

// MatchID formats a match id as {FAMILY}_{rule}_{suffix}.
func MatchID(familyLabel string, rule int, src IDSource) string {
	return fmt.Sprintf("%s_%d_%s", familyLabel, rule, src.Next())
}
