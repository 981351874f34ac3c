package recon

import (
	"fmt"

	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/pkg/logging"
)

// Rule is one matcher in a family's sequence. Find inspects the pool,
// commits the matches it accepts and returns them. A rule either matches a
// trade or leaves it; it never reserves trades across calls.
type Rule interface {
	Number() int
	Name() string
	Find(pool *UnmatchedPool) []model.MatchResult
}

// Engine drives an ordered rule sequence over one pool. Given the same pool
// contents and rules it produces the same match list in the same order.
type Engine struct {
	rules []Rule
	log   *logging.Logger
}

// NewEngine builds an engine. The rules slice is already in rule_order.
func NewEngine(rules []Rule, log *logging.Logger) *Engine {
	return &Engine{rules: rules, log: log}
}

// Run invokes each rule in order against the live pool and collects the
// produced matches. Verification of the disjointness invariant is cheap and
// catches rule bugs early, so it runs on every call.
func (e *Engine) Run(pool *UnmatchedPool) ([]model.MatchResult, error) {
	var matches []model.MatchResult
	seenTrader := make(map[string]bool)
	seenExchange := make(map[string]bool)

	for _, rule := range e.rules {
		found := rule.Find(pool)
		for _, m := range found {
			for _, id := range m.TraderIDs() {
				if seenTrader[id] {
					return nil, fmt.Errorf("%w: trader id %s matched twice (rule %d)",
						ErrInvariant, id, rule.Number())
				}
				seenTrader[id] = true
				if pool.IsAvailable(id, model.SourceTrader) {
					return nil, fmt.Errorf("%w: trader id %s matched but still available (rule %d)",
						ErrInvariant, id, rule.Number())
				}
			}
			for _, id := range m.ExchangeIDs() {
				if seenExchange[id] {
					return nil, fmt.Errorf("%w: exchange id %s matched twice (rule %d)",
						ErrInvariant, id, rule.Number())
				}
				seenExchange[id] = true
				if pool.IsAvailable(id, model.SourceExchange) {
					return nil, fmt.Errorf("%w: exchange id %s matched but still available (rule %d)",
						ErrInvariant, id, rule.Number())
				}
			}
		}
		if e.log != nil && len(found) > 0 {
			e.log.Debug("rule pass complete", "rule", rule.Number(), "name", rule.Name(), "matches", len(found))
		}
		matches = append(matches, found...)
	}
	return matches, nil
}
