// Package recon implements the matching core: the exclusive unmatched pool,
// the signature index and the sequential rule engine. A pool belongs to one
// partition and is never shared across goroutines.
package recon

import (
	"errors"

	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/pkg/logging"
)

// ErrInvariant signals a pool invariant violation. It indicates a programming
// error in a rule implementation and is fatal to the run.
var ErrInvariant = errors.New("pool invariant violation")

// AuditEntry records one accepted match: the ids withdrawn from each side and
// the rule that produced it. The audit log is append-only and its order is
// commit order.
type AuditEntry struct {
	TraderIDs   []string
	ExchangeIDs []string
	RuleNumber  int
}

// UnmatchedPool owns the set of still-available trades per side. Rules
// withdraw trades through Commit, which is all-or-nothing: either every id a
// match references is removed, or nothing changes.
type UnmatchedPool struct {
	trader   map[string]model.Trade
	exchange map[string]model.Trade

	originalTrader   int
	originalExchange int
	matchedTrader    int
	matchedExchange  int

	audit []AuditEntry
	log   *logging.Logger
}

// NewPool builds a pool over the partition's trade lists.
func NewPool(trader, exchange []model.Trade, log *logging.Logger) *UnmatchedPool {
	p := &UnmatchedPool{
		trader:           make(map[string]model.Trade, len(trader)),
		exchange:         make(map[string]model.Trade, len(exchange)),
		originalTrader:   len(trader),
		originalExchange: len(exchange),
		log:              log,
	}
	for _, t := range trader {
		p.trader[t.InternalTradeID] = t
	}
	for _, t := range exchange {
		p.exchange[t.InternalTradeID] = t
	}
	if log != nil {
		log.Debug("initialized pool", "trader", len(trader), "exchange", len(exchange))
	}
	return p
}

// Available returns a snapshot of the currently available trades on a side,
// sorted ascending by internal trade id so traversal order is deterministic.
func (p *UnmatchedPool) Available(source model.Source) []model.Trade {
	var m map[string]model.Trade
	if source == model.SourceTrader {
		m = p.trader
	} else {
		m = p.exchange
	}
	out := make([]model.Trade, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	model.SortTradesByID(out)
	return out
}

// IsAvailable reports whether a trade id is still in its side's pool.
func (p *UnmatchedPool) IsAvailable(id string, source model.Source) bool {
	if source == model.SourceTrader {
		_, ok := p.trader[id]
		return ok
	}
	_, ok := p.exchange[id]
	return ok
}

// Commit atomically withdraws every trade a match references. It succeeds
// only if all trader ids are present in the trader pool and all exchange ids
// in the exchange pool; on any absence it changes nothing and returns false.
// A false return is not an error: rules treat it as "candidate gone, try the
// next one".
func (p *UnmatchedPool) Commit(match model.MatchResult) bool {
	traderIDs := match.TraderIDs()
	exchangeIDs := match.ExchangeIDs()
	if len(traderIDs) == 0 || len(exchangeIDs) == 0 {
		return false
	}
	for _, id := range traderIDs {
		if _, ok := p.trader[id]; !ok {
			return false
		}
	}
	for _, id := range exchangeIDs {
		if _, ok := p.exchange[id]; !ok {
			return false
		}
	}
	// All present: stage is verified, apply in one step.
	for _, id := range traderIDs {
		delete(p.trader, id)
	}
	for _, id := range exchangeIDs {
		delete(p.exchange, id)
	}
	p.matchedTrader += len(traderIDs)
	p.matchedExchange += len(exchangeIDs)
	p.audit = append(p.audit, AuditEntry{
		TraderIDs:   append([]string(nil), traderIDs...),
		ExchangeIDs: append([]string(nil), exchangeIDs...),
		RuleNumber:  match.RuleNumber,
	})
	return true
}

// AuditLog returns the append-only withdrawal log in commit order.
func (p *UnmatchedPool) AuditLog() []AuditEntry {
	return append([]AuditEntry(nil), p.audit...)
}

// Stats summarizes the pool after (or during) a run.
type Stats struct {
	OriginalTrader    int
	OriginalExchange  int
	MatchedTrader     int
	MatchedExchange   int
	UnmatchedTrader   int
	UnmatchedExchange int
	TotalMatches      int

	TraderRate   float64
	ExchangeRate float64
	OverallRate  float64
}

// Stats computes counts and match rates. Per-side rates use the side's
// original count as denominator; the overall rate is the weighted average of
// the side rates, weighted by original counts.
func (p *UnmatchedPool) Stats() Stats {
	s := Stats{
		OriginalTrader:    p.originalTrader,
		OriginalExchange:  p.originalExchange,
		MatchedTrader:     p.matchedTrader,
		MatchedExchange:   p.matchedExchange,
		UnmatchedTrader:   len(p.trader),
		UnmatchedExchange: len(p.exchange),
		TotalMatches:      len(p.audit),
	}
	if p.originalTrader > 0 {
		s.TraderRate = float64(p.matchedTrader) / float64(p.originalTrader) * 100
	}
	if p.originalExchange > 0 {
		s.ExchangeRate = float64(p.matchedExchange) / float64(p.originalExchange) * 100
	}
	total := p.originalTrader + p.originalExchange
	if total > 0 {
		s.OverallRate = (s.TraderRate*float64(p.originalTrader) +
			s.ExchangeRate*float64(p.originalExchange)) / float64(total)
	}
	return s
}
