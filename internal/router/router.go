// Package router partitions the canonical trade stream by exchange group and
// dispatches each partition to its configured matching family. Partitions
// reconcile independently: each gets its own pool and rule sequence, so the
// only shared state is the read-only configuration.
package router

import (
	"fmt"
	"sort"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/recon"
	"github.com/straitsenergy/reconengine/internal/recon/rules"
	"github.com/straitsenergy/reconengine/internal/rule0"
	"github.com/straitsenergy/reconengine/pkg/logging"
)

// PartitionResult is the output of reconciling one partition.
type PartitionResult struct {
	GroupID int64
	Family  config.Family

	Matches           []model.MatchResult
	Stats             recon.Stats
	UnmatchedTrader   []model.Trade
	UnmatchedExchange []model.Trade
}

// PositionResult is the output of Rule 0 position analysis for a partition.
type PositionResult struct {
	GroupID int64
	Family  config.Family

	TraderMatrix   *rule0.PositionMatrix
	ExchangeMatrix *rule0.PositionMatrix
	Comparisons    []rule0.Comparison
	Summary        rule0.Summary
}

// Reconcile runs one partition through a family's rule sequence. Input
// trades must be canonical; violations fail fast.
func Reconcile(trader, exchange []model.Trade, fam *config.FamilyConfig,
	ids recon.IDSource, log *logging.Logger) (*PartitionResult, error) {

	for _, t := range trader {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("invalid trader trade: %w", err)
		}
	}
	for _, t := range exchange {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("invalid exchange trade: %w", err)
		}
	}

	famRules, err := rules.NewFamily(fam, ids, log)
	if err != nil {
		return nil, err
	}

	pool := recon.NewPool(trader, exchange, log)
	engine := recon.NewEngine(famRules, log)
	matches, err := engine.Run(pool)
	if err != nil {
		return nil, err
	}

	return &PartitionResult{
		Family:            fam.Family,
		Matches:           matches,
		Stats:             pool.Stats(),
		UnmatchedTrader:   pool.Available(model.SourceTrader),
		UnmatchedExchange: pool.Available(model.SourceExchange),
	}, nil
}

// PositionAnalysis builds both position matrices for a partition and
// compares them.
func PositionAnalysis(trader, exchange []model.Trade, fam *config.FamilyConfig) *PositionResult {
	tm := rule0.BuildMatrix(trader, model.SourceTrader, fam)
	em := rule0.BuildMatrix(exchange, model.SourceExchange, fam)
	comparisons := rule0.Compare(tm, em, fam)
	return &PositionResult{
		Family:         fam.Family,
		TraderMatrix:   tm,
		ExchangeMatrix: em,
		Comparisons:    comparisons,
		Summary:        rule0.Summarize(comparisons),
	}
}

// Router routes full trade streams through per-group reconciliation.
type Router struct {
	cfg *config.Config
	ids recon.IDSource
	log *logging.Logger
}

// New builds a router over a validated configuration.
func New(cfg *config.Config, ids recon.IDSource, log *logging.Logger) *Router {
	if ids == nil {
		ids = recon.UUIDSource{}
	}
	return &Router{cfg: cfg, ids: ids, log: log}
}

// partition holds one group's slice of the input.
type partition struct {
	groupID  int64
	trader   []model.Trade
	exchange []model.Trade
}

// Run partitions the input by exchange group id and reconciles each group
// with its configured family. Trades in unknown groups are dropped with a
// warning; groups are processed in ascending id order so output order is
// deterministic.
func (r *Router) Run(trader, exchange []model.Trade) (map[int64]*PartitionResult, error) {
	results := make(map[int64]*PartitionResult)
	for _, p := range r.partitionTrades(trader, exchange) {
		fam, ok := r.familyForGroup(p.groupID)
		if !ok {
			continue
		}
		res, err := Reconcile(p.trader, p.exchange, fam, r.ids, r.log)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", p.groupID, err)
		}
		res.GroupID = p.groupID
		results[p.groupID] = res
		if r.log != nil {
			r.log.Info("reconciled group",
				"group", p.groupID, "family", fam.Family,
				"matches", res.Stats.TotalMatches,
				"unmatched_trader", res.Stats.UnmatchedTrader,
				"unmatched_exchange", res.Stats.UnmatchedExchange)
		}
	}
	return results, nil
}

// RunPositions runs Rule 0 position analysis per group.
func (r *Router) RunPositions(trader, exchange []model.Trade) map[int64]*PositionResult {
	results := make(map[int64]*PositionResult)
	for _, p := range r.partitionTrades(trader, exchange) {
		fam, ok := r.familyForGroup(p.groupID)
		if !ok {
			continue
		}
		res := PositionAnalysis(p.trader, p.exchange, fam)
		res.GroupID = p.groupID
		results[p.groupID] = res
	}
	return results
}

func (r *Router) familyForGroup(groupID int64) (*config.FamilyConfig, bool) {
	famName, ok := r.cfg.GroupMappings[groupID]
	if !ok {
		if r.log != nil {
			r.log.Warn("no family mapping for exchange group, skipping", "group", groupID)
		}
		return nil, false
	}
	fam, ok := r.cfg.FamilyFor(famName)
	if !ok {
		if r.log != nil {
			r.log.Warn("family not configured, skipping group", "group", groupID, "family", famName)
		}
		return nil, false
	}
	return fam, true
}

// partitionTrades splits both sides by exchange group id, ascending. Trades
// without a group id are dropped with a warning.
func (r *Router) partitionTrades(trader, exchange []model.Trade) []partition {
	byGroup := make(map[int64]*partition)
	add := func(t model.Trade, isTrader bool) {
		if t.ExchangeGroupID == nil {
			if r.log != nil {
				r.log.Warn("trade has no exchange group id, skipping", "trade", t.InternalTradeID)
			}
			return
		}
		g := *t.ExchangeGroupID
		p, ok := byGroup[g]
		if !ok {
			p = &partition{groupID: g}
			byGroup[g] = p
		}
		if isTrader {
			p.trader = append(p.trader, t)
		} else {
			p.exchange = append(p.exchange, t)
		}
	}
	for _, t := range trader {
		add(t, true)
	}
	for _, t := range exchange {
		add(t, false)
	}

	out := make([]partition, 0, len(byGroup))
	for _, p := range byGroup {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].groupID < out[j].groupID })
	return out
}

// Totals aggregates per-partition outputs on original per-side counts.
type Totals struct {
	Groups            int
	TotalMatches      int
	OriginalTrader    int
	OriginalExchange  int
	MatchedTrader     int
	MatchedExchange   int
	UnmatchedTrader   int
	UnmatchedExchange int
	OverallRate       float64
}

// Aggregate folds partition results into cross-group totals. Rates are
// recomputed from counts, never averaged from per-group rates.
func Aggregate(results map[int64]*PartitionResult) Totals {
	var t Totals
	for _, res := range results {
		t.Groups++
		t.TotalMatches += res.Stats.TotalMatches
		t.OriginalTrader += res.Stats.OriginalTrader
		t.OriginalExchange += res.Stats.OriginalExchange
		t.MatchedTrader += res.Stats.MatchedTrader
		t.MatchedExchange += res.Stats.MatchedExchange
		t.UnmatchedTrader += res.Stats.UnmatchedTrader
		t.UnmatchedExchange += res.Stats.UnmatchedExchange
	}
	if total := t.OriginalTrader + t.OriginalExchange; total > 0 {
		t.OverallRate = float64(t.MatchedTrader+t.MatchedExchange) / float64(total) * 100
	}
	return t
}
