package rules

import (
	"testing"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/recon"
)

// A matching calendar-spread quad commits all four trades atomically.
func TestSpreadMatchQuad(t *testing.T) {
	b := testBase(t, config.FamilyICE)
	rule := NewSpreadRule(b, 2)

	t1 := traderTrade("1", "380cst", "Jul25", 1000, model.UnitMT, 100, model.SideBuy)
	t2 := traderTrade("2", "380cst", "Aug25", 1000, model.UnitMT, 90, model.SideSell)
	e1 := exchangeTrade("101", "380cst", "Jul25", 1000, model.UnitMT, 101, model.SideBuy)
	e2 := exchangeTrade("102", "380cst", "Aug25", 1000, model.UnitMT, 91, model.SideSell)

	pool := recon.NewPool([]model.Trade{t1, t2}, []model.Trade{e1, e2}, nil)
	matches := rule.Find(pool)

	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	m := matches[0]
	if got := len(m.TraderIDs()); got != 2 {
		t.Errorf("trader legs = %d, want 2", got)
	}
	if got := len(m.ExchangeIDs()); got != 2 {
		t.Errorf("exchange legs = %d, want 2", got)
	}
	if len(pool.Available(model.SourceTrader)) != 0 || len(pool.Available(model.SourceExchange)) != 0 {
		t.Error("pool not drained after quad commit")
	}
}

// The price deltas must agree within tolerance: 10 vs 12 fails.
func TestSpreadMatchPriceDelta(t *testing.T) {
	b := testBase(t, config.FamilyICE)
	rule := NewSpreadRule(b, 2)

	t1 := traderTrade("1", "380cst", "Jul25", 1000, model.UnitMT, 100, model.SideBuy)
	t2 := traderTrade("2", "380cst", "Aug25", 1000, model.UnitMT, 90, model.SideSell)
	e1 := exchangeTrade("101", "380cst", "Jul25", 1000, model.UnitMT, 103, model.SideBuy)
	e2 := exchangeTrade("102", "380cst", "Aug25", 1000, model.UnitMT, 91, model.SideSell)

	pool := recon.NewPool([]model.Trade{t1, t2}, []model.Trade{e1, e2}, nil)
	if got := rule.Find(pool); len(got) != 0 {
		t.Fatalf("matches = %d, want 0 (delta 10 vs 12)", len(got))
	}
}

// Scenario: the exchange carries only one leg of the spread. Rule 2 must
// decline and fabricate nothing.
func TestSpreadDeclinesOnMissingLeg(t *testing.T) {
	b := testBase(t, config.FamilyICE)
	rule := NewSpreadRule(b, 2)

	t1 := traderTrade("1", "380cst", "Jul25", 1000, model.UnitMT, 100, model.SideBuy)
	t2 := traderTrade("2", "380cst", "Aug25", 1000, model.UnitMT, 90, model.SideSell)
	e1 := exchangeTrade("101", "380cst", "Jul25", 1000, model.UnitMT, 100, model.SideBuy)

	pool := recon.NewPool([]model.Trade{t1, t2}, []model.Trade{e1}, nil)
	if got := rule.Find(pool); len(got) != 0 {
		t.Fatalf("matches = %d, want 0 (missing Aug25 exchange leg)", len(got))
	}
	if !pool.IsAvailable("1", model.SourceTrader) || !pool.IsAvailable("2", model.SourceTrader) {
		t.Error("trader legs consumed despite declined spread")
	}
}

// SGX mirrors the sides on the exchange legs.
func TestSpreadMatchSGXFlip(t *testing.T) {
	b := testBase(t, config.FamilySGX)
	rule := NewSpreadRule(b, 2)

	t1 := traderTrade("1", "380cst", "Jul25", 1000, model.UnitMT, 100, model.SideBuy)
	t2 := traderTrade("2", "380cst", "Aug25", 1000, model.UnitMT, 90, model.SideSell)
	e1 := exchangeTrade("101", "380cst", "Jul25", 1000, model.UnitMT, 100, model.SideSell)
	e2 := exchangeTrade("102", "380cst", "Aug25", 1000, model.UnitMT, 90, model.SideBuy)

	pool := recon.NewPool([]model.Trade{t1, t2}, []model.Trade{e1, e2}, nil)
	if got := rule.Find(pool); len(got) != 1 {
		t.Fatalf("matches = %d, want 1 (SGX mirrored sides)", len(got))
	}
}
