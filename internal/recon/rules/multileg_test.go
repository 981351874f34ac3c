package rules

import (
	"testing"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/recon"
)

func stripLeg(id string, source model.Source, month string, price float64, side model.Side) model.Trade {
	spread := ""
	if source == model.SourceTrader {
		spread = "S"
	}
	return mkTrade(tradeSpec{id: id, source: source, product: "380cst",
		month: month, qty: 500, unit: model.UnitMT, price: price, side: side, spread: spread})
}

// A three-leg strip: consecutive months, alternating sides, equal
// quantities, every leg flagged. The exchange mirrors each month.
func TestMultilegStrip(t *testing.T) {
	b := testBase(t, config.FamilyICE)
	rule := NewMultilegRule(b)

	trader := []model.Trade{
		stripLeg("1", model.SourceTrader, "Jul25", 100, model.SideBuy),
		stripLeg("2", model.SourceTrader, "Aug25", 98, model.SideSell),
		stripLeg("3", model.SourceTrader, "Sep25", 96, model.SideBuy),
	}
	exchange := []model.Trade{
		stripLeg("101", model.SourceExchange, "Jul25", 100, model.SideBuy),
		stripLeg("102", model.SourceExchange, "Aug25", 98, model.SideSell),
		stripLeg("103", model.SourceExchange, "Sep25", 96, model.SideBuy),
	}

	pool := recon.NewPool(trader, exchange, nil)
	matches := rule.Find(pool)
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	m := matches[0]
	if m.RuleNumber != 9 {
		t.Errorf("RuleNumber = %d, want 9", m.RuleNumber)
	}
	if len(m.TraderIDs()) != 3 || len(m.ExchangeIDs()) != 3 {
		t.Errorf("legs = %d/%d, want 3/3", len(m.TraderIDs()), len(m.ExchangeIDs()))
	}
	if len(pool.Available(model.SourceTrader)) != 0 || len(pool.Available(model.SourceExchange)) != 0 {
		t.Error("strip match did not drain both pools")
	}
}

// A missing exchange leg leaves the whole strip unmatched; partial seating
// never commits.
func TestMultilegDeclinesPartialExchangeStrip(t *testing.T) {
	b := testBase(t, config.FamilyICE)
	rule := NewMultilegRule(b)

	trader := []model.Trade{
		stripLeg("1", model.SourceTrader, "Jul25", 100, model.SideBuy),
		stripLeg("2", model.SourceTrader, "Aug25", 98, model.SideSell),
		stripLeg("3", model.SourceTrader, "Sep25", 96, model.SideBuy),
	}
	exchange := []model.Trade{
		stripLeg("101", model.SourceExchange, "Jul25", 100, model.SideBuy),
		stripLeg("103", model.SourceExchange, "Sep25", 96, model.SideBuy),
	}

	pool := recon.NewPool(trader, exchange, nil)
	if got := rule.Find(pool); len(got) != 0 {
		t.Fatalf("matches = %d, want 0 (Aug25 exchange leg missing)", len(got))
	}
	if len(pool.Available(model.SourceTrader)) != 3 {
		t.Error("trader legs consumed despite declined strip")
	}
	if len(pool.Available(model.SourceExchange)) != 2 {
		t.Error("exchange legs consumed despite declined strip")
	}
}

// Unflagged trader legs never form a strip.
func TestMultilegRequiresSpreadFlag(t *testing.T) {
	b := testBase(t, config.FamilyICE)
	rule := NewMultilegRule(b)

	trader := []model.Trade{
		traderTrade("1", "380cst", "Jul25", 500, model.UnitMT, 100, model.SideBuy),
		traderTrade("2", "380cst", "Aug25", 500, model.UnitMT, 98, model.SideSell),
		traderTrade("3", "380cst", "Sep25", 500, model.UnitMT, 96, model.SideBuy),
	}
	exchange := []model.Trade{
		stripLeg("101", model.SourceExchange, "Jul25", 100, model.SideBuy),
		stripLeg("102", model.SourceExchange, "Aug25", 98, model.SideSell),
		stripLeg("103", model.SourceExchange, "Sep25", 96, model.SideBuy),
	}

	pool := recon.NewPool(trader, exchange, nil)
	if got := rule.Find(pool); len(got) != 0 {
		t.Fatalf("matches = %d, want 0 (legs not flagged)", len(got))
	}
}

// A month gap breaks the strip.
func TestMultilegRequiresConsecutiveMonths(t *testing.T) {
	b := testBase(t, config.FamilyICE)
	rule := NewMultilegRule(b)

	trader := []model.Trade{
		stripLeg("1", model.SourceTrader, "Jul25", 100, model.SideBuy),
		stripLeg("2", model.SourceTrader, "Aug25", 98, model.SideSell),
		stripLeg("3", model.SourceTrader, "Oct25", 96, model.SideBuy),
	}
	exchange := []model.Trade{
		stripLeg("101", model.SourceExchange, "Jul25", 100, model.SideBuy),
		stripLeg("102", model.SourceExchange, "Aug25", 98, model.SideSell),
		stripLeg("103", model.SourceExchange, "Oct25", 96, model.SideBuy),
	}

	pool := recon.NewPool(trader, exchange, nil)
	if got := rule.Find(pool); len(got) != 0 {
		t.Fatalf("matches = %d, want 0 (Sep25 missing from strip)", len(got))
	}
}

// Two same-side legs in a row are not a strip.
func TestMultilegRequiresAlternatingSides(t *testing.T) {
	b := testBase(t, config.FamilyICE)
	rule := NewMultilegRule(b)

	trader := []model.Trade{
		stripLeg("1", model.SourceTrader, "Jul25", 100, model.SideBuy),
		stripLeg("2", model.SourceTrader, "Aug25", 98, model.SideBuy),
		stripLeg("3", model.SourceTrader, "Sep25", 96, model.SideBuy),
	}
	exchange := []model.Trade{
		stripLeg("101", model.SourceExchange, "Jul25", 100, model.SideBuy),
		stripLeg("102", model.SourceExchange, "Aug25", 98, model.SideBuy),
		stripLeg("103", model.SourceExchange, "Sep25", 96, model.SideBuy),
	}

	pool := recon.NewPool(trader, exchange, nil)
	if got := rule.Find(pool); len(got) != 0 {
		t.Fatalf("matches = %d, want 0 (sides do not alternate)", len(got))
	}
}
