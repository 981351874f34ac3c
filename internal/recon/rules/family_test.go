package rules

import (
	"testing"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/recon"
)

func buildEngine(t *testing.T, famName config.Family) (*recon.Engine, *config.FamilyConfig) {
	t.Helper()
	fam := testFamily(t, famName)
	famRules, err := NewFamily(fam, &recon.SequenceSource{}, nil)
	if err != nil {
		t.Fatalf("NewFamily() error = %v", err)
	}
	return recon.NewEngine(famRules, nil), fam
}

// mixedDataset exercises exact, spread, crack and aggregation in one run.
func mixedDataset() (trader, exchange []model.Trade) {
	trader = []model.Trade{
		// Exact pair
		traderTrade("1", "380cst", "Jul25", 1000, model.UnitMT, 178, model.SideBuy),
		// Crack
		traderTrade("2", "380cst crack", "Aug25", 1000, model.UnitMT, -80, model.SideBuy),
		// Aggregation legs
		traderTrade("3", "gasoil", "Sep25", 200, model.UnitMT, 95, model.SideSell),
		traderTrade("4", "gasoil", "Sep25", 800, model.UnitMT, 95, model.SideSell),
		// Unmatched leftover
		traderTrade("5", "naphtha", "Oct25", 500, model.UnitMT, 60, model.SideBuy),
	}
	exchange = []model.Trade{
		exchangeTrade("101", "380cst", "Jul25", 1000, model.UnitMT, 178, model.SideBuy),
		exchangeTrade("102", "380cst", "Aug25", 1000, model.UnitMT, 420, model.SideBuy),
		exchangeTrade("103", "brent swap", "Aug25", 7000, model.UnitBBL, 500, model.SideSell),
		exchangeTrade("104", "gasoil", "Sep25", 1000, model.UnitMT, 95, model.SideSell),
	}
	return trader, exchange
}

// Disjointness and conservation over a mixed ICE run: every id appears in at
// most one match, and matched + unmatched equals the original count.
func TestEngineDisjointnessAndConservation(t *testing.T) {
	engine, _ := buildEngine(t, config.FamilyICE)
	trader, exchange := mixedDataset()

	pool := recon.NewPool(trader, exchange, nil)
	matches, err := engine.Run(pool)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	seenTrader := make(map[string]bool)
	seenExchange := make(map[string]bool)
	matchedTrader, matchedExchange := 0, 0
	for _, m := range matches {
		for _, id := range m.TraderIDs() {
			if seenTrader[id] {
				t.Fatalf("trader id %s appears in two matches", id)
			}
			seenTrader[id] = true
			matchedTrader++
		}
		for _, id := range m.ExchangeIDs() {
			if seenExchange[id] {
				t.Fatalf("exchange id %s appears in two matches", id)
			}
			seenExchange[id] = true
			matchedExchange++
		}
	}

	unmatchedTrader := pool.Available(model.SourceTrader)
	unmatchedExchange := pool.Available(model.SourceExchange)
	for _, u := range unmatchedTrader {
		if seenTrader[u.InternalTradeID] {
			t.Fatalf("trader id %s both matched and unmatched", u.InternalTradeID)
		}
	}
	for _, u := range unmatchedExchange {
		if seenExchange[u.InternalTradeID] {
			t.Fatalf("exchange id %s both matched and unmatched", u.InternalTradeID)
		}
	}
	if matchedTrader+len(unmatchedTrader) != len(trader) {
		t.Errorf("trader conservation: %d matched + %d unmatched != %d original",
			matchedTrader, len(unmatchedTrader), len(trader))
	}
	if matchedExchange+len(unmatchedExchange) != len(exchange) {
		t.Errorf("exchange conservation: %d matched + %d unmatched != %d original",
			matchedExchange, len(unmatchedExchange), len(exchange))
	}

	// The mixed dataset resolves fully except the Oct25 naphtha trade.
	if len(unmatchedTrader) != 1 || unmatchedTrader[0].InternalTradeID != "5" {
		t.Errorf("unmatched trader = %v, want only id 5", unmatchedTrader)
	}
	if len(unmatchedExchange) != 0 {
		t.Errorf("unmatched exchange = %d trades, want 0", len(unmatchedExchange))
	}
}

// Order determinism: identical inputs and a seeded id source produce
// identical match sequences.
func TestEngineDeterminism(t *testing.T) {
	run := func() []model.MatchResult {
		fam := testFamily(t, config.FamilyICE)
		famRules, err := NewFamily(fam, &recon.SequenceSource{}, nil)
		if err != nil {
			t.Fatalf("NewFamily() error = %v", err)
		}
		engine := recon.NewEngine(famRules, nil)
		trader, exchange := mixedDataset()
		pool := recon.NewPool(trader, exchange, nil)
		matches, err := engine.Run(pool)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		return matches
	}

	a := run()
	c := run()
	if len(a) != len(c) {
		t.Fatalf("run lengths differ: %d vs %d", len(a), len(c))
	}
	for i := range a {
		if a[i].MatchID != c[i].MatchID || a[i].RuleNumber != c[i].RuleNumber {
			t.Fatalf("match %d differs: %s/%d vs %s/%d",
				i, a[i].MatchID, a[i].RuleNumber, c[i].MatchID, c[i].RuleNumber)
		}
		aIDs, cIDs := a[i].TraderIDs(), c[i].TraderIDs()
		for j := range aIDs {
			if aIDs[j] != cIDs[j] {
				t.Fatalf("match %d trader ids differ: %v vs %v", i, aIDs, cIDs)
			}
		}
	}
}

// Strict-before-loose: a pair that matches exactly is never consumed by a
// later rule. The aggregation candidates include an exact-capable trade; the
// exact rule takes it first.
func TestEngineStrictBeforeLoose(t *testing.T) {
	engine, _ := buildEngine(t, config.FamilyICE)

	trader := []model.Trade{
		traderTrade("1", "gasoil", "Sep25", 1000, model.UnitMT, 95, model.SideSell),
		traderTrade("2", "gasoil", "Sep25", 400, model.UnitMT, 95, model.SideSell),
		traderTrade("3", "gasoil", "Sep25", 600, model.UnitMT, 95, model.SideSell),
	}
	exchange := []model.Trade{
		exchangeTrade("101", "gasoil", "Sep25", 1000, model.UnitMT, 95, model.SideSell),
	}

	pool := recon.NewPool(trader, exchange, nil)
	matches, err := engine.Run(pool)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if matches[0].RuleNumber != 1 {
		t.Errorf("RuleNumber = %d, want 1 (exact wins over aggregation)", matches[0].RuleNumber)
	}
	if got := matches[0].TraderIDs(); len(got) != 1 || got[0] != "1" {
		t.Errorf("trader ids = %v, want [1]", got)
	}
}

// SGX runs rules 1-3 only; rule 3 is the product-spread matcher there.
func TestSGXFamilyRuleSet(t *testing.T) {
	fam := testFamily(t, config.FamilySGX)
	famRules, err := NewFamily(fam, &recon.SequenceSource{}, nil)
	if err != nil {
		t.Fatalf("NewFamily() error = %v", err)
	}
	if len(famRules) != 3 {
		t.Fatalf("rules = %d, want 3", len(famRules))
	}
	if famRules[2].Name() != "product-spread" {
		t.Errorf("SGX rule 3 = %s, want product-spread", famRules[2].Name())
	}
}

// CME and EEX run the exact rule only.
func TestSingleRuleFamilies(t *testing.T) {
	for _, name := range []config.Family{config.FamilyCME, config.FamilyEEX} {
		fam := testFamily(t, name)
		famRules, err := NewFamily(fam, &recon.SequenceSource{}, nil)
		if err != nil {
			t.Fatalf("NewFamily(%s) error = %v", name, err)
		}
		if len(famRules) != 1 || famRules[0].Number() != 1 {
			t.Errorf("%s rules = %d, want exact only", name, len(famRules))
		}
	}
}

// Match ids carry the family label and rule number.
func TestMatchIDFormat(t *testing.T) {
	b := testBase(t, config.FamilyICE)
	rule := NewExactRule(b)

	trader := traderTrade("1", "380cst", "Jul25", 1000, model.UnitMT, 178, model.SideBuy)
	exch := exchangeTrade("101", "380cst", "Jul25", 1000, model.UnitMT, 178, model.SideBuy)
	pool := recon.NewPool([]model.Trade{trader}, []model.Trade{exch}, nil)
	matches := rule.Find(pool)
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if want := "ICE_1_00000001"; matches[0].MatchID != want {
		t.Errorf("MatchID = %s, want %s", matches[0].MatchID, want)
	}
}
