package rules

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/normalize"
	"github.com/straitsenergy/reconengine/internal/recon"
)

// testFamily returns a family config with the conversion ratios the test
// datasets assume (380cst at 7.0 BBL/MT).
func testFamily(t *testing.T, name config.Family) *config.FamilyConfig {
	t.Helper()
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	fam, ok := cfg.FamilyFor(name)
	if !ok {
		t.Fatalf("family %s not configured", name)
	}
	fam.ProductConversionRatios["380cst"] = 7.0
	return fam
}

func testBase(t *testing.T, name config.Family) base {
	t.Helper()
	fam := testFamily(t, name)
	return base{
		fam:   fam,
		units: normalize.NewUnits(fam),
		ids:   &recon.SequenceSource{},
	}
}

// tradeSpec is the compact trade constructor for rule tests.
type tradeSpec struct {
	id      string
	source  model.Source
	product string
	month   string
	qty     float64
	unit    model.Unit
	price   float64
	side    model.Side
	spread  string
}

func mkTrade(s tradeSpec) model.Trade {
	broker := int64(22)
	clearing := int64(2)
	return model.Trade{
		InternalTradeID: s.id,
		Source:          s.source,
		Product:         s.product,
		ContractMonth:   s.month,
		Quantity:        decimal.NewFromFloat(s.qty),
		Unit:            s.unit,
		Price:           decimal.NewFromFloat(s.price),
		Side:            s.side,
		BrokerGroupID:   &broker,
		ClearingAcctID:  &clearing,
		SpreadFlag:      s.spread,
	}
}

func traderTrade(id, product, month string, qty float64, unit model.Unit, price float64, side model.Side) model.Trade {
	return mkTrade(tradeSpec{id: id, source: model.SourceTrader, product: product,
		month: month, qty: qty, unit: unit, price: price, side: side})
}

func exchangeTrade(id, product, month string, qty float64, unit model.Unit, price float64, side model.Side) model.Trade {
	return mkTrade(tradeSpec{id: id, source: model.SourceExchange, product: product,
		month: month, qty: qty, unit: unit, price: price, side: side})
}

func TestCrackBase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"380cst crack", "380cst"},
		{"0.5%marine crack", "0.5%marine"},
		{"380cst", ""},
		{" crack", ""},
		{"crack", ""},
	}
	for _, tt := range tests {
		if got := crackBase(tt.in); got != tt.want {
			t.Errorf("crackBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSpreadLegs(t *testing.T) {
	tests := []struct {
		in    string
		wantA string
		wantB string
		ok    bool
	}{
		{"0.5%marine-380cst", "0.5%marine", "380cst", true},
		{"a-b", "a", "b", true},
		{"380cst", "", "", false},
		{"a-a", "", "", false},
		{"-b", "", "", false},
		{"a-", "", "", false},
	}
	for _, tt := range tests {
		a, b, ok := spreadLegs(tt.in, "-")
		if ok != tt.ok || a != tt.wantA || b != tt.wantB {
			t.Errorf("spreadLegs(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, a, b, ok, tt.wantA, tt.wantB, tt.ok)
		}
	}
}

func TestUniversalFieldsGateMatching(t *testing.T) {
	b := testBase(t, config.FamilyICE)
	rule := NewExactRule(b)

	trader := traderTrade("1", "380cst", "Jul25", 1000, model.UnitMT, 178, model.SideBuy)
	exch := exchangeTrade("101", "380cst", "Jul25", 1000, model.UnitMT, 178, model.SideBuy)
	other := int64(99)
	exch.BrokerGroupID = &other

	pool := recon.NewPool([]model.Trade{trader}, []model.Trade{exch}, nil)
	matches := rule.Find(pool)
	if len(matches) != 0 {
		t.Fatalf("matches = %d, want 0 (broker group differs)", len(matches))
	}
}

func TestUniversalNilEqualsNil(t *testing.T) {
	b := testBase(t, config.FamilyICE)
	rule := NewExactRule(b)

	trader := traderTrade("1", "380cst", "Jul25", 1000, model.UnitMT, 178, model.SideBuy)
	exch := exchangeTrade("101", "380cst", "Jul25", 1000, model.UnitMT, 178, model.SideBuy)
	trader.BrokerGroupID = nil
	exch.BrokerGroupID = nil

	pool := recon.NewPool([]model.Trade{trader}, []model.Trade{exch}, nil)
	matches := rule.Find(pool)
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1 (nil == nil)", len(matches))
	}
}
