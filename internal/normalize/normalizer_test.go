package normalize

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	cfg := config.Default()
	n, err := New(&cfg.Normalizer)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return n
}

func TestNormalizeProduct(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		in   string
		want string
	}{
		{"Fuel Oil 380CST", "380cst"},
		{"  380 CST ", "380cst"},
		{"Brent Crude Swap", "brent swap"},
		{"380cst", "380cst"},
		{"unknown product", "unknown product"},
	}

	for _, tt := range tests {
		if got := n.Product(tt.in); got != tt.want {
			t.Errorf("Product(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeContractMonth(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Jul25", "Jul25", false},
		{"jul 25", "Jul25", false},
		{"JUL-25", "Jul25", false},
		{"July 2025", "Jul25", false},
		{"2025-07", "Jul25", false},
		{"2025/12", "Dec25", false},
		{"September 26", "Sep26", false},
		{"", "", true},
		{"not a month", "", true},
	}

	for _, tt := range tests {
		got, err := n.ContractMonth(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ContractMonth(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Errorf("ContractMonth(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeSide(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		in      string
		want    model.Side
		wantErr bool
	}{
		{"B", model.SideBuy, false},
		{"bought", model.SideBuy, false},
		{"SOLD", model.SideSell, false},
		{"short", model.SideSell, false},
		{"hold", "", true},
	}

	for _, tt := range tests {
		got, err := n.Side(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("Side(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Errorf("Side(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDecimal(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1000", "1000", false},
		{"1,000.50", "1000.5", false},
		{"-80", "-80", false},
		{"(250)", "-250", false},
		{" 42.0 ", "42", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		got, err := n.Decimal(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("Decimal(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err != nil {
			continue
		}
		want, _ := decimal.NewFromString(tt.want)
		if !got.Equal(want) {
			t.Errorf("Decimal(%q) = %s, want %s", tt.in, got, want)
		}
	}
}

func TestUnitConversion(t *testing.T) {
	cfg := config.Default()
	fam := cfg.Families[config.FamilyICE]
	units := NewUnits(fam)

	mt := decimal.NewFromInt(1000)
	bbl := units.Convert(mt, model.UnitMT, model.UnitBBL, "380cst")
	want := decimal.NewFromFloat(6350)
	if !bbl.Equal(want) {
		t.Errorf("Convert(1000 MT -> BBL, 380cst) = %s, want %s", bbl, want)
	}

	back := units.Convert(bbl, model.UnitBBL, model.UnitMT, "380cst")
	if !back.Equal(mt) {
		t.Errorf("round trip = %s, want %s", back, mt)
	}

	// Unknown products use the default ratio.
	d := units.Convert(decimal.NewFromInt(100), model.UnitMT, model.UnitBBL, "mystery")
	if !d.Equal(decimal.NewFromInt(700)) {
		t.Errorf("default ratio conversion = %s, want 700", d)
	}

	// Lots never convert.
	lots := units.Convert(decimal.NewFromInt(5), model.UnitLots, model.UnitMT, "380cst")
	if !lots.Equal(decimal.NewFromInt(5)) {
		t.Errorf("lots conversion = %s, want 5", lots)
	}
}
