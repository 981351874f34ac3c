// Package rule0 implements position-level reconciliation: every trade is
// decomposed into signed base-product legs by contract month, aggregated per
// side, and the two matrices compared with per-unit tolerances. It runs
// independently of trade-level matching.
package rule0

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/normalize"
)

// Leg is one signed base-product position contributed by a trade. Synthetic
// legs are the generated side of a crack or spread decomposition.
type Leg struct {
	BaseProduct string
	Quantity    decimal.Decimal // signed, in the canonical unit
	Unit        model.Unit
	Synthetic   bool
}

// Decomposer splits crack and product-spread names into signed base legs.
type Decomposer struct {
	fam   *config.FamilyConfig
	units *normalize.Units
}

// NewDecomposer builds a decomposer over a family's patterns and ratios.
func NewDecomposer(fam *config.FamilyConfig) *Decomposer {
	return &Decomposer{fam: fam, units: normalize.NewUnits(fam)}
}

// Decompose emits the signed base legs of a trade. Sign follows the trade's
// side (+ for Buy, - for Sell); the synthetic leg always carries the
// opposite sign of the primary leg. Quantities come out in each base
// product's canonical unit, converted with the original product's ratio.
func (d *Decomposer) Decompose(t model.Trade) []Leg {
	sign := decimal.NewFromInt(1)
	if t.Side == model.SideSell {
		sign = decimal.NewFromInt(-1)
	}

	if base := crackBaseProduct(t.Product); base != "" && d.fam.Decomposition.CrackHubProduct != "" {
		hub := d.fam.Decomposition.CrackHubProduct
		baseUnit := d.fam.CanonicalUnit(base)
		hubUnit := d.fam.CanonicalUnit(hub)
		baseQty := d.units.Convert(t.Quantity, t.Unit, baseUnit, base)
		hubQty := d.units.Convert(t.Quantity, t.Unit, hubUnit, base)
		return []Leg{
			{BaseProduct: base, Quantity: baseQty.Mul(sign), Unit: baseUnit},
			{BaseProduct: hub, Quantity: hubQty.Mul(sign).Neg(), Unit: hubUnit, Synthetic: true},
		}
	}

	if sep := d.fam.Decomposition.SpreadSeparator; sep != "" &&
		strings.Count(t.Product, sep) == 1 && !strings.Contains(t.Product, "crack") {
		parts := strings.SplitN(t.Product, sep, 2)
		first := strings.TrimSpace(parts[0])
		second := strings.TrimSpace(parts[1])
		if first != "" && second != "" && first != second {
			firstUnit := d.fam.CanonicalUnit(first)
			secondUnit := d.fam.CanonicalUnit(second)
			firstQty := d.units.Convert(t.Quantity, t.Unit, firstUnit, first)
			secondQty := d.units.Convert(t.Quantity, t.Unit, secondUnit, first)
			return []Leg{
				{BaseProduct: first, Quantity: firstQty.Mul(sign), Unit: firstUnit},
				{BaseProduct: second, Quantity: secondQty.Mul(sign).Neg(), Unit: secondUnit, Synthetic: true},
			}
		}
	}

	unit := d.fam.CanonicalUnit(t.Product)
	qty := d.units.Convert(t.Quantity, t.Unit, unit, t.Product)
	return []Leg{{BaseProduct: t.Product, Quantity: qty.Mul(sign), Unit: unit}}
}

// crackBaseProduct extracts the base product from "<base> crack", or "".
func crackBaseProduct(product string) string {
	const suffix = " crack"
	if !strings.HasSuffix(product, suffix) {
		return ""
	}
	base := strings.TrimSpace(strings.TrimSuffix(product, suffix))
	if base == "" {
		return ""
	}
	return base
}
