package normalize

import (
	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
)

// Units converts quantities between MT and BBL using per-product ratios.
// BBL = MT * ratio(product). Lots and unit-less quantities pass through.
type Units struct {
	fam *config.FamilyConfig
}

// NewUnits builds a converter over a family's ratio and unit-default tables.
func NewUnits(fam *config.FamilyConfig) *Units {
	return &Units{fam: fam}
}

// CanonicalUnit returns the unit a product's positions are kept in.
func (u *Units) CanonicalUnit(product string) model.Unit {
	return u.fam.CanonicalUnit(product)
}

// Ratio returns the BBL-per-MT conversion ratio for a product.
func (u *Units) Ratio(product string) decimal.Decimal {
	return u.fam.ConversionRatio(product)
}

// Convert converts a quantity between units. ratioProduct names the product
// whose ratio governs the conversion; for synthetic legs of cracks and
// spreads that is the original product, not the leg's own.
func (u *Units) Convert(qty decimal.Decimal, from, to model.Unit, ratioProduct string) decimal.Decimal {
	if from == to || from == "" || to == "" {
		return qty
	}
	ratio := u.Ratio(ratioProduct)
	switch {
	case from == model.UnitMT && to == model.UnitBBL:
		return qty.Mul(ratio)
	case from == model.UnitBBL && to == model.UnitMT:
		return qty.Div(ratio)
	default:
		// LOTS/UNITS never convert.
		return qty
	}
}

// ToCanonical converts a trade quantity into its product's canonical unit.
func (u *Units) ToCanonical(t model.Trade) decimal.Decimal {
	return u.Convert(t.Quantity, t.Unit, u.CanonicalUnit(t.Product), t.Product)
}
