// Package rules implements the matching rule families: twelve ICE rules,
// three SGX rules and the single exact rule CME and EEX share. Every rule
// applies the family's universal filter on top of its own projection and
// commits accepted matches to the pool itself.
package rules

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/normalize"
	"github.com/straitsenergy/reconengine/internal/recon"
	"github.com/straitsenergy/reconengine/pkg/logging"
)

// base carries what every rule needs: the family view of the config, the
// unit converter, the match-id source and a component logger.
type base struct {
	fam   *config.FamilyConfig
	units *normalize.Units
	ids   recon.IDSource
	log   *logging.Logger
}

// addUniversal appends the configured universal fields to a key. Both sides
// append identically, so nil == nil keys equal.
func (b base) addUniversal(kb *recon.KeyBuilder, t model.Trade) {
	for _, field := range b.fam.UniversalMatchingFields {
		switch field {
		case "brokergroupid":
			kb.AddOptInt(t.BrokerGroupID)
		case "exchclearingacctid":
			kb.AddOptInt(t.ClearingAcctID)
		case "exchangegroupid":
			kb.AddOptInt(t.ExchangeGroupID)
		default:
			kb.Add("")
		}
	}
}

// universalFields returns the configured universal field names for the
// MatchedFields projection of a result.
func (b base) universalFields() []string {
	return append([]string(nil), b.fam.UniversalMatchingFields...)
}

// matchID allocates an id for a match produced by the given rule.
func (b base) matchID(rule int) string {
	return recon.MatchID(b.fam.Family.Label(), rule, b.ids)
}

// canonicalQty converts a trade's quantity into its product's canonical unit.
func (b base) canonicalQty(t model.Trade) decimal.Decimal {
	return b.units.ToCanonical(t)
}

// withinDefaultTol reports |a-b| <= tolerance_default.
func (b base) withinDefaultTol(a, c decimal.Decimal) bool {
	return a.Sub(c).Abs().Cmp(b.fam.DefaultTolerance()) <= 0
}

// exchangeSide maps a trader side to the exchange side it matches under the
// family's convention.
func (b base) exchangeSide(s model.Side) model.Side {
	return b.fam.ExchangeSide(s)
}

// crackBase extracts the base product from a crack name, or "" when the
// product is not a crack.
func crackBase(product string) string {
	const suffix = " crack"
	if !strings.HasSuffix(product, suffix) {
		return ""
	}
	base := strings.TrimSpace(strings.TrimSuffix(product, suffix))
	if base == "" || base == product {
		return ""
	}
	return base
}

// spreadLegs splits an "A-B" product-spread name. Both legs must be
// non-empty and distinct, and the separator must occur exactly once.
func spreadLegs(product, separator string) (string, string, bool) {
	if separator == "" || strings.Count(product, separator) != 1 {
		return "", "", false
	}
	parts := strings.SplitN(product, separator, 2)
	a := strings.TrimSpace(parts[0])
	c := strings.TrimSpace(parts[1])
	if a == "" || c == "" || a == c {
		return "", "", false
	}
	return a, c, true
}

// legKey projects a trade to (product, month, side) plus universal fields —
// the probe shape the compound rules share.
func (b base) legKey(product, month string, side model.Side, t model.Trade) recon.Key {
	kb := &recon.KeyBuilder{}
	kb.Add(product).Add(month).Add(string(side))
	b.addUniversal(kb, t)
	return kb.Key()
}

// legProjection indexes exchange trades by (product, month, side, universal).
func (b base) legProjection() recon.Projection {
	return func(t model.Trade) recon.Key {
		return b.legKey(t.Product, t.ContractMonth, t.Side, t)
	}
}

// weightedAvgPrice computes the quantity-weighted average price of a class of
// trades, weighting by canonical-unit quantity.
func (b base) weightedAvgPrice(trades []model.Trade) decimal.Decimal {
	total := decimal.Zero
	weighted := decimal.Zero
	for _, t := range trades {
		q := b.canonicalQty(t)
		total = total.Add(q)
		weighted = weighted.Add(t.Price.Mul(q))
	}
	if total.IsZero() {
		return decimal.Zero
	}
	return weighted.Div(total)
}

// sumCanonical sums canonical-unit quantities of a class.
func (b base) sumCanonical(trades []model.Trade) decimal.Decimal {
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(b.canonicalQty(t))
	}
	return total
}
