package rules

import (
	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/recon"
)

// CrackRule is ICE rule 3. A trader trade on "<base> crack" matches two
// exchange trades in the same contract month: a base-product leg on the
// crack's side and a hub leg (the configured crack hub, e.g. brent swap) on
// the opposite side. Quantities must agree after unit conversion with the
// base product's ratio, and the crack price must equal base minus hub within
// tolerance_default.
type CrackRule struct {
	base
	number int
}

// NewCrackRule builds the crack matcher.
func NewCrackRule(b base) *CrackRule {
	return &CrackRule{base: b, number: 3}
}

func (r *CrackRule) Number() int  { return r.number }
func (r *CrackRule) Name() string { return "crack" }

func (r *CrackRule) Find(pool *recon.UnmatchedPool) []model.MatchResult {
	var matches []model.MatchResult
	hub := r.fam.Decomposition.CrackHubProduct

	idx := recon.NewIndex(pool.Available(model.SourceExchange), r.legProjection())

	for _, trader := range pool.Available(model.SourceTrader) {
		baseProduct := crackBase(trader.Product)
		if baseProduct == "" {
			continue
		}

		baseQty, hubQty := r.crackLegQuantities(trader, baseProduct, hub)

		baseKey := r.legKey(baseProduct, trader.ContractMonth, r.exchangeSide(trader.Side), trader)
		hubKey := r.legKey(hub, trader.ContractMonth, r.exchangeSide(trader.Side.Opposite()), trader)

		if m, ok := r.seatCrackLegs(pool, idx, trader, baseProduct, baseQty, hubQty,
			idx.Lookup(baseKey), idx.Lookup(hubKey)); ok {
			matches = append(matches, m)
		}
	}

	if r.log != nil {
		r.log.Debug("crack pass", "matches", len(matches))
	}
	return matches
}

// crackLegQuantities computes the expected base and hub leg quantities for a
// crack trade. Both conversions use the base product's ratio: the hub leg is
// generated from the crack, so the original product governs.
func (r *CrackRule) crackLegQuantities(trader model.Trade, baseProduct, hub string) (decimal.Decimal, decimal.Decimal) {
	baseUnit := r.fam.CanonicalUnit(baseProduct)
	hubUnit := r.fam.CanonicalUnit(hub)
	baseQty := r.units.Convert(trader.Quantity, trader.Unit, baseUnit, baseProduct)
	hubQty := r.units.Convert(trader.Quantity, trader.Unit, hubUnit, baseProduct)
	return baseQty, hubQty
}

// seatCrackLegs finds the first (base, hub) candidate pair satisfying the
// quantity and price identities and commits the triple.
func (r *CrackRule) seatCrackLegs(pool *recon.UnmatchedPool, idx *recon.SignatureIndex,
	trader model.Trade, baseProduct string, baseQty, hubQty decimal.Decimal,
	baseCands, hubCands []model.Trade) (model.MatchResult, bool) {

	for _, bc := range baseCands {
		if !pool.IsAvailable(bc.InternalTradeID, model.SourceExchange) {
			continue
		}
		if !r.canonicalQty(bc).Equal(baseQty) {
			continue
		}
		for _, hc := range hubCands {
			if !pool.IsAvailable(hc.InternalTradeID, model.SourceExchange) {
				continue
			}
			// Hub quantity converts with the base product's ratio.
			hubUnit := r.fam.CanonicalUnit(hc.Product)
			candQty := r.units.Convert(hc.Quantity, hc.Unit, hubUnit, baseProduct)
			if !candQty.Equal(hubQty) {
				continue
			}
			composite := bc.Price.Sub(hc.Price)
			if !r.withinDefaultTol(trader.Price, composite) {
				continue
			}

			match := model.MatchResult{
				MatchID:                  r.matchID(r.number),
				RuleNumber:               r.number,
				Confidence:               r.fam.Confidence(r.number),
				TraderTrade:              trader,
				ExchangeTrade:            bc,
				AdditionalExchangeTrades: []model.Trade{hc},
				MatchedFields: append([]string{
					"product", "contract_month", "quantity", "side", "crack_price",
				}, r.universalFields()...),
				Status: model.StatusMatched,
			}
			if pool.Commit(match) {
				idx.Remove(bc)
				idx.Remove(hc)
				return match, true
			}
		}
	}
	return model.MatchResult{}, false
}
