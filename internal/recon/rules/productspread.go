package rules

import (
	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/recon"
)

// ProductSpreadRule matches inter-product spreads (ICE rule 5, SGX rule 3).
// A trader trade on "A-B" matches two exchange trades in the same month: an
// A leg on the spread's side and a B leg on the opposite side, with equal
// quantities after unit normalization and the price identity
// spread = price(A) - price(B) within tolerance_default.
type ProductSpreadRule struct {
	base
	number int
}

// NewProductSpreadRule builds the product-spread matcher.
func NewProductSpreadRule(b base, number int) *ProductSpreadRule {
	return &ProductSpreadRule{base: b, number: number}
}

func (r *ProductSpreadRule) Number() int  { return r.number }
func (r *ProductSpreadRule) Name() string { return "product-spread" }

func (r *ProductSpreadRule) Find(pool *recon.UnmatchedPool) []model.MatchResult {
	var matches []model.MatchResult
	sep := r.fam.Decomposition.SpreadSeparator

	idx := recon.NewIndex(pool.Available(model.SourceExchange), r.legProjection())

	for _, trader := range pool.Available(model.SourceTrader) {
		if crackBase(trader.Product) != "" {
			continue
		}
		legA, legB, ok := spreadLegs(trader.Product, sep)
		if !ok {
			continue
		}

		// Both legs convert with the first product's ratio: the B leg
		// is generated from the spread, so the original product
		// governs the conversion.
		qtyA := r.units.Convert(trader.Quantity, trader.Unit, r.fam.CanonicalUnit(legA), legA)
		qtyB := r.units.Convert(trader.Quantity, trader.Unit, r.fam.CanonicalUnit(legB), legA)

		aKey := r.legKey(legA, trader.ContractMonth, r.exchangeSide(trader.Side), trader)
		bKey := r.legKey(legB, trader.ContractMonth, r.exchangeSide(trader.Side.Opposite()), trader)

		if m, ok := r.seatSpreadLegs(pool, idx, trader, legA, qtyA, qtyB,
			idx.Lookup(aKey), idx.Lookup(bKey)); ok {
			matches = append(matches, m)
		}
	}

	if r.log != nil {
		r.log.Debug("product-spread pass", "matches", len(matches))
	}
	return matches
}

// seatSpreadLegs finds the first admissible (A, B) exchange pair and commits.
func (r *ProductSpreadRule) seatSpreadLegs(pool *recon.UnmatchedPool, idx *recon.SignatureIndex,
	trader model.Trade, ratioProduct string, qtyA, qtyB decimal.Decimal,
	aCands, bCands []model.Trade) (model.MatchResult, bool) {

	for _, ac := range aCands {
		if !pool.IsAvailable(ac.InternalTradeID, model.SourceExchange) {
			continue
		}
		acQty := r.units.Convert(ac.Quantity, ac.Unit, r.fam.CanonicalUnit(ac.Product), ratioProduct)
		if !acQty.Equal(qtyA) {
			continue
		}
		for _, bc := range bCands {
			if bc.InternalTradeID == ac.InternalTradeID {
				continue
			}
			if !pool.IsAvailable(bc.InternalTradeID, model.SourceExchange) {
				continue
			}
			bcQty := r.units.Convert(bc.Quantity, bc.Unit, r.fam.CanonicalUnit(bc.Product), ratioProduct)
			if !bcQty.Equal(qtyB) {
				continue
			}
			composite := ac.Price.Sub(bc.Price)
			if !r.withinDefaultTol(trader.Price, composite) {
				continue
			}

			match := model.MatchResult{
				MatchID:                  r.matchID(r.number),
				RuleNumber:               r.number,
				Confidence:               r.fam.Confidence(r.number),
				TraderTrade:              trader,
				ExchangeTrade:            ac,
				AdditionalExchangeTrades: []model.Trade{bc},
				MatchedFields: append([]string{
					"product", "contract_month", "quantity", "side", "spread_price",
				}, r.universalFields()...),
				Status: model.StatusMatched,
			}
			if pool.Commit(match) {
				idx.Remove(ac)
				idx.Remove(bc)
				return match, true
			}
		}
	}
	return model.MatchResult{}, false
}
