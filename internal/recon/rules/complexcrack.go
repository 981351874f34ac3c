package rules

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/recon"
)

// ComplexCrackRule is ICE rule 4. It relaxes rule 3's same-month constraint:
// the hub leg may sit in a different contract month than the base leg. Hub
// candidates are scanned in chronological month order, then ascending id, so
// the first admissible leg-set is deterministic.
type ComplexCrackRule struct {
	base
	number int
}

// NewComplexCrackRule builds the cross-month crack matcher.
func NewComplexCrackRule(b base) *ComplexCrackRule {
	return &ComplexCrackRule{base: b, number: 4}
}

func (r *ComplexCrackRule) Number() int  { return r.number }
func (r *ComplexCrackRule) Name() string { return "complex-crack" }

func (r *ComplexCrackRule) Find(pool *recon.UnmatchedPool) []model.MatchResult {
	var matches []model.MatchResult
	hub := r.fam.Decomposition.CrackHubProduct
	crackRule := &CrackRule{base: r.base, number: r.number}

	idx := recon.NewIndex(pool.Available(model.SourceExchange), r.legProjection())

	for _, trader := range pool.Available(model.SourceTrader) {
		baseProduct := crackBase(trader.Product)
		if baseProduct == "" {
			continue
		}

		baseQty, hubQty := crackRule.crackLegQuantities(trader, baseProduct, hub)

		baseKey := r.legKey(baseProduct, trader.ContractMonth, r.exchangeSide(trader.Side), trader)
		hubCands := hubLegsAllMonths(pool, r.base, hub, r.exchangeSide(trader.Side.Opposite()), trader)

		// crackRule carries this rule's number, so the produced match
		// is already labeled as rule 4.
		if m, ok := crackRule.seatCrackLegs(pool, idx, trader, baseProduct, baseQty, hubQty,
			idx.Lookup(baseKey), hubCands); ok {
			matches = append(matches, m)
		}
	}

	if r.log != nil {
		r.log.Debug("complex-crack pass", "matches", len(matches))
	}
	return matches
}

// hubLegsAllMonths collects available hub-product legs on the wanted side
// across every contract month, sharing the trader's universal fields,
// ordered chronologically then by id.
func hubLegsAllMonths(pool *recon.UnmatchedPool, b base, hub string,
	side model.Side, trader model.Trade) []model.Trade {

	var out []model.Trade
	for _, t := range pool.Available(model.SourceExchange) {
		if t.Product != hub || t.Side != side {
			continue
		}
		// Universal-field equality via the shared leg key.
		if b.legKey(hub, t.ContractMonth, side, t) != b.legKey(hub, t.ContractMonth, side, trader) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		cmp := model.CompareContractMonths(out[i].ContractMonth, out[j].ContractMonth)
		if cmp != 0 {
			return cmp < 0
		}
		return model.CompareTradeIDs(out[i].InternalTradeID, out[j].InternalTradeID) < 0
	})
	return out
}

// CrackRollRule is ICE rule 11. The hub exposure of a crack is carried by a
// calendar roll: two hub trades in adjacent months with offsetting sides and
// equal quantity, netting to zero hub position. The composite price identity
// is crack = base - (front hub - back hub) within tolerance_default.
type CrackRollRule struct {
	base
	number int
}

// NewCrackRollRule builds the crack-roll matcher.
func NewCrackRollRule(b base) *CrackRollRule {
	return &CrackRollRule{base: b, number: 11}
}

func (r *CrackRollRule) Number() int  { return r.number }
func (r *CrackRollRule) Name() string { return "crack-roll" }

func (r *CrackRollRule) Find(pool *recon.UnmatchedPool) []model.MatchResult {
	var matches []model.MatchResult
	hub := r.fam.Decomposition.CrackHubProduct
	crackRule := &CrackRule{base: r.base, number: r.number}

	idx := recon.NewIndex(pool.Available(model.SourceExchange), r.legProjection())

	for _, trader := range pool.Available(model.SourceTrader) {
		baseProduct := crackBase(trader.Product)
		if baseProduct == "" {
			continue
		}

		baseQty, hubQty := crackRule.crackLegQuantities(trader, baseProduct, hub)

		baseKey := r.legKey(baseProduct, trader.ContractMonth, r.exchangeSide(trader.Side), trader)
		for _, bc := range idx.Lookup(baseKey) {
			if !pool.IsAvailable(bc.InternalTradeID, model.SourceExchange) {
				continue
			}
			if !r.canonicalQty(bc).Equal(baseQty) {
				continue
			}
			m, ok := r.seatHubRoll(pool, idx, trader, bc, baseProduct, hub, hubQty)
			if ok {
				matches = append(matches, m)
				break
			}
		}
	}

	if r.log != nil {
		r.log.Debug("crack-roll pass", "matches", len(matches))
	}
	return matches
}

// seatHubRoll finds an adjacent-month hub pair with offsetting sides and the
// rolled quantity whose composite satisfies the crack price identity, then
// commits the four trades.
func (r *CrackRollRule) seatHubRoll(pool *recon.UnmatchedPool, idx *recon.SignatureIndex,
	trader, baseLeg model.Trade, baseProduct, hub string,
	hubQty decimal.Decimal) (model.MatchResult, bool) {

	hubUnit := r.fam.CanonicalUnit(hub)
	fronts := hubLegsAllMonths(pool, r.base, hub, r.exchangeSide(trader.Side.Opposite()), trader)
	backs := hubLegsAllMonths(pool, r.base, hub, r.exchangeSide(trader.Side), trader)

	for _, front := range fronts {
		frontQty := r.units.Convert(front.Quantity, front.Unit, hubUnit, baseProduct)
		if !frontQty.Equal(hubQty) {
			continue
		}
		for _, back := range backs {
			if back.InternalTradeID == front.InternalTradeID ||
				back.InternalTradeID == baseLeg.InternalTradeID {
				continue
			}
			if !model.AdjacentMonths(front.ContractMonth, back.ContractMonth) &&
				!model.AdjacentMonths(back.ContractMonth, front.ContractMonth) {
				continue
			}
			backQty := r.units.Convert(back.Quantity, back.Unit, hubUnit, baseProduct)
			if !backQty.Equal(hubQty) {
				continue
			}
			composite := baseLeg.Price.Sub(front.Price.Sub(back.Price))
			if !r.withinDefaultTol(trader.Price, composite) {
				continue
			}

			match := model.MatchResult{
				MatchID:                  r.matchID(r.number),
				RuleNumber:               r.number,
				Confidence:               r.fam.Confidence(r.number),
				TraderTrade:              trader,
				ExchangeTrade:            baseLeg,
				AdditionalExchangeTrades: []model.Trade{front, back},
				MatchedFields: append([]string{
					"product", "contract_month", "quantity", "side", "crack_price",
				}, r.universalFields()...),
				Status: model.StatusMatched,
			}
			if pool.Commit(match) {
				idx.Remove(baseLeg)
				idx.Remove(front)
				idx.Remove(back)
				return match, true
			}
		}
	}
	return model.MatchResult{}, false
}
