package rules

import (
	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/recon"
)

// SpreadRule matches calendar spreads (ICE rule 2, SGX rule 2). A trader
// spread is a pair of trader trades on the same product with opposite sides,
// different contract months and equal quantities. The exchange side must
// carry the mirrored pair: same two months, same quantities, sides mapped by
// the family convention. The price predicate compares the front-minus-back
// price delta of the two pairs within tolerance_default. All four trades
// commit atomically.
type SpreadRule struct {
	base
	number int
}

// NewSpreadRule builds the calendar-spread matcher.
func NewSpreadRule(b base, number int) *SpreadRule {
	return &SpreadRule{base: b, number: number}
}

func (r *SpreadRule) Number() int  { return r.number }
func (r *SpreadRule) Name() string { return "spread" }

// pairGroupKey groups potential spread legs: same product and quantity and
// universal fields, months and sides free.
func (r *SpreadRule) pairGroupKey(t model.Trade) recon.Key {
	kb := &recon.KeyBuilder{}
	kb.Add(t.Product)
	kb.AddDecimal(r.canonicalQty(t))
	r.addUniversal(kb, t)
	return kb.Key()
}

// exchangeLegKey keys one exchange leg: product, month, quantity, side plus
// universal fields.
func (r *SpreadRule) exchangeLegKey(product, month string, qty decimal.Decimal, side model.Side, t model.Trade) recon.Key {
	kb := &recon.KeyBuilder{}
	kb.Add(product).Add(month)
	kb.AddDecimal(qty)
	kb.Add(string(side))
	r.addUniversal(kb, t)
	return kb.Key()
}

func (r *SpreadRule) Find(pool *recon.UnmatchedPool) []model.MatchResult {
	var matches []model.MatchResult

	exchangeIdx := recon.NewIndex(pool.Available(model.SourceExchange), func(t model.Trade) recon.Key {
		return r.exchangeLegKey(t.Product, t.ContractMonth, r.canonicalQty(t), t.Side, t)
	})

	// Group trader candidates into potential spread pairs.
	traderIdx := recon.NewIndex(pool.Available(model.SourceTrader), func(t model.Trade) recon.Key {
		return r.pairGroupKey(t)
	})

	for _, trader := range pool.Available(model.SourceTrader) {
		if !pool.IsAvailable(trader.InternalTradeID, model.SourceTrader) {
			continue
		}
		group := traderIdx.Lookup(r.pairGroupKey(trader))
		for _, other := range group {
			if other.InternalTradeID == trader.InternalTradeID {
				continue
			}
			// Enumerate each unordered pair once, anchored on the
			// lower id.
			if model.CompareTradeIDs(trader.InternalTradeID, other.InternalTradeID) >= 0 {
				continue
			}
			if !pool.IsAvailable(other.InternalTradeID, model.SourceTrader) {
				continue
			}
			if other.Side == trader.Side || other.ContractMonth == trader.ContractMonth {
				continue
			}

			front, back := trader, other
			if model.CompareContractMonths(front.ContractMonth, back.ContractMonth) > 0 {
				front, back = back, front
			}
			traderDelta := front.Price.Sub(back.Price)

			if m, ok := r.matchExchangePair(pool, exchangeIdx, front, back, traderDelta); ok {
				matches = append(matches, m)
				break
			}
		}
	}

	if r.log != nil {
		r.log.Debug("spread pass", "matches", len(matches))
	}
	return matches
}

// matchExchangePair searches the exchange index for the mirrored leg pair
// and commits the quad on success.
func (r *SpreadRule) matchExchangePair(pool *recon.UnmatchedPool, idx *recon.SignatureIndex,
	front, back model.Trade, traderDelta decimal.Decimal) (model.MatchResult, bool) {

	qty := r.canonicalQty(front)
	frontKey := r.exchangeLegKey(front.Product, front.ContractMonth, qty, r.exchangeSide(front.Side), front)
	backKey := r.exchangeLegKey(back.Product, back.ContractMonth, qty, r.exchangeSide(back.Side), back)

	for _, ef := range idx.Lookup(frontKey) {
		if !pool.IsAvailable(ef.InternalTradeID, model.SourceExchange) {
			continue
		}
		for _, eb := range idx.Lookup(backKey) {
			if eb.InternalTradeID == ef.InternalTradeID {
				continue
			}
			if !pool.IsAvailable(eb.InternalTradeID, model.SourceExchange) {
				continue
			}
			exchangeDelta := ef.Price.Sub(eb.Price)
			if !r.withinDefaultTol(traderDelta, exchangeDelta) {
				continue
			}

			match := model.MatchResult{
				MatchID:                  r.matchID(r.number),
				RuleNumber:               r.number,
				Confidence:               r.fam.Confidence(r.number),
				TraderTrade:              front,
				ExchangeTrade:            ef,
				AdditionalTraderTrades:   []model.Trade{back},
				AdditionalExchangeTrades: []model.Trade{eb},
				MatchedFields: append([]string{
					"product", "contract_month", "quantity", "side", "price_delta",
				}, r.universalFields()...),
				Status: model.StatusMatched,
			}
			if pool.Commit(match) {
				idx.Remove(ef)
				idx.Remove(eb)
				return match, true
			}
		}
	}
	return model.MatchResult{}, false
}
