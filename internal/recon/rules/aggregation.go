package rules

import (
	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/recon"
)

// AggregationRule is ICE rule 6: one exchange trade against two or more
// trader trades sharing product, month, price, side and universal fields,
// whose quantities sum to the exchange quantity exactly. The search prefers
// the minimal covering subset; among equal sizes the lexicographically
// smallest id set wins because candidates are enumerated in ascending id
// order. Subset size is capped by aggregation_max_legs.
type AggregationRule struct {
	base
	number int
}

// NewAggregationRule builds the N-to-1 aggregation matcher.
func NewAggregationRule(b base) *AggregationRule {
	return &AggregationRule{base: b, number: 6}
}

func (r *AggregationRule) Number() int  { return r.number }
func (r *AggregationRule) Name() string { return "aggregation" }

// classKey groups aggregation candidates: everything but quantity must be
// identical. The side stored is the exchange-convention side so trader
// candidates group under the exchange trade they can cover.
func (r *AggregationRule) classKey(t model.Trade, side model.Side) recon.Key {
	kb := &recon.KeyBuilder{}
	kb.Add(t.Product).Add(t.ContractMonth)
	kb.AddDecimal(t.Price)
	kb.Add(string(side))
	kb.AddOptDecimal(t.Strike)
	kb.Add(string(t.PutCall))
	r.addUniversal(kb, t)
	return kb.Key()
}

func (r *AggregationRule) Find(pool *recon.UnmatchedPool) []model.MatchResult {
	var matches []model.MatchResult

	traderIdx := recon.NewIndex(pool.Available(model.SourceTrader), func(t model.Trade) recon.Key {
		return r.classKey(t, r.exchangeSide(t.Side))
	})

	for _, exch := range pool.Available(model.SourceExchange) {
		cands := availableOnly(pool, traderIdx.Lookup(r.classKey(exch, exch.Side)), model.SourceTrader)
		if len(cands) < 2 {
			continue
		}
		target := r.canonicalQty(exch)
		qtys := make([]decimal.Decimal, len(cands))
		for i, c := range cands {
			qtys[i] = r.canonicalQty(c)
		}

		subset := minimalCoveringSubset(qtys, target, r.fam.AggregationMaxLegs)
		if len(subset) < 2 {
			continue
		}

		legs := make([]model.Trade, 0, len(subset))
		for _, i := range subset {
			legs = append(legs, cands[i])
		}
		match := model.MatchResult{
			MatchID:                r.matchID(r.number),
			RuleNumber:             r.number,
			Confidence:             r.fam.Confidence(r.number),
			TraderTrade:            legs[0],
			ExchangeTrade:          exch,
			AdditionalTraderTrades: legs[1:],
			MatchedFields: append([]string{
				"product", "contract_month", "price", "side", "quantity_sum",
			}, r.universalFields()...),
			Status: model.StatusMatched,
		}
		if pool.Commit(match) {
			matches = append(matches, match)
			for _, leg := range legs {
				traderIdx.Remove(leg)
			}
		}
	}

	if r.log != nil {
		r.log.Debug("aggregation pass", "matches", len(matches))
	}
	return matches
}

// availableOnly filters an index bucket down to trades still in the pool.
func availableOnly(pool *recon.UnmatchedPool, trades []model.Trade, source model.Source) []model.Trade {
	out := make([]model.Trade, 0, len(trades))
	for _, t := range trades {
		if pool.IsAvailable(t.InternalTradeID, source) {
			out = append(out, t)
		}
	}
	return out
}

// minimalCoveringSubset returns the indices of the smallest subset of qtys
// summing exactly to target, searching sizes 2..maxLegs. Candidates are in
// ascending id order, and combinations are enumerated lexicographically, so
// the first hit at a given size is the smallest id set of that size.
func minimalCoveringSubset(qtys []decimal.Decimal, target decimal.Decimal, maxLegs int) []int {
	n := len(qtys)
	if maxLegs > n {
		maxLegs = n
	}
	pick := make([]int, 0, maxLegs)

	var search func(start int, k int, remaining decimal.Decimal) []int
	search = func(start, k int, remaining decimal.Decimal) []int {
		if k == 0 {
			if remaining.IsZero() {
				return append([]int(nil), pick...)
			}
			return nil
		}
		for i := start; i <= n-k; i++ {
			q := qtys[i]
			// Quantities are positive: overshoot prunes the branch.
			if q.Cmp(remaining) > 0 {
				continue
			}
			pick = append(pick, i)
			if found := search(i+1, k-1, remaining.Sub(q)); found != nil {
				return found
			}
			pick = pick[:len(pick)-1]
		}
		return nil
	}

	for k := 2; k <= maxLegs; k++ {
		if found := search(0, k, target); found != nil {
			return found
		}
	}
	return nil
}
