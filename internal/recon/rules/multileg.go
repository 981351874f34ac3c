package rules

import (
	"sort"

	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/recon"
)

// MultilegRule is ICE rule 9: strips of three or more trader legs tagged
// with the spread flag, sharing product, absolute quantity and universal
// fields, spanning consecutive contract months with alternating sides. The
// exchange side must seat a leg for every month with the mirrored side. The
// whole strip commits atomically.
type MultilegRule struct {
	base
	number int
}

// NewMultilegRule builds the multileg-strip matcher.
func NewMultilegRule(b base) *MultilegRule {
	return &MultilegRule{base: b, number: 9}
}

func (r *MultilegRule) Number() int  { return r.number }
func (r *MultilegRule) Name() string { return "multileg" }

// stripGroupKey groups candidate strip legs by product, quantity and
// universal fields.
func (r *MultilegRule) stripGroupKey(t model.Trade) recon.Key {
	kb := &recon.KeyBuilder{}
	kb.Add(t.Product)
	kb.AddDecimal(r.canonicalQty(t))
	r.addUniversal(kb, t)
	return kb.Key()
}

func (r *MultilegRule) Find(pool *recon.UnmatchedPool) []model.MatchResult {
	var matches []model.MatchResult

	// Collect flagged trader legs into structural groups.
	groups := make(map[recon.Key][]model.Trade)
	var order []recon.Key
	for _, t := range pool.Available(model.SourceTrader) {
		if t.SpreadFlag != "S" {
			continue
		}
		k := r.stripGroupKey(t)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], t)
	}

	exchangeIdx := recon.NewIndex(pool.Available(model.SourceExchange), r.legProjection())

	for _, k := range order {
		legs := availableOnly(pool, groups[k], model.SourceTrader)
		if len(legs) < 3 {
			continue
		}
		sort.Slice(legs, func(i, j int) bool {
			return model.CompareContractMonths(legs[i].ContractMonth, legs[j].ContractMonth) < 0
		})
		if !isStrip(legs) {
			continue
		}

		exchangeLegs, ok := r.seatExchangeStrip(pool, exchangeIdx, legs)
		if !ok {
			continue
		}

		match := model.MatchResult{
			MatchID:                  r.matchID(r.number),
			RuleNumber:               r.number,
			Confidence:               r.fam.Confidence(r.number),
			TraderTrade:              legs[0],
			ExchangeTrade:            exchangeLegs[0],
			AdditionalTraderTrades:   legs[1:],
			AdditionalExchangeTrades: exchangeLegs[1:],
			MatchedFields: append([]string{
				"product", "contract_month", "quantity", "side", "spread_flag",
			}, r.universalFields()...),
			Status: model.StatusMatched,
		}
		if pool.Commit(match) {
			matches = append(matches, match)
			for _, leg := range exchangeLegs {
				exchangeIdx.Remove(leg)
			}
		}
	}

	if r.log != nil {
		r.log.Debug("multileg pass", "matches", len(matches))
	}
	return matches
}

// isStrip verifies month-sorted legs form a strip: consecutive months,
// alternating sides, one leg per month.
func isStrip(legs []model.Trade) bool {
	for i := 1; i < len(legs); i++ {
		if !model.AdjacentMonths(legs[i-1].ContractMonth, legs[i].ContractMonth) {
			return false
		}
		if legs[i].Side == legs[i-1].Side {
			return false
		}
	}
	return true
}

// seatExchangeStrip finds, for every trader leg, an exchange leg in the same
// month with the mirrored side and equal quantity. Returns the seated legs
// in trader-leg order.
func (r *MultilegRule) seatExchangeStrip(pool *recon.UnmatchedPool, idx *recon.SignatureIndex,
	legs []model.Trade) ([]model.Trade, bool) {

	seated := make([]model.Trade, 0, len(legs))
	used := make(map[string]bool, len(legs))
	for _, leg := range legs {
		key := r.legKey(leg.Product, leg.ContractMonth, r.exchangeSide(leg.Side), leg)
		var found *model.Trade
		for _, cand := range idx.Lookup(key) {
			if used[cand.InternalTradeID] {
				continue
			}
			if !pool.IsAvailable(cand.InternalTradeID, model.SourceExchange) {
				continue
			}
			if !r.canonicalQty(cand).Equal(r.canonicalQty(leg)) {
				continue
			}
			c := cand
			found = &c
			break
		}
		if found == nil {
			return nil, false
		}
		used[found.InternalTradeID] = true
		seated = append(seated, *found)
	}
	return seated, true
}
