package rules

import (
	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/recon"
)

// ExactRule is rule 1 in every family. A trader and an exchange trade match
// when product, contract month, unit-normalized quantity, price, side (per
// the family's side convention) and the options fields are all equal, along
// with the universal fields. Options therefore only ever match options.
type ExactRule struct {
	base
	number int
}

// NewExactRule builds the exact matcher.
func NewExactRule(b base) *ExactRule {
	return &ExactRule{base: b, number: 1}
}

func (r *ExactRule) Number() int  { return r.number }
func (r *ExactRule) Name() string { return "exact" }

// exactKey builds the rule's signature with an explicit side value, so the
// trader probe can apply the family's side mapping.
func (r *ExactRule) exactKey(t model.Trade, side model.Side) recon.Key {
	kb := &recon.KeyBuilder{}
	kb.Add(t.Product).Add(t.ContractMonth)
	kb.AddDecimal(r.canonicalQty(t))
	kb.AddDecimal(t.Price)
	kb.Add(string(side))
	kb.AddOptDecimal(t.Strike)
	kb.Add(string(t.PutCall))
	r.addUniversal(kb, t)
	return kb.Key()
}

// Find pairs each trader trade with the first exchange trade sharing its
// signature, in ascending trade-id order on both sides.
func (r *ExactRule) Find(pool *recon.UnmatchedPool) []model.MatchResult {
	var matches []model.MatchResult

	exchangeIdx := recon.NewIndex(pool.Available(model.SourceExchange), func(t model.Trade) recon.Key {
		return r.exactKey(t, t.Side)
	})

	for _, trader := range pool.Available(model.SourceTrader) {
		probe := r.exactKey(trader, r.exchangeSide(trader.Side))
		for _, cand := range exchangeIdx.Lookup(probe) {
			if !pool.IsAvailable(cand.InternalTradeID, model.SourceExchange) {
				continue
			}
			match := model.MatchResult{
				MatchID:       r.matchID(r.number),
				RuleNumber:    r.number,
				Confidence:    r.fam.Confidence(r.number),
				TraderTrade:   trader,
				ExchangeTrade: cand,
				MatchedFields: append([]string{
					"product", "contract_month", "quantity", "price", "side",
				}, r.universalFields()...),
				Status: model.StatusMatched,
			}
			if pool.Commit(match) {
				matches = append(matches, match)
				exchangeIdx.Remove(cand)
				break
			}
		}
	}

	if r.log != nil {
		r.log.Debug("exact pass", "matches", len(matches))
	}
	return matches
}
