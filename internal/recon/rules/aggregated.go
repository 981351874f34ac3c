package rules

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/recon"
)

// The aggregated rules lift a 1:1 structural rule to N trader trades against
// M exchange trades. The predicate is on leg-class sums: for each leg class
// the trader-side sum and the exchange-side sum must agree exactly, with
// tolerance applied only to the price identity (on quantity-weighted average
// prices). Rules 7 and 10 lift the crack rule — rule 7 groups trader cracks
// by price, rule 10 regroups the leftovers ignoring price. Rule 12 lifts the
// product-spread rule the same way.

// AggregatedCrackRule implements ICE rules 7 and 10.
type AggregatedCrackRule struct {
	base
	number       int
	groupByPrice bool
}

// NewAggregatedCrackRule builds the aggregated crack matcher.
func NewAggregatedCrackRule(b base, number int, groupByPrice bool) *AggregatedCrackRule {
	return &AggregatedCrackRule{base: b, number: number, groupByPrice: groupByPrice}
}

func (r *AggregatedCrackRule) Number() int { return r.number }
func (r *AggregatedCrackRule) Name() string {
	if r.groupByPrice {
		return "aggregated-crack"
	}
	return "aggregated-crack-regrouped"
}

func (r *AggregatedCrackRule) groupKey(t model.Trade) recon.Key {
	kb := &recon.KeyBuilder{}
	kb.Add(t.Product).Add(t.ContractMonth).Add(string(t.Side))
	if r.groupByPrice {
		kb.AddDecimal(t.Price)
	}
	r.addUniversal(kb, t)
	return kb.Key()
}

func (r *AggregatedCrackRule) Find(pool *recon.UnmatchedPool) []model.MatchResult {
	var matches []model.MatchResult
	hub := r.fam.Decomposition.CrackHubProduct

	for _, group := range groupTrades(pool.Available(model.SourceTrader), func(t model.Trade) (recon.Key, bool) {
		if crackBase(t.Product) == "" {
			return "", false
		}
		return r.groupKey(t), true
	}) {
		cracks := availableOnly(pool, group, model.SourceTrader)
		if len(cracks) == 0 {
			continue
		}
		anchor := cracks[0]
		baseProduct := crackBase(anchor.Product)

		baseLegs := legClass(pool, r.base, baseProduct, anchor.ContractMonth,
			r.exchangeSide(anchor.Side), anchor)
		hubLegs := legClass(pool, r.base, hub, anchor.ContractMonth,
			r.exchangeSide(anchor.Side.Opposite()), anchor)
		if len(baseLegs) == 0 || len(hubLegs) == 0 {
			continue
		}
		// A genuinely aggregated shape: more than one leg somewhere.
		if len(cracks) < 2 && len(baseLegs) < 2 && len(hubLegs) < 2 {
			continue
		}

		// Leg-class sums, all in canonical units with the base
		// product's ratio driving the hub conversion.
		baseUnit := r.fam.CanonicalUnit(baseProduct)
		hubUnit := r.fam.CanonicalUnit(hub)
		wantBase := decimal.Zero
		wantHub := decimal.Zero
		for _, c := range cracks {
			wantBase = wantBase.Add(r.units.Convert(c.Quantity, c.Unit, baseUnit, baseProduct))
			wantHub = wantHub.Add(r.units.Convert(c.Quantity, c.Unit, hubUnit, baseProduct))
		}
		gotBase := r.sumCanonical(baseLegs)
		gotHub := decimal.Zero
		for _, h := range hubLegs {
			gotHub = gotHub.Add(r.units.Convert(h.Quantity, h.Unit, hubUnit, baseProduct))
		}
		if !gotBase.Equal(wantBase) || !gotHub.Equal(wantHub) {
			continue
		}

		avgCrack := r.weightedAvgPrice(cracks)
		composite := r.weightedAvgPrice(baseLegs).Sub(r.weightedAvgPrice(hubLegs))
		if !r.withinDefaultTol(avgCrack, composite) {
			continue
		}

		exchangeLegs := append(append([]model.Trade(nil), baseLegs...), hubLegs...)
		match := model.MatchResult{
			MatchID:                  r.matchID(r.number),
			RuleNumber:               r.number,
			Confidence:               r.fam.Confidence(r.number),
			TraderTrade:              cracks[0],
			ExchangeTrade:            exchangeLegs[0],
			AdditionalTraderTrades:   cracks[1:],
			AdditionalExchangeTrades: exchangeLegs[1:],
			MatchedFields: append([]string{
				"product", "contract_month", "quantity_sum", "side", "crack_price",
			}, r.universalFields()...),
			Status: model.StatusMatched,
		}
		if pool.Commit(match) {
			matches = append(matches, match)
		}
	}

	if r.log != nil {
		r.log.Debug("aggregated-crack pass", "rule", r.number, "matches", len(matches))
	}
	return matches
}

// AggregatedSpreadRule is ICE rule 8: a calendar spread carried by several
// legs per month on either side. Trader legs group by product and universal
// fields across exactly two months with opposite sides; the exchange side
// must sum to the same per-month quantities, and the month price deltas of
// the two sides agree within tolerance_default.
type AggregatedSpreadRule struct {
	base
	number int
}

// NewAggregatedSpreadRule builds the aggregated calendar-spread matcher.
func NewAggregatedSpreadRule(b base) *AggregatedSpreadRule {
	return &AggregatedSpreadRule{base: b, number: 8}
}

func (r *AggregatedSpreadRule) Number() int  { return r.number }
func (r *AggregatedSpreadRule) Name() string { return "aggregated-spread" }

func (r *AggregatedSpreadRule) Find(pool *recon.UnmatchedPool) []model.MatchResult {
	var matches []model.MatchResult

	for _, group := range groupTrades(pool.Available(model.SourceTrader), func(t model.Trade) (recon.Key, bool) {
		kb := &recon.KeyBuilder{}
		kb.Add(t.Product)
		r.addUniversal(kb, t)
		return kb.Key(), true
	}) {
		legs := availableOnly(pool, group, model.SourceTrader)
		if len(legs) < 3 {
			// One leg per month is rule 2's shape.
			continue
		}
		front, back, ok := splitSpreadMonths(legs)
		if !ok {
			continue
		}

		anchorF, anchorB := front[0], back[0]
		exchFront := legClass(pool, r.base, anchorF.Product, anchorF.ContractMonth,
			r.exchangeSide(anchorF.Side), anchorF)
		exchBack := legClass(pool, r.base, anchorB.Product, anchorB.ContractMonth,
			r.exchangeSide(anchorB.Side), anchorB)
		if len(exchFront) == 0 || len(exchBack) == 0 {
			continue
		}

		if !r.sumCanonical(exchFront).Equal(r.sumCanonical(front)) ||
			!r.sumCanonical(exchBack).Equal(r.sumCanonical(back)) {
			continue
		}

		traderDelta := r.weightedAvgPrice(front).Sub(r.weightedAvgPrice(back))
		exchangeDelta := r.weightedAvgPrice(exchFront).Sub(r.weightedAvgPrice(exchBack))
		if !r.withinDefaultTol(traderDelta, exchangeDelta) {
			continue
		}

		traderLegs := append(append([]model.Trade(nil), front...), back...)
		exchangeLegs := append(append([]model.Trade(nil), exchFront...), exchBack...)
		match := model.MatchResult{
			MatchID:                  r.matchID(r.number),
			RuleNumber:               r.number,
			Confidence:               r.fam.Confidence(r.number),
			TraderTrade:              traderLegs[0],
			ExchangeTrade:            exchangeLegs[0],
			AdditionalTraderTrades:   traderLegs[1:],
			AdditionalExchangeTrades: exchangeLegs[1:],
			MatchedFields: append([]string{
				"product", "contract_month", "quantity_sum", "side", "price_delta",
			}, r.universalFields()...),
			Status: model.StatusMatched,
		}
		if pool.Commit(match) {
			matches = append(matches, match)
		}
	}

	if r.log != nil {
		r.log.Debug("aggregated-spread pass", "matches", len(matches))
	}
	return matches
}

// AggregatedProductSpreadRule is ICE rule 12, the aggregated lift of the
// product-spread rule.
type AggregatedProductSpreadRule struct {
	base
	number int
}

// NewAggregatedProductSpreadRule builds the aggregated product-spread matcher.
func NewAggregatedProductSpreadRule(b base) *AggregatedProductSpreadRule {
	return &AggregatedProductSpreadRule{base: b, number: 12}
}

func (r *AggregatedProductSpreadRule) Number() int  { return r.number }
func (r *AggregatedProductSpreadRule) Name() string { return "aggregated-product-spread" }

func (r *AggregatedProductSpreadRule) Find(pool *recon.UnmatchedPool) []model.MatchResult {
	var matches []model.MatchResult
	sep := r.fam.Decomposition.SpreadSeparator

	for _, group := range groupTrades(pool.Available(model.SourceTrader), func(t model.Trade) (recon.Key, bool) {
		if crackBase(t.Product) != "" {
			return "", false
		}
		if _, _, ok := spreadLegs(t.Product, sep); !ok {
			return "", false
		}
		kb := &recon.KeyBuilder{}
		kb.Add(t.Product).Add(t.ContractMonth).Add(string(t.Side))
		r.addUniversal(kb, t)
		return kb.Key(), true
	}) {
		spreads := availableOnly(pool, group, model.SourceTrader)
		if len(spreads) == 0 {
			continue
		}
		anchor := spreads[0]
		legA, legB, _ := spreadLegs(anchor.Product, sep)

		aLegs := legClass(pool, r.base, legA, anchor.ContractMonth,
			r.exchangeSide(anchor.Side), anchor)
		bLegs := legClass(pool, r.base, legB, anchor.ContractMonth,
			r.exchangeSide(anchor.Side.Opposite()), anchor)
		if len(aLegs) == 0 || len(bLegs) == 0 {
			continue
		}
		if len(spreads) < 2 && len(aLegs) < 2 && len(bLegs) < 2 {
			continue
		}

		wantA := decimal.Zero
		wantB := decimal.Zero
		for _, s := range spreads {
			wantA = wantA.Add(r.units.Convert(s.Quantity, s.Unit, r.fam.CanonicalUnit(legA), legA))
			wantB = wantB.Add(r.units.Convert(s.Quantity, s.Unit, r.fam.CanonicalUnit(legB), legA))
		}
		gotA := decimal.Zero
		for _, t := range aLegs {
			gotA = gotA.Add(r.units.Convert(t.Quantity, t.Unit, r.fam.CanonicalUnit(legA), legA))
		}
		gotB := decimal.Zero
		for _, t := range bLegs {
			gotB = gotB.Add(r.units.Convert(t.Quantity, t.Unit, r.fam.CanonicalUnit(legB), legA))
		}
		if !gotA.Equal(wantA) || !gotB.Equal(wantB) {
			continue
		}

		avgSpread := r.weightedAvgPrice(spreads)
		composite := r.weightedAvgPrice(aLegs).Sub(r.weightedAvgPrice(bLegs))
		if !r.withinDefaultTol(avgSpread, composite) {
			continue
		}

		exchangeLegs := append(append([]model.Trade(nil), aLegs...), bLegs...)
		match := model.MatchResult{
			MatchID:                  r.matchID(r.number),
			RuleNumber:               r.number,
			Confidence:               r.fam.Confidence(r.number),
			TraderTrade:              spreads[0],
			ExchangeTrade:            exchangeLegs[0],
			AdditionalTraderTrades:   spreads[1:],
			AdditionalExchangeTrades: exchangeLegs[1:],
			MatchedFields: append([]string{
				"product", "contract_month", "quantity_sum", "side", "spread_price",
			}, r.universalFields()...),
			Status: model.StatusMatched,
		}
		if pool.Commit(match) {
			matches = append(matches, match)
		}
	}

	if r.log != nil {
		r.log.Debug("aggregated-product-spread pass", "matches", len(matches))
	}
	return matches
}

// groupTrades partitions trades by a keying function, preserving first-seen
// key order. Trades the keyer rejects are skipped.
func groupTrades(trades []model.Trade, keyer func(model.Trade) (recon.Key, bool)) [][]model.Trade {
	groups := make(map[recon.Key][]model.Trade)
	var order []recon.Key
	for _, t := range trades {
		k, ok := keyer(t)
		if !ok {
			continue
		}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], t)
	}
	out := make([][]model.Trade, 0, len(order))
	for _, k := range order {
		out = append(out, groups[k])
	}
	return out
}

// legClass collects every available exchange trade of one leg class:
// (product, month, side) plus the anchor's universal fields, ascending id.
func legClass(pool *recon.UnmatchedPool, b base, product, month string,
	side model.Side, anchor model.Trade) []model.Trade {

	want := b.legKey(product, month, side, anchor)
	var out []model.Trade
	for _, t := range pool.Available(model.SourceExchange) {
		if b.legKey(t.Product, t.ContractMonth, t.Side, t) == want {
			out = append(out, t)
		}
	}
	return out
}

// splitSpreadMonths splits a trader leg group into front and back month legs.
// The group must span exactly two months, each month's legs sharing one side
// and the two sides opposing.
func splitSpreadMonths(legs []model.Trade) (front, back []model.Trade, ok bool) {
	byMonth := make(map[string][]model.Trade)
	var months []string
	for _, t := range legs {
		if _, seen := byMonth[t.ContractMonth]; !seen {
			months = append(months, t.ContractMonth)
		}
		byMonth[t.ContractMonth] = append(byMonth[t.ContractMonth], t)
	}
	if len(months) != 2 {
		return nil, nil, false
	}
	sort.Slice(months, func(i, j int) bool {
		return model.CompareContractMonths(months[i], months[j]) < 0
	})
	front, back = byMonth[months[0]], byMonth[months[1]]
	for _, t := range front[1:] {
		if t.Side != front[0].Side {
			return nil, nil, false
		}
	}
	for _, t := range back[1:] {
		if t.Side != back[0].Side {
			return nil, nil, false
		}
	}
	if front[0].Side == back[0].Side {
		return nil, nil, false
	}
	return front, back, true
}
