package model

import "github.com/shopspring/decimal"

// MatchStatus classifies a result row.
type MatchStatus string

const (
	StatusMatched          MatchStatus = "matched"
	StatusPendingExchange  MatchStatus = "pending_exchange"
	StatusUnmatchedTraders MatchStatus = "unmatched_traders"
	StatusUnmatchedExch    MatchStatus = "unmatched_exch"
)

// MatchResult is the immutable audit record for one accepted match. N-to-M
// rules carry their extra legs in the Additional slices; the primary trades
// are always present.
type MatchResult struct {
	MatchID    string
	RuleNumber int
	Confidence decimal.Decimal

	TraderTrade   Trade
	ExchangeTrade Trade

	AdditionalTraderTrades   []Trade
	AdditionalExchangeTrades []Trade

	// MatchedFields is the projection the rule enforced equal
	// (rule-specific fields plus the universal fields).
	MatchedFields []string

	Status MatchStatus
}

// TraderIDs returns every trader-side id referenced by the match, primary
// first, additionals in their recorded order.
func (m MatchResult) TraderIDs() []string {
	ids := make([]string, 0, 1+len(m.AdditionalTraderTrades))
	ids = append(ids, m.TraderTrade.InternalTradeID)
	for _, t := range m.AdditionalTraderTrades {
		ids = append(ids, t.InternalTradeID)
	}
	return ids
}

// ExchangeIDs returns every exchange-side id referenced by the match.
func (m MatchResult) ExchangeIDs() []string {
	ids := make([]string, 0, 1+len(m.AdditionalExchangeTrades))
	ids = append(ids, m.ExchangeTrade.InternalTradeID)
	for _, t := range m.AdditionalExchangeTrades {
		ids = append(ids, t.InternalTradeID)
	}
	return ids
}

// TraderTrades returns all trader-side trades, primary first.
func (m MatchResult) TraderTrades() []Trade {
	out := make([]Trade, 0, 1+len(m.AdditionalTraderTrades))
	out = append(out, m.TraderTrade)
	return append(out, m.AdditionalTraderTrades...)
}

// ExchangeTrades returns all exchange-side trades, primary first.
func (m MatchResult) ExchangeTrades() []Trade {
	out := make([]Trade, 0, 1+len(m.AdditionalExchangeTrades))
	out = append(out, m.ExchangeTrade)
	return append(out, m.AdditionalExchangeTrades...)
}
