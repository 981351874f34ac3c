package rule0

import (
	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
)

// CompareStatus classifies one position comparison.
type CompareStatus string

const (
	StatusZero              CompareStatus = "ZERO"
	StatusMatched           CompareStatus = "MATCHED"
	StatusMissingInExchange CompareStatus = "MISSING_IN_EXCHANGE"
	StatusMissingInTrader   CompareStatus = "MISSING_IN_TRADER"
	StatusQuantityMismatch  CompareStatus = "QUANTITY_MISMATCH"
)

// Comparison is the result for one (month, product) key.
type Comparison struct {
	Product          string
	ContractMonth    string
	TraderQuantity   decimal.Decimal
	ExchangeQuantity decimal.Decimal
	Unit             model.Unit
	Difference       decimal.Decimal // trader - exchange
	Status           CompareStatus
	TraderTrades     int
	ExchangeTrades   int
}

// HasDiscrepancy reports whether the comparison needs attention.
func (c Comparison) HasDiscrepancy() bool {
	return c.Status != StatusMatched && c.Status != StatusZero
}

// Compare walks the union of keys across both matrices and classifies each.
// Tolerance is selected by the unit of the aggregate at the key, falling
// back to the default tolerance.
func Compare(trader, exchange *PositionMatrix, fam *config.FamilyConfig) []Comparison {
	keySet := make(map[PositionKey]bool)
	for _, k := range trader.Keys() {
		keySet[k] = true
	}
	for _, k := range exchange.Keys() {
		keySet[k] = true
	}
	keys := make([]PositionKey, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sortKeys(keys)

	out := make([]Comparison, 0, len(keys))
	for _, key := range keys {
		tp := trader.Get(key)
		ep := exchange.Get(key)

		c := Comparison{
			Product:          key.Product,
			ContractMonth:    key.ContractMonth,
			TraderQuantity:   decimal.Zero,
			ExchangeQuantity: decimal.Zero,
		}
		if tp != nil {
			c.TraderQuantity = tp.Quantity
			c.Unit = tp.Unit
			c.TraderTrades = tp.TradeCount
		}
		if ep != nil {
			c.ExchangeQuantity = ep.Quantity
			if c.Unit == "" {
				c.Unit = ep.Unit
			}
			c.ExchangeTrades = ep.TradeCount
		}
		c.Difference = c.TraderQuantity.Sub(c.ExchangeQuantity)
		c.Status = classify(c, fam)
		out = append(out, c)
	}
	return out
}

func classify(c Comparison, fam *config.FamilyConfig) CompareStatus {
	traderZero := c.TraderQuantity.IsZero()
	exchangeZero := c.ExchangeQuantity.IsZero()

	if traderZero && exchangeZero && c.TraderTrades == 0 && c.ExchangeTrades == 0 {
		return StatusZero
	}
	if exchangeZero && !traderZero {
		return StatusMissingInExchange
	}
	if traderZero && !exchangeZero {
		return StatusMissingInTrader
	}
	if c.Difference.Abs().Cmp(fam.Tolerance(c.Unit)) <= 0 {
		return StatusMatched
	}
	return StatusQuantityMismatch
}

// Summary aggregates comparison counts.
type Summary struct {
	Total             int
	Matched           int
	QuantityMismatch  int
	MissingInExchange int
	MissingInTrader   int
	Zero              int
	Discrepancies     int
	MatchRate         float64
}

// Summarize computes counts and the match rate over non-zero positions.
func Summarize(comparisons []Comparison) Summary {
	s := Summary{Total: len(comparisons)}
	for _, c := range comparisons {
		switch c.Status {
		case StatusMatched:
			s.Matched++
		case StatusQuantityMismatch:
			s.QuantityMismatch++
		case StatusMissingInExchange:
			s.MissingInExchange++
		case StatusMissingInTrader:
			s.MissingInTrader++
		case StatusZero:
			s.Zero++
		}
		if c.HasDiscrepancy() {
			s.Discrepancies++
		}
	}
	if nonZero := s.Total - s.Zero; nonZero > 0 {
		s.MatchRate = float64(s.Matched) / float64(nonZero) * 100
	}
	return s
}
