// Package model defines the canonical trade and match types shared by all
// matching families. Values are immutable once constructed: nothing in the
// engine mutates a Trade after it enters a pool.
package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Source identifies which record set a trade came from.
type Source string

const (
	SourceTrader   Source = "trader"
	SourceExchange Source = "exchange"
)

// Side is the buy/sell indicator in its normalized form.
type Side string

const (
	SideBuy  Side = "B"
	SideSell Side = "S"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Unit is the quantity unit tag carried by a trade.
type Unit string

const (
	UnitMT    Unit = "MT"
	UnitBBL   Unit = "BBL"
	UnitLots  Unit = "LOTS"
	UnitUnits Unit = "UNITS"
)

// PutCall marks an option trade as a put or a call.
type PutCall string

const (
	PutOption  PutCall = "P"
	CallOption PutCall = "C"
)

// Trade is a single normalized trade record. Identity is InternalTradeID
// within its Source. Product and ContractMonth are already canonical; the
// loaders and Normalizer are responsible for that.
type Trade struct {
	InternalTradeID string
	Source          Source

	Product       string
	ContractMonth string
	Quantity      decimal.Decimal
	Unit          Unit
	Price         decimal.Decimal
	Side          Side

	BrokerGroupID   *int64
	ClearingAcctID  *int64
	ExchangeGroupID *int64

	// Options extras. Futures carry neither.
	Strike  *decimal.Decimal
	PutCall PutCall

	// SpreadFlag is "S" when the trader tagged this as a spread leg.
	SpreadFlag string
}

// IsOption reports whether the trade carries option fields.
func (t Trade) IsOption() bool {
	return t.PutCall != ""
}

// Validate checks the invariants the engine assumes of canonical input.
func (t Trade) Validate() error {
	if t.InternalTradeID == "" {
		return fmt.Errorf("trade missing internal trade id")
	}
	if t.Source != SourceTrader && t.Source != SourceExchange {
		return fmt.Errorf("trade %s: invalid source %q", t.InternalTradeID, t.Source)
	}
	if t.Product == "" {
		return fmt.Errorf("trade %s: missing product", t.InternalTradeID)
	}
	if t.ContractMonth == "" {
		return fmt.Errorf("trade %s: missing contract month", t.InternalTradeID)
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("trade %s: non-positive quantity %s", t.InternalTradeID, t.Quantity)
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return fmt.Errorf("trade %s: invalid side %q", t.InternalTradeID, t.Side)
	}
	if t.PutCall != "" && t.Strike == nil {
		return fmt.Errorf("trade %s: put/call set without strike", t.InternalTradeID)
	}
	return nil
}

func (t Trade) String() string {
	return fmt.Sprintf("Trade(%s: %s %s%s @ %s %s %s)",
		t.InternalTradeID, t.Product, t.Quantity, t.Unit, t.Price, t.ContractMonth, t.Side)
}

// CompareTradeIDs orders trade ids ascending. Numeric ids compare as numbers
// so that "9" sorts before "101"; anything else falls back to string order.
func CompareTradeIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// SortTradesByID sorts trades ascending by internal trade id in place.
func SortTradesByID(trades []Trade) {
	sort.Slice(trades, func(i, j int) bool {
		return CompareTradeIDs(trades[i].InternalTradeID, trades[j].InternalTradeID) < 0
	})
}

// SortIDs sorts a slice of trade ids ascending.
func SortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return CompareTradeIDs(ids[i], ids[j]) < 0 })
}
