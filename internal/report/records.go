// Package report flattens reconciliation results into the stable tabular
// record schema consumed by downstream systems, and writes it out as CSV or
// JSON.
package report

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/router"
)

// Record is one output row. MatchID is nil for unmatched rows.
type Record struct {
	MatchID          *string           `json:"matchId"`
	TraderTradeIDs   []int64           `json:"traderTradeIds"`
	ExchangeTradeIDs []int64           `json:"exchangeTradeIds"`
	Status           model.MatchStatus `json:"status"`
	Remarks          string            `json:"remarks"`
	Confidence       decimal.Decimal   `json:"confidence"`
}

// ToRecords collates one partition's matches and unmatched residuals into
// the output schema: match rows in commit order, then unmatched trader rows,
// then unmatched exchange rows, each side ascending by id.
func ToRecords(res *router.PartitionResult) []Record {
	label := res.Family.Label()
	out := make([]Record, 0, len(res.Matches)+len(res.UnmatchedTrader)+len(res.UnmatchedExchange))

	for _, m := range res.Matches {
		id := m.MatchID
		out = append(out, Record{
			MatchID:          &id,
			TraderTradeIDs:   numericIDs(m.TraderIDs()),
			ExchangeTradeIDs: numericIDs(m.ExchangeIDs()),
			Status:           m.Status,
			Remarks:          label + "_rule" + strconv.Itoa(m.RuleNumber),
			Confidence:       m.Confidence,
		})
	}
	for _, t := range res.UnmatchedTrader {
		out = append(out, Record{
			TraderTradeIDs: numericIDs([]string{t.InternalTradeID}),
			Status:         model.StatusUnmatchedTraders,
			Remarks:        label + "_unmatched_traders",
			Confidence:     decimal.Zero,
		})
	}
	for _, t := range res.UnmatchedExchange {
		out = append(out, Record{
			ExchangeTradeIDs: numericIDs([]string{t.InternalTradeID}),
			Status:           model.StatusUnmatchedExch,
			Remarks:          label + "_unmatched_exch",
			Confidence:       decimal.Zero,
		})
	}
	return out
}

// AllRecords flattens every partition's records in ascending group order.
func AllRecords(results map[int64]*router.PartitionResult) []Record {
	var out []Record
	for _, group := range sortedGroups(results) {
		out = append(out, ToRecords(results[group])...)
	}
	return out
}

func sortedGroups(results map[int64]*router.PartitionResult) []int64 {
	groups := make([]int64, 0, len(results))
	for g := range results {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

// numericIDs parses internal trade ids into integers. Non-numeric ids are
// dropped rather than fabricated; loaders always assign numeric ids.
func numericIDs(ids []string) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}
