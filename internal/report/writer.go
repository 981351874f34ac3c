package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/straitsenergy/reconengine/internal/router"
)

// WriteCSV writes records to a CSV file with the standard column layout.
func WriteCSV(path string, records []Record) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"matchId", "traderTradeIds", "exchangeTradeIds", "status", "remarks", "confidence"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		matchID := ""
		if r.MatchID != nil {
			matchID = *r.MatchID
		}
		row := []string{
			matchID,
			joinIDs(r.TraderTradeIDs),
			joinIDs(r.ExchangeTradeIDs),
			string(r.Status),
			r.Remarks,
			r.Confidence.String(),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteJSON writes records to a JSON file as an array.
func WriteJSON(path string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// Summary renders a per-group and overall stats block for the CLI.
func Summary(results map[int64]*router.PartitionResult) string {
	var b strings.Builder
	for _, group := range sortedGroups(results) {
		res := results[group]
		s := res.Stats
		fmt.Fprintf(&b, "group %d (%s): %d matches, trader %d/%d (%.1f%%), exchange %d/%d (%.1f%%)\n",
			group, res.Family.Label(), s.TotalMatches,
			s.MatchedTrader, s.OriginalTrader, s.TraderRate,
			s.MatchedExchange, s.OriginalExchange, s.ExchangeRate)
	}
	t := router.Aggregate(results)
	fmt.Fprintf(&b, "total: %d groups, %d matches, %d trader + %d exchange trades, overall %.1f%%\n",
		t.Groups, t.TotalMatches, t.OriginalTrader, t.OriginalExchange, t.OverallRate)
	return b.String()
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ";")
}
