// Package storage - run archive operations.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/router"
)

// Run errors
var (
	ErrRunNotFound = errors.New("run not found")
)

// RunSummary is one row of the runs table.
type RunSummary struct {
	RunID           string
	CreatedAt       time.Time
	Groups          int
	TotalMatches    int
	TraderCount     int
	ExchangeCount   int
	MatchedTrader   int
	MatchedExchange int
	OverallRate     float64
}

// MatchRow is one archived match.
type MatchRow struct {
	MatchID     string
	GroupID     int64
	RuleNumber  int
	Confidence  string
	TraderIDs   []string
	ExchangeIDs []string
	Status      string
}

// UnmatchedRow is one archived residual trade.
type UnmatchedRow struct {
	GroupID       int64
	Source        string
	TradeID       string
	Product       string
	ContractMonth string
	Quantity      string
	Unit          string
	Price         string
	Side          string
}

// SaveRun archives a finished run with its matches and residuals.
func (s *Storage) SaveRun(runID string, results map[int64]*router.PartitionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := router.Aggregate(results)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (
			run_id, created_at, groups, total_matches,
			trader_count, exchange_count, matched_trader, matched_exchange, overall_rate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID, time.Now().Unix(), totals.Groups, totals.TotalMatches,
		totals.OriginalTrader, totals.OriginalExchange,
		totals.MatchedTrader, totals.MatchedExchange, totals.OverallRate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for groupID, res := range results {
		for _, m := range res.Matches {
			_, err = tx.Exec(`
				INSERT INTO run_matches (
					run_id, match_id, group_id, rule_number, confidence,
					trader_ids, exchange_ids, status
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`,
				runID, m.MatchID, groupID, m.RuleNumber, m.Confidence.String(),
				strings.Join(m.TraderIDs(), ";"), strings.Join(m.ExchangeIDs(), ";"),
				string(m.Status),
			)
			if err != nil {
				return fmt.Errorf("failed to insert match: %w", err)
			}
		}
		if err := insertUnmatched(tx, runID, groupID, res.UnmatchedTrader); err != nil {
			return err
		}
		if err := insertUnmatched(tx, runID, groupID, res.UnmatchedExchange); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func insertUnmatched(tx *sql.Tx, runID string, groupID int64, trades []model.Trade) error {
	for _, t := range trades {
		_, err := tx.Exec(`
			INSERT INTO run_unmatched (
				run_id, group_id, source, trade_id, product,
				contract_month, quantity, unit, price, side
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID, groupID, string(t.Source), t.InternalTradeID, t.Product,
			t.ContractMonth, t.Quantity.String(), string(t.Unit),
			t.Price.String(), string(t.Side),
		)
		if err != nil {
			return fmt.Errorf("failed to insert unmatched trade: %w", err)
		}
	}
	return nil
}

// ListRuns returns run summaries, newest first.
func (s *Storage) ListRuns(limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT run_id, created_at, groups, total_matches,
			trader_count, exchange_count, matched_trader, matched_exchange, overall_rate
		FROM runs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var createdAt int64
		if err := rows.Scan(&r.RunID, &createdAt, &r.Groups, &r.TotalMatches,
			&r.TraderCount, &r.ExchangeCount, &r.MatchedTrader, &r.MatchedExchange,
			&r.OverallRate); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns one run's summary.
func (s *Storage) GetRun(runID string) (*RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r RunSummary
	var createdAt int64
	err := s.db.QueryRow(`
		SELECT run_id, created_at, groups, total_matches,
			trader_count, exchange_count, matched_trader, matched_exchange, overall_rate
		FROM runs WHERE run_id = ?
	`, runID).Scan(&r.RunID, &createdAt, &r.Groups, &r.TotalMatches,
		&r.TraderCount, &r.ExchangeCount, &r.MatchedTrader, &r.MatchedExchange,
		&r.OverallRate)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	r.CreatedAt = time.Unix(createdAt, 0)
	return &r, nil
}

// GetRunMatches returns a run's archived matches in insertion order.
func (s *Storage) GetRunMatches(runID string) ([]MatchRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT match_id, group_id, rule_number, confidence, trader_ids, exchange_ids, status
		FROM run_matches WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run matches: %w", err)
	}
	defer rows.Close()

	var out []MatchRow
	for rows.Next() {
		var m MatchRow
		var traderIDs, exchangeIDs string
		if err := rows.Scan(&m.MatchID, &m.GroupID, &m.RuleNumber, &m.Confidence,
			&traderIDs, &exchangeIDs, &m.Status); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.TraderIDs = splitIDs(traderIDs)
		m.ExchangeIDs = splitIDs(exchangeIDs)
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetRunUnmatched returns a run's residual trades.
func (s *Storage) GetRunUnmatched(runID string) ([]UnmatchedRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT group_id, source, trade_id, product, contract_month, quantity, unit, price, side
		FROM run_unmatched WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run unmatched: %w", err)
	}
	defer rows.Close()

	var out []UnmatchedRow
	for rows.Next() {
		var u UnmatchedRow
		if err := rows.Scan(&u.GroupID, &u.Source, &u.TradeID, &u.Product,
			&u.ContractMonth, &u.Quantity, &u.Unit, &u.Price, &u.Side); err != nil {
			return nil, fmt.Errorf("failed to scan unmatched row: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}
