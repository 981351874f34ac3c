package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/recon"
	"github.com/straitsenergy/reconengine/internal/router"
)

func sampleResult() *router.PartitionResult {
	trader := model.Trade{InternalTradeID: "1", Source: model.SourceTrader}
	exch := model.Trade{InternalTradeID: "101", Source: model.SourceExchange}
	extra := model.Trade{InternalTradeID: "2", Source: model.SourceTrader}

	return &router.PartitionResult{
		GroupID: 1,
		Family:  config.FamilyICE,
		Matches: []model.MatchResult{
			{
				MatchID:                "ICE_6_00000001",
				RuleNumber:             6,
				Confidence:             decimal.NewFromInt(95),
				TraderTrade:            trader,
				ExchangeTrade:          exch,
				AdditionalTraderTrades: []model.Trade{extra},
				Status:                 model.StatusMatched,
			},
		},
		Stats: recon.Stats{},
		UnmatchedTrader: []model.Trade{
			{InternalTradeID: "3", Source: model.SourceTrader},
		},
		UnmatchedExchange: []model.Trade{
			{InternalTradeID: "102", Source: model.SourceExchange},
		},
	}
}

func TestToRecords(t *testing.T) {
	records := ToRecords(sampleResult())
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}

	m := records[0]
	if m.MatchID == nil || *m.MatchID != "ICE_6_00000001" {
		t.Errorf("MatchID = %v, want ICE_6_00000001", m.MatchID)
	}
	if m.Remarks != "ICE_rule6" {
		t.Errorf("Remarks = %q, want ICE_rule6", m.Remarks)
	}
	if len(m.TraderTradeIDs) != 2 || m.TraderTradeIDs[0] != 1 || m.TraderTradeIDs[1] != 2 {
		t.Errorf("TraderTradeIDs = %v, want [1 2]", m.TraderTradeIDs)
	}
	if len(m.ExchangeTradeIDs) != 1 || m.ExchangeTradeIDs[0] != 101 {
		t.Errorf("ExchangeTradeIDs = %v, want [101]", m.ExchangeTradeIDs)
	}

	ut := records[1]
	if ut.MatchID != nil {
		t.Error("unmatched trader row has a match id")
	}
	if ut.Status != model.StatusUnmatchedTraders || ut.Remarks != "ICE_unmatched_traders" {
		t.Errorf("unmatched trader row = %s/%s", ut.Status, ut.Remarks)
	}

	ue := records[2]
	if ue.Status != model.StatusUnmatchedExch || ue.Remarks != "ICE_unmatched_exch" {
		t.Errorf("unmatched exchange row = %s/%s", ue.Status, ue.Remarks)
	}
}

func TestWriteCSV(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "reconengine-report-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "out.csv")
	records := ToRecords(sampleResult())
	if err := WriteCSV(path, records); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want header + 3 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "matchId,") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "1;2") {
		t.Errorf("match row = %q, want trader ids joined as 1;2", lines[1])
	}
}

func TestWriteJSON(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "reconengine-report-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "out.json")
	if err := WriteJSON(path, ToRecords(sampleResult())); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.Contains(string(data), `"ICE_rule6"`) {
		t.Errorf("output missing remarks: %s", data)
	}
}
