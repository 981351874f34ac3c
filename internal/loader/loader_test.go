package loader

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/normalize"
)

func testNormalizer(t *testing.T) *normalize.Normalizer {
	t.Helper()
	cfg := config.Default()
	n, err := normalize.New(&cfg.Normalizer)
	if err != nil {
		t.Fatalf("normalize.New() error = %v", err)
	}
	return n
}

func TestReadCSV(t *testing.T) {
	csvData := `internalTradeId,productname,contractmonth,quantityunits,unit,price,b/s,brokergroupid,exchclearingacctid,exchangegroupid,spread
5,Fuel Oil 380CST,Jul 25,"1,000",MT,178,Bought,22,2,1,
,Brent Crude Swap,Aug25,7000,BBL,-80.5,S,22,2,1,S
`
	trades, err := ReadCSV(strings.NewReader(csvData), model.SourceTrader, testNormalizer(t))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(trades))
	}

	first := trades[0]
	if first.InternalTradeID != "5" {
		t.Errorf("id = %s, want 5", first.InternalTradeID)
	}
	if first.Product != "380cst" {
		t.Errorf("product = %q, want 380cst", first.Product)
	}
	if first.ContractMonth != "Jul25" {
		t.Errorf("month = %q, want Jul25", first.ContractMonth)
	}
	if !first.Quantity.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("quantity = %s, want 1000", first.Quantity)
	}
	if first.Side != model.SideBuy {
		t.Errorf("side = %s, want B", first.Side)
	}
	if first.BrokerGroupID == nil || *first.BrokerGroupID != 22 {
		t.Errorf("broker group = %v, want 22", first.BrokerGroupID)
	}

	second := trades[1]
	if second.InternalTradeID != "2" {
		t.Errorf("assigned id = %s, want 2 (sequential)", second.InternalTradeID)
	}
	if second.Product != "brent swap" {
		t.Errorf("product = %q, want brent swap", second.Product)
	}
	if second.Unit != model.UnitBBL {
		t.Errorf("unit = %s, want BBL", second.Unit)
	}
	if !second.Price.Equal(decimal.NewFromFloat(-80.5)) {
		t.Errorf("price = %s, want -80.5", second.Price)
	}
	if second.SpreadFlag != "S" {
		t.Errorf("spread flag = %q, want S", second.SpreadFlag)
	}
}

func TestReadCSVRejectsBadMonth(t *testing.T) {
	csvData := `productname,contractmonth,quantityunits,unit,price,b/s
380cst,NotAMonth,1000,MT,178,B
`
	_, err := ReadCSV(strings.NewReader(csvData), model.SourceTrader, testNormalizer(t))
	if err == nil {
		t.Fatal("ReadCSV() with bad month, want error")
	}
}

func TestReadCSVLotsFallback(t *testing.T) {
	csvData := `productname,contractmonth,quantitylots,price,b/s
380cst,Jul25,5,178,B
`
	trades, err := ReadCSV(strings.NewReader(csvData), model.SourceTrader, testNormalizer(t))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if trades[0].Unit != model.UnitLots {
		t.Errorf("unit = %s, want LOTS", trades[0].Unit)
	}
	if !trades[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("quantity = %s, want 5", trades[0].Quantity)
	}
}

func TestLoadJSON(t *testing.T) {
	body := []byte(`{
		"traderTrades": [
			{"internalTradeId": 1, "productName": "Fuel Oil 380CST", "contractMonth": "July 2025",
			 "quantityUnit": 1000, "unit": "MT", "price": 178, "b/s": "B",
			 "brokerGroupId": 22, "exchangeClearingAccountId": 2, "exchangeGroupId": 1}
		],
		"exchangeTrades": [
			{"productName": "380cst", "contractMonth": "Jul25",
			 "quantityUnit": "1,000", "unit": "mt", "price": "178", "b/s": "Sold",
			 "brokerGroupId": 22, "exchangeClearingAccountId": 2, "exchangeGroupId": 1}
		]
	}`)

	trader, exchange, err := LoadJSON(body, testNormalizer(t))
	if err != nil {
		t.Fatalf("LoadJSON() error = %v", err)
	}
	if len(trader) != 1 || len(exchange) != 1 {
		t.Fatalf("trades = %d/%d, want 1/1", len(trader), len(exchange))
	}
	if trader[0].InternalTradeID != "1" {
		t.Errorf("trader id = %s, want 1", trader[0].InternalTradeID)
	}
	if trader[0].ContractMonth != "Jul25" {
		t.Errorf("month = %s, want Jul25", trader[0].ContractMonth)
	}
	if exchange[0].InternalTradeID != "1" {
		t.Errorf("assigned exchange id = %s, want 1", exchange[0].InternalTradeID)
	}
	if exchange[0].Side != model.SideSell {
		t.Errorf("side = %s, want S", exchange[0].Side)
	}
	if !exchange[0].Quantity.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("quantity = %s, want 1000", exchange[0].Quantity)
	}
}

func TestLoadJSONOptions(t *testing.T) {
	body := []byte(`{
		"traderTrades": [
			{"productName": "380cst", "contractMonth": "Jul25", "quantityUnit": 100,
			 "unit": "MT", "price": 12, "b/s": "B", "strike": 450, "put/call": "Call"}
		],
		"exchangeTrades": []
	}`)

	trader, _, err := LoadJSON(body, testNormalizer(t))
	if err != nil {
		t.Fatalf("LoadJSON() error = %v", err)
	}
	tr := trader[0]
	if tr.Strike == nil || !tr.Strike.Equal(decimal.NewFromInt(450)) {
		t.Errorf("strike = %v, want 450", tr.Strike)
	}
	if tr.PutCall != model.CallOption {
		t.Errorf("put/call = %s, want C", tr.PutCall)
	}
}

func TestLoadJSONRejectsPutCallWithoutStrike(t *testing.T) {
	body := []byte(`{
		"traderTrades": [
			{"productName": "380cst", "contractMonth": "Jul25", "quantityUnit": 100,
			 "unit": "MT", "price": 12, "b/s": "B", "put/call": "C"}
		],
		"exchangeTrades": []
	}`)

	_, _, err := LoadJSON(body, testNormalizer(t))
	if err == nil {
		t.Fatal("LoadJSON() with put/call but no strike, want error")
	}
}
