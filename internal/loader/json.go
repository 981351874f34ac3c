package loader

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/normalize"
)

// jsonTrade is the wire shape of one trade in an API request body. The id,
// quantity, price and strike fields accept either JSON numbers or strings;
// the broker group, clearing account and exchange group ids accept JSON
// numbers only.
type jsonTrade struct {
	InternalTradeID           json.RawMessage `json:"internalTradeId"`
	ProductName               string          `json:"productName"`
	ContractMonth             string          `json:"contractMonth"`
	QuantityUnit              json.RawMessage `json:"quantityUnit"`
	QuantityLot               json.RawMessage `json:"quantityLot"`
	Unit                      string          `json:"unit"`
	Price                     json.RawMessage `json:"price"`
	BuySell                   string          `json:"b/s"`
	BrokerGroupID             *int64          `json:"brokerGroupId"`
	ExchangeClearingAccountID *int64          `json:"exchangeClearingAccountId"`
	ExchangeGroupID           *int64          `json:"exchangeGroupId"`
	Strike                    json.RawMessage `json:"strike"`
	PutCall                   string          `json:"put/call"`
	Spread                    string          `json:"spread"`
}

// TradeSet is the JSON request body: both sides of a reconciliation.
type TradeSet struct {
	TraderTrades   []json.RawMessage `json:"traderTrades"`
	ExchangeTrades []json.RawMessage `json:"exchangeTrades"`
}

// LoadJSON parses a {traderTrades, exchangeTrades} document into canonical
// trades. Missing internal ids are assigned sequentially per side.
func LoadJSON(data []byte, norm *normalize.Normalizer) (trader, exchange []model.Trade, err error) {
	var set TradeSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, nil, fmt.Errorf("failed to parse trade document: %w", err)
	}
	trader, err = parseJSONTrades(set.TraderTrades, model.SourceTrader, norm)
	if err != nil {
		return nil, nil, fmt.Errorf("trader trades: %w", err)
	}
	exchange, err = parseJSONTrades(set.ExchangeTrades, model.SourceExchange, norm)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange trades: %w", err)
	}
	return trader, exchange, nil
}

func parseJSONTrades(raws []json.RawMessage, source model.Source, norm *normalize.Normalizer) ([]model.Trade, error) {
	trades := make([]model.Trade, 0, len(raws))
	for i, raw := range raws {
		var jt jsonTrade
		if err := json.Unmarshal(raw, &jt); err != nil {
			return nil, fmt.Errorf("trade %d: %w", i+1, err)
		}
		trade, err := jt.canonical(source, norm, i+1)
		if err != nil {
			return nil, fmt.Errorf("trade %d: %w", i+1, err)
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

func (jt jsonTrade) canonical(source model.Source, norm *normalize.Normalizer, seq int) (model.Trade, error) {
	id := rawString(jt.InternalTradeID)
	if id == "" {
		id = strconv.Itoa(seq)
	}

	month, err := norm.ContractMonth(jt.ContractMonth)
	if err != nil {
		return model.Trade{}, err
	}
	side, err := norm.Side(jt.BuySell)
	if err != nil {
		return model.Trade{}, err
	}

	qtyRaw := rawString(jt.QuantityUnit)
	unit := norm.UnitTag(jt.Unit)
	if qtyRaw == "" {
		qtyRaw = rawString(jt.QuantityLot)
		if unit == "" {
			unit = model.UnitLots
		}
	}
	qty, err := norm.Decimal(qtyRaw)
	if err != nil {
		return model.Trade{}, fmt.Errorf("quantity: %w", err)
	}
	price, err := norm.Decimal(rawString(jt.Price))
	if err != nil {
		return model.Trade{}, fmt.Errorf("price: %w", err)
	}
	if unit == "" {
		unit = model.UnitMT
	}

	trade := model.Trade{
		InternalTradeID: id,
		Source:          source,
		Product:         norm.Product(jt.ProductName),
		ContractMonth:   month,
		Quantity:        qty,
		Unit:            unit,
		Price:           price,
		Side:            side,
		BrokerGroupID:   jt.BrokerGroupID,
		ClearingAcctID:  jt.ExchangeClearingAccountID,
		ExchangeGroupID: jt.ExchangeGroupID,
		SpreadFlag:      strings.ToUpper(strings.TrimSpace(jt.Spread)),
	}
	if s := rawString(jt.Strike); s != "" {
		strike, err := norm.Decimal(s)
		if err != nil {
			return model.Trade{}, fmt.Errorf("strike: %w", err)
		}
		trade.Strike = &strike
	}
	if pc := strings.ToUpper(strings.TrimSpace(jt.PutCall)); pc != "" {
		trade.PutCall = model.PutCall(pc[:1])
	}

	if err := trade.Validate(); err != nil {
		return model.Trade{}, err
	}
	return trade, nil
}

// rawString renders a raw JSON scalar (number, string or null) as its bare
// text form.
func rawString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var unquoted string
		if err := json.Unmarshal(raw, &unquoted); err == nil {
			return strings.TrimSpace(unquoted)
		}
	}
	return s
}
