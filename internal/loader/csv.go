// Package loader reads trader and exchange trade files and produces
// canonical trades through the normalizer. It accepts the delimited exports
// the desks produce (headers in any case, comma-grouped numbers) and the
// JSON body the API receives.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/normalize"
)

// csvRow exposes a record's fields by lowercase header name.
type csvRow struct {
	fields map[string]string
	line   int
}

func (r csvRow) get(names ...string) string {
	for _, name := range names {
		if v, ok := r.fields[name]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// LoadCSV reads one side's trade file. Trades without an internal id get
// sequential ids assigned in file order, starting at 1.
func LoadCSV(path string, source model.Source, norm *normalize.Normalizer) ([]model.Trade, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open trade file: %w", err)
	}
	defer f.Close()

	trades, err := ReadCSV(f, source, norm)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return trades, nil
}

// ReadCSV parses CSV trade data from a reader.
func ReadCSV(r io.Reader, source model.Source, norm *normalize.Normalizer) ([]model.Trade, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var trades []model.Trade
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line+1, err)
		}
		line++

		row := csvRow{fields: make(map[string]string, len(cols)), line: line}
		for i, v := range rec {
			if i < len(cols) {
				row.fields[cols[i]] = v
			}
		}

		trade, err := tradeFromRow(row, source, norm, len(trades)+1)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

func tradeFromRow(row csvRow, source model.Source, norm *normalize.Normalizer, seq int) (model.Trade, error) {
	id := row.get("internaltradeid")
	if id == "" {
		id = strconv.Itoa(seq)
	}

	month, err := norm.ContractMonth(row.get("contractmonth", "contract month"))
	if err != nil {
		return model.Trade{}, err
	}
	side, err := norm.Side(row.get("b/s", "buysell", "side"))
	if err != nil {
		return model.Trade{}, err
	}

	qtyRaw := row.get("quantityunits", "quantityunit", "quantity")
	unit := norm.UnitTag(row.get("unit"))
	if qtyRaw == "" {
		// Lot-denominated files carry quantity in the lots column.
		qtyRaw = row.get("quantitylots", "quantitylot")
		if unit == "" {
			unit = model.UnitLots
		}
	}
	qty, err := norm.Decimal(qtyRaw)
	if err != nil {
		return model.Trade{}, fmt.Errorf("quantity: %w", err)
	}
	price, err := norm.Decimal(row.get("price"))
	if err != nil {
		return model.Trade{}, fmt.Errorf("price: %w", err)
	}
	if unit == "" {
		unit = model.UnitMT
	}

	trade := model.Trade{
		InternalTradeID: id,
		Source:          source,
		Product:         norm.Product(row.get("productname", "product")),
		ContractMonth:   month,
		Quantity:        qty,
		Unit:            unit,
		Price:           price,
		Side:            side,
		BrokerGroupID:   optInt(row.get("brokergroupid")),
		ClearingAcctID:  optInt(row.get("exchclearingacctid", "exchangeclearingaccountid")),
		ExchangeGroupID: optInt(row.get("exchangegroupid")),
		SpreadFlag:      strings.ToUpper(row.get("spread")),
	}

	if s := row.get("strike"); s != "" {
		strike, err := norm.Decimal(s)
		if err != nil {
			return model.Trade{}, fmt.Errorf("strike: %w", err)
		}
		trade.Strike = &strike
	}
	if pc := strings.ToUpper(row.get("put/call", "putcall")); pc != "" {
		trade.PutCall = model.PutCall(pc[:1])
	}

	if err := trade.Validate(); err != nil {
		return model.Trade{}, err
	}
	return trade, nil
}

func optInt(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
