package rule0

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
)

// PositionKey addresses one aggregate: a base product in a contract month.
type PositionKey struct {
	ContractMonth string
	Product       string
}

// Position is the signed aggregate for one key on one side.
type Position struct {
	Product       string
	ContractMonth string
	Quantity      decimal.Decimal // signed sum in the canonical unit
	Unit          model.Unit
	TradeCount    int
	// Fingerprints lists the contributing trade ids in arrival order.
	Fingerprints []string
}

// PositionMatrix aggregates decomposed legs by (month, product) for one side.
type PositionMatrix struct {
	Source    model.Source
	positions map[PositionKey]*Position
}

// NewMatrix returns an empty matrix for a side.
func NewMatrix(source model.Source) *PositionMatrix {
	return &PositionMatrix{
		Source:    source,
		positions: make(map[PositionKey]*Position),
	}
}

// Add folds one leg into the matrix.
func (m *PositionMatrix) Add(month string, leg Leg, tradeID string) {
	key := PositionKey{ContractMonth: month, Product: leg.BaseProduct}
	pos, ok := m.positions[key]
	if !ok {
		pos = &Position{
			Product:       leg.BaseProduct,
			ContractMonth: month,
			Quantity:      decimal.Zero,
			Unit:          leg.Unit,
		}
		m.positions[key] = pos
	}
	pos.Quantity = pos.Quantity.Add(leg.Quantity)
	pos.TradeCount++
	pos.Fingerprints = append(pos.Fingerprints, tradeID)
}

// Get returns the position for a key, or nil.
func (m *PositionMatrix) Get(key PositionKey) *Position {
	return m.positions[key]
}

// Keys returns every key, sorted by month then product.
func (m *PositionMatrix) Keys() []PositionKey {
	out := make([]PositionKey, 0, len(m.positions))
	for k := range m.positions {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}

// Len returns the number of distinct positions.
func (m *PositionMatrix) Len() int {
	return len(m.positions)
}

// BuildMatrix decomposes trades and aggregates their legs into a matrix.
func BuildMatrix(trades []model.Trade, source model.Source, fam *config.FamilyConfig) *PositionMatrix {
	d := NewDecomposer(fam)
	m := NewMatrix(source)
	for _, t := range trades {
		for _, leg := range d.Decompose(t) {
			m.Add(t.ContractMonth, leg, t.InternalTradeID)
		}
	}
	return m
}

func sortKeys(keys []PositionKey) {
	sort.Slice(keys, func(i, j int) bool {
		cmp := model.CompareContractMonths(keys[i].ContractMonth, keys[j].ContractMonth)
		if cmp != 0 {
			return cmp < 0
		}
		return keys[i].Product < keys[j].Product
	})
}
