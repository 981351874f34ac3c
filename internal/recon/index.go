package recon

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/model"
)

// Key is a signature over the projected fields of a trade. Keys built from
// equal projections compare equal regardless of decimal representation.
type Key string

// KeyBuilder assembles a Key from scalar parts. Decimal parts are reduced to
// a canonical string so 7, 7.0 and 7.00 key identically.
type KeyBuilder struct {
	parts []string
}

// Add appends a string part.
func (b *KeyBuilder) Add(s string) *KeyBuilder {
	b.parts = append(b.parts, s)
	return b
}

// AddDecimal appends a decimal by value.
func (b *KeyBuilder) AddDecimal(d decimal.Decimal) *KeyBuilder {
	b.parts = append(b.parts, CanonDecimal(d))
	return b
}

// AddOptDecimal appends an optional decimal; nil keys as the empty part.
func (b *KeyBuilder) AddOptDecimal(d *decimal.Decimal) *KeyBuilder {
	if d == nil {
		b.parts = append(b.parts, "")
	} else {
		b.parts = append(b.parts, CanonDecimal(*d))
	}
	return b
}

// AddOptInt appends an optional integer; nil keys as the empty part.
func (b *KeyBuilder) AddOptInt(v *int64) *KeyBuilder {
	if v == nil {
		b.parts = append(b.parts, "")
	} else {
		b.parts = append(b.parts, decimal.NewFromInt(*v).String())
	}
	return b
}

// Key finalizes the builder.
func (b *KeyBuilder) Key() Key {
	return Key(strings.Join(b.parts, "\x1f"))
}

// CanonDecimal renders a decimal with trailing zeros stripped, so value
// equality implies string equality.
func CanonDecimal(d decimal.Decimal) string {
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

// Projection computes a rule's key for a trade.
type Projection func(model.Trade) Key

// SignatureIndex is a hash index over a snapshot of one side of the pool.
// Candidate lists preserve ascending trade-id order, which NewIndex
// guarantees by indexing an already-sorted snapshot.
type SignatureIndex struct {
	project Projection
	entries map[Key][]model.Trade
}

// NewIndex builds an index over trades using the projection. The input is
// sorted by id first so each bucket's order is deterministic.
func NewIndex(trades []model.Trade, project Projection) *SignatureIndex {
	sorted := append([]model.Trade(nil), trades...)
	model.SortTradesByID(sorted)
	idx := &SignatureIndex{
		project: project,
		entries: make(map[Key][]model.Trade),
	}
	for _, t := range sorted {
		k := project(t)
		idx.entries[k] = append(idx.entries[k], t)
	}
	return idx
}

// Lookup returns the candidate list for a key. The returned slice is the
// index's own; callers must not mutate it directly.
func (i *SignatureIndex) Lookup(k Key) []model.Trade {
	return i.entries[k]
}

// Remove drops one trade from its bucket, keeping order. Used after a commit
// so the consumed trade cannot be probed again within the same pass.
func (i *SignatureIndex) Remove(t model.Trade) {
	k := i.project(t)
	bucket := i.entries[k]
	for pos, cand := range bucket {
		if cand.InternalTradeID == t.InternalTradeID {
			i.entries[k] = append(bucket[:pos:pos], bucket[pos+1:]...)
			if len(i.entries[k]) == 0 {
				delete(i.entries, k)
			}
			return
		}
	}
}

// Len returns the number of distinct keys.
func (i *SignatureIndex) Len() int {
	return len(i.entries)
}
