// Package normalize turns raw trade fields into their canonical forms:
// aliased product names, "MonYY" contract months, B/S sides and exact
// decimals parsed from heterogeneous textual quantity and price formats.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/model"
)

// Normalizer applies the configured normalization mappings. It is pure and
// safe to share: all state is built once in New.
type Normalizer struct {
	productAliases map[string]string
	buySellAliases map[string]string
	monthPatterns  []monthPattern
}

type monthPattern struct {
	re      *regexp.Regexp
	replace string
}

// New compiles the month patterns and builds lookup tables.
func New(cfg *config.NormalizerConfig) (*Normalizer, error) {
	n := &Normalizer{
		productAliases: make(map[string]string, len(cfg.ProductAliases)),
		buySellAliases: make(map[string]string, len(cfg.BuySellAliases)),
	}
	for raw, canonical := range cfg.ProductAliases {
		n.productAliases[strings.ToLower(strings.TrimSpace(raw))] = canonical
	}
	for raw, side := range cfg.BuySellAliases {
		n.buySellAliases[strings.ToLower(strings.TrimSpace(raw))] = side
	}
	for _, p := range cfg.MonthPatterns {
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile month pattern %q: %w", p.Pattern, err)
		}
		n.monthPatterns = append(n.monthPatterns, monthPattern{re: re, replace: p.Replace})
	}
	return n, nil
}

// Product maps a raw product name to its canonical lowercase form. Unmapped
// names pass through lowercased and trimmed.
func (n *Normalizer) Product(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := n.productAliases[key]; ok {
		return canonical
	}
	return key
}

// ContractMonth normalizes a raw month token to canonical "MonYY" form. The
// patterns are tried in configured order; the first match wins.
func (n *Normalizer) ContractMonth(raw string) (string, error) {
	token := strings.ToLower(strings.TrimSpace(raw))
	token = strings.ReplaceAll(token, "  ", " ")
	if token == "" {
		return "", fmt.Errorf("empty contract month")
	}
	for _, p := range n.monthPatterns {
		if p.re.MatchString(token) {
			out := p.re.ReplaceAllString(token, p.replace)
			return titleMonth(out), nil
		}
	}
	// Already canonical input passes through untouched.
	if _, _, err := model.ParseContractMonth(raw); err == nil {
		return titleMonth(raw), nil
	}
	return "", fmt.Errorf("no month pattern matched %q", raw)
}

// Side normalizes a raw buy/sell token to B or S.
func (n *Normalizer) Side(raw string) (model.Side, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if side, ok := n.buySellAliases[key]; ok {
		switch side {
		case "B":
			return model.SideBuy, nil
		case "S":
			return model.SideSell, nil
		}
	}
	return "", fmt.Errorf("unknown buy/sell indicator %q", raw)
}

// Decimal parses a decimal from the textual forms trade files carry:
// thousands separators, surrounding whitespace and parenthesized negatives.
func (n *Normalizer) Decimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty decimal")
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal %q: %w", raw, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// UnitTag normalizes a raw unit token. Empty input maps to the empty unit so
// callers can apply product defaults.
func (n *Normalizer) UnitTag(raw string) model.Unit {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "MT", "MTS", "TONNE", "TONNES":
		return model.UnitMT
	case "BBL", "BBLS", "BARREL", "BARRELS":
		return model.UnitBBL
	case "LOT", "LOTS":
		return model.UnitLots
	case "UNIT", "UNITS":
		return model.UnitUnits
	default:
		return ""
	}
}

// titleMonth uppercases the first letter of a "monYY" token.
func titleMonth(s string) string {
	if len(s) < 1 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
