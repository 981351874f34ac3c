// Package config holds the reconciliation configuration record. The record is
// loaded once per invocation, validated up front, and treated as read-only by
// everything downstream; it is safe to share across partitions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/straitsenergy/reconengine/internal/model"
)

// Family names the known matching families.
type Family string

const (
	FamilyICE Family = "ice"
	FamilySGX Family = "sgx"
	FamilyCME Family = "cme"
	FamilyEEX Family = "eex"
)

// Label returns the family tag used in match ids and remarks ("ICE", "SGX"...).
func (f Family) Label() string {
	return strings.ToUpper(string(f))
}

// MonthPattern is one ordered normalization rule for raw month tokens.
type MonthPattern struct {
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`
}

// Decomposition holds the synthetic-product patterns for a family.
type Decomposition struct {
	// CrackHubProduct is the hub leg every crack decomposes against,
	// e.g. "brent swap" for ICE.
	CrackHubProduct string `yaml:"crack_hub_product"`
	// SpreadSeparator splits "A-B" product-spread names.
	SpreadSeparator string `yaml:"spread_separator"`
}

// FamilyConfig is the per-family view the matchers consume.
type FamilyConfig struct {
	Family Family `yaml:"-"`

	// FlipExchangeSide is true where a trader Buy matches an exchange
	// Sell (SGX, EEX). ICE and CME records carry the same side on both.
	FlipExchangeSide bool `yaml:"flip_exchange_side"`

	RuleOrder      []int           `yaml:"rule_order"`
	RuleConfidence map[int]float64 `yaml:"rule_confidence"`

	// UniversalMatchingFields must be equal for any rule to accept a
	// pair. Recognized names: brokergroupid, exchclearingacctid,
	// exchangegroupid.
	UniversalMatchingFields []string `yaml:"universal_matching_fields"`

	// Tolerances keyed by lowercase unit ("mt", "bbl", "lots") plus
	// "default" for prices and anything unkeyed.
	Tolerances map[string]float64 `yaml:"tolerances"`

	// ProductConversionRatios maps product -> BBL per MT, with "default".
	ProductConversionRatios map[string]float64 `yaml:"product_conversion_ratios"`

	// ProductUnitDefaults maps product -> canonical unit ("mt"/"bbl"),
	// with "default".
	ProductUnitDefaults map[string]string `yaml:"product_unit_defaults"`

	Decomposition Decomposition `yaml:"decomposition"`

	// AggregationMaxLegs caps the subset search in the aggregation rules.
	AggregationMaxLegs int `yaml:"aggregation_max_legs"`
}

// NormalizerConfig feeds the trade normalizer.
type NormalizerConfig struct {
	ProductAliases map[string]string `yaml:"product_aliases"`
	MonthPatterns  []MonthPattern    `yaml:"month_patterns"`
	BuySellAliases map[string]string `yaml:"buy_sell_aliases"`
}

// Config is the full reconciliation configuration record.
type Config struct {
	Families map[Family]*FamilyConfig `yaml:"families"`

	// GroupMappings routes an exchange group id to a family.
	GroupMappings map[int64]Family `yaml:"group_mappings"`

	Normalizer NormalizerConfig `yaml:"normalizer"`
}

// Error is a configuration error: a missing required key or a value the
// engine refuses to run with.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// Load reads and validates a yaml configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the record for the error kinds the engine refuses to run
// with: unknown rules in rule_order, confidence out of range, a crack rule
// enabled without a hub product, and missing tolerance defaults.
func (c *Config) Validate() error {
	if len(c.Families) == 0 {
		return &Error{Key: "families", Reason: "no matching families configured"}
	}
	for name, fam := range c.Families {
		fam.Family = name
		known := knownRules(name)
		if len(fam.RuleOrder) == 0 {
			return &Error{Key: string(name) + ".rule_order", Reason: "empty"}
		}
		crackEnabled := false
		for _, n := range fam.RuleOrder {
			if !known[n] {
				return &Error{
					Key:    string(name) + ".rule_order",
					Reason: fmt.Sprintf("unknown rule number %d", n),
				}
			}
			if _, ok := fam.RuleConfidence[n]; !ok {
				return &Error{
					Key:    string(name) + ".rule_confidence",
					Reason: fmt.Sprintf("no confidence for rule %d", n),
				}
			}
			if name == FamilyICE && (n == 3 || n == 4 || n == 7 || n == 10 || n == 11) {
				crackEnabled = true
			}
		}
		for n, conf := range fam.RuleConfidence {
			if conf < 0 || conf > 100 {
				return &Error{
					Key:    string(name) + ".rule_confidence",
					Reason: fmt.Sprintf("rule %d confidence %v out of range", n, conf),
				}
			}
		}
		if crackEnabled && fam.Decomposition.CrackHubProduct == "" {
			return &Error{
				Key:    string(name) + ".decomposition.crack_hub_product",
				Reason: "crack rules enabled but no hub product configured",
			}
		}
		if _, ok := fam.Tolerances["default"]; !ok {
			return &Error{Key: string(name) + ".tolerances.default", Reason: "missing"}
		}
		if _, ok := fam.ProductConversionRatios["default"]; !ok {
			return &Error{Key: string(name) + ".product_conversion_ratios.default", Reason: "missing"}
		}
		if _, ok := fam.ProductUnitDefaults["default"]; !ok {
			return &Error{Key: string(name) + ".product_unit_defaults.default", Reason: "missing"}
		}
		if fam.AggregationMaxLegs <= 0 {
			fam.AggregationMaxLegs = 8
		}
	}
	for group, fam := range c.GroupMappings {
		if _, ok := c.Families[fam]; !ok {
			return &Error{
				Key:    "group_mappings",
				Reason: fmt.Sprintf("group %d routed to unconfigured family %q", group, fam),
			}
		}
	}
	return nil
}

// FamilyFor returns the family config for a name.
func (c *Config) FamilyFor(name Family) (*FamilyConfig, bool) {
	fam, ok := c.Families[name]
	return fam, ok
}

// Groups returns the configured exchange group ids in ascending order.
func (c *Config) Groups() []int64 {
	out := make([]int64, 0, len(c.GroupMappings))
	for g := range c.GroupMappings {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func knownRules(f Family) map[int]bool {
	known := map[int]bool{1: true}
	switch f {
	case FamilyICE:
		for n := 1; n <= 12; n++ {
			known[n] = true
		}
	case FamilySGX:
		known[2] = true
		known[3] = true
	}
	return known
}

// Confidence returns the configured confidence for a rule as a decimal.
func (f *FamilyConfig) Confidence(rule int) decimal.Decimal {
	return decimal.NewFromFloat(f.RuleConfidence[rule])
}

// Tolerance returns the tolerance for a unit, falling back to "default".
func (f *FamilyConfig) Tolerance(unit model.Unit) decimal.Decimal {
	if v, ok := f.Tolerances[strings.ToLower(string(unit))]; ok {
		return decimal.NewFromFloat(v)
	}
	return f.DefaultTolerance()
}

// DefaultTolerance returns the "default" tolerance (used for prices).
func (f *FamilyConfig) DefaultTolerance() decimal.Decimal {
	return decimal.NewFromFloat(f.Tolerances["default"])
}

// ConversionRatio returns BBL-per-MT for a product, falling back to "default".
func (f *FamilyConfig) ConversionRatio(product string) decimal.Decimal {
	if v, ok := f.ProductConversionRatios[strings.ToLower(product)]; ok {
		return decimal.NewFromFloat(v)
	}
	return decimal.NewFromFloat(f.ProductConversionRatios["default"])
}

// CanonicalUnit returns the canonical unit for a product per config.
func (f *FamilyConfig) CanonicalUnit(product string) model.Unit {
	u, ok := f.ProductUnitDefaults[strings.ToLower(product)]
	if !ok {
		u = f.ProductUnitDefaults["default"]
	}
	if strings.EqualFold(u, "bbl") {
		return model.UnitBBL
	}
	return model.UnitMT
}

// ExchangeSide maps a trader side to the exchange side it matches under this
// family's convention.
func (f *FamilyConfig) ExchangeSide(s model.Side) model.Side {
	if f.FlipExchangeSide {
		return s.Opposite()
	}
	return s
}
