package rules

import (
	"fmt"

	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/normalize"
	"github.com/straitsenergy/reconengine/internal/recon"
	"github.com/straitsenergy/reconengine/pkg/logging"
)

// NewFamily builds a family's rule sequence in its configured rule order.
// Rule numbers mean different matchers per family: SGX rule 3 is the
// product-spread rule, while ICE rule 3 is the crack rule. CME and EEX run
// the exact rule only.
func NewFamily(fam *config.FamilyConfig, ids recon.IDSource, log *logging.Logger) ([]recon.Rule, error) {
	b := base{
		fam:   fam,
		units: normalize.NewUnits(fam),
		ids:   ids,
		log:   log,
	}

	var rules []recon.Rule
	for _, n := range fam.RuleOrder {
		rule, err := buildRule(b, fam.Family, n)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func buildRule(b base, family config.Family, number int) (recon.Rule, error) {
	if number == 1 {
		return NewExactRule(b), nil
	}
	switch family {
	case config.FamilyICE:
		switch number {
		case 2:
			return NewSpreadRule(b, 2), nil
		case 3:
			return NewCrackRule(b), nil
		case 4:
			return NewComplexCrackRule(b), nil
		case 5:
			return NewProductSpreadRule(b, 5), nil
		case 6:
			return NewAggregationRule(b), nil
		case 7:
			return NewAggregatedCrackRule(b, 7, true), nil
		case 8:
			return NewAggregatedSpreadRule(b), nil
		case 9:
			return NewMultilegRule(b), nil
		case 10:
			return NewAggregatedCrackRule(b, 10, false), nil
		case 11:
			return NewCrackRollRule(b), nil
		case 12:
			return NewAggregatedProductSpreadRule(b), nil
		}
	case config.FamilySGX:
		switch number {
		case 2:
			return NewSpreadRule(b, 2), nil
		case 3:
			return NewProductSpreadRule(b, 3), nil
		}
	}
	return nil, &config.Error{
		Key:    string(family) + ".rule_order",
		Reason: fmt.Sprintf("rule %d not implemented for this family", number),
	}
}
