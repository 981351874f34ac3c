package config

// Default returns the built-in configuration. A config file overrides any of
// these values; the defaults on their own reconcile the standard four-group
// feed (ICE, SGX, CME, EEX).
func Default() *Config {
	return &Config{
		Families: map[Family]*FamilyConfig{
			FamilyICE: {
				FlipExchangeSide: false,
				RuleOrder:        []int{1, 2, 3, 4, 5, 9, 11, 6, 7, 8, 10, 12},
				RuleConfidence: map[int]float64{
					1: 100, 2: 100, 3: 100, 4: 95, 5: 100, 6: 95,
					7: 90, 8: 90, 9: 95, 10: 88, 11: 90, 12: 88,
				},
				UniversalMatchingFields: []string{"brokergroupid", "exchclearingacctid"},
				Tolerances: map[string]float64{
					"mt": 0.01, "bbl": 0.1, "lots": 0, "default": 0.01,
				},
				ProductConversionRatios: map[string]float64{
					"380cst": 6.35, "180cst": 6.35, "0.5%marine": 6.7,
					"gasoil": 7.45, "naphtha": 8.9, "default": 7.0,
				},
				ProductUnitDefaults: map[string]string{
					"brent swap": "bbl", "naphtha japan": "mt", "default": "mt",
				},
				Decomposition: Decomposition{
					CrackHubProduct: "brent swap",
					SpreadSeparator: "-",
				},
				AggregationMaxLegs: 8,
			},
			FamilySGX: {
				FlipExchangeSide: true,
				RuleOrder:        []int{1, 2, 3},
				RuleConfidence:   map[int]float64{1: 100, 2: 100, 3: 100},
				UniversalMatchingFields: []string{
					"brokergroupid", "exchclearingacctid",
				},
				Tolerances: map[string]float64{
					"lots": 0, "mt": 0.01, "default": 0.01,
				},
				ProductConversionRatios: map[string]float64{"default": 7.0},
				ProductUnitDefaults:     map[string]string{"default": "mt"},
				Decomposition:           Decomposition{SpreadSeparator: "-"},
				AggregationMaxLegs:      8,
			},
			FamilyCME: {
				FlipExchangeSide:        false,
				RuleOrder:               []int{1},
				RuleConfidence:          map[int]float64{1: 100},
				UniversalMatchingFields: []string{"brokergroupid", "exchclearingacctid"},
				Tolerances:              map[string]float64{"lots": 0, "default": 0.01},
				ProductConversionRatios: map[string]float64{"default": 7.0},
				ProductUnitDefaults:     map[string]string{"default": "mt"},
				AggregationMaxLegs:      8,
			},
			FamilyEEX: {
				FlipExchangeSide:        true,
				RuleOrder:               []int{1},
				RuleConfidence:          map[int]float64{1: 100},
				UniversalMatchingFields: []string{"brokergroupid", "exchclearingacctid"},
				Tolerances:              map[string]float64{"lots": 0, "default": 0.01},
				ProductConversionRatios: map[string]float64{"default": 7.0},
				ProductUnitDefaults:     map[string]string{"default": "mt"},
				AggregationMaxLegs:      8,
			},
		},
		GroupMappings: map[int64]Family{
			1: FamilyICE,
			2: FamilySGX,
			3: FamilyCME,
			4: FamilyEEX,
		},
		Normalizer: NormalizerConfig{
			ProductAliases: map[string]string{
				"fuel oil 380cst":       "380cst",
				"380 cst":               "380cst",
				"marine 0.5%":           "0.5%marine",
				"marine fuel 0.5%":      "0.5%marine",
				"brent":                 "brent swap",
				"brent crude swap":      "brent swap",
				"gas oil":               "gasoil",
				"380cst crack spread":   "380cst crack",
				"naphtha cfr japan":     "naphtha japan",
				"fuel oil 180cst":       "180cst",
				"singapore 380cst":      "380cst",
				"singapore gasoil":      "gasoil",
				"marine 0.5% - 380cst":  "0.5%marine-380cst",
				"0.5% marine - 380cst":  "0.5%marine-380cst",
			},
			MonthPatterns: []MonthPattern{
				// "Jul25", "jul 25", "JUL-25"
				{Pattern: `^([a-z]{3})[\s\-]?([0-9]{2})$`, Replace: `${1}${2}`},
				// "July 2025", "july2025"
				{Pattern: `^(jan)uary[\s\-]?(?:20)?([0-9]{2})$`, Replace: `jan${2}`},
				{Pattern: `^(feb)ruary[\s\-]?(?:20)?([0-9]{2})$`, Replace: `feb${2}`},
				{Pattern: `^(mar)ch[\s\-]?(?:20)?([0-9]{2})$`, Replace: `mar${2}`},
				{Pattern: `^(apr)il[\s\-]?(?:20)?([0-9]{2})$`, Replace: `apr${2}`},
				{Pattern: `^(may)[\s\-]?(?:20)?([0-9]{2})$`, Replace: `may${2}`},
				{Pattern: `^(jun)e[\s\-]?(?:20)?([0-9]{2})$`, Replace: `jun${2}`},
				{Pattern: `^(jul)y[\s\-]?(?:20)?([0-9]{2})$`, Replace: `jul${2}`},
				{Pattern: `^(aug)ust[\s\-]?(?:20)?([0-9]{2})$`, Replace: `aug${2}`},
				{Pattern: `^(sep)tember[\s\-]?(?:20)?([0-9]{2})$`, Replace: `sep${2}`},
				{Pattern: `^(oct)ober[\s\-]?(?:20)?([0-9]{2})$`, Replace: `oct${2}`},
				{Pattern: `^(nov)ember[\s\-]?(?:20)?([0-9]{2})$`, Replace: `nov${2}`},
				{Pattern: `^(dec)ember[\s\-]?(?:20)?([0-9]{2})$`, Replace: `dec${2}`},
				// "2025-07" / "2025/07"
				{Pattern: `^20([0-9]{2})[\-/]0?1$`, Replace: `jan${1}`},
				{Pattern: `^20([0-9]{2})[\-/]0?2$`, Replace: `feb${1}`},
				{Pattern: `^20([0-9]{2})[\-/]0?3$`, Replace: `mar${1}`},
				{Pattern: `^20([0-9]{2})[\-/]0?4$`, Replace: `apr${1}`},
				{Pattern: `^20([0-9]{2})[\-/]0?5$`, Replace: `may${1}`},
				{Pattern: `^20([0-9]{2})[\-/]0?6$`, Replace: `jun${1}`},
				{Pattern: `^20([0-9]{2})[\-/]0?7$`, Replace: `jul${1}`},
				{Pattern: `^20([0-9]{2})[\-/]0?8$`, Replace: `aug${1}`},
				{Pattern: `^20([0-9]{2})[\-/]0?9$`, Replace: `sep${1}`},
				{Pattern: `^20([0-9]{2})[\-/]10$`, Replace: `oct${1}`},
				{Pattern: `^20([0-9]{2})[\-/]11$`, Replace: `nov${1}`},
				{Pattern: `^20([0-9]{2})[\-/]12$`, Replace: `dec${1}`},
			},
			BuySellAliases: map[string]string{
				"b": "B", "buy": "B", "bought": "B", "long": "B",
				"s": "S", "sell": "S", "sold": "S", "short": "S",
			},
		},
	}
}
