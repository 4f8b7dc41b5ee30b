package dataset

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Strategy selects how missing values are handled during preprocessing.
// The numeric values are the wire codes the backend expects.
type Strategy int

const (
	StrategyMeanMode   Strategy = 1
	StrategyMedianMode Strategy = 2
	StrategyDropRows   Strategy = 3
)

// DefaultStrategy is used for any selector that is not recognised.
const DefaultStrategy = StrategyMeanMode

var strategyAliases = map[string]Strategy{
	"1":           StrategyMeanMode,
	"mean":        StrategyMeanMode,
	"mean_mode":   StrategyMeanMode,
	"2":           StrategyMedianMode,
	"median":      StrategyMedianMode,
	"median_mode": StrategyMedianMode,
	"3":           StrategyDropRows,
	"drop":        StrategyDropRows,
	"drop_rows":   StrategyDropRows,
	"drop rows":   StrategyDropRows,
	"dropna":      StrategyDropRows,
}

// ParseStrategy maps a UI selector to a Strategy. Unrecognised selectors fall
// back to DefaultStrategy.
func ParseStrategy(selector string) Strategy {
	if s, ok := strategyAliases[strings.ToLower(strings.TrimSpace(selector))]; ok {
		return s
	}
	return DefaultStrategy
}

// Valid reports whether s is one of the three known strategies.
func (s Strategy) Valid() bool {
	return s >= StrategyMeanMode && s <= StrategyDropRows
}

// Normalize returns s, or DefaultStrategy when s is out of range.
func (s Strategy) Normalize() Strategy {
	if !s.Valid() {
		return DefaultStrategy
	}
	return s
}

func (s Strategy) String() string {
	switch s {
	case StrategyMeanMode:
		return "mean_mode"
	case StrategyMedianMode:
		return "median_mode"
	case StrategyDropRows:
		return "drop"
	default:
		return "unknown"
	}
}

// Label is the human readable description shown in dashboards.
func (s Strategy) Label() string {
	switch s.Normalize() {
	case StrategyMedianMode:
		return "Fill with median (numeric) / mode (categorical)"
	case StrategyDropRows:
		return "Drop rows with missing values"
	default:
		return "Fill with mean (numeric) / mode (categorical)"
	}
}

// UnmarshalJSON accepts both the integer wire code and string selectors such
// as "2" or "median". Unknown selectors decode to DefaultStrategy.
func (s *Strategy) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Strategy(n).Normalize()
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		*s = DefaultStrategy
		return nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(str)); err == nil {
		*s = Strategy(n).Normalize()
		return nil
	}
	*s = ParseStrategy(str)
	return nil
}

// Strategies lists the strategies in selector order.
func Strategies() []Strategy {
	return []Strategy{StrategyMeanMode, StrategyMedianMode, StrategyDropRows}
}
