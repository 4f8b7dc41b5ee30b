package analysis

import (
	"strings"

	"vizninja/domain/dataset"

	"github.com/montanaflynn/stats"
)

// Clean applies a missing-value strategy to a copy of f, removes duplicate
// rows and normalises the column names. f itself is left untouched.
func Clean(f *Frame, strategy dataset.Strategy) *Frame {
	out := f.Clone()
	switch strategy.Normalize() {
	case dataset.StrategyMeanMode:
		out.impute(func(values []float64) (float64, error) {
			return stats.Mean(values)
		})
	case dataset.StrategyMedianMode:
		out.impute(func(values []float64) (float64, error) {
			return stats.Median(values)
		})
	case dataset.StrategyDropRows:
		out.DropIncomplete()
	}
	out.DropDuplicates()
	out.NormalizeNames()
	return out
}

// impute fills numeric gaps with center(values) and object gaps with the
// column mode. Columns with no present value stay missing.
func (f *Frame) impute(center func([]float64) (float64, error)) {
	for i := range f.cols {
		var fill Value
		if f.IsNumeric(i) {
			present := f.Present(i)
			if len(present) == 0 {
				continue
			}
			c, err := center(present)
			if err != nil {
				continue
			}
			fill = Value{Num: c}
		} else {
			m, ok := f.mode(i)
			if !ok {
				continue
			}
			fill = Value{Str: m}
		}
		for r, v := range f.cols[i] {
			if v.Null {
				f.cols[i][r] = fill
			}
		}
	}
}

// DropIncomplete removes every row holding a missing cell.
func (f *Frame) DropIncomplete() {
	f.filterRows(func(r int) bool {
		for i := range f.cols {
			if f.cols[i][r].Null {
				return false
			}
		}
		return true
	})
}

// DropDuplicates keeps the first occurrence of every distinct row.
func (f *Frame) DropDuplicates() {
	seen := make(map[string]bool, f.Len())
	var key strings.Builder
	f.filterRows(func(r int) bool {
		key.Reset()
		for i := range f.cols {
			v := f.cols[i][r]
			switch {
			case v.Null:
				key.WriteString("\x00n")
			default:
				key.WriteString("\x00")
				key.WriteString(f.Text(i, r))
			}
		}
		k := key.String()
		if seen[k] {
			return false
		}
		seen[k] = true
		return true
	})
}

// NormalizeNames trims, lower-cases and underscores every column name.
func (f *Frame) NormalizeNames() {
	for i, n := range f.names {
		f.names[i] = NormalizeName(n)
	}
}

// NormalizeName returns the cleaned form of a column name.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
