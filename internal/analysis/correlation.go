package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Correlation is a square Pearson correlation matrix over the numeric columns.
type Correlation struct {
	Columns []string
	Values  [][]float64
}

// CorrelationMatrix computes pairwise Pearson correlations over the numeric
// columns of f, using for each pair only the rows where both are present.
// Pairs without variance report NaN.
func CorrelationMatrix(f *Frame) *Correlation {
	var idx []int
	for i := range f.names {
		if f.IsNumeric(i) {
			idx = append(idx, i)
		}
	}

	c := &Correlation{
		Columns: make([]string, len(idx)),
		Values:  make([][]float64, len(idx)),
	}
	for a, i := range idx {
		c.Columns[a] = f.names[i]
		c.Values[a] = make([]float64, len(idx))
	}

	for a, i := range idx {
		for b := a; b < len(idx); b++ {
			x, y := f.Pairwise(i, idx[b])
			v := math.NaN()
			if len(x) > 1 {
				v = stat.Correlation(x, y, nil)
			}
			c.Values[a][b] = v
			c.Values[b][a] = v
		}
	}
	return c
}

// Pairwise returns the values of numeric columns i and j over the rows where
// both are present.
func (f *Frame) Pairwise(i, j int) ([]float64, []float64) {
	var x, y []float64
	for r := 0; r < f.Len(); r++ {
		a, b := f.cols[i][r], f.cols[j][r]
		if a.Null || b.Null {
			continue
		}
		x = append(x, a.Num)
		y = append(y, b.Num)
	}
	return x, y
}
