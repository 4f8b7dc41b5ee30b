package analysis

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"vizninja/domain/core"
	"vizninja/domain/dataset"
)

// Value is one cell of a Frame. Num is set for numeric columns, Str for
// object columns. A Null cell carries neither.
type Value struct {
	Num  float64
	Str  string
	Null bool
}

// Frame is an in-memory table stored column by column.
type Frame struct {
	names []string
	kinds []string
	cols  [][]Value
}

// Tokens read as a missing cell, matching the usual CSV conventions.
var nullTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
	"#n/a": true,
}

func isNullToken(s string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(s))]
}

// ParseCSV reads a CSV document with a header row and infers a type for
// every column: int64 when every present cell is an integer and none is
// missing, float64 when every present cell is numeric, object otherwise.
func ParseCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if stderrors.Is(err, io.EOF) {
		return nil, core.ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedCSV, err)
	}

	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimPrefix(h, "\ufeff")
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column %q", core.ErrMalformedCSV, name)
		}
		seen[name] = true
		names[i] = name
	}

	raw := make([][]string, len(names))
	line := 1
	for {
		record, err := reader.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrMalformedCSV, err)
		}
		line++
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" && len(names) > 1 {
			continue
		}
		if len(record) > len(names) {
			return nil, fmt.Errorf("%w: line %d has %d fields, expected %d",
				core.ErrMalformedCSV, line, len(record), len(names))
		}
		for i := range names {
			cell := ""
			if i < len(record) {
				cell = record[i]
			}
			raw[i] = append(raw[i], cell)
		}
	}

	f := &Frame{
		names: names,
		kinds: make([]string, len(names)),
		cols:  make([][]Value, len(names)),
	}
	for i, cells := range raw {
		f.kinds[i], f.cols[i] = inferColumn(cells)
	}
	return f, nil
}

func inferColumn(cells []string) (string, []Value) {
	numeric, integral, missing := true, true, false
	nums := make([]float64, len(cells))
	for i, c := range cells {
		if isNullToken(c) {
			missing = true
			continue
		}
		s := strings.TrimSpace(c)
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			integral = false
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			numeric = false
			break
		}
		nums[i] = v
	}

	values := make([]Value, len(cells))
	kind := dataset.TypeObject
	switch {
	case numeric && integral && !missing:
		kind = dataset.TypeInt64
	case numeric:
		kind = dataset.TypeFloat64
	}

	for i, c := range cells {
		switch {
		case isNullToken(c):
			values[i] = Value{Null: true}
		case kind == dataset.TypeObject:
			values[i] = Value{Str: c}
		default:
			values[i] = Value{Num: nums[i]}
		}
	}
	return kind, values
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if len(f.cols) == 0 {
		return 0
	}
	return len(f.cols[0])
}

// Names returns the column names in file order.
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// Index returns the position of column name, or -1.
func (f *Frame) Index(name string) int {
	for i, n := range f.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Kind returns the data type label of column i.
func (f *Frame) Kind(i int) string {
	return f.kinds[i]
}

// IsNumeric reports whether column i holds numbers.
func (f *Frame) IsNumeric(i int) bool {
	return f.kinds[i] != dataset.TypeObject
}

// NumericColumns returns the names of the numeric columns.
func (f *Frame) NumericColumns() []string {
	var out []string
	for i, n := range f.names {
		if f.IsNumeric(i) {
			out = append(out, n)
		}
	}
	return out
}

// CategoricalColumns returns the names of the object columns.
func (f *Frame) CategoricalColumns() []string {
	var out []string
	for i, n := range f.names {
		if !f.IsNumeric(i) {
			out = append(out, n)
		}
	}
	return out
}

// Present returns the non-missing values of numeric column i.
func (f *Frame) Present(i int) []float64 {
	out := make([]float64, 0, f.Len())
	for _, v := range f.cols[i] {
		if !v.Null {
			out = append(out, v.Num)
		}
	}
	return out
}

// Cell returns the JSON-friendly value at row r of column i: float64,
// string or nil.
func (f *Frame) Cell(i, r int) interface{} {
	v := f.cols[i][r]
	switch {
	case v.Null:
		return nil
	case f.IsNumeric(i):
		return v.Num
	default:
		return v.Str
	}
}

// Text renders the cell at row r of column i the way it is written to CSV.
func (f *Frame) Text(i, r int) string {
	v := f.cols[i][r]
	switch {
	case v.Null:
		return ""
	case f.IsNumeric(i):
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return v.Str
	}
}

// MissingCounts returns the number of missing cells per column.
func (f *Frame) MissingCounts() map[string]int {
	out := make(map[string]int, len(f.names))
	for i, n := range f.names {
		count := 0
		for _, v := range f.cols[i] {
			if v.Null {
				count++
			}
		}
		out[n] = count
	}
	return out
}

// UniqueCounts returns the number of distinct non-missing values per column.
func (f *Frame) UniqueCounts() map[string]int {
	out := make(map[string]int, len(f.names))
	for i, n := range f.names {
		seen := make(map[Value]bool)
		for _, v := range f.cols[i] {
			if !v.Null {
				seen[v] = true
			}
		}
		out[n] = len(seen)
	}
	return out
}

// DataTypes returns the data type label per column.
func (f *Frame) DataTypes() map[string]string {
	out := make(map[string]string, len(f.names))
	for i, n := range f.names {
		out[n] = f.kinds[i]
	}
	return out
}

// Head returns the first n rows keyed by column.
func (f *Frame) Head(n int) []dataset.Row {
	n = min(n, f.Len())
	rows := make([]dataset.Row, n)
	for r := 0; r < n; r++ {
		row := make(dataset.Row, len(f.names))
		for i, name := range f.names {
			row[name] = f.Cell(i, r)
		}
		rows[r] = row
	}
	return rows
}

// Preview returns the first n rows in array form.
func (f *Frame) Preview(n int) *dataset.Preview {
	n = min(n, f.Len())
	data := make([][]interface{}, n)
	for r := 0; r < n; r++ {
		values := make([]interface{}, len(f.names))
		for i := range f.names {
			values[i] = f.Cell(i, r)
		}
		data[r] = values
	}
	return &dataset.Preview{Columns: f.Names(), Data: data}
}

// UploadStats describes the frame as returned by the upload endpoint.
func (f *Frame) UploadStats(sampleRows int) dataset.UploadStats {
	return dataset.UploadStats{
		Rows:          f.Len(),
		Columns:       len(f.names),
		ColumnNames:   f.Names(),
		MissingValues: f.MissingCounts(),
		DataTypes:     f.DataTypes(),
		SampleData:    f.Head(sampleRows),
	}
}

// Summary computes the exploration summary of the frame.
func (f *Frame) Summary() *dataset.Summary {
	summary := &dataset.Summary{
		Shape:         dataset.Shape{Rows: f.Len(), Columns: len(f.names)},
		MissingValues: f.MissingCounts(),
		UniqueValues:  f.UniqueCounts(),
		DataTypes:     f.DataTypes(),
		Statistics:    make(map[string]dataset.NumericStats),
	}
	for i, n := range f.names {
		if !f.IsNumeric(i) {
			continue
		}
		values := f.Present(i)
		if len(values) == 0 {
			continue
		}
		summary.Statistics[n] = dataset.Describe(values)
	}
	return summary
}

// WriteCSV writes the frame with a header row.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.names); err != nil {
		return err
	}
	record := make([]string, len(f.names))
	for r := 0; r < f.Len(); r++ {
		for i := range f.names {
			record[i] = f.Text(i, r)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		names: f.Names(),
		kinds: append([]string(nil), f.kinds...),
		cols:  make([][]Value, len(f.cols)),
	}
	for i, col := range f.cols {
		out.cols[i] = append([]Value(nil), col...)
	}
	return out
}

// filterRows keeps the rows for which keep returns true.
func (f *Frame) filterRows(keep func(r int) bool) {
	n := f.Len()
	kept := make([]int, 0, n)
	for r := 0; r < n; r++ {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	for i, col := range f.cols {
		next := make([]Value, len(kept))
		for j, r := range kept {
			next[j] = col[r]
		}
		f.cols[i] = next
	}
}

// mode returns the most frequent value of object column i. Ties resolve to
// the lexicographically smallest value.
func (f *Frame) mode(i int) (string, bool) {
	counts := make(map[string]int)
	for _, v := range f.cols[i] {
		if !v.Null {
			counts[v.Str]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best, true
}
