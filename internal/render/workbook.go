package render

import (
	"io"
	"sort"

	"vizninja/domain/dataset"
	"vizninja/internal/analysis"

	"github.com/xuri/excelize/v2"
)

const (
	sheetData       = "Cleaned Data"
	sheetSummary    = "Summary"
	sheetRegression = "Regression"
)

// Workbook writes the cleaned data, its summary and the latest regression as
// an XLSX workbook.
func Workbook(w io.Writer, f *analysis.Frame, summary *dataset.Summary, regression *dataset.RegressionResult) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName("Sheet1", sheetData); err != nil {
		return err
	}

	names := f.Names()
	if err := setRow(book, sheetData, 1, toCells(names)); err != nil {
		return err
	}
	for r := 0; r < f.Len(); r++ {
		row := make([]interface{}, len(names))
		for i := range names {
			row[i] = f.Cell(i, r)
		}
		if err := setRow(book, sheetData, r+2, row); err != nil {
			return err
		}
	}

	if _, err := book.NewSheet(sheetSummary); err != nil {
		return err
	}
	if err := setRow(book, sheetSummary, 1, toCells([]string{"Column", "Type", "Missing", "Unique", "Mean", "Median", "Min", "Max", "Std"})); err != nil {
		return err
	}
	cols := sortedKeys(summary.DataTypes)
	for k, col := range cols {
		row := []interface{}{col, summary.DataTypes[col], summary.MissingValues[col], summary.UniqueValues[col]}
		if st, ok := summary.Statistics[col]; ok {
			row = append(row, st.Mean, st.Median, st.Min, st.Max, st.Std)
		}
		if err := setRow(book, sheetSummary, k+2, row); err != nil {
			return err
		}
	}

	if regression != nil {
		if _, err := book.NewSheet(sheetRegression); err != nil {
			return err
		}
		m := regression.ModelResults
		rows := [][]interface{}{
			{"Target", regression.TargetVariable},
			{"MSE", m.MSE},
			{"R2", m.R2},
			{"Features", m.NumFeatures},
			{"Samples", m.NumSamples},
			{"Test samples", m.TestSize},
			{},
			{"Feature", "Importance"},
		}
		ranked := append([]dataset.FeatureImportance(nil), regression.FeatureImportance.Data...)
		sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Importance > ranked[b].Importance })
		for _, fi := range ranked {
			rows = append(rows, []interface{}{fi.Feature, fi.Importance})
		}
		for k, row := range rows {
			if err := setRow(book, sheetRegression, k+1, row); err != nil {
				return err
			}
		}
	}

	return book.Write(w)
}

func setRow(book *excelize.File, sheet string, row int, values []interface{}) error {
	for c, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(c+1, row)
		if err != nil {
			return err
		}
		if err := book.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
