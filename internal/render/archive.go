package render

import (
	"archive/zip"
	"encoding/json"
	"io"
	"sort"

	"vizninja/domain/dataset"
	"vizninja/internal/analysis"
)

// Archive writes the results bundle: cleaned data, report, charts and the
// regression result when one exists.
func Archive(w io.Writer, cleaned *analysis.Frame, report []byte, charts Charts, regression *dataset.RegressionResult) error {
	zw := zip.NewWriter(w)

	if cleaned != nil {
		fw, err := zw.Create("cleaned_data.csv")
		if err != nil {
			return err
		}
		if err := cleaned.WriteCSV(fw); err != nil {
			return err
		}
	}

	fw, err := zw.Create("report.html")
	if err != nil {
		return err
	}
	if _, err := fw.Write(report); err != nil {
		return err
	}

	names := make([]string, 0, len(charts))
	for name := range charts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fw, err := zw.Create("charts/" + name + ".png")
		if err != nil {
			return err
		}
		if _, err := fw.Write(charts[name]); err != nil {
			return err
		}
	}

	if regression != nil {
		fw, err := zw.Create("regression.json")
		if err != nil {
			return err
		}
		enc := json.NewEncoder(fw)
		enc.SetIndent("", "  ")
		if err := enc.Encode(regression); err != nil {
			return err
		}
	}

	return zw.Close()
}
