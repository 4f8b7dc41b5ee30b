package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"vizninja/domain/dataset"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// ReportInput is everything the HTML report describes.
type ReportInput struct {
	SessionID      string
	Filename       string
	GeneratedAt    time.Time
	Raw            *dataset.Summary
	Cleaned        *dataset.Summary
	Strategy       dataset.Strategy
	Visualizations dataset.Visualizations
	Regression     *dataset.RegressionResult
}

// ReportMarkdown builds the report document as markdown.
func ReportMarkdown(in ReportInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Data Analysis Report\n\n")
	fmt.Fprintf(&b, "- Session: `%s`\n", in.SessionID)
	if in.Filename != "" {
		fmt.Fprintf(&b, "- File: %s\n", in.Filename)
	}
	fmt.Fprintf(&b, "- Generated: %s\n\n", in.GeneratedAt.UTC().Format(time.RFC1123))

	if in.Raw != nil {
		b.WriteString("## Dataset Overview\n\n")
		fmt.Fprintf(&b, "%d rows, %d columns.\n\n", in.Raw.Shape.Rows, in.Raw.Shape.Columns)
		writeColumnTable(&b, in.Raw)
		writeStatsTable(&b, in.Raw)
	}

	if in.Cleaned != nil {
		b.WriteString("## Preprocessing\n\n")
		fmt.Fprintf(&b, "Missing values handled with **%s**, duplicate rows removed and column names normalised. ",
			in.Strategy.Label())
		fmt.Fprintf(&b, "%d rows remain.\n\n", in.Cleaned.Shape.Rows)
	}

	if len(in.Visualizations) > 0 {
		b.WriteString("## Visualizations\n\n")
		for _, name := range in.Visualizations.Names() {
			fmt.Fprintf(&b, "### %s\n\n![%s](%s)\n\n", title(name), name, in.Visualizations[name])
		}
	}

	if r := in.Regression; r != nil {
		b.WriteString("## Regression Analysis\n\n")
		fmt.Fprintf(&b, "Target variable: **%s**\n\n", r.TargetVariable)
		b.WriteString("| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Mean squared error | %.4f |\n", r.ModelResults.MSE)
		fmt.Fprintf(&b, "| R² | %.4f |\n", r.ModelResults.R2)
		fmt.Fprintf(&b, "| Features | %d |\n", r.ModelResults.NumFeatures)
		fmt.Fprintf(&b, "| Samples | %d |\n", r.ModelResults.NumSamples)
		fmt.Fprintf(&b, "| Test samples | %d |\n\n", r.ModelResults.TestSize)

		b.WriteString("| Feature | Importance |\n|---|---|\n")
		for _, fi := range r.FeatureImportance.Data {
			fmt.Fprintf(&b, "| %s | %.4f |\n", fi.Feature, fi.Importance)
		}
		b.WriteString("\n")
		if r.RegressionPlot != "" {
			fmt.Fprintf(&b, "![regression plot](%s)\n\n", r.RegressionPlot)
		}
		if r.FeatureImportance.Image != "" {
			fmt.Fprintf(&b, "![feature importance](%s)\n\n", r.FeatureImportance.Image)
		}
	}
	return b.String()
}

// Report renders the report as a complete HTML page.
func Report(in ReportInput) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: "Data Analysis Report",
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(ReportMarkdown(in)), p, renderer)
}

func writeColumnTable(b *strings.Builder, s *dataset.Summary) {
	b.WriteString("| Column | Type | Missing | Unique |\n|---|---|---|---|\n")
	for _, col := range sortedKeys(s.DataTypes) {
		fmt.Fprintf(b, "| %s | %s | %d | %d |\n", col, s.DataTypes[col], s.MissingValues[col], s.UniqueValues[col])
	}
	b.WriteString("\n")
}

func writeStatsTable(b *strings.Builder, s *dataset.Summary) {
	if len(s.Statistics) == 0 {
		return
	}
	b.WriteString("| Column | Mean | Median | Min | Max | Std |\n|---|---|---|---|---|---|\n")
	cols := make([]string, 0, len(s.Statistics))
	for col := range s.Statistics {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		st := s.Statistics[col]
		fmt.Fprintf(b, "| %s | %.2f | %.2f | %.2f | %.2f | %.2f |\n", col, st.Mean, st.Median, st.Min, st.Max, st.Std)
	}
	b.WriteString("\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func title(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
