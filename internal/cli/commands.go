package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"vizninja/domain/dataset"
	"vizninja/internal/connectivity"
	"vizninja/ports"
	"vizninja/ui"
)

func newUploadCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.csv>",
		Short: "Upload a CSV file and start a new session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			size := int64(-1)
			if info, err := f.Stat(); err == nil {
				size = info.Size()
			}

			sess, err := e.dash.Upload(e.context(cmd), filepath.Base(path), size, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Session:     %s\n", sess.ID)
			fmt.Fprintf(e.out, "Rows:        %d\n", sess.Stats.Rows)
			fmt.Fprintf(e.out, "Columns:     %d\n", sess.Stats.Columns)
			fmt.Fprintf(e.out, "Numeric:     %s\n", list(sess.NumericFeatures))
			fmt.Fprintf(e.out, "Categorical: %s\n", list(sess.CategoricalFeatures))
			return nil
		},
	}
}

func newPreviewCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Show the first rows of the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			preview, err := e.dash.Preview(e.context(cmd))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, strings.Join(preview.Columns, "\t"))
			for _, row := range preview.Data {
				cells := make([]string, len(row))
				for i, v := range row {
					cells[i] = cell(v)
				}
				fmt.Fprintln(tw, strings.Join(cells, "\t"))
			}
			return tw.Flush()
		},
	}
}

func newPreprocessCmd(e *env) *cobra.Command {
	var selector string
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Handle missing values and render the charts",
		Long: `Preprocess the current dataset.

Strategies:
  1, mean     fill numeric columns with the mean, categorical with the mode
  2, median   fill numeric columns with the median, categorical with the mode
  3, drop     drop rows with missing values

Unknown strategies fall back to mean.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy := dataset.ParseStrategy(selector)
			res, err := e.dash.Preprocess(e.context(cmd), strategy)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "%s (%s)\n", res.Message, strategy.Label())
			fmt.Fprintf(e.out, "Rows after preprocessing: %d\n", res.RowsAfterPreprocessing)
			fmt.Fprintf(e.out, "Charts: %s\n", list(res.Visualizations.Names()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&selector, "strategy", "s", "mean", "missing value strategy: mean, median or drop")
	return cmd
}

func newSummaryCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show per-column statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := e.context(cmd)
			summary, sampled, err := e.dash.Summary(ctx)
			if err != nil {
				return err
			}
			sess, err := e.dash.Session(ctx)
			if err != nil {
				return err
			}
			if sampled {
				fmt.Fprintln(e.out, "(computed from the stored sample rows)")
			}
			fmt.Fprintf(e.out, "Shape: %d rows x %d columns\n\n", summary.Shape.Rows, summary.Shape.Columns)

			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLUMN\tTYPE\tMISSING\tUNIQUE\tMEAN\tMEDIAN\tMIN\tMAX\tSTD")
			for _, col := range sess.ColumnNames {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d", col, summary.DataTypes[col], summary.MissingValues[col], summary.UniqueValues[col])
				if st, ok := summary.Statistics[col]; ok {
					fmt.Fprintf(tw, "\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n", st.Mean, st.Median, st.Min, st.Max, st.Std)
				} else {
					fmt.Fprint(tw, "\t-\t-\t-\t-\t-\n")
				}
			}
			return tw.Flush()
		},
	}
}

func newVisualizeCmd(e *env) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "visualize",
		Short: "List the charts of the last preprocessing run, optionally saving them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			viz, err := e.dash.Visualizations(e.context(cmd))
			if err != nil {
				return err
			}
			if len(viz) == 0 {
				fmt.Fprintln(e.out, "No visualizations available. Please process your data first.")
				return nil
			}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
			}
			for _, name := range viz.Names() {
				payload := viz[name]
				if outDir == "" {
					fmt.Fprintf(e.out, "%s\t%s\n", name, describePayload(payload))
					continue
				}
				data, err := dataset.DecodeDataURI(payload)
				if err != nil {
					fmt.Fprintf(e.out, "%s\tnot saved: %s\n", name, payload)
					continue
				}
				path := filepath.Join(outDir, name+".png")
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(e.out, "%s\t%s\n", name, path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory to write the chart PNG files to")
	return cmd
}

func newRegressCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "regress <target>",
		Short: "Fit a linear regression predicting a numeric column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.dash.Regress(e.context(cmd), args[0])
			if err != nil {
				return err
			}
			m := res.ModelResults
			fmt.Fprintf(e.out, "Target:        %s\n", res.TargetVariable)
			fmt.Fprintf(e.out, "MSE:           %.2f\n", m.MSE)
			fmt.Fprintf(e.out, "R2:            %.4f\n", m.R2)
			fmt.Fprintf(e.out, "Features:      %d\n", m.NumFeatures)
			fmt.Fprintf(e.out, "Samples:       %d (test %d)\n\n", m.NumSamples, m.TestSize)

			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FEATURE\tIMPORTANCE")
			for _, fi := range res.FeatureImportance.Data {
				fmt.Fprintf(tw, "%s\t%.4f\n", fi.Feature, fi.Importance)
			}
			return tw.Flush()
		},
	}
}

func newDownloadCmd(e *env) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:       "download <data|workbook|results|report>",
		Short:     "Download an artifact of the current session",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"data", "workbook", "results", "report"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dl, err := e.dash.Download(e.context(cmd), ports.DownloadKind(args[0]))
			if err != nil {
				return err
			}
			defer dl.Body.Close()

			path := outPath
			if path == "" {
				path = dl.Filename
			}
			if path == "-" {
				_, err := io.Copy(e.out, dl.Body)
				return err
			}
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			n, err := io.Copy(f, dl.Body)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Wrote %s (%d bytes)\n", path, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path, - for stdout (default: the server's filename)")
	return cmd
}

func newStatusCmd(e *env) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			monitor := connectivity.NewMonitor(e.backend, e.notifier, e.cfg.Health.PollInterval)
			if !watch {
				state := monitor.Refresh(e.context(cmd))
				fmt.Fprintf(e.out, "Backend %s (%s)\n", state, e.cfg.Backend.URL)
				if state != connectivity.Connected {
					_, err := monitor.LastCheck()
					return err
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(e.context(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			states, cancel := monitor.Subscribe()
			defer cancel()
			go monitor.Run(ctx)

			fmt.Fprintf(e.out, "Watching %s every %s (Ctrl+C to stop)\n", e.cfg.Backend.URL, e.cfg.Health.PollInterval)
			for {
				select {
				case <-ctx.Done():
					return nil
				case s := <-states:
					fmt.Fprintf(e.out, "Backend %s\n", s)
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling and report every state change")
	return cmd
}

func newSessionCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or clear the stored session",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := e.dash.Session(e.context(cmd))
			if err != nil {
				return err
			}
			if !sess.Exists() {
				fmt.Fprintln(e.out, "(no session: upload a dataset first)")
				return nil
			}
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(e.out)
				enc.SetIndent(2)
				if err := enc.Encode(sess); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(e.out)
				enc.SetIndent("", "  ")
				return enc.Encode(sess)
			default:
				fmt.Fprintf(e.out, "Session:        %s\n", sess.ID)
				fmt.Fprintf(e.out, "Columns:        %s\n", list(sess.ColumnNames))
				fmt.Fprintf(e.out, "Numeric:        %s\n", list(sess.NumericFeatures))
				fmt.Fprintf(e.out, "Categorical:    %s\n", list(sess.CategoricalFeatures))
				fmt.Fprintf(e.out, "Visualizations: %s\n", list(sess.Visualizations.Names()))
				if sess.Regression != nil {
					fmt.Fprintf(e.out, "Regression:     %s (R2 %.4f)\n", sess.Regression.TargetVariable, sess.Regression.ModelResults.R2)
				}
				return nil
			}
		},
	}
	show.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.dash.Clear(e.context(cmd))
		},
	}

	cmd.AddCommand(show, clearCmd)
	return cmd
}

func newDashboardCmd(e *env) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the HTML dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = e.cfg.Dashboard.Port
			}
			ctx, stop := signal.NotifyContext(e.context(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			monitor := connectivity.NewMonitor(e.backend, e.notifier, e.cfg.Health.PollInterval)
			go monitor.Run(ctx)

			app, err := ui.NewApp(ui.Config{Port: port, MaxUploadBytes: e.cfg.Upload.ServerMaxBytes}, e.dash, monitor, e.hub)
			if err != nil {
				return err
			}
			return app.Start(ctx)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (DASHBOARD_PORT)")
	return cmd
}

func list(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func cell(v interface{}) string {
	switch n := v.(type) {
	case nil:
		return "NaN"
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.4f", n), "0"), ".")
	default:
		return fmt.Sprint(n)
	}
}

func describePayload(p string) string {
	if strings.HasPrefix(p, "data:") {
		if data, err := dataset.DecodeDataURI(p); err == nil {
			return fmt.Sprintf("embedded PNG, %d bytes", len(data))
		}
	}
	return p
}
