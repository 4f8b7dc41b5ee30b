// Package cli implements vizctl, the command line dashboard.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vizninja/adapters/backend"
	"vizninja/internal"
	"vizninja/internal/config"
	"vizninja/internal/dashboard"
	"vizninja/internal/notify"
	"vizninja/internal/store"
	"vizninja/ports"
)

// Options injects dependencies, mainly for tests. Nil fields are built from
// configuration.
type Options struct {
	Viper   *viper.Viper
	Backend ports.Backend
	KV      ports.KVStore
}

// env is what every command runs against once configuration is loaded
type env struct {
	cfg      *config.Config
	backend  ports.Backend
	kv       ports.KVStore
	hub      *notify.Hub
	dash     *dashboard.Dashboard
	ownsKV   bool
	errOut   io.Writer
	out      io.Writer
	notifier ports.Notifier
}

// Execute runs vizctl with the process arguments
func Execute() {
	if err := NewRootCmd(Options{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the vizctl command tree
func NewRootCmd(opts Options) *cobra.Command {
	v := opts.Viper
	if v == nil {
		v = viper.New()
	}
	e := &env{}

	root := &cobra.Command{
		Use:           "vizctl",
		Short:         "VizNinja dashboard: upload, clean, explore and model CSV data",
		Long:          `vizctl keeps one dataset session on disk and drives the VizNinja analysis backend: upload a CSV, preprocess it, explore summaries and charts, run a regression and download the results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd, v, opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.close()
		},
	}

	f := root.PersistentFlags()
	f.String("backend", "", "backend mode: http or fake (BACKEND_MODE)")
	f.String("backend-url", "", "analysis API base URL (BACKEND_URL)")
	f.Duration("timeout", 0, "backend request timeout (BACKEND_TIMEOUT)")
	f.String("store", "", "session store driver: badger, memory or postgres (STORE_DRIVER)")
	f.String("store-path", "", "badger session directory (STORE_PATH)")
	f.String("log-level", "", "ERROR, WARN, INFO, DEBUG or TRACE (LOG_LEVEL)")
	for key, flag := range map[string]string{
		"BACKEND_MODE":    "backend",
		"BACKEND_URL":     "backend-url",
		"BACKEND_TIMEOUT": "timeout",
		"STORE_DRIVER":    "store",
		"STORE_PATH":      "store-path",
		"LOG_LEVEL":       "log-level",
	} {
		_ = v.BindPFlag(key, f.Lookup(flag))
	}

	root.AddCommand(
		newUploadCmd(e),
		newPreviewCmd(e),
		newPreprocessCmd(e),
		newSummaryCmd(e),
		newVisualizeCmd(e),
		newRegressCmd(e),
		newDownloadCmd(e),
		newStatusCmd(e),
		newSessionCmd(e),
		newDashboardCmd(e),
	)
	return root
}

func (e *env) setup(cmd *cobra.Command, v *viper.Viper, opts Options) error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadFrom(v)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.out = cmd.OutOrStdout()
	e.errOut = cmd.ErrOrStderr()

	e.backend = opts.Backend
	if e.backend == nil {
		if e.backend, err = backend.New(cfg); err != nil {
			return err
		}
	}

	e.kv = opts.KV
	if e.kv == nil {
		if e.kv, err = store.OpenKV(e.context(cmd), cfg, "vizctl"); err != nil {
			return err
		}
		e.ownsKV = true
	}

	e.hub = notify.NewHub(20)
	e.notifier = notify.Multi{notify.Func(e.print), e.hub}
	e.dash = dashboard.New(e.backend, store.New(e.kv), e.notifier, dashboard.Options{
		AdvisoryMaxBytes: cfg.Upload.AdvisoryMaxBytes,
		Logger:           internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)),
	})
	return nil
}

func (e *env) close() error {
	if e.ownsKV && e.kv != nil {
		err := e.kv.Close()
		e.kv = nil
		return err
	}
	return nil
}

// print writes a notification to stderr the way vizctl reports status
func (e *env) print(n ports.Notification) {
	symbol := "•"
	switch n.Level {
	case ports.NotifySuccess:
		symbol = "✓"
	case ports.NotifyWarning:
		symbol = "⚠"
	case ports.NotifyError:
		symbol = "✗"
	}
	fmt.Fprintf(e.errOut, "%s %s\n", symbol, n.Message)
}

func (e *env) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
