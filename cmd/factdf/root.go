package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	d "github.com/invertedv/factdf"
	"github.com/invertedv/factdf/internal/config"
	"github.com/invertedv/factdf/internal/logging"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	v          *viper.Viper
	configFile string

	cfg    *config.Config
	logger *slog.Logger
}

func newApp() *app {
	return &app{v: viper.New()}
}

func newRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "factdf [command]",
		Short: "Build a denormalized fact table from the victim, date, location, incident and population tables",
		Long: `factdf creates the five source tables, loads them from CSV or JSON files and joins them
into one analytics-ready fact table, which it replaces atomically on every build.

Settings come from flags, FACTDF_* environment variables, a factdf.yaml file and defaults,
in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Config file (default ./factdf.{yaml,toml,json} if present)")
	pf.String("dialect", "", "Database dialect: sqlite, postgres or clickhouse")
	pf.String("dsn", "", "Database connection string")
	pf.String("table", "", "Name of the fact table")
	pf.String("mode", "", "Key mode: keyed or positional")
	pf.Int("batch-size", 0, "Rows per INSERT when writing from memory")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-format", "", "Log format: text or json")

	a.bind(pf, map[string]string{
		"dialect":    "dialect",
		"dsn":        "dsn",
		"table":      "table",
		"mode":       "mode",
		"batch-size": "batch_size",
		"log-level":  "log.level",
		"log-format": "log.format",
	})

	rootCmd.AddCommand(a.schemaCmd(), a.loadCmd(), a.buildCmd(), a.exportCmd(), a.summaryCmd())

	return rootCmd
}

// bind ties flags to config keys. A flag only overrides the config when it is set.
func (a *app) bind(fs *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if e := a.v.BindPFlag(key, fs.Lookup(flag)); e != nil {
			panic(e)
		}
	}
}

func (a *app) init(cmd *cobra.Command) error {
	var e error
	if a.cfg, e = config.Load(a.v, a.configFile); e != nil {
		return e
	}

	a.logger = logging.New(cmd.ErrOrStderr(), a.cfg.Log.Level, a.cfg.Log.Format)

	return nil
}

// report logs a failed invocation with the configured logger, or to stderr if the config never loaded.
func (a *app) report(err error) {
	logger := a.logger
	if logger == nil {
		logger = logging.New(os.Stderr, "info", "text")
	}

	logger.Error("factdf failed", "error", fmt.Sprint(err))
}

// connect opens the configured database.
func (a *app) connect() (*d.Dialect, error) {
	dlct, e := d.Connect(a.cfg.Dialect, a.cfg.DSN)
	if e != nil {
		return nil, e
	}

	dlct.SetBatchSize(a.cfg.BatchSize)
	a.logger.Debug("connected", "dialect", dlct.DialectName())

	return dlct, nil
}

func closeDB(dlct *d.Dialect, logger *slog.Logger) {
	if e := dlct.Close(); e != nil {
		logger.Warn("close database", "error", fmt.Sprint(e))
	}
}
