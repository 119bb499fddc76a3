package main

import (
	"fmt"

	"github.com/spf13/cobra"

	d "github.com/invertedv/factdf"
	"github.com/invertedv/factdf/build"
	"github.com/invertedv/factdf/load"
	m "github.com/invertedv/factdf/mem"
	"github.com/invertedv/factdf/schema"
	s "github.com/invertedv/factdf/sql"
)

// rateColumns are the fact table columns the summary command describes.
var rateColumns = []string{"share_white", "share_black", "share_hispanic", "poverty_rate", "unemployment_rate", "college_degree_rate"}

func (a *app) schemaCmd() *cobra.Command {
	var drop bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create the five source tables",
		Long:  "Creates victim, date, location, incident_facts and population_facts. Existing tables are kept unless --drop is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dlct, e := a.connect()
			if e != nil {
				return e
			}
			defer closeDB(dlct, a.logger)

			dlct = dlct.WithContext(cmd.Context())
			for _, t := range schema.Sources(a.cfg.KeyMode()) {
				exists, ex := dlct.Exists(t.Name)
				if ex != nil {
					return ex
				}

				if exists && !drop {
					a.logger.Info("table exists, skipped", "table", t.Name)
					continue
				}

				if ex := t.Create(dlct, drop); ex != nil {
					return ex
				}

				a.logger.Info("table created", "table", t.Name, "columns", len(t.Fields))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&drop, "drop", false, "Drop and recreate tables that exist")

	return cmd
}

func (a *app) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <table> <file.csv|file.json>",
		Short: "Append the rows of a CSV or JSON file to a source table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, e := schema.Source(args[0], a.cfg.KeyMode())
			if e != nil {
				return e
			}

			dlct, e := a.connect()
			if e != nil {
				return e
			}
			defer closeDB(dlct, a.logger)

			var n int
			if n, e = load.File(dlct.WithContext(cmd.Context()), table, args[1]); e != nil {
				return e
			}

			a.logger.Info("rows loaded", "table", table.Name, "file", args[1], "rows", n)
			_, e = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rows into %s\n", n, table.Name)

			return e
		},
	}
}

func (a *app) buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Join the source tables and replace the fact table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, e := build.NewBuilder(
				build.WithMode(a.cfg.KeyMode()),
				build.WithBackend(a.cfg.BackendKind()),
				build.WithTable(a.cfg.Table),
				build.WithIntermediates(a.cfg.Intermediates),
				build.WithFailOnDrop(a.cfg.FailOnDrop),
				build.WithLogger(a.logger),
			)
			if e != nil {
				return e
			}

			dlct, e := a.connect()
			if e != nil {
				return e
			}
			defer closeDB(dlct, a.logger)

			var rpt *build.Report
			if rpt, e = b.Materialize(cmd.Context(), dlct); e != nil {
				return e
			}

			_, e = fmt.Fprint(cmd.OutOrStdout(), rpt.String())

			return e
		},
	}

	fs := cmd.Flags()
	fs.String("backend", "", "Where the joins run: sql or mem")
	fs.Bool("intermediates", false, "Also save summary1, summary2 and complete")
	fs.Bool("fail-on-drop", false, "Fail if any join drops unmatched rows")
	a.bind(fs, map[string]string{
		"backend":       "backend",
		"intermediates": "intermediates",
		"fail-on-drop":  "fail_on_drop",
	})

	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Write the fact table to a CSV file in key order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dlct, e := a.connect()
			if e != nil {
				return e
			}
			defer closeDB(dlct, a.logger)

			dlct = dlct.WithContext(cmd.Context())
			var df *s.DF
			if df, e = a.factTable(dlct); e != nil {
				return e
			}

			if e := df.Sort(true, orderKeys(df, a.cfg.KeyMode())...); e != nil {
				return e
			}

			if e := d.NewFiles().Save(args[0], df); e != nil {
				return e
			}

			a.logger.Info("fact table exported", "table", a.cfg.Table, "file", args[0])

			return nil
		},
	}
}

func (a *app) summaryCmd() *cobra.Command {
	var by string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Describe the rate columns of the fact table, or count its rows by a column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dlct, e := a.connect()
			if e != nil {
				return e
			}
			defer closeDB(dlct, a.logger)

			dlct = dlct.WithContext(cmd.Context())
			var src *s.DF
			if src, e = a.factTable(dlct); e != nil {
				return e
			}

			var df *m.DF
			if df, e = m.DBLoad(src.MakeQuery(), dlct); e != nil {
				return e
			}

			out := cmd.OutOrStdout()
			if by != "" {
				var tab *m.DF
				if tab, e = df.Table(by); e != nil {
					return e
				}

				return writeTable(out, tab)
			}

			return writeSummaries(out, df, rateColumns)
		},
	}

	cmd.Flags().StringVar(&by, "by", "", "Count rows by this column instead")

	return cmd
}

// factTable checks the fact table exists and returns it as a query.
func (a *app) factTable(dlct *d.Dialect) (*s.DF, error) {
	exists, e := dlct.Exists(a.cfg.Table)
	if e != nil {
		return nil, e
	}

	if !exists {
		return nil, fmt.Errorf("%w: table %s not found: run build first", d.ErrStructural, a.cfg.Table)
	}

	return s.DBload(fmt.Sprintf("SELECT * FROM %s", dlct.Ident(a.cfg.Table)), dlct)
}

// orderKeys returns the sort keys of mode that df has, falling back to the keys of the other mode
// so a table built in either mode exports in key order.
func orderKeys(df d.DF, mode schema.KeyMode) []string {
	for _, md := range []schema.KeyMode{mode, schema.Keyed, schema.Positional} {
		var keys []string
		for _, k := range build.OrderKeys(md) {
			if df.HasColumns(k) {
				keys = append(keys, k)
			}
		}

		if len(keys) > 0 {
			return keys
		}
	}

	return nil
}
