// Package build joins the five source tables into the fact table.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	d "github.com/invertedv/factdf"
	"github.com/invertedv/factdf/internal/logging"
	m "github.com/invertedv/factdf/mem"
	"github.com/invertedv/factdf/schema"
	s "github.com/invertedv/factdf/sql"
)

// Backend selects where the joins run.
type Backend string

const (
	// BackendSQL runs the joins in the database.
	BackendSQL Backend = "sql"

	// BackendMem reads the source tables and joins them in memory.
	BackendMem Backend = "mem"
)

// StagingSuffix is appended to an output table's name while it is written.
const StagingSuffix = "__staging"

func ParseBackend(b string) (Backend, error) {
	switch be := Backend(strings.ToLower(strings.TrimSpace(b))); be {
	case BackendSQL, BackendMem:
		return be, nil
	case "":
		return BackendSQL, nil
	default:
		return "", fmt.Errorf("unknown backend %q: must be %s or %s", b, BackendSQL, BackendMem)
	}
}

// Sources maps source table names to their data.
type Sources map[string]d.DF

// Result is the output of Run.
type Result struct {
	Fact d.DF

	// Stages holds every stage's output, the fact table included, by stage name.
	Stages map[string]d.DF
	Report *Report
}

type Builder struct {
	mode    schema.KeyMode
	backend Backend
	table   string

	intermediates bool
	failOnDrop    bool

	logger *slog.Logger
}

type Opt func(b *Builder) error

func WithMode(mode schema.KeyMode) Opt {
	return func(b *Builder) error {
		var e error
		b.mode, e = schema.ParseMode(string(mode))
		return e
	}
}

func WithBackend(backend Backend) Opt {
	return func(b *Builder) error {
		var e error
		b.backend, e = ParseBackend(string(backend))
		return e
	}
}

// WithTable sets the name of the output table.
func WithTable(name string) Opt {
	return func(b *Builder) error {
		if e := d.ValidTableName(name); e != nil {
			return e
		}

		b.table = name
		return nil
	}
}

// WithIntermediates also saves summary1, summary2 and complete as tables.
func WithIntermediates(keep bool) Opt {
	return func(b *Builder) error {
		b.intermediates = keep
		return nil
	}
}

// WithFailOnDrop makes any row discarded by a join an error.
func WithFailOnDrop(fail bool) Opt {
	return func(b *Builder) error {
		b.failOnDrop = fail
		return nil
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(b *Builder) error {
		if logger == nil {
			return fmt.Errorf("nil logger")
		}

		b.logger = logger
		return nil
	}
}

func NewBuilder(opts ...Opt) (*Builder, error) {
	b := &Builder{
		mode:    schema.Keyed,
		backend: BackendSQL,
		table:   Fact,
		logger:  logging.Discard(),
	}

	for _, opt := range opts {
		if e := opt(b); e != nil {
			return nil, e
		}
	}

	return b, nil
}

func (b *Builder) Backend() Backend {
	return b.backend
}

func (b *Builder) Mode() schema.KeyMode {
	return b.mode
}

func (b *Builder) Table() string {
	return b.table
}

// Load reads the source tables through the builder's backend. With BackendSQL nothing is read until the joins run.
func (b *Builder) Load(dlct *d.Dialect) (Sources, error) {
	src := make(Sources)
	for _, t := range schema.Sources(b.mode) {
		qry := fmt.Sprintf("SELECT * FROM %s", dlct.Ident(t.Name))

		var (
			df d.DF
			e  error
		)
		switch b.backend {
		case BackendMem:
			df, e = m.DBLoad(qry, dlct)
		default:
			df, e = s.DBload(qry, dlct)
		}

		if e != nil {
			return nil, fmt.Errorf("load %s: %w", t.Name, e)
		}

		src[t.Name] = df
	}

	return src, nil
}

// Run joins src into the fact table. It writes nothing. The output is sorted by OrderKeys.
func (b *Builder) Run(src Sources) (*Result, error) {
	rpt := &Report{
		RunID:   uuid.New(),
		Mode:    b.mode,
		Backend: b.backend,
		Table:   b.table,
		Started: time.Now(),
	}

	log := b.logger.With("run_id", rpt.RunID.String())
	if b.mode == schema.Positional {
		log.Warn("positional mode joins tables on generated ids and is only correct if every table was loaded in the same row order")
	}

	plan := Plan(b.mode)
	if e := checkPlan(plan, src); e != nil {
		return nil, e
	}

	rels := make(map[string]d.DF)
	for nm, df := range src {
		rels[nm] = df
	}

	res := &Result{Stages: make(map[string]d.DF), Report: rpt}
	for _, st := range plan {
		out, stats, e := rels[st.Left].Join(rels[st.Right], st.LeftKey, st.RightKey, st.Keep...)
		if e != nil {
			return nil, fmt.Errorf("stage %s: %w", st.Name, e)
		}

		rpt.Stages = append(rpt.Stages, StageReport{Stage: st.Name, Left: st.Left, Right: st.Right, JoinStats: *stats})
		log.Info("stage joined", "stage", st.Name, "left", st.Left, "right", st.Right,
			"left_rows", stats.LeftRows, "right_rows", stats.RightRows, "rows", stats.Rows)

		if stats.Dropped() > 0 {
			log.Warn("rows dropped by inner join", "stage", st.Name,
				"left_dropped", stats.LeftDropped, "right_dropped", stats.RightDropped)

			if b.failOnDrop {
				return nil, fmt.Errorf("%w: stage %s dropped %d rows of %s and %d rows of %s",
					d.ErrUnmatched, st.Name, stats.LeftDropped, st.Left, stats.RightDropped, st.Right)
			}
		}

		rels[st.Name] = out
		res.Stages[st.Name] = out
	}

	res.Fact = rels[Fact]
	if e := res.Fact.Sort(true, OrderKeys(b.mode)...); e != nil {
		return nil, e
	}

	var e error
	if rpt.Rows, e = res.Fact.RowCount(); e != nil {
		return nil, e
	}

	rpt.Elapsed = time.Since(rpt.Started)
	log.Info("fact table built", "table", b.table, "rows", rpt.Rows, "dropped", rpt.Dropped(), "elapsed", rpt.Elapsed)

	return res, nil
}

// Materialize validates the source tables, runs the build and replaces the output table, all in one transaction.
// On failure the prior output is left as it was.
// ClickHouse has no transactions: there the output is swapped in by the final rename and staging tables are dropped on failure.
func (b *Builder) Materialize(ctx context.Context, dlct *d.Dialect) (*Report, error) {
	var (
		rpt    *Report
		staged []string
	)

	e := dlct.Tx(ctx, func(tx *d.Dialect) error {
		if e := schema.Validate(tx, Required(b.mode)...); e != nil {
			return e
		}

		var (
			src Sources
			res *Result
			e   error
		)
		if src, e = b.Load(tx); e != nil {
			return e
		}

		if res, e = b.Run(src); e != nil {
			return e
		}

		outputs := []string{b.table}
		tables := map[string]d.DF{b.table: res.Fact}
		if b.intermediates {
			for _, st := range []string{Summary1, Summary2, Complete} {
				outputs = append(outputs, st)
				tables[st] = res.Stages[st]
			}
		}

		for _, out := range outputs {
			staging := out + StagingSuffix
			staged = append(staged, staging)
			if e := tx.Save(staging, orderKey(tables[out]), true, tables[out]); e != nil {
				return fmt.Errorf("save %s: %w", staging, e)
			}
		}

		for _, out := range outputs {
			if e := tx.Replace(out+StagingSuffix, out); e != nil {
				return fmt.Errorf("replace %s: %w", out, e)
			}
		}

		rpt = res.Report
		b.logger.Info("output replaced", "run_id", rpt.RunID.String(), "tables", strings.Join(outputs, ","))

		return nil
	})

	if e != nil {
		if !dlct.Transactional() {
			for _, st := range staged {
				_ = dlct.WithContext(ctx).DropTable(st)
			}
		}

		return nil, e
	}

	return rpt, nil
}

// orderKey picks the sort key ClickHouse tables are created with.
func orderKey(df d.DF) string {
	for _, k := range []string{schema.IncidentKey, "incident_id", "victim_id"} {
		if df.HasColumns(k) {
			return k
		}
	}

	return ""
}
