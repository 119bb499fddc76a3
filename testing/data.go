package testing

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"

	d "github.com/invertedv/factdf"
	"github.com/invertedv/factdf/build"
	m "github.com/invertedv/factdf/mem"
	"github.com/invertedv/factdf/schema"
)

// environment variables:
//   - dialect: database to test against (sqlite if not set)
//   - dsn: connection string for dialect. With sqlite and no dsn, a file in a temp directory is used.

// list of backends to test
func pkgs() []build.Backend {
	return []build.Backend{build.BackendSQL, build.BackendMem}
}

func modes() []schema.KeyMode {
	return []schema.KeyMode{schema.Keyed, schema.Positional}
}

// newDB connects to the test database. dir holds the sqlite file when no dsn is given.
func newDB(dir string) *d.Dialect {
	dialect, dsn := os.Getenv("dialect"), os.Getenv("dsn")
	if dialect == "" {
		dialect = "sqlite"
	}

	if dsn == "" {
		dsn = filepath.Join(dir, "factdf_test.db")
	}

	dlct, e := d.Connect(dialect, dsn)
	if e != nil {
		panic(e)
	}

	return dlct
}

// incidents is test data for the source tables: the rows of each table as values for its non-identity fields.
type incidents map[string][][]any

// makeIncidents generates n incidents. Every fifth incident has no poverty rate.
// With shuffle, the rows of every table but incident_facts are put in a random order.
func makeIncidents(n int, seed uint64, shuffle bool) incidents {
	rng := rand.New(rand.NewPCG(seed, seed+1))

	data := make(incidents)
	for k := 1; k <= n; k++ {
		poverty := any(fmt.Sprintf("%.1f", rng.Float64()*40))
		if k%5 == 0 {
			poverty = nil
		}

		data.add("victim", k, fmt.Sprintf("name%d", k), fmt.Sprint(18+rng.IntN(60)), "F", "W")
		data.add("date", k, "January", fmt.Sprint(1+rng.IntN(28)), fmt.Sprint(2015+rng.IntN(10)))
		data.add("location", k, fmt.Sprintf("%d Main", k), fmt.Sprintf("city%d", k), "TX", "30.1", "-97.7")
		data.add("incident_facts", k, "PD", fmt.Sprintf("cause%d", rng.IntN(4)), "No")
		data.add("population_facts", k, "1000", "50", "20", "20", "40000", "50000", poverty, "5", "30")
	}

	if shuffle {
		for table, rows := range data {
			if table == "incident_facts" {
				continue
			}

			rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		}
	}

	return data
}

// add appends a row to table. The incident key goes last, matching the field order of the keyed tables.
func (inc incidents) add(table string, key int, vals ...any) {
	inc[table] = append(inc[table], append(vals, key))
}

// loadData creates the source tables for mode and inserts data. In positional mode the incident key is left out.
func loadData(dlct *d.Dialect, mode schema.KeyMode, data incidents) {
	if e := schema.CreateAll(dlct, mode, true); e != nil {
		panic(e)
	}

	for _, tab := range schema.Sources(mode) {
		var fields []string
		for _, f := range tab.Fields {
			if !f.Identity {
				fields = append(fields, f.Name)
			}
		}

		var rows [][]any
		for _, r := range data[tab.Name] {
			rows = append(rows, r[:len(fields)])
		}

		for start := 0; start < len(rows); start += dlct.BatchSize() {
			end := min(start+dlct.BatchSize(), len(rows))
			if e := dlct.InsertValues(tab.Name, fields, rows[start:end]); e != nil {
				panic(e)
			}
		}
	}
}

// buildFact materializes the fact table with the given options and reads it back in table order.
func buildFact(dlct *d.Dialect, opts ...build.Opt) (*build.Report, [][]any) {
	b, e := build.NewBuilder(opts...)
	if e != nil {
		panic(e)
	}

	var rpt *build.Report
	if rpt, e = b.Materialize(context.Background(), dlct); e != nil {
		panic(e)
	}

	return rpt, readTable(dlct, b.Table())
}

func readTable(dlct *d.Dialect, table string) [][]any {
	df, e := m.DBLoad("SELECT * FROM "+dlct.Ident(table), dlct)
	if e != nil {
		panic(e)
	}

	var out [][]any
	row, e := df.Iter(true)
	for ; e == nil; row, e = df.Iter(false) {
		out = append(out, row)
	}

	if e != io.EOF {
		panic(e)
	}

	return out
}
