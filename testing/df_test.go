package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	d "github.com/invertedv/factdf"
	"github.com/invertedv/factdf/build"
	"github.com/invertedv/factdf/schema"
)

const nIncidents = 60

func TestBackendsAgree(t *testing.T) {
	for _, mode := range modes() {
		dlct := newDB(t.TempDir())
		loadData(dlct, mode, makeIncidents(nIncidents, 1, mode == schema.Keyed))

		var results [][][]any
		for _, which := range pkgs() {
			rpt, fact := buildFact(dlct, build.WithMode(mode), build.WithBackend(which))
			assert.Equal(t, nIncidents, rpt.Rows)
			assert.Len(t, fact, nIncidents)
			assert.Len(t, fact[0], len(build.FactColumns(mode)))

			results = append(results, fact)
		}

		assert.Equal(t, results[0], results[1], mode)
		_ = dlct.Close()
	}
}

func TestIdempotent(t *testing.T) {
	dlct := newDB(t.TempDir())
	defer func() { _ = dlct.Close() }()

	loadData(dlct, schema.Keyed, makeIncidents(nIncidents, 2, true))

	for _, which := range pkgs() {
		_, first := buildFact(dlct, build.WithBackend(which), build.WithIntermediates(true))
		_, second := buildFact(dlct, build.WithBackend(which), build.WithIntermediates(true))
		assert.Equal(t, first, second)
	}
}

func TestOrdered(t *testing.T) {
	dlct := newDB(t.TempDir())
	defer func() { _ = dlct.Close() }()

	loadData(dlct, schema.Keyed, makeIncidents(nIncidents, 3, true))

	for _, which := range pkgs() {
		_, fact := buildFact(dlct, build.WithBackend(which))
		for ind := 1; ind < len(fact); ind++ {
			assert.Less(t, fact[ind-1][0].(int), fact[ind][0].(int))
		}
	}
}

// Rows of the fact table are one per matched incident: an orphan adds nothing, a complete incident adds one row.
func TestMonotonic(t *testing.T) {
	for _, which := range pkgs() {
		dlct := newDB(t.TempDir())
		data := makeIncidents(nIncidents, 4, true)
		loadData(dlct, schema.Keyed, data)

		rpt, _ := buildFact(dlct, build.WithBackend(which))
		assert.Equal(t, nIncidents, rpt.Rows)
		assert.Equal(t, 0, rpt.Dropped())

		orphan := nIncidents + 1
		data.add("victim", orphan, "orphan", "40", "M", "B")
		loadData(dlct, schema.Keyed, data)

		rpt, _ = buildFact(dlct, build.WithBackend(which))
		assert.Equal(t, nIncidents, rpt.Rows)
		assert.Equal(t, 1, rpt.Dropped())
		assert.Equal(t, 1, rpt.Stages[0].LeftDropped)

		data.add("date", orphan, "June", "1", "2024")
		data.add("location", orphan, nil, nil, nil, nil, nil)
		data.add("incident_facts", orphan, nil, nil, nil)
		data.add("population_facts", orphan, nil, nil, nil, nil, nil, nil, nil, nil, nil)
		loadData(dlct, schema.Keyed, data)

		rpt, fact := buildFact(dlct, build.WithBackend(which))
		assert.Equal(t, nIncidents+1, rpt.Rows)
		assert.Equal(t, 0, rpt.Dropped())
		assert.Equal(t, orphan, fact[len(fact)-1][0])
		assert.Equal(t, "orphan", fact[len(fact)-1][2])
		_ = dlct.Close()
	}
}

// Loading the tables in different orders changes positional output but not keyed output.
func TestKeyOrder(t *testing.T) {
	nameCity := func(fact [][]any, mode schema.KeyMode) map[any]any {
		cols := build.FactColumns(mode)
		name, city := d.Position("name", cols), d.Position("city", cols)

		out := make(map[any]any)
		for _, r := range fact {
			out[r[name]] = r[city]
		}

		return out
	}

	dlct := newDB(t.TempDir())
	defer func() { _ = dlct.Close() }()

	loadData(dlct, schema.Keyed, makeIncidents(nIncidents, 5, true))
	_, keyed := buildFact(dlct)
	for nm, city := range nameCity(keyed, schema.Keyed) {
		assert.Equal(t, nm.(string)[len("name"):], city.(string)[len("city"):])
	}

	loadData(dlct, schema.Positional, makeIncidents(nIncidents, 5, true))
	_, positional := buildFact(dlct, build.WithMode(schema.Positional))
	assert.Len(t, positional, nIncidents)

	mismatched := 0
	for nm, city := range nameCity(positional, schema.Positional) {
		if nm.(string)[len("name"):] != city.(string)[len("city"):] {
			mismatched++
		}
	}
	assert.Greater(t, mismatched, 0)
}

func TestFailedBuildKeepsOutput(t *testing.T) {
	for _, which := range pkgs() {
		dlct := newDB(t.TempDir())
		data := makeIncidents(nIncidents, 6, true)
		loadData(dlct, schema.Keyed, data)

		_, before := buildFact(dlct, build.WithBackend(which))

		data.add("date", nIncidents+7, "May", "1", "2024")
		loadData(dlct, schema.Keyed, data)

		b, _ := build.NewBuilder(build.WithBackend(which), build.WithFailOnDrop(true))
		_, e := b.Materialize(context.Background(), dlct)
		assert.True(t, errors.Is(e, d.ErrUnmatched))

		// loadData recreated the source tables but the fact table is untouched
		assert.Equal(t, before, readTable(dlct, build.Fact))
		_ = dlct.Close()
	}
}
