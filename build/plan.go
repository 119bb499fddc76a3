package build

import (
	"fmt"

	d "github.com/invertedv/factdf"
	"github.com/invertedv/factdf/schema"
)

// Stage is one inner join of the build. Left and Right name either a source table or an earlier stage.
type Stage struct {
	Name     string
	Left     string
	Right    string
	LeftKey  string
	RightKey string

	// Keep lists the output columns in order. Columns present on both sides come from Left.
	Keep []string
}

// Stage names. The last stage produces the fact table.
const (
	Summary1 = "summary1"
	Summary2 = "summary2"
	Complete = "complete"
	Fact     = "fact_table"
)

var (
	summary1Cols = []string{"name", "age", "race", "city", "state"}
	summary2Cols = []string{"law_enforcement_agency", "cause", "armed", "share_white", "share_black", "share_hispanic",
		"poverty_rate", "unemployment_rate", "college_degree_rate"}
	dateCols = []string{"month", "year", "day"}
)

// Plan returns the stages that build the fact table, in execution order.
func Plan(mode schema.KeyMode) []Stage {
	// complete: summary1 and summary2 keyed by incident_id. victim_id equals incident_id on every row and is dropped.
	complete := append(append([]string{"incident_id"}, summary1Cols...), summary2Cols...)

	if mode == schema.Positional {
		return []Stage{
			{Name: Summary1, Left: schema.Victim.Name, Right: schema.Location.Name,
				LeftKey: "victim_id", RightKey: "location_id",
				Keep: append([]string{"victim_id"}, summary1Cols...)},
			{Name: Summary2, Left: schema.IncidentFacts.Name, Right: schema.PopulationFacts.Name,
				LeftKey: "incident_id", RightKey: "population_id",
				Keep: append([]string{"incident_id"}, summary2Cols...)},
			{Name: Complete, Left: Summary1, Right: Summary2,
				LeftKey: "victim_id", RightKey: "incident_id",
				Keep: complete},
			{Name: Fact, Left: Complete, Right: schema.Date.Name,
				LeftKey: "incident_id", RightKey: "date_id",
				Keep: append(append([]string{}, complete...), dateCols...)},
		}
	}

	k := schema.IncidentKey
	return []Stage{
		{Name: Summary1, Left: schema.Victim.Name, Right: schema.Location.Name,
			LeftKey: k, RightKey: k,
			Keep: append([]string{k, "victim_id"}, summary1Cols...)},
		{Name: Summary2, Left: schema.IncidentFacts.Name, Right: schema.PopulationFacts.Name,
			LeftKey: k, RightKey: k,
			Keep: append([]string{k, "incident_id"}, summary2Cols...)},
		{Name: Complete, Left: Summary1, Right: Summary2,
			LeftKey: k, RightKey: k,
			Keep: append([]string{k}, complete...)},
		{Name: Fact, Left: Complete, Right: schema.Date.Name,
			LeftKey: k, RightKey: k,
			Keep: append(append([]string{k}, complete...), dateCols...)},
	}
}

// OrderKeys are the columns the fact table is sorted by.
func OrderKeys(mode schema.KeyMode) []string {
	if mode == schema.Positional {
		return []string{"incident_id"}
	}

	return []string{schema.IncidentKey, "incident_id"}
}

// FactColumns returns the columns of the fact table in order.
func FactColumns(mode schema.KeyMode) []string {
	plan := Plan(mode)
	return append([]string{}, plan[len(plan)-1].Keep...)
}

// Required returns, for each source table, the columns the plan reads from it.
func Required(mode schema.KeyMode) []schema.Require {
	cols := make(map[string][]string)
	for _, t := range schema.Sources(mode) {
		cols[t.Name] = t.FieldNames()
	}

	need := make(map[string][]string)
	add := func(table, col string) {
		if _, source := cols[table]; !source {
			return
		}

		if !d.Has(col, need[table]) {
			need[table] = append(need[table], col)
		}
	}

	stageCols := make(map[string][]string)
	for _, st := range Plan(mode) {
		add(st.Left, st.LeftKey)
		add(st.Right, st.RightKey)

		left, ok := cols[st.Left]
		if !ok {
			left = stageCols[st.Left]
		}

		for _, c := range st.Keep {
			if d.Has(c, left) {
				add(st.Left, c)
				continue
			}

			add(st.Right, c)
		}

		stageCols[st.Name] = st.Keep
	}

	var reqs []schema.Require
	for _, t := range schema.Sources(mode) {
		if c, ok := need[t.Name]; ok {
			reqs = append(reqs, schema.Require{Table: t.Name, Columns: c})
		}
	}

	return reqs
}

// checkPlan verifies, before any join runs, that every key and output column resolves and the keys agree in type.
func checkPlan(plan []Stage, src Sources) error {
	types := make(map[string]map[string]d.DataTypes)
	for name, df := range src {
		types[name] = make(map[string]d.DataTypes)
		for c := df.First(); c != nil; c = df.Next() {
			types[name][c.Name()] = c.DataType()
		}
	}

	for _, st := range plan {
		for _, side := range []string{st.Left, st.Right} {
			if _, ok := types[side]; !ok {
				return fmt.Errorf("%w: stage %s: input %s not found", d.ErrStructural, st.Name, side)
			}
		}

		lt, rt := types[st.Left], types[st.Right]
		ldt, lok := lt[st.LeftKey]
		rdt, rok := rt[st.RightKey]
		switch {
		case !lok:
			return fmt.Errorf("%w: stage %s: %s has no column %s", d.ErrStructural, st.Name, st.Left, st.LeftKey)
		case !rok:
			return fmt.Errorf("%w: stage %s: %s has no column %s", d.ErrStructural, st.Name, st.Right, st.RightKey)
		case ldt != rdt:
			return fmt.Errorf("%w: stage %s: key %s.%s (%s) does not match %s.%s (%s)",
				d.ErrStructural, st.Name, st.Left, st.LeftKey, ldt, st.Right, st.RightKey, rdt)
		}

		out := make(map[string]d.DataTypes)
		for _, c := range st.Keep {
			if dt, ok := lt[c]; ok {
				out[c] = dt
				continue
			}

			if dt, ok := rt[c]; ok {
				out[c] = dt
				continue
			}

			return fmt.Errorf("%w: stage %s: column %s not found in %s or %s", d.ErrStructural, st.Name, c, st.Left, st.Right)
		}

		types[st.Name] = out
	}

	return nil
}
