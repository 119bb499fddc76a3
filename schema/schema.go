// Package schema defines the five source tables the fact table is built from.
package schema

import (
	"fmt"
	"sort"
	"strings"

	d "github.com/invertedv/factdf"
)

// KeyMode selects how rows of the source tables are matched to one another.
type KeyMode string

const (
	// Keyed joins every table on the explicit IncidentKey column.
	Keyed KeyMode = "keyed"

	// Positional joins tables on their generated ids, e.g. victim_id = location_id.
	// It relies on every table being loaded in the same row order.
	Positional KeyMode = "positional"
)

// IncidentKey is the shared foreign key carried by every source table in Keyed mode.
const IncidentKey = "incident_key"

func ParseMode(s string) (KeyMode, error) {
	switch m := KeyMode(strings.ToLower(strings.TrimSpace(s))); m {
	case Keyed, Positional:
		return m, nil
	case "":
		return Keyed, nil
	default:
		return "", fmt.Errorf("unknown key mode %q: must be %s or %s", s, Keyed, Positional)
	}
}

// Table is a source table definition.
type Table struct {
	Name   string
	Key    string // generated id
	Fields []d.Field
}

var (
	Victim = Table{
		Name: "victim",
		Key:  "victim_id",
		Fields: fields("victim_id",
			"name", "age", "gender", "race"),
	}

	Date = Table{
		Name: "date",
		Key:  "date_id",
		Fields: fields("date_id",
			"month", "day", "year"),
	}

	Location = Table{
		Name: "location",
		Key:  "location_id",
		Fields: fields("location_id",
			"street_address", "city", "state", "latitude", "longitude"),
	}

	IncidentFacts = Table{
		Name: "incident_facts",
		Key:  "incident_id",
		Fields: fields("incident_id",
			"law_enforcement_agency", "cause", "armed"),
	}

	PopulationFacts = Table{
		Name: "population_facts",
		Key:  "population_id",
		Fields: fields("population_id",
			"population_size", "share_white", "share_black", "share_hispanic", "median_personal_income",
			"median_household_income", "poverty_rate", "unemployment_rate", "college_degree_rate"),
	}
)

// fields returns an identity key followed by nullable text columns.
func fields(key string, cols ...string) []d.Field {
	flds := []d.Field{{Name: key, DT: d.DTint, Identity: true}}
	for _, c := range cols {
		flds = append(flds, d.Field{Name: c, DT: d.DTstring})
	}

	return flds
}

// Sources returns the five source tables as they are laid out in mode.
func Sources(mode KeyMode) []Table {
	var tabs []Table
	for _, t := range []Table{Victim, Date, Location, IncidentFacts, PopulationFacts} {
		tabs = append(tabs, t.in(mode))
	}

	return tabs
}

// Source returns the source table called name.
func Source(name string, mode KeyMode) (Table, error) {
	for _, t := range Sources(mode) {
		if t.Name == name {
			return t, nil
		}
	}

	return Table{}, fmt.Errorf("%w: %s is not a source table", d.ErrStructural, name)
}

// in returns t with the incident key appended in Keyed mode.
func (t Table) in(mode KeyMode) Table {
	flds := append([]d.Field{}, t.Fields...)
	if mode == Keyed {
		flds = append(flds, d.Field{Name: IncidentKey, DT: d.DTint})
	}

	return Table{Name: t.Name, Key: t.Key, Fields: flds}
}

func (t Table) FieldNames() []string {
	var names []string
	for _, f := range t.Fields {
		names = append(names, f.Name)
	}

	return names
}

// Field returns the definition of the column called name.
func (t Table) Field(name string) (d.Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return d.Field{}, false
}

// Create creates the table. An existing table is replaced if overwrite is true.
func (t Table) Create(dlct *d.Dialect, overwrite bool) error {
	if e := dlct.Create(t.Name, t.Key, t.Fields, overwrite); e != nil {
		return fmt.Errorf("create %s: %w", t.Name, e)
	}

	return nil
}

// CreateAll creates the five source tables for mode.
func CreateAll(dlct *d.Dialect, mode KeyMode, overwrite bool) error {
	for _, t := range Sources(mode) {
		if e := t.Create(dlct, overwrite); e != nil {
			return e
		}
	}

	return nil
}

// Require lists the columns a table must have.
type Require struct {
	Table   string
	Columns []string
}

// Validate checks that each table exists and has its required columns. It reads no rows.
func Validate(dlct *d.Dialect, reqs ...Require) error {
	reqs = append([]Require{}, reqs...)
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].Table < reqs[j].Table })

	for _, req := range reqs {
		var (
			exists bool
			cols   []string
			e      error
		)
		if exists, e = dlct.Exists(req.Table); e != nil {
			return e
		}

		if !exists {
			return fmt.Errorf("%w: table %s not found", d.ErrStructural, req.Table)
		}

		if cols, e = dlct.Columns(req.Table); e != nil {
			return e
		}

		for _, c := range req.Columns {
			if !d.Has(c, cols) {
				return fmt.Errorf("%w: table %s has no column %s", d.ErrStructural, req.Table, c)
			}
		}
	}

	return nil
}
