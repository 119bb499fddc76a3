// Package load appends the rows of CSV and JSON files to the source tables.
package load

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	d "github.com/invertedv/factdf"
	m "github.com/invertedv/factdf/mem"
	"github.com/invertedv/factdf/schema"
)

// File appends fileName to table, choosing the reader by the file's extension (.csv or .json).
func File(dlct *d.Dialect, table schema.Table, fileName string) (int, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return CSV(dlct, table, d.NewFiles(), fileName)
	case ".json":
		f, e := os.Open(fileName)
		if e != nil {
			return 0, e
		}
		defer func() { _ = f.Close() }()

		return JSON(dlct, table, f)
	default:
		return 0, fmt.Errorf("cannot load %s: extension must be .csv or .json", fileName)
	}
}

// CSV appends the rows of a delimited file to table. Every header field must be a column of table.
// Columns the file omits are left to the database (generated ids) or stored as NULL.
func CSV(dlct *d.Dialect, table schema.Table, f *d.Files, fileName string) (int, error) {
	if e := f.Open(fileName); e != nil {
		return 0, e
	}
	defer func() { _ = f.Close() }()

	if e := checkFields(dlct, table, f.FieldNames); e != nil {
		return 0, fmt.Errorf("%s: %w", fileName, e)
	}

	var (
		df *m.DF
		e  error
	)
	if df, e = m.FileLoad(f, table.Fields...); e != nil {
		return 0, e
	}

	return save(dlct, table, df)
}

// JSON appends an array of objects to table. Object keys must be columns of table.
func JSON(dlct *d.Dialect, table schema.Table, r io.Reader) (int, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var recs []map[string]any
	if e := dec.Decode(&recs); e != nil {
		return 0, fmt.Errorf("decode %s records: %w", table.Name, e)
	}

	// columns in table order, limited to the keys present in the data
	var names []string
	for _, fn := range table.FieldNames() {
		for _, rec := range recs {
			if _, ok := rec[fn]; ok {
				names = append(names, fn)
				break
			}
		}
	}

	for ind, rec := range recs {
		for k := range rec {
			if _, ok := table.Field(k); !ok {
				return 0, fmt.Errorf("%w: record %d: %s has no column %s", d.ErrStructural, ind, table.Name, k)
			}
		}
	}

	if len(recs) == 0 {
		return 0, nil
	}

	if e := checkFields(dlct, table, names); e != nil {
		return 0, e
	}

	var cols []*m.Col
	for _, nm := range names {
		fld, _ := table.Field(nm)
		v, e := d.MakeVector(fld.DT, len(recs))
		if e != nil {
			return 0, e
		}

		for r, rec := range recs {
			val := rec[nm]
			if num, ok := val.(json.Number); ok {
				val = num.String()
			}

			if ex := v.Set(val, r); ex != nil {
				return 0, fmt.Errorf("record %d field %s: %w", r, nm, ex)
			}
		}

		col, e := m.NewCol(v, fld.DT, d.ColName(nm))
		if e != nil {
			return 0, e
		}

		cols = append(cols, col)
	}

	df, e := m.NewDFcol(cols)
	if e != nil {
		return 0, e
	}

	return save(dlct, table, df)
}

func checkFields(dlct *d.Dialect, table schema.Table, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("%w: no columns of %s in input", d.ErrStructural, table.Name)
	}

	for _, nm := range names {
		if _, ok := table.Field(nm); !ok {
			return fmt.Errorf("%w: %s has no column %s", d.ErrStructural, table.Name, nm)
		}
	}

	// ClickHouse does not generate ids
	if dlct.DialectName() == "clickhouse" && !d.Has(table.Key, names) {
		return fmt.Errorf("%w: %s requires column %s on %s", d.ErrStructural, table.Name, table.Key, dlct.DialectName())
	}

	return nil
}

func save(dlct *d.Dialect, table schema.Table, df *m.DF) (int, error) {
	n := df.RowCountMem()
	if n == 0 {
		return 0, nil
	}

	if e := dlct.Append(table.Name, df); e != nil {
		return 0, fmt.Errorf("append to %s: %w", table.Name, e)
	}

	return n, nil
}
