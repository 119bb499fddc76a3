package sql

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	d "github.com/invertedv/factdf"
)

func newDB(t *testing.T) *d.Dialect {
	t.Helper()

	dlct, e := d.Connect("sqlite", filepath.Join(t.TempDir(), "sql.db"))
	assert.Nil(t, e)
	t.Cleanup(func() { _ = dlct.Close() })

	return dlct
}

// table creates a table of an int key k and a string column, filled with keys and vals.
func table(t *testing.T, dlct *d.Dialect, name, colName string, keys []any, vals []any) *DF {
	t.Helper()

	flds := []d.Field{{Name: "k", DT: d.DTint}, {Name: colName, DT: d.DTstring}}
	assert.Nil(t, dlct.Create(name, "k", flds, true))

	var rs [][]any
	for ind := range keys {
		rs = append(rs, []any{keys[ind], vals[ind]})
	}
	assert.Nil(t, dlct.InsertValues(name, []string{"k", colName}, rs))

	df, e := DBload("SELECT * FROM "+dlct.Ident(name), dlct)
	assert.Nil(t, e)

	return df
}

func rows(df d.DF) [][]any {
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

func TestDBload(t *testing.T) {
	dlct := newDB(t)
	df := table(t, dlct, "t", "a", []any{1, nil}, []any{"x", "y"})

	assert.Equal(t, []string{"k", "a"}, df.ColumnNames())
	dts, e := df.ColumnTypes()
	assert.Nil(t, e)
	assert.Equal(t, []d.DataTypes{d.DTint, d.DTstring}, dts)
	assert.Equal(t, `SELECT * FROM "t"`, df.SourceSQL())

	n, e := df.RowCount()
	assert.Nil(t, e)
	assert.Equal(t, 2, n)

	_, e = DBload(`SELECT * FROM "missing"`, dlct)
	assert.NotNil(t, e)
}

func TestDF_Iter(t *testing.T) {
	dlct := newDB(t)
	df := table(t, dlct, "t", "a", []any{2, nil, 1}, []any{"x", "y", nil})

	assert.Nil(t, df.Sort(true, "k"))
	assert.Equal(t, [][]any{{nil, "y"}, {1, nil}, {2, "x"}}, rows(df))

	_, e := df.Iter(false)
	assert.NotNil(t, e)
}

func TestDF_Join(t *testing.T) {
	dlct := newDB(t)
	left := table(t, dlct, "l", "a", []any{1, 2, 2, nil, 4}, []any{"a", "b", "c", "d", "e"})
	right := table(t, dlct, "r", "b", []any{2, 1, 1, 5, nil}, []any{"x", "y", "z", "w", "v"})

	out, stats, e := left.Join(right, "k", "k")
	assert.Nil(t, e)
	assert.Equal(t, []string{"k", "a", "b"}, out.ColumnNames())
	assert.Equal(t, d.JoinStats{LeftRows: 5, RightRows: 5, Rows: 4, LeftDropped: 2, RightDropped: 2}, *stats)

	assert.Nil(t, out.Sort(true, "k", "a", "b"))
	assert.Equal(t, [][]any{{1, "a", "y"}, {1, "a", "z"}, {2, "b", "x"}, {2, "c", "x"}}, rows(out))

	// joins chain: the output is itself a query
	third := table(t, dlct, "third", "c", []any{2}, []any{"only"})
	chained, stats, e := out.Join(third, "k", "k", "c", "a")
	assert.Nil(t, e)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 2, stats.LeftDropped)

	assert.Nil(t, chained.Sort(false, "a"))
	assert.Equal(t, [][]any{{"only", "c"}, {"only", "b"}}, rows(chained))

	_, _, e = left.Join(right, "a", "k")
	assert.True(t, errors.Is(e, d.ErrStructural))

	other := newDB(t)
	elsewhere := table(t, other, "r", "b", []any{1}, []any{"x"})
	_, _, e = left.Join(elsewhere, "k", "k")
	assert.NotNil(t, e)
}

func TestDF_Save(t *testing.T) {
	dlct := newDB(t)
	left := table(t, dlct, "l", "a", []any{2, 1}, []any{"b", "a"})
	right := table(t, dlct, "r", "b", []any{1, 2}, []any{"y", "x"})

	out, _, e := left.Join(right, "k", "k", "k", "b")
	assert.Nil(t, e)
	assert.Nil(t, out.Sort(true, "k"))

	assert.Nil(t, dlct.Save("joined", "k", true, out))

	back, e := DBload(`SELECT * FROM "joined"`, dlct)
	assert.Nil(t, e)
	assert.Equal(t, []string{"k", "b"}, back.ColumnNames())
	assert.Equal(t, [][]any{{1, "y"}, {2, "x"}}, rows(back))
}

func TestDF_Copy(t *testing.T) {
	dlct := newDB(t)
	df := table(t, dlct, "t", "a", []any{2, 1}, []any{"x", "y"})

	cp := df.Copy()
	assert.Nil(t, cp.DropColumns("a"))
	assert.Nil(t, cp.Sort(false, "k"))

	assert.Equal(t, []string{"k", "a"}, df.ColumnNames())
	assert.Equal(t, [][]any{{2}, {1}}, rows(cp))
	assert.Contains(t, cp.MakeQuery(), `ORDER BY "k" DESC`)
	assert.NotContains(t, df.MakeQuery(), "ORDER BY")

	assert.True(t, errors.Is(df.Sort(true, "missing"), d.ErrStructural))
}

func TestDF_MakeQuery(t *testing.T) {
	dlct := newDB(t)
	df := table(t, dlct, "t", "a", []any{2, 1}, []any{"x", "y"})

	qry := df.MakeQuery("a")
	assert.Contains(t, qry, `SELECT "a" FROM`)

	assert.False(t, df.HasColumns("a", "missing"))
	assert.Panics(t, func() { df.MakeQuery("a", "missing") })
}

func TestNewColSQL(t *testing.T) {
	dlct := newDB(t)
	df := table(t, dlct, "t", "a", []any{2, 1}, []any{"x", "y"})

	c, e := NewColSQL(d.DTint, dlct, `"k" * 10`, d.ColName("k10"))
	assert.Nil(t, e)
	assert.Nil(t, df.AppendColumn(c, false))
	assert.Nil(t, df.Sort(true, "k"))
	assert.Equal(t, [][]any{{1, "y", 10}, {2, "x", 20}}, rows(df))
	assert.Contains(t, c.String(), `"k" * 10`)
}
