package mem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	d "github.com/invertedv/factdf"
)

func testDF(keys []any, colName string, vals []string) *DF {
	k, e := NewCol(keys, d.DTint, d.ColName("k"))
	if e != nil {
		panic(e)
	}

	v, e := NewCol(vals, d.DTstring, d.ColName(colName))
	if e != nil {
		panic(e)
	}

	df, e := NewDFcol([]*Col{k, v})
	if e != nil {
		panic(e)
	}

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

func TestDF_Join(t *testing.T) {
	left := testDF([]any{1, 2, 2, nil, 4}, "a", []string{"a", "b", "c", "d", "e"})
	right := testDF([]any{2, 1, 1, 5, nil}, "b", []string{"x", "y", "z", "w", "v"})

	out, stats, e := left.Join(right, "k", "k")
	assert.Nil(t, e)
	assert.Equal(t, []string{"k", "a", "b"}, out.ColumnNames())
	assert.Equal(t, [][]any{{1, "a", "y"}, {1, "a", "z"}, {2, "b", "x"}, {2, "c", "x"}}, rows(out))
	assert.Equal(t, d.JoinStats{LeftRows: 5, RightRows: 5, Rows: 4, LeftDropped: 2, RightDropped: 2}, *stats)

	// the inputs are untouched
	assert.Equal(t, 5, left.RowCountMem())
	assert.Equal(t, []string{"k", "a"}, left.ColumnNames())

	out, _, e = left.Join(right, "k", "k", "b", "k")
	assert.Nil(t, e)
	assert.Equal(t, []string{"b", "k"}, out.ColumnNames())

	_, _, e = left.Join(right, "a", "k")
	assert.True(t, errors.Is(e, d.ErrStructural))

	_, _, e = left.Join(right, "k", "k", "nope")
	assert.True(t, errors.Is(e, d.ErrStructural))
}

// Kept columns come from whichever side has them.
func TestDF_JoinOneSided(t *testing.T) {
	left := testDF([]any{1, 2}, "a", []string{"a1", "a2"})
	right := testDF([]any{2, 1}, "b", []string{"b2", "b1"})

	var (
		out d.DF
		e   error
	)
	assert.NotPanics(t, func() { out, _, e = left.Join(right, "k", "k", "b", "a") })
	assert.Nil(t, e)
	assert.Equal(t, []string{"b", "a"}, out.ColumnNames())
	assert.Equal(t, [][]any{{"b1", "a1"}, {"b2", "a2"}}, rows(out))
}

func TestDF_JoinEmpty(t *testing.T) {
	left := testDF([]any{}, "a", []string{})
	right := testDF([]any{1}, "b", []string{"x"})

	out, stats, e := left.Join(right, "k", "k")
	assert.Nil(t, e)
	n, _ := out.RowCount()
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, stats.RightDropped)
	assert.Equal(t, 0, stats.LeftDropped)
}

func TestDF_JoinOnDifferentNames(t *testing.T) {
	left := testDF([]any{1, 2}, "a", []string{"a", "b"})
	id, _ := NewCol([]int{2, 1}, d.DTint, d.ColName("id"))
	v, _ := NewCol([]string{"two", "one"}, d.DTstring, d.ColName("v"))
	right, _ := NewDFcol([]*Col{id, v})

	out, stats, e := left.Join(right, "k", "id")
	assert.Nil(t, e)
	assert.Equal(t, []string{"k", "a", "id", "v"}, out.ColumnNames())
	assert.Equal(t, [][]any{{1, "a", 1, "one"}, {2, "b", 2, "two"}}, rows(out))
	assert.Equal(t, 0, stats.Dropped())
}

func TestDF_Sort(t *testing.T) {
	df := testDF([]any{2, nil, 1, 2, 1}, "a", []string{"b", "x", "z", "a", "y"})

	assert.Nil(t, df.Sort(true, "k"))
	assert.Equal(t, [][]any{{1, "z"}, {1, "y"}, {2, "b"}, {2, "a"}, {nil, "x"}}, rows(df))

	assert.Nil(t, df.Sort(true, "k", "a"))
	assert.Equal(t, [][]any{{1, "y"}, {1, "z"}, {2, "a"}, {2, "b"}, {nil, "x"}}, rows(df))

	assert.Nil(t, df.Sort(false, "a"))
	assert.Equal(t, []string{"z", "y", "x", "b", "a"}, df.Column("a").(*Col).AsAny())

	assert.True(t, errors.Is(df.Sort(true, "missing"), d.ErrStructural))
}

func TestDF_Iter(t *testing.T) {
	df := testDF([]any{1, nil}, "a", []string{"x", "y"})

	row, e := df.Iter(true)
	assert.Nil(t, e)
	assert.Equal(t, []any{1, "x"}, row)

	row, e = df.Iter(false)
	assert.Nil(t, e)
	assert.Equal(t, []any{nil, "y"}, row)

	_, e = df.Iter(false)
	assert.Equal(t, io.EOF, e)

	// reset starts over
	row, e = df.Iter(true)
	assert.Nil(t, e)
	assert.Equal(t, []any{1, "x"}, row)
}

func TestDF_AppendColumn(t *testing.T) {
	df := testDF([]any{1, 2}, "a", []string{"x", "y"})

	short, _ := NewCol([]int{1}, d.DTint, d.ColName("short"))
	assert.NotNil(t, df.AppendColumn(short, false))

	ok, _ := NewCol([]float64{1.5, 2.5}, d.DTfloat, d.ColName("f"))
	assert.Nil(t, df.AppendColumn(ok, false))
	assert.Equal(t, []string{"k", "a", "f"}, df.ColumnNames())

	_, e := NewDFcol([]*Col{short, ok})
	assert.NotNil(t, e)
}

func TestDF_Copy(t *testing.T) {
	df := testDF([]any{2, 1}, "a", []string{"x", "y"})
	cp := df.Copy()

	assert.Nil(t, cp.Sort(true, "k"))
	assert.Nil(t, cp.DropColumns("a"))
	assert.Equal(t, [][]any{{2, "x"}, {1, "y"}}, rows(df))
	assert.Equal(t, [][]any{{1}, {2}}, rows(cp))
	assert.Equal(t, "", cp.MakeQuery())
}

func TestDF_Table(t *testing.T) {
	c, _ := NewCol([]any{"x", "y", "x", nil, "x", "y", "z"}, d.DTstring, d.ColName("c"))
	df, _ := NewDFcol([]*Col{c})

	tab, e := df.Table("c")
	assert.Nil(t, e)
	assert.Equal(t, []string{"c", "count"}, tab.ColumnNames())
	assert.Equal(t, [][]any{{"x", 3}, {"y", 2}, {"z", 1}, {nil, 1}}, rows(tab))

	_, e = df.Table("missing")
	assert.True(t, errors.Is(e, d.ErrStructural))

	_, e = df.Table()
	assert.NotNil(t, e)
}

func TestCol_Summary(t *testing.T) {
	c, e := NewCol([]any{"10", "20", nil, "abc", "30", "40"}, d.DTstring, d.ColName("rate"))
	assert.Nil(t, e)

	s, e := c.Summary()
	assert.Nil(t, e)
	assert.Equal(t, &Summary{Min: 10, Q25: 10, Median: 20, Mean: 25, Q75: 30, Max: 40, N: 4, Missing: 2}, s)

	empty, _ := NewCol([]any{nil, "x"}, d.DTstring, d.ColName("e"))
	s, e = empty.Summary()
	assert.Nil(t, e)
	assert.Equal(t, 0, s.N)
	assert.Equal(t, 2, s.Missing)

	f, _ := NewCol([]float64{1, 2, 3}, d.DTfloat, d.ColName("f"))
	assert.Contains(t, f.String(), "median")
	assert.Contains(t, empty.String(), "NULL")
}

func TestFileLoad(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "victim.csv")
	assert.Nil(t, os.WriteFile(fileName, []byte("name,age,incident_key\nA,,7\nB,31,8\n"), 0o600))

	f := d.NewFiles()
	assert.Nil(t, f.Open(fileName))
	defer func() { _ = f.Close() }()

	df, e := FileLoad(f, d.Field{Name: "incident_key", DT: d.DTint})
	assert.Nil(t, e)

	dts, _ := df.ColumnTypes()
	assert.Equal(t, []d.DataTypes{d.DTstring, d.DTstring, d.DTint}, dts)
	assert.Equal(t, [][]any{{"A", nil, 7}, {"B", "31", 8}}, rows(df))
}

func TestFileLoad_BadValue(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "bad.csv")
	assert.Nil(t, os.WriteFile(fileName, []byte("incident_key\nseven\n"), 0o600))

	f := d.NewFiles()
	assert.Nil(t, f.Open(fileName))
	defer func() { _ = f.Close() }()

	_, e := FileLoad(f, d.Field{Name: "incident_key", DT: d.DTint})
	assert.NotNil(t, e)
}

func TestDBLoad(t *testing.T) {
	dlct, e := d.Connect("sqlite", filepath.Join(t.TempDir(), "mem.db"))
	assert.Nil(t, e)
	defer func() { _ = dlct.Close() }()

	df := testDF([]any{3, nil, 1}, "a", []string{"x", "y", "z"})
	assert.Nil(t, dlct.Save("t", "k", true, df))

	back, e := DBLoad(`SELECT * FROM "t" ORDER BY "a" DESC`, dlct)
	assert.Nil(t, e)
	assert.Equal(t, [][]any{{1, "z"}, {nil, "y"}, {3, "x"}}, rows(back))
	assert.Equal(t, dlct, back.Dialect())
	assert.Equal(t, `SELECT * FROM "t" ORDER BY "a" DESC`, back.SourceQuery())
}

func ExampleDF_Join() {
	victims := testDF([]any{10, 11, 12}, "name", []string{"A", "B", "C"})
	places := testDF([]any{12, 10}, "city", []string{"Z", "X"})

	out, stats, e := victims.Join(places, "k", "k")
	if e != nil {
		panic(e)
	}

	for _, r := range rows(out) {
		fmt.Println(r)
	}

	fmt.Println(stats)
	// Output:
	// [10 A X]
	// [12 C Z]
	// left 3 (dropped 1), right 2 (dropped 0), out 2
}
