package mem

import (
	"fmt"
	"io"
	"sort"
	"strings"

	d "github.com/invertedv/factdf"
)

// DF is an in-memory relation. All columns are *Col of equal length.
type DF struct {
	sourceQuery string
	orderBy     []string

	row int // Iter position

	*d.DFcore
}

// ***************** DF - Create *****************

func NewDFcol(cols []*Col, opts ...d.DFopt) (*DF, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns in NewDFcol")
	}

	var cc []d.Column
	n := cols[0].Len()
	for ind := 0; ind < len(cols); ind++ {
		if cols[ind].Len() != n {
			return nil, fmt.Errorf("columns %s and %s differ in length", cols[0].Name(), cols[ind].Name())
		}

		cc = append(cc, cols[ind])
	}

	var (
		dfc *d.DFcore
		e   error
	)
	if dfc, e = d.NewDF(cc); e != nil {
		return nil, e
	}

	df := &DF{DFcore: dfc}

	for _, opt := range opts {
		if ex := opt(df); ex != nil {
			return nil, ex
		}
	}

	return df, nil
}

// DBLoad runs qry and holds the result in memory.
func DBLoad(qry string, dlct *d.Dialect) (*DF, error) {
	var (
		columnNames []string
		columnTypes []d.DataTypes
		memData     []*d.Vector
		e           error
	)

	if memData, columnNames, columnTypes, e = dlct.Load(qry); e != nil {
		return nil, e
	}

	var cols []*Col
	for ind := 0; ind < len(memData); ind++ {
		var col *Col
		if col, e = NewCol(memData[ind], columnTypes[ind], d.ColName(columnNames[ind]), d.ColDialect(dlct)); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	var df *DF
	if df, e = NewDFcol(cols, d.DFdialect(dlct)); e != nil {
		return nil, e
	}

	df.sourceQuery = qry

	return df, nil
}

// FileLoad reads an open file. Columns listed in fields get that field's type; the rest are strings.
func FileLoad(f *d.Files, fields ...d.Field) (*DF, error) {
	if f.FieldNames == nil {
		return nil, fmt.Errorf("file %s has no field names", f.FileName())
	}

	var rows [][]any
	for {
		row, e := f.ReadLine()
		if e == io.EOF {
			break
		}

		if e != nil {
			return nil, e
		}

		rows = append(rows, row)
	}

	var cols []*Col
	for c, fn := range f.FieldNames {
		dt := d.DTstring
		for _, fld := range fields {
			if fld.Name == fn {
				dt = fld.DT
			}
		}

		var (
			v *d.Vector
			e error
		)
		if v, e = d.MakeVector(dt, len(rows)); e != nil {
			return nil, e
		}

		for r := 0; r < len(rows); r++ {
			if ex := v.Set(rows[r][c], r); ex != nil {
				return nil, fmt.Errorf("%s: field %s data row %d: %w", f.FileName(), fn, r+1, ex)
			}
		}

		var col *Col
		if col, e = NewCol(v, dt, d.ColName(fn)); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return NewDFcol(cols)
}

// ***************** DF - Methods *****************

func (f *DF) AppendColumn(col d.Column, replace bool) error {
	var (
		c  *Col
		ok bool
	)
	if c, ok = col.(*Col); !ok {
		return fmt.Errorf("AppendColumn: column %s is not a mem column", col.Name())
	}

	if n := f.RowCountMem(); c.Len() != n {
		return fmt.Errorf("AppendColumn: column %s has %d rows, expected %d", c.Name(), c.Len(), n)
	}

	return f.Core().AppendColumn(col, replace)
}

func (f *DF) Copy() d.DF {
	dfNew := &DF{
		sourceQuery: f.sourceQuery,
		orderBy:     append([]string{}, f.orderBy...),
		DFcore:      f.Core().Copy(),
	}

	return dfNew
}

// Iter returns the rows in order. A null element is returned as nil. Iter returns io.EOF after the last row.
func (f *DF) Iter(reset bool) (row []any, err error) {
	if reset {
		f.row = 0
	}

	if f.row >= f.RowCountMem() {
		return nil, io.EOF
	}

	for c := f.First(); c != nil; c = f.Next() {
		row = append(row, c.(*Col).Element(f.row))
	}

	f.row++

	return row, nil
}

// Join is an inner equi-join of f and right on leftKey = rightKey.
// Rows come out in the order of f; a left row with several partners is repeated in the order of right.
// Null keys never match.
func (f *DF) Join(right d.DF, leftKey, rightKey string, keep ...string) (d.DF, *d.JoinStats, error) {
	var (
		r  *DF
		ok bool
	)
	if r, ok = right.(*DF); !ok {
		return nil, nil, fmt.Errorf("mem Join: right side must be a mem DF")
	}

	if e := d.CheckJoinKeys(f, r, leftKey, rightKey); e != nil {
		return nil, nil, e
	}

	var (
		names    []string
		fromLeft []bool
		e        error
	)
	if names, fromLeft, e = d.JoinColumns(f, r, keep...); e != nil {
		return nil, nil, e
	}

	lv := f.Column(leftKey).(*Col).Data()
	rv := r.Column(rightKey).(*Col).Data()

	index := make(map[any][]int)
	for ind := 0; ind < rv.Len(); ind++ {
		if k := rv.Element(ind); k != nil {
			index[k] = append(index[k], ind)
		}
	}

	stats := &d.JoinStats{LeftRows: lv.Len(), RightRows: rv.Len()}
	rightHit := make([]bool, rv.Len())
	var leftRows, rightRows []int
	for ind := 0; ind < lv.Len(); ind++ {
		var matches []int
		if k := lv.Element(ind); k != nil {
			matches = index[k]
		}

		if len(matches) == 0 {
			stats.LeftDropped++
			continue
		}

		for _, rInd := range matches {
			leftRows = append(leftRows, ind)
			rightRows = append(rightRows, rInd)
			rightHit[rInd] = true
		}
	}

	for _, hit := range rightHit {
		if !hit {
			stats.RightDropped++
		}
	}

	stats.Rows = len(leftRows)

	var cols []*Col
	for ind, nm := range names {
		side, rows := r.Column(nm), rightRows
		if fromLeft[ind] {
			side, rows = f.Column(nm), leftRows
		}

		src := side.(*Col)

		var col *Col
		if col, e = NewCol(src.Data().Subset(rows), src.DataType(), d.ColName(nm), d.ColDialect(f.Dialect())); e != nil {
			return nil, nil, e
		}

		cols = append(cols, col)
	}

	var out *DF
	if out, e = NewDFcol(cols, d.DFdialect(f.Dialect())); e != nil {
		return nil, nil, e
	}

	return out, stats, nil
}

// MakeQuery returns "": the data is not in a database.
func (f *DF) MakeQuery(colNames ...string) string {
	return ""
}

func (f *DF) RowCount() (int, error) {
	return f.RowCountMem(), nil
}

// RowCountMem is RowCount without the error, which for a mem DF is always nil.
func (f *DF) RowCountMem() int {
	if c := f.First(); c != nil {
		return c.(*Col).Len()
	}

	return 0
}

// Sort reorders the rows by keys. The sort is stable, so rows equal on every key keep their order.
func (f *DF) Sort(ascending bool, keys ...string) error {
	var vs []*d.Vector
	for _, k := range keys {
		c := f.Column(k)
		if c == nil {
			return fmt.Errorf("%w: sort column %s not found", d.ErrStructural, k)
		}

		vs = append(vs, c.(*Col).Data())
	}

	rows := make([]int, f.RowCountMem())
	for ind := range rows {
		rows[ind] = ind
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, v := range vs {
			a, b := rows[i], rows[j]
			if !ascending {
				a, b = b, a
			}

			if v.Less(a, b) {
				return true
			}

			if v.Less(b, a) {
				return false
			}
		}

		return false
	})

	for c := f.First(); c != nil; c = f.Next() {
		col := c.(*Col)
		col.Vector = col.Data().Subset(rows)
	}

	f.orderBy = keys

	return nil
}

func (f *DF) SourceQuery() string {
	return f.sourceQuery
}

func (f *DF) String() string {
	var sx string
	for c := f.First(); c != nil; c = f.Next() {
		sx += c.String() + "\n"
	}

	return sx
}

// Table counts the rows for each distinct combination of cols. The output has cols plus "count",
// sorted by count descending and then by cols.
func (f *DF) Table(cols ...string) (*DF, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns to Table")
	}

	if d.Has("count", cols) {
		return nil, fmt.Errorf("cannot make a table of a column named count")
	}

	var vs []*d.Vector
	for _, cn := range cols {
		c := f.Column(cn)
		if c == nil {
			return nil, fmt.Errorf("%w: column %s not found", d.ErrStructural, cn)
		}

		vs = append(vs, c.(*Col).Data())
	}

	// first row of each group, in order of appearance
	groups := make(map[string]int)
	var (
		firsts []int
		counts []int
	)
	for ind := 0; ind < f.RowCountMem(); ind++ {
		var key []string
		for _, v := range vs {
			s, ok := v.ElementString(ind)
			if !ok {
				s = "\x00null"
			}

			key = append(key, s)
		}

		k := strings.Join(key, "\x1f")
		if g, ok := groups[k]; ok {
			counts[g]++
			continue
		}

		groups[k] = len(firsts)
		firsts = append(firsts, ind)
		counts = append(counts, 1)
	}

	var outCols []*Col
	for ind, v := range vs {
		col, e := NewCol(v.Subset(firsts), v.VectorType(), d.ColName(cols[ind]))
		if e != nil {
			return nil, e
		}

		outCols = append(outCols, col)
	}

	countCol, e := NewCol(counts, d.DTint, d.ColName("count"))
	if e != nil {
		return nil, e
	}

	var out *DF
	if out, e = NewDFcol(append(outCols, countCol), d.DFdialect(f.Dialect())); e != nil {
		return nil, e
	}

	if e := out.Sort(true, cols...); e != nil {
		return nil, e
	}

	if e := out.Sort(false, "count"); e != nil {
		return nil, e
	}

	return out, nil
}
