package sql

import (
	"database/sql"
	"fmt"
	"io"
	"strings"

	d "github.com/invertedv/factdf"
)

// DF is a relation held as a query. Nothing is read until Iter, RowCount or a save.
type DF struct {
	sourceSQL string // the query the columns select from
	orderBy   string

	*d.DFcore

	rows *sql.Rows
	row  []any
}

// ***************** DF - Create *****************

// DBload creates a DF whose source is query. The column types are read from the database.
func DBload(query string, dlct *d.Dialect) (*DF, error) {
	var (
		e        error
		colTypes []d.DataTypes
		colNames []string
		cols     []*Col
	)

	if colNames, colTypes, e = dlct.Types(query); e != nil {
		return nil, e
	}

	for ind := 0; ind < len(colTypes); ind++ {
		// the driver reports no type for computed columns
		dt := colTypes[ind]
		if dt == d.DTunknown {
			dt = d.DTstring
		}

		var col *Col
		if col, e = NewColSQL(dt, dlct, "", d.ColName(colNames[ind])); e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return NewDFcol(dlct, query, cols...)
}

// NewDFcol creates a DF of cols over sourceSQL.
func NewDFcol(dlct *d.Dialect, sourceSQL string, cols ...*Col) (*DF, error) {
	if dlct == nil {
		return nil, fmt.Errorf("sql DF needs a dialect")
	}

	var cc []d.Column
	for _, c := range cols {
		cc = append(cc, c)
	}

	var (
		tmp *d.DFcore
		e   error
	)
	if tmp, e = d.NewDF(cc, d.DFdialect(dlct)); e != nil {
		return nil, e
	}

	return &DF{sourceSQL: sourceSQL, DFcore: tmp}, nil
}

// ***************** DF - Methods *****************

func (f *DF) AppendColumn(col d.Column, replace bool) error {
	if _, ok := col.(*Col); !ok {
		return fmt.Errorf("AppendColumn: column %s is not a sql column", col.Name())
	}

	return f.Core().AppendColumn(col, replace)
}

func (f *DF) Copy() d.DF {
	return &DF{
		sourceSQL: f.sourceSQL,
		orderBy:   f.orderBy,
		DFcore:    f.Core().Copy(),
	}
}

// Iter returns the rows of the query in order. A NULL is returned as nil. Iter returns io.EOF after the last row.
// The underlying rows stay open until Iter returns io.EOF or an error.
func (f *DF) Iter(reset bool) (row []any, err error) {
	if reset {
		if f.rows != nil {
			_ = f.rows.Close()
		}

		var e error
		if f.rows, f.row, _, e = f.Dialect().Rows(f.MakeQuery()); e != nil {
			f.rows = nil
			return nil, e
		}
	}

	if f.rows == nil {
		return nil, fmt.Errorf("Iter must be called with reset first")
	}

	if ok := f.rows.Next(); !ok {
		e := f.rows.Err()
		_ = f.rows.Close()
		f.rows = nil
		if e != nil {
			return nil, e
		}

		return nil, io.EOF
	}

	if ex := f.rows.Scan(f.row...); ex != nil {
		_ = f.rows.Close()
		f.rows = nil
		return nil, ex
	}

	for ind := 0; ind < len(f.row); ind++ {
		row = append(row, normalize(*f.row[ind].(*any)))
	}

	return row, nil
}

// Join builds the inner join of f and right on leftKey = rightKey. Both must be on the same database.
// The join statistics are computed by count queries when Join is called.
func (f *DF) Join(right d.DF, leftKey, rightKey string, keep ...string) (d.DF, *d.JoinStats, error) {
	var (
		r  *DF
		ok bool
	)
	if r, ok = right.(*DF); !ok {
		return nil, nil, fmt.Errorf("sql Join: right side must be a sql DF")
	}

	if f.Dialect() != r.Dialect() {
		return nil, nil, fmt.Errorf("sql Join: both sides must use the same dialect")
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

	dlct := f.Dialect()
	lAlias, rAlias := "l"+d.RandomLetters(4), "r"+d.RandomLetters(4)
	lQry, rQry := f.query(false), r.query(false)
	lk, rk := lAlias+"."+dlct.Ident(leftKey), rAlias+"."+dlct.Ident(rightKey)

	var (
		fields []string
		cols   []*Col
	)
	for ind, nm := range names {
		src, alias := r.Column(nm), rAlias
		if fromLeft[ind] {
			src, alias = f.Column(nm), lAlias
		}

		fields = append(fields, fmt.Sprintf("%s.%s AS %s", alias, dlct.Ident(nm), dlct.Ident(nm)))

		var col *Col
		if col, e = NewColSQL(src.DataType(), dlct, "", d.ColName(nm)); e != nil {
			return nil, nil, e
		}

		cols = append(cols, col)
	}

	joinSQL := fmt.Sprintf("SELECT %s FROM (%s) AS %s INNER JOIN (%s) AS %s ON %s = %s",
		strings.Join(fields, ", "), lQry, lAlias, rQry, rAlias, lk, rk)

	var out *DF
	if out, e = NewDFcol(dlct, joinSQL, cols...); e != nil {
		return nil, nil, e
	}

	stats := &d.JoinStats{}
	if stats.LeftRows, e = dlct.RowCount(lQry); e != nil {
		return nil, nil, e
	}

	if stats.RightRows, e = dlct.RowCount(rQry); e != nil {
		return nil, nil, e
	}

	if stats.Rows, e = dlct.RowCount(joinSQL); e != nil {
		return nil, nil, e
	}

	var matched int
	if matched, e = dlct.RowCount(semiJoin(lQry, lAlias, lk, rQry, rAlias, rk)); e != nil {
		return nil, nil, e
	}

	stats.LeftDropped = stats.LeftRows - matched

	if matched, e = dlct.RowCount(semiJoin(rQry, rAlias, rk, lQry, lAlias, lk)); e != nil {
		return nil, nil, e
	}

	stats.RightDropped = stats.RightRows - matched

	return out, stats, nil
}

// MakeQuery returns the query that produces colNames (all columns if nil), in the DF's sort order.
// It panics if a name in colNames is not a column of the DF; check with HasColumns first.
func (f *DF) MakeQuery(colNames ...string) string {
	return f.query(true, colNames...)
}

func (f *DF) RowCount() (int, error) {
	return f.Dialect().RowCount(f.query(false))
}

func (f *DF) Sort(ascending bool, keys ...string) error {
	var ks []string
	for _, k := range keys {
		if c := f.Column(k); c == nil {
			return fmt.Errorf("%w: sort column %s not found", d.ErrStructural, k)
		}

		k = f.Dialect().Ident(k)
		if !ascending {
			k += " DESC"
		}

		ks = append(ks, k)
	}

	f.orderBy = strings.Join(ks, ", ")

	return nil
}

func (f *DF) SourceSQL() string {
	return f.sourceSQL
}

func (f *DF) String() string {
	var sx string
	for c := f.First(); c != nil; c = f.Next() {
		sx += c.String() + "\n"
	}

	return sx
}

func (f *DF) query(ordered bool, colNames ...string) string {
	var fields []string

	if colNames == nil {
		colNames = f.ColumnNames()
	}

	dlct := f.Dialect()
	for ind := 0; ind < len(colNames); ind++ {
		var cx d.Column
		if cx = f.Column(colNames[ind]); cx == nil {
			panic(fmt.Errorf("missing column %s", colNames[ind]))
		}

		field := dlct.Ident(cx.Name())
		if fn := cx.(*Col).SQL(); fn != "" {
			field = fmt.Sprintf("%s AS %s", fn, dlct.Ident(cx.Name()))
		}

		fields = append(fields, field)
	}

	qry := fmt.Sprintf("SELECT %s FROM (%s) AS %s", strings.Join(fields, ", "), f.sourceSQL, d.RandomLetters(4))
	if ordered && f.orderBy != "" {
		qry = fmt.Sprintf("%s ORDER BY %s", qry, f.orderBy)
	}

	return qry
}

// semiJoin counts the rows of qry whose key appears in other.
func semiJoin(qry, alias, key, other, otherAlias, otherKey string) string {
	return fmt.Sprintf("SELECT * FROM (%s) AS %s WHERE %s IN (SELECT %s FROM (%s) AS %s)",
		qry, alias, key, otherKey, other, otherAlias)
}

func normalize(x any) any {
	switch v := x.(type) {
	case []byte:
		return string(v)
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float32:
		return float64(v)
	default:
		return x
	}
}
