package factdf

import (
	"fmt"
	"strings"
)

// DF is the interface satisfied by both the in-memory (mem) and the SQL (sql) relations.
type DF interface {
	DC

	AppendColumn(col Column, replace bool) error
	Copy() DF
	Iter(reset bool) (row []any, err error)
	Join(right DF, leftKey, rightKey string, keep ...string) (DF, *JoinStats, error)
	MakeQuery(colNames ...string) string
	RowCount() (int, error)
	Sort(ascending bool, keys ...string) error
	String() string
}

// DC is the set of methods implemented by DFcore.
type DC interface {
	Column(colName string) Column
	ColumnCount() int
	ColumnNames() []string
	ColumnTypes(cols ...string) ([]DataTypes, error)
	Core() *DFcore
	Dialect() *Dialect
	DropColumns(colNames ...string) error
	First() Column
	HasColumns(cols ...string) bool
	KeepColumns(colNames ...string) (*DFcore, error)
	Next() Column
}

// DFcore is the ordered list of columns embedded in each backend's DF.
type DFcore struct {
	head    *columnList
	current *columnList

	dlct *Dialect
}

type columnList struct {
	col Column

	prior *columnList
	next  *columnList
}

// DataTypes are the types of data that the package supports
type DataTypes uint8

// values of DataTypes
const (
	DTunknown DataTypes = 0 + iota
	DTstring
	DTfloat
	DTint
)

// MaxDT is the largest DataTypes value.
const MaxDT = DTint

func (dt DataTypes) String() string {
	switch dt {
	case DTstring:
		return "DTstring"
	case DTfloat:
		return "DTfloat"
	case DTint:
		return "DTint"
	default:
		return "DTunknown"
	}
}

// DTFromString is the inverse of DataTypes.String.
func DTFromString(nm string) DataTypes {
	for ind := DataTypes(0); ind <= MaxDT; ind++ {
		if ind.String() == nm {
			return ind
		}
	}

	return DTunknown
}

// JoinStats describes what an inner join kept and what it silently discarded.
type JoinStats struct {
	LeftRows  int
	RightRows int
	Rows      int

	// rows on each side with no partner on the other side
	LeftDropped  int
	RightDropped int
}

func (js *JoinStats) Dropped() int {
	return js.LeftDropped + js.RightDropped
}

func (js *JoinStats) String() string {
	return fmt.Sprintf("left %d (dropped %d), right %d (dropped %d), out %d",
		js.LeftRows, js.LeftDropped, js.RightRows, js.RightDropped, js.Rows)
}

// *********** DFcore - Create ***********

type DFopt func(df DC) error

// DFdialect sets the dialect of the DF.
func DFdialect(dlct *Dialect) DFopt {
	return func(df DC) error {
		if df == nil {
			return fmt.Errorf("nil df to DFdialect")
		}

		df.Core().dlct = dlct

		return nil
	}
}

func NewDF(cols []Column, opts ...DFopt) (*DFcore, error) {
	if cols == nil {
		return nil, fmt.Errorf("no columns in NewDF")
	}

	var head, priorNode *columnList
	for ind := 0; ind < len(cols); ind++ {
		if cols[ind].Name() == "" {
			return nil, fmt.Errorf("unnamed column in NewDF")
		}

		node := &columnList{
			col: cols[ind],

			prior: priorNode,
			next:  nil,
		}

		if priorNode != nil {
			priorNode.next = node
		}

		priorNode = node

		if ind == 0 {
			head = node
		}
	}

	df := &DFcore{head: head}
	if dups := duplicates(df.ColumnNames()); dups != nil {
		return nil, fmt.Errorf("duplicate column names in NewDF: %s", strings.Join(dups, ","))
	}

	for _, opt := range opts {
		if e := opt(df); e != nil {
			return nil, e
		}
	}

	return df, nil
}

// *********** DFcore - Methods ***********

func (df *DFcore) AppendColumn(col Column, replace bool) error {
	if col.Name() == "" {
		return fmt.Errorf("cannot append unnamed column")
	}

	if node, e := df.node(col.Name()); e == nil {
		if !replace {
			return fmt.Errorf("duplicate column name: %s", col.Name())
		}

		node.col = col

		return nil
	}

	if df.head == nil {
		df.head = &columnList{col: col}
		return nil
	}

	var tail *columnList
	for tail = df.head; tail.next != nil; tail = tail.next {
	}

	tail.next = &columnList{
		col:   col,
		prior: tail,
		next:  nil,
	}

	return nil
}

func (df *DFcore) Column(colName string) Column {
	if node, e := df.node(colName); e == nil {
		return node.col
	}

	return nil
}

func (df *DFcore) ColumnCount() int {
	cols := 0
	for c := df.head; c != nil; c = c.next {
		cols++
	}

	return cols
}

func (df *DFcore) ColumnNames() []string {
	var names []string

	for h := df.head; h != nil; h = h.next {
		names = append(names, h.col.Name())
	}

	return names
}

// ColumnTypes returns the types of cols, all columns if cols is nil.
func (df *DFcore) ColumnTypes(cols ...string) ([]DataTypes, error) {
	if cols == nil {
		cols = df.ColumnNames()
	}

	var dts []DataTypes
	for _, cn := range cols {
		var c Column
		if c = df.Column(cn); c == nil {
			return nil, fmt.Errorf("column %s not found", cn)
		}

		dts = append(dts, c.DataType())
	}

	return dts, nil
}

// Copy copies the column list. Columns are copied as well.
func (df *DFcore) Copy() *DFcore {
	var cols []Column
	for c := df.head; c != nil; c = c.next {
		cols = append(cols, c.col.Copy())
	}

	// can't fail: names were unique in df
	out, _ := NewDF(cols)
	out.dlct = df.dlct

	return out
}

func (df *DFcore) Core() *DFcore {
	return df
}

func (df *DFcore) Dialect() *Dialect {
	return df.dlct
}

func (df *DFcore) DropColumns(colNames ...string) error {
	for _, cName := range colNames {
		var (
			node *columnList
			e    error
		)

		if node, e = df.node(cName); e != nil {
			return e
		}

		if node == df.head {
			if df.head.next == nil {
				return fmt.Errorf("cannot drop last column %s", cName)
			}

			df.head = df.head.next
			df.head.prior = nil
			continue
		}

		node.prior.next = node.next
		if node.next != nil {
			node.next.prior = node.prior
		}
	}

	return nil
}

// First resets the iterator and returns the first column.
func (df *DFcore) First() Column {
	df.current = df.head
	if df.current == nil {
		return nil
	}

	return df.current.col
}

func (df *DFcore) HasColumns(cols ...string) bool {
	for _, c := range cols {
		if df.Column(c) == nil {
			return false
		}
	}

	return true
}

// KeepColumns returns a DFcore made up of colNames, in that order. The columns are shared, not copied.
func (df *DFcore) KeepColumns(colNames ...string) (*DFcore, error) {
	var cols []Column

	for ind := 0; ind < len(colNames); ind++ {
		var col Column
		if col = df.Column(colNames[ind]); col == nil {
			return nil, fmt.Errorf("%w: column %s not found", ErrStructural, colNames[ind])
		}

		cols = append(cols, col)
	}

	var (
		subset *DFcore
		e      error
	)
	if subset, e = NewDF(cols); e != nil {
		return nil, e
	}

	subset.dlct = df.dlct

	return subset, nil
}

// Next advances the iterator started by First. It returns nil after the last column.
func (df *DFcore) Next() Column {
	if df.current == nil {
		return nil
	}

	df.current = df.current.next
	if df.current == nil {
		return nil
	}

	return df.current.col
}

func (df *DFcore) node(colName string) (node *columnList, err error) {
	for h := df.head; h != nil; h = h.next {
		if h.col.Name() == colName {
			return h, nil
		}
	}

	return nil, fmt.Errorf("column %s not found", colName)
}

// *********** Joins ***********

// JoinColumns resolves the output columns of a join of left and right.
// keep lists the output columns. A name present in both inputs is taken from left.
// If keep is empty, the output is every column of left followed by the columns of right not in left.
func JoinColumns(left, right DC, keep ...string) (names []string, fromLeft []bool, err error) {
	if len(keep) == 0 {
		keep = left.ColumnNames()
		for _, cn := range right.ColumnNames() {
			if !Has(cn, keep) {
				keep = append(keep, cn)
			}
		}
	}

	if dups := duplicates(keep); dups != nil {
		return nil, nil, fmt.Errorf("duplicate output columns in join: %s", strings.Join(dups, ","))
	}

	for _, cn := range keep {
		switch {
		case left.Column(cn) != nil:
			fromLeft = append(fromLeft, true)
		case right.Column(cn) != nil:
			fromLeft = append(fromLeft, false)
		default:
			return nil, nil, fmt.Errorf("%w: join output column %s not found in either input", ErrStructural, cn)
		}

		names = append(names, cn)
	}

	return names, fromLeft, nil
}

// CheckJoinKeys verifies the key columns exist and have the same type.
func CheckJoinKeys(left, right DC, leftKey, rightKey string) error {
	var lk, rk Column
	if lk = left.Column(leftKey); lk == nil {
		return fmt.Errorf("%w: join key %s not found in left input", ErrStructural, leftKey)
	}

	if rk = right.Column(rightKey); rk == nil {
		return fmt.Errorf("%w: join key %s not found in right input", ErrStructural, rightKey)
	}

	if lk.DataType() != rk.DataType() {
		return fmt.Errorf("%w: join keys %s (%s) and %s (%s) differ in type",
			ErrStructural, leftKey, lk.DataType(), rightKey, rk.DataType())
	}

	return nil
}

func duplicates(names []string) []string {
	seen := make(map[string]bool)
	var dups []string
	for _, nm := range names {
		if seen[nm] && !Has(nm, dups) {
			dups = append(dups, nm)
		}

		seen[nm] = true
	}

	return dups
}
