package factdf

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// All code interacting with a database is here

//go:embed skeletons
var skeletons embed.FS

const (
	ch = "clickhouse"
	pg = "postgres"
	sl = "sqlite"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Dialect struct {
	db      *sql.DB
	q       querier
	ctx     context.Context
	dialect string

	dtTypes []string
	dbTypes []string

	create   string
	fields   string
	identity string
	dropIf   string
	exists   string
	rename   string
	insert   string

	batchSize int // rows per INSERT in IterSave
}

// Field is a column definition used to create a table.
type Field struct {
	Name string
	DT   DataTypes

	// Identity fields are generated by the database on insert.
	Identity bool
}

func NewDialect(dialect string, db *sql.DB) (*Dialect, error) {
	dialect = strings.ToLower(dialect)
	if dialect == "sqlite3" {
		dialect = sl
	}

	if dialect != ch && dialect != pg && dialect != sl {
		return nil, fmt.Errorf("no skeletons for database %s", dialect)
	}

	d := &Dialect{db: db, q: db, ctx: context.Background(), dialect: dialect, batchSize: 500}

	var (
		types string
		e     error
	)
	for _, sk := range []struct {
		file string
		dest *string
	}{
		{"create", &d.create}, {"fields", &d.fields}, {"identity", &d.identity}, {"dropif", &d.dropIf},
		{"exists", &d.exists}, {"rename", &d.rename}, {"insert", &d.insert}, {"types", &types},
	} {
		if *sk.dest, e = skeleton(dialect, sk.file); e != nil {
			return nil, e
		}
	}

	l := strings.Split(types, "\n")
	for _, lm := range l {
		if strings.Trim(lm, " ") == "" {
			continue
		}

		t := strings.Split(lm, ",")
		if len(t) != 2 {
			return nil, fmt.Errorf("bad line in %s types skeleton: %s", dialect, lm)
		}

		if DTFromString(t[0]) == DTunknown {
			return nil, fmt.Errorf("unknown data type in NewDialect")
		}

		d.dtTypes = append(d.dtTypes, t[0])
		d.dbTypes = append(d.dbTypes, strings.TrimSpace(t[1]))
	}

	return d, nil
}

func skeleton(dialect, name string) (string, error) {
	b, e := skeletons.ReadFile(fmt.Sprintf("skeletons/%s/%s.txt", dialect, name))
	if e != nil {
		return "", fmt.Errorf("missing %s skeleton for %s: %w", name, dialect, e)
	}

	return strings.TrimSpace(string(b)), nil
}

// ***************** Methods *****************

func (d *Dialect) BatchSize() int {
	return d.batchSize
}

func (d *Dialect) Close() error {
	return d.db.Close()
}

// Columns returns the column names of tableName in table order.
func (d *Dialect) Columns(tableName string) ([]string, error) {
	var (
		rows *sql.Rows
		e    error
	)
	if rows, e = d.q.QueryContext(d.ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", d.Ident(tableName))); e != nil {
		return nil, e
	}
	defer func() { _ = rows.Close() }()

	return rows.Columns()
}

func (d *Dialect) Context() context.Context {
	return d.ctx
}

// Create creates tableName with fields. orderBy is used by dialects whose tables need a sort key.
func (d *Dialect) Create(tableName, orderBy string, fields []Field, overwrite bool) error {
	if e := validName(tableName, true); e != nil {
		return e
	}

	if len(fields) == 0 {
		return fmt.Errorf("no fields to create table %s", tableName)
	}

	var (
		exists bool
		e      error
	)
	if exists, e = d.Exists(tableName); e != nil {
		return e
	}

	if exists {
		if !overwrite {
			return fmt.Errorf("table %s exists", tableName)
		}

		if e := d.DropTable(tableName); e != nil {
			return e
		}
	}

	if orderBy == "" {
		orderBy = "tuple()"
	} else {
		orderBy = d.Ident(orderBy)
	}

	create := strings.ReplaceAll(d.create, "?TableName", d.Ident(tableName))
	create = strings.Replace(create, "?OrderBy", orderBy, 1)

	var flds []string
	for _, fld := range fields {
		if e := validName(fld.Name, false); e != nil {
			return e
		}

		skel := d.fields
		if fld.Identity {
			skel = d.identity
		}

		var dbType string
		if dbType, e = d.dbtype(fld.DT); e != nil {
			return e
		}

		field := strings.ReplaceAll(skel, "?Field", d.Ident(fld.Name))
		field = strings.ReplaceAll(field, "?Type", dbType)
		flds = append(flds, field)
	}

	create = strings.Replace(create, "?fields", strings.Join(flds, ", "), 1)

	if strings.Contains(create, "?") {
		return fmt.Errorf("create still has placeholders: %s", create)
	}

	_, e = d.q.ExecContext(d.ctx, create)

	return e
}

// CreateTable creates a table whose columns are those of df.
func (d *Dialect) CreateTable(tableName, orderBy string, overwrite bool, df DF) error {
	var (
		e   error
		dts []DataTypes
	)

	cols := df.ColumnNames()
	if orderBy != "" && !df.HasColumns(orderBy) {
		return fmt.Errorf("%w: order by column %s not in data", ErrStructural, orderBy)
	}

	if dts, e = df.ColumnTypes(cols...); e != nil {
		return e
	}

	var fields []Field
	for ind, cn := range cols {
		fields = append(fields, Field{Name: cn, DT: dts[ind]})
	}

	return d.Create(tableName, orderBy, fields, overwrite)
}

func (d *Dialect) DB() *sql.DB {
	return d.db
}

func (d *Dialect) DialectName() string {
	return d.dialect
}

func (d *Dialect) DropTable(tableName string) error {
	qry := strings.ReplaceAll(d.dropIf, "?TableName", d.Ident(tableName))
	_, e := d.q.ExecContext(d.ctx, qry)

	return e
}

func (d *Dialect) Exists(tableName string) (bool, error) {
	if e := validName(tableName, true); e != nil {
		return false, e
	}

	qry := strings.ReplaceAll(d.exists, "?TableName", d.Ident(tableName))
	qry = strings.ReplaceAll(qry, "?RawName", tableName)

	var n int
	if e := d.q.QueryRowContext(d.ctx, qry).Scan(&n); e != nil {
		return false, e
	}

	return n > 0, nil
}

// Ident quotes an identifier. Qualified names ("db.table") are quoted part by part.
func (d *Dialect) Ident(name string) string {
	parts := strings.Split(name, ".")
	for ind, p := range parts {
		parts[ind] = `"` + p + `"`
	}

	return strings.Join(parts, ".")
}

// Idents quotes each name and joins them with commas.
func (d *Dialect) Idents(names ...string) string {
	var q []string
	for _, nm := range names {
		q = append(q, d.Ident(nm))
	}

	return strings.Join(q, ", ")
}

// Insert runs INSERT INTO tableName (fields) makeQuery.
func (d *Dialect) Insert(tableName, makeQuery string, fields []string) error {
	qry := strings.Replace(d.insert, "?TableName", d.Ident(tableName), 1)
	qry = strings.Replace(qry, "?Fields", d.Idents(fields...), 1)
	qry = strings.Replace(qry, "?MakeQuery", makeQuery, 1)

	_, e := d.q.ExecContext(d.ctx, qry)

	return e
}

// InsertValues inserts rows into tableName in a single parameterized statement. nil values are stored as NULL.
func (d *Dialect) InsertValues(tableName string, fields []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	var (
		tuples []string
		args   []any
	)
	for _, row := range rows {
		if len(row) != len(fields) {
			return fmt.Errorf("row has %d values, expected %d", len(row), len(fields))
		}

		var ph []string
		for _, val := range row {
			args = append(args, val)
			ph = append(ph, d.Placeholder(len(args)))
		}

		tuples = append(tuples, "("+strings.Join(ph, ", ")+")")
	}

	qry := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", d.Ident(tableName), d.Idents(fields...), strings.Join(tuples, ", "))
	_, e := d.q.ExecContext(d.ctx, qry, args...)

	return e
}

// IterSave appends the rows of df to tableName in batches of BatchSize rows.
func (d *Dialect) IterSave(tableName string, df DF) error {
	var buffer [][]any
	fields := df.ColumnNames()

	row, e := df.Iter(true)
	for ; e == nil; row, e = df.Iter(false) {
		buffer = append(buffer, row)

		if len(buffer) >= d.batchSize {
			if ex := d.InsertValues(tableName, fields, buffer); ex != nil {
				return ex
			}

			buffer = nil
		}
	}

	if e != io.EOF {
		return e
	}

	return d.InsertValues(tableName, fields, buffer)
}

// Append adds the rows of df to the existing table tableName.
func (d *Dialect) Append(tableName string, df DF) error {
	if qry := df.MakeQuery(); qry != "" {
		return d.Insert(tableName, qry, df.ColumnNames())
	}

	return d.IterSave(tableName, df)
}

// Load runs qry and returns its result as vectors.
func (d *Dialect) Load(qry string) ([]*Vector, []string, []DataTypes, error) {
	var (
		rows       *sql.Rows
		fieldNames []string
		fieldTypes []DataTypes
		row2read   []any
		e          error
	)
	if rows, row2read, fieldNames, fieldTypes, e = d.rows(qry); e != nil {
		return nil, nil, nil, e
	}
	defer func() { _ = rows.Close() }()

	var data [][]any
	for rows.Next() {
		if e := rows.Scan(row2read...); e != nil {
			return nil, nil, nil, e
		}

		vals := make([]any, len(row2read))
		for ind := 0; ind < len(row2read); ind++ {
			vals[ind] = *row2read[ind].(*any)
		}

		data = append(data, vals)
	}

	if e := rows.Err(); e != nil {
		return nil, nil, nil, e
	}

	// types the driver would not report are inferred from the first non-null value
	for c := 0; c < len(fieldTypes); c++ {
		if fieldTypes[c] != DTunknown {
			continue
		}

		fieldTypes[c] = DTstring
		for r := 0; r < len(data); r++ {
			if data[r][c] != nil {
				fieldTypes[c] = valueType(data[r][c])
				break
			}
		}
	}

	var memData []*Vector
	for c := 0; c < len(fieldTypes); c++ {
		var v *Vector
		if v, e = MakeVector(fieldTypes[c], len(data)); e != nil {
			return nil, nil, nil, e
		}

		for r := 0; r < len(data); r++ {
			if e := v.Set(data[r][c], r); e != nil {
				return nil, nil, nil, fmt.Errorf("column %s row %d: %w", fieldNames[c], r, e)
			}
		}

		memData = append(memData, v)
	}

	return memData, fieldNames, fieldTypes, nil
}

// Placeholder returns the bind parameter for the n-th (1-based) argument.
func (d *Dialect) Placeholder(n int) string {
	if d.dialect == pg {
		return "$" + strconv.Itoa(n)
	}

	return "?"
}

// Rename renames table from to table to.
func (d *Dialect) Rename(from, to string) error {
	if e := validName(to, true); e != nil {
		return e
	}

	// postgres and sqlite rename within the table's own schema
	target := d.Ident(to)
	if d.dialect != ch {
		parts := strings.Split(to, ".")
		target = d.Ident(parts[len(parts)-1])
	}

	qry := strings.ReplaceAll(d.rename, "?From", d.Ident(from))
	qry = strings.ReplaceAll(qry, "?To", target)
	_, e := d.q.ExecContext(d.ctx, qry)

	return e
}

// Replace drops to, if it exists, and renames from to to.
func (d *Dialect) Replace(from, to string) error {
	if e := d.DropTable(to); e != nil {
		return e
	}

	return d.Rename(from, to)
}

func (d *Dialect) RowCount(qry string) (int, error) {
	const skeleton = "SELECT count(*) AS n FROM (%s) AS %s"
	var n int

	q := fmt.Sprintf(skeleton, qry, RandomLetters(4))
	if e := d.q.QueryRowContext(d.ctx, q).Scan(&n); e != nil {
		return 0, e
	}

	return n, nil
}

// Rows runs qry. row2Read holds one *any per column, for use with rows.Scan.
func (d *Dialect) Rows(qry string) (rows *sql.Rows, row2Read []any, fieldNames []string, err error) {
	rows, row2Read, fieldNames, _, err = d.rows(qry)
	return rows, row2Read, fieldNames, err
}

// Save creates tableName and fills it with df.
func (d *Dialect) Save(tableName, orderBy string, overwrite bool, df DF) error {
	var (
		exists bool
		e      error
	)
	if exists, e = d.Exists(tableName); e != nil {
		return e
	}

	if exists && !overwrite {
		return fmt.Errorf("table %s exists", tableName)
	}

	if e := d.CreateTable(tableName, orderBy, overwrite, df); e != nil {
		return e
	}

	return d.Append(tableName, df)
}

func (d *Dialect) SetBatchSize(rows int) {
	if rows > 0 {
		d.batchSize = rows
	}
}

// Tx runs fn with a dialect bound to a transaction, committing if fn succeeds.
// ClickHouse has no multi-statement transactions: there fn runs directly against the database.
func (d *Dialect) Tx(ctx context.Context, fn func(tx *Dialect) error) (err error) {
	if _, inTx := d.q.(*sql.Tx); inTx {
		return fmt.Errorf("nested transactions are not supported")
	}

	if d.dialect == ch {
		return fn(d.WithContext(ctx))
	}

	var tx *sql.Tx
	if tx, err = d.db.BeginTx(ctx, nil); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}

		if err != nil {
			_ = tx.Rollback()
		}
	}()

	dtx := d.WithContext(ctx)
	dtx.q = tx

	if err = fn(dtx); err != nil {
		return err
	}

	return tx.Commit()
}

// Transactional reports whether Tx runs in a database transaction.
func (d *Dialect) Transactional() bool {
	return d.dialect != ch
}

// Types returns the column names and types of the result of qry without reading any rows.
func (d *Dialect) Types(qry string) (fieldNames []string, fieldTypes []DataTypes, err error) {
	var rows *sql.Rows
	q := fmt.Sprintf("SELECT * FROM (%s) AS %s LIMIT 0", qry, RandomLetters(4))
	if rows, _, fieldNames, fieldTypes, err = d.rows(q); err != nil {
		return nil, nil, err
	}

	_ = rows.Close()

	return fieldNames, fieldTypes, nil
}

// WithContext returns a copy of d whose statements run under ctx.
func (d *Dialect) WithContext(ctx context.Context) *Dialect {
	dc := *d
	dc.ctx = ctx

	return &dc
}

func (d *Dialect) dbtype(dt DataTypes) (string, error) {
	pos := Position(dt.String(), d.dtTypes)
	if pos < 0 {
		return "", fmt.Errorf("cannot find type %s to map to DB type", dt.String())
	}

	return d.dbTypes[pos], nil
}

func (d *Dialect) rows(qry string) (rows *sql.Rows, row2Read []any, fieldNames []string, fieldTypes []DataTypes, err error) {
	if rows, err = d.q.QueryContext(d.ctx, qry); err != nil {
		return nil, nil, nil, nil, err
	}

	var ct []*sql.ColumnType
	if ct, err = rows.ColumnTypes(); err != nil {
		_ = rows.Close()
		return nil, nil, nil, nil, err
	}

	for ind := 0; ind < len(ct); ind++ {
		var x any
		row2Read = append(row2Read, &x)
		fieldNames = append(fieldNames, ct[ind].Name())
		fieldTypes = append(fieldTypes, dbTypeToDT(ct[ind].DatabaseTypeName()))
	}

	return rows, row2Read, fieldNames, fieldTypes, nil
}

// dbTypeToDT maps a driver's type name to a DataTypes. Names it does not recognize return DTunknown.
func dbTypeToDT(dbType string) DataTypes {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	t = strings.TrimSuffix(strings.TrimPrefix(t, "NULLABLE("), ")")

	switch {
	case t == "":
		return DTunknown
	case strings.Contains(t, "INT") && !strings.Contains(t, "POINT") && !strings.Contains(t, "INTERVAL"):
		return DTint
	case strings.Contains(t, "FLOAT"), strings.Contains(t, "DOUBLE"), strings.Contains(t, "REAL"),
		strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return DTfloat
	default:
		return DTstring
	}
}

func valueType(x any) DataTypes {
	switch x.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return DTint
	case float32, float64:
		return DTfloat
	default:
		return DTstring
	}
}
