package sql

import (
	"fmt"

	d "github.com/invertedv/factdf"
)

// Col is a column of a SQL DF. sql is the expression that computes it; empty means
// the column is read by name from the DF's source query.
type Col struct {
	sql string

	*d.ColCore
}

// ***************** Col - Create *****************

func NewColSQL(dt d.DataTypes, dlct *d.Dialect, sqlx string, opts ...d.ColOpt) (*Col, error) {
	var (
		cc *d.ColCore
		e  error
	)
	if cc, e = d.NewColCore(dt, append(opts, d.ColDialect(dlct))...); e != nil {
		return nil, e
	}

	col := &Col{
		sql:     sqlx,
		ColCore: cc,
	}

	return col, nil
}

// ***************** Col - Methods *****************

func (c *Col) Copy() d.Column {
	return &Col{
		sql:     c.sql,
		ColCore: c.Core().Copy(),
	}
}

func (c *Col) SQL() string {
	return c.sql
}

func (c *Col) String() string {
	sx := fmt.Sprintf("column: %s\ntype: %s\n", c.Name(), c.DataType())
	if c.sql != "" {
		sx += fmt.Sprintf("sql: %s\n", c.sql)
	}

	return sx
}
