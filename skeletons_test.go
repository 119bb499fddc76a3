package factdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDialect(t *testing.T) {
	for _, dialect := range []string{ch, pg, sl, "SQLite3"} {
		dlct, e := NewDialect(dialect, nil)
		assert.Nil(t, e)

		for dt := DTstring; dt <= MaxDT; dt++ {
			dbType, e := dlct.dbtype(dt)
			assert.Nil(t, e)
			assert.Equal(t, dt, dbTypeToDT(dbType), dialect)
		}
	}

	_, e := NewDialect("oracle", nil)
	assert.NotNil(t, e)
}

func TestDialect_Placeholder(t *testing.T) {
	p, _ := NewDialect(pg, nil)
	assert.Equal(t, "$3", p.Placeholder(3))
	assert.True(t, p.Transactional())

	c, _ := NewDialect(ch, nil)
	assert.Equal(t, "?", c.Placeholder(3))
	assert.False(t, c.Transactional())
}

func TestDialect_Ident(t *testing.T) {
	dlct, _ := NewDialect(sl, nil)
	assert.Equal(t, `"date"`, dlct.Ident("date"))
	assert.Equal(t, `"db"."fact_table"`, dlct.Ident("db.fact_table"))
	assert.Equal(t, `"a", "b"`, dlct.Idents("a", "b"))
}

func TestDbTypeToDT(t *testing.T) {
	for _, c := range []struct {
		in string
		dt DataTypes
	}{
		{"Nullable(Int64)", DTint},
		{"BIGINT", DTint},
		{"INT4", DTint},
		{"Nullable(Float64)", DTfloat},
		{"DOUBLE PRECISION", DTfloat},
		{"numeric", DTfloat},
		{"TEXT", DTstring},
		{"Nullable(String)", DTstring},
		{"VARCHAR", DTstring},
		{"POINT", DTstring},
		{"", DTunknown},
	} {
		assert.Equal(t, c.dt, dbTypeToDT(c.in), c.in)
	}
}
