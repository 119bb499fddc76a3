package mem

import (
	"fmt"
	"sort"

	d "github.com/invertedv/factdf"
	"gonum.org/v1/gonum/stat"
)

type Col struct {
	*d.Vector

	*d.ColCore
}

// Summary holds descriptive statistics of the numeric values of a column.
type Summary struct {
	Min    float64
	Q25    float64
	Median float64
	Mean   float64
	Q75    float64
	Max    float64

	N       int // values included
	Missing int // nulls and values that are not numbers
}

// ***************** Col - Create *****************

func NewCol(data any, dt d.DataTypes, opts ...d.ColOpt) (*Col, error) {
	var col *Col
	if v, ok := data.(*d.Vector); ok {
		cx, e := d.NewColCore(v.VectorType())
		if e != nil {
			return nil, e
		}

		col = &Col{
			Vector:  v,
			ColCore: cx,
		}
	}

	if col == nil {
		var (
			v  *d.Vector
			cy *d.ColCore
			e  error
		)
		if v, e = d.NewVector(data, dt); e != nil {
			return nil, e
		}

		if cy, e = d.NewColCore(dt); e != nil {
			return nil, e
		}

		col = &Col{
			Vector:  v,
			ColCore: cy,
		}
	}

	for _, opt := range opts {
		if e := opt(col); e != nil {
			return nil, e
		}
	}

	return col, nil
}

// ***************** Col - Methods *****************

func (c *Col) Copy() d.Column {
	col := &Col{
		Vector:  c.Data().Copy(),
		ColCore: c.Core().Copy(),
	}

	return col
}

func (c *Col) Data() *d.Vector {
	return c.Vector
}

func (c *Col) String() string {
	t := fmt.Sprintf("column: %s\ntype: %s\n", c.Name(), c.DataType())

	if c.DataType() != d.DTfloat {
		tab, e := NewDFcol([]*Col{c})
		if e != nil {
			return t
		}

		var tx *DF
		if tx, e = tab.Table(c.Name()); e != nil {
			return t
		}

		var vals []string
		l := tx.Column(c.Name()).(*Col)
		for ind := 0; ind < l.Len(); ind++ {
			s, ok := l.ElementString(ind)
			if !ok {
				s = "NULL"
			}

			vals = append(vals, s)
		}

		counts := tx.Column("count").(*Col).AsAny().([]int)
		header := []string{c.Name(), "count"}

		return t + prettyPrint(header, vals, counts)
	}

	s, e := c.Summary()
	if e != nil || s.N == 0 {
		return t + "no data\n"
	}

	cats := []string{"min", "lq", "median", "mean", "uq", "max", "n"}
	vals := []float64{s.Min, s.Q25, s.Median, s.Mean, s.Q75, s.Max, float64(s.N)}
	header := []string{"metric", "value"}

	return t + prettyPrint(header, cats, vals)
}

// Summary computes the quantiles and mean of the column's values that convert to a number.
// String columns holding numbers (e.g. "10.5") are summarized as well.
func (c *Col) Summary() (*Summary, error) {
	var x []float64
	s := &Summary{}
	for ind := 0; ind < c.Len(); ind++ {
		f, ok := d.ToFloat(c.Element(ind))
		if !ok {
			s.Missing++
			continue
		}

		x = append(x, f)
	}

	s.N = len(x)
	if s.N == 0 {
		return s, nil
	}

	sort.Float64s(x)
	s.Min = x[0]
	s.Max = x[len(x)-1]
	s.Q25 = stat.Quantile(0.25, stat.Empirical, x, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, x, nil)
	s.Q75 = stat.Quantile(0.75, stat.Empirical, x, nil)
	s.Mean = stat.Mean(x, nil)

	return s, nil
}
