package factdf

import (
	"fmt"
	"sort"
)

// Vector holds the data of a column. Each element may be null.
type Vector struct {
	dt DataTypes

	data any
	null []bool // nil until the first null is set
}

func NewVector(data any, dt DataTypes) (*Vector, error) {
	if xs, ok := data.([]any); ok {
		var (
			v *Vector
			e error
		)
		if v, e = MakeVector(dt, len(xs)); e != nil {
			return nil, e
		}

		for ind, x := range xs {
			if ex := v.Set(x, ind); ex != nil {
				return nil, ex
			}
		}

		return v, nil
	}

	var (
		v  any
		ok bool
	)
	if v, ok = toSlc(data, dt); !ok {
		return nil, fmt.Errorf("cannot make vector of type %s", dt)
	}

	return &Vector{dt: dt, data: v}, nil
}

func MakeVector(dt DataTypes, n int) (*Vector, error) {
	switch dt {
	case DTfloat:
		return &Vector{dt: dt, data: make([]float64, n)}, nil
	case DTint:
		return &Vector{dt: dt, data: make([]int, n)}, nil
	case DTstring:
		return &Vector{dt: dt, data: make([]string, n)}, nil
	default:
		return nil, fmt.Errorf("cannot make Vector with data type %s", dt)
	}
}

// ***************** Methods *****************

func (v *Vector) AsAny() any {
	return v.data
}

func (v *Vector) Copy() *Vector {
	n := v.Len()
	var data any
	switch v.dt {
	case DTfloat:
		data = append(make([]float64, 0, n), v.data.([]float64)...)
	case DTint:
		data = append(make([]int, 0, n), v.data.([]int)...)
	case DTstring:
		data = append(make([]string, 0, n), v.data.([]string)...)
	}

	var null []bool
	if v.null != nil {
		null = append(make([]bool, 0, n), v.null...)
	}

	return &Vector{dt: v.dt, data: data, null: null}
}

// Element returns the value at indx, nil if the element is null.
func (v *Vector) Element(indx int) any {
	if v.IsNull(indx) {
		return nil
	}

	switch v.dt {
	case DTfloat:
		return v.data.([]float64)[indx]
	case DTint:
		return v.data.([]int)[indx]
	case DTstring:
		return v.data.([]string)[indx]
	default:
		panic(fmt.Errorf("error in Element"))
	}
}

// ElementString returns the value at indx as a string. ok is false if the element is null.
func (v *Vector) ElementString(indx int) (s string, ok bool) {
	x := v.Element(indx)
	if x == nil {
		return "", false
	}

	var xs any
	if xs, ok = toString(x); !ok {
		return "", false
	}

	return xs.(string), true
}

func (v *Vector) IsNull(indx int) bool {
	return v.null != nil && v.null[indx]
}

func (v *Vector) Len() int {
	switch v.dt {
	case DTfloat:
		return len(v.data.([]float64))
	case DTint:
		return len(v.data.([]int))
	case DTstring:
		return len(v.data.([]string))
	default:
		return 0
	}
}

// Less reports whether element i sorts before element j. Nulls sort last.
func (v *Vector) Less(i, j int) bool {
	if v.IsNull(i) || v.IsNull(j) {
		return !v.IsNull(i) && v.IsNull(j)
	}

	switch v.dt {
	case DTfloat:
		return v.data.([]float64)[i] < v.data.([]float64)[j]
	case DTint:
		return v.data.([]int)[i] < v.data.([]int)[j]
	case DTstring:
		return v.data.([]string)[i] < v.data.([]string)[j]
	default:
		panic(fmt.Errorf("unsupported data type in Less"))
	}
}

// NullCount is the number of null elements.
func (v *Vector) NullCount() int {
	n := 0
	for _, isNull := range v.null {
		if isNull {
			n++
		}
	}

	return n
}

// Set assigns val to the element at indx, converting it to the vector's type. A nil val sets a null.
func (v *Vector) Set(val any, indx int) error {
	if indx < 0 || indx >= v.Len() {
		return fmt.Errorf("index %d out of range", indx)
	}

	if val == nil {
		v.SetNull(indx)
		return nil
	}

	var (
		x  any
		ok bool
	)
	if x, ok = toDataType(val, v.dt); !ok {
		return fmt.Errorf("cannot convert %v to %s", val, v.dt)
	}

	switch v.dt {
	case DTfloat:
		v.data.([]float64)[indx] = x.(float64)
	case DTint:
		v.data.([]int)[indx] = x.(int)
	case DTstring:
		v.data.([]string)[indx] = x.(string)
	}

	if v.null != nil {
		v.null[indx] = false
	}

	return nil
}

func (v *Vector) SetNull(indx int) {
	if v.null == nil {
		v.null = make([]bool, v.Len())
	}

	v.null[indx] = true
}

// Sorted returns the row order that sorts v ascending. Ties keep their original order.
func (v *Vector) Sorted() []int {
	rows := make([]int, v.Len())
	for ind := range rows {
		rows[ind] = ind
	}

	sort.SliceStable(rows, func(i, j int) bool { return v.Less(rows[i], rows[j]) })

	return rows
}

// Subset returns a new vector made of the elements at rows, in that order.
func (v *Vector) Subset(rows []int) *Vector {
	var data any
	switch v.dt {
	case DTfloat:
		data = gather(v.data.([]float64), rows)
	case DTint:
		data = gather(v.data.([]int), rows)
	case DTstring:
		data = gather(v.data.([]string), rows)
	}

	out := &Vector{dt: v.dt, data: data}
	if v.null != nil {
		out.null = gather(v.null, rows)
	}

	return out
}

func (v *Vector) VectorType() DataTypes {
	return v.dt
}

func gather[T any](x []T, rows []int) []T {
	out := make([]T, len(rows))
	for ind, r := range rows {
		out[ind] = x[r]
	}

	return out
}
