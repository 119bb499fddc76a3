package factdf

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

func toFloat(x any) (any, bool) {
	if f, ok := x.(float64); ok {
		return f, true
	}

	if b, ok := x.([]byte); ok {
		return toFloat(string(b))
	}

	xv := reflect.ValueOf(x)
	if xv.CanFloat() {
		return xv.Float(), true
	}

	if xv.CanInt() {
		return float64(xv.Int()), true
	}

	if xv.CanUint() {
		return float64(xv.Uint()), true
	}

	if s, ok := x.(string); ok {
		if f, e := strconv.ParseFloat(strings.TrimSpace(s), 64); e == nil {
			return f, true
		}
	}

	return nil, false
}

func toInt(x any) (any, bool) {
	if i, ok := x.(int); ok {
		return i, true
	}

	if b, ok := x.([]byte); ok {
		return toInt(string(b))
	}

	xv := reflect.ValueOf(x)
	if xv.CanInt() {
		return int(xv.Int()), true
	}

	if xv.CanUint() {
		return int(xv.Uint()), true
	}

	// only whole floats convert
	if xv.CanFloat() {
		if f := xv.Float(); f == float64(int(f)) {
			return int(f), true
		}

		return nil, false
	}

	if s, ok := x.(string); ok {
		if i, e := strconv.ParseInt(strings.TrimSpace(s), 10, 64); e == nil {
			return int(i), true
		}
	}

	return nil, false
}

func toString(x any) (any, bool) {
	switch xv := x.(type) {
	case string:
		return xv, true
	case []byte:
		return string(xv), true
	case float64:
		return strconv.FormatFloat(xv, 'f', -1, 64), true
	case int:
		return strconv.Itoa(xv), true
	case fmt.Stringer:
		return xv.String(), true
	}

	xv := reflect.ValueOf(x)
	if xv.CanInt() {
		return strconv.FormatInt(xv.Int(), 10), true
	}

	if xv.CanUint() {
		return strconv.FormatUint(xv.Uint(), 10), true
	}

	if xv.CanFloat() {
		return strconv.FormatFloat(xv.Float(), 'f', -1, 64), true
	}

	if xv.Kind() == reflect.Bool {
		return strconv.FormatBool(xv.Bool()), true
	}

	return nil, false
}

func toDataType(x any, dt DataTypes) (any, bool) {
	switch dt {
	case DTfloat:
		if v, ok := toFloat(x); ok {
			return v.(float64), true
		}
	case DTint:
		if v, ok := toInt(x); ok {
			return v.(int), true
		}
	case DTstring:
		if v, ok := toString(x); ok {
			return v.(string), true
		}
	}

	return nil, false
}

// ToFloat converts x to float64. ok is false if x is nil or cannot be converted.
func ToFloat(x any) (f float64, ok bool) {
	if x == nil {
		return 0, false
	}

	var v any
	if v, ok = toFloat(x); !ok {
		return 0, false
	}

	return v.(float64), true
}

// ToString converts x to its string form. ok is false if x is nil.
func ToString(x any) (s string, ok bool) {
	if x == nil {
		return "", false
	}

	var v any
	if v, ok = toString(x); !ok {
		return "", false
	}

	return v.(string), true
}

// WhatAmI returns the DataTypes of val, which may be a scalar or a slice.
func WhatAmI(val any) DataTypes {
	switch val.(type) {
	case float64, []float64:
		return DTfloat
	case int, []int:
		return DTint
	case string, []string:
		return DTstring
	default:
		return DTunknown
	}
}

func toSlc(xIn any, target DataTypes) (any, bool) {
	typSlc := []reflect.Type{reflect.TypeOf([]float64{}), reflect.TypeOf([]int{}), reflect.TypeOf([]string{""})}
	toFns := []func(a any) (any, bool){toFloat, toInt, toString}

	if xIn == nil {
		return nil, false
	}

	x := reflect.ValueOf(xIn)

	var indx int
	switch target {
	case DTfloat:
		indx = 0
	case DTint:
		indx = 1
	case DTstring:
		indx = 2
	default:
		return nil, false
	}

	outType := typSlc[indx]

	// nothing to do
	if x.Type() == outType {
		return xIn, true
	}

	toFn := toFns[indx]
	if x.Kind() == reflect.Slice {
		xOut := reflect.MakeSlice(outType, x.Len(), x.Len())
		for ind := 0; ind < x.Len(); ind++ {
			var (
				val any
				ok  bool
			)

			if val, ok = toFn(x.Index(ind).Interface()); !ok {
				return nil, false
			}

			xOut.Index(ind).Set(reflect.ValueOf(val))
		}

		return xOut.Interface(), true
	}

	// input is not a slice:
	if val, ok := toFn(xIn); ok {
		xOut := reflect.MakeSlice(outType, 1, 1)
		xOut.Index(0).Set(reflect.ValueOf(val))
		return xOut.Interface(), true
	}

	return nil, false
}
