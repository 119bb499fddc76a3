package mem

import (
	"fmt"
	"math"
	"strings"
)

// prettyPrint lays out cols side by side under header. Each col is a []float64, []int or []string.
func prettyPrint(header []string, cols ...any) string {
	var colsS [][]string

	for ind := 0; ind < len(cols); ind++ {
		colsS = append(colsS, stringSlice(header[ind], cols[ind]))
	}

	out := ""
	for row := 0; row < len(colsS[0]); row++ {
		for c := 0; c < len(colsS); c++ {
			out += colsS[c][row]
		}
		out = strings.TrimRight(out, " ") + "\n"
	}

	return out
}

func stringSlice(header string, inVal any) []string {
	const pad = 3
	c := []string{header}

	var (
		els     []string
		numeric bool
	)
	switch x := inVal.(type) {
	case []float64:
		format := selectFormat(x)
		for _, xv := range x {
			els = append(els, fmt.Sprintf(format, xv))
		}
		numeric = true
	case []int:
		for _, xv := range x {
			els = append(els, fmt.Sprintf("%d", xv))
		}
		numeric = true
	case []string:
		els = x
	default:
		panic(fmt.Errorf("unsupported data type"))
	}

	c = append(c, els...)

	maxLen := 0
	for _, el := range c {
		if l := len(el); l > maxLen {
			maxLen = l
		}
	}

	for ind, cx := range c {
		padded := cx + strings.Repeat(" ", maxLen-len(cx)+pad)
		if numeric {
			padded = strings.Repeat(" ", maxLen-len(cx)+pad) + cx
		}
		c[ind] = padded
	}

	return c
}

func selectFormat(x []float64) string {
	if len(x) == 0 {
		return "%.2f"
	}

	minX := math.Abs(x[0])
	maxX := math.Abs(x[0])
	for _, xv := range x {
		xva := math.Abs(xv)
		if xva < minX {
			minX = xva
		}

		if xva > maxX {
			maxX = xva
		}
	}

	rangeX := maxX - minX
	l := math.Log10(rangeX)
	var dp int
	switch {
	case rangeX == 0:
		dp = 2
	case l < -1:
		dp = int(math.Abs(l)+0.5) + 1
	case l > 1:
		dp = 0
	default:
		dp = 1
	}

	return "%." + fmt.Sprintf("%d", dp) + "f"
}
