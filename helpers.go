package factdf

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	// ErrStructural marks a missing table, a missing column or a type mismatch. It is never retried.
	ErrStructural = errors.New("structural error")

	// ErrUnmatched is returned when a join discards rows and the caller asked to fail on drops.
	ErrUnmatched = errors.New("unmatched rows")
)

func Has[C comparable](needle C, haystack []C) bool {
	return Position(needle, haystack) >= 0
}

func Position[C comparable](needle C, haystack []C) int {
	for ind, straw := range haystack {
		if needle == straw {
			return ind
		}
	}

	return -1
}

// RandomLetters generates a string of length "length" by randomly choosing from a-z
func RandomLetters(length int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"

	var (
		randN []int64
		e     error
	)
	if randN, e = randUnifInt(length, len(letters)); e != nil {
		panic(e)
	}

	name := ""
	for ind := 0; ind < length; ind++ {
		name += letters[randN[ind] : randN[ind]+1]
	}

	return name
}

// randUnifInt generates a slice whose elements are random U[0,upper) int64's
func randUnifInt(n, upper int) ([]int64, error) {
	const bytesPerInt = 8

	// generate random bytes
	b1 := make([]byte, bytesPerInt*n)
	if _, e := rand.Read(b1); e != nil {
		return nil, e
	}

	outInts := make([]int64, n)
	rdr := bytes.NewReader(b1)

	for ind := 0; ind < n; ind++ {
		r, e := rand.Int(rdr, big.NewInt(int64(upper)))
		if e != nil {
			return nil, e
		}
		outInts[ind] = r.Int64()
	}

	return outInts, nil
}

// validName checks name is usable as a column name, or as a table name if table is true.
// Table names may be qualified with a database or schema ("db.table").
func validName(name string, table bool) error {
	const illegal = "!@#$%^&*()=+-;:'`/,>< ~?[]{}|\\" + `"`

	if name == "" {
		return fmt.Errorf("empty name")
	}

	if strings.ContainsAny(name, illegal) {
		return fmt.Errorf("illegal name: %s", name)
	}

	if strings.Contains(name, ".") && !table {
		return fmt.Errorf("illegal column name: %s", name)
	}

	for _, part := range strings.Split(name, ".") {
		if part == "" || (part[0] >= '0' && part[0] <= '9') {
			return fmt.Errorf("illegal name: %s", name)
		}
	}

	return nil
}

// ValidTableName returns an error if name cannot be used as a table name.
func ValidTableName(name string) error {
	return validName(name, true)
}
