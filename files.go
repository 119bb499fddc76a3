package factdf

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// All code interacting with files is here

const (
	Sep    = ','
	Header = true
	Null   = ""
)

// Files reads and writes delimited text files. A cell equal to Null is read as, and written for, a null.
type Files struct {
	FieldNames []string
	Sep        rune
	Header     bool
	Null       string

	file     *os.File
	fileName string

	rdr *csv.Reader
	wtr *csv.Writer
}

type FileOpt func(f *Files)

func FileSep(sep rune) FileOpt {
	return func(f *Files) { f.Sep = sep }
}

// FileHeader sets whether the first line holds the field names.
func FileHeader(header bool) FileOpt {
	return func(f *Files) { f.Header = header }
}

func FileNull(null string) FileOpt {
	return func(f *Files) { f.Null = null }
}

// FileFieldNames sets the field names, which is required when the file has no header.
func FileFieldNames(names []string) FileOpt {
	return func(f *Files) { f.FieldNames = names }
}

func NewFiles(opts ...FileOpt) *Files {
	f := &Files{
		Sep:    Sep,
		Header: Header,
		Null:   Null,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *Files) Open(fileName string) error {
	var e error
	f.fileName = fileName
	if f.file, e = os.Open(fileName); e != nil {
		return e
	}

	f.rdr = csv.NewReader(f.file)
	f.rdr.Comma = f.Sep
	f.rdr.TrimLeadingSpace = true

	if !f.Header {
		if f.FieldNames == nil {
			return fmt.Errorf("no header in %s and field names not set", fileName)
		}

		f.rdr.FieldsPerRecord = len(f.FieldNames)
		return nil
	}

	var hdr []string
	if hdr, e = f.rdr.Read(); e != nil {
		if e == io.EOF {
			return fmt.Errorf("%s is empty", fileName)
		}

		return e
	}

	for ind := range hdr {
		hdr[ind] = strings.TrimSpace(strings.TrimPrefix(hdr[ind], "\ufeff"))
	}

	f.FieldNames = hdr

	return nil
}

func (f *Files) Create(fileName string) error {
	var e error
	f.fileName = fileName
	if f.file, e = os.Create(fileName); e != nil {
		return e
	}

	f.wtr = csv.NewWriter(f.file)
	f.wtr.Comma = f.Sep

	return nil
}

func (f *Files) FileName() string {
	return f.fileName
}

func (f *Files) Close() error {
	if f.file == nil {
		return fmt.Errorf("no open files")
	}

	if f.wtr != nil {
		f.wtr.Flush()
		if e := f.wtr.Error(); e != nil {
			_ = f.file.Close()
			return e
		}
	}

	e := f.file.Close()
	f.file, f.rdr, f.wtr = nil, nil, nil

	return e
}

// ReadLine returns the next record. Cells equal to Null are returned as nil. It returns io.EOF at the end of the file.
func (f *Files) ReadLine() ([]any, error) {
	if f.rdr == nil {
		return nil, fmt.Errorf("file not open for reading")
	}

	var (
		rec []string
		e   error
	)
	if rec, e = f.rdr.Read(); e != nil {
		return nil, e
	}

	if len(rec) != len(f.FieldNames) {
		line, _ := f.rdr.FieldPos(0)
		return nil, fmt.Errorf("%s line %d: %d fields, expected %d", f.fileName, line, len(rec), len(f.FieldNames))
	}

	row := make([]any, len(rec))
	for ind, cell := range rec {
		if cell == f.Null {
			continue
		}

		row[ind] = cell
	}

	return row, nil
}

func (f *Files) WriteHeader() error {
	if !f.Header {
		return nil
	}

	if f.FieldNames == nil {
		return fmt.Errorf("field names not set in *Files")
	}

	return f.wtr.Write(f.FieldNames)
}

func (f *Files) WriteLine(v []any) error {
	if f.wtr == nil {
		return fmt.Errorf("file not open for writing")
	}

	line := make([]string, len(v))
	for ind := 0; ind < len(v); ind++ {
		var ok bool
		if line[ind], ok = ToString(v[ind]); !ok {
			line[ind] = f.Null
		}
	}

	return f.wtr.Write(line)
}

// Save writes df to fileName in the DF's row order.
func (f *Files) Save(fileName string, df DF) error {
	if e := f.Create(fileName); e != nil {
		return e
	}

	f.FieldNames = df.ColumnNames()
	if e := f.WriteHeader(); e != nil {
		_ = f.Close()
		return e
	}

	row, e := df.Iter(true)
	for ; e == nil; row, e = df.Iter(false) {
		if ex := f.WriteLine(row); ex != nil {
			_ = f.Close()
			return ex
		}
	}

	if e != io.EOF {
		_ = f.Close()
		return e
	}

	return f.Close()
}
