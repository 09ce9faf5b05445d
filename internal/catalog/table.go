// Public domain.

// Package catalog holds catalog tables in memory and stacks them.
//
// A table is a list of typed columns and a list of rows.  Cell values are
// stored as interface{} holding exactly the Go type of their column, which
// is derived from the column's FITS TFORM.
package catalog

import (
	"reflect"

	"github.com/pkg/errors"
)

// Column describes one table column.
type Column struct {
	Name   string
	Format string // FITS binary table TFORM
	Unit   string
	Type   reflect.Type
}

// NewColumn constructs a column, deriving its Go type from format.
func NewColumn(name, format, unit string) (Column, error) {
	f, err := ParseTForm(format)
	if err != nil {
		return Column{}, errors.Wrapf(err, "column %s", name)
	}
	t, err := f.GoType()
	if err != nil {
		return Column{}, errors.Wrapf(err, "column %s", name)
	}
	return Column{Name: name, Format: format, Unit: unit, Type: t}, nil
}

// MustColumn is like NewColumn but panics on an invalid format.
func MustColumn(name, format, unit string) Column {
	c, err := NewColumn(name, format, unit)
	if err != nil {
		panic(err)
	}
	return c
}

// Row holds one value per column.
type Row []interface{}

// Table is an in-memory catalog table.
type Table struct {
	Name   string // extension name
	Source string // file the table was read from, if any
	Cols   []Column
	Rows   []Row
}

// New allocates an empty table.
func New(name string, cols []Column) *Table {
	return &Table{Name: name, Cols: append([]Column{}, cols...)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the index of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Append adds a row after checking it against the columns.
func (t *Table) Append(r Row) error {
	if len(r) != len(t.Cols) {
		return errors.Errorf("row has %d values, table %s has %d columns",
			len(r), t.Name, len(t.Cols))
	}
	for i, v := range r {
		if vt := reflect.TypeOf(v); vt != t.Cols[i].Type {
			return errors.Errorf("column %s: value of type %v, want %v",
				t.Cols[i].Name, vt, t.Cols[i].Type)
		}
	}
	t.Rows = append(t.Rows, r)
	return nil
}

// Int64s returns the named integer column converted to int64.
func (t *Table) Int64s(name string) ([]int64, error) {
	x := t.Index(name)
	if x < 0 {
		return nil, errors.Errorf("table %s: no column %s", t.Name, name)
	}
	var conv func(reflect.Value) int64
	switch t.Cols[x].Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		conv = reflect.Value.Int
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		conv = func(v reflect.Value) int64 { return int64(v.Uint()) }
	default:
		return nil, errors.Errorf("table %s: column %s has type %v, want integer",
			t.Name, name, t.Cols[x].Type)
	}
	s := make([]int64, len(t.Rows))
	for i, r := range t.Rows {
		s[i] = conv(reflect.ValueOf(r[x]))
	}
	return s, nil
}

// AddColumn appends a column with one value per existing row.
func (t *Table) AddColumn(c Column, vals []interface{}) error {
	if t.Index(c.Name) >= 0 {
		return errors.Errorf("table %s: duplicate column %s", t.Name, c.Name)
	}
	if err := t.checkValues(c, vals); err != nil {
		return err
	}
	t.Cols = append(t.Cols, c)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], vals[i])
	}
	return nil
}

// SetColumn replaces the named column and its values in place, or appends
// the column if the table does not have it.  Rows shared with other tables
// see the new values.
func (t *Table) SetColumn(c Column, vals []interface{}) error {
	x := t.Index(c.Name)
	if x < 0 {
		return t.AddColumn(c, vals)
	}
	if err := t.checkValues(c, vals); err != nil {
		return err
	}
	t.Cols[x] = c
	for i, r := range t.Rows {
		r[x] = vals[i]
	}
	return nil
}

func (t *Table) checkValues(c Column, vals []interface{}) error {
	if len(vals) != len(t.Rows) {
		return errors.Errorf("column %s: %d values for %d rows",
			c.Name, len(vals), len(t.Rows))
	}
	for i, v := range vals {
		if vt := reflect.TypeOf(v); vt != c.Type {
			return errors.Errorf("column %s row %d: value of type %v, want %v",
				c.Name, i, vt, c.Type)
		}
	}
	return nil
}

// Filter returns a new table holding the rows for which keep is true.
// Rows are shared, not copied.
func (t *Table) Filter(keep func(i int, r Row) bool) *Table {
	f := New(t.Name, t.Cols)
	f.Source = t.Source
	for i, r := range t.Rows {
		if keep(i, r) {
			f.Rows = append(f.Rows, r)
		}
	}
	return f
}

// Copy returns a table with its own columns and rows.
func (t *Table) Copy() *Table {
	c := New(t.Name, t.Cols)
	c.Source = t.Source
	c.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		c.Rows[i] = append(Row{}, r...)
	}
	return c
}
