// Public domain.

package catalog

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoTables is returned by Stack when there is nothing to stack.
var ErrNoTables = errors.New("no tables to stack")

// SchemaError reports a table whose columns differ from the first table
// of a stack.
type SchemaError struct {
	Index  int    // position of the table in the stack
	Source string // file the table was read from, if known
	Reason string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "table %d", e.Index)
	if e.Source > "" {
		fmt.Fprintf(&b, " (%s)", e.Source)
	}
	b.WriteString(": schema mismatch: ")
	b.WriteString(e.Reason)
	return b.String()
}

// CheckSchema verifies that all tables have the columns of the first table,
// by name, order and type.  String columns may differ in width.
func CheckSchema(tables []*Table) error {
	if len(tables) == 0 {
		return nil
	}
	ref := tables[0].Cols
	for i, t := range tables[1:] {
		bad := func(format string, a ...interface{}) error {
			return &SchemaError{
				Index:  i + 1,
				Source: t.Source,
				Reason: fmt.Sprintf(format, a...),
			}
		}
		if len(t.Cols) != len(ref) {
			return bad("%d columns, want %d (%s)",
				len(t.Cols), len(ref), colNames(ref))
		}
		for x, c := range t.Cols {
			switch r := ref[x]; {
			case c.Name != r.Name:
				return bad("column %d is %s, want %s", x, c.Name, r.Name)
			case c.Type != r.Type:
				return bad("column %s has type %v (%s), want %v (%s)",
					c.Name, c.Type, c.Format, r.Type, r.Format)
			}
		}
	}
	return nil
}

// Stack concatenates the rows of tables in order.
//
// The result takes its name and columns from the first table.  Fixed width
// string columns are widened to the widest input.  Rows are shared with the
// input tables.
func Stack(tables []*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	if err := CheckSchema(tables); err != nil {
		return nil, err
	}
	cols := append([]Column{}, tables[0].Cols...)
	n := 0
	for _, t := range tables {
		n += len(t.Rows)
		for x, c := range t.Cols {
			cols[x].Format = widerString(cols[x].Format, c.Format)
		}
	}
	s := New(tables[0].Name, cols)
	s.Rows = make([]Row, 0, n)
	for _, t := range tables {
		s.Rows = append(s.Rows, t.Rows...)
	}
	return s, nil
}

// widerString returns the wider of two string formats, or a unchanged if
// either is not a string format.
func widerString(a, b string) string {
	fa, errA := ParseTForm(a)
	fb, errB := ParseTForm(b)
	if errA != nil || errB != nil || fa.Code != 'A' || fb.Code != 'A' {
		return a
	}
	if fb.Repeat > fa.Repeat {
		return b
	}
	return a
}

func colNames(cols []Column) string {
	n := make([]string, len(cols))
	for i, c := range cols {
		n[i] = c.Name
	}
	return strings.Join(n, " ")
}
