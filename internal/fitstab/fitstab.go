// Public domain.

// Package fitstab reads and writes catalog tables as FITS binary tables.
package fitstab

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"

	"github.com/soniakeys/mtljoin/internal/catalog"
)

// Ext is the conventional file extension.
const Ext = ".fits"

// ReadFile reads the first binary table extension of a FITS file.
//
// The returned table has Source set to fn and Name set to the extension
// name.
func ReadFile(fn string) (t *catalog.Table, err error) {
	var f *os.File
	f, err = os.Open(fn)
	if err != nil {
		return
	}
	defer f.Close()
	ff, err := fitsio.Open(f)
	if err != nil {
		return nil, errors.Wrap(err, fn)
	}
	defer ff.Close()
	for _, hdu := range ff.HDUs() {
		if hdu.Type() != fitsio.BINARY_TBL {
			continue
		}
		if t, err = readTable(hdu.(*fitsio.Table)); err != nil {
			return nil, errors.Wrap(err, fn)
		}
		t.Source = fn
		return t, nil
	}
	return nil, errors.Errorf("%s: no binary table extension", fn)
}

func readTable(ft *fitsio.Table) (*catalog.Table, error) {
	fcols := ft.Cols()
	cols := make([]catalog.Column, len(fcols))
	for i, fc := range fcols {
		c, err := catalog.NewColumn(fc.Name, fc.Format, fc.Unit)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	t := catalog.New(ft.Name(), cols)
	rows, err := ft.Read(0, ft.NumRows())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	t.Rows = make([]catalog.Row, 0, ft.NumRows())
	ptrs := make([]interface{}, len(cols))
	for rows.Next() {
		for i, c := range cols {
			ptrs[i] = reflect.New(c.Type).Interface()
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrapf(err, "row %d", len(t.Rows))
		}
		r := make(catalog.Row, len(cols))
		for i, p := range ptrs {
			r[i] = reflect.ValueOf(p).Elem().Interface()
			if s, ok := r[i].(string); ok {
				// NUL or space padding is not part of the value
				r[i] = strings.TrimRight(strings.TrimLeft(s, "\x00"), "\x00 ")
			}
		}
		t.Rows = append(t.Rows, r)
	}
	return t, rows.Err()
}

// WriteFile writes t as a FITS file with an empty primary HDU followed by
// a single binary table extension.
//
// An existing file is truncated and overwritten in place.  The directory
// must exist.
func WriteFile(fn string, t *catalog.Table) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err = write(f, t); err != nil {
		f.Close()
		return errors.Wrap(err, fn)
	}
	return f.Close()
}

func write(f *os.File, t *catalog.Table) error {
	ff, err := fitsio.Create(f)
	if err != nil {
		return err
	}
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return err
	}
	if err = ff.Write(phdu); err != nil {
		return err
	}
	fcols := make([]fitsio.Column, len(t.Cols))
	for i, c := range t.Cols {
		fcols[i] = fitsio.Column{Name: c.Name, Format: fileFormat(c.Format), Unit: c.Unit}
	}
	ft, err := fitsio.NewTable(t.Name, fcols, fitsio.BINARY_TBL)
	if err != nil {
		return err
	}
	defer ft.Close()
	ptrs := make([]interface{}, len(t.Cols))
	for x, r := range t.Rows {
		for i, c := range t.Cols {
			p := reflect.New(c.Type)
			p.Elem().Set(reflect.ValueOf(r[i]))
			ptrs[i] = p.Interface()
		}
		if err = ft.Write(ptrs...); err != nil {
			return errors.Wrapf(err, "row %d", x)
		}
	}
	if err = ff.Write(ft); err != nil {
		return err
	}
	return ff.Close()
}

// fileFormat returns the TFORM to write for a column of the given format.
//
// fitsio stores a NUL before each character value, so character columns
// get one more byte than their values need.
func fileFormat(format string) string {
	f, err := catalog.ParseTForm(format)
	if err != nil || f.Code != 'A' {
		return format
	}
	return fmt.Sprintf("%dA", f.Repeat+1)
}
