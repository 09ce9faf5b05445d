// Public domain.

package catalog

import (
	"reflect"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

// binary table TFORM: repeat count, type code, optional trailer such as
// the element code and max length of a variable length array.
var rxTForm = regexp.MustCompile(`^([0-9]*)([LXBIJKAEDCMPQ])(.*)$`)

var codeType = map[byte]reflect.Type{
	'L': reflect.TypeOf(false),
	'B': reflect.TypeOf(uint8(0)),
	'I': reflect.TypeOf(int16(0)),
	'J': reflect.TypeOf(int32(0)),
	'K': reflect.TypeOf(int64(0)),
	'E': reflect.TypeOf(float32(0)),
	'D': reflect.TypeOf(float64(0)),
	'C': reflect.TypeOf(complex64(0)),
	'M': reflect.TypeOf(complex128(0)),
}

// TForm is a parsed binary table column format.
type TForm struct {
	Repeat int  // repeat count, 1 if absent
	Code   byte // type code
	Elem   byte // element code of a P or Q variable length array
}

// ParseTForm parses a FITS binary table TFORM value.
func ParseTForm(format string) (TForm, error) {
	m := rxTForm.FindStringSubmatch(format)
	if m == nil {
		return TForm{}, errors.Errorf("invalid TFORM %q", format)
	}
	f := TForm{Repeat: 1, Code: m[2][0]}
	if m[1] > "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return TForm{}, errors.Errorf("invalid TFORM %q: %v", format, err)
		}
		f.Repeat = n
	}
	if f.Code == 'P' || f.Code == 'Q' {
		if len(m[3]) == 0 {
			return TForm{}, errors.Errorf("invalid TFORM %q: missing array element type", format)
		}
		f.Elem = m[3][0]
	} else if m[3] > "" {
		return TForm{}, errors.Errorf("invalid TFORM %q", format)
	}
	return f, nil
}

// GoType returns the type of cell values for the format.
func (f TForm) GoType() (reflect.Type, error) {
	switch f.Code {
	case 'A':
		return reflect.TypeOf(""), nil
	case 'X':
		return nil, errors.Errorf("bit array columns not supported")
	case 'P', 'Q':
		et, ok := codeType[f.Elem]
		if !ok {
			return nil, errors.Errorf("unsupported array element type %q", f.Elem)
		}
		return reflect.SliceOf(et), nil
	}
	t := codeType[f.Code]
	switch {
	case f.Repeat < 1:
		return nil, errors.Errorf("empty column (repeat %d) not supported", f.Repeat)
	case f.Repeat > 1:
		return reflect.ArrayOf(f.Repeat, t), nil
	}
	return t, nil
}
