// Public domain.

package fitstab_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/mtljoin/internal/catalog"
	"github.com/soniakeys/mtljoin/internal/fitstab"
)

func sample(t *testing.T) *catalog.Table {
	tb := catalog.New("TARGETS", []catalog.Column{
		catalog.MustColumn("TARGETID", "K", ""),
		catalog.MustColumn("RA", "D", "deg"),
		catalog.MustColumn("DEC", "D", "deg"),
		catalog.MustColumn("FLUX_G", "E", "nanomaggies"),
		catalog.MustColumn("DESI_TARGET", "K", ""),
		catalog.MustColumn("BRICKNAME", "8A", ""),
		catalog.MustColumn("NOBS", "J", ""),
	})
	for i, b := range []string{"0001p000", "0001p002", "3598m005"} {
		require.NoError(t, tb.Append(catalog.Row{
			int64(100 + i),
			10.5 + float64(i),
			-2.25 * float64(i),
			float32(i) + .5,
			int64(1) << uint(i),
			b,
			int32(i * 3),
		}))
	}
	return tb
}

func TestRoundTrip(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "targets"+fitstab.Ext)
	want := sample(t)
	require.NoError(t, fitstab.WriteFile(fn, want))

	got, err := fitstab.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, fn, got.Source)
	assert.Equal(t, want.Name, got.Name)
	require.Len(t, got.Cols, len(want.Cols))
	for i, c := range got.Cols {
		assert.Equal(t, want.Cols[i].Name, c.Name)
		assert.Equal(t, want.Cols[i].Type, c.Type, c.Name)
	}
	assert.Equal(t, want.Rows, got.Rows)
}

func TestOverwrite(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "t.fits")
	big := sample(t)
	require.NoError(t, fitstab.WriteFile(fn, big))
	small := big.Filter(func(i int, _ catalog.Row) bool { return i == 0 })
	require.NoError(t, fitstab.WriteFile(fn, small))

	got, err := fitstab.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}

func TestWriteMissingDir(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "final_output", "t.fits")
	err := fitstab.WriteFile(fn, sample(t))
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Dir(fn))
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := fitstab.ReadFile(filepath.Join(dir, "missing.fits"))
	assert.Error(t, err)

	junk := filepath.Join(dir, "junk.fits")
	require.NoError(t, os.WriteFile(junk, []byte("not a fits file"), 0o644))
	_, err = fitstab.ReadFile(junk)
	assert.Error(t, err)
}

func TestCharacterColumns(t *testing.T) {
	tb := catalog.New("TRUTH", []catalog.Column{
		catalog.MustColumn("BRICKNAME", "8A", ""),
		catalog.MustColumn("TEMPLATETYPE", "6A", ""),
	})
	for _, r := range []catalog.Row{
		{"0001p000", "ELG"},
		{"3598m005", "STAR"},
		{"0150p020", "QSO"},
	} {
		require.NoError(t, tb.Append(r))
	}
	fn := filepath.Join(t.TempDir(), "truth.fits")
	require.NoError(t, fitstab.WriteFile(fn, tb))
	assert.Equal(t, "8A", tb.Cols[0].Format)

	got, err := fitstab.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, tb.Rows, got.Rows)
}

// card formats one 80 character header record.
func card(key string, val interface{}) string {
	var v string
	switch x := val.(type) {
	case string:
		v = fmt.Sprintf("'%-8s'", x)
	case bool:
		v = fmt.Sprintf("%20s", map[bool]string{true: "T", false: "F"}[x])
	case int:
		v = fmt.Sprintf("%20d", x)
	}
	return fmt.Sprintf("%-80s", fmt.Sprintf("%-8s= %s", key, v))
}

// block pads b to a whole number of 2880 byte FITS blocks.
func block(b []byte, pad byte) []byte {
	if r := len(b) % 2880; r > 0 {
		b = append(b, bytes.Repeat([]byte{pad}, 2880-r)...)
	}
	return b
}

func header(cards ...string) []byte {
	h := strings.Join(cards, "") + fmt.Sprintf("%-80s", "END")
	return block([]byte(h), ' ')
}

// Character cells written by other FITS software have no leading NUL and
// may be padded with NULs or spaces.
func TestReadPaddedStrings(t *testing.T) {
	cells := []string{"ELG\x00\x00\x00\x00\x00", "QSO     ", "LRG_BRGT"}
	var b []byte
	b = append(b, header(
		card("SIMPLE", true),
		card("BITPIX", 8),
		card("NAXIS", 0),
		card("EXTEND", true),
	)...)
	b = append(b, header(
		card("XTENSION", "BINTABLE"),
		card("BITPIX", 8),
		card("NAXIS", 2),
		card("NAXIS1", 8),
		card("NAXIS2", len(cells)),
		card("PCOUNT", 0),
		card("GCOUNT", 1),
		card("TFIELDS", 1),
		card("TTYPE1", "TEMPLATETYPE"),
		card("TFORM1", "8A"),
		card("EXTNAME", "TRUTH"),
	)...)
	b = append(b, block([]byte(strings.Join(cells, "")), 0)...)
	fn := filepath.Join(t.TempDir(), "truth.fits")
	require.NoError(t, os.WriteFile(fn, b, 0o644))

	got, err := fitstab.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, "TRUTH", got.Name)
	assert.Equal(t, "8A", got.Cols[0].Format)
	assert.Equal(t, []catalog.Row{{"ELG"}, {"QSO"}, {"LRG_BRGT"}}, got.Rows)
}
