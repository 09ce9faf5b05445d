// Public domain.

package mtl_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/mtljoin/internal/catalog"
	"github.com/soniakeys/mtljoin/internal/mtl"
)

const (
	lrg    = 1 << 0
	elg    = 1 << 1
	qso    = 1 << 2
	sky    = 1 << 32
	bgsAny = 1 << 60
)

func targets(t *testing.T, desi ...int64) *catalog.Table {
	t.Helper()
	tb := catalog.New("TARGETS", []catalog.Column{
		catalog.MustColumn("TARGETID", "K", ""),
		catalog.MustColumn("RA", "D", "deg"),
		catalog.MustColumn("DESI_TARGET", "K", ""),
	})
	for i, d := range desi {
		require.NoError(t, tb.Append(catalog.Row{int64(i), float64(i), d}))
	}
	return tb
}

func col(t *testing.T, tb *catalog.Table, name string) []int64 {
	t.Helper()
	v, err := tb.Int64s(name)
	require.NoError(t, err)
	return v
}

func TestMake(t *testing.T) {
	in := targets(t, lrg, elg, qso, lrg|qso, bgsAny, sky)
	mk := &mtl.Maker{Seed: 1}
	out, err := mk.Make(in)
	require.NoError(t, err)

	assert.Equal(t, mtl.Name, out.Name)
	assert.Equal(t, 6, out.Len())
	assert.Equal(t, []int64{2, 1, 4, 4, 1, 0}, col(t, out, "NUMOBS_MORE"))
	assert.Equal(t, []int64{3200, 3000, 3400, 3400, 2000, 0}, col(t, out, "PRIORITY"))
	assert.Equal(t, []int64{
		mtl.Dark,
		mtl.Dark | mtl.Gray,
		mtl.Dark,
		mtl.Dark,
		mtl.Bright,
		mtl.Dark | mtl.Gray | mtl.Bright,
	}, col(t, out, "OBSCONDITIONS"))

	names := make([]string, len(out.Cols))
	for i, c := range out.Cols {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"TARGETID", "RA", "DESI_TARGET",
		"NUMOBS_MORE", "PRIORITY", "OBSCONDITIONS", "SUBPRIORITY"}, names)

	// input untouched
	assert.Len(t, in.Cols, 3)
	assert.Len(t, in.Rows[0], 3)
	assert.Equal(t, "TARGETS", in.Name)
}

func TestMakeTrim(t *testing.T) {
	in := targets(t, lrg, sky, 0, elg)
	out, err := (&mtl.Maker{Trim: true, Seed: 1}).Make(in)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 3}, col(t, out, "TARGETID"))
}

func TestMakeOneRowPerTarget(t *testing.T) {
	d := make([]int64, 8)
	for i := range d {
		d[i] = elg
	}
	out, err := (&mtl.Maker{Trim: true}).Make(targets(t, d...))
	require.NoError(t, err)
	assert.Equal(t, 8, out.Len())
}

func TestSubPriority(t *testing.T) {
	in := targets(t, lrg, elg, qso)
	a, err := (&mtl.Maker{Seed: 42}).Make(in)
	require.NoError(t, err)
	b, err := (&mtl.Maker{Seed: 42}).Make(in)
	require.NoError(t, err)
	x := a.Index("SUBPRIORITY")
	require.True(t, x >= 0)
	for i := range a.Rows {
		s := a.Rows[i][x].(float64)
		assert.True(t, s >= 0 && s < 1)
		assert.Equal(t, s, b.Rows[i][x])
	}

	// an existing column is kept
	require.NoError(t, in.AddColumn(mtl.ColSubPriority, []interface{}{.1, .2, .3}))
	c, err := (&mtl.Maker{}).Make(in)
	require.NoError(t, err)
	x = c.Index("SUBPRIORITY")
	assert.Equal(t, []interface{}{.1, .2, .3},
		[]interface{}{c.Rows[0][x], c.Rows[1][x], c.Rows[2][x]})
	assert.Len(t, c.Cols, 7)
}

func TestMakeErrors(t *testing.T) {
	noID := catalog.New("TARGETS", []catalog.Column{
		catalog.MustColumn("DESI_TARGET", "K", ""),
	})
	_, err := (&mtl.Maker{}).Make(noID)
	assert.Error(t, err)

	noMask := catalog.New("TARGETS", []catalog.Column{
		catalog.MustColumn("TARGETID", "K", ""),
	})
	_, err = (&mtl.Maker{}).Make(noMask)
	assert.ErrorContains(t, err, "DESI_TARGET")

	floatMask := catalog.New("TARGETS", []catalog.Column{
		catalog.MustColumn("TARGETID", "K", ""),
		catalog.MustColumn("DESI_TARGET", "D", ""),
	})
	_, err = (&mtl.Maker{}).Make(floatMask)
	assert.Error(t, err)
}

func TestMakeReplacesRequests(t *testing.T) {
	in := targets(t, lrg, qso)
	require.NoError(t, in.AddColumn(catalog.MustColumn("PRIORITY", "K", ""),
		[]interface{}{int64(1), int64(2)}))
	require.NoError(t, in.AddColumn(mtl.ColNumObsMore, []interface{}{int32(9), int32(9)}))

	out, err := (&mtl.Maker{Seed: 1}).Make(in)
	require.NoError(t, err)
	assert.Equal(t, []int64{3200, 3400}, col(t, out, "PRIORITY"))
	assert.Equal(t, []int64{2, 4}, col(t, out, "NUMOBS_MORE"))
	assert.Equal(t, mtl.ColPriority, out.Cols[out.Index("PRIORITY")])
	assert.Len(t, out.Cols, 7)

	// input untouched
	assert.Equal(t, []int64{1, 2}, col(t, in, "PRIORITY"))
	assert.Equal(t, []int64{9, 9}, col(t, in, "NUMOBS_MORE"))
}

func TestMasks(t *testing.T) {
	m := mtl.DefaultMasks()
	assert.Equal(t, []string{"DESI_TARGET", "BGS_TARGET", "MWS_TARGET"}, m.Columns())

	custom := []byte(`
masks:
  - column: SV1_TARGET
    bits:
      - {name: A, bit: 5, priority: 10, numobs: 3, obsconditions: [poor]}
`)
	m, err := mtl.ParseMasks(custom)
	require.NoError(t, err)
	tb := catalog.New("TARGETS", []catalog.Column{
		catalog.MustColumn("TARGETID", "K", ""),
		catalog.MustColumn("SV1_TARGET", "J", ""),
	})
	require.NoError(t, tb.Append(catalog.Row{int64(9), int32(1 << 5)}))
	out, err := (&mtl.Maker{Masks: m}).Make(tb)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, col(t, out, "NUMOBS_MORE"))
	assert.Equal(t, []int64{mtl.Poor}, col(t, out, "OBSCONDITIONS"))

	fn := filepath.Join(t.TempDir(), "masks.yaml")
	require.NoError(t, os.WriteFile(fn, custom, 0o644))
	m, err = mtl.LoadMasks(fn)
	require.NoError(t, err)
	assert.Equal(t, []string{"SV1_TARGET"}, m.Columns())
}

func TestParseMasksErrors(t *testing.T) {
	for name, y := range map[string]string{
		"empty":      `masks: []`,
		"no column":  "masks:\n  - bits: []",
		"dup column": "masks:\n  - column: A\n  - column: A",
		"range":      "masks:\n  - column: A\n    bits:\n      - {name: X, bit: 64}",
		"dup bit":    "masks:\n  - column: A\n    bits:\n      - {name: X, bit: 1}\n      - {name: Y, bit: 1}",
		"dup name":   "masks:\n  - column: A\n    bits:\n      - {name: X, bit: 1}\n      - {name: X, bit: 2}",
		"no name":    "masks:\n  - column: A\n    bits:\n      - {bit: 1}",
		"negative":   "masks:\n  - column: A\n    bits:\n      - {name: X, bit: 1, numobs: -1}",
		"condition":  "masks:\n  - column: A\n    bits:\n      - {name: X, bit: 1, obsconditions: [CLOUDY]}",
		"not yaml":   "masks: [",
	} {
		_, err := mtl.ParseMasks([]byte(y))
		assert.Error(t, err, name)
	}
}
