// Public domain.

// Package mtl derives a merged target list from a target catalog.
//
// The merged target list is the target catalog plus the observing requests
// implied by each target's mask bits: how many more observations it needs,
// its fiber assignment priority, and the conditions it may be observed in.
// Targets requesting no observations are dropped when trimming.
package mtl

import (
	"reflect"
	"time"

	"github.com/pkg/errors"
	xrand "golang.org/x/exp/rand"

	"github.com/soniakeys/mtljoin/internal/catalog"
)

// Func derives a merged target list from a stacked target table.
type Func func(targets *catalog.Table) (*catalog.Table, error)

// Name is the extension name of a merged target list.
const Name = "MTL"

// Columns added to the target catalog.
var (
	ColNumObsMore    = catalog.MustColumn("NUMOBS_MORE", "J", "")
	ColPriority      = catalog.MustColumn("PRIORITY", "J", "")
	ColObsConditions = catalog.MustColumn("OBSCONDITIONS", "J", "")
	ColSubPriority   = catalog.MustColumn("SUBPRIORITY", "D", "")
)

// Maker computes merged target lists.
type Maker struct {
	Masks *Masks // nil for DefaultMasks
	Trim  bool   // drop targets with no observations requested
	Seed  uint64 // subpriority seed; 0 seeds from the clock
}

// Make derives the merged target list.  It satisfies Func.
//
// The targets table must have an integer TARGETID column and at least one
// of the mask columns.  It is not modified.
func (mk *Maker) Make(targets *catalog.Table) (*catalog.Table, error) {
	masks := mk.Masks
	if masks == nil {
		masks = DefaultMasks()
	}
	if _, err := targets.Int64s("TARGETID"); err != nil {
		return nil, err
	}
	n := targets.Len()
	numObs := make([]interface{}, n)
	priority := make([]interface{}, n)
	cond := make([]interface{}, n)
	np, no, nc := make([]int32, n), make([]int32, n), make([]int32, n)
	found := 0
	for _, m := range masks.Masks {
		if targets.Index(m.Column) < 0 {
			continue
		}
		found++
		v, err := targets.Int64s(m.Column)
		if err != nil {
			return nil, err
		}
		for i, t := range v {
			for _, b := range m.Bits {
				if t&(1<<uint(b.Bit)) == 0 {
					continue
				}
				if b.Priority > np[i] {
					np[i] = b.Priority
				}
				if b.NumObs > no[i] {
					no[i] = b.NumObs
				}
				nc[i] |= b.cond
			}
		}
	}
	if found == 0 {
		return nil, errors.Errorf("table %s: no targeting mask column (want one of %v)",
			targets.Name, masks.Columns())
	}
	for i := range numObs {
		numObs[i] = no[i]
		priority[i] = np[i]
		cond[i] = nc[i]
	}

	out := targets.Copy()
	out.Name = Name
	for _, c := range []struct {
		col  catalog.Column
		vals []interface{}
	}{
		{ColNumObsMore, numObs},
		{ColPriority, priority},
		{ColObsConditions, cond},
	} {
		if err := out.SetColumn(c.col, c.vals); err != nil {
			return nil, err
		}
	}
	// keep subpriorities assigned upstream
	if x := out.Index(ColSubPriority.Name); x < 0 {
		if err := out.AddColumn(ColSubPriority, mk.subPriorities(n)); err != nil {
			return nil, err
		}
	} else if k := out.Cols[x].Type.Kind(); k != reflect.Float64 && k != reflect.Float32 {
		return nil, errors.Errorf("table %s: SUBPRIORITY has type %v, want float",
			targets.Name, out.Cols[x].Type)
	}
	if !mk.Trim {
		return out, nil
	}
	x := out.Index(ColNumObsMore.Name)
	return out.Filter(func(_ int, r catalog.Row) bool {
		return r[x].(int32) > 0
	}), nil
}

func (mk *Maker) subPriorities(n int) []interface{} {
	rnd := xrand.New(&xrand.PCGSource{})
	if mk.Seed != 0 {
		rnd.Seed(mk.Seed)
	} else {
		rnd.Seed(uint64(time.Now().UnixNano()))
	}
	s := make([]interface{}, n)
	for i := range s {
		s[i] = rnd.Float64()
	}
	return s
}
