// Public domain.

// Package rundir finds simulation run directories and the truth and target
// catalog files within them.
package rundir

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Pairing selects how truth files are matched with target files.
type Pairing string

const (
	// PairByKey matches files whose names agree once the kind prefix is
	// removed.
	PairByKey Pairing = "key"
	// PairByPosition matches the n-th truth file with the n-th target file.
	PairByPosition Pairing = "position"
)

// ParsePairing validates a pairing name.
func ParsePairing(s string) (Pairing, error) {
	switch p := Pairing(s); p {
	case PairByKey, PairByPosition:
		return p, nil
	}
	return "", errors.Errorf("unknown pairing %q (expected %s or %s)",
		s, PairByKey, PairByPosition)
}

// Match says which files in a run directory are catalogs.
type Match struct {
	TruthPrefix   string
	TargetsPrefix string
	Ext           string
	Pairing       Pairing
}

// DefaultMatch returns the file naming used by the simulation pipeline.
func DefaultMatch() Match {
	return Match{
		TruthPrefix:   "truth",
		TargetsPrefix: "targets",
		Ext:           ".fits",
		Pairing:       PairByKey,
	}
}

// Pair is a truth file and the target file for the same sub-run.
type Pair struct {
	Key     string
	Truth   string
	Targets string
}

// PairError reports catalog files that could not be paired.
type PairError struct {
	Dir     string
	Truth   []string // truth files without a target file
	Targets []string // target files without a truth file
}

func (e *PairError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: unpaired catalog files", e.Dir)
	if len(e.Truth) > 0 {
		fmt.Fprintf(&b, "; truth: %s", strings.Join(e.Truth, ", "))
	}
	if len(e.Targets) > 0 {
		fmt.Fprintf(&b, "; targets: %s", strings.Join(e.Targets, ", "))
	}
	return b.String()
}

// Discover returns the directories in root whose names match pattern, in
// lexical order.  Matches that are not directories, including broken
// symbolic links, are ignored.
func Discover(root, pattern string) ([]string, error) {
	m, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "run directory pattern %q", pattern)
	}
	var dirs []string
	for _, p := range m {
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			dirs = append(dirs, p)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Collect finds the truth and target files under dir and pairs them.
//
// The tree is walked in lexical order, following symbolic links to
// directories.  A file is a catalog of a kind when its base name starts with
// the kind prefix and ends with m.Ext.
func Collect(dir string, m Match) ([]Pair, error) {
	var truth, targets []string
	w := walker{seen: map[string]bool{}}
	err := w.walk(dir, func(p, name string) {
		if !strings.HasSuffix(name, m.Ext) {
			return
		}
		switch {
		case strings.HasPrefix(name, m.TruthPrefix):
			truth = append(truth, p)
		case strings.HasPrefix(name, m.TargetsPrefix):
			targets = append(targets, p)
		}
	})
	if err != nil {
		return nil, err
	}
	switch m.Pairing {
	case PairByKey, "":
		return byKey(dir, m, truth, targets)
	case PairByPosition:
		return byPosition(dir, truth, targets)
	}
	return nil, errors.Errorf("unknown pairing %q", m.Pairing)
}

// walker visits the files of a tree, descending into linked directories.
// Each real directory is visited once so link cycles terminate.
type walker struct {
	seen map[string]bool
}

func (w walker) walk(dir string, visit func(p, name string)) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	if w.seen[real] {
		return nil
	}
	w.seen[real] = true
	ents, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range ents {
		p := filepath.Join(dir, e.Name())
		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			// a broken link counts as a file
			fi, err := os.Stat(p)
			isDir = err == nil && fi.IsDir()
		}
		if !isDir {
			visit(p, e.Name())
			continue
		}
		if err = w.walk(p, visit); err != nil {
			return err
		}
	}
	return nil
}

// key is the path relative to dir with prefix removed from the base name.
func key(dir, prefix, p string) string {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		rel = p
	}
	d, n := filepath.Split(rel)
	return d + strings.TrimPrefix(n, prefix)
}

func byKey(dir string, m Match, truth, targets []string) ([]Pair, error) {
	tgt := make(map[string]string, len(targets))
	for _, p := range targets {
		tgt[key(dir, m.TargetsPrefix, p)] = p
	}
	var pairs []Pair
	e := &PairError{Dir: dir}
	for _, p := range truth {
		k := key(dir, m.TruthPrefix, p)
		tp, ok := tgt[k]
		if !ok {
			e.Truth = append(e.Truth, p)
			continue
		}
		delete(tgt, k)
		pairs = append(pairs, Pair{Key: k, Truth: p, Targets: tp})
	}
	for _, p := range tgt {
		e.Targets = append(e.Targets, p)
	}
	if len(e.Truth) > 0 || len(e.Targets) > 0 {
		sort.Strings(e.Targets)
		return nil, e
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs, nil
}

func byPosition(dir string, truth, targets []string) ([]Pair, error) {
	if n := len(truth) - len(targets); n != 0 {
		e := &PairError{Dir: dir}
		if n > 0 {
			e.Truth = truth[len(targets):]
		} else {
			e.Targets = targets[len(truth):]
		}
		return nil, e
	}
	pairs := make([]Pair, len(truth))
	for i := range truth {
		pairs[i] = Pair{Key: fmt.Sprint(i), Truth: truth[i], Targets: targets[i]}
	}
	return pairs, nil
}
