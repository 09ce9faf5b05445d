// Public domain.

package joinprog

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/soniakeys/mtljoin/internal/catalog"
	"github.com/soniakeys/mtljoin/internal/fitstab"
	"github.com/soniakeys/mtljoin/internal/mtl"
	"github.com/soniakeys/mtljoin/internal/rundir"
)

// ErrNoRunDirs is returned when no run directory matches.
var ErrNoRunDirs = errors.New("no run directories found")

// Config locates inputs and outputs of a join.
type Config struct {
	Root        string // directory searched for run directories
	RunGlob     string // run directory name pattern
	Match       rundir.Match
	DestDir     string // must exist
	TargetsFile string
	TruthFile   string
	MTLFile     string
}

// DefaultConfig returns the layout produced by the simulation pipeline.
func DefaultConfig() Config {
	return Config{
		Root:        ".",
		RunGlob:     "output_*",
		Match:       rundir.DefaultMatch(),
		DestDir:     "final_output",
		TargetsFile: "targets.fits",
		TruthFile:   "truth.fits",
		MTLFile:     "mtl.fits",
	}
}

// Output is one written file.
type Output struct {
	Path string
	Rows int
}

// Result summarizes a join.
type Result struct {
	RunDirs []string
	Pairs   []rundir.Pair
	Targets Output
	Truth   Output
	MTL     Output
}

// Run joins the truth and target catalogs of all run directories, derives
// the merged target list with derive, and writes the three output files.
//
// Processing is sequential.  Any error stops the run; output files already
// written are left in place.
func Run(cfg Config, derive mtl.Func, log *zap.Logger) (*Result, error) {
	fi, err := os.Stat(cfg.DestDir)
	switch {
	case err != nil:
		return nil, errors.Wrap(err, "destination directory")
	case !fi.IsDir():
		return nil, errors.Errorf("destination %s is not a directory", cfg.DestDir)
	}

	dirs, err := rundir.Discover(cfg.Root, cfg.RunGlob)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, errors.Wrapf(ErrNoRunDirs, "%s in %s",
			cfg.RunGlob, cfg.Root)
	}
	res := &Result{RunDirs: dirs}

	var allTruth, allTargets []*catalog.Table
	for _, d := range dirs {
		pairs, err := rundir.Collect(d, cfg.Match)
		if err != nil {
			return nil, err
		}
		if len(pairs) == 0 {
			log.Warn("no catalogs in run directory", zap.String("dir", d))
		}
		for _, p := range pairs {
			truth, err := fitstab.ReadFile(p.Truth)
			if err != nil {
				return nil, err
			}
			targets, err := fitstab.ReadFile(p.Targets)
			if err != nil {
				return nil, err
			}
			log.Info("read",
				zap.String("truth", p.Truth),
				zap.String("targets", p.Targets))
			log.Debug("rows",
				zap.Int("truth", truth.Len()),
				zap.Int("targets", targets.Len()))
			allTruth = append(allTruth, truth)
			allTargets = append(allTargets, targets)
		}
		res.Pairs = append(res.Pairs, pairs...)
	}

	targets, err := catalog.Stack(allTargets)
	if err != nil {
		return nil, errors.Wrap(err, "stacking targets")
	}
	truth, err := catalog.Stack(allTruth)
	if err != nil {
		return nil, errors.Wrap(err, "stacking truth")
	}
	m, err := derive(targets)
	if err != nil {
		return nil, errors.Wrap(err, "deriving merged target list")
	}

	for _, o := range []struct {
		out *Output
		fn  string
		t   *catalog.Table
	}{
		{&res.Targets, cfg.TargetsFile, targets},
		{&res.Truth, cfg.TruthFile, truth},
		{&res.MTL, cfg.MTLFile, m},
	} {
		*o.out = Output{Path: filepath.Join(cfg.DestDir, o.fn), Rows: o.t.Len()}
		if err = fitstab.WriteFile(o.out.Path, o.t); err != nil {
			return nil, err
		}
		log.Info("wrote", zap.String("file", o.out.Path), zap.Int("rows", o.out.Rows))
	}
	return res, nil
}
