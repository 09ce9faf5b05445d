// Public domain.

// Package joinprog implements the mtljoin command.
package joinprog

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/soniakeys/exit"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/soniakeys/mtljoin/internal/logging"
	"github.com/soniakeys/mtljoin/internal/mtl"
	"github.com/soniakeys/mtljoin/internal/rundir"
)

const versionString = "mtljoin version 0.1 Go source."
const copyrightString = "Public domain."

// environment variables are the flag names, upper case, with this prefix
// and dashes replaced by underscores.
const envPrefix = "MTLJOIN"

func Main() {
	defer exit.Handler()
	if err := NewCommand().Execute(); err != nil {
		exit.Log(err)
	}
}

// NewCommand returns the root command.
func NewCommand() *cobra.Command {
	v := viper.New()
	def := DefaultConfig()
	cmd := &cobra.Command{
		Use:   "mtljoin [flags]",
		Short: "Join per-run truth and target catalogs and derive a merged target list",
		Long: `mtljoin searches a directory for simulation run directories, reads the
truth and target FITS catalogs in each, stacks them, derives a merged target
list from the stacked targets, and writes targets, truth and mtl files to the
destination directory.  Existing output files are overwritten.  The
destination directory must already exist.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v.GetBool("version") {
				fmt.Fprintln(cmd.OutOrStdout(), versionString)
				fmt.Fprintln(cmd.OutOrStdout(), copyrightString)
				return nil
			}
			if fn := v.GetString("config"); fn > "" {
				v.SetConfigFile(fn)
				if err := v.ReadInConfig(); err != nil {
					return err
				}
			}
			cfg, mk, err := configure(v)
			if err != nil {
				return err
			}
			log, err := logging.New(v.GetString("log-level"))
			if err != nil {
				return err
			}
			defer log.Sync()
			res, err := Run(cfg, mk.Make, log)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("config", "", "YAML file with flag values")
	f.String("root", def.Root, "directory containing run directories")
	f.String("runs", def.RunGlob, "run directory name pattern")
	f.String("truth-prefix", def.Match.TruthPrefix, "file name prefix of truth catalogs")
	f.String("targets-prefix", def.Match.TargetsPrefix, "file name prefix of target catalogs")
	f.String("ext", def.Match.Ext, "catalog file extension")
	f.String("pairing", string(def.Match.Pairing),
		"how truth files are matched to target files: key or position")
	f.String("dest", def.DestDir, "existing output directory")
	f.String("targets-file", def.TargetsFile, "stacked targets output file name")
	f.String("truth-file", def.TruthFile, "stacked truth output file name")
	f.String("mtl-file", def.MTLFile, "merged target list output file name")
	f.String("masks", "", "YAML targeting mask definitions (default built in)")
	f.Uint64("seed", 0, "subpriority random seed, 0 for a random seed")
	f.Bool("trim", true, "drop targets that request no observations from the merged target list")
	f.String("log-level", "info", "debug, info, warn, or error")
	f.BoolP("version", "v", false, "display version and copyright")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	f.VisitAll(func(fl *pflag.Flag) {
		// cannot fail for a non-nil flag
		_ = v.BindPFlag(fl.Name, fl)
	})
	return cmd
}

func configure(v *viper.Viper) (Config, *mtl.Maker, error) {
	pairing, err := rundir.ParsePairing(v.GetString("pairing"))
	if err != nil {
		return Config{}, nil, err
	}
	cfg := Config{
		Root:    v.GetString("root"),
		RunGlob: v.GetString("runs"),
		Match: rundir.Match{
			TruthPrefix:   v.GetString("truth-prefix"),
			TargetsPrefix: v.GetString("targets-prefix"),
			Ext:           v.GetString("ext"),
			Pairing:       pairing,
		},
		DestDir:     v.GetString("dest"),
		TargetsFile: v.GetString("targets-file"),
		TruthFile:   v.GetString("truth-file"),
		MTLFile:     v.GetString("mtl-file"),
	}
	if cfg.Match.TruthPrefix == cfg.Match.TargetsPrefix {
		return Config{}, nil, errors.Errorf("truth and targets prefixes are both %q",
			cfg.Match.TruthPrefix)
	}
	mk := &mtl.Maker{Trim: v.GetBool("trim"), Seed: v.GetUint64("seed")}
	if fn := v.GetString("masks"); fn > "" {
		if mk.Masks, err = mtl.LoadMasks(fn); err != nil {
			return Config{}, nil, err
		}
	}
	return cfg, mk, nil
}

func printSummary(w io.Writer, res *Result) {
	fmt.Fprintf(w, "%d run directories, %d catalog pairs\n",
		len(res.RunDirs), len(res.Pairs))
	for _, o := range []Output{res.Targets, res.Truth, res.MTL} {
		fmt.Fprintf(w, "%-40s %8d rows\n", o.Path, o.Rows)
	}
}
