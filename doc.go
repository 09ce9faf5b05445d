/*
Command mtljoin joins the catalogs of a multi-run target simulation into
single truth and target files and derives a merged target list (MTL) from
the joined targets.

Contents

  Program overview
  Command line usage
  Configuration
  Input layout
  Output
  Merged target list


Program overview

A simulation pipeline run in several iterations leaves one directory per
iteration, named output_<id>.  Each holds truth catalogs, describing what
was simulated, and target catalogs, describing what target selection found.
Mtljoin reads them all, stacks truth rows onto truth rows and target rows
onto target rows, computes a merged target list and writes

  final_output/targets.fits
  final_output/truth.fits
  final_output/mtl.fits

Sample run, from the directory holding output_001 and output_002:

  $ mkdir final_output
  $ mtljoin
  ... INFO  read  {"truth": "output_001/truth-64-1.fits", "targets": "output_001/targets-64-1.fits"}
  ... INFO  read  {"truth": "output_002/truth-64-1.fits", "targets": "output_002/targets-64-1.fits"}
  2 run directories, 2 catalog pairs
  final_output/targets.fits                       8 rows
  final_output/truth.fits                         8 rows
  final_output/mtl.fits                           8 rows

The run is a single sequential pass.  Any error, such as an unreadable
catalog, catalogs whose columns do not agree, or a missing destination
directory, stops the program with a message and non-zero exit status.
Files already written by then are left as they are.


Command line usage

  mtljoin [flags]

  Flags:
      --config string           YAML file with flag values
      --dest string             existing output directory (default "final_output")
      --ext string              catalog file extension (default ".fits")
      --log-level string        debug, info, warn, or error (default "info")
      --masks string            YAML targeting mask definitions (default built in)
      --mtl-file string         merged target list output file name (default "mtl.fits")
      --pairing string          how truth files are matched to target files: key or position (default "key")
      --root string             directory containing run directories (default ".")
      --runs string             run directory name pattern (default "output_*")
      --seed uint               subpriority random seed, 0 for a random seed
      --targets-file string     stacked targets output file name (default "targets.fits")
      --targets-prefix string   file name prefix of target catalogs (default "targets")
      --trim                    drop targets that request no observations from the merged target list (default true)
      --truth-file string       stacked truth output file name (default "truth.fits")
      --truth-prefix string     file name prefix of truth catalogs (default "truth")
  -v, --version                 display version and copyright


Configuration

Every flag may also be given as an environment variable, MTLJOIN_ followed
by the flag name in upper case with dashes as underscores, for example
MTLJOIN_DEST=/scratch/final.  A file named with --config supplies values
by flag name:

  dest: /scratch/final
  seed: 3
  pairing: position

Flags take precedence over environment variables, which take precedence
over the config file.


Input layout

Run directories are the entries of --root matching --runs.  They are
processed in lexical order; matches that are plain files or broken links
are skipped.  Within each, the whole tree is searched, also in lexical
order and following symbolic links to directories, for files whose names
start with the truth or targets prefix and end with the extension.  A
directory reached twice through links is searched once.  Each catalog is the first binary table
extension of its FITS file.

Truth and target files are paired.  With the default key pairing, a truth
file matches the target file with the same name once the prefixes are
removed, so truth-64-1234.fits pairs with targets-64-1234.fits.  A file
without a partner is an error.  With position pairing, the n-th truth file
pairs with the n-th target file, and differing counts are an error.

All truth catalogs must have the same columns, by name, order and type, and
likewise all target catalogs.  Character columns may differ in width; the
output uses the widest.  Trailing NUL and space padding of character values
is removed on reading.


Output

Outputs are FITS files with an empty primary HDU and one binary table
extension, TARGETS, TRUTH and MTL when the inputs use those extension
names.  Rows are in run directory order, then pair order.  Character
columns are written one byte wider than their values need.  Existing files
are overwritten in place, not replaced atomically.


Merged target list

The MTL is the stacked target table plus these columns, computed from the
targeting bit columns DESI_TARGET, BGS_TARGET and MWS_TARGET:

  NUMOBS_MORE    largest number of observations requested by any set bit
  PRIORITY       largest priority of any set bit
  OBSCONDITIONS  OR of the observing conditions allowed by the set bits
  SUBPRIORITY    uniform random in [0, 1), only if not already present

NUMOBS_MORE, PRIORITY and OBSCONDITIONS columns already in the targets are
replaced.

Observing conditions are DARK=1, GRAY=2, BRIGHT=4, POOR=8, TWILIGHT12=16
and TWILIGHT18=32.  Targets with NUMOBS_MORE of 0 are dropped unless
--trim=false.  A TARGETID column is required.

The bit definitions can be replaced with --masks, a YAML file of the form

  masks:
    - column: DESI_TARGET
      bits:
        - {name: LRG, bit: 0, priority: 3200, numobs: 2, obsconditions: [DARK]}
        - {name: ELG, bit: 1, priority: 3000, numobs: 1, obsconditions: [DARK, GRAY]}

--seed makes subpriorities repeatable.

-------------
Public domain.
*/
package main
