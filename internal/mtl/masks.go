// Public domain.

package mtl

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Observing condition bits of the OBSCONDITIONS column.
const (
	Dark       = 1 << iota
	Gray
	Bright
	Poor
	Twilight12
	Twilight18
)

var obsConditions = map[string]int32{
	"DARK":       Dark,
	"GRAY":       Gray,
	"BRIGHT":     Bright,
	"POOR":       Poor,
	"TWILIGHT12": Twilight12,
	"TWILIGHT18": Twilight18,
}

//go:embed masks.yaml
var defaultMasks []byte

// Bit is one targeting bit and the observations it requests.
type Bit struct {
	Name          string   `yaml:"name"`
	Bit           int      `yaml:"bit"`
	Priority      int32    `yaml:"priority"`
	NumObs        int32    `yaml:"numobs"`
	ObsConditions []string `yaml:"obsconditions"`

	cond int32
}

// Mask is the set of bits stored in one integer column.
type Mask struct {
	Column string `yaml:"column"`
	Bits   []Bit  `yaml:"bits"`
}

// Masks lists the targeting mask columns understood by Maker.
type Masks struct {
	Masks []Mask `yaml:"masks"`
}

// DefaultMasks returns the built in mask definitions.
func DefaultMasks() *Masks {
	m, err := ParseMasks(defaultMasks)
	if err != nil {
		panic(err)
	}
	return m
}

// LoadMasks reads mask definitions from a YAML file.
func LoadMasks(fn string) (*Masks, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	m, err := ParseMasks(b)
	return m, errors.Wrap(err, fn)
}

// ParseMasks parses and validates YAML mask definitions.
func ParseMasks(data []byte) (*Masks, error) {
	var m Masks
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(m.Masks) == 0 {
		return nil, errors.New("no masks defined")
	}
	cols := map[string]bool{}
	for i := range m.Masks {
		mk := &m.Masks[i]
		if mk.Column == "" {
			return nil, errors.Errorf("mask %d: missing column", i)
		}
		if cols[mk.Column] {
			return nil, errors.Errorf("mask %s: defined twice", mk.Column)
		}
		cols[mk.Column] = true
		bits := map[int]string{}
		names := map[string]bool{}
		for j := range mk.Bits {
			b := &mk.Bits[j]
			switch {
			case b.Name == "":
				return nil, errors.Errorf("mask %s: bit %d has no name", mk.Column, b.Bit)
			case b.Bit < 0 || b.Bit > 63:
				return nil, errors.Errorf("mask %s: %s: bit %d out of range 0-63",
					mk.Column, b.Name, b.Bit)
			case bits[b.Bit] > "":
				return nil, errors.Errorf("mask %s: %s and %s both use bit %d",
					mk.Column, bits[b.Bit], b.Name, b.Bit)
			case names[b.Name]:
				return nil, errors.Errorf("mask %s: bit name %s used twice", mk.Column, b.Name)
			case b.Priority < 0 || b.NumObs < 0:
				return nil, errors.Errorf("mask %s: %s: negative priority or numobs",
					mk.Column, b.Name)
			}
			bits[b.Bit] = b.Name
			names[b.Name] = true
			b.cond = 0
			for _, c := range b.ObsConditions {
				v, ok := obsConditions[strings.ToUpper(c)]
				if !ok {
					return nil, errors.Errorf("mask %s: %s: unknown obscondition %q (known: %s)",
						mk.Column, b.Name, c, knownConditions())
				}
				b.cond |= v
			}
		}
	}
	return &m, nil
}

// Columns returns the mask column names.
func (m *Masks) Columns() []string {
	c := make([]string, len(m.Masks))
	for i, mk := range m.Masks {
		c[i] = mk.Column
	}
	return c
}

func knownConditions() string {
	k := make([]string, 0, len(obsConditions))
	for c := range obsConditions {
		k = append(k, c)
	}
	sort.Strings(k)
	return strings.Join(k, " ")
}
