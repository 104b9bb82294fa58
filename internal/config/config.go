// config.go --  This file is part of goCI project.
//
//	goCI is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
//	You should have received a copy of the GNU General Public License
//	along with this program.  If not, see http://www.gnu.org/licenses/
//
// ------------------------------------------------

// Package config reads the YAML input of a CI run.
package config

import (
	"bytes"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"example.com/goci/internal/basis"
	"example.com/goci/internal/eigen"
	"example.com/goci/internal/hamiltonian"
	"example.com/goci/internal/nucleus"
	"example.com/goci/internal/symmetry"
)

var ErrInvalid = errors.New("invalid input")

const (
	DefaultSolutions = 6
	defaultBoxMaxPQN = 100
)

type Config struct {
	Workers        int             `yaml:"workers"`
	Solutions      int             `yaml:"solutions"`
	GFactors       bool            `yaml:"gfactors"`
	IsotopeShift   bool            `yaml:"isotope_shift"`
	PollMatrix     bool            `yaml:"poll_matrix"`
	PrintMatrix    bool            `yaml:"print_matrix"`
	Threshold      *float64        `yaml:"threshold"`
	Nucleus        NucleusConfig   `yaml:"nucleus"`
	Orbitals       []string        `yaml:"orbitals"`
	Symmetries     SymmetryConfig  `yaml:"symmetries"`
	Configurations []string        `yaml:"configurations"`
	Leading        []string        `yaml:"leading"`
	Integrals      IntegralsConfig `yaml:"integrals"`
	Eigen          EigenConfig     `yaml:"eigen"`
	Metrics        MetricsConfig   `yaml:"metrics"`
}

type NucleusConfig struct {
	Symbol string  `yaml:"symbol"`
	Mass   float64 `yaml:"mass"`
}

type SymmetryConfig struct {
	EvenTwoJ []int `yaml:"even_two_j"`
	OddTwoJ  []int `yaml:"odd_two_j"`
}

type IntegralsConfig struct {
	File          string    `yaml:"file"`
	NumFiles      int       `yaml:"num_files"`
	MBPT          bool      `yaml:"mbpt"`
	IncludeSigma1 bool      `yaml:"include_sigma1"`
	IncludeMBPT1  bool      `yaml:"include_mbpt1"`
	IncludeMBPT2  bool      `yaml:"include_mbpt2"`
	OpenShellCore bool      `yaml:"open_shell_core"`
	ExtraBox      BoxConfig `yaml:"extra_box"`
}

type BoxConfig struct {
	Enabled bool   `yaml:"enabled"`
	MaxPQN  [3]int `yaml:"max_pqn"`
}

type EigenConfig struct {
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
	MaxSubspace   int     `yaml:"max_subspace"`
	// DenseLimit: see eigen.Settings; -1 always iterates.
	DenseLimit int `yaml:"dense_limit"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file"`
}

// Load reads, completes and validates an input file.
func Load(fname string) (*Config, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read input file")
	}
	return Parse(data)
}

// Parse rejects unknown keys so that misspelled options are not silently
// ignored.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, errors.Wrapf(ErrInvalid, "%v", err)
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Solutions == 0 {
		c.Solutions = DefaultSolutions
	}
	if c.Integrals.NumFiles == 0 {
		c.Integrals.NumFiles = 1
	}
	for i, limit := range c.Integrals.ExtraBox.MaxPQN {
		if limit == 0 {
			c.Integrals.ExtraBox.MaxPQN[i] = defaultBoxMaxPQN
		}
	}
}

// Validate checks everything that can be checked without integrals.
// Missing symmetries are not an input error here; Symmetries reports them
// with symmetry.ErrNoSymmetries.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.Wrapf(ErrInvalid, format, args...)
	}
	if c.Workers < 1 {
		return invalid("workers = %d", c.Workers)
	}
	if c.Solutions < 1 {
		return invalid("solutions = %d", c.Solutions)
	}
	if c.Threshold != nil && *c.Threshold < 0 {
		return invalid("negative threshold %g", *c.Threshold)
	}
	if c.Integrals.NumFiles < 1 {
		return invalid("integrals.num_files = %d", c.Integrals.NumFiles)
	}
	if !c.Integrals.MBPT && (c.Integrals.IncludeSigma1 || c.Integrals.IncludeMBPT1 ||
		c.Integrals.IncludeMBPT2 || c.Integrals.ExtraBox.Enabled) {
		return invalid("MBPT options need integrals.mbpt")
	}
	if c.Nucleus.Symbol != "" {
		if _, err := c.NucleusData(); err != nil {
			return invalid("%v", err)
		}
	}
	if len(c.Configurations) == 0 {
		return invalid("no configurations")
	}
	configs, err := c.RelativisticConfigurations()
	if err != nil {
		return invalid("%v", err)
	}
	for _, rc := range configs[1:] {
		if rc.NumParticles() != configs[0].NumParticles() {
			return invalid("configuration %s has %d electrons, %s has %d",
				rc.Name(), rc.NumParticles(), configs[0].Name(), configs[0].NumParticles())
		}
	}
	seen := make(map[string]bool, len(configs))
	for _, rc := range configs {
		if seen[rc.Name()] {
			return invalid("configuration %s listed twice", rc.Name())
		}
		seen[rc.Name()] = true
	}
	orbitals, err := c.OrbitalList()
	if err != nil {
		return invalid("%v", err)
	}
	known := make(map[basis.OrbitalInfo]bool, len(orbitals))
	for _, o := range orbitals {
		known[o] = true
	}
	for _, rc := range configs {
		for _, s := range rc.Shells() {
			if !known[s.Orbital] {
				return invalid("orbital %s of %s is not in the orbital list", s.Orbital.Name(), rc.Name())
			}
		}
	}
	if _, err := c.LeadingConfigurations(); err != nil {
		return invalid("%v", err)
	}
	return nil
}

// SymmetryList returns the requested symmetries in order.
func (c *Config) SymmetryList() ([]symmetry.Symmetry, error) {
	return symmetry.Choose(c.Symmetries.EvenTwoJ, c.Symmetries.OddTwoJ)
}

// RelativisticConfigurations parses the configuration list anew, so each
// call returns configurations without J states.
func (c *Config) RelativisticConfigurations() ([]*basis.RelativisticConfiguration, error) {
	result := make([]*basis.RelativisticConfiguration, 0, len(c.Configurations))
	for _, s := range c.Configurations {
		rc, err := basis.ParseRelativisticConfiguration(s)
		if err != nil {
			return nil, errors.Wrapf(err, "configuration %q", s)
		}
		result = append(result, rc)
	}
	return result, nil
}

// ConfigList builds the basis of one symmetry: the configurations of
// matching parity that have at least one J state.
func (c *Config) ConfigList(sym symmetry.Symmetry) (basis.RelativisticConfigList, error) {
	configs, err := c.RelativisticConfigurations()
	if err != nil {
		return nil, err
	}
	var list basis.RelativisticConfigList
	for _, rc := range configs {
		if rc.Parity() != sym.Parity {
			continue
		}
		if (rc.NumParticles()+sym.TwoJ)%2 != 0 {
			continue
		}
		if err := rc.GenerateJStates(sym.TwoJ); err != nil {
			return nil, errors.Wrapf(err, "J states of %s", rc.Name())
		}
		if rc.NumJStates() == 0 {
			continue
		}
		list = append(list, rc)
	}
	return list, list.Validate()
}

// OrbitalList is the explicit orbital list, or the orbitals used by the
// configurations when none is given.
func (c *Config) OrbitalList() ([]basis.OrbitalInfo, error) {
	if len(c.Orbitals) == 0 {
		configs, err := c.RelativisticConfigurations()
		if err != nil {
			return nil, err
		}
		return basis.RelativisticConfigList(configs).Orbitals(), nil
	}
	result := make([]basis.OrbitalInfo, 0, len(c.Orbitals))
	seen := make(map[basis.OrbitalInfo]bool)
	for _, name := range c.Orbitals {
		o, err := basis.ParseOrbital(name)
		if err != nil {
			return nil, err
		}
		if seen[o] {
			return nil, errors.Errorf("orbital %s listed twice", name)
		}
		seen[o] = true
		result = append(result, o)
	}
	return result, nil
}

func (c *Config) LeadingConfigurations() ([]basis.Configuration, error) {
	result := make([]basis.Configuration, 0, len(c.Leading))
	for _, s := range c.Leading {
		nr, err := basis.ParseConfiguration(s)
		if err != nil {
			return nil, errors.Wrapf(err, "leading configuration %q", s)
		}
		result = append(result, nr)
	}
	return result, nil
}

// NucleusData resolves the nucleus; without a symbol the mass shift is
// switched off.
func (c *Config) NucleusData() (nucleus.Nucleus, error) {
	if c.Nucleus.Symbol == "" {
		return nucleus.Nucleus{}, nil
	}
	return nucleus.New(c.Nucleus.Symbol, c.Nucleus.Mass)
}

func (c *Config) MatrixThreshold() float64 {
	if c.Threshold == nil {
		return hamiltonian.DefaultThreshold
	}
	return *c.Threshold
}

func (c *Config) EigenSettings() eigen.Settings {
	return eigen.Settings{
		Tolerance:     c.Eigen.Tolerance,
		MaxIterations: c.Eigen.MaxIterations,
		MaxSubspace:   c.Eigen.MaxSubspace,
		DenseLimit:    c.Eigen.DenseLimit,
	}
}
