// configuration.go --  This file is part of goCI project.
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
package basis

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"

	"example.com/goci/internal/symmetry"
)

// Configuration names a non-relativistic configuration, e.g. "3s1 3p1".
// Relativistic configurations sharing a parent collapse onto the same name.
type Configuration string

type nonRelShell struct {
	pqn, l, occupancy int
}

// ParseConfiguration normalizes a non-relativistic configuration such as
// "3p 3s" into "3s1 3p1".
func ParseConfiguration(s string) (Configuration, error) {
	var shells []nonRelShell
	for _, tok := range strings.Fields(s) {
		pos := 0
		for pos < len(tok) && tok[pos] >= '0' && tok[pos] <= '9' {
			pos++
		}
		if pos == 0 || pos == len(tok) {
			return "", errors.Errorf("cannot parse shell %q", tok)
		}
		pqn, _ := strconv.Atoi(tok[:pos])
		l := strings.IndexByte(spectroscopicNotation, tok[pos])
		if l < 0 {
			return "", errors.Errorf("unknown angular momentum in %q", tok)
		}
		occ := 1
		if pos+1 < len(tok) {
			var err error
			occ, err = strconv.Atoi(tok[pos+1:])
			if err != nil || occ <= 0 || occ > 4*l+2 {
				return "", errors.Errorf("bad occupancy in %q", tok)
			}
		}
		shells = append(shells, nonRelShell{pqn, l, occ})
	}
	if len(shells) == 0 {
		return "", errors.New("empty configuration")
	}
	return configurationName(shells), nil
}

func configurationName(shells []nonRelShell) Configuration {
	slices.SortFunc(shells, func(a, b nonRelShell) int {
		if a.pqn != b.pqn {
			return a.pqn - b.pqn
		}
		return a.l - b.l
	})
	merged := shells[:0]
	for _, s := range shells {
		if n := len(merged); n > 0 && merged[n-1].pqn == s.pqn && merged[n-1].l == s.l {
			merged[n-1].occupancy += s.occupancy
			continue
		}
		merged = append(merged, s)
	}
	parts := make([]string, len(merged))
	for i, s := range merged {
		parts[i] = strconv.Itoa(s.pqn) + string(spectroscopicNotation[s.l]) + strconv.Itoa(s.occupancy)
	}
	return Configuration(strings.Join(parts, " "))
}

// Shell is a relativistic orbital with its occupancy.
type Shell struct {
	Orbital   OrbitalInfo
	Occupancy int
}

// RelativisticConfiguration groups orbital occupations under jj coupling.
// Its projections and J coefficients are fixed once for a symmetry; the
// coefficient table has one row per projection and one column per J state.
type RelativisticConfiguration struct {
	shells       []Shell
	projections  []Projection
	coefficients *mat.Dense
}

func NewRelativisticConfiguration(shells ...Shell) (*RelativisticConfiguration, error) {
	sorted := make([]Shell, 0, len(shells))
	for _, s := range shells {
		if s.Occupancy <= 0 {
			continue
		}
		if s.Occupancy > s.Orbital.MaxOccupancy() {
			return nil, errors.Errorf("occupancy %d exceeds 2j+1 for %s", s.Occupancy, s.Orbital.Name())
		}
		sorted = append(sorted, s)
	}
	slices.SortFunc(sorted, func(a, b Shell) int { return CompareOrbitals(a.Orbital, b.Orbital) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Orbital == sorted[i-1].Orbital {
			return nil, errors.Errorf("orbital %s listed twice", sorted[i].Orbital.Name())
		}
	}
	if len(sorted) == 0 {
		return nil, errors.New("configuration has no electrons")
	}
	return &RelativisticConfiguration{shells: sorted}, nil
}

// ParseRelativisticConfiguration reads strings like "3s2 3p-1 3d+".
// A missing occupancy means one electron.
func ParseRelativisticConfiguration(s string) (*RelativisticConfiguration, error) {
	var shells []Shell
	for _, tok := range strings.Fields(s) {
		orb, rest, err := parseOrbitalPrefix(tok)
		if err != nil {
			return nil, err
		}
		occ := 1
		if rest != "" {
			occ, err = strconv.Atoi(rest)
			if err != nil {
				return nil, errors.Wrapf(err, "occupancy in %q", tok)
			}
		}
		shells = append(shells, Shell{Orbital: orb, Occupancy: occ})
	}
	return NewRelativisticConfiguration(shells...)
}

func (c *RelativisticConfiguration) Shells() []Shell {
	return c.shells
}

func (c *RelativisticConfiguration) NumParticles() int {
	n := 0
	for _, s := range c.shells {
		n += s.Occupancy
	}
	return n
}

func (c *RelativisticConfiguration) Parity() symmetry.Parity {
	sumL := 0
	for _, s := range c.shells {
		sumL += s.Orbital.L() * s.Occupancy
	}
	return symmetry.ParityOf(sumL)
}

func (c *RelativisticConfiguration) Name() string {
	parts := make([]string, len(c.shells))
	for i, s := range c.shells {
		parts[i] = s.Orbital.Name() + strconv.Itoa(s.Occupancy)
	}
	return strings.Join(parts, " ")
}

func (c *RelativisticConfiguration) String() string {
	return c.Name()
}

// NonRelConfiguration collapses j = l±1/2 shells onto their parent.
func (c *RelativisticConfiguration) NonRelConfiguration() Configuration {
	shells := make([]nonRelShell, len(c.shells))
	for i, s := range c.shells {
		shells[i] = nonRelShell{s.Orbital.PQN, s.Orbital.L(), s.Occupancy}
	}
	return configurationName(shells)
}

func (c *RelativisticConfiguration) Projections() []Projection {
	return c.projections
}

// JCoefficients returns the projections x J-states coefficient table,
// or nil before the J states are set.
func (c *RelativisticConfiguration) JCoefficients() *mat.Dense {
	return c.coefficients
}

func (c *RelativisticConfiguration) NumJStates() int {
	if c.coefficients == nil {
		return 0
	}
	_, cols := c.coefficients.Dims()
	return cols
}

// SetJStates installs externally computed projections and coefficients.
func (c *RelativisticConfiguration) SetJStates(projections []Projection, coefficients *mat.Dense) error {
	if coefficients == nil {
		if len(projections) != 0 {
			return errors.New("projections given without coefficients")
		}
		c.projections, c.coefficients = nil, nil
		return nil
	}
	rows, _ := coefficients.Dims()
	if rows != len(projections) {
		return errors.Errorf("coefficient table has %d rows for %d projections", rows, len(projections))
	}
	for _, p := range projections {
		if p.Len() != c.NumParticles() {
			return errors.Errorf("projection %s has wrong particle number for %s", p, c.Name())
		}
	}
	c.projections = projections
	c.coefficients = coefficients
	return nil
}

// RelativisticConfigList is the ordered basis of one symmetry. Global state
// numbering runs over the J states of each configuration in list order.
type RelativisticConfigList []*RelativisticConfiguration

// N is the Hamiltonian matrix dimension.
func (l RelativisticConfigList) N() int {
	n := 0
	for _, c := range l {
		n += c.NumJStates()
	}
	return n
}

// Offsets gives the global row of the first J state of each configuration,
// followed by N.
func (l RelativisticConfigList) Offsets() []int {
	offsets := make([]int, len(l)+1)
	for i, c := range l {
		offsets[i+1] = offsets[i] + c.NumJStates()
	}
	return offsets
}

func (l RelativisticConfigList) NumParticles() int {
	if len(l) == 0 {
		return 0
	}
	return l[0].NumParticles()
}

// Validate checks the coefficient table shapes, particle numbers and that
// no configuration appears twice.
func (l RelativisticConfigList) Validate() error {
	seen := make(map[string]bool, len(l))
	for i, c := range l {
		if seen[c.Name()] {
			return errors.Errorf("configuration %s listed twice", c.Name())
		}
		seen[c.Name()] = true
		if c.NumParticles() != l.NumParticles() {
			return errors.Errorf("configuration %d (%s) has %d electrons, want %d", i, c.Name(), c.NumParticles(), l.NumParticles())
		}
		if c.coefficients == nil {
			continue
		}
		rows, _ := c.coefficients.Dims()
		if rows != len(c.projections) {
			return errors.Errorf("configuration %s: %d coefficient rows for %d projections", c.Name(), rows, len(c.projections))
		}
	}
	return nil
}

// Orbitals lists every orbital used by the list, in canonical order.
func (l RelativisticConfigList) Orbitals() []OrbitalInfo {
	var result []OrbitalInfo
	for _, c := range l {
		for _, s := range c.shells {
			result = append(result, s.Orbital)
		}
	}
	slices.SortFunc(result, CompareOrbitals)
	return slices.Compact(result)
}
