// nucleus.go --  This file is part of goCI project.
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

// Package nucleus holds the element table and the nuclear data entering
// the specific mass shift.
package nucleus

import (
	_ "embed"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// AtomicMassUnit is the unified atomic mass unit in electron masses.
const AtomicMassUnit = 1822.888486

//go:embed mendeleev.csv
var mendeleevData string

type Mendeleev struct {
	Z          []int
	Symb, Name []string
	Mass       []float64
}

// Elements is the built-in table.
var Elements = mustBuild(mendeleevData)

func mustBuild(data string) *Mendeleev {
	m, err := build(data)
	if err != nil {
		panic(err)
	}
	return m
}

func build(data string) (*Mendeleev, error) {
	m := &Mendeleev{}
	for i, str := range strings.Split(strings.TrimSpace(data), "\n") {
		if i == 0 {
			continue
		}
		words := strings.Split(strings.TrimSpace(str), ",")
		if len(words) != 4 {
			return nil, errors.Errorf("elements table line %d: %q", i+1, str)
		}
		z, err := strconv.Atoi(words[0])
		if err != nil {
			return nil, errors.Wrapf(err, "elements table line %d", i+1)
		}
		mass, err := strconv.ParseFloat(words[3], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "elements table line %d", i+1)
		}
		m.Z = append(m.Z, z)
		m.Symb = append(m.Symb, words[1])
		m.Name = append(m.Name, words[2])
		m.Mass = append(m.Mass, mass)
	}
	return m, nil
}

// Nucleus is the nucleus of the atom or ion being computed. Mass is in
// atomic mass units.
type Nucleus struct {
	Z      int
	Symbol string
	Mass   float64
}

// Lookup finds an element by symbol, ignoring case.
func (m *Mendeleev) Lookup(symbol string) (Nucleus, error) {
	i := slices.IndexFunc(m.Symb, func(s string) bool { return strings.EqualFold(s, symbol) })
	if i < 0 {
		return Nucleus{}, errors.Errorf("unknown element %q", symbol)
	}
	return Nucleus{Z: m.Z[i], Symbol: m.Symb[i], Mass: m.Mass[i]}, nil
}

// New takes Z and the standard atomic weight from the table; a positive
// mass selects an isotope.
func New(symbol string, mass float64) (Nucleus, error) {
	n, err := Elements.Lookup(symbol)
	if err != nil {
		return Nucleus{}, err
	}
	if mass < 0 {
		return Nucleus{}, errors.Errorf("negative nuclear mass %g", mass)
	}
	if mass > 0 {
		n.Mass = mass
	}
	return n, nil
}

// InverseMass is 1/M in atomic units, the scale of the specific mass shift
// operator.
func (n Nucleus) InverseMass() float64 {
	if n.Mass == 0 {
		return 0
	}
	return 1. / (n.Mass * AtomicMassUnit)
}

func (n Nucleus) String() string {
	return n.Symbol + " (Z = " + strconv.Itoa(n.Z) + ", M = " + strconv.FormatFloat(n.Mass, 'g', -1, 64) + ")"
}
