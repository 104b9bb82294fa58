// symmetry.go --  This file is part of goCI project.
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

// Package symmetry holds the conserved (J, parity) sectors of the CI problem.
package symmetry

import (
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

type Parity int

const (
	Even Parity = iota
	Odd
)

func (p Parity) String() string {
	if p == Even {
		return "even"
	}
	return "odd"
}

// ParityOf returns the parity (-1)^sumL.
func ParityOf(sumL int) Parity {
	if sumL%2 == 0 {
		return Even
	}
	return Odd
}

// Symmetry is one Hamiltonian block: total angular momentum 2J and parity.
type Symmetry struct {
	TwoJ   int
	Parity Parity
}

func New(twoJ int, p Parity) Symmetry {
	return Symmetry{TwoJ: twoJ, Parity: p}
}

func (s Symmetry) J() float64 {
	return float64(s.TwoJ) / 2.
}

// String gives the storage form used in file names, e.g. "2.even".
func (s Symmetry) String() string {
	return strconv.Itoa(s.TwoJ) + "." + s.Parity.String()
}

// Less orders even parity first, then by 2J.
func (s Symmetry) Less(other Symmetry) bool {
	if s.Parity != other.Parity {
		return s.Parity == Even
	}
	return s.TwoJ < other.TwoJ
}

func Compare(a, b Symmetry) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

var ErrNoSymmetries = errors.New("no symmetries requested (EvenParityTwoJ or OddParityTwoJ)")

// Choose builds the ordered, duplicate-free set of requested symmetries.
// An empty request is unrecoverable and returns ErrNoSymmetries.
func Choose(evenTwoJ, oddTwoJ []int) ([]Symmetry, error) {
	var result []Symmetry
	for _, twoJ := range evenTwoJ {
		if twoJ < 0 {
			return nil, errors.Errorf("negative 2J = %d for even parity", twoJ)
		}
		result = append(result, New(twoJ, Even))
	}
	for _, twoJ := range oddTwoJ {
		if twoJ < 0 {
			return nil, errors.Errorf("negative 2J = %d for odd parity", twoJ)
		}
		result = append(result, New(twoJ, Odd))
	}
	if len(result) == 0 {
		return nil, ErrNoSymmetries
	}
	slices.SortFunc(result, Compare)
	return slices.Compact(result), nil
}
