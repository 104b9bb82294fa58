// projection.go --  This file is part of goCI project.
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
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Projection is a determinant: an ordered set of distinct electron states.
type Projection struct {
	states []ElectronState
}

// NewProjection sorts the states and rejects doubly occupied ones.
func NewProjection(states ...ElectronState) (Projection, error) {
	sorted := slices.Clone(states)
	slices.SortFunc(sorted, CompareStates)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return Projection{}, errors.Errorf("state %s occupied twice", sorted[i])
		}
	}
	for _, s := range sorted {
		if s.TwoM > s.Orbital.TwoJ() || s.TwoM < -s.Orbital.TwoJ() || (s.TwoM+s.Orbital.TwoJ())%2 != 0 {
			return Projection{}, errors.Errorf("invalid projection %s", s)
		}
	}
	return Projection{states: sorted}, nil
}

func (p Projection) Len() int {
	return len(p.states)
}

func (p Projection) At(i int) ElectronState {
	return p.states[i]
}

func (p Projection) States() []ElectronState {
	return p.states
}

// TwoM is twice the total projection.
func (p Projection) TwoM() int {
	sum := 0
	for _, s := range p.states {
		sum += s.TwoM
	}
	return sum
}

func (p Projection) String() string {
	parts := make([]string, len(p.states))
	for i, s := range p.states {
		parts[i] = s.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func (p Projection) contains(e ElectronState) bool {
	_, found := slices.BinarySearchFunc(p.states, e, CompareStates)
	return found
}

// MaxDifferences is returned by ProjectionDifferences when the projections
// differ by more than two electrons.
const MaxDifferences = 3

// ProjectionDifferences compares two projections with the same number of
// electrons. The magnitude of numDiff is the number of replaced electrons
// (0, 1, 2 or MaxDifferences for anything larger); its sign is the parity
// of the permutation that brings the replaced electrons of both
// determinants to the front. diff holds (index in p, index in q) pairs, one
// pair per replacement.
func ProjectionDifferences(p, q Projection) (numDiff int, diff []int) {
	if p.Len() != q.Len() {
		panic("basis: projections with different particle number")
	}
	var onlyP, onlyQ []int
	i, j := 0, 0
	for i < p.Len() || j < q.Len() {
		switch {
		case j == q.Len():
			onlyP = append(onlyP, i)
			i++
		case i == p.Len():
			onlyQ = append(onlyQ, j)
			j++
		case p.states[i] == q.states[j]:
			i++
			j++
		case p.states[i].Less(q.states[j]):
			onlyP = append(onlyP, i)
			i++
		default:
			onlyQ = append(onlyQ, j)
			j++
		}
		if len(onlyP) > 2 || len(onlyQ) > 2 {
			return MaxDifferences, nil
		}
	}

	numDiff = len(onlyP)
	parity := 0
	for k := range onlyP {
		diff = append(diff, onlyP[k], onlyQ[k])
		parity += onlyP[k] + onlyQ[k]
	}
	if parity%2 != 0 {
		numDiff = -numDiff
	}
	return numDiff, diff
}
