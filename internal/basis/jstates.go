// jstates.go --  This file is part of goCI project.
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
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Eigenvalues of J-J+ below this are treated as zero.
const nullSpaceTolerance = 1e-8

// GenerateProjections enumerates every determinant of the configuration
// with total projection twoM/2. Electrons inside a shell are ordered by m,
// so the results are already in canonical order.
func (c *RelativisticConfiguration) GenerateProjections(twoM int) []Projection {
	var result []Projection
	states := make([]ElectronState, 0, c.NumParticles())

	var fillShell func(shell, start, left, sum int)
	fillShell = func(shell, start, left, sum int) {
		if shell == len(c.shells) {
			if sum == twoM {
				result = append(result, Projection{states: append([]ElectronState(nil), states...)})
			}
			return
		}
		orb := c.shells[shell].Orbital
		twoJ := orb.TwoJ()
		if left == 0 {
			next := 0
			if shell+1 < len(c.shells) {
				next = c.shells[shell+1].Occupancy
			}
			fillShell(shell+1, -c.nextTwoJ(shell), next, sum)
			return
		}
		for m := start; m <= twoJ; m += 2 {
			states = append(states, ElectronState{Orbital: orb, TwoM: m})
			fillShell(shell, m+2, left-1, sum+m)
			states = states[:len(states)-1]
		}
	}
	fillShell(0, -c.shells[0].Orbital.TwoJ(), c.shells[0].Occupancy, 0)
	return result
}

func (c *RelativisticConfiguration) nextTwoJ(shell int) int {
	if shell+1 < len(c.shells) {
		return c.shells[shell+1].Orbital.TwoJ()
	}
	return 0
}

// GenerateJStates builds the projections with M = J and the coefficients
// of the states with total angular momentum J. Those states are exactly
// the M = J combinations annihilated by J+, so they are found as the null
// space of (J+)^T J+. A configuration that cannot reach J gets no states.
func (c *RelativisticConfiguration) GenerateJStates(twoJ int) error {
	if (twoJ+c.NumParticles())%2 != 0 {
		return errors.Errorf("2J = %d incompatible with %d electrons", twoJ, c.NumParticles())
	}
	lower := c.GenerateProjections(twoJ)
	if len(lower) == 0 {
		return c.SetJStates(nil, nil)
	}
	upper := c.GenerateProjections(twoJ + 2)
	if len(upper) == 0 {
		return c.SetJStates(lower, identity(len(lower)))
	}

	raising := RaisingMatrix(lower, upper)
	var jj mat.SymDense
	jj.SymOuterK(1, raising.T())

	var eigsym mat.EigenSym
	if ok := eigsym.Factorize(&jj, true); !ok {
		return errors.Errorf("J+ eigendecomposition failed for %s", c.Name())
	}
	values := eigsym.Values(nil)
	var vectors mat.Dense
	eigsym.VectorsTo(&vectors)

	var columns []int
	for i, v := range values {
		if math.Abs(v) < nullSpaceTolerance {
			columns = append(columns, i)
		}
	}
	if len(columns) == 0 {
		return c.SetJStates(nil, nil)
	}

	coefficients := mat.NewDense(len(lower), len(columns), nil)
	for col, src := range columns {
		largest := 0
		for row := range lower {
			if math.Abs(vectors.At(row, src)) > math.Abs(vectors.At(largest, src)) {
				largest = row
			}
		}
		sign := 1.
		if vectors.At(largest, src) < 0 {
			sign = -1.
		}
		for row := range lower {
			coefficients.Set(row, col, sign*vectors.At(row, src))
		}
	}
	return c.SetJStates(lower, coefficients)
}

// RaisingMatrix returns <upper|J+|lower> for two projection sets whose
// total projections differ by one.
func RaisingMatrix(lower, upper []Projection) *mat.Dense {
	index := make(map[string]int, len(upper))
	for i, p := range upper {
		index[p.String()] = i
	}
	result := mat.NewDense(len(upper), len(lower), nil)
	for col, p := range lower {
		for k, e := range p.states {
			twoJ := e.Orbital.TwoJ()
			if e.TwoM >= twoJ {
				continue
			}
			raised := ElectronState{Orbital: e.Orbital, TwoM: e.TwoM + 2}
			if p.contains(raised) {
				continue
			}
			// (a, m+1) sorts into the slot of (a, m): no reordering sign.
			states := append([]ElectronState(nil), p.states...)
			states[k] = raised
			row, ok := index[Projection{states: states}.String()]
			if !ok {
				continue
			}
			factor := 0.5 * math.Sqrt(float64((twoJ-e.TwoM)*(twoJ+e.TwoM+2)))
			result.Set(row, col, result.At(row, col)+factor)
		}
	}
	return result
}

func identity(n int) *mat.Dense {
	result := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		result.Set(i, i, 1)
	}
	return result
}
