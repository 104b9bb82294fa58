// sz.go --  This file is part of goCI project.
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
package operator

import (
	"math"

	"example.com/goci/internal/basis"
	"example.com/goci/internal/integrals"
)

// ProjectionFunc adapts a function to ProjectionOperator.
type ProjectionFunc func(p, q basis.Projection) float64

func (f ProjectionFunc) Element(p, q basis.Projection) float64 { return f(p, q) }

// Sz is the electron spin projection in the nonrelativistic limit, using
// large components only.
type Sz struct {
	store integrals.Store
}

func NewSz(store integrals.Store) *Sz {
	return &Sz{store: store}
}

// Diagonal is <e|s_z|e> = ±m/(2l+1), positive for j = l+1/2.
func (s *Sz) Diagonal(e basis.ElectronState) float64 {
	l := e.Orbital.L()
	value := e.M() / float64(2*l+1)
	if e.Orbital.Kappa > 0 {
		value = -value
	}
	return value
}

// Element is <a|s_z|b>. It couples states with the same l and m only.
func (s *Sz) Element(a, b basis.ElectronState) float64 {
	if a == b {
		return s.Diagonal(a)
	}
	if a.TwoM != b.TwoM || a.Orbital.L() != b.Orbital.L() {
		return 0.
	}
	overlap := s.store.Overlap(a.Orbital, b.Orbital)
	if overlap == 0 {
		return 0.
	}
	if a.Orbital.Kappa == b.Orbital.Kappa {
		return s.Diagonal(a) * overlap
	}
	// j = l+1/2 with j = l-1/2
	l := float64(a.Orbital.L())
	m := a.M()
	return -math.Sqrt((l+0.5)*(l+0.5)-m*m) / (2*l + 1) * overlap
}

// Projection is <p|S_z|q>: the sum over electrons for equal projections,
// the single replaced electron's element otherwise and zero when more than
// one electron differs.
func (s *Sz) Projection(p, q basis.Projection) float64 {
	numDiff, diff := basis.ProjectionDifferences(p, q)
	switch numDiff {
	case 0:
		value := 0.
		for i := 0; i < p.Len(); i++ {
			value += s.Diagonal(p.At(i))
		}
		return value
	case 1:
		return s.Element(p.At(diff[0]), q.At(diff[1]))
	case -1:
		return -s.Element(p.At(diff[0]), q.At(diff[1]))
	}
	return 0.
}

// NewSzProjection is the projection matrix element used for g-factors.
func NewSzProjection(store integrals.Store) ProjectionOperator {
	return ProjectionFunc(NewSz(store).Projection)
}
