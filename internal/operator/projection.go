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
package operator

import (
	"example.com/goci/internal/basis"
	"example.com/goci/internal/integrals"
)

// ProjectionOperator gives the matrix element between two projections.
type ProjectionOperator interface {
	Element(p, q basis.Projection) float64
}

// Hamiltonian combines a one-body and a two-body operator into a
// projection matrix element with the Slater-Condon rules. Either part may
// be nil. Element(p, q) == Element(q, p) for hermitian parts.
type Hamiltonian struct {
	one OneBody
	two TwoBody
}

func NewHamiltonian(one OneBody, two TwoBody) *Hamiltonian {
	return &Hamiltonian{one: one, two: two}
}

// NewCIHamiltonian assembles the usual CI operator for a store: the
// one-electron term, the Coulomb term (MBPT flavour for an MBPT store) and
// a separate SMS term when the store does not already include it.
func NewCIHamiltonian(store integrals.Store, mbpt bool) *Hamiltonian {
	two := NewCoulomb(store)
	if mbpt {
		two = NewMBPTCoulomb(store)
	}
	if !store.IncludesSMS() && store.InverseMass() != 0 {
		two = Sum(two, NewSMS(store, store.InverseMass()))
	}
	return NewHamiltonian(NewOneBody(store), two)
}

// NewSMSProjection evaluates the specific mass shift operator alone, with
// unit inverse mass, for isotope shift expectation values.
func NewSMSProjection(store integrals.Store) *Hamiltonian {
	return NewHamiltonian(nil, NewSMS(store, 1.))
}

func (h *Hamiltonian) oneBody(a, b basis.ElectronState) float64 {
	if h.one == nil {
		return 0.
	}
	return h.one.Element(a, b)
}

// antisymmetric gives <ab|V|cd> - <ab|V|dc>.
func (h *Hamiltonian) antisymmetric(a, b, c, d basis.ElectronState) float64 {
	if h.two == nil {
		return 0.
	}
	return h.two.Element(a, b, c, d) - h.two.Element(a, b, d, c)
}

func (h *Hamiltonian) Element(p, q basis.Projection) float64 {
	numDiff, diff := basis.ProjectionDifferences(p, q)
	sign := 1.
	if numDiff < 0 {
		sign = -1.
		numDiff = -numDiff
	}

	value := 0.
	switch numDiff {
	case 0:
		for i := 0; i < p.Len(); i++ {
			a := p.At(i)
			value += h.oneBody(a, a)
			for j := i + 1; j < p.Len(); j++ {
				b := p.At(j)
				value += h.antisymmetric(a, b, a, b)
			}
		}
	case 1:
		a, r := p.At(diff[0]), q.At(diff[1])
		value = h.oneBody(a, r)
		for i := 0; i < p.Len(); i++ {
			if i != diff[0] {
				b := p.At(i)
				value += h.antisymmetric(a, b, r, b)
			}
		}
	case 2:
		a, r := p.At(diff[0]), q.At(diff[1])
		b, s := p.At(diff[2]), q.At(diff[3])
		value = h.antisymmetric(a, b, r, s)
	}
	return sign * value
}
