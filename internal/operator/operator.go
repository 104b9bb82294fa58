// operator.go --  This file is part of goCI project.
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

// Package operator evaluates matrix elements of one- and two-body operators
// between electron states and, through Slater-Condon rules, between
// projections. Variants are composed by wrapping at construction time.
package operator

import (
	"example.com/goci/internal/angular"
	"example.com/goci/internal/basis"
	"example.com/goci/internal/integrals"
)

// OneBody is <a|O|b> for single electron states.
type OneBody interface {
	Element(a, b basis.ElectronState) float64
}

// TwoBody is <ab|V|cd>, electron 1 going a->c and electron 2 going b->d.
type TwoBody interface {
	Element(a, b, c, d basis.ElectronState) float64
}

// OneBodyFunc adapts a function to OneBody.
type OneBodyFunc func(a, b basis.ElectronState) float64

func (f OneBodyFunc) Element(a, b basis.ElectronState) float64 { return f(a, b) }

// TwoBodyFunc adapts a function to TwoBody.
type TwoBodyFunc func(a, b, c, d basis.ElectronState) float64

func (f TwoBodyFunc) Element(a, b, c, d basis.ElectronState) float64 { return f(a, b, c, d) }

type hartreeFock struct {
	store integrals.Store
}

// NewOneBody is the Dirac-Hartree-Fock one-electron operator read from the
// store. It is diagonal in kappa and m.
func NewOneBody(store integrals.Store) OneBody {
	return &hartreeFock{store: store}
}

func (h *hartreeFock) Element(a, b basis.ElectronState) float64 {
	if a.TwoM != b.TwoM || a.Orbital.Kappa != b.Orbital.Kappa {
		return 0.
	}
	return h.store.OneElectronIntegral(a.Orbital, b.Orbital)
}

type localPotential struct {
	wrapped OneBody
	radial  func(a, b basis.OrbitalInfo) float64
}

// NewLocalPotential adds a local radial potential, for example a local
// exchange approximation, to a wrapped one-body operator.
func NewLocalPotential(wrapped OneBody, radial func(a, b basis.OrbitalInfo) float64) OneBody {
	return &localPotential{wrapped: wrapped, radial: radial}
}

func (l *localPotential) Element(a, b basis.ElectronState) float64 {
	value := 0.
	if l.wrapped != nil {
		value = l.wrapped.Element(a, b)
	}
	if a.TwoM == b.TwoM && a.Orbital.Kappa == b.Orbital.Kappa {
		value += l.radial(a.Orbital, b.Orbital)
	}
	return value
}

type sum []TwoBody

// Sum adds two-body terms.
func Sum(terms ...TwoBody) TwoBody {
	var s sum
	for _, t := range terms {
		if t != nil {
			s = append(s, t)
		}
	}
	return s
}

func (s sum) Element(a, b, c, d basis.ElectronState) float64 {
	value := 0.
	for _, t := range s {
		value += t.Element(a, b, c, d)
	}
	return value
}

// multipole evaluates
//
//	sum_k sum_q (-1)^q <a|C^k_-q|c> <b|C^k_q|d> radial(k)
//
// over the multipolarities allowed by the triangle rule. Terms where
// both l_a+l_c+k and l_b+l_d+k are odd are included only if wrongParity.
func multipole(a, b, c, d basis.ElectronState, wrongParity bool, radial func(k int) float64) float64 {
	if a.TwoM+b.TwoM != c.TwoM+d.TwoM {
		return 0.
	}
	twoQ := b.TwoM - d.TwoM
	sign := 1.
	if (twoQ/2)%2 != 0 {
		sign = -1.
	}
	oa, ob, oc, od := a.Orbital, b.Orbital, c.Orbital, d.Orbital
	kmin1, kmax1 := angular.KRange(oa.Kappa, oc.Kappa)
	kmin2, kmax2 := angular.KRange(ob.Kappa, od.Kappa)

	value := 0.
	for k := max(kmin1, kmin2); k <= min(kmax1, kmax2); k++ {
		p1 := (oa.L() + oc.L() + k) % 2
		p2 := (ob.L() + od.L() + k) % 2
		if p1 != p2 || (p1 == 1 && !wrongParity) {
			continue
		}
		angle := angular.CkElement(k, oa.Kappa, a.TwoM, oc.Kappa, c.TwoM, false) *
			angular.CkElement(k, ob.Kappa, b.TwoM, od.Kappa, d.TwoM, false)
		if angle == 0 {
			continue
		}
		value += sign * angle * radial(k)
	}
	return value
}

type coulomb struct {
	store       integrals.Store
	wrongParity bool
}

// NewCoulomb is the Coulomb interaction built from the store's R_k. If the
// store folds in the specific mass shift it is part of this term.
func NewCoulomb(store integrals.Store) TwoBody {
	return &coulomb{store: store}
}

// NewMBPTCoulomb also picks up the wrong-parity box diagrams kept by an
// MBPT store.
func NewMBPTCoulomb(store integrals.Store) TwoBody {
	return &coulomb{store: store, wrongParity: true}
}

func (c *coulomb) Element(a, b, cc, d basis.ElectronState) float64 {
	return multipole(a, b, cc, d, c.wrongParity, func(k int) float64 {
		return c.store.TwoElectronIntegral(k, a.Orbital, b.Orbital, cc.Orbital, d.Orbital)
	})
}

type specificMassShift struct {
	store       integrals.Store
	inverseMass float64
}

// NewSMS is the two-body specific mass shift lambda p_1.p_2. It has the
// angular structure of a k=1 Coulomb term with R_1 replaced by
// lambda p_ac p_bd, the same value an MBPT store folds into R_1.
func NewSMS(store integrals.Store, inverseMass float64) TwoBody {
	return &specificMassShift{store: store, inverseMass: inverseMass}
}

func (s *specificMassShift) Element(a, b, c, d basis.ElectronState) float64 {
	if s.inverseMass == 0 {
		return 0.
	}
	return multipole(a, b, c, d, false, func(k int) float64 {
		if k != 1 {
			return 0.
		}
		return s.inverseMass * s.store.SMSIntegral(a.Orbital, c.Orbital) * s.store.SMSIntegral(b.Orbital, d.Orbital)
	})
}
