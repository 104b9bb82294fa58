// mbpt.go --  This file is part of goCI project.
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
package integrals

import (
	"github.com/pkg/errors"

	"example.com/goci/internal/basis"
)

// Correlation evaluates MBPT diagrams. Implementations must be safe for
// concurrent use.
type Correlation interface {
	// Sigma1 is <a|Sigma|b> from a precomputed sigma potential.
	Sigma1(a, b basis.OrbitalInfo) float64
	// OneBody is the direct single-particle diagram sum.
	OneBody(a, b basis.OrbitalInfo) float64
	// OneBodySubtraction removes correlation already in an open-shell reference.
	OneBodySubtraction(a, b basis.OrbitalInfo) float64
	TwoBody(k int, i, j, l, m basis.OrbitalInfo) float64
	TwoBodySubtraction(k int, i, j, l, m basis.OrbitalInfo) float64
	// Box gives two-body box diagrams whose parity is opposite to R_k.
	Box(k int, i, j, l, m basis.OrbitalInfo) float64
}

const defaultBoxMaxPQN = 100

// CIIntegralsMBPT can include MBPT effects in the integrals. The diagrams
// are not symmetric under i<->l or j<->m alone, so it keeps about twice as
// many two-electron integrals as CIIntegrals. The SMS is folded into R_1.
type CIIntegralsMBPT struct {
	*CIIntegrals
	pt            Correlation
	openShellCore bool

	includeSigma1           bool
	includeMBPT1            bool
	includeMBPT1Subtraction bool
	includeMBPT2            bool
	includeMBPT2Subtraction bool
	includeExtraBox         bool
	boxMaxPQN               [3]int
}

func NewMBPT(orbitals []basis.OrbitalInfo, calc RadialCalculator, openShellCore bool) *CIIntegralsMBPT {
	return &CIIntegralsMBPT{
		CIIntegrals:   newCIIntegrals(orbitals, calc, ReducedLayout, true),
		openShellCore: openShellCore,
		boxMaxPQN:     [3]int{defaultBoxMaxPQN, defaultBoxMaxPQN, defaultBoxMaxPQN},
	}
}

// IncludeSigma1 includes single-particle diagrams through a sigma potential.
// It switches IncludeMBPT1 off; the last setter wins.
func (c *CIIntegralsMBPT) IncludeSigma1(include bool, pt Correlation) {
	c.includeSigma1 = include
	if include {
		c.includeMBPT1 = false
	}
	if c.openShellCore {
		c.includeMBPT1Subtraction = include
	}
	if pt != nil {
		c.pt = pt
	}
}

// IncludeMBPT1 includes single-particle diagrams directly.
// It switches IncludeSigma1 off; the last setter wins.
func (c *CIIntegralsMBPT) IncludeMBPT1(include bool, pt Correlation) {
	c.includeMBPT1 = include
	if include {
		c.includeSigma1 = false
	}
	if c.openShellCore {
		c.includeMBPT1Subtraction = include
	}
	if pt != nil {
		c.pt = pt
	}
}

func (c *CIIntegralsMBPT) IncludeMBPT2(include bool, pt Correlation) {
	c.includeMBPT2 = include
	if c.openShellCore {
		c.includeMBPT2Subtraction = include
	}
	if pt != nil {
		c.pt = pt
	}
}

// IncludeExtraBoxDiagrams adds wrong-parity box diagrams with
// pqn(i) <= limit1, pqn(j) <= limit2 and pqn(l), pqn(m) <= limit3.
func (c *CIIntegralsMBPT) IncludeExtraBoxDiagrams(include bool, limit1, limit2, limit3 int) {
	c.includeExtraBox = include
	c.boxMaxPQN = [3]int{limit1, limit2, limit3}
}

// Flags reports the active single-particle options, mainly for logging.
func (c *CIIntegralsMBPT) Flags() (sigma1, mbpt1, mbpt1Subtraction, mbpt2, mbpt2Subtraction, box bool) {
	return c.includeSigma1, c.includeMBPT1, c.includeMBPT1Subtraction,
		c.includeMBPT2, c.includeMBPT2Subtraction, c.includeExtraBox
}

func (c *CIIntegralsMBPT) needsPT() bool {
	return c.includeSigma1 || c.includeMBPT1 || c.includeMBPT1Subtraction ||
		c.includeMBPT2 || c.includeMBPT2Subtraction || c.includeExtraBox
}

// Update recomputes one-electron integrals, then two-electron integrals,
// then the extra box diagrams. The order matters: R_1 reads back p_ab.
func (c *CIIntegralsMBPT) Update() error {
	if c.needsPT() && c.pt == nil {
		return errors.New("integrals: MBPT requested without a correlation calculator")
	}
	if err := c.updateOneElectron(c.oneBodyCorrection()); err != nil {
		return errors.Wrap(err, "one-electron update")
	}
	if err := c.updateTwoElectron(c.twoBodyCorrection()); err != nil {
		return errors.Wrap(err, "two-electron update")
	}
	if c.includeExtraBox {
		c.updateTwoElectronBoxDiagrams()
	}
	return nil
}

func (c *CIIntegralsMBPT) oneBodyCorrection() func(a, b basis.OrbitalInfo) float64 {
	if !c.includeSigma1 && !c.includeMBPT1 && !c.includeMBPT1Subtraction {
		return nil
	}
	return func(a, b basis.OrbitalInfo) float64 {
		value := 0.
		if c.includeSigma1 {
			value += c.pt.Sigma1(a, b)
		}
		if c.includeMBPT1 {
			value += c.pt.OneBody(a, b)
		}
		if c.includeMBPT1Subtraction {
			value += c.pt.OneBodySubtraction(a, b)
		}
		return value
	}
}

func (c *CIIntegralsMBPT) twoBodyCorrection() func(k int, i, j, l, m basis.OrbitalInfo) float64 {
	if !c.includeMBPT2 && !c.includeMBPT2Subtraction {
		return nil
	}
	return func(k int, i, j, l, m basis.OrbitalInfo) float64 {
		value := 0.
		if c.includeMBPT2 {
			value += c.pt.TwoBody(k, i, j, l, m)
		}
		if c.includeMBPT2Subtraction {
			value += c.pt.TwoBodySubtraction(k, i, j, l, m)
		}
		return value
	}
}

// updateTwoElectronBoxDiagrams appends to the two-electron table; it must
// run after updateTwoElectron, which clears it.
func (c *CIIntegralsMBPT) updateTwoElectronBoxDiagrams() {
	var tasks []twoElectronTask
	c.visitBox(func(k, i, j, l, m int) {
		tasks = append(tasks, twoElectronTask{k: k, i: i, j: j, l: l, m: m})
	})
	c.compute(tasks, func(t *twoElectronTask) {
		o := c.orbitals
		t.value = c.pt.Box(t.k, o[t.i], o[t.j], o[t.l], o[t.m])
	})
	c.store(tasks)
}

func (c *CIIntegralsMBPT) visitBox(visit func(k, i, j, l, m int)) {
	c.visitTwoElectron(true, func(k, i, j, l, m int) {
		o := c.orbitals
		if o[i].PQN <= c.boxMaxPQN[0] && o[j].PQN <= c.boxMaxPQN[1] &&
			o[l].PQN <= c.boxMaxPQN[2] && o[m].PQN <= c.boxMaxPQN[2] {
			visit(k, i, j, l, m)
		}
	})
}

// StorageSize includes the box diagrams when they are enabled.
func (c *CIIntegralsMBPT) StorageSize() int {
	count := c.CIIntegrals.StorageSize()
	if c.includeExtraBox {
		c.visitBox(func(int, int, int, int, int) { count++ })
	}
	return count
}
