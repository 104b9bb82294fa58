// store.go --  This file is part of goCI project.
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

// Package integrals caches the radial integrals consumed by the CI
// Hamiltonian. Values are produced by external calculators and stored
// under symmetry-reduced keys.
package integrals

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"example.com/goci/internal/angular"
	"example.com/goci/internal/basis"
)

// Store is the read side used by the operators.
type Store interface {
	// OneElectronIntegral is <a|h|b>; zero unless kappa_a == kappa_b.
	OneElectronIntegral(a, b basis.OrbitalInfo) float64
	// TwoElectronIntegral is R_k(ij,lm) with electron 1 going i->l and
	// electron 2 going j->m.
	TwoElectronIntegral(k int, i, j, l, m basis.OrbitalInfo) float64
	// SMSIntegral is the antisymmetric p_ab of the specific mass shift.
	SMSIntegral(a, b basis.OrbitalInfo) float64
	// Overlap of the large components, used for Sz between j = l±1/2 partners.
	Overlap(a, b basis.OrbitalInfo) float64
	InverseMass() float64
	// IncludesSMS reports that lambda p_il p_jm is already part of R_1.
	IncludesSMS() bool
}

// RadialCalculator produces bare radial integrals for the current orbitals.
// Implementations must be safe for concurrent use.
type RadialCalculator interface {
	OneElectron(a, b basis.OrbitalInfo) float64
	SMS(a, b basis.OrbitalInfo) float64
	Overlap(a, b basis.OrbitalInfo) float64
	Coulomb(k int, i, j, l, m basis.OrbitalInfo) float64
}

var (
	ErrNoCalculator = errors.New("integrals: no radial calculator")
	ErrUpdateOrder  = errors.New("integrals: one-electron integrals must be updated before two-electron integrals when SMS is folded in")
)

// CIIntegrals stores integrals using the full permutation symmetry of the
// bare Coulomb interaction. The specific mass shift is kept separately
// in the p_ab table and is not part of R_k.
type CIIntegrals struct {
	orbitals []basis.OrbitalInfo
	index    map[basis.OrbitalInfo]int
	calc     RadialCalculator
	layout   Layout
	ordering Ordering

	inverseMass float64
	foldSMS     bool

	oneElectron map[uint64]float64
	sms         map[uint64]float64
	overlap     map[uint64]float64
	twoElectron map[uint64]float64

	oneVersion, twoVersion int
}

func New(orbitals []basis.OrbitalInfo, calc RadialCalculator) *CIIntegrals {
	return newCIIntegrals(orbitals, calc, FullLayout, false)
}

func newCIIntegrals(orbitals []basis.OrbitalInfo, calc RadialCalculator, layout Layout, foldSMS bool) *CIIntegrals {
	c := &CIIntegrals{
		orbitals:    append([]basis.OrbitalInfo(nil), orbitals...),
		index:       make(map[basis.OrbitalInfo]int, len(orbitals)),
		calc:        calc,
		layout:      layout,
		ordering:    layout.ordering(),
		foldSMS:     foldSMS,
		oneElectron: make(map[uint64]float64),
		sms:         make(map[uint64]float64),
		overlap:     make(map[uint64]float64),
		twoElectron: make(map[uint64]float64),
	}
	for i, o := range c.orbitals {
		c.index[o] = i
	}
	return c
}

func (c *CIIntegrals) Orbitals() []basis.OrbitalInfo {
	return c.orbitals
}

func (c *CIIntegrals) Layout() Layout {
	return c.layout
}

// SetInverseMass sets lambda = 1/M of the specific mass shift.
func (c *CIIntegrals) SetInverseMass(lambda float64) {
	c.inverseMass = lambda
}

func (c *CIIntegrals) InverseMass() float64 {
	return c.inverseMass
}

func (c *CIIntegrals) IncludesSMS() bool {
	return c.foldSMS && c.inverseMass != 0
}

// Version counts completed two-electron updates.
func (c *CIIntegrals) Version() int {
	return c.twoVersion
}

// Update recomputes every integral from the radial calculator.
func (c *CIIntegrals) Update() error {
	if err := c.updateOneElectron(nil); err != nil {
		return err
	}
	return c.updateTwoElectron(nil)
}

func (c *CIIntegrals) updateOneElectron(extra func(a, b basis.OrbitalInfo) float64) error {
	if c.calc == nil {
		return ErrNoCalculator
	}
	n := len(c.orbitals)
	clear(c.oneElectron)
	clear(c.sms)
	clear(c.overlap)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a, b := c.orbitals[i], c.orbitals[j]
			key := oneElectronKey(i, j, n)
			if a.Kappa == b.Kappa {
				value := c.calc.OneElectron(a, b)
				if extra != nil {
					value += extra(a, b)
				}
				c.oneElectron[key] = value
			}
			if a.L() == b.L() {
				c.overlap[key] = c.calc.Overlap(a, b)
			}
			if i != j && (a.L() == b.L()+1 || a.L()+1 == b.L()) {
				c.sms[key] = c.calc.SMS(a, b)
			}
		}
	}
	c.oneVersion++
	return nil
}

type twoElectronTask struct {
	k, i, j, l, m int
	value         float64
}

func (c *CIIntegrals) updateTwoElectron(extra func(k int, i, j, l, m basis.OrbitalInfo) float64) error {
	if c.calc == nil {
		return ErrNoCalculator
	}
	if c.IncludesSMS() && c.oneVersion <= c.twoVersion {
		return ErrUpdateOrder
	}
	var tasks []twoElectronTask
	c.visitTwoElectron(false, func(k, i, j, l, m int) {
		tasks = append(tasks, twoElectronTask{k: k, i: i, j: j, l: l, m: m})
	})

	c.compute(tasks, func(t *twoElectronTask) {
		o := c.orbitals
		t.value = c.calc.Coulomb(t.k, o[t.i], o[t.j], o[t.l], o[t.m])
		if extra != nil {
			t.value += extra(t.k, o[t.i], o[t.j], o[t.l], o[t.m])
		}
		if t.k == 1 && c.IncludesSMS() {
			t.value += c.inverseMass * c.SMSIntegral(o[t.i], o[t.l]) * c.SMSIntegral(o[t.j], o[t.m])
		}
	})

	clear(c.twoElectron)
	c.store(tasks)
	c.twoVersion++
	return nil
}

// compute evaluates the tasks in GOMAXPROCS chunks.
func (c *CIIntegrals) compute(tasks []twoElectronTask, eval func(t *twoElectronTask)) {
	maxGoroutines := runtime.GOMAXPROCS(-1)
	listSize := (len(tasks) + maxGoroutines - 1) / maxGoroutines
	if listSize == 0 {
		return
	}
	var wg sync.WaitGroup
	for start := 0; start < len(tasks); start += listSize {
		end := min(start+listSize, len(tasks))
		wg.Add(1)
		go func(part []twoElectronTask) {
			defer wg.Done()
			for idx := range part {
				eval(&part[idx])
			}
		}(tasks[start:end])
	}
	wg.Wait()
}

func (c *CIIntegrals) store(tasks []twoElectronTask) {
	n := len(c.orbitals)
	for _, t := range tasks {
		c.twoElectron[twoElectronKey(t.k, t.i, t.j, t.l, t.m, n)] = t.value
	}
}

// visitTwoElectron walks the canonical index orders and the multipolarities
// allowed by the triangle rule. wrongParity selects the k for which both
// l_i+l_l+k and l_j+l_m+k are odd instead of even.
func (c *CIIntegrals) visitTwoElectron(wrongParity bool, visit func(k, i, j, l, m int)) {
	n := len(c.orbitals)
	want := 0
	if wrongParity {
		want = 1
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for l := 0; l < n; l++ {
				for m := 0; m < n; m++ {
					ci, cj, cl, cm := c.ordering(i, j, l, m)
					if ci != i || cj != j || cl != l || cm != m {
						continue
					}
					oi, oj, ol, om := c.orbitals[i], c.orbitals[j], c.orbitals[l], c.orbitals[m]
					kmin1, kmax1 := angular.KRange(oi.Kappa, ol.Kappa)
					kmin2, kmax2 := angular.KRange(oj.Kappa, om.Kappa)
					for k := max(kmin1, kmin2); k <= min(kmax1, kmax2); k++ {
						if (oi.L()+ol.L()+k)%2 == want && (oj.L()+om.L()+k)%2 == want {
							visit(k, i, j, l, m)
						}
					}
				}
			}
		}
	}
}

// StorageSize is the number of two-electron integrals Update will store.
func (c *CIIntegrals) StorageSize() int {
	count := 0
	c.visitTwoElectron(false, func(int, int, int, int, int) { count++ })
	return count
}

func (c *CIIntegrals) OneElectronIntegral(a, b basis.OrbitalInfo) float64 {
	if a.Kappa != b.Kappa {
		return 0.
	}
	i, ok1 := c.index[a]
	j, ok2 := c.index[b]
	if !ok1 || !ok2 {
		return 0.
	}
	if i > j {
		i, j = j, i
	}
	return c.oneElectron[oneElectronKey(i, j, len(c.orbitals))]
}

func (c *CIIntegrals) SMSIntegral(a, b basis.OrbitalInfo) float64 {
	i, ok1 := c.index[a]
	j, ok2 := c.index[b]
	if !ok1 || !ok2 || i == j {
		return 0.
	}
	if i > j {
		return -c.sms[oneElectronKey(j, i, len(c.orbitals))]
	}
	return c.sms[oneElectronKey(i, j, len(c.orbitals))]
}

func (c *CIIntegrals) Overlap(a, b basis.OrbitalInfo) float64 {
	i, ok1 := c.index[a]
	j, ok2 := c.index[b]
	if !ok1 || !ok2 {
		return 0.
	}
	if i > j {
		i, j = j, i
	}
	return c.overlap[oneElectronKey(i, j, len(c.orbitals))]
}

func (c *CIIntegrals) TwoElectronIntegral(k int, i, j, l, m basis.OrbitalInfo) float64 {
	ii, ok1 := c.index[i]
	jj, ok2 := c.index[j]
	ll, ok3 := c.index[l]
	mm, ok4 := c.index[m]
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return 0.
	}
	ii, jj, ll, mm = c.ordering(ii, jj, ll, mm)
	return c.twoElectron[twoElectronKey(k, ii, jj, ll, mm, len(c.orbitals))]
}

// SetTwoElectronIntegral stores R_k(ij,lm) under its canonical key; every
// equivalent index order reads the same value back.
func (c *CIIntegrals) SetTwoElectronIntegral(k int, i, j, l, m basis.OrbitalInfo, value float64) error {
	ii, ok1 := c.index[i]
	jj, ok2 := c.index[j]
	ll, ok3 := c.index[l]
	mm, ok4 := c.index[m]
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return errors.Errorf("orbital not in store: %s %s %s %s", i, j, l, m)
	}
	ii, jj, ll, mm = c.ordering(ii, jj, ll, mm)
	c.twoElectron[twoElectronKey(k, ii, jj, ll, mm, len(c.orbitals))] = value
	return nil
}

// SetOneElectronIntegral stores <a|h|b> = <b|h|a>.
func (c *CIIntegrals) SetOneElectronIntegral(a, b basis.OrbitalInfo, value float64) error {
	if a.Kappa != b.Kappa {
		return errors.Errorf("one-electron integral between %s and %s vanishes by symmetry", a, b)
	}
	i, ok1 := c.index[a]
	j, ok2 := c.index[b]
	if !ok1 || !ok2 {
		return errors.Errorf("orbital not in store: %s %s", a, b)
	}
	if i > j {
		i, j = j, i
	}
	c.oneElectron[oneElectronKey(i, j, len(c.orbitals))] = value
	return nil
}

// NumTwoElectronIntegrals is the number of stored R_k values.
func (c *CIIntegrals) NumTwoElectronIntegrals() int {
	return len(c.twoElectron)
}
