// keys.go --  This file is part of goCI project.
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

import "strconv"

// Keys pack orbital indices into a single integer, most significant first:
// i*n + j for one-electron keys and (((k*n + i)*n + j)*n + l)*n + m for
// two-electron keys, where n is the number of orbitals.

func oneElectronKey(i, j, n int) uint64 {
	return uint64(i)*uint64(n) + uint64(j)
}

func twoElectronKey(k, i, j, l, m, n int) uint64 {
	nn := uint64(n)
	return (((uint64(k)*nn+uint64(i))*nn+uint64(j))*nn+uint64(l))*nn + uint64(m)
}

// splitTwoElectronKey is the inverse of twoElectronKey.
func splitTwoElectronKey(key uint64, n int) (k, i, j, l, m int) {
	nn := uint64(n)
	m = int(key % nn)
	key /= nn
	l = int(key % nn)
	key /= nn
	j = int(key % nn)
	key /= nn
	i = int(key % nn)
	k = int(key / nn)
	return
}

type quad [4]int

func lessQuad(a, b quad) bool {
	for x := 0; x < 4; x++ {
		if a[x] != b[x] {
			return a[x] < b[x]
		}
	}
	return false
}

// Ordering maps R_k(ij,lm) onto the representative of its symmetry class.
type Ordering func(i, j, l, m int) (int, int, int, int)

// Layout names the canonical key scheme of a store. It is written into the
// integral files so that a table is only read back under its own ordering.
type Layout uint32

const (
	FullLayout Layout = iota + 1
	ReducedLayout
)

func (l Layout) ordering() Ordering {
	if l == ReducedLayout {
		return ReducedOrdering
	}
	return FullOrdering
}

func (l Layout) String() string {
	switch l {
	case FullLayout:
		return "full"
	case ReducedLayout:
		return "reduced"
	}
	return "layout(" + strconv.Itoa(int(l)) + ")"
}

// FullOrdering uses the complete symmetry of the bare Coulomb integral:
// i<->l, j<->m and the exchange of the two electrons (eight equivalent
// index orders).
func FullOrdering(i, j, l, m int) (int, int, int, int) {
	return smallest(
		quad{i, j, l, m}, quad{l, j, i, m}, quad{i, m, l, j}, quad{l, m, i, j},
		quad{j, i, m, l}, quad{m, i, j, l}, quad{j, l, m, i}, quad{m, l, j, i},
	)
}

// ReducedOrdering keeps only electron exchange and bra/ket exchange, the
// symmetries left once correlation diagrams are added (four index orders).
func ReducedOrdering(i, j, l, m int) (int, int, int, int) {
	return smallest(quad{i, j, l, m}, quad{j, i, m, l}, quad{l, m, i, j}, quad{m, l, j, i})
}

func smallest(candidates ...quad) (int, int, int, int) {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if lessQuad(c, best) {
			best = c
		}
	}
	return best[0], best[1], best[2], best[3]
}
