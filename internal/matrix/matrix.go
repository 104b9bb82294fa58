// matrix.go --  This file is part of goCI project.
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

// Package matrix holds a symmetric matrix whose rows are split between the
// workers by configuration block. Only the upper triangle is stored. A
// matrix starts in write mode, where each rank accumulates into the rows it
// owns, and is switched to read mode by every rank before it is solved.
package matrix

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"example.com/goci/internal/comm"
	"example.com/goci/internal/partition"
)

var (
	ErrReadMode  = errors.New("matrix: write in read mode")
	ErrWriteMode = errors.New("matrix: read in write mode")
	ErrNotOwner  = errors.New("matrix: row not owned by this rank")
)

// NumMagnitudeBins is the length of a magnitude histogram.
const NumMagnitudeBins = 10

// Distributed is the local part of a distributed symmetric matrix.
type Distributed struct {
	comm     *comm.Comm
	n        int
	offsets  []int
	rows     map[int][]float64 // row -> columns row..n-1
	owned    []int             // keys of rows, ascending
	readMode bool
}

// New allocates the rows owned by c. offsets has one entry per block plus
// the total dimension, as returned by RelativisticConfigList.Offsets.
func New(c *comm.Comm, offsets []int) *Distributed {
	if len(offsets) == 0 {
		panic("matrix: no offsets")
	}
	m := &Distributed{
		comm:    c,
		n:       offsets[len(offsets)-1],
		offsets: offsets,
		rows:    make(map[int][]float64),
	}
	for b := 0; b+1 < len(offsets); b++ {
		if !partition.Owns(c.Rank(), b, c.Size()) {
			continue
		}
		for r := offsets[b]; r < offsets[b+1]; r++ {
			m.rows[r] = make([]float64, m.n-r)
			m.owned = append(m.owned, r)
		}
	}
	return m
}

// N is the dimension.
func (m *Distributed) N() int { return m.n }

func (m *Distributed) Comm() *comm.Comm { return m.comm }

// NumBlocks is the number of configuration blocks.
func (m *Distributed) NumBlocks() int { return len(m.offsets) - 1 }

// Offsets gives the first row of each block and finally N.
func (m *Distributed) Offsets() []int { return m.offsets }

// WriteMode switches between accumulating and reading. Every rank must
// switch before the collective operations are used.
func (m *Distributed) WriteMode(write bool) {
	m.readMode = !write
}

func (m *Distributed) ReadMode() bool { return m.readMode }

// Clear zeroes the local rows and returns to write mode.
func (m *Distributed) Clear() {
	for _, row := range m.rows {
		clear(row)
	}
	m.readMode = false
}

func (m *Distributed) checkIndex(i, j int) {
	if i < 0 || j < 0 || i >= m.n || j >= m.n {
		panic(mat.ErrIndexOutOfRange)
	}
}

// Owns reports whether this rank holds row i.
func (m *Distributed) Owns(i int) bool {
	_, ok := m.rows[i]
	return ok
}

// Add accumulates value into (i, j) and, by symmetry, (j, i). The upper
// triangle row min(i, j) must be owned by this rank.
func (m *Distributed) Add(i, j int, value float64) error {
	m.checkIndex(i, j)
	if m.readMode {
		return ErrReadMode
	}
	if i > j {
		i, j = j, i
	}
	row, ok := m.rows[i]
	if !ok {
		return errors.Wrapf(ErrNotOwner, "row %d", i)
	}
	row[j-i] += value
	return nil
}

// At reads (i, j) from a locally owned row.
func (m *Distributed) At(i, j int) (float64, error) {
	m.checkIndex(i, j)
	if !m.readMode {
		return 0, ErrWriteMode
	}
	if i > j {
		i, j = j, i
	}
	row, ok := m.rows[i]
	if !ok {
		return 0, errors.Wrapf(ErrNotOwner, "row %d", i)
	}
	return row[j-i], nil
}

// MulVec sets dst = M src on every rank. It is collective.
func (m *Distributed) MulVec(ctx context.Context, dst, src []float64) error {
	if !m.readMode {
		return ErrWriteMode
	}
	if len(dst) != m.n || len(src) != m.n {
		panic(mat.ErrShape)
	}
	clear(dst)
	for _, r := range m.owned {
		row := m.rows[r]
		dst[r] += row[0] * src[r]
		for k := 1; k < len(row); k++ {
			c := r + k
			dst[r] += row[k] * src[c]
			dst[c] += row[k] * src[r]
		}
	}
	return m.comm.AllReduceSum(ctx, dst)
}

// Diagonal returns the diagonal on every rank. It is collective.
func (m *Distributed) Diagonal(ctx context.Context) ([]float64, error) {
	if !m.readMode {
		return nil, ErrWriteMode
	}
	diag := make([]float64, m.n)
	for r, row := range m.rows {
		diag[r] = row[0]
	}
	if err := m.comm.AllReduceSum(ctx, diag); err != nil {
		return nil, err
	}
	return diag, nil
}

// Gather assembles the whole matrix on every rank. It moves O(N^2) data
// and is meant for small matrices and checks.
func (m *Distributed) Gather(ctx context.Context) (*mat.SymDense, error) {
	if !m.readMode {
		return nil, ErrWriteMode
	}
	if m.n == 0 {
		return nil, errors.New("matrix: empty")
	}
	full := make([]float64, m.n*m.n)
	for r, row := range m.rows {
		copy(full[r*m.n+r:(r+1)*m.n], row)
	}
	if err := m.comm.AllReduceSum(ctx, full); err != nil {
		return nil, err
	}
	return mat.NewSymDense(m.n, full), nil
}

// MagnitudeBin sorts |value| into bins: 9 for >= 1, otherwise the number of
// divisions by 100 needed to fall to 1e-16 or below, so 0 holds negligible
// entries.
func MagnitudeBin(value float64) int {
	value = math.Abs(value)
	if value >= 1. {
		return NumMagnitudeBins - 1
	}
	count := 0
	for value > 1.e-16 {
		value /= 100.
		count++
	}
	return count
}

// LocalHistogram counts the magnitudes of the locally owned upper triangle.
// Off-diagonal entries count twice for the mirrored element.
func (m *Distributed) LocalHistogram() ([NumMagnitudeBins]uint64, error) {
	var hist [NumMagnitudeBins]uint64
	if !m.readMode {
		return hist, ErrWriteMode
	}
	for _, r := range m.owned {
		for k, value := range m.rows[r] {
			bin := MagnitudeBin(value)
			hist[bin]++
			if k != 0 {
				hist[bin]++
			}
		}
	}
	return hist, nil
}
