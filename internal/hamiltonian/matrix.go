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

// Package hamiltonian builds and solves the CI Hamiltonian of one symmetry
// on a group of workers and reduces observables from its eigenvectors.
// Every traversal over the matrix uses the block ownership of package
// partition, so partial sums from different ranks add up to the full
// result under a sum reduction.
package hamiltonian

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"example.com/goci/internal/basis"
	"example.com/goci/internal/comm"
	"example.com/goci/internal/eigen"
	"example.com/goci/internal/logging"
	"example.com/goci/internal/matrix"
	"example.com/goci/internal/metrics"
	"example.com/goci/internal/operator"
	"example.com/goci/internal/partition"
	"example.com/goci/internal/symmetry"
)

// DefaultThreshold is the magnitude below which projection matrix elements
// are skipped.
const DefaultThreshold = 1.e-16

// Matrix is one rank's part of the Hamiltonian of one symmetry.
type Matrix struct {
	comm     *comm.Comm
	configs  basis.RelativisticConfigList
	offsets  []int
	op       operator.ProjectionOperator
	symmetry symmetry.Symmetry
	log      *logging.Loggers
	metrics  *metrics.Metrics

	threshold float64
	settings  eigen.Settings

	M *matrix.Distributed
	// E and V hold the eigenvalues and the eigenvectors (one per row) after
	// SolveMatrix, on every rank.
	E []float64
	V *mat.Dense
}

func New(c *comm.Comm, configs basis.RelativisticConfigList, op operator.ProjectionOperator, sym symmetry.Symmetry, log *logging.Loggers) *Matrix {
	return &Matrix{
		comm:      c,
		configs:   configs,
		offsets:   configs.Offsets(),
		op:        op,
		symmetry:  sym,
		log:       log,
		threshold: DefaultThreshold,
	}
}

// SetThreshold changes the negligible element cutoff; 0 keeps every
// nonzero element.
func (h *Matrix) SetThreshold(threshold float64) { h.threshold = threshold }

func (h *Matrix) SetMetrics(m *metrics.Metrics) { h.metrics = m }

func (h *Matrix) SetEigenSettings(s eigen.Settings) { h.settings = s }

// N is the matrix dimension.
func (h *Matrix) N() int { return h.offsets[len(h.offsets)-1] }

// NumSolutions is the number of eigenpairs held after SolveMatrix.
func (h *Matrix) NumSolutions() int { return len(h.E) }

// GenerateMatrix accumulates the upper triangle of the rows owned by this
// rank. For each owned configuration i, every configuration j >= i and
// every projection pair, the projection element H(p, q) is spread over the
// J states with the coefficient tables. Within a diagonal block only
// jstate_j >= jstate_i is written.
func (h *Matrix) GenerateMatrix() error {
	start := time.Now()
	if h.M == nil {
		h.M = matrix.New(h.comm, h.offsets)
	} else {
		h.M.Clear()
	}
	h.M.WriteMode(true)

	rank, size := h.comm.Rank(), h.comm.Size()
	for _, i := range partition.OwnedBlocks(rank, len(h.configs), size) {
		ci := h.configs[i]
		projI := ci.Projections()
		coeffI := ci.JCoefficients()
		statesI := ci.NumJStates()
		for j := i; j < len(h.configs); j++ {
			cj := h.configs[j]
			projJ := cj.Projections()
			coeffJ := cj.JCoefficients()
			statesJ := cj.NumJStates()
			if statesI == 0 || statesJ == 0 {
				continue
			}
			for pi, p := range projI {
				for pj, q := range projJ {
					operatorH := h.op.Element(p, q)
					if math.Abs(operatorH) <= h.threshold {
						continue
					}
					for jsi := 0; jsi < statesI; jsi++ {
						jsjStart := 0
						if i == j {
							jsjStart = jsi
						}
						for jsj := jsjStart; jsj < statesJ; jsj++ {
							value := coeffI.At(pi, jsi) * coeffJ.At(pj, jsj) * operatorH
							if err := h.M.Add(h.offsets[i]+jsi, h.offsets[j]+jsj, value); err != nil {
								return errors.Wrapf(err, "configurations %s, %s", ci.Name(), cj.Name())
							}
						}
					}
				}
			}
		}
	}

	if h.comm.IsRoot() {
		h.log.Info.Println("Matrix Generated", h.symmetry)
	}
	h.metrics.ObserveGenerate(h.symmetry.String(), time.Since(start))
	return nil
}

// PollMatrix counts the matrix elements by magnitude (see
// matrix.MagnitudeBin) and prints the totals at rank 0 as
// "bin count percent". The reduced counts are returned at rank 0 and nil
// elsewhere. It is collective.
func (h *Matrix) PollMatrix(ctx context.Context) ([]uint64, error) {
	h.M.WriteMode(false)
	local, err := h.M.LocalHistogram()
	if err != nil {
		return nil, err
	}
	total := make([]uint64, matrix.NumMagnitudeBins)
	if err := h.comm.ReduceSumUint(ctx, total, local[:], 0); err != nil {
		return nil, errors.Wrap(err, "poll matrix")
	}
	if !h.comm.IsRoot() {
		return nil, nil
	}
	n := float64(h.N())
	for bin, count := range total {
		h.log.Output.Printf("%d %d %g\n", bin, count, float64(count)/(n*n)*100.)
	}
	h.metrics.SetMagnitudes(h.symmetry.String(), total)
	return total, nil
}
