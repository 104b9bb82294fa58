// solve.go --  This file is part of goCI project.
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
package hamiltonian

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"example.com/goci/internal/basis"
	"example.com/goci/internal/eigen"
	"example.com/goci/internal/operator"
	"example.com/goci/internal/partition"
	"example.com/goci/internal/solution"
)

// PrintThreshold is the smallest configuration weight, in percent, that is
// printed with a level.
const PrintThreshold = 1.

// Recorder receives the configuration weights of levels whose largest
// contribution comes from a leading configuration.
type Recorder interface {
	AddPercentages(p solution.Percentages)
}

type SolveOptions struct {
	NumSolutions int
	// GFactors is the S_z projection operator; nil skips g-factors.
	GFactors operator.ProjectionOperator
	Leading  []basis.Configuration
	Recorder Recorder
	// Solutions receives the levels at rank 0 when not nil.
	Solutions *solution.SolutionMap
}

// SolveMatrix finds the lowest min(NumSolutions, N) levels, prints them at
// rank 0 with their configuration weights and, if requested, g-factors.
// It is collective. When the eigensolver does not converge the partial
// levels are still printed and the *eigen.ConvergenceError is returned.
func (h *Matrix) SolveMatrix(ctx context.Context, opts SolveOptions) error {
	h.M.WriteMode(false)
	if h.comm.IsRoot() {
		h.log.Output.Println("\nFinding solutions")
	}

	numSolutions := min(opts.NumSolutions, h.N())
	start := time.Now()
	result, solveErr := eigen.Lowest(ctx, h.M, numSolutions, h.settings)
	var convErr *eigen.ConvergenceError
	if solveErr != nil && !errors.As(solveErr, &convErr) {
		return errors.Wrapf(solveErr, "solve %s", h.symmetry)
	}
	h.metrics.ObserveSolve(h.symmetry.String(), time.Since(start))
	h.E = result.Values
	h.V = result.Vectors
	if convErr != nil {
		h.log.Warning.Println(convErr)
	}

	var gFactors []float64
	if opts.GFactors != nil {
		var err error
		if gFactors, err = h.GFactors(ctx, h.symmetry.TwoJ, opts.GFactors); err != nil {
			return err
		}
	}

	if h.comm.IsRoot() {
		out := h.log.Output
		out.Printf("Solutions for J = %g: \n", h.symmetry.J())
		for i := range h.E {
			energy := h.E[i]
			out.Printf("%d: %.8f    %.12g /cm\n", i, energy, energy*solution.HartreeEnergyInInvCm)

			percentages, leading := h.Percentages(i)
			if opts.Recorder != nil && slices.Contains(opts.Leading, leading) {
				opts.Recorder.AddPercentages(percentages)
			}
			for _, config := range percentages.Sorted() {
				if percentages[config] > PrintThreshold {
					out.Printf("%20s  %5.2f%%\n", config, percentages[config])
				}
			}

			s := &solution.Solution{Energy: energy, Percentages: percentages}
			if gFactors != nil {
				s.GFactor = gFactors[i]
				out.Printf("    g-factor = %.5f\n", gFactors[i])
			}
			out.Println()

			if opts.Solutions != nil {
				if err := opts.Solutions.Add(solution.NewSolutionID(h.symmetry, i), s); err != nil {
					return err
				}
			}
		}
		h.metrics.AddSolutions(h.symmetry.String(), len(h.E))
	}

	if convErr != nil {
		return errors.Wrapf(solveErr, "solve %s", h.symmetry)
	}
	return nil
}

// Percentages gives the weight of each non-relativistic configuration in
// solution i, summed over its relativistic configurations and J states,
// and the configuration with the largest weight.
func (h *Matrix) Percentages(i int) (solution.Percentages, basis.Configuration) {
	v := h.V.RawRowView(i)
	percentages := make(solution.Percentages)
	for k, c := range h.configs {
		nrconfig := c.NonRelConfiguration()
		weight := percentages[nrconfig]
		for jstate := 0; jstate < c.NumJStates(); jstate++ {
			coeff := v[h.offsets[k]+jstate]
			weight += coeff * coeff * 100
		}
		percentages[nrconfig] = weight
	}
	leading, _ := percentages.Largest()
	return percentages, leading
}

// expectation accumulates this rank's share of <solution|op|solution> for
// every solution. Blocks with i != j stand for both (i, j) and (j, i) and
// count twice.
func (h *Matrix) expectation(op operator.ProjectionOperator) []float64 {
	ns := h.NumSolutions()
	total := make([]float64, ns)
	if ns == 0 {
		return total
	}
	// a[pi*ns + s] = sum over J states of coefficient * V[s, row]
	contract := func(k int) []float64 {
		c := h.configs[k]
		coeff := c.JCoefficients()
		a := make([]float64, len(c.Projections())*ns)
		for p := range c.Projections() {
			for jstate := 0; jstate < c.NumJStates(); jstate++ {
				cp := coeff.At(p, jstate)
				for s := 0; s < ns; s++ {
					a[p*ns+s] += cp * h.V.At(s, h.offsets[k]+jstate)
				}
			}
		}
		return a
	}

	rank, size := h.comm.Rank(), h.comm.Size()
	for _, i := range partition.OwnedBlocks(rank, len(h.configs), size) {
		if h.configs[i].NumJStates() == 0 {
			continue
		}
		ai := contract(i)
		for j := i; j < len(h.configs); j++ {
			if h.configs[j].NumJStates() == 0 {
				continue
			}
			aj := contract(j)
			factor := 1.
			if i != j {
				factor = 2.
			}
			for pi, p := range h.configs[i].Projections() {
				for pj, q := range h.configs[j].Projections() {
					element := op.Element(p, q)
					if element == 0 {
						continue
					}
					for s := 0; s < ns; s++ {
						total[s] += factor * ai[pi*ns+s] * aj[pj*ns+s] * element
					}
				}
			}
		}
	}
	return total
}

// GFactors returns g = <S_z>/J + 1 for each solution on every rank, or
// zeros when two_j == 0. It is collective.
func (h *Matrix) GFactors(ctx context.Context, twoJ int, sz operator.ProjectionOperator) ([]float64, error) {
	g := make([]float64, h.NumSolutions())
	if twoJ == 0 || len(g) == 0 {
		return g, nil
	}
	total := h.expectation(sz)
	if err := h.comm.ReduceSum(ctx, g, total, 0); err != nil {
		return nil, errors.Wrap(err, "g-factors")
	}
	if err := h.comm.Broadcast(ctx, g, 0); err != nil {
		return nil, errors.Wrap(err, "g-factors")
	}
	J := float64(twoJ) / 2.
	for s := range g {
		g[s] = g[s]/J + 1.
	}
	return g, nil
}

// IsotopeShift reduces the expectation value of a specific mass shift
// operator for each solution and prints it at rank 0 in a.u. and cm^-1.
// The values are returned at rank 0 and nil elsewhere. It is collective.
func (h *Matrix) IsotopeShift(ctx context.Context, sms operator.ProjectionOperator) ([]float64, error) {
	ns := h.NumSolutions()
	total := make([]float64, ns)
	if err := h.comm.ReduceSum(ctx, total, h.expectation(sms), 0); err != nil {
		return nil, errors.Wrap(err, "isotope shift")
	}
	if !h.comm.IsRoot() {
		return nil, nil
	}
	h.log.Output.Println("Specific mass shift expectation values:")
	for s, value := range total {
		h.log.Output.Printf("%d: %.8f    %g /cm\n", s, value, value*solution.HartreeEnergyInInvCm)
	}
	return total, nil
}
