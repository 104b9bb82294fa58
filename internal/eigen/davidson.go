// davidson.go --  This file is part of goCI project.
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

// Package eigen finds the lowest eigenpairs of a large symmetric matrix
// that is only available through a collective matrix-vector product.
// Every rank runs the same block Davidson iteration on identical data, so
// the ranks stay in step and all of them end with the full result.
package eigen

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrNotConverged marks a solve that returned fewer converged eigenpairs
// than requested.
var ErrNotConverged = errors.New("eigen: not converged")

// ConvergenceError reports how many of the requested pairs converged. It is
// returned together with the partial result.
type ConvergenceError struct {
	Requested  int
	Converged  int
	Iterations int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("eigen: %d of %d eigenpairs converged after %d iterations", e.Converged, e.Requested, e.Iterations)
}

func (e *ConvergenceError) Unwrap() error { return ErrNotConverged }

// Operator is a symmetric matrix seen through collective operations.
type Operator interface {
	N() int
	MulVec(ctx context.Context, dst, src []float64) error
	Diagonal(ctx context.Context) ([]float64, error)
}

type Settings struct {
	// Tolerance on the residual norm |A x - theta x|.
	Tolerance     float64
	MaxIterations int
	// MaxSubspace triggers a restart with the current Ritz vectors.
	MaxSubspace int
	// DenseLimit is the largest dimension solved exactly from the full
	// matrix. Zero selects DefaultDenseLimit, a negative value always
	// iterates.
	DenseLimit int
}

// DefaultDenseLimit also bounds the dimension for which the iteration may
// fall back to spanning the whole space.
const DefaultDenseLimit = 200

const (
	// guessSeed makes the random start vectors identical on every rank.
	guessSeed  = 0x5eed
	guessNoise = 0.1
)

func (s Settings) withDefaults(k int) Settings {
	if s.Tolerance <= 0 {
		s.Tolerance = 1e-8
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = 1000
	}
	if s.MaxSubspace < 4*k {
		s.MaxSubspace = max(4*k, 24)
	}
	if s.DenseLimit == 0 {
		s.DenseLimit = DefaultDenseLimit
	}
	return s
}

// Result holds the lowest eigenpairs in ascending order. Vectors has one
// normalized eigenvector per row.
type Result struct {
	Values      []float64
	Vectors     *mat.Dense
	Iterations  int
	ResidualRMS float64
}

// Solution returns eigenvector i.
func (r *Result) Solution(i int) []float64 {
	return r.Vectors.RawRowView(i)
}

const (
	dropNorm       = 1e-10
	minDenominator = 1e-4
)

type davidson struct {
	ctx    context.Context
	op     Operator
	n      int
	diag   []float64
	basis  [][]float64
	images [][]float64

	rnd         *rand.Rand
	canComplete bool
}

// add orthogonalizes v against the basis and appends it with its image.
// It reports false when v is (numerically) inside the span.
func (d *davidson) add(v []float64) (bool, error) {
	norm0 := floats.Norm(v, 2)
	if norm0 == 0 {
		return false, nil
	}
	for pass := 0; pass < 2; pass++ {
		for _, b := range d.basis {
			floats.AddScaled(v, -floats.Dot(b, v), b)
		}
	}
	norm := floats.Norm(v, 2)
	if norm < dropNorm*norm0 || norm < dropNorm {
		return false, nil
	}
	floats.Scale(1/norm, v)
	image := make([]float64, d.n)
	if err := d.op.MulVec(d.ctx, image, v); err != nil {
		return false, err
	}
	d.basis = append(d.basis, v)
	d.images = append(d.images, image)
	return true, nil
}

// complete extends the basis to the whole space, which makes the next
// Rayleigh-Ritz step exact.
func (d *davidson) complete() error {
	for i := 0; i < d.n && len(d.basis) < d.n; i++ {
		e := make([]float64, d.n)
		e[i] = 1
		if _, err := d.add(e); err != nil {
			return err
		}
	}
	return nil
}

func (d *davidson) random(norm float64) []float64 {
	v := make([]float64, d.n)
	for i := range v {
		v[i] = d.rnd.Float64() - 0.5
	}
	floats.Scale(norm/floats.Norm(v, 2), v)
	return v
}

// addRandom appends a pseudo-random vector.
func (d *davidson) addRandom() (bool, error) {
	return d.add(d.random(1))
}

// expand spans the whole space when that is affordable and adds a random
// direction otherwise.
func (d *davidson) expand() error {
	if d.canComplete {
		return d.complete()
	}
	_, err := d.addRandom()
	return err
}

type ritzPairs struct {
	values  []float64
	vectors [][]float64
	images  [][]float64
}

// ritz solves the projected problem and returns the lowest count pairs.
func (d *davidson) ritz(count int) (ritzPairs, error) {
	m := len(d.basis)
	h := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			h.SetSym(i, j, 0.5*(floats.Dot(d.basis[i], d.images[j])+floats.Dot(d.basis[j], d.images[i])))
		}
	}
	var es mat.EigenSym
	if ok := es.Factorize(h, true); !ok {
		return ritzPairs{}, errors.New("eigen: projected eigenproblem failed")
	}
	var y mat.Dense
	es.VectorsTo(&y)
	values := es.Values(nil)

	count = min(count, m)
	pairs := ritzPairs{values: values[:count]}
	for i := 0; i < count; i++ {
		x := make([]float64, d.n)
		ax := make([]float64, d.n)
		for j := 0; j < m; j++ {
			c := y.At(j, i)
			floats.AddScaled(x, c, d.basis[j])
			floats.AddScaled(ax, c, d.images[j])
		}
		pairs.vectors = append(pairs.vectors, x)
		pairs.images = append(pairs.images, ax)
	}
	return pairs, nil
}

func (d *davidson) restart(pairs ritzPairs, keep int) {
	keep = min(keep, len(pairs.vectors))
	d.basis = append([][]float64(nil), pairs.vectors[:keep]...)
	d.images = append([][]float64(nil), pairs.images[:keep]...)
}

// Lowest computes the min(numSolutions, N) lowest eigenpairs of op. It is
// collective: every rank must call it with the same arguments.
func Lowest(ctx context.Context, op Operator, numSolutions int, settings Settings) (*Result, error) {
	n := op.N()
	k := min(numSolutions, n)
	if k <= 0 {
		return &Result{}, nil
	}
	settings = settings.withDefaults(k)

	diag, err := op.Diagonal(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "diagonal")
	}
	d := &davidson{
		ctx:         ctx,
		op:          op,
		n:           n,
		diag:        diag,
		rnd:         rand.New(rand.NewSource(guessSeed)),
		canComplete: n <= max(settings.DenseLimit, DefaultDenseLimit),
	}

	if n <= settings.DenseLimit {
		if err := d.complete(); err != nil {
			return nil, err
		}
		return d.iterate(k, settings)
	}

	// Start from unit vectors on the smallest diagonal elements. Unit
	// vectors and the diagonal preconditioner never leave the blocks they
	// start in, so each guess carries a small random part that reaches any
	// block of the matrix decoupled from them.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case diag[a] < diag[b]:
			return -1
		case diag[a] > diag[b]:
			return 1
		}
		return 0
	})
	for _, i := range order[:min(n, 2*k)] {
		e := d.random(guessNoise)
		e[i] += 1
		if _, err := d.add(e); err != nil {
			return nil, err
		}
	}
	return d.iterate(k, settings)
}

func (d *davidson) iterate(k int, settings Settings) (*Result, error) {
	n, diag := d.n, d.diag
	keep := min(2*k, settings.MaxSubspace/2)
	for iter := 1; ; iter++ {
		pairs, err := d.ritz(max(k, keep))
		if err != nil {
			return nil, err
		}
		exact := len(d.basis) == n

		residuals := make([]float64, k)
		var corrections [][]float64
		converged := 0
		for i := 0; i < k; i++ {
			r := make([]float64, n)
			floats.AddScaled(r, 1, pairs.images[i])
			floats.AddScaled(r, -pairs.values[i], pairs.vectors[i])
			residuals[i] = floats.Norm(r, 2)
			if exact || residuals[i] < settings.Tolerance {
				if converged == i {
					converged++
				}
				continue
			}
			for j := range r {
				den := pairs.values[i] - diag[j]
				if math.Abs(den) < minDenominator {
					den = math.Copysign(minDenominator, den)
				}
				r[j] /= den
			}
			corrections = append(corrections, r)
		}

		if len(corrections) == 0 || iter >= settings.MaxIterations {
			result := newResult(pairs, k, iter, residuals)
			if converged < k {
				return result, &ConvergenceError{Requested: k, Converged: converged, Iterations: iter}
			}
			return result, nil
		}

		if len(d.basis)+len(corrections) > settings.MaxSubspace {
			d.restart(pairs, keep)
		}
		if len(d.basis)+len(corrections) >= n {
			if d.canComplete {
				if err := d.complete(); err != nil {
					return nil, err
				}
				continue
			}
			corrections = corrections[:max(0, n-1-len(d.basis))]
		}
		added := 0
		for _, t := range corrections {
			ok, err := d.add(t)
			if err != nil {
				return nil, err
			}
			if ok {
				added++
			}
		}
		if added == 0 {
			if err := d.expand(); err != nil {
				return nil, err
			}
		}
	}
}

func newResult(pairs ritzPairs, k, iterations int, residuals []float64) *Result {
	n := len(pairs.vectors[0])
	vectors := mat.NewDense(k, n, nil)
	for i := 0; i < k; i++ {
		x := pairs.vectors[i]
		floats.Scale(1/floats.Norm(x, 2), x)
		// Fix the sign so that the largest component is positive.
		if x[floats.MaxIdx(absolute(x))] < 0 {
			floats.Scale(-1, x)
		}
		vectors.SetRow(i, x)
	}
	squares := make([]float64, k)
	for i, r := range residuals {
		squares[i] = r * r
	}
	return &Result{
		Values:      append([]float64(nil), pairs.values[:k]...),
		Vectors:     vectors,
		Iterations:  iterations,
		ResidualRMS: math.Sqrt(stat.Mean(squares, nil)),
	}
}

func absolute(x []float64) []float64 {
	a := make([]float64, len(x))
	for i, v := range x {
		a[i] = math.Abs(v)
	}
	return a
}
