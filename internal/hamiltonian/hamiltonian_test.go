package hamiltonian

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"example.com/goci/internal/basis"
	"example.com/goci/internal/comm"
	"example.com/goci/internal/eigen"
	"example.com/goci/internal/logging"
	"example.com/goci/internal/operator"
	"example.com/goci/internal/solution"
	"example.com/goci/internal/symmetry"
)

func configList(t *testing.T, twoJ int, names ...string) basis.RelativisticConfigList {
	t.Helper()
	var list basis.RelativisticConfigList
	for _, name := range names {
		c, err := basis.ParseRelativisticConfiguration(name)
		require.NoError(t, err)
		require.NoError(t, c.GenerateJStates(twoJ))
		list = append(list, c)
	}
	require.NoError(t, list.Validate())
	return list
}

// tableOperator gives a dense symmetric operator on the projections of a
// configuration list.
type tableOperator struct {
	index map[string]int
}

func newTableOperator(list basis.RelativisticConfigList) *tableOperator {
	op := &tableOperator{index: make(map[string]int)}
	for _, c := range list {
		for _, p := range c.Projections() {
			op.index[p.String()] = len(op.index)
		}
	}
	return op
}

func (o *tableOperator) Element(p, q basis.Projection) float64 {
	i, j := o.index[p.String()], o.index[q.String()]
	v := 1. / float64(1+i+j)
	if i == j {
		v += float64(i)
	}
	return v
}

// denseReference evaluates C_a^T F C_b directly.
func denseReference(list basis.RelativisticConfigList, op operator.ProjectionOperator) *mat.SymDense {
	offsets := list.Offsets()
	n := list.N()
	ref := mat.NewSymDense(n, nil)
	for a, ca := range list {
		for b, cb := range list {
			for jsa := 0; jsa < ca.NumJStates(); jsa++ {
				for jsb := 0; jsb < cb.NumJStates(); jsb++ {
					sum := 0.
					for pi, p := range ca.Projections() {
						for qi, q := range cb.Projections() {
							sum += ca.JCoefficients().At(pi, jsa) * cb.JCoefficients().At(qi, jsb) * op.Element(p, q)
						}
					}
					if offsets[a]+jsa <= offsets[b]+jsb {
						ref.SetSym(offsets[a]+jsa, offsets[b]+jsb, sum)
					}
				}
			}
		}
	}
	return ref
}

type recorder struct {
	added []solution.Percentages
}

func (r *recorder) AddPercentages(p solution.Percentages) {
	r.added = append(r.added, p)
}

func TestSolveMatrix_SingleConfiguration(t *testing.T) {
	list := configList(t, 0, "3s2")
	op := operator.ProjectionFunc(func(p, q basis.Projection) float64 { return 2.5 })

	var buf bytes.Buffer
	c := comm.NewGroup(1).Comm(0)
	h := New(c, list, op, symmetry.New(0, symmetry.Even), logging.New(&buf))
	require.NoError(t, h.GenerateMatrix())
	require.Equal(t, 1, h.N())

	rec := &recorder{}
	solutions := solution.NewSolutionMap()
	err := h.SolveMatrix(context.Background(), SolveOptions{
		NumSolutions: 3,
		Leading:      []basis.Configuration{"3s2"},
		Recorder:     rec,
		Solutions:    solutions,
	})
	require.NoError(t, err)

	require.Len(t, h.E, 1)
	assert.InDelta(t, 2.5, h.E[0], 1e-12)
	assert.InDelta(t, 1., h.V.At(0, 0), 1e-12)

	percentages, leading := h.Percentages(0)
	assert.Equal(t, basis.Configuration("3s2"), leading)
	assert.InDelta(t, 100., percentages["3s2"], 1e-10)

	require.Len(t, rec.added, 1)
	assert.Equal(t, 1, solutions.Len())
	s, ok := solutions.Get(solution.NewSolutionID(symmetry.New(0, symmetry.Even), 0))
	require.True(t, ok)
	assert.InDelta(t, 2.5, s.Energy, 1e-12)

	assert.Contains(t, buf.String(), "Solutions for J = 0")
	assert.Contains(t, buf.String(), "0: 2.50000000")
}

func TestGenerateMatrix_MatchesDense(t *testing.T) {
	list := configList(t, 0, "3s2", "3s 4s", "4s2", "3p-2", "3p+2")
	op := newTableOperator(list)
	ref := denseReference(list, op)

	h := New(comm.NewGroup(1).Comm(0), list, op, symmetry.New(0, symmetry.Even), logging.Discard())
	h.SetThreshold(0)
	require.NoError(t, h.GenerateMatrix())
	h.M.WriteMode(false)
	got, err := h.M.Gather(context.Background())
	require.NoError(t, err)

	n := list.N()
	require.Equal(t, n, got.SymmetricDim())
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.InDelta(t, ref.At(i, j), got.At(i, j), 1e-12, "(%d, %d)", i, j)
			assert.Equal(t, got.At(i, j), got.At(j, i))
		}
	}
}

func TestSolveMatrix_IndependentOfWorkers(t *testing.T) {
	list := configList(t, 0, "3s2", "3s 4s", "4s2", "3p-2", "3p+2")
	op := newTableOperator(list)
	sym := symmetry.New(0, symmetry.Even)

	run := func(size int) (energies []float64, percentages []solution.Percentages) {
		err := comm.Run(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
			h := New(c, list, op, sym, logging.Discard())
			h.SetThreshold(0)
			if err := h.GenerateMatrix(); err != nil {
				return err
			}
			if err := h.SolveMatrix(ctx, SolveOptions{NumSolutions: 3}); err != nil {
				return err
			}
			if c.IsRoot() {
				energies = h.E
				for i := range h.E {
					p, _ := h.Percentages(i)
					percentages = append(percentages, p)
				}
			}
			return nil
		})
		require.NoError(t, err)
		return energies, percentages
	}

	wantE, wantP := run(1)
	require.Len(t, wantE, 3)
	var dense mat.EigenSym
	require.True(t, dense.Factorize(denseReference(list, op), false))
	assert.InDeltaSlice(t, dense.Values(nil)[:3], wantE, 1e-8)
	for _, p := range wantP {
		assert.InDelta(t, 100., p.Total(), 1e-8)
	}

	for _, size := range []int{2, 3} {
		gotE, gotP := run(size)
		assert.InDeltaSlice(t, wantE, gotE, 1e-10, "size %d", size)
		for i := range wantP {
			for config, weight := range wantP[i] {
				assert.InDelta(t, weight, gotP[i][config], 1e-6, "size %d solution %d %s", size, i, config)
			}
		}
	}
}

func TestSolveMatrix_NotConverged(t *testing.T) {
	list := configList(t, 0, "3s2", "3s 4s", "4s2", "3p-2", "3p+2")
	op := newTableOperator(list)
	h := New(comm.NewGroup(1).Comm(0), list, op, symmetry.New(0, symmetry.Even), logging.Discard())
	require.NoError(t, h.GenerateMatrix())
	h.SetEigenSettings(eigen.Settings{MaxIterations: 1, DenseLimit: -1})

	solutions := solution.NewSolutionMap()
	err := h.SolveMatrix(context.Background(), SolveOptions{NumSolutions: 1, Solutions: solutions})
	var convErr *eigen.ConvergenceError
	require.True(t, errors.As(err, &convErr))
	assert.True(t, errors.Is(err, eigen.ErrNotConverged))
	// the partial levels are still reported
	assert.Len(t, h.E, 1)
	assert.Equal(t, 1, solutions.Len())
}

// twoLevels builds a matrix over "3s2" and "4s2" with one J state each and
// installs the given eigenvector by hand.
func twoLevels(t *testing.T, a, b float64) (*Matrix, basis.RelativisticConfigList) {
	list := configList(t, 0, "3s2", "4s2")
	h := New(comm.NewGroup(1).Comm(0), list, nil, symmetry.New(0, symmetry.Even), logging.Discard())
	h.E = []float64{0}
	h.V = mat.NewDense(1, 2, []float64{a, b})
	return h, list
}

func TestExpectation_OffDiagonalCountsTwice(t *testing.T) {
	h, list := twoLevels(t, 0.6, 0.8)
	p0, q1 := list[0].Projections()[0], list[1].Projections()[0]
	c0, c1 := list[0].JCoefficients().At(0, 0), list[1].JCoefficients().At(0, 0)

	offDiagonal := operator.ProjectionFunc(func(p, q basis.Projection) float64 {
		if p.String() == p0.String() && q.String() == q1.String() {
			return 1.
		}
		return 0.
	})
	assert.InDelta(t, 2*0.6*0.8*c0*c1, h.expectation(offDiagonal)[0], 1e-12)

	diagonal := operator.ProjectionFunc(func(p, q basis.Projection) float64 {
		if p.String() == p0.String() && q.String() == p0.String() {
			return 1.
		}
		return 0.
	})
	assert.InDelta(t, 0.36*c0*c0, h.expectation(diagonal)[0], 1e-12)
}

func TestGFactors(t *testing.T) {
	h, _ := twoLevels(t, 0.6, 0.8)
	unit := operator.ProjectionFunc(func(p, q basis.Projection) float64 {
		if p.String() == q.String() {
			return 0.25
		}
		return 0.
	})

	g, err := h.GFactors(context.Background(), 0, unit)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, g)

	// <S_z> = 0.25 for a normalized state, J = 1
	g, err = h.GFactors(context.Background(), 2, unit)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, g[0], 1e-12)
}

func TestGFactors_Distributed(t *testing.T) {
	list := configList(t, 0, "3s2", "3s 4s", "4s2", "3p-2", "3p+2")
	op := newTableOperator(list)
	sz := operator.ProjectionFunc(func(p, q basis.Projection) float64 { return 0.1 })

	var want []float64
	for _, size := range []int{1, 3} {
		results := make([][]float64, size)
		err := comm.Run(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
			h := New(c, list, op, symmetry.New(0, symmetry.Even), logging.Discard())
			if err := h.GenerateMatrix(); err != nil {
				return err
			}
			if err := h.SolveMatrix(ctx, SolveOptions{NumSolutions: 2}); err != nil {
				return err
			}
			g, err := h.GFactors(ctx, 4, sz)
			results[c.Rank()] = g
			return err
		})
		require.NoError(t, err)
		if want == nil {
			want = results[0]
		}
		// every rank holds the same g-factors
		for rank := range results {
			assert.InDeltaSlice(t, want, results[rank], 1e-8, "size %d rank %d", size, rank)
		}
	}
}

func TestIsotopeShift(t *testing.T) {
	h, list := twoLevels(t, 1, 0)
	var buf bytes.Buffer
	h.log = logging.New(&buf)
	c0 := list[0].JCoefficients().At(0, 0)

	sms := operator.ProjectionFunc(func(p, q basis.Projection) float64 { return 0.01 })
	shift, err := h.IsotopeShift(context.Background(), sms)
	require.NoError(t, err)
	require.Len(t, shift, 1)
	assert.InDelta(t, 0.01*c0*c0, shift[0], 1e-12)
	assert.Contains(t, buf.String(), "/cm")
}

func TestPollMatrix(t *testing.T) {
	list := configList(t, 0, "3s2", "3s 4s", "4s2", "3p-2", "3p+2")
	op := newTableOperator(list)
	n := list.N()

	for _, size := range []int{1, 2} {
		err := comm.Run(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
			h := New(c, list, op, symmetry.New(0, symmetry.Even), logging.Discard())
			h.SetThreshold(0)
			if err := h.GenerateMatrix(); err != nil {
				return err
			}
			counts, err := h.PollMatrix(ctx)
			if err != nil {
				return err
			}
			if c.IsRoot() {
				total := uint64(0)
				for _, count := range counts {
					total += count
				}
				assert.Equal(t, uint64(n*n), total)
			} else {
				assert.Nil(t, counts)
			}
			return nil
		})
		require.NoError(t, err)
	}
}

func TestGenerateMatrix_LogsOnce(t *testing.T) {
	list := configList(t, 0, "3s2", "3s 4s", "4s2", "3p-2", "3p+2")
	op := newTableOperator(list)
	var out bytes.Buffer
	log := logging.New(&out)
	err := comm.Run(context.Background(), 3, func(ctx context.Context, c *comm.Comm) error {
		return New(c, list, op, symmetry.New(0, symmetry.Even), log).GenerateMatrix()
	})
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("Matrix Generated")))
}
