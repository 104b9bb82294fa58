package eigen

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"example.com/goci/internal/comm"
	"example.com/goci/internal/matrix"
)

// dense is a local Operator for tests.
type dense struct{ *mat.SymDense }

func (d dense) N() int { return d.SymmetricDim() }

func (d dense) MulVec(_ context.Context, dst, src []float64) error {
	y := mat.NewVecDense(len(dst), dst)
	y.MulVec(d.SymDense, mat.NewVecDense(len(src), src))
	return nil
}

func (d dense) Diagonal(context.Context) ([]float64, error) {
	diag := make([]float64, d.N())
	for i := range diag {
		diag[i] = d.At(i, i)
	}
	return diag, nil
}

func randomSymmetric(n int, seed int64) *mat.SymDense {
	rnd := rand.New(rand.NewSource(seed))
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, float64(i)+rnd.Float64())
		for j := i + 1; j < n; j++ {
			s.SetSym(i, j, 0.2*(rnd.Float64()-0.5))
		}
	}
	return s
}

func checkAgainstDense(t *testing.T, a *mat.SymDense, result *Result, k int) {
	t.Helper()
	var es mat.EigenSym
	require.True(t, es.Factorize(a, true))
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	require.Len(t, result.Values, k)
	for i := 0; i < k; i++ {
		assert.InDelta(t, values[i], result.Values[i], 1e-9, "value %d", i)
		x := result.Solution(i)
		assert.InDelta(t, 1, floats.Norm(x, 2), 1e-12)
		overlap := floats.Dot(x, mat.Col(nil, i, &vectors))
		assert.InDelta(t, 1, math.Abs(overlap), 1e-7, "vector %d", i)
	}
}

func TestLowest_Dense(t *testing.T) {
	a := randomSymmetric(60, 1)
	result, err := Lowest(context.Background(), dense{a}, 4, Settings{})
	require.NoError(t, err)
	checkAgainstDense(t, a, result, 4)
	assert.Less(t, result.ResidualRMS, 1e-8)
	assert.Equal(t, 1, result.Iterations)
}

func TestLowest_Iterative(t *testing.T) {
	a := randomSymmetric(60, 1)
	result, err := Lowest(context.Background(), dense{a}, 4, Settings{DenseLimit: -1})
	require.NoError(t, err)
	checkAgainstDense(t, a, result, 4)
	assert.Less(t, result.ResidualRMS, 1e-8)
}

// decoupledBlocks has a low-diagonal block with weak coupling and a
// high-diagonal block whose strong coupling pushes its lowest level below
// everything in the first block.
func decoupledBlocks(size int) *mat.SymDense {
	s := mat.NewSymDense(2*size, nil)
	for i := 0; i < size; i++ {
		s.SetSym(i, i, float64(i))
		if i+1 < size {
			s.SetSym(i, i+1, 0.01)
		}
	}
	for i := size; i < 2*size; i++ {
		s.SetSym(i, i, 30)
		for j := i + 1; j < 2*size; j++ {
			s.SetSym(i, j, -2)
		}
	}
	return s
}

func TestLowest_DecoupledBlocks(t *testing.T) {
	a := decoupledBlocks(20)
	for _, tt := range []struct {
		name     string
		settings Settings
	}{
		{"dense", Settings{}},
		{"iterative", Settings{DenseLimit: -1}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Lowest(context.Background(), dense{a}, 3, tt.settings)
			require.NoError(t, err)
			assert.InDelta(t, -8., result.Values[0], 1e-7)
			checkAgainstDense(t, a, result, 3)
		})
	}
}

func TestLowest_SingleElement(t *testing.T) {
	a := mat.NewSymDense(1, []float64{2.5})
	result, err := Lowest(context.Background(), dense{a}, 3, Settings{})
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5}, result.Values)
	assert.Equal(t, []float64{1}, result.Solution(0))
}

func TestLowest_ClampsToDimension(t *testing.T) {
	a := randomSymmetric(5, 2)
	result, err := Lowest(context.Background(), dense{a}, 10, Settings{})
	require.NoError(t, err)
	checkAgainstDense(t, a, result, 5)

	empty, err := Lowest(context.Background(), dense{a}, 0, Settings{})
	require.NoError(t, err)
	assert.Empty(t, empty.Values)
}

func TestLowest_NotConverged(t *testing.T) {
	a := randomSymmetric(80, 3)
	result, err := Lowest(context.Background(), dense{a}, 3, Settings{MaxIterations: 1, DenseLimit: -1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConverged)
	var convErr *ConvergenceError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, 3, convErr.Requested)
	assert.Less(t, convErr.Converged, 3)
	require.NotNil(t, result)
	assert.Len(t, result.Values, 3)
}

func TestLowest_Distributed(t *testing.T) {
	a := randomSymmetric(30, 4)
	offsets := []int{0, 4, 5, 11, 12, 20, 30}
	for _, tt := range []struct {
		size     int
		settings Settings
	}{{1, Settings{}}, {2, Settings{}}, {3, Settings{}}, {2, Settings{DenseLimit: -1}}, {3, Settings{DenseLimit: -1}}} {
		size := tt.size
		err := comm.Run(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
			m := matrix.New(c, offsets)
			for i := 0; i < a.SymmetricDim(); i++ {
				if !m.Owns(i) {
					continue
				}
				for j := i; j < a.SymmetricDim(); j++ {
					if err := m.Add(i, j, a.At(i, j)); err != nil {
						return err
					}
				}
			}
			m.WriteMode(false)
			result, err := Lowest(ctx, m, 3, tt.settings)
			if err != nil {
				return err
			}
			checkAgainstDense(t, a, result, 3)
			return nil
		})
		require.NoError(t, err)
	}
}
