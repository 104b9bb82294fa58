package operator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/goci/internal/basis"
	"example.com/goci/internal/integrals"
)

var (
	s1  = basis.OrbitalInfo{PQN: 1, Kappa: -1}
	s2  = basis.OrbitalInfo{PQN: 2, Kappa: -1}
	p2m = basis.OrbitalInfo{PQN: 2, Kappa: 1}
	p2p = basis.OrbitalInfo{PQN: 2, Kappa: -2}

	testOrbitals = []basis.OrbitalInfo{s1, s2, p2m, p2p}
)

func id(o basis.OrbitalInfo) float64 {
	for i, x := range testOrbitals {
		if x == o {
			return float64(i + 1)
		}
	}
	return 0
}

type radial struct{}

func pair(a, b basis.OrbitalInfo) float64 { x, y := id(a), id(b); return 0.1 * (x*y + x + y) }

func (radial) OneElectron(a, b basis.OrbitalInfo) float64 { return -1 / pair(a, b) }
func (radial) SMS(a, b basis.OrbitalInfo) float64         { return 0.3 * (id(a) - id(b)) }
func (radial) Overlap(a, b basis.OrbitalInfo) float64 {
	if a == b {
		return 1
	}
	return 0.05
}
func (radial) Coulomb(k int, i, j, l, m basis.OrbitalInfo) float64 {
	return 1 / (float64(k+1) + pair(i, l) + pair(j, m))
}

func mustProjection(t *testing.T, states ...basis.ElectronState) basis.Projection {
	t.Helper()
	p, err := basis.NewProjection(states...)
	require.NoError(t, err)
	return p
}

func projections(t *testing.T, twoM int, configs ...string) []basis.Projection {
	t.Helper()
	var result []basis.Projection
	for _, s := range configs {
		c, err := basis.ParseRelativisticConfiguration(s)
		require.NoError(t, err)
		result = append(result, c.GenerateProjections(twoM)...)
	}
	return result
}

func TestHamiltonian_ClosedShell(t *testing.T) {
	store := integrals.New(testOrbitals, nil)
	require.NoError(t, store.SetOneElectronIntegral(s1, s1, -2.))
	require.NoError(t, store.SetTwoElectronIntegral(0, s1, s1, s1, s1, 1.25))
	h := NewHamiltonian(NewOneBody(store), NewCoulomb(store))

	p := mustProjection(t, basis.ElectronState{Orbital: s1, TwoM: 1}, basis.ElectronState{Orbital: s1, TwoM: -1})
	assert.InDelta(t, 2*-2.+1.25, h.Element(p, p), 1e-12)

	single := mustProjection(t, basis.ElectronState{Orbital: s1, TwoM: 1})
	assert.InDelta(t, -2., h.Element(single, single), 1e-12)
}

func TestHamiltonian_Hermitian(t *testing.T) {
	store := integrals.New(testOrbitals, radial{})
	store.SetInverseMass(0.2)
	require.NoError(t, store.Update())
	h := NewCIHamiltonian(store, false)

	projs := projections(t, 1, "1s2 2s", "1s2 2p-", "1s 2s2", "1s 2p-2", "1s 2s 2p+", "2s 2p-2")
	require.NotEmpty(t, projs)
	nonzero := 0
	for _, p := range projs {
		for _, q := range projs {
			assert.InDelta(t, h.Element(p, q), h.Element(q, p), 1e-12, "%s %s", p, q)
			if h.Element(p, q) != 0 {
				nonzero++
			}
		}
	}
	assert.Greater(t, nonzero, len(projs))
}

func TestHamiltonian_MoreThanTwoDifferences(t *testing.T) {
	store := integrals.New(testOrbitals, radial{})
	require.NoError(t, store.Update())
	h := NewCIHamiltonian(store, false)
	p := projections(t, 1, "1s2 2s")[0]
	q := mustProjection(t,
		basis.ElectronState{Orbital: p2p, TwoM: 3},
		basis.ElectronState{Orbital: p2p, TwoM: 1},
		basis.ElectronState{Orbital: p2p, TwoM: -3})
	assert.Zero(t, h.Element(p, q))
}

// A separate SMS term on a plain store reproduces the SMS folded into R_1
// by an MBPT store.
func TestSMS_FoldedMatchesSeparate(t *testing.T) {
	const lambda = 0.7
	plain := integrals.New(testOrbitals, radial{})
	plain.SetInverseMass(lambda)
	require.NoError(t, plain.Update())

	folded := integrals.NewMBPT(testOrbitals, radial{}, false)
	folded.SetInverseMass(lambda)
	require.NoError(t, folded.Update())
	require.True(t, folded.IncludesSMS())

	h1 := NewCIHamiltonian(plain, false)
	h2 := NewCIHamiltonian(folded, true)
	projs := projections(t, 0, "1s 2s", "1s 2p-", "2s 2p-", "2s 2p+", "1s 2p+")
	for _, p := range projs {
		for _, q := range projs {
			assert.InDelta(t, h1.Element(p, q), h2.Element(p, q), 1e-12, "%s %s", p, q)
		}
	}

	// The SMS term alone is not trivially zero for s-p excitations.
	sms := NewSMSProjection(plain)
	found := false
	for _, p := range projs {
		for _, q := range projs {
			found = found || math.Abs(sms.Element(p, q)) > 1e-6
		}
	}
	assert.True(t, found)
}

func TestSMS_ZeroInverseMass(t *testing.T) {
	store := integrals.New(testOrbitals, radial{})
	require.NoError(t, store.Update())
	a := basis.ElectronState{Orbital: s1, TwoM: 1}
	b := basis.ElectronState{Orbital: p2m, TwoM: 1}
	assert.Zero(t, NewSMS(store, 0).Element(a, a, b, b))
}

func TestSumAndLocalPotential(t *testing.T) {
	constant := TwoBodyFunc(func(a, b, c, d basis.ElectronState) float64 { return 1 })
	total := Sum(constant, nil, constant)
	e := basis.ElectronState{Orbital: s1, TwoM: 1}
	assert.Equal(t, 2., total.Element(e, e, e, e))

	store := integrals.New(testOrbitals, nil)
	require.NoError(t, store.SetOneElectronIntegral(s1, s1, -3))
	one := NewLocalPotential(NewOneBody(store), func(a, b basis.OrbitalInfo) float64 { return 0.5 })
	assert.Equal(t, -2.5, one.Element(e, e))
	other := basis.ElectronState{Orbital: s1, TwoM: -1}
	assert.Zero(t, one.Element(e, other))
	assert.Equal(t, 0.5, NewLocalPotential(nil, func(a, b basis.OrbitalInfo) float64 { return 0.5 }).Element(e, e))
}

func TestSz(t *testing.T) {
	store := integrals.New(testOrbitals, radial{})
	require.NoError(t, store.Update())
	sz := NewSz(store)

	assert.InDelta(t, 0.5, sz.Diagonal(basis.ElectronState{Orbital: s1, TwoM: 1}), 1e-15)
	assert.InDelta(t, 0.5, sz.Diagonal(basis.ElectronState{Orbital: p2p, TwoM: 3}), 1e-15)
	assert.InDelta(t, -1./6., sz.Diagonal(basis.ElectronState{Orbital: p2m, TwoM: 1}), 1e-15)

	a := basis.ElectronState{Orbital: p2m, TwoM: 1}
	b := basis.ElectronState{Orbital: p2p, TwoM: 1}
	assert.InDelta(t, -math.Sqrt2/3*0.05, sz.Element(a, b), 1e-15)
	assert.Equal(t, sz.Element(a, b), sz.Element(b, a))
	assert.Zero(t, sz.Element(a, basis.ElectronState{Orbital: p2p, TwoM: -1}))
	assert.Zero(t, sz.Element(basis.ElectronState{Orbital: s1, TwoM: 1}, b))
}

func TestSz_Projection(t *testing.T) {
	store := integrals.New(testOrbitals, radial{})
	require.NoError(t, store.Update())
	op := NewSzProjection(store)

	closed := projections(t, 0, "2p-2")
	require.Len(t, closed, 1)
	assert.Zero(t, op.Element(closed[0], closed[0]))

	p := projections(t, 1, "2p-")[0]
	q := projections(t, 1, "2p+")[0]
	assert.InDelta(t, -math.Sqrt2/3*0.05, op.Element(p, q), 1e-15)
	assert.Equal(t, op.Element(p, q), op.Element(q, p))

	// Two replaced electrons never contribute to a one-body operator.
	p2 := projections(t, 0, "1s 2s")[0]
	q2 := projections(t, 0, "2p-2")[0]
	assert.Zero(t, op.Element(p2, q2))
}
