package solution

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/goci/internal/basis"
	"example.com/goci/internal/symmetry"
)

func TestSolutionID_Order(t *testing.T) {
	ids := []SolutionID{
		{TwoJ: 1, Parity: symmetry.Even, Index: 0},
		{TwoJ: 1, Parity: symmetry.Even, Index: 3},
		{TwoJ: 1, Parity: symmetry.Odd, Index: 0},
		{TwoJ: 3, Parity: symmetry.Even, Index: 0},
	}
	for i := 0; i+1 < len(ids); i++ {
		assert.True(t, ids[i].Less(ids[i+1]), "%s < %s", ids[i], ids[i+1])
		assert.False(t, ids[i+1].Less(ids[i]))
	}
	assert.Zero(t, CompareIDs(ids[0], ids[0]))
}

func TestSolutionID_Identifier(t *testing.T) {
	tests := []struct {
		id   SolutionID
		want string
	}{
		{SolutionID{TwoJ: 3, Parity: symmetry.Odd, Index: 2}, "1.5o2"},
		{SolutionID{TwoJ: 0, Parity: symmetry.Even, Index: 0}, "0e0"},
		{SolutionID{TwoJ: 4, Parity: symmetry.Even, Index: 11}, "2e11"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.Identifier())
			parsed, err := ParseIdentifier(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.id, parsed)
		})
	}
	for _, bad := range []string{"", "e1", "1.5o", "1.25e0", "xe1", "1e-1"} {
		_, err := ParseIdentifier(bad)
		assert.Error(t, err, bad)
	}
}

func TestPercentages(t *testing.T) {
	p := Percentages{"3s2": 40, "3p2": 40, "3s 3d": 20}
	leading, weight := p.Largest()
	assert.Equal(t, basis.Configuration("3p2"), leading)
	assert.Equal(t, 40., weight)
	assert.Equal(t, 100., p.Total())
	assert.Equal(t, []basis.Configuration{"3p2", "3s 3d", "3s2"}, p.Sorted())
}

func TestSolutionMap(t *testing.T) {
	sym := symmetry.New(2, symmetry.Odd)
	m := NewSolutionMap()
	for _, index := range []int{2, 0, 1} {
		require.NoError(t, m.Add(NewSolutionID(sym, index), &Solution{Energy: -float64(index)}))
	}
	assert.Error(t, m.Add(NewSolutionID(sym, 1), &Solution{}))
	assert.Equal(t, 3, m.Len())
	ids := m.IDs()
	for i, id := range ids {
		assert.Equal(t, i, id.Index)
	}

	id, s, err := m.FindByIdentifier("1o2")
	require.NoError(t, err)
	assert.Equal(t, 2, id.Index)
	assert.Equal(t, -2., s.Energy)
	_, _, err = m.FindByIdentifier("1o7")
	assert.Error(t, err)
}

func TestSolutionMapMap(t *testing.T) {
	mm := NewSolutionMapMap()
	odd := symmetry.New(1, symmetry.Odd)
	even := symmetry.New(4, symmetry.Even)
	require.NoError(t, mm.Get(odd).Add(NewSolutionID(odd, 0), &Solution{
		Energy: -0.5, GFactor: 0.6667, Percentages: Percentages{"3s 3p": 99},
	}))
	require.NoError(t, mm.Get(even).Add(NewSolutionID(even, 0), &Solution{Energy: -0.25}))

	assert.Equal(t, []symmetry.Symmetry{even, odd}, mm.Symmetries())
	assert.Equal(t, 2, mm.Len())

	_, s, err := mm.FindByIdentifier("0.5o0")
	require.NoError(t, err)
	assert.Equal(t, basis.Configuration("3s 3p"), s.LeadingConfiguration())
	assert.InDelta(t, -0.5*HartreeEnergyInInvCm, s.EnergyInvCm(), 1e-9)
	_, _, err = mm.FindByIdentifier("3e0")
	assert.Error(t, err)

	var buf bytes.Buffer
	mm.Print(log.New(&buf, "", 0))
	out := buf.String()
	assert.Contains(t, out, "Solutions for J = 2, P = even:")
	assert.Contains(t, out, "0.5o0")
	assert.Contains(t, out, "g = 0.66670")
	assert.Contains(t, out, "3s 3p (99.0%)")
}
