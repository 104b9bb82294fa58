// solution.go --  This file is part of goCI project.
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

// Package solution keeps the eigenstates found for each symmetry.
package solution

import (
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"example.com/goci/internal/basis"
	"example.com/goci/internal/symmetry"
)

// HartreeEnergyInInvCm converts atomic units of energy to cm^-1.
const HartreeEnergyInInvCm = 219474.6313705

// SolutionID identifies a level by J, parity and position within its
// symmetry. IDs order by J, then parity (even first), then position.
type SolutionID struct {
	TwoJ   int
	Parity symmetry.Parity
	Index  int
}

func NewSolutionID(sym symmetry.Symmetry, index int) SolutionID {
	return SolutionID{TwoJ: sym.TwoJ, Parity: sym.Parity, Index: index}
}

func (id SolutionID) J() float64 { return float64(id.TwoJ) / 2. }

func (id SolutionID) Symmetry() symmetry.Symmetry {
	return symmetry.New(id.TwoJ, id.Parity)
}

func (id SolutionID) Less(other SolutionID) bool {
	if id.TwoJ != other.TwoJ {
		return id.TwoJ < other.TwoJ
	}
	if id.Parity != other.Parity {
		return id.Parity == symmetry.Even
	}
	return id.Index < other.Index
}

func CompareIDs(a, b SolutionID) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

// Identifier is J, a parity letter and the index, e.g. "1.5o2".
func (id SolutionID) Identifier() string {
	p := "e"
	if id.Parity == symmetry.Odd {
		p = "o"
	}
	return strconv.FormatFloat(id.J(), 'f', -1, 64) + p + strconv.Itoa(id.Index)
}

func (id SolutionID) String() string { return id.Identifier() }

// ParseIdentifier reverses Identifier.
func ParseIdentifier(s string) (SolutionID, error) {
	pos := strings.IndexAny(s, "eo")
	if pos <= 0 || pos == len(s)-1 {
		return SolutionID{}, errors.Errorf("bad solution identifier %q", s)
	}
	j, err := strconv.ParseFloat(s[:pos], 64)
	if err != nil || j < 0 || math.Mod(2*j, 1) != 0 {
		return SolutionID{}, errors.Errorf("bad J in solution identifier %q", s)
	}
	index, err := strconv.Atoi(s[pos+1:])
	if err != nil || index < 0 {
		return SolutionID{}, errors.Errorf("bad index in solution identifier %q", s)
	}
	parity := symmetry.Even
	if s[pos] == 'o' {
		parity = symmetry.Odd
	}
	return SolutionID{TwoJ: int(2 * j), Parity: parity, Index: index}, nil
}

// Percentages maps non-relativistic configurations to their weight in a
// level, in percent.
type Percentages map[basis.Configuration]float64

// Largest returns the configuration with the biggest weight; ties go to
// the configuration that sorts first.
func (p Percentages) Largest() (basis.Configuration, float64) {
	var best basis.Configuration
	bestValue := math.Inf(-1)
	for _, c := range p.Sorted() {
		if p[c] > bestValue {
			best, bestValue = c, p[c]
		}
	}
	return best, bestValue
}

// Sorted lists the configurations by name.
func (p Percentages) Sorted() []basis.Configuration {
	keys := make([]basis.Configuration, 0, len(p))
	for c := range p {
		keys = append(keys, c)
	}
	slices.Sort(keys)
	return keys
}

func (p Percentages) Total() float64 {
	total := 0.
	for _, v := range p {
		total += v
	}
	return total
}

// Transition is a line from this level to another one.
type Transition struct {
	To       SolutionID
	Type     string // "E1", "M1", ...
	Strength float64
}

type TransitionSet []Transition

// Solution is one eigenstate. Energy is in atomic units.
type Solution struct {
	Energy      float64
	GFactor     float64
	Percentages Percentages
	Transitions TransitionSet
}

func (s *Solution) EnergyInvCm() float64 {
	return s.Energy * HartreeEnergyInInvCm
}

func (s *Solution) LeadingConfiguration() basis.Configuration {
	c, _ := s.Percentages.Largest()
	return c
}

// SolutionMap holds solutions ordered by SolutionID. Stored solutions are
// not replaced.
type SolutionMap struct {
	ids       []SolutionID
	solutions map[SolutionID]*Solution
}

func NewSolutionMap() *SolutionMap {
	return &SolutionMap{solutions: make(map[SolutionID]*Solution)}
}

func (m *SolutionMap) Add(id SolutionID, s *Solution) error {
	if _, ok := m.solutions[id]; ok {
		return errors.Errorf("solution %s already stored", id)
	}
	pos, _ := slices.BinarySearchFunc(m.ids, id, CompareIDs)
	m.ids = slices.Insert(m.ids, pos, id)
	m.solutions[id] = s
	return nil
}

func (m *SolutionMap) Len() int { return len(m.ids) }

// IDs returns the keys in order.
func (m *SolutionMap) IDs() []SolutionID { return slices.Clone(m.ids) }

func (m *SolutionMap) Get(id SolutionID) (*Solution, bool) {
	s, ok := m.solutions[id]
	return s, ok
}

func (m *SolutionMap) FindByIdentifier(identifier string) (SolutionID, *Solution, error) {
	id, err := ParseIdentifier(identifier)
	if err != nil {
		return SolutionID{}, nil, err
	}
	s, ok := m.solutions[id]
	if !ok {
		return id, nil, errors.Errorf("no solution %s", identifier)
	}
	return id, s, nil
}

// Print writes one line per level: identifier, energy in a.u. and cm^-1,
// g-factor and leading configuration.
func (m *SolutionMap) Print(out *log.Logger) {
	for _, id := range m.ids {
		m.PrintSolution(out, id)
	}
}

func (m *SolutionMap) PrintSolution(out *log.Logger, id SolutionID) {
	s, ok := m.solutions[id]
	if !ok {
		return
	}
	leading, weight := s.Percentages.Largest()
	line := strconv.FormatFloat(s.Energy, 'f', 8, 64) + "  " + strconv.FormatFloat(s.EnergyInvCm(), 'f', 4, 64) + " /cm"
	if s.GFactor != 0 {
		line += "  g = " + strconv.FormatFloat(s.GFactor, 'f', 5, 64)
	}
	if len(s.Percentages) > 0 {
		line += "  " + string(leading) + " (" + strconv.FormatFloat(weight, 'f', 1, 64) + "%)"
	}
	out.Printf("%-8s %s\n", id.Identifier(), line)
}

// PrintID writes the identifiers only.
func (m *SolutionMap) PrintID(out *log.Logger) {
	names := make([]string, len(m.ids))
	for i, id := range m.ids {
		names[i] = id.Identifier()
	}
	out.Println(strings.Join(names, " "))
}

// SolutionMapMap collects the SolutionMap of every symmetry.
type SolutionMapMap struct {
	maps map[symmetry.Symmetry]*SolutionMap
}

func NewSolutionMapMap() *SolutionMapMap {
	return &SolutionMapMap{maps: make(map[symmetry.Symmetry]*SolutionMap)}
}

// Get returns the map of sym, creating an empty one if needed.
func (mm *SolutionMapMap) Get(sym symmetry.Symmetry) *SolutionMap {
	m, ok := mm.maps[sym]
	if !ok {
		m = NewSolutionMap()
		mm.maps[sym] = m
	}
	return m
}

// Symmetries lists the stored symmetries in symmetry order.
func (mm *SolutionMapMap) Symmetries() []symmetry.Symmetry {
	keys := make([]symmetry.Symmetry, 0, len(mm.maps))
	for sym := range mm.maps {
		keys = append(keys, sym)
	}
	slices.SortFunc(keys, symmetry.Compare)
	return keys
}

func (mm *SolutionMapMap) Len() int {
	n := 0
	for _, m := range mm.maps {
		n += m.Len()
	}
	return n
}

func (mm *SolutionMapMap) FindByIdentifier(identifier string) (SolutionID, *Solution, error) {
	id, err := ParseIdentifier(identifier)
	if err != nil {
		return SolutionID{}, nil, err
	}
	m, ok := mm.maps[id.Symmetry()]
	if !ok {
		return id, nil, errors.Errorf("no solutions for %s", id.Symmetry())
	}
	return m.FindByIdentifier(identifier)
}

func (mm *SolutionMapMap) Print(out *log.Logger) {
	for _, sym := range mm.Symmetries() {
		out.Printf("Solutions for J = %g, P = %s:\n", sym.J(), sym.Parity)
		mm.maps[sym].Print(out)
	}
}
