// orbital.go --  This file is part of goCI project.
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

// Package basis describes the many-electron basis of a CI calculation:
// relativistic orbitals, projections (determinants with fixed magnetic
// quantum numbers) and relativistic configurations together with the
// coefficients coupling their projections into states of definite J.
package basis

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const spectroscopicNotation = "spdfghiklmn"

// OrbitalInfo identifies a relativistic single-particle orbital.
// Kappa follows the Dirac convention: kappa = -(l+1) for j = l+1/2,
// kappa = l for j = l-1/2.
type OrbitalInfo struct {
	PQN   int
	Kappa int
}

func (o OrbitalInfo) L() int {
	if o.Kappa > 0 {
		return o.Kappa
	}
	return -o.Kappa - 1
}

func (o OrbitalInfo) TwoJ() int {
	if o.Kappa > 0 {
		return 2*o.Kappa - 1
	}
	return -2*o.Kappa - 1
}

// MaxOccupancy is 2j+1.
func (o OrbitalInfo) MaxOccupancy() int {
	return o.TwoJ() + 1
}

// Less orders by pqn, then l, then j = l-1/2 ahead of j = l+1/2.
func (o OrbitalInfo) Less(other OrbitalInfo) bool {
	if o.PQN != other.PQN {
		return o.PQN < other.PQN
	}
	if o.L() != other.L() {
		return o.L() < other.L()
	}
	return o.Kappa > other.Kappa
}

func CompareOrbitals(a, b OrbitalInfo) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

// Name gives "3s", "3p-" (j = l-1/2) or "3p+" (j = l+1/2).
func (o OrbitalInfo) Name() string {
	l := o.L()
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(o.PQN))
	if l < len(spectroscopicNotation) {
		sb.WriteByte(spectroscopicNotation[l])
	} else {
		sb.WriteString("[" + strconv.Itoa(l) + "]")
	}
	if l > 0 {
		if o.Kappa > 0 {
			sb.WriteByte('-')
		} else {
			sb.WriteByte('+')
		}
	}
	return sb.String()
}

func (o OrbitalInfo) String() string {
	return o.Name()
}

// ParseOrbital reads names produced by Name. For l > 0 the sign is required.
func ParseOrbital(name string) (OrbitalInfo, error) {
	orb, rest, err := parseOrbitalPrefix(name)
	if err != nil {
		return OrbitalInfo{}, err
	}
	if rest != "" {
		return OrbitalInfo{}, errors.Errorf("trailing characters in orbital %q", name)
	}
	return orb, nil
}

func parseOrbitalPrefix(s string) (OrbitalInfo, string, error) {
	pos := 0
	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		pos++
	}
	if pos == 0 || pos == len(s) {
		return OrbitalInfo{}, "", errors.Errorf("cannot parse orbital %q", s)
	}
	pqn, _ := strconv.Atoi(s[:pos])
	l := strings.IndexByte(spectroscopicNotation, s[pos])
	if l < 0 {
		return OrbitalInfo{}, "", errors.Errorf("unknown angular momentum %q in %q", s[pos], s)
	}
	if l >= pqn {
		return OrbitalInfo{}, "", errors.Errorf("l = %d not allowed for n = %d in %q", l, pqn, s)
	}
	pos++
	orb := OrbitalInfo{PQN: pqn, Kappa: -1}
	if l > 0 {
		if pos == len(s) {
			return OrbitalInfo{}, "", errors.Errorf("missing j sign (+/-) in %q", s)
		}
		switch s[pos] {
		case '+':
			orb.Kappa = -(l + 1)
		case '-':
			orb.Kappa = l
		default:
			return OrbitalInfo{}, "", errors.Errorf("missing j sign (+/-) in %q", s)
		}
		pos++
	}
	return orb, s[pos:], nil
}

// ElectronState is an orbital with a definite projection 2m.
type ElectronState struct {
	Orbital OrbitalInfo
	TwoM    int
}

func (e ElectronState) M() float64 {
	return float64(e.TwoM) / 2.
}

func (e ElectronState) Less(other ElectronState) bool {
	if e.Orbital != other.Orbital {
		return e.Orbital.Less(other.Orbital)
	}
	return e.TwoM < other.TwoM
}

func CompareStates(a, b ElectronState) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

func (e ElectronState) String() string {
	return e.Orbital.Name() + ":" + strconv.Itoa(e.TwoM)
}
