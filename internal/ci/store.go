// store.go --  This file is part of goCI project.
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
package ci

import (
	"github.com/pkg/errors"

	"example.com/goci/internal/basis"
	"example.com/goci/internal/config"
	"example.com/goci/internal/integrals"
)

// integralStore is implemented by both integral stores.
type integralStore interface {
	integrals.Store
	Update() error
	ReadOneElectronIntegrals(name string, numFiles int) error
	ReadTwoElectronIntegrals(name string, numFiles int) error
	NumTwoElectronIntegrals() int
	SetInverseMass(lambda float64)
}

// BuildStore creates the integral store selected by cfg. With a radial
// calculator the integrals are computed in process, including the MBPT
// options; otherwise they are read from the integral files, which must
// have been written for the same orbital order and inverse mass.
func BuildStore(cfg *config.Config, orbitals []basis.OrbitalInfo, inverseMass float64,
	calc integrals.RadialCalculator, pt integrals.Correlation) (integralStore, error) {
	ic := cfg.Integrals
	var store integralStore
	if ic.MBPT {
		mbpt := integrals.NewMBPT(orbitals, calc, ic.OpenShellCore)
		if calc != nil {
			// sigma1 and mbpt1 exclude each other; mbpt1 is set last and wins
			if ic.IncludeSigma1 {
				mbpt.IncludeSigma1(true, pt)
			}
			if ic.IncludeMBPT1 {
				mbpt.IncludeMBPT1(true, pt)
			}
			if ic.IncludeMBPT2 {
				mbpt.IncludeMBPT2(true, pt)
			}
			box := ic.ExtraBox
			mbpt.IncludeExtraBoxDiagrams(box.Enabled, box.MaxPQN[0], box.MaxPQN[1], box.MaxPQN[2])
		}
		store = mbpt
	} else {
		store = integrals.New(orbitals, calc)
	}
	store.SetInverseMass(inverseMass)

	if calc != nil {
		if err := store.Update(); err != nil {
			return nil, errors.Wrap(err, "integrals")
		}
		return store, nil
	}
	if ic.File == "" {
		return nil, errors.Wrap(config.ErrInvalid, "no integral file and no radial calculator")
	}
	if err := store.ReadOneElectronIntegrals(ic.File, ic.NumFiles); err != nil {
		return nil, err
	}
	if err := store.ReadTwoElectronIntegrals(ic.File, ic.NumFiles); err != nil {
		return nil, err
	}
	return store, nil
}
