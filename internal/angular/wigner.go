// wigner.go --  This file is part of goCI project.
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

// Package angular evaluates the angular momentum coupling coefficients
// needed by the CI operators. All angular momenta are passed doubled
// (2j, 2m) so that half-integers stay exact.
package angular

import "math"

func logFactorial(n int) float64 {
	v, _ := math.Lgamma(float64(n) + 1)
	return v
}

func phase(n int) float64 {
	if n%2 == 0 {
		return 1.
	}
	return -1.
}

func triangle(twoJ1, twoJ2, twoJ3 int) bool {
	if (twoJ1+twoJ2+twoJ3)%2 != 0 {
		return false
	}
	return twoJ3 >= abs(twoJ1-twoJ2) && twoJ3 <= twoJ1+twoJ2
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// ThreeJ returns the Wigner 3j symbol (j1 j2 j3; m1 m2 m3) by the Racah formula.
func ThreeJ(twoJ1, twoJ2, twoJ3, twoM1, twoM2, twoM3 int) float64 {
	if twoM1+twoM2+twoM3 != 0 || !triangle(twoJ1, twoJ2, twoJ3) {
		return 0.
	}
	for _, jm := range [][2]int{{twoJ1, twoM1}, {twoJ2, twoM2}, {twoJ3, twoM3}} {
		if abs(jm[1]) > jm[0] || (jm[0]+jm[1])%2 != 0 {
			return 0.
		}
	}

	j1pj2mj3 := (twoJ1 + twoJ2 - twoJ3) / 2
	j1mj2pj3 := (twoJ1 - twoJ2 + twoJ3) / 2
	mj1pj2pj3 := (-twoJ1 + twoJ2 + twoJ3) / 2
	jsum := (twoJ1 + twoJ2 + twoJ3) / 2

	logPrefactor := 0.5 * (logFactorial(j1pj2mj3) + logFactorial(j1mj2pj3) + logFactorial(mj1pj2pj3) - logFactorial(jsum+1) +
		logFactorial((twoJ1+twoM1)/2) + logFactorial((twoJ1-twoM1)/2) +
		logFactorial((twoJ2+twoM2)/2) + logFactorial((twoJ2-twoM2)/2) +
		logFactorial((twoJ3+twoM3)/2) + logFactorial((twoJ3-twoM3)/2))

	kmin := max(0, (twoJ2-twoJ3-twoM1)/2, (twoJ1-twoJ3+twoM2)/2)
	kmax := min(j1pj2mj3, (twoJ1-twoM1)/2, (twoJ2+twoM2)/2)

	sum := 0.
	for k := kmin; k <= kmax; k++ {
		logDenominator := logFactorial(k) +
			logFactorial((twoJ3-twoJ2+twoM1)/2+k) +
			logFactorial((twoJ3-twoJ1-twoM2)/2+k) +
			logFactorial(j1pj2mj3-k) +
			logFactorial((twoJ1-twoM1)/2-k) +
			logFactorial((twoJ2+twoM2)/2-k)
		sum += phase(k) * math.Exp(logPrefactor-logDenominator)
	}
	return phase((twoJ1-twoJ2-twoM3)/2) * sum
}

func kappaTwoJ(kappa int) int {
	return 2*abs(kappa) - 1
}

func kappaL(kappa int) int {
	if kappa > 0 {
		return kappa
	}
	return -kappa - 1
}

// ReducedCk gives <kappaA||C^k||kappaB>. When parityCheck is false the
// l_a + k + l_b selection rule is not applied; this is used for integrals
// of the "wrong" parity such as the two-body box diagrams.
func ReducedCk(k, kappaA, kappaB int, parityCheck bool) float64 {
	if parityCheck && (kappaL(kappaA)+k+kappaL(kappaB))%2 != 0 {
		return 0.
	}
	twoJa, twoJb := kappaTwoJ(kappaA), kappaTwoJ(kappaB)
	return phase((twoJa+1)/2) * math.Sqrt(float64((twoJa+1)*(twoJb+1))) *
		ThreeJ(twoJa, twoJb, 2*k, -1, 1, 0)
}

// CkElement gives <kappaA mA|C^k_q|kappaB mB> with q = mA - mB.
func CkElement(k, kappaA, twoMa, kappaB, twoMb int, parityCheck bool) float64 {
	reduced := ReducedCk(k, kappaA, kappaB, parityCheck)
	if reduced == 0 {
		return 0.
	}
	twoJa := kappaTwoJ(kappaA)
	return phase((twoJa-twoMa)/2) * ThreeJ(twoJa, 2*k, kappaTwoJ(kappaB), -twoMa, twoMa-twoMb, twoMb) * reduced
}

// KRange returns the multipolarities allowed by the triangle rule for a
// pair of orbitals.
func KRange(kappaA, kappaB int) (kmin, kmax int) {
	twoJa, twoJb := kappaTwoJ(kappaA), kappaTwoJ(kappaB)
	return abs(twoJa-twoJb) / 2, (twoJa + twoJb) / 2
}
