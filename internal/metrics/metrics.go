// metrics.go --  This file is part of goCI project.
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

// Package metrics collects timings and matrix statistics of a run in a
// Prometheus registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

type Metrics struct {
	Registry *prometheus.Registry

	generateSeconds   *prometheus.GaugeVec
	solveSeconds      *prometheus.GaugeVec
	magnitudeElements *prometheus.GaugeVec
	solutionsTotal    *prometheus.CounterVec
	integrals         prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		generateSeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "goci_matrix_generate_seconds",
			Help: "Wall time of Hamiltonian matrix generation per symmetry",
		}, []string{"symmetry"}),
		solveSeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "goci_matrix_solve_seconds",
			Help: "Wall time of the eigensolver per symmetry",
		}, []string{"symmetry"}),
		magnitudeElements: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "goci_matrix_magnitude_elements",
			Help: "Number of matrix elements per magnitude bin (bin 9: |M| >= 1)",
		}, []string{"symmetry", "bin"}),
		solutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "goci_solutions_total",
			Help: "Number of levels found per symmetry",
		}, []string{"symmetry"}),
		integrals: factory.NewGauge(prometheus.GaugeOpts{
			Name: "goci_two_electron_integrals",
			Help: "Number of stored two-electron radial integrals",
		}),
	}
}

func (m *Metrics) ObserveGenerate(symmetry string, d time.Duration) {
	if m == nil {
		return
	}
	m.generateSeconds.WithLabelValues(symmetry).Set(d.Seconds())
}

func (m *Metrics) ObserveSolve(symmetry string, d time.Duration) {
	if m == nil {
		return
	}
	m.solveSeconds.WithLabelValues(symmetry).Set(d.Seconds())
}

// SetMagnitudes records a reduced magnitude histogram.
func (m *Metrics) SetMagnitudes(symmetry string, counts []uint64) {
	if m == nil {
		return
	}
	for bin, count := range counts {
		m.magnitudeElements.WithLabelValues(symmetry, strconv.Itoa(bin)).Set(float64(count))
	}
}

func (m *Metrics) AddSolutions(symmetry string, n int) {
	if m == nil {
		return
	}
	m.solutionsTotal.WithLabelValues(symmetry).Add(float64(n))
}

func (m *Metrics) SetIntegrals(n int) {
	if m == nil {
		return
	}
	m.integrals.Set(float64(n))
}

// WriteText dumps the registry in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.Registry.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}
	return nil
}
