// recorder.go --  This file is part of goCI project.
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
	"log"
	"sync"

	"golang.org/x/exp/slices"

	"example.com/goci/internal/basis"
	"example.com/goci/internal/solution"
)

// ConfigRecorder keeps, for every non-relativistic configuration, the
// largest weight it reached in a level led by one of the leading
// configurations. Configurations above a cutoff are candidates for the
// next, larger configuration list.
type ConfigRecorder struct {
	mu      sync.Mutex
	weights map[basis.Configuration]float64
	levels  int
}

func NewConfigRecorder() *ConfigRecorder {
	return &ConfigRecorder{weights: make(map[basis.Configuration]float64)}
}

func (r *ConfigRecorder) AddPercentages(p solution.Percentages) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels++
	for config, weight := range p {
		r.weights[config] = max(r.weights[config], weight)
	}
}

// Levels is the number of recorded levels.
func (r *ConfigRecorder) Levels() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.levels
}

// Significant lists the configurations whose largest weight exceeds
// cutoff percent, heaviest first.
func (r *ConfigRecorder) Significant(cutoff float64) []basis.Configuration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []basis.Configuration
	for config, weight := range r.weights {
		if weight > cutoff {
			result = append(result, config)
		}
	}
	slices.SortFunc(result, func(a, b basis.Configuration) int {
		switch {
		case r.weights[a] > r.weights[b]:
			return -1
		case r.weights[a] < r.weights[b]:
			return 1
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})
	return result
}

func (r *ConfigRecorder) Print(out *log.Logger, cutoff float64) {
	configs := r.Significant(cutoff)
	if len(configs) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out.Printf("Configurations above %g%% in leading levels:\n", cutoff)
	for _, config := range configs {
		out.Printf("%20s  %5.2f%%\n", config, r.weights[config])
	}
}
