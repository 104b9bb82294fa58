// ci.go --  This file is part of goCI project.
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

// Package ci runs a configuration interaction calculation: for each
// requested symmetry it builds the Hamiltonian on a group of workers,
// solves it and reduces the requested observables.
package ci

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"example.com/goci/internal/basis"
	"example.com/goci/internal/comm"
	"example.com/goci/internal/config"
	"example.com/goci/internal/eigen"
	"example.com/goci/internal/hamiltonian"
	"example.com/goci/internal/integrals"
	"example.com/goci/internal/logging"
	"example.com/goci/internal/metrics"
	"example.com/goci/internal/operator"
	"example.com/goci/internal/solution"
	"example.com/goci/internal/symmetry"
)

// RecordCutoff is the weight, in percent, above which recorded
// configurations are listed at the end of a run.
const RecordCutoff = 1.

type Options struct {
	Config  *config.Config
	Log     *logging.Loggers
	Metrics *metrics.Metrics
	// Calculator computes the radial integrals in process. Without it the
	// integrals are read from the files named in the configuration.
	Calculator  integrals.RadialCalculator
	Correlation integrals.Correlation
}

type Result struct {
	ID        uuid.UUID
	Solutions *solution.SolutionMapMap
	// IsotopeShifts holds the SMS expectation values per symmetry when
	// requested.
	IsotopeShifts map[symmetry.Symmetry][]float64
	Recorder      *ConfigRecorder
}

// Run performs the calculation for every requested symmetry. A symmetry
// whose eigensolver does not converge still contributes its partial
// levels; the first *eigen.ConvergenceError is returned with the result.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg, lg := opts.Config, opts.Log
	result := &Result{
		ID:            uuid.New(),
		Solutions:     solution.NewSolutionMapMap(),
		IsotopeShifts: make(map[symmetry.Symmetry][]float64),
		Recorder:      NewConfigRecorder(),
	}
	lg.Info.Println("Starting run", result.ID)
	lg.Output.Println("Run ID:", result.ID)

	syms, err := cfg.SymmetryList()
	if err != nil {
		return nil, err
	}
	orbitals, err := cfg.OrbitalList()
	if err != nil {
		return nil, err
	}
	nuc, err := cfg.NucleusData()
	if err != nil {
		return nil, err
	}
	if nuc.Z != 0 {
		lg.Output.Println("Nucleus:", nuc)
	}

	start := time.Now()
	store, err := BuildStore(cfg, orbitals, nuc.InverseMass(), opts.Calculator, opts.Correlation)
	if err != nil {
		return nil, err
	}
	lg.Output.Println("Number of two-electron integrals:", store.NumTwoElectronIntegrals())
	opts.Metrics.SetIntegrals(store.NumTwoElectronIntegrals())
	lg.Timing("integrals", start)

	s := &symmetryRun{
		cfg:     cfg,
		log:     lg,
		metrics: opts.Metrics,
		op:      operator.NewCIHamiltonian(store, cfg.Integrals.MBPT),
		result:  result,
	}
	if cfg.GFactors {
		s.sz = operator.NewSzProjection(store)
	}
	if cfg.IsotopeShift {
		s.sms = operator.NewSMSProjection(store)
	}
	if s.leading, err = cfg.LeadingConfigurations(); err != nil {
		return nil, err
	}

	var firstConvErr error
	for _, sym := range syms {
		err := s.run(ctx, sym)
		var convErr *eigen.ConvergenceError
		switch {
		case errors.As(err, &convErr):
			if firstConvErr == nil {
				firstConvErr = err
			}
		case err != nil:
			return result, err
		}
	}

	lg.Delimiter()
	result.Solutions.Print(lg.Output)
	result.Recorder.Print(lg.Output, RecordCutoff)
	lg.MemStats()
	lg.Info.Println("Finished run", result.ID)
	return result, firstConvErr
}

type symmetryRun struct {
	cfg     *config.Config
	log     *logging.Loggers
	metrics *metrics.Metrics
	op      operator.ProjectionOperator
	sz      operator.ProjectionOperator
	sms     operator.ProjectionOperator
	leading []basis.Configuration
	result  *Result
}

func (s *symmetryRun) run(ctx context.Context, sym symmetry.Symmetry) error {
	lg := s.log
	configs, err := s.cfg.ConfigList(sym)
	if err != nil {
		return errors.Wrapf(err, "symmetry %s", sym)
	}
	lg.Delimiter()
	if len(configs) == 0 {
		lg.Warning.Println("No configurations for symmetry", sym)
		lg.Output.Printf("J = %g, P = %s: no configurations\n", sym.J(), sym.Parity)
		return nil
	}
	lg.Output.Printf("J = %g, P = %s: %d configurations, N = %d\n", sym.J(), sym.Parity, len(configs), configs.N())

	solutions := s.result.Solutions.Get(sym)
	start := time.Now()
	// A worker returning an error cancels the others, so non-convergence
	// is passed out of band from rank 0.
	var convErr error
	err = comm.Run(ctx, s.cfg.Workers, func(ctx context.Context, c *comm.Comm) error {
		h := hamiltonian.New(c, configs, s.op, sym, lg)
		h.SetThreshold(s.cfg.MatrixThreshold())
		h.SetMetrics(s.metrics)
		h.SetEigenSettings(s.cfg.EigenSettings())
		if err := h.GenerateMatrix(); err != nil {
			return err
		}
		if s.cfg.PollMatrix {
			if _, err := h.PollMatrix(ctx); err != nil {
				return err
			}
		}
		if s.cfg.PrintMatrix {
			h.M.WriteMode(false)
			dense, err := h.M.Gather(ctx)
			if err != nil {
				return err
			}
			if c.IsRoot() {
				lg.PrintDense("H("+sym.String()+")", dense)
			}
		}

		opts := hamiltonian.SolveOptions{
			NumSolutions: s.cfg.Solutions,
			GFactors:     s.sz,
			Leading:      s.leading,
		}
		if c.IsRoot() {
			opts.Recorder = s.result.Recorder
			opts.Solutions = solutions
		}
		solveErr := h.SolveMatrix(ctx, opts)
		if solveErr != nil && !errors.Is(solveErr, eigen.ErrNotConverged) {
			return solveErr
		}
		if c.IsRoot() {
			convErr = solveErr
		}

		if s.sms != nil {
			shifts, err := h.IsotopeShift(ctx, s.sms)
			if err != nil {
				return err
			}
			if c.IsRoot() {
				s.result.IsotopeShifts[sym] = shifts
			}
		}
		return nil
	})
	lg.Timing("symmetry "+sym.String(), start)
	if err != nil {
		return err
	}
	return convErr
}
