// commands.go --  This file is part of goCI project.
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
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"example.com/goci/internal/ci"
	"example.com/goci/internal/config"
	"example.com/goci/internal/integrals"
	"example.com/goci/internal/logging"
	"example.com/goci/internal/metrics"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "goci",
		Short: "Relativistic configuration interaction for atoms and ions",
		Long: `goCI builds and diagonalizes the CI Hamiltonian of an atom or ion
for the requested J and parity, with optional MBPT-corrected integrals.`,
		SilenceUsage: true,
	}

	var workers int
	runCmd := &cobra.Command{
		Use:   "run <input.yaml>",
		Short: "Run a CI calculation; output goes to <input>.out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runCalculation(ctx, cmd, args[0], workers)
		},
	}
	runCmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of workers (overrides the input file)")

	mergeCmd := &cobra.Command{
		Use:   "merge-integrals <name> <num_files> <out>",
		Short: "Join integral file shards name_<i>.one.int/.two.int into out.one.int/.two.int",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			numFiles, err := strconv.Atoi(args[1])
			if err != nil || numFiles < 1 {
				return errors.Errorf("bad number of files %q", args[1])
			}
			one, two, err := integrals.MergeFiles(args[0], numFiles, args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d one-electron and %d two-electron integrals written to %s\n", one, two, args[2])
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "goCI", version)
		},
	}

	rootCmd.AddCommand(runCmd, mergeCmd, versionCmd)
	return rootCmd
}

func runCalculation(ctx context.Context, cmd *cobra.Command, inpFname string, workers int) error {
	outFname := logging.OutputName(inpFname)
	fmt.Fprintln(cmd.OutOrStdout(), "Output file: ", outFname)

	lg, err := logging.Open(outFname)
	if err != nil {
		return err
	}
	defer lg.Close()

	tstart := time.Now()
	lg.Info.Println("Starting goCI...")
	lg.AppInfo(version)
	if err := lg.EchoFile(inpFname); err != nil {
		lg.Error.Println("Cannot read input file: ", err)
		return err
	}

	cfg, err := config.Load(inpFname)
	if err != nil {
		lg.Error.Println(err)
		return err
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	lg.Output.Println("Number of workers:", cfg.Workers)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	_, runErr := ci.Run(ctx, ci.Options{Config: cfg, Log: lg, Metrics: m})
	if runErr != nil {
		lg.Error.Println(runErr)
	}

	if m != nil && cfg.Metrics.File != "" {
		if err := writeMetrics(m, cfg.Metrics.File); err != nil {
			lg.Warning.Println("Cannot write metrics:", err)
		}
	}
	lg.Timing("goCI", tstart)
	lg.Info.Println("Exiting goCI...")
	if runErr != nil {
		return runErr
	}
	fmt.Fprintln(cmd.OutOrStdout(), "goCI done.")
	return nil
}

func writeMetrics(m *metrics.Metrics, fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return err
	}
	if err := m.WriteText(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
