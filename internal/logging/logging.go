// logging.go --  This file is part of goCI project.
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

// Package logging sets up the four loggers every goCI run writes to. All
// of them go to the run's .out file; the loggers are passed around
// explicitly rather than kept in globals.
package logging

import (
	"bufio"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

type Loggers struct {
	Info    *log.Logger
	Warning *log.Logger
	Error   *log.Logger
	Output  *log.Logger

	file *os.File
}

// New writes everything to w.
func New(w io.Writer) *Loggers {
	return &Loggers{
		Info:    log.New(w, "INFO: ", log.Ldate|log.Ltime),
		Warning: log.New(w, "WARNING: ", log.Ldate|log.Ltime),
		Error:   log.New(w, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
		Output:  log.New(w, "", 0),
	}
}

// Discard drops all output.
func Discard() *Loggers {
	return New(io.Discard)
}

// Open appends to fname, creating it if needed.
func Open(fname string) (*Loggers, error) {
	file, err := os.OpenFile(fname, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open output file")
	}
	l := New(file)
	l.file = file
	return l, nil
}

func (l *Loggers) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// OutputName replaces the extension of the input file with "out".
func OutputName(inpFname string) string {
	dot := strings.LastIndex(inpFname, ".")
	if dot < 0 || strings.ContainsRune(inpFname[dot:], os.PathSeparator) {
		return inpFname + ".out"
	}
	return inpFname[:dot+1] + "out"
}

func (l *Loggers) AppInfo(version string) {
	l.Output.Println("\n" +
		"   __ _  ___   ___ ___  | goCI " + version + "\n" +
		"  / _` |/ _ \\ / __|_ _| | relativistic configuration interaction\n" +
		" | (_| | (_) | (__ | |  | with many-body perturbation theory integrals\n" +
		"  \\__, |\\___/ \\___|___| |\n" +
		"  |___/                 |\n")
}

func (l *Loggers) Delimiter() {
	l.Output.Println(strings.Repeat("-", 70))
}

// Timing reports the time elapsed since start.
func (l *Loggers) Timing(what string, start time.Time) {
	elapsed := time.Since(start)
	l.Output.Println("------ Time for "+what+":", elapsed)
	l.Info.Println(what+" done...", elapsed)
}

// EchoFile copies a text file into the output between delimiters.
func (l *Loggers) EchoFile(fname string) error {
	lines, err := ReadFileLines(fname)
	if err != nil {
		return err
	}
	l.Output.Println("Input file content:")
	l.Delimiter()
	for _, line := range lines {
		l.Output.Println(line)
	}
	l.Delimiter()
	return nil
}

// PrintDense writes a small matrix, mainly for debugging output.
func (l *Loggers) PrintDense(name string, d mat.Matrix) {
	l.Output.Printf("%s =\n%v\n", name, mat.Formatted(d, mat.Squeeze()))
}

// MemStats logs the heap usage.
func (l *Loggers) MemStats() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	l.Info.Printf("Alloc: %d bytes, TotalAlloc: %d bytes, HeapAlloc: %d bytes, HeapSys: %d bytes",
		memStats.Alloc, memStats.TotalAlloc, memStats.HeapAlloc, memStats.HeapSys)
}

func ReadFileLines(fname string) ([]string, error) {
	var result []string

	file, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		result = append(result, scanner.Text())
	}
	return result, scanner.Err()
}
