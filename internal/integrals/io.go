// io.go --  This file is part of goCI project.
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
package integrals

import (
	"bufio"
	"encoding/binary"
	"hash/fnv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"example.com/goci/internal/basis"
)

// Integral files are little-endian:
//
//	magic    [8]byte "GOCIINT2"
//	norbs    uint32
//	layout   uint32  (FullLayout or ReducedLayout)
//	orbitals uint64  FNV-1a checksum of the orbital names in store order
//	ntables  uint32
//	ntables x { count uint64; count x { key uint64; value float64 } }
//
// *.one.int files hold three tables (h, p_ab, overlap), *.two.int one (R_k).

const (
	OneElectronExt = ".one.int"
	TwoElectronExt = ".two.int"
)

var fileMagic = [8]byte{'G', 'O', 'C', 'I', 'I', 'N', 'T', '2'}

// ErrFileMismatch is returned when an integral file was written by a store
// with a different orbital list or key layout.
var ErrFileMismatch = errors.New("integrals: file does not match store")

type fileHeader struct {
	Magic    [8]byte
	NOrbs    uint32
	Layout   uint32
	Orbitals uint64
	NTables  uint32
}

type fileEntry struct {
	Key   uint64
	Value float64
}

func orbitalChecksum(orbitals []basis.OrbitalInfo) uint64 {
	h := fnv.New64a()
	for _, o := range orbitals {
		h.Write([]byte(o.Name()))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

func (c *CIIntegrals) fileHeader(ntables int) fileHeader {
	return fileHeader{
		Magic:    fileMagic,
		NOrbs:    uint32(len(c.orbitals)),
		Layout:   uint32(c.layout),
		Orbitals: orbitalChecksum(c.orbitals),
		NTables:  uint32(ntables),
	}
}

// FileName gives name.ext for a single file and name_<index>.ext for shards.
func FileName(name, ext string, index, numFiles int) string {
	if numFiles <= 1 {
		return name + ext
	}
	return name + "_" + strconv.Itoa(index) + ext
}

func writeTables(path string, header fileHeader, tables []map[uint64]float64, keep func(key uint64) bool) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create integral file")
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	header.NTables = uint32(len(tables))
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return errors.Wrap(err, path)
	}
	for _, table := range tables {
		keys := make([]uint64, 0, len(table))
		for key := range table {
			if keep == nil || keep(key) {
				keys = append(keys, key)
			}
		}
		slices.Sort(keys)
		if err := binary.Write(w, binary.LittleEndian, uint64(len(keys))); err != nil {
			return errors.Wrap(err, path)
		}
		for _, key := range keys {
			if err := binary.Write(w, binary.LittleEndian, fileEntry{key, table[key]}); err != nil {
				return errors.Wrap(err, path)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, path)
	}
	return file.Close()
}

func readHeader(r io.Reader, path string) (fileHeader, error) {
	var header fileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return header, errors.Wrapf(err, "%s: header", path)
	}
	if header.Magic != fileMagic {
		return header, errors.Errorf("%s: not an integral file", path)
	}
	return header, nil
}

func checkHeader(path string, got, want fileHeader) error {
	switch {
	case got.NOrbs != want.NOrbs:
		return errors.Wrapf(ErrFileMismatch, "%s: written for %d orbitals, store has %d", path, got.NOrbs, want.NOrbs)
	case got.Layout != want.Layout:
		return errors.Wrapf(ErrFileMismatch, "%s: %s key layout, store uses %s", path, Layout(got.Layout), Layout(want.Layout))
	case got.Orbitals != want.Orbitals:
		return errors.Wrapf(ErrFileMismatch, "%s: written for a different orbital list", path)
	case got.NTables != want.NTables:
		return errors.Errorf("%s: %d tables, expected %d", path, got.NTables, want.NTables)
	}
	return nil
}

// readTables merges the tables of path into dst after checking the header
// against want.
func readTables(path string, want fileHeader, dst []map[uint64]float64) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "cannot open integral file")
	}
	defer file.Close()

	r := bufio.NewReader(file)
	header, err := readHeader(r, path)
	if err != nil {
		return err
	}
	want.NTables = uint32(len(dst))
	if err := checkHeader(path, header, want); err != nil {
		return err
	}
	for t := range dst {
		var count uint64
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return errors.Wrapf(err, "%s: table %d", path, t)
		}
		for ; count > 0; count-- {
			var e fileEntry
			if err := binary.Read(r, binary.LittleEndian, &e); err != nil {
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return errors.Wrapf(err, "%s: table %d", path, t)
			}
			dst[t][e.Key] = e.Value
		}
	}
	return nil
}

func shardFilter(shard, numFiles int) func(uint64) bool {
	if numFiles <= 1 {
		return nil
	}
	return func(key uint64) bool { return key%uint64(numFiles) == uint64(shard) }
}

func (c *CIIntegrals) oneElectronTables() []map[uint64]float64 {
	return []map[uint64]float64{c.oneElectron, c.sms, c.overlap}
}

// WriteOneElectronIntegrals writes shard number shard of numFiles.
func (c *CIIntegrals) WriteOneElectronIntegrals(name string, shard, numFiles int) error {
	path := FileName(name, OneElectronExt, shard, numFiles)
	return writeTables(path, c.fileHeader(3), c.oneElectronTables(), shardFilter(shard, numFiles))
}

func (c *CIIntegrals) WriteTwoElectronIntegrals(name string, shard, numFiles int) error {
	path := FileName(name, TwoElectronExt, shard, numFiles)
	return writeTables(path, c.fileHeader(1), []map[uint64]float64{c.twoElectron}, shardFilter(shard, numFiles))
}

// ReadOneElectronIntegrals replaces the one-electron tables with the union
// of numFiles shards.
func (c *CIIntegrals) ReadOneElectronIntegrals(name string, numFiles int) error {
	clear(c.oneElectron)
	clear(c.sms)
	clear(c.overlap)
	for i := 0; i < max(numFiles, 1); i++ {
		if err := readTables(FileName(name, OneElectronExt, i, numFiles), c.fileHeader(3), c.oneElectronTables()); err != nil {
			return err
		}
	}
	c.oneVersion++
	return nil
}

func (c *CIIntegrals) ReadTwoElectronIntegrals(name string, numFiles int) error {
	clear(c.twoElectron)
	for i := 0; i < max(numFiles, 1); i++ {
		if err := readTables(FileName(name, TwoElectronExt, i, numFiles), c.fileHeader(1), []map[uint64]float64{c.twoElectron}); err != nil {
			return err
		}
	}
	c.twoVersion++
	return nil
}

// MergeFiles joins numFiles shards of name into a single out.one.int and
// out.two.int pair without needing the orbital list. Every shard must carry
// the header of the first one.
func MergeFiles(name string, numFiles int, out string) (oneCount, twoCount int, err error) {
	header, err := peekHeader(FileName(name, OneElectronExt, 0, numFiles))
	if err != nil {
		return 0, 0, err
	}
	one := []map[uint64]float64{{}, {}, {}}
	two := []map[uint64]float64{{}}
	for i := 0; i < max(numFiles, 1); i++ {
		if err = readTables(FileName(name, OneElectronExt, i, numFiles), header, one); err != nil {
			return 0, 0, err
		}
		if err = readTables(FileName(name, TwoElectronExt, i, numFiles), header, two); err != nil {
			return 0, 0, err
		}
	}
	if err = writeTables(out+OneElectronExt, header, one, nil); err != nil {
		return 0, 0, err
	}
	if err = writeTables(out+TwoElectronExt, header, two, nil); err != nil {
		return 0, 0, err
	}
	return len(one[0]) + len(one[1]) + len(one[2]), len(two[0]), nil
}

func peekHeader(path string) (fileHeader, error) {
	file, err := os.Open(path)
	if err != nil {
		return fileHeader{}, errors.Wrap(err, "cannot open integral file")
	}
	defer file.Close()
	return readHeader(file, path)
}
