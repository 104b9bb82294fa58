// partition.go --  This file is part of goCI project.
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

// Package partition assigns configuration blocks of the symmetric CI matrix
// to workers. A virtual processor index runs cyclically over
// [-size, size-1], one step per block; rank r owns the blocks where the
// index equals r or -1-r. Every block belongs to exactly one rank, and the
// owner of block i computes the pairs (i, j) for all j >= i, so each
// unordered pair of blocks is computed once. The assignment is a pure
// function of (rank, block, size); no communication is needed to agree on it.
package partition

// Role of a rank for one block.
type Role int

const (
	None Role = iota
	RowOwnerPrimary
	RowOwnerSecondary
)

func (r Role) String() string {
	switch r {
	case RowOwnerPrimary:
		return "primary"
	case RowOwnerSecondary:
		return "secondary"
	}
	return "none"
}

// Proc is the virtual processor index of a block.
func Proc(block, size int) int {
	return block%(2*size) - size
}

// OwnerRole tells how rank takes part in block.
func OwnerRole(rank, block, size int) Role {
	switch Proc(block, size) {
	case rank:
		return RowOwnerPrimary
	case -1 - rank:
		return RowOwnerSecondary
	}
	return None
}

// Owner is the rank that owns block.
func Owner(block, size int) int {
	proc := Proc(block, size)
	if proc >= 0 {
		return proc
	}
	return -1 - proc
}

// Owns reports whether rank owns block.
func Owns(rank, block, size int) bool {
	return OwnerRole(rank, block, size) != None
}

// OwnedBlocks lists the blocks of rank in traversal order.
func OwnedBlocks(rank, numBlocks, size int) []int {
	var blocks []int
	for b := 0; b < numBlocks; b++ {
		if Owns(rank, b, size) {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// Pairs calls visit(i, j) for every block pair j >= i owned by rank, in the
// order used by matrix generation and every reduction over the matrix.
func Pairs(rank, numBlocks, size int, visit func(i, j int)) {
	for i := 0; i < numBlocks; i++ {
		if !Owns(rank, i, size) {
			continue
		}
		for j := i; j < numBlocks; j++ {
			visit(i, j)
		}
	}
}
