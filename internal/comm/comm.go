// comm.go --  This file is part of goCI project.
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

// Package comm provides the collective operations used by the CI workers:
// reduce-to-one with sum and broadcast-from-one. Workers run as goroutines
// of one process; each ordered pair of ranks has its own FIFO link, so
// messages between two ranks arrive in the order the collectives are
// called. Every worker must call the same collectives in the same order.
package comm

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const linkCapacity = 4

// Group is a fixed set of ranks 0..Size-1.
type Group struct {
	size  int
	links [][]chan any
}

func NewGroup(size int) *Group {
	if size <= 0 {
		panic("comm: group size must be positive")
	}
	g := &Group{size: size, links: make([][]chan any, size)}
	for from := range g.links {
		g.links[from] = make([]chan any, size)
		for to := range g.links[from] {
			if from != to {
				g.links[from][to] = make(chan any, linkCapacity)
			}
		}
	}
	return g
}

// Comm is one rank's view of the group.
func (g *Group) Comm(rank int) *Comm {
	if rank < 0 || rank >= g.size {
		panic("comm: rank out of range")
	}
	return &Comm{group: g, rank: rank}
}

// Run starts size workers and waits for them. The first error cancels the
// context handed to the others, so a worker blocked in a collective
// returns instead of waiting forever.
func Run(ctx context.Context, size int, worker func(ctx context.Context, c *Comm) error) error {
	g := NewGroup(size)
	eg, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < size; rank++ {
		c := g.Comm(rank)
		eg.Go(func() error {
			return worker(ctx, c)
		})
	}
	return eg.Wait()
}

type Comm struct {
	group *Group
	rank  int
}

func (c *Comm) Rank() int { return c.rank }
func (c *Comm) Size() int { return c.group.size }

// IsRoot reports whether this is the coordinating rank 0.
func (c *Comm) IsRoot() bool { return c.rank == 0 }

func (c *Comm) send(ctx context.Context, to int, msg any) error {
	select {
	case c.group.links[c.rank][to] <- msg:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "rank %d: send to %d", c.rank, to)
	}
}

func (c *Comm) recv(ctx context.Context, from int) (any, error) {
	select {
	case msg := <-c.group.links[from][c.rank]:
		return msg, nil
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "rank %d: receive from %d", c.rank, from)
	}
}

func (c *Comm) checkRoot(root int) error {
	if root < 0 || root >= c.group.size {
		return errors.Errorf("comm: root %d out of range", root)
	}
	return nil
}

// reduceSum is shared by the float and unsigned reductions. The root adds
// the contributions in rank order, so the result for a given group size
// does not depend on scheduling.
func reduceSum[T float64 | uint64](ctx context.Context, c *Comm, dst, src []T, root int) error {
	if err := c.checkRoot(root); err != nil {
		return err
	}
	if c.rank != root {
		return c.send(ctx, root, append([]T(nil), src...))
	}
	if len(dst) < len(src) {
		return errors.Errorf("comm: reduce buffer holds %d values, need %d", len(dst), len(src))
	}
	sum := make([]T, len(src))
	for r := 0; r < c.group.size; r++ {
		part := src
		if r != root {
			msg, err := c.recv(ctx, r)
			if err != nil {
				return err
			}
			var ok bool
			if part, ok = msg.([]T); !ok || len(part) != len(src) {
				return errors.Errorf("comm: rank %d sent a mismatched reduce buffer", r)
			}
		}
		for i, v := range part {
			sum[i] += v
		}
	}
	copy(dst, sum)
	return nil
}

// ReduceSum leaves the element-wise sum of src over all ranks in dst at
// root. dst is ignored elsewhere and may alias src.
func (c *Comm) ReduceSum(ctx context.Context, dst, src []float64, root int) error {
	return reduceSum(ctx, c, dst, src, root)
}

func (c *Comm) ReduceSumUint(ctx context.Context, dst, src []uint64, root int) error {
	return reduceSum(ctx, c, dst, src, root)
}

// Broadcast copies buf at root into buf on every other rank.
func (c *Comm) Broadcast(ctx context.Context, buf []float64, root int) error {
	if err := c.checkRoot(root); err != nil {
		return err
	}
	if c.rank == root {
		for r := 0; r < c.group.size; r++ {
			if r != root {
				if err := c.send(ctx, r, append([]float64(nil), buf...)); err != nil {
					return err
				}
			}
		}
		return nil
	}
	msg, err := c.recv(ctx, root)
	if err != nil {
		return err
	}
	data, ok := msg.([]float64)
	if !ok || len(data) != len(buf) {
		return errors.Errorf("comm: broadcast from %d does not fit buffer of %d", root, len(buf))
	}
	copy(buf, data)
	return nil
}

// AllReduceSum is ReduceSum to rank 0 followed by Broadcast; buf holds the
// global sum on every rank afterwards.
func (c *Comm) AllReduceSum(ctx context.Context, buf []float64) error {
	if err := c.ReduceSum(ctx, buf, buf, 0); err != nil {
		return err
	}
	return c.Broadcast(ctx, buf, 0)
}
