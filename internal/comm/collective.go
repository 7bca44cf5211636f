package comm

import (
	"context"

	"github.com/transfermesh/dtk/internal/substrate"
	"github.com/transfermesh/dtk/pkg/parallel"
	"github.com/transfermesh/dtk/pkg/telemetry"
)

// Broadcast ships x from root to every rank, returning x itself on every
// rank including root — the "gather followed by an implicit broadcast"
// pattern used by rendezvous top-tree construction (every rank needs the
// same list of per-rank root boxes).
func Broadcast(ctx context.Context, g substrate.Group, root int, x []byte) ([]byte, error) {
	ctx, span := telemetry.StartCollective(ctx, "comm.broadcast", g.Rank(), g.Size(), 1)
	defer span.End()

	if g.Rank() == root {
		err := parallel.Fence(ctx, g.Size(), func(ctx context.Context, r int) error {
			if r == root {
				return nil
			}
			return g.Send(ctx, r, substrate.TagControl, x)
		})
		if err != nil {
			return nil, err
		}
		return x, nil
	}
	return g.Recv(ctx, root, substrate.TagControl)
}

// Gather collects one payload per rank at root, indexed by rank. On every
// non-root rank it returns nil.
func Gather(ctx context.Context, g substrate.Group, root int, x []byte) ([][]byte, error) {
	ctx, span := telemetry.StartCollective(ctx, "comm.gather", g.Rank(), g.Size(), 1)
	defer span.End()

	if g.Rank() == root {
		out := make([][]byte, g.Size())
		out[root] = x
		err := parallel.Fence(ctx, g.Size(), func(ctx context.Context, r int) error {
			if r == root {
				return nil
			}
			b, err := g.Recv(ctx, r, substrate.TagControl)
			if err != nil {
				return err
			}
			out[r] = b
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := g.Send(ctx, root, substrate.TagControl, x); err != nil {
		return nil, err
	}
	return nil, nil
}

// Scatter hands rank r element xs[r] of root's input, one item per rank.
func Scatter(ctx context.Context, g substrate.Group, root int, xs [][]byte) ([]byte, error) {
	ctx, span := telemetry.StartCollective(ctx, "comm.scatter", g.Rank(), g.Size(), len(xs))
	defer span.End()

	if g.Rank() == root {
		if len(xs) != g.Size() {
			return nil, invariantf("scatter requires exactly one item per rank")
		}
		err := parallel.Fence(ctx, g.Size(), func(ctx context.Context, r int) error {
			if r == root {
				return nil
			}
			return g.Send(ctx, r, substrate.TagControl, xs[r])
		})
		if err != nil {
			return nil, err
		}
		return xs[root], nil
	}
	return g.Recv(ctx, root, substrate.TagControl)
}
