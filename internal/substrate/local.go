package substrate

import (
	"context"
	"fmt"
	"sync"

	appErrors "github.com/transfermesh/dtk/pkg/errors"
)

// mailKey addresses a single posted-receive slot.
type mailKey struct {
	from int
	tag  Tag
}

// LocalGroup simulates P ranks as goroutines inside a single OS process,
// connected by buffered channels — the harness used by this module's
// multi-rank tests and by cmd/dtkctl's single-binary "local" substrate.Kind.
// It is not a network transport; every rank must run inside the same
// process for LocalGroup to connect them.
type LocalGroup struct {
	rank  int
	peers []*LocalGroup

	mu      sync.Mutex
	inboxes map[mailKey]chan []byte

	barrier *localBarrier
}

// NewLocalCluster builds size LocalGroups, one per rank, all wired
// together and sharing one barrier.
func NewLocalCluster(size int) []*LocalGroup {
	if size <= 0 {
		return nil
	}
	groups := make([]*LocalGroup, size)
	b := newLocalBarrier(size)
	for r := 0; r < size; r++ {
		groups[r] = &LocalGroup{
			rank:    r,
			inboxes: make(map[mailKey]chan []byte),
			barrier: b,
		}
	}
	for r := 0; r < size; r++ {
		groups[r].peers = groups
	}
	return groups
}

func (g *LocalGroup) Rank() int { return g.rank }
func (g *LocalGroup) Size() int { return len(g.peers) }

func (g *LocalGroup) Barrier(ctx context.Context) error {
	return g.barrier.wait(ctx)
}

func (g *LocalGroup) inbox(owner *LocalGroup, key mailKey) chan []byte {
	owner.mu.Lock()
	defer owner.mu.Unlock()
	ch, ok := owner.inboxes[key]
	if !ok {
		ch = make(chan []byte, 1)
		owner.inboxes[key] = ch
	}
	return ch
}

func (g *LocalGroup) Send(ctx context.Context, dest int, tag Tag, payload []byte) error {
	if err := validateRank(dest, g.Size()); err != nil {
		return err
	}
	target := g.peers[dest]
	ch := g.inbox(target, mailKey{from: g.rank, tag: tag})
	cp := make([]byte, len(payload))
	copy(cp, payload)
	select {
	case ch <- cp:
		return nil
	case <-ctx.Done():
		return appErrors.Wrap(appErrors.CodeCommunication, "send canceled", ctx.Err())
	}
}

func (g *LocalGroup) Recv(ctx context.Context, source int, tag Tag) ([]byte, error) {
	if err := validateRank(source, g.Size()); err != nil {
		return nil, err
	}
	ch := g.inbox(g, mailKey{from: source, tag: tag})
	select {
	case payload := <-ch:
		return payload, nil
	case <-ctx.Done():
		return nil, appErrors.Wrap(appErrors.CodeCommunication, "recv canceled", ctx.Err())
	}
}

func (g *LocalGroup) String() string {
	return fmt.Sprintf("LocalGroup(rank=%d/%d)", g.rank, g.Size())
}

// localBarrier is a reusable, cyclic barrier for a fixed number of parties,
// the single-process analogue of spec.md §5's "per-rank parallel sections
// end with a device/thread fence before any collective call."
type localBarrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	waiting int
	gen     int
}

func newLocalBarrier(parties int) *localBarrier {
	b := &localBarrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *localBarrier) wait(ctx context.Context) error {
	b.mu.Lock()
	gen := b.gen
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.gen++
		b.cond.Broadcast()
		b.mu.Unlock()
		return nil
	}
	for b.gen == gen {
		if ctx.Err() != nil {
			b.mu.Unlock()
			return appErrors.Wrap(appErrors.CodeCommunication, "barrier canceled", ctx.Err())
		}
		b.cond.Wait()
	}
	b.mu.Unlock()
	return nil
}
