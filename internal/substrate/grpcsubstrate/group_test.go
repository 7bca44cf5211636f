package grpcsubstrate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transfermesh/dtk/internal/substrate"
	"github.com/transfermesh/dtk/pkg/utils"
)

func dialLocalPair(t *testing.T) []*Group {
	t.Helper()
	addrs := []string{"127.0.0.1:18301", "127.0.0.1:18302"}
	groups := make([]*Group, len(addrs))
	logger := &utils.NullLogger{}
	for r, addr := range addrs {
		g, err := Dial(r, addr, addrs, logger)
		require.NoError(t, err)
		groups[r] = g
	}
	t.Cleanup(func() {
		for _, g := range groups {
			_ = g.Close()
		}
	})
	// give the listeners a moment to come up before dialing peers.
	time.Sleep(20 * time.Millisecond)
	return groups
}

func TestGroup_ImplementsSubstrateGroup(t *testing.T) {
	var _ substrate.Group = (*Group)(nil)
}

func TestGroup_SendRecvRoundTrip(t *testing.T) {
	groups := dialLocalPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	var received []byte
	var recvErr error
	go func() {
		defer wg.Done()
		received, recvErr = groups[1].Recv(ctx, 0, substrate.TagData)
	}()

	require.NoError(t, groups[0].Send(ctx, 1, substrate.TagData, []byte("payload")))
	wg.Wait()

	require.NoError(t, recvErr)
	assert.Equal(t, []byte("payload"), received)
}

func TestGroup_BarrierReleasesBothRanks(t *testing.T) {
	groups := dialLocalPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, len(groups))
	for i, g := range groups {
		wg.Add(1)
		go func(i int, g *Group) {
			defer wg.Done()
			errs[i] = g.Barrier(ctx)
		}(i, g)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestGroup_SendRejectsOutOfRangeDest(t *testing.T) {
	groups := dialLocalPair(t)
	err := groups[0].Send(context.Background(), 9, substrate.TagData, []byte("x"))
	assert.Error(t, err)
}
