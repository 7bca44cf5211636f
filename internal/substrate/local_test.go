package substrate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/transfermesh/dtk/pkg/errors"
)

func TestLocalCluster_RankAndSize(t *testing.T) {
	groups := NewLocalCluster(4)
	require.Len(t, groups, 4)
	for r, g := range groups {
		assert.Equal(t, r, g.Rank())
		assert.Equal(t, 4, g.Size())
	}
}

func TestLocalGroup_SendRecvRoundTrip(t *testing.T) {
	groups := NewLocalCluster(2)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	var received []byte
	var recvErr error
	go func() {
		defer wg.Done()
		received, recvErr = groups[1].Recv(ctx, 0, TagData)
	}()

	require.NoError(t, groups[0].Send(ctx, 1, TagData, []byte("hello")))
	wg.Wait()

	require.NoError(t, recvErr)
	assert.Equal(t, []byte("hello"), received)
}

func TestLocalGroup_SendOutOfRangeRank(t *testing.T) {
	groups := NewLocalCluster(2)
	err := groups[0].Send(context.Background(), 5, TagData, []byte("x"))
	assert.Error(t, err)
	assert.True(t, appErrors.IsCommunication(err))
}

func TestLocalGroup_Barrier(t *testing.T) {
	groups := NewLocalCluster(3)
	ctx := context.Background()

	var wg sync.WaitGroup
	var order []int
	var mu sync.Mutex
	for _, g := range groups {
		wg.Add(1)
		go func(g *LocalGroup) {
			defer wg.Done()
			require.NoError(t, g.Barrier(ctx))
			mu.Lock()
			order = append(order, g.Rank())
			mu.Unlock()
		}(g)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("barrier did not release all ranks")
	}
	assert.Len(t, order, 3)
}
