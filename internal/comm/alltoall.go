package comm

import (
	"context"
	"encoding/json"

	"github.com/transfermesh/dtk/internal/substrate"
	appErrors "github.com/transfermesh/dtk/pkg/errors"
	"github.com/transfermesh/dtk/pkg/parallel"
	"github.com/transfermesh/dtk/pkg/telemetry"
)

// Plan is the communication-plan primitive of spec.md §4.1: a forward
// routing table, payload[i] destined for DestRanks[i]. Send returns the
// Plan's mirror alongside the received payload, so that sending the
// (possibly transformed) received values back along the mirror restores
// the sender's original element order — spec.md §8 invariant 1:
// sendAcrossNetwork(P.mirror, sendAcrossNetwork(P, x)) = x elementwise.
type Plan struct {
	DestRanks []int
}

// NewPlan builds a forward plan shipping payload element i to destRanks[i].
func NewPlan(destRanks []int) *Plan {
	return &Plan{DestRanks: append([]int(nil), destRanks...)}
}

// Send implements sendAcrossNetwork(dest_ranks, payload) -> received_payload.
// Output on each rank is the concatenation, in source-rank order then
// source-index order, of all payloads destined for this rank (spec.md
// §4.1). Every rank participates in every call, sending an (possibly
// empty) bucket to every other rank including itself.
func Send(ctx context.Context, g substrate.Group, plan *Plan, payload [][]byte) ([][]byte, *Plan, error) {
	if len(plan.DestRanks) != len(payload) {
		return nil, nil, invariantf("plan length does not match payload length")
	}

	ctx, span := telemetry.StartCollective(ctx, "comm.send_across_network", g.Rank(), g.Size(), len(payload))
	defer span.End()

	size := g.Size()
	buckets := make([][][]byte, size)
	for i, dest := range plan.DestRanks {
		if dest < 0 || dest >= size {
			return nil, nil, appErrors.New(appErrors.CodeCommunication, "destination rank out of range")
		}
		buckets[dest] = append(buckets[dest], payload[i])
	}

	if err := parallel.Fence(ctx, size, func(ctx context.Context, r int) error {
		msg, err := json.Marshal(buckets[r])
		if err != nil {
			return appErrors.Wrap(appErrors.CodeCommunication, "encode alltoall bucket", err)
		}
		return g.Send(ctx, r, substrate.TagData, msg)
	}); err != nil {
		return nil, nil, err
	}

	recvBuckets := make([][][]byte, size)
	if err := parallel.Fence(ctx, size, func(ctx context.Context, s int) error {
		raw, err := g.Recv(ctx, s, substrate.TagData)
		if err != nil {
			return err
		}
		var items [][]byte
		if err := json.Unmarshal(raw, &items); err != nil {
			return appErrors.Wrap(appErrors.CodeCommunication, "decode alltoall bucket", err)
		}
		recvBuckets[s] = items
		return nil
	}); err != nil {
		return nil, nil, err
	}

	var received [][]byte
	var mirrorDest []int
	for s := 0; s < size; s++ {
		for range recvBuckets[s] {
			mirrorDest = append(mirrorDest, s)
		}
		received = append(received, recvBuckets[s]...)
	}

	return received, &Plan{DestRanks: mirrorDest}, nil
}

// Fetch implements fetch(comm, remote_ranks, remote_indices, local_values)
// -> pulled_values: query i asks for local_values[remote_indices[i]] on
// rank remote_ranks[i]. Phase 1 ships the index list along a forward
// plan; phase 2 ships the looked-up values back along the mirror plan,
// which is exactly what restores query order at the caller.
func Fetch(ctx context.Context, g substrate.Group, remoteRanks []int, remoteIndices []int, localValues [][]byte) ([][]byte, error) {
	if len(remoteRanks) != len(remoteIndices) {
		return nil, invariantf("fetch requires remote_ranks and remote_indices of equal length")
	}

	ctx, span := telemetry.StartCollective(ctx, "comm.fetch", g.Rank(), g.Size(), len(remoteRanks))
	defer span.End()

	indexPayload := make([][]byte, len(remoteIndices))
	for i, idx := range remoteIndices {
		b, err := json.Marshal(idx)
		if err != nil {
			return nil, appErrors.Wrap(appErrors.CodeCommunication, "encode fetch index", err)
		}
		indexPayload[i] = b
	}

	receivedIndices, mirror, err := Send(ctx, g, NewPlan(remoteRanks), indexPayload)
	if err != nil {
		return nil, err
	}

	lookedUp := make([][]byte, len(receivedIndices))
	for i, raw := range receivedIndices {
		var idx int
		if err := json.Unmarshal(raw, &idx); err != nil {
			return nil, appErrors.Wrap(appErrors.CodeCommunication, "decode fetch index", err)
		}
		if idx < 0 || idx >= len(localValues) {
			return nil, invariantf("fetch index out of range of local values")
		}
		lookedUp[i] = localValues[idx]
	}

	pulled, _, err := Send(ctx, g, mirror, lookedUp)
	if err != nil {
		return nil, err
	}
	return pulled, nil
}
