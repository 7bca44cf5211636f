// Package comm implements the collective communication primitives of
// spec.md §4.1 — reduceAll, sendAcrossNetwork, fetch, and the
// broadcast/gather/scatter helpers the original DataTransferKit exposed
// through its Messenger (original_source/src/coupler/Messenger.hh) —
// all layered on a substrate.Group. Every primitive here is a blocking
// collective: spec.md §5 requires all ranks enter them in the same
// program order, with per-rank parallel work fenced beforehand via
// pkg/parallel.Fence.
package comm

import (
	"context"
	"encoding/json"

	"github.com/transfermesh/dtk/internal/substrate"
	appErrors "github.com/transfermesh/dtk/pkg/errors"
	"github.com/transfermesh/dtk/pkg/telemetry"
)

// ReduceOp names a reduction operator supported by reduceAll (spec.md
// §4.1: "op ∈ {sum, min, max, logical-and, logical-or}").
type ReduceOp int

const (
	ReduceSum ReduceOp = iota
	ReduceMin
	ReduceMax
	ReduceLogicalAnd
	ReduceLogicalOr
)

func applyFloat(op ReduceOp, a, b float64) float64 {
	switch op {
	case ReduceSum:
		return a + b
	case ReduceMin:
		if b < a {
			return b
		}
		return a
	case ReduceMax:
		if b > a {
			return b
		}
		return a
	default:
		return a
	}
}

func applyBool(op ReduceOp, a, b bool) bool {
	switch op {
	case ReduceLogicalAnd:
		return a && b
	case ReduceLogicalOr:
		return a || b
	default:
		return a
	}
}

// ReduceAllFloat64 performs a bit-identical collective reduction of a
// single float64 value across every rank, by gathering each rank's
// value at rank 0 via Gather then broadcasting the combined
// result — deterministic and identical on every rank because the
// combine order is always rank-ascending.
func ReduceAllFloat64(ctx context.Context, g substrate.Group, op ReduceOp, x float64) (float64, error) {
	values, err := gatherFloat64(ctx, g, x)
	if err != nil {
		return 0, err
	}
	result := values[0]
	for _, v := range values[1:] {
		result = applyFloat(op, result, v)
	}
	return broadcastFloat64(ctx, g, result)
}

// ReduceAllBool performs the logical-and / logical-or collective
// reduction named in spec.md §4.1's invariant 5.
func ReduceAllBool(ctx context.Context, g substrate.Group, op ReduceOp, x bool) (bool, error) {
	values, err := gatherBool(ctx, g, x)
	if err != nil {
		return false, err
	}
	result := values[0]
	for _, v := range values[1:] {
		result = applyBool(op, result, v)
	}
	return broadcastBool(ctx, g, result)
}

func gatherFloat64(ctx context.Context, g substrate.Group, x float64) ([]float64, error) {
	ctx, span := telemetry.StartCollective(ctx, "comm.gather_float64", g.Rank(), g.Size(), 1)
	defer span.End()

	raw, err := Gather(ctx, g, 0, encodeFloat64(x))
	if err != nil {
		return nil, err
	}
	if g.Rank() != 0 {
		return nil, nil
	}
	out := make([]float64, len(raw))
	for i, b := range raw {
		v, err := decodeFloat64(b)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func broadcastFloat64(ctx context.Context, g substrate.Group, x float64) (float64, error) {
	raw, err := Broadcast(ctx, g, 0, encodeFloat64(x))
	if err != nil {
		return 0, err
	}
	return decodeFloat64(raw)
}

func gatherBool(ctx context.Context, g substrate.Group, x bool) ([]bool, error) {
	raw, err := Gather(ctx, g, 0, encodeBool(x))
	if err != nil {
		return nil, err
	}
	if g.Rank() != 0 {
		return nil, nil
	}
	out := make([]bool, len(raw))
	for i, b := range raw {
		v, err := decodeBool(b)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func broadcastBool(ctx context.Context, g substrate.Group, x bool) (bool, error) {
	raw, err := Broadcast(ctx, g, 0, encodeBool(x))
	if err != nil {
		return false, err
	}
	return decodeBool(raw)
}

func encodeFloat64(x float64) []byte { b, _ := json.Marshal(x); return b }
func decodeFloat64(b []byte) (float64, error) {
	var x float64
	if err := json.Unmarshal(b, &x); err != nil {
		return 0, appErrors.Wrap(appErrors.CodeCommunication, "decode float64 payload", err)
	}
	return x, nil
}

func encodeBool(x bool) []byte { b, _ := json.Marshal(x); return b }
func decodeBool(b []byte) (bool, error) {
	var x bool
	if err := json.Unmarshal(b, &x); err != nil {
		return false, appErrors.Wrap(appErrors.CodeCommunication, "decode bool payload", err)
	}
	return x, nil
}
