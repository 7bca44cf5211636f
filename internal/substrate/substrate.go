// Package substrate implements the communication substrate consumed by
// internal/comm (spec.md §6.2): "a process-group handle with rank(),
// size(), barrier(), and a blocking point-to-point with posted receives."
// Two backends are provided: a single-process, goroutine-based substrate
// for tests and local simulation, and a gRPC-based substrate for an
// actually-distributed run (one OS process per rank).
package substrate

import (
	"context"

	appErrors "github.com/transfermesh/dtk/pkg/errors"
)

// Tag discriminates concurrent logical message streams on the same
// (source, dest) pair, the way the original Messenger keyed buffers by a
// map "key" (Messenger.hh's communicate(const KeyType &key)).
type Tag int

const (
	TagData Tag = iota
	TagIndex
	TagControl
)

// Group is the process-group handle of spec.md §6.2.
type Group interface {
	// Rank returns this process's ordinal in [0, Size()).
	Rank() int
	// Size returns the number of ranks in the group.
	Size() int
	// Barrier blocks until every rank has entered the barrier (spec.md §5
	// "all ranks must enter them in the same program order").
	Barrier(ctx context.Context) error
	// Send blocks until payload has been handed off to dest under tag.
	Send(ctx context.Context, dest int, tag Tag, payload []byte) error
	// Recv blocks until a payload sent to this rank from source under tag
	// is available, matching the "blocking point-to-point with posted
	// receives" of spec.md §6.2.
	Recv(ctx context.Context, source int, tag Tag) ([]byte, error)
}

// validateRank fails any request naming a rank outside [0, size) — spec.md
// §4.1 "any request naming a rank >= P fails the whole call."
func validateRank(rank, size int) error {
	if rank < 0 || rank >= size {
		return appErrors.New(appErrors.CodeCommunication, "rank out of range")
	}
	return nil
}
