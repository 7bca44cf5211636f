// Package transfer implements the TransferOperator of spec.md §4.5: the
// build/apply/missed-points state machine sitting on top of
// internal/rendezvous's broad-phase point location and a narrow-phase
// confirmation round trip against the real mesh adapter geometry.
package transfer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/transfermesh/dtk/internal/comm"
	"github.com/transfermesh/dtk/internal/mesh"
	"github.com/transfermesh/dtk/internal/rendezvous"
	"github.com/transfermesh/dtk/internal/repository"
	"github.com/transfermesh/dtk/internal/storage"
	"github.com/transfermesh/dtk/internal/substrate"
	"github.com/transfermesh/dtk/pkg/collections"
	appErrors "github.com/transfermesh/dtk/pkg/errors"
	"github.com/transfermesh/dtk/pkg/geom"
	"github.com/transfermesh/dtk/pkg/telemetry"
)

type state int

const (
	stateUninitialized state = iota
	stateReady
	stateDestroyed
)

// planEntry is one target point's resolved transfer record: the source
// cell's vertex field samples to gather and the basis weights to blend
// them with (spec.md §4.5 "Build" / "Apply").
type planEntry struct {
	TargetEntityID geom.EntityID
	Found          bool
	SourceRank     int
	VertexLocals   []int
	Weights        []float64
}

// BuildOptions configures a single build_transfer call (spec.md §6.3).
type BuildOptions struct {
	SourceMesh mesh.Mesh
	TargetMesh mesh.Mesh

	SourceCellDim   geom.Dim // topological dimension of the source cells a field interpolates across
	SourceVertexDim geom.Dim // topological dimension of the source field's own samples
	TargetPointDim  geom.Dim // topological dimension of the target mesh's query points

	SourceField string
	TargetField string

	Tolerance float64
	TieBreak  geom.TieBreak

	// Runs is an optional diagnostics sink; nil disables persistence.
	// It is never read back by the operator (SPEC_FULL.md §2).
	Runs repository.RunRepository

	// Archive is an optional object-storage sink for the missed-point
	// report MissedTargetPoints produces; nil disables the upload.
	Archive storage.Storage
}

// TargetBuffer is the "target buffer" of spec.md §4.5 Apply: a
// write-only destination for one field sample per resolved target
// entity. A mesh.Mesh doesn't implement this directly; MapBuffer or a
// caller-supplied adapter over real target storage does.
type TargetBuffer interface {
	Set(entity geom.EntityID, value geom.FieldValue) error
}

// MapBuffer is the simplest TargetBuffer: an in-memory map, used by
// tests and by dtkctl's apply command.
type MapBuffer struct {
	mu     sync.Mutex
	values map[geom.EntityID]geom.FieldValue
}

// NewMapBuffer returns an empty MapBuffer.
func NewMapBuffer() *MapBuffer {
	return &MapBuffer{values: make(map[geom.EntityID]geom.FieldValue)}
}

// Set implements TargetBuffer.
func (b *MapBuffer) Set(entity geom.EntityID, value geom.FieldValue) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[entity] = value
	return nil
}

// Get returns the value Apply wrote for entity, or false if it was never
// resolved.
func (b *MapBuffer) Get(entity geom.EntityID) (geom.FieldValue, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[entity]
	return v, ok
}

// TransferOperator is the Uninitialized -> Ready -> (apply)* -> destroy
// state machine of spec.md §4.5. There is no re-entry: a geometry change
// requires a fresh operator built by BuildTransfer.
type TransferOperator struct {
	g               substrate.Group
	sourceMesh      mesh.Mesh
	sourceVertexDim geom.Dim
	sourceField     string
	archive         storage.Storage

	mu      sync.Mutex
	st      state
	planID  string
	plan    []planEntry
	defects *collections.Bitset
}

// BuildTransfer implements spec.md §6.3's build_transfer: runs the
// rendezvous broad phase, narrow-phase-confirms every candidate against
// the real adapter geometry, and caches interpolation weights, returning
// a Ready operator.
func BuildTransfer(ctx context.Context, g substrate.Group, opts BuildOptions) (*TransferOperator, error) {
	started := time.Now()

	if opts.Tolerance < 0 {
		return nil, appErrors.New(appErrors.CodeConfigError, "location.geometric_tolerance must be non-negative")
	}

	ctx, span := telemetry.StartCollective(ctx, "transfer.build", g.Rank(), g.Size(), 0)
	defer span.End()

	sourceIDs, sourceBoxes, err := opts.SourceMesh.BoundingBoxes(opts.SourceCellDim)
	if err != nil {
		return nil, err
	}
	sources := make([]rendezvous.SourceCell, len(sourceIDs))
	for i, id := range sourceIDs {
		sources[i] = rendezvous.SourceCell{EntityID: id, Local: i, Box: sourceBoxes[i]}
	}

	targetIDs, targetBoxes, err := opts.TargetMesh.BoundingBoxes(opts.TargetPointDim)
	if err != nil {
		return nil, err
	}
	targets := make([]geom.TargetPoint, len(targetIDs))
	for i, id := range targetIDs {
		targets[i] = geom.TargetPoint{EntityID: id, Coord: targetBoxes[i].Center()}
	}

	broadPhase, err := rendezvous.Run(ctx, g, sources, targets, opts.Tolerance, opts.TieBreak)
	if err != nil {
		return nil, err
	}

	plan, err := confirmCandidates(ctx, g, opts.SourceMesh, broadPhase, opts.Tolerance)
	if err != nil {
		return nil, err
	}

	defects := collections.NewBitset(len(plan))
	located := 0
	for i, e := range plan {
		if e.Found {
			located++
		} else {
			defects.Set(i)
		}
	}

	op := &TransferOperator{
		g:               g,
		sourceMesh:      opts.SourceMesh,
		sourceVertexDim: opts.SourceVertexDim,
		sourceField:     opts.SourceField,
		archive:         opts.Archive,
		st:              stateReady,
		planID:          uuid.NewString(),
		plan:            plan,
		defects:         defects,
	}

	if opts.Runs != nil && g.Rank() == 0 {
		run := &repository.TransferRun{
			PlanID:           op.planID,
			RendezvousMillis: time.Since(started).Milliseconds(),
			LocatedCount:     located,
			UnlocatedCount:   len(plan) - located,
			StartedAt:        started,
		}
		if err := opts.Runs.SaveRun(ctx, run); err != nil {
			return nil, err
		}
	}

	return op, nil
}

// PlanID returns the UUID stamped on this build, the diagnostics row's
// and the missed-point report's correlation key.
func (op *TransferOperator) PlanID() string { return op.planID }

// Apply implements spec.md §4.5 Apply: gather required source values,
// ship them to this rank via comm.Fetch, interpolate with the cached
// weights, and write into buffer. Unresolved target points are left
// untouched (spec.md §4.6's non-fatal policy for unlocated points).
func (op *TransferOperator) Apply(ctx context.Context, buffer TargetBuffer) error {
	op.mu.Lock()
	st := op.st
	op.mu.Unlock()
	if st != stateReady {
		return appErrors.ErrNotReady
	}

	ctx, span := telemetry.StartCollective(ctx, "transfer.apply", op.g.Rank(), op.g.Size(), len(op.plan))
	defer span.End()

	vertexIDs := op.sourceMesh.LocalEntities(op.sourceVertexDim)
	localValues := make([][]byte, len(vertexIDs))
	for i, id := range vertexIDs {
		value, err := op.sourceMesh.FieldValue(op.sourceField, id)
		if err != nil {
			return err
		}
		b, err := json.Marshal(value)
		if err != nil {
			return wrapErr("encode source field value", err)
		}
		localValues[i] = b
	}

	var remoteRanks, remoteIndices []int
	offsets := make([]int, len(op.plan)+1)
	for i, e := range op.plan {
		offsets[i] = len(remoteRanks)
		if !e.Found {
			continue
		}
		for _, v := range e.VertexLocals {
			remoteRanks = append(remoteRanks, e.SourceRank)
			remoteIndices = append(remoteIndices, v)
		}
	}
	offsets[len(op.plan)] = len(remoteRanks)

	pulled, err := comm.Fetch(ctx, op.g, remoteRanks, remoteIndices, localValues)
	if err != nil {
		return err
	}

	for i, e := range op.plan {
		if !e.Found {
			continue
		}
		start, end := offsets[i], offsets[i+1]
		values := make([]geom.FieldValue, end-start)
		for k := start; k < end; k++ {
			if err := json.Unmarshal(pulled[k], &values[k-start]); err != nil {
				return wrapErr("decode fetched field value", err)
			}
		}
		combined := geom.Lerp(values, e.Weights)
		if err := buffer.Set(e.TargetEntityID, combined); err != nil {
			return err
		}
	}
	return nil
}

// MissedTargetPoints implements spec.md §6.3's collective missed-point
// query: every rank's locally-unlocated target entity ids, gathered to
// rank 0 and broadcast back so the result is identical on every rank.
func (op *TransferOperator) MissedTargetPoints(ctx context.Context) ([]geom.EntityID, error) {
	op.mu.Lock()
	st := op.st
	plan := op.plan
	defects := op.defects
	op.mu.Unlock()
	if st != stateReady {
		return nil, appErrors.ErrNotReady
	}

	var local []geom.EntityID
	defects.Iterate(func(i int) bool {
		local = append(local, plan[i].TargetEntityID)
		return true
	})

	encoded, err := json.Marshal(local)
	if err != nil {
		return nil, wrapErr("encode local missed points", err)
	}
	gathered, err := comm.Gather(ctx, op.g, 0, encoded)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if op.g.Rank() == 0 {
		var all []geom.EntityID
		for _, raw := range gathered {
			var ids []geom.EntityID
			if err := json.Unmarshal(raw, &ids); err != nil {
				return nil, wrapErr("decode gathered missed points", err)
			}
			all = append(all, ids...)
		}
		payload, err = json.Marshal(all)
		if err != nil {
			return nil, wrapErr("encode global missed points", err)
		}
	}

	broadcast, err := comm.Broadcast(ctx, op.g, 0, payload)
	if err != nil {
		return nil, err
	}
	var global []geom.EntityID
	if err := json.Unmarshal(broadcast, &global); err != nil {
		return nil, wrapErr("decode broadcast missed points", err)
	}

	if op.archive != nil && op.g.Rank() == 0 {
		report := storage.MissedPointReport{PlanID: op.planID, Missed: global, Total: len(plan)}
		if err := storage.ArchiveMissedPoints(ctx, op.archive, report); err != nil {
			return nil, err
		}
	}

	return global, nil
}

// Destroy transitions the operator out of Ready; any further Apply or
// MissedTargetPoints call fails with appErrors.ErrNotReady (spec.md
// §4.5's state machine has no re-entry).
func (op *TransferOperator) Destroy() {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.st = stateDestroyed
}
