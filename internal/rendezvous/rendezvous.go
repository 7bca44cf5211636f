package rendezvous

import (
	"context"
	"encoding/json"

	"github.com/transfermesh/dtk/internal/comm"
	"github.com/transfermesh/dtk/internal/spatial"
	"github.com/transfermesh/dtk/internal/substrate"
	"github.com/transfermesh/dtk/pkg/geom"
	"github.com/transfermesh/dtk/pkg/telemetry"
)

// SourceCell is one source-mesh entity as seen by its owning rank, the
// input to Run's routing phase.
type SourceCell struct {
	EntityID geom.EntityID
	Local    int
	Box      geom.BoundingBox
}

// routedCell is a SourceCell after landing on a rendezvous rank, still
// carrying the rank/local-id of the mesh that actually owns it — the
// rendezvous rank is only ever a temporary host.
type routedCell struct {
	OriginRank  int           `json:"origin_rank"`
	OriginLocal int           `json:"origin_local"`
	EntityID    geom.EntityID `json:"entity_id"`
	Box         geom.BoundingBox `json:"box"`
}

// targetQuery is one target point replicated to its unique rendezvous
// owner, tagged so the response can return to the right slot.
type targetQuery struct {
	SourceRank    int        `json:"source_rank"`
	SourceQueryID int        `json:"source_query_id"`
	EntityID      geom.EntityID `json:"entity_id"`
	Point         geom.Point `json:"point"`
}

type targetResponse struct {
	SourceRank    int           `json:"source_rank"`
	SourceQueryID int           `json:"source_query_id"`
	Found         bool          `json:"found"`
	OwnerRank     int           `json:"owner_rank"`
	LocalID       int           `json:"local_id"`
	EntityID      geom.EntityID `json:"entity_id"`
}

// Run executes spec.md §4.4's five rendezvous steps and returns, for
// every entry of targets (in the same order), its candidate owner — or
// Found=false when no routed source cell's bounding box contains it.
// This is a broad-phase test only: box containment is necessary but not
// sufficient for true cell containment, since a point can sit inside a
// cell's AABB while falling outside the cell's actual geometry. Run
// never evaluates the mesh adapter's CellContains, so a Found=true
// result here is a candidate for internal/transfer's narrow-phase
// confirmation round-trip, not a final answer. The rendezvous
// decomposition built inside Run is discarded once it returns; callers
// (internal/transfer) never see a Partition.
func Run(ctx context.Context, g substrate.Group, sources []SourceCell, targets []geom.TargetPoint, tol float64, tieBreak geom.TieBreak) ([]geom.Located, error) {
	ctx, span := telemetry.StartCollective(ctx, "rendezvous.run", g.Rank(), g.Size(), len(sources)+len(targets))
	defer span.End()

	globalBox, err := globalBoundingBox(ctx, g, sources, targets)
	if err != nil {
		return nil, err
	}

	partition, err := buildGlobalPartition(ctx, g, sources, globalBox)
	if err != nil {
		return nil, err
	}

	routedCells, err := routeSourceCells(ctx, g, partition, sources, tol)
	if err != nil {
		return nil, err
	}

	local := buildLocalIndex(routedCells)

	return routeAndResolveTargets(ctx, g, partition, local, routedCells, targets, tol, tieBreak)
}

// globalBoundingBox unions every rank's source and target extents via a
// gather-then-broadcast, the same pattern internal/distributed's top
// tree uses for the identical problem (one value every rank must agree
// on, built once on rank 0 and replicated).
func globalBoundingBox(ctx context.Context, g substrate.Group, sources []SourceCell, targets []geom.TargetPoint) (geom.BoundingBox, error) {
	local := geom.EmptyBox()
	for _, c := range sources {
		local = local.Union(c.Box)
	}
	for _, t := range targets {
		local = local.ExtendPoint(t.Coord)
	}

	encoded, err := json.Marshal(local)
	if err != nil {
		return geom.BoundingBox{}, wrapErr("encode local bounding box", err)
	}
	gathered, err := comm.Gather(ctx, g, 0, encoded)
	if err != nil {
		return geom.BoundingBox{}, err
	}

	var payload []byte
	if g.Rank() == 0 {
		global := geom.EmptyBox()
		for _, raw := range gathered {
			var b geom.BoundingBox
			if err := json.Unmarshal(raw, &b); err != nil {
				return geom.BoundingBox{}, wrapErr("decode gathered bounding box", err)
			}
			global = global.Union(b)
		}
		payload, err = json.Marshal(global)
		if err != nil {
			return geom.BoundingBox{}, wrapErr("encode global bounding box", err)
		}
	}

	broadcast, err := comm.Broadcast(ctx, g, 0, payload)
	if err != nil {
		return geom.BoundingBox{}, err
	}
	var global geom.BoundingBox
	if err := json.Unmarshal(broadcast, &global); err != nil {
		return geom.BoundingBox{}, wrapErr("decode broadcast global bounding box", err)
	}
	return global, nil
}

// buildGlobalPartition gathers every rank's source-cell centroids to
// rank 0, builds the P-way RCB split there, and broadcasts the result —
// the partition must be identical everywhere, so only one rank may
// decide it (spec.md §4.4 step 2).
func buildGlobalPartition(ctx context.Context, g substrate.Group, sources []SourceCell, globalBox geom.BoundingBox) (*Partition, error) {
	centroids := make([]geom.Point, len(sources))
	for i, c := range sources {
		centroids[i] = c.Box.Center()
	}
	encoded, err := json.Marshal(centroids)
	if err != nil {
		return nil, wrapErr("encode source centroids", err)
	}
	gathered, err := comm.Gather(ctx, g, 0, encoded)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if g.Rank() == 0 {
		var all []geom.Point
		for _, raw := range gathered {
			var pts []geom.Point
			if err := json.Unmarshal(raw, &pts); err != nil {
				return nil, wrapErr("decode gathered centroids", err)
			}
			all = append(all, pts...)
		}
		subBoxes := buildPartition(all, globalBox, g.Size())
		payload, err = json.Marshal(subBoxes)
		if err != nil {
			return nil, wrapErr("encode partition", err)
		}
	}

	broadcast, err := comm.Broadcast(ctx, g, 0, payload)
	if err != nil {
		return nil, err
	}
	var subBoxes []geom.BoundingBox
	if err := json.Unmarshal(broadcast, &subBoxes); err != nil {
		return nil, wrapErr("decode broadcast partition", err)
	}
	return &Partition{SubBoxes: subBoxes}, nil
}

// routeSourceCells ships every source cell to every rendezvous rank
// whose sub-box it intersects (spec.md §4.4 step 3, "a cell may be
// duplicated across rendezvous ranks"). The routing is one-directional:
// there is nothing to send back, so the mirror plan Send returns is
// discarded.
func routeSourceCells(ctx context.Context, g substrate.Group, partition *Partition, sources []SourceCell, tol float64) ([]routedCell, error) {
	var destRanks []int
	var payloads [][]byte
	for _, c := range sources {
		for _, r := range partition.Intersecting(c.Box, tol) {
			rc := routedCell{OriginRank: g.Rank(), OriginLocal: c.Local, EntityID: c.EntityID, Box: c.Box}
			b, err := json.Marshal(rc)
			if err != nil {
				return nil, wrapErr("encode routed source cell", err)
			}
			destRanks = append(destRanks, r)
			payloads = append(payloads, b)
		}
	}

	received, _, err := comm.Send(ctx, g, comm.NewPlan(destRanks), payloads)
	if err != nil {
		return nil, err
	}

	cells := make([]routedCell, len(received))
	for i, raw := range received {
		if err := json.Unmarshal(raw, &cells[i]); err != nil {
			return nil, wrapErr("decode routed source cell", err)
		}
	}
	return cells, nil
}

// buildLocalIndex builds a rendezvous rank's local BVH over the cells
// that landed on it, using the rendezvous-local position as the
// index's Local field — resolved answers are translated back to
// OriginRank/OriginLocal before being returned to the caller.
func buildLocalIndex(cells []routedCell) *spatial.LocalSpatialIndex {
	prims := make([]spatial.Primitive, len(cells))
	for i, c := range cells {
		prims[i] = spatial.Primitive{EntityID: c.EntityID, Local: i, Box: c.Box}
	}
	return spatial.Build(prims)
}

// routeAndResolveTargets ships every target point to the unique
// rendezvous rank containing it (step 3), resolves it against that
// rank's routed-cell index (step 4), and returns the answer to the
// querying rank via the mirror plan (step 5).
func routeAndResolveTargets(ctx context.Context, g substrate.Group, partition *Partition, local *spatial.LocalSpatialIndex, cells []routedCell, targets []geom.TargetPoint, tol float64, tieBreak geom.TieBreak) ([]geom.Located, error) {
	var destRanks []int
	var payloads [][]byte
	for qid, tgt := range targets {
		rank, ok := partition.Owner(tgt.Coord, tol)
		if !ok {
			// Outside every rendezvous sub-box — can't be owned by any
			// source cell either, so the point is simply unlocated.
			continue
		}
		q := targetQuery{SourceRank: g.Rank(), SourceQueryID: qid, EntityID: tgt.EntityID, Point: tgt.Coord}
		b, err := json.Marshal(q)
		if err != nil {
			return nil, wrapErr("encode target query", err)
		}
		destRanks = append(destRanks, rank)
		payloads = append(payloads, b)
	}

	received, mirror, err := comm.Send(ctx, g, comm.NewPlan(destRanks), payloads)
	if err != nil {
		return nil, err
	}

	responses := make([][]byte, len(received))
	for i, raw := range received {
		var q targetQuery
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, wrapErr("decode target query", err)
		}

		resp := targetResponse{SourceRank: q.SourceRank, SourceQueryID: q.SourceQueryID}
		if hits := local.Locate(q.Point, tol); len(hits) > 0 {
			winner := hits[0]
			for _, h := range hits[1:] {
				hOrigin := cells[h.Local]
				wOrigin := cells[winner.Local]
				if tieBreak.Less(hOrigin.OriginRank, hOrigin.OriginLocal, wOrigin.OriginRank, wOrigin.OriginLocal) {
					winner = h
				}
			}
			origin := cells[winner.Local]
			resp.Found = true
			resp.OwnerRank = origin.OriginRank
			resp.LocalID = origin.OriginLocal
			resp.EntityID = origin.EntityID
		}

		b, err := json.Marshal(resp)
		if err != nil {
			return nil, wrapErr("encode target response", err)
		}
		responses[i] = b
	}

	pulled, _, err := comm.Send(ctx, g, mirror, responses)
	if err != nil {
		return nil, err
	}

	located := make([]geom.Located, len(targets))
	for qid, tgt := range targets {
		located[qid] = geom.Located{Target: tgt, Found: false}
	}
	for _, raw := range pulled {
		var resp targetResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, wrapErr("decode target response", err)
		}
		if !resp.Found {
			continue
		}
		located[resp.SourceQueryID] = geom.Located{
			Target:         targets[resp.SourceQueryID],
			SourceRank:     resp.OwnerRank,
			SourceLocalID:  resp.LocalID,
			SourceEntityID: resp.EntityID,
			Found:          true,
		}
	}
	return located, nil
}
