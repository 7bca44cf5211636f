package distributed

import (
	"context"
	"encoding/json"

	"github.com/transfermesh/dtk/internal/comm"
	"github.com/transfermesh/dtk/internal/spatial"
	"github.com/transfermesh/dtk/internal/substrate"
	"github.com/transfermesh/dtk/pkg/geom"
	"github.com/transfermesh/dtk/pkg/telemetry"
)

// queryEnvelope is one query replicated to a candidate rank (spec.md
// §4.3 step 3), tagged with its origin so the response can find its way
// back to the right caller-side slot.
type queryEnvelope struct {
	SourceRank    int        `json:"source_rank"`
	SourceQueryID int        `json:"source_query_id"`
	Point         geom.Point `json:"point"`
}

// responseEnvelope is one receiving rank's local-BVH answer to a single
// queryEnvelope (spec.md §4.3 step 4).
type responseEnvelope struct {
	SourceRank    int          `json:"source_rank"`
	SourceQueryID int          `json:"source_query_id"`
	Found         bool         `json:"found"`
	OwnerRank     int          `json:"owner_rank"`
	LocalID       int          `json:"local_id"`
	EntityID      geom.EntityID `json:"entity_id"`
}

// LocatePoints runs the five-step distributed query pipeline of spec.md
// §4.3 against every target in targets, using topTree to build each
// query's forwarding list and local as the receiving rank's own BVH.
// Unlocated points (outside every source box) come back with Found=false
// rather than an error — spec.md §4.6's non-fatal policy.
func LocatePoints(ctx context.Context, g substrate.Group, topTree *TopTree, local *spatial.LocalSpatialIndex, targets []geom.TargetPoint, tol float64, tieBreak geom.TieBreak) ([]geom.Located, error) {
	ctx, span := telemetry.StartCollective(ctx, "distributed.locate_points", g.Rank(), g.Size(), len(targets))
	defer span.End()

	var destRanks []int
	var envelopes [][]byte
	for qid, tgt := range targets {
		for _, r := range topTree.CandidateRanks(tgt.Coord, tol) {
			env := queryEnvelope{SourceRank: g.Rank(), SourceQueryID: qid, Point: tgt.Coord}
			b, err := json.Marshal(env)
			if err != nil {
				return nil, wrapCommErr("encode query envelope", err)
			}
			destRanks = append(destRanks, r)
			envelopes = append(envelopes, b)
		}
	}

	received, mirror, err := comm.Send(ctx, g, comm.NewPlan(destRanks), envelopes)
	if err != nil {
		return nil, err
	}

	responses := make([][]byte, len(received))
	for i, raw := range received {
		var env queryEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, wrapCommErr("decode query envelope", err)
		}

		resp := responseEnvelope{SourceRank: env.SourceRank, SourceQueryID: env.SourceQueryID, OwnerRank: g.Rank()}
		if hits := local.Locate(env.Point, tol); len(hits) > 0 {
			winner := hits[0]
			for _, h := range hits[1:] {
				if tieBreak.Less(g.Rank(), h.Local, g.Rank(), winner.Local) {
					winner = h
				}
			}
			resp.Found = true
			resp.LocalID = winner.Local
			resp.EntityID = winner.EntityID
		}

		b, err := json.Marshal(resp)
		if err != nil {
			return nil, wrapCommErr("encode response envelope", err)
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
		var resp responseEnvelope
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, wrapCommErr("decode response envelope", err)
		}
		if !resp.Found {
			continue
		}
		cur := located[resp.SourceQueryID]
		if !cur.Found || tieBreak.Less(resp.OwnerRank, resp.LocalID, cur.SourceRank, cur.SourceLocalID) {
			located[resp.SourceQueryID] = geom.Located{
				Target:         targets[resp.SourceQueryID],
				SourceRank:     resp.OwnerRank,
				SourceLocalID:  resp.LocalID,
				SourceEntityID: resp.EntityID,
				Found:          true,
			}
		}
	}
	return located, nil
}
