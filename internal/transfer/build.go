package transfer

import (
	"context"
	"encoding/json"

	"github.com/transfermesh/dtk/internal/comm"
	"github.com/transfermesh/dtk/internal/mesh"
	"github.com/transfermesh/dtk/internal/substrate"
	"github.com/transfermesh/dtk/pkg/geom"
	"github.com/transfermesh/dtk/pkg/telemetry"
)

// confirmQuery is one rendezvous broad-phase candidate shipped to its
// source rank for narrow-phase confirmation: does the candidate cell
// actually contain the point, not merely its bounding box?
type confirmQuery struct {
	QueryID  int           `json:"query_id"`
	EntityID geom.EntityID `json:"entity_id"`
	Point    geom.Point    `json:"point"`
}

// confirmResponse carries back the narrow-phase verdict plus, when it
// holds, the basis weights Apply needs so the round trip doesn't have to
// repeat.
type confirmResponse struct {
	QueryID      int       `json:"query_id"`
	Found        bool      `json:"found"`
	SourceRank   int       `json:"source_rank"`
	VertexLocals []int     `json:"vertex_locals"`
	Weights      []float64 `json:"weights"`
}

// confirmCandidates runs the narrow-phase round trip of spec.md §4.5's
// Build: for every broad-phase candidate from internal/rendezvous.Run,
// ask the candidate's owning rank to evaluate its mesh adapter's
// CellContains at the exact target point, and if it holds, its basis
// weights too. A broad-phase candidate whose box merely overlapped the
// point, without the true cell geometry containing it, comes back
// Found=false here and is recorded as an unlocated target point
// (spec.md §4.6) rather than a false resolution.
func confirmCandidates(ctx context.Context, g substrate.Group, sourceMesh mesh.Mesh, candidates []geom.Located, tol float64) ([]planEntry, error) {
	ctx, span := telemetry.StartCollective(ctx, "transfer.confirm_candidates", g.Rank(), g.Size(), len(candidates))
	defer span.End()

	plan := make([]planEntry, len(candidates))
	for i, c := range candidates {
		plan[i] = planEntry{TargetEntityID: c.Target.EntityID}
	}

	var destRanks []int
	var envelopes [][]byte
	for i, c := range candidates {
		if !c.Found {
			continue
		}
		q := confirmQuery{QueryID: i, EntityID: c.SourceEntityID, Point: c.Target.Coord}
		b, err := json.Marshal(q)
		if err != nil {
			return nil, wrapErr("encode confirm query", err)
		}
		destRanks = append(destRanks, c.SourceRank)
		envelopes = append(envelopes, b)
	}

	received, mirror, err := comm.Send(ctx, g, comm.NewPlan(destRanks), envelopes)
	if err != nil {
		return nil, err
	}

	responses := make([][]byte, len(received))
	for k, raw := range received {
		var q confirmQuery
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, wrapErr("decode confirm query", err)
		}

		resp := confirmResponse{QueryID: q.QueryID, SourceRank: g.Rank()}
		found, ref, err := sourceMesh.CellContains(q.EntityID, q.Point, tol)
		if err != nil {
			return nil, err
		}
		if found {
			weights, err := sourceMesh.BasisEvaluate(q.EntityID, ref)
			if err != nil {
				return nil, err
			}
			verts, err := sourceMesh.CellVertices(q.EntityID)
			if err != nil {
				return nil, err
			}
			locals := make([]int, len(verts))
			for vi, v := range verts {
				locals[vi] = v.Local
			}
			resp.Found = true
			resp.VertexLocals = locals
			resp.Weights = weights
		}

		b, err := json.Marshal(resp)
		if err != nil {
			return nil, wrapErr("encode confirm response", err)
		}
		responses[k] = b
	}

	pulled, _, err := comm.Send(ctx, g, mirror, responses)
	if err != nil {
		return nil, err
	}

	for _, raw := range pulled {
		var resp confirmResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, wrapErr("decode confirm response", err)
		}
		if !resp.Found {
			continue
		}
		e := &plan[resp.QueryID]
		e.Found = true
		e.SourceRank = resp.SourceRank
		e.VertexLocals = resp.VertexLocals
		e.Weights = resp.Weights
	}

	return plan, nil
}
