// Package distributed implements the distributed spatial index of
// spec.md §4.3: a top tree of per-rank leaf volumes built identically on
// every rank, and the five-step distributed query pipeline that resolves
// a point against whichever rank actually owns the candidate cell.
package distributed

import (
	"context"
	"encoding/json"

	"github.com/transfermesh/dtk/internal/comm"
	"github.com/transfermesh/dtk/internal/spatial"
	"github.com/transfermesh/dtk/internal/substrate"
	"github.com/transfermesh/dtk/pkg/geom"
)

// TopTree is the small, P-leaf BVH over every rank's local root bounding
// box, built collectively so that every rank holds an identical copy
// (spec.md §4.3 "Top tree"). An empty rank still contributes a leaf —
// an empty box — so the top tree always has exactly P leaves.
type TopTree struct {
	index      *spatial.LocalSpatialIndex
	leafBoxes  []geom.BoundingBox // indexed by rank
}

// BuildTopTree gathers every rank's localBox via comm.Gather + Broadcast
// (the "gather followed by an implicit broadcast" pattern of
// original_source's tstDetailsCommunicationHelpers.cpp) and builds one
// leaf per rank, keyed by rank as its EntityID/Local index.
func BuildTopTree(ctx context.Context, g substrate.Group, localBox geom.BoundingBox) (*TopTree, error) {
	encoded, err := json.Marshal(localBox)
	if err != nil {
		return nil, wrapCommErr("encode local root box", err)
	}

	gathered, err := comm.Gather(ctx, g, 0, encoded)
	if err != nil {
		return nil, err
	}

	// Rank 0 has the full list; everyone else needs it broadcast back.
	var payload []byte
	if g.Rank() == 0 {
		payload, err = json.Marshal(gathered)
		if err != nil {
			return nil, wrapCommErr("encode gathered root boxes", err)
		}
	}
	broadcasted, err := comm.Broadcast(ctx, g, 0, payload)
	if err != nil {
		return nil, err
	}

	var rawBoxes [][]byte
	if err := json.Unmarshal(broadcasted, &rawBoxes); err != nil {
		return nil, wrapCommErr("decode gathered root boxes", err)
	}

	leafBoxes := make([]geom.BoundingBox, len(rawBoxes))
	primitives := make([]spatial.Primitive, len(rawBoxes))
	for r, raw := range rawBoxes {
		var box geom.BoundingBox
		if err := json.Unmarshal(raw, &box); err != nil {
			return nil, wrapCommErr("decode rank root box", err)
		}
		leafBoxes[r] = box
		primitives[r] = spatial.Primitive{EntityID: geom.EntityID(r), Local: r, Box: box}
	}

	return &TopTree{
		index:     spatial.Build(primitives),
		leafBoxes: leafBoxes,
	}, nil
}

// Size returns the number of ranks (leaves) in the top tree.
func (t *TopTree) Size() int { return len(t.leafBoxes) }

// LeafBox returns the contributed local root box of rank r.
func (t *TopTree) LeafBox(r int) geom.BoundingBox { return t.leafBoxes[r] }

// CandidateRanks returns every rank whose leaf volume contains point,
// widened by tol — the forwarding list of spec.md §4.3 step 2.
func (t *TopTree) CandidateRanks(point geom.Point, tol float64) []int {
	hits := t.index.Locate(point, tol)
	ranks := make([]int, len(hits))
	for i, h := range hits {
		ranks[i] = h.Local
	}
	return ranks
}

// NearestRanks returns the k ranks whose leaf volume is nearest point,
// for nearest-k distributed queries (spec.md §4.3 step 2, nearest-k
// variant).
func (t *TopTree) NearestRanks(point geom.Point, k int) []int {
	hits := t.index.NearestK(point, k)
	ranks := make([]int, len(hits))
	for i, h := range hits {
		ranks[i] = h.Local
	}
	return ranks
}
