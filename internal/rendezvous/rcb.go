// Package rendezvous implements the rendezvous decomposition of spec.md
// §4.4: recursive coordinate bisection of the global bounding box into P
// sub-boxes balanced by source-cell count, routing of source cells and
// target points into that auxiliary decomposition, and resolution on
// each rendezvous rank's own local BVH. The decomposition exists only
// for the duration of plan construction — internal/transfer never holds
// a reference to it once Build finishes.
package rendezvous

import (
	"sort"

	"github.com/transfermesh/dtk/pkg/geom"
)

// Partition is the P rendezvous sub-boxes produced by recursive
// coordinate bisection, indexed by rendezvous rank. Every rank builds
// the identical Partition from the same gathered input, so rank
// assignment is stable across the whole group.
type Partition struct {
	SubBoxes []geom.BoundingBox
}

// Owner returns the rendezvous rank whose sub-box contains point,
// widened by tol; ties (a point on a partition boundary) resolve to the
// lowest rank index, consistent with this module's rank-ascending
// tie-break convention.
func (p *Partition) Owner(point geom.Point, tol float64) (rank int, ok bool) {
	for r, box := range p.SubBoxes {
		if box.Contains(point, tol) {
			return r, true
		}
	}
	return 0, false
}

// Intersecting returns every rendezvous rank whose sub-box intersects
// box, widened by tol — a source cell straddling a partition boundary
// is routed to every rank it overlaps (spec.md §4.4 step 3).
func (p *Partition) Intersecting(box geom.BoundingBox, tol float64) []int {
	var ranks []int
	widened := geom.NewBox(
		geom.NewPoint3D(box.Min[0]-tol, box.Min[1]-tol, box.MinZ-tol),
		geom.NewPoint3D(box.Max[0]+tol, box.Max[1]+tol, box.MaxZ+tol),
	)
	for r, sub := range p.SubBoxes {
		if sub.Intersects(widened) {
			ranks = append(ranks, r)
		}
	}
	return ranks
}

// buildPartition recursively bisects box, splitting centroids at each
// level by the count-weighted median along the box's longest axis, until
// exactly p sub-boxes remain. centroids must be non-empty when p > 1;
// an empty centroid set (an all-empty source mesh) falls back to
// splitting box geometrically in half, since there is nothing to
// balance against.
func buildPartition(centroids []geom.Point, box geom.BoundingBox, p int) []geom.BoundingBox {
	if p <= 1 || box.IsEmpty() {
		return []geom.BoundingBox{box}
	}

	leftCount := p - p/2
	rightCount := p / 2

	axis := longestAxis(box)
	sorted := append([]geom.Point(nil), centroids...)
	sort.Slice(sorted, func(i, j int) bool {
		return axisValue(sorted[i], axis) < axisValue(sorted[j], axis)
	})

	var splitCoord float64
	var leftPoints, rightPoints []geom.Point
	if len(sorted) == 0 {
		splitCoord = (axisMin(box, axis) + axisMax(box, axis)) / 2
	} else {
		medianIdx := len(sorted) * leftCount / p
		if medianIdx <= 0 {
			medianIdx = 1
		}
		if medianIdx >= len(sorted) {
			medianIdx = len(sorted) - 1
		}
		if medianIdx == 0 {
			splitCoord = (axisMin(box, axis) + axisMax(box, axis)) / 2
		} else {
			splitCoord = (axisValue(sorted[medianIdx-1], axis) + axisValue(sorted[medianIdx], axis)) / 2
		}
		leftPoints = sorted[:medianIdx]
		rightPoints = sorted[medianIdx:]
	}

	leftBox, rightBox := splitBox(box, axis, splitCoord)
	left := buildPartition(leftPoints, leftBox, leftCount)
	right := buildPartition(rightPoints, rightBox, rightCount)
	return append(left, right...)
}

// axis 0=x, 1=y, 2=z.
func longestAxis(box geom.BoundingBox) int {
	dx := box.Max[0] - box.Min[0]
	dy := box.Max[1] - box.Min[1]
	dz := box.MaxZ - box.MinZ
	if dx >= dy && dx >= dz {
		return 0
	}
	if dy >= dz {
		return 1
	}
	return 2
}

func axisValue(p geom.Point, axis int) float64 {
	switch axis {
	case 0:
		return p.X()
	case 1:
		return p.Y()
	default:
		return p.Z
	}
}

func axisMin(box geom.BoundingBox, axis int) float64 {
	switch axis {
	case 0:
		return box.Min[0]
	case 1:
		return box.Min[1]
	default:
		return box.MinZ
	}
}

func axisMax(box geom.BoundingBox, axis int) float64 {
	switch axis {
	case 0:
		return box.Max[0]
	case 1:
		return box.Max[1]
	default:
		return box.MaxZ
	}
}

// splitBox divides box into two halves along axis at coord.
func splitBox(box geom.BoundingBox, axis int, coord float64) (left, right geom.BoundingBox) {
	left, right = box, box
	switch axis {
	case 0:
		left.Max[0] = coord
		right.Min[0] = coord
	case 1:
		left.Max[1] = coord
		right.Min[1] = coord
	default:
		left.MaxZ = coord
		right.MinZ = coord
	}
	return left, right
}
