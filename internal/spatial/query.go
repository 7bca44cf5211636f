package spatial

import (
	"container/heap"
	"sort"

	"github.com/transfermesh/dtk/pkg/geom"
)

// Within returns every primitive whose box intersects box, in the tree's
// depth-first pre-order — arbitrary but deterministic, since the tree
// shape is fixed once built (spec.md §4.2).
func (idx *LocalSpatialIndex) Within(box geom.BoundingBox) []Primitive {
	if idx.Size() == 0 {
		return nil
	}
	var out []Primitive
	idx.withinRec(idx.root, box, &out)
	return out
}

func (idx *LocalSpatialIndex) withinRec(ref nodeRef, box geom.BoundingBox, out *[]Primitive) {
	if ref.leaf {
		p := idx.primitives[ref.index]
		if p.Box.Intersects(box) {
			*out = append(*out, p)
		}
		return
	}
	if !idx.box(ref).Intersects(box) {
		return
	}
	node := idx.nodes[ref.index]
	idx.withinRec(node.left, box, out)
	idx.withinRec(node.right, box, out)
}

// Locate returns every primitive whose box contains point, widened by
// tol — the point-in-cell query that spec.md §4.3's distributed pipeline
// runs against the receiving rank's local BVH, and whose results feed
// the (rank ascending, local-id ascending) owner tie-break of spec.md
// §4.3 step 5.
func (idx *LocalSpatialIndex) Locate(point geom.Point, tol float64) []Primitive {
	if idx.Size() == 0 {
		return nil
	}
	var out []Primitive
	idx.locateRec(idx.root, point, tol, &out)
	return out
}

func (idx *LocalSpatialIndex) locateRec(ref nodeRef, point geom.Point, tol float64, out *[]Primitive) {
	if ref.leaf {
		p := idx.primitives[ref.index]
		if p.Box.Contains(point, tol) {
			*out = append(*out, p)
		}
		return
	}
	if !idx.box(ref).Contains(point, tol) {
		return
	}
	node := idx.nodes[ref.index]
	idx.locateRec(node.left, point, tol, out)
	idx.locateRec(node.right, point, tol, out)
}

// heapItem is one pending node in the nearest-k best-first search,
// ordered by the lower-bound squared distance from the query point to
// its box.
type heapItem struct {
	ref        nodeRef
	lowerBound float64
}

type candidateHeap []heapItem

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].lowerBound < h[j].lowerBound }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(heapItem)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type rankedPrimitive struct {
	primitive Primitive
	distSq    float64
}

// NearestK runs a best-first search with a bounded priority queue over
// internal nodes, pruning any subtree whose lower-bound distance already
// exceeds the current k-th best distance. Returns exactly min(k, N)
// results sorted by ascending distance, ties broken by EntityID
// ascending (spec.md §4.2).
func (idx *LocalSpatialIndex) NearestK(point geom.Point, k int) []Primitive {
	if k <= 0 || idx.Size() == 0 {
		return nil
	}

	pq := &candidateHeap{{ref: idx.root, lowerBound: idx.box(idx.root).DistanceSquaredToPoint(point)}}
	heap.Init(pq)

	var best []rankedPrimitive
	for pq.Len() > 0 {
		top := heap.Pop(pq).(heapItem)
		if len(best) == k && top.lowerBound > best[len(best)-1].distSq {
			break
		}
		if top.ref.leaf {
			p := idx.primitives[top.ref.index]
			best = insertRanked(best, rankedPrimitive{primitive: p, distSq: p.Box.DistanceSquaredToPoint(point)}, k)
			continue
		}
		node := idx.nodes[top.ref.index]
		heap.Push(pq, heapItem{ref: node.left, lowerBound: idx.box(node.left).DistanceSquaredToPoint(point)})
		heap.Push(pq, heapItem{ref: node.right, lowerBound: idx.box(node.right).DistanceSquaredToPoint(point)})
	}

	out := make([]Primitive, len(best))
	for i, b := range best {
		out[i] = b.primitive
	}
	return out
}

// insertRanked inserts item into best, which is kept sorted by
// (distSq ascending, EntityID ascending) and bounded to k elements.
func insertRanked(best []rankedPrimitive, item rankedPrimitive, k int) []rankedPrimitive {
	i := sort.Search(len(best), func(i int) bool {
		if best[i].distSq != item.distSq {
			return best[i].distSq > item.distSq
		}
		return best[i].primitive.EntityID > item.primitive.EntityID
	})
	best = append(best, rankedPrimitive{})
	copy(best[i+1:], best[i:])
	best[i] = item
	if len(best) > k {
		best = best[:k]
	}
	return best
}
