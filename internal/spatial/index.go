package spatial

import (
	"sort"

	"github.com/transfermesh/dtk/pkg/geom"
)

// Primitive is one bounding volume indexed by a LocalSpatialIndex: a
// source cell or, for the top tree, a per-rank leaf volume.
type Primitive struct {
	EntityID geom.EntityID
	Local    int
	Box      geom.BoundingBox
}

// LocalSpatialIndex is the BVH of spec.md §4.2, built over N bounding
// volumes. The zero value is not usable; construct with Build.
type LocalSpatialIndex struct {
	primitives []Primitive // sorted by Morton code
	nodes      []internalNode
	root       nodeRef
	bounds     geom.BoundingBox
}

// Build computes Morton codes for every primitive's centroid normalized
// into the union of all input boxes, sorts them (stably) by code, and
// builds the radix tree bottom-up. N=0 yields an empty tree (every query
// returns no results); N=1 yields a single leaf with no internal nodes.
func Build(primitives []Primitive) *LocalSpatialIndex {
	idx := &LocalSpatialIndex{bounds: geom.EmptyBox()}
	if len(primitives) == 0 {
		return idx
	}

	for _, p := range primitives {
		idx.bounds = idx.bounds.Union(p.Box)
	}

	sorted := append([]Primitive(nil), primitives...)
	codes := make([]uint64, len(sorted))
	for i, p := range sorted {
		codes[i] = mortonCode(p.Box.Center(), idx.bounds)
	}

	order := make([]int, len(sorted))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return codes[order[a]] < codes[order[b]]
	})

	idx.primitives = make([]Primitive, len(sorted))
	sortedCodes := make([]uint64, len(sorted))
	for i, o := range order {
		idx.primitives[i] = sorted[o]
		sortedCodes[i] = codes[o]
	}

	n := len(idx.primitives)
	if n == 1 {
		idx.root = nodeRef{leaf: true, index: 0}
		return idx
	}

	treeKeys := make([]sortKey, n)
	for i, c := range sortedCodes {
		treeKeys[i] = sortKey{code: c, pos: i}
	}

	idx.nodes = buildRadixTree(treeKeys)
	idx.root = nodeRef{leaf: false, index: 0}
	idx.computeBoxes(idx.root)
	return idx
}

// Size returns the number of primitives indexed.
func (idx *LocalSpatialIndex) Size() int { return len(idx.primitives) }

// Bounds returns the union of every indexed primitive's box, the root
// volume of the tree.
func (idx *LocalSpatialIndex) Bounds() geom.BoundingBox { return idx.bounds }

func (idx *LocalSpatialIndex) box(ref nodeRef) geom.BoundingBox {
	if ref.leaf {
		return idx.primitives[ref.index].Box
	}
	return idx.nodes[ref.index].box
}

// computeBoxes fills in every internal node's bounding volume bottom-up
// as the union of its children (spec.md §4.2).
func (idx *LocalSpatialIndex) computeBoxes(ref nodeRef) geom.BoundingBox {
	if ref.leaf {
		return idx.primitives[ref.index].Box
	}
	node := &idx.nodes[ref.index]
	left := idx.computeBoxes(node.left)
	right := idx.computeBoxes(node.right)
	node.box = left.Union(right)
	return node.box
}
