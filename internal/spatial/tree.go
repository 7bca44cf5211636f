package spatial

import (
	"context"
	"math/bits"

	"github.com/transfermesh/dtk/pkg/geom"
	"github.com/transfermesh/dtk/pkg/parallel"
)

// nodeRef addresses either a leaf (index into the sorted primitive
// slice) or an internal node (index into the internalNode slice).
type nodeRef struct {
	leaf  bool
	index int
}

// internalNode is one branch of the radix tree; first/last are the
// inclusive range, in sorted order, of leaves it spans.
type internalNode struct {
	left, right nodeRef
	first, last int
	box         geom.BoundingBox
}

// sortKey pairs a primitive's Morton code with its original sorted-array
// position, so that delta() can break ties between primitives sharing a
// Morton code (duplicate centroids, or a degenerate bounding box) without
// producing an ambiguous -1 common-prefix length.
type sortKey struct {
	code uint64
	pos  int
}

// delta returns the length, in bits, of the common prefix of keys i and
// j's composite (code, pos) key, or -1 if j falls outside [0, n). Equal
// Morton codes fall back to comparing pos so every pair of distinct
// primitives has a well-defined, finite delta — the standard fix for
// duplicate keys in the Karras longest-common-prefix construction.
func delta(keys []sortKey, i, j int) int {
	n := len(keys)
	if j < 0 || j >= n {
		return -1
	}
	a, b := keys[i].code, keys[j].code
	if a != b {
		return bits.LeadingZeros64(a ^ b)
	}
	return 64 + bits.LeadingZeros64(uint64(keys[i].pos^keys[j].pos))
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// determineRange finds the other end of internal node i's leaf range,
// given its direction of growth, following Karras (2012)'s exponential
// search plus binary-search refinement.
func determineRange(keys []sortKey, i int) (lo, hi int) {
	d := sign(delta(keys, i, i+1) - delta(keys, i, i-1))
	if d == 0 {
		d = 1
	}
	deltaMin := delta(keys, i, i-d)

	lmax := 2
	for delta(keys, i, i+lmax*d) > deltaMin {
		lmax *= 2
	}
	l := 0
	for t := lmax / 2; t >= 1; t /= 2 {
		if delta(keys, i, i+(l+t)*d) > deltaMin {
			l += t
		}
	}
	j := i + l*d
	if i < j {
		return i, j
	}
	return j, i
}

// findSplit locates the position within [first, last] where the common
// prefix of the range's two halves drops, the boundary between an
// internal node's left and right children.
func findSplit(keys []sortKey, first, last int) int {
	commonPrefix := delta(keys, first, last)
	split := first
	step := last - first
	for {
		step = (step + 1) / 2
		newSplit := split + step
		if newSplit < last {
			if delta(keys, first, newSplit) > commonPrefix {
				split = newSplit
			}
		}
		if step <= 1 {
			break
		}
	}
	return split
}

// buildRadixTree builds the n-1 internal nodes of a binary radix tree
// over n sorted primitives in one parallel pass (spec.md §4.2), using
// pkg/parallel.ForEach as the substrate's parallel-for primitive. Callers
// must handle n < 2 themselves: buildRadixTree requires n >= 2.
func buildRadixTree(keys []sortKey) []internalNode {
	n := len(keys)
	nodes := make([]internalNode, n-1)
	indices := make([]int, n-1)
	for i := range indices {
		indices[i] = i
	}

	_, _ = parallel.ForEach(context.Background(), indices, parallel.DefaultPoolConfig(), func(_ context.Context, i int) error {
		lo, hi := determineRange(keys, i)
		split := findSplit(keys, lo, hi)

		var left, right nodeRef
		if split == lo {
			left = nodeRef{leaf: true, index: split}
		} else {
			left = nodeRef{leaf: false, index: split}
		}
		if split+1 == hi {
			right = nodeRef{leaf: true, index: split + 1}
		} else {
			right = nodeRef{leaf: false, index: split + 1}
		}
		nodes[i] = internalNode{left: left, right: right, first: lo, last: hi}
		return nil
	})
	return nodes
}
