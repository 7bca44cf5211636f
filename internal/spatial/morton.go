// Package spatial implements the local bounding-volume hierarchy of
// spec.md §4.2: Morton-code ordering, a binary radix tree built with the
// longest-common-prefix scheme, and the nearest-k / within queries that
// run against it. There is no analogue of this in the teacher repo —
// it is built directly from spec.md's own algorithmic description,
// following the teacher's conventions for package layout, doc-comment
// density, and table-driven tests rather than any borrowed algorithm.
package spatial

import "github.com/transfermesh/dtk/pkg/geom"

// mortonBits is the number of bits of precision per axis; three axes at
// 21 bits each fit inside a 63-bit Morton code, leaving the sign bit of
// a uint64 unused.
const mortonBits = 21

const mortonMax = (1 << mortonBits) - 1

// mortonCode computes the 63-bit interleaved Morton code of p's position
// inside box, normalized per axis into [0, mortonMax]. box must be
// non-empty; a degenerate (zero-extent) axis maps every point on that
// axis to 0.
func mortonCode(p geom.Point, box geom.BoundingBox) uint64 {
	xs := quantizeAxis(p.X(), box.Min[0], box.Max[0])
	ys := quantizeAxis(p.Y(), box.Min[1], box.Max[1])
	zs := quantizeAxis(p.Z, box.MinZ, box.MaxZ)
	return morton3D(xs, ys, zs)
}

func quantizeAxis(v, lo, hi float64) uint32 {
	if hi <= lo {
		return 0
	}
	t := (v - lo) / (hi - lo)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return uint32(t * float64(mortonMax))
}

// morton3D interleaves three 21-bit values into a single 63-bit code.
func morton3D(x, y, z uint32) uint64 {
	return expandBits3(uint64(x)) | (expandBits3(uint64(y)) << 1) | (expandBits3(uint64(z)) << 2)
}

// expandBits3 spreads the low 21 bits of v so that two zero bits follow
// every input bit, the standard magic-number bit-spreading technique for
// 3-D Morton codes.
func expandBits3(v uint64) uint64 {
	v &= 0x1fffff
	v = (v | (v << 32)) & 0x1f00000000ffff
	v = (v | (v << 16)) & 0x1f0000ff0000ff
	v = (v | (v << 8)) & 0x100f00f00f00f00f
	v = (v | (v << 4)) & 0x10c30c30c30c30c3
	v = (v | (v << 2)) & 0x1249249249249249
	return v
}
