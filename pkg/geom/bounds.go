// Package geom provides the value types shared by every tier of the
// transfer engine: entity identity, bounding volumes, and points. Bounding
// volumes and points are built directly on top of github.com/paulmach/orb
// rather than a hand-rolled vector type, so union/intersect/centroid all
// delegate to a well-tested geometry library.
package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// Dim is the supported range of topological dimensions (point through volume).
type Dim int

const (
	DimVertex Dim = 0
	DimEdge   Dim = 1
	DimFace   Dim = 2
	DimVolume Dim = 3
)

// Point is a real-valued coordinate in 2 or 3 space. The engine is
// dimension-generic at the API level (spec.md §3 "d-tuple of reals") but
// every concrete adapter in this module works in 2-D or 3-D, so Point
// wraps orb.Point (2-D) with an optional Z for 3-D meshes.
type Point struct {
	orb.Point
	Z float64
}

// NewPoint2D builds a 2-D point.
func NewPoint2D(x, y float64) Point {
	return Point{Point: orb.Point{x, y}}
}

// NewPoint3D builds a 3-D point.
func NewPoint3D(x, y, z float64) Point {
	return Point{Point: orb.Point{x, y}, Z: z}
}

// X returns the first coordinate.
func (p Point) X() float64 { return p.Point[0] }

// Y returns the second coordinate.
func (p Point) Y() float64 { return p.Point[1] }

// Sub returns p - q componentwise.
func (p Point) Sub(q Point) Point {
	return Point{Point: orb.Point{p.X() - q.X(), p.Y() - q.Y()}, Z: p.Z - q.Z}
}

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 {
	return p.X()*q.X() + p.Y()*q.Y() + p.Z*q.Z
}

// Norm returns the Euclidean length of p treated as a vector from the origin.
func (p Point) Norm() float64 {
	return math.Sqrt(p.Dot(p))
}

// DistanceSquared returns the squared Euclidean distance between p and q,
// cheaper than Distance when only relative ordering matters (nearest-k search).
func (p Point) DistanceSquared(q Point) float64 {
	d := p.Sub(q)
	return d.Dot(d)
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Sqrt(p.DistanceSquared(q))
}

// BoundingBox is an axis-aligned interval in up to 3 dimensions, built on
// orb.Bound for the 2-D plane plus an explicit Z range. min <= max
// componentwise for any non-empty box (spec.md §3).
type BoundingBox struct {
	orb.Bound
	MinZ, MaxZ float64
}

// EmptyBox returns the identity element for Union: min=+inf, max=-inf.
func EmptyBox() BoundingBox {
	return BoundingBox{
		Bound: orb.Bound{
			Min: orb.Point{math.Inf(1), math.Inf(1)},
			Max: orb.Point{math.Inf(-1), math.Inf(-1)},
		},
		MinZ: math.Inf(1),
		MaxZ: math.Inf(-1),
	}
}

// BoxFromPoint returns a degenerate box containing exactly p.
func BoxFromPoint(p Point) BoundingBox {
	return BoundingBox{
		Bound: orb.Bound{Min: p.Point, Max: p.Point},
		MinZ:  p.Z, MaxZ: p.Z,
	}
}

// NewBox builds a box from explicit min/max corners, ordering components
// so the invariant min <= max holds regardless of argument order.
func NewBox(min, max Point) BoundingBox {
	b := EmptyBox()
	b = b.ExtendPoint(min)
	b = b.ExtendPoint(max)
	return b
}

// IsEmpty reports whether b is the identity element (spec.md §3).
func (b BoundingBox) IsEmpty() bool {
	return b.Min[0] > b.Max[0]
}

// ExtendPoint returns the union of b with the degenerate box at p.
func (b BoundingBox) ExtendPoint(p Point) BoundingBox {
	return b.Union(BoxFromPoint(p))
}

// Union returns the smallest box enclosing both b and o (the BVH bottom-up
// node-volume computation of spec.md §4.2 reduces to repeated Union calls).
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return BoundingBox{
		Bound: b.Bound.Union(o.Bound),
		MinZ:  math.Min(b.MinZ, o.MinZ),
		MaxZ:  math.Max(b.MaxZ, o.MaxZ),
	}
}

// Intersects reports whether b and o share at least one point, used by the
// "within" BVH query (spec.md §4.2) and rendezvous routing (§4.4 step 3).
func (b BoundingBox) Intersects(o BoundingBox) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	if b.MaxZ < o.MinZ || o.MaxZ < b.MinZ {
		return false
	}
	return b.Bound.Intersects(o.Bound)
}

// Contains reports whether p lies within b, inclusive of the boundary and
// widened by tol on every side (location.geometric_tolerance, spec.md §6.4).
func (b BoundingBox) Contains(p Point, tol float64) bool {
	if b.IsEmpty() {
		return false
	}
	if p.X() < b.Min[0]-tol || p.X() > b.Max[0]+tol {
		return false
	}
	if p.Y() < b.Min[1]-tol || p.Y() > b.Max[1]+tol {
		return false
	}
	if p.Z < b.MinZ-tol || p.Z > b.MaxZ+tol {
		return false
	}
	return true
}

// Center returns the midpoint of b; undefined (NaN) for an empty box.
func (b BoundingBox) Center() Point {
	c := b.Bound.Center()
	return Point{Point: c, Z: (b.MinZ + b.MaxZ) / 2}
}

// DistanceSquaredToPoint returns the squared distance from p to the nearest
// point of b (zero if p is inside b), the lower bound used to prune the
// nearest-k best-first search (spec.md §4.2).
func (b BoundingBox) DistanceSquaredToPoint(p Point) float64 {
	dx := axisGap(p.X(), b.Min[0], b.Max[0])
	dy := axisGap(p.Y(), b.Min[1], b.Max[1])
	dz := axisGap(p.Z, b.MinZ, b.MaxZ)
	return dx*dx + dy*dy + dz*dz
}

func axisGap(v, lo, hi float64) float64 {
	if v < lo {
		return lo - v
	}
	if v > hi {
		return v - hi
	}
	return 0
}
