package geom

// FieldValue is a small tagged union carrying either a scalar or a
// fixed-width vector sample, matching the scalar-vs-vector abstraction
// exercised by original_source's field_test.cc (SPEC_FULL.md §3.4) rather
// than assuming every field is a bare float64.
type FieldValue struct {
	Vector []float64
}

// NewScalar wraps a single value as a one-component FieldValue.
func NewScalar(v float64) FieldValue {
	return FieldValue{Vector: []float64{v}}
}

// NewVector wraps a fixed-width sample.
func NewVector(v []float64) FieldValue {
	return FieldValue{Vector: v}
}

// Scalar returns the first component, panicking semantics avoided by
// returning 0 for an empty value (never constructed by NewScalar/NewVector).
func (f FieldValue) Scalar() float64 {
	if len(f.Vector) == 0 {
		return 0
	}
	return f.Vector[0]
}

// Dim reports the number of components.
func (f FieldValue) Dim() int {
	return len(f.Vector)
}

// Lerp linearly combines a set of field values with the given weights,
// used by the transfer operator's Apply step to evaluate a source field at
// a target point's reference coordinates (spec.md §4.5, §9 "interpolation
// order ... is implied by the adapter's basis_evaluate but not constrained
// by the core" — the core only performs the weighted sum).
func Lerp(values []FieldValue, weights []float64) FieldValue {
	if len(values) == 0 {
		return FieldValue{}
	}
	dim := values[0].Dim()
	out := make([]float64, dim)
	for i, v := range values {
		w := 0.0
		if i < len(weights) {
			w = weights[i]
		}
		for d := 0; d < dim && d < v.Dim(); d++ {
			out[d] += w * v.Vector[d]
		}
	}
	return FieldValue{Vector: out}
}
