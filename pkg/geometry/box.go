package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBounds is returned when a boundary has a non-positive or
// non-finite extent on some axis.
var ErrInvalidBounds = errors.New("invalid bounds")

// Box is an axis-aligned rectangle (2D) or box (3D) given by its two corners.
// Min is the anchor; Max-Min are the extents.
type Box[V Vector[V]] struct {
	Min V `json:"min"`
	Max V `json:"max"`
}

// NewBox builds a box anchored at min with the given extents.
func NewBox[V Vector[V]](min, size V) (Box[V], error) {
	b := Box[V]{Min: min, Max: min.Add(size)}
	if err := b.Validate(); err != nil {
		return Box[V]{}, err
	}
	return b, nil
}

// BoxFromCenter builds a box centred on center with the given extents.
func BoxFromCenter[V Vector[V]](center, size V) (Box[V], error) {
	return NewBox(center.Sub(size.Mul(0.5)), size)
}

// Validate reports ErrInvalidBounds when any extent is not a positive finite number.
func (b Box[V]) Validate() error {
	for i := 0; i < b.Min.Dim(); i++ {
		lo, hi := b.Min.Axis(i), b.Max.Axis(i)
		ext := hi - lo
		if math.IsNaN(ext) || math.IsInf(ext, 0) || math.IsInf(lo, 0) || ext <= 0 {
			return fmt.Errorf("%w: extent %g on axis %d", ErrInvalidBounds, ext, i)
		}
	}
	return nil
}

// Size returns the extents.
func (b Box[V]) Size() V {
	return b.Max.Sub(b.Min)
}

func (b Box[V]) Center() V {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Volume is the area in 2D and the volume in 3D.
func (b Box[V]) Volume() float64 {
	v := 1.0
	for i := 0; i < b.Min.Dim(); i++ {
		v *= b.Max.Axis(i) - b.Min.Axis(i)
	}
	return v
}

// Contains reports whether p lies inside b. Both faces are inclusive.
func (b Box[V]) Contains(p V) bool {
	for i := 0; i < p.Dim(); i++ {
		x := p.Axis(i)
		if x < b.Min.Axis(i) || x > b.Max.Axis(i) {
			return false
		}
	}
	return true
}

// Intersects reports whether the two boxes overlap, touching faces included.
func (b Box[V]) Intersects(o Box[V]) bool {
	for i := 0; i < b.Min.Dim(); i++ {
		if b.Min.Axis(i) > o.Max.Axis(i) || o.Min.Axis(i) > b.Max.Axis(i) {
			return false
		}
	}
	return true
}

// IntersectsSphere reports whether any point of b lies within r of center.
func (b Box[V]) IntersectsSphere(center V, r float64) bool {
	return b.Clamp(center).DistanceSquaredTo(center) <= r*r
}

// Clamp returns the point of b closest to p.
func (b Box[V]) Clamp(p V) V {
	return p.Clamp(b.Min, b.Max)
}

// Fanout is the number of children a box splits into: 4 in 2D, 8 in 3D.
func (b Box[V]) Fanout() int {
	return 1 << b.Min.Dim()
}

// Child returns the k-th sub-box after splitting b at its centre. Bit i of k
// selects the upper half on axis i. All children share the exact midpoint
// coordinates, so together they tile b with no gaps.
func (b Box[V]) Child(k int) Box[V] {
	lo, hi := b.Min, b.Max
	for i := 0; i < b.Min.Dim(); i++ {
		mid := (b.Min.Axis(i) + b.Max.Axis(i)) / 2
		if k&(1<<i) != 0 {
			lo = lo.WithAxis(i, mid)
		} else {
			hi = hi.WithAxis(i, mid)
		}
	}
	return Box[V]{Min: lo, Max: hi}
}

// ChildIndex returns the index of the child that owns p. On a shared face the
// lower child wins.
func (b Box[V]) ChildIndex(p V) int {
	k := 0
	for i := 0; i < p.Dim(); i++ {
		if p.Axis(i) > (b.Min.Axis(i)+b.Max.Axis(i))/2 {
			k |= 1 << i
		}
	}
	return k
}

func (b Box[V]) String() string {
	return fmt.Sprintf("[%v %v]", b.Min, b.Max)
}
