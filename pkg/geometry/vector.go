package geometry

// Vector is the set of operations the spatial tree and the flocking rule need
// from a point type. Vector2D and Vector3D both satisfy it, which lets the
// same tree work as a quadtree or an octree.
type Vector[V any] interface {
	Add(other V) V
	Sub(other V) V
	Mul(scalar float64) V
	Hadamard(other V) V
	Clamp(lo, hi V) V
	Dot(other V) float64
	LenSqr() float64
	Len() float64
	Normalize() V
	DistanceSquaredTo(other V) float64

	// Dim is the number of axes. It must not depend on the receiver's value.
	Dim() int
	Axis(i int) float64
	WithAxis(i int, x float64) V
}

// Uniform returns a vector with every axis set to x.
func Uniform[V Vector[V]](x float64) V {
	var v V
	for i := 0; i < v.Dim(); i++ {
		v = v.WithAxis(i, x)
	}
	return v
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
