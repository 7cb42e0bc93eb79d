package geometry

import "math"

// Polygon is a closed 2D outline; the last point connects back to the first.
type Polygon []Vector2D

// Contains uses the even-odd rule, so self-intersecting outlines behave like
// the usual scan-line fill.
func (poly Polygon) Contains(p Vector2D) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// ClosestPoint returns the point on the outline nearest to p.
func (poly Polygon) ClosestPoint(p Vector2D) Vector2D {
	if len(poly) == 0 {
		return p
	}
	best := poly[0]
	bestDist := math.Inf(1)
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		c := ClosestOnSegment(p, a, b)
		if d := c.DistanceSquaredTo(p); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Bounds returns the smallest box enclosing the outline.
func (poly Polygon) Bounds() Box[Vector2D] {
	if len(poly) == 0 {
		return Box[Vector2D]{}
	}
	b := Box[Vector2D]{Min: poly[0], Max: poly[0]}
	for _, p := range poly[1:] {
		b.Min = Vector2D{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y)}
		b.Max = Vector2D{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y)}
	}
	return b
}

// ClosestOnSegment returns the point of segment ab nearest to p.
func ClosestOnSegment[V Vector[V]](p, a, b V) V {
	_, c := ProjectOnSegment(p, a, b)
	return c
}

// ProjectOnSegment returns the parameter t in [0, 1] of the point of ab
// nearest to p, and that point.
func ProjectOnSegment[V Vector[V]](p, a, b V) (float64, V) {
	ab := b.Sub(a)
	l := ab.LenSqr()
	if l < Epsilon {
		return 0, a
	}
	t := clamp(p.Sub(a).Dot(ab)/l, 0, 1)
	return t, a.Add(ab.Mul(t))
}
