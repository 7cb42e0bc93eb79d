package geometry

// Sphere is a disc in 2D and a ball in 3D.
type Sphere[V Vector[V]] struct {
	Center V       `json:"center"`
	Radius float64 `json:"radius"`
}

func (s Sphere[V]) Contains(p V) bool {
	return p.DistanceSquaredTo(s.Center) <= s.Radius*s.Radius
}

// ClosestPoint returns the point on the surface nearest to p. From the exact
// centre every surface point is equally close; the one along the first axis
// is returned.
func (s Sphere[V]) ClosestPoint(p V) V {
	dir := p.Sub(s.Center).Normalize()
	if dir.LenSqr() == 0 {
		var unit V
		dir = unit.WithAxis(0, 1)
	}
	return s.Center.Add(dir.Mul(s.Radius))
}
