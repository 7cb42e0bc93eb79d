package flock

import (
	"errors"
	"math"
	"sort"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
)

// ErrEmptyPath is returned when a path is built without sample points.
var ErrEmptyPath = errors.New("path needs at least one point")

// Path is a curve agents loosely follow. Offsets are arc lengths from the
// first sample.
type Path[V any] interface {
	ClosestOffset(p V) float64
	PositionAt(offset float64) V
}

// Polyline is a Path through baked sample points joined by straight segments.
// On an open polyline offsets clamp to the ends; a closed one wraps around.
type Polyline[V geometry.Vector[V]] struct {
	points []V
	// cum[i] is the arc length at points[i]; one extra entry closes the loop.
	cum    []float64
	closed bool
}

// NewPolyline copies points into a new Polyline.
func NewPolyline[V geometry.Vector[V]](points []V, closed bool) (*Polyline[V], error) {
	if len(points) == 0 {
		return nil, ErrEmptyPath
	}
	pl := &Polyline[V]{points: append([]V(nil), points...), closed: closed}
	pl.cum = make([]float64, 1, len(points)+1)
	for i := 1; i < len(points); i++ {
		pl.cum = append(pl.cum, pl.cum[i-1]+points[i].Sub(points[i-1]).Len())
	}
	if closed && len(points) > 1 {
		last := pl.cum[len(pl.cum)-1]
		pl.cum = append(pl.cum, last+points[0].Sub(points[len(points)-1]).Len())
	}
	return pl, nil
}

// Length is the total arc length, including the closing segment of a loop.
func (pl *Polyline[V]) Length() float64 {
	return pl.cum[len(pl.cum)-1]
}

// Points returns the sample points. The slice must not be modified.
func (pl *Polyline[V]) Points() []V { return pl.points }

func (pl *Polyline[V]) Closed() bool { return pl.closed }

func (pl *Polyline[V]) segments() int {
	return len(pl.cum) - 1
}

func (pl *Polyline[V]) segment(i int) (V, V) {
	return pl.points[i], pl.points[(i+1)%len(pl.points)]
}

func (pl *Polyline[V]) ClosestOffset(p V) float64 {
	if pl.segments() == 0 {
		return 0
	}
	best, bestDist := 0.0, math.Inf(1)
	for i := 0; i < pl.segments(); i++ {
		a, b := pl.segment(i)
		t, c := geometry.ProjectOnSegment(p, a, b)
		if d := c.DistanceSquaredTo(p); d < bestDist {
			bestDist = d
			best = pl.cum[i] + t*(pl.cum[i+1]-pl.cum[i])
		}
	}
	return best
}

func (pl *Polyline[V]) PositionAt(offset float64) V {
	total := pl.Length()
	if pl.segments() == 0 || total == 0 {
		return pl.points[0]
	}
	if pl.closed {
		offset = math.Mod(offset, total)
		if offset < 0 {
			offset += total
		}
	} else {
		offset = math.Max(0, math.Min(offset, total))
	}

	// first segment whose end is at or beyond offset
	i := sort.SearchFloat64s(pl.cum[1:], offset)
	if i >= pl.segments() {
		i = pl.segments() - 1
	}
	a, b := pl.segment(i)
	span := pl.cum[i+1] - pl.cum[i]
	if span == 0 {
		return a
	}
	return a.Add(b.Sub(a).Mul((offset - pl.cum[i]) / span))
}
