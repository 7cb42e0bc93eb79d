package viewer

import (
	"math"
	"testing"
)

func TestBoidTriangle(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
		tip   vec
	}{
		{"east", 0, vec{X: 106, Y: 50}},
		{"south", math.Pi / 2, vec{X: 100, Y: 56}},
		{"west", math.Pi, vec{X: 94, Y: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tri := boidTriangle(vec{X: 100, Y: 50}, tt.angle)
			if !tri[0].Eq(tt.tip) {
				t.Errorf("tip = %v; want %v", tri[0], tt.tip)
			}
			// the rear corners mirror each other around the heading
			center := vec{X: 100, Y: 50}
			if d1, d2 := tri[1].DistanceTo(center), tri[2].DistanceTo(center); math.Abs(d1-5) > 1e-9 || math.Abs(d2-5) > 1e-9 {
				t.Errorf("rear corners at %v and %v from the agent; want 5", d1, d2)
			}
		})
	}
}

func TestFoodColor(t *testing.T) {
	fresh := foodColor(0, 100)
	stale := foodColor(100, 100)
	older := foodColor(500, 100)
	if fresh.G <= stale.G {
		t.Errorf("fresh green %d not brighter than stale %d", fresh.G, stale.G)
	}
	if stale != older {
		t.Errorf("colour keeps changing past expiry: %v vs %v", stale, older)
	}
	if got := foodColor(10, 0); got != fresh {
		t.Errorf("zero expiry colour %v; want fresh %v", got, fresh)
	}
}
