// Package flock implements the per-agent steering and integration rule.
package flock

import (
	"math"

	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
)

// Boid is the kinematic state of one agent. Boids are plain values owned by
// the population slice; the spatial tree only refers to them by index.
type Boid[V geometry.Vector[V]] struct {
	Pos V `json:"pos"`
	Vel V `json:"vel"`
	Acc V `json:"acc"`
}

// Heading is the angle of the velocity in the XY plane, in radians.
func (b Boid[V]) Heading() float64 {
	return math.Atan2(b.Vel.Axis(1), b.Vel.Axis(0))
}

// Food is a transient attractor.
type Food[V geometry.Vector[V]] struct {
	ID  uuid.UUID `json:"id"`
	Pos V         `json:"pos"`
	Age int       `json:"age"`
}

// NewFood returns a zero-age attractor at pos with a fresh ID.
func NewFood[V geometry.Vector[V]](pos V) Food[V] {
	return Food[V]{ID: uuid.New(), Pos: pos}
}

// Region is an obstacle shape agents steer around. geometry.Polygon and
// geometry.Sphere implement it.
type Region[V any] interface {
	Contains(p V) bool
	ClosestPoint(p V) V
}
