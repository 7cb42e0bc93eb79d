package flock

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams wraps every Params validation failure.
var ErrInvalidParams = errors.New("invalid flock parameters")

// Params are the tunables of the update rule and of the tick loop. A Params
// value is copied into each tick and never mutated while agents update.
type Params struct {
	// Neighbourhood
	PerceptionRadius float64 `json:"perceptionRadius"`
	CloseRange       float64 `json:"closeRange"`

	// Steering weights, applied to normalized directions
	AlignmentWeight  float64 `json:"alignmentWeight"`
	CohesionWeight   float64 `json:"cohesionWeight"`
	SeparationWeight float64 `json:"separationWeight"`
	PathWeight       float64 `json:"pathWeight"`
	NoiseWeight      float64 `json:"noiseWeight"`
	FoodWeight       float64 `json:"foodWeight"`
	ObstacleWeight   float64 `json:"obstacleWeight"`

	FoodRange     float64 `json:"foodRange"`
	ObstacleRange float64 `json:"obstacleRange"`
	PathLookahead float64 `json:"pathLookahead"`

	// Integration
	VelocityDecay   float64 `json:"velocityDecay"`
	MaxAcceleration float64 `json:"maxAcceleration"`
	MaxVelocity     float64 `json:"maxVelocity"`

	// Boundary handling
	SoftMargin float64 `json:"softMargin"`
	HardMargin float64 `json:"hardMargin"`
	EdgeBoost  float64 `json:"edgeBoost"`

	// FoodExpiry is the age, in ticks, an attractor may reach; it is removed
	// on the tick its age goes above this.
	FoodExpiry int `json:"foodExpiry"`
	// TreeCapacity is the spatial tree's per-leaf capacity.
	TreeCapacity int `json:"treeCapacity"`
	// Workers is the size of the update pool; 0 means GOMAXPROCS.
	Workers int `json:"workers"`
}

// DefaultParams returns the classic tuning: a 30 unit perception radius,
// 15 unit personal space and a 5 unit per tick speed limit.
func DefaultParams() Params {
	return Params{
		PerceptionRadius: 30,
		CloseRange:       15,
		AlignmentWeight:  0.05,
		CohesionWeight:   0.05,
		SeparationWeight: 0.4,
		PathWeight:       0.1,
		NoiseWeight:      0.1,
		FoodWeight:       0.3,
		ObstacleWeight:   0.6,
		FoodRange:        120,
		ObstacleRange:    20,
		PathLookahead:    10,
		VelocityDecay:    0.985,
		MaxAcceleration:  0.2,
		MaxVelocity:      5,
		SoftMargin:       50,
		HardMargin:       5,
		EdgeBoost:        2,
		FoodExpiry:       3000,
		TreeCapacity:     1,
		Workers:          0,
	}
}

// Validate checks ranges that the update rule relies on.
func (p Params) Validate() error {
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"perceptionRadius", p.PerceptionRadius},
		{"closeRange", p.CloseRange},
		{"alignmentWeight", p.AlignmentWeight},
		{"cohesionWeight", p.CohesionWeight},
		{"separationWeight", p.SeparationWeight},
		{"pathWeight", p.PathWeight},
		{"noiseWeight", p.NoiseWeight},
		{"foodWeight", p.FoodWeight},
		{"obstacleWeight", p.ObstacleWeight},
		{"foodRange", p.FoodRange},
		{"obstacleRange", p.ObstacleRange},
		{"softMargin", p.SoftMargin},
		{"hardMargin", p.HardMargin},
		{"edgeBoost", p.EdgeBoost},
	}
	for _, f := range nonNegative {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be a finite non-negative number, got %g", ErrInvalidParams, f.name, f.v)
		}
	}
	if p.MaxVelocity <= 0 || p.MaxAcceleration <= 0 {
		return fmt.Errorf("%w: maxVelocity and maxAcceleration must be positive", ErrInvalidParams)
	}
	if p.VelocityDecay < 0 || p.VelocityDecay > 1 {
		return fmt.Errorf("%w: velocityDecay %g outside [0, 1]", ErrInvalidParams, p.VelocityDecay)
	}
	if p.HardMargin > p.SoftMargin {
		return fmt.Errorf("%w: hardMargin %g larger than softMargin %g", ErrInvalidParams, p.HardMargin, p.SoftMargin)
	}
	if p.FoodExpiry < 0 || p.TreeCapacity < 1 || p.Workers < 0 {
		return fmt.Errorf("%w: foodExpiry and workers must be >= 0, treeCapacity >= 1", ErrInvalidParams)
	}
	return nil
}
