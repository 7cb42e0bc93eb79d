package flock

import (
	"math"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/spatial"
)

// Env is everything an agent reads during one tick. Tree must index Boids by
// position as of the previous tick. Nothing in an Env is written while
// agents update, so one Env is shared by all workers.
type Env[V geometry.Vector[V]] struct {
	Tree      *spatial.Tree[V]
	Boids     []Boid[V]
	Food      []Food[V]
	Path      Path[V] // optional
	Obstacles []Region[V]
	Bounds    geometry.Box[V]
	Params    Params
}

// Updater computes next states against an Env. It keeps a query buffer, so
// use one Updater per goroutine.
type Updater[V geometry.Vector[V]] struct {
	env       *Env[V]
	neighbors []int
}

func NewUpdater[V geometry.Vector[V]](env *Env[V]) *Updater[V] {
	return &Updater[V]{env: env, neighbors: make([]int, 0, 32)}
}

// Next is a convenience wrapper around a throwaway Updater.
func Next[V geometry.Vector[V]](env *Env[V], i int, noise V) Boid[V] {
	return NewUpdater(env).Next(i, noise)
}

// Next returns the state of agent i after one tick. noise is the random
// steering direction for this agent and tick; it is normalized here, so any
// non-zero vector works and a zero vector disables the term.
func (u *Updater[V]) Next(i int, noise V) Boid[V] {
	env := u.env
	p := env.Params
	self := env.Boids[i]
	pos := self.Pos

	// Neighbourhood, self included when indexed.
	u.neighbors = env.Tree.QueryRadius(pos, p.PerceptionRadius, u.neighbors[:0])

	var sumVel, sumPos, sumClose V
	closeCount := 0
	closeSq := p.CloseRange * p.CloseRange
	for _, ref := range u.neighbors {
		other := env.Boids[ref]
		sumVel = sumVel.Add(other.Vel)
		sumPos = sumPos.Add(other.Pos)
		if pos.DistanceSquaredTo(other.Pos) < closeSq {
			sumClose = sumClose.Add(other.Pos)
			closeCount++
		}
	}

	var acc V
	if n := len(u.neighbors); n > 0 {
		inv := 1 / float64(n)
		acc = acc.Add(sumVel.Mul(inv).Sub(self.Vel).Normalize().Mul(p.AlignmentWeight))
		acc = acc.Add(sumPos.Mul(inv).Sub(pos).Normalize().Mul(p.CohesionWeight))
	}
	if closeCount > 0 {
		closeAvg := sumClose.Mul(1 / float64(closeCount))
		acc = acc.Sub(closeAvg.Sub(pos).Normalize().Mul(p.SeparationWeight))
	}
	if env.Path != nil {
		target := env.Path.PositionAt(env.Path.ClosestOffset(pos) + p.PathLookahead)
		acc = acc.Add(target.Sub(pos).Normalize().Mul(p.PathWeight))
	}
	acc = acc.Add(noise.Normalize().Mul(p.NoiseWeight))
	acc = acc.Add(u.foodPull(pos))
	acc = acc.Add(u.obstaclePush(pos))

	lo, hi := env.Bounds.Min, env.Bounds.Max
	dim := pos.Dim()

	// Soft margin: point acceleration inward, amplified.
	for a := 0; a < dim; a++ {
		x := pos.Axis(a)
		if x < lo.Axis(a)+p.SoftMargin {
			acc = acc.WithAxis(a, math.Abs(acc.Axis(a))*p.EdgeBoost)
		}
		if x > hi.Axis(a)-p.SoftMargin {
			acc = acc.WithAxis(a, -math.Abs(acc.Axis(a))*p.EdgeBoost)
		}
	}

	acc = acc.Normalize().Mul(p.MaxAcceleration)

	// Velocity clamp is per axis, not on magnitude: a diagonal mover may reach
	// MaxVelocity*sqrt(dim).
	limit := geometry.Uniform[V](p.MaxVelocity)
	vel := self.Vel.Mul(p.VelocityDecay).Add(acc).Clamp(limit.Mul(-1), limit)

	// Hard margin: velocity strictly inward.
	for a := 0; a < dim; a++ {
		x := pos.Axis(a)
		if x < lo.Axis(a)+p.HardMargin {
			vel = vel.WithAxis(a, math.Abs(vel.Axis(a)))
		}
		if x > hi.Axis(a)-p.HardMargin {
			vel = vel.WithAxis(a, -math.Abs(vel.Axis(a)))
		}
	}

	next := pos.Add(vel).Add(acc.Hadamard(acc).Mul(0.5))
	return Boid[V]{
		Pos: env.Bounds.Clamp(next),
		Vel: vel,
		Acc: acc,
	}
}

// foodPull steers toward the nearest attractor within FoodRange.
func (u *Updater[V]) foodPull(pos V) V {
	var zero V
	p := u.env.Params
	if p.FoodWeight == 0 || len(u.env.Food) == 0 {
		return zero
	}
	bestSq := p.FoodRange * p.FoodRange
	found := false
	var target V
	for _, f := range u.env.Food {
		if d := f.Pos.DistanceSquaredTo(pos); d <= bestSq {
			bestSq, target, found = d, f.Pos, true
		}
	}
	if !found {
		return zero
	}
	return target.Sub(pos).Normalize().Mul(p.FoodWeight)
}

// obstaclePush steers away from obstacle outlines closer than ObstacleRange.
// An agent already inside heads for the nearest way out.
func (u *Updater[V]) obstaclePush(pos V) V {
	var push V
	p := u.env.Params
	if p.ObstacleWeight == 0 {
		return push
	}
	rangeSq := p.ObstacleRange * p.ObstacleRange
	for _, o := range u.env.Obstacles {
		edge := o.ClosestPoint(pos)
		dir := edge.Sub(pos).Normalize()
		switch {
		case o.Contains(pos):
			push = push.Add(dir.Mul(p.ObstacleWeight))
		case edge.DistanceSquaredTo(pos) <= rangeSq:
			push = push.Sub(dir.Mul(p.ObstacleWeight))
		}
	}
	return push
}
