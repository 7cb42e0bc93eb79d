// Package swarm drives whole-population ticks: a parallel update phase over
// a frozen spatial tree, a sequential tree rebuild, then food ageing.
package swarm

import (
	"runtime"
	"slices"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/flock"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/spatial"
	"golang.org/x/sync/errgroup"
)

// World is the static part of a simulation: it does not change between ticks
// unless the owner swaps it.
type World[V geometry.Vector[V]] struct {
	Bounds    geometry.Box[V]
	Path      flock.Path[V]
	Obstacles []flock.Region[V]
	Params    flock.Params
}

// InObstacle reports whether p lies inside any obstacle. It has the shape
// Spawn expects for its exclude argument.
func (w World[V]) InObstacle(p V) bool {
	for _, o := range w.Obstacles {
		if o.Contains(p) {
			return true
		}
	}
	return false
}

// State is the part that every tick replaces.
type State[V geometry.Vector[V]] struct {
	Boids []flock.Boid[V]
	// Tree indexes Boids by position.
	Tree *spatial.Tree[V]
	Food []flock.Food[V]
}

// Result is what Step produces.
type Result[V geometry.Vector[V]] struct {
	State State[V]
	// Expired holds the attractors removed this tick.
	Expired []flock.Food[V]
	// Missing holds the indices that could not be inserted into the new tree.
	Missing []int
}

// Step runs one tick without touching its inputs. noise[i] is agent i's
// random steering direction; a nil slice disables noise.
func Step[V geometry.Vector[V]](w World[V], s State[V], noise []V) (Result[V], error) {
	tree, err := spatial.New(w.Bounds, w.Params.TreeCapacity)
	if err != nil {
		return Result[V]{}, err
	}
	next := State[V]{
		Boids: make([]flock.Boid[V], len(s.Boids)),
		Tree:  tree,
		Food:  slices.Clone(s.Food),
	}
	res := Result[V]{State: next}
	updateAll(w, s, next.Boids, noise, workerCount(w.Params.Workers, len(s.Boids)))
	res.Missing = rebuild(next.Tree, next.Boids, nil)
	res.State.Food, res.Expired = ageFood(next.Food, w.Params.FoodExpiry, nil)
	return res, nil
}

func workerCount(requested, n int) int {
	w := requested
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	return max(1, min(w, n))
}

// updateAll fills dst[i] with agent i's next state. Every worker owns a
// contiguous index range of dst and reads only from s.
func updateAll[V geometry.Vector[V]](w World[V], s State[V], dst []flock.Boid[V], noise []V, workers int) {
	env := &flock.Env[V]{
		Tree:      s.Tree,
		Boids:     s.Boids,
		Food:      s.Food,
		Path:      w.Path,
		Obstacles: w.Obstacles,
		Bounds:    w.Bounds,
		Params:    w.Params,
	}
	n := len(s.Boids)
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			u := flock.NewUpdater(env)
			var zero V
			for i := lo; i < hi; i++ {
				nv := zero
				if noise != nil {
					nv = noise[i]
				}
				dst[i] = u.Next(i, nv)
			}
			return nil
		})
	}
	// the update rule has no failure mode
	_ = g.Wait()
}

// rebuild resets tree and inserts every boid, returning the indices that
// fell outside the boundary appended to missing.
func rebuild[V geometry.Vector[V]](tree *spatial.Tree[V], boids []flock.Boid[V], missing []int) []int {
	tree.Reset(tree.Bounds())
	for i, b := range boids {
		if !tree.Insert(i, b.Pos) {
			missing = append(missing, i)
		}
	}
	return missing
}

// ageFood increments every attractor's age and drops those past expiry,
// walking from the back so removals do not shift unvisited entries.
func ageFood[V geometry.Vector[V]](food []flock.Food[V], expiry int, expired []flock.Food[V]) ([]flock.Food[V], []flock.Food[V]) {
	for i := len(food) - 1; i >= 0; i-- {
		food[i].Age++
		if food[i].Age > expiry {
			expired = append(expired, food[i])
			food = slices.Delete(food, i, i+1)
		}
	}
	return food, expired
}
