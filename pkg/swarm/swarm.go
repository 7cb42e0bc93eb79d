package swarm

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/flock"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/spatial"
	golog "github.com/tochemey/goakt/v3/log"
)

// Swarm owns a population and advances it tick by tick. It double-buffers
// the population and the tree, so a steady-state Tick does not allocate.
//
// A Swarm is not safe for concurrent use; in this repository the World actor
// is its only caller.
type Swarm[V geometry.Vector[V]] struct {
	world World[V]

	boids     []flock.Boid[V]
	spare     []flock.Boid[V]
	tree      *spatial.Tree[V]
	spareTree *spatial.Tree[V]
	food      []flock.Food[V]
	expired   []flock.Food[V]
	missing   []int

	rng     *rand.Rand
	noise   []V
	noiseFn func(i int) V

	ticks  uint64
	logger golog.Logger
}

// Option configures a Swarm.
type Option func(*options)

type options struct {
	seed   uint64
	logger golog.Logger
}

// WithSeed seeds the generator used for spawning and noise.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l golog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Report summarises one tick. Expired is reused by the next Tick.
type Report[V geometry.Vector[V]] struct {
	Tick     uint64
	Expired  []flock.Food[V]
	Missing  int
	Duration time.Duration
}

// New validates w and returns an empty swarm.
func New[V geometry.Vector[V]](w World[V], opts ...Option) (*Swarm[V], error) {
	if err := w.Bounds.Validate(); err != nil {
		return nil, fmt.Errorf("swarm bounds: %w", err)
	}
	if err := w.Params.Validate(); err != nil {
		return nil, err
	}
	o := options{seed: uint64(time.Now().UnixNano()), logger: golog.DiscardLogger}
	for _, opt := range opts {
		opt(&o)
	}

	tree, err := spatial.New(w.Bounds, w.Params.TreeCapacity)
	if err != nil {
		return nil, err
	}
	spareTree, err := spatial.New(w.Bounds, w.Params.TreeCapacity)
	if err != nil {
		return nil, err
	}
	s := &Swarm[V]{
		world:     w,
		tree:      tree,
		spareTree: spareTree,
		rng:       rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15)),
		logger:    o.logger,
	}
	s.noiseFn = s.randomUnit
	return s, nil
}

// Spawn samples count agents uniformly inside bounds with zero velocity.
// Candidates for which exclude returns true are dropped, not retried, so the
// result may be shorter than count.
func Spawn[V geometry.Vector[V]](r *rand.Rand, count int, bounds geometry.Box[V], exclude func(V) bool) []flock.Boid[V] {
	out := make([]flock.Boid[V], 0, count)
	size := bounds.Size()
	for i := 0; i < count; i++ {
		pos := bounds.Min
		for a := 0; a < pos.Dim(); a++ {
			pos = pos.WithAxis(a, bounds.Min.Axis(a)+r.Float64()*size.Axis(a))
		}
		if exclude != nil && exclude(pos) {
			continue
		}
		out = append(out, flock.Boid[V]{Pos: pos})
	}
	return out
}

// Spawn adds up to count agents and reindexes the population. It returns the
// number actually added.
func (s *Swarm[V]) Spawn(count int, exclude func(V) bool) int {
	added := Spawn(s.rng, count, s.world.Bounds, exclude)
	s.boids = append(s.boids, added...)
	s.reindex()
	return len(added)
}

// Add appends agents as given and reindexes the population. Positions are
// clamped into the boundary.
func (s *Swarm[V]) Add(boids ...flock.Boid[V]) {
	for _, b := range boids {
		b.Pos = s.world.Bounds.Clamp(b.Pos)
		s.boids = append(s.boids, b)
	}
	s.reindex()
}

func (s *Swarm[V]) reindex() {
	s.missing = rebuild(s.tree, s.boids, s.missing[:0])
}

// AddFood appends a zero-age attractor. Positions outside the boundary are
// ignored and reported with ok=false.
func (s *Swarm[V]) AddFood(pos V) (food flock.Food[V], ok bool) {
	if !s.world.Bounds.Contains(pos) {
		return flock.Food[V]{}, false
	}
	f := flock.NewFood(pos)
	s.food = append(s.food, f)
	return f, true
}

// SetNoise replaces the noise source. fn is called once per agent per tick,
// in index order, before the parallel phase starts.
func (s *Swarm[V]) SetNoise(fn func(i int) V) {
	if fn == nil {
		fn = s.randomUnit
	}
	s.noiseFn = fn
}

func (s *Swarm[V]) randomUnit(int) V {
	var v V
	for a := 0; a < v.Dim(); a++ {
		v = v.WithAxis(a, s.rng.Float64()*2-1)
	}
	return v
}

// SetParams swaps the tunables used from the next tick on.
func (s *Swarm[V]) SetParams(p flock.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.TreeCapacity != s.world.Params.TreeCapacity {
		tree, err := spatial.New(s.world.Bounds, p.TreeCapacity)
		if err != nil {
			return err
		}
		spareTree, _ := spatial.New(s.world.Bounds, p.TreeCapacity)
		s.tree, s.spareTree = tree, spareTree
		s.world.Params = p
		s.reindex()
		return nil
	}
	s.world.Params = p
	return nil
}

// Tick advances the population by one step.
func (s *Swarm[V]) Tick() Report[V] {
	start := time.Now()
	n := len(s.boids)

	// noise is drawn here, sequentially, so results do not depend on how
	// the update phase is scheduled
	s.noise = s.noise[:0]
	for i := 0; i < n; i++ {
		s.noise = append(s.noise, s.noiseFn(i))
	}

	if cap(s.spare) < n {
		s.spare = make([]flock.Boid[V], n)
	}
	s.spare = s.spare[:n]

	cur := State[V]{Boids: s.boids, Tree: s.tree, Food: s.food}
	updateAll(s.world, cur, s.spare, s.noise, workerCount(s.world.Params.Workers, n))

	s.boids, s.spare = s.spare, s.boids
	s.tree, s.spareTree = s.spareTree, s.tree
	s.missing = rebuild(s.tree, s.boids, s.missing[:0])
	if len(s.missing) > 0 {
		s.logger.Warnf("tick %d: %d agents outside %v were not indexed", s.ticks+1, len(s.missing), s.world.Bounds)
	}

	s.expired = s.expired[:0]
	s.food, s.expired = ageFood(s.food, s.world.Params.FoodExpiry, s.expired)
	s.ticks++

	return Report[V]{
		Tick:     s.ticks,
		Expired:  s.expired,
		Missing:  len(s.missing),
		Duration: time.Since(start),
	}
}

// Boids returns the current population. The slice is reused by the next Tick.
func (s *Swarm[V]) Boids() []flock.Boid[V] { return s.boids }

// Food returns the live attractors. The slice is reused by the next Tick.
func (s *Swarm[V]) Food() []flock.Food[V] { return s.food }

// Tree returns the index over the current population.
func (s *Swarm[V]) Tree() *spatial.Tree[V] { return s.tree }

func (s *Swarm[V]) World() World[V] { return s.world }

func (s *Swarm[V]) Params() flock.Params { return s.world.Params }

func (s *Swarm[V]) Ticks() uint64 { return s.ticks }

func (s *Swarm[V]) Len() int { return len(s.boids) }

// State returns the current state in the form Step takes.
func (s *Swarm[V]) State() State[V] {
	return State[V]{Boids: s.boids, Tree: s.tree, Food: s.food}
}
