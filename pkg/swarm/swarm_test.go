package swarm

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/flock"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/spatial"
)

type vec = geometry.Vector2D

func testWorld(t testing.TB) World[vec] {
	t.Helper()
	bounds, err := geometry.NewBox(vec{}, vec{X: 400, Y: 300})
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	return World[vec]{Bounds: bounds, Params: flock.DefaultParams()}
}

func newSwarm(t testing.TB, w World[vec], count int, seed uint64) *Swarm[vec] {
	t.Helper()
	s, err := New(w, WithSeed(seed))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.Spawn(count, nil); got != count {
		t.Fatalf("Spawn(%d) added %d", count, got)
	}
	return s
}

func TestNew_Rejects(t *testing.T) {
	w := testWorld(t)
	bad := w
	bad.Bounds = geometry.Box[vec]{Min: vec{X: 10, Y: 10}, Max: vec{X: 10, Y: 50}}
	if _, err := New(bad); !errors.Is(err, geometry.ErrInvalidBounds) {
		t.Errorf("New with zero width: err = %v; want ErrInvalidBounds", err)
	}

	bad = w
	bad.Params.MaxVelocity = -1
	if _, err := New(bad); !errors.Is(err, flock.ErrInvalidParams) {
		t.Errorf("New with negative speed: err = %v; want ErrInvalidParams", err)
	}
}

func TestSpawn_Exclusion(t *testing.T) {
	w := testWorld(t)
	r := rand.New(rand.NewPCG(1, 1))
	hole := geometry.Polygon{{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 200, Y: 300}, {X: 0, Y: 300}}

	boids := Spawn(r, 500, w.Bounds, hole.Contains)
	if len(boids) >= 500 || len(boids) == 0 {
		t.Fatalf("Spawn kept %d of 500 with half the area excluded", len(boids))
	}
	for _, b := range boids {
		if hole.Contains(b.Pos) {
			t.Errorf("agent spawned inside excluded region at %v", b.Pos)
		}
		if !w.Bounds.Contains(b.Pos) {
			t.Errorf("agent spawned outside bounds at %v", b.Pos)
		}
		if b.Vel != (vec{}) {
			t.Errorf("spawned with velocity %v; want zero", b.Vel)
		}
	}
}

func TestSwarm_Containment(t *testing.T) {
	w := testWorld(t)
	s := newSwarm(t, w, 300, 42)
	// pile some agents on the corners moving outward
	s.Add(
		flock.Boid[vec]{Pos: vec{X: 0, Y: 0}, Vel: vec{X: -5, Y: -5}},
		flock.Boid[vec]{Pos: vec{X: 400, Y: 300}, Vel: vec{X: 5, Y: 5}},
		flock.Boid[vec]{Pos: vec{X: 1000, Y: -20}, Vel: vec{X: 5, Y: -5}},
	)

	for tick := 0; tick < 200; tick++ {
		r := s.Tick()
		if r.Missing != 0 {
			t.Fatalf("tick %d: %d agents not indexed", r.Tick, r.Missing)
		}
		for i, b := range s.Boids() {
			if !w.Bounds.Contains(b.Pos) {
				t.Fatalf("tick %d: agent %d at %v outside %v", r.Tick, i, b.Pos, w.Bounds)
			}
		}
	}
	if s.Ticks() != 200 {
		t.Errorf("Ticks = %d; want 200", s.Ticks())
	}
}

func TestSwarm_TreeTracksPositions(t *testing.T) {
	s := newSwarm(t, testWorld(t), 100, 7)
	s.Tick()
	if s.Tree().Len() != s.Len() {
		t.Fatalf("tree holds %d entries; population %d", s.Tree().Len(), s.Len())
	}
	for i, b := range s.Boids() {
		refs := s.Tree().QueryRadius(b.Pos, 0, nil)
		if !slices.Contains(refs, i) {
			t.Errorf("agent %d not found at its position %v", i, b.Pos)
		}
	}
}

func TestSwarm_FoodExpiry(t *testing.T) {
	w := testWorld(t)
	w.Params.FoodExpiry = 5
	s := newSwarm(t, w, 0, 1)

	f, ok := s.AddFood(vec{X: 100, Y: 100})
	if !ok {
		t.Fatal("AddFood inside bounds rejected")
	}
	for i := 1; i <= w.Params.FoodExpiry; i++ {
		r := s.Tick()
		if len(s.Food()) != 1 || len(r.Expired) != 0 {
			t.Fatalf("after %d ticks: %d food, %d expired; want 1, 0", i, len(s.Food()), len(r.Expired))
		}
		if s.Food()[0].Age != i {
			t.Errorf("after %d ticks Age = %d", i, s.Food()[0].Age)
		}
	}
	r := s.Tick()
	if len(s.Food()) != 0 {
		t.Errorf("after threshold+1 ticks food still present: %+v", s.Food())
	}
	if len(r.Expired) != 1 || r.Expired[0].ID != f.ID {
		t.Errorf("Expired = %+v; want the food added", r.Expired)
	}
}

func TestSwarm_FoodExpiryDefaultThreshold(t *testing.T) {
	w := testWorld(t)
	s := newSwarm(t, w, 0, 1)
	s.AddFood(vec{X: 10, Y: 10})
	for i := 0; i < w.Params.FoodExpiry; i++ {
		s.Tick()
	}
	if len(s.Food()) != 1 {
		t.Fatalf("food gone after %d ticks; want present", w.Params.FoodExpiry)
	}
	s.Tick()
	if len(s.Food()) != 0 {
		t.Errorf("food present after %d ticks; want gone", w.Params.FoodExpiry+1)
	}
}

func TestSwarm_AddFoodOutside(t *testing.T) {
	s := newSwarm(t, testWorld(t), 0, 1)
	tests := []vec{{X: -1, Y: 10}, {X: 10, Y: 301}, {X: 401, Y: 0}}
	for _, p := range tests {
		if _, ok := s.AddFood(p); ok {
			t.Errorf("AddFood(%v) accepted; want rejected", p)
		}
	}
	if len(s.Food()) != 0 {
		t.Errorf("Food = %v; want empty", s.Food())
	}
	if _, ok := s.AddFood(vec{X: 400, Y: 300}); !ok {
		t.Error("AddFood on the max corner rejected; boundary is inclusive")
	}
}

func TestAgeFood_RemovesOnlyExpired(t *testing.T) {
	food := []flock.Food[vec]{
		{Pos: vec{X: 1}, Age: 10},
		{Pos: vec{X: 2}, Age: 2},
		{Pos: vec{X: 3}, Age: 9},
		{Pos: vec{X: 4}, Age: 0},
	}
	kept, expired := ageFood(food, 9, nil)
	if len(kept) != 2 || kept[0].Pos.X != 2 || kept[1].Pos.X != 4 {
		t.Errorf("kept = %+v; want the attractors at X=2 and X=4", kept)
	}
	if len(expired) != 2 {
		t.Errorf("expired = %+v; want 2 entries", expired)
	}
}

// With noise fixed, the worker count must not change a single bit.
func TestSwarm_DeterministicAcrossWorkers(t *testing.T) {
	fixed := func(i int) vec {
		return geometry.NewVectorPolar(1, float64(i)*0.61803)
	}
	run := func(workers int) []flock.Boid[vec] {
		w := testWorld(t)
		w.Params.Workers = workers
		s := newSwarm(t, w, 250, 99)
		s.SetNoise(fixed)
		s.AddFood(vec{X: 200, Y: 150})
		for i := 0; i < 50; i++ {
			s.Tick()
		}
		return slices.Clone(s.Boids())
	}

	want := run(1)
	for _, workers := range []int{2, 3, 8} {
		if got := run(workers); !slices.Equal(got, want) {
			t.Errorf("workers=%d diverged from the single worker run", workers)
		}
	}
}

func TestSwarm_SeededRunsMatch(t *testing.T) {
	a := newSwarm(t, testWorld(t), 80, 5)
	b := newSwarm(t, testWorld(t), 80, 5)
	for i := 0; i < 20; i++ {
		a.Tick()
		b.Tick()
	}
	if !slices.Equal(a.Boids(), b.Boids()) {
		t.Error("two swarms with the same seed diverged")
	}
}

func TestStep_IsPure(t *testing.T) {
	w := testWorld(t)
	r := rand.New(rand.NewPCG(3, 3))
	boids := Spawn(r, 60, w.Bounds, nil)
	tree, err := spatial.New(w.Bounds, 1)
	if err != nil {
		t.Fatalf("spatial.New: %v", err)
	}
	for i, b := range boids {
		tree.Insert(i, b.Pos)
	}
	food := []flock.Food[vec]{flock.NewFood(vec{X: 50, Y: 50})}
	in := State[vec]{Boids: boids, Tree: tree, Food: food}

	before := slices.Clone(boids)
	res, err := Step(w, in, nil)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}

	if !slices.Equal(boids, before) {
		t.Error("Step modified the input population")
	}
	if food[0].Age != 0 {
		t.Errorf("Step aged the input food to %d", food[0].Age)
	}
	if tree.Len() != 60 {
		t.Errorf("Step modified the input tree: Len = %d", tree.Len())
	}
	if res.State.Tree == tree {
		t.Error("Step reused the input tree")
	}
	if len(res.State.Boids) != 60 || res.State.Tree.Len() != 60 {
		t.Errorf("result has %d boids, tree %d; want 60, 60", len(res.State.Boids), res.State.Tree.Len())
	}
	if res.State.Food[0].Age != 1 {
		t.Errorf("result food Age = %d; want 1", res.State.Food[0].Age)
	}

	// Step and Swarm.Tick agree on the same input and noise
	s, err := New(w)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Add(before...)
	s.SetNoise(func(int) vec { return vec{} })
	s.Tick()
	if !slices.Equal(s.Boids(), res.State.Boids) {
		t.Error("Swarm.Tick and Step disagree")
	}
}

func TestSwarm_SetParams(t *testing.T) {
	s := newSwarm(t, testWorld(t), 50, 2)
	p := s.Params()
	p.TreeCapacity = 4
	if err := s.SetParams(p); err != nil {
		t.Fatalf("SetParams: %v", err)
	}
	if s.Tree().Capacity() != 4 || s.Tree().Len() != 50 {
		t.Errorf("tree capacity %d, len %d; want 4, 50", s.Tree().Capacity(), s.Tree().Len())
	}
	p.VelocityDecay = 2
	if err := s.SetParams(p); !errors.Is(err, flock.ErrInvalidParams) {
		t.Errorf("SetParams(decay=2) err = %v; want ErrInvalidParams", err)
	}
	if s.Params().VelocityDecay == 2 {
		t.Error("invalid params were applied")
	}
}

func Test3DSwarm(t *testing.T) {
	bounds, err := geometry.NewBox(geometry.Vector3D{}, geometry.Vector3D{X: 200, Y: 200, Z: 200})
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}
	s, err := New(World[geometry.Vector3D]{Bounds: bounds, Params: flock.DefaultParams()}, WithSeed(11))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Spawn(150, nil)
	for i := 0; i < 100; i++ {
		s.Tick()
	}
	for _, b := range s.Boids() {
		if !bounds.Contains(b.Pos) {
			t.Fatalf("agent at %v outside %v", b.Pos, bounds)
		}
	}
}

func BenchmarkSwarm_Tick(b *testing.B) {
	w := testWorld(b)
	w.Bounds.Max = vec{X: 1200, Y: 900}
	s := newSwarm(b, w, 2000, 1)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Tick()
	}
}
