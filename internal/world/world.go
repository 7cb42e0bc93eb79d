// Package world hosts the simulation inside a goakt actor. The actor owns the
// swarm; every other party talks to it with protobuf well-known messages and
// receives snapshots on a channel.
package world

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/flock"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/swarm"
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	golog "github.com/tochemey/goakt/v3/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Advance asks the world to run n ticks and publish one snapshot afterwards.
func Advance(n uint32) *wrapperspb.UInt32Value { return wrapperspb.UInt32(n) }

// Feed drops an attractor at pos.
func Feed[V geometry.Vector[V]](pos V) *structpb.ListValue {
	list := &structpb.ListValue{}
	for i := 0; i < pos.Dim(); i++ {
		list.Values = append(list.Values, structpb.NewNumberValue(pos.Axis(i)))
	}
	return list
}

// Tune replaces the flock parameters. Fields missing from the message keep
// their current value.
func Tune(p flock.Params) (*structpb.Struct, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// ShowCells turns the tree leaves in snapshots on or off.
func ShowCells(on bool) *wrapperspb.BoolValue { return wrapperspb.Bool(on) }

// SnapshotRequest is answered with an encoded snapshot.
func SnapshotRequest() *emptypb.Empty { return &emptypb.Empty{} }

// Actor is the authoritative simulation state.
type Actor[V geometry.Vector[V]] struct {
	swarm      *swarm.Swarm[V]
	population int
	snapshotCh chan<- *Snapshot[V]
	cells      bool
	expired    []uuid.UUID
	lastTick   time.Duration

	// --- Benchmark Stats ---
	ticksSinceLog int
	tickTime      time.Duration
	lastLogTime   time.Time
}

// New validates w and prepares an actor that spawns population agents when
// it starts. snapshotCh may be nil when nobody watches.
func New[V geometry.Vector[V]](w swarm.World[V], population int, snapshotCh chan<- *Snapshot[V], opts ...swarm.Option) (*Actor[V], error) {
	if population < 0 {
		return nil, fmt.Errorf("negative population %d", population)
	}
	s, err := swarm.New(w, opts...)
	if err != nil {
		return nil, err
	}
	return &Actor[V]{
		swarm:       s,
		population:  population,
		snapshotCh:  snapshotCh,
		lastLogTime: time.Now(),
	}, nil
}

func (a *Actor[V]) PreStart(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("World is spawning %d agents...", a.population)
	return nil
}

func (a *Actor[V]) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		n := a.spawn()
		ctx.Logger().Infof("World started with %d agents (%d dropped inside obstacles)", n, a.population-n)

	case *wrapperspb.UInt32Value:
		a.advance(int(msg.GetValue()), ctx.Logger())

	case *structpb.ListValue:
		if f, ok := a.feed(msg); ok {
			ctx.Logger().Debugf("food %s dropped at %v", f.ID, f.Pos)
		} else {
			ctx.Logger().Warnf("feed %v ignored: outside the world", msg.AsSlice())
		}

	case *structpb.Struct:
		if err := a.tune(msg); err != nil {
			ctx.Logger().Warnf("tune rejected: %v", err)
		}

	case *wrapperspb.BoolValue:
		a.cells = msg.GetValue()

	case *emptypb.Empty:
		st, err := EncodeSnapshot(a.snapshot())
		if err != nil {
			ctx.Logger().Errorf("encode snapshot: %v", err)
			st = &structpb.Struct{}
		}
		ctx.Response(st)

	default:
		ctx.Unhandled()
	}
}

func (a *Actor[V]) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("World is shutdown after %d ticks", a.swarm.Ticks())
	return nil
}

func (a *Actor[V]) spawn() int {
	return a.swarm.Spawn(a.population, a.swarm.World().InObstacle)
}

func (a *Actor[V]) advance(n int, logger golog.Logger) {
	if n <= 0 {
		return
	}
	for i := 0; i < n; i++ {
		r := a.swarm.Tick()
		for _, f := range r.Expired {
			a.expired = append(a.expired, f.ID)
		}
		a.lastTick = r.Duration
		a.tickTime += r.Duration
		a.ticksSinceLog++
	}
	a.logBenchmarks(logger)
	a.pushSnapshot()
}

func (a *Actor[V]) logBenchmarks(logger golog.Logger) {
	if time.Since(a.lastLogTime) < time.Second {
		return
	}
	avg := time.Duration(0)
	if a.ticksSinceLog > 0 {
		avg = a.tickTime / time.Duration(a.ticksSinceLog)
	}
	logger.Infof("📊 TICK RATE: %d/sec (avg %v) | Agents: %d | Food: %d",
		a.ticksSinceLog, avg, a.swarm.Len(), len(a.swarm.Food()))
	a.ticksSinceLog = 0
	a.tickTime = 0
	a.lastLogTime = time.Now()
}

func (a *Actor[V]) pushSnapshot() {
	if a.snapshotCh == nil {
		return
	}
	snap := a.snapshot()
	select {
	case a.snapshotCh <- snap:
	default:
		// observer busy, skip this frame; expired IDs wait for the next one
		a.expired = snap.Expired
	}
}

func (a *Actor[V]) feed(msg *structpb.ListValue) (flock.Food[V], bool) {
	var pos V
	if len(msg.GetValues()) != pos.Dim() {
		return flock.Food[V]{}, false
	}
	for i, v := range msg.GetValues() {
		pos = pos.WithAxis(i, v.GetNumberValue())
	}
	return a.swarm.AddFood(pos)
}

func (a *Actor[V]) tune(msg *structpb.Struct) error {
	b, err := json.Marshal(msg.AsMap())
	if err != nil {
		return err
	}
	p := a.swarm.Params()
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return a.swarm.SetParams(p)
}

// snapshot copies the current state and hands over the pending expired IDs.
func (a *Actor[V]) snapshot() *Snapshot[V] {
	boids := a.swarm.Boids()
	s := &Snapshot[V]{
		Tick:         a.swarm.Ticks(),
		Boids:        make([]BoidState[V], len(boids)),
		Food:         append([]flock.Food[V](nil), a.swarm.Food()...),
		Expired:      a.expired,
		TickDuration: a.lastTick,
	}
	a.expired = nil
	for i, b := range boids {
		s.Boids[i] = BoidState[V]{Pos: b.Pos, Vel: b.Vel, Heading: b.Heading()}
	}
	if a.cells {
		s.Cells = a.swarm.Tree().Leaves(nil)
	}
	return s
}
