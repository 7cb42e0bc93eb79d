// Package viewer shows a 2D world in an ebiten window and lets the user steer
// it: click to drop food, tune the flock from the side panel, pause and step.
package viewer

import (
	"context"
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/lao-tseu-is-alive/go-swarm-flock/internal/world"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/flock"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/swarm"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/ui"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
	"google.golang.org/protobuf/proto"
)

type vec = geometry.Vector2D

const panelWidth = 240

// paramSlider binds a panel slider to one flock parameter.
type paramSlider struct {
	slider *ui.Slider
	field  *float64
}

type Game struct {
	ctx        context.Context
	worldPID   *actor.PID
	snapshotCh chan *world.Snapshot[vec]
	lastState  *world.Snapshot[vec]
	world      swarm.World[vec]
	params     flock.Params
	logger     golog.Logger

	// UI Controls
	panel       *ui.Panel
	sliders     []paramSlider
	showCells   *ui.Checkbox
	showRadius  *ui.Checkbox
	pauseButton *ui.Button
	paused      bool
	stepOnce    bool

	// Timing instrumentation
	updateAvg float64 // Rolling average in ms
	drawAvg   float64
}

// New spawns a world actor for w in system and returns the game driving it.
func New(ctx context.Context, system actor.ActorSystem, w swarm.World[vec], population int, opts ...swarm.Option) (*Game, error) {
	snapshotCh := make(chan *world.Snapshot[vec], 4)
	a, err := world.New(w, population, snapshotCh, opts...)
	if err != nil {
		return nil, err
	}
	pid, err := system.Spawn(ctx, "world", a)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn world: %w", err)
	}

	g := &Game{
		ctx:        ctx,
		worldPID:   pid,
		snapshotCh: snapshotCh,
		lastState:  &world.Snapshot[vec]{},
		world:      w,
		params:     w.Params,
		logger:     system.Logger(),
	}
	g.buildPanel()
	return g, nil
}

func (g *Game) buildPanel() {
	size := g.world.Bounds.Size()
	g.panel = ui.NewPanel(size.X+10, 10, panelWidth-20, size.Y-20, "Flock")
	p := &g.params

	add := func(label string, min, max float64, field *float64) {
		g.sliders = append(g.sliders, paramSlider{g.panel.AddSlider(label, min, max, *field), field})
	}
	g.panel.AddSection("Neighbourhood")
	add("Perception", 5, 120, &p.PerceptionRadius)
	add("Close range", 1, 60, &p.CloseRange)

	g.panel.AddSection("Weights")
	add("Alignment", 0, 1, &p.AlignmentWeight)
	add("Cohesion", 0, 1, &p.CohesionWeight)
	add("Separation", 0, 2, &p.SeparationWeight)
	add("Path", 0, 1, &p.PathWeight)
	add("Noise", 0, 1, &p.NoiseWeight)
	add("Food", 0, 2, &p.FoodWeight)

	g.panel.AddSection("Motion")
	add("Max velocity", 0.5, 15, &p.MaxVelocity)
	add("Max accel", 0.01, 2, &p.MaxAcceleration)

	g.panel.AddSection("View")
	g.showCells = g.panel.AddCheckbox("Tree cells", false)
	g.showRadius = g.panel.AddCheckbox("Perception", false)
	g.pauseButton = g.panel.AddButton("Pause", g.togglePause)
	g.panel.AddButton("Step", func() { g.stepOnce = true })
}

func (g *Game) togglePause() {
	g.paused = !g.paused
	g.pauseButton.Label = "Pause"
	if g.paused {
		g.pauseButton.Label = "Resume"
	}
}

func (g *Game) tell(msg proto.Message) {
	if err := actor.Tell(g.ctx, g.worldPID, msg); err != nil {
		g.logger.Errorf("tell world %T: %v", msg, err)
	}
}

// syncParams copies changed slider values into params and reports whether
// anything moved.
func (g *Game) syncParams() bool {
	changed := false
	for _, ps := range g.sliders {
		if ps.slider.Changed() {
			*ps.field = ps.slider.Value
			changed = true
		}
	}
	return changed
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		g.updateAvg = g.updateAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	// 1. Update UI Panel
	g.panel.Update()
	if g.syncParams() {
		if msg, err := world.Tune(g.params); err == nil {
			g.tell(msg)
		}
	}
	if g.showCells.Changed() {
		g.tell(world.ShowCells(g.showCells.Value))
	}

	// 2. Keyboard and mouse on the world
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.togglePause()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.stepOnce = true
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		mx, my := ebiten.CursorPosition()
		pos := vec{X: float64(mx), Y: float64(my)}
		if !g.panel.Contains(pos.X, pos.Y) && g.world.Bounds.Contains(pos) {
			g.tell(world.Feed(pos))
		}
	}

	// 3. Retrieve Latest State (Non-blocking)
	select {
	case snap := <-g.snapshotCh:
		g.lastState = snap
	default:
	}

	// 4. Trigger Simulation Step
	if !g.paused || g.stepOnce {
		g.tell(world.Advance(1))
		g.stepOnce = false
	}
	return nil
}

func (g *Game) Layout(w, h int) (int, int) {
	size := g.world.Bounds.Size()
	return int(size.X) + panelWidth, int(size.Y)
}
