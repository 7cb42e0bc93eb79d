package viewer

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/lao-tseu-is-alive/go-swarm-flock/internal/world"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/flock"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
)

var (
	whiteImage = ebiten.NewImage(3, 3)

	background    = color.RGBA{R: 10, G: 10, B: 30, A: 255}
	boidColor     = color.RGBA{R: 100, G: 200, B: 255, A: 255}
	cellColor     = color.RGBA{R: 60, G: 90, B: 60, A: 255}
	pathColor     = color.RGBA{R: 200, G: 200, B: 80, A: 160}
	obstacleColor = color.RGBA{R: 220, G: 80, B: 80, A: 255}
	radiusColor   = color.RGBA{R: 80, G: 80, B: 160, A: 80}
)

func init() {
	whiteImage.Fill(color.White)
}

// boidTriangle returns the tip and the two rear corners of the arrow drawn
// for an agent heading at angle.
func boidTriangle(pos vec, angle float64) [3]vec {
	return [3]vec{
		pos.Add(geometry.NewVectorPolar(6, angle)),
		pos.Add(geometry.NewVectorPolar(5, angle+2.5)),
		pos.Add(geometry.NewVectorPolar(5, angle-2.5)),
	}
}

// foodColor fades from green to grey as an attractor ages.
func foodColor(age, expiry int) color.RGBA {
	fresh := 1.0
	if expiry > 0 {
		fresh = 1 - math.Min(1, float64(age)/float64(expiry))
	}
	return color.RGBA{
		R: uint8(90 - 30*fresh),
		G: uint8(90 + 165*fresh),
		B: uint8(90 - 30*fresh),
		A: 255,
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.drawAvg = g.drawAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	screen.Fill(background)
	snap := g.lastState

	for _, c := range snap.Cells {
		size := c.Size()
		vector.StrokeRect(screen, float32(c.Min.X), float32(c.Min.Y), float32(size.X), float32(size.Y), 1, cellColor, false)
	}
	g.drawPath(screen)
	g.drawObstacles(screen)
	for _, f := range snap.Food {
		vector.FillCircle(screen, float32(f.Pos.X), float32(f.Pos.Y), 4, foodColor(f.Age, g.params.FoodExpiry), true)
	}
	if g.showRadius.Value {
		for _, b := range snap.Boids {
			vector.StrokeCircle(screen, float32(b.Pos.X), float32(b.Pos.Y), float32(g.params.PerceptionRadius), 1, radiusColor, true)
		}
	}
	drawBoids(screen, snap.Boids)

	// 2. Draw UI Panel
	g.panel.Draw(screen)

	status := "running"
	if g.paused {
		status = "paused"
	}
	msg := fmt.Sprintf("Tick: %d (%s)\nAgents: %d  Food: %d\nTick: %.2fms\nFPS: %.1f  TPS: %.1f\nUpdate: %.2fms  Draw: %.2fms",
		snap.Tick, status, len(snap.Boids), len(snap.Food),
		float64(snap.TickDuration.Microseconds())/1000,
		ebiten.ActualFPS(), ebiten.ActualTPS(),
		g.updateAvg, g.drawAvg)
	ebitenutil.DebugPrintAt(screen, msg, 10, 10)
}

func (g *Game) drawPath(screen *ebiten.Image) {
	pl, ok := g.world.Path.(*flock.Polyline[vec])
	if !ok {
		return
	}
	pts := pl.Points()
	n := len(pts) - 1
	if pl.Closed() {
		n = len(pts)
	}
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%len(pts)]
		vector.StrokeLine(screen, float32(a.X), float32(a.Y), float32(b.X), float32(b.Y), 1, pathColor, true)
	}
}

func (g *Game) drawObstacles(screen *ebiten.Image) {
	for _, o := range g.world.Obstacles {
		switch shape := o.(type) {
		case geometry.Polygon:
			for i, a := range shape {
				b := shape[(i+1)%len(shape)]
				vector.StrokeLine(screen, float32(a.X), float32(a.Y), float32(b.X), float32(b.Y), 2, obstacleColor, true)
			}
		case geometry.Sphere[vec]:
			vector.StrokeCircle(screen, float32(shape.Center.X), float32(shape.Center.Y), float32(shape.Radius), 2, obstacleColor, true)
		}
	}
}

// maxBatch keeps vertex indices within uint16.
const maxBatch = 65535 / 3

// drawBoids draws agents as arrows, batched into as few DrawTriangles calls
// as the index width allows.
func drawBoids(screen *ebiten.Image, boids []world.BoidState[vec]) {
	r := float32(boidColor.R) / 255
	gr := float32(boidColor.G) / 255
	b := float32(boidColor.B) / 255

	vertices := make([]ebiten.Vertex, 0, 3*min(len(boids), maxBatch))
	indices := make([]uint16, 0, 3*min(len(boids), maxBatch))
	for lo := 0; lo < len(boids); lo += maxBatch {
		vertices, indices = vertices[:0], indices[:0]
		for _, boid := range boids[lo:min(lo+maxBatch, len(boids))] {
			base := uint16(len(vertices))
			for _, p := range boidTriangle(boid.Pos, boid.Heading) {
				vertices = append(vertices, ebiten.Vertex{
					DstX: float32(p.X), DstY: float32(p.Y),
					SrcX: 1, SrcY: 1,
					ColorR: r, ColorG: gr, ColorB: b, ColorA: 1,
				})
			}
			indices = append(indices, base, base+1, base+2)
		}
		screen.DrawTriangles(vertices, indices, whiteImage, &ebiten.DrawTrianglesOptions{})
	}
}
