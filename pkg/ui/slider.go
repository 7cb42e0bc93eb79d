package ui

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Slider edits a float between Min and Max.
type Slider struct {
	Label    string
	Value    float64
	Min, Max float64
	X, Y     float64
	W, H     float64
	// Format renders the value next to the label, "%.2f" when empty
	Format string

	dragging bool
	changed  bool
}

func NewSlider(x, y, w float64, label string, min, max, value float64) *Slider {
	s := &Slider{Label: label, Min: min, Max: max, X: x, Y: y, W: w, H: 12}
	s.Set(value)
	s.changed = false
	return s
}

// Set clamps v into range and stores it.
func (s *Slider) Set(v float64) {
	v = max(s.Min, min(s.Max, v))
	if v != s.Value {
		s.Value = v
		s.changed = true
	}
}

// Changed reports whether the value moved since the last call.
func (s *Slider) Changed() bool {
	c := s.changed
	s.changed = false
	return c
}

func (s *Slider) Height() float64 { return s.H + 26 }

// the label sits above the bar
func (s *Slider) setY(y float64) { s.Y = y + 18 }

func (s *Slider) hit(mx, my float64) bool {
	return mx >= s.X && mx <= s.X+s.W && my >= s.Y && my <= s.Y+s.H
}

// setFromCursor maps a horizontal cursor position onto the range.
func (s *Slider) setFromCursor(mx float64) {
	if s.W <= 0 {
		return
	}
	s.Set(s.Min + (mx-s.X)/s.W*(s.Max-s.Min))
}

func (s *Slider) Update() {
	cx, cy := ebiten.CursorPosition()
	mx, my := float64(cx), float64(cy)
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		s.dragging = false
		return
	}
	// once grabbed, keep following the cursor even when it leaves the bar
	if s.dragging || s.hit(mx, my) {
		s.dragging = true
		s.setFromCursor(mx)
	}
}

func (s *Slider) Draw(screen *ebiten.Image) {
	format := s.Format
	if format == "" {
		format = "%.2f"
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s: "+format, s.Label, s.Value), int(s.X), int(s.Y)-16)

	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W), float32(s.H), color.RGBA{R: 80, G: 80, B: 80, A: 255}, true)
	ratio := 0.0
	if s.Max > s.Min {
		ratio = (s.Value - s.Min) / (s.Max - s.Min)
	}
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W*ratio), float32(s.H), color.RGBA{R: 200, G: 200, B: 200, A: 255}, true)
}
