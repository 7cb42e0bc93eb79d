// Package ui holds the few immediate-mode widgets the viewer needs: sliders,
// checkboxes and buttons stacked in a scrollable panel.
package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	titleHeight   = 30
	sectionHeight = 25
	margin        = 10
)

// Widget is implemented by Slider, Checkbox and Button.
type Widget interface {
	Update()
	Draw(screen *ebiten.Image)
	Height() float64
	setY(y float64)
}

type item struct {
	header  string
	widget  Widget
	y       float64
	visible bool
}

// Panel stacks section headers and widgets top to bottom and scrolls them
// with the mouse wheel.
type Panel struct {
	X, Y, W, H   float64
	Title        string
	ScrollOffset float64

	BGColor      color.RGBA
	BorderColor  color.RGBA
	SectionColor color.RGBA

	items []item
}

func NewPanel(x, y, w, h float64, title string) *Panel {
	return &Panel{
		X: x, Y: y, W: w, H: h,
		Title:        title,
		BGColor:      color.RGBA{R: 40, G: 40, B: 45, A: 230},
		BorderColor:  color.RGBA{R: 100, G: 100, B: 110, A: 255},
		SectionColor: color.RGBA{R: 60, G: 60, B: 70, A: 255},
	}
}

func (p *Panel) AddSection(title string) {
	p.items = append(p.items, item{header: title})
	p.layout()
}

func (p *Panel) add(w Widget) {
	p.items = append(p.items, item{widget: w})
	p.layout()
}

func (p *Panel) AddSlider(label string, min, max, value float64) *Slider {
	s := NewSlider(p.X+margin, 0, p.W-2*margin, label, min, max, value)
	p.add(s)
	return s
}

func (p *Panel) AddCheckbox(label string, value bool) *Checkbox {
	c := NewCheckbox(p.X+margin, 0, label, value)
	p.add(c)
	return c
}

func (p *Panel) AddButton(label string, onClick func()) *Button {
	b := NewButton(p.X+margin, 0, p.W-2*margin, 20, label, onClick)
	p.add(b)
	return b
}

// Contains reports whether (x, y) is over the panel.
func (p *Panel) Contains(x, y float64) bool {
	return x >= p.X && x <= p.X+p.W && y >= p.Y && y <= p.Y+p.H
}

func (p *Panel) contentHeight() float64 {
	h := float64(titleHeight)
	for _, it := range p.items {
		if it.widget == nil {
			h += sectionHeight
		} else {
			h += it.widget.Height()
		}
	}
	return h
}

// layout positions every item for the current scroll offset and marks the
// ones fully inside the panel.
func (p *Panel) layout() {
	y := p.Y + titleHeight - p.ScrollOffset
	for i := range p.items {
		it := &p.items[i]
		h := float64(sectionHeight)
		if it.widget != nil {
			h = it.widget.Height()
			it.widget.setY(y)
		}
		it.y = y
		it.visible = y >= p.Y+titleHeight-1 && y+h <= p.Y+p.H
		y += h
	}
}

// Scroll moves the content by dy pixels, clamped to what is needed.
func (p *Panel) Scroll(dy float64) {
	maxScroll := max(0, p.contentHeight()-p.H+margin)
	p.ScrollOffset = max(0, min(maxScroll, p.ScrollOffset+dy))
	p.layout()
}

func (p *Panel) Update() {
	mx, my := ebiten.CursorPosition()
	if _, dy := ebiten.Wheel(); dy != 0 && p.Contains(float64(mx), float64(my)) {
		p.Scroll(-dy * 20)
	}
	for _, it := range p.items {
		if it.widget != nil && it.visible {
			it.widget.Update()
		}
	}
}

func (p *Panel) Draw(screen *ebiten.Image) {
	vector.FillRect(screen, float32(p.X), float32(p.Y), float32(p.W), float32(p.H), p.BGColor, true)
	vector.StrokeRect(screen, float32(p.X), float32(p.Y), float32(p.W), float32(p.H), 2, p.BorderColor, true)
	ebitenutil.DebugPrintAt(screen, p.Title, int(p.X+margin), int(p.Y+8))

	for _, it := range p.items {
		if !it.visible {
			continue
		}
		if it.widget != nil {
			it.widget.Draw(screen)
			continue
		}
		vector.FillRect(screen, float32(p.X+5), float32(it.y), float32(p.W-10), 20, p.SectionColor, true)
		ebitenutil.DebugPrintAt(screen, it.header, int(p.X+margin), int(it.y+3))
	}
}
