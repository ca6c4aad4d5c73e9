package paint

import (
	"image"
	"image/color"

	"github.com/osmike/strokes/internal/domain"

	"golang.org/x/image/draw"
)

// Brush paints a round dab for every image.Point it receives. Dabs are
// sequential, so they land in input order. Cancelling the stroke restores
// the canvas as it was when the stroke started.
type Brush struct {
	domain.BaseStrategy
	Radius int
	Color  color.Color

	canvas *Canvas
	saved  *image.RGBA

	// previewTarget is painted on by level-of-detail clones; the brush itself never touches it.
	previewTarget *Canvas
}

func NewBrush(id string, canvas *Canvas, radius int, c color.Color) *Brush {
	p := domain.DefaultPolicy()
	p.NeedsExplicitCancel = true
	return &Brush{
		BaseStrategy: domain.BaseStrategy{StrategyID: id, StrategyName: "Brush", Flags: p},
		Radius:       radius,
		Color:        c,
		canvas:       canvas,
	}
}

// WithPreview makes level-of-detail clones paint on preview instead of a
// private downscaled copy of the canvas. Call it before starting the stroke.
func (b *Brush) WithPreview(preview *Canvas) *Brush {
	b.previewTarget = preview
	return b
}

// Canvas returns the canvas the brush paints on.
func (b *Brush) Canvas() *Canvas {
	return b.canvas
}

func (b *Brush) InitJob() *domain.JobData {
	return &domain.JobData{Class: domain.Sequential, Fn: func(domain.JobControl) error {
		b.saved = b.canvas.Snapshot()
		return nil
	}}
}

func (b *Brush) CancelJob() *domain.JobData {
	return &domain.JobData{Class: domain.Sequential, Fn: func(domain.JobControl) error {
		if b.saved != nil {
			b.canvas.Restore(b.saved)
		}
		return nil
	}}
}

func (b *Brush) DabJob(data any) *domain.JobData {
	p, ok := data.(image.Point)
	if !ok {
		return nil
	}
	return &domain.JobData{Class: domain.Sequential, Payload: p, Fn: b.dab}
}

func (b *Brush) dab(ctrl domain.JobControl) error {
	lod := ctrl.LevelOfDetail()
	p := ctrl.Payload().(image.Point)
	mask := &circle{p: image.Pt(p.X>>lod, p.Y>>lod), r: max(1, b.Radius>>lod)}

	b.canvas.Update(func(img *image.RGBA) {
		r := mask.Bounds().Intersect(img.Bounds())
		draw.DrawMask(img, r, image.NewUniform(b.Color), image.Point{}, mask, r.Min, draw.Over)
	})
	return nil
}

// LodClone returns a brush painting on the preview canvas, or on a fresh
// downscaled copy of the canvas when none was set. b is left untouched.
func (b *Brush) LodClone(lod int) domain.Strategy {
	preview := b.previewTarget
	if preview == nil {
		preview = b.canvas.Scaled(lod)
	}
	return &Brush{
		BaseStrategy: domain.BaseStrategy{
			StrategyID:   b.ID() + "-lod",
			StrategyName: "Brush preview",
			Flags:        domain.Policy{NeedsExplicitCancel: true},
		},
		Radius: b.Radius,
		Color:  b.Color,
		canvas: preview,
	}
}

// circle is an alpha mask of a filled disc.
type circle struct {
	p image.Point
	r int
}

func (c *circle) ColorModel() color.Model { return color.AlphaModel }

func (c *circle) Bounds() image.Rectangle {
	return image.Rect(c.p.X-c.r, c.p.Y-c.r, c.p.X+c.r+1, c.p.Y+c.r+1)
}

func (c *circle) At(x, y int) color.Color {
	dx, dy := x-c.p.X, y-c.p.Y
	if dx*dx+dy*dy <= c.r*c.r {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}
