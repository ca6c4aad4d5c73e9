package paint

import (
	"image"
	"image/color"

	"github.com/osmike/strokes/internal/domain"
)

// Filter applies a per-pixel operation to the whole canvas. Its init job
// splits the canvas into tiles and injects one concurrent job per tile; the
// finish barrier completes once every tile is done.
type Filter struct {
	domain.BaseStrategy
	Tile int
	Op   func(color.RGBA) color.RGBA

	canvas *Canvas
	saved  *image.RGBA
}

func NewFilter(id string, canvas *Canvas, tile int, op func(color.RGBA) color.RGBA) *Filter {
	p := domain.DefaultPolicy()
	p.NeedsExplicitCancel = true
	// tiles are short; let redraws through more often than for brushes
	p.BalancingRatioOverride = 10
	return &Filter{
		BaseStrategy: domain.BaseStrategy{StrategyID: id, StrategyName: "Filter", Flags: p},
		Tile:         max(1, tile),
		Op:           op,
		canvas:       canvas,
	}
}

func (f *Filter) InitJob() *domain.JobData {
	return &domain.JobData{Class: domain.Sequential, Fn: func(ctrl domain.JobControl) error {
		f.saved = f.canvas.Snapshot()

		b := f.canvas.Bounds()
		var tiles []*domain.JobData
		for y := b.Min.Y; y < b.Max.Y; y += f.Tile {
			for x := b.Min.X; x < b.Max.X; x += f.Tile {
				r := image.Rect(x, y, x+f.Tile, y+f.Tile).Intersect(b)
				tiles = append(tiles, &domain.JobData{Class: domain.Concurrent, Payload: r, Fn: f.apply})
			}
		}
		return ctrl.AddMutatedJobs(tiles...)
	}}
}

func (f *Filter) apply(ctrl domain.JobControl) error {
	if err := ctrl.Context().Err(); err != nil {
		return err
	}
	r := ctrl.Payload().(image.Rectangle)
	f.canvas.Update(func(img *image.RGBA) {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetRGBA(x, y, f.Op(img.RGBAAt(x, y)))
			}
		}
	})
	return nil
}

func (f *Filter) FinishJob() *domain.JobData {
	return &domain.JobData{Class: domain.Barrier}
}

func (f *Filter) CancelJob() *domain.JobData {
	return &domain.JobData{Class: domain.Sequential, Fn: func(domain.JobControl) error {
		if f.saved != nil {
			f.canvas.Restore(f.saved)
		}
		return nil
	}}
}

// Invert returns the negative of c, keeping alpha.
func Invert(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.A - c.R, G: c.A - c.G, B: c.A - c.B, A: c.A}
}
