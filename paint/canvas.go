// Package paint provides demo strategies that paint on an in-memory canvas.
package paint

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
)

// Canvas is an RGBA image shared by the jobs of several strokes.
type Canvas struct {
	mu  sync.RWMutex
	img *image.RGBA
}

// NewCanvas returns a w×h canvas filled with bg.
func NewCanvas(w, h int, bg color.Color) *Canvas {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return &Canvas{img: img}
}

func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

func (c *Canvas) RGBAAt(x, y int) color.RGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.img.RGBAAt(x, y)
}

// Snapshot returns a copy of the pixels.
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dst := image.NewRGBA(c.img.Bounds())
	copy(dst.Pix, c.img.Pix)
	return dst
}

// Restore overwrites the pixels with a snapshot taken from this canvas.
func (c *Canvas) Restore(src *image.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(c.img.Pix, src.Pix)
}

// Update runs fn with exclusive access to the pixels.
func (c *Canvas) Update(fn func(img *image.RGBA)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.img)
}

// Scaled returns a new canvas downscaled by 2^lod.
func (c *Canvas) Scaled(lod int) *Canvas {
	b := c.img.Bounds()
	w, h := max(1, b.Dx()>>lod), max(1, b.Dy()>>lod)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	c.mu.RLock()
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), c.img, b, draw.Src, nil)
	c.mu.RUnlock()
	return &Canvas{img: dst}
}
