package imageutil

import (
	"image"
	"math"
)

// Gray is an 8-bit luminance plane stored as float64 for metric math.
type Gray struct {
	Width  int
	Height int
	Pix    []float64
}

// NewGray builds a luminance plane from a decoded image using the BT.601
// weights, matching what the rest of the thresholds were tuned against.
func NewGray(img image.Image) *Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := &Gray{Width: w, Height: h, Pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, gr, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			g.Pix[y*w+x] = 0.299*float64(r>>8) + 0.587*float64(gr>>8) + 0.114*float64(bl>>8)
		}
	}
	return g
}

// At returns the luminance at (x, y).
func (g *Gray) At(x, y int) float64 {
	return g.Pix[y*g.Width+x]
}

// SubRegion returns a copy of the plane restricted to rect, clamped to the
// plane bounds. Returns nil when the clamped region is empty.
func (g *Gray) SubRegion(rect image.Rectangle) *Gray {
	rect = rect.Intersect(image.Rect(0, 0, g.Width, g.Height))
	if rect.Empty() {
		return nil
	}
	w, h := rect.Dx(), rect.Dy()
	sub := &Gray{Width: w, Height: h, Pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		copy(sub.Pix[y*w:(y+1)*w], g.Pix[(rect.Min.Y+y)*g.Width+rect.Min.X:(rect.Min.Y+y)*g.Width+rect.Max.X])
	}
	return sub
}

// Mean returns the mean luminance.
func (g *Gray) Mean() float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	var sum float64
	for _, v := range g.Pix {
		sum += v
	}
	return sum / float64(len(g.Pix))
}

// StdDev returns the standard deviation of the luminance.
func (g *Gray) StdDev() float64 {
	n := len(g.Pix)
	if n == 0 {
		return 0
	}
	mean := g.Mean()
	var sum float64
	for _, v := range g.Pix {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// FractionBelow returns the fraction of pixels darker than threshold.
func (g *Gray) FractionBelow(threshold float64) float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	count := 0
	for _, v := range g.Pix {
		if v < threshold {
			count++
		}
	}
	return float64(count) / float64(len(g.Pix))
}

// FractionAbove returns the fraction of pixels brighter than threshold.
func (g *Gray) FractionAbove(threshold float64) float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	count := 0
	for _, v := range g.Pix {
		if v > threshold {
			count++
		}
	}
	return float64(count) / float64(len(g.Pix))
}

// LaplacianVariance measures high-frequency content with the 4-neighbor
// Laplacian kernel. Lower variance means less detail, i.e. more blur.
func (g *Gray) LaplacianVariance() float64 {
	if g.Width < 3 || g.Height < 3 {
		return 0
	}
	n := (g.Width - 2) * (g.Height - 2)
	values := make([]float64, 0, n)
	var sum float64
	for y := 1; y < g.Height-1; y++ {
		for x := 1; x < g.Width-1; x++ {
			v := g.At(x, y-1) + g.At(x, y+1) + g.At(x-1, y) + g.At(x+1, y) - 4*g.At(x, y)
			values = append(values, v)
			sum += v
		}
	}
	mean := sum / float64(n)
	var varsum float64
	for _, v := range values {
		d := v - mean
		varsum += d * d
	}
	return varsum / float64(n)
}

// Blockiness averages the mean absolute luminance step across every
// 8-pixel-aligned internal boundary on both axes, skipping an 8px margin
// at each edge. Recompressed JPEGs show discontinuities at the 8x8 DCT
// block edges, so a high value is a cheap proxy for compression damage.
func (g *Gray) Blockiness() float64 {
	if g.Height < 16 || g.Width < 16 {
		return 0
	}

	var horizontal float64
	countH := 0
	for y := 8; y < g.Height-8; y += 8 {
		var diff float64
		for x := 0; x < g.Width; x++ {
			diff += math.Abs(g.At(x, y) - g.At(x, y-1))
		}
		horizontal += diff / float64(g.Width)
		countH++
	}

	var vertical float64
	countV := 0
	for x := 8; x < g.Width-8; x += 8 {
		var diff float64
		for y := 0; y < g.Height; y++ {
			diff += math.Abs(g.At(x, y) - g.At(x-1, y))
		}
		vertical += diff / float64(g.Height)
		countV++
	}

	if countH == 0 || countV == 0 {
		return 0
	}
	return (horizontal/float64(countH) + vertical/float64(countV)) / 2
}

// QuadrantMeans returns the mean luminance of the four quadrants in the
// order top-left, top-right, bottom-left, bottom-right.
func (g *Gray) QuadrantMeans() [4]float64 {
	midW, midH := g.Width/2, g.Height/2
	quads := [4]image.Rectangle{
		image.Rect(0, 0, midW, midH),
		image.Rect(midW, 0, g.Width, midH),
		image.Rect(0, midH, midW, g.Height),
		image.Rect(midW, midH, g.Width, g.Height),
	}
	var means [4]float64
	for i, q := range quads {
		if sub := g.SubRegion(q); sub != nil {
			means[i] = sub.Mean()
		}
	}
	return means
}
