package imageutil

import "math"

// EdgeMap is a binary edge mask over a luminance plane.
type EdgeMap struct {
	Width  int
	Height int
	On     []bool
}

// At reports whether (x, y) is an edge pixel.
func (e *EdgeMap) At(x, y int) bool {
	return e.On[y*e.Width+x]
}

// Density returns the fraction of edge pixels inside the window
// [x0,x1) x [y0,y1), clamped to the map bounds.
func (e *EdgeMap) Density(x0, y0, x1, y1 int) float64 {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > e.Width {
		x1 = e.Width
	}
	if y1 > e.Height {
		y1 = e.Height
	}
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	count := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if e.At(x, y) {
				count++
			}
		}
	}
	return float64(count) / float64((x1-x0)*(y1-y0))
}

// Canny runs the classic edge detector: gaussian smoothing, Sobel
// gradients, non-maximum suppression, then double-threshold hysteresis.
func Canny(g *Gray, low, high float64) *EdgeMap {
	w, h := g.Width, g.Height
	edges := &EdgeMap{Width: w, Height: h, On: make([]bool, w*h)}
	if w < 5 || h < 5 {
		return edges
	}

	smoothed := gaussian5(g)

	mag := make([]float64, w*h)
	dir := make([]uint8, w*h) // quantized to 4 directions
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -smoothed.At(x-1, y-1) + smoothed.At(x+1, y-1) +
				-2*smoothed.At(x-1, y) + 2*smoothed.At(x+1, y) +
				-smoothed.At(x-1, y+1) + smoothed.At(x+1, y+1)
			gy := -smoothed.At(x-1, y-1) - 2*smoothed.At(x, y-1) - smoothed.At(x+1, y-1) +
				smoothed.At(x-1, y+1) + 2*smoothed.At(x, y+1) + smoothed.At(x+1, y+1)
			mag[y*w+x] = math.Hypot(gx, gy)
			dir[y*w+x] = quantizeAngle(gx, gy)
		}
	}

	// Non-maximum suppression followed by the strong/weak split.
	const (
		weak   = 1
		strong = 2
	)
	grade := make([]uint8, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			m := mag[y*w+x]
			if m < low {
				continue
			}
			n1, n2 := neighborMagnitudes(mag, w, x, y, dir[y*w+x])
			if m < n1 || m < n2 {
				continue
			}
			if m >= high {
				grade[y*w+x] = strong
			} else {
				grade[y*w+x] = weak
			}
		}
	}

	// Hysteresis: keep weak pixels only when connected to a strong one.
	stack := make([][2]int, 0, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if grade[y*w+x] == strong && !edges.On[y*w+x] {
				edges.On[y*w+x] = true
				stack = append(stack, [2]int{x, y})
				for len(stack) > 0 {
					p := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					for dy := -1; dy <= 1; dy++ {
						for dx := -1; dx <= 1; dx++ {
							nx, ny := p[0]+dx, p[1]+dy
							if nx < 0 || ny < 0 || nx >= w || ny >= h {
								continue
							}
							idx := ny*w + nx
							if grade[idx] != 0 && !edges.On[idx] {
								edges.On[idx] = true
								stack = append(stack, [2]int{nx, ny})
							}
						}
					}
				}
			}
		}
	}
	return edges
}

var gaussKernel = [5]float64{1, 4, 6, 4, 1} // sigma ~1.0, separable, sums to 16

func gaussian5(g *Gray) *Gray {
	w, h := g.Width, g.Height
	tmp := make([]float64, w*h)
	out := &Gray{Width: w, Height: h, Pix: make([]float64, w*h)}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -2; k <= 2; k++ {
				xx := clampInt(x+k, 0, w-1)
				sum += gaussKernel[k+2] * g.At(xx, y)
			}
			tmp[y*w+x] = sum / 16
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -2; k <= 2; k++ {
				yy := clampInt(y+k, 0, h-1)
				sum += gaussKernel[k+2] * tmp[yy*w+x]
			}
			out.Pix[y*w+x] = sum / 16
		}
	}
	return out
}

func quantizeAngle(gx, gy float64) uint8 {
	angle := math.Atan2(gy, gx) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}
	switch {
	case angle < 22.5 || angle >= 157.5:
		return 0 // horizontal gradient
	case angle < 67.5:
		return 1 // 45 degrees
	case angle < 112.5:
		return 2 // vertical
	default:
		return 3 // 135 degrees
	}
}

func neighborMagnitudes(mag []float64, w, x, y int, direction uint8) (float64, float64) {
	switch direction {
	case 0:
		return mag[y*w+x-1], mag[y*w+x+1]
	case 1:
		return mag[(y-1)*w+x+1], mag[(y+1)*w+x-1]
	case 2:
		return mag[(y-1)*w+x], mag[(y+1)*w+x]
	default:
		return mag[(y-1)*w+x-1], mag[(y+1)*w+x+1]
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
