package stages

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/example/photo-check/internal/config"
	"github.com/example/photo-check/internal/imageutil"
	"github.com/example/photo-check/internal/validation"
	"github.com/example/photo-check/internal/vision"
)

// BackgroundStage runs semantic segmentation and checks the scene:
// exactly one person, a uniform background, and no significant
// extraneous objects. Segmentation is best-effort; when the segmenter
// is unavailable the stage passes and records that it was skipped.
type BackgroundStage struct {
	cfg       config.Thresholds
	segmenter vision.Segmenter
}

func NewBackgroundStage(cfg config.Thresholds, segmenter vision.Segmenter) *BackgroundStage {
	return &BackgroundStage{cfg: cfg, segmenter: segmenter}
}

func (s *BackgroundStage) Name() string { return NameBackground }

func (s *BackgroundStage) Validate(ctx context.Context, req *validation.Context) (*validation.Result, error) {
	result := validation.NewResult()

	mask, err := s.segmenter.Segment(ctx, req.Image)
	if err != nil || mask == nil {
		result.Metadata["segmentation_available"] = false
		return result, nil
	}
	result.Metadata["segmentation_available"] = true

	people := countPeople(mask, s.cfg.MinPersonSegmentArea)
	result.Metadata["person_count"] = people
	if people > 1 {
		result.AddError(validation.CodeExtraneousPeople,
			fmt.Sprintf("Detected %d people in the image", people))
	}

	uniformity, measured := backgroundUniformity(req.Image, mask)
	result.Metadata["background_uniformity"] = uniformity
	if measured && uniformity > s.cfg.BackgroundUniformity {
		result.AddError(validation.CodeBackgroundNotUniform, "")
	}

	extraneous := extraneousRatio(mask)
	result.Metadata["extraneous_ratio"] = extraneous
	if extraneous > s.cfg.ExtraneousObjectMax {
		result.AddError(validation.CodeExtraneousObjects, "")
	}

	return result, nil
}

// countPeople counts connected components of person-class pixels whose
// area exceeds minArea. Small specks are segmentation noise.
func countPeople(mask *vision.Mask, minArea int) int {
	w, h := mask.Width, mask.Height
	visited := make([]bool, w*h)
	queue := make([]int, 0, 256)
	count := 0

	for start := 0; start < w*h; start++ {
		if visited[start] || mask.Classes[start] != vision.ClassPerson {
			continue
		}

		area := 0
		queue = append(queue[:0], start)
		visited[start] = true
		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			area++

			x, y := idx%w, idx/w
			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				ni := ny*w + nx
				if !visited[ni] && mask.Classes[ni] == vision.ClassPerson {
					visited[ni] = true
					queue = append(queue, ni)
				}
			}
		}

		if area > minArea {
			count++
		}
	}
	return count
}

// backgroundUniformity measures color spread over every non-person
// pixel as the mean per-channel standard deviation in Lab space.
// Objects count toward the spread; a cluttered scene must not read as
// uniform just because the clutter got its own class. The second return
// is false when fewer than 100 such pixels exist and the measurement is
// not meaningful.
func backgroundUniformity(img image.Image, mask *vision.Mask) (float64, bool) {
	bounds := img.Bounds()
	scaleX := float64(mask.Width) / float64(bounds.Dx())
	scaleY := float64(mask.Height) / float64(bounds.Dy())

	var sum, sumSq [3]float64
	var n int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		my := int(float64(y-bounds.Min.Y) * scaleY)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			mx := int(float64(x-bounds.Min.X) * scaleX)
			if mask.At(mx, my) == vision.ClassPerson {
				continue
			}
			r, g, b, _ := img.At(x, y).RGBA()
			l, la, lb := imageutil.RGBToLab(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			for i, v := range [3]float64{l, la, lb} {
				sum[i] += v
				sumSq[i] += v * v
			}
			n++
		}
	}
	if n < 100 {
		return 0, false
	}

	var total float64
	for i := 0; i < 3; i++ {
		mean := sum[i] / float64(n)
		variance := sumSq[i]/float64(n) - mean*mean
		if variance < 0 {
			variance = 0
		}
		total += math.Sqrt(variance)
	}
	return total / 3, true
}

// extraneousRatio is the fraction of mask pixels that belong to neither
// the background nor the person class.
func extraneousRatio(mask *vision.Mask) float64 {
	if len(mask.Classes) == 0 {
		return 0
	}
	other := 0
	for _, c := range mask.Classes {
		if c != vision.ClassBackground && c != vision.ClassPerson {
			other++
		}
	}
	return float64(other) / float64(len(mask.Classes))
}
