package stages

import (
	"context"
	"fmt"
	"image"

	"github.com/example/photo-check/internal/config"
	"github.com/example/photo-check/internal/imageutil"
	"github.com/example/photo-check/internal/validation"
)

// QualityStage checks blur, exposure, contrast, and uneven lighting. The
// shadow check prefers the face region when an earlier run populated
// FaceBBox; in the standard stage order that field is still empty here,
// so it falls back to the whole frame.
type QualityStage struct {
	cfg config.Thresholds
}

// NewQualityStage builds the stage with the given thresholds.
func NewQualityStage(cfg config.Thresholds) *QualityStage {
	return &QualityStage{cfg: cfg}
}

// Name implements Stage.
func (s *QualityStage) Name() string { return NameQuality }

// Validate implements Stage. Reads Image and optionally FaceBBox.
func (s *QualityStage) Validate(_ context.Context, req *validation.Context) (*validation.Result, error) {
	result := validation.NewResult()
	gray := imageutil.NewGray(req.Image)

	blurScore := s.checkBlur(gray, result)
	brightness, contrast := s.checkExposureContrast(gray, result)
	shadowScore := s.checkShadows(gray, req, result)

	result.Metadata = validation.Metadata{
		"blur_score":       blurScore,
		"brightness_score": brightness,
		"contrast_score":   contrast,
		"shadow_score":     shadowScore,
	}
	return result, nil
}

func (s *QualityStage) checkBlur(gray *imageutil.Gray, result *validation.Result) float64 {
	variance := gray.LaplacianVariance()
	if variance < s.cfg.BlurThreshold {
		result.AddError(validation.CodeImageBlurry,
			fmt.Sprintf("Image is blurry (sharpness score: %.2f)", variance))
	}
	return variance
}

// checkExposureContrast runs the three independent histogram checks:
// underexposure, overexposure, and low contrast. They are not mutually
// exclusive.
func (s *QualityStage) checkExposureContrast(gray *imageutil.Gray, result *validation.Result) (float64, float64) {
	brightness := gray.Mean()
	contrast := gray.StdDev()

	if gray.FractionBelow(s.cfg.DarkPixelCutoff) > 0.5 || brightness < s.cfg.BrightnessLow {
		result.AddError(validation.CodeInsufficientLighting,
			fmt.Sprintf("Image is underexposed (brightness: %.1f)", brightness))
	}
	if gray.FractionAbove(s.cfg.BrightPixelCutoff) > 0.5 || brightness > s.cfg.BrightnessHigh {
		result.AddError(validation.CodeOverexposed,
			fmt.Sprintf("Image is overexposed (brightness: %.1f)", brightness))
	}
	if contrast < s.cfg.MinContrast {
		result.AddError(validation.CodeLowContrast,
			fmt.Sprintf("Image has very low contrast (contrast: %.1f)", contrast))
	}
	return brightness, contrast
}

// checkShadows splits the target region into quadrants and flags a large
// spread between the brightest and darkest quadrant mean.
func (s *QualityStage) checkShadows(gray *imageutil.Gray, req *validation.Context, result *validation.Result) float64 {
	target := gray
	if bbox := req.FaceBBox; bbox != nil {
		if region := gray.SubRegion(image.Rect(bbox.X, bbox.Y, bbox.X+bbox.W, bbox.Y+bbox.H)); region != nil {
			target = region
		}
	}

	means := target.QuadrantMeans()
	minMean, maxMean := means[0], means[0]
	for _, m := range means[1:] {
		if m < minMean {
			minMean = m
		}
		if m > maxMean {
			maxMean = m
		}
	}

	diff := maxMean - minMean
	if diff > s.cfg.ShadowDifference {
		result.AddError(validation.CodeStrongShadows,
			fmt.Sprintf("Strong shadows or uneven lighting detected (difference: %.1f)", diff))
	}
	return diff
}
