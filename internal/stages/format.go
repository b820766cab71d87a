package stages

import (
	"context"
	"fmt"

	"github.com/example/photo-check/internal/config"
	"github.com/example/photo-check/internal/imageutil"
	"github.com/example/photo-check/internal/validation"
)

// FormatStage checks encoded format, aspect ratio, resolution, and JPEG
// compression damage. All checks run and collect their errors; the
// pipeline, not this stage, decides that a failure here is a hard stop.
type FormatStage struct {
	cfg config.Thresholds
}

// NewFormatStage builds the stage with the given thresholds.
func NewFormatStage(cfg config.Thresholds) *FormatStage {
	return &FormatStage{cfg: cfg}
}

// Name implements Stage.
func (s *FormatStage) Name() string { return NameFormat }

// Validate implements Stage. Reads RawBytes and Image from the context.
func (s *FormatStage) Validate(_ context.Context, req *validation.Context) (*validation.Result, error) {
	result := validation.NewResult()
	width, height := req.Bounds()

	format := imageutil.SniffFormat(req.RawBytes)
	switch format {
	case imageutil.FormatJPEG:
		s.checkBlockiness(req, result)
	case imageutil.FormatPNG:
	default:
		name := format
		if name == "" {
			name = "unknown"
		}
		result.AddError(validation.CodeUnsupportedFormat,
			fmt.Sprintf("Format %s not supported. Use JPEG or PNG.", name))
	}

	s.checkAspectRatio(width, height, result)
	s.checkResolution(width, height, result)

	result.Metadata = validation.Metadata{
		"width":         width,
		"height":        height,
		"aspect_ratio":  aspectRatio(width, height),
		"min_dimension": min(width, height),
		"max_dimension": max(width, height),
	}
	return result, nil
}

func (s *FormatStage) checkAspectRatio(width, height int, result *validation.Result) {
	ratio := aspectRatio(width, height)
	lo := s.cfg.TargetAspectRatio - s.cfg.AspectRatioTolerance
	hi := s.cfg.TargetAspectRatio + s.cfg.AspectRatioTolerance
	// Ratios exactly on a bound count as inside the range, even when
	// float rounding puts them a half ulp outside it.
	const eps = 1e-9
	if ratio < lo-eps || ratio > hi+eps {
		result.AddError(validation.CodeWrongAspectRatio,
			fmt.Sprintf("Aspect ratio %.2f is outside acceptable range (%.2f - %.2f)", ratio, lo, hi))
	}
}

func (s *FormatStage) checkResolution(width, height int, result *validation.Result) {
	minDim := min(width, height)
	if minDim < s.cfg.MinResolution {
		result.AddError(validation.CodeResolutionTooLow,
			fmt.Sprintf("Minimum dimension %dpx is below required %dpx", minDim, s.cfg.MinResolution))
	}
}

// checkBlockiness estimates recompression damage from the luminance step
// at 8x8 DCT block boundaries. A failure to compute silently skips the
// check; it never fails the stage on its own.
func (s *FormatStage) checkBlockiness(req *validation.Context, result *validation.Result) {
	if req.Image == nil {
		return
	}
	blockiness := imageutil.NewGray(req.Image).Blockiness()
	if blockiness > s.cfg.BlockinessThreshold {
		result.AddError(validation.CodeLowQuality,
			fmt.Sprintf("Image appears heavily compressed (blockiness: %.2f)", blockiness))
	}
}

func aspectRatio(width, height int) float64 {
	if width == 0 || height == 0 {
		return 0
	}
	lo, hi := float64(min(width, height)), float64(max(width, height))
	return hi / lo
}
