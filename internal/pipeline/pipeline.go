// Package pipeline runs the ordered validation stages over a submitted
// photo and assembles the verdict.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/photo-check/internal/imageutil"
	"github.com/example/photo-check/internal/logging"
	"github.com/example/photo-check/internal/metrics"
	"github.com/example/photo-check/internal/stages"
	"github.com/example/photo-check/internal/validation"
	"github.com/example/photo-check/internal/vision"
)

// Mode selects which stages run and what the report carries.
type Mode string

const (
	// ModeFull runs every stage and produces a final verdict.
	ModeFull Mode = "full"
	// ModeStream runs only the cheap and pose-related stages and adds
	// framing guidance for a live capture overlay.
	ModeStream Mode = "stream"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// Report is the outcome of one validation run. Metadata is keyed by
// stage name; stages that faulted carry a validator_failed marker
// instead of their usual measurements.
type Report struct {
	Status   string              `json:"status"`
	Errors   []validation.Error  `json:"errors"`
	Metadata validation.Metadata `json:"metadata"`
	Guidance *Guidance           `json:"guidance,omitempty"`
}

func (r *Report) Success() bool { return r.Status == StatusSuccess }

// Guidance is the stream-mode overlay payload: where the face is, how
// the head is oriented, and how far off the ideal framing the shot is.
type Guidance struct {
	Landmarks     []vision.Landmark `json:"landmarks,omitempty"`
	FaceBBox      *vision.BBox      `json:"face_bbox,omitempty"`
	Pose          map[string]any    `json:"pose,omitempty"`
	Centering     map[string]any    `json:"centering,omitempty"`
	FaceSizeRatio any               `json:"face_size_ratio,omitempty"`
}

// Pipeline owns the ordered stage lists for both modes.
type Pipeline struct {
	full    []stages.Stage
	stream  []stages.Stage
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New assembles the two stage chains from the full-mode stage list. The
// stream chain is the same list minus the background and accessories
// stages, which are too slow for per-frame guidance.
func New(full []stages.Stage, logger *zap.Logger, m *metrics.Metrics) *Pipeline {
	stream := make([]stages.Stage, 0, len(full))
	for _, s := range full {
		switch s.Name() {
		case stages.NameBackground, stages.NameAccessories:
		default:
			stream = append(stream, s)
		}
	}
	return &Pipeline{full: full, stream: stream, logger: logger, metrics: m}
}

// Run decodes raw and executes the stage chain for the mode. It never
// returns an error: undecodable input produces a failed report with a
// single invalid_image error, and stage faults degrade to metadata
// markers.
func (p *Pipeline) Run(ctx context.Context, requestID string, raw []byte, mode Mode) *Report {
	report := &Report{
		Errors:   []validation.Error{},
		Metadata: validation.Metadata{},
	}

	img, err := imageutil.Decode(raw)
	if err != nil {
		p.logger.Warn("image decode failed",
			zap.String("request_id", requestID), zap.Error(err))
		report.Status = StatusFail
		report.Errors = append(report.Errors, validation.NewError(validation.CodeInvalidImage, ""))
		p.metrics.RecordVerdict(string(mode), report.Status)
		return report
	}

	req := validation.NewContext(requestID, img, raw)

	chain := p.full
	if mode == ModeStream {
		chain = p.stream
	}

	for _, stage := range chain {
		log := logging.WithStage(p.logger, stage.Name(), requestID)
		start := time.Now()
		result, err := stage.Validate(ctx, req)
		p.metrics.ObserveStage(stage.Name(), time.Since(start))

		if err != nil {
			log.Warn("stage execution fault", zap.Error(err))
			p.metrics.RecordStageFault(stage.Name())
			report.Metadata[stage.Name()] = validation.Metadata{
				"error":            err.Error(),
				"validator_failed": true,
			}
			if isHardStop(stage.Name()) {
				break
			}
			continue
		}

		report.Metadata[stage.Name()] = result.Metadata
		req.MergeMetadata(result.Metadata)
		report.Errors = append(report.Errors, result.Errors...)

		if !result.Passed && isHardStop(stage.Name()) {
			log.Info("hard stop", zap.Int("errors", len(result.Errors)))
			break
		}
	}

	report.Status = StatusSuccess
	if len(report.Errors) > 0 {
		report.Status = StatusFail
	}
	if mode == ModeStream {
		report.Guidance = buildGuidance(req)
	}
	p.metrics.RecordVerdict(string(mode), report.Status)
	return report
}

// isHardStop reports whether a failure in the stage makes the remaining
// checks meaningless. An unreadable file or a missing face invalidates
// every downstream measurement.
func isHardStop(name string) bool {
	return name == stages.NameFormat || name == stages.NameFace
}

func buildGuidance(req *validation.Context) *Guidance {
	g := &Guidance{
		Landmarks: req.Landmarks,
		FaceBBox:  req.FaceBBox,
	}
	if yaw, ok := req.Merged["yaw"]; ok {
		g.Pose = map[string]any{
			"yaw":   yaw,
			"pitch": req.Merged["pitch"],
			"roll":  req.Merged["roll"],
		}
	}
	if ox, ok := req.Merged["center_offset_x"]; ok {
		g.Centering = map[string]any{
			"offset_x": ox,
			"offset_y": req.Merged["center_offset_y"],
		}
	}
	if ratio, ok := req.Merged["face_size_ratio"]; ok {
		g.FaceSizeRatio = ratio
	}
	return g
}
