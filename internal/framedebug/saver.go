// Package framedebug saves stream frames and their verdicts to disk for
// offline tuning of the validation thresholds.
package framedebug

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/example/photo-check/internal/pipeline"
)

type frame struct {
	requestID string
	img       image.Image
	report    *pipeline.Report
}

// Saver writes frames asynchronously through a bounded queue. When the
// queue is full or the frame budget is spent, frames are dropped so the
// stream path never blocks on disk.
type Saver struct {
	dir       string
	maxFrames int
	logger    *zap.Logger
	queue     chan frame
	done      chan struct{}
}

// NewSaver creates the output directory and starts the writer goroutine.
func NewSaver(dir string, maxFrames int, logger *zap.Logger) (*Saver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("framedebug: create dir: %w", err)
	}
	s := &Saver{
		dir:       dir,
		maxFrames: maxFrames,
		logger:    logger.Named("framedebug"),
		queue:     make(chan frame, 16),
		done:      make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Submit enqueues a frame for saving. It never blocks; a full queue
// drops the frame.
func (s *Saver) Submit(requestID string, img image.Image, report *pipeline.Report) {
	select {
	case s.queue <- frame{requestID: requestID, img: img, report: report}:
	default:
		s.logger.Debug("frame dropped, queue full", zap.String("request_id", requestID))
	}
}

// Close stops accepting frames and waits for queued writes to finish.
func (s *Saver) Close() {
	close(s.queue)
	<-s.done
}

func (s *Saver) run() {
	defer close(s.done)
	saved := 0
	for f := range s.queue {
		if saved >= s.maxFrames {
			continue
		}
		if err := s.save(saved, f); err != nil {
			s.logger.Warn("failed to save frame", zap.String("request_id", f.requestID), zap.Error(err))
			continue
		}
		saved++
	}
}

func (s *Saver) save(seq int, f frame) error {
	base := filepath.Join(s.dir, fmt.Sprintf("frame_%04d_%s", seq, f.report.Status))

	annotated := annotate(f.img, f.report)
	if err := imaging.Save(annotated, base+".jpg", imaging.JPEGQuality(85)); err != nil {
		return err
	}

	sidecar := struct {
		RequestID string           `json:"request_id"`
		Report    *pipeline.Report `json:"report"`
	}{RequestID: f.requestID, Report: f.report}
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(base+".json", data, 0o644)
}

// annotate draws the detected face box, green for passing frames and
// red for failing ones.
func annotate(img image.Image, report *pipeline.Report) image.Image {
	if report.Guidance == nil || report.Guidance.FaceBBox == nil {
		return img
	}

	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)

	c := color.RGBA{255, 0, 0, 255}
	if report.Success() {
		c = color.RGBA{0, 255, 0, 255}
	}

	box := report.Guidance.FaceBBox
	for x := box.X; x < box.X+box.W; x++ {
		setPx(out, x, box.Y, c)
		setPx(out, x, box.Y+box.H-1, c)
	}
	for y := box.Y; y < box.Y+box.H; y++ {
		setPx(out, box.X, y, c)
		setPx(out, box.X+box.W-1, y, c)
	}
	return out
}

func setPx(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}
