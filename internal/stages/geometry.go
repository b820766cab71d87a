package stages

import (
	"context"
	"fmt"

	"github.com/example/photo-check/internal/config"
	"github.com/example/photo-check/internal/imageutil"
	"github.com/example/photo-check/internal/validation"
)

// jawlineIndices traces the face oval in the mesh topology, used to
// sample edge density along the face boundary for occlusion checks.
var jawlineIndices = []int{
	10, 338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288,
	397, 365, 379, 378, 400, 377, 152, 148, 176, 149, 150, 136,
	172, 58, 132, 93, 234, 127, 162, 21, 54, 103, 67, 109,
}

// GeometryStage checks face framing: size relative to the frame,
// centering, and hair or objects occluding the face boundary.
type GeometryStage struct {
	cfg config.Thresholds
}

func NewGeometryStage(cfg config.Thresholds) *GeometryStage {
	return &GeometryStage{cfg: cfg}
}

func (s *GeometryStage) Name() string { return NameGeometry }

func (s *GeometryStage) Validate(_ context.Context, req *validation.Context) (*validation.Result, error) {
	result := validation.NewResult()

	if req.FaceBBox == nil {
		result.AddError(validation.CodeNoFaceDetected, "")
		return result, nil
	}

	w, h := req.Bounds()
	width := float64(w)
	height := float64(h)
	box := *req.FaceBBox

	sizeRatio := float64(box.Area()) / (width * height)
	if sizeRatio < s.cfg.MinFaceAreaRatio {
		result.AddError(validation.CodeFaceTooSmall,
			fmt.Sprintf("Face occupies %.1f%% of the frame, minimum is %.0f%%",
				sizeRatio*100, s.cfg.MinFaceAreaRatio*100))
	} else if sizeRatio > s.cfg.MaxFaceAreaRatio {
		result.AddError(validation.CodeFaceTooClose,
			fmt.Sprintf("Face occupies %.1f%% of the frame, maximum is %.0f%%",
				sizeRatio*100, s.cfg.MaxFaceAreaRatio*100))
	}

	faceCX := float64(box.X) + float64(box.W)/2
	faceCY := float64(box.Y) + float64(box.H)/2
	offsetX := (faceCX - width/2) / width
	offsetY := (faceCY - height/2) / height
	if abs(offsetX) > s.cfg.FaceCenterTolerance || abs(offsetY) > s.cfg.FaceCenterTolerance {
		result.AddError(validation.CodeFaceNotCentered, "")
	}

	occlusion := s.occlusionScore(req)
	if occlusion > s.cfg.HairOcclusion {
		result.AddError(validation.CodeHairCoversFace, "")
	}

	result.Metadata["face_size_ratio"] = sizeRatio
	result.Metadata["center_offset_x"] = offsetX
	result.Metadata["center_offset_y"] = offsetY
	result.Metadata["occlusion_score"] = occlusion
	return result, nil
}

// occlusionScore measures the mean Canny edge density in small windows
// around each jawline landmark. Clean skin-to-background transitions
// produce a thin edge; hair or objects crossing the boundary produce
// dense clutter. Returns 0 when landmarks are unavailable.
func (s *GeometryStage) occlusionScore(req *validation.Context) float64 {
	maxIndex := 0
	for _, idx := range jawlineIndices {
		if idx > maxIndex {
			maxIndex = idx
		}
	}
	if len(req.Landmarks) <= maxIndex {
		return 0
	}

	w, h := req.Bounds()
	gray := imageutil.NewGray(req.Image)
	edges := imageutil.Canny(gray, 50, 150)

	const margin = 10
	var total float64
	var sampled int
	for _, idx := range jawlineIndices {
		lm := req.Landmarks[idx]
		px := int(lm.X * float64(w))
		py := int(lm.Y * float64(h))
		if px < 0 || py < 0 || px >= w || py >= h {
			continue
		}
		total += edges.Density(px-margin, py-margin, px+margin+1, py+margin+1)
		sampled++
	}
	if sampled == 0 {
		return 0
	}
	return total / float64(sampled)
}
