package stages

import (
	"context"
	"fmt"

	"github.com/example/photo-check/internal/validation"
	"github.com/example/photo-check/internal/vision"
)

// FaceStage runs the external face-mesh collaborator and publishes the
// primary face's bounding box and landmarks into the request context for
// the pose and geometry stages.
//
// Context writes: FaceBBox, Landmarks.
type FaceStage struct {
	mesh vision.FaceMesh
}

// NewFaceStage builds the stage around a face-mesh collaborator.
func NewFaceStage(mesh vision.FaceMesh) *FaceStage {
	return &FaceStage{mesh: mesh}
}

// Name implements Stage.
func (s *FaceStage) Name() string { return NameFace }

// Validate implements Stage.
func (s *FaceStage) Validate(ctx context.Context, req *validation.Context) (*validation.Result, error) {
	result := validation.NewResult()

	detected, err := s.mesh.Detect(ctx, req.Image)
	if err != nil {
		return nil, err
	}

	switch {
	case len(detected.Detections) == 0:
		result.AddError(validation.CodeNoFaceDetected, "")
		return result, nil
	case len(detected.Detections) > 1:
		// Landmarks of the primary face are deliberately not consumed
		// here: a multi-face photo fails outright.
		result.AddError(validation.CodeMultipleFaces,
			fmt.Sprintf("Detected %d faces", len(detected.Detections)))
		return result, nil
	}

	detection := detected.Detections[0]
	bbox := clampBBox(detection.Box, req)
	req.FaceBBox = &bbox
	req.Landmarks = detected.Landmarks

	result.Metadata = validation.Metadata{
		"face_detected":        true,
		"face_count":           1,
		"face_bbox":            bbox,
		"landmark_count":       len(detected.Landmarks),
		"detection_confidence": detection.Confidence,
	}
	return result, nil
}

func clampBBox(box vision.BBox, req *validation.Context) vision.BBox {
	width, height := req.Bounds()
	if box.X < 0 {
		box.X = 0
	}
	if box.Y < 0 {
		box.Y = 0
	}
	if box.X+box.W > width {
		box.W = width - box.X
	}
	if box.Y+box.H > height {
		box.H = height - box.Y
	}
	if box.W < 0 {
		box.W = 0
	}
	if box.H < 0 {
		box.H = 0
	}
	return box
}
