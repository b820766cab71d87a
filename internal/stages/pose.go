package stages

import (
	"context"
	"fmt"

	"github.com/example/photo-check/internal/config"
	"github.com/example/photo-check/internal/validation"
)

// poseLandmarkIndices selects the six mesh landmarks used as 2D
// observations: nose tip, chin, left eye outer corner, right eye outer
// corner, left mouth corner, right mouth corner.
var poseLandmarkIndices = [6]int{1, 152, 263, 33, 287, 57}

// poseModelPoints is the matching canonical 3D face model, in the same
// order as poseLandmarkIndices.
var poseModelPoints = [][3]float64{
	{0.0, 0.0, 0.0},
	{0.0, -330.0, -65.0},
	{-225.0, 170.0, -135.0},
	{225.0, 170.0, -135.0},
	{-150.0, -150.0, -125.0},
	{150.0, -150.0, -125.0},
}

// PoseStage estimates head orientation from the face mesh landmarks and
// rejects photos where the head is turned or tilted too far.
type PoseStage struct {
	cfg config.Thresholds
}

func NewPoseStage(cfg config.Thresholds) *PoseStage {
	return &PoseStage{cfg: cfg}
}

func (s *PoseStage) Name() string { return NamePose }

func (s *PoseStage) Validate(_ context.Context, req *validation.Context) (*validation.Result, error) {
	result := validation.NewResult()

	maxIndex := 0
	for _, idx := range poseLandmarkIndices {
		if idx > maxIndex {
			maxIndex = idx
		}
	}
	if len(req.Landmarks) <= maxIndex {
		result.AddError(validation.CodeNoFaceDetected, "")
		return result, nil
	}

	w, h := req.Bounds()
	width := float64(w)
	height := float64(h)

	observed := make([][2]float64, len(poseLandmarkIndices))
	for i, idx := range poseLandmarkIndices {
		lm := req.Landmarks[idx]
		observed[i] = [2]float64{lm.X * width, lm.Y * height}
	}

	focal := width
	cx := width / 2
	cy := height / 2

	rvec, tvec, err := solvePnP(poseModelPoints, observed, focal, cx, cy)
	if err != nil {
		result.AddError(validation.CodeFaceNotStraight, "Failed to estimate head pose")
		return result, nil
	}

	yaw, pitch, roll := eulerAngles(rodrigues(rvec))

	if abs(yaw) > s.cfg.MaxYaw {
		result.AddError(validation.CodeFaceNotStraight,
			fmt.Sprintf("Head turned too far sideways (yaw %.1f deg)", yaw))
	}
	if abs(pitch) > s.cfg.MaxPitch {
		result.AddError(validation.CodeFaceNotStraight,
			fmt.Sprintf("Head tilted too far up or down (pitch %.1f deg)", pitch))
	}
	if abs(roll) > s.cfg.MaxRoll {
		result.AddError(validation.CodeHeadTilted,
			fmt.Sprintf("Head rotated in the image plane (roll %.1f deg)", roll))
	}

	result.Metadata["yaw"] = yaw
	result.Metadata["pitch"] = pitch
	result.Metadata["roll"] = roll
	result.Metadata["rotation_vector"] = rvec[:]
	result.Metadata["translation_vector"] = tvec[:]
	return result, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
