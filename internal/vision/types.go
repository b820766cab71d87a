package vision

import (
	"context"
	"image"
)

// BBox is a face bounding box in pixel coordinates.
type BBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Area returns the box area in pixels.
func (b BBox) Area() int {
	return b.W * b.H
}

// Landmark is a face-mesh point with X and Y normalized to [0, 1] of
// the frame. Z is a relative depth component scaled like X.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Detection is one detected face.
type Detection struct {
	Box        BBox    `json:"box"`
	Confidence float64 `json:"confidence"`
}

// MeshResult is the combined output of the face-mesh collaborator for a
// single image: zero or more detections plus the landmark list for the
// primary face when exactly one face is present.
type MeshResult struct {
	Detections []Detection `json:"detections"`
	Landmarks  []Landmark  `json:"landmarks"`
}

// Mask is a per-pixel class-index segmentation mask. Classes is stored
// row-major with len == Width*Height.
type Mask struct {
	Width   int
	Height  int
	Classes []uint8
}

// Segmentation class indices of the 20-class label scheme the segmenter
// speaks (Pascal VOC ordering: person is class 15, background is 0).
const (
	ClassBackground uint8 = 0
	ClassPerson     uint8 = 15
)

// At returns the class index at (x, y).
func (m *Mask) At(x, y int) uint8 {
	return m.Classes[y*m.Width+x]
}

// FaceMesh locates faces and produces per-face ordered landmark lists.
type FaceMesh interface {
	Detect(ctx context.Context, img image.Image) (*MeshResult, error)
}

// Segmenter produces a same-resolution class-index mask. It may
// legitimately fail; callers skip background checks in that case.
type Segmenter interface {
	Segment(ctx context.Context, img image.Image) (*Mask, error)
}

// VLM answers a text prompt about an image with free-form text that is
// expected, but not guaranteed, to contain a JSON object.
type VLM interface {
	Describe(ctx context.Context, img image.Image, prompt string) (string, error)
}
