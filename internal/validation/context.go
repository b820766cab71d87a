package validation

import (
	"image"

	"github.com/example/photo-check/internal/vision"
)

// Context is the per-request accumulator threaded through one pipeline
// run. It is owned by exactly one in-flight request, never shared across
// requests, and discarded once the response is built.
//
// Cross-stage fields are explicit: the face stage writes FaceBBox and
// Landmarks; quality, pose and geometry read them. Everything a stage
// reports for the API response goes through MergeMetadata, where later
// keys overwrite earlier ones of the same name.
type Context struct {
	RequestID string

	// RawBytes is the encoded payload as submitted, used for format
	// sniffing and blockiness estimation.
	RawBytes []byte

	// Image is the decoded pixel buffer.
	Image image.Image

	FaceBBox  *vision.BBox
	Landmarks []vision.Landmark

	// Merged is the flattened union of all stage metadata so far.
	Merged Metadata
}

// NewContext seeds a context with the decoded image and its raw bytes.
func NewContext(requestID string, img image.Image, raw []byte) *Context {
	return &Context{
		RequestID: requestID,
		RawBytes:  raw,
		Image:     img,
		Merged:    Metadata{},
	}
}

// Bounds returns the decoded image dimensions.
func (c *Context) Bounds() (width, height int) {
	if c.Image == nil {
		return 0, 0
	}
	b := c.Image.Bounds()
	return b.Dx(), b.Dy()
}

// MergeMetadata folds a stage's metadata into the shared view.
func (c *Context) MergeMetadata(md Metadata) {
	for k, v := range md {
		c.Merged[k] = v
	}
}
