// Package stages contains the compliance checks the pipeline runs over a
// submitted photo. Each stage is stateless per call: it may own model
// client handles, but carries no request state between invocations.
package stages

import (
	"context"

	"github.com/example/photo-check/internal/validation"
)

// Stage names in pipeline order.
const (
	NameFormat      = "format"
	NameQuality     = "quality"
	NameFace        = "face"
	NamePose        = "pose"
	NameGeometry    = "geometry"
	NameBackground  = "background"
	NameAccessories = "accessories"
)

// Stage is one unit of the validation pipeline. Validate reports rule
// violations through the returned result; the error return is reserved
// for unexpected execution faults, which the orchestrator converts into a
// metadata marker instead of failing the request.
type Stage interface {
	Name() string
	Validate(ctx context.Context, req *validation.Context) (*validation.Result, error)
}
