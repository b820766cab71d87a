package vision

import (
	"context"
	"image"
	"time"
)

// MeshClient talks to the face-mesh sidecar, which wraps the detector and
// landmark models behind one call per image.
type MeshClient struct {
	http          httpClient
	minConfidence float64
}

// NewMeshClient builds a client for the face-mesh sidecar.
func NewMeshClient(baseURL string, minConfidence float64) *MeshClient {
	return &MeshClient{
		http:          newHTTPClient(baseURL, 30*time.Second),
		minConfidence: minConfidence,
	}
}

type meshRequest struct {
	Image         string  `json:"image"`
	MinConfidence float64 `json:"min_confidence"`
	MaxFaces      int     `json:"max_faces"`
}

// Detect returns every face found together with the landmark list for the
// primary face. Landmark X and Y are normalized to [0, 1] of the frame,
// ordered by the mesh topology, with Z as relative depth.
func (c *MeshClient) Detect(ctx context.Context, img image.Image) (*MeshResult, error) {
	encoded, err := encodeImageBase64(img)
	if err != nil {
		return nil, err
	}

	req := meshRequest{
		Image:         encoded,
		MinConfidence: c.minConfidence,
		// Ask for up to two detections so extra faces are reported.
		MaxFaces: 2,
	}
	var result MeshResult
	if err := c.http.postJSON(ctx, "/v1/mesh", req, &result, "facemesh.detect"); err != nil {
		return nil, err
	}
	return &result, nil
}

// Check probes the sidecar health endpoint.
func (c *MeshClient) Check(ctx context.Context) error {
	return c.http.get(ctx, "/healthz", "facemesh.health")
}
