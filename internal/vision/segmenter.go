package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"time"

	"github.com/sony/gobreaker/v2"
)

// SegmenterClient talks to the semantic-segmentation sidecar. The sidecar
// is the heaviest collaborator, so calls go through a circuit breaker:
// when it misbehaves the pipeline degrades to skipping background checks
// instead of queueing up slow requests.
type SegmenterClient struct {
	http    httpClient
	breaker *gobreaker.CircuitBreaker[*Mask]
}

// NewSegmenterClient builds a breaker-guarded client for the segmenter.
func NewSegmenterClient(baseURL string) *SegmenterClient {
	breaker := gobreaker.NewCircuitBreaker[*Mask](gobreaker.Settings{
		Name:        "segmenter",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &SegmenterClient{
		http:    newHTTPClient(baseURL, 60*time.Second),
		breaker: breaker,
	}
}

type segmentRequest struct {
	Image string `json:"image"`
}

type segmentResponse struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// Mask is base64 of one class byte per pixel, row-major.
	Mask string `json:"mask"`
}

// Segment returns a per-pixel class-index mask at image resolution.
func (c *SegmenterClient) Segment(ctx context.Context, img image.Image) (*Mask, error) {
	return c.breaker.Execute(func() (*Mask, error) {
		return c.segment(ctx, img)
	})
}

func (c *SegmenterClient) segment(ctx context.Context, img image.Image) (*Mask, error) {
	encoded, err := encodeImageBase64(img)
	if err != nil {
		return nil, err
	}

	var resp segmentResponse
	if err := c.http.postJSON(ctx, "/v1/segment", segmentRequest{Image: encoded}, &resp, "segmenter.segment"); err != nil {
		return nil, err
	}

	classes, err := base64.StdEncoding.DecodeString(resp.Mask)
	if err != nil {
		return nil, fmt.Errorf("decode mask: %w", err)
	}
	if len(classes) != resp.Width*resp.Height {
		return nil, fmt.Errorf("mask size mismatch: %d bytes for %dx%d", len(classes), resp.Width, resp.Height)
	}
	return &Mask{Width: resp.Width, Height: resp.Height, Classes: classes}, nil
}

// Check probes the sidecar health endpoint without going through the
// breaker.
func (c *SegmenterClient) Check(ctx context.Context) error {
	return c.http.get(ctx, "/healthz", "segmenter.health")
}
