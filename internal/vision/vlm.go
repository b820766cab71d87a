package vision

import (
	"context"
	"image"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// VLMClient talks to an ollama-compatible vision-language model endpoint.
type VLMClient struct {
	http    httpClient
	model   string
	breaker *gobreaker.CircuitBreaker[string]
}

// NewVLMClient builds a breaker-guarded client for the VLM endpoint.
func NewVLMClient(baseURL, model string) *VLMClient {
	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "vlm",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &VLMClient{
		http:    newHTTPClient(baseURL, 120*time.Second),
		model:   model,
		breaker: breaker,
	}
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Stream bool     `json:"stream"`
	Images []string `json:"images,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Describe sends the image and prompt to the model and returns its raw
// free-form text response.
func (c *VLMClient) Describe(ctx context.Context, img image.Image, prompt string) (string, error) {
	return c.breaker.Execute(func() (string, error) {
		encoded, err := encodeImageBase64(img)
		if err != nil {
			return "", err
		}

		req := generateRequest{
			Model:  c.model,
			Prompt: prompt,
			Stream: false,
			Images: []string{encoded},
		}
		var resp generateResponse
		if err := c.http.postJSON(ctx, "/api/generate", req, &resp, "vlm.generate"); err != nil {
			return "", err
		}
		return strings.TrimSpace(resp.Response), nil
	})
}

// Check verifies the endpoint is reachable. Used by the accessories
// stage's lazy acquisition.
func (c *VLMClient) Check(ctx context.Context) error {
	return c.http.get(ctx, "/api/tags", "vlm.tags")
}
