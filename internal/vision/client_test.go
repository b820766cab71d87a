package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func TestMeshClientDetect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/mesh" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req meshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Image == "" {
			t.Error("expected base64 image in request")
		}
		if req.MaxFaces != 2 {
			t.Errorf("expected max_faces 2, got %d", req.MaxFaces)
		}
		_ = json.NewEncoder(w).Encode(MeshResult{
			Detections: []Detection{{Box: BBox{X: 1, Y: 2, W: 3, H: 4}, Confidence: 0.91}},
			Landmarks:  []Landmark{{X: 2, Y: 3, Z: -0.5}},
		})
	}))
	defer server.Close()

	client := NewMeshClient(server.URL, 0.7)
	result, err := client.Detect(context.Background(), testImage())
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if len(result.Detections) != 1 || result.Detections[0].Box.W != 3 {
		t.Fatalf("unexpected detections: %+v", result.Detections)
	}
	if len(result.Landmarks) != 1 {
		t.Fatalf("unexpected landmarks: %+v", result.Landmarks)
	}
}

func TestMeshClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewMeshClient(server.URL, 0.7)
	_, err := client.Detect(context.Background(), testImage())

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status code %d", statusErr.StatusCode)
	}
}

func TestSegmenterClientDecodesMask(t *testing.T) {
	classes := []byte{0, 0, 15, 15}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(segmentResponse{
			Width:  2,
			Height: 2,
			Mask:   base64.StdEncoding.EncodeToString(classes),
		})
	}))
	defer server.Close()

	client := NewSegmenterClient(server.URL)
	mask, err := client.Segment(context.Background(), testImage())
	if err != nil {
		t.Fatalf("segment failed: %v", err)
	}
	if mask.Width != 2 || mask.Height != 2 {
		t.Fatalf("unexpected mask dims %dx%d", mask.Width, mask.Height)
	}
	if mask.At(0, 1) != ClassPerson {
		t.Fatalf("unexpected class at (0,1): %d", mask.At(0, 1))
	}
}

func TestSegmenterClientRejectsSizeMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(segmentResponse{
			Width:  4,
			Height: 4,
			Mask:   base64.StdEncoding.EncodeToString([]byte{0, 15}),
		})
	}))
	defer server.Close()

	client := NewSegmenterClient(server.URL)
	if _, err := client.Segment(context.Background(), testImage()); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestVLMDescribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request: %v", err)
		}
		if req.Stream {
			t.Error("stream must be false")
		}
		if len(req.Images) != 1 {
			t.Errorf("expected one image, got %d", len(req.Images))
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Response: `  {"accessories_detected": false}  `})
	}))
	defer server.Close()

	client := NewVLMClient(server.URL, "minicpm-v")
	text, err := client.Describe(context.Background(), testImage(), "describe accessories")
	if err != nil {
		t.Fatalf("describe failed: %v", err)
	}
	if text != `{"accessories_detected": false}` {
		t.Fatalf("expected trimmed response, got %q", text)
	}
}
