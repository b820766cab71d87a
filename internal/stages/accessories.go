package stages

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/example/photo-check/internal/imageutil"
	"github.com/example/photo-check/internal/validation"
	"github.com/example/photo-check/internal/vision"
)

const accessoriesPrompt = `Analyze this cropped face photo for an identity document.
Report whether the person wears accessories (glasses, sunglasses, hat, cap,
headphones, mask, scarf covering the face) and whether the photo has beauty
filters or heavy digital editing applied.
Respond with ONLY a JSON object, no other text:
{"accessories_detected": true/false, "filters_detected": true/false, "items": ["..."], "reasoning": "..."}
If unsure, err toward reporting the problem.`

// VLMFactory builds the vision-language client on first use, so the
// pipeline can start even when the model server is still loading.
type VLMFactory func(ctx context.Context) (vision.VLM, error)

// AccessoriesStage asks a vision-language model whether the subject
// wears disallowed accessories or the photo has filters applied.
type AccessoriesStage struct {
	factory VLMFactory

	mu          sync.Mutex
	initialized bool
	vlm         vision.VLM
	initErr     error
}

func NewAccessoriesStage(factory VLMFactory) *AccessoriesStage {
	return &AccessoriesStage{factory: factory}
}

func (s *AccessoriesStage) Name() string { return NameAccessories }

// client returns the memoized VLM handle. A failed acquisition is also
// memoized so every request does not retry a dead model server, but
// only when the failure was the model's fault: an error caused by the
// calling request's context must not poison the stage for later
// requests.
func (s *AccessoriesStage) client(ctx context.Context) (vision.VLM, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return s.vlm, s.initErr
	}

	vlm, err := s.factory(ctx)
	if err != nil && (ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil, err
	}

	s.vlm, s.initErr = vlm, err
	s.initialized = true
	return s.vlm, s.initErr
}

func (s *AccessoriesStage) Validate(ctx context.Context, req *validation.Context) (*validation.Result, error) {
	result := validation.NewResult()

	vlm, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	img := req.Image
	if req.FaceBBox != nil {
		b := *req.FaceBBox
		img = imageutil.CropWithMargin(req.Image, b.X, b.Y, b.W, b.H, 0.2)
	}

	raw, err := vlm.Describe(ctx, img, accessoriesPrompt)
	if err != nil {
		return nil, err
	}

	verdict := parseAccessoriesResponse(raw)
	if verdict.Accessories {
		result.AddError(validation.CodeAccessoriesDetected, verdict.Reasoning)
	}
	if verdict.Filters {
		result.AddError(validation.CodeFiltersDetected, verdict.Reasoning)
	}

	result.Metadata["accessories_detected"] = verdict.Accessories
	result.Metadata["filters_detected"] = verdict.Filters
	if len(verdict.Items) > 0 {
		result.Metadata["detected_items"] = verdict.Items
	}
	return result, nil
}

type accessoriesVerdict struct {
	Accessories bool
	Filters     bool
	Items       []string
	Reasoning   string
}

// parseAccessoriesResponse extracts the model verdict. Models often wrap
// the JSON in prose or markdown fences, so the first balanced object is
// tried first and keyword matching is the fallback.
func parseAccessoriesResponse(raw string) accessoriesVerdict {
	if obj := extractJSONObject(raw); obj != "" {
		var parsed struct {
			Accessories any      `json:"accessories_detected"`
			Filters     any      `json:"filters_detected"`
			Items       []string `json:"items"`
			Reasoning   string   `json:"reasoning"`
		}
		if err := json.Unmarshal([]byte(obj), &parsed); err == nil {
			return accessoriesVerdict{
				Accessories: truthy(parsed.Accessories),
				Filters:     truthy(parsed.Filters),
				Items:       parsed.Items,
				Reasoning:   parsed.Reasoning,
			}
		}
	}

	lower := strings.ToLower(raw)
	var v accessoriesVerdict
	for _, kw := range []string{"sunglasses", "glasses", "hat", "cap", "headphones", "face mask", "scarf"} {
		if strings.Contains(lower, kw) {
			v.Accessories = true
			v.Items = append(v.Items, kw)
		}
	}
	for _, kw := range []string{"filter", "beauty mode", "heavily edited", "retouched", "airbrushed"} {
		if strings.Contains(lower, kw) {
			v.Filters = true
			break
		}
	}
	return v
}

// extractJSONObject returns the substring from the first '{' to the
// last '}', or "" when no object is present.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// truthy coerces the loose boolean encodings models emit.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true
		}
	case float64:
		return t != 0
	}
	return false
}
