package framedebug

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/example/photo-check/internal/pipeline"
	"github.com/example/photo-check/internal/vision"
)

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 60, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.Gray{Y: 128})
		}
	}
	return img
}

func TestSaverWritesFrameAndSidecar(t *testing.T) {
	dir := t.TempDir()
	saver, err := NewSaver(dir, 10, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	report := &pipeline.Report{
		Status: pipeline.StatusSuccess,
		Guidance: &pipeline.Guidance{
			FaceBBox: &vision.BBox{X: 10, Y: 20, W: 30, H: 40},
		},
	}
	saver.Submit("req-1", testFrame(), report)
	saver.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var jpg, js bool
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".jpg":
			jpg = true
		case ".json":
			js = true
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(data), "req-1") {
				t.Error("sidecar missing request id")
			}
		}
	}
	if !jpg || !js {
		t.Errorf("expected jpg and json, got %v", entries)
	}
}

func TestSaverHonorsFrameBudget(t *testing.T) {
	dir := t.TempDir()
	saver, err := NewSaver(dir, 2, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	report := &pipeline.Report{Status: pipeline.StatusFail}
	for i := 0; i < 10; i++ {
		saver.Submit("req", testFrame(), report)
	}
	saver.Close()

	entries, _ := os.ReadDir(dir)
	var jpgs int
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".jpg" {
			jpgs++
		}
	}
	if jpgs > 2 {
		t.Errorf("saved %d frames, budget is 2", jpgs)
	}
}
