package imageutil

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"testing"
)

func flatImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func checkerboard(w, h, cell int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if ((x/cell)+(y/cell))%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestCleanBase64StripsDataURIAndRepairsPadding(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("hello image data"))
	messy := "data:image/png;base64," + payload[:len(payload)-1] + "\n "

	cleaned, err := CleanBase64(messy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cleaned)%4 != 0 {
		t.Fatalf("padding not repaired, length %d", len(cleaned))
	}
	if _, err := base64.StdEncoding.DecodeString(cleaned); err != nil {
		t.Fatalf("cleaned string does not decode: %v", err)
	}
}

func TestCleanBase64RejectsEmpty(t *testing.T) {
	if _, err := CleanBase64("!!!"); err == nil {
		t.Fatal("expected error for content-free input")
	}
}

func TestSniffFormat(t *testing.T) {
	var jpegBuf, pngBuf bytes.Buffer
	img := flatImage(32, 32, color.White)
	if err := jpeg.Encode(&jpegBuf, img, nil); err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatal(err)
	}

	if got := SniffFormat(jpegBuf.Bytes()); got != FormatJPEG {
		t.Fatalf("expected JPEG, got %q", got)
	}
	if got := SniffFormat(pngBuf.Bytes()); got != FormatPNG {
		t.Fatalf("expected PNG, got %q", got)
	}
	if got := SniffFormat([]byte("definitely not an image")); got != "" {
		t.Fatalf("expected empty format, got %q", got)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, flatImage(20, 30, color.White)); err != nil {
		t.Fatal(err)
	}
	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 30 {
		t.Fatalf("unexpected bounds: %v", img.Bounds())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not an image at all, not even close")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLaplacianVarianceSeparatesFlatFromCheckerboard(t *testing.T) {
	flat := NewGray(flatImage(64, 64, color.Gray{Y: 128}))
	board := NewGray(checkerboard(64, 64, 2))

	if v := flat.LaplacianVariance(); v > 1e-6 {
		t.Fatalf("flat image should have ~zero variance, got %f", v)
	}
	if v := board.LaplacianVariance(); v < 1000 {
		t.Fatalf("checkerboard should have high variance, got %f", v)
	}
}

func TestBlockinessFlatIsZero(t *testing.T) {
	g := NewGray(flatImage(64, 64, color.Gray{Y: 100}))
	if b := g.Blockiness(); b > 1e-6 {
		t.Fatalf("flat image blockiness should be zero, got %f", b)
	}
}

func TestBlockinessDetectsBlockEdges(t *testing.T) {
	// Alternate luminance per 8x8 block so every block boundary is a step.
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(80)
			if ((x/8)+(y/8))%2 == 0 {
				v = 180
			}
			img.Set(x, y, color.Gray{Y: v})
		}
	}
	g := NewGray(img)
	if b := g.Blockiness(); b < 50 {
		t.Fatalf("blocky image should score high, got %f", b)
	}
}

func TestBlockinessTooSmallImage(t *testing.T) {
	g := NewGray(flatImage(10, 10, color.White))
	if b := g.Blockiness(); b != 0 {
		t.Fatalf("tiny image must score zero, got %f", b)
	}
}

func TestQuadrantMeans(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			if x < 20 && y < 20 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	means := NewGray(img).QuadrantMeans()
	if means[0] < 250 {
		t.Fatalf("top-left should be bright, got %f", means[0])
	}
	for i := 1; i < 4; i++ {
		if means[i] > 5 {
			t.Fatalf("quadrant %d should be dark, got %f", i, means[i])
		}
	}
}

func TestFractionBelowAbove(t *testing.T) {
	g := NewGray(flatImage(10, 10, color.Gray{Y: 30}))
	if f := g.FractionBelow(50); f != 1.0 {
		t.Fatalf("expected all pixels below, got %f", f)
	}
	if f := g.FractionAbove(50); f != 0.0 {
		t.Fatalf("expected no pixels above, got %f", f)
	}
}

func TestCannyFlatImageHasNoEdges(t *testing.T) {
	edges := Canny(NewGray(flatImage(50, 50, color.Gray{Y: 120})), 50, 150)
	if d := edges.Density(0, 0, 50, 50); d != 0 {
		t.Fatalf("flat image must have zero edge density, got %f", d)
	}
}

func TestCannyDetectsVerticalStep(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			if x < 25 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	edges := Canny(NewGray(img), 50, 150)
	if d := edges.Density(20, 5, 30, 45); d == 0 {
		t.Fatal("expected edges along the luminance step")
	}
	if d := edges.Density(0, 5, 10, 45); d != 0 {
		t.Fatalf("expected no edges in flat region, got %f", d)
	}
}

func TestRGBToLabNeutralAxis(t *testing.T) {
	l, a, b := RGBToLab(128, 128, 128)
	if math.Abs(a-128) > 1.5 || math.Abs(b-128) > 1.5 {
		t.Fatalf("gray pixel should sit on neutral axis, got a=%f b=%f", a, b)
	}
	if l < 100 || l > 180 {
		t.Fatalf("implausible L for mid gray: %f", l)
	}

	lw, _, _ := RGBToLab(255, 255, 255)
	if math.Abs(lw-255) > 1 {
		t.Fatalf("white should map to L~255, got %f", lw)
	}
}

func TestSubRegionClamps(t *testing.T) {
	g := NewGray(flatImage(20, 20, color.White))
	sub := g.SubRegion(image.Rect(-10, -10, 10, 10))
	if sub == nil || sub.Width != 10 || sub.Height != 10 {
		t.Fatalf("unexpected clamped region: %+v", sub)
	}
	if empty := g.SubRegion(image.Rect(30, 30, 40, 40)); empty != nil {
		t.Fatal("out-of-bounds region must be nil")
	}
}
