package imageutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
)

// Format names as reported by SniffFormat.
const (
	FormatJPEG = "JPEG"
	FormatPNG  = "PNG"
	FormatGIF  = "GIF"
	FormatBMP  = "BMP"
	FormatWebP = "WEBP"
)

var nonBase64 = regexp.MustCompile(`[^A-Za-z0-9+/=]`)

// CleanBase64 normalizes a client-supplied base64 image string: strips a
// data-URI prefix, whitespace and URL-safe characters, and repairs
// missing padding. Browsers and mobile clients mangle payloads in all of
// these ways.
func CleanBase64(s string) (string, error) {
	if idx := strings.Index(s, ","); idx >= 0 && idx < 100 {
		s = s[idx+1:]
	}
	s = strings.NewReplacer("\n", "", "\r", "", " ", "", "\t", "", "-", "+", "_", "/").Replace(s)
	s = nonBase64.ReplaceAllString(s, "")
	if s == "" {
		return "", fmt.Errorf("base64 string is empty after cleaning")
	}
	if missing := len(s) % 4; missing != 0 {
		s += strings.Repeat("=", 4-missing)
	}
	return s, nil
}

// DecodeBase64 cleans and decodes a base64 image payload to raw bytes.
func DecodeBase64(s string) ([]byte, error) {
	cleaned, err := CleanBase64(s)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(raw) < 10 {
		return nil, fmt.Errorf("image data too short to be a valid image (%d bytes)", len(raw))
	}
	return raw, nil
}

// SniffFormat identifies the encoded format from magic bytes. Returns an
// empty string for unrecognized data.
func SniffFormat(raw []byte) string {
	if len(raw) < 12 {
		return ""
	}
	switch {
	case bytes.HasPrefix(raw, []byte{0xFF, 0xD8, 0xFF}):
		return FormatJPEG
	case bytes.HasPrefix(raw, []byte{0x89, 0x50, 0x4E, 0x47}):
		return FormatPNG
	case bytes.HasPrefix(raw, []byte("GIF8")):
		return FormatGIF
	case bytes.HasPrefix(raw, []byte("BM")):
		return FormatBMP
	case bytes.HasPrefix(raw, []byte("RIFF")) && bytes.Equal(raw[8:12], []byte("WEBP")):
		return FormatWebP
	default:
		return ""
	}
}

// Decode parses raw encoded bytes into a pixel buffer.
func Decode(raw []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		format := SniffFormat(raw)
		if format == "" {
			format = "unknown"
		}
		return nil, fmt.Errorf("cannot decode %s image: %w", strings.ToLower(format), err)
	}
	return img, nil
}

// CropWithMargin cuts a region around a box, expanded by marginFrac of the
// box size on each side and clamped to the image bounds.
func CropWithMargin(img image.Image, x, y, w, h int, marginFrac float64) image.Image {
	b := img.Bounds()
	mx := int(float64(w) * marginFrac)
	my := int(float64(h) * marginFrac)
	rect := image.Rect(x-mx, y-my, x+w+mx, y+h+my).Intersect(b)
	if rect.Empty() {
		return img
	}
	return imaging.Crop(img, rect)
}
