package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// EncodedImage contains a frame (or mask) encoded as base64 PNG, the form the
// tuning server returns images in.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// FitOutput scales img to exactly width x height for an output stream.
//
// Frames that already have the requested size are returned unchanged. A
// non-positive width or height leaves the image untouched as well, which is
// how callers disable scaling.
func FitOutput(img image.Image, width, height int) image.Image {
	if width <= 0 || height <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return imaging.Resize(img, width, height, imaging.Linear)
}

// EncodePNG encodes img as a base64 PNG, optionally scaling it first.
//
// Parameters:
//   - img: Frame or mask to encode.
//   - scale: Scale factor applied before encoding. Values of 1.0 or below zero
//     leave the image at its original size.
//
// Returns:
//   - *EncodedImage: The encoded image with its final dimensions.
//   - error: Non-nil if PNG encoding fails.
func EncodePNG(img image.Image, scale float64) (*EncodedImage, error) {
	out := img
	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(img.Bounds().Dx()) * scale)
		newHeight := int(float64(img.Bounds().Dy()) * scale)
		out = imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
