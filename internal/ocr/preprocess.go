package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"horse.fit/lens/internal/config"
)

// preprocess normalizes the image for recognition: applies the configured
// magnification, caps the longest side to the canvas size, and encodes the
// result as PNG for the recognizer.
func preprocess(img image.Image, settings config.OCRSettings) ([]byte, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if settings.MagRatio > 0 && settings.MagRatio != 1.0 {
		width = int(float64(width) * settings.MagRatio)
		height = int(float64(height) * settings.MagRatio)
		img = resample(img, width, height)
	}

	if settings.CanvasSize > 0 {
		longest := width
		if height > longest {
			longest = height
		}
		if longest > settings.CanvasSize {
			ratio := float64(settings.CanvasSize) / float64(longest)
			width = int(float64(width) * ratio)
			height = int(float64(height) * ratio)
			img = resample(img, width, height)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// resample scales the image to the given size with Catmull-Rom
// interpolation.
func resample(img image.Image, width, height int) image.Image {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}
