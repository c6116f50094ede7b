package ocr

import "image"

// Result is one recognized text fragment with its polygon in image
// coordinates. Confidence is normalized to [0, 1].
type Result struct {
	Text       string
	Confidence float64
	Polygon    []image.Point
	Language   string
}

// NewResult builds a result, clamping confidence into [0, 1].
func NewResult(text string, confidence float64, polygon []image.Point) Result {
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	return Result{Text: text, Confidence: confidence, Polygon: polygon}
}

// Region is an axis-aligned text region used during line reconstruction.
type Region struct {
	Bounds     image.Rectangle
	Text       string
	Confidence float64
}

// Area returns the region's pixel area.
func (r Region) Area() int {
	return r.Bounds.Dx() * r.Bounds.Dy()
}
