package ocr

import (
	"image"
	"sort"
	"strings"
)

// ExtractTextWithLayout turns per-fragment results into multi-line text.
// Fragments are grouped into visual lines by vertical overlap, ordered left
// to right within a line, joined by spaces, and lines joined by newlines.
// Fragments without usable geometry degrade to a flat space-joined string.
func ExtractTextWithLayout(results []Result) string {
	if len(results) == 0 {
		return ""
	}

	regions := regionsFromResults(results)
	if len(regions) == 0 {
		parts := make([]string, 0, len(results))
		for _, result := range results {
			parts = append(parts, result.Text)
		}
		return strings.Join(parts, " ")
	}

	lines := groupIntoLines(regions)

	rendered := make([]string, 0, len(lines))
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].Bounds.Min.X < line[j].Bounds.Min.X
		})
		parts := make([]string, 0, len(line))
		for _, region := range line {
			parts = append(parts, region.Text)
		}
		rendered = append(rendered, strings.Join(parts, " "))
	}
	return strings.Join(rendered, "\n")
}

// regionsFromResults converts polygons into axis-aligned regions, skipping
// fragments with fewer than two points.
func regionsFromResults(results []Result) []Region {
	regions := make([]Region, 0, len(results))
	for _, result := range results {
		if len(result.Polygon) < 2 {
			continue
		}
		minX, minY := result.Polygon[0].X, result.Polygon[0].Y
		maxX, maxY := minX, minY
		for _, point := range result.Polygon[1:] {
			if point.X < minX {
				minX = point.X
			}
			if point.X > maxX {
				maxX = point.X
			}
			if point.Y < minY {
				minY = point.Y
			}
			if point.Y > maxY {
				maxY = point.Y
			}
		}
		regions = append(regions, Region{
			Bounds:     image.Rect(minX, minY, maxX, maxY),
			Text:       result.Text,
			Confidence: result.Confidence,
		})
	}
	return regions
}

// groupIntoLines walks the regions top to bottom and starts a new line
// whenever a region's vertical overlap with the previous one is at most 30%
// of the smaller region's height.
func groupIntoLines(regions []Region) [][]Region {
	if len(regions) == 0 {
		return nil
	}

	// Ties on Min.Y break on Min.X so the grouping does not depend on
	// the order the recognizer emitted the fragments in.
	sorted := append([]Region{}, regions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Bounds.Min.Y != sorted[j].Bounds.Min.Y {
			return sorted[i].Bounds.Min.Y < sorted[j].Bounds.Min.Y
		}
		return sorted[i].Bounds.Min.X < sorted[j].Bounds.Min.X
	})

	var lines [][]Region
	current := []Region{sorted[0]}
	for _, region := range sorted[1:] {
		last := current[len(current)-1]

		overlap := min(last.Bounds.Max.Y, region.Bounds.Max.Y) - max(last.Bounds.Min.Y, region.Bounds.Min.Y)
		minHeight := min(last.Bounds.Dy(), region.Bounds.Dy())

		if float64(overlap) > 0.3*float64(minHeight) {
			current = append(current, region)
		} else {
			lines = append(lines, current)
			current = []Region{region}
		}
	}
	return append(lines, current)
}
