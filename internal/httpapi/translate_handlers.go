package httpapi

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/lens/internal/workflow"
)

// handleTranslate runs the full recognize-and-translate pipeline on an
// uploaded capture. The image arrives as the "image" part of a multipart
// form; the region fields are optional and recorded as metadata only.
func (s *Server) handleTranslate(c echo.Context) error {
	if s.runner == nil {
		return fail(c, http.StatusServiceUnavailable, "Translation pipeline is not available", nil)
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return failValidation(c, map[string]string{"image": "an image file is required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		s.logger.Error().Err(err).Msg("open uploaded image failed")
		return internalError(c, "Failed to read uploaded image")
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return failValidation(c, map[string]string{"image": "must be a PNG or JPEG image"})
	}

	region, fieldErrors := regionFromForm(c)
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	result := s.runner.Run(c.Request().Context(), img, region)
	switch result.Type {
	case workflow.ResultSuccess:
		return success(c, map[string]any{"result": result})
	case workflow.ResultEmpty:
		return fail(c, http.StatusUnprocessableEntity, result.Message, map[string]any{"result": result})
	default:
		return fail(c, http.StatusBadGateway, result.Message, map[string]any{"result": result})
	}
}

func regionFromForm(c echo.Context) (workflow.Region, map[string]string) {
	fieldErrors := map[string]string{}
	parse := func(name string) int {
		value, err := parsePositiveInt(c.FormValue(name), 0, 0, 1<<20)
		if err != nil {
			fieldErrors[name] = err.Error()
		}
		return value
	}
	region := workflow.Region{
		X:      parse("x"),
		Y:      parse("y"),
		Width:  parse("width"),
		Height: parse("height"),
	}
	if len(fieldErrors) > 0 {
		return workflow.Region{}, fieldErrors
	}
	return region, nil
}
