package httpapi

import (
	"github.com/labstack/echo/v4"

	"horse.fit/lens/internal/config"
)

func (s *Server) handleConfigGet(c echo.Context) error {
	settings := s.settings.Settings()
	// The key never leaves the process; only its presence is reported.
	hasKey := settings.LLM.APIKey != ""
	settings.LLM.APIKey = ""
	return success(c, map[string]any{
		"settings":    settings,
		"has_api_key": hasKey,
	})
}

func (s *Server) handleConfigUpdate(c echo.Context) error {
	section := c.Param("section")
	current := s.settings.Settings()

	var mutate func(*config.Settings)
	switch section {
	case "llm":
		body := current.LLM
		if err := c.Bind(&body); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
		mutate = func(st *config.Settings) { st.LLM = body }
	case "ocr":
		body := current.OCR
		if err := c.Bind(&body); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
		mutate = func(st *config.Settings) { st.OCR = body }
	case "prompt":
		body := current.Prompt
		if err := c.Bind(&body); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
		mutate = func(st *config.Settings) { st.Prompt = body }
	case "translation":
		body := current.Translation
		if err := c.Bind(&body); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
		mutate = func(st *config.Settings) { st.Translation = body }
	case "hotkey":
		body := current.Hotkey
		if err := c.Bind(&body); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
		mutate = func(st *config.Settings) { st.Hotkey = body }
	case "ui":
		body := current.UI
		if err := c.Bind(&body); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
		mutate = func(st *config.Settings) { st.UI = body }
	case "history":
		body := current.History
		if err := c.Bind(&body); err != nil {
			return failValidation(c, map[string]string{"body": err.Error()})
		}
		mutate = func(st *config.Settings) { st.History = body }
	default:
		return failNotFound(c, "Unknown settings section")
	}

	warnings, err := s.settings.Apply(section, mutate)
	if err != nil {
		s.logger.Error().Err(err).Str("section", section).Msg("settings update failed")
		return internalError(c, "Failed to persist settings")
	}
	return success(c, map[string]any{
		"section":  section,
		"warnings": warnings,
	})
}
