package httpapi

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/lens/internal/history"
)

func (s *Server) handleHistoryList(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultHistoryLimit, 1, maxHistoryLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	query := strings.TrimSpace(c.QueryParam("query"))

	records := s.records.Records(limit, query)
	return success(c, map[string]any{
		"items": records,
		"query": query,
		"limit": limit,
	})
}

func (s *Server) handleHistoryDetail(c echo.Context) error {
	record, err := s.records.ByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, history.ErrRecordNotFound) {
			return failNotFound(c, "Record not found")
		}
		s.logger.Error().Err(err).Msg("history lookup failed")
		return internalError(c, "Failed to load record")
	}
	return success(c, map[string]any{"record": record})
}

func (s *Server) handleHistoryDelete(c echo.Context) error {
	if err := s.records.Remove(c.Param("id")); err != nil {
		if errors.Is(err, history.ErrRecordNotFound) {
			return failNotFound(c, "Record not found")
		}
		s.logger.Error().Err(err).Msg("history delete failed")
		return internalError(c, "Failed to delete record")
	}
	return success(c, map[string]any{"deleted": true})
}

func (s *Server) handleHistoryClear(c echo.Context) error {
	if err := s.records.Clear(); err != nil {
		s.logger.Error().Err(err).Msg("history clear failed")
		return internalError(c, "Failed to clear history")
	}
	return success(c, map[string]any{"cleared": true})
}

func (s *Server) handleHistoryStats(c echo.Context) error {
	return success(c, map[string]any{"stats": s.records.Statistics()})
}
