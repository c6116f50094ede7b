package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/lens/internal/config"
	"horse.fit/lens/internal/history"
	"horse.fit/lens/internal/ocr"
	"horse.fit/lens/internal/prompt"
	"horse.fit/lens/internal/workflow"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Options configures the local control API.
type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// AccessTokenHash, when set, requires a matching bearer token on every
	// /api request.
	AccessTokenHash string
}

// Server exposes history, settings and one-shot translation over HTTP on
// the loopback interface.
type Server struct {
	settings *config.Store
	records  *history.Store
	prompts  *prompt.Store
	engine   *ocr.Engine
	runner   *workflow.Runner
	logger   zerolog.Logger
	opts     Options
}

// NewServer wires the control API. runner may be nil to disable the
// translate endpoint.
func NewServer(settings *config.Store, records *history.Store, prompts *prompt.Store, engine *ocr.Engine, runner *workflow.Runner, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := opts.Port
	if port <= 0 {
		port = 8765
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		// A translate request waits on OCR plus the model round trip.
		writeTimeout = 5 * time.Minute
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		settings: settings,
		records:  records,
		prompts:  prompts,
		engine:   engine,
		runner:   runner,
		logger:   logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AccessTokenHash: opts.AccessTokenHash,
		},
	}
}

// Start serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.settings == nil || s.records == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("lens control api started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("lens control api stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}
			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1", s.requireToken())
	api.GET("/health", s.handleHealth)
	api.GET("/status", s.handleStatus)

	api.GET("/history", s.handleHistoryList)
	api.GET("/history/stats", s.handleHistoryStats)
	api.GET("/history/:id", s.handleHistoryDetail)
	api.DELETE("/history/:id", s.handleHistoryDelete)
	api.POST("/history/clear", s.handleHistoryClear)

	api.GET("/templates", s.handleTemplates)

	api.GET("/config", s.handleConfigGet)
	api.PUT("/config/:section", s.handleConfigUpdate)

	api.POST("/translate", s.handleTranslate)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "lens",
		"time":    time.Now().UTC(),
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	settings := s.settings.Settings()
	stats := s.records.Statistics()

	data := map[string]any{
		"provider": settings.LLM.Provider,
		"model":    settings.LLM.ModelName,
		"history": map[string]any{
			"total_records": stats.TotalRecords,
			"max_records":   stats.MaxRecords,
		},
	}
	if s.engine != nil {
		data["ocr"] = s.engine.Status(settings.OCR)
	}
	return success(c, data)
}

func (s *Server) handleTemplates(c echo.Context) error {
	names := s.prompts.Names()
	items := make([]map[string]any, 0, len(names))
	for _, name := range names {
		tpl, ok := s.prompts.Get(name)
		if !ok {
			continue
		}
		items = append(items, map[string]any{
			"name":        tpl.Name,
			"description": tpl.Description,
			"category":    tpl.Category,
			"variables":   tpl.Variables,
		})
	}
	return success(c, map[string]any{"items": items})
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
