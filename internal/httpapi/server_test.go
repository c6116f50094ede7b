package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"horse.fit/lens/internal/auth"
	"horse.fit/lens/internal/config"
	"horse.fit/lens/internal/history"
	"horse.fit/lens/internal/prompt"
)

func newTestServer(t *testing.T, opts Options) (*Server, *echo.Echo, *history.Store) {
	t.Helper()
	t.Setenv("SILICONFLOW_API_KEY", "")
	t.Setenv("DOUBAO_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	dir := t.TempDir()
	settings := config.NewStore(filepath.Join(dir, "config.json"), zerolog.Nop())
	if err := settings.Load(); err != nil {
		t.Fatalf("load settings: %v", err)
	}
	records := history.NewStore(filepath.Join(dir, "history.json"), 50, zerolog.Nop())
	if err := records.Load(); err != nil {
		t.Fatalf("load history: %v", err)
	}

	server := NewServer(settings, records, prompt.NewStore(), nil, nil, zerolog.Nop(), opts)
	return server, server.buildEcho(), records
}

func doRequest(e *echo.Echo, method, target string, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for key, value := range header {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v: %s", err, rec.Body.String())
	}
	return resp.Data
}

func TestHealthEndpoint(t *testing.T) {
	_, e, _ := newTestServer(t, Options{})

	rec := doRequest(e, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeData(t, rec)
	if data["service"] != "lens" {
		t.Fatalf("unexpected service %v", data["service"])
	}
}

func TestHistoryEndpoints(t *testing.T) {
	_, e, records := newTestServer(t, Options{})

	id, err := records.Add("hello", "你好", "en", "zh", nil)
	if err != nil {
		t.Fatalf("add record: %v", err)
	}
	if _, err := records.Add("world", "世界", "en", "zh", nil); err != nil {
		t.Fatalf("add record: %v", err)
	}

	rec := doRequest(e, http.MethodGet, "/api/v1/history?query=hello", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	items, ok := data["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 matching record, got %v", data["items"])
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/history/"+id, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(e, http.MethodDelete, "/api/v1/history/"+id, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = doRequest(e, http.MethodDelete, "/api/v1/history/"+id, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted record, got %d", rec.Code)
	}

	rec = doRequest(e, http.MethodPost, "/api/v1/history/clear", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := len(records.Records(0, "")); got != 0 {
		t.Fatalf("expected empty history, got %d records", got)
	}
}

func TestHistoryLimitValidation(t *testing.T) {
	_, e, _ := newTestServer(t, Options{})

	rec := doRequest(e, http.MethodGet, "/api/v1/history?limit=nope", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestConfigUpdateSection(t *testing.T) {
	server, e, _ := newTestServer(t, Options{})

	rec := doRequest(e, http.MethodPut, "/api/v1/config/llm", `{"temperature": 5.0}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	warnings, ok := data["warnings"].([]any)
	if !ok || len(warnings) == 0 {
		t.Fatalf("expected validation warnings for temperature 5.0, got %v", data["warnings"])
	}

	// Invalid values are retained, warnings or not.
	if got := server.settings.Settings().LLM.Temperature; got != 5.0 {
		t.Fatalf("expected temperature 5.0 retained, got %f", got)
	}

	rec = doRequest(e, http.MethodPut, "/api/v1/config/bogus", `{}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown section, got %d", rec.Code)
	}
}

func TestConfigGetRedactsAPIKey(t *testing.T) {
	server, e, _ := newTestServer(t, Options{})

	if _, err := server.settings.Apply("llm", func(st *config.Settings) {
		st.LLM.APIKey = "sk-secret"
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	rec := doRequest(e, http.MethodGet, "/api/v1/config", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "sk-secret") {
		t.Fatal("api key must not appear in responses")
	}
	data := decodeData(t, rec)
	if data["has_api_key"] != true {
		t.Fatalf("expected has_api_key true, got %v", data["has_api_key"])
	}
}

func TestAccessTokenRequired(t *testing.T) {
	hash, err := auth.HashToken("open-sesame")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	_, e, _ := newTestServer(t, Options{AccessTokenHash: hash})

	rec := doRequest(e, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/health", "", map[string]string{
		echo.HeaderAuthorization: "Bearer wrong-token",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/health", "", map[string]string{
		echo.HeaderAuthorization: "Bearer open-sesame",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
}

func TestTranslateUnavailableWithoutRunner(t *testing.T) {
	_, e, _ := newTestServer(t, Options{})

	rec := doRequest(e, http.MethodPost, "/api/v1/translate", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestTemplatesEndpoint(t *testing.T) {
	_, e, _ := newTestServer(t, Options{})

	rec := doRequest(e, http.MethodGet, "/api/v1/templates", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeData(t, rec)
	items, ok := data["items"].([]any)
	if !ok || len(items) < 6 {
		t.Fatalf("expected builtin templates, got %v", data["items"])
	}
}
