package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	return NewStore(path, zerolog.Nop())
}

func TestStore_LoadMissingFileUsesDefaults(t *testing.T) {
	store := newTestStore(t)
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	settings := store.Settings()
	if settings.LLM.Provider != ProviderSiliconFlow {
		t.Fatalf("unexpected default provider: %q", settings.LLM.Provider)
	}
	if settings.Translation.SourceLanguage != "auto" {
		t.Fatalf("unexpected default source language: %q", settings.Translation.SourceLanguage)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	for _, key := range []string{"SILICONFLOW_API_KEY", "DOUBAO_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(key, "")
	}

	store := newTestStore(t)
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := store.Apply("llm", func(s *Settings) {
		s.LLM.Provider = ProviderOllama
		s.LLM.APIEndpoint = "http://localhost:11434/api/generate"
		s.LLM.ModelName = "qwen2.5"
		s.LLM.MaxTokens = 4096
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := store.Apply("ocr", func(s *Settings) {
		s.OCR.Languages = []string{"en", "ja"}
		s.OCR.ConfidenceThreshold = 0.55
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	reloaded := NewStore(store.Path(), zerolog.Nop())
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	want := store.Settings()
	// Env override re-derives the ollama endpoint from the provider; the
	// value saved above matches the builtin, so the trees must be equal.
	if got := reloaded.Settings(); !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestStore_UnknownTopLevelKeysIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	payload := `{"version":"1.0.0","surprise":{"x":1},"history":{"enabled":true,"max_records":5,"auto_save":true}}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	store := NewStore(path, zerolog.Nop())
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := store.Settings().History.MaxRecords; got != 5 {
		t.Fatalf("unexpected max_records: %d", got)
	}
}

func TestStore_InvalidValuesRetainedWithWarnings(t *testing.T) {
	store := newTestStore(t)
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	warnings, err := store.Apply("llm", func(s *Settings) {
		s.LLM.Temperature = 5.0
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(warnings) == 0 {
		t.Fatalf("expected validation warnings")
	}
	// The out-of-range value is flagged, not reverted.
	if got := store.Settings().LLM.Temperature; got != 5.0 {
		t.Fatalf("expected invalid temperature to be retained, got %.2f", got)
	}
}

func TestStore_OnChangeFiresForSection(t *testing.T) {
	store := newTestStore(t)
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	fired := 0
	store.OnChange("ocr", func() { fired++ })

	if _, err := store.Apply("ocr", func(s *Settings) { s.OCR.GPU = true }); err != nil {
		t.Fatalf("apply ocr: %v", err)
	}
	if _, err := store.Apply("llm", func(s *Settings) { s.LLM.Stream = false }); err != nil {
		t.Fatalf("apply llm: %v", err)
	}

	if fired != 1 {
		t.Fatalf("expected exactly one ocr notification, got %d", fired)
	}
}

func TestApplyEnvOverrides_FirstProviderWins(t *testing.T) {
	t.Setenv("SILICONFLOW_API_KEY", "sk-sf")
	t.Setenv("SILICONFLOW_MODEL", "Qwen/Qwen2.5-7B-Instruct")
	t.Setenv("DOUBAO_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-oa")

	settings := DefaultSettings().ApplyEnvOverrides()
	if settings.LLM.Provider != ProviderSiliconFlow {
		t.Fatalf("unexpected provider: %q", settings.LLM.Provider)
	}
	if settings.LLM.APIKey != "sk-sf" {
		t.Fatalf("unexpected api key: %q", settings.LLM.APIKey)
	}
	if settings.LLM.ModelName != "Qwen/Qwen2.5-7B-Instruct" {
		t.Fatalf("unexpected model: %q", settings.LLM.ModelName)
	}
	if settings.LLM.APIEndpoint != DefaultEndpoint(ProviderSiliconFlow) {
		t.Fatalf("unexpected endpoint: %q", settings.LLM.APIEndpoint)
	}
}

func TestApplyEnvOverrides_FallbackModel(t *testing.T) {
	t.Setenv("SILICONFLOW_API_KEY", "")
	t.Setenv("DOUBAO_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-oa")
	t.Setenv("OPENAI_MODEL", "")

	settings := DefaultSettings().ApplyEnvOverrides()
	if settings.LLM.Provider != ProviderOpenAI {
		t.Fatalf("unexpected provider: %q", settings.LLM.Provider)
	}
	if settings.LLM.ModelName != DefaultModel(ProviderOpenAI) {
		t.Fatalf("unexpected model: %q", settings.LLM.ModelName)
	}
}
