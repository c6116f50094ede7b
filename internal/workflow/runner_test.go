package workflow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/lens/internal/config"
	"horse.fit/lens/internal/llm"
	"horse.fit/lens/internal/prompt"
)

type stubRecognizer struct {
	text  string
	err   error
	calls int
}

func (s *stubRecognizer) Recognize(image.Image, config.OCRSettings) (string, error) {
	s.calls++
	return s.text, s.err
}

type stubCompleter struct {
	text       string
	err        error
	calls      int
	closed     bool
	lastPrompt string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (*llm.Completion, error) {
	s.calls++
	s.lastPrompt = prompt
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Completion{Text: s.text, Model: "stub-model"}, nil
}

func (s *stubCompleter) Close() {
	s.closed = true
}

type stubHistory struct {
	err     error
	entries [][2]string
}

func (s *stubHistory) Add(originalText, translatedText, _, _ string, _ map[string]any) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.entries = append(s.entries, [2]string{originalText, translatedText})
	return "record-1", nil
}

type recordingEvents struct {
	order      []string
	errorStage Stage
}

func (e *recordingEvents) WorkflowStarted(string) {
	e.order = append(e.order, "started")
}

func (e *recordingEvents) OCRCompleted(string, string) {
	e.order = append(e.order, "ocr")
}

func (e *recordingEvents) TranslationCompleted(string, *llm.Completion) {
	e.order = append(e.order, "translation")
}

func (e *recordingEvents) WorkflowCompleted(string, Result) {
	e.order = append(e.order, "completed")
}

func (e *recordingEvents) ErrorOccurred(_ string, stage Stage, _ string) {
	e.order = append(e.order, "error")
	e.errorStage = stage
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SILICONFLOW_API_KEY", "")
	t.Setenv("DOUBAO_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
}

func newTestRunner(t *testing.T, recognizer Recognizer, completer *stubCompleter, history HistoryWriter, events Events) *Runner {
	t.Helper()
	clearProviderEnv(t)

	store := config.NewStore(filepath.Join(t.TempDir(), "config.json"), zerolog.Nop())
	if err := store.Load(); err != nil {
		t.Fatalf("load config: %v", err)
	}
	factory := func(llm.Config) Completer { return completer }
	return NewRunner(store, recognizer, history, prompt.NewStore(), factory, events, zerolog.Nop())
}

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 10, 10))
}

func TestRunnerSuccessRecordsHistory(t *testing.T) {
	recognizer := &stubRecognizer{text: "hello world"}
	completer := &stubCompleter{text: "你好，世界"}
	history := &stubHistory{}
	events := &recordingEvents{}

	runner := newTestRunner(t, recognizer, completer, history, events)
	result := runner.Run(context.Background(), testImage(), Region{X: 1, Y: 2, Width: 3, Height: 4})

	if result.Type != ResultSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Type, result.Message)
	}
	if result.TranslatedText != "你好，世界" {
		t.Fatalf("unexpected translation %q", result.TranslatedText)
	}
	if len(history.entries) != 1 || history.entries[0][0] != "hello world" {
		t.Fatalf("unexpected history entries %v", history.entries)
	}
	if !completer.closed {
		t.Fatal("completer must be closed after the run")
	}

	want := []string{"started", "ocr", "translation", "completed"}
	if fmt.Sprint(events.order) != fmt.Sprint(want) {
		t.Fatalf("unexpected event order %v", events.order)
	}
}

func TestRunnerEmptyOCRSkipsTranslation(t *testing.T) {
	recognizer := &stubRecognizer{text: "   "}
	completer := &stubCompleter{text: "unused"}
	history := &stubHistory{}
	events := &recordingEvents{}

	runner := newTestRunner(t, recognizer, completer, history, events)
	result := runner.Run(context.Background(), testImage(), Region{})

	if result.Type != ResultEmpty || result.Stage != StageOCR {
		t.Fatalf("expected empty OCR result, got %+v", result)
	}
	if completer.calls != 0 {
		t.Fatal("translation must not run when OCR found nothing")
	}
	if len(history.entries) != 0 {
		t.Fatal("nothing must be recorded for an empty capture")
	}
	if events.errorStage != StageOCR {
		t.Fatalf("expected OCR error event, got %q", events.errorStage)
	}
}

func TestRunnerOCRFailure(t *testing.T) {
	recognizer := &stubRecognizer{err: errors.New("recognizer exploded")}
	completer := &stubCompleter{}
	events := &recordingEvents{}

	runner := newTestRunner(t, recognizer, completer, &stubHistory{}, events)
	result := runner.Run(context.Background(), testImage(), Region{})

	if result.Type != ResultError || result.Stage != StageOCR {
		t.Fatalf("expected OCR error, got %+v", result)
	}
	if completer.calls != 0 {
		t.Fatal("translation must not run after an OCR failure")
	}
}

func TestRunnerTranslationFailureSkipsHistory(t *testing.T) {
	recognizer := &stubRecognizer{text: "hello"}
	completer := &stubCompleter{err: &llm.AuthError{Provider: "siliconflow"}}
	history := &stubHistory{}
	events := &recordingEvents{}

	runner := newTestRunner(t, recognizer, completer, history, events)
	result := runner.Run(context.Background(), testImage(), Region{})

	if result.Type != ResultError || result.Stage != StageTranslation {
		t.Fatalf("expected translation error, got %+v", result)
	}
	if len(history.entries) != 0 {
		t.Fatal("failed translations must not be recorded")
	}
	if !completer.closed {
		t.Fatal("completer must be closed even on failure")
	}
}

func TestRunnerHistoryFailureIsNonFatal(t *testing.T) {
	recognizer := &stubRecognizer{text: "hello"}
	completer := &stubCompleter{text: "你好"}
	history := &stubHistory{err: errors.New("disk full")}

	runner := newTestRunner(t, recognizer, completer, history, &recordingEvents{})
	result := runner.Run(context.Background(), testImage(), Region{})

	if result.Type != ResultSuccess {
		t.Fatalf("history failure must not fail the run, got %+v", result)
	}
}

func TestRunnerStartResolvesJob(t *testing.T) {
	recognizer := &stubRecognizer{text: "hello"}
	completer := &stubCompleter{text: "你好"}

	runner := newTestRunner(t, recognizer, completer, &stubHistory{}, nil)
	job := runner.Start(context.Background(), testImage(), Region{})

	result, err := job.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if result.Type != ResultSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if job.RunID() == "" || result.RunID != job.RunID() {
		t.Fatalf("run ID mismatch: job %q result %q", job.RunID(), result.RunID)
	}
}

func TestRunnerUsesActiveCustomTemplate(t *testing.T) {
	recognizer := &stubRecognizer{text: "hello"}
	completer := &stubCompleter{text: "你好"}
	clearProviderEnv(t)

	store := config.NewStore(filepath.Join(t.TempDir(), "config.json"), zerolog.Nop())
	if err := store.Load(); err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := store.Apply("prompt", func(s *config.Settings) {
		s.Prompt.ActiveTemplate = "polite"
		s.Prompt.CustomTemplates = map[string]string{
			"polite": "politely translate {text} to {target_language}",
		}
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	prompts := prompt.NewStore()
	if skipped := prompts.LoadCustom(store.Settings().Prompt.CustomTemplates); len(skipped) != 0 {
		t.Fatalf("unexpected skipped templates %v", skipped)
	}

	factory := func(llm.Config) Completer { return completer }
	runner := NewRunner(store, recognizer, &stubHistory{}, prompts, factory, nil, zerolog.Nop())

	result := runner.Run(context.Background(), testImage(), Region{})
	if result.Type != ResultSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if !strings.Contains(completer.lastPrompt, "politely translate hello") {
		t.Fatalf("custom template not used, prompt was %q", completer.lastPrompt)
	}
}

func TestRunnerFallsBackToDefaultTemplate(t *testing.T) {
	recognizer := &stubRecognizer{text: "hello"}
	completer := &stubCompleter{text: "你好"}
	clearProviderEnv(t)

	store := config.NewStore(filepath.Join(t.TempDir(), "config.json"), zerolog.Nop())
	if err := store.Load(); err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := store.Apply("prompt", func(s *config.Settings) {
		s.Prompt.ActiveTemplate = "no-such-template"
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	factory := func(llm.Config) Completer { return completer }
	runner := NewRunner(store, recognizer, &stubHistory{}, prompt.NewStore(), factory, nil, zerolog.Nop())

	result := runner.Run(context.Background(), testImage(), Region{})
	if result.Type != ResultSuccess {
		t.Fatalf("expected fallback to the default template, got %+v", result)
	}
}
