package workflow

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/lens/internal/config"
	"horse.fit/lens/internal/langdetect"
	"horse.fit/lens/internal/language"
	"horse.fit/lens/internal/llm"
	"horse.fit/lens/internal/prompt"
)

// Recognizer extracts text from a captured image.
type Recognizer interface {
	Recognize(img image.Image, settings config.OCRSettings) (string, error)
}

// Completer sends one prompt to the configured model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*llm.Completion, error)
	Close()
}

// CompleterFactory builds a fresh Completer per run so that settings
// changes between runs always take effect.
type CompleterFactory func(cfg llm.Config) Completer

// HistoryWriter records a finished translation.
type HistoryWriter interface {
	Add(originalText, translatedText, sourceLanguage, targetLanguage string, metadata map[string]any) (string, error)
}

// Events receives progress notifications during a run. Implementations
// must not block; they are called on the run's goroutine.
type Events interface {
	WorkflowStarted(runID string)
	OCRCompleted(runID, text string)
	TranslationCompleted(runID string, completion *llm.Completion)
	WorkflowCompleted(runID string, result Result)
	ErrorOccurred(runID string, stage Stage, message string)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) WorkflowStarted(string)                       {}
func (NopEvents) OCRCompleted(string, string)                  {}
func (NopEvents) TranslationCompleted(string, *llm.Completion) {}
func (NopEvents) WorkflowCompleted(string, Result)             {}
func (NopEvents) ErrorOccurred(string, Stage, string)          {}

// Runner drives the capture → OCR → translate → record pipeline. All
// collaborators are injected; the runner holds no global state.
type Runner struct {
	config       *config.Store
	recognizer   Recognizer
	history      HistoryWriter
	prompts      *prompt.Store
	newCompleter CompleterFactory
	events       Events
	logger       zerolog.Logger
}

// NewRunner wires a runner. events may be nil to discard notifications;
// history may be nil to skip recording.
func NewRunner(cfg *config.Store, recognizer Recognizer, history HistoryWriter, prompts *prompt.Store, newCompleter CompleterFactory, events Events, logger zerolog.Logger) *Runner {
	if events == nil {
		events = NopEvents{}
	}
	return &Runner{
		config:       cfg,
		recognizer:   recognizer,
		history:      history,
		prompts:      prompts,
		newCompleter: newCompleter,
		events:       events,
		logger:       logger,
	}
}

// Job is a handle to an in-flight run.
type Job struct {
	runID  string
	done   chan struct{}
	result Result
}

// RunID identifies the run across event notifications.
func (j *Job) RunID() string {
	return j.runID
}

// Done is closed when the run finishes.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Result returns the outcome. Valid only after Done is closed.
func (j *Job) Result() Result {
	return j.result
}

// Wait blocks until the run finishes or the context is cancelled.
func (j *Job) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-j.done:
		return j.result, nil
	}
}

// Start launches a run on its own goroutine and returns its handle. A
// panicking run resolves to an error result instead of crashing the
// process.
func (r *Runner) Start(ctx context.Context, img image.Image, region Region) *Job {
	job := &Job{runID: uuid.NewString(), done: make(chan struct{})}
	go func() {
		defer close(job.done)
		defer func() {
			if recovered := recover(); recovered != nil {
				r.logger.Error().Any("panic", recovered).Str("run_id", job.runID).Msg("workflow panicked")
				job.result = r.fail(job.runID, StageWorkflow, fmt.Sprintf("workflow panicked: %v", recovered))
			}
		}()
		job.result = r.run(ctx, job.runID, img, region)
	}()
	return job
}

// Run executes the pipeline synchronously.
func (r *Runner) Run(ctx context.Context, img image.Image, region Region) Result {
	return r.run(ctx, uuid.NewString(), img, region)
}

func (r *Runner) run(ctx context.Context, runID string, img image.Image, region Region) Result {
	started := time.Now()
	r.events.WorkflowStarted(runID)
	settings := r.config.Settings()

	ocrText, err := r.recognizer.Recognize(img, settings.OCR)
	if err != nil {
		return r.fail(runID, StageOCR, fmt.Sprintf("text recognition failed: %v", err))
	}
	if strings.TrimSpace(ocrText) == "" {
		r.events.ErrorOccurred(runID, StageOCR, "no text recognized in the capture")
		return Result{RunID: runID, Type: ResultEmpty, Stage: StageOCR, Message: "no text recognized in the capture"}
	}
	r.events.OCRCompleted(runID, ocrText)

	sourceLanguage := settings.Translation.SourceLanguage
	if sourceLanguage == "" || sourceLanguage == "auto" {
		if detected := langdetect.DetectISO6391(ocrText); detected != "" {
			sourceLanguage = detected
		} else {
			sourceLanguage = "auto"
		}
	}

	promptText, err := r.buildPrompt(settings, ocrText)
	if err != nil {
		return r.fail(runID, StageWorkflow, fmt.Sprintf("build prompt: %v", err))
	}

	completer := r.newCompleter(llm.ConfigFromSettings(settings.LLM))
	defer completer.Close()

	completion, err := completer.Complete(ctx, promptText)
	if err != nil {
		return r.fail(runID, StageTranslation, fmt.Sprintf("translation failed: %v", err))
	}
	r.events.TranslationCompleted(runID, completion)

	metadata := map[string]any{
		"screenshot_region": region,
		"provider":          settings.LLM.Provider,
		"model":             completion.Model,
		"source_language":   sourceLanguage,
	}
	if r.history != nil {
		recordID, err := r.history.Add(ocrText, completion.Text, sourceLanguage, settings.Translation.TargetLanguage, metadata)
		if err != nil {
			// Recording is best effort; the translation still reaches
			// the user.
			r.logger.Error().Err(err).Str("run_id", runID).Msg("record translation history")
		} else {
			r.logger.Info().Str("record_id", recordID).Msg("translation recorded")
		}
	}

	result := Result{
		RunID:          runID,
		Type:           ResultSuccess,
		OriginalText:   ocrText,
		TranslatedText: completion.Text,
		Metadata:       metadata,
	}
	r.events.WorkflowCompleted(runID, result)
	r.logger.Info().
		Str("run_id", runID).
		Dur("elapsed", time.Since(started)).
		Msg("workflow complete")
	return result
}

// buildPrompt formats the active template, falling back to the default
// template when the configured one is missing or broken.
func (r *Runner) buildPrompt(settings config.Settings, text string) (string, error) {
	values := map[string]string{
		"text":            text,
		"target_language": language.DisplayName(settings.Translation.TargetLanguage),
	}

	name := strings.TrimSpace(settings.Prompt.ActiveTemplate)
	if name == "" {
		name = prompt.DefaultTemplateName
	}
	formatted, err := r.prompts.Format(name, values)
	if err == nil {
		return formatted, nil
	}
	if name != prompt.DefaultTemplateName {
		r.logger.Warn().Err(err).Str("template", name).Msg("active template unusable, falling back")
		return r.prompts.Format(prompt.DefaultTemplateName, values)
	}
	return "", err
}

func (r *Runner) fail(runID string, stage Stage, message string) Result {
	r.logger.Error().Str("run_id", runID).Str("stage", string(stage)).Msg(message)
	r.events.ErrorOccurred(runID, stage, message)
	return Result{RunID: runID, Type: ResultError, Stage: stage, Message: message}
}
