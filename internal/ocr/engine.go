package ocr

import (
	"fmt"
	"image"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"horse.fit/lens/internal/config"
)

// tesseractLanguages maps settings language codes onto tesseract traineddata
// names. Unknown codes are dropped with a warning.
var tesseractLanguages = map[string]string{
	"ch_sim": "chi_sim",
	"ch_tra": "chi_tra",
	"en":     "eng",
	"ja":     "jpn",
	"ko":     "kor",
	"fr":     "fra",
	"de":     "deu",
	"es":     "spa",
	"ru":     "rus",
	"ar":     "ara",
	"hi":     "hin",
	"th":     "tha",
	"vi":     "vie",
	"it":     "ita",
	"pt":     "por",
	"nl":     "nld",
	"pl":     "pol",
	"sv":     "swe",
	"da":     "dan",
	"no":     "nor",
	"fi":     "fin",
}

var defaultTesseractLanguages = []string{"chi_sim", "eng"}

const initMaxAttempts = 3

// Engine recognizes text in screenshots with tesseract. The recognizer is
// created lazily and rebuilt only when the language set changes. GPU is
// never used regardless of settings; tesseract runs on CPU only.
type Engine struct {
	logger      zerolog.Logger
	tessdataDir string

	mu               sync.Mutex
	client           *gosseract.Client
	currentLanguages []string
}

// Status is a snapshot of the engine for diagnostics.
type Status struct {
	Enabled             bool     `json:"enabled"`
	Ready               bool     `json:"ready"`
	Languages           []string `json:"languages"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
}

// NewEngine builds an engine. tessdataDir may be empty to use the system
// default traineddata location.
func NewEngine(tessdataDir string, logger zerolog.Logger) *Engine {
	return &Engine{logger: logger, tessdataDir: tessdataDir}
}

// Recognize runs OCR on the image and returns reconstructed multi-line
// text. An empty string with nil error means nothing was recognized.
// Disabled recognition is not an error: it yields the empty string.
func (e *Engine) Recognize(img image.Image, settings config.OCRSettings) (string, error) {
	if !settings.Enabled {
		e.logger.Debug().Msg("recognition disabled, skipping")
		return "", nil
	}
	results, err := e.DetailedResults(img, settings)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		e.logger.Info().Msg("no text recognized")
		return "", nil
	}
	text := ExtractTextWithLayout(results)
	e.logger.Info().Int("fragments", len(results)).Msg("recognition complete")
	return text, nil
}

// DetailedResults runs OCR and returns the filtered per-fragment results.
func (e *Engine) DetailedResults(img image.Image, settings config.OCRSettings) ([]Result, error) {
	if img == nil {
		return nil, ErrInvalidInput
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("%w: zero-sized image", ErrInvalidInput)
	}
	if !settings.Enabled {
		return nil, ErrDisabled
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureClientLocked(settings.Languages); err != nil {
		return nil, err
	}

	encoded, err := preprocess(img, settings)
	if err != nil {
		return nil, fmt.Errorf("preprocess image: %w", err)
	}
	if err := e.client.SetImageFromBytes(encoded); err != nil {
		return nil, fmt.Errorf("load image into recognizer: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	raw := make([]Result, 0, len(boxes))
	for _, box := range boxes {
		raw = append(raw, NewResult(box.Word, box.Confidence/100, rectPolygon(box.Box)))
	}
	return filterByConfidence(raw, settings.ConfidenceThreshold), nil
}

// ensureClientLocked brings up the recognizer for the given language set,
// reusing the existing one when the set is unchanged. Transient failures
// (model downloads, locked files) are retried with capped backoff.
func (e *Engine) ensureClientLocked(languages []string) error {
	valid := validLanguages(languages, e.logger)
	if e.client != nil && equalStrings(e.currentLanguages, valid) {
		return nil
	}
	e.closeClientLocked()

	if err := checkTessdata(e.tessdataDir); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < initMaxAttempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<attempt) * time.Second
			if wait > 5*time.Second {
				wait = 5 * time.Second
			}
			e.logger.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("recognizer init failed, retrying")
			time.Sleep(wait)
		}

		client := gosseract.NewClient()
		if e.tessdataDir != "" {
			if err := client.SetTessdataPrefix(e.tessdataDir); err != nil {
				client.Close()
				lastErr = err
				if !retryableInit(err) {
					return &InitError{Languages: valid, Cause: err}
				}
				continue
			}
		}
		if err := client.SetLanguage(valid...); err != nil {
			client.Close()
			lastErr = err
			if !retryableInit(err) {
				return &InitError{Languages: valid, Cause: err}
			}
			continue
		}

		e.client = client
		e.currentLanguages = valid
		e.logger.Info().Strs("languages", valid).Msg("recognizer initialized")
		return nil
	}
	return &InitError{Languages: valid, Cause: lastErr}
}

// checkTessdata verifies the configured traineddata directory exists and
// holds at least one model. An empty dir defers to the system default
// location, which tesseract resolves itself.
func checkTessdata(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &DependencyError{
			Message: fmt.Sprintf("tesseract language data directory %q is not readable; install tesseract traineddata files or unset LENS_TESSDATA_DIR", dir),
			Cause:   err,
		}
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".traineddata") {
			return nil
		}
	}
	return &DependencyError{
		Message: fmt.Sprintf("no .traineddata files in %q; download models from https://github.com/tesseract-ocr/tessdata", dir),
	}
}

// retryableInit reports whether an init failure looks transient, such as a
// traineddata download in progress or a locked model file.
func retryableInit(err error) bool {
	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "permission denied"):
		return true
	case strings.Contains(message, "being used by another process"),
		strings.Contains(message, "another program is using this file"):
		return true
	case strings.Contains(message, "download") && strings.Contains(message, "model"):
		return true
	}
	return false
}

// validLanguages maps settings codes to traineddata names, dropping unknown
// codes. An empty result falls back to simplified Chinese plus English.
func validLanguages(languages []string, logger zerolog.Logger) []string {
	valid := make([]string, 0, len(languages))
	for _, lang := range languages {
		mapped, ok := tesseractLanguages[strings.TrimSpace(lang)]
		if !ok {
			logger.Warn().Str("language", lang).Msg("unsupported language code")
			continue
		}
		valid = append(valid, mapped)
	}
	if len(valid) == 0 {
		logger.Warn().Msg("no valid languages, falling back to chi_sim+eng")
		valid = append(valid, defaultTesseractLanguages...)
	}
	return valid
}

// filterByConfidence keeps results at or above the threshold. Results above
// a fallback floor of max(0.2, threshold/2) are kept aside: they replace an
// empty primary set entirely, and pad a sparse one (three or fewer hits).
func filterByConfidence(raw []Result, threshold float64) []Result {
	fallbackThreshold := threshold * 0.5
	if fallbackThreshold < 0.2 {
		fallbackThreshold = 0.2
	}

	var primary, lowConfidence []Result
	for _, result := range raw {
		text := strings.TrimSpace(result.Text)
		if text == "" {
			continue
		}
		result.Text = text
		switch {
		case result.Confidence >= threshold:
			primary = append(primary, result)
		case result.Confidence >= fallbackThreshold:
			lowConfidence = append(lowConfidence, result)
		}
	}

	if len(primary) == 0 && len(lowConfidence) > 0 {
		return lowConfidence
	}
	if len(lowConfidence) > 0 && len(primary) <= 3 {
		return append(primary, lowConfidence...)
	}
	return primary
}

// Ready reports whether the recognizer can be brought up for the settings.
func (e *Engine) Ready(settings config.OCRSettings) bool {
	if !settings.Enabled {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensureClientLocked(settings.Languages) == nil
}

// Status returns a diagnostics snapshot without touching the recognizer.
func (e *Engine) Status(settings config.OCRSettings) Status {
	e.mu.Lock()
	languages := append([]string{}, e.currentLanguages...)
	ready := e.client != nil
	e.mu.Unlock()
	return Status{
		Enabled:             settings.Enabled,
		Ready:               ready,
		Languages:           languages,
		ConfidenceThreshold: settings.ConfidenceThreshold,
	}
}

// SupportedLanguages lists the settings codes the engine accepts, sorted.
func SupportedLanguages() []string {
	codes := make([]string, 0, len(tesseractLanguages))
	for code := range tesseractLanguages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Invalidate drops the current recognizer so the next recognition rebuilds
// it. Called when OCR settings change.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeClientLocked()
}

// Close releases the recognizer.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.Invalidate()
}

func (e *Engine) closeClientLocked() {
	if e.client != nil {
		_ = e.client.Close()
		e.client = nil
		e.currentLanguages = nil
	}
}

func rectPolygon(r image.Rectangle) []image.Point {
	return []image.Point{
		{X: r.Min.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Min.Y},
		{X: r.Max.X, Y: r.Max.Y},
		{X: r.Min.X, Y: r.Max.Y},
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
