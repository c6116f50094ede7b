package workflow

// ResultType classifies a finished run for presentation.
type ResultType string

const (
	ResultSuccess ResultType = "success"
	ResultError   ResultType = "error"
	ResultWarning ResultType = "warning"
	ResultEmpty   ResultType = "empty"
)

// Stage names the pipeline step a failure is attributed to.
type Stage string

const (
	StageOCR         Stage = "ocr"
	StageTranslation Stage = "translation"
	StageWorkflow    Stage = "workflow"
)

// Region is the screen rectangle a capture came from, in desktop
// coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result is the outcome of one capture-to-translation run.
type Result struct {
	RunID          string         `json:"run_id"`
	Type           ResultType     `json:"type"`
	Stage          Stage          `json:"stage,omitempty"`
	OriginalText   string         `json:"original_text,omitempty"`
	TranslatedText string         `json:"translated_text,omitempty"`
	Message        string         `json:"message,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
