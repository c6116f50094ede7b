package config

import (
	"fmt"
	"os"
	"strings"
)

// Provider names accepted in LLM settings. These mirror the wire families the
// LLM client understands.
const (
	ProviderOpenAI      = "openai"
	ProviderSiliconFlow = "siliconflow"
	ProviderDoubao      = "doubao"
	ProviderOllama      = "ollama"
	ProviderCustom      = "custom"
)

var defaultEndpoints = map[string]string{
	ProviderOpenAI:      "https://api.openai.com/v1/chat/completions",
	ProviderSiliconFlow: "https://api.siliconflow.cn/v1/chat/completions",
	ProviderDoubao:      "https://ark.cn-beijing.volces.com/api/v3/chat/completions",
	ProviderOllama:      "http://localhost:11434/api/generate",
}

var defaultModels = map[string]string{
	ProviderOpenAI:      "gpt-3.5-turbo",
	ProviderSiliconFlow: "deepseek-ai/deepseek-chat",
	ProviderDoubao:      "ep-20241010211228-dpc2p",
	ProviderOllama:      "llama2",
}

// envOverrideProviders is the precedence order for <PROVIDER>_API_KEY
// overrides: the first provider with a key set in the environment wins.
var envOverrideProviders = []string{ProviderSiliconFlow, ProviderDoubao, ProviderOpenAI}

// LLMSettings configures one translation backend.
type LLMSettings struct {
	Provider    string  `json:"provider"`
	APIKey      string  `json:"api_key"`
	APIEndpoint string  `json:"api_endpoint"`
	ModelName   string  `json:"model_name"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Timeout     int     `json:"timeout"`
	MaxRetries  int     `json:"max_retries"`
	Stream      bool    `json:"stream"`
}

func defaultLLMSettings() LLMSettings {
	return LLMSettings{
		Provider:    ProviderSiliconFlow,
		ModelName:   defaultModels[ProviderSiliconFlow],
		APIEndpoint: defaultEndpoints[ProviderSiliconFlow],
		Temperature: 0.7,
		MaxTokens:   2048,
		Timeout:     30,
		MaxRetries:  3,
		Stream:      true,
	}
}

// Validate reports out-of-range values. Findings are warnings: the stored
// values are retained as-is and surfaced, never silently replaced.
func (s LLMSettings) Validate() []string {
	var warnings []string
	if strings.TrimSpace(s.APIKey) == "" && s.Provider != ProviderOllama {
		warnings = append(warnings, "api_key is empty")
	}
	if strings.TrimSpace(s.ModelName) == "" {
		warnings = append(warnings, "model_name is empty")
	}
	if strings.TrimSpace(s.APIEndpoint) == "" {
		warnings = append(warnings, "api_endpoint is empty")
	}
	if s.Temperature < 0.0 || s.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("temperature %.2f outside 0.0-2.0", s.Temperature))
	}
	if s.MaxTokens < 1 || s.MaxTokens > 32768 {
		warnings = append(warnings, fmt.Sprintf("max_tokens %d outside 1-32768", s.MaxTokens))
	}
	if s.Timeout < 1 || s.Timeout > 300 {
		warnings = append(warnings, fmt.Sprintf("timeout %d outside 1-300 seconds", s.Timeout))
	}
	return warnings
}

// HotkeySettings is kept in the settings tree so configurations written by
// desktop builds round-trip, even though hotkey registration itself lives
// outside this module.
type HotkeySettings struct {
	Modifiers []string `json:"modifiers"`
	Key       string   `json:"key"`
	Enabled   bool     `json:"enabled"`
}

func defaultHotkeySettings() HotkeySettings {
	return HotkeySettings{Modifiers: []string{"alt"}, Key: "3", Enabled: true}
}

var validModifiers = map[string]struct{}{
	"ctrl": {}, "shift": {}, "alt": {}, "cmd": {}, "win": {},
}

func (s HotkeySettings) Validate() []string {
	var warnings []string
	if strings.TrimSpace(s.Key) == "" {
		warnings = append(warnings, "key is empty")
	}
	for _, modifier := range s.Modifiers {
		if _, ok := validModifiers[modifier]; !ok {
			warnings = append(warnings, fmt.Sprintf("invalid modifier %q", modifier))
		}
	}
	if len(s.Modifiers) > 4 {
		warnings = append(warnings, "more than 4 modifiers")
	}
	return warnings
}

// OCRSettings configures text recognition.
type OCRSettings struct {
	Enabled             bool     `json:"enabled"`
	Languages           []string `json:"languages"`
	GPU                 bool     `json:"gpu"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
	TextThreshold       float64  `json:"text_threshold"`
	LinkThreshold       float64  `json:"link_threshold"`
	CanvasSize          int      `json:"canvas_size"`
	MagRatio            float64  `json:"mag_ratio"`
}

func defaultOCRSettings() OCRSettings {
	return OCRSettings{
		Enabled:             true,
		Languages:           []string{"ch_sim", "en"},
		ConfidenceThreshold: 0.4,
		TextThreshold:       0.6,
		LinkThreshold:       0.4,
		CanvasSize:          2560,
		MagRatio:            1.0,
	}
}

func (s OCRSettings) Validate() []string {
	var warnings []string
	if len(s.Languages) == 0 {
		warnings = append(warnings, "no OCR languages selected")
	}
	if s.ConfidenceThreshold < 0.0 || s.ConfidenceThreshold > 1.0 {
		warnings = append(warnings, fmt.Sprintf("confidence_threshold %.2f outside 0.0-1.0", s.ConfidenceThreshold))
	}
	if s.TextThreshold < 0.0 || s.TextThreshold > 1.0 {
		warnings = append(warnings, fmt.Sprintf("text_threshold %.2f outside 0.0-1.0", s.TextThreshold))
	}
	if s.LinkThreshold < 0.0 || s.LinkThreshold > 1.0 {
		warnings = append(warnings, fmt.Sprintf("link_threshold %.2f outside 0.0-1.0", s.LinkThreshold))
	}
	if s.CanvasSize < 256 || s.CanvasSize > 4096 {
		warnings = append(warnings, fmt.Sprintf("canvas_size %d outside 256-4096", s.CanvasSize))
	}
	if s.MagRatio < 0.1 || s.MagRatio > 3.0 {
		warnings = append(warnings, fmt.Sprintf("mag_ratio %.2f outside 0.1-3.0", s.MagRatio))
	}
	return warnings
}

// PromptSettings selects the active prompt template.
type PromptSettings struct {
	ActiveTemplate  string            `json:"active_template"`
	CustomTemplates map[string]string `json:"custom_templates"`
}

func defaultPromptSettings() PromptSettings {
	return PromptSettings{ActiveTemplate: "translate", CustomTemplates: map[string]string{}}
}

func (s PromptSettings) Validate() []string {
	var warnings []string
	if strings.TrimSpace(s.ActiveTemplate) == "" {
		warnings = append(warnings, "active_template is empty")
	}
	for name, body := range s.CustomTemplates {
		if strings.TrimSpace(name) == "" {
			warnings = append(warnings, "custom template with empty name")
		}
		if strings.TrimSpace(body) == "" {
			warnings = append(warnings, fmt.Sprintf("custom template %q is empty", name))
		}
	}
	return warnings
}

// TranslationSettings selects source/target languages for the pipeline.
type TranslationSettings struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	PreserveFormat bool   `json:"preserve_format"`
}

func defaultTranslationSettings() TranslationSettings {
	return TranslationSettings{SourceLanguage: "auto", TargetLanguage: "简体中文", PreserveFormat: true}
}

func (s TranslationSettings) Validate() []string {
	var warnings []string
	if strings.TrimSpace(s.TargetLanguage) == "" {
		warnings = append(warnings, "target_language is empty")
	}
	return warnings
}

// UISettings round-trips presentation preferences for desktop builds.
type UISettings struct {
	Theme           string  `json:"theme"`
	Opacity         float64 `json:"opacity"`
	AutoCopy        bool    `json:"auto_copy"`
	ShowOriginal    bool    `json:"show_original"`
	FontSize        int     `json:"font_size"`
	WindowStayOnTop bool    `json:"window_stay_on_top"`
}

func defaultUISettings() UISettings {
	return UISettings{
		Theme:           "light",
		Opacity:         0.9,
		AutoCopy:        true,
		ShowOriginal:    true,
		FontSize:        12,
		WindowStayOnTop: true,
	}
}

func (s UISettings) Validate() []string {
	var warnings []string
	switch s.Theme {
	case "light", "dark", "auto":
	default:
		warnings = append(warnings, fmt.Sprintf("theme %q is not light, dark or auto", s.Theme))
	}
	if s.Opacity < 0.1 || s.Opacity > 1.0 {
		warnings = append(warnings, fmt.Sprintf("opacity %.2f outside 0.1-1.0", s.Opacity))
	}
	if s.FontSize < 8 || s.FontSize > 72 {
		warnings = append(warnings, fmt.Sprintf("font_size %d outside 8-72", s.FontSize))
	}
	return warnings
}

// HistorySettings configures the history store.
type HistorySettings struct {
	Enabled    bool `json:"enabled"`
	MaxRecords int  `json:"max_records"`
	AutoSave   bool `json:"auto_save"`
}

func defaultHistorySettings() HistorySettings {
	return HistorySettings{Enabled: true, MaxRecords: 100, AutoSave: true}
}

func (s HistorySettings) Validate() []string {
	var warnings []string
	if s.MaxRecords < 1 || s.MaxRecords > 1000 {
		warnings = append(warnings, fmt.Sprintf("max_records %d outside 1-1000", s.MaxRecords))
	}
	return warnings
}

// Settings is the full persisted settings tree. Unknown top-level keys in the
// file are ignored on load.
type Settings struct {
	Version     string              `json:"version"`
	LLM         LLMSettings         `json:"llm"`
	Hotkey      HotkeySettings      `json:"hotkey"`
	OCR         OCRSettings         `json:"ocr"`
	Prompt      PromptSettings      `json:"prompt"`
	Translation TranslationSettings `json:"translation"`
	UI          UISettings          `json:"ui"`
	History     HistorySettings     `json:"history"`
}

// DefaultSettings returns the tree every section falls back to.
func DefaultSettings() Settings {
	return Settings{
		Version:     "1.0.0",
		LLM:         defaultLLMSettings(),
		Hotkey:      defaultHotkeySettings(),
		OCR:         defaultOCRSettings(),
		Prompt:      defaultPromptSettings(),
		Translation: defaultTranslationSettings(),
		UI:          defaultUISettings(),
		History:     defaultHistorySettings(),
	}
}

// Validate collects warnings per section. Invalid values stay in place; the
// caller decides whether to surface or ignore them.
func (s Settings) Validate() map[string][]string {
	warnings := map[string][]string{}
	collect := func(section string, found []string) {
		if len(found) > 0 {
			warnings[section] = found
		}
	}
	collect("llm", s.LLM.Validate())
	collect("hotkey", s.Hotkey.Validate())
	collect("ocr", s.OCR.Validate())
	collect("prompt", s.Prompt.Validate())
	collect("translation", s.Translation.Validate())
	collect("ui", s.UI.Validate())
	collect("history", s.History.Validate())
	return warnings
}

// DefaultEndpoint returns the builtin endpoint of a provider, or "" for
// custom providers.
func DefaultEndpoint(provider string) string {
	return defaultEndpoints[strings.ToLower(strings.TrimSpace(provider))]
}

// DefaultModel returns the builtin default model of a provider.
func DefaultModel(provider string) string {
	return defaultModels[strings.ToLower(strings.TrimSpace(provider))]
}

// ApplyEnvOverrides overlays <PROVIDER>_API_KEY / <PROVIDER>_MODEL from the
// environment. Precedence is first-matching-provider-wins in the order
// siliconflow, doubao, openai. The endpoint is re-derived from the selected
// provider afterward.
func (s Settings) ApplyEnvOverrides() Settings {
	out := s
	for _, provider := range envOverrideProviders {
		prefix := strings.ToUpper(provider)
		key := strings.TrimSpace(os.Getenv(prefix + "_API_KEY"))
		if key == "" {
			continue
		}
		out.LLM.Provider = provider
		out.LLM.APIKey = key
		if model := strings.TrimSpace(os.Getenv(prefix + "_MODEL")); model != "" {
			out.LLM.ModelName = model
		} else {
			out.LLM.ModelName = defaultModels[provider]
		}
		break
	}
	if endpoint := DefaultEndpoint(out.LLM.Provider); endpoint != "" {
		out.LLM.APIEndpoint = endpoint
	}
	return out
}
