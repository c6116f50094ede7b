package language

import (
	"sort"
	"strings"
)

// Option is one selectable translation target language.
type Option struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type label struct {
	english string
	native  string
}

var targetLanguageLabels = map[string]label{
	"ar": {english: "Arabic", native: "العربية"},
	"de": {english: "German", native: "Deutsch"},
	"en": {english: "English", native: "English"},
	"es": {english: "Spanish", native: "Español"},
	"fr": {english: "French", native: "Français"},
	"it": {english: "Italian", native: "Italiano"},
	"ja": {english: "Japanese", native: "日本語"},
	"ko": {english: "Korean", native: "한국어"},
	"pt": {english: "Portuguese", native: "Português"},
	"ru": {english: "Russian", native: "Русский"},
	"th": {english: "Thai", native: "ไทย"},
	"vi": {english: "Vietnamese", native: "Tiếng Việt"},
	"zh": {english: "Simplified Chinese", native: "简体中文"},
	"zh-hant": {english: "Traditional Chinese", native: "繁体中文"},
}

// NormalizeTag normalizes a language tag to lowercase and "-" separators.
// Returns an empty string when the value is blank or contains invalid characters.
func NormalizeTag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	trimmed = strings.ReplaceAll(trimmed, "_", "-")
	parts := strings.Split(trimmed, "-")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !isAlphaLower(part) {
			return ""
		}
		normalized = append(normalized, part)
	}

	if len(normalized) == 0 {
		return ""
	}
	return strings.Join(normalized, "-")
}

// NormalizeCode returns the primary language subtag (for example, "en" from "en-US").
func NormalizeCode(raw string) string {
	tag := NormalizeTag(raw)
	if tag == "" {
		return ""
	}
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		return tag[:dash]
	}
	return tag
}

// DisplayName resolves a language code or free-form label to the name handed
// to translation prompts. Native names are preferred because models follow
// them more reliably for CJK targets. Unknown values pass through unchanged.
func DisplayName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return targetLanguageLabels["zh"].native
	}
	if entry, ok := targetLanguageLabels[NormalizeTag(trimmed)]; ok {
		return entry.native
	}
	return trimmed
}

// TargetOptions lists the selectable target languages in stable order.
func TargetOptions() []Option {
	codes := make([]string, 0, len(targetLanguageLabels))
	for code := range targetLanguageLabels {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	options := make([]Option, 0, len(codes))
	for _, code := range codes {
		options = append(options, Option{Code: code, Label: targetLanguageLabels[code].native})
	}
	return options
}

func isAlphaLower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
