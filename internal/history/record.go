package history

import (
	"strconv"
	"strings"
	"time"
)

// Record is one persisted translation.
type Record struct {
	ID             string         `json:"id"`
	OriginalText   string         `json:"original_text"`
	TranslatedText string         `json:"translated_text"`
	SourceLanguage string         `json:"source_language"`
	TargetLanguage string         `json:"target_language"`
	Timestamp      string         `json:"timestamp"`
	Metadata       map[string]any `json:"metadata"`
}

// NewRecord builds a record with a millisecond-timestamp ID. Uniqueness is
// best-effort: two adds in the same millisecond share an ID, which the store
// tolerates because lookups return the most recent match.
func NewRecord(originalText, translatedText, sourceLanguage, targetLanguage string, metadata map[string]any) Record {
	now := time.Now()
	if metadata == nil {
		metadata = map[string]any{}
	}
	if sourceLanguage == "" {
		sourceLanguage = "auto"
	}
	if targetLanguage == "" {
		targetLanguage = "zh"
	}
	return Record{
		ID:             strconv.FormatInt(now.UnixMilli(), 10),
		OriginalText:   strings.TrimSpace(originalText),
		TranslatedText: strings.TrimSpace(translatedText),
		SourceLanguage: sourceLanguage,
		TargetLanguage: targetLanguage,
		Timestamp:      now.Format(time.RFC3339Nano),
		Metadata:       metadata,
	}
}

// MatchesSearch reports whether the record matches a case-insensitive
// substring query across its text and language fields. An empty query
// matches everything.
func (r Record) MatchesSearch(query string) bool {
	if query == "" {
		return true
	}
	query = strings.ToLower(query)
	return strings.Contains(strings.ToLower(r.OriginalText), query) ||
		strings.Contains(strings.ToLower(r.TranslatedText), query) ||
		strings.Contains(strings.ToLower(r.SourceLanguage), query) ||
		strings.Contains(strings.ToLower(r.TargetLanguage), query)
}
