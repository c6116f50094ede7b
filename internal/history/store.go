package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const fileVersion = "1.0"

// ErrRecordNotFound is returned when a record ID does not exist.
var ErrRecordNotFound = errors.New("history record not found")

// file is the on-disk shape of the history store.
type file struct {
	Version      string   `json:"version"`
	CreatedAt    string   `json:"created_at"`
	TotalRecords int      `json:"total_records"`
	MaxRecords   int      `json:"max_records"`
	Records      []Record `json:"records"`
}

// Stats summarizes the stored records.
type Stats struct {
	TotalRecords        int            `json:"total_records"`
	MaxRecords          int            `json:"max_records"`
	OldestRecord        string         `json:"oldest_record,omitempty"`
	NewestRecord        string         `json:"newest_record,omitempty"`
	LanguagePairs       map[string]int `json:"language_pairs"`
	AvgOriginalLength   float64        `json:"avg_original_length"`
	AvgTranslatedLength float64        `json:"avg_translated_length"`
}

// Store is a size-capped, JSON-file-backed list of translation records.
// Newest records sit at the head. Every mutation is persisted with an atomic
// temp-file-plus-rename write and rolled back in memory if the write fails.
type Store struct {
	path       string
	maxRecords int
	logger     zerolog.Logger

	mu      sync.Mutex
	records []Record

	onAdded   []func(id string)
	onRemoved []func(id string)
	onUpdated []func()
}

// NewStore creates a history store backed by the JSON file at path. Call
// Load before first use.
func NewStore(path string, maxRecords int, logger zerolog.Logger) *Store {
	if maxRecords < 1 {
		maxRecords = 1
	}
	return &Store{path: path, maxRecords: maxRecords, logger: logger}
}

// OnRecordAdded registers a callback fired with the new record's ID.
func (s *Store) OnRecordAdded(callback func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAdded = append(s.onAdded, callback)
}

// OnRecordRemoved registers a callback fired with each dropped record's ID.
func (s *Store) OnRecordRemoved(callback func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemoved = append(s.onRemoved, callback)
}

// OnUpdated registers a callback fired after any change to the record list.
func (s *Store) OnUpdated(callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdated = append(s.onUpdated, callback)
}

// Load reads the history file. A missing file yields an empty store; a
// malformed file is reset to empty rather than failing startup. Individual
// records that fail to decode are skipped.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.records = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("read history file: %w", err)
	}

	var parsed file
	if err := json.Unmarshal(raw, &parsed); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("history file malformed, resetting")
		s.records = nil
		return nil
	}

	records := make([]Record, 0, len(parsed.Records))
	for _, record := range parsed.Records {
		if strings.TrimSpace(record.OriginalText) == "" && strings.TrimSpace(record.TranslatedText) == "" {
			continue
		}
		records = append(records, record)
	}
	s.records = records
	s.logger.Info().Int("records", len(records)).Msg("history loaded")
	return nil
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	payload := file{
		Version:      fileVersion,
		CreatedAt:    time.Now().Format(time.RFC3339Nano),
		TotalRecords: len(s.records),
		MaxRecords:   s.maxRecords,
		Records:      s.records,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

// Add inserts a translation at the head of the list. Adding an exact
// (original, translated) duplicate only refreshes the existing record's
// timestamp. The list is truncated from the tail to the configured cap, with
// a removed notification per dropped record. Returns the record ID.
func (s *Store) Add(originalText, translatedText, sourceLanguage, targetLanguage string, metadata map[string]any) (string, error) {
	if strings.TrimSpace(originalText) == "" || strings.TrimSpace(translatedText) == "" {
		return "", fmt.Errorf("history record requires original and translated text")
	}

	s.mu.Lock()
	record := NewRecord(originalText, translatedText, sourceLanguage, targetLanguage, metadata)

	for i := range s.records {
		if s.records[i].OriginalText == record.OriginalText && s.records[i].TranslatedText == record.TranslatedText {
			previousTimestamp := s.records[i].Timestamp
			s.records[i].Timestamp = record.Timestamp
			if err := s.saveLocked(); err != nil {
				s.records[i].Timestamp = previousTimestamp
				s.mu.Unlock()
				return "", err
			}
			id := s.records[i].ID
			updated := append([]func(){}, s.onUpdated...)
			s.mu.Unlock()
			for _, callback := range updated {
				callback()
			}
			return id, nil
		}
	}

	previous := s.records
	s.records = append([]Record{record}, s.records...)

	var dropped []Record
	if len(s.records) > s.maxRecords {
		dropped = append(dropped, s.records[s.maxRecords:]...)
		s.records = s.records[:s.maxRecords]
	}

	if err := s.saveLocked(); err != nil {
		s.records = previous
		s.mu.Unlock()
		return "", err
	}

	added := append([]func(string){}, s.onAdded...)
	removed := append([]func(string){}, s.onRemoved...)
	updated := append([]func(){}, s.onUpdated...)
	s.mu.Unlock()

	for _, callback := range added {
		callback(record.ID)
	}
	for _, record := range dropped {
		for _, callback := range removed {
			callback(record.ID)
		}
	}
	for _, callback := range updated {
		callback()
	}
	return record.ID, nil
}

// Records returns matching records, newest first. limit <= 0 means no limit.
func (s *Store) Records(limit int, query string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		if !record.MatchesSearch(query) {
			continue
		}
		out = append(out, record)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// ByID returns the most recent record with the given ID.
func (s *Store) ByID(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.ID == id {
			return record, nil
		}
	}
	return Record{}, ErrRecordNotFound
}

// Remove deletes one record by ID.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	for i, record := range s.records {
		if record.ID != id {
			continue
		}
		previous := s.records
		s.records = append(append([]Record{}, s.records[:i]...), s.records[i+1:]...)
		if err := s.saveLocked(); err != nil {
			s.records = previous
			s.mu.Unlock()
			return err
		}
		removed := append([]func(string){}, s.onRemoved...)
		updated := append([]func(){}, s.onUpdated...)
		s.mu.Unlock()
		for _, callback := range removed {
			callback(id)
		}
		for _, callback := range updated {
			callback()
		}
		return nil
	}
	s.mu.Unlock()
	return ErrRecordNotFound
}

// Clear removes all records.
func (s *Store) Clear() error {
	s.mu.Lock()
	previous := s.records
	s.records = nil
	if err := s.saveLocked(); err != nil {
		s.records = previous
		s.mu.Unlock()
		return err
	}
	removed := append([]func(string){}, s.onRemoved...)
	updated := append([]func(){}, s.onUpdated...)
	s.mu.Unlock()

	for _, record := range previous {
		for _, callback := range removed {
			callback(record.ID)
		}
	}
	for _, callback := range updated {
		callback()
	}
	return nil
}

// Statistics summarizes the stored records.
func (s *Store) Statistics() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		TotalRecords:  len(s.records),
		MaxRecords:    s.maxRecords,
		LanguagePairs: map[string]int{},
	}
	if len(s.records) == 0 {
		return stats
	}

	stats.OldestRecord = s.records[0].Timestamp
	stats.NewestRecord = s.records[0].Timestamp
	totalOriginal := 0
	totalTranslated := 0
	for _, record := range s.records {
		pair := record.SourceLanguage + " → " + record.TargetLanguage
		stats.LanguagePairs[pair]++
		totalOriginal += len([]rune(record.OriginalText))
		totalTranslated += len([]rune(record.TranslatedText))
		if record.Timestamp < stats.OldestRecord {
			stats.OldestRecord = record.Timestamp
		}
		if record.Timestamp > stats.NewestRecord {
			stats.NewestRecord = record.Timestamp
		}
	}
	stats.AvgOriginalLength = float64(totalOriginal) / float64(len(s.records))
	stats.AvgTranslatedLength = float64(totalTranslated) / float64(len(s.records))
	return stats
}

// ExportJSON writes all records to the given path as a standalone JSON
// document.
func (s *Store) ExportJSON(path string) error {
	s.mu.Lock()
	payload := struct {
		ExportTime   string   `json:"export_time"`
		TotalRecords int      `json:"total_records"`
		Records      []Record `json:"records"`
	}{
		ExportTime:   time.Now().Format(time.RFC3339Nano),
		TotalRecords: len(s.records),
		Records:      s.records,
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write history export: %w", err)
	}
	return nil
}

// Path returns the history file location.
func (s *Store) Path() string {
	return s.path
}
