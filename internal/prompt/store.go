package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Template is one named prompt with {placeholder} variables.
type Template struct {
	Name        string
	Description string
	Body        string
	Category    string
	Variables   []string
}

// DefaultTemplateName is the fallback used when the configured active
// template cannot be resolved.
const DefaultTemplateName = "translate"

var placeholderRE = regexp.MustCompile(`\{([a-z_]+)\}`)

// Store holds builtin and custom templates. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewStore returns a store preloaded with the builtin templates.
func NewStore() *Store {
	s := &Store{templates: map[string]Template{}}
	for _, tpl := range builtinTemplates() {
		s.templates[tpl.Name] = tpl
	}
	return s
}

// Get returns a template by name.
func (s *Store) Get(name string) (Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[name]
	return tpl, ok
}

// Names lists all template names sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Categories lists the distinct template categories sorted.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, tpl := range s.templates {
		seen[tpl.Category] = struct{}{}
	}
	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// Custom builds a template from a raw body, declaring every placeholder
// found in it as a variable.
func Custom(name, body string) Template {
	var variables []string
	seen := map[string]struct{}{}
	for _, match := range placeholderRE.FindAllStringSubmatch(body, -1) {
		if _, ok := seen[match[1]]; ok {
			continue
		}
		seen[match[1]] = struct{}{}
		variables = append(variables, match[1])
	}
	return Template{Name: name, Body: body, Category: "custom", Variables: variables}
}

// LoadCustom replaces the store's contents with the builtins plus the
// given name→body custom set. A custom template may shadow a builtin;
// removing it from the set restores the builtin. Invalid entries are
// skipped and reported in the returned list.
func (s *Store) LoadCustom(custom map[string]string) []string {
	rebuilt := map[string]Template{}
	for _, tpl := range builtinTemplates() {
		rebuilt[tpl.Name] = tpl
	}

	var skipped []string
	for name, body := range custom {
		tpl := Custom(name, body)
		if errs := Validate(tpl); len(errs) > 0 {
			skipped = append(skipped, fmt.Sprintf("%s: %s", name, strings.Join(errs, "; ")))
			continue
		}
		rebuilt[tpl.Name] = tpl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = rebuilt
	return skipped
}

// Add registers a custom template after validating it.
func (s *Store) Add(tpl Template) error {
	if errs := Validate(tpl); len(errs) > 0 {
		return fmt.Errorf("invalid template %q: %s", tpl.Name, strings.Join(errs, "; "))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tpl.Name] = tpl
	return nil
}

// Remove deletes a template. Removing a missing name is not an error.
func (s *Store) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.templates, name)
}

// Format substitutes values into the named template. The text and
// target_language variables always have defaults; extra values are honored
// when the template declares them. Returns an error when the template is
// missing or references a variable with no value.
func (s *Store) Format(name string, values map[string]string) (string, error) {
	tpl, ok := s.Get(name)
	if !ok {
		return "", fmt.Errorf("template %q is not registered", name)
	}

	merged := map[string]string{
		"text":            "",
		"target_language": "简体中文",
	}
	for key, value := range values {
		merged[key] = value
	}

	var missing []string
	formatted := placeholderRE.ReplaceAllStringFunc(tpl.Body, func(match string) string {
		key := match[1 : len(match)-1]
		value, ok := merged[key]
		if !ok {
			missing = append(missing, key)
			return match
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template %q references undeclared variables: %s", name, strings.Join(missing, ", "))
	}
	return formatted, nil
}

// Validate checks a template definition: non-empty name and body, and every
// placeholder in the body declared in Variables.
func Validate(tpl Template) []string {
	var errs []string
	if strings.TrimSpace(tpl.Name) == "" {
		errs = append(errs, "name is empty")
	}
	if strings.TrimSpace(tpl.Body) == "" {
		errs = append(errs, "body is empty")
	}

	declared := map[string]struct{}{}
	for _, variable := range tpl.Variables {
		declared[variable] = struct{}{}
	}
	for _, match := range placeholderRE.FindAllStringSubmatch(tpl.Body, -1) {
		if _, ok := declared[match[1]]; !ok {
			errs = append(errs, fmt.Sprintf("undeclared variable {%s}", match[1]))
		}
	}
	return errs
}
