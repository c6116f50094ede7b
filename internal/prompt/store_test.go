package prompt

import (
	"strings"
	"testing"
)

func TestStore_BuiltinsRegistered(t *testing.T) {
	t.Parallel()

	store := NewStore()
	names := store.Names()
	want := []string{"code_explain", "general_explain", "tech_doc", "translate", "translate_explain", "ui_text"}
	if len(names) != len(want) {
		t.Fatalf("unexpected template names: %v", names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("unexpected template at %d: got %q want %q", i, names[i], name)
		}
	}
}

func TestStore_FormatSubstitutesVariables(t *testing.T) {
	t.Parallel()

	store := NewStore()
	out, err := store.Format("translate", map[string]string{
		"text":            "Hello world",
		"target_language": "日本語",
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(out, "Hello world") {
		t.Fatalf("formatted prompt missing text: %q", out)
	}
	if !strings.Contains(out, "日本語") {
		t.Fatalf("formatted prompt missing target language: %q", out)
	}
	if strings.Contains(out, "{text}") || strings.Contains(out, "{target_language}") {
		t.Fatalf("formatted prompt still contains placeholders: %q", out)
	}
}

func TestStore_FormatMissingTemplate(t *testing.T) {
	t.Parallel()

	store := NewStore()
	if _, err := store.Format("no_such_template", nil); err == nil {
		t.Fatalf("expected error for missing template")
	}
}

func TestStore_FormatUndeclaredVariable(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.mu.Lock()
	store.templates["broken"] = Template{
		Name:      "broken",
		Body:      "translate {text} with {tone}",
		Variables: []string{"text"},
	}
	store.mu.Unlock()

	_, err := store.Format("broken", map[string]string{"text": "hi"})
	if err == nil || !strings.Contains(err.Error(), "tone") {
		t.Fatalf("expected undeclared-variable error naming tone, got %v", err)
	}
}

func TestValidate_ReportsUndeclaredPlaceholder(t *testing.T) {
	t.Parallel()

	errs := Validate(Template{
		Name:      "custom",
		Body:      "say {text} in {style}",
		Variables: []string{"text"},
	})
	if len(errs) != 1 || !strings.Contains(errs[0], "{style}") {
		t.Fatalf("unexpected validation errors: %v", errs)
	}
}

func TestStore_AddRejectsInvalid(t *testing.T) {
	t.Parallel()

	store := NewStore()
	err := store.Add(Template{Name: "bad", Body: "{nope}", Variables: nil})
	if err == nil {
		t.Fatalf("expected add to reject template with undeclared variable")
	}
}

func TestStore_LoadCustomRegistersSettingsTemplates(t *testing.T) {
	t.Parallel()

	store := NewStore()
	skipped := store.LoadCustom(map[string]string{
		"polite": "politely translate {text} to {target_language}",
		"":       "body without a name",
	})
	if len(skipped) != 1 || !strings.Contains(skipped[0], "name is empty") {
		t.Fatalf("unexpected skipped entries: %v", skipped)
	}

	out, err := store.Format("polite", map[string]string{
		"text":            "Hello",
		"target_language": "日本語",
	})
	if err != nil {
		t.Fatalf("format custom template: %v", err)
	}
	if !strings.Contains(out, "Hello") || !strings.Contains(out, "日本語") {
		t.Fatalf("custom template not substituted: %q", out)
	}
}

func TestStore_LoadCustomRemovesStaleAndRestoresBuiltins(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.LoadCustom(map[string]string{
		"polite":    "politely translate {text}",
		"translate": "custom override of {text}",
	})

	out, err := store.Format("translate", map[string]string{"text": "hi"})
	if err != nil {
		t.Fatalf("format shadowed builtin: %v", err)
	}
	if !strings.Contains(out, "custom override") {
		t.Fatalf("expected custom body to shadow the builtin, got %q", out)
	}

	store.LoadCustom(nil)
	if _, ok := store.Get("polite"); ok {
		t.Fatal("stale custom template must be removed")
	}
	tpl, ok := store.Get("translate")
	if !ok || strings.Contains(tpl.Body, "custom override") {
		t.Fatalf("builtin must be restored after the shadow is removed, got %+v", tpl)
	}
}

func TestCustomDeclaresPlaceholders(t *testing.T) {
	t.Parallel()

	tpl := Custom("polite", "say {text} in {target_language}, {text} again")
	if len(tpl.Variables) != 2 || tpl.Variables[0] != "text" || tpl.Variables[1] != "target_language" {
		t.Fatalf("unexpected variables %v", tpl.Variables)
	}
	if tpl.Category != "custom" {
		t.Fatalf("unexpected category %q", tpl.Category)
	}
}

func TestStore_AddAndRemoveCustom(t *testing.T) {
	t.Parallel()

	store := NewStore()
	err := store.Add(Template{
		Name:      "polite",
		Body:      "politely translate {text} to {target_language}",
		Variables: []string{"text", "target_language"},
		Category:  "translation",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, ok := store.Get("polite"); !ok {
		t.Fatalf("expected custom template to be registered")
	}
	store.Remove("polite")
	if _, ok := store.Get("polite"); ok {
		t.Fatalf("expected custom template to be removed")
	}
}
