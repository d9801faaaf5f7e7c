package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sheet-translator/internal/util"
)

// PromptTable maps a target language name to its translation instruction
// template. Templates may reference the target language via the {language}
// placeholder. Lookup for an unconfigured language returns the empty
// template; callers fall back to a generic instruction.
type PromptTable map[string]string

// DefaultPrompts returns the built-in instruction templates.
func DefaultPrompts() PromptTable {
	return PromptTable{
		"Hindi":    "You are an expert translator for educational assessment content. Translate the given content into Hindi (Devanagari script). Keep question numbering, option labels and numeric values unchanged. Use vocabulary appropriate for school-level assessments.",
		"Marathi":  "You are an expert translator for educational assessment content. Translate the given content into Marathi (Devanagari script). Keep question numbering, option labels and numeric values unchanged. Use vocabulary appropriate for school-level assessments.",
		"Spanish":  "You are an expert translator for educational assessment content. Translate the given content into Spanish. Keep question numbering, option labels and numeric values unchanged.",
		"French":   "You are an expert translator for educational assessment content. Translate the given content into French. Keep question numbering, option labels and numeric values unchanged.",
		"Japanese": "You are an expert translator for educational assessment content. Translate the given content into Japanese. Keep question numbering, option labels and numeric values unchanged.",
	}
}

// LoadPrompts reads a YAML language→template mapping and merges it over the
// defaults, so a user file can override or extend individual languages.
func LoadPrompts(path string) (PromptTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompts file: %w", err)
	}

	loaded := make(map[string]string)
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing prompts file %s: %w", path, err)
	}

	table := DefaultPrompts()
	for lang, tmpl := range loaded {
		table[lang] = tmpl
	}
	return table, nil
}

// CreateDefaultPromptsFile writes the built-in templates to path so users
// have a starting point to edit. Fails if the file already exists.
func CreateDefaultPromptsFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("prompts file already exists: %s", path)
	}
	data, err := yaml.Marshal(DefaultPrompts())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// For returns the template for a language, matching case-insensitively.
// Unknown languages get the empty template.
func (t PromptTable) For(language string) string {
	if tmpl, ok := t[language]; ok {
		return tmpl
	}
	want := util.Normalize(language)
	for lang, tmpl := range t {
		if util.Normalize(lang) == want {
			return tmpl
		}
	}
	return ""
}
