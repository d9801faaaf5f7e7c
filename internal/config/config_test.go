package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("model = %q", cfg.Gemini.Model)
	}
	if cfg.Gemini.Backend != "rest" {
		t.Errorf("backend = %q", cfg.Gemini.Backend)
	}
	if cfg.Translation.ChunkSize != 3 {
		t.Errorf("chunk size = %d", cfg.Translation.ChunkSize)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("GEMINI_BACKEND", "sdk")
	t.Setenv("CHUNK_SIZE", "8")
	t.Setenv("PASSTHROUGH_COLUMN", "Type")
	t.Setenv("PASSTHROUGH_VALUE", "formula")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if cfg.Gemini.Model != "gemini-2.5-pro" || cfg.Gemini.Backend != "sdk" {
		t.Errorf("gemini = %+v", cfg.Gemini)
	}
	if cfg.Translation.ChunkSize != 8 {
		t.Errorf("chunk size = %d", cfg.Translation.ChunkSize)
	}
	if cfg.Translation.PassthroughColumn != "Type" || cfg.Translation.PassthroughValue != "formula" {
		t.Errorf("translation = %+v", cfg.Translation)
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Gemini:      GeminiConfig{APIKey: "k", Backend: "rest"},
			Translation: TranslationConfig{ChunkSize: 3},
		}
	}

	if err := base().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg := base()
	cfg.Gemini.Backend = "grpc"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown backend accepted")
	}

	cfg = base()
	cfg.Translation.ChunkSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero chunk size accepted")
	}

	cfg = base()
	cfg.OpenAI.EnableFallback = true
	if err := cfg.Validate(); err == nil {
		t.Error("fallback without OPENAI_API_KEY accepted")
	}
}

func TestPromptTable_For(t *testing.T) {
	table := DefaultPrompts()

	if tmpl := table.For("Hindi"); !strings.Contains(tmpl, "Hindi") {
		t.Errorf("Hindi template = %q", tmpl)
	}
	if table.For("hindi") != table.For("Hindi") {
		t.Error("lookup is case-sensitive")
	}
	if tmpl := table.For("Klingon"); tmpl != "" {
		t.Errorf("unknown language template = %q", tmpl)
	}
}

func TestLoadPrompts_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := "Hindi: custom hindi template\nTamil: translate into Tamil\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadPrompts(path)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if table.For("Hindi") != "custom hindi template" {
		t.Errorf("Hindi = %q", table.For("Hindi"))
	}
	if table.For("Tamil") != "translate into Tamil" {
		t.Errorf("Tamil = %q", table.For("Tamil"))
	}
	// Untouched defaults survive the merge.
	if table.For("Spanish") == "" {
		t.Error("Spanish default lost")
	}
}

func TestLoadPrompts_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte(":\n:::"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPrompts(path); err == nil {
		t.Fatal("expected error")
	}
}

func TestCreateDefaultPromptsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")

	if err := CreateDefaultPromptsFile(path); err != nil {
		t.Fatalf("error: %v", err)
	}
	table, err := LoadPrompts(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if table.For("Hindi") == "" {
		t.Error("written file is missing defaults")
	}

	if err := CreateDefaultPromptsFile(path); err == nil {
		t.Error("overwrite of existing file accepted")
	}
}
