package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("ELIA_SYSTEM_PROMPT", "")
	t.Setenv("ELIA_DEFAULT_MODEL", "")
	t.Setenv("ELIA_THEME", "")
	t.Setenv("ELIA_MESSAGE_CODE_THEME", "")
	return dir
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultModel != "elia-gpt-4.1" {
		t.Errorf("default_model=%q", cfg.DefaultModel)
	}
	if cfg.SystemPrompt != "You are a helpful assistant named Elia." {
		t.Errorf("system_prompt=%q", cfg.SystemPrompt)
	}
	if cfg.MessageCodeTheme != "monokai" {
		t.Errorf("message_code_theme=%q", cfg.MessageCodeTheme)
	}
	if cfg.Theme != "nebula" {
		t.Errorf("theme=%q", cfg.Theme)
	}
	if len(cfg.Models) != 0 {
		t.Errorf("expected no user models, got %d", len(cfg.Models))
	}
	if got := len(cfg.BuiltinModels()); got != 8 {
		t.Errorf("expected 8 builtin models, got %d", got)
	}

	def, err := cfg.DefaultModelConfig()
	if err != nil {
		t.Fatalf("DefaultModelConfig: %v", err)
	}
	if def.Name != "gpt-4.1" || def.Temperature != 0.7 {
		t.Errorf("unexpected default model %+v", def)
	}
}

func TestLoadSystemPromptFromEnvDefault(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ELIA_SYSTEM_PROMPT", "You are a pirate.")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SystemPrompt != "You are a pirate." {
		t.Fatalf("system_prompt=%q", cfg.SystemPrompt)
	}

	// The file still wins over the environment default.
	path := writeConfig(t, `system_prompt = "From file."`)
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SystemPrompt != "From file." {
		t.Fatalf("system_prompt=%q, want file value", cfg.SystemPrompt)
	}
}

func TestLoadFromFile(t *testing.T) {
	isolateEnv(t)
	t.Setenv("WORK_KEY", "sk-work")

	path := writeConfig(t, `
default_model = "work-gpt"
system_prompt = "Be terse."
message_code_theme = "dracula"
theme = "galaxy"

[[models]]
id = "work-gpt"
name = "gpt-4o"
api_key = "${WORK_KEY}"
api_base = "https://llm.example.com/v1"
max_retries = 2

[[models]]
name = "llama3"
provider = "ollama"
api_base = "http://localhost:11434/v1"
temperature = 0.2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []ChatModel{
		{
			ID:          "work-gpt",
			Name:        "gpt-4o",
			APIKey:      Secret("sk-work"),
			APIBase:     "https://llm.example.com/v1",
			Temperature: 1.0,
			MaxRetries:  2,
		},
		{
			Name:        "llama3",
			Provider:    "ollama",
			APIBase:     "http://localhost:11434/v1",
			Temperature: 0.2,
		},
	}
	if diff := cmp.Diff(want, cfg.Models); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}
	if cfg.Theme != "galaxy" || cfg.MessageCodeTheme != "dracula" {
		t.Fatalf("theme=%q code theme=%q", cfg.Theme, cfg.MessageCodeTheme)
	}

	def, err := cfg.DefaultModelConfig()
	if err != nil {
		t.Fatalf("DefaultModelConfig: %v", err)
	}
	if def.APIKey.Value() != "sk-work" {
		t.Fatalf("expected user model to resolve, got %+v", def)
	}
}

func TestLoadRejectsEmptySystemPrompt(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, `system_prompt = "   "`)

	_, err := Load(path)
	if !errors.Is(err, ErrEmptySystemPrompt) {
		t.Fatalf("expected ErrEmptySystemPrompt, got %v", err)
	}
}

func TestLoadRejectsInvalidModels(t *testing.T) {
	isolateEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", "[[models]]\nid = \"x\"\n"},
		{"bad api_base", "[[models]]\nname = \"x\"\napi_base = \"not a url\"\n"},
		{"negative retries", "[[models]]\nname = \"x\"\nmax_retries = -1\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestEnvOverridesFile(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ELIA_THEME", "hacker")

	cfg, err := Load(writeConfig(t, `theme = "alpine"`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Theme != "hacker" {
		t.Fatalf("theme=%q, want env override", cfg.Theme)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides("elia-gpt-4o", "")
	if cfg.DefaultModel != "elia-gpt-4o" {
		t.Fatalf("default_model=%q", cfg.DefaultModel)
	}
	if cfg.Theme != DefaultTheme {
		t.Fatalf("theme changed unexpectedly: %q", cfg.Theme)
	}

	cfg.ApplyOverrides("", "cobalt")
	if cfg.DefaultModel != "elia-gpt-4o" || cfg.Theme != "cobalt" {
		t.Fatalf("unexpected overrides: %q %q", cfg.DefaultModel, cfg.Theme)
	}
}

func TestGetModel(t *testing.T) {
	cfg := Default()
	cfg.Models = []ChatModel{
		{ID: "personal-4o", Name: "gpt-4o"},
	}

	tests := []struct {
		key     string
		wantKey string
		wantErr bool
	}{
		{key: "elia-claude-3-5-haiku-20241022", wantKey: "elia-claude-3-5-haiku-20241022"},
		{key: "personal-4o", wantKey: "personal-4o"},
		// Name lookup returns the first match, so user models win.
		{key: "gpt-4o", wantKey: "personal-4o"},
		{key: "claude-3-7-sonnet-20250219", wantKey: "elia-claude-3-7-sonnet-20250219"},
		{key: "nope", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			m, err := cfg.GetModel(tc.key)
			if tc.wantErr {
				if !errors.Is(err, ErrModelNotFound) {
					t.Fatalf("expected ErrModelNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.LookupKey() != tc.wantKey {
				t.Fatalf("LookupKey()=%q, want %q", m.LookupKey(), tc.wantKey)
			}
		})
	}
}

func TestAllModelsPutsUserModelsFirst(t *testing.T) {
	cfg := Default()
	cfg.Models = []ChatModel{{Name: "mine"}}

	all := cfg.AllModels()
	if all[0].Name != "mine" {
		t.Fatalf("first model=%q, want user model", all[0].Name)
	}
	if all[1].LookupKey() != "elia-gpt-4.1" {
		t.Fatalf("second model=%q, want first builtin", all[1].LookupKey())
	}
}

func TestSecretNeverPrints(t *testing.T) {
	s := Secret("sk-123")
	if s.String() == "sk-123" {
		t.Fatal("String() leaked the secret")
	}
	data, err := s.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(data) != `"**********"` {
		t.Fatalf("MarshalJSON()=%s", data)
	}
	if Secret("").String() != "" {
		t.Fatal("empty secret should print empty")
	}
}

func TestResolveValue(t *testing.T) {
	t.Setenv("ELIA_TEST_KEY", "from-env")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"literal", "literal"},
		{"${ELIA_TEST_KEY}", "from-env"},
		{"$ELIA_TEST_KEY", "from-env"},
		{"  $ELIA_TEST_KEY  ", "from-env"},
		{"$(echo from-cmd)", "from-cmd"},
	}
	for _, tc := range tests {
		got, err := ResolveValue(tc.in)
		if err != nil {
			t.Fatalf("ResolveValue(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ResolveValue(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPaths(t *testing.T) {
	cfgHome := t.TempDir()
	dataHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	t.Setenv("XDG_DATA_HOME", dataHome)
	t.Setenv("ELIA_DB", "")

	themes, err := ThemeDir()
	if err != nil {
		t.Fatalf("ThemeDir: %v", err)
	}
	if themes != filepath.Join(cfgHome, "elia", "themes") {
		t.Errorf("ThemeDir()=%q", themes)
	}
	db, err := DatabasePath()
	if err != nil {
		t.Fatalf("DatabasePath: %v", err)
	}
	if db != filepath.Join(dataHome, "elia", "elia.sqlite") {
		t.Errorf("DatabasePath()=%q", db)
	}

	t.Setenv("ELIA_DB", "/tmp/other.sqlite")
	if db, _ := DatabasePath(); db != "/tmp/other.sqlite" {
		t.Errorf("ELIA_DB override ignored: %q", db)
	}
}
