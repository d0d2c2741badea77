package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mozuku/internal/config"
	"mozuku/internal/llm"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.LLM.Provider != llm.ProviderNone || cfg.LLM.MaxTokens != 1024 {
		t.Fatalf("llm defaults %+v", cfg.LLM)
	}
	for name, on := range cfg.EnabledRules() {
		if !on {
			t.Errorf("rule %s disabled by default", name)
		}
	}
	if len(cfg.EnabledRules()) != 8 {
		t.Errorf("got %d rule switches", len(cfg.EnabledRules()))
	}
	if got := len(cfg.Rules().Rules()); got != 8 {
		t.Errorf("engine has %d rules", got)
	}
	if cfg.AugmentOptions().Debounce != 1500*time.Millisecond {
		t.Errorf("debounce = %s", cfg.AugmentOptions().Debounce)
	}
}

func TestDecodeMinimal(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Decode(strings.NewReader("[llm]\nprovider = \"claude\"\n")); err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != "claude" || cfg.LLM.APIKey != "" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if !cfg.Checker.RaNuki || cfg.LLM.MaxTokens != 1024 {
		t.Error("absent keys should keep their defaults")
	}
}

func TestDecodeFull(t *testing.T) {
	const doc = `
[llm]
provider = "openai"
api_key = "sk-test-key"
model = "gpt-4o-mini"
max_tokens = 2048

[checker]
i_nuki = false
redundant_expression = false
consecutive_no = false

[dictionary]
particles = ["が", "を"]
ending_threshold = 4

[[dictionary.honorific]]
lemma = "おっしゃる"
continuative = "おっしゃい"

[[dictionary.redundant]]
pattern = ["一番", "最初"]
replacement = "{1}"

[augment]
debounce_ms = 500
min_confidence = 0.6
`
	cfg := config.Default()
	if err := cfg.Decode(strings.NewReader(doc)); err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.APIKey != "sk-test-key" || cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.MaxTokens != 2048 {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	rules := cfg.EnabledRules()
	if !rules["ra_nuki"] || rules["i_nuki"] || rules["redundant_expression"] || rules["consecutive_no"] {
		t.Errorf("checker = %+v", cfg.Checker)
	}
	if len(cfg.Rules().Rules()) != 5 {
		t.Errorf("engine has %d rules", len(cfg.Rules().Rules()))
	}
	d := cfg.Dictionary
	if len(d.Particles) != 2 || d.EndingThreshold != 4 || len(d.Honorifics) != 1 || len(d.Phrases) != 1 {
		t.Errorf("dictionary = %+v", d)
	}
	if d.Phrases[0].Replacement != "{1}" {
		t.Errorf("phrase = %+v", d.Phrases[0])
	}
	opts := cfg.AugmentOptions()
	if opts.Debounce != 500*time.Millisecond || opts.MinConfidence != 0.6 {
		t.Errorf("augment = %+v", opts)
	}
}

func TestDecodeInvalid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Decode(strings.NewReader("[llm\nprovider = 1")); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestMerge(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "claude"
	opts := map[string]any{
		"checker": map[string]any{"tari_parallel": false},
		"llm":     map[string]any{"model": "custom-model"},
	}
	if err := cfg.Merge(opts); err != nil {
		t.Fatal(err)
	}
	if cfg.Checker.TariParallel || !cfg.Checker.RaNuki {
		t.Errorf("checker = %+v", cfg.Checker)
	}
	if cfg.LLM.Provider != "claude" || cfg.LLM.Model != "custom-model" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
}

func TestMergeNested(t *testing.T) {
	cfg := config.Default()
	err := cfg.Merge(map[string]any{"mozuku": map[string]any{"checker": map[string]any{"ra_nuki": false}}})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Checker.RaNuki {
		t.Error("nested settings were ignored")
	}
	if err := cfg.Merge(nil); err != nil {
		t.Fatal(err)
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-claude")
	t.Setenv("OPENAI_API_KEY", "env-openai")

	cfg := config.Default()
	if cfg.LLMEnabled() {
		t.Fatal("provider none must be disabled")
	}
	cfg.LLM.Provider = "claude"
	if cfg.APIKey() != "env-claude" || !cfg.LLMEnabled() {
		t.Errorf("claude key = %q", cfg.APIKey())
	}
	cfg.LLM.Provider = "openai"
	if cfg.APIKey() != "env-openai" {
		t.Errorf("openai key = %q", cfg.APIKey())
	}
	cfg.LLM.APIKey = "explicit"
	if cfg.Provider().APIKey != "explicit" {
		t.Errorf("explicit key lost")
	}
}

func TestNoKeyDisables(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := config.Default()
	cfg.LLM.Provider = "claude"
	if cfg.LLMEnabled() {
		t.Fatal("missing key should disable")
	}
}

func TestNewProviderHonorsLLMEnabled(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := config.Default()
	cfg.LLM.Provider = "claude"
	if _, err := cfg.NewProvider(); !errors.Is(err, llm.ErrDisabled) {
		t.Fatalf("keyless provider: %v", err)
	}

	cfg.LLM.APIKey = "explicit"
	p, err := cfg.NewProvider()
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != llm.ProviderClaude {
		t.Errorf("provider %s", p.Name())
	}

	cfg.LLM.Provider = "none"
	if _, err := cfg.NewProvider(); !errors.Is(err, llm.ErrDisabled) {
		t.Errorf("provider none: %v", err)
	}
}

func TestLoadSearchOrder(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	if err := os.MkdirAll(filepath.Join(home, "mozuku"), 0o755); err != nil {
		t.Fatal(err)
	}
	write(t, filepath.Join(home, "mozuku", config.FileName), "[llm]\nmodel = \"user\"\n")

	workspace := t.TempDir()
	cfg, err := config.Load(workspace)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Model != "user" {
		t.Fatalf("model = %q, want the user file", cfg.LLM.Model)
	}

	write(t, filepath.Join(workspace, config.FileName), "[llm]\nmodel = \"workspace\"\n")
	cfg, err = config.Load(workspace)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Model != "workspace" {
		t.Fatalf("model = %q, want the workspace file", cfg.LLM.Model)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != llm.ProviderNone {
		t.Fatalf("provider = %q", cfg.LLM.Provider)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	t.Setenv("MOZUKU_TEST_KEPT", "process")

	workspace := t.TempDir()
	write(t, filepath.Join(workspace, ".env"), "OPENAI_API_KEY=from-dotenv\nMOZUKU_TEST_KEPT=dotenv\n")
	write(t, filepath.Join(workspace, config.FileName), "[llm]\nprovider = \"openai\"\n")

	cfg, err := config.Load(workspace)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey() != "from-dotenv" {
		t.Errorf("key = %q", cfg.APIKey())
	}
	if os.Getenv("MOZUKU_TEST_KEPT") != "process" {
		t.Error(".env overrode the process environment")
	}
	os.Unsetenv("OPENAI_API_KEY")
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
