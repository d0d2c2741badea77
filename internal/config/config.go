// Package config assembles the server settings from built-in defaults, a
// mozuku.toml file, the client's initializationOptions and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mozuku/internal/augment"
	"mozuku/internal/llm"
	"mozuku/internal/rules"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("mozuku.config")

const FileName = "mozuku.toml"

type LLM struct {
	// Provider is "none" (or "disabled"), "claude" or "openai".
	Provider       string `toml:"provider"        json:"provider"`
	APIKey         string `toml:"api_key"         json:"api_key"`
	Model          string `toml:"model"           json:"model"`
	BaseURL        string `toml:"base_url"        json:"base_url"`
	MaxTokens      int    `toml:"max_tokens"      json:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds" json:"timeout_seconds"`
}

// Checker switches individual rules on and off.
type Checker struct {
	RaNuki              bool `toml:"ra_nuki"              json:"ra_nuki"`
	INuki               bool `toml:"i_nuki"               json:"i_nuki"`
	DoubleParticle      bool `toml:"double_particle"      json:"double_particle"`
	DoubleHonorific     bool `toml:"double_honorific"     json:"double_honorific"`
	RedundantExpression bool `toml:"redundant_expression" json:"redundant_expression"`
	ConsecutiveEndings  bool `toml:"consecutive_endings"  json:"consecutive_endings"`
	TariParallel        bool `toml:"tari_parallel"        json:"tari_parallel"`
	ConsecutiveNo       bool `toml:"consecutive_no"       json:"consecutive_no"`
}

type Augment struct {
	DebounceMS    int     `toml:"debounce_ms"    json:"debounce_ms"`
	MaxRetries    int     `toml:"max_retries"    json:"max_retries"`
	MinConfidence float64 `toml:"min_confidence" json:"min_confidence"`
	MaxSegments   int     `toml:"max_segments"   json:"max_segments"`
	Workers       int     `toml:"workers"        json:"workers"`
	QueueSize     int     `toml:"queue_size"     json:"queue_size"`
	// Cache keeps provider answers in a SQLite file under the state
	// directory. CachePath overrides the location.
	Cache         bool   `toml:"cache"           json:"cache"`
	CachePath     string `toml:"cache_path"      json:"cache_path"`
	CacheMaxHours int    `toml:"cache_max_hours" json:"cache_max_hours"`
}

type Config struct {
	LLM        LLM              `toml:"llm"        json:"llm"`
	Checker    Checker          `toml:"checker"    json:"checker"`
	Dictionary rules.Dictionary `toml:"dictionary" json:"dictionary"`
	Augment    Augment          `toml:"augment"    json:"augment"`
}

// Default returns the built-in settings. The dictionary is left empty; the
// rule engine fills it with its own data.
func Default() Config {
	return Config{
		LLM: LLM{
			Provider:       llm.ProviderNone,
			MaxTokens:      llm.DefaultMaxTokens,
			TimeoutSeconds: int(llm.DefaultTimeout / time.Second),
		},
		Checker: Checker{
			RaNuki:              true,
			INuki:               true,
			DoubleParticle:      true,
			DoubleHonorific:     true,
			RedundantExpression: true,
			ConsecutiveEndings:  true,
			TariParallel:        true,
			ConsecutiveNo:       true,
		},
		Augment: Augment{
			DebounceMS:    int(augment.DefaultDebounce / time.Millisecond),
			MaxRetries:    augment.DefaultMaxRetries,
			Workers:       2,
			QueueSize:     32,
			Cache:         true,
			CacheMaxHours: 24 * 30,
		},
	}
}

// Find returns the first mozuku.toml of the workspace root, then of the
// user configuration directory.
func Find(workspace string) (string, bool) {
	var candidates []string
	if workspace != "" {
		candidates = append(candidates, filepath.Join(workspace, FileName))
	}
	if dir, err := ConfigHome("mozuku"); err == nil {
		candidates = append(candidates, filepath.Join(dir, FileName))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

// Load reads the workspace .env file and the first mozuku.toml found for
// workspace on top of the defaults. A missing file is not an error.
func Load(workspace string) (Config, error) {
	cfg := Default()
	if workspace != "" {
		LoadEnv(filepath.Join(workspace, ".env"))
	}
	path, ok := Find(workspace)
	if !ok {
		return cfg, nil
	}
	if err := cfg.LoadFile(path); err != nil {
		return Default(), err
	}
	log.Infof("loaded %s", path)
	return cfg, nil
}

// LoadEnv adds the variables of a dotenv file to the process environment.
// Variables already set are kept.
func LoadEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warningf("reading %s: %v", path, err)
	}
}

// LoadFile decodes a TOML file over cfg. Keys absent from the file keep
// their current value.
func (c *Config) LoadFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return nil
}

// Decode reads TOML from r over cfg.
func (c *Config) Decode(r io.Reader) error {
	if _, err := toml.NewDecoder(r).Decode(c); err != nil {
		return fmt.Errorf("failed to parse TOML: %w", err)
	}
	return nil
}

// Merge overlays v, typically the client's initializationOptions or
// settings, on cfg. Only fields present in v overwrite.
func (c *Config) Merge(v any) error {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal source: %w", err)
	}
	if string(data) == "null" {
		return nil
	}
	// Clients may nest the settings under the server name.
	var wrapped struct {
		Mozuku json.RawMessage `json:"mozuku"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Mozuku) > 0 {
		data = wrapped.Mozuku
	}
	// Decoding reuses slice backing arrays, which may still be shared with
	// a rule engine built from an earlier copy.
	if err := c.detach(); err != nil {
		return err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to unmarshal into Config: %w", err)
	}
	return nil
}

func (c *Config) detach() error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	var fresh Config
	if err := json.Unmarshal(data, &fresh); err != nil {
		return err
	}
	*c = fresh
	return nil
}

// APIKey is the explicit key, else the provider's environment variable.
func (c Config) APIKey() string {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderClaude:
		return os.Getenv("ANTHROPIC_API_KEY")
	case llm.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

// LLMEnabled reports whether a provider is selected and has a key.
func (c Config) LLMEnabled() bool {
	p := strings.ToLower(c.LLM.Provider)
	return p != "" && p != llm.ProviderNone && p != "disabled" && c.APIKey() != ""
}

// NewProvider builds the configured provider. A configuration that
// LLMEnabled rejects fails with llm.ErrDisabled without consulting llm.New.
func (c Config) NewProvider() (llm.Provider, error) {
	if !c.LLMEnabled() {
		return nil, fmt.Errorf("%w: provider %q without an api key", llm.ErrDisabled, c.LLM.Provider)
	}
	return llm.New(c.Provider())
}

// Provider returns the provider settings with the key resolved.
func (c Config) Provider() llm.Config {
	return llm.Config{
		Provider:  c.LLM.Provider,
		APIKey:    c.APIKey(),
		Model:     c.LLM.Model,
		BaseURL:   c.LLM.BaseURL,
		MaxTokens: c.LLM.MaxTokens,
		Timeout:   time.Duration(c.LLM.TimeoutSeconds) * time.Second,
	}
}

// EnabledRules maps rule names to their switch.
func (c Config) EnabledRules() map[string]bool {
	return map[string]bool{
		"ra_nuki":              c.Checker.RaNuki,
		"i_nuki":               c.Checker.INuki,
		"double_particle":      c.Checker.DoubleParticle,
		"double_honorific":     c.Checker.DoubleHonorific,
		"redundant_expression": c.Checker.RedundantExpression,
		"consecutive_endings":  c.Checker.ConsecutiveEndings,
		"tari_parallel":        c.Checker.TariParallel,
		"consecutive_no":       c.Checker.ConsecutiveNo,
	}
}

// Rules builds the rule engine.
func (c Config) Rules() *rules.Engine {
	return rules.NewEngine(c.EnabledRules(), c.Dictionary)
}

func (c Config) AugmentOptions() augment.Options {
	return augment.Options{
		Debounce:      time.Duration(c.Augment.DebounceMS) * time.Millisecond,
		MaxRetries:    c.Augment.MaxRetries,
		MinConfidence: c.Augment.MinConfidence,
		MaxSegments:   c.Augment.MaxSegments,
	}
}

// CacheMaxAge is how long provider answers are kept.
func (c Config) CacheMaxAge() time.Duration {
	return time.Duration(c.Augment.CacheMaxHours) * time.Hour
}

// ConfigHome is $XDG_CONFIG_HOME/app, falling back to ~/.config/app.
func ConfigHome(app string) (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config", app)
}

// StateHome is $XDG_STATE_HOME/app, falling back to ~/.local/state/app. The
// directory is created.
func StateHome(app string) (string, error) {
	dir, err := xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"), app)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return dir, nil
}

func xdgDir(env, fallback, app string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, app), nil
}
