package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/thoughtstream/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// Configer reads and writes config.toml inside a resolved .thoughtstream/
// directory.
type Configer struct {
	path string
}

func NewConfiger(override string) (*Configer, error) {
	path, err := dotdir.NewManager().Path(override, configFile)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	return &Configer{path: path}, nil
}

// GetTarget returns the path of the config file, which may not exist yet.
func (c *Configer) GetTarget() string {
	return c.path
}

// ValidConfigKeys returns every supported key in TOML section order.
func ValidConfigKeys() []string {
	keys := make([]string, len(configKeys))
	for i, k := range configKeys {
		keys[i] = k.name
	}
	return keys
}

func IsValidConfigKey(key string) bool {
	_, ok := configKeyIndex[key]
	return ok
}

// LoadConfig reads config.toml. A missing file yields NewDefaultConfig, and
// keys left unset in the file fall back to their defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	cfg := &Config{}
	found, err := dotdir.ReadTOML(c.path, cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return NewDefaultConfig(), nil
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills every unset key of cfg from NewDefaultConfig.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()
	for _, k := range configKeys {
		if k.get(cfg) != "" {
			continue
		}
		if d := k.get(defaults); d != "" {
			_ = k.set(cfg, d)
		}
	}
}

// SaveConfig writes cfg to config.toml, creating it if needed.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}
	return dotdir.WriteTOML(c.path, cfg)
}

// SetConfigValue validates value for key and persists it.
func (c *Configer) SetConfigValue(key string, value string) error {
	k, err := lookupKey(key)
	if err != nil {
		return err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	if err := k.set(cfg, value); err != nil {
		return err
	}
	return c.SaveConfig(cfg)
}

func (c *Configer) GetConfigValue(key string) (string, error) {
	k, err := lookupKey(key)
	if err != nil {
		return "", err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}
	return k.get(cfg), nil
}

// preset pins the provider settings for one upstream.
type preset struct {
	name     string
	upstream string
	model    string
}

var presets = []preset{
	{name: "openai", upstream: "https://api.openai.com/v1", model: "gpt-4o-mini"},
	{name: "anthropic", upstream: "https://api.anthropic.com", model: "claude-3-5-haiku-latest"},
	{name: "ollama", upstream: "http://localhost:11434", model: "llama3.2"},
}

// PresetConfig returns the default config pointed at the named provider.
func PresetConfig(name string) (*Config, error) {
	name = strings.ToLower(name)
	for _, p := range presets {
		if p.name != name {
			continue
		}
		cfg := NewDefaultConfig()
		cfg.Proxy.Provider = p.name
		cfg.Proxy.Upstream = p.upstream
		cfg.Proxy.Model = p.model
		return cfg, nil
	}
	return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
}

func ValidPresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.name
	}
	return names
}
