package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/papercomputeco/thoughtstream/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable read by InitViper.
const EnvPrefix = "THOUGHTSTREAM"

// InitViper returns a viper instance layered, from highest to lowest
// precedence, as bound flags, THOUGHTSTREAM_* env vars, config.toml in the
// resolved .thoughtstream/ directory, and NewDefaultConfig. Flags join the
// chain once BindRegisteredFlags is called.
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(target)
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// proxy.listen is read from THOUGHTSTREAM_PROXY_LISTEN.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// StringList reads a list key. Values set through the environment or flags
// arrive as one comma-separated string and are split.
func StringList(v *viper.Viper, key string) []string {
	raw := v.Get(key)
	if s, ok := raw.(string); ok {
		return splitList(s)
	}

	var out []string
	for _, item := range v.GetStringSlice(key) {
		out = append(out, splitList(item)...)
	}
	return out
}

// Watch re-reads the config file whenever it changes on disk and calls
// onChange after each successful reload. It is a no-op when no config file
// was found.
func Watch(v *viper.Viper, logger *slog.Logger, onChange func(*viper.Viper)) {
	if v.ConfigFileUsed() == "" {
		logger.Debug("no config file found, not watching")
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("config file changed", "file", e.Name, "op", e.Op.String())
		if onChange != nil {
			onChange(v)
		}
	})
	v.WatchConfig()
}

// setViperDefaults registers NewDefaultConfig under each dotted key.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("version", d.Version)
	for _, k := range configKeys {
		switch k.kind {
		case kindUint:
			n, _ := strconv.ParseUint(k.get(d), 10, 0)
			v.SetDefault(k.name, uint(n))
		case kindList:
			v.SetDefault(k.name, splitList(k.get(d)))
		default:
			v.SetDefault(k.name, k.get(d))
		}
	}
}

// Resolve reads the effective configuration out of v after defaults, the
// config file, the environment and bound flags have been applied.
func Resolve(v *viper.Viper) (*Config, error) {
	cfg := &Config{Version: v.GetInt("version")}
	for _, k := range configKeys {
		var raw string
		switch k.kind {
		case kindUint:
			raw = strconv.FormatUint(uint64(v.GetUint(k.name)), 10)
		case kindList:
			raw = strings.Join(StringList(v, k.name), ",")
		default:
			raw = v.GetString(k.name)
		}
		if err := k.set(cfg, raw); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
