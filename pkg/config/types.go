package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config is the persistent thoughtstream configuration stored as config.toml
// in the .thoughtstream/ directory.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Proxy       ProxyConfig       `toml:"proxy"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Stream      StreamConfig      `toml:"stream"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
	Log         LogConfig         `toml:"log"`
}

// StorageConfig is shared by the gateway and the API. PostgresDSN wins over
// SQLitePath when both are set; with neither, records are kept in memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

type ProxyConfig struct {
	Provider string `toml:"provider,omitempty"`
	Upstream string `toml:"upstream,omitempty"`
	Listen   string `toml:"listen,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds the full URLs CLI commands use to reach the running
// gateway and API servers.
type ClientConfig struct {
	ProxyTarget string `toml:"proxy_target,omitempty"`
	APITarget   string `toml:"api_target,omitempty"`
}

// StreamConfig holds reconciliation settings.
type StreamConfig struct {
	// PublishIntervalMs is the client render throttle interval.
	PublishIntervalMs uint `toml:"publish_interval_ms,omitempty"`

	// ResultFields are replaced with an error placeholder on failure.
	ResultFields []string `toml:"result_fields,omitempty"`
}

// EventStreamConfig disables publishing when KafkaBrokers is empty.
type EventStreamConfig struct {
	KafkaBrokers []string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string   `toml:"kafka_topic,omitempty"`
}

type TelemetryConfig struct {
	TraceExporter string `toml:"trace_exporter,omitempty"`
	OTLPEndpoint  string `toml:"otlp_endpoint,omitempty"`
}

// LogConfig controls server logging. File, when set, receives a JSON copy of
// every record alongside the console output.
type LogConfig struct {
	Format string `toml:"format,omitempty"`
	File   string `toml:"file,omitempty"`
}

type keyKind int

const (
	kindString keyKind = iota
	kindUint
	kindList
)

// configKey binds a dotted key name to its field on *Config. Values cross
// the boundary as strings: lists are comma-separated and a zero uint is "".
type configKey struct {
	name string
	kind keyKind
	get  func(c *Config) string
	set  func(c *Config, v string) error
}

// configKeys lists every supported key in TOML section order.
var configKeys = []configKey{
	stringKey("storage.sqlite_path", func(c *Config) *string { return &c.Storage.SQLitePath }),
	stringKey("storage.postgres_dsn", func(c *Config) *string { return &c.Storage.PostgresDSN }),
	stringKey("proxy.provider", func(c *Config) *string { return &c.Proxy.Provider }),
	stringKey("proxy.upstream", func(c *Config) *string { return &c.Proxy.Upstream }),
	stringKey("proxy.listen", func(c *Config) *string { return &c.Proxy.Listen }),
	stringKey("proxy.model", func(c *Config) *string { return &c.Proxy.Model }),
	stringKey("proxy.api_key", func(c *Config) *string { return &c.Proxy.APIKey }),
	stringKey("api.listen", func(c *Config) *string { return &c.API.Listen }),
	stringKey("client.proxy_target", func(c *Config) *string { return &c.Client.ProxyTarget }),
	stringKey("client.api_target", func(c *Config) *string { return &c.Client.APITarget }),
	uintKey("stream.publish_interval_ms", func(c *Config) *uint { return &c.Stream.PublishIntervalMs }),
	listKey("stream.result_fields", func(c *Config) *[]string { return &c.Stream.ResultFields }),
	listKey("eventstream.kafka_brokers", func(c *Config) *[]string { return &c.EventStream.KafkaBrokers }),
	stringKey("eventstream.kafka_topic", func(c *Config) *string { return &c.EventStream.KafkaTopic }),
	enumKey("telemetry.trace_exporter", func(c *Config) *string { return &c.Telemetry.TraceExporter }, "none", "stdout", "otlp"),
	stringKey("telemetry.otlp_endpoint", func(c *Config) *string { return &c.Telemetry.OTLPEndpoint }),
	enumKey("log.format", func(c *Config) *string { return &c.Log.Format }, "pretty", "text", "json"),
	stringKey("log.file", func(c *Config) *string { return &c.Log.File }),
}

var configKeyIndex = func() map[string]configKey {
	idx := make(map[string]configKey, len(configKeys))
	for _, k := range configKeys {
		idx[k.name] = k
	}
	return idx
}()

func lookupKey(name string) (configKey, error) {
	k, ok := configKeyIndex[name]
	if !ok {
		return configKey{}, fmt.Errorf("unknown config key: %q", name)
	}
	return k, nil
}

func stringKey(name string, field func(*Config) *string) configKey {
	return configKey{
		name: name,
		kind: kindString,
		get:  func(c *Config) string { return *field(c) },
		set:  func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// enumKey accepts only the allowed values, or "" to unset.
func enumKey(name string, field func(*Config) *string, allowed ...string) configKey {
	k := stringKey(name, field)
	k.set = func(c *Config, v string) error {
		if v != "" && !contains(allowed, v) {
			return fmt.Errorf("invalid value for %s: %q (expected %s)", name, v, strings.Join(allowed, ", "))
		}
		*field(c) = v
		return nil
	}
	return k
}

func uintKey(name string, field func(*Config) *uint) configKey {
	return configKey{
		name: name,
		kind: kindUint,
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			if v == "" {
				*field(c) = 0
				return nil
			}
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func listKey(name string, field func(*Config) *[]string) configKey {
	return configKey{
		name: name,
		kind: kindList,
		get:  func(c *Config) string { return strings.Join(*field(c), ",") },
		set:  func(c *Config, v string) error { *field(c) = splitList(v); return nil },
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// splitList parses a comma-separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
