package config

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag describes one CLI flag shared across commands. Commands add flags by
// registry key so a flag that appears on both "serve" and "serve proxy" keeps
// one name, shorthand and description.
type Flag struct {
	Name        string
	Shorthand   string
	ViperKey    string
	Description string
}

// FlagSet maps registry keys to their flag definitions.
type FlagSet map[string]Flag

// Registry keys for DefaultFlags.
const (
	FlagProxyListen     = "proxy-listen"
	FlagAPIListen       = "api-listen"
	FlagUpstream        = "upstream"
	FlagProvider        = "provider"
	FlagModel           = "model"
	FlagAPIKey          = "api-key"
	FlagSQLite          = "sqlite"
	FlagPostgres        = "postgres"
	FlagKafkaBrokers    = "kafka-brokers"
	FlagKafkaTopic      = "kafka-topic"
	FlagPublishInterval = "publish-interval"
	FlagResultFields    = "result-fields"
	FlagTraceExporter   = "trace-exporter"
	FlagLogFormat       = "log-format"
	FlagLogFile         = "log-file"
	FlagAPITarget       = "api-target"
	FlagProxyTarget     = "proxy-target"

	// The standalone server commands expose --listen, bound to the key of
	// the server they run.
	FlagProxyListenStandalone = "proxy-listen-standalone"
	FlagAPIListenStandalone   = "api-listen-standalone"
)

// AddStringFlag registers the string flag for key on cmd, defaulting to the
// configured default of its viper key.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}
	cmd.Flags().StringVarP(target, def.Name, def.Shorthand, flagDefault(def.ViperKey), def.Description)
}

func AddUintFlag(cmd *cobra.Command, fs FlagSet, key string, target *uint) {
	def, ok := fs[key]
	if !ok {
		return
	}
	n, _ := strconv.ParseUint(flagDefault(def.ViperKey), 10, 0)
	cmd.Flags().UintVarP(target, def.Name, def.Shorthand, uint(n), def.Description)
}

// BindRegisteredFlags binds the flags for keys already added to cmd so they
// take precedence over env vars, the config file and defaults. Call it from
// PreRunE after InitViper.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}
		if f := cmd.Flags().Lookup(def.Name); f != nil {
			_ = v.BindPFlag(def.ViperKey, f)
		}
	}
}

// flagDefault returns the default of a config key in its string form.
func flagDefault(key string) string {
	k, ok := configKeyIndex[key]
	if !ok {
		return ""
	}
	return k.get(NewDefaultConfig())
}
