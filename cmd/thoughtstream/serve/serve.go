// Package servecmder provides the serve command with subcommands for running services.
package servecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/thoughtstream/api"
	apicmder "github.com/papercomputeco/thoughtstream/cmd/thoughtstream/serve/api"
	proxycmder "github.com/papercomputeco/thoughtstream/cmd/thoughtstream/serve/proxy"
	"github.com/papercomputeco/thoughtstream/cmd/thoughtstream/serve/services"
	"github.com/papercomputeco/thoughtstream/pkg/config"
	"github.com/papercomputeco/thoughtstream/proxy"
)

// serveFlags are the registry keys bound by the combined serve command.
var serveFlags = []string{
	config.FlagProxyListen,
	config.FlagAPIListen,
	config.FlagUpstream,
	config.FlagProvider,
	config.FlagModel,
	config.FlagAPIKey,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagResultFields,
	config.FlagTraceExporter,
	config.FlagLogFormat,
	config.FlagLogFile,
}

type ServeCommander struct {
	flags struct {
		proxyListen, apiListen, upstream, provider, model, apiKey string
		sqlite, postgres, kafkaBrokers, kafkaTopic, resultFields  string
		traceExporter, logFormat, logFile                         string
	}

	viper     *viper.Viper
	configDir string
	debug     bool
}

const serveLongDesc string = `Run thoughtstream services.

Use subcommands to run individual services or all services together:
  thoughtstream serve          Run both the gateway and the API server together
  thoughtstream serve api      Run just the API server
  thoughtstream serve proxy    Run just the streaming gateway

Settings come from flags, then THOUGHTSTREAM_* environment variables,
then config.toml, then defaults. Changes to config.toml are picked up
for the stream settings reported by /v1/config.`

const serveShortDesc string = "Run thoughtstream services"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, serveFlags)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	fs := config.DefaultFlags
	config.AddStringFlag(cmd, fs, config.FlagProxyListen, &cmder.flags.proxyListen)
	config.AddStringFlag(cmd, fs, config.FlagAPIListen, &cmder.flags.apiListen)
	config.AddStringFlag(cmd, fs, config.FlagUpstream, &cmder.flags.upstream)
	config.AddStringFlag(cmd, fs, config.FlagProvider, &cmder.flags.provider)
	config.AddStringFlag(cmd, fs, config.FlagModel, &cmder.flags.model)
	config.AddStringFlag(cmd, fs, config.FlagAPIKey, &cmder.flags.apiKey)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.flags.sqlite)
	config.AddStringFlag(cmd, fs, config.FlagPostgres, &cmder.flags.postgres)
	config.AddStringFlag(cmd, fs, config.FlagKafkaBrokers, &cmder.flags.kafkaBrokers)
	config.AddStringFlag(cmd, fs, config.FlagKafkaTopic, &cmder.flags.kafkaTopic)
	config.AddStringFlag(cmd, fs, config.FlagResultFields, &cmder.flags.resultFields)
	config.AddStringFlag(cmd, fs, config.FlagTraceExporter, &cmder.flags.traceExporter)
	config.AddStringFlag(cmd, fs, config.FlagLogFormat, &cmder.flags.logFormat)
	config.AddStringFlag(cmd, fs, config.FlagLogFile, &cmder.flags.logFile)

	cmd.AddCommand(apicmder.NewAPICmd())
	cmd.AddCommand(proxycmder.NewProxyCmd())

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	cfg, err := config.Resolve(c.viper)
	if err != nil {
		return err
	}

	log, closeLog, err := services.NewLogger(cfg, c.debug)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := services.ResolveAPIKey(cfg, c.configDir, log); err != nil {
		return err
	}

	stack, err := services.Open(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer stack.Close()

	p, err := proxy.New(services.ProxyConfig(cfg, stack.Publisher), stack.Driver, log)
	if err != nil {
		return fmt.Errorf("creating proxy: %w", err)
	}
	defer p.Close()

	apiServer := api.NewServer(services.APIConfig(cfg), stack.Driver, log)
	defer apiServer.Shutdown()

	config.Watch(c.viper, log, func(v *viper.Viper) {
		next, err := config.Resolve(v)
		if err != nil {
			log.Warn("ignoring config change", "err", err)
			return
		}
		st := services.StreamSettings(next)
		apiServer.SetStreamSettings(st)
		log.Info("stream settings reloaded",
			"publish_interval_ms", st.PublishIntervalMs,
			"result_fields", st.ResultFields,
		)
	})

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	go func() {
		if err := p.Run(); err != nil {
			errChan <- fmt.Errorf("proxy error: %w", err)
		}
	}()

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	return services.Wait(log, errChan)
}
