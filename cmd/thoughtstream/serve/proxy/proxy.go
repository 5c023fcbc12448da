// Package proxycmder provides the streaming gateway command.
package proxycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/thoughtstream/cmd/thoughtstream/serve/services"
	"github.com/papercomputeco/thoughtstream/pkg/config"
	"github.com/papercomputeco/thoughtstream/proxy"
)

var proxyFlags = []string{
	config.FlagProxyListenStandalone,
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

type proxyCommander struct {
	flags struct {
		listen, upstream, provider, model, apiKey string
		sqlite, postgres, kafkaBrokers, kafkaTopic string
		resultFields, traceExporter                string
		logFormat, logFile                         string
	}

	viper     *viper.Viper
	configDir string
	debug     bool
}

const proxyLongDesc string = `Run the streaming gateway.

The gateway asks the configured upstream LLM for a JSON thought record and
streams field-level change events to the client as server-sent events while
the record is still being generated. Finished records are stored and, when
Kafka brokers are configured, published as record.completed events.

Supported provider types: anthropic, openai, ollama`

const proxyShortDesc string = "Run the thoughtstream streaming gateway"

func NewProxyCmd() *cobra.Command {
	cmder := &proxyCommander{}

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: proxyShortDesc,
		Long:  proxyLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, proxyFlags)
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
	config.AddStringFlag(cmd, fs, config.FlagProxyListenStandalone, &cmder.flags.listen)
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

	return cmd
}

func (c *proxyCommander) run(ctx context.Context) error {
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

	errChan := make(chan error, 1)
	go func() {
		if err := p.Run(); err != nil {
			errChan <- fmt.Errorf("proxy error: %w", err)
		}
	}()

	return services.Wait(log, errChan)
}
