// Package apicmder provides the thoughtstream API server cobra command.
package apicmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/thoughtstream/api"
	"github.com/papercomputeco/thoughtstream/cmd/thoughtstream/serve/services"
	"github.com/papercomputeco/thoughtstream/pkg/config"
)

var apiFlags = []string{
	config.FlagAPIListenStandalone,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagTraceExporter,
	config.FlagLogFormat,
	config.FlagLogFile,
}

type apiCommander struct {
	flags struct {
		listen, sqlite, postgres, traceExporter string
		logFormat, logFile                      string
	}

	viper *viper.Viper
	debug bool
}

const apiLongDesc string = `Run the thoughtstream API server for querying stored thought records.

Routes:
  GET /v1/records        List records, newest first (?limit=, ?status=)
  GET /v1/records/:id    Get one record
  GET /v1/config         Stream settings for clients`

const apiShortDesc string = "Run the thoughtstream API server"

func NewAPICmd() *cobra.Command {
	cmder := &apiCommander{}

	cmd := &cobra.Command{
		Use:   "api",
		Short: apiShortDesc,
		Long:  apiLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, apiFlags)
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
	config.AddStringFlag(cmd, fs, config.FlagAPIListenStandalone, &cmder.flags.listen)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.flags.sqlite)
	config.AddStringFlag(cmd, fs, config.FlagPostgres, &cmder.flags.postgres)
	config.AddStringFlag(cmd, fs, config.FlagTraceExporter, &cmder.flags.traceExporter)
	config.AddStringFlag(cmd, fs, config.FlagLogFormat, &cmder.flags.logFormat)
	config.AddStringFlag(cmd, fs, config.FlagLogFile, &cmder.flags.logFile)

	return cmd
}

func (c *apiCommander) run(ctx context.Context) error {
	cfg, err := config.Resolve(c.viper)
	if err != nil {
		return err
	}

	log, closeLog, err := services.NewLogger(cfg, c.debug)
	if err != nil {
		return err
	}
	defer closeLog()

	stack, err := services.Open(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer stack.Close()

	server := api.NewServer(services.APIConfig(cfg), stack.Driver, log)
	defer server.Shutdown()

	config.Watch(c.viper, log, func(v *viper.Viper) {
		next, err := config.Resolve(v)
		if err != nil {
			log.Warn("ignoring config change", "err", err)
			return
		}
		server.SetStreamSettings(services.StreamSettings(next))
	})

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	return services.Wait(log, errChan)
}
