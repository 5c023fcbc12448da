// Package services wires storage, event publishing and tracing for the
// serve commands.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/papercomputeco/thoughtstream/api"
	"github.com/papercomputeco/thoughtstream/pkg/config"
	"github.com/papercomputeco/thoughtstream/pkg/credentials"
	"github.com/papercomputeco/thoughtstream/pkg/eventstream"
	"github.com/papercomputeco/thoughtstream/pkg/eventstream/nop"
	eventstreamutils "github.com/papercomputeco/thoughtstream/pkg/eventstream/utils"
	"github.com/papercomputeco/thoughtstream/pkg/logger"
	"github.com/papercomputeco/thoughtstream/pkg/storage"
	storageutils "github.com/papercomputeco/thoughtstream/pkg/storage/utils"
	"github.com/papercomputeco/thoughtstream/pkg/telemetry"
	"github.com/papercomputeco/thoughtstream/pkg/utils"
	"github.com/papercomputeco/thoughtstream/proxy"
)

// shutdownTimeout bounds the trace exporter flush on exit.
const shutdownTimeout = 5 * time.Second

// Stack holds the shared dependencies of a running server process.
type Stack struct {
	Driver    storage.Driver
	Publisher eventstream.Publisher

	logger        *slog.Logger
	traceShutdown func(context.Context) error
}

// Open creates the storage driver, the record publisher and the tracer
// provider described by cfg. The publisher is only created when
// withPublisher is set.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger, withPublisher bool) (*Stack, error) {
	s := &Stack{logger: log}

	driver, _, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	s.Driver = driver

	if withPublisher {
		s.Publisher, err = eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
			KafkaBrokers: cfg.EventStream.KafkaBrokers,
			KafkaTopic:   cfg.EventStream.KafkaTopic,
			Logger:       log,
		})
		if err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	s.traceShutdown, err = telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "thoughtstream",
		ServiceVersion: utils.Version,
		Exporter:       cfg.Telemetry.TraceExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   true,
		Writer:         os.Stderr,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	return s, nil
}

// Close flushes traces and closes the publisher and the storage driver.
func (s *Stack) Close() error {
	var errs []error

	if s.traceShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		errs = append(errs, s.traceShutdown(ctx))
		cancel()
	}
	if s.Publisher != nil {
		if d, ok := s.Publisher.(*nop.Publisher); ok && d.Dropped() > 0 {
			s.logger.Debug("record events were not published", "dropped", d.Dropped())
		}
		errs = append(errs, s.Publisher.Close())
	}
	if s.Driver != nil {
		errs = append(errs, s.Driver.Close())
	}

	return errors.Join(errs...)
}

// NewLogger builds the process logger from the [log] section. Console output
// uses log.format; when log.file is set a JSON copy is appended there too.
// The returned close func releases the file.
func NewLogger(cfg *config.Config, debug bool) (*slog.Logger, func() error, error) {
	console := logger.New(
		logger.WithDebug(debug),
		logger.WithFormat(logger.ParseFormat(cfg.Log.Format)),
	)
	if cfg.Log.File == "" {
		return console, func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(debug),
		logger.WithFormat(logger.FormatJSON),
		logger.WithWriter(f),
	)
	return logger.Multi(console, file), f.Close, nil
}

// ResolveAPIKey fills cfg.Proxy.APIKey from stored credentials or the
// provider's environment variable when no key is configured.
func ResolveAPIKey(cfg *config.Config, configDir string, log *slog.Logger) error {
	if cfg.Proxy.APIKey != "" {
		log.Debug("using configured api key", "provider", cfg.Proxy.Provider)
		return nil
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	key, src, err := mgr.ResolveKey(cfg.Proxy.Provider)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	if src != credentials.SourceNone {
		log.Debug("resolved api key", "provider", cfg.Proxy.Provider, "source", string(src))
	}

	cfg.Proxy.APIKey = key
	return nil
}

// ProxyConfig maps cfg onto the gateway configuration.
func ProxyConfig(cfg *config.Config, pub eventstream.Publisher) proxy.Config {
	return proxy.Config{
		ListenAddr:   cfg.Proxy.Listen,
		ProviderType: cfg.Proxy.Provider,
		UpstreamURL:  cfg.Proxy.Upstream,
		APIKey:       cfg.Proxy.APIKey,
		Model:        cfg.Proxy.Model,
		ResultFields: cfg.Stream.ResultFields,
		Publisher:    pub,
	}
}

// APIConfig maps cfg onto the API server configuration.
func APIConfig(cfg *config.Config) api.Config {
	return api.Config{
		ListenAddr: cfg.API.Listen,
		Stream:     StreamSettings(cfg),
	}
}

// StreamSettings returns the reconciliation settings reported to clients.
func StreamSettings(cfg *config.Config) api.StreamSettings {
	return api.StreamSettings{
		PublishIntervalMs: cfg.Stream.PublishIntervalMs,
		ResultFields:      cfg.Stream.ResultFields,
	}
}

// Wait blocks until one of errs delivers an error or the process receives
// SIGINT or SIGTERM.
func Wait(log *slog.Logger, errs <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errs:
		return err
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
		return nil
	}
}
