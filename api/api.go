package api

import (
	"log/slog"
	"net"
	"slices"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/thoughtstream/pkg/storage"
)

// Server is the API server for querying stored thought records
type Server struct {
	config Config
	storer storage.Driver
	logger *slog.Logger
	app    *fiber.App

	mu     sync.RWMutex
	stream StreamSettings
}

// NewServer creates a new API server.
// The storer is injected to allow sharing with other components
// (e.g., the proxy when both run in one process).
func NewServer(config Config, storer storage.Driver, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		storer: storer,
		logger: logger,
		app:    app,
	}
	s.SetStreamSettings(config.Stream)

	app.Get("/ping", s.handlePing)
	app.Get("/v1/config", s.handleConfig)
	app.Get("/v1/records", s.handleListRecords)
	app.Get("/v1/records/:id", s.handleGetRecord)

	return s
}

// SetStreamSettings replaces the settings reported by /v1/config. It is
// safe to call while the server is running.
func (s *Server) SetStreamSettings(st StreamSettings) {
	st.ResultFields = slices.Clone(st.ResultFields)

	s.mu.Lock()
	s.stream = st
	s.mu.Unlock()
}

// StreamSettings returns the settings currently reported by /v1/config.
func (s *Server) StreamSettings() StreamSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.stream
	st.ResultFields = slices.Clone(st.ResultFields)
	return st
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server", "listen", listener.Addr().String())
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
