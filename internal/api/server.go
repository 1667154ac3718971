// Package api exposes the statement processing pipeline over HTTP:
// statement submission, the credit and tax views, session deletion and
// a health probe.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"finsight/statement-hub/internal/config"
	"finsight/statement-hub/internal/logging"
	"finsight/statement-hub/internal/pipeline"
	"finsight/statement-hub/internal/session"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server wires the pipeline and session store behind a Fiber app.
type Server struct {
	app       *fiber.App
	cfg       *config.Config
	processor *pipeline.Processor
	sessions  *session.Store
	logger    logging.Logger
}

// New builds the HTTP server with all routes registered.
func New(cfg *config.Config, processor *pipeline.Processor, sessions *session.Store, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}

	app := fiber.New(fiber.Config{
		AppName:      "statement-hub",
		BodyLimit:    int(cfg.Upload.MaxFileBytes) * 4,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	})
	app.Use(recover.New())

	s := &Server{
		app:       app,
		cfg:       cfg,
		processor: processor,
		sessions:  sessions,
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Post("/process-statements", s.handleProcessStatements)
	s.app.Get("/cibil-data/:session_id", s.handleCreditView)
	s.app.Get("/tax-data/:session_id", s.handleTaxView)
	s.app.Delete("/session/:session_id", s.handleDeleteSession)
	s.app.Get("/health", s.handleHealth)
}

// App exposes the underlying Fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts serving on the configured address and blocks.
func (s *Server) Listen() error {
	s.logger.Info("http server starting",
		logging.Field{Key: "address", Value: s.cfg.Server.Address})
	return s.app.Listen(s.cfg.Server.Address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
