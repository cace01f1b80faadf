// Package api serves the catalog, uploads, execution and editor sessions over HTTP.
package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/backend"
	"github.com/meikuraledutech/pipeline/upload"
)

// Server wires the HTTP routes to the catalog, session store, upload store
// and processing backend.
type Server struct {
	app      *fiber.App
	catalog  *pipeline.Catalog
	sessions *Store
	uploads  *upload.Store
	exec     pipeline.Executor
	log      *slog.Logger
}

// ServerOption configures optional Server behavior.
type ServerOption func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// WithUploads enables POST /api/upload and serves stored files under /uploads.
func WithUploads(u *upload.Store) ServerOption {
	return func(s *Server) {
		s.uploads = u
	}
}

// NewServer builds the fiber application with every route registered.
func NewServer(catalog *pipeline.Catalog, sessions *Store, exec pipeline.Executor, opts ...ServerOption) *Server {
	s := &Server{
		catalog:  catalog,
		sessions: sessions,
		exec:     exec,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:   "pipeline",
		BodyLimit: 16 << 20,
	})
	s.app.Use(recoverer.New())
	s.app.Use(cors.New())
	s.app.Use(s.requestLogger())
	s.routes()
	return s
}

// App exposes the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() {
	a := s.app

	a.Get("/api/algorithms", s.listAlgorithms)
	a.Post("/api/execute", s.executeRequest)
	if s.uploads != nil {
		a.Post("/api/upload", s.uploadImage)
		a.Get("/uploads/*", static.New(s.uploads.Dir()))
	}

	a.Post("/api/sessions", s.createSession)
	a.Get("/api/sessions/:id", s.withSession(s.getSession))
	a.Delete("/api/sessions/:id", s.deleteSession)

	a.Post("/api/sessions/:id/nodes", s.withSession(s.dropNode))
	a.Delete("/api/sessions/:id/nodes", s.withSession(s.clearNodes))
	a.Delete("/api/sessions/:id/nodes/:nodeId", s.withSession(s.removeNode))
	a.Post("/api/sessions/:id/nodes/:nodeId/drag", s.withSession(s.dragNode))
	a.Put("/api/sessions/:id/nodes/:nodeId/parameters", s.withSession(s.setParameters))
	a.Get("/api/sessions/:id/nodes/:nodeId/region", s.withSession(s.getRegion))
	a.Put("/api/sessions/:id/nodes/:nodeId/region", s.withSession(s.setRegion))

	a.Put("/api/sessions/:id/selection", s.withSession(s.selectNode))
	a.Post("/api/sessions/:id/background", s.withSession(s.backgroundClick))
	a.Post("/api/sessions/:id/connection", s.withSession(s.connection))

	a.Post("/api/sessions/:id/edges", s.withSession(s.addEdge))
	a.Delete("/api/sessions/:id/edges/:edgeId", s.withSession(s.removeEdge))

	a.Get("/api/sessions/:id/lint", s.withSession(s.lint))
	a.Post("/api/sessions/:id/execute", s.withSession(s.executeSession))
}

func (s *Server) requestLogger() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		s.log.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidEdge),
		errors.Is(err, pipeline.ErrInvalidParameter),
		errors.Is(err, pipeline.ErrUnknownAlgorithm):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrUnknownNode):
		return fiber.StatusNotFound
	case errors.Is(err, pipeline.ErrBusy),
		errors.Is(err, pipeline.ErrGestureActive):
		return fiber.StatusConflict
	case errors.Is(err, pipeline.ErrMissingInput),
		errors.Is(err, pipeline.ErrEmptyGraph),
		errors.Is(err, pipeline.ErrSizePending),
		errors.Is(err, upload.ErrUnsupported),
		errors.Is(err, upload.ErrEmpty):
		return fiber.StatusBadRequest
	case errors.Is(err, upload.ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, backend.ErrTransport):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) fail(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
