// Package fiber serves the question-answering pipeline over HTTP.
package fiber

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fwojciec/edabot"
	edajson "github.com/fwojciec/edabot/json"
)

// Answerer is the pipeline as seen by the transport.
type Answerer interface {
	Answer(ctx context.Context, conv edabot.Conversation) (edabot.Envelope, error)
	Settings() edabot.Settings
}

// Config is the server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// RequestTimeout bounds a single query. Zero means no bound beyond the
	// pipeline's own timeouts.
	RequestTimeout time.Duration
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server exposes the pipeline at POST /v1/query.
type Server struct {
	config Config
	answer Answerer
	logger *zap.Logger
	app    *fiber.App
}

// New creates a Server and registers its routes.
func New(config Config, answer Answerer, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	s := &Server{
		config: config,
		answer: answer,
		logger: logger,
		app:    app,
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
	app.Get("/v1/settings", s.handleSettings)
	app.Post("/v1/query", s.handleQuery)
	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured address until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("starting server", zap.String("listen", s.config.ListenAddr))
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown stops accepting connections and waits for in-flight queries.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleSettings(c *fiber.Ctx) error {
	return c.JSON(s.answer.Settings())
}

// handleQuery answers one conversation. A failed model call is still rendered
// as an envelope, with 502 so callers can tell it apart from an answer.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	conv, err := edajson.UnmarshalQuery(c.Body())
	if err != nil {
		s.logger.Debug("rejected query", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	ctx := c.UserContext()
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	status := fiber.StatusOK
	env, err := s.answer.Answer(ctx, conv)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		env = edabot.FormatStreamFailure(err)
		status = fiber.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = fiber.StatusGatewayTimeout
		}
	}

	body, err := edajson.MarshalEnvelope(env)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "internal error"})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(status).Send(body)
}
