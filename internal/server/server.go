// Package server provides the HTTP API for ragd.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/helioworks/ragd/internal/drive"
	"github.com/helioworks/ragd/internal/llm"
)

// promptTemplate frames every question with the retrieved context so
// the model answers from the documents rather than its own knowledge.
const promptTemplate = "Based only on the following context:\n\n%s\n\nAnswer this:\n%s"

const homePage = `<h1>Solar Regulation &amp; Finance Assistant is running</h1><p>POST /ingest to load documents, POST /query to ask questions.</p>`

// Ingester runs the document ingestion pipeline.
type Ingester interface {
	Run(ctx context.Context) ([]string, error)
}

// Retriever returns the top-k chunks most similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, []map[string]string, error)
}

// Generator produces an answer for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration

	// TopK is how many chunks back each answer.
	TopK int
}

// Server provides the HTTP endpoints for ragd.
type Server struct {
	echo      *echo.Echo
	ingester  Ingester
	retriever Retriever
	generator Generator
	metrics   *serverMetrics
	registry  *prometheus.Registry
	logger    *zap.Logger
	config    Config
}

// NewServer creates the HTTP server. A nil registry gets a fresh one.
func NewServer(ingester Ingester, retriever Retriever, generator Generator, logger *zap.Logger, cfg Config, registry *prometheus.Registry) (*Server, error) {
	if ingester == nil || retriever == nil || generator == nil {
		return nil, fmt.Errorf("ingester, retriever, and generator are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.TopK < 1 {
		cfg.TopK = 3
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	m := newServerMetrics(registry)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(m.middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		ingester:  ingester,
		retriever: retriever,
		generator: generator,
		metrics:   m,
		registry:  registry,
		logger:    logger,
		config:    cfg,
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/", s.handleHome)
	s.echo.POST("/ingest", s.handleIngest)
	s.echo.POST("/query", s.handleQuery)
	s.echo.POST("/webhook", s.handleWebhook)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

// QueryRequest is the request body for POST /query.
type QueryRequest struct {
	UserQuery string `json:"user_query"`
}

// QueryResponse is the response body for POST /query.
type QueryResponse struct {
	Answer        string   `json:"answer"`
	ContextChunks []string `json:"context_chunks"`
}

// WebhookRequest is the request body for POST /webhook, matching the
// shape Google Chat delivers.
type WebhookRequest struct {
	Message string `json:"message"`
	User    string `json:"user"`
}

// WebhookResponse is the response body for POST /webhook.
type WebhookResponse struct {
	Reply string `json:"reply"`
}

// IngestResponse is the response body for POST /ingest.
type IngestResponse struct {
	Status  string   `json:"status"`
	Files   []string `json:"files,omitempty"`
	Message string   `json:"message,omitempty"`
}

// handleHome returns a minimal liveness page.
func (s *Server) handleHome(c echo.Context) error {
	return c.HTML(http.StatusOK, homePage)
}

// handleIngest fetches PDFs from the source folder, embeds them, and
// stores them in the index. An empty folder is reported in the body
// with HTTP 200, not as a transport error.
func (s *Server) handleIngest(c echo.Context) error {
	files, err := s.ingester.Run(c.Request().Context())
	if err != nil {
		s.logger.Error("ingestion failed", zap.Error(err))
		return s.mapError(err)
	}

	if len(files) == 0 {
		return c.JSON(http.StatusOK, IngestResponse{
			Status:  "error",
			Message: "No PDFs found in Google Drive folder.",
		})
	}

	s.metrics.ingestedDocuments.Add(float64(len(files)))
	return c.JSON(http.StatusOK, IngestResponse{
		Status: "success",
		Files:  files,
	})
}

// handleQuery answers a question from the indexed documents.
func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid query request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.UserQuery) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_query field is required")
	}

	answer, chunks, err := s.answer(c.Request().Context(), req.UserQuery)
	if err != nil {
		return s.mapError(err)
	}

	return c.JSON(http.StatusOK, QueryResponse{
		Answer:        answer,
		ContextChunks: chunks,
	})
}

// handleWebhook answers a chat message. Same flow as /query with the
// request and response shapes Google Chat expects.
func (s *Server) handleWebhook(c echo.Context) error {
	var req WebhookRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid webhook request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}

	s.logger.Debug("webhook message", zap.String("user", req.User))

	answer, _, err := s.answer(c.Request().Context(), req.Message)
	if err != nil {
		return s.mapError(err)
	}

	return c.JSON(http.StatusOK, WebhookResponse{Reply: answer})
}

// answer retrieves the top chunks for the question, assembles the
// prompt, and asks the model. Chunks are joined with blank lines so
// the model sees them as separate passages.
func (s *Server) answer(ctx context.Context, question string) (string, []string, error) {
	chunks, _, err := s.retriever.Retrieve(ctx, question, s.config.TopK)
	if err != nil {
		s.metrics.queriesTotal.WithLabelValues("error").Inc()
		s.logger.Error("retrieval failed", zap.Error(err))
		return "", nil, err
	}
	if chunks == nil {
		chunks = []string{}
	}

	prompt := fmt.Sprintf(promptTemplate, strings.Join(chunks, "\n\n"), question)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrRateLimited) {
			s.metrics.queriesTotal.WithLabelValues("rate_limited").Inc()
		} else {
			s.metrics.queriesTotal.WithLabelValues("error").Inc()
		}
		s.logger.Error("generation failed", zap.Error(err))
		return "", nil, err
	}

	s.metrics.queriesTotal.WithLabelValues("ok").Inc()
	return answer, chunks, nil
}

// mapError translates pipeline errors into HTTP status codes.
func (s *Server) mapError(err error) error {
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "upstream model rate limited, retry later")
	case errors.Is(err, drive.ErrAuthentication):
		return echo.NewHTTPError(http.StatusBadGateway, "Google Drive authentication failed")
	case errors.Is(err, drive.ErrNotFound):
		return echo.NewHTTPError(http.StatusBadGateway, "Google Drive folder not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
