package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/park285/chess-narrator/internal/chesscom"
	"github.com/park285/chess-narrator/internal/domain"
	"github.com/park285/chess-narrator/internal/metrics"
	"github.com/park285/chess-narrator/internal/pipeline"
	"github.com/park285/chess-narrator/internal/storage"
	"github.com/park285/chess-narrator/pkg/narrationdto"
	"go.uber.org/zap"
)

type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*domain.NarrationArtifact, error)
}

type GameArchive interface {
	Archives(ctx context.Context, username string) (*chesscom.Archives, error)
	GamesByMonth(ctx context.Context, username, year, month string) (*chesscom.MonthlyGames, error)
}

type AudioStore interface {
	Put(name, srcPath string) (string, error)
	Dir() string
}

type Deps struct {
	Runner     Runner
	Recordings storage.Repository
	Games      GameArchive
	Audio      AudioStore
	Metrics    *metrics.Manager
	Logger     *zap.Logger

	AllowedOrigins  []string
	MaxConcurrent   int
	PipelineTimeout time.Duration
	RateLimitPerMin int
}

type Server struct {
	deps Deps
	sem  chan struct{}
	log  *zap.Logger
}

func NewApp(d Deps) (*fiber.App, error) {
	switch {
	case d.Runner == nil:
		return nil, errors.New("httpapi: pipeline runner is required")
	case d.Recordings == nil:
		return nil, errors.New("httpapi: recordings repository is required")
	case d.Audio == nil:
		return nil, errors.New("httpapi: audio store is required")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.MaxConcurrent <= 0 {
		d.MaxConcurrent = 2
	}
	if d.PipelineTimeout <= 0 {
		d.PipelineTimeout = 10 * time.Minute
	}
	if d.RateLimitPerMin <= 0 {
		d.RateLimitPerMin = 30
	}
	s := &Server{deps: d, sem: make(chan struct{}, d.MaxConcurrent), log: d.Logger}

	app := fiber.New(fiber.Config{
		ErrorHandler:          s.errorHandler,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          d.PipelineTimeout + 30*time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(d.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowCredentials(d.AllowedOrigins),
	}))

	app.Get("/health", s.health)
	app.Static("/audio", d.Audio.Dir())
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	api := app.Group("/api/v1")
	api.Use(limiter.New(limiter.Config{
		Max:        d.RateLimitPerMin,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(narrationdto.Failure{
				Status:    "failed",
				Error:     fmt.Sprintf("rate limit exceeded: %d requests per minute allowed", d.RateLimitPerMin),
				Code:      narrationdto.CodeRateLimited,
				Retryable: true,
			})
		},
	}))

	api.Post("/generate-commentary", s.generateCommentary)
	api.Get("/recordings/:user_id", s.listRecordings)
	api.Get("/games/archives/:username", s.gameArchives)
	api.Get("/games/by-month/:username/:yyyy/:mm", s.gamesByMonth)
	return app, nil
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(narrationdto.HealthResponse{Status: "ok"})
}

// errorHandler gives fiber's own errors (404, bad method) the same body shape as ours.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := narrationdto.Failure{Status: "failed", Error: "internal server error", Code: narrationdto.CodeInternal}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		body.Error = fe.Message
		switch code {
		case fiber.StatusNotFound:
			body.Code = narrationdto.CodeNotFound
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
			body.Code = narrationdto.CodeInvalidRequest
		}
	} else {
		s.log.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(body)
}

// credentials can only be allowed for an explicit origin list; fiber refuses "*" with them
func allowCredentials(origins []string) bool {
	if len(origins) == 0 {
		return false
	}
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return false
		}
	}
	return true
}
