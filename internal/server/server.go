// Package server exposes the game manager over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/hailam/chessrules/internal/analysis"
	"github.com/hailam/chessrules/internal/board"
	"github.com/hailam/chessrules/internal/game"
	"github.com/hailam/chessrules/internal/journal"
)

// Options tunes the HTTP app.
type Options struct {
	// DevMode relaxes the rate limit.
	DevMode bool

	// RateLimit is the number of API requests per second allowed per client
	// IP. Zero picks 10, or 100 in DevMode.
	RateLimit int

	// DisableLogger turns off the access log.
	DisableLogger bool

	// Journal, when set, serves the journal routes and its health is
	// reported by /health.
	Journal JournalReader

	// CacheHitRate, when set, is reported by /health.
	CacheHitRate func() float64

	// PerftTimeout bounds the work of one perft request. Zero picks 5s.
	PerftTimeout time.Duration
}

// JournalReader reads the move journal. *journal.Store implements it.
type JournalReader interface {
	QueryGames(gameID string) ([]journal.GameRecord, error)
	QueryMoves(gameID string) ([]journal.MoveRecord, error)
	IsHealthy() bool
}

type handler struct {
	mgr  *game.Manager
	opts Options
}

// NewApp builds the fiber app serving mgr.
func NewApp(mgr *game.Manager, opts Options) *fiber.App {
	if opts.PerftTimeout <= 0 {
		opts.PerftTimeout = 5 * time.Second
	}
	h := &handler{mgr: mgr, opts: opts}

	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           30 * time.Second,
		DisableStartupMessage: true,
		Immutable:             true, // c.Params values reach the async journal
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	if !opts.DisableLogger {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	api := app.Group("/api/v1")

	maxReq := opts.RateLimit
	if maxReq <= 0 {
		maxReq = 10
		if opts.DevMode {
			maxReq = 100
		}
	}
	api.Use(limiter.New(limiter.Config{
		Max:          maxReq,
		Expiration:   1 * time.Second,
		KeyGenerator: clientIP,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	api.Post("/games", h.CreateGame)
	api.Get("/games", h.ListGames)
	api.Get("/games/:gameId", h.GetGame)
	api.Delete("/games/:gameId", h.DeleteGame)
	api.Post("/games/:gameId/moves", h.MakeMove)
	api.Post("/games/:gameId/undo", h.UndoMove)
	api.Get("/games/:gameId/board", h.GetBoard)
	api.Post("/games/:gameId/analysis", h.StartAnalysis)
	api.Get("/games/:gameId/analysis", h.GetAnalysis)
	api.Get("/perft", h.Perft)
	api.Get("/journal", h.JournalGames)
	api.Get("/journal/:gameId", h.JournalGame)

	return app
}

// clientIP keys the limiter on the first X-Forwarded-For hop when present.
func clientIP(c *fiber.Ctx) string {
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	return c.IP()
}

// contentTypeValidator ensures POST bodies are JSON
func contentTypeValidator(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost && len(c.Body()) > 0 {
		contentType := c.Get(fiber.HeaderContentType)
		if !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(ErrorResponse{
				Error:   "unsupported media type",
				Code:    ErrInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := ErrorResponse{
		Error: "internal server error",
		Code:  ErrInternalError,
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		response.Error = fe.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = ErrGameNotFound
		case fiber.StatusBadRequest:
			response.Code = ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// writeError maps domain errors to status codes and error codes.
func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	response := ErrorResponse{Error: "internal server error", Code: ErrInternalError, Details: err.Error()}

	switch {
	case errors.Is(err, game.ErrGameNotFound):
		status, response.Error, response.Code = fiber.StatusNotFound, "game not found", ErrGameNotFound
		response.Details = ""
	case errors.Is(err, board.ErrGameOver):
		status, response.Error, response.Code = fiber.StatusBadRequest, "game is over", ErrGameOver
	case errors.Is(err, board.ErrIllegalMove), errors.Is(err, board.ErrAmbiguousMove):
		status, response.Error, response.Code = fiber.StatusBadRequest, "invalid move", ErrInvalidMove
	case errors.Is(err, board.ErrInvalidFEN), errors.Is(err, board.ErrInvalidPosition):
		status, response.Error, response.Code = fiber.StatusBadRequest, "invalid position", ErrInvalidFEN
	case errors.Is(err, game.ErrNothingToUndo):
		status, response.Error, response.Code = fiber.StatusBadRequest, "cannot undo moves", ErrInvalidRequest
	case errors.Is(err, game.ErrAnalysisUnavailable),
		errors.Is(err, analysis.ErrQueueFull),
		errors.Is(err, analysis.ErrQueueClosed):
		status, response.Error, response.Code = fiber.StatusServiceUnavailable, "analysis unavailable", ErrAnalysisUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status, response.Error, response.Code = fiber.StatusServiceUnavailable, "perft took too long", ErrPerftTimeout
		response.Details = "try a smaller depth"
	case errors.Is(err, errNoJournal):
		status, response.Error, response.Code = fiber.StatusServiceUnavailable, "journal unavailable", ErrJournalUnavailable
		response.Details = ""
	}

	return c.Status(status).JSON(response)
}
