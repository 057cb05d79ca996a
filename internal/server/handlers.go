package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hailam/chessrules/internal/board"
	"github.com/hailam/chessrules/internal/game"
	"github.com/hailam/chessrules/internal/journal"
)

// Health check endpoint
func (h *handler) Health(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":          "healthy",
		"time":            time.Now().Unix(),
		"games":           len(h.mgr.List()),
		"analysisPending": h.mgr.PendingAnalyses(),
	}
	if h.opts.Journal != nil {
		resp["journal"] = h.opts.Journal.IsHealthy()
	}
	if h.opts.CacheHitRate != nil {
		resp["cacheHitRate"] = h.opts.CacheHitRate()
	}
	return c.JSON(resp)
}

// CreateGame starts a game from the initial position or the given FEN.
func (h *handler) CreateGame(c *fiber.Ctx) error {
	req := validated[CreateGameRequest](c)

	snap, err := h.mgr.Create(req.FEN)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(GameResponse{Snapshot: snap})
}

// ListGames returns every live game.
func (h *handler) ListGames(c *fiber.Ctx) error {
	games := h.mgr.List()
	return c.JSON(GameListResponse{Games: games, Total: len(games)})
}

// GetGame retrieves current game state
func (h *handler) GetGame(c *fiber.Ctx) error {
	snap, err := h.mgr.Snapshot(c.Params("gameId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(GameResponse{Snapshot: snap})
}

// DeleteGame removes a game
func (h *handler) DeleteGame(c *fiber.Ctx) error {
	if err := h.mgr.Delete(c.Params("gameId")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MakeMove applies a move in SAN or UCI form
func (h *handler) MakeMove(c *fiber.Ctx) error {
	req := validated[MoveRequest](c)

	res, err := h.mgr.Move(c.Params("gameId"), req.Move)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(GameResponse{
		Snapshot: res.Snapshot,
		LastMove: &MoveInfo{SAN: res.SAN, UCI: res.UCI},
	})
}

// UndoMove undoes one or more moves
func (h *handler) UndoMove(c *fiber.Ctx) error {
	req := validated[UndoRequest](c)

	snap, err := h.mgr.Undo(c.Params("gameId"), req.Count)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(GameResponse{Snapshot: snap})
}

// GetBoard returns ASCII representation of the board
func (h *handler) GetBoard(c *fiber.Ctx) error {
	g, err := h.mgr.Get(c.Params("gameId"))
	if err != nil {
		return writeError(c, err)
	}
	b := g.Board()
	return c.JSON(BoardResponse{FEN: b.FEN(), Board: b.String()})
}

// StartAnalysis queues an analysis of the current position.
func (h *handler) StartAnalysis(c *fiber.Ctx) error {
	req := validated[AnalyzeRequest](c)
	id := c.Params("gameId")

	if err := h.mgr.Analyze(id, req.Depth); err != nil {
		return writeError(c, err)
	}
	return h.analysisResponse(c, id, fiber.StatusAccepted)
}

// GetAnalysis returns the latest analysis still valid for the position.
func (h *handler) GetAnalysis(c *fiber.Ctx) error {
	return h.analysisResponse(c, c.Params("gameId"), fiber.StatusOK)
}

func (h *handler) analysisResponse(c *fiber.Ctx, id string, status int) error {
	g, err := h.mgr.Get(id)
	if err != nil {
		return writeError(c, err)
	}

	a, pending, lastErr := g.Analysis()
	resp := AnalysisResponse{
		GameID:   id,
		FEN:      g.FEN(),
		Pending:  pending,
		Analysis: a,
	}
	if lastErr != nil {
		resp.Error = lastErr.Error()
	}
	return c.Status(status).JSON(resp)
}

// Perft counts leaf nodes from a position.
func (h *handler) Perft(c *fiber.Ctx) error {
	q := validated[PerftQuery](c)
	fen := q.FEN
	if fen == "" {
		fen = board.StartFEN
	}

	b, err := board.FromFEN(fen)
	if err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.opts.PerftTimeout)
	defer cancel()

	start := time.Now()
	nodes, err := board.PerftContext(ctx, b, q.Depth)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(PerftResponse{
		FEN:       b.FEN(),
		Depth:     q.Depth,
		Nodes:     nodes,
		ElapsedMs: time.Since(start).Milliseconds(),
	})
}

var errNoJournal = errors.New("no journal configured")

// JournalGames lists journaled games, newest first.
func (h *handler) JournalGames(c *fiber.Ctx) error {
	if h.opts.Journal == nil {
		return writeError(c, errNoJournal)
	}
	games, err := h.opts.Journal.QueryGames("")
	if err != nil {
		return writeError(c, err)
	}
	if games == nil {
		games = []journal.GameRecord{}
	}
	return c.JSON(JournalListResponse{Games: games, Total: len(games)})
}

// JournalGame returns one journaled game with its moves.
func (h *handler) JournalGame(c *fiber.Ctx) error {
	if h.opts.Journal == nil {
		return writeError(c, errNoJournal)
	}
	id := c.Params("gameId")
	games, err := h.opts.Journal.QueryGames(id)
	if err != nil {
		return writeError(c, err)
	}
	if len(games) == 0 {
		return writeError(c, fmt.Errorf("%w: %s", game.ErrGameNotFound, id))
	}

	moves, err := h.opts.Journal.QueryMoves(id)
	if err != nil {
		return writeError(c, err)
	}
	if moves == nil {
		moves = []journal.MoveRecord{}
	}
	return c.JSON(JournalGameResponse{Game: games[0], Moves: moves})
}
