package server

import (
	"github.com/hailam/chessrules/internal/game"
	"github.com/hailam/chessrules/internal/journal"
)

// Request types

type CreateGameRequest struct {
	FEN string `json:"fen,omitempty" validate:"omitempty,min=15,max=100"`
}

type MoveRequest struct {
	Move string `json:"move" validate:"required,min=2,max=10"` // SAN or UCI
}

type UndoRequest struct {
	Count int `json:"count,omitempty" validate:"omitempty,min=1,max=1000"` // default: 1
}

type AnalyzeRequest struct {
	Depth int `json:"depth,omitempty" validate:"omitempty,min=1,max=40"`
}

type PerftQuery struct {
	FEN   string `query:"fen" validate:"omitempty,min=15,max=100"`
	Depth int    `query:"depth" validate:"required,min=1,max=4"`
}

// Response types

type GameResponse struct {
	game.Snapshot
	LastMove *MoveInfo `json:"lastMove,omitempty"`
}

type MoveInfo struct {
	SAN string `json:"san"`
	UCI string `json:"uci"`
}

type GameListResponse struct {
	Games []game.Snapshot `json:"games"`
	Total int             `json:"total"`
}

type BoardResponse struct {
	FEN   string `json:"fen"`
	Board string `json:"board"` // ASCII representation
}

type AnalysisResponse struct {
	GameID   string         `json:"gameId"`
	FEN      string         `json:"fen"`
	Pending  bool           `json:"pending"`
	Analysis *game.Analysis `json:"analysis,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type PerftResponse struct {
	FEN       string `json:"fen"`
	Depth     int    `json:"depth"`
	Nodes     int64  `json:"nodes"`
	ElapsedMs int64  `json:"elapsedMs"`
}

type JournalListResponse struct {
	Games []journal.GameRecord `json:"games"`
	Total int                  `json:"total"`
}

type JournalGameResponse struct {
	Game  journal.GameRecord   `json:"game"`
	Moves []journal.MoveRecord `json:"moves"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// Error codes
const (
	ErrGameNotFound        = "GAME_NOT_FOUND"
	ErrInvalidMove         = "INVALID_MOVE"
	ErrGameOver            = "GAME_OVER"
	ErrInvalidFEN          = "INVALID_FEN"
	ErrInvalidRequest      = "INVALID_REQUEST"
	ErrRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrInvalidContent      = "INVALID_CONTENT_TYPE"
	ErrAnalysisUnavailable = "ANALYSIS_UNAVAILABLE"
	ErrPerftTimeout        = "PERFT_TIMEOUT"
	ErrJournalUnavailable  = "JOURNAL_UNAVAILABLE"
	ErrInternalError       = "INTERNAL_ERROR"
)
