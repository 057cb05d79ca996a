// Package game keeps the set of live games, each a board plus its analysis
// state, and mirrors their changes into the archive and the move journal.
package game

import (
	"sync"
	"time"

	"github.com/hailam/chessrules/internal/analysis"
	"github.com/hailam/chessrules/internal/board"
)

// Analysis is the latest accepted analysis of a game.
type Analysis struct {
	FEN   string          `json:"fen"`
	Depth int             `json:"depth"`
	Lines []analysis.Line `json:"lines"`
	At    time.Time       `json:"at"`
}

// Snapshot is a read-only copy of a game's state.
type Snapshot struct {
	ID         string    `json:"gameId"`
	InitialFEN string    `json:"initialFen"`
	FEN        string    `json:"fen"`
	Turn       string    `json:"turn"` // "w" or "b"
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	Winner     string    `json:"winner,omitempty"`
	Result     string    `json:"result"`
	InCheck    bool      `json:"inCheck"`
	Moves      []string  `json:"moves"`    // SAN
	UCIMoves   []string  `json:"uciMoves"` // standard UCI
	LegalMoves []string  `json:"legalMoves"`
	Halfmove   int       `json:"halfmoveClock"`
	Fullmove   int       `json:"fullmoveNumber"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Game is a board with its identity and analysis bookkeeping.
type Game struct {
	ID         string
	InitialFEN string
	CreatedAt  time.Time

	mu        sync.RWMutex
	board     *board.Board
	updatedAt time.Time
	tracker   analysis.Tracker
	analysis  *Analysis
	pending   bool
	lastErr   error
}

func newGame(id, initialFEN string, b *board.Board) *Game {
	now := time.Now()
	return &Game{
		ID:         id,
		InitialFEN: initialFEN,
		CreatedAt:  now,
		board:      b,
		updatedAt:  now,
	}
}

// Board returns a copy of the game's board.
func (g *Game) Board() *board.Board {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.board.Clone()
}

// FEN returns the current position.
func (g *Game) FEN() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.board.FEN()
}

// Snapshot copies the game's state.
func (g *Game) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() Snapshot {
	b := g.board
	res := b.Result()

	log := b.MoveLog()
	sans := make([]string, len(log))
	ucis := make([]string, len(log))
	for i, m := range log {
		sans[i] = m.SAN()
		ucis[i] = m.StandardUCI()
	}

	legal := b.LegalMoves()
	legalSAN := make([]string, len(legal))
	for i, m := range legal {
		legalSAN[i] = m.SAN()
	}

	s := Snapshot{
		ID:         g.ID,
		InitialFEN: g.InitialFEN,
		FEN:        b.FEN(),
		Turn:       b.SideToMove().FEN(),
		Status:     res.Status.String(),
		Result:     res.Score(),
		InCheck:    b.InCheck(),
		Moves:      sans,
		UCIMoves:   ucis,
		LegalMoves: legalSAN,
		Halfmove:   b.HalfmoveClock(),
		Fullmove:   b.FullmoveNumber(),
		CreatedAt:  g.CreatedAt,
		UpdatedAt:  g.updatedAt,
	}
	switch res.Status {
	case board.Draw:
		s.Reason = res.Reason.String()
	case board.Checkmate:
		s.Winner = res.Winner.FEN()
	}
	return s
}

// Analysis returns the latest accepted analysis, if any, and whether a
// newer one is still running.
func (g *Game) Analysis() (a *Analysis, pending bool, err error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.analysis != nil {
		cp := *g.analysis
		cp.Lines = append([]analysis.Line(nil), g.analysis.Lines...)
		a = &cp
	}
	return a, g.pending, g.lastErr
}

// changed drops analysis of the previous position. Callers hold g.mu.
func (g *Game) changed() {
	g.tracker.Invalidate()
	g.analysis = nil
	g.pending = false
	g.lastErr = nil
	g.updatedAt = time.Now()
}
