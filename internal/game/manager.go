package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hailam/chessrules/internal/analysis"
	"github.com/hailam/chessrules/internal/board"
	"github.com/hailam/chessrules/internal/journal"
	"github.com/hailam/chessrules/internal/storage"
)

var (
	// ErrGameNotFound is returned for an unknown game id.
	ErrGameNotFound = errors.New("game not found")

	// ErrNothingToUndo is returned when more moves are undone than were played.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrAnalysisUnavailable is returned by Analyze when no queue is configured.
	ErrAnalysisUnavailable = errors.New("analysis is not available")
)

// Archive persists whole games. *storage.Storage implements it.
type Archive interface {
	SaveGame(rec storage.GameRecord) error
	LoadGame(id string) (*storage.GameRecord, error)
	DeleteGame(id string) error
	ListGames() ([]storage.GameRecord, error)
	RecordResult(result board.GameResult, plies int) error
}

// Journal receives every game and move as it happens. *journal.Store
// implements it.
type Journal interface {
	RecordNewGame(rec journal.GameRecord)
	RecordMove(rec journal.MoveRecord)
	RecordResult(gameID, result string)
	DeleteUndoneMoves(gameID string, afterPly int)
	DeleteGame(gameID string)
}

// AnalysisListener is told about every analysis that is still current when
// it finishes. Stale results are dropped without notification.
type AnalysisListener func(gameID string, a *Analysis, err error)

// Option configures a Manager.
type Option func(*Manager)

// WithArchive mirrors games into a.
func WithArchive(a Archive) Option {
	return func(m *Manager) { m.archive = a }
}

// WithAutoSave saves a game to the archive after every change instead of
// only on Save.
func WithAutoSave() Option {
	return func(m *Manager) { m.autoSave = true }
}

// WithJournal records every game and move in j.
func WithJournal(j Journal) Option {
	return func(m *Manager) { m.journal = j }
}

// WithAnalysisListener registers fn for finished analyses.
func WithAnalysisListener(fn AnalysisListener) Option {
	return func(m *Manager) { m.listener = fn }
}

// MoveResult describes an applied move.
type MoveResult struct {
	SAN      string   `json:"san"`
	UCI      string   `json:"uci"`
	Snapshot Snapshot `json:"game"`
}

// Manager owns the live games.
type Manager struct {
	mu    sync.RWMutex
	games map[string]*Game

	queue    *analysis.Queue
	archive  Archive
	autoSave bool
	journal  Journal
	listener AnalysisListener

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a manager. queue may be nil, in which case Analyze
// returns ErrAnalysisUnavailable.
func NewManager(queue *analysis.Queue, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		games:  make(map[string]*Game),
		queue:  queue,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Close cancels outstanding analyses. Games stay readable.
func (m *Manager) Close() {
	m.cancel()
}

func (m *Manager) newID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for {
		id := uuid.New().String()
		if _, exists := m.games[id]; !exists {
			return id
		}
	}
}

// Create starts a game from fen, or from the initial position when fen is
// empty.
func (m *Manager) Create(fen string) (Snapshot, error) {
	if fen == "" {
		fen = board.StartFEN
	}
	b, err := board.FromFEN(fen)
	if err != nil {
		return Snapshot{}, err
	}

	g := newGame(m.newID(), b.FEN(), b)

	m.mu.Lock()
	m.games[g.ID] = g
	m.mu.Unlock()

	if m.journal != nil {
		m.journal.RecordNewGame(journal.GameRecord{
			GameID:       g.ID,
			InitialFEN:   g.InitialFEN,
			StartTimeUTC: g.CreatedAt.UTC(),
		})
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if m.autoSave {
		m.saveLocked(g)
	}
	return g.snapshotLocked(), nil
}

// Get returns the live game with the given id.
func (m *Manager) Get(id string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return g, nil
}

// Snapshot returns a copy of a game's state.
func (m *Manager) Snapshot(id string) (Snapshot, error) {
	g, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return g.Snapshot(), nil
}

// List returns every live game, oldest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	games := make([]*Game, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	m.mu.RUnlock()

	snaps := make([]Snapshot, len(games))
	for i, g := range games {
		snaps[i] = g.Snapshot()
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].ID < snaps[j].ID
		}
		return snaps[i].CreatedAt.Before(snaps[j].CreatedAt)
	})
	return snaps
}

// Delete removes a game from memory, the archive and the journal.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	g, ok := m.games[id]
	if ok {
		delete(m.games, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}

	g.mu.Lock()
	g.tracker.Invalidate()
	g.mu.Unlock()

	if m.archive != nil {
		if err := m.archive.DeleteGame(id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("game %s: archive delete failed: %v", id, err)
		}
	}
	if m.journal != nil {
		m.journal.DeleteGame(id)
	}
	return nil
}

// Move applies text (SAN, internal UCI or standard UCI) to a game.
func (m *Manager) Move(id, text string) (MoveResult, error) {
	g, err := m.Get(id)
	if err != nil {
		return MoveResult{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	mv, err := g.board.ApplyText(text)
	if err != nil {
		return MoveResult{}, err
	}
	g.changed()

	// The mate suffix is only known once the move is in the log.
	history := g.board.MoveLog()
	played := history[len(history)-1]

	if m.journal != nil {
		m.journal.RecordMove(journal.MoveRecord{
			GameID:       id,
			Ply:          len(history),
			MoveUCI:      played.StandardUCI(),
			MoveSAN:      played.SAN(),
			FENAfterMove: g.board.FEN(),
			PlayerColor:  mv.Piece().Color().FEN(),
			MoveTimeUTC:  time.Now().UTC(),
		})
	}

	if res := g.board.Result(); res.IsTerminal() {
		m.finishLocked(g, res)
	}
	if m.autoSave {
		m.saveLocked(g)
	}

	return MoveResult{
		SAN:      played.SAN(),
		UCI:      played.StandardUCI(),
		Snapshot: g.snapshotLocked(),
	}, nil
}

// finishLocked records a finished game. Callers hold g.mu.
func (m *Manager) finishLocked(g *Game, res board.GameResult) {
	if m.archive != nil {
		if err := m.archive.RecordResult(res, len(g.board.MoveLog())); err != nil {
			log.Printf("game %s: recording result failed: %v", g.ID, err)
		}
	}
	if m.journal != nil {
		m.journal.RecordResult(g.ID, res.Score())
	}
}

// Undo takes back count moves. A count below one undoes a single move.
func (m *Manager) Undo(id string, count int) (Snapshot, error) {
	if count < 1 {
		count = 1
	}

	g, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	played := len(g.board.MoveLog())
	if count > played {
		return Snapshot{}, fmt.Errorf("%w: %d moves requested, %d played", ErrNothingToUndo, count, played)
	}
	for i := 0; i < count; i++ {
		g.board.Undo()
	}
	g.changed()

	if m.journal != nil {
		m.journal.DeleteUndoneMoves(id, played-count)
	}
	if m.autoSave {
		m.saveLocked(g)
	}
	return g.snapshotLocked(), nil
}

// PendingAnalyses returns the number of analyses waiting for a worker.
func (m *Manager) PendingAnalyses() int {
	if m.queue == nil {
		return 0
	}
	return m.queue.Pending()
}

// Analyze queues an analysis of the game's current position. Any earlier
// analysis of the game is superseded; its result will be discarded.
func (m *Manager) Analyze(id string, depth int) error {
	if m.queue == nil {
		return ErrAnalysisUnavailable
	}

	g, err := m.Get(id)
	if err != nil {
		return err
	}

	g.mu.Lock()
	fen := g.board.FEN()
	ticket := g.tracker.Begin(fen)
	g.pending = true
	g.lastErr = nil
	g.mu.Unlock()

	req := analysis.Request{FEN: fen, Depth: depth}
	err = m.queue.Submit(m.ctx, req, func(r analysis.Result) {
		m.deliver(g, ticket, r)
	})
	if err != nil {
		g.mu.Lock()
		if g.tracker.Accept(ticket, g.board.FEN()) {
			g.pending = false
		}
		g.mu.Unlock()
		return err
	}
	return nil
}

// deliver stores r if ticket is still current and notifies the listener.
func (m *Manager) deliver(g *Game, ticket analysis.Ticket, r analysis.Result) {
	g.mu.Lock()
	if !g.tracker.Accept(ticket, g.board.FEN()) {
		g.mu.Unlock()
		return
	}

	g.pending = false
	var a *Analysis
	if r.Err != nil {
		g.lastErr = r.Err
	} else {
		depth := r.Request.Depth
		if depth <= 0 {
			depth = analysis.DefaultDepth
		}
		g.analysis = &Analysis{
			FEN:   ticket.FEN,
			Depth: depth,
			Lines: r.Lines,
			At:    time.Now(),
		}
		cp := *g.analysis
		a = &cp
	}
	g.mu.Unlock()

	if m.listener != nil {
		m.listener(g.ID, a, r.Err)
	}
}

// Analysis returns the latest accepted analysis of a game.
func (m *Manager) Analysis(id string) (*Analysis, bool, error) {
	g, err := m.Get(id)
	if err != nil {
		return nil, false, err
	}
	a, pending, lastErr := g.Analysis()
	return a, pending, lastErr
}

// Save writes a game to the archive.
func (m *Manager) Save(id string) error {
	if m.archive == nil {
		return errors.New("no archive configured")
	}
	g, err := m.Get(id)
	if err != nil {
		return err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	return m.archive.SaveGame(storage.NewGameRecord(g.ID, g.InitialFEN, g.board))
}

// saveLocked is Save for callers already holding g.mu.
func (m *Manager) saveLocked(g *Game) {
	if m.archive == nil {
		return
	}
	if err := m.archive.SaveGame(storage.NewGameRecord(g.ID, g.InitialFEN, g.board)); err != nil {
		log.Printf("game %s: archive save failed: %v", g.ID, err)
	}
}

// Load brings an archived game back into memory. A game that is already
// live is returned as is.
func (m *Manager) Load(id string) (Snapshot, error) {
	if g, err := m.Get(id); err == nil {
		return g.Snapshot(), nil
	}
	if m.archive == nil {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}

	rec, err := m.archive.LoadGame(id)
	if errors.Is(err, storage.ErrNotFound) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	if err != nil {
		return Snapshot{}, err
	}

	g, err := replay(rec)
	if err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	live, exists := m.games[id]
	if exists {
		g = live
	} else {
		m.games[id] = g
	}
	m.mu.Unlock()

	if !exists {
		m.journalRestored(g)
	}
	return g.Snapshot(), nil
}

// Restore loads every ongoing archived game into memory and returns how many
// were restored. Games that fail to replay are skipped.
func (m *Manager) Restore() (int, error) {
	if m.archive == nil {
		return 0, nil
	}

	recs, err := m.archive.ListGames()
	if err != nil {
		return 0, err
	}

	restored := 0
	for i := range recs {
		rec := &recs[i]
		if !rec.Ongoing() {
			continue
		}
		g, err := replay(rec)
		if err != nil {
			log.Printf("game %s: skipped on restore: %v", rec.ID, err)
			continue
		}

		m.mu.Lock()
		_, exists := m.games[g.ID]
		if !exists {
			m.games[g.ID] = g
			restored++
		}
		m.mu.Unlock()

		if !exists {
			m.journalRestored(g)
		}
	}
	return restored, nil
}

// journalRestored brings the journal in line with a game read back from the
// archive: the game row, every archived move, nothing past them, and the
// result. All of these writes are idempotent.
func (m *Manager) journalRestored(g *Game) {
	if m.journal == nil {
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	m.journal.RecordNewGame(journal.GameRecord{
		GameID:       g.ID,
		InitialFEN:   g.InitialFEN,
		StartTimeUTC: g.CreatedAt.UTC(),
	})

	b, err := board.FromFEN(g.InitialFEN)
	if err != nil {
		log.Printf("game %s: journal backfill skipped: %v", g.ID, err)
		return
	}
	now := time.Now().UTC()
	for i, mv := range g.board.MoveLog() {
		if _, err := b.ApplyText(mv.UCI()); err != nil {
			log.Printf("game %s: journal backfill stopped at ply %d: %v", g.ID, i+1, err)
			return
		}
		played := b.MoveLog()[i]
		m.journal.RecordMove(journal.MoveRecord{
			GameID:       g.ID,
			Ply:          i + 1,
			MoveUCI:      played.StandardUCI(),
			MoveSAN:      played.SAN(),
			FENAfterMove: b.FEN(),
			PlayerColor:  played.Piece().Color().FEN(),
			MoveTimeUTC:  now,
		})
	}

	plies := len(g.board.MoveLog())
	m.journal.DeleteUndoneMoves(g.ID, plies)
	if res := g.board.Result(); res.IsTerminal() {
		m.journal.RecordResult(g.ID, res.Score())
	}
}

// replay rebuilds a game from its archived move list.
func replay(rec *storage.GameRecord) (*Game, error) {
	b, err := board.FromFEN(rec.InitialFEN)
	if err != nil {
		return nil, err
	}
	for i, mv := range rec.Moves {
		if _, err := b.ApplyText(mv); err != nil {
			return nil, fmt.Errorf("move %d (%s): %w", i+1, mv, err)
		}
	}

	g := newGame(rec.ID, rec.InitialFEN, b)
	if !rec.CreatedAt.IsZero() {
		g.CreatedAt = rec.CreatedAt
	}
	if !rec.UpdatedAt.IsZero() {
		g.updatedAt = rec.UpdatedAt
	}
	return g, nil
}
