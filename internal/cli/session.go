// Package cli implements the interactive command set of the chessrules REPL.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hailam/chessrules/internal/game"
	"github.com/hailam/chessrules/internal/storage"
)

// errNoArchive is returned by commands that need persistent storage.
var errNoArchive = errors.New("no archive available")

// errNoCache is returned by the cache command when no cache is configured.
var errNoCache = errors.New("no analysis cache configured")

// errNoGame is returned by commands that need a current game.
var errNoGame = errors.New("no game in progress (use 'new')")

// Store is the persistent storage the REPL reads from. *storage.Storage
// implements it.
type Store interface {
	LoadSettings() (*storage.Settings, error)
	SaveSettings(*storage.Settings) error
	LoadStats() (*storage.GameStats, error)
	ListGames() ([]storage.GameRecord, error)
	GamesWithPosition(fen string) ([]string, error)
}

// Cache is the analysis cache the REPL reports on. *analysis.CachedAnalyzer
// implements it.
type Cache interface {
	HitRate() float64
	Clear()
}

// Option configures a Session.
type Option func(*Session)

// WithCache lets the session report on and clear the analysis cache.
func WithCache(c Cache) Option {
	return func(s *Session) { s.cache = c }
}

// Session is one interactive user: a manager, an optional store and the game
// currently shown.
type Session struct {
	mgr      *game.Manager
	store    Store
	cache    Cache
	registry *registry
	palette  Palette

	outMu sync.Mutex
	out   io.Writer

	mu       sync.Mutex
	current  string
	settings *storage.Settings
}

// NewSession creates a session writing to out. store may be nil.
func NewSession(mgr *game.Manager, store Store, out io.Writer, palette Palette, opts ...Option) *Session {
	s := &Session{
		mgr:      mgr,
		store:    store,
		registry: newRegistry(),
		palette:  palette,
		out:      out,
		settings: storage.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if store != nil {
		if settings, err := store.LoadSettings(); err == nil {
			s.settings = settings
		}
	}
	return s
}

// Execute runs one input line and reports whether the session should end.
// Input that is not a command is played as a move.
func (s *Session) Execute(line string) (quit bool) {
	name, args := split(line)
	if name == "" {
		return false
	}

	cmd, ok := s.registry.commands[name]
	if !ok {
		cmd, args = s.registry.commands["move"], []string{strings.TrimSpace(line)}
	}

	err := cmd.Handler(s, args)
	if errors.Is(err, errQuit) {
		return true
	}
	if err != nil {
		s.printf("%s\n", s.palette.paint(s.palette.Red, "Error: "+err.Error()))
	}
	return false
}

// Prompt describes the current game: its short id, then the side to move or
// the final score.
func (s *Session) Prompt() string {
	p := s.palette
	prompt := "chess"

	if id := s.Current(); id != "" {
		if snap, err := s.mgr.Snapshot(id); err == nil {
			prompt += p.paint(p.Yellow, " [") + p.paint(p.White, shortID(id)) + p.paint(p.Yellow, "]")
			switch {
			case snap.Status != "ongoing":
				prompt += " " + p.paint(p.Magenta, snap.Result)
			case snap.Turn == "w":
				prompt += " " + p.paint(p.Blue, "White")
			default:
				prompt += " " + p.paint(p.Red, "Black")
			}
		}
	}
	return p.paint(p.Yellow, prompt+" > ")
}

// Current returns the id of the game shown, or "".
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) setCurrent(id string) {
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
}

// currentGame returns the game shown or errNoGame.
func (s *Session) currentGame() (*game.Game, error) {
	id := s.Current()
	if id == "" {
		return nil, errNoGame
	}
	return s.mgr.Get(id)
}

// Settings returns a copy of the session's settings.
func (s *Session) Settings() storage.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.settings
}

// PrintAnalysis is a game.AnalysisListener. Results for any game other than
// the current one are dropped.
func (s *Session) PrintAnalysis(gameID string, a *game.Analysis, err error) {
	if gameID != s.Current() {
		return
	}
	if err != nil {
		s.printf("\n%s\n", s.palette.paint(s.palette.Red, "Analysis failed: "+err.Error()))
		return
	}
	s.printf("\n")
	s.printAnalysis(a)
}

func (s *Session) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
