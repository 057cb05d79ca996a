package storage

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/chessrules/internal/board"
)

// Storage keys
const (
	keySettings    = "settings"
	keyStats       = "stats"
	keyFirstLaunch = "first_launch"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Settings stores user-adjustable analysis settings.
type Settings struct {
	AnalysisDepth int       `json:"analysis_depth"`
	AnalysisLines int       `json:"analysis_lines"`
	MovesPerLine  int       `json:"moves_per_line"`
	EnginePath    string    `json:"engine_path"`
	CloudAnalysis bool      `json:"cloud_analysis"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DefaultSettings returns default settings
func DefaultSettings() *Settings {
	return &Settings{
		AnalysisDepth: 10,
		AnalysisLines: 5,
		MovesPerLine:  5,
		EnginePath:    "stockfish",
		CloudAnalysis: false,
	}
}

// GameStats stores game statistics
type GameStats struct {
	GamesPlayed   int            `json:"games_played"`
	WhiteWins     int            `json:"white_wins"`
	BlackWins     int            `json:"black_wins"`
	Draws         int            `json:"draws"`
	DrawsByReason map[string]int `json:"draws_by_reason"`
	TotalPlies    int            `json:"total_plies"`
	LongestGame   int            `json:"longest_game"`
}

// NewGameStats returns empty game statistics
func NewGameStats() *GameStats {
	return &GameStats{
		DrawsByReason: make(map[string]int),
	}
}

// DrawRate returns the draw rate as a percentage (0-100)
func (s *GameStats) DrawRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Draws) / float64(s.GamesPlayed) * 100
}

// AveragePlies returns the mean game length in plies.
func (s *GameStats) AveragePlies() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.TotalPlies) / float64(s.GamesPlayed)
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// NewStorage opens the database in the platform data directory.
func NewStorage() (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dbDir)
}

// Open opens (or creates) a database in dir.
func Open(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging
	return open(opts)
}

// OpenInMemory opens a database that lives only as long as the process.
func OpenInMemory() (*Storage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Storage, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// IsFirstLaunch returns true if this is the first launch
func (s *Storage) IsFirstLaunch() (bool, error) {
	firstLaunch := true

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyFirstLaunch))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		firstLaunch = false
		return nil
	})

	return firstLaunch, err
}

// MarkFirstLaunchComplete marks that first launch setup is complete
func (s *Storage) MarkFirstLaunchComplete() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyFirstLaunch), []byte("done"))
	})
}

// SaveSettings saves user settings
func (s *Storage) SaveSettings(settings *Settings) error {
	settings.UpdatedAt = time.Now()
	return s.putJSON(keySettings, settings)
}

// LoadSettings loads user settings, returns defaults if not found
func (s *Storage) LoadSettings() (*Settings, error) {
	settings := DefaultSettings()
	if err := s.getJSON(keySettings, settings); err != nil && !errors.Is(err, ErrNotFound) {
		return settings, err
	}
	return settings, nil
}

// LoadStats loads game statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*GameStats, error) {
	stats := NewGameStats()
	if err := s.getJSON(keyStats, stats); err != nil && !errors.Is(err, ErrNotFound) {
		return stats, err
	}
	if stats.DrawsByReason == nil {
		stats.DrawsByReason = make(map[string]int)
	}
	return stats, nil
}

// RecordResult adds a finished game to the statistics. Ongoing results are
// ignored.
func (s *Storage) RecordResult(result board.GameResult, plies int) error {
	if !result.IsTerminal() {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		stats := NewGameStats()
		if err := getJSONTxn(txn, keyStats, stats); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if stats.DrawsByReason == nil {
			stats.DrawsByReason = make(map[string]int)
		}

		stats.GamesPlayed++
		stats.TotalPlies += plies
		if plies > stats.LongestGame {
			stats.LongestGame = plies
		}

		switch {
		case result.Status == board.Draw:
			stats.Draws++
			stats.DrawsByReason[result.Reason.String()]++
		case result.Winner == board.White:
			stats.WhiteWins++
		default:
			stats.BlackWins++
		}

		return putJSONTxn(txn, keyStats, stats)
	})
}

func (s *Storage) putJSON(key string, v any) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return putJSONTxn(txn, key, v)
	})
}

func (s *Storage) getJSON(key string, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		return getJSONTxn(txn, key, v)
	})
}

func putJSONTxn(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

func getJSONTxn(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}
