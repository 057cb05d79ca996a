package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/chessrules/internal/board"
)

const (
	prefixGame     = "game:"
	prefixPosition = "pos:"
)

// GameRecord is an archived game. Moves are stored in the internal UCI form
// so the game can be replayed from InitialFEN.
type GameRecord struct {
	ID         string    `json:"id"`
	InitialFEN string    `json:"initial_fen"`
	Moves      []string  `json:"moves"`
	FEN        string    `json:"fen"`
	Positions  []string  `json:"positions"` // reduced FENs, initial position first
	Status     string    `json:"status"`
	Result     string    `json:"result"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewGameRecord captures the current state of b.
func NewGameRecord(id, initialFEN string, b *board.Board) GameRecord {
	log := b.MoveLog()
	moves := make([]string, len(log))
	for i, m := range log {
		moves[i] = m.UCI()
	}
	res := b.Result()
	return GameRecord{
		ID:         id,
		InitialFEN: initialFEN,
		Moves:      moves,
		FEN:        b.FEN(),
		Positions:  b.PositionLog(),
		Status:     res.Status.String(),
		Result:     res.Score(),
	}
}

// Ongoing reports whether the archived game can still be played on.
func (r *GameRecord) Ongoing() bool {
	return r.Status == board.Ongoing.String()
}

func gameKey(id string) []byte {
	return []byte(prefixGame + id)
}

func positionPrefix(reduced string) string {
	return fmt.Sprintf("%s%016x:", prefixPosition, xxhash.Sum64String(reduced))
}

func positionKey(reduced, id string) []byte {
	return []byte(positionPrefix(reduced) + id)
}

// SaveGame stores rec and rewrites its position index entries in the same
// transaction. CreatedAt is preserved from an earlier save.
func (s *Storage) SaveGame(rec GameRecord) error {
	if rec.ID == "" {
		return errors.New("storage: game record has no id")
	}

	return s.db.Update(func(txn *badger.Txn) error {
		var old GameRecord
		err := getJSONTxn(txn, string(gameKey(rec.ID)), &old)
		switch {
		case err == nil:
			for _, p := range old.Positions {
				if err := txn.Delete(positionKey(p, rec.ID)); err != nil {
					return err
				}
			}
			if !old.CreatedAt.IsZero() {
				rec.CreatedAt = old.CreatedAt
			}
		case !errors.Is(err, ErrNotFound):
			return err
		}

		now := time.Now()
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now

		if err := putJSONTxn(txn, string(gameKey(rec.ID)), rec); err != nil {
			return err
		}
		for _, p := range rec.Positions {
			if err := txn.Set(positionKey(p, rec.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadGame returns the archived game with the given id.
func (s *Storage) LoadGame(id string) (*GameRecord, error) {
	var rec GameRecord
	if err := s.getJSON(string(gameKey(id)), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteGame removes a game and its index entries.
func (s *Storage) DeleteGame(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var rec GameRecord
		if err := getJSONTxn(txn, string(gameKey(id)), &rec); err != nil {
			return err
		}
		for _, p := range rec.Positions {
			if err := txn.Delete(positionKey(p, id)); err != nil {
				return err
			}
		}
		return txn.Delete(gameKey(id))
	})
}

// ListGames returns every archived game, most recently updated first.
func (s *Storage) ListGames() ([]GameRecord, error) {
	var games []GameRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixGame)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec GameRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			games = append(games, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(games, func(i, j int) bool {
		return games[i].UpdatedAt.After(games[j].UpdatedAt)
	})
	return games, nil
}

// GamesWithPosition returns the ids of archived games that passed through
// the position described by fen. Clocks are ignored.
func (s *Storage) GamesWithPosition(fen string) ([]string, error) {
	prefix := positionPrefix(board.ReducedFEN(fen))
	var ids []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), prefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(ids)
	return ids, nil
}
