package journal

import "time"

// GameRecord is a row in the games table.
type GameRecord struct {
	GameID       string    `json:"gameId" db:"game_id"`
	InitialFEN   string    `json:"initialFen" db:"initial_fen"`
	Result       string    `json:"result" db:"result"` // "*" until the game ends
	StartTimeUTC time.Time `json:"startTimeUtc" db:"start_time_utc"`
}

// MoveRecord is a row in the moves table. Ply counts from 1.
type MoveRecord struct {
	MoveID       int64     `json:"moveId" db:"move_id"`
	GameID       string    `json:"gameId" db:"game_id"`
	Ply          int       `json:"ply" db:"ply"`
	MoveUCI      string    `json:"moveUci" db:"move_uci"`
	MoveSAN      string    `json:"moveSan" db:"move_san"`
	FENAfterMove string    `json:"fenAfterMove" db:"fen_after_move"`
	PlayerColor  string    `json:"playerColor" db:"player_color"` // "w" or "b"
	MoveTimeUTC  time.Time `json:"moveTimeUtc" db:"move_time_utc"`
}

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS games (
	game_id TEXT PRIMARY KEY,
	initial_fen TEXT NOT NULL,
	result TEXT NOT NULL DEFAULT '*',
	start_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS moves (
	move_id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id TEXT NOT NULL,
	ply INTEGER NOT NULL,
	move_uci TEXT NOT NULL,
	move_san TEXT NOT NULL,
	fen_after_move TEXT NOT NULL,
	player_color TEXT NOT NULL CHECK(player_color IN ('w', 'b')),
	move_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (game_id) REFERENCES games(game_id) ON DELETE CASCADE,
	UNIQUE(game_id, ply)
);

CREATE INDEX IF NOT EXISTS idx_moves_game_id ON moves(game_id);
`
