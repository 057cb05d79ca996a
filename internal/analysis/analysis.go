// Package analysis turns a position snapshot into ranked candidate lines.
//
// Analysis never touches a live board. Callers hand over an encoded FEN and
// get back lines in SAN with an evaluation token. Engines, the cloud
// endpoint, the cache and the worker queue all speak the Analyzer interface.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hailam/chessrules/internal/board"
)

const (
	DefaultDepth        = 10
	DefaultLines        = 5
	DefaultMovesPerLine = 5
)

// ErrNotFound is returned when a source has no evaluation for the position.
var ErrNotFound = errors.New("analysis: position not found")

// Request asks for the lines of one position.
type Request struct {
	FEN   string
	Depth int // DefaultDepth when zero
}

// Line is one ranked candidate continuation.
type Line struct {
	Rank  int      `json:"rank"`
	Moves []string `json:"moves"` // SAN
	Eval  string   `json:"eval"`
}

// Analyzer produces candidate lines for a position.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) ([]Line, error)
}

// Config bounds the size of a response.
type Config struct {
	Lines        int
	MovesPerLine int
	Depth        int
}

// DefaultConfig returns five lines of at most five moves at depth 10.
func DefaultConfig() Config {
	return Config{
		Lines:        DefaultLines,
		MovesPerLine: DefaultMovesPerLine,
		Depth:        DefaultDepth,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Lines <= 0 {
		c.Lines = d.Lines
	}
	if c.MovesPerLine <= 0 {
		c.MovesPerLine = d.MovesPerLine
	}
	if c.Depth <= 0 {
		c.Depth = d.Depth
	}
	return c
}

// PV is a principal variation in standard UCI notation with its score,
// relative to the side to move.
type PV struct {
	Moves  []string
	CP     int
	Mate   int
	IsMate bool
}

// FormatEval renders a score: "M<k>" for a mate, otherwise the pawn value
// with two decimals and an explicit sign, e.g. "+0.31" or "-1.20".
func FormatEval(cp, mate int, isMate bool) string {
	if isMate {
		return fmt.Sprintf("M%d", mate)
	}
	return fmt.Sprintf("%+.2f", float64(cp)/100)
}

// BuildLines converts raw variations into ranked SAN lines. Each variation
// is replayed on a scratch board from fen; one containing an illegal move is
// dropped. Identical move sequences are kept once. At most maxLines lines
// are returned and each is cut to maxMoves from the end.
func BuildLines(fen string, pvs []PV, maxLines, maxMoves int) ([]Line, error) {
	if _, err := board.FromFEN(fen); err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(pvs))
	seen := make(map[string]bool, len(pvs))

	for _, pv := range pvs {
		if maxLines > 0 && len(lines) == maxLines {
			break
		}
		if len(pv.Moves) == 0 {
			continue
		}

		sans, err := board.MovesToSAN(fen, pv.Moves)
		if err != nil {
			continue
		}

		key := strings.Join(sans, " ")
		if seen[key] {
			continue
		}
		seen[key] = true

		if maxMoves > 0 && len(sans) > maxMoves {
			sans = sans[:maxMoves]
		}

		lines = append(lines, Line{
			Rank:  len(lines) + 1,
			Moves: sans,
			Eval:  FormatEval(pv.CP, pv.Mate, pv.IsMate),
		})
	}

	return lines, nil
}
