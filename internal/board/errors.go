package board

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to check for them.
var (
	// ErrInvalidFEN is wrapped by every FormatError.
	ErrInvalidFEN = errors.New("invalid FEN")

	// ErrInvalidPosition indicates a grid without exactly one king per color.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrIllegalMove is returned by Apply for moves outside the legal-move set.
	// The board is left unchanged.
	ErrIllegalMove = errors.New("illegal move")

	// ErrGameOver is returned by Apply once the game has reached checkmate or a draw.
	ErrGameOver = errors.New("game is over")

	// ErrAmbiguousMove is returned when move text matches several legal moves.
	ErrAmbiguousMove = errors.New("ambiguous move")
)

// FormatError describes why a FEN string was rejected.
type FormatError struct {
	Field  string // FEN field name, e.g. "piece placement"
	Value  string // offending text
	Reason string
}

func (e *FormatError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid FEN: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid FEN: %s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidFEN so callers can use errors.Is.
func (e *FormatError) Unwrap() error {
	return ErrInvalidFEN
}

func formatErr(field, value, reason string) error {
	return &FormatError{Field: field, Value: value, Reason: reason}
}
