// Package board implements the chess rules: an 8x8 mailbox grid, pseudo-legal
// and legal move generation, reversible move application, FEN and move notation.
package board

import "fmt"

// Square addresses one cell of the grid.
// Row 0 is the eighth rank and Col 0 is the a-file, so a8 is {0, 0} and h1 is {7, 7}.
type Square struct {
	Row int
	Col int
}

// NoSquare marks an absent square, e.g. no en-passant target.
var NoSquare = Square{Row: -1, Col: -1}

// NewSquare creates a square from file and rank (0-indexed, rank 0 = first rank).
func NewSquare(file, rank int) Square {
	return Square{Row: 7 - rank, Col: file}
}

// File returns the file of the square (0-7, where 0=a, 7=h).
func (sq Square) File() int {
	return sq.Col
}

// Rank returns the rank of the square (0-7, where 0=1, 7=8).
func (sq Square) Rank() int {
	return 7 - sq.Row
}

// IsValid returns true if the square lies on the board.
func (sq Square) IsValid() bool {
	return sq.Row >= 0 && sq.Row < 8 && sq.Col >= 0 && sq.Col < 8
}

// Offset returns the square shifted by the given row and column deltas.
// The result may be off the board; check IsValid.
func (sq Square) Offset(dr, dc int) Square {
	return Square{Row: sq.Row + dr, Col: sq.Col + dc}
}

// FileChar returns the file letter ('a'-'h').
func (sq Square) FileChar() byte {
	return byte('a' + sq.Col)
}

// RankChar returns the rank digit ('1'-'8').
func (sq Square) RankChar() byte {
	return byte('1' + sq.Rank())
}

// String returns the algebraic notation for the square (e.g., "e4").
func (sq Square) String() string {
	if !sq.IsValid() {
		return "-"
	}
	return string([]byte{sq.FileChar(), sq.RankChar()})
}

// ParseSquare parses algebraic notation (e.g., "e4") into a Square.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square: %s", s)
	}

	file := int(s[0]) - 'a'
	rank := int(s[1]) - '1'

	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare, fmt.Errorf("invalid square: %s", s)
	}

	return NewSquare(file, rank), nil
}

// homeRow returns the grid row a color's pieces start on.
func homeRow(c Color) int {
	if c == White {
		return 7
	}
	return 0
}

// pawnDirection returns the row delta of a pawn advance for the color.
func pawnDirection(c Color) int {
	if c == White {
		return -1
	}
	return 1
}
