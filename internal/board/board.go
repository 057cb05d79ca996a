package board

import (
	"fmt"
	"strings"
)

// FiftyMovePlies is the halfmove clock value at which the game is drawn.
const FiftyMovePlies = 100

// Status is the coarse state of a game.
type Status uint8

const (
	Ongoing Status = iota
	Checkmate
	Draw
)

func (s Status) String() string {
	switch s {
	case Checkmate:
		return "checkmate"
	case Draw:
		return "draw"
	default:
		return "ongoing"
	}
}

// DrawReason explains a Draw.
type DrawReason uint8

const (
	NoDraw DrawReason = iota
	Stalemate
	FiftyMoveRule
	ThreefoldRepetition
)

func (r DrawReason) String() string {
	switch r {
	case Stalemate:
		return "stalemate"
	case FiftyMoveRule:
		return "fifty-move rule"
	case ThreefoldRepetition:
		return "threefold repetition"
	default:
		return "none"
	}
}

// GameResult is the terminal state of the board.
type GameResult struct {
	Status Status
	Reason DrawReason // set when Status is Draw
	Winner Color      // set when Status is Checkmate, NoColor otherwise
}

// IsTerminal reports whether no further move can be applied.
func (r GameResult) IsTerminal() bool {
	return r.Status != Ongoing
}

// Score returns the PGN result token: "1-0", "0-1", "1/2-1/2" or "*".
func (r GameResult) Score() string {
	switch {
	case r.Status == Checkmate && r.Winner == White:
		return "1-0"
	case r.Status == Checkmate:
		return "0-1"
	case r.Status == Draw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func (r GameResult) String() string {
	switch r.Status {
	case Checkmate:
		return fmt.Sprintf("checkmate, %s wins", r.Winner)
	case Draw:
		return "draw by " + r.Reason.String()
	default:
		return "ongoing"
	}
}

// Board is a game in progress. It owns the grid, the clocks, the castling
// rights history, the move log and the repetition log. A Board is not safe
// for concurrent use.
type Board struct {
	grid          Grid
	sideToMove    Color
	castling      rightsStack
	enPassant     Square
	halfmoveClock int
	fullmove      int

	moveLog     []Move
	undoLog     []undoInfo
	positionLog []string // reduced FEN, starting with the loaded position

	kings      [2]Square
	legalMoves []Move
	result     GameResult

	scratch []Move // reused by IsSquareAttacked
}

// New creates a board at the starting position.
func New() *Board {
	return mustFromFEN(StartFEN)
}

// mustFromFEN is FromFEN for compile-time constant positions such as
// StartFEN. It panics on error.
func mustFromFEN(fen string) *Board {
	b, err := FromFEN(fen)
	if err != nil {
		panic("board: invalid constant FEN " + fen + ": " + err.Error())
	}
	return b
}

// FromFEN creates a board from a FEN string. It returns a *FormatError for
// malformed text and ErrInvalidPosition when a color does not have exactly
// one king.
func FromFEN(fen string) (*Board, error) {
	b := &Board{}
	if err := b.Load(fen); err != nil {
		return nil, err
	}
	return b, nil
}

// Load replaces the board's contents with the FEN position, clearing all
// history. On error the board is left unchanged.
func (b *Board) Load(fen string) error {
	pos, err := DecodeFEN(fen)
	if err != nil {
		return err
	}

	kings, err := findKings(&pos.Grid)
	if err != nil {
		return err
	}

	*b = Board{
		grid:          pos.Grid,
		sideToMove:    pos.SideToMove,
		castling:      newRightsStack(pos.Castling),
		enPassant:     pos.EnPassant,
		halfmoveClock: pos.HalfmoveClock,
		fullmove:      pos.FullmoveNumber,
		kings:         kings,
		scratch:       make([]Move, 0, 32),
	}
	b.positionLog = []string{ReducedFEN(b.FEN())}
	b.refresh()

	return nil
}

// findKings locates both kings, failing unless each color has exactly one.
func findKings(g *Grid) ([2]Square, error) {
	kings := [2]Square{NoSquare, NoSquare}
	var count [2]int

	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p := g[row][col]
			if p.Type() != King {
				continue
			}
			count[p.Color()]++
			kings[p.Color()] = Square{Row: row, Col: col}
		}
	}

	for c := White; c <= Black; c++ {
		if count[c] != 1 {
			return kings, fmt.Errorf("%w: %s has %d kings, need exactly one", ErrInvalidPosition, c, count[c])
		}
	}
	return kings, nil
}

// Apply plays a move from the legal-move set. It returns ErrGameOver if the
// game has ended and ErrIllegalMove if m is not legal here; in both cases
// the board is not modified.
func (b *Board) Apply(m Move) error {
	if b.result.IsTerminal() {
		return ErrGameOver
	}

	idx := -1
	for i := range b.legalMoves {
		if b.legalMoves[i].Equal(m) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrIllegalMove, m.UCI())
	}

	b.makeMove(b.legalMoves[idx])
	b.positionLog = append(b.positionLog, ReducedFEN(b.FEN()))
	b.refresh()

	if b.result.Status == Checkmate {
		last := &b.moveLog[len(b.moveLog)-1]
		last.san = mateSAN(last.san)
	}

	return nil
}

// ApplyText parses text with ParseMove and applies the result.
func (b *Board) ApplyText(text string) (Move, error) {
	if b.result.IsTerminal() {
		return Move{}, ErrGameOver
	}
	m, err := b.ParseMove(text)
	if err != nil {
		return Move{}, err
	}
	if err := b.Apply(m); err != nil {
		return Move{}, err
	}
	return b.moveLog[len(b.moveLog)-1], nil
}

// Undo takes back the last applied move. It is a no-op when nothing has
// been played. It reports whether a move was taken back.
func (b *Board) Undo() bool {
	if len(b.moveLog) == 0 {
		return false
	}
	b.undo(false)
	return true
}

// makeMove updates the grid and state for m without legality checks and
// without touching the repetition log or the legal-move set.
func (b *Board) makeMove(m Move) {
	us := m.piece.Color()

	b.moveLog = append(b.moveLog, m)
	b.undoLog = append(b.undoLog, undoInfo{
		enPassant:     b.enPassant,
		halfmoveClock: b.halfmoveClock,
		fullmove:      b.fullmove,
		result:        b.result,
	})

	if m.enPassant {
		b.grid.set(Square{Row: m.from.Row, Col: m.to.Col}, NoPiece)
	}

	placed := m.piece
	if m.IsPromotion() {
		placed = NewPiece(m.promotion, us)
	}
	b.grid.set(m.from, NoPiece)
	b.grid.set(m.to, placed)

	if m.castling {
		rookFrom, rookTo := castlingRookSquares(m)
		b.grid.set(rookTo, b.grid.At(rookFrom))
		b.grid.set(rookFrom, NoPiece)
	}

	b.castling.push(b.castling.Current().After(m))

	if m.piece.Type() == King {
		b.kings[us] = m.to
	}

	b.enPassant = NoSquare
	if m.piece.Type() == Pawn && (m.to.Row-m.from.Row == 2 || m.from.Row-m.to.Row == 2) {
		b.enPassant = Square{Row: (m.from.Row + m.to.Row) / 2, Col: m.from.Col}
	}

	if m.piece.Type() == Pawn || m.IsCapture() {
		b.halfmoveClock = 0
	} else {
		b.halfmoveClock++
	}

	b.sideToMove = us.Other()
	if b.sideToMove == White {
		b.fullmove++
	}
}

// undo reverses the last makeMove. The internal variant leaves the
// repetition log and the legal-move set alone because the caller is in the
// middle of deriving them.
func (b *Board) undo(internal bool) {
	n := len(b.moveLog)
	if n == 0 {
		return
	}

	m := b.moveLog[n-1]
	u := b.undoLog[n-1]
	b.moveLog = b.moveLog[:n-1]
	b.undoLog = b.undoLog[:n-1]

	us := m.piece.Color()
	b.sideToMove = us

	if m.castling {
		rookFrom, rookTo := castlingRookSquares(m)
		b.grid.set(rookFrom, b.grid.At(rookTo))
		b.grid.set(rookTo, NoPiece)
	}

	b.grid.set(m.from, m.piece)
	b.grid.set(m.to, m.captured)
	if m.enPassant {
		b.grid.set(Square{Row: m.from.Row, Col: m.to.Col}, NewPiece(Pawn, us.Other()))
	}

	b.castling.pop()

	if m.piece.Type() == King {
		b.kings[us] = m.from
	}

	b.enPassant = u.enPassant
	b.halfmoveClock = u.halfmoveClock
	b.fullmove = u.fullmove
	b.result = u.result

	if internal {
		return
	}

	if len(b.positionLog) > 1 {
		b.positionLog = b.positionLog[:len(b.positionLog)-1]
	}
	b.refresh()
}

// castlingRookSquares returns where the rook starts and ends for a castling move.
func castlingRookSquares(m Move) (from, to Square) {
	row := m.from.Row
	if m.to.Col > m.from.Col {
		return Square{Row: row, Col: 7}, Square{Row: row, Col: m.to.Col - 1}
	}
	return Square{Row: row, Col: 0}, Square{Row: row, Col: m.to.Col + 1}
}

// LegalMoves returns a copy of the legal moves for the side to move, with
// check flags and SAN filled in.
func (b *Board) LegalMoves() []Move {
	return append([]Move(nil), b.legalMoves...)
}

// Result returns the current game result.
func (b *Board) Result() GameResult {
	return b.result
}

// IsCheckmate reports whether the side to move has been mated.
func (b *Board) IsCheckmate() bool {
	return b.result.Status == Checkmate
}

// IsDraw reports whether the game has been drawn.
func (b *Board) IsDraw() bool {
	return b.result.Status == Draw
}

// InCheck returns true if the side to move is in check.
func (b *Board) InCheck() bool {
	return b.inCheck()
}

// SideToMove returns the color to play.
func (b *Board) SideToMove() Color {
	return b.sideToMove
}

// CastlingRights returns the rights currently in force.
func (b *Board) CastlingRights() CastlingRights {
	return b.castling.Current()
}

// EnPassant returns the en-passant target square, or NoSquare.
func (b *Board) EnPassant() Square {
	return b.enPassant
}

// HalfmoveClock returns the plies since the last capture or pawn move.
func (b *Board) HalfmoveClock() int {
	return b.halfmoveClock
}

// FullmoveNumber returns the move number, incremented after Black's ply.
func (b *Board) FullmoveNumber() int {
	return b.fullmove
}

// PieceAt returns the piece on sq, or NoPiece.
func (b *Board) PieceAt(sq Square) Piece {
	if !sq.IsValid() {
		return NoPiece
	}
	return b.grid.At(sq)
}

// Grid returns a copy of the grid.
func (b *Board) Grid() Grid {
	return b.grid
}

// KingPositions returns the cached white and black king squares.
func (b *Board) KingPositions() (white, black Square) {
	return b.kings[White], b.kings[Black]
}

// MoveLog returns the applied moves, oldest first.
func (b *Board) MoveLog() []Move {
	return append([]Move(nil), b.moveLog...)
}

// PositionLog returns the reduced FEN of the loaded position followed by
// one entry per applied move.
func (b *Board) PositionLog() []string {
	return append([]string(nil), b.positionLog...)
}

// Position returns the board state as a decoded FEN record.
func (b *Board) Position() *Position {
	return &Position{
		Grid:           b.grid,
		SideToMove:     b.sideToMove,
		Castling:       b.castling.Current(),
		EnPassant:      b.enPassant,
		HalfmoveClock:  b.halfmoveClock,
		FullmoveNumber: b.fullmove,
	}
}

// FEN returns the FEN representation of the board.
func (b *Board) FEN() string {
	return EncodeFEN(b.Position())
}

// Clone returns an independent deep copy of the board.
func (b *Board) Clone() *Board {
	c := *b
	c.castling = b.castling.clone()
	c.moveLog = append([]Move(nil), b.moveLog...)
	c.undoLog = append([]undoInfo(nil), b.undoLog...)
	c.positionLog = append([]string(nil), b.positionLog...)
	c.legalMoves = append([]Move(nil), b.legalMoves...)
	c.scratch = make([]Move, 0, 32)
	return &c
}

// String returns a visual representation of the board.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteByte('\n')
	for row := 0; row < 8; row++ {
		fmt.Fprintf(&sb, "%d  ", 8-row)
		for col := 0; col < 8; col++ {
			piece := b.grid[row][col]
			if piece == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(piece.String() + " ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Side to move: %s\n", b.sideToMove)
	fmt.Fprintf(&sb, "Castling: %s\n", b.castling.Current())
	fmt.Fprintf(&sb, "En passant: %s\n", b.enPassant)
	fmt.Fprintf(&sb, "Half-move clock: %d\n", b.halfmoveClock)
	fmt.Fprintf(&sb, "Full move: %d\n", b.fullmove)
	fmt.Fprintf(&sb, "Result: %s\n", b.result)
	return sb.String()
}
