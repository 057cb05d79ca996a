package board

import (
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Grid is the 8x8 board, indexed [row][col] with row 0 the eighth rank.
type Grid [8][8]Piece

// At returns the piece on sq, or NoPiece.
func (g *Grid) At(sq Square) Piece {
	return g[sq.Row][sq.Col]
}

func (g *Grid) set(sq Square, p Piece) {
	g[sq.Row][sq.Col] = p
}

// emptyGrid returns a grid with every square set to NoPiece.
func emptyGrid() Grid {
	var g Grid
	for r := range g {
		for c := range g[r] {
			g[r][c] = NoPiece
		}
	}
	return g
}

// Position is the decoded content of a FEN string.
type Position struct {
	Grid           Grid
	SideToMove     Color
	Castling       CastlingRights
	EnPassant      Square // NoSquare if none
	HalfmoveClock  int
	FullmoveNumber int
}

// DecodeFEN parses a FEN string. The halfmove and fullmove fields may be
// omitted and default to 0 and 1. On error no Position is returned.
func DecodeFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 || len(parts) > 6 {
		return nil, formatErr("record", fen, "need 4 to 6 space separated fields, got "+strconv.Itoa(len(parts)))
	}

	pos := &Position{
		EnPassant:      NoSquare,
		FullmoveNumber: 1,
	}

	grid, err := parsePiecePlacement(parts[0])
	if err != nil {
		return nil, err
	}
	pos.Grid = grid

	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, formatErr("side to move", parts[1], "must be w or b")
	}

	castling, err := parseCastlingRights(parts[2])
	if err != nil {
		return nil, err
	}
	pos.Castling = castling

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, formatErr("en passant", parts[3], "not a square")
		}
		// The target lies behind a pawn the opponent just pushed.
		if pos.SideToMove == White && sq.Rank() != 5 {
			return nil, formatErr("en passant", parts[3], "must be on the sixth rank with White to move")
		}
		if pos.SideToMove == Black && sq.Rank() != 2 {
			return nil, formatErr("en passant", parts[3], "must be on the third rank with Black to move")
		}
		pos.EnPassant = sq
	}

	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil || hmc < 0 {
			return nil, formatErr("halfmove clock", parts[4], "must be a non-negative integer")
		}
		pos.HalfmoveClock = hmc
	}

	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil || fmn < 1 {
			return nil, formatErr("fullmove number", parts[5], "must be a positive integer")
		}
		pos.FullmoveNumber = fmn
	}

	return pos, nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func parsePiecePlacement(placement string) (Grid, error) {
	grid := emptyGrid()
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return grid, formatErr("piece placement", placement, "need 8 ranks, got "+strconv.Itoa(len(ranks)))
	}

	for row, rankStr := range ranks {
		col := 0
		for i := 0; i < len(rankStr); i++ {
			c := rankStr[i]
			if col > 7 {
				return grid, formatErr("piece placement", rankStr, "too many squares in rank")
			}

			if c >= '1' && c <= '8' {
				col += int(c - '0')
				continue
			}

			piece := PieceFromChar(c)
			if piece == NoPiece {
				return grid, formatErr("piece placement", string(c), "unrecognized piece letter")
			}
			grid[row][col] = piece
			col++
		}

		if col != 8 {
			return grid, formatErr("piece placement", rankStr, "rank must describe 8 squares, got "+strconv.Itoa(col))
		}
	}

	return grid, nil
}

// parseCastlingRights parses the castling rights section of a FEN string.
func parseCastlingRights(castling string) (CastlingRights, error) {
	if castling == "-" {
		return NoCastling, nil
	}

	cr := NoCastling
	for i := 0; i < len(castling); i++ {
		switch castling[i] {
		case 'K':
			cr |= WhiteKingSideCastle
		case 'Q':
			cr |= WhiteQueenSideCastle
		case 'k':
			cr |= BlackKingSideCastle
		case 'q':
			cr |= BlackQueenSideCastle
		default:
			return NoCastling, formatErr("castling", castling, "unrecognized letter "+string(castling[i]))
		}
	}

	return cr, nil
}

// EncodeFEN returns the FEN representation of a position.
func EncodeFEN(p *Position) string {
	var sb strings.Builder
	writePlacement(&sb, &p.Grid)

	sb.WriteByte(' ')
	sb.WriteString(p.SideToMove.FEN())
	sb.WriteByte(' ')
	sb.WriteString(p.Castling.String())
	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfmoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullmoveNumber))

	return sb.String()
}

// ReducedFEN strips the clock fields from a FEN, keeping placement, side to
// move, castling and en passant. Two positions with the same reduced FEN count
// as a repetition.
func ReducedFEN(fen string) string {
	parts := strings.Fields(fen)
	if len(parts) > 4 {
		parts = parts[:4]
	}
	return strings.Join(parts, " ")
}

func writePlacement(sb *strings.Builder, g *Grid) {
	for row := 0; row < 8; row++ {
		empty := 0
		for col := 0; col < 8; col++ {
			piece := g[row][col]
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if row < 7 {
			sb.WriteByte('/')
		}
	}
}
