package board

// generator appends the pseudo-legal moves of the piece on from.
type generator func(b *Board, from Square, moves []Move) []Move

// generators dispatches by piece type. Castling is not produced here; see
// castlingMoves.
var generators = [6]generator{
	Pawn:   genPawnMoves,
	Knight: genKnightMoves,
	Bishop: genBishopMoves,
	Rook:   genRookMoves,
	Queen:  genQueenMoves,
	King:   genKingMoves,
}

var (
	rookDirections   = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirections = [4][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
	knightOffsets    = [8][2]int{{2, 1}, {2, -1}, {-2, 1}, {-2, -1}, {1, 2}, {1, -2}, {-1, 2}, {-1, -2}}
	kingOffsets      = [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// pseudoLegalMoves generates every non-castling move for color c.
func (b *Board) pseudoLegalMoves(c Color, moves []Move) []Move {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			piece := b.grid[row][col]
			if piece == NoPiece || piece.Color() != c {
				continue
			}
			moves = generators[piece.Type()](b, Square{Row: row, Col: col}, moves)
		}
	}
	return moves
}

// genPawnMoves generates pushes, double pushes, captures, en passant and
// promotions for the pawn on from.
func genPawnMoves(b *Board, from Square, moves []Move) []Move {
	us := b.grid.At(from).Color()
	dir := pawnDirection(us)

	one := from.Offset(dir, 0)
	if one.IsValid() && b.grid.At(one).IsEmpty() {
		moves = addPawnMove(b, from, one, moves)

		two := from.Offset(2*dir, 0)
		if from.Row == homeRow(us)+dir && b.grid.At(two).IsEmpty() {
			moves = append(moves, newMove(&b.grid, from, two, NoPieceType, false, false))
		}
	}

	for _, dc := range [2]int{-1, 1} {
		to := from.Offset(dir, dc)
		if !to.IsValid() {
			continue
		}
		target := b.grid.At(to)
		if !target.IsEmpty() {
			if target.Color() != us {
				moves = addPawnMove(b, from, to, moves)
			}
		} else if to == b.enPassant && b.grid.At(Square{Row: from.Row, Col: to.Col}) == NewPiece(Pawn, us.Other()) {
			moves = append(moves, newMove(&b.grid, from, to, NoPieceType, false, true))
		}
	}

	return moves
}

// addPawnMove adds a pawn move, expanding it into the four promotion
// variants when it reaches the last rank.
func addPawnMove(b *Board, from, to Square, moves []Move) []Move {
	if to.Row != 0 && to.Row != 7 {
		return append(moves, newMove(&b.grid, from, to, NoPieceType, false, false))
	}
	for _, pt := range promotionTypes {
		moves = append(moves, newMove(&b.grid, from, to, pt, false, false))
	}
	return moves
}

func genKnightMoves(b *Board, from Square, moves []Move) []Move {
	return b.stepMoves(from, knightOffsets[:], moves)
}

func genKingMoves(b *Board, from Square, moves []Move) []Move {
	return b.stepMoves(from, kingOffsets[:], moves)
}

func genBishopMoves(b *Board, from Square, moves []Move) []Move {
	return b.slideMoves(from, bishopDirections[:], moves)
}

func genRookMoves(b *Board, from Square, moves []Move) []Move {
	return b.slideMoves(from, rookDirections[:], moves)
}

// genQueenMoves treats the queen as a rook plus a bishop.
func genQueenMoves(b *Board, from Square, moves []Move) []Move {
	moves = b.slideMoves(from, rookDirections[:], moves)
	return b.slideMoves(from, bishopDirections[:], moves)
}

// stepMoves adds single-step moves to empty or enemy-occupied squares.
func (b *Board) stepMoves(from Square, offsets [][2]int, moves []Move) []Move {
	us := b.grid.At(from).Color()
	for _, off := range offsets {
		to := from.Offset(off[0], off[1])
		if !to.IsValid() {
			continue
		}
		if target := b.grid.At(to); target.IsEmpty() || target.Color() != us {
			moves = append(moves, newMove(&b.grid, from, to, NoPieceType, false, false))
		}
	}
	return moves
}

// slideMoves walks each direction until the edge, an own piece (excluded)
// or an enemy piece (included).
func (b *Board) slideMoves(from Square, directions [][2]int, moves []Move) []Move {
	us := b.grid.At(from).Color()
	for _, d := range directions {
		for to := from.Offset(d[0], d[1]); to.IsValid(); to = to.Offset(d[0], d[1]) {
			target := b.grid.At(to)
			if target.IsEmpty() {
				moves = append(moves, newMove(&b.grid, from, to, NoPieceType, false, false))
				continue
			}
			if target.Color() != us {
				moves = append(moves, newMove(&b.grid, from, to, NoPieceType, false, false))
			}
			break
		}
	}
	return moves
}

// IsSquareAttacked reports whether any piece of color by attacks sq. It only
// consults the non-castling generators, so it is safe to call while
// generating castling moves. Pawns attack their two forward diagonals
// whether or not the square is occupied.
func (b *Board) IsSquareAttacked(sq Square, by Color) bool {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			piece := b.grid[row][col]
			if piece == NoPiece || piece.Color() != by {
				continue
			}
			from := Square{Row: row, Col: col}

			if piece.Type() == Pawn {
				if dr := sq.Row - from.Row; dr == pawnDirection(by) && (sq.Col-from.Col == 1 || from.Col-sq.Col == 1) {
					return true
				}
				continue
			}

			b.scratch = generators[piece.Type()](b, from, b.scratch[:0])
			for _, m := range b.scratch {
				if m.to == sq {
					return true
				}
			}
		}
	}
	return false
}

// inCheck reports whether the side to move's king is attacked.
func (b *Board) inCheck() bool {
	us := b.sideToMove
	return b.IsSquareAttacked(b.kings[us], us.Other())
}

// castlingMoves adds castling for color c. It runs after the ordinary
// generators and only relies on IsSquareAttacked, which never generates
// castling itself.
func (b *Board) castlingMoves(c Color, moves []Move) []Move {
	rights := b.castling.Current()
	if !rights.CanCastle(c, true) && !rights.CanCastle(c, false) {
		return moves
	}

	row := homeRow(c)
	kingSq := Square{Row: row, Col: 4}
	if b.kings[c] != kingSq || b.grid.At(kingSq) != NewPiece(King, c) {
		return moves
	}

	them := c.Other()
	if b.IsSquareAttacked(kingSq, them) {
		return moves // cannot castle out of check
	}

	rook := NewPiece(Rook, c)

	if rights.CanCastle(c, true) &&
		b.grid[row][7] == rook &&
		b.grid[row][5].IsEmpty() && b.grid[row][6].IsEmpty() &&
		!b.IsSquareAttacked(Square{Row: row, Col: 5}, them) &&
		!b.IsSquareAttacked(Square{Row: row, Col: 6}, them) {
		moves = append(moves, newMove(&b.grid, kingSq, Square{Row: row, Col: 6}, NoPieceType, true, false))
	}

	if rights.CanCastle(c, false) &&
		b.grid[row][0] == rook &&
		b.grid[row][1].IsEmpty() && b.grid[row][2].IsEmpty() && b.grid[row][3].IsEmpty() &&
		!b.IsSquareAttacked(Square{Row: row, Col: 3}, them) &&
		!b.IsSquareAttacked(Square{Row: row, Col: 2}, them) {
		moves = append(moves, newMove(&b.grid, kingSq, Square{Row: row, Col: 2}, NoPieceType, true, false))
	}

	return moves
}
