package board

import "strings"

// CastlingRights represents the available castling options.
// It is an immutable value; every change produces a new value.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling rights string in KQkq order, or "-".
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	if cr&WhiteKingSideCastle != 0 {
		sb.WriteByte('K')
	}
	if cr&WhiteQueenSideCastle != 0 {
		sb.WriteByte('Q')
	}
	if cr&BlackKingSideCastle != 0 {
		sb.WriteByte('k')
	}
	if cr&BlackQueenSideCastle != 0 {
		sb.WriteByte('q')
	}
	return sb.String()
}

// castleRight returns the single right for a color and wing.
func castleRight(c Color, kingSide bool) CastlingRights {
	switch {
	case c == White && kingSide:
		return WhiteKingSideCastle
	case c == White:
		return WhiteQueenSideCastle
	case kingSide:
		return BlackKingSideCastle
	default:
		return BlackQueenSideCastle
	}
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	return cr&castleRight(c, kingSide) != 0
}

// Revoke returns the rights with the given flags cleared.
func (cr CastlingRights) Revoke(flags CastlingRights) CastlingRights {
	return cr &^ flags
}

// cornerRight returns the right tied to a rook's original corner square.
func cornerRight(sq Square) CastlingRights {
	switch sq {
	case Square{Row: 7, Col: 7}:
		return WhiteKingSideCastle
	case Square{Row: 7, Col: 0}:
		return WhiteQueenSideCastle
	case Square{Row: 0, Col: 7}:
		return BlackKingSideCastle
	case Square{Row: 0, Col: 0}:
		return BlackQueenSideCastle
	}
	return NoCastling
}

// After returns the rights that remain once m has been played.
// A king move drops both rights of its color, a rook leaving its corner drops
// that wing, and a rook captured on its corner drops the opponent's wing.
func (cr CastlingRights) After(m Move) CastlingRights {
	next := cr
	switch m.piece.Type() {
	case King:
		next = next.Revoke(castleRight(m.piece.Color(), true) | castleRight(m.piece.Color(), false))
	case Rook:
		if r := cornerRight(m.from); r != NoCastling && m.piece == cornerRook(r) {
			next = next.Revoke(r)
		}
	}
	if m.captured.Type() == Rook {
		if r := cornerRight(m.to); r != NoCastling && m.captured == cornerRook(r) {
			next = next.Revoke(r)
		}
	}
	return next
}

// cornerRook returns the rook that must stand on the corner for the right.
func cornerRook(r CastlingRights) Piece {
	if r&(WhiteKingSideCastle|WhiteQueenSideCastle) != 0 {
		return WhiteRook
	}
	return BlackRook
}

// rightsStack holds one CastlingRights snapshot per applied move on top of
// the rights the position was loaded with.
type rightsStack struct {
	entries []CastlingRights
}

func newRightsStack(initial CastlingRights) rightsStack {
	s := rightsStack{entries: make([]CastlingRights, 1, 64)}
	s.entries[0] = initial
	return s
}

// Current returns the rights in force.
func (s *rightsStack) Current() CastlingRights {
	return s.entries[len(s.entries)-1]
}

func (s *rightsStack) push(cr CastlingRights) {
	s.entries = append(s.entries, cr)
}

// pop discards the latest snapshot; the loaded rights are never popped.
func (s *rightsStack) pop() {
	if len(s.entries) > 1 {
		s.entries = s.entries[:len(s.entries)-1]
	}
}

func (s *rightsStack) clone() rightsStack {
	return rightsStack{entries: append(make([]CastlingRights, 0, cap(s.entries)), s.entries...)}
}
