package board

// Move describes one ply. It is built from a board snapshot and copies the
// moved and captured pieces, so it never refers back to the board. A Move is
// only meaningful for the position it was generated in.
type Move struct {
	from      Square
	to        Square
	piece     Piece
	captured  Piece
	promotion PieceType
	castling  bool
	enPassant bool
	check     bool
	san       string
}

// newMove creates a move on the given grid. Captured is read from the
// destination, so it is NoPiece for en passant.
func newMove(g *Grid, from, to Square, promo PieceType, castling, enPassant bool) Move {
	return Move{
		from:      from,
		to:        to,
		piece:     g.At(from),
		captured:  g.At(to),
		promotion: promo,
		castling:  castling,
		enPassant: enPassant,
	}
}

// From returns the origin square.
func (m Move) From() Square { return m.from }

// To returns the destination square.
func (m Move) To() Square { return m.to }

// Piece returns the moved piece.
func (m Move) Piece() Piece { return m.piece }

// Captured returns the piece on the destination square before the move.
func (m Move) Captured() Piece { return m.captured }

// Promotion returns the promotion piece type, or NoPieceType.
func (m Move) Promotion() PieceType { return m.promotion }

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool { return isPromotionType(m.promotion) }

func isPromotionType(pt PieceType) bool {
	return pt >= Knight && pt <= Queen
}

// IsCastling returns true if this is a castling move (the king's movement).
func (m Move) IsCastling() bool { return m.castling }

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool { return m.enPassant }

// IsCapture returns true if the move removes an enemy piece.
func (m Move) IsCapture() bool { return m.enPassant || !m.captured.IsEmpty() }

// IsCheck reports whether the move gives check. Only set on moves taken
// from the legal-move set.
func (m Move) IsCheck() bool { return m.check }

// UCI returns the move in square-pair notation. Promotions use the
// form <startFile><endFile><endRank>=<Letter>, e.g. "ed8=Q".
func (m Move) UCI() string {
	return uci(m.from, m.to, m.promotion)
}

// StandardUCI returns the 4/5-character form spoken by UCI engines, e.g. "e7d8q".
func (m Move) StandardUCI() string {
	s := m.from.String() + m.to.String()
	if m.IsPromotion() {
		s += string(m.promotion.Letter() + ('a' - 'A'))
	}
	return s
}

// SAN returns the move in standard algebraic notation. The check marker is
// only present once the move has been through the legality filter.
func (m Move) SAN() string {
	if m.san == "" {
		return san(m)
	}
	return m.san
}

// Equal reports whether two moves have the same UCI text. Check flags and
// SAN do not take part in identity.
func (m Move) Equal(other Move) bool {
	return m.UCI() == other.UCI()
}

// String returns the SAN of the move.
func (m Move) String() string {
	return m.SAN()
}

// undoInfo stores the state Apply overwrites and Undo must restore.
type undoInfo struct {
	enPassant     Square
	halfmoveClock int
	fullmove      int
	result        GameResult
}
