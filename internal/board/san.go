package board

import (
	"fmt"
	"strings"
)

// uci renders a square pair. A promotion drops the start rank and appends
// "=<Letter>", e.g. "ed8=Q".
func uci(from, to Square, promo PieceType) string {
	if isPromotionType(promo) {
		return string([]byte{from.FileChar(), to.FileChar(), to.RankChar(), '=', promo.Letter()})
	}
	return from.String() + to.String()
}

// san converts a move to Standard Algebraic Notation. No disambiguation is
// produced when two identical pieces can reach the same square.
func san(m Move) string {
	var sb strings.Builder

	switch {
	case m.castling:
		if m.from.Col < m.to.Col {
			sb.WriteString("O-O")
		} else {
			sb.WriteString("O-O-O")
		}

	case m.piece.Type() == Pawn:
		// Pawn captures include the file of origin
		if m.IsCapture() || m.from.Col != m.to.Col {
			sb.WriteByte(m.from.FileChar())
			sb.WriteByte('x')
		}
		sb.WriteString(m.to.String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte(m.promotion.Letter())
		}

	default:
		sb.WriteByte(m.piece.Type().Letter())
		if m.IsCapture() {
			sb.WriteByte('x')
		}
		sb.WriteString(m.to.String())
	}

	if m.check {
		sb.WriteByte('+')
	}

	return sb.String()
}

// mateSAN turns a check marker into a mate marker.
func mateSAN(s string) string {
	return strings.TrimSuffix(s, "+") + "#"
}

// ParseMove finds the legal move described by text. It accepts the internal
// square-pair form ("e2e4", "ed8=Q"), the standard UCI form ("e7d8q") and SAN
// ("Nf3", "exd5", "O-O", check markers optional).
func (b *Board) ParseMove(text string) (Move, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Move{}, fmt.Errorf("%w: empty move", ErrIllegalMove)
	}

	for _, m := range b.legalMoves {
		if m.UCI() == s || m.StandardUCI() == strings.ToLower(s) {
			return m, nil
		}
	}

	want := normalizeSAN(s)
	var found []Move
	for _, m := range b.legalMoves {
		if normalizeSAN(m.SAN()) == want {
			found = append(found, m)
		}
	}

	switch len(found) {
	case 0:
		return Move{}, fmt.Errorf("%w: %s", ErrIllegalMove, s)
	case 1:
		return found[0], nil
	default:
		return Move{}, fmt.Errorf("%w: %s matches %d moves", ErrAmbiguousMove, s, len(found))
	}
}

// normalizeSAN drops check markers and accepts zeros for castling.
func normalizeSAN(s string) string {
	s = strings.TrimRight(s, "+#!?")
	switch s {
	case "0-0":
		return "O-O"
	case "0-0-0":
		return "O-O-O"
	}
	return s
}

// MovesToSAN replays standard UCI moves from a FEN and returns their SAN.
// Replay stops at the first move that is not legal; the error reports it.
func MovesToSAN(fen string, moves []string) ([]string, error) {
	b, err := FromFEN(fen)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(moves))
	for _, text := range moves {
		m, err := b.ParseMove(text)
		if err != nil {
			return result, err
		}
		if err := b.Apply(m); err != nil {
			return result, err
		}
		result = append(result, b.moveLog[len(b.moveLog)-1].SAN())
	}

	return result, nil
}
