package board

import (
	"testing"

	"github.com/hailam/chessrules/internal/testutil"
)

func mustBoard(t *testing.T, fen string) *Board {
	t.Helper()
	b, err := FromFEN(fen)
	if err != nil {
		t.Fatalf("FromFEN(%q): %v", fen, err)
	}
	return b
}

func play(t *testing.T, b *Board, moves ...string) {
	t.Helper()
	for _, text := range moves {
		if _, err := b.ApplyText(text); err != nil {
			t.Fatalf("ApplyText(%s): %v", text, err)
		}
	}
}

func legalUCIs(b *Board) []string {
	moves := b.LegalMoves()
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.UCI()
	}
	return out
}

func hasMove(b *Board, uci string) bool {
	for _, m := range b.LegalMoves() {
		if m.UCI() == uci {
			return true
		}
	}
	return false
}

func TestApplyUndoRestoresFEN(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 7 30",
	}

	for _, fen := range fens {
		t.Run(fen, func(t *testing.T) {
			b := mustBoard(t, fen)
			wantLegal := legalUCIs(b)
			wantLog := b.PositionLog()

			for _, m := range b.LegalMoves() {
				testutil.AssertNoError(t, b.Apply(m), m.UCI())
				testutil.AssertTrue(t, b.Undo(), "undo %s", m.UCI())

				testutil.AssertEqual(t, b.FEN(), fen, "after %s", m.UCI())
				testutil.AssertEqual(t, len(b.MoveLog()), 0, "move log after %s", m.UCI())
				testutil.AssertEqual(t, b.PositionLog(), wantLog, "position log after %s", m.UCI())
				testutil.AssertSameElements(t, legalUCIs(b), wantLegal, "legal moves after %s", m.UCI())
			}
		})
	}
}

func TestUndoSequence(t *testing.T) {
	b := New()
	moves := []string{"e2e4", "c7c5", "g1f3", "d7d6", "f1b5", "c8d7", "e1g1", "d7b5"}

	fens := []string{b.FEN()}
	for _, text := range moves {
		play(t, b, text)
		fens = append(fens, b.FEN())
	}

	for i := len(moves); i > 0; i-- {
		testutil.AssertTrue(t, b.Undo())
		testutil.AssertEqual(t, b.FEN(), fens[i-1], "undo to ply %d", i-1)
	}

	testutil.AssertFalse(t, b.Undo(), "undo on empty history")
	testutil.AssertEqual(t, b.FEN(), StartFEN)
	testutil.AssertEqual(t, len(b.PositionLog()), 1)
}

func TestEnPassant(t *testing.T) {
	b := New()
	play(t, b, "e2e4", "a7a6", "e4e5", "d7d5")

	testutil.AssertEqual(t, b.EnPassant().String(), "d6")
	testutil.AssertTrue(t, hasMove(b, "e5d6"), "en passant available")

	before := b.FEN()
	m, err := b.ApplyText("e5d6")
	testutil.AssertNoError(t, err)

	testutil.AssertTrue(t, m.IsEnPassant())
	testutil.AssertTrue(t, m.IsCapture())
	testutil.AssertEqual(t, m.SAN(), "exd6")

	d5, _ := ParseSquare("d5")
	d6, _ := ParseSquare("d6")
	e5, _ := ParseSquare("e5")
	testutil.AssertEqual(t, b.PieceAt(d5), NoPiece, "captured pawn removed")
	testutil.AssertEqual(t, b.PieceAt(d6), WhitePawn)
	testutil.AssertEqual(t, b.PieceAt(e5), NoPiece)
	testutil.AssertEqual(t, b.HalfmoveClock(), 0)

	testutil.AssertTrue(t, b.Undo())
	testutil.AssertEqual(t, b.FEN(), before)
	testutil.AssertEqual(t, b.PieceAt(d5), BlackPawn, "captured pawn restored")
}

func TestEnPassantExpires(t *testing.T) {
	b := New()
	play(t, b, "e2e4", "a7a6", "e4e5", "d7d5", "g1f3", "h7h6")

	testutil.AssertEqual(t, b.EnPassant(), NoSquare)
	testutil.AssertFalse(t, hasMove(b, "e5d6"))
}

func TestEnPassantTargetAfterDoublePush(t *testing.T) {
	b := New()
	play(t, b, "e2e4")
	testutil.AssertEqual(t, b.EnPassant().String(), "e3")
	play(t, b, "g8f6")
	testutil.AssertEqual(t, b.EnPassant(), NoSquare)
}

func TestThreefoldRepetition(t *testing.T) {
	b := New()
	cycle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}

	play(t, b, cycle...)
	play(t, b, cycle[:3]...)
	testutil.AssertFalse(t, b.IsDraw(), "second repetition")

	play(t, b, cycle[3])
	testutil.AssertTrue(t, b.IsDraw(), "third repetition")
	testutil.AssertEqual(t, b.Result().Reason, ThreefoldRepetition)

	_, err := b.ApplyText("e2e4")
	testutil.AssertErrorIs(t, err, ErrGameOver)

	testutil.AssertTrue(t, b.Undo())
	testutil.AssertFalse(t, b.IsDraw(), "undo clears the draw")
}

func TestPositionLog(t *testing.T) {
	b := New()
	play(t, b, "e2e4", "e7e5")

	log := b.PositionLog()
	testutil.AssertEqual(t, log, []string{
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3",
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6",
	})
}

func TestFiftyMoveRule(t *testing.T) {
	b := mustBoard(t, "4k3/8/8/8/8/8/8/R3K3 w - - 99 80")
	testutil.AssertFalse(t, b.IsDraw())

	play(t, b, "a1a2")
	testutil.AssertEqual(t, b.HalfmoveClock(), FiftyMovePlies)
	testutil.AssertTrue(t, b.IsDraw())
	testutil.AssertEqual(t, b.Result().Reason, FiftyMoveRule)

	testutil.AssertTrue(t, b.Undo())
	testutil.AssertEqual(t, b.HalfmoveClock(), 99)
	testutil.AssertFalse(t, b.IsDraw(), "undo clears the draw")

	play(t, b, "e1e2")
	testutil.AssertTrue(t, b.IsDraw(), "any quiet move reaches the limit")
}

func TestCheckmateBeatsFiftyMoveRule(t *testing.T) {
	b := mustBoard(t, "7k/8/6K1/8/8/8/8/R7 w - - 99 80")
	play(t, b, "a1a8")

	testutil.AssertEqual(t, b.HalfmoveClock(), FiftyMovePlies)
	testutil.AssertTrue(t, b.IsCheckmate())
}

func TestHalfmoveAndFullmove(t *testing.T) {
	b := New()
	play(t, b, "g1f3")
	testutil.AssertEqual(t, b.HalfmoveClock(), 1)
	testutil.AssertEqual(t, b.FullmoveNumber(), 1)

	play(t, b, "b8c6")
	testutil.AssertEqual(t, b.HalfmoveClock(), 2)
	testutil.AssertEqual(t, b.FullmoveNumber(), 2)

	play(t, b, "e2e4")
	testutil.AssertEqual(t, b.HalfmoveClock(), 0)
}

func TestCastling(t *testing.T) {
	b := mustBoard(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	testutil.AssertTrue(t, hasMove(b, "e1g1"))
	testutil.AssertTrue(t, hasMove(b, "e1c1"))

	m, err := b.ApplyText("O-O")
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, m.IsCastling())
	testutil.AssertEqual(t, m.SAN(), "O-O")
	testutil.AssertEqual(t, b.FEN(), "r3k2r/8/8/8/8/8/8/R4RK1 b kq - 1 1")

	m, err = b.ApplyText("O-O-O")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, m.SAN(), "O-O-O")
	testutil.AssertEqual(t, b.FEN(), "2kr3r/8/8/8/8/8/8/R4RK1 w - - 2 2")

	wk, bk := b.KingPositions()
	testutil.AssertEqual(t, wk.String(), "g1")
	testutil.AssertEqual(t, bk.String(), "c8")

	b.Undo()
	b.Undo()
	testutil.AssertEqual(t, b.FEN(), "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	wk, bk = b.KingPositions()
	testutil.AssertEqual(t, wk.String(), "e1")
	testutil.AssertEqual(t, bk.String(), "e8")
}

func TestCastlingThroughAttack(t *testing.T) {
	tests := []struct {
		name      string
		fen       string
		kingSide  bool
		queenSide bool
	}{
		{"nothing attacked", "4k3/8/8/8/8/8/8/R3K2R w KQ - 0 1", true, true},
		{"f1 attacked", "4kr2/8/8/8/8/8/8/R3K2R w KQ - 0 1", false, true},
		{"g1 attacked", "4k1r1/8/8/8/8/8/8/R3K2R w KQ - 0 1", false, true},
		{"d1 attacked", "3rk3/8/8/8/8/8/8/R3K2R w KQ - 0 1", true, false},
		{"c1 attacked", "2r1k3/8/8/8/8/8/8/R3K2R w KQ - 0 1", true, false},
		{"only b1 attacked", "1r2k3/8/8/8/8/8/8/R3K2R w KQ - 0 1", true, true},
		{"pawn covers d1 and f1", "4k3/8/8/8/8/8/4p3/R3K2R w KQ - 0 1", false, false},
		{"king in check", "4r1k1/8/8/8/8/8/8/R3K2R w KQ - 0 1", false, false},
		{"b1 occupied", "4k3/8/8/8/8/8/8/RN2K2R w KQ - 0 1", true, false},
		{"rook missing", "4k3/8/8/8/8/8/8/4K2R w KQ - 0 1", true, false},
		{"no rights", "4k3/8/8/8/8/8/8/R3K2R w - - 0 1", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBoard(t, tt.fen)
			testutil.AssertEqual(t, hasMove(b, "e1g1"), tt.kingSide, "king side")
			testutil.AssertEqual(t, hasMove(b, "e1c1"), tt.queenSide, "queen side")
		})
	}
}

func TestCastlingRightsRevoked(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		move  string
		after CastlingRights
	}{
		{"king move", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1e2", BlackKingSideCastle | BlackQueenSideCastle},
		{"kingside rook", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "h1h5", WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle},
		{"queenside rook", "r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1", "a8a5", WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle},
		{"rook captured in its corner", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "a1a8", WhiteKingSideCastle | BlackKingSideCastle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBoard(t, tt.fen)
			before := b.CastlingRights()

			play(t, b, tt.move)
			testutil.AssertEqual(t, b.CastlingRights(), tt.after)

			b.Undo()
			testutil.AssertEqual(t, b.CastlingRights(), before, "restored by undo")
		})
	}
}

func TestPromotion(t *testing.T) {
	b := mustBoard(t, "8/P7/8/8/8/8/8/k6K w - - 0 1")

	want := map[string]string{
		"aa8=Q": "a8=Q+",
		"aa8=R": "a8=R+",
		"aa8=B": "a8=B",
		"aa8=N": "a8=N",
	}
	got := map[string]string{}
	for _, m := range b.LegalMoves() {
		if m.IsPromotion() {
			got[m.UCI()] = m.SAN()
		}
	}
	testutil.AssertEqual(t, got, want)

	m, err := b.ApplyText("a7a8n")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, m.Promotion(), Knight)

	a8, _ := ParseSquare("a8")
	testutil.AssertEqual(t, b.PieceAt(a8), WhiteKnight)

	b.Undo()
	a7, _ := ParseSquare("a7")
	testutil.AssertEqual(t, b.PieceAt(a7), WhitePawn)
	testutil.AssertEqual(t, b.PieceAt(a8), NoPiece)
}

func TestApplyIllegalMove(t *testing.T) {
	b := New()
	before := b.FEN()

	// A move that was legal somewhere else
	other := mustBoard(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	var rookMove Move
	for _, m := range other.LegalMoves() {
		if m.UCI() == "a1a8" {
			rookMove = m
		}
	}

	testutil.AssertErrorIs(t, b.Apply(rookMove), ErrIllegalMove)
	_, err := b.ApplyText("e2e5")
	testutil.AssertErrorIs(t, err, ErrIllegalMove)
	_, err = b.ApplyText("")
	testutil.AssertErrorIs(t, err, ErrIllegalMove)

	testutil.AssertEqual(t, b.FEN(), before)
	testutil.AssertEqual(t, len(b.MoveLog()), 0)
	testutil.AssertEqual(t, len(b.PositionLog()), 1)
}

func TestPinnedPieceCannotMove(t *testing.T) {
	// The e2 knight is pinned by the e8 rook.
	b := mustBoard(t, "4r1k1/8/8/8/8/8/4N3/4K3 w - - 0 1")
	for _, m := range b.LegalMoves() {
		if m.Piece().Type() == Knight {
			t.Errorf("pinned knight has legal move %s", m.UCI())
		}
	}
}

func TestKingPositionsTrackMoves(t *testing.T) {
	b := New()
	play(t, b, "e2e4", "e7e5", "e1e2", "e8e7")

	wk, bk := b.KingPositions()
	testutil.AssertEqual(t, wk.String(), "e2")
	testutil.AssertEqual(t, bk.String(), "e7")
	testutil.AssertEqual(t, b.PieceAt(wk), WhiteKing)
	testutil.AssertEqual(t, b.PieceAt(bk), BlackKing)
}

func TestCheckFlag(t *testing.T) {
	b := New()
	play(t, b, "e2e4", "f7f6")

	var checks []string
	for _, m := range b.LegalMoves() {
		if m.IsCheck() {
			checks = append(checks, m.SAN())
		}
	}
	testutil.AssertSameElements(t, checks, []string{"Qh5+"})
}

func TestClone(t *testing.T) {
	b := New()
	play(t, b, "e2e4")

	c := b.Clone()
	play(t, c, "e7e5", "g1f3")

	testutil.AssertEqual(t, b.FEN(), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	testutil.AssertEqual(t, len(b.MoveLog()), 1)
	testutil.AssertEqual(t, len(c.MoveLog()), 3)

	c.Undo()
	c.Undo()
	c.Undo()
	testutil.AssertEqual(t, c.FEN(), StartFEN)
	testutil.AssertEqual(t, b.CastlingRights(), AllCastling)
}

func TestBoardString(t *testing.T) {
	s := New().String()
	testutil.AssertContains(t, s, "8  r n b q k b n r")
	testutil.AssertContains(t, s, "1  R N B Q K B N R")
	testutil.AssertContains(t, s, "Side to move: White")
}

func TestMustFromFEN(t *testing.T) {
	testutil.AssertEqual(t, mustFromFEN(StartFEN).FEN(), New().FEN())

	defer func() {
		if recover() == nil {
			t.Error("mustFromFEN did not panic on a FEN without kings")
		}
	}()
	mustFromFEN("8/8/8/8/8/8/8/8 w - - 0 1")
}
