package board

import (
	"errors"
	"testing"

	"github.com/hailam/chessrules/internal/testutil"
)

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 12 40",
		"r3k2r/8/8/8/8/8/8/R3K2R b Kq - 3 17",
		"4k3/8/8/8/8/8/8/4K3 w - - 99 120",
	}

	for _, fen := range fens {
		t.Run(fen, func(t *testing.T) {
			pos, err := DecodeFEN(fen)
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, EncodeFEN(pos), fen)

			b, err := FromFEN(fen)
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, b.FEN(), fen)
		})
	}
}

func TestDecodeFENDefaultsClocks(t *testing.T) {
	pos, err := DecodeFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, pos.HalfmoveClock, 0)
	testutil.AssertEqual(t, pos.FullmoveNumber, 1)
	testutil.AssertEqual(t, EncodeFEN(pos), StartFEN)
}

func TestDecodeFENFields(t *testing.T) {
	pos, err := DecodeFEN("rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w Kq c6 0 2")
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, pos.SideToMove, White)
	testutil.AssertEqual(t, pos.Castling, WhiteKingSideCastle|BlackQueenSideCastle)
	testutil.AssertEqual(t, pos.EnPassant, Square{Row: 2, Col: 2})
	testutil.AssertEqual(t, pos.FullmoveNumber, 2)
	testutil.AssertEqual(t, pos.Grid[0][0], BlackRook)
	testutil.AssertEqual(t, pos.Grid[7][4], WhiteKing)
	testutil.AssertEqual(t, pos.Grid[3][2], BlackPawn)
	testutil.AssertEqual(t, pos.Grid[4][4], WhitePawn)
	testutil.AssertEqual(t, pos.Grid[4][3], NoPiece)
}

func TestDecodeFENErrors(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		field string
	}{
		{"empty", "", "record"},
		{"too few fields", "8/8/8/8/8/8/8/8 w", "record"},
		{"too many fields", StartFEN + " extra", "record"},
		{"seven ranks", "rnbqkbnr/pppppppp/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", "piece placement"},
		{"short rank", "rnbqkbnr/ppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", "piece placement"},
		{"long rank", "rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", "piece placement"},
		{"overfull rank", "rnbqkbnrp/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", "piece placement"},
		{"bad piece", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBXKBNR w KQkq - 0 1", "piece placement"},
		{"bad side", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1", "side to move"},
		{"bad castling", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQxq - 0 1", "castling"},
		{"bad en passant", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq z9 0 1", "en passant"},
		{"en passant rank", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e4 0 1", "en passant"},
		{"en passant rank for white", "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e3 0 1", "en passant"},
		{"en passant rank for black", "rnbqkbnr/pppp1ppp/8/4p3/8/8/PPPPPPPP/RNBQKBNR b KQkq e6 0 1", "en passant"},
		{"negative halfmove", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - -1 1", "halfmove clock"},
		{"text halfmove", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - x 1", "halfmove clock"},
		{"zero fullmove", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 0", "fullmove number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := DecodeFEN(tt.fen)
			if pos != nil {
				t.Errorf("DecodeFEN returned a position for %q", tt.fen)
			}
			testutil.AssertErrorIs(t, err, ErrInvalidFEN)

			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("error %v is not a *FormatError", err)
			}
			testutil.AssertEqual(t, fe.Field, tt.field)
		})
	}
}

func TestFromFENKingCount(t *testing.T) {
	tests := []struct {
		name string
		fen  string
	}{
		{"no white king", "4k3/8/8/8/8/8/8/8 w - - 0 1"},
		{"no black king", "8/8/8/8/8/8/8/4K3 w - - 0 1"},
		{"two white kings", "4k3/8/8/8/8/8/8/3KK3 w - - 0 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromFEN(tt.fen)
			testutil.AssertErrorIs(t, err, ErrInvalidPosition)
		})
	}
}

func TestLoadFailureLeavesBoard(t *testing.T) {
	b := New()
	testutil.AssertNoError(t, b.Load("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"))
	before := b.FEN()

	testutil.AssertErrorIs(t, b.Load("not a fen"), ErrInvalidFEN)
	testutil.AssertErrorIs(t, b.Load("8/8/8/8/8/8/8/8 w - - 0 1"), ErrInvalidPosition)
	testutil.AssertEqual(t, b.FEN(), before)
}

func TestReducedFEN(t *testing.T) {
	testutil.AssertEqual(t, ReducedFEN(StartFEN), "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -")
	testutil.AssertEqual(t, ReducedFEN("8/8/8/8/8/8/8/8 w - -"), "8/8/8/8/8/8/8/8 w - -")
}
