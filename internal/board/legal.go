package board

import "context"

// generateLegalMoves filters the pseudo-legal and castling candidates for
// the side to move, then fills in check flags and SAN for the survivors.
// Every tentative makeMove is paired with an undo before the next candidate.
func (b *Board) generateLegalMoves() []Move {
	us := b.sideToMove
	them := us.Other()

	candidates := b.pseudoLegalMoves(us, make([]Move, 0, 48))
	candidates = b.castlingMoves(us, candidates)

	legal := candidates[:0]
	for _, m := range candidates {
		b.makeMove(m)
		exposed := b.IsSquareAttacked(b.kings[us], them)
		b.undo(true)
		if !exposed {
			legal = append(legal, m)
		}
	}

	for i := range legal {
		b.makeMove(legal[i])
		legal[i].check = b.inCheck()
		b.undo(true)
		legal[i].san = san(legal[i])
	}

	return legal
}

// refresh regenerates the legal-move set and the game result.
func (b *Board) refresh() {
	b.legalMoves = b.generateLegalMoves()

	switch {
	case len(b.legalMoves) == 0 && b.inCheck():
		b.result = GameResult{Status: Checkmate, Winner: b.sideToMove.Other()}
	case len(b.legalMoves) == 0:
		b.result = GameResult{Status: Draw, Reason: Stalemate, Winner: NoColor}
	case b.halfmoveClock >= FiftyMovePlies:
		b.result = GameResult{Status: Draw, Reason: FiftyMoveRule, Winner: NoColor}
	case b.hasThreefold():
		b.result = GameResult{Status: Draw, Reason: ThreefoldRepetition, Winner: NoColor}
	default:
		b.result = GameResult{Status: Ongoing, Winner: NoColor}
	}
}

// hasThreefold reports whether any reduced position occurs three times.
func (b *Board) hasThreefold() bool {
	if len(b.positionLog) < 5 {
		return false
	}
	seen := make(map[string]int, len(b.positionLog))
	for _, fen := range b.positionLog {
		seen[fen]++
		if seen[fen] >= 3 {
			return true
		}
	}
	return false
}

// Perft counts the leaf nodes of the legal move tree to the given depth.
// Draw rules are ignored, as usual for perft. The board is left unchanged.
func Perft(b *Board, depth int) int64 {
	if depth <= 0 {
		return 1
	}
	return b.perft(b.legalMoves, depth)
}

func (b *Board) perft(moves []Move, depth int) int64 {
	if depth == 1 {
		return int64(len(moves))
	}

	var nodes int64
	for _, m := range moves {
		b.makeMove(m)
		nodes += b.perft(b.generateLegalMoves(), depth-1)
		b.undo(true)
	}
	return nodes
}

// PerftContext is Perft that gives up with ctx.Err() once ctx is done. The
// board is restored either way.
func PerftContext(ctx context.Context, b *Board, depth int) (int64, error) {
	if depth <= 0 {
		return 1, nil
	}
	return b.perftContext(ctx, b.legalMoves, depth)
}

func (b *Board) perftContext(ctx context.Context, moves []Move, depth int) (int64, error) {
	if depth == 1 {
		return int64(len(moves)), nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var nodes int64
	for _, m := range moves {
		b.makeMove(m)
		n, err := b.perftContext(ctx, b.generateLegalMoves(), depth-1)
		b.undo(true)
		if err != nil {
			return 0, err
		}
		nodes += n
	}
	return nodes, nil
}
