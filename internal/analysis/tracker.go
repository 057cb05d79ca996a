package analysis

import "sync/atomic"

// Ticket identifies one analysis request.
type Ticket struct {
	seq uint64
	FEN string
}

// Tracker decides whether a finished analysis may still be shown. Only the
// most recent request counts, and only while the board still shows the
// position it was made for.
type Tracker struct {
	seq atomic.Uint64
}

// Begin registers a request for fen and supersedes every earlier ticket.
func (t *Tracker) Begin(fen string) Ticket {
	return Ticket{seq: t.seq.Add(1), FEN: fen}
}

// Invalidate supersedes every outstanding ticket without starting a new one.
func (t *Tracker) Invalidate() {
	t.seq.Add(1)
}

// Accept reports whether the result for ticket is current: no newer ticket
// was issued and currentFEN equals the analysed FEN.
func (t *Tracker) Accept(ticket Ticket, currentFEN string) bool {
	return ticket.seq != 0 && ticket.seq == t.seq.Load() && ticket.FEN == currentFEN
}
