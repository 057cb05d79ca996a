package analysis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hailam/chessrules/internal/board"
	"github.com/hailam/chessrules/internal/testutil"
	"github.com/hailam/chessrules/internal/uci"
)

// stubAnalyzer returns a fixed line and counts calls.
type stubAnalyzer struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, req Request) ([]Line, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return []Line{{Rank: 1, Moves: []string{"e4"}, Eval: fmt.Sprintf("+0.%02d", req.Depth)}}, nil
}

func TestCloudAnalyzer(t *testing.T) {
	afterE4 := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("fen") {
		case afterE4:
			testutil.AssertEqual(t, r.URL.Query().Get("multiPv"), "5")
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"fen":"`+afterE4+`","knodes":1000,"depth":40,"pvs":[
				{"moves":"c7c5 g1f3 d7d6 d2d4 c5d4 f3d4","cp":28},
				{"moves":"e7e5 g1f3","cp":35},
				{"moves":"e7e6 d1h5","mate":-7}
			]}`)
		default:
			http.Error(w, `{"error":"Not found"}`, http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ca := NewCloudAnalyzer(srv.URL, DefaultConfig())

	lines, err := ca.Analyze(context.Background(), Request{FEN: afterE4})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, lines, []Line{
		{Rank: 1, Moves: []string{"c5", "Nf3", "d6", "d4", "cxd4"}, Eval: "-0.28"},
		{Rank: 2, Moves: []string{"e5", "Nf3"}, Eval: "-0.35"},
		{Rank: 3, Moves: []string{"e6", "Qh5"}, Eval: "M7"},
	})

	_, err = ca.Analyze(context.Background(), Request{FEN: board.StartFEN})
	testutil.AssertErrorIs(t, err, ErrNotFound)

	_, err = ca.Analyze(context.Background(), Request{FEN: "garbage"})
	testutil.AssertErrorIs(t, err, board.ErrInvalidFEN)
}

func TestCachedAnalyzer(t *testing.T) {
	stub := &stubAnalyzer{}
	ca, err := NewCachedAnalyzer(stub, 100)
	testutil.AssertNoError(t, err)
	defer ca.Close()

	req := Request{FEN: board.StartFEN, Depth: 12}
	first, err := ca.Analyze(context.Background(), req)
	testutil.AssertNoError(t, err)
	ca.Wait()

	second, err := ca.Analyze(context.Background(), req)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, second, first)
	testutil.AssertEqual(t, stub.calls.Load(), int32(1))
	testutil.AssertEqual(t, ca.HitRate(), 50.0)

	// Depth is part of the key
	_, err = ca.Analyze(context.Background(), Request{FEN: board.StartFEN, Depth: 14})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, stub.calls.Load(), int32(2))

	ca.Clear()
	testutil.AssertEqual(t, ca.HitRate(), 0.0)
}

func TestCachedAnalyzerSkipsErrors(t *testing.T) {
	stub := &stubAnalyzer{err: ErrNotFound}
	ca, err := NewCachedAnalyzer(stub, 100)
	testutil.AssertNoError(t, err)
	defer ca.Close()

	req := Request{FEN: board.StartFEN}
	for i := 0; i < 2; i++ {
		_, err := ca.Analyze(context.Background(), req)
		testutil.AssertErrorIs(t, err, ErrNotFound)
		ca.Wait()
	}
	testutil.AssertEqual(t, stub.calls.Load(), int32(2))
}

func TestQueue(t *testing.T) {
	q := NewQueue(2, func() (Analyzer, error) { return &stubAnalyzer{}, nil })
	defer q.Shutdown(time.Second)

	var wg sync.WaitGroup
	results := make(chan Result, 4)
	for depth := 1; depth <= 4; depth++ {
		wg.Add(1)
		err := q.Submit(context.Background(), Request{FEN: board.StartFEN, Depth: depth}, func(r Result) {
			results <- r
			wg.Done()
		})
		testutil.AssertNoError(t, err)
	}
	wg.Wait()
	close(results)

	seen := map[int]string{}
	for r := range results {
		testutil.AssertNoError(t, r.Err)
		seen[r.Request.Depth] = r.Lines[0].Eval
	}
	testutil.AssertEqual(t, seen, map[int]string{1: "+0.01", 2: "+0.02", 3: "+0.03", 4: "+0.04"})
}

func TestQueueFactoryError(t *testing.T) {
	boom := errors.New("no engine")
	q := NewQueue(1, func() (Analyzer, error) { return nil, boom })
	defer q.Shutdown(time.Second)

	done := make(chan Result, 1)
	testutil.AssertNoError(t, q.Submit(context.Background(), Request{FEN: board.StartFEN}, func(r Result) { done <- r }))

	r := <-done
	testutil.AssertErrorIs(t, r.Err, boom)
}

func TestQueueShutdown(t *testing.T) {
	stub := &stubAnalyzer{delay: time.Minute}
	q := NewQueue(1, func() (Analyzer, error) { return stub, nil })

	done := make(chan Result, 1)
	testutil.AssertNoError(t, q.Submit(context.Background(), Request{FEN: board.StartFEN}, func(r Result) { done <- r }))

	// Let the worker pick the task up before shutting down.
	for stub.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	testutil.AssertNoError(t, q.Shutdown(time.Second))

	r := <-done
	testutil.AssertErrorIs(t, r.Err, context.Canceled)

	err := q.Submit(context.Background(), Request{FEN: board.StartFEN}, func(Result) {})
	testutil.AssertErrorIs(t, err, ErrQueueClosed)
}

func TestQueueFull(t *testing.T) {
	stub := &stubAnalyzer{delay: time.Minute}
	q := NewQueue(1, func() (Analyzer, error) { return stub, nil })
	defer q.Shutdown(time.Second)

	var err error
	for i := 0; i <= defaultQueueSize+1 && err == nil; i++ {
		err = q.Submit(context.Background(), Request{FEN: board.StartFEN}, func(Result) {})
	}
	testutil.AssertErrorIs(t, err, ErrQueueFull)
}

// TestHelperProcess is re-executed by TestEngineAnalyzer as a stand-in engine.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("CHESSRULES_FAKE_ENGINE") != "1" {
		return
	}
	fakeEngine()
	os.Exit(0)
}

func fakeEngine() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "uci":
			fmt.Println("id name FakeFish")
			fmt.Println("uciok")
		case "isready":
			fmt.Println("readyok")
		case "go":
			fmt.Println("info depth 8 multipv 1 score cp 40 pv e2e4 e7e5 g1f3 b8c6 f1b5 a7a6")
			fmt.Println("info depth 8 multipv 2 score cp 40 pv e2e4 e7e5 g1f3 b8c6 f1b5 a7a6")
			fmt.Println("info depth 8 multipv 3 score cp 12 pv e2e5")
			fmt.Println("info depth 8 multipv 4 score mate 9 pv d2d4")
			fmt.Println("bestmove e2e4")
		case "quit":
			return
		}
	}
}

func TestEngineAnalyzer(t *testing.T) {
	a := NewEngineAnalyzer(os.Args[0], DefaultConfig(),
		uci.WithArgs("-test.run=^TestHelperProcess$"),
		uci.WithEnv("CHESSRULES_FAKE_ENGINE=1"),
	)
	defer a.Close()

	lines, err := a.Analyze(context.Background(), Request{FEN: board.StartFEN, Depth: 8})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, lines, []Line{
		{Rank: 1, Moves: []string{"e4", "e5", "Nf3", "Nc6", "Bb5"}, Eval: "+0.40"},
		{Rank: 2, Moves: []string{"d4"}, Eval: "M9"},
	})
}

func TestEngineAnalyzerMissingBinary(t *testing.T) {
	a := NewEngineAnalyzer("/nonexistent/engine", DefaultConfig())
	_, err := a.Analyze(context.Background(), Request{FEN: board.StartFEN})
	testutil.AssertTrue(t, err != nil, "expected error")
	testutil.AssertNoError(t, a.Close())
}

func TestFallback(t *testing.T) {
	primary := &stubAnalyzer{err: ErrNotFound}
	secondary := &stubAnalyzer{}
	f := &Fallback{Primary: primary, Secondary: secondary}

	lines, err := f.Analyze(context.Background(), Request{FEN: board.StartFEN, Depth: 7})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, lines[0].Eval, "+0.07")
	testutil.AssertEqual(t, primary.calls.Load(), int32(1))
	testutil.AssertEqual(t, secondary.calls.Load(), int32(1))

	// A cancelled request is not handed to the secondary.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := &Fallback{Primary: &stubAnalyzer{delay: time.Minute}, Secondary: secondary}
	_, err = slow.Analyze(ctx, Request{FEN: board.StartFEN})
	testutil.AssertErrorIs(t, err, context.Canceled)
	testutil.AssertEqual(t, secondary.calls.Load(), int32(1))

	testutil.AssertNoError(t, f.Close())
}

func TestFactory(t *testing.T) {
	_, err := Factory(Sources{}, nil)()
	testutil.AssertErrorIs(t, err, ErrNoSource)

	a, err := Factory(Sources{UseCloud: true, EnginePath: "stockfish"}, nil)()
	testutil.AssertNoError(t, err)
	_, ok := a.(*Fallback)
	testutil.AssertTrue(t, ok, "cloud plus engine falls back")

	a, err = Factory(Sources{EnginePath: "stockfish"}, nil)()
	testutil.AssertNoError(t, err)
	_, ok = a.(*EngineAnalyzer)
	testutil.AssertTrue(t, ok, "engine only")
}

func TestCachedAnalyzerShare(t *testing.T) {
	owner, err := NewCachedAnalyzer(nil, 100)
	testutil.AssertNoError(t, err)
	defer owner.Close()

	first, second := &stubAnalyzer{}, &stubAnalyzer{}
	a, b := owner.Share(first), owner.Share(second)

	req := Request{FEN: board.StartFEN, Depth: 3}
	_, err = a.Analyze(context.Background(), req)
	testutil.AssertNoError(t, err)
	owner.Wait()

	_, err = b.Analyze(context.Background(), req)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, second.calls.Load(), int32(0), "served from the shared cache")
	testutil.AssertEqual(t, owner.HitRate(), 50.0)

	// Closing a view leaves the shared cache usable.
	testutil.AssertNoError(t, a.Close())
	_, err = b.Analyze(context.Background(), req)
	testutil.AssertNoError(t, err)
}
