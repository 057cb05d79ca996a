package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hailam/chessrules/internal/testutil"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// TestHelperProcess is not a real test. It is re-executed by startFake as a
// stand-in engine.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("CHESSRULES_FAKE_ENGINE") != "1" {
		return
	}
	runFakeEngine(os.Stdin, os.Stdout)
	os.Exit(0)
}

func startFake(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{
		WithArgs("-test.run=^TestHelperProcess$"),
		WithEnv("CHESSRULES_FAKE_ENGINE=1"),
	}, opts...)

	e, err := Start(context.Background(), os.Args[0], opts...)
	testutil.AssertNoError(t, err, "start fake engine")
	t.Cleanup(func() { e.Close() })
	return e
}

// fakeLines are the principal variations the fake engine reports, best first.
var fakeLines = []struct {
	score string
	pv    string
}{
	{"cp 31", "e2e4 e7e5 g1f3 b8c6 f1b5 a7a6"},
	{"cp 25", "d2d4 d7d5 c2c4"},
	{"cp 18", "g1f3 d7d5"},
	{"mate -2", "f2f3 e7e5 g2g4 d8h4"},
}

// runFakeEngine answers the subset of UCI the client uses.
func runFakeEngine(in io.Reader, out io.Writer) {
	w := bufio.NewWriter(out)
	say := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\n", args...)
		w.Flush()
	}

	multiPV := 1
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "uci":
			say("id name FakeFish 1.0")
			say("id author chessrules")
			say("option name MultiPV type spin default 1 min 1 max 500")
			say("uciok")
		case "isready":
			say("readyok")
		case "setoption":
			if len(fields) >= 5 && fields[2] == "MultiPV" {
				multiPV, _ = strconv.Atoi(fields[4])
			}
		case "go":
			if fields[1] == "infinite" {
				say("info depth 1 multipv 1 score cp 10 pv e2e4")
				for scanner.Scan() {
					if strings.TrimSpace(scanner.Text()) == "stop" {
						break
					}
				}
				say("bestmove e2e4")
				continue
			}

			depth, _ := strconv.Atoi(fields[2])
			for d := 1; d <= depth; d++ {
				for k := 1; k <= multiPV && k <= len(fakeLines); k++ {
					l := fakeLines[k-1]
					say("info depth %d seldepth %d multipv %d score %s nodes %d nps 1000 time %d pv %s",
						d, d+2, k, l.score, d*1000, d, l.pv)
				}
				say("info depth %d multipv 1 score cp 99 upperbound nodes 1 pv a2a3", d+1)
			}
			say("info string search done")
			say("bestmove %s", strings.Fields(fakeLines[0].pv)[0])
		case "quit":
			return
		}
	}
}

func TestStartHandshake(t *testing.T) {
	e := startFake(t, WithOption("Hash", "16"))
	testutil.AssertEqual(t, e.Name(), "FakeFish 1.0")
	testutil.AssertNoError(t, e.NewGame(context.Background()))
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start(context.Background(), "/nonexistent/engine")
	testutil.AssertTrue(t, err != nil, "expected start error")
}

func TestAnalyseMultiPV(t *testing.T) {
	e := startFake(t)

	infos, err := e.Analyse(context.Background(), startFEN, 4, 3)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(infos), 3)

	for i, info := range infos {
		testutil.AssertEqual(t, info.MultiPV, i+1)
		testutil.AssertEqual(t, info.Depth, 4, "bound lines are ignored")
		testutil.AssertEqual(t, strings.Join(info.PV, " "), fakeLines[i].pv)
	}
	testutil.AssertEqual(t, infos[0].Score, Score{CP: 31})
}

func TestAnalyseMateScore(t *testing.T) {
	e := startFake(t)

	infos, err := e.Analyse(context.Background(), startFEN, 2, 4)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(infos), 4)
	testutil.AssertEqual(t, infos[3].Score, Score{Mate: -2, IsMate: true})
}

func TestAnalyseCancel(t *testing.T) {
	e := startFake(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := e.Analyse(ctx, startFEN, 0, 1)
	testutil.AssertTrue(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)

	// The stream was drained, so the engine is usable again.
	infos, err := e.Analyse(context.Background(), startFEN, 1, 1)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(infos), 1)
	testutil.AssertEqual(t, infos[0].PV[0], "e2e4")
}

func TestCloseTwice(t *testing.T) {
	e := startFake(t)
	testutil.AssertNoError(t, e.Close())
	testutil.AssertNoError(t, e.Close())

	_, err := e.Analyse(context.Background(), startFEN, 1, 1)
	testutil.AssertErrorIs(t, err, ErrEngineExited)
}

func TestParseInfo(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Info
		ok   bool
	}{
		{
			name: "full line",
			line: "info depth 12 seldepth 18 multipv 2 score cp -34 nodes 123456 nps 999 time 87 pv e7e5 g1f3",
			want: Info{Depth: 12, SelDepth: 18, MultiPV: 2, Score: Score{CP: -34}, Nodes: 123456, NPS: 999, TimeMs: 87, PV: []string{"e7e5", "g1f3"}},
			ok:   true,
		},
		{
			name: "mate",
			line: "info depth 5 score mate 3 pv d1h5",
			want: Info{Depth: 5, MultiPV: 1, Score: Score{Mate: 3, IsMate: true}, PV: []string{"d1h5"}},
			ok:   true,
		},
		{
			name: "bound",
			line: "info depth 7 score cp 15 lowerbound pv e2e4",
			want: Info{Depth: 7, MultiPV: 1, Score: Score{CP: 15}, Bound: "lowerbound", PV: []string{"e2e4"}},
			ok:   true,
		},
		{
			name: "no pv",
			line: "info depth 3 currmove e2e4 currmovenumber 1",
			want: Info{Depth: 3, MultiPV: 1},
			ok:   true,
		},
		{name: "string", line: "info string NNUE enabled", ok: false},
		{name: "bestmove", line: "bestmove e2e4 ponder e7e5", ok: false},
		{name: "empty", line: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseInfo(tt.line)
			testutil.AssertEqual(t, ok, tt.ok)
			testutil.AssertEqual(t, got, tt.want)
		})
	}
}
