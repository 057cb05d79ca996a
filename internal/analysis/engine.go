package analysis

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/hailam/chessrules/internal/uci"
)

// EngineAnalyzer runs a local UCI engine. The process is started on first
// use and restarted on the next request after it fails.
type EngineAnalyzer struct {
	path string
	cfg  Config
	opts []uci.Option

	mu  sync.Mutex
	eng *uci.Engine
}

// NewEngineAnalyzer creates an analyzer for the engine binary at path.
func NewEngineAnalyzer(path string, cfg Config, opts ...uci.Option) *EngineAnalyzer {
	return &EngineAnalyzer{
		path: path,
		cfg:  cfg.withDefaults(),
		opts: opts,
	}
}

// Analyze implements Analyzer.
func (a *EngineAnalyzer) Analyze(ctx context.Context, req Request) ([]Line, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.eng == nil {
		eng, err := uci.Start(ctx, a.path, a.opts...)
		if err != nil {
			return nil, err
		}
		log.Printf("analysis: started %s", eng.Name())
		a.eng = eng
	}

	depth := req.Depth
	if depth <= 0 {
		depth = a.cfg.Depth
	}

	infos, err := a.eng.Analyse(ctx, req.FEN, depth, a.cfg.Lines)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			// Drop the process; the next request starts a fresh one.
			a.eng.Close()
			a.eng = nil
		}
		return nil, err
	}

	pvs := make([]PV, 0, len(infos))
	for _, info := range infos {
		pvs = append(pvs, PV{
			Moves:  info.PV,
			CP:     info.Score.CP,
			Mate:   info.Score.Mate,
			IsMate: info.Score.IsMate,
		})
	}

	return BuildLines(req.FEN, pvs, a.cfg.Lines, a.cfg.MovesPerLine)
}

// Close stops the engine process if one is running.
func (a *EngineAnalyzer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.eng == nil {
		return nil
	}
	err := a.eng.Close()
	a.eng = nil
	return err
}
