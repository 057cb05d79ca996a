package analysis

import (
	"context"
	"errors"
	"io"

	"github.com/hailam/chessrules/internal/uci"
)

// ErrNoSource is returned by a Factory with neither an engine nor the cloud
// configured.
var ErrNoSource = errors.New("analysis: no engine or cloud source configured")

// Fallback asks Primary first and Secondary when Primary has no answer.
// Cancellation is never retried.
type Fallback struct {
	Primary   Analyzer
	Secondary Analyzer
}

// Analyze implements Analyzer.
func (f *Fallback) Analyze(ctx context.Context, req Request) ([]Line, error) {
	lines, err := f.Primary.Analyze(ctx, req)
	if err == nil && len(lines) > 0 {
		return lines, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return f.Secondary.Analyze(ctx, req)
}

// Close closes both analyzers when they can be closed.
func (f *Fallback) Close() error {
	var errs []error
	for _, a := range []Analyzer{f.Primary, f.Secondary} {
		if c, ok := a.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Sources describes where analysis comes from.
type Sources struct {
	EnginePath    string
	EngineOptions []uci.Option
	UseCloud      bool
	CloudURL      string // DefaultCloudURL when empty
	Config        Config
}

// Factory returns a Queue factory building one analyzer per worker. With
// both sources set the cloud is asked first and the engine covers positions
// it does not know. When cache is not nil every worker shares it.
func Factory(src Sources, cache *CachedAnalyzer) func() (Analyzer, error) {
	return func() (Analyzer, error) {
		var a Analyzer
		switch {
		case src.UseCloud && src.EnginePath != "":
			a = &Fallback{
				Primary:   NewCloudAnalyzer(src.CloudURL, src.Config),
				Secondary: NewEngineAnalyzer(src.EnginePath, src.Config, src.EngineOptions...),
			}
		case src.UseCloud:
			a = NewCloudAnalyzer(src.CloudURL, src.Config)
		case src.EnginePath != "":
			a = NewEngineAnalyzer(src.EnginePath, src.Config, src.EngineOptions...)
		default:
			return nil, ErrNoSource
		}

		if cache != nil {
			return cache.Share(a), nil
		}
		return a, nil
	}
}
