// Package uci drives an external chess engine over the Universal Chess
// Interface protocol. The engine runs as a child process; this package only
// speaks the client side (uci, isready, position, go, stop, quit).
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrEngineExited is returned when the engine process closes its output.
	ErrEngineExited = errors.New("uci: engine exited")

	// ErrHandshake is returned when the engine does not answer uci/isready.
	ErrHandshake = errors.New("uci: handshake failed")
)

const (
	defaultHandshakeTimeout = 5 * time.Second
	stopDrainTimeout        = 2 * time.Second
	quitTimeout             = time.Second
)

// Option configures Start.
type Option func(*config)

type config struct {
	args             []string
	env              []string
	handshakeTimeout time.Duration
	options          map[string]string
}

// WithArgs passes command-line arguments to the engine binary.
func WithArgs(args ...string) Option {
	return func(c *config) { c.args = append(c.args, args...) }
}

// WithEnv adds KEY=VALUE entries to the engine's environment.
func WithEnv(env ...string) Option {
	return func(c *config) { c.env = append(c.env, env...) }
}

// WithHandshakeTimeout bounds each of the uciok and readyok waits.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *config) { c.handshakeTimeout = d }
}

// WithOption sends "setoption name <name> value <value>" right after the handshake.
func WithOption(name, value string) Option {
	return func(c *config) { c.options[name] = value }
}

// Engine is a running UCI engine process. Searches are serialized; an
// Engine may be shared between goroutines.
type Engine struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string

	name    string
	timeout time.Duration

	mu      sync.Mutex // held for a whole command/response exchange
	writeMu sync.Mutex
	closed  bool
}

// Start launches the engine at path and completes the uci/isready handshake.
// ctx bounds the handshake only; the process outlives it.
func Start(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	cfg := config{
		handshakeTimeout: defaultHandshakeTimeout,
		options:          make(map[string]string),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	cmd := exec.Command(path, cfg.args...)
	if len(cfg.env) > 0 {
		cmd.Env = append(os.Environ(), cfg.env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine %s: %w", path, err)
	}

	e := &Engine{
		cmd:     cmd,
		stdin:   stdin,
		lines:   make(chan string, 256),
		timeout: cfg.handshakeTimeout,
	}
	go e.readLoop(stdout)

	if err := e.handshake(ctx); err != nil {
		e.Close()
		return nil, err
	}

	names := make([]string, 0, len(cfg.options))
	for name := range cfg.options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := e.SetOption(ctx, name, cfg.options[name]); err != nil {
			e.Close()
			return nil, err
		}
	}

	return e, nil
}

// readLoop forwards engine output line by line and closes lines on EOF.
func (e *Engine) readLoop(r io.Reader) {
	defer close(e.lines)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		e.lines <- strings.TrimSpace(scanner.Text())
	}
}

func (e *Engine) handshake(ctx context.Context) error {
	if err := e.send("uci"); err != nil {
		return err
	}

	hctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	_, err := e.waitFor(hctx, func(line string) bool {
		if name, ok := strings.CutPrefix(line, "id name "); ok {
			e.name = name
		}
		return line == "uciok"
	})
	if err != nil {
		return fmt.Errorf("%w: waiting for uciok: %v", ErrHandshake, err)
	}

	if err := e.isReady(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	return nil
}

// Name returns the "id name" the engine announced.
func (e *Engine) Name() string {
	return e.name
}

// SetOption sets an engine option and waits until the engine is ready again.
func (e *Engine) SetOption(ctx context.Context, name, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.send(fmt.Sprintf("setoption name %s value %s", name, value)); err != nil {
		return err
	}
	return e.isReady(ctx)
}

// NewGame tells the engine the next search belongs to a different game.
func (e *Engine) NewGame(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.send("ucinewgame"); err != nil {
		return err
	}
	return e.isReady(ctx)
}

// Analyse searches fen to the given depth with multiPV principal variations
// and returns the deepest complete info for each variation, ordered by
// multipv index. A depth of zero or less searches until ctx is done.
// On cancellation the engine is stopped and drained before returning.
func (e *Engine) Analyse(ctx context.Context, fen string, depth, multiPV int) ([]Info, error) {
	if multiPV < 1 {
		multiPV = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.send(fmt.Sprintf("setoption name MultiPV value %d", multiPV)); err != nil {
		return nil, err
	}
	if err := e.isReady(ctx); err != nil {
		return nil, err
	}
	if err := e.send("position fen " + fen); err != nil {
		return nil, err
	}

	goCmd := "go infinite"
	if depth > 0 {
		goCmd = fmt.Sprintf("go depth %d", depth)
	}
	if err := e.send(goCmd); err != nil {
		return nil, err
	}

	best := make(map[int]Info, multiPV)
	for {
		select {
		case <-ctx.Done():
			e.stop()
			return nil, ctx.Err()

		case line, ok := <-e.lines:
			if !ok {
				return nil, ErrEngineExited
			}
			if strings.HasPrefix(line, "bestmove") {
				return collect(best), nil
			}

			info, ok := ParseInfo(line)
			if !ok || len(info.PV) == 0 || info.Bound != "" {
				continue
			}
			if prev, seen := best[info.MultiPV]; !seen || info.Depth >= prev.Depth {
				best[info.MultiPV] = info
			}
		}
	}
}

// stop interrupts a running search and discards output up to bestmove so
// the next command starts from a clean stream.
func (e *Engine) stop() {
	if err := e.send("stop"); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopDrainTimeout)
	defer cancel()

	if _, err := e.waitFor(ctx, func(line string) bool {
		return strings.HasPrefix(line, "bestmove")
	}); err != nil {
		log.Printf("uci: engine did not confirm stop: %v", err)
	}
}

func collect(best map[int]Info) []Info {
	out := make([]Info, 0, len(best))
	for _, info := range best {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MultiPV < out[j].MultiPV })
	return out
}

func (e *Engine) isReady(ctx context.Context) error {
	if err := e.send("isready"); err != nil {
		return err
	}

	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	_, err := e.waitFor(rctx, func(line string) bool { return line == "readyok" })
	if err != nil {
		return fmt.Errorf("waiting for readyok: %w", err)
	}
	return nil
}

// waitFor consumes lines until match returns true.
func (e *Engine) waitFor(ctx context.Context, match func(string) bool) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case line, ok := <-e.lines:
			if !ok {
				return "", ErrEngineExited
			}
			if match(line) {
				return line, nil
			}
		}
	}
}

func (e *Engine) send(cmd string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if e.closed {
		return ErrEngineExited
	}
	if _, err := fmt.Fprintln(e.stdin, cmd); err != nil {
		return fmt.Errorf("uci: write %q: %w", cmd, err)
	}
	return nil
}

// Close asks the engine to quit and kills it if it does not exit in time.
func (e *Engine) Close() error {
	_ = e.send("quit")

	e.writeMu.Lock()
	if e.closed {
		e.writeMu.Unlock()
		return nil
	}
	e.closed = true
	e.stdin.Close()
	e.writeMu.Unlock()

	done := make(chan error, 1)
	go func() {
		// Drain so the reader goroutine can finish.
		for range e.lines {
		}
		done <- e.cmd.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(quitTimeout):
		return e.cmd.Process.Kill()
	}
}
