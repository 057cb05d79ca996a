// Package main runs the chess rules HTTP service: games, moves, undo, perft
// and background analysis over a JSON API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/chessrules/internal/analysis"
	"github.com/hailam/chessrules/internal/game"
	"github.com/hailam/chessrules/internal/journal"
	"github.com/hailam/chessrules/internal/server"
	"github.com/hailam/chessrules/internal/storage"
)

const (
	gracefulShutdownTimeout = time.Second * 5
)

func main() {
	var (
		host        = flag.String("host", "localhost", "API server host")
		port        = flag.Int("port", 8080, "API server port")
		dataDir     = flag.String("data", "", "archive directory (default: platform data dir or $CHESSRULES_DATA)")
		journalPath = flag.String("journal", "", "path to the SQLite move journal (disabled if empty)")
		enginePath  = flag.String("engine", "", "path to a UCI engine (default: $CHESSRULES_ENGINE)")
		cloud       = flag.Bool("cloud", false, "use the cloud evaluation service")
		workers     = flag.Int("workers", 2, "number of analysis workers")
		dev         = flag.Bool("dev", false, "Development mode (relaxed rate limits, WAL journal)")
	)
	flag.Parse()

	if *enginePath == "" {
		*enginePath = os.Getenv("CHESSRULES_ENGINE")
	}

	// 1. Archive
	var (
		store *storage.Storage
		err   error
	)
	if *dataDir != "" {
		store, err = storage.Open(*dataDir)
	} else {
		store, err = storage.NewStorage()
	}
	if err != nil {
		log.Fatalf("Failed to open archive: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Warning: failed to close archive cleanly: %v", err)
		}
	}()

	settings, err := store.LoadSettings()
	if err != nil {
		log.Printf("Warning: using default settings: %v", err)
		settings = storage.DefaultSettings()
	}

	opts := []game.Option{game.WithArchive(store), game.WithAutoSave()}

	// 2. Journal (optional)
	var jrnl *journal.Store
	if *journalPath != "" {
		log.Printf("Initializing move journal at: %s", *journalPath)
		jrnl, err = journal.NewStore(*journalPath, *dev)
		if err != nil {
			log.Fatalf("Failed to open journal: %v", err)
		}
		if err := jrnl.InitDB(); err != nil {
			log.Fatalf("Failed to initialize journal schema: %v", err)
		}
		defer func() {
			if err := jrnl.Close(); err != nil {
				log.Printf("Warning: failed to close journal cleanly: %v", err)
			}
		}()
		opts = append(opts, game.WithJournal(jrnl))
	} else {
		log.Printf("Move journal disabled (use -journal to enable)")
	}

	// 3. Analysis
	var (
		queue *analysis.Queue
		cache *analysis.CachedAnalyzer
	)
	if *enginePath != "" || *cloud {
		cache, err = analysis.NewCachedAnalyzer(nil, 0)
		if err != nil {
			log.Fatalf("Failed to create analysis cache: %v", err)
		}
		defer cache.Close()

		src := analysis.Sources{
			EnginePath: *enginePath,
			UseCloud:   *cloud,
			Config: analysis.Config{
				Lines:        settings.AnalysisLines,
				MovesPerLine: settings.MovesPerLine,
				Depth:        settings.AnalysisDepth,
			},
		}
		queue = analysis.NewQueue(*workers, analysis.Factory(src, cache))
		log.Printf("Analysis: %d worker(s), engine=%q cloud=%t", *workers, *enginePath, *cloud)
	} else {
		log.Printf("Analysis disabled (use -engine or -cloud to enable)")
	}

	// 4. Games
	mgr := game.NewManager(queue, opts...)
	restored, err := mgr.Restore()
	if err != nil {
		log.Printf("Warning: restoring games failed: %v", err)
	}
	log.Printf("Restored %d ongoing game(s)", restored)

	// 5. HTTP
	serverOpts := server.Options{DevMode: *dev}
	if jrnl != nil {
		serverOpts.Journal = jrnl
	}
	if cache != nil {
		serverOpts.CacheHitRate = cache.HitRate
	}
	app := server.NewApp(mgr, serverOpts)
	addr := fmt.Sprintf("%s:%d", *host, *port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Chess rules API listening on: http://%s", addr)
		log.Printf("API Endpoints: http://%s/api/v1/games", addr)
		log.Printf("Health: http://%s/health", addr)
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Server error: %v", err)
	}

	mgr.Close()
	if queue != nil {
		if err := queue.Shutdown(gracefulShutdownTimeout); err != nil {
			log.Printf("Analysis queue shutdown: %v", err)
		}
	}
	log.Println("Server exited")
}
