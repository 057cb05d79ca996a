// chessrules - interactive chess rules REPL with background analysis
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/hailam/chessrules/internal/analysis"
	"github.com/hailam/chessrules/internal/cli"
	"github.com/hailam/chessrules/internal/game"
	"github.com/hailam/chessrules/internal/storage"
)

var (
	enginePath = flag.String("engine", "", "path to a UCI engine (default: $CHESSRULES_ENGINE, then the saved setting)")
	cloud      = flag.Bool("cloud", false, "ask the cloud evaluation service before the engine")
	dataDir    = flag.String("data", "", "data directory (default: platform data dir or $CHESSRULES_DATA)")
	noColor    = flag.Bool("no-color", false, "disable colored output")
)

func main() {
	flag.Parse()

	store, err := openStorage(*dataDir)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	settings, err := store.LoadSettings()
	if err != nil {
		log.Printf("Warning: using default settings: %v", err)
		settings = storage.DefaultSettings()
	}

	src := analysis.Sources{
		EnginePath: resolveEngine(*enginePath, settings.EnginePath),
		UseCloud:   *cloud || settings.CloudAnalysis,
		Config: analysis.Config{
			Lines:        settings.AnalysisLines,
			MovesPerLine: settings.MovesPerLine,
			Depth:        settings.AnalysisDepth,
		},
	}

	cache, err := analysis.NewCachedAnalyzer(nil, 0)
	if err != nil {
		log.Fatalf("Failed to create analysis cache: %v", err)
	}
	defer cache.Close()

	queue := analysis.NewQueue(1, analysis.Factory(src, cache))
	defer queue.Shutdown(2 * time.Second)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "chess > ",
		HistoryFile:     historyFile(*dataDir),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		log.Fatalf("Failed to start readline: %v", err)
	}
	defer rl.Close()

	palette := cli.PaletteFor(os.Stdout)
	if *noColor {
		palette = cli.Palette{}
	}

	// Analysis results are printed through readline so the prompt is redrawn.
	var sess *cli.Session
	mgr := game.NewManager(queue,
		game.WithArchive(store),
		game.WithAnalysisListener(func(id string, a *game.Analysis, err error) {
			sess.PrintAnalysis(id, a, err)
		}),
	)
	defer mgr.Close()
	sess = cli.NewSession(mgr, store, rl.Stdout(), palette, cli.WithCache(cache))

	fmt.Fprintf(rl.Stdout(), "chessrules (engine: %s, cloud: %t)\n", describeEngine(src.EnginePath), src.UseCloud)
	if first, err := store.IsFirstLaunch(); err == nil && first {
		sess.Execute("help")
		if err := store.MarkFirstLaunchComplete(); err != nil {
			log.Printf("Warning: %v", err)
		}
	} else {
		fmt.Fprintln(rl.Stdout(), "Type 'help' for commands")
	}
	sess.Execute("new")

	for {
		rl.SetPrompt(sess.Prompt())

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("readline: %v", err)
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if sess.Execute(line) {
			break
		}
	}
}

func openStorage(dir string) (*storage.Storage, error) {
	if dir != "" {
		return storage.Open(dir)
	}
	return storage.NewStorage()
}

// resolveEngine picks the engine binary: flag, then environment, then the
// saved setting.
func resolveEngine(flagValue, saved string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CHESSRULES_ENGINE"); env != "" {
		return env
	}
	return saved
}

func describeEngine(path string) string {
	if path == "" {
		return "none"
	}
	return path
}

func historyFile(dir string) string {
	if dir == "" {
		var err error
		if dir, err = storage.GetDataDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "history")
}
