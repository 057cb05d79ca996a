package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// errQuit ends the session.
var errQuit = errors.New("quit")

// Command defines a REPL command with its handler
type Command struct {
	Name        string
	ShortName   string
	Description string
	Usage       string
	Handler     func(*Session, []string) error
}

type registry struct {
	commands map[string]*Command
	order    []*Command
}

func (r *registry) register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	if cmd.ShortName != "" {
		r.commands[cmd.ShortName] = cmd
	}
	r.order = append(r.order, cmd)
}

func newRegistry() *registry {
	r := &registry{commands: make(map[string]*Command)}

	r.register(&Command{Name: "new", ShortName: "n", Description: "Start a game", Usage: "new [fen]", Handler: newGameHandler})
	r.register(&Command{Name: "fen", Description: "Print the current position as FEN", Usage: "fen", Handler: fenHandler})
	r.register(&Command{Name: "board", ShortName: "b", Description: "Show the board and game state", Usage: "board", Handler: boardHandler})
	r.register(&Command{Name: "moves", Description: "List the legal moves", Usage: "moves", Handler: movesHandler})
	r.register(&Command{Name: "move", ShortName: "m", Description: "Play a move (SAN or UCI; the command name may be omitted)", Usage: "move <text>", Handler: moveHandler})
	r.register(&Command{Name: "undo", ShortName: "u", Description: "Take back moves", Usage: "undo [count]", Handler: undoHandler})
	r.register(&Command{Name: "history", Description: "Show the moves played", Usage: "history", Handler: historyHandler})
	r.register(&Command{Name: "perft", Description: "Count leaf nodes to a depth", Usage: "perft <depth>", Handler: perftHandler})
	r.register(&Command{Name: "analyze", ShortName: "a", Description: "Analyze the current position in the background", Usage: "analyze [depth]", Handler: analyzeHandler})
	r.register(&Command{Name: "lines", ShortName: "l", Description: "Show the latest analysis", Usage: "lines", Handler: linesHandler})
	r.register(&Command{Name: "save", ShortName: "s", Description: "Save the game to the archive", Usage: "save", Handler: saveHandler})
	r.register(&Command{Name: "games", ShortName: "g", Description: "List archived games", Usage: "games", Handler: gamesHandler})
	r.register(&Command{Name: "load", Description: "Resume an archived game", Usage: "load <id or prefix>", Handler: loadHandler})
	r.register(&Command{Name: "find", Description: "List archived games that reached the current position", Usage: "find", Handler: findHandler})
	r.register(&Command{Name: "settings", Description: "Show or change a setting", Usage: "settings [depth|lines|moves|engine|cloud <value>]", Handler: settingsHandler})
	r.register(&Command{Name: "stats", Description: "Show finished game statistics", Usage: "stats", Handler: statsHandler})
	r.register(&Command{Name: "cache", Description: "Show the analysis cache hit rate or clear it", Usage: "cache [clear]", Handler: cacheHandler})
	r.register(&Command{Name: "help", ShortName: "?", Description: "Show available commands", Usage: "help [command]", Handler: r.helpHandler})
	r.register(&Command{Name: "quit", ShortName: "q", Description: "Exit", Usage: "quit", Handler: quitHandler})

	return r
}

func (r *registry) helpHandler(s *Session, args []string) error {
	p := s.palette
	if len(args) > 0 {
		cmd, exists := r.commands[args[0]]
		if !exists {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		s.printf("%s - %s\n", p.paint(p.Cyan, cmd.Name), cmd.Description)
		if cmd.ShortName != "" {
			s.printf("Short form: %s\n", p.paint(p.Cyan, cmd.ShortName))
		}
		s.printf("Usage: %s\n", cmd.Usage)
		return nil
	}

	s.printf("%s\n", p.paint(p.Yellow, "Commands:"))
	cmds := append([]*Command(nil), r.order...)
	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	for _, cmd := range cmds {
		short := "   "
		if cmd.ShortName != "" {
			short = "[" + cmd.ShortName + "]"
		}
		s.printf("  %s %-9s %s\n", p.paint(p.Cyan, short), cmd.Name, cmd.Description)
	}
	s.printf("\nAnything else is tried as a move, e.g. %s or %s.\n", p.paint(p.Cyan, "e4"), p.paint(p.Cyan, "g1f3"))
	return nil
}

func quitHandler(s *Session, args []string) error {
	return errQuit
}

// split separates the command word from its arguments.
func split(line string) (string, []string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}
