package cli

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hailam/chessrules/internal/board"
	"github.com/hailam/chessrules/internal/game"
)

const maxPerftDepth = 7

func newGameHandler(s *Session, args []string) error {
	snap, err := s.mgr.Create(strings.Join(args, " "))
	if err != nil {
		return err
	}
	s.setCurrent(snap.ID)

	s.printf("%s %s\n", s.palette.paint(s.palette.Cyan, "New game"), snap.ID)
	return boardHandler(s, nil)
}

func fenHandler(s *Session, args []string) error {
	g, err := s.currentGame()
	if err != nil {
		return err
	}
	s.printf("%s\n", g.FEN())
	return nil
}

func boardHandler(s *Session, args []string) error {
	g, err := s.currentGame()
	if err != nil {
		return err
	}
	s.printf("%s\n", g.Board().String())
	if status := s.describeStatus(g.Snapshot()); status != "" {
		s.printf("%s\n", status)
	}
	return nil
}

func movesHandler(s *Session, args []string) error {
	g, err := s.currentGame()
	if err != nil {
		return err
	}
	legal := g.Snapshot().LegalMoves
	if len(legal) == 0 {
		s.printf("No legal moves.\n")
		return nil
	}
	sort.Strings(legal)
	s.printf("%d legal moves: %s\n", len(legal), strings.Join(legal, " "))
	return nil
}

func moveHandler(s *Session, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: move <text>")
	}
	id := s.Current()
	if id == "" {
		return errNoGame
	}

	res, err := s.mgr.Move(id, strings.Join(args, ""))
	if err != nil {
		if errors.Is(err, board.ErrIllegalMove) {
			return fmt.Errorf("%w (type 'moves' to list legal moves)", err)
		}
		return err
	}

	snap := res.Snapshot
	if snap.Turn == "b" {
		s.printf("%d. %s\n", snap.Fullmove, s.palette.paint(s.palette.Green, res.SAN))
	} else {
		s.printf("%d... %s\n", snap.Fullmove-1, s.palette.paint(s.palette.Green, res.SAN))
	}
	if status := s.describeStatus(snap); status != "" {
		s.printf("%s\n", status)
	}
	return nil
}

func undoHandler(s *Session, args []string) error {
	count := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid count: %s", args[0])
		}
		count = n
	}
	id := s.Current()
	if id == "" {
		return errNoGame
	}

	snap, err := s.mgr.Undo(id, count)
	if err != nil {
		return err
	}
	s.printf("Took back %d move(s). %s to move.\n", count, colorName(snap.Turn))
	return nil
}

func historyHandler(s *Session, args []string) error {
	g, err := s.currentGame()
	if err != nil {
		return err
	}
	snap := g.Snapshot()
	if len(snap.Moves) == 0 {
		s.printf("No moves played.\n")
		return nil
	}
	s.printf("%s\n", formatHistory(snap.InitialFEN, snap.Moves))
	if snap.Status != "ongoing" {
		s.printf("%s\n", snap.Result)
	}
	return nil
}

// formatHistory numbers SAN moves the way a score sheet does, starting from
// the move number and side to move of initialFEN.
func formatHistory(initialFEN string, sans []string) string {
	number, blackFirst := 1, false
	if b, err := board.FromFEN(initialFEN); err == nil {
		number = b.FullmoveNumber()
		blackFirst = b.SideToMove() == board.Black
	}

	var sb strings.Builder
	i := 0
	if blackFirst {
		fmt.Fprintf(&sb, "%d... %s", number, sans[0])
		number++
		i = 1
	}
	for ; i < len(sans); i += 2 {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d. %s", number, sans[i])
		if i+1 < len(sans) {
			sb.WriteString(" " + sans[i+1])
		}
		number++
	}
	return sb.String()
}

func perftHandler(s *Session, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: perft <depth>")
	}
	depth, err := strconv.Atoi(args[0])
	if err != nil || depth < 1 || depth > maxPerftDepth {
		return fmt.Errorf("depth must be between 1 and %d", maxPerftDepth)
	}

	b := board.New()
	if g, err := s.currentGame(); err == nil {
		b = g.Board()
	}

	start := time.Now()
	nodes := board.Perft(b, depth)
	elapsed := time.Since(start)

	nps := int64(0)
	if elapsed > 0 {
		nps = int64(float64(nodes) / elapsed.Seconds())
	}
	s.printf("perft(%d) = %s nodes in %s (%s nps)\n",
		depth, humanize.Comma(nodes), elapsed.Round(time.Millisecond), humanize.Comma(nps))
	return nil
}

func analyzeHandler(s *Session, args []string) error {
	depth := s.Settings().AnalysisDepth
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 1 {
			return fmt.Errorf("invalid depth: %s", args[0])
		}
		depth = d
	}
	id := s.Current()
	if id == "" {
		return errNoGame
	}

	if err := s.mgr.Analyze(id, depth); err != nil {
		return err
	}
	s.printf("Analyzing at depth %d...\n", depth)
	return nil
}

func linesHandler(s *Session, args []string) error {
	id := s.Current()
	if id == "" {
		return errNoGame
	}
	a, pending, err := s.mgr.Analysis(id)
	if errors.Is(err, game.ErrGameNotFound) {
		return err
	}

	switch {
	case a != nil:
		s.printAnalysis(a)
	case err != nil:
		s.printf("%s\n", s.palette.paint(s.palette.Red, "Last analysis failed: "+err.Error()))
	case !pending:
		s.printf("No analysis of this position (use 'analyze').\n")
	}
	if pending {
		s.printf("Analysis running...\n")
	}
	return nil
}

func (s *Session) printAnalysis(a *game.Analysis) {
	p := s.palette
	if len(a.Lines) == 0 {
		s.printf("Analysis at depth %d found no lines.\n", a.Depth)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", p.paint(p.Cyan, fmt.Sprintf("Analysis at depth %d:", a.Depth)))
	for _, line := range a.Lines {
		color := p.Green
		if strings.Contains(line.Eval, "-") {
			color = p.Red
		}
		fmt.Fprintf(&sb, "  %d. %s  %s\n", line.Rank, p.paint(color, fmt.Sprintf("%6s", line.Eval)), strings.Join(line.Moves, " "))
	}
	s.printf("%s", sb.String())
}

func saveHandler(s *Session, args []string) error {
	id := s.Current()
	if id == "" {
		return errNoGame
	}
	if err := s.mgr.Save(id); err != nil {
		return err
	}
	s.printf("Saved %s\n", id)
	return nil
}

func gamesHandler(s *Session, args []string) error {
	if s.store == nil {
		return errNoArchive
	}
	recs, err := s.store.ListGames()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		s.printf("No archived games.\n")
		return nil
	}

	current := s.Current()
	for _, rec := range recs {
		marker := " "
		if rec.ID == current {
			marker = "*"
		}
		s.printf("%s %s  %-9s %-7s %3d plies  %s\n",
			marker, shortID(rec.ID), rec.Status, rec.Result, len(rec.Moves), humanize.Time(rec.UpdatedAt))
	}
	return nil
}

func loadHandler(s *Session, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: load <id>")
	}
	id, err := s.resolveID(args[0])
	if err != nil {
		return err
	}

	snap, err := s.mgr.Load(id)
	if err != nil {
		return err
	}
	s.setCurrent(snap.ID)
	s.printf("Loaded %s (%d plies)\n", snap.ID, len(snap.Moves))
	return boardHandler(s, nil)
}

// resolveID expands a unique prefix of a live or archived game id.
func (s *Session) resolveID(prefix string) (string, error) {
	seen := make(map[string]bool)
	for _, snap := range s.mgr.List() {
		if strings.HasPrefix(snap.ID, prefix) {
			seen[snap.ID] = true
		}
	}
	if s.store != nil {
		recs, err := s.store.ListGames()
		if err != nil {
			return "", err
		}
		for _, rec := range recs {
			if strings.HasPrefix(rec.ID, prefix) {
				seen[rec.ID] = true
			}
		}
	}

	switch len(seen) {
	case 0:
		return "", fmt.Errorf("%w: %s", game.ErrGameNotFound, prefix)
	case 1:
		for id := range seen {
			return id, nil
		}
	}
	return "", fmt.Errorf("ambiguous game id %q matches %d games", prefix, len(seen))
}

func findHandler(s *Session, args []string) error {
	if s.store == nil {
		return errNoArchive
	}
	g, err := s.currentGame()
	if err != nil {
		return err
	}

	ids, err := s.store.GamesWithPosition(g.FEN())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		s.printf("No archived game reached this position.\n")
		return nil
	}
	for _, id := range ids {
		s.printf("  %s\n", id)
	}
	return nil
}

func settingsHandler(s *Session, args []string) error {
	if len(args) == 0 {
		st := s.Settings()
		s.printf("depth   %d\n", st.AnalysisDepth)
		s.printf("lines   %d\n", st.AnalysisLines)
		s.printf("moves   %d\n", st.MovesPerLine)
		s.printf("engine  %s\n", st.EnginePath)
		s.printf("cloud   %t\n", st.CloudAnalysis)
		return nil
	}
	if len(args) < 2 {
		return errors.New("usage: settings <key> <value>")
	}

	key, value := args[0], strings.Join(args[1:], " ")

	s.mu.Lock()
	updated := *s.settings
	s.mu.Unlock()

	var err error
	switch key {
	case "depth":
		updated.AnalysisDepth, err = intSetting(value, 1, 40)
	case "lines":
		updated.AnalysisLines, err = intSetting(value, 1, 10)
	case "moves":
		updated.MovesPerLine, err = intSetting(value, 1, 20)
	case "engine":
		updated.EnginePath = value
	case "cloud":
		updated.CloudAnalysis, err = boolSetting(value)
	default:
		return fmt.Errorf("unknown setting: %s", key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	if s.store != nil {
		if err := s.store.SaveSettings(&updated); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.settings = &updated
	s.mu.Unlock()

	s.printf("%s set to %s\n", key, value)
	if key != "depth" {
		s.printf("Takes effect on the next start.\n")
	}
	return nil
}

func intSetting(value string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("must be a number between %d and %d", lo, hi)
	}
	return n, nil
}

func boolSetting(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(value)
}

func statsHandler(s *Session, args []string) error {
	if s.store == nil {
		return errNoArchive
	}
	stats, err := s.store.LoadStats()
	if err != nil {
		return err
	}

	s.printf("Games played  %d\n", stats.GamesPlayed)
	s.printf("White wins    %d\n", stats.WhiteWins)
	s.printf("Black wins    %d\n", stats.BlackWins)
	s.printf("Draws         %d (%.1f%%)\n", stats.Draws, stats.DrawRate())

	reasons := make([]string, 0, len(stats.DrawsByReason))
	for reason := range stats.DrawsByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		s.printf("  %-20s %d\n", reason, stats.DrawsByReason[reason])
	}

	s.printf("Average game  %.1f plies\n", stats.AveragePlies())
	s.printf("Longest game  %d plies\n", stats.LongestGame)
	return nil
}

func cacheHandler(s *Session, args []string) error {
	if s.cache == nil {
		return errNoCache
	}
	if len(args) == 0 {
		s.printf("Cache hit rate  %.1f%%\n", s.cache.HitRate())
		return nil
	}
	if args[0] != "clear" {
		return fmt.Errorf("unknown cache action %q (usage: cache [clear])", args[0])
	}
	s.cache.Clear()
	s.printf("Analysis cache cleared.\n")
	return nil
}

// describeStatus returns a line for check and finished games, "" otherwise.
func (s *Session) describeStatus(snap game.Snapshot) string {
	p := s.palette
	switch snap.Status {
	case "checkmate":
		return p.paint(p.Magenta, fmt.Sprintf("Checkmate. %s wins (%s)", colorName(snap.Winner), snap.Result))
	case "draw":
		return p.paint(p.Magenta, fmt.Sprintf("Draw by %s (%s)", snap.Reason, snap.Result))
	}
	if snap.InCheck {
		return p.paint(p.Yellow, "Check!")
	}
	return ""
}

func colorName(fen string) string {
	if fen == "b" {
		return "Black"
	}
	return "White"
}
