package uci

import (
	"strconv"
	"strings"
)

// Score is an engine evaluation from the side to move's point of view.
type Score struct {
	CP     int  // centipawns, when not a mate score
	Mate   int  // moves to mate, negative when the side to move is mated
	IsMate bool
}

// Info is one parsed "info" line.
type Info struct {
	Depth    int
	SelDepth int
	MultiPV  int
	Score    Score
	Bound    string // "lowerbound" or "upperbound" for partial scores
	Nodes    uint64
	NPS      uint64
	TimeMs   int
	PV       []string
}

// ParseInfo parses an "info" line. It reports false for other lines and
// for "info string" messages. MultiPV defaults to 1.
func ParseInfo(line string) (Info, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "info" || fields[1] == "string" {
		return Info{}, false
	}

	info := Info{MultiPV: 1}
	for i := 1; i < len(fields); i++ {
		next := func() string {
			if i+1 < len(fields) {
				i++
				return fields[i]
			}
			return ""
		}

		switch fields[i] {
		case "depth":
			info.Depth, _ = strconv.Atoi(next())
		case "seldepth":
			info.SelDepth, _ = strconv.Atoi(next())
		case "multipv":
			if n, err := strconv.Atoi(next()); err == nil && n > 0 {
				info.MultiPV = n
			}
		case "nodes":
			info.Nodes, _ = strconv.ParseUint(next(), 10, 64)
		case "nps":
			info.NPS, _ = strconv.ParseUint(next(), 10, 64)
		case "time":
			info.TimeMs, _ = strconv.Atoi(next())
		case "score":
			switch next() {
			case "cp":
				info.Score.CP, _ = strconv.Atoi(next())
				info.Score.IsMate = false
			case "mate":
				info.Score.Mate, _ = strconv.Atoi(next())
				info.Score.IsMate = true
			}
		case "lowerbound", "upperbound":
			info.Bound = fields[i]
		case "pv":
			info.PV = append([]string(nil), fields[i+1:]...)
			return info, true
		case "string":
			// Free text runs to the end of the line.
			return info, true
		}
	}

	return info, true
}
