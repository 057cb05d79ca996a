package cli

import (
	"os"

	"golang.org/x/term"
)

// Palette holds terminal escape codes. The zero Palette prints plain text.
type Palette struct {
	Reset   string
	Red     string
	Green   string
	Yellow  string
	Blue    string
	Magenta string
	Cyan    string
	White   string
}

// ANSI is the palette used on color terminals.
var ANSI = Palette{
	Reset:   "\033[0m",
	Red:     "\033[31m",
	Green:   "\033[32m",
	Yellow:  "\033[33m",
	Blue:    "\033[34m",
	Magenta: "\033[35m",
	Cyan:    "\033[36m",
	White:   "\033[37m",
}

// PaletteFor returns ANSI when f is a terminal and the zero palette otherwise.
func PaletteFor(f *os.File) Palette {
	if term.IsTerminal(int(f.Fd())) {
		return ANSI
	}
	return Palette{}
}

func (p Palette) paint(color, text string) string {
	if color == "" {
		return text
	}
	return color + text + p.Reset
}
