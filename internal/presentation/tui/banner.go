package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"            _             ", "#34d399"},
	{"  _ __ ___ | | __ _ _   _ ", "#2dd4bf"},
	{" | '__/ _ \\| |/ _` | | | |", "#22d3ee"},
	{" | | |  __/| | (_| | |_| |", "#38bdf8"},
	{" |_|  \\___||_|\\__,_|\\__, |", "#60a5fa"},
	{"                    |___/ ", "#818cf8"},
}

// PrintBanner writes the relay banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
