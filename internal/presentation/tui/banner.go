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
	{` __        __                      _       _   `, "#2dd4bf"},
	{` \ \      / /_ _ _   _ _ __   ___ (_)_ __ | |_ `, "#22d3ee"},
	{`  \ \ /\ / / _` + "`" + ` | | | | '_ \ / _ \| | '_ \| __|`, "#38bdf8"},
	{`   \ V  V / (_| | |_| | |_) | (_) | | | | | |_ `, "#60a5fa"},
	{`    \_/\_/ \__,_|\__, | .__/ \___/|_|_| |_|\__|`, "#818cf8"},
	{`                 |___/|_|                      `, "#a78bfa"},
}

// PrintBanner writes the Waypoint banner and version to w.
// Colors degrade to plain text when w is not a color terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)

	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(out.Color(line.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
