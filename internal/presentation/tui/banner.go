package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the LMRTFY banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	p := out.Profile
	// Replit orange fading into amber.
	lines := []struct {
		text  string
		color string
	}{
		{" _    __  __ ___ _____ _____   __", "#f26207"},
		{"| |  |  \\/  | _ \\_   _| __\\ \\ / /", "#f5780f"},
		{"| |__| |\\/| |   / | | | _| \\ V / ", "#f88f18"},
		{"|____|_|  |_|_|_\\ |_| |_|   |_|  ", "#fba622"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  let me replit that for you").Faint())
	fmt.Fprintln(w)
}
