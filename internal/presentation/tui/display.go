package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/lmrtfy/pkg/playback"
	"github.com/muesli/termenv"
)

const (
	colorDone    = "#f26207"
	colorPending = "#4b5563"
	cursor       = "▌"
)

// Display draws playback snapshots on a terminal.
// When interactive, each snapshot redraws the previous one in place;
// otherwise every snapshot is appended as a single plain line.
type Display struct {
	out         *termenv.Output
	interactive bool
	drawn       int
}

// NewDisplay creates a Display writing to w.
func NewDisplay(w io.Writer, interactive bool, opts ...termenv.OutputOption) *Display {
	return &Display{
		out:         termenv.NewOutput(w, opts...),
		interactive: interactive,
	}
}

// Render draws one snapshot.
func (d *Display) Render(s playback.Snapshot) {
	if !d.interactive {
		fmt.Fprintln(d.out, PlainLine(s))
		return
	}

	if d.drawn > 0 {
		d.out.CursorPrevLine(d.drawn)
	}
	lines := strings.Split(strings.Join(d.lines(s), "\n"), "\n")
	for _, l := range lines {
		d.out.ClearLine()
		fmt.Fprintln(d.out, l)
	}
	d.drawn = len(lines)
}

func (d *Display) lines(s playback.Snapshot) []string {
	p := d.out.Profile

	var bar strings.Builder
	for i := 0; i < playback.StepCount; i++ {
		if i <= s.StepIndex {
			bar.WriteString(d.out.String("■").Foreground(p.Color(colorDone)).String())
		} else {
			bar.WriteString(d.out.String("□").Foreground(p.Color(colorPending)).String())
		}
	}

	text := s.RevealedText
	if s.IsPlaying && s.StepIndex == int(playback.StepTypePrompt) {
		text += cursor
	}

	return []string{
		bar.String() + " " + d.out.String(s.Label).Bold().String(),
		"  " + strings.ReplaceAll(text, "\n", "\n  "),
	}
}

// PlainLine is the non-interactive rendering of a snapshot.
func PlainLine(s playback.Snapshot) string {
	line := fmt.Sprintf("[%d/%d] %s", s.StepIndex+1, playback.StepCount, s.Label)
	if s.RevealedText != "" {
		line += " " + s.RevealedText
	}
	return line
}
