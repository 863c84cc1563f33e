package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/lmrtfy/pkg/playback"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	Snapshot playback.Snapshot
}

// OverlayAt returns the overlay of a demo of prompt after elapsed.
func OverlayAt(m playback.Machine, cfg playback.Config, elapsed time.Duration) *GraphOverlay {
	sim := m.Simulate(cfg)
	sim.Advance(elapsed)
	return &GraphOverlay{Snapshot: sim.Snapshot()}
}

// GenerateMermaid produces a Mermaid flowchart of the demo steps.
// It applies semantic styling:
// - First step: ((Circle))
// - Typing step: [[Subroutine]], with the reveal ticker as a self loop
// - Default: [Rectangle]
// Edges carry the dwell of their source step. Without loop the last step
// leads to a terminal "stopped" node.
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(timing playback.Timing, loop bool, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	steps := playback.Steps()
	for i, step := range steps {
		id := step.String()

		opener, closer := "[", "]"
		switch step {
		case playback.StepNavigate:
			opener, closer = "((", "))" // Circle
		case playback.StepTypePrompt:
			opener, closer = "[[", "]]" // Subroutine
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, step.Label(), closer)

		if step == playback.StepTypePrompt {
			fmt.Fprintf(&sb, "    %s -. \"reveal over %s\" .-> %s\n", id, timing.TypingDuration, id)
		}

		dwell := timing.Dwell(step, loop)
		switch {
		case i+1 < len(steps):
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", id, dwell, steps[i+1].String())
		case loop:
			fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", id, dwell, steps[0].String())
		default:
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> stopped([\"stopped\"])\n", id, dwell)
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#ffedd5,stroke:#f26207,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#fed7aa,stroke:#f26207,stroke-width:4px,color:#000;\n")

		snap := overlay.Snapshot
		for _, step := range steps[:min(snap.StepIndex, len(steps))] {
			fmt.Fprintf(&sb, "    class %s visited;\n", step.String())
		}
		current := snap.Step
		if !snap.IsPlaying && !loop && snap.StepIndex == len(steps)-1 {
			fmt.Fprintf(&sb, "    class %s visited;\n", current)
			current = "stopped"
		}
		if current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", current)
		}
	}

	return sb.String()
}
