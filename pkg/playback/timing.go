package playback

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Step identifies one stage of the scripted demo.
type Step int

const (
	StepNavigate      Step = iota // Opening the assistant site
	StepLocateInput               // Moving the cursor to the chat input
	StepTypePrompt                // Typing the prompt character by character
	StepReadyToSubmit             // Prompt in place, send button lit
)

// StepCount is the number of steps in one pass of the script.
const StepCount = 4

var stepNames = [StepCount]string{"navigate", "locate_input", "type_prompt", "ready_to_submit"}

var stepLabels = [StepCount]string{
	"Opening Replit...",
	"Finding AI Chat...",
	"Typing your question...",
	"Ready to ask AI!",
}

// String returns the machine-readable step name.
func (s Step) String() string {
	if s < 0 || int(s) >= StepCount {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// Label returns the caption shown under the progress bar.
func (s Step) Label() string {
	if s < 0 || int(s) >= StepCount {
		return "Complete!"
	}
	return stepLabels[s]
}

// Steps returns the script in order.
func Steps() []Step {
	return []Step{StepNavigate, StepLocateInput, StepTypePrompt, StepReadyToSubmit}
}

// Timing holds the dwell durations of the script.
type Timing struct {
	StepDwell           time.Duration `json:"step_dwell" yaml:"step_dwell" mapstructure:"step_dwell"`
	TypingDuration      time.Duration `json:"typing_duration" yaml:"typing_duration" mapstructure:"typing_duration"`
	TypingPause         time.Duration `json:"typing_pause" yaml:"typing_pause" mapstructure:"typing_pause"`
	FinalPause          time.Duration `json:"final_pause" yaml:"final_pause" mapstructure:"final_pause"`
	EmptyRevealInterval time.Duration `json:"empty_reveal_interval" yaml:"empty_reveal_interval" mapstructure:"empty_reveal_interval"`
}

// DefaultTiming returns the stock animation pace.
func DefaultTiming() Timing {
	return Timing{
		StepDwell:           1500 * time.Millisecond,
		TypingDuration:      2 * time.Second,
		TypingPause:         1500 * time.Millisecond,
		FinalPause:          3 * time.Second,
		EmptyRevealInterval: 50 * time.Millisecond,
	}
}

// ErrInvalidTiming is returned by Validate.
var ErrInvalidTiming = errors.New("invalid playback timing")

// Validate rejects timings that would stall or spin the script.
func (t Timing) Validate() error {
	switch {
	case t.StepDwell <= 0:
		return fmt.Errorf("%w: step_dwell must be positive", ErrInvalidTiming)
	case t.TypingDuration <= 0:
		return fmt.Errorf("%w: typing_duration must be positive", ErrInvalidTiming)
	case t.TypingPause < 0:
		return fmt.Errorf("%w: typing_pause must not be negative", ErrInvalidTiming)
	case t.FinalPause < 0:
		return fmt.Errorf("%w: final_pause must not be negative", ErrInvalidTiming)
	case t.EmptyRevealInterval <= 0:
		return fmt.Errorf("%w: empty_reveal_interval must be positive", ErrInvalidTiming)
	}
	return nil
}

// withDefaults fills unset fields from DefaultTiming.
func (t Timing) withDefaults() Timing {
	d := DefaultTiming()
	if t.StepDwell <= 0 {
		t.StepDwell = d.StepDwell
	}
	if t.TypingDuration <= 0 {
		t.TypingDuration = d.TypingDuration
	}
	if t.TypingPause < 0 {
		t.TypingPause = d.TypingPause
	}
	if t.FinalPause < 0 {
		t.FinalPause = d.FinalPause
	}
	if t.EmptyRevealInterval <= 0 {
		t.EmptyRevealInterval = d.EmptyRevealInterval
	}
	return t
}

// Dwell returns how long step holds before auto-advancing.
func (t Timing) Dwell(step Step, loop bool) time.Duration {
	switch step {
	case StepTypePrompt:
		return t.TypingDuration + t.TypingPause
	case StepReadyToSubmit:
		if loop {
			return t.FinalPause
		}
		return 0
	default:
		return t.StepDwell
	}
}

// RevealInterval returns the per-character delay for a prompt of n runes.
// n intervals never exceed TypingDuration, so the reveal always completes on time.
func (t Timing) RevealInterval(n int) time.Duration {
	if n <= 0 {
		return t.EmptyRevealInterval
	}
	iv := t.TypingDuration / time.Duration(n)
	if iv <= 0 {
		iv = 1
	}
	return iv
}

// revealIntervalFor counts prompt in runes.
func revealIntervalFor(t Timing, prompt string) time.Duration {
	return t.RevealInterval(utf8.RuneCountInString(prompt))
}
