package playback

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Config is what the rendering surface hands to the engine.
type Config struct {
	Prompt   string `json:"prompt"`
	AutoPlay bool   `json:"autoPlay"`
	Loop     bool   `json:"shouldLoop"`
}

// Timer names one of the two timers a playback instance may own.
type Timer int

const (
	TimerAdvance Timer = iota // one-shot: move to the next step
	TimerReveal               // repeating: reveal the next character
)

func (t Timer) String() string {
	switch t {
	case TimerAdvance:
		return "advance"
	case TimerReveal:
		return "reveal"
	default:
		return fmt.Sprintf("timer(%d)", int(t))
	}
}

// CommandKind tells the scheduler what to do with a timer.
type CommandKind int

const (
	CommandCancel CommandKind = iota
	CommandArm
)

// Command is a scheduling instruction emitted by the Machine.
// A Cancel for a timer always precedes any Arm for it in the same batch.
type Command struct {
	Kind   CommandKind
	Timer  Timer
	After  time.Duration
	Repeat bool
	Gen    uint64
}

// Event is an input to the Machine.
type Event interface {
	isEvent()
}

// Configure replaces the prompt, autoplay and loop settings.
// A changed AutoPlay also sets the playing flag.
type Configure struct{ Config Config }

// SetPlaying pauses or resumes playback.
type SetPlaying struct{ Playing bool }

// Reset restarts the script from the first step and plays it.
type Reset struct{}

// Tick reports that a timer armed with generation Gen has fired.
type Tick struct {
	Timer Timer
	Gen   uint64
}

// Teardown cancels every timer; the surface owning the state is going away.
type Teardown struct{}

func (Configure) isEvent()  {}
func (SetPlaying) isEvent() {}
func (Reset) isEvent()      {}
func (Tick) isEvent()       {}
func (Teardown) isEvent()   {}

// State is the playback state of one surface.
type State struct {
	Config    Config
	Step      Step
	Playing   bool
	Revealed  int // runes visible while Revealing
	Revealing bool

	gens [2]uint64
}

// Generation returns the generation of the latest arm or cancel of t.
func (s State) Generation(t Timer) uint64 {
	if t < 0 || int(t) >= len(s.gens) {
		return 0
	}
	return s.gens[t]
}

// Text returns the part of the prompt visible in the chat input.
func (s State) Text() string {
	if s.Step < StepTypePrompt {
		return ""
	}
	if !s.Revealing {
		return s.Config.Prompt
	}
	runes := []rune(s.Config.Prompt)
	if s.Revealed >= len(runes) {
		return s.Config.Prompt
	}
	return string(runes[:s.Revealed])
}

// Snapshot is the view of a State handed to renderers.
type Snapshot struct {
	StepIndex    int    `json:"stepIndex"`
	Step         string `json:"step"`
	Label        string `json:"label"`
	RevealedText string `json:"revealedText"`
	IsPlaying    bool   `json:"isPlaying"`
}

// Snapshot renders the state.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		StepIndex:    int(s.Step),
		Step:         s.Step.String(),
		Label:        s.Step.Label(),
		RevealedText: s.Text(),
		IsPlaying:    s.Playing,
	}
}

// Machine is the pure transition core of the playback engine.
// It never touches a clock: timers are described by the Commands it returns
// and come back as Tick events.
type Machine struct {
	timing Timing
}

// NewMachine creates a Machine. Zero dwell and interval fields take their
// defaults; the pauses may legitimately be zero.
func NewMachine(timing Timing) Machine {
	return Machine{timing: timing.withDefaults()}
}

// Timing returns the effective timing.
func (m Machine) Timing() Timing {
	return m.timing
}

// Start returns the initial state for cfg and the timers to arm.
func (m Machine) Start(cfg Config) (State, []Command) {
	return m.rearm(State{
		Config:  cfg,
		Step:    StepNavigate,
		Playing: cfg.AutoPlay,
	})
}

// Resume re-arms the timers s calls for. A scheduler uses it to take over a
// state whose earlier commands were never executed.
func (m Machine) Resume(s State) (State, []Command) {
	return m.rearm(s)
}

// Apply computes the state that follows ev.
func (m Machine) Apply(s State, ev Event) (State, []Command) {
	switch ev := ev.(type) {
	case Configure:
		if ev.Config == s.Config {
			return s, nil
		}
		if ev.Config.AutoPlay != s.Config.AutoPlay {
			s.Playing = ev.Config.AutoPlay
		}
		s.Config = ev.Config
		return m.rearm(s)

	case SetPlaying:
		if ev.Playing == s.Playing {
			return s, nil
		}
		s.Playing = ev.Playing
		return m.rearm(s)

	case Reset:
		s.Step = StepNavigate
		s.Playing = true
		return m.rearm(s)

	case Tick:
		if ev.Timer < 0 || int(ev.Timer) >= len(s.gens) || ev.Gen != s.gens[ev.Timer] {
			return s, nil
		}
		if ev.Timer == TimerAdvance {
			return m.advance(s)
		}
		return m.reveal(s)

	case Teardown:
		s.Playing = false
		s.Revealing = false
		return s, m.cancelAll(&s)
	}
	return s, nil
}

func (m Machine) advance(s State) (State, []Command) {
	if !s.Playing {
		return s, nil
	}
	switch {
	case s.Step < StepReadyToSubmit:
		s.Step++
	case s.Config.Loop:
		s.Step = StepNavigate
	default:
		s.Playing = false
	}
	return m.rearm(s)
}

func (m Machine) reveal(s State) (State, []Command) {
	if !s.Revealing {
		return s, nil
	}
	s.Revealed++
	if s.Revealed < utf8.RuneCountInString(s.Config.Prompt) {
		return s, nil
	}
	// Whole prompt visible: the reveal timer stops itself.
	s.Revealing = false
	s.gens[TimerReveal]++
	return s, []Command{{Kind: CommandCancel, Timer: TimerReveal, Gen: s.gens[TimerReveal]}}
}

func (m Machine) cancelAll(s *State) []Command {
	s.gens[TimerAdvance]++
	s.gens[TimerReveal]++
	return []Command{
		{Kind: CommandCancel, Timer: TimerAdvance, Gen: s.gens[TimerAdvance]},
		{Kind: CommandCancel, Timer: TimerReveal, Gen: s.gens[TimerReveal]},
	}
}

// rearm drops both timers and arms the ones the state calls for.
func (m Machine) rearm(s State) (State, []Command) {
	cmds := m.cancelAll(&s)
	s.Revealed = 0
	s.Revealing = false
	if !s.Playing {
		return s, cmds
	}

	cmds = append(cmds, Command{
		Kind:  CommandArm,
		Timer: TimerAdvance,
		After: m.timing.Dwell(s.Step, s.Config.Loop),
		Gen:   s.gens[TimerAdvance],
	})
	if s.Step == StepTypePrompt && s.Config.Prompt != "" {
		s.Revealing = true
		cmds = append(cmds, Command{
			Kind:   CommandArm,
			Timer:  TimerReveal,
			After:  revealIntervalFor(m.timing, s.Config.Prompt),
			Repeat: true,
			Gen:    s.gens[TimerReveal],
		})
	}
	return s, cmds
}
