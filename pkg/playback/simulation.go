package playback

import (
	"encoding/json"
	"time"
)

// Frame is a Snapshot observed at an offset from the start of playback.
type Frame struct {
	At time.Duration
	Snapshot
}

// MarshalJSON writes At as milliseconds next to the snapshot fields.
func (f Frame) MarshalJSON() ([]byte, error) {
	type snapshot Snapshot
	return json.Marshal(struct {
		At int64 `json:"at"`
		snapshot
	}{
		At:       f.At.Milliseconds(),
		snapshot: snapshot(f.Snapshot),
	})
}

type pendingTimer struct {
	due      time.Duration
	interval time.Duration
	repeat   bool
	gen      uint64
	seq      uint64
}

// Simulation drives a Machine on a virtual clock.
// Time only moves when Advance is called, which makes the timing contract
// testable without sleeping and lets servers precompute a whole script.
type Simulation struct {
	machine Machine
	state   State
	now     time.Duration
	timers  map[Timer]*pendingTimer
	seq     uint64
	frames  []Frame
}

// Simulate starts cfg on a virtual clock at offset zero.
func (m Machine) Simulate(cfg Config) *Simulation {
	sim := &Simulation{
		machine: m,
		timers:  make(map[Timer]*pendingTimer),
	}
	state, cmds := m.Start(cfg)
	sim.commit(state, cmds)
	return sim
}

// Script returns the frames produced by cfg within horizon.
func (m Machine) Script(cfg Config, horizon time.Duration) []Frame {
	sim := m.Simulate(cfg)
	sim.Advance(horizon)
	return sim.Frames()
}

// Now returns the virtual time elapsed since Simulate.
func (s *Simulation) Now() time.Duration {
	return s.now
}

// State returns the current machine state.
func (s *Simulation) State() State {
	return s.state
}

// Snapshot returns the current view.
func (s *Simulation) Snapshot() Snapshot {
	return s.state.Snapshot()
}

// Pending reports whether t is armed.
func (s *Simulation) Pending(t Timer) bool {
	_, ok := s.timers[t]
	return ok
}

// Frames returns every distinct snapshot observed so far.
func (s *Simulation) Frames() []Frame {
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Send applies ev at the current virtual time.
func (s *Simulation) Send(ev Event) {
	state, cmds := s.machine.Apply(s.state, ev)
	s.commit(state, cmds)
}

// Advance moves the clock forward by d, firing due timers in order.
// Timers due at the same instant fire in the order they were armed.
func (s *Simulation) Advance(d time.Duration) {
	target := s.now + d
	for {
		timer, p := s.nextDue(target)
		if p == nil {
			break
		}
		s.now = p.due
		gen := p.gen
		if p.repeat {
			s.seq++
			p.due += p.interval
			p.seq = s.seq
		} else {
			delete(s.timers, timer)
		}
		s.Send(Tick{Timer: timer, Gen: gen})
	}
	s.now = target
}

func (s *Simulation) nextDue(limit time.Duration) (Timer, *pendingTimer) {
	var (
		best      *pendingTimer
		bestTimer Timer
	)
	for t, p := range s.timers {
		if p.due > limit {
			continue
		}
		if best == nil || p.due < best.due || (p.due == best.due && p.seq < best.seq) {
			best, bestTimer = p, t
		}
	}
	return bestTimer, best
}

func (s *Simulation) commit(state State, cmds []Command) {
	s.state = state
	for _, c := range cmds {
		switch c.Kind {
		case CommandCancel:
			delete(s.timers, c.Timer)
		case CommandArm:
			s.seq++
			s.timers[c.Timer] = &pendingTimer{
				due:      s.now + c.After,
				interval: c.After,
				repeat:   c.Repeat,
				gen:      c.Gen,
				seq:      s.seq,
			}
		}
	}
	s.record()
}

func (s *Simulation) record() {
	snap := s.state.Snapshot()
	if n := len(s.frames); n > 0 && s.frames[n-1].Snapshot == snap {
		return
	}
	s.frames = append(s.frames, Frame{At: s.now, Snapshot: snap})
}
