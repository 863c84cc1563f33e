package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Player runs a Machine against real timers.
// Once started, all transitions happen on a single goroutine; the public
// methods only enqueue events, so no timer callback ever races a reconfiguration.
// Before Start, events are applied directly and no timer is armed.
type Player struct {
	machine Machine
	clock   clockwork.Clock
	logger  *slog.Logger
	buffer  int

	events chan Event

	lifeMu  sync.Mutex
	started bool

	// Guarded by lifeMu until Start, then owned by the run goroutine.
	state      State
	advance    clockwork.Timer
	advanceGen uint64
	reveal     clockwork.Ticker
	revealGen  uint64

	mu        sync.RWMutex
	snapshot  Snapshot
	published bool
	subs      map[chan Snapshot]struct{}

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithClock sets the clock used for timers. Tests pass a fake clock.
func WithClock(c clockwork.Clock) PlayerOption {
	return func(p *Player) {
		p.clock = c
	}
}

// WithTiming sets the script timing.
func WithTiming(t Timing) PlayerOption {
	return func(p *Player) {
		p.machine = NewMachine(t)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PlayerOption {
	return func(p *Player) {
		p.logger = l
	}
}

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(n int) PlayerOption {
	return func(p *Player) {
		if n > 0 {
			p.buffer = n
		}
	}
}

// NewPlayer creates a stopped Player for cfg. Call Start to run it.
func NewPlayer(cfg Config, opts ...PlayerOption) *Player {
	p := &Player{
		machine: NewMachine(DefaultTiming()),
		clock:   clockwork.NewRealClock(),
		logger:  slog.Default(),
		buffer:  32,
		events:  make(chan Event),
		subs:    make(map[chan Snapshot]struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	// Timers are armed by run.
	p.state, _ = p.machine.Start(cfg)
	p.snapshot = p.state.Snapshot()
	return p
}

// Start launches the playback goroutine. It returns immediately.
// Cancelling ctx has the same effect as Close.
func (p *Player) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		p.mu.Lock()
		p.cancel = cancel
		p.mu.Unlock()

		p.lifeMu.Lock()
		p.started = true
		p.lifeMu.Unlock()
		go p.run(ctx)
	})
}

// Close tears the player down and waits for its goroutine to exit.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		started := true
		p.startOnce.Do(func() { started = false })
		if !started {
			close(p.done)
			p.closeSubscribers()
			return
		}
		p.mu.RLock()
		cancel := p.cancel
		p.mu.RUnlock()
		cancel()
		<-p.done
	})
}

// Done is closed once the player has been torn down.
func (p *Player) Done() <-chan struct{} {
	return p.done
}

// Snapshot returns the latest view of the playback state.
func (p *Player) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Subscribe returns a channel of snapshots and a function to stop receiving.
// If the player has already published, the current snapshot is delivered first.
// The channel is closed when the player is torn down.
func (p *Player) Subscribe() (<-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan Snapshot, p.buffer)
	select {
	case <-p.done:
		close(ch)
		return ch, func() {}
	default:
	}
	if p.published {
		ch <- p.snapshot
	}
	p.subs[ch] = struct{}{}

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[ch]; ok {
			delete(p.subs, ch)
			close(ch)
		}
	}
}

// Configure swaps the prompt, autoplay and loop settings.
func (p *Player) Configure(cfg Config) {
	p.send(Configure{Config: cfg})
}

// SetPlaying pauses or resumes playback.
func (p *Player) SetPlaying(playing bool) {
	p.send(SetPlaying{Playing: playing})
}

// Reset restarts the script from the first step.
func (p *Player) Reset() {
	p.send(Reset{})
}

func (p *Player) send(ev Event) {
	p.lifeMu.Lock()
	if !p.started {
		defer p.lifeMu.Unlock()
		select {
		case <-p.done:
			return
		default:
		}
		p.state, _ = p.machine.Apply(p.state, ev)
		p.mu.Lock()
		p.snapshot = p.state.Snapshot()
		p.mu.Unlock()
		return
	}
	p.lifeMu.Unlock()

	select {
	case p.events <- ev:
	case <-p.done:
	}
}

func (p *Player) run(ctx context.Context) {
	defer close(p.done)
	defer p.closeSubscribers()

	p.commit(p.machine.Resume(p.state))

	for {
		select {
		case <-ctx.Done():
			state, cmds := p.machine.Apply(p.state, Teardown{})
			p.state = state
			p.exec(cmds)
			p.logger.Debug("playback torn down", "step", p.state.Step.String())
			return
		case ev := <-p.events:
			p.apply(ev)
		case <-timerC(p.advance):
			// One-shot: it is spent once received.
			p.advance = nil
			p.apply(Tick{Timer: TimerAdvance, Gen: p.advanceGen})
		case <-tickerC(p.reveal):
			p.apply(Tick{Timer: TimerReveal, Gen: p.revealGen})
		}
	}
}

func (p *Player) apply(ev Event) {
	state, cmds := p.machine.Apply(p.state, ev)
	p.commit(state, cmds)
}

// commit arms timers before publishing, so an observer that has seen a
// snapshot can rely on the timers for that snapshot being in place.
func (p *Player) commit(state State, cmds []Command) {
	p.state = state
	p.exec(cmds)
	p.publish(state.Snapshot())
}

func (p *Player) exec(cmds []Command) {
	for _, c := range cmds {
		switch {
		case c.Kind == CommandCancel && c.Timer == TimerAdvance:
			if p.advance != nil {
				p.advance.Stop()
				p.advance = nil
			}
		case c.Kind == CommandCancel && c.Timer == TimerReveal:
			if p.reveal != nil {
				p.reveal.Stop()
				p.reveal = nil
			}
		case c.Kind == CommandArm && c.Timer == TimerAdvance:
			p.advance = p.clock.NewTimer(c.After)
			p.advanceGen = c.Gen
		case c.Kind == CommandArm && c.Timer == TimerReveal:
			p.reveal = p.clock.NewTicker(positive(c.After))
			p.revealGen = c.Gen
		}
	}
}

func (p *Player) publish(snap Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.published && snap == p.snapshot {
		return
	}
	p.snapshot = snap
	p.published = true

	// A slow subscriber loses its oldest frame, never the newest: the
	// final stop frame must always arrive.
	for ch := range p.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
		p.logger.Debug("playback subscriber lagging, dropped oldest frame", "step", snap.Step)
	}
}

func (p *Player) closeSubscribers() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		close(ch)
		delete(p.subs, ch)
	}
}

func timerC(t clockwork.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.Chan()
}

func tickerC(t clockwork.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.Chan()
}

func positive(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Nanosecond
	}
	return d
}
