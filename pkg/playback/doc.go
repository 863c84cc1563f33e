/*
Package playback is the scripted demo engine behind a shared link.

The script has four steps (navigate, locate input, type prompt, ready to
submit). Each step dwells for a fixed time; during the typing step the prompt
is revealed one character at a time so that the whole prompt is visible
after exactly Timing.TypingDuration, whatever its length.

The package is split in three layers:

  - Machine is pure: Apply(state, event) returns the next state and the timer
    commands (cancel/arm) the state needs. Every configuration change cancels
    both timers and re-arms them with a new generation; ticks carrying an old
    generation are ignored.
  - Simulation runs a Machine on a virtual clock. Script uses it to precompute
    the frames of a whole playback.
  - Player runs a Machine on real (or fake) clockwork timers from a single
    goroutine and publishes snapshots to subscribers.
*/
package playback
