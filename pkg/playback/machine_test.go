package playback_test

import (
	"testing"
	"time"

	"github.com/aretw0/lmrtfy/pkg/playback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arms(cmds []playback.Command) map[playback.Timer]playback.Command {
	out := make(map[playback.Timer]playback.Command)
	for _, c := range cmds {
		if c.Kind == playback.CommandArm {
			out[c.Timer] = c
		}
	}
	return out
}

func TestTiming_Dwell(t *testing.T) {
	timing := playback.DefaultTiming()

	tests := []struct {
		step playback.Step
		loop bool
		want time.Duration
	}{
		{playback.StepNavigate, false, 1500 * time.Millisecond},
		{playback.StepLocateInput, true, 1500 * time.Millisecond},
		{playback.StepTypePrompt, false, 3500 * time.Millisecond},
		{playback.StepReadyToSubmit, true, 3 * time.Second},
		{playback.StepReadyToSubmit, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.step.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, timing.Dwell(tt.step, tt.loop))
		})
	}
}

func TestTiming_RevealInterval(t *testing.T) {
	timing := playback.DefaultTiming()
	assert.Equal(t, time.Second, timing.RevealInterval(2))
	assert.Equal(t, 4*time.Millisecond, timing.RevealInterval(500))
	assert.Equal(t, 50*time.Millisecond, timing.RevealInterval(0))

	for _, n := range []int{1, 3, 7, 333, 4096} {
		assert.LessOrEqual(t, time.Duration(n)*timing.RevealInterval(n), timing.TypingDuration, "n=%d", n)
	}
}

func TestTiming_Validate(t *testing.T) {
	require.NoError(t, playback.DefaultTiming().Validate())

	bad := playback.DefaultTiming()
	bad.StepDwell = 0
	assert.ErrorIs(t, bad.Validate(), playback.ErrInvalidTiming)

	bad = playback.DefaultTiming()
	bad.FinalPause = -time.Second
	assert.ErrorIs(t, bad.Validate(), playback.ErrInvalidTiming)
}

func TestStep_Labels(t *testing.T) {
	assert.Equal(t, "Opening Replit...", playback.StepNavigate.Label())
	assert.Equal(t, "Ready to ask AI!", playback.StepReadyToSubmit.Label())
	assert.Equal(t, "type_prompt", playback.StepTypePrompt.String())
	assert.Equal(t, "Complete!", playback.Step(9).Label())
	assert.Len(t, playback.Steps(), playback.StepCount)
}

func TestMachine_StartArmsAdvanceOnly(t *testing.T) {
	m := playback.NewMachine(playback.DefaultTiming())

	state, cmds := m.Start(playback.Config{Prompt: "Hi", AutoPlay: true})
	assert.Equal(t, playback.StepNavigate, state.Step)
	assert.True(t, state.Playing)
	assert.Equal(t, "", state.Text())

	armed := arms(cmds)
	require.Contains(t, armed, playback.TimerAdvance)
	assert.NotContains(t, armed, playback.TimerReveal)
	assert.Equal(t, 1500*time.Millisecond, armed[playback.TimerAdvance].After)
	assert.Equal(t, state.Generation(playback.TimerAdvance), armed[playback.TimerAdvance].Gen)
}

func TestMachine_NoAutoPlayArmsNothing(t *testing.T) {
	m := playback.NewMachine(playback.Timing{})
	state, cmds := m.Start(playback.Config{Prompt: "Hi"})
	assert.False(t, state.Playing)
	assert.Empty(t, arms(cmds))
}

func TestMachine_CancelsPrecedeArms(t *testing.T) {
	m := playback.NewMachine(playback.DefaultTiming())
	state, _ := m.Start(playback.Config{Prompt: "Hi", AutoPlay: true})
	state.Step = playback.StepLocateInput

	state, cmds := m.Apply(state, playback.Tick{Timer: playback.TimerAdvance, Gen: state.Generation(playback.TimerAdvance)})
	require.Equal(t, playback.StepTypePrompt, state.Step)

	seenArm := map[playback.Timer]bool{}
	for _, c := range cmds {
		if c.Kind == playback.CommandArm {
			seenArm[c.Timer] = true
			continue
		}
		assert.False(t, seenArm[c.Timer], "cancel of %s after its arm", c.Timer)
	}
	armed := arms(cmds)
	require.Contains(t, armed, playback.TimerReveal)
	assert.True(t, armed[playback.TimerReveal].Repeat)
	assert.Equal(t, time.Second, armed[playback.TimerReveal].After)
}

func TestMachine_StaleTickIgnored(t *testing.T) {
	m := playback.NewMachine(playback.DefaultTiming())
	state, _ := m.Start(playback.Config{Prompt: "Hi", AutoPlay: true})
	stale := state.Generation(playback.TimerAdvance)

	state, _ = m.Apply(state, playback.Configure{Config: playback.Config{Prompt: "Other", AutoPlay: true}})
	next, cmds := m.Apply(state, playback.Tick{Timer: playback.TimerAdvance, Gen: stale})

	assert.Equal(t, state, next)
	assert.Empty(t, cmds)
}

func TestMachine_ConfigureUnchangedIsNoop(t *testing.T) {
	m := playback.NewMachine(playback.DefaultTiming())
	cfg := playback.Config{Prompt: "Hi", AutoPlay: true, Loop: true}
	state, _ := m.Start(cfg)

	next, cmds := m.Apply(state, playback.Configure{Config: cfg})
	assert.Equal(t, state, next)
	assert.Nil(t, cmds)
}

func TestMachine_AutoPlayChangeTogglesPlaying(t *testing.T) {
	m := playback.NewMachine(playback.DefaultTiming())
	state, _ := m.Start(playback.Config{Prompt: "Hi"})
	require.False(t, state.Playing)

	state, cmds := m.Apply(state, playback.Configure{Config: playback.Config{Prompt: "Hi", AutoPlay: true}})
	assert.True(t, state.Playing)
	assert.Contains(t, arms(cmds), playback.TimerAdvance)
}

func TestMachine_TeardownCancelsEverything(t *testing.T) {
	m := playback.NewMachine(playback.DefaultTiming())
	state, _ := m.Start(playback.Config{Prompt: "Hi", AutoPlay: true})

	state, cmds := m.Apply(state, playback.Teardown{})
	assert.False(t, state.Playing)
	assert.Empty(t, arms(cmds))
	require.Len(t, cmds, 2)
	for _, c := range cmds {
		assert.Equal(t, playback.CommandCancel, c.Kind)
	}
}

func TestMachine_ResumeRearmsDiscardedCommands(t *testing.T) {
	m := playback.NewMachine(playback.DefaultTiming())
	state, _ := m.Start(playback.Config{Prompt: "Hi", AutoPlay: true})
	state, _ = m.Apply(state, playback.Tick{Timer: playback.TimerAdvance, Gen: state.Generation(playback.TimerAdvance)})
	state, _ = m.Apply(state, playback.Tick{Timer: playback.TimerAdvance, Gen: state.Generation(playback.TimerAdvance)})
	require.Equal(t, playback.StepTypePrompt, state.Step)

	resumed, cmds := m.Resume(state)
	assert.Equal(t, playback.StepTypePrompt, resumed.Step)
	armed := arms(cmds)
	require.Contains(t, armed, playback.TimerAdvance)
	require.Contains(t, armed, playback.TimerReveal)
	assert.Greater(t, resumed.Generation(playback.TimerAdvance), state.Generation(playback.TimerAdvance))
	assert.Equal(t, resumed.Generation(playback.TimerReveal), armed[playback.TimerReveal].Gen)
}

func TestState_TextOutsideReveal(t *testing.T) {
	state := playback.State{Config: playback.Config{Prompt: "Hello"}, Step: playback.StepLocateInput}
	assert.Equal(t, "", state.Text())

	state.Step = playback.StepTypePrompt
	assert.Equal(t, "Hello", state.Text(), "not revealing shows the full prompt")

	state.Revealing = true
	state.Revealed = 2
	assert.Equal(t, "He", state.Text())

	state.Step = playback.StepReadyToSubmit
	state.Revealing = false
	assert.Equal(t, "Hello", state.Text())
}
