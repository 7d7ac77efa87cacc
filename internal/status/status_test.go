package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_ZeroValueIsIdle(t *testing.T) {
	var c Controller
	assert.Equal(t, Done, c.Current())
	assert.False(t, c.Busy())
	assert.Empty(t, c.History())
}

func TestController_HappyPath(t *testing.T) {
	c := NewController()
	c.Start()
	require.True(t, c.Busy())

	require.NoError(t, c.Apply(Thinking))
	require.NoError(t, c.Apply(Applying))
	require.NoError(t, c.Apply(Done))

	assert.Equal(t, Done, c.Current())
	assert.False(t, c.Busy())
	assert.Equal(t, []Status{Thinking, Applying, Done}, c.History())
}

func TestController_ErrorAndCancelFromEitherPhase(t *testing.T) {
	for _, mid := range []Status{Thinking, Applying} {
		for _, end := range []Status{Error, Cancelled} {
			c := NewController()
			c.Start()
			require.NoError(t, c.Apply(mid))
			require.NoError(t, c.Apply(end), "%s -> %s", mid, end)
			assert.Equal(t, end, c.Current())
		}
	}
}

func TestController_TerminalRejectsTransitions(t *testing.T) {
	c := NewController()
	c.Start()
	require.NoError(t, c.Apply(Cancelled))

	err := c.Apply(Applying)
	assert.ErrorIs(t, err, ErrTerminal)
	err = c.Apply(Done)
	assert.ErrorIs(t, err, ErrTerminal)
	assert.Equal(t, Cancelled, c.Current())
}

func TestController_DoneRequiresApplying(t *testing.T) {
	c := NewController()
	c.Start()
	err := c.Apply(Done)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, Thinking, c.Current())
}

func TestController_ApplyingCannotReturnToThinking(t *testing.T) {
	c := NewController()
	c.Start()
	require.NoError(t, c.Apply(Applying))
	assert.ErrorIs(t, c.Apply(Thinking), ErrInvalidTransition)
}

func TestController_NewStreamRestartsAtThinking(t *testing.T) {
	c := NewController()
	c.Start()
	require.NoError(t, c.Apply(Error))

	require.NoError(t, c.Apply(Thinking))
	assert.Equal(t, Thinking, c.Current())
	assert.Equal(t, []Status{Thinking}, c.History())
}

func TestStatus_Labels(t *testing.T) {
	assert.Equal(t, "Thinking...", Thinking.Label())
	assert.Equal(t, "Applying edits...", Applying.Label())
	assert.Equal(t, "Error occurred", Error.Label())
	assert.Equal(t, "weird", Status("weird").Label())
	assert.False(t, Status("weird").Valid())
	assert.True(t, Done.Terminal())
	assert.False(t, Applying.Terminal())
}
