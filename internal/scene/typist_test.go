package scene

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/spielbash/internal/testutil"
	"github.com/steveyegge/spielbash/internal/tmux"
)

const (
	typingDelay  = 100 * time.Millisecond
	readingDelay = 2 * time.Second
)

func newTypist(shell *testutil.FakeShell, clock *testutil.Clock) *Typist {
	return &Typist{
		Keys:         shell,
		Session:      "demo",
		TypingDelay:  typingDelay,
		ReadingDelay: readingDelay,
		Sleep:        clock.Sleep,
	}
}

func TestTypist_OneKeyPerCharacter(t *testing.T) {
	shell := testutil.NewFakeShell("$ ")
	clock := &testutil.Clock{}

	require.NoError(t, newTypist(shell, clock).Emulate(context.Background(), "ls -a", false))

	assert.Equal(t, []tmux.Key{"l", "s", tmux.KeySpace, "-", "a"}, shell.Keys())
	assert.Equal(t, "ls -a", shell.Line())
	assert.Equal(t, 5, clock.Count(typingDelay))
	assert.Equal(t, 1, clock.Count(readingDelay))
	assert.Empty(t, shell.Submitted(), "typing never submits")
}

func TestTypist_DiscardErasesEveryCharacter(t *testing.T) {
	shell := testutil.NewFakeShell("$ ")
	clock := &testutil.Clock{}

	require.NoError(t, newTypist(shell, clock).Emulate(context.Background(), "bye now", true))

	keys := shell.Keys()
	require.Len(t, keys, 14)
	for _, k := range keys[7:] {
		assert.Equal(t, tmux.KeyBackspace, k)
	}
	assert.Equal(t, "", shell.Line())
	assert.Equal(t, "$ ", shell.Screen())
	assert.Equal(t, 14, clock.Count(typingDelay))
	assert.Equal(t, 1, clock.Count(readingDelay))

	// The reading pause sits between the typed line and the erasing.
	slept := clock.Slept()
	assert.Equal(t, readingDelay, slept[7])
}

func TestTypist_GraphemeClusters(t *testing.T) {
	shell := testutil.NewFakeShell("$ ")
	clock := &testutil.Clock{}

	require.NoError(t, newTypist(shell, clock).Emulate(context.Background(), "👍🏽 é", true))

	keys := shell.Keys()
	assert.Equal(t, []tmux.Key{"👍🏽", tmux.KeySpace, "é"}, keys[:3])
	assert.Len(t, keys, 6, "one backspace per grapheme")
}

func TestTypist_EmptyLine(t *testing.T) {
	shell := testutil.NewFakeShell("$ ")
	clock := &testutil.Clock{}

	require.NoError(t, newTypist(shell, clock).Emulate(context.Background(), "", true))
	assert.Empty(t, shell.Keys())
	assert.Equal(t, []time.Duration{readingDelay}, clock.Slept())
}

func TestTypist_SendErrorIsFatal(t *testing.T) {
	shell := testutil.NewFakeShell("$ ")
	shell.SendErr = tmux.ErrSessionNotFound
	clock := &testutil.Clock{}

	err := newTypist(shell, clock).Emulate(context.Background(), "ls", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, tmux.ErrSessionNotFound)
	assert.Empty(t, clock.Slept(), "no retries, no pauses after a failure")
}

func TestTypist_Cancelled(t *testing.T) {
	shell := testutil.NewFakeShell("$ ")
	clock := &testutil.Clock{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTypist(shell, clock).Emulate(ctx, "ls", false)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, shell.Keys(), 1, "the first key goes out before the first pause")
}

func TestTypist_Press(t *testing.T) {
	shell := testutil.NewFakeShell("$ ")
	clock := &testutil.Clock{}
	typist := newTypist(shell, clock)

	require.NoError(t, typist.Press(context.Background(), tmux.KeyTab))
	assert.Equal(t, []tmux.Key{tmux.KeyTab}, shell.Keys())
	assert.Empty(t, clock.Slept())
}

func TestSleep_RealTimer(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))
	require.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
