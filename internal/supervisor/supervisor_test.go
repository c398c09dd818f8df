package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChild_StartAndWait(t *testing.T) {
	t.Parallel()
	c := NewChild(nil, "echoer", "/bin/sh", "-c", "echo hello; exit 0")
	require.NoError(t, c.Start())
	assert.NoError(t, c.Wait())
	assert.False(t, c.Running())
}

func TestChild_Pid(t *testing.T) {
	t.Parallel()
	c := NewChild(nil, "sleeper", "/bin/sh", "-c", "sleep 0.2")
	assert.Equal(t, 0, c.Pid(), "pid should be zero before Start")
	require.NoError(t, c.Start())
	assert.NotZero(t, c.Pid())
	require.NoError(t, c.Wait())
}

func TestChild_Kill(t *testing.T) {
	t.Parallel()
	c := NewChild(nil, "sleeper", "/bin/sh", "-c", "sleep 30")
	require.NoError(t, c.Start())
	assert.True(t, c.Running())

	require.NoError(t, c.Kill(time.Second))
	assert.False(t, c.Running())
}

func TestChild_SettleAndCheck_SurvivesSettle(t *testing.T) {
	t.Parallel()
	c := NewChild(nil, "sleeper", "/bin/sh", "-c", "sleep 2")
	err := c.SettleAndCheck(context.Background(), 100*time.Millisecond)
	assert.NoError(t, err)
	c.Kill(time.Second)
}

func TestChild_SettleAndCheck_ExitsImmediately(t *testing.T) {
	t.Parallel()
	c := NewChild(nil, "quitter", "/bin/sh", "-c", "exit 1")
	err := c.SettleAndCheck(context.Background(), 200*time.Millisecond)
	assert.Error(t, err)
}
