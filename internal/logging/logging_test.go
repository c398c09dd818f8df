package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidLevels(t *testing.T) {
	t.Parallel()
	for _, level := range []string{"debug", "info", "warn", "error"} {
		level := level
		t.Run(level, func(t *testing.T) {
			t.Parallel()
			log, err := New(level, false)
			require.NoError(t, err)
			require.NotNil(t, log)
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	t.Parallel()
	_, err := New("not-a-level", false)
	assert.Error(t, err)
}

func TestNew_DevModeSucceeds(t *testing.T) {
	t.Parallel()
	log, err := New("debug", true)
	require.NoError(t, err)
	require.NotNil(t, log)
}
