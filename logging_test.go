package voxcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLoggerDebugToggle(t *testing.T) {
	l := NewDefaultLogger("test", false)
	assert.False(t, l.DebugEnabled())
	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("visible %d", 1)
	l.SetDebug(false)
	assert.False(t, l.DebugEnabled())
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	assert.NotNil(t, l)
	assert.False(t, l.DebugEnabled())

	d := NewDefaultLogger("", true)
	assert.Same(t, d, OrNop(d))
}
