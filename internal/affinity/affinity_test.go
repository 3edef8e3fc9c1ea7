package affinity

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnboundThreadAcceptsEveryone(t *testing.T) {
	th := NewThread("main")
	assert.True(t, th.IsCurrent())
	assert.NotPanics(t, func() { th.Check("op") })
	assert.Equal(t, "main", th.Name())
}

func TestBoundThreadRejectsOtherThreads(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	th := NewThread("render")
	th.Bind()
	assert.True(t, th.IsCurrent())
	assert.NotPanics(t, func() { th.Check("op") })

	if Current() == 0 {
		t.Skip("thread ids are not tracked on this platform")
	}

	result := make(chan bool)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		result <- th.IsCurrent()
	}()
	assert.False(t, <-result)

	th.Unbind()
	assert.Zero(t, th.ID())
}
