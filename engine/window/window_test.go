package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderOptions(t *testing.T) {
	w := &engineWindow{width: 1280, height: 720}
	for _, opt := range []WindowBuilderOption{
		WithTitle("demo"),
		WithSize(0, 600),
		WithMinSize(100, 100),
		WithMaxSize(2000, 1000),
	} {
		opt(w)
	}
	assert.Equal(t, "demo", w.Title())
	assert.Equal(t, 1280, w.Width())
	assert.Equal(t, 600, w.Height())
	assert.Equal(t, 100, w.minWidth)
	assert.Equal(t, 1000, w.maxHeight)
}

func TestResizedForwardsChangedSizes(t *testing.T) {
	var got [][2]int
	w := &engineWindow{width: 800, height: 600}
	WithCallbacks(Callbacks{Resize: func(width, height int) {
		got = append(got, [2]int{width, height})
	}})(w)

	w.resized(800, 600)
	w.resized(0, 0)
	w.resized(1024, 768)

	assert.Equal(t, [][2]int{{1024, 768}}, got)
	assert.Equal(t, 1024, w.Width())
	assert.Equal(t, 768, w.Height())
}

func TestClosedWindowIsInert(t *testing.T) {
	w := &engineWindow{title: "gone"}
	assert.False(t, w.Running())
	assert.False(t, w.Poll())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.NotPanics(t, w.RequestClose)
	assert.Error(t, w.Close())
}
