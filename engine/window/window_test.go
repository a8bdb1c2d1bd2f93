package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderDefaults(t *testing.T) {
	w := newEngineWindow()
	assert.Equal(t, "oxy-loop", w.title)
	assert.True(t, w.resizable)
	width, height := w.Size()
	assert.Equal(t, 800, width)
	assert.Equal(t, 600, height)
}

func TestBuilderOptions(t *testing.T) {
	w := newEngineWindow(
		WithTitle("cube"),
		WithWidth(1024),
		WithHeight(768),
		WithMinSize(320, 240),
		WithMaxSize(1920, 1080),
		WithResizable(false),
	)
	assert.Equal(t, "cube", w.title)
	assert.Equal(t, 1024, w.Width())
	assert.Equal(t, 768, w.Height())
	assert.Equal(t, 320, w.minWidth)
	assert.Equal(t, 240, w.minHeight)
	assert.Equal(t, 1920, w.maxWidth)
	assert.Equal(t, 1080, w.maxHeight)
	assert.False(t, w.resizable)
}

func TestResizedUpdatesSizeAndNotifies(t *testing.T) {
	w := newEngineWindow()
	var got [2]int
	w.SetResizeCallback(func(width, height int) {
		got = [2]int{width, height}
	})

	w.resized(0, 0)
	width, height := w.Size()
	assert.Equal(t, 0, width)
	assert.Equal(t, 0, height)

	w.resized(400, 300)
	assert.Equal(t, [2]int{400, 300}, got)
	assert.Equal(t, 400, w.Width())
}

func TestUncreatedWindowIsNotAlive(t *testing.T) {
	w := newEngineWindow()
	assert.False(t, w.Alive())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
}
