package light

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestDirectionalDefaults(t *testing.T) {
	l := NewDirectional()
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, l.Direction())
	assert.Equal(t, [3]float32{1, 1, 1}, l.Color())
	assert.Equal(t, float32(1), l.Intensity())
	assert.True(t, l.Enabled())
}

func TestDirectionalOptionsNormalize(t *testing.T) {
	l := NewDirectional(
		WithDirection(mgl32.Vec3{0, 0, -4}),
		WithIntensity(-2),
		WithColor([3]float32{1, 0.5, 0}),
		WithAmbient([3]float32{0.2, 0.2, 0.3}),
		WithEnabled(false),
	)
	assert.InDelta(t, 1, l.Direction().Len(), 1e-6)
	assert.Equal(t, float32(-1), l.Direction().Z())
	assert.Zero(t, l.Intensity())
	assert.Equal(t, [3]float32{0.2, 0.2, 0.3}, l.Ambient())
	assert.False(t, l.Enabled())

	l.SetDirection(mgl32.Vec3{})
	assert.Equal(t, float32(-1), l.Direction().Z())
	l.SetDirection(mgl32.Vec3{3, 0, 0})
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, l.Direction())
	l.SetIntensity(3)
	assert.Equal(t, float32(3), l.Intensity())
}
