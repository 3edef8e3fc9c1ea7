// Package light describes the scene's directional light and ambient term that views write into
// their frame uniforms.
package light

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex

	direction mgl32.Vec3
	color     [3]float32
	intensity float32
	ambient   [3]float32
	enabled   bool
}

// Light is a directional light such as the sun: a direction with no position and no
// distance attenuation, plus the ambient colour added to every fragment.
type Light interface {
	// Direction returns the normalized direction the light travels in.
	Direction() mgl32.Vec3

	// SetDirection sets the travel direction. A zero vector is ignored.
	//
	// Parameters:
	//   - dir: the direction, normalized before storing
	SetDirection(dir mgl32.Vec3)

	// Color returns the RGB colour.
	Color() [3]float32

	// SetColor sets the RGB colour.
	SetColor(rgb [3]float32)

	// Intensity returns the scalar multiplier.
	Intensity() float32

	// SetIntensity sets the scalar multiplier, clamped to >= 0.
	SetIntensity(intensity float32)

	// Ambient returns the ambient RGB term.
	Ambient() [3]float32

	// SetAmbient sets the ambient RGB term.
	SetAmbient(rgb [3]float32)

	// Enabled reports whether the light contributes. A disabled light keeps its ambient term.
	Enabled() bool

	// SetEnabled enables or disables the direct contribution.
	SetEnabled(enabled bool)
}

var _ Light = &lightImpl{}

// NewDirectional creates a white light shining straight down with a dim grey ambient term.
//
// Parameters:
//   - options: variadic list of LightBuilderOption functions
//
// Returns:
//   - Light: the new light
func NewDirectional(options ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:        &sync.Mutex{},
		direction: mgl32.Vec3{0, -1, 0},
		color:     [3]float32{1, 1, 1},
		intensity: 1,
		ambient:   [3]float32{0.1, 0.1, 0.1},
		enabled:   true,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.direction
}

func (l *lightImpl) SetDirection(dir mgl32.Vec3) {
	if dir.Len() == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.direction = dir.Normalize()
}

func (l *lightImpl) Color() [3]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *lightImpl) SetColor(rgb [3]float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = rgb
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = max(intensity, 0)
}

func (l *lightImpl) Ambient() [3]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ambient
}

func (l *lightImpl) SetAmbient(rgb [3]float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ambient = rgb
}

func (l *lightImpl) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}
