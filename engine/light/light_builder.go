package light

import (
	"github.com/go-gl/mathgl/mgl32"
)

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithDirection sets the travel direction of the light. The direction is normalized before
// storing; a zero vector keeps the default.
//
// Parameters:
//   - dir: the direction
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a lightImpl
func WithDirection(dir mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		if dir.Len() > 0 {
			l.direction = dir.Normalize()
		}
	}
}

// WithColor sets the RGB colour of the light.
//
// Parameters:
//   - rgb: the colour
//
// Returns:
//   - LightBuilderOption: a function that applies the colour option to a lightImpl
func WithColor(rgb [3]float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = rgb
	}
}

// WithIntensity sets the scalar intensity multiplier.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = max(intensity, 0)
	}
}

// WithAmbient sets the ambient RGB term.
func WithAmbient(rgb [3]float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.ambient = rgb
	}
}

// WithEnabled sets whether the light contributes.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}
