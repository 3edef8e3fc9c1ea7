package view

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
)

type viewConfig struct {
	active       bool
	light        light.Light
	listCapacity int
}

// ViewBuilderOption is a functional option applied during NewView.
type ViewBuilderOption func(*viewConfig)

// WithLight sets the light written into the frame uniforms.
//
// Parameters:
//   - l: the light
//
// Returns:
//   - ViewBuilderOption: option function to apply
func WithLight(l light.Light) ViewBuilderOption {
	return func(c *viewConfig) {
		c.light = l
	}
}

// WithActive sets whether the view starts active.
func WithActive(active bool) ViewBuilderOption {
	return func(c *viewConfig) {
		c.active = active
	}
}

// WithQueueCapacity preallocates room for n renderables per bucket.
func WithQueueCapacity(n int) ViewBuilderOption {
	return func(c *viewConfig) {
		c.listCapacity = n
	}
}
