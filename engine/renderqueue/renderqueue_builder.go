package renderqueue

type renderQueueConfig struct {
	listCapacity int
}

// RenderQueueBuilderOption is a functional option applied during NewRenderQueue.
type RenderQueueBuilderOption func(*renderQueueConfig)

// WithListCapacity preallocates room for n renderables in every bucket.
//
// Parameters:
//   - n: the initial capacity per bucket
//
// Returns:
//   - RenderQueueBuilderOption: a function that applies the capacity option
func WithListCapacity(n int) RenderQueueBuilderOption {
	return func(c *renderQueueConfig) {
		c.listCapacity = max(n, 0)
	}
}
