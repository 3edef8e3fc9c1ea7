package loader

// StreamerBuilderOption is a functional option for configuring a Streamer via NewStreamer.
type StreamerBuilderOption func(*streamer)

// WithWorkers sets the number of decode workers. Values below one keep the default.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - StreamerBuilderOption: option function to apply
func WithWorkers(n int) StreamerBuilderOption {
	return func(s *streamer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQueueSize bounds the number of requests that may be queued or completed but not yet
// drained. Values below one keep the default.
//
// Parameters:
//   - n: the queue size
//
// Returns:
//   - StreamerBuilderOption: option function to apply
func WithQueueSize(n int) StreamerBuilderOption {
	return func(s *streamer) {
		if n > 0 {
			s.queueSize = n
		}
	}
}
