package command

// CommandBufferQueueBuilderOption is a functional option applied to a queue during construction via NewCommandBufferQueue.
type CommandBufferQueueBuilderOption func(*commandBufferQueue)

// WithBufferCount sets the number of circular buffers the queue rotates through.
// Values below 2 are raised to 2.
//
// Parameters:
//   - n: the buffer count
//
// Returns:
//   - CommandBufferQueueBuilderOption: a function that applies the buffer count option to a queue
func WithBufferCount(n int) CommandBufferQueueBuilderOption {
	return func(q *commandBufferQueue) {
		q.bufferCount = n
	}
}

// WithBufferSize sets the capacity in bytes of each circular buffer.
// Values below MinBufferSize are raised to MinBufferSize.
//
// Parameters:
//   - bytes: the per-buffer capacity
//
// Returns:
//   - CommandBufferQueueBuilderOption: a function that applies the buffer size option to a queue
func WithBufferSize(bytes int) CommandBufferQueueBuilderOption {
	return func(q *commandBufferQueue) {
		q.bufferSize = bytes
	}
}

// WithTotalSize splits a total byte budget evenly over the configured buffer count.
// Apply it after WithBufferCount.
//
// Parameters:
//   - bytes: the total capacity across all buffers
//
// Returns:
//   - CommandBufferQueueBuilderOption: a function that applies the total size option to a queue
func WithTotalSize(bytes int) CommandBufferQueueBuilderOption {
	return func(q *commandBufferQueue) {
		q.bufferSize = bytes / max(q.bufferCount, 2)
	}
}

// WithInlineConsumer makes the queue single-loop: every published range is handed to fn on the
// publishing goroutine before Flush or Commit returns. fn must release each range it is given.
//
// Parameters:
//   - fn: the synchronous consumer
//
// Returns:
//   - CommandBufferQueueBuilderOption: a function that applies the inline consumer option to a queue
func WithInlineConsumer(fn func(ranges []Range)) CommandBufferQueueBuilderOption {
	return func(q *commandBufferQueue) {
		q.inline = fn
	}
}
