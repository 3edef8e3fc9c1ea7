package profiler

import "time"

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often a Snapshot is emitted. Non-positive values keep one second.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock replaces time.Now, used by tests to drive the interval deterministically.
//
// Parameters:
//   - now: the clock
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// WithMemStats enables or disables the runtime.ReadMemStats call per snapshot.
func WithMemStats(enabled bool) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.memStats = enabled
	}
}

// WithPublisher adds a receiver for every Snapshot.
//
// Parameters:
//   - pub: the publisher, ignored when nil
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithPublisher(pub Publisher) ProfilerBuilderOption {
	return func(p *Profiler) {
		if pub != nil {
			p.publishers = append(p.publishers, pub)
		}
	}
}
