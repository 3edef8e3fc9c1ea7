//go:build linux

package affinity

import "golang.org/x/sys/unix"

// Current returns the calling OS thread id.
func Current() ID {
	return ID(unix.Gettid())
}
