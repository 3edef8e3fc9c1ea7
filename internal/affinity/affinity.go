// Package affinity records which OS thread a role (main, render) is bound to and asserts that
// thread-affine calls are issued from it.
//
// Goroutines migrate between OS threads unless they call runtime.LockOSThread, so a Thread is
// only meaningful when bound from a locked goroutine. An unbound Thread accepts every caller.
package affinity

import (
	"fmt"
	"sync/atomic"
)

// ID is an operating system thread id. Zero means unknown.
type ID int64

// Thread remembers the OS thread a role was bound to.
type Thread struct {
	name string
	id   atomic.Int64
}

// NewThread creates an unbound Thread.
//
// Parameters:
//   - name: the role name used in violation messages (e.g. "main", "render")
//
// Returns:
//   - *Thread: the unbound thread
func NewThread(name string) *Thread {
	return &Thread{name: name}
}

// Name returns the role name.
func (t *Thread) Name() string {
	return t.name
}

// Bind records the calling OS thread as the role's thread.
func (t *Thread) Bind() {
	t.id.Store(int64(Current()))
}

// Unbind forgets the bound thread.
func (t *Thread) Unbind() {
	t.id.Store(0)
}

// ID returns the bound thread id, or zero when unbound.
func (t *Thread) ID() ID {
	return ID(t.id.Load())
}

// IsCurrent reports whether the caller runs on the bound thread. An unbound thread, or a
// platform without thread ids, always reports true.
//
// Returns:
//   - bool: true if the caller may issue calls affine to this thread
func (t *Thread) IsCurrent() bool {
	bound := ID(t.id.Load())
	if bound == 0 {
		return true
	}
	cur := Current()
	return cur == 0 || cur == bound
}

// Check panics when the caller is not on the bound thread.
//
// Parameters:
//   - op: the operation being checked, included in the panic message
func (t *Thread) Check(op string) {
	if !t.IsCurrent() {
		panic(fmt.Sprintf("affinity: %s must run on the %s thread (%d), called from thread %d", op, t.name, t.ID(), Current()))
	}
}
