// File: internal/shell/loop.go
// Package shell ties the session registry, popup router, health monitor and
// credential walker together behind a single-threaded event loop.
package shell

import (
	"context"
	"time"
)

// Loop serializes all shared-state mutation onto one goroutine. Engine
// callbacks, console commands and timers all post closures here instead of
// touching the shell directly.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

func NewLoop() *Loop {
	return &Loop{
		tasks: make(chan func(), 256),
		done:  make(chan struct{}),
	}
}

// Run executes posted tasks until ctx is cancelled. It must be called exactly
// once.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn for execution on the loop goroutine. Posting after the loop
// stopped drops the task; late engine events during shutdown land here.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
	case l.tasks <- fn:
	}
}

// After runs fn on the loop after d. Used for the health monitor's deferred
// probes and reloads.
func (l *Loop) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { l.Post(fn) })
}

// Call posts fn and waits for it to run, bridging synchronous callers like
// the console reader onto the loop. It returns early if the loop stops first.
func (l *Loop) Call(fn func()) {
	ran := make(chan struct{})
	l.Post(func() {
		defer close(ran)
		fn()
	})
	select {
	case <-ran:
	case <-l.done:
	}
}
