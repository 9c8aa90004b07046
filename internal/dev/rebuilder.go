package dev

import (
	"context"
	"sync"
	"sync/atomic"
)

// Rebuilder serializes rebuilds. A trigger that arrives while a rebuild
// runs is coalesced: however many arrive, exactly one follow-up rebuild
// runs after the current one.
type Rebuilder struct {
	ctx      context.Context
	build    func(context.Context) error
	onResult func(error)

	mu      sync.Mutex
	running bool
	pending bool
	idle    chan struct{}

	runs atomic.Int64
}

// NewRebuilder creates a rebuilder. onResult, if non-nil, receives every
// rebuild's outcome on the rebuilding goroutine. Rebuilds stop once ctx is
// done.
func NewRebuilder(ctx context.Context, build func(context.Context) error, onResult func(error)) *Rebuilder {
	idle := make(chan struct{})
	close(idle)
	return &Rebuilder{ctx: ctx, build: build, onResult: onResult, idle: idle}
}

// Trigger requests a rebuild without waiting for it.
func (r *Rebuilder) Trigger() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx.Err() != nil {
		return
	}
	if r.running {
		r.pending = true
		return
	}
	r.running = true
	r.idle = make(chan struct{})
	go r.loop(r.idle)
}

func (r *Rebuilder) loop(idle chan struct{}) {
	for {
		err := r.build(r.ctx)
		r.runs.Add(1)
		if r.onResult != nil {
			r.onResult(err)
		}

		r.mu.Lock()
		if !r.pending || r.ctx.Err() != nil {
			r.running = false
			r.pending = false
			close(idle)
			r.mu.Unlock()
			return
		}
		r.pending = false
		r.mu.Unlock()
	}
}

// Wait blocks until no rebuild is running or pending.
func (r *Rebuilder) Wait() {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()
	<-idle
}

// Runs returns how many rebuilds have completed.
func (r *Rebuilder) Runs() int64 {
	return r.runs.Load()
}
