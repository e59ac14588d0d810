// Package rendering runs a scene outside the caller's goroutine. The
// Dispatcher owns every mutation of the model, the Renderer turns frame
// requests into pixels and the Player paces frames to a consumer.
package rendering

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/phanxgames/montage/core"
)

// ErrClosed is returned when work is posted to a closed Dispatcher.
var ErrClosed = errors.New("rendering: dispatcher closed")

// Dispatcher runs functions one at a time on a single goroutine. Model
// objects are not safe for concurrent use; code that touches a scene from
// several goroutines funnels the work through one Dispatcher. Functions
// run in posting order.
//
// A function running on the dispatcher must not call Invoke on the same
// dispatcher.
type Dispatcher struct {
	mu     sync.RWMutex
	closed bool
	queue  chan func()
	done   chan struct{}
}

// NewDispatcher starts the dispatcher goroutine. backlog is the number of
// functions that can be queued before Post blocks.
func NewDispatcher(backlog int) *Dispatcher {
	d := &Dispatcher{
		queue: make(chan func(), max(backlog, 0)),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for fn := range d.queue {
		if err := call(fn); err != nil {
			core.Logger().Error().Err(err).Msg("dispatched function failed")
		}
	}
}

func call(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("rendering: panic: %w", e)
			} else {
				err = fmt.Errorf("rendering: panic: %v", r)
			}
		}
	}()
	fn()
	return nil
}

// Post queues fn and returns without waiting for it.
func (d *Dispatcher) Post(fn func()) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	d.queue <- fn
	return nil
}

// Invoke runs fn on the dispatcher and returns its error. It always waits
// until fn has finished or been skipped: when ctx is done before fn
// starts, fn does not run and ctx.Err() is returned. A panic in fn is
// returned as an error.
func (d *Dispatcher) Invoke(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	err := d.Post(func() {
		if err := ctx.Err(); err != nil {
			result <- err
			return
		}
		var ferr error
		if perr := call(func() { ferr = fn() }); perr != nil {
			ferr = perr
		}
		result <- ferr
	})
	if err != nil {
		return err
	}
	return <-result
}

// Close stops accepting work, runs what is already queued and waits for
// the goroutine to exit. Close is idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}
