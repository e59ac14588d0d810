package core

import "sync"

// Event is an ordered observer list. Handlers run synchronously in
// subscription order. The zero value is ready to use.
//
// Raise snapshots the handler list, so a handler may cancel itself (or
// subscribe others) without affecting the delivery in progress.
type Event[E any] struct {
	mu       sync.Mutex
	handlers []handler[E]
	nextID   uint64
}

type handler[E any] struct {
	id uint64
	fn func(E)
}

// Subscribe appends fn and returns a function that removes it again.
// Calling the cancel function more than once is harmless.
func (ev *Event[E]) Subscribe(fn func(E)) (cancel func()) {
	ev.mu.Lock()
	ev.nextID++
	id := ev.nextID
	ev.handlers = append(ev.handlers, handler[E]{id: id, fn: fn})
	ev.mu.Unlock()
	return func() { ev.remove(id) }
}

func (ev *Event[E]) remove(id uint64) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	for i, h := range ev.handlers {
		if h.id == id {
			copy(ev.handlers[i:], ev.handlers[i+1:])
			ev.handlers[len(ev.handlers)-1] = handler[E]{}
			ev.handlers = ev.handlers[:len(ev.handlers)-1]
			return
		}
	}
}

// Raise delivers e to every handler.
func (ev *Event[E]) Raise(e E) {
	ev.mu.Lock()
	if len(ev.handlers) == 0 {
		ev.mu.Unlock()
		return
	}
	snapshot := make([]handler[E], len(ev.handlers))
	copy(snapshot, ev.handlers)
	ev.mu.Unlock()

	for _, h := range snapshot {
		h.fn(e)
	}
}

// Len returns the number of subscribed handlers.
func (ev *Event[E]) Len() int {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return len(ev.handlers)
}
