// Package kevent provides the readiness events peripheral controllers use
// to notify the guest that an operation completed. Events are one-shot and
// re-armable: a controller signals, the guest observes and clears before
// issuing its next command. The core never clears an event on its own.
//
// The HID service runs on a single emulation thread, so none of these
// types lock.
package kevent

import "fmt"

// Event is a one-shot readiness signal owned by a Context. Controllers
// hold non-owning references to the events they signal.
type Event struct {
	name     string
	signaled bool
	closed   bool
}

// Name returns the name the event was created with.
func (e *Event) Name() string {
	return e.name
}

// Signal marks the event signaled. Signaling an already-signaled event is
// a no-op; the state stays latched until the waiter clears it. Signals to
// a closed event are dropped.
func (e *Event) Signal() {
	if e.closed {
		return
	}
	e.signaled = true
}

// Clear re-arms the event.
func (e *Event) Clear() {
	e.signaled = false
}

// Signaled reports whether the event is currently signaled.
func (e *Event) Signaled() bool {
	return e.signaled
}

// Readable returns the guest-facing view of the event. The same view is
// valid for the lifetime of the event.
func (e *Event) Readable() *ReadableEvent {
	return &ReadableEvent{event: e}
}

// ReadableEvent is the waitable side of an Event handed to the guest. The
// guest polls Signaled and clears the event to re-arm its wait.
type ReadableEvent struct {
	event *Event
}

// Signaled reports whether the underlying event is signaled.
func (r *ReadableEvent) Signaled() bool {
	return r.event.Signaled()
}

// Clear re-arms the underlying event.
func (r *ReadableEvent) Clear() {
	r.event.Clear()
}

// Context is the shared kernel-object factory events are created from. It
// owns the lifetime of every event it creates.
type Context struct {
	name   string
	events map[string]*Event
}

// NewContext returns an empty event factory with the given owner name.
func NewContext(name string) *Context {
	return &Context{
		name:   name,
		events: make(map[string]*Event),
	}
}

// CreateEvent creates a named event. The event stays valid until it is
// closed or the context is closed.
func (c *Context) CreateEvent(name string) (*Event, error) {
	if name == "" {
		return nil, fmt.Errorf("kevent: event name is empty")
	}
	if _, exists := c.events[name]; exists {
		return nil, fmt.Errorf("kevent: event %q already exists", name)
	}
	ev := &Event{name: name}
	c.events[name] = ev
	return ev, nil
}

// CloseEvent invalidates an event created by this context.
func (c *Context) CloseEvent(ev *Event) error {
	if ev == nil {
		return fmt.Errorf("kevent: event is nil")
	}
	owned, ok := c.events[ev.name]
	if !ok || owned != ev {
		return fmt.Errorf("kevent: event %q not owned by context %q", ev.name, c.name)
	}
	ev.closed = true
	ev.signaled = false
	delete(c.events, ev.name)
	return nil
}

// Close invalidates every event created by this context.
func (c *Context) Close() {
	for name, ev := range c.events {
		ev.closed = true
		ev.signaled = false
		delete(c.events, name)
	}
}
