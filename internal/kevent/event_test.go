package kevent

import "testing"

func TestSignalClearRearm(t *testing.T) {
	ctx := NewContext("hid")
	ev, err := ctx.CreateEvent("test:signal")
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	if ev.Signaled() {
		t.Fatalf("new event must start cleared")
	}

	ev.Signal()
	if !ev.Signaled() {
		t.Fatalf("event not signaled after Signal")
	}

	// Signaling again latches, it does not toggle.
	ev.Signal()
	if !ev.Signaled() {
		t.Fatalf("event lost signal after second Signal")
	}

	ev.Clear()
	if ev.Signaled() {
		t.Fatalf("event still signaled after Clear")
	}

	ev.Signal()
	if !ev.Signaled() {
		t.Fatalf("event did not re-arm after Clear")
	}
}

func TestReadableViewSharesState(t *testing.T) {
	ctx := NewContext("hid")
	ev, err := ctx.CreateEvent("test:view")
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	readable := ev.Readable()
	ev.Signal()
	if !readable.Signaled() {
		t.Fatalf("readable view does not observe signal")
	}

	readable.Clear()
	if ev.Signaled() {
		t.Fatalf("clearing the readable view did not clear the event")
	}
}

func TestCreateEventDuplicate(t *testing.T) {
	ctx := NewContext("hid")
	if _, err := ctx.CreateEvent("dup"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := ctx.CreateEvent("dup"); err == nil {
		t.Fatalf("expected duplicate event name to fail")
	}
	if _, err := ctx.CreateEvent(""); err == nil {
		t.Fatalf("expected empty event name to fail")
	}
}

func TestCloseEvent(t *testing.T) {
	ctx := NewContext("hid")
	ev, err := ctx.CreateEvent("test:close")
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	ev.Signal()

	if err := ctx.CloseEvent(ev); err != nil {
		t.Fatalf("close event failed: %v", err)
	}
	if ev.Signaled() {
		t.Fatalf("closed event still signaled")
	}
	if err := ctx.CloseEvent(ev); err == nil {
		t.Fatalf("expected closing twice to fail")
	}

	ev.Signal()
	if ev.Signaled() {
		t.Fatalf("closed event accepted a signal")
	}

	// The name is free for reuse after close.
	if _, err := ctx.CreateEvent("test:close"); err != nil {
		t.Fatalf("recreate after close failed: %v", err)
	}
}

func TestCloseEventForeign(t *testing.T) {
	a := NewContext("a")
	b := NewContext("b")
	ev, err := a.CreateEvent("shared")
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	if err := b.CloseEvent(ev); err == nil {
		t.Fatalf("expected foreign context close to fail")
	}
	if err := b.CloseEvent(nil); err == nil {
		t.Fatalf("expected nil event close to fail")
	}
}

func TestContextClose(t *testing.T) {
	ctx := NewContext("hid")
	ev, err := ctx.CreateEvent("test:ctx")
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	ev.Signal()
	ctx.Close()
	if ev.Signaled() {
		t.Fatalf("context close did not reset event")
	}
	if err := ctx.CloseEvent(ev); err == nil {
		t.Fatalf("expected close after context close to fail")
	}
}
