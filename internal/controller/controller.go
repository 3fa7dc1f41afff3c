// Package controller provides the lifecycle framework HID peripheral
// controllers plug into. Each peripheral variant implements the
// Controller capability interface and registers with a Set, which fans
// lifecycle calls out in a stable order.
package controller

import (
	"fmt"
	"sort"
	"time"
)

// Time is the monotonic reference the scheduler hands to Tick.
type Time struct {
	// Ticks counts update cycles since the service started.
	Ticks uint64
	// Now is the monotonic time since the service started.
	Now time.Duration
}

// Controller is the capability interface every peripheral variant
// implements.
type Controller interface {
	// Init prepares the controller for use after attach.
	Init() error
	// Release resets the controller to defaults on detach.
	Release() error
	// Tick publishes the controller's guest-visible state. It is called
	// once per update cycle regardless of command activity.
	Tick(t Time) error
}

// Set holds named controllers and dispatches lifecycle calls to them.
type Set struct {
	controllers map[string]Controller
}

// NewSet returns an empty controller set.
func NewSet() *Set {
	return &Set{controllers: make(map[string]Controller)}
}

// Register adds a named controller to the set.
func (s *Set) Register(name string, c Controller) error {
	if name == "" {
		return fmt.Errorf("controller name is empty")
	}
	if c == nil {
		return fmt.Errorf("controller %q is nil", name)
	}
	if _, exists := s.controllers[name]; exists {
		return fmt.Errorf("controller %q already registered", name)
	}
	s.controllers[name] = c
	return nil
}

// Controller looks up a registered controller by name.
func (s *Set) Controller(name string) (Controller, bool) {
	c, ok := s.controllers[name]
	return c, ok
}

// Init initializes all registered controllers.
func (s *Set) Init() error {
	for _, name := range s.names() {
		if err := s.controllers[name].Init(); err != nil {
			return fmt.Errorf("controller: init %q: %w", name, err)
		}
	}
	return nil
}

// Release releases all registered controllers.
func (s *Set) Release() error {
	for _, name := range s.names() {
		if err := s.controllers[name].Release(); err != nil {
			return fmt.Errorf("controller: release %q: %w", name, err)
		}
	}
	return nil
}

// Tick runs one update cycle across all registered controllers.
func (s *Set) Tick(t Time) error {
	for _, name := range s.names() {
		if err := s.controllers[name].Tick(t); err != nil {
			return fmt.Errorf("controller: tick %q: %w", name, err)
		}
	}
	return nil
}

func (s *Set) names() []string {
	names := make([]string, 0, len(s.controllers))
	for name := range s.controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
