// Package hidcore wires the emulated HID peripheral controllers into a
// single service instance: the kernel-object context events come from,
// the shared memory arena the guest polls, the input-device registry,
// and the controller set the per-tick scheduler drives.
package hidcore

import (
	"fmt"
	"time"

	"github.com/nxemu/hidcore/internal/controller"
	"github.com/nxemu/hidcore/internal/controller/palma"
	"github.com/nxemu/hidcore/internal/kevent"
	"github.com/nxemu/hidcore/internal/npad"
	"github.com/nxemu/hidcore/internal/shmem"
)

// System owns one instance of the HID service's peripheral state.
type System struct {
	cfg      Config
	ctx      *kevent.Context
	arena    *shmem.Arena
	registry *npad.Registry
	set      *controller.Set
	palma    *palma.Controller

	started bool
	ticks   uint64
	epoch   time.Time
}

// NewSystem builds a system from the given configuration.
func NewSystem(cfg Config) (*System, error) {
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("hidcore: config: %w", err)
	}

	arena, err := shmem.New(cfg.SharedMemorySize)
	if err != nil {
		return nil, fmt.Errorf("hidcore: shared memory: %w", err)
	}
	ctx := kevent.NewContext("hid")
	registry := npad.NewRegistry()

	for _, slot := range cfg.ConnectedSlots {
		dev, ok := registry.Controller(npad.IDType(slot))
		if !ok {
			return nil, fmt.Errorf("hidcore: no input device for slot 0x%x", slot)
		}
		dev.Connect()
	}

	pal, err := palma.New(registry, ctx, arena, palma.Options{
		AllConnectable:  cfg.Palma.allConnectable(),
		BoostMode:       cfg.Palma.BoostMode,
		DisallowedSlots: cfg.Palma.disallowedSlots(),
		UniqueCodeSeed:  cfg.Palma.uniqueCodeSeed(),
	})
	if err != nil {
		return nil, err
	}

	set := controller.NewSet()
	if err := set.Register("palma", pal); err != nil {
		return nil, fmt.Errorf("hidcore: %w", err)
	}

	return &System{
		cfg:      cfg,
		ctx:      ctx,
		arena:    arena,
		registry: registry,
		set:      set,
		palma:    pal,
	}, nil
}

// Start initializes all peripheral controllers.
func (s *System) Start() error {
	if s.started {
		return fmt.Errorf("hidcore: system already started")
	}
	if err := s.set.Init(); err != nil {
		return err
	}
	s.started = true
	s.ticks = 0
	s.epoch = time.Now()
	return nil
}

// Tick runs one update cycle: every controller republishes its
// guest-visible state into the shared memory arena.
func (s *System) Tick() error {
	if !s.started {
		return fmt.Errorf("hidcore: system not started")
	}
	s.ticks++
	return s.set.Tick(controller.Time{
		Ticks: s.ticks,
		Now:   time.Since(s.epoch),
	})
}

// Close releases all controllers and invalidates every kernel object the
// system created.
func (s *System) Close() error {
	var err error
	if s.started {
		err = s.set.Release()
		s.started = false
	}
	s.ctx.Close()
	return err
}

// Palma returns the Palma peripheral controller.
func (s *System) Palma() *palma.Controller {
	return s.palma
}

// Registry returns the input-device registry.
func (s *System) Registry() *npad.Registry {
	return s.registry
}

// SharedMemory returns the arena the guest polls.
func (s *System) SharedMemory() *shmem.Arena {
	return s.arena
}

// Ticks returns the number of update cycles run since Start.
func (s *System) Ticks() uint64 {
	return s.ticks
}
