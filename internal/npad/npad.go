// Package npad provides the controller-slot identifiers peripheral
// controllers are addressed by, and the registry that maps a slot to its
// backing emulated input device.
package npad

import "fmt"

// IDType identifies a controller slot. The values cross the emulation
// boundary and match the guest ABI.
type IDType uint32

const (
	Player1 IDType = iota
	Player2
	Player3
	Player4
	Player5
	Player6
	Player7
	Player8
	Other    IDType = 0x10
	Handheld IDType = 0x20
	Invalid  IDType = 0xFFFFFFFF
)

// Valid reports whether the id names an addressable slot.
func (id IDType) Valid() bool {
	switch {
	case id <= Player8:
		return true
	case id == Other, id == Handheld:
		return true
	default:
		return false
	}
}

func (id IDType) String() string {
	switch {
	case id <= Player8:
		return fmt.Sprintf("player%d", id+1)
	case id == Other:
		return "other"
	case id == Handheld:
		return "handheld"
	case id == Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("npad(0x%x)", uint32(id))
	}
}

// IDs lists every addressable slot in registry order.
func IDs() []IDType {
	return []IDType{
		Player1, Player2, Player3, Player4,
		Player5, Player6, Player7, Player8,
		Other, Handheld,
	}
}

// EmulatedController is the input-device abstraction behind a slot. It
// carries the real accessory state peripheral controllers sample:
// connection status and the accumulated motion step count.
type EmulatedController struct {
	id        IDType
	connected bool
	steps     uint64
}

// ID returns the slot the device is bound to.
func (c *EmulatedController) ID() IDType {
	return c.id
}

// Connected reports whether a physical device is attached to the slot.
func (c *EmulatedController) Connected() bool {
	return c.connected
}

// Connect marks the device attached.
func (c *EmulatedController) Connect() {
	c.connected = true
}

// Disconnect marks the device detached and drops its sampled state.
func (c *EmulatedController) Disconnect() {
	c.connected = false
	c.steps = 0
}

// Steps returns the accumulated motion step count since attach.
func (c *EmulatedController) Steps() uint64 {
	return c.steps
}

// AddSteps accumulates motion steps reported by the input backend.
func (c *EmulatedController) AddSteps(n uint64) {
	c.steps += n
}

// Registry owns one EmulatedController per addressable slot.
type Registry struct {
	controllers map[IDType]*EmulatedController
}

// NewRegistry creates a registry with a detached device for every slot.
func NewRegistry() *Registry {
	r := &Registry{controllers: make(map[IDType]*EmulatedController)}
	for _, id := range IDs() {
		r.controllers[id] = &EmulatedController{id: id}
	}
	return r
}

// Controller looks up the device bound to a slot.
func (r *Registry) Controller(id IDType) (*EmulatedController, bool) {
	c, ok := r.controllers[id]
	return c, ok
}
