// Package palma emulates the Palma accessory peripheral. The guest
// drives it through a fixed command surface: exactly one operation is
// outstanding at a time, its kind, result and payload live in a single
// operation record, and a one-shot completion event tells the guest the
// record is ready to read. A per-tick publish keeps the guest-polled
// shared memory view of the record current.
package palma

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/zeebo/blake3"

	"github.com/nxemu/hidcore/internal/controller"
	"github.com/nxemu/hidcore/internal/kevent"
	"github.com/nxemu/hidcore/internal/npad"
	"github.com/nxemu/hidcore/internal/result"
	"github.com/nxemu/hidcore/internal/shmem"
)

// Shared memory layout of the published block. The guest polls these
// offsets directly, so they are part of the wire contract.
const (
	SharedMemoryOffset = 0x3C00
	SharedMemorySize   = publishSize

	publishTimestampOffset = 0x00
	publishHandleOffset    = 0x08
	publishOperationOffset = 0x10
	publishFlagsOffset     = 0x158
	publishSize            = 0x160
)

// Published status flag bits.
const (
	flagPaired = 1 << iota
	flagConnectable
	flagBoostMode
	flagStepEnabled
)

const (
	// applicationSectionSize is the writable scratch section the guest
	// reads and writes through the application-section operations.
	applicationSectionSize = 0x100

	// uniqueCodeSize is the length of the accessory's unique code.
	uniqueCodeSize = 16

	eventName = "palma:OperationComplete"
)

// defaultUniqueCodeSeed seeds identity derivation when no seed is
// configured.
var defaultUniqueCodeSeed = []byte("palma-unique-code")

// Options configures a Palma controller. The zero value matches real
// firmware defaults: pairing is closed until the guest opens it with
// SetIsPalmaAllConnectable.
type Options struct {
	AllConnectable  bool
	BoostMode       bool
	DisallowedSlots []npad.IDType
	UniqueCodeSeed  []byte
}

// Controller is the Palma peripheral core.
type Controller struct {
	registry *npad.Registry
	region   shmem.Region
	seed     []byte

	// operationComplete is a non-owning reference; the kernel-object
	// context the controller was built with owns its lifetime.
	operationComplete *kevent.Event

	activeHandle ConnectionHandle
	device       *npad.EmulatedController
	operation    OperationInfo

	paired            bool
	frMode            FrModeType
	databaseIDVersion int32
	suspended         FeatureSet
	stepEnabled       bool
	stepBase          uint64
	uniqueCode        [uniqueCodeSize]byte
	uniqueCodeValid   bool
	btAddress         [6]byte
	appSection        [applicationSectionSize]byte
	playLogCount      uint16

	isConnectable       bool
	isPairedConnectable bool
	boostMode           bool
	disallowed          map[npad.IDType]bool

	defaults Options
	staging  [publishSize]byte
}

// New builds a Palma controller publishing into arena at the fixed shared
// memory offset. The completion event is created from ctx and stays valid
// until the context is closed.
func New(registry *npad.Registry, ctx *kevent.Context, arena *shmem.Arena, opts Options) (*Controller, error) {
	if registry == nil {
		return nil, fmt.Errorf("palma: npad registry is nil")
	}
	if ctx == nil {
		return nil, fmt.Errorf("palma: kernel-object context is nil")
	}
	if arena == nil {
		return nil, fmt.Errorf("palma: shared memory arena is nil")
	}

	region, err := arena.Region(SharedMemoryOffset, SharedMemorySize)
	if err != nil {
		return nil, fmt.Errorf("palma: shared memory window: %w", err)
	}
	ev, err := ctx.CreateEvent(eventName)
	if err != nil {
		return nil, fmt.Errorf("palma: completion event: %w", err)
	}

	if opts.UniqueCodeSeed == nil {
		opts.UniqueCodeSeed = defaultUniqueCodeSeed
	}

	c := &Controller{
		registry:          registry,
		region:            region,
		seed:              opts.UniqueCodeSeed,
		operationComplete: ev,
		defaults:          opts,
	}
	c.reset()
	return c, nil
}

// Init implements controller.Controller. It restores the configured
// defaults after a controller attach.
func (c *Controller) Init() error {
	c.reset()
	return nil
}

// Release implements controller.Controller. The completion event stays
// owned by the kernel-object context and is not closed here.
func (c *Controller) Release() error {
	c.reset()
	return nil
}

func (c *Controller) reset() {
	c.activeHandle = ConnectionHandle{NpadID: npad.Invalid}
	c.device = nil
	c.operation = OperationInfo{}
	c.paired = false
	c.frMode = FrModeOff
	c.databaseIDVersion = 0
	c.suspended = 0
	c.stepEnabled = false
	c.stepBase = 0
	c.uniqueCode = [uniqueCodeSize]byte{}
	c.uniqueCodeValid = false
	c.btAddress = [6]byte{}
	c.appSection = [applicationSectionSize]byte{}
	c.playLogCount = 0
	c.isConnectable = c.defaults.AllConnectable
	c.isPairedConnectable = false
	c.boostMode = c.defaults.BoostMode
	c.disallowed = make(map[npad.IDType]bool, len(c.defaults.DisallowedSlots))
	for _, id := range c.defaults.DisallowedSlots {
		c.disallowed[id] = true
	}
	c.operationComplete.Clear()
}

// Tick implements controller.Controller. It republishes the current
// state into the guest-polled shared memory window and changes nothing
// else.
func (c *Controller) Tick(t controller.Time) error {
	buf := &c.staging
	binary.LittleEndian.PutUint64(buf[publishTimestampOffset:], t.Ticks)
	binary.LittleEndian.PutUint32(buf[publishHandleOffset:], uint32(c.activeHandle.NpadID))
	binary.LittleEndian.PutUint32(buf[publishHandleOffset+4:], 0)
	binary.LittleEndian.PutUint32(buf[publishOperationOffset:], uint32(c.operation.Operation))
	binary.LittleEndian.PutUint32(buf[publishOperationOffset+4:], uint32(c.operation.Result))
	copy(buf[publishOperationOffset+8:], c.operation.Data[:])
	buf[publishFlagsOffset] = c.statusFlags()
	return c.region.Write(0, buf[:])
}

func (c *Controller) statusFlags() byte {
	var flags byte
	if c.paired {
		flags |= flagPaired
	}
	if c.isConnectable {
		flags |= flagConnectable
	}
	if c.boostMode {
		flags |= flagBoostMode
	}
	if c.stepEnabled {
		flags |= flagStepEnabled
	}
	return flags
}

// GetPalmaConnectionHandle returns a handle bound to the slot. The slot
// must have a connected device behind it.
func (c *Controller) GetPalmaConnectionHandle(id npad.IDType) (ConnectionHandle, result.Code) {
	if !id.Valid() {
		return ConnectionHandle{NpadID: npad.Invalid}, result.InvalidNpadID
	}
	dev, ok := c.registry.Controller(id)
	if !ok || !dev.Connected() {
		return ConnectionHandle{NpadID: npad.Invalid}, result.InvalidNpadID
	}
	return ConnectionHandle{NpadID: id}, result.Success
}

// InitializePalma records the handle as active and resets the operation
// record to its idle default.
func (c *Controller) InitializePalma(handle ConnectionHandle) result.Code {
	dev, rc := c.lookupDevice(handle)
	if rc.Failed() {
		return rc
	}
	c.activeHandle = handle
	c.device = dev
	c.operation = OperationInfo{}
	c.deriveIdentity()
	return result.Success
}

// PairPalma marks the accessory paired without touching operation state.
// Pairing is gated by the all-connectable flag and the disallowed
// connection list.
func (c *Controller) PairPalma(handle ConnectionHandle) result.Code {
	dev, rc := c.lookupDevice(handle)
	if rc.Failed() {
		return rc
	}
	if !c.isConnectable || c.disallowed[handle.NpadID] {
		return result.InvalidPalmaHandle
	}
	c.activeHandle = handle
	c.device = dev
	c.paired = true
	return result.Success
}

// AcquirePalmaOperationCompleteEvent returns the completion event the
// guest waits on. The same underlying event is returned every time; a
// stale handle is logged but does not produce a distinct event.
func (c *Controller) AcquirePalmaOperationCompleteEvent(handle ConnectionHandle) *kevent.ReadableEvent {
	if handle != c.activeHandle {
		slog.Error("palma: operation complete event acquired with stale handle",
			"handle", handle.NpadID, "active", c.activeHandle.NpadID)
	}
	return c.operationComplete.Readable()
}

// GetPalmaOperationInfo returns a snapshot of the operation record. The
// returned code is the recorded operation result.
func (c *Controller) GetPalmaOperationInfo(handle ConnectionHandle) (OperationInfo, result.Code) {
	if rc := c.checkHandle(handle); rc.Failed() {
		return OperationInfo{}, rc
	}
	return c.operation, c.operation.Result
}

// GetPalmaOperationResult returns the recorded result of the last
// accepted command.
func (c *Controller) GetPalmaOperationResult(handle ConnectionHandle) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	return c.operation.Result
}

// PlayPalmaActivity plays the activity with the given index.
func (c *Controller) PlayPalmaActivity(handle ConnectionHandle, activity uint64) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	return c.complete(OpPlayActivity, func(data *OperationData) result.Code {
		binary.LittleEndian.PutUint64(data[:8], activity)
		return result.Success
	})
}

// SetPalmaFrModeType sets the FR mode. The mode takes effect immediately
// and has no completion semantics.
func (c *Controller) SetPalmaFrModeType(handle ConnectionHandle, mode FrModeType) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	if mode > FrModeDownloaded {
		return result.InvalidParameters
	}
	c.frMode = mode
	return result.Success
}

// FrMode returns the current FR mode.
func (c *Controller) FrMode() FrModeType {
	return c.frMode
}

// ReadPalmaStep reads the accessory's step count since the last reset.
func (c *Controller) ReadPalmaStep(handle ConnectionHandle) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	return c.complete(OpReadStep, func(data *OperationData) result.Code {
		if c.suspended.Has(FeatureStep) {
			return result.NotSupported
		}
		var steps uint64
		if c.stepEnabled && c.device.Steps() >= c.stepBase {
			steps = c.device.Steps() - c.stepBase
		}
		binary.LittleEndian.PutUint64(data[:8], steps)
		return result.Success
	})
}

// EnablePalmaStep enables or disables step counting.
func (c *Controller) EnablePalmaStep(handle ConnectionHandle, enabled bool) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	return c.complete(OpEnableStep, func(data *OperationData) result.Code {
		if c.suspended.Has(FeatureStep) {
			return result.NotSupported
		}
		c.stepEnabled = enabled
		return result.Success
	})
}

// ResetPalmaStep rebases the step count to zero.
func (c *Controller) ResetPalmaStep(handle ConnectionHandle) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	return c.complete(OpResetStep, func(data *OperationData) result.Code {
		if c.suspended.Has(FeatureStep) {
			return result.NotSupported
		}
		c.stepBase = c.device.Steps()
		return result.Success
	})
}

// ReadPalmaUniqueCode reads the accessory's unique code into the
// operation payload.
func (c *Controller) ReadPalmaUniqueCode(handle ConnectionHandle) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	return c.complete(OpReadUniqueCode, func(data *OperationData) result.Code {
		if !c.uniqueCodeValid {
			return result.NotSupported
		}
		copy(data[:uniqueCodeSize], c.uniqueCode[:])
		return result.Success
	})
}

// SetPalmaUniqueCodeInvalid invalidates the accessory's unique code.
func (c *Controller) SetPalmaUniqueCodeInvalid(handle ConnectionHandle) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	return c.complete(OpSetUniqueCodeInvalid, func(data *OperationData) result.Code {
		c.uniqueCodeValid = false
		return result.Success
	})
}

// WritePalmaRgbLedPatternEntry stores an RGB LED pattern entry. The
// pattern payload is opaque to the core.
func (c *Controller) WritePalmaRgbLedPatternEntry(handle ConnectionHandle, index uint64) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	return c.complete(OpWriteRgbLedPatternEntry, func(data *OperationData) result.Code {
		binary.LittleEndian.PutUint64(data[:8], index)
		return result.Success
	})
}

// WritePalmaWaveEntry transfers a wave entry from tmem. size bytes are
// consumed; a nil region or a size of zero or beyond the region is
// rejected before the operation record changes.
func (c *Controller) WritePalmaWaveEntry(handle ConnectionHandle, wave WaveSet, tmem []byte, size uint64) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	if wave > WaveSetLarge {
		return result.InvalidParameters
	}
	if tmem == nil || size == 0 || size > uint64(len(tmem)) {
		return result.InvalidParameters
	}
	return c.complete(OpWriteWaveEntry, func(data *OperationData) result.Code {
		n := size
		if n > OperationDataSize {
			n = OperationDataSize
		}
		copy(data[:n], tmem[:n])
		return result.Success
	})
}

// CancelWritePalmaWaveEntry is accepted for protocol compatibility. Wave
// transfers complete synchronously here, so there is never anything in
// flight to cancel.
func (c *Controller) CancelWritePalmaWaveEntry(handle ConnectionHandle) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	slog.Debug("palma: cancel wave entry write ignored, transfers complete synchronously")
	return result.Success
}

// SetPalmaDataBaseIdentificationVersion sets the database id version and
// records the write operation.
func (c *Controller) SetPalmaDataBaseIdentificationVersion(handle ConnectionHandle, version int32) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	c.databaseIDVersion = version
	return c.complete(OpWriteDataBaseIdentificationVersion, func(data *OperationData) result.Code {
		data[0] = byte(version)
		return result.Success
	})
}

// GetPalmaDataBaseIdentificationVersion reads the database id version
// into the operation payload.
func (c *Controller) GetPalmaDataBaseIdentificationVersion(handle ConnectionHandle) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	return c.complete(OpReadDataBaseIdentificationVersion, func(data *OperationData) result.Code {
		data[0] = byte(c.databaseIDVersion)
		return result.Success
	})
}

// ReadPalmaApplicationSection reads size bytes of the application section
// at the given offset into the operation payload.
func (c *Controller) ReadPalmaApplicationSection(handle ConnectionHandle, offset, size uint64) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	if size == 0 || size > OperationDataSize || offset >= applicationSectionSize || size > applicationSectionSize-offset {
		return result.InvalidParameters
	}
	return c.complete(OpReadApplicationSection, func(data *OperationData) result.Code {
		copy(data[:size], c.appSection[offset:offset+size])
		return result.Success
	})
}

// WritePalmaApplicationSection writes buf into the application section at
// the given offset.
func (c *Controller) WritePalmaApplicationSection(handle ConnectionHandle, offset uint64, buf []byte) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	size := uint64(len(buf))
	if size == 0 || size > OperationDataSize || offset >= applicationSectionSize || size > applicationSectionSize-offset {
		return result.InvalidParameters
	}
	return c.complete(OpWriteApplicationSection, func(data *OperationData) result.Code {
		copy(c.appSection[offset:], buf)
		copy(data[:size], buf)
		return result.Success
	})
}

// WritePalmaActivityEntry stores an activity entry.
func (c *Controller) WritePalmaActivityEntry(handle ConnectionHandle, entry ActivityEntry) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	if entry.WaveSet > WaveSetLarge {
		return result.InvalidParameters
	}
	return c.complete(OpWriteActivityEntry, func(data *OperationData) result.Code {
		binary.LittleEndian.PutUint32(data[0:], entry.RgbLedPatternIndex)
		binary.LittleEndian.PutUint64(data[8:], uint64(entry.WaveSet))
		binary.LittleEndian.PutUint32(data[16:], entry.WaveIndex)
		return result.Success
	})
}

// SuspendPalmaFeature suspends the named features. Suspended features
// report NotSupported until the controller is reinitialized.
func (c *Controller) SuspendPalmaFeature(handle ConnectionHandle, features FeatureSet) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	if !features.Valid() {
		return result.InvalidParameters
	}
	return c.complete(OpSuspendFeature, func(data *OperationData) result.Code {
		c.suspended |= features
		return result.Success
	})
}

// ReadPalmaPlayLog reads the play log entry count into the operation
// payload. The log body is opaque to the core.
func (c *Controller) ReadPalmaPlayLog(handle ConnectionHandle) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	return c.complete(OpReadPlayLog, func(data *OperationData) result.Code {
		binary.LittleEndian.PutUint16(data[:2], c.playLogCount)
		return result.Success
	})
}

// ResetPalmaPlayLog clears the play log.
func (c *Controller) ResetPalmaPlayLog(handle ConnectionHandle) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	return c.complete(OpResetPlayLog, func(data *OperationData) result.Code {
		c.playLogCount = 0
		return result.Success
	})
}

// GetPalmaBluetoothAddress returns the accessory's Bluetooth address.
func (c *Controller) GetPalmaBluetoothAddress(handle ConnectionHandle) ([6]byte, result.Code) {
	if rc := c.checkHandle(handle); rc.Failed() {
		return [6]byte{}, rc
	}
	return c.btAddress, result.Success
}

// SetIsPalmaAllConnectable opens or closes pairing for all slots.
func (c *Controller) SetIsPalmaAllConnectable(connectable bool) {
	c.isConnectable = connectable
}

// SetIsPalmaPairedConnectable restricts reconnection to the already
// paired accessory.
func (c *Controller) SetIsPalmaPairedConnectable(connectable bool) {
	c.isPairedConnectable = connectable
}

// SetDisallowedPalmaConnection replaces the disallowed connection list.
func (c *Controller) SetDisallowedPalmaConnection(slots []npad.IDType) {
	c.disallowed = make(map[npad.IDType]bool, len(slots))
	for _, id := range slots {
		c.disallowed[id] = true
	}
}

// SetPalmaBoostMode sets the boost mode flag.
func (c *Controller) SetPalmaBoostMode(boost bool) {
	c.boostMode = boost
}

// EnablePalmaBoostMode sets the boost mode flag on behalf of the paired
// accessory.
func (c *Controller) EnablePalmaBoostMode(handle ConnectionHandle, boost bool) result.Code {
	if rc := c.checkHandle(handle); rc.Failed() {
		return rc
	}
	c.boostMode = boost
	return result.Success
}

// checkHandle validates a handle against the currently active one. With
// no accessory active every handle fails.
func (c *Controller) checkHandle(handle ConnectionHandle) result.Code {
	if c.activeHandle.NpadID == npad.Invalid || handle != c.activeHandle {
		return result.InvalidPalmaHandle
	}
	return result.Success
}

// lookupDevice validates that the handle's slot has a connected device
// behind it.
func (c *Controller) lookupDevice(handle ConnectionHandle) (*npad.EmulatedController, result.Code) {
	if !handle.NpadID.Valid() {
		return nil, result.InvalidPalmaHandle
	}
	dev, ok := c.registry.Controller(handle.NpadID)
	if !ok || !dev.Connected() {
		return nil, result.InvalidPalmaHandle
	}
	return dev, result.Success
}

// complete runs one accepted command: the operation record is
// overwritten with the new kind and a cleared payload, the side effect
// runs, the outcome is recorded, and the completion event is signaled
// exactly once.
func (c *Controller) complete(kind OperationKind, op func(data *OperationData) result.Code) result.Code {
	c.operation.Operation = kind
	c.operation.Data = OperationData{}
	c.operation.Result = op(&c.operation.Data)
	c.operationComplete.Signal()
	return c.operation.Result
}

// deriveIdentity derives the accessory's unique code and Bluetooth
// address from the configured seed and the active slot. The same slot
// always yields the same identity.
func (c *Controller) deriveIdentity() {
	h := blake3.New()
	h.Write(c.seed)
	var id [4]byte
	binary.LittleEndian.PutUint32(id[:], uint32(c.activeHandle.NpadID))
	h.Write(id[:])
	sum := h.Sum(nil)
	copy(c.uniqueCode[:], sum[:uniqueCodeSize])
	copy(c.btAddress[:], sum[uniqueCodeSize:uniqueCodeSize+6])
	c.uniqueCodeValid = true
}

var _ controller.Controller = (*Controller)(nil)
