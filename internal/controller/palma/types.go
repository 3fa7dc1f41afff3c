package palma

import (
	"fmt"

	"github.com/nxemu/hidcore/internal/npad"
	"github.com/nxemu/hidcore/internal/result"
)

// OperationKind identifies the command tracked by the operation record.
// The values and their order are part of the guest ABI.
type OperationKind uint32

const (
	OpPlayActivity OperationKind = iota
	OpSetFrModeType
	OpReadStep
	OpEnableStep
	OpResetStep
	OpReadApplicationSection
	OpWriteApplicationSection
	OpReadUniqueCode
	OpSetUniqueCodeInvalid
	OpWriteActivityEntry
	OpWriteRgbLedPatternEntry
	OpWriteWaveEntry
	OpReadDataBaseIdentificationVersion
	OpWriteDataBaseIdentificationVersion
	OpSuspendFeature
	OpReadPlayLog
	OpResetPlayLog
)

func (k OperationKind) String() string {
	switch k {
	case OpPlayActivity:
		return "PlayActivity"
	case OpSetFrModeType:
		return "SetFrModeType"
	case OpReadStep:
		return "ReadStep"
	case OpEnableStep:
		return "EnableStep"
	case OpResetStep:
		return "ResetStep"
	case OpReadApplicationSection:
		return "ReadApplicationSection"
	case OpWriteApplicationSection:
		return "WriteApplicationSection"
	case OpReadUniqueCode:
		return "ReadUniqueCode"
	case OpSetUniqueCodeInvalid:
		return "SetUniqueCodeInvalid"
	case OpWriteActivityEntry:
		return "WriteActivityEntry"
	case OpWriteRgbLedPatternEntry:
		return "WriteRgbLedPatternEntry"
	case OpWriteWaveEntry:
		return "WriteWaveEntry"
	case OpReadDataBaseIdentificationVersion:
		return "ReadDataBaseIdentificationVersion"
	case OpWriteDataBaseIdentificationVersion:
		return "WriteDataBaseIdentificationVersion"
	case OpSuspendFeature:
		return "SuspendFeature"
	case OpReadPlayLog:
		return "ReadPlayLog"
	case OpResetPlayLog:
		return "ResetPlayLog"
	default:
		return fmt.Sprintf("OperationKind(%d)", uint32(k))
	}
}

// WaveSet selects one of the vibration wave banks. Stored as a 64-bit
// value for ABI compatibility with the guest.
type WaveSet uint64

const (
	WaveSetSmall WaveSet = iota
	WaveSetMedium
	WaveSetLarge
)

// FrModeType selects the accessory's FR mode.
type FrModeType uint64

const (
	FrModeOff FrModeType = iota
	FrModeB01
	FrModeB02
	FrModeB03
	FrModeDownloaded
)

// Feature identifies one suspendable accessory feature.
type Feature uint64

const (
	FeatureFrMode Feature = iota
	FeatureRumbleFeedback
	FeatureStep
	FeatureMuteSwitch
	featureCount
)

// FeatureSet is a bitmask of suspendable features.
type FeatureSet uint64

// Has reports whether the set contains the feature.
func (s FeatureSet) Has(f Feature) bool {
	return s&(1<<f) != 0
}

// Add returns the set with the feature included.
func (s FeatureSet) Add(f Feature) FeatureSet {
	return s | 1<<f
}

// Valid reports whether the set only names known features.
func (s FeatureSet) Valid() bool {
	return s>>featureCount == 0
}

// OperationDataSize is the fixed size of the operation payload buffer.
const OperationDataSize = 0x140

// OperationData is the opaque payload carried by an operation. Its
// interpretation varies per OperationKind and is owned by the guest.
type OperationData [OperationDataSize]byte

// OperationInfo is the guest-visible record of the single in-flight (or
// most recently completed) operation. The guest reads it back as a flat
// 0x148-byte block, so the layout is fixed.
type OperationInfo struct {
	Operation OperationKind
	Result    result.Code
	Data      OperationData
}

// ActivityEntry describes one playable activity: an LED pattern plus a
// wave selection. Fixed 0x20-byte layout.
type ActivityEntry struct {
	RgbLedPatternIndex uint32
	_                  [4]byte
	WaveSet            WaveSet
	WaveIndex          uint32
	_                  [12]byte
}

// ConnectionHandle binds a controller slot to a paired accessory. Fixed
// 8-byte layout, compared by value against the active handle.
type ConnectionHandle struct {
	NpadID npad.IDType
	_      [4]byte
}
