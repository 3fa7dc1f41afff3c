package hidcore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nxemu/hidcore/internal/controller/palma"
	"github.com/nxemu/hidcore/internal/npad"
)

// DefaultSharedMemorySize is the size of the guest-polled shared memory
// block when the configuration does not override it.
const DefaultSharedMemorySize = 0x40000

// Config describes one HID service instance.
type Config struct {
	// SharedMemorySize is the size of the guest-polled arena in bytes.
	SharedMemorySize uint64 `yaml:"sharedMemorySize,omitempty"`

	// ConnectedSlots lists the controller slots with an input device
	// attached at startup.
	ConnectedSlots []uint32 `yaml:"connectedSlots,omitempty"`

	Palma PalmaConfig `yaml:"palma"`
}

// PalmaConfig carries the Palma peripheral defaults.
type PalmaConfig struct {
	// AllConnectable opens pairing for all slots. Defaults to true when
	// omitted; real firmware boots closed, but an emulated session has
	// no pairing ceremony to open it.
	AllConnectable *bool `yaml:"allConnectable,omitempty"`

	BoostMode bool `yaml:"boostMode,omitempty"`

	// DisallowedSlots lists slots pairing must reject.
	DisallowedSlots []uint32 `yaml:"disallowedSlots,omitempty"`

	// UniqueCodeSeed seeds the accessory's derived identity.
	UniqueCodeSeed string `yaml:"uniqueCodeSeed,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.normalize()
	return cfg
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("hidcore: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("hidcore: parse config %q: %w", path, err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("hidcore: config %q: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if c.SharedMemorySize == 0 {
		c.SharedMemorySize = DefaultSharedMemorySize
	}
	if c.Palma.AllConnectable == nil {
		t := true
		c.Palma.AllConnectable = &t
	}
}

func (c *Config) validate() error {
	if c.SharedMemorySize < palma.SharedMemoryOffset+palma.SharedMemorySize {
		return fmt.Errorf("shared memory size 0x%x below palma window end 0x%x",
			c.SharedMemorySize, palma.SharedMemoryOffset+palma.SharedMemorySize)
	}
	for _, slot := range c.ConnectedSlots {
		if !npad.IDType(slot).Valid() {
			return fmt.Errorf("connected slot 0x%x is not a valid npad id", slot)
		}
	}
	for _, slot := range c.Palma.DisallowedSlots {
		if !npad.IDType(slot).Valid() {
			return fmt.Errorf("disallowed slot 0x%x is not a valid npad id", slot)
		}
	}
	return nil
}

func (p PalmaConfig) allConnectable() bool {
	return p.AllConnectable == nil || *p.AllConnectable
}

func (p PalmaConfig) disallowedSlots() []npad.IDType {
	if len(p.DisallowedSlots) == 0 {
		return nil
	}
	slots := make([]npad.IDType, len(p.DisallowedSlots))
	for i, slot := range p.DisallowedSlots {
		slots[i] = npad.IDType(slot)
	}
	return slots
}

func (p PalmaConfig) uniqueCodeSeed() []byte {
	if p.UniqueCodeSeed == "" {
		return nil
	}
	return []byte(p.UniqueCodeSeed)
}
