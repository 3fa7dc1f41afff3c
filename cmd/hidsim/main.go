// Command hidsim drives a scripted Palma session against the HID core
// and dumps the guest-visible state it produces. It is a debugging aid
// for inspecting the published shared memory block and the completion
// event behavior without a full emulator around the core.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/nxemu/hidcore"
	"github.com/nxemu/hidcore/internal/controller/palma"
	"github.com/nxemu/hidcore/internal/npad"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	configPath := fs.String("config", "", "YAML configuration file")
	slot := fs.Uint("slot", 0, "Controller slot to pair the accessory against")
	activity := fs.Uint64("activity", 42, "Activity index to play")
	ticks := fs.Uint("ticks", 4, "Update cycles to run after the session")
	verbose := fs.Bool("v", false, "Enable debug logging")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if err := run(*configPath, npad.IDType(*slot), *activity, *ticks); err != nil {
		fmt.Fprintf(os.Stderr, "hidsim: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, slot npad.IDType, activity uint64, ticks uint) error {
	cfg := hidcore.DefaultConfig()
	if configPath != "" {
		loaded, err := hidcore.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if len(cfg.ConnectedSlots) == 0 {
		cfg.ConnectedSlots = []uint32{uint32(slot)}
	}

	sys, err := hidcore.NewSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	if err := sys.Start(); err != nil {
		return err
	}

	pal := sys.Palma()
	handle, rc := pal.GetPalmaConnectionHandle(slot)
	if rc.Failed() {
		return fmt.Errorf("get connection handle for %v: %v", slot, rc)
	}
	slog.Info("acquired connection handle", "slot", slot)

	if rc := pal.PairPalma(handle); rc.Failed() {
		return fmt.Errorf("pair: %v", rc)
	}
	if rc := pal.InitializePalma(handle); rc.Failed() {
		return fmt.Errorf("initialize: %v", rc)
	}
	slog.Info("accessory paired and initialized")

	event := pal.AcquirePalmaOperationCompleteEvent(handle)

	if rc := pal.PlayPalmaActivity(handle, activity); rc.Failed() {
		return fmt.Errorf("play activity %d: %v", activity, rc)
	}
	info, rc := pal.GetPalmaOperationInfo(handle)
	if rc.Failed() {
		return fmt.Errorf("operation info: %v", rc)
	}
	slog.Info("operation completed",
		"kind", info.Operation,
		"result", info.Result,
		"signaled", event.Signaled())
	event.Clear()

	if rc := pal.ReadPalmaUniqueCode(handle); rc.Failed() {
		return fmt.Errorf("read unique code: %v", rc)
	}
	info, _ = pal.GetPalmaOperationInfo(handle)
	slog.Info("unique code", "code", fmt.Sprintf("%x", info.Data[:16]))
	event.Clear()

	for i := uint(0); i < ticks; i++ {
		if err := sys.Tick(); err != nil {
			return err
		}
	}

	block := make([]byte, palma.SharedMemorySize)
	if err := sys.SharedMemory().ReadAt(palma.SharedMemoryOffset, block); err != nil {
		return err
	}
	fmt.Printf("published block after %d ticks (first 0x20 bytes):\n", sys.Ticks())
	for off := 0; off < 0x20; off += 8 {
		fmt.Printf("  +0x%02x: %x\n", off, block[off:off+8])
	}
	return nil
}
