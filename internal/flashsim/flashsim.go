// Package flashsim implements an in-memory fake of the device.Device
// contract, standing in for the real NOR-flash driver so the allocator
// can be exercised under `go test`: a swappable, test-only implementation
// of an interface the production code is built against.
package flashsim

import (
	"fmt"

	"example.com/flashfeature/internal/config"
)

// FlashSim is a byte-slice-backed Device. Erasing sets bytes to 0xFF;
// programming ANDs the new bits into whatever was there (mirroring real
// NOR flash, which can only flip 1-bits to 0). Reads are rejected unless
// the device is in memory-mapped mode; erase/program are rejected unless
// it is in programming mode, enforcing the mode discipline even in the
// test double.
type FlashSim struct {
	cfg   config.Config
	bytes []byte

	mappedMode bool

	// Injected failures for crash-safety tests: EraseFailAt and
	// ProgramFailAt, if non-zero, fail the Nth call to the respective
	// operation (1-indexed) and every call after it.
	EraseFailAt   int
	ProgramFailAt int
	eraseCalls    int
	programCalls  int
}

// New returns a FlashSim sized to cfg.FlashSize, starting in memory-mapped
// mode with every byte at the flash-erased value 0xFF.
func New(cfg config.Config) *FlashSim {
	buf := make([]byte, cfg.FlashSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	return &FlashSim{cfg: cfg, bytes: buf, mappedMode: true}
}

func (f *FlashSim) PageSize() uint32      { return f.cfg.PageSize }
func (f *FlashSim) SubsectorSize() uint32 { return f.cfg.SubsectorSize }
func (f *FlashSim) KFStart() uint32       { return f.cfg.KFStart }
func (f *FlashSim) KFEnd() uint32         { return f.cfg.KFEnd }

func (f *FlashSim) PageBase(addr uint32) uint32 {
	return (addr / f.cfg.PageSize) * f.cfg.PageSize
}

func (f *FlashSim) SubsectorBase(addr uint32) uint32 {
	return (addr / f.cfg.SubsectorSize) * f.cfg.SubsectorSize
}

func (f *FlashSim) Startup() error { return nil }

func (f *FlashSim) EraseSubsector(addr uint32) error {
	if f.mappedMode {
		return fmt.Errorf("flashsim: EraseSubsector called while memory-mapped")
	}
	f.eraseCalls++
	if f.EraseFailAt != 0 && f.eraseCalls >= f.EraseFailAt {
		return fmt.Errorf("flashsim: injected erase failure at call %d", f.eraseCalls)
	}
	base := f.SubsectorBase(addr)
	for i := uint32(0); i < f.cfg.SubsectorSize; i++ {
		f.bytes[base+i] = 0xFF
	}
	return nil
}

func (f *FlashSim) PageWrite(addr uint32, data []byte) error {
	if f.mappedMode {
		return fmt.Errorf("flashsim: PageWrite called while memory-mapped")
	}
	if uint32(len(data)) > f.cfg.PageSize {
		return fmt.Errorf("flashsim: PageWrite of %d bytes exceeds page size %d", len(data), f.cfg.PageSize)
	}
	if addr != f.PageBase(addr) {
		return fmt.Errorf("flashsim: PageWrite address 0x%x is not page-aligned", addr)
	}
	f.programCalls++
	if f.ProgramFailAt != 0 && f.programCalls >= f.ProgramFailAt {
		return fmt.Errorf("flashsim: injected program failure at call %d", f.programCalls)
	}
	for i, b := range data {
		// Real NOR flash can only clear bits during a program, never set
		// them; programming over non-erased bytes ANDs in the new pattern.
		f.bytes[addr+uint32(i)] &= b
	}
	return nil
}

func (f *FlashSim) EnableMemoryMappedMode() error {
	f.mappedMode = true
	return nil
}

func (f *FlashSim) DisableMemoryMappedMode() error {
	f.mappedMode = false
	return nil
}

func (f *FlashSim) ReadAt(addr uint32, buf []byte) error {
	if !f.mappedMode {
		return fmt.Errorf("flashsim: ReadAt called while not memory-mapped")
	}
	if addr+uint32(len(buf)) > uint32(len(f.bytes)) {
		return fmt.Errorf("flashsim: ReadAt out of range: addr=0x%x len=%d", addr, len(buf))
	}
	copy(buf, f.bytes[addr:addr+uint32(len(buf))])
	return nil
}

// RawBytes exposes the backing buffer directly for test assertions (e.g.
// checking that bytes outside a copy_to_rom range were preserved).
// Production code never uses this; only _test.go files do.
func (f *FlashSim) RawBytes() []byte { return f.bytes }

// IsMemoryMapped reports the current mode, for tests asserting that every
// public operation leaves the device memory-mapped on return.
func (f *FlashSim) IsMemoryMapped() bool { return f.mappedMode }
