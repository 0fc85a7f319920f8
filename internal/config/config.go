// Package config holds the compile-time geometry and policy knobs of the
// flash feature allocator. Go has no preprocessor, so compile-time
// configuration is modeled as a plain struct of defaults, optionally
// overridden from the environment at process start.
package config

import (
	"fmt"

	env "github.com/xyproto/env/v2"
)

// Header size in bytes, per the 32-byte fixed layout of SlotHeader.
const HeaderSize = 32

// Status magic values. Any other bit pattern, including the flash-erased
// word, denotes Free — equality is only ever tested against these two
// constants, never against the erased pattern (0xFFFFFFFF).
const (
	DefaultUsedMagic    uint32 = 0x55534544 // "USED"-ish, arbitrary distinct magic
	DefaultRemovedMagic uint32 = 0x52454D56 // "REMV"-ish, arbitrary distinct magic
)

// Config carries the device geometry and allocator policy that the
// original embedded source fixes at compile time.
type Config struct {
	// RAMBase is the base address of the RAM window pool, in the host VM's
	// address space — a wholly separate address space from the flash
	// addresses below.
	RAMBase uint32
	// RAMBufferSize is the size in bytes of the RAM window pool.
	RAMBufferSize uint32
	// RAMAlign is the alignment, in bytes, of each RAM window and of the
	// pool base itself.
	RAMAlign uint32

	// FlashBase and FlashSize describe the whole flash device; KFStart and
	// KFEnd describe the reserved feature region within it.
	FlashBase uint32
	FlashSize uint32

	PageSize      uint32
	SubsectorSize uint32
	KFBlockSize   uint32
	KFStart       uint32
	KFEnd         uint32

	// MaxFeatures is the link-time injected maximum feature count, supplied
	// externally by callers.
	MaxFeatures uint32

	UsedMagic    uint32
	RemovedMagic uint32
}

// Default returns the documented defaults: FlashBase 0, FlashSize equal to
// KFBlockSize, and the reserved region [FlashBase, FlashBase+KFBlockSize).
// KFStart, KFEnd and FlashSize are computed here only; changing FlashBase
// or KFBlockSize on the result does not update them. MaxFeatures and
// RAMBase are left at 0 for the caller to set.
func Default() Config {
	c := Config{
		RAMBufferSize: 102400,
		RAMAlign:      256,
		PageSize:      256,
		SubsectorSize: 4096,
		KFBlockSize:   4 * 1024 * 1024,
		UsedMagic:     DefaultUsedMagic,
		RemovedMagic:  DefaultRemovedMagic,
	}
	c.FlashSize = c.KFBlockSize
	c.KFStart = c.FlashBase
	c.KFEnd = c.FlashBase + c.KFBlockSize
	return c
}

// FromEnv overrides RAMBufferSize, RAMAlign, PageSize, SubsectorSize,
// KFBlockSize and MaxFeatures from the matching FLASHFEATURE_* environment
// variable, when present. No other field is read from the environment, and
// KFStart, KFEnd and FlashSize are not recomputed after an override.
func FromEnv(base Config) Config {
	c := base
	c.RAMBufferSize = uint32(env.Int("FLASHFEATURE_RAM_BUFFER_SIZE", int(c.RAMBufferSize)))
	c.RAMAlign = uint32(env.Int("FLASHFEATURE_RAM_ALIGN", int(c.RAMAlign)))
	c.PageSize = uint32(env.Int("FLASHFEATURE_PAGE_SIZE", int(c.PageSize)))
	c.SubsectorSize = uint32(env.Int("FLASHFEATURE_SUBSECTOR_SIZE", int(c.SubsectorSize)))
	c.KFBlockSize = uint32(env.Int("FLASHFEATURE_KF_BLOCK_SIZE", int(c.KFBlockSize)))
	c.MaxFeatures = uint32(env.Int("FLASHFEATURE_MAX_FEATURES", int(c.MaxFeatures)))
	return c
}

// Validate checks the invariants the rest of the module assumes hold.
func (c Config) Validate() error {
	if c.PageSize == 0 || c.SubsectorSize == 0 {
		return fmt.Errorf("config: page size and subsector size must be non-zero")
	}
	if c.SubsectorSize%c.PageSize != 0 {
		return fmt.Errorf("config: subsector size %d must be a multiple of page size %d", c.SubsectorSize, c.PageSize)
	}
	if c.KFEnd < c.KFStart {
		return fmt.Errorf("config: KFEnd %d precedes KFStart %d", c.KFEnd, c.KFStart)
	}
	if c.UsedMagic == c.RemovedMagic {
		return fmt.Errorf("config: used and removed magics must be distinct")
	}
	if c.UsedMagic == 0xFFFFFFFF || c.RemovedMagic == 0xFFFFFFFF {
		return fmt.Errorf("config: status magics must not equal the erased pattern")
	}
	return nil
}

// RegionSubsectors returns the number of subsectors spanned by the
// reserved feature region [KFStart, KFEnd).
func (c Config) RegionSubsectors() uint32 {
	return (c.KFEnd - c.KFStart) / c.SubsectorSize
}

// RegionSize returns the byte size of the reserved feature region.
func (c Config) RegionSize() uint32 {
	return c.KFEnd - c.KFStart
}
