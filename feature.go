// Package feature is the public façade of the flash-backed dynamic
// feature allocator: lookup, allocation, freeing, ROM streaming and the
// initialization-error hook, exposed as methods on one Allocator type
// that wraps the internal device/slottable/romcopy packages.
package feature

import (
	"example.com/flashfeature/internal/config"
	"example.com/flashfeature/internal/device"
	"example.com/flashfeature/internal/romcopy"
	"example.com/flashfeature/internal/slottable"
)

// InitErrorCode classifies why the host failed to initialize a feature
// after installation, for OnFeatureInitializationError.
type InitErrorCode int

const (
	// CodeCorruptedContent, CodeIncompatibleKernelWrongUID and
	// CodeIncompatibleKernelWrongAddresses are the three reclaiming codes:
	// they cause the slot to be freed automatically.
	CodeCorruptedContent InitErrorCode = iota
	CodeIncompatibleKernelWrongUID
	CodeIncompatibleKernelWrongAddresses

	// CodeOutOfMemory and CodeUnknown are logged but leave the slot intact.
	CodeOutOfMemory
	CodeUnknown
)

func (c InitErrorCode) String() string {
	switch c {
	case CodeCorruptedContent:
		return "CORRUPTED_CONTENT"
	case CodeIncompatibleKernelWrongUID:
		return "INCOMPATIBLE_KERNEL_WRONG_UID"
	case CodeIncompatibleKernelWrongAddresses:
		return "INCOMPATIBLE_KERNEL_WRONG_ADDRESSES"
	case CodeOutOfMemory:
		return "OUT_OF_MEMORY"
	default:
		return "UNKNOWN"
	}
}

// reclaims is the set of codes for which OnFeatureInitializationError
// frees the slot.
func (c InitErrorCode) reclaims() bool {
	switch c {
	case CodeCorruptedContent, CodeIncompatibleKernelWrongUID, CodeIncompatibleKernelWrongAddresses:
		return true
	default:
		return false
	}
}

// Allocator is the public entry point to the allocator. It is not safe
// for concurrent use from multiple goroutines: the core is
// single-threaded cooperative and non-reentrant with itself.
type Allocator struct {
	dev device.Device
	cfg config.Config
	log device.LogSink

	copier *romcopy.Copier
}

// New returns an Allocator wrapping dev, configured by cfg, logging
// through logSink.
func New(dev device.Device, cfg config.Config, logSink device.LogSink) *Allocator {
	return &Allocator{
		dev:    dev,
		cfg:    cfg,
		log:    logSink,
		copier: romcopy.NewCopier(dev, cfg, logSink),
	}
}

// AllocatedFeaturesCount returns the number of installed features. On a
// device read failure it returns whatever count the repair walk managed
// to establish before the failure.
func (a *Allocator) AllocatedFeaturesCount() uint32 {
	nbUsed, _, err := slottable.Count(a.dev, a.cfg, a.log)
	if err != nil {
		a.log.Errorf("allocated_features_count: %v", err)
	}
	return nbUsed
}

// GetFeatureHandle returns the handle of the i-th installed feature, or 0
// if i is out of range.
func (a *Allocator) GetFeatureHandle(i uint32) uint32 {
	return slottable.GetFeatureHandle(a.dev, a.cfg, i)
}

// FeatureAddressRAM returns the RAM window address of handle, iff it
// names a currently installed feature.
func (a *Allocator) FeatureAddressRAM(h uint32) (uint32, bool) {
	return slottable.FeatureAddressRAM(a.dev, a.cfg, h)
}

// FeatureAddressROM returns the ROM payload address of handle (past its
// header), iff it names a currently installed feature.
func (a *Allocator) FeatureAddressROM(h uint32) (uint32, bool) {
	return slottable.FeatureAddressROM(a.dev, a.cfg, h)
}

// AllocateFeature installs a new feature with the given ROM/RAM
// footprint, returning its handle. It returns -1 when a pre-check
// (configuration or size) rejects the request outright, or 0 when
// allocation fails for any other reason (no free slot, RAM pool
// exhausted, a device failure).
func (a *Allocator) AllocateFeature(sizeROM, sizeRAM uint32) int64 {
	handle, err := slottable.Allocate(a.dev, a.cfg, a.log, sizeROM, sizeRAM)
	if err != nil {
		if slottable.IsPrecheckError(err) {
			return -1
		}
		return 0
	}
	return int64(handle)
}

// FreeFeature uninstalls the feature named by handle. It is a silent
// no-op if handle doesn't name an installed feature, or if freeing it
// fails for any other reason (logged, not surfaced).
func (a *Allocator) FreeFeature(h uint32) {
	if err := slottable.Free(a.dev, a.cfg, a.log, h); err != nil {
		a.log.Errorf("free_feature: 0x%08x: %v", h, err)
	}
}

// CopyToROM streams size(src) bytes into flash starting at dest,
// buffering until whole pages can be programmed. Call Flush/FlushCopyToROM
// when the stream is done to commit any partially filled page.
func (a *Allocator) CopyToROM(dest uint32, src []byte) error {
	return a.copier.CopyToROM(dest, src)
}

// FlushCopyToROM commits a partially filled pending page, if any.
func (a *Allocator) FlushCopyToROM() error {
	return a.copier.Flush()
}

// OnFeatureInitializationError is invoked by the host when feature
// initialization fails after installation. The three reclaiming codes
// free the slot automatically; other codes are logged and leave the slot
// intact. Always returns nil.
func (a *Allocator) OnFeatureInitializationError(h uint32, code InitErrorCode) error {
	if code.reclaims() {
		a.FreeFeature(h)
		return nil
	}
	a.log.Warningf("on_feature_initialization_error: handle=0x%08x code=%s, slot left intact", h, code)
	return nil
}
