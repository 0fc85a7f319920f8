package slottable

import "errors"

// Error kinds, one sentinel per failure class, so callers can discriminate
// with errors.Is; the façade in feature.go maps these onto the public
// -1/0/ERROR return vocabulary.
var (
	// Configuration: the allocator has no usable slot geometry.
	ErrZeroMaxFeatures = errors.New("slottable: max_features is zero")

	// Size: requested ROM or RAM exceeds its bound.
	ErrROMTooLarge = errors.New("slottable: requested ROM size exceeds slot payload capacity")
	ErrRAMTooLarge = errors.New("slottable: requested RAM size exceeds RAM buffer capacity")

	// Capacity: no free slot, or the RAM pool would overflow.
	ErrNoFreeSlot   = errors.New("slottable: no free or removed slot available")
	ErrRAMExhausted = errors.New("slottable: RAM window pool exhausted")

	// State: handle does not point at a Used slot.
	ErrNotUsed = errors.New("slottable: handle does not reference a used slot")
)
