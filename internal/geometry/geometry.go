// Package geometry implements the pure slot-geometry math: a function of
// device geometry and the link-time maximum feature count, with no
// device access of its own — deriving the consequences of fixed sizes
// into named constants and functions.
package geometry

import "example.com/flashfeature/internal/header"

// SlotSize returns floor(regionSubsectors / maxFeatures) * subsectorSize,
// or 0 when maxFeatures is 0 — callers must check for a zero result, since
// every allocation path fails with a diagnostic in that case.
func SlotSize(regionSubsectors, maxFeatures, subsectorSize uint32) uint32 {
	if maxFeatures == 0 {
		return 0
	}
	return (regionSubsectors / maxFeatures) * subsectorSize
}

// SlotCount returns floor(regionSize / slotSize), or 0 when slotSize is 0.
func SlotCount(regionSize, slotSize uint32) uint32 {
	if slotSize == 0 {
		return 0
	}
	return regionSize / slotSize
}

// PayloadMax returns the largest ROM payload a slot of the given size can
// hold after reserving the fixed header.
func PayloadMax(slotSize uint32) uint32 {
	if slotSize < header.Size {
		return 0
	}
	return slotSize - header.Size
}

// SlotAddress returns the absolute address of slot k.
func SlotAddress(kfStart, slotSize uint32, k uint32) uint32 {
	return kfStart + k*slotSize
}

// SlotIndex returns the slot index that addr falls within, given the
// region start and slot size. Used by the streaming copy engine to check
// that a call's destination and end address map to the same slot, so a
// single call never crosses a slot boundary.
func SlotIndex(kfStart, slotSize, addr uint32) uint32 {
	return (addr - kfStart) / slotSize
}
