// Package slottable implements the on-flash slot table: iteration, the
// count-and-compact walk, allocation, removal, and handle-based lookups
// over a tombstone/reuse-aware slot directory striped across the whole
// reserved flash region, one slot per subsector-aligned stripe.
package slottable

import (
	"example.com/flashfeature/internal/config"
	"example.com/flashfeature/internal/device"
	"example.com/flashfeature/internal/geometry"
	"example.com/flashfeature/internal/header"
)

// slotSize is computed once per call from cfg rather than cached, since cfg is cheap to recompute from and callers may change
// MaxFeatures between calls in tests.
func slotSize(cfg config.Config) uint32 {
	return geometry.SlotSize(cfg.RegionSubsectors(), cfg.MaxFeatures, cfg.SubsectorSize)
}

// readHeaderAt reads and decodes the slot header at addr. The caller must
// already be in memory-mapped mode.
func readHeaderAt(dev device.Device, cfg config.Config, addr uint32) (header.SlotHeader, error) {
	buf := make([]byte, header.Size)
	if err := dev.ReadAt(addr, buf); err != nil {
		return header.SlotHeader{}, device.Wrap(err, "slottable: read header", addr)
	}
	return header.Decode(buf, cfg.UsedMagic, cfg.RemovedMagic), nil
}

// Iterate walks slots starting at slot 0, stepping by the configured slot
// size, stopping when the next slot would cross cfg.KFEnd. visit is called
// with each slot's address and decoded header; returning cont=false stops
// the walk early (count/lookup scans only care about the live/removed
// prefix and stop at the first Free slot). Iterate itself brackets
// nothing in programming mode — it only reads — but it does require the
// device to already be memory-mapped.
func Iterate(dev device.Device, cfg config.Config, visit func(slotAddr uint32, h header.SlotHeader) (cont bool, err error)) error {
	size := slotSize(cfg)
	if size == 0 {
		return ErrZeroMaxFeatures
	}

	for addr := cfg.KFStart; addr+size <= cfg.KFEnd; addr += size {
		h, err := readHeaderAt(dev, cfg, addr)
		if err != nil {
			return err
		}
		cont, err := visit(addr, h)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}
