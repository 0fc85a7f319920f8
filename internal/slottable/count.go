package slottable

import (
	"example.com/flashfeature/internal/config"
	"example.com/flashfeature/internal/device"
	"example.com/flashfeature/internal/header"
)

// programSubsector writes data (exactly one subsector's worth of bytes)
// to addr page-by-page, since the flash driver's PageWrite contract only
// accepts a single page at a time.
func programSubsector(dev device.Device, cfg config.Config, addr uint32, data []byte) error {
	pageSize := cfg.PageSize
	for off := uint32(0); off < uint32(len(data)); off += pageSize {
		end := off + pageSize
		if end > uint32(len(data)) {
			end = uint32(len(data))
		}
		if err := dev.PageWrite(addr+off, data[off:end]); err != nil {
			return device.Wrap(err, "slottable: program subsector page", addr+off)
		}
	}
	return nil
}

// repairFeatureIndex rewrites featureIndex into the header at slotAddr,
// via a scratch-subsector read/modify/erase/program cycle. The caller must
// be in memory-mapped mode on entry; repairFeatureIndex brackets its own
// erase/program calls in programming mode.
func repairFeatureIndex(dev device.Device, cfg config.Config, logSink device.LogSink, slotAddr uint32, h header.SlotHeader, featureIndex uint32) error {
	subsectorSize := cfg.SubsectorSize
	scratch := make([]byte, subsectorSize)
	if err := dev.ReadAt(slotAddr, scratch); err != nil {
		return device.Wrap(err, "slottable: read scratch subsector for repair", slotAddr)
	}

	h.FeatureIndex = featureIndex
	enc := header.Encode(h, cfg.UsedMagic, cfg.RemovedMagic)
	copy(scratch[:header.Size], enc[:])

	return device.WithProgrammingMode(dev, logSink, "slottable: repair feature index", func() error {
		if err := dev.EraseSubsector(slotAddr); err != nil {
			return device.Wrap(err, "slottable: erase subsector for repair", slotAddr)
		}
		return programSubsector(dev, cfg, slotAddr, scratch)
	})
}

// Count walks the slot table in scan order, returning the number of Used
// slots and the address of the last one seen ("none" is nil, so callers
// never have to treat a stale pointer as meaningful). Used slots whose
// FeatureIndex doesn't match their rank are repaired in place so later
// GetFeatureHandle lookups stay deterministic. If a repair fails, the
// walk stops and the count reflects what was already accepted.
func Count(dev device.Device, cfg config.Config, logSink device.LogSink) (nbUsed uint32, lastFeaturePtr *uint32, err error) {
	size := slotSize(cfg)
	if size == 0 {
		return 0, nil, ErrZeroMaxFeatures
	}

	for addr := cfg.KFStart; addr+size <= cfg.KFEnd; addr += size {
		h, rerr := readHeaderAt(dev, cfg, addr)
		if rerr != nil {
			return nbUsed, lastFeaturePtr, rerr
		}

		switch h.Status {
		case header.Used:
			if h.FeatureIndex != nbUsed {
				if rerr := repairFeatureIndex(dev, cfg, logSink, addr, h, nbUsed); rerr != nil {
					logSink.Errorf("allocated_features_count: repair failed at 0x%08x: %v", addr, rerr)
					return nbUsed, lastFeaturePtr, nil
				}
			}
			a := addr
			lastFeaturePtr = &a
			nbUsed++
		case header.Removed:
			// skip
		case header.Free:
			return nbUsed, lastFeaturePtr, nil
		}
	}
	return nbUsed, lastFeaturePtr, nil
}
