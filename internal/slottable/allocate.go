package slottable

import (
	"errors"

	"example.com/flashfeature/internal/config"
	"example.com/flashfeature/internal/device"
	"example.com/flashfeature/internal/header"
	"example.com/flashfeature/internal/ramwindow"
)

// IsPrecheckError reports whether err is one of the three up-front
// configuration/size checks, which the façade maps to the public -1
// sentinel; every other non-nil error maps to 0.
func IsPrecheckError(err error) bool {
	return errors.Is(err, ErrZeroMaxFeatures) || errors.Is(err, ErrROMTooLarge) || errors.Is(err, ErrRAMTooLarge)
}

// Allocate implements allocate_feature: pre-checks, a count refresh, a
// first-non-Used slot search, the three-way RAM window decision, erasing
// the payload's subsectors, and programming exactly one header page. On
// success it returns the slot address as the handle.
func Allocate(dev device.Device, cfg config.Config, logSink device.LogSink, sizeROM, sizeRAM uint32) (uint32, error) {
	if cfg.MaxFeatures == 0 {
		logSink.Errorf("allocate_feature: max_features is zero")
		return 0, ErrZeroMaxFeatures
	}

	size := slotSize(cfg)
	if size == 0 || sizeROM+header.Size > size {
		logSink.Errorf("allocate_feature: rom size %d exceeds slot payload capacity (slot size %d)", sizeROM, size)
		return 0, ErrROMTooLarge
	}
	if sizeRAM > cfg.RAMBufferSize {
		logSink.Errorf("allocate_feature: ram size %d exceeds RAM buffer capacity %d", sizeRAM, cfg.RAMBufferSize)
		return 0, ErrRAMTooLarge
	}

	nbUsed, lastFeaturePtr, err := Count(dev, cfg, logSink)
	if err != nil {
		return 0, err
	}

	var lastHeader header.SlotHeader
	if lastFeaturePtr != nil {
		lastHeader, err = readHeaderAt(dev, cfg, *lastFeaturePtr)
		if err != nil {
			return 0, err
		}
	}

	slotAddr, candidate, found, err := findFirstNonUsed(dev, cfg, size)
	if err != nil {
		return 0, err
	}
	if !found {
		logSink.Errorf("allocate_feature: no free or removed slot available")
		return 0, ErrNoFreeSlot
	}

	pool := ramwindow.Pool{Base: cfg.RAMBase, Size: cfg.RAMBufferSize, Align: cfg.RAMAlign}
	ramAddr, ok := ramwindow.Decide(
		pool,
		lastFeaturePtr != nil, lastHeader.RAMAddress, lastHeader.RAMSize,
		candidate.Status == header.Removed, candidate.RAMAddress, candidate.RAMSize,
		sizeRAM,
	)
	if !ok {
		logSink.Errorf("allocate_feature: RAM window pool exhausted for size %d", sizeRAM)
		return 0, ErrRAMExhausted
	}

	romAddr := slotAddr + header.Size
	nbSubsectors := uint32(0)
	eraseErr := device.WithProgrammingMode(dev, logSink, "allocate_feature: erase payload subsectors", func() error {
		for addr := slotAddr; addr < romAddr+sizeROM; addr += cfg.SubsectorSize {
			if err := dev.EraseSubsector(addr); err != nil {
				return device.Wrap(err, "allocate_feature: erase payload subsector", addr)
			}
			nbSubsectors++
		}
		return nil
	})
	if eraseErr != nil {
		return 0, eraseErr
	}

	newHeader := header.SlotHeader{
		Status:       header.Used,
		NbSubsectors: nbSubsectors,
		ROMAddress:   romAddr,
		ROMSize:      sizeROM,
		RAMAddress:   ramAddr,
		RAMSize:      sizeRAM,
		FeatureIndex: nbUsed,
	}
	page := header.FillErased(newHeader, cfg.UsedMagic, cfg.RemovedMagic, cfg.PageSize)

	programErr := device.WithProgrammingMode(dev, logSink, "allocate_feature: program header", func() error {
		if err := dev.PageWrite(slotAddr, page); err != nil {
			return device.Wrap(err, "allocate_feature: program header page", slotAddr)
		}
		return nil
	})
	if programErr != nil {
		return 0, programErr
	}

	return slotAddr, nil
}

// findFirstNonUsed scans the slot table for the first Removed or Free
// slot, returning its address and decoded header (for the Removed-reuse
// check in Allocate).
func findFirstNonUsed(dev device.Device, cfg config.Config, size uint32) (addr uint32, h header.SlotHeader, found bool, err error) {
	for a := cfg.KFStart; a+size <= cfg.KFEnd; a += size {
		hdr, rerr := readHeaderAt(dev, cfg, a)
		if rerr != nil {
			return 0, header.SlotHeader{}, false, rerr
		}
		if hdr.Status != header.Used {
			return a, hdr, true, nil
		}
	}
	return 0, header.SlotHeader{}, false, nil
}
