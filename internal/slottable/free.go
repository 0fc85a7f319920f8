package slottable

import (
	"example.com/flashfeature/internal/config"
	"example.com/flashfeature/internal/device"
	"example.com/flashfeature/internal/header"
)

// Free implements free_feature: a no-op if handle doesn't name a Used
// slot; otherwise rewrites the header subsector with Status=Removed,
// NbSubsectors=1, leaving payload subsectors dirty so the erase cost of
// uninstallation is constant regardless of feature size.
func Free(dev device.Device, cfg config.Config, logSink device.LogSink, handle uint32) error {
	h, err := readHeaderAt(dev, cfg, handle)
	if err != nil {
		return err
	}
	if h.Status != header.Used {
		logSink.Debugf("free_feature: handle 0x%08x is not a used slot, ignoring", handle)
		return nil
	}

	removed := header.SlotHeader{
		Status:       header.Removed,
		NbSubsectors: 1,
		RAMAddress:   h.RAMAddress,
		RAMSize:      h.RAMSize,
	}
	page := header.FillErased(removed, cfg.UsedMagic, cfg.RemovedMagic, cfg.PageSize)

	return device.WithProgrammingMode(dev, logSink, "free_feature", func() error {
		if err := dev.EraseSubsector(handle); err != nil {
			return device.Wrap(err, "free_feature: erase header subsector", handle)
		}
		if err := dev.PageWrite(handle, page); err != nil {
			return device.Wrap(err, "free_feature: program removed header", handle)
		}
		return nil
	})
}
