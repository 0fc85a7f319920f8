package slottable

import (
	"example.com/flashfeature/internal/config"
	"example.com/flashfeature/internal/device"
	"example.com/flashfeature/internal/header"
)

// FeatureAddressROM implements feature_address_rom: the slot's stored
// ROM address iff it is Used.
func FeatureAddressROM(dev device.Device, cfg config.Config, handle uint32) (uint32, bool) {
	h, err := readHeaderAt(dev, cfg, handle)
	if err != nil || h.Status != header.Used {
		return 0, false
	}
	return h.ROMAddress, true
}

// FeatureAddressRAM implements feature_address_ram: the slot's stored
// RAM address iff it is Used.
func FeatureAddressRAM(dev device.Device, cfg config.Config, handle uint32) (uint32, bool) {
	h, err := readHeaderAt(dev, cfg, handle)
	if err != nil || h.Status != header.Used {
		return 0, false
	}
	return h.RAMAddress, true
}

// GetFeatureHandle implements get_feature_handle: a linear scan returning
// the address of the Used slot whose FeatureIndex equals i, or 0 if i is
// out of range. The scan stops at the first Free slot, matching
// Iterate's termination rule.
func GetFeatureHandle(dev device.Device, cfg config.Config, i uint32) uint32 {
	var result uint32
	_ = Iterate(dev, cfg, func(slotAddr uint32, h header.SlotHeader) (bool, error) {
		if h.Status == header.Free {
			return false, nil
		}
		if h.Status == header.Used && h.FeatureIndex == i {
			result = slotAddr
			return false, nil
		}
		return true, nil
	})
	return result
}
