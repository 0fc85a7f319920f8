// Package romcopy implements a streaming, page-buffered ROM-copy engine:
// copy_to_rom/flush_copy_to_rom. External NOR devices only program whole
// pages, but payload bytes arrive from the caller (e.g. a streaming
// installer) in arbitrary-sized slices; this engine buffers until a
// whole page can be programmed, coalescing contiguous calls and
// read-modify-writing partial pages, with an explicit flush because the
// engine cannot otherwise know when the caller is done.
//
// Its state machine models the pending page as a plain byte slice, the
// same way other page-buffer code in this module treats a page as a
// flat []byte.
package romcopy

import (
	"errors"

	"example.com/flashfeature/internal/config"
	"example.com/flashfeature/internal/device"
	"example.com/flashfeature/internal/geometry"
)

// Placement errors: distinct sentinels for each way a destination/size
// pair can fail to be a valid copy target.
var (
	ErrOutsideRegion       = errors.New("romcopy: destination outside the reserved region")
	ErrCrossesSlotBoundary = errors.New("romcopy: call crosses a slot boundary")
	ErrTooLarge            = errors.New("romcopy: size exceeds slot size")
)

// Copier holds the pending-page state and implements copy_to_rom /
// flush_copy_to_rom.
type Copier struct {
	dev device.Device
	cfg config.Config
	log device.LogSink

	targetPageAddr *uint32
	writeOffset    uint32
	buffer         []byte
}

// NewCopier returns a Copier with no page pending.
func NewCopier(dev device.Device, cfg config.Config, log device.LogSink) *Copier {
	return &Copier{dev: dev, cfg: cfg, log: log}
}

func (c *Copier) slotSize() uint32 {
	return geometry.SlotSize(c.cfg.RegionSubsectors(), c.cfg.MaxFeatures, c.cfg.SubsectorSize)
}

// validate rejects a destination/size pair that falls outside the
// region, overflows the region end, exceeds a slot's size, or crosses a
// slot boundary.
func (c *Copier) validate(dest, size uint32) error {
	if dest < c.cfg.KFStart || dest >= c.cfg.KFEnd {
		c.log.Errorf("copy_to_rom: dest 0x%08x outside region [0x%08x, 0x%08x)", dest, c.cfg.KFStart, c.cfg.KFEnd)
		return ErrOutsideRegion
	}
	if dest+size > c.cfg.KFEnd {
		c.log.Errorf("copy_to_rom: dest+size 0x%08x exceeds region end 0x%08x", dest+size, c.cfg.KFEnd)
		return ErrOutsideRegion
	}
	slotSize := c.slotSize()
	if size > slotSize {
		c.log.Errorf("copy_to_rom: size %d exceeds slot size %d", size, slotSize)
		return ErrTooLarge
	}
	if geometry.SlotIndex(c.cfg.KFStart, slotSize, dest) != geometry.SlotIndex(c.cfg.KFStart, slotSize, dest+size) {
		c.log.Errorf("copy_to_rom: dest=0x%08x size=%d crosses a slot boundary", dest, size)
		return ErrCrossesSlotBoundary
	}
	return nil
}

// newErasedBuffer returns a page-sized buffer filled with the
// flash-erased byte value.
func newErasedBuffer(pageSize uint32) []byte {
	buf := make([]byte, pageSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	return buf
}

// readExistingPage loads pageAddr's current contents into c.buffer,
// toggling briefly into memory-mapped mode and back. This preserves
// bytes that belong to earlier writes into the same page when buffering
// was previously inactive. The caller is already in programming mode;
// this is the one exception to the "bracket once" discipline, required
// because reads are only valid memory-mapped.
func (c *Copier) readExistingPage(pageAddr uint32) error {
	if err := c.dev.EnableMemoryMappedMode(); err != nil {
		return device.Wrap(err, "copy_to_rom: enable memory-mapped mode for existing-page read", pageAddr)
	}
	buf := make([]byte, c.cfg.PageSize)
	readErr := c.dev.ReadAt(pageAddr, buf)
	if err := c.dev.DisableMemoryMappedMode(); err != nil {
		c.log.Errorf("copy_to_rom: failed to return to programming mode after existing-page read: %v", err)
	}
	if readErr != nil {
		return device.Wrap(readErr, "copy_to_rom: read existing page", pageAddr)
	}
	c.buffer = buf
	return nil
}

func (c *Copier) clearPending() {
	c.targetPageAddr = nil
	c.writeOffset = 0
	c.buffer = nil
}

// CopyToROM appends size(src) bytes from src into flash starting at dest,
// buffering until a whole page can be programmed.
func (c *Copier) CopyToROM(dest uint32, src []byte) error {
	size := uint32(len(src))
	if err := c.validate(dest, size); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}

	if c.targetPageAddr != nil {
		newOffset := dest - *c.targetPageAddr
		switch {
		case c.writeOffset < newOffset && newOffset < c.cfg.PageSize:
			// Caller skipped bytes; the gap keeps whatever was already in
			// the buffer (erased value or previously-read page bytes).
			c.writeOffset = newOffset
		case newOffset == c.writeOffset:
			// Perfect continuation of the pending page.
		default:
			if err := c.Flush(); err != nil {
				return err
			}
		}
	}

	remaining := src
	return device.WithProgrammingMode(c.dev, c.log, "copy_to_rom", func() error {
		for len(remaining) > 0 {
			pageAddr := c.dev.PageBase(dest)
			pageOffset := dest - pageAddr
			chunk := c.cfg.PageSize - pageOffset
			if chunk > uint32(len(remaining)) {
				chunk = uint32(len(remaining))
			}

			if c.targetPageAddr == nil {
				if pageOffset != 0 {
					if err := c.readExistingPage(pageAddr); err != nil {
						return err
					}
				} else {
					c.buffer = newErasedBuffer(c.cfg.PageSize)
				}
				addr := pageAddr
				c.targetPageAddr = &addr
			}

			copy(c.buffer[pageOffset:pageOffset+chunk], remaining[:chunk])

			if pageOffset+chunk == c.cfg.PageSize {
				if err := c.dev.PageWrite(pageAddr, c.buffer); err != nil {
					return device.Wrap(err, "copy_to_rom: program page", pageAddr)
				}
				c.clearPending()
			} else {
				c.writeOffset = pageOffset + chunk
			}

			dest += chunk
			remaining = remaining[chunk:]
		}
		return nil
	})
}

// Flush commits a partially filled pending page, if any. It is a no-op,
// returning nil, when no page is pending.
func (c *Copier) Flush() error {
	if c.targetPageAddr == nil {
		return nil
	}
	addr := *c.targetPageAddr
	buf := c.buffer

	err := device.WithProgrammingMode(c.dev, c.log, "flush_copy_to_rom", func() error {
		if writeErr := c.dev.PageWrite(addr, buf); writeErr != nil {
			return device.Wrap(writeErr, "flush_copy_to_rom: program page", addr)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.clearPending()
	return nil
}
