// Package header implements the fixed 32-byte SlotHeader codec: a manual,
// field-by-field little-endian encode/decode — no reflection-based struct
// marshalling, because the codec must classify arbitrary bit patterns
// (the flash-erased value included) without trusting any field of a
// non-Used header except the RAM window of a Removed one.
package header

import "encoding/binary"

// Size is the fixed on-flash byte size of a SlotHeader.
const Size = 32

// Field offsets within a slot header.
const (
	offStatus       = 0
	offNbSubsectors = 4
	offROMAddress   = 8
	offROMSize      = 12
	offRAMAddress   = 16
	offRAMSize      = 20
	offFeatureIndex = 24
	offReserved     = 28
)

// Status classifies a header's status word. Free is the catch-all: any
// bit pattern other than the two magic constants, including (but not
// specially testing for) the flash-erased word 0xFFFFFFFF.
type Status int

const (
	Free Status = iota
	Used
	Removed
)

func (s Status) String() string {
	switch s {
	case Used:
		return "USED"
	case Removed:
		return "REMOVED"
	default:
		return "FREE"
	}
}

// SlotHeader is the decoded form of the 32-byte persisted header.
type SlotHeader struct {
	Status       Status
	NbSubsectors uint32
	ROMAddress   uint32
	ROMSize      uint32
	RAMAddress   uint32
	RAMSize      uint32
	FeatureIndex uint32
	Reserved     uint32
}

// ClassifyStatus returns the Status for a raw status word, given the
// configured magic constants. Equality with the two magics is the only
// test performed; anything else, including 0xFFFFFFFF, is Free.
func ClassifyStatus(word, usedMagic, removedMagic uint32) Status {
	switch word {
	case usedMagic:
		return Used
	case removedMagic:
		return Removed
	default:
		return Free
	}
}

// Decode reads a SlotHeader from a Size-byte buffer. Decode never
// interprets payload fields of a non-Used header, except RAMAddress and
// RAMSize, which the allocator's reinstallation reuse rule needs from a
// Removed header.
func Decode(buf []byte, usedMagic, removedMagic uint32) SlotHeader {
	word := binary.LittleEndian.Uint32(buf[offStatus : offStatus+4])
	status := ClassifyStatus(word, usedMagic, removedMagic)

	h := SlotHeader{Status: status}
	switch status {
	case Used:
		h.NbSubsectors = binary.LittleEndian.Uint32(buf[offNbSubsectors : offNbSubsectors+4])
		h.ROMAddress = binary.LittleEndian.Uint32(buf[offROMAddress : offROMAddress+4])
		h.ROMSize = binary.LittleEndian.Uint32(buf[offROMSize : offROMSize+4])
		h.RAMAddress = binary.LittleEndian.Uint32(buf[offRAMAddress : offRAMAddress+4])
		h.RAMSize = binary.LittleEndian.Uint32(buf[offRAMSize : offRAMSize+4])
		h.FeatureIndex = binary.LittleEndian.Uint32(buf[offFeatureIndex : offFeatureIndex+4])
	case Removed:
		h.RAMAddress = binary.LittleEndian.Uint32(buf[offRAMAddress : offRAMAddress+4])
		h.RAMSize = binary.LittleEndian.Uint32(buf[offRAMSize : offRAMSize+4])
	}
	return h
}

// Encode serializes h into a new Size-byte buffer, filling any bytes the
// header layout doesn't occupy with the flash-erased value 0xFF (there are
// none at 32 bytes with all eight fields populated, but Encode always
// writes every field so the rule is trivially satisfied).
func Encode(h SlotHeader, usedMagic, removedMagic uint32) [Size]byte {
	var buf [Size]byte
	var word uint32
	switch h.Status {
	case Used:
		word = usedMagic
	case Removed:
		word = removedMagic
	default:
		word = 0xFFFFFFFF
	}
	binary.LittleEndian.PutUint32(buf[offStatus:offStatus+4], word)
	binary.LittleEndian.PutUint32(buf[offNbSubsectors:offNbSubsectors+4], h.NbSubsectors)
	binary.LittleEndian.PutUint32(buf[offROMAddress:offROMAddress+4], h.ROMAddress)
	binary.LittleEndian.PutUint32(buf[offROMSize:offROMSize+4], h.ROMSize)
	binary.LittleEndian.PutUint32(buf[offRAMAddress:offRAMAddress+4], h.RAMAddress)
	binary.LittleEndian.PutUint32(buf[offRAMSize:offRAMSize+4], h.RAMSize)
	binary.LittleEndian.PutUint32(buf[offFeatureIndex:offFeatureIndex+4], h.FeatureIndex)
	binary.LittleEndian.PutUint32(buf[offReserved:offReserved+4], h.Reserved)
	return buf
}

// FillErased returns a page-sized buffer whose first Size bytes are the
// encoded header and whose remainder is the flash-erased byte value 0xFF,
// since unused bytes within a slot are always left at the erased value.
func FillErased(h SlotHeader, usedMagic, removedMagic uint32, pageSize uint32) []byte {
	page := make([]byte, pageSize)
	for i := range page {
		page[i] = 0xFF
	}
	enc := Encode(h, usedMagic, removedMagic)
	copy(page, enc[:])
	return page
}
