package header

import "testing"

const (
	testUsedMagic    = uint32(0x55534544)
	testRemovedMagic = uint32(0x52454D56)
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		name string
		word uint32
		want Status
	}{
		{"used", testUsedMagic, Used},
		{"removed", testRemovedMagic, Removed},
		{"erased", 0xFFFFFFFF, Free},
		{"garbage", 0x12345678, Free},
		{"zero", 0, Free},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ClassifyStatus(c.word, testUsedMagic, testRemovedMagic)
			if got != c.want {
				t.Fatalf("ClassifyStatus(%#x) = %v, want %v", c.word, got, c.want)
			}
		})
	}
}

func TestEncodeDecodeUsedRoundTrip(t *testing.T) {
	h := SlotHeader{
		Status:       Used,
		NbSubsectors: 3,
		ROMAddress:   0x1020,
		ROMSize:      4096,
		RAMAddress:   0x2000,
		RAMSize:      512,
		FeatureIndex: 2,
	}
	buf := Encode(h, testUsedMagic, testRemovedMagic)
	if len(buf) != Size {
		t.Fatalf("encoded header has %d bytes, want %d", len(buf), Size)
	}

	got := Decode(buf[:], testUsedMagic, testRemovedMagic)
	if got.Status != Used {
		t.Fatalf("Status = %v, want Used", got.Status)
	}
	if got != h {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestDecodeRemovedOnlyTrustsRAMFields(t *testing.T) {
	h := SlotHeader{
		Status:       Removed,
		NbSubsectors: 99,  // must be ignored by Decode
		ROMAddress:   99,  // must be ignored by Decode
		ROMSize:      99,  // must be ignored by Decode
		RAMAddress:   0x3000,
		RAMSize:      256,
		FeatureIndex: 99, // must be ignored by Decode
	}
	buf := Encode(h, testUsedMagic, testRemovedMagic)
	got := Decode(buf[:], testUsedMagic, testRemovedMagic)

	if got.Status != Removed {
		t.Fatalf("Status = %v, want Removed", got.Status)
	}
	if got.RAMAddress != 0x3000 || got.RAMSize != 256 {
		t.Fatalf("RAM fields not preserved: %+v", got)
	}
	if got.NbSubsectors != 0 || got.ROMAddress != 0 || got.ROMSize != 0 || got.FeatureIndex != 0 {
		t.Fatalf("Decode trusted non-RAM fields of a Removed header: %+v", got)
	}
}

func TestDecodeFreeIgnoresEverything(t *testing.T) {
	buf := make([]byte, Size)
	for i := range buf {
		buf[i] = 0xFF
	}
	got := Decode(buf, testUsedMagic, testRemovedMagic)
	if got.Status != Free {
		t.Fatalf("Status = %v, want Free for the erased pattern", got.Status)
	}
	if got != (SlotHeader{Status: Free}) {
		t.Fatalf("Free header must carry no trusted fields, got %+v", got)
	}
}

func TestFillErasedPadsTail(t *testing.T) {
	h := SlotHeader{Status: Used, ROMAddress: 32, ROMSize: 10, FeatureIndex: 0}
	page := FillErased(h, testUsedMagic, testRemovedMagic, 256)
	if len(page) != 256 {
		t.Fatalf("page length = %d, want 256", len(page))
	}
	for i := Size; i < len(page); i++ {
		if page[i] != 0xFF {
			t.Fatalf("byte %d = %#x, want 0xFF (erased tail)", i, page[i])
		}
	}
	got := Decode(page[:Size], testUsedMagic, testRemovedMagic)
	if got.ROMAddress != 32 || got.ROMSize != 10 {
		t.Fatalf("header bytes not preserved at page start: %+v", got)
	}
}
