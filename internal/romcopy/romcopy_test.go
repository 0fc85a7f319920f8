package romcopy

import (
	"bytes"
	"testing"

	"example.com/flashfeature/internal/config"
	"example.com/flashfeature/internal/device"
	"example.com/flashfeature/internal/flashsim"
)

// testConfig gives each slot a small, page-multiple size (4 pages of 256
// bytes each) so a single slot spans several pages without needing a
// multi-megabyte fixture.
func testConfig() config.Config {
	c := config.Default()
	c.PageSize = 256
	c.SubsectorSize = 1024
	c.KFBlockSize = 4096
	c.MaxFeatures = 4
	c.FlashSize = c.KFBlockSize
	c.KFStart = c.FlashBase
	c.KFEnd = c.FlashBase + c.KFBlockSize
	return c
}

func erasedPage(size uint32) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xFF
	}
	return buf
}

// Scenario 4: a streaming copy spanning a page boundary, written across two
// CopyToROM calls, committed with an explicit Flush.
func TestStreamingCopyAcrossPages(t *testing.T) {
	cfg := testConfig()
	dev := flashsim.New(cfg)
	log := device.NoopLogSink{}
	c := NewCopier(dev, cfg, log)

	payload := bytes.Repeat([]byte{0xAB}, 300)
	dest := cfg.KFStart

	if err := c.CopyToROM(dest, payload[:200]); err != nil {
		t.Fatalf("CopyToROM(first 200 bytes): %v", err)
	}
	if err := c.CopyToROM(dest+200, payload[200:]); err != nil {
		t.Fatalf("CopyToROM(remaining 100 bytes): %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got := dev.RawBytes()[dest : dest+300]
	if !bytes.Equal(got, payload) {
		t.Fatalf("written bytes mismatch: got %x", got)
	}
	tail := dev.RawBytes()[dest+300 : dest+2*cfg.PageSize]
	if !bytes.Equal(tail, erasedPage(uint32(len(tail)))) {
		t.Fatalf("page tail beyond the written range was not preserved as erased: %x", tail)
	}
	if !dev.IsMemoryMapped() {
		t.Fatalf("device left in programming mode after Flush")
	}
}

// Scenario 5: a second call that exactly completes a pending page must
// program it automatically, with no explicit Flush required.
func TestCompletingAPageProgramsWithoutExplicitFlush(t *testing.T) {
	cfg := testConfig()
	dev := flashsim.New(cfg)
	log := device.NoopLogSink{}
	c := NewCopier(dev, cfg, log)

	first := bytes.Repeat([]byte{0x11}, 100)
	second := bytes.Repeat([]byte{0x22}, int(cfg.PageSize)-100)
	dest := cfg.KFStart

	if err := c.CopyToROM(dest, first); err != nil {
		t.Fatalf("CopyToROM(first): %v", err)
	}
	if err := c.CopyToROM(dest+100, second); err != nil {
		t.Fatalf("CopyToROM(second): %v", err)
	}

	want := append(append([]byte{}, first...), second...)
	got := dev.RawBytes()[dest : dest+cfg.PageSize]
	if !bytes.Equal(got, want) {
		t.Fatalf("page contents mismatch after implicit program: got %x, want %x", got, want)
	}

	// A second, unrelated Flush must be a no-op: nothing pending.
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush with nothing pending: %v", err)
	}
}

// A copy that starts mid-page, with no page already pending, must
// read-preserve the existing bytes before and after the written range.
func TestMidPageWritePreservesExistingBytes(t *testing.T) {
	cfg := testConfig()
	dev := flashsim.New(cfg)
	log := device.NoopLogSink{}

	// Prime the page around the write range; the range itself stays erased,
	// since programming can only clear bits.
	preexisting := bytes.Repeat([]byte{0x77}, int(cfg.PageSize))
	for i := 100; i < 150; i++ {
		preexisting[i] = 0xFF
	}
	if err := dev.DisableMemoryMappedMode(); err != nil {
		t.Fatalf("DisableMemoryMappedMode: %v", err)
	}
	if err := dev.EraseSubsector(cfg.KFStart); err != nil {
		t.Fatalf("EraseSubsector: %v", err)
	}
	if err := dev.PageWrite(cfg.KFStart, preexisting); err != nil {
		t.Fatalf("PageWrite priming page: %v", err)
	}
	if err := dev.EnableMemoryMappedMode(); err != nil {
		t.Fatalf("EnableMemoryMappedMode: %v", err)
	}

	c := NewCopier(dev, cfg, log)
	middle := bytes.Repeat([]byte{0x99}, 50)
	dest := cfg.KFStart + 100

	if err := c.CopyToROM(dest, middle); err != nil {
		t.Fatalf("CopyToROM: %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	page := dev.RawBytes()[cfg.KFStart : cfg.KFStart+cfg.PageSize]
	if !bytes.Equal(page[:100], preexisting[:100]) {
		t.Fatalf("bytes before the write range were not preserved: got %x", page[:100])
	}
	if !bytes.Equal(page[100:150], middle) {
		t.Fatalf("written bytes mismatch: got %x", page[100:150])
	}
	if !bytes.Equal(page[150:], preexisting[150:]) {
		t.Fatalf("bytes after the write range were not preserved: got %x", page[150:])
	}
}

// Scenario 6: a call whose destination and end address fall in different
// slots must be rejected outright, with nothing written.
func TestCallCrossingSlotBoundaryIsRejected(t *testing.T) {
	cfg := testConfig()
	dev := flashsim.New(cfg)
	log := device.NoopLogSink{}
	c := NewCopier(dev, cfg, log)

	slotSize := c.slotSize()
	dest := cfg.KFStart + slotSize - 10
	payload := bytes.Repeat([]byte{0x55}, 20)

	err := c.CopyToROM(dest, payload)
	if err != ErrCrossesSlotBoundary {
		t.Fatalf("CopyToROM crossing a slot boundary = %v, want ErrCrossesSlotBoundary", err)
	}

	untouched := dev.RawBytes()[dest : dest+20]
	if !bytes.Equal(untouched, erasedPage(20)) {
		t.Fatalf("rejected call wrote bytes anyway: %x", untouched)
	}
}

func TestCopyBeyondRegionIsRejected(t *testing.T) {
	cfg := testConfig()
	dev := flashsim.New(cfg)
	log := device.NoopLogSink{}
	c := NewCopier(dev, cfg, log)

	err := c.CopyToROM(cfg.KFEnd-10, bytes.Repeat([]byte{0x01}, 20))
	if err != ErrOutsideRegion {
		t.Fatalf("CopyToROM beyond region end = %v, want ErrOutsideRegion", err)
	}
}

func TestCopyLargerThanSlotIsRejected(t *testing.T) {
	cfg := testConfig()
	dev := flashsim.New(cfg)
	log := device.NoopLogSink{}
	c := NewCopier(dev, cfg, log)

	slotSize := c.slotSize()
	err := c.CopyToROM(cfg.KFStart, bytes.Repeat([]byte{0x01}, int(slotSize)+1))
	if err != ErrTooLarge {
		t.Fatalf("CopyToROM exceeding slot size = %v, want ErrTooLarge", err)
	}
}

// A call that jumps past the pending page (rather than continuing or
// overlapping it) must implicitly flush the pending page first.
func TestNonContiguousCallFlushesPendingPage(t *testing.T) {
	cfg := testConfig()
	dev := flashsim.New(cfg)
	log := device.NoopLogSink{}
	c := NewCopier(dev, cfg, log)

	first := bytes.Repeat([]byte{0x33}, 50)
	if err := c.CopyToROM(cfg.KFStart, first); err != nil {
		t.Fatalf("CopyToROM(first): %v", err)
	}

	secondSlot := cfg.KFStart + c.slotSize()
	second := bytes.Repeat([]byte{0x44}, 50)
	if err := c.CopyToROM(secondSlot, second); err != nil {
		t.Fatalf("CopyToROM(second, different slot): %v", err)
	}

	gotFirst := dev.RawBytes()[cfg.KFStart : cfg.KFStart+50]
	if !bytes.Equal(gotFirst, first) {
		t.Fatalf("first page was not flushed before the jump: got %x", gotFirst)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	gotSecond := dev.RawBytes()[secondSlot : secondSlot+50]
	if !bytes.Equal(gotSecond, second) {
		t.Fatalf("second write mismatch: got %x", gotSecond)
	}
}
