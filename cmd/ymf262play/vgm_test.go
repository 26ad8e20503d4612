package main

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/user-none/go-chip-ymf262"
)

// --- Parsing ---

func TestVGM_WritesAndWaits(t *testing.T) {
	data := buildVGM(14318180, []byte{
		0x5E, 0x20, 0xA1, // port 0: reg 0x20 = 0xA1
		0x61, 0x10, 0x00, // wait 16
		0x5F, 0x05, 0x01, // port 1: reg 0x105 = 0x01
		0x62,             // wait 735
		0x7F,             // wait 16
		0x70,             // wait 1
		0x5E, 0xB0, 0x32, // port 0: reg 0xB0 = 0x32
		0x66,
	})

	f, err := parseVGM(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if f.ClockHz != 14318180 {
		t.Errorf("clock = %d, want 14318180", f.ClockHz)
	}
	if got := f.versionString(); got != "1.51" {
		t.Errorf("version = %s, want 1.51", got)
	}

	want := []chipWrite{
		{0, 0x020, 0xA1},
		{16, 0x105, 0x01},
		{768, 0x0B0, 0x32},
	}
	if len(f.Writes) != len(want) {
		t.Fatalf("got %d writes, want %d", len(f.Writes), len(want))
	}
	for i, w := range want {
		if f.Writes[i] != w {
			t.Errorf("write %d: got %+v, want %+v", i, f.Writes[i], w)
		}
	}
	if f.TotalSamples != 769 {
		t.Errorf("total samples = %d, want 769", f.TotalSamples)
	}
	if f.HasLoop {
		t.Error("no loop declared but HasLoop is set")
	}
}

func TestVGM_SkipsOtherChips(t *testing.T) {
	// The stream is one YMF262 write preceded by commands for other
	// chips: GG stereo, SN76489, YM2612, a data block with a 4-byte
	// payload, Sega PCM, DAC stream control, a PCM RAM write, a seek
	// and a reserved one-operand command. None of them take time, so
	// the write must land at sample 0.
	data := buildVGM(14318180, []byte{
		0x4F, 0x00,
		0x50, 0x9F,
		0x52, 0x28, 0x00,
		0x67, 0x66, 0x00, 0x04, 0x00, 0x00, 0x00, 0xDE, 0xAD, 0xBE, 0xEF,
		0xC0, 0x00, 0x10, 0x7F,
		0x90, 0x00, 0x02, 0x00, 0x2A,
		0x94, 0x00,
		0x68, 0x66, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xE0, 0x00, 0x00, 0x00, 0x00,
		0x31, 0x00,
		0x5E, 0x08, 0x40,
		0x66,
	})

	f, err := parseVGM(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(f.Writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(f.Writes))
	}
	if f.Writes[0] != (chipWrite{0, 0x008, 0x40}) {
		t.Errorf("write = %+v, want {0 0x008 0x40}", f.Writes[0])
	}
}

func TestVGM_GzipTransparent(t *testing.T) {
	plain := buildVGM(14318180, []byte{0x5E, 0x01, 0x20, 0x66})

	var packed bytes.Buffer
	zw := gzip.NewWriter(&packed)
	if _, err := zw.Write(plain); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	f, err := parseVGM(packed.Bytes())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(f.Writes) != 1 || f.Writes[0] != (chipWrite{0, 0x001, 0x20}) {
		t.Errorf("writes = %+v, want one write {0 0x001 0x20}", f.Writes)
	}
	if f.ClockHz != 14318180 {
		t.Errorf("clock = %d, want 14318180", f.ClockHz)
	}
}

func TestVGM_LegacyHeader(t *testing.T) {
	// v1.00 header: 0x40 bytes, no data offset, no OPL clock fields.
	data := make([]byte, 0x40)
	copy(data, "Vgm ")
	binary.LittleEndian.PutUint32(data[0x08:], 0x00000100)
	data = append(data, 0x5E, 0x01, 0xFF, 0x66)

	f, err := parseVGM(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(f.Writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(f.Writes))
	}
	if f.ClockHz != ymf262.DefaultClock {
		t.Errorf("clock = %d, want default %d", f.ClockHz, ymf262.DefaultClock)
	}
}

func TestVGM_BadInput(t *testing.T) {
	badOffset := buildVGM(0, []byte{0x66})
	binary.LittleEndian.PutUint32(badOffset[0x34:], 0x10000)

	cases := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("Vgm ")},
		{"bad magic", make([]byte, 0x40)},
		{"data offset past end", badOffset},
		{"truncated write", buildVGM(0, []byte{0x5E, 0x01})},
		{"truncated wait", buildVGM(0, []byte{0x61, 0x10})},
		{"bad data block", buildVGM(0, []byte{0x67, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00})},
	}

	for _, c := range cases {
		if _, err := parseVGM(c.data); err == nil {
			t.Errorf("%s: parse succeeded, want error", c.name)
		}
	}
}

// --- Clocks ---

func TestVGM_YM3812Compatibility(t *testing.T) {
	data := buildVGM(0, []byte{
		0x5A, 0x20, 0xA1, // YM3812 write
		0x66,
	})
	binary.LittleEndian.PutUint32(data[0x50:], 3579545) // YM3812 clock

	f, err := parseVGM(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	// OPL2 writes play on port 0 at four times the OPL2 clock.
	if len(f.Writes) != 1 || f.Writes[0] != (chipWrite{0, 0x020, 0xA1}) {
		t.Errorf("writes = %+v, want one write {0 0x020 0xA1}", f.Writes)
	}
	if f.ClockHz != 4*3579545 {
		t.Errorf("clock = %d, want %d", f.ClockHz, 4*3579545)
	}
}

func TestVGM_DefaultClock(t *testing.T) {
	f, err := parseVGM(buildVGM(0, []byte{0x66}))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if f.ClockHz != ymf262.DefaultClock {
		t.Errorf("clock = %d, want default %d", f.ClockHz, ymf262.DefaultClock)
	}
}

// --- Looping ---

func TestVGM_LoopPoint(t *testing.T) {
	data := buildVGM(14318180, []byte{
		0x5E, 0x20, 0x01, // sample 0
		0x61, 0x64, 0x00, // wait 100
		0x5E, 0x40, 0x3F, // sample 100, loop rewinds to here
		0x61, 0x32, 0x00, // wait 50
		0x66,
	})
	binary.LittleEndian.PutUint32(data[0x18:], 150)       // total samples
	binary.LittleEndian.PutUint32(data[0x1C:], 0x66-0x1C) // loop offset to the second write

	f, err := parseVGM(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if !f.HasLoop {
		t.Fatal("loop offset set but HasLoop is clear")
	}
	if f.LoopSample != 100 {
		t.Errorf("loop sample = %d, want 100", f.LoopSample)
	}
	if f.LoopIndex != 1 {
		t.Errorf("loop index = %d, want 1", f.LoopIndex)
	}
	if f.TotalSamples != 150 {
		t.Errorf("total samples = %d, want 150", f.TotalSamples)
	}
}

func TestVGM_LoopFromLengthOnly(t *testing.T) {
	// No loop offset, but the header declares 60 looped samples out
	// of 150: the loop point is counted back from the end.
	data := buildVGM(14318180, []byte{
		0x5E, 0x20, 0x01, // sample 0
		0x61, 0x64, 0x00, // wait 100
		0x5E, 0x40, 0x3F, // sample 100
		0x61, 0x32, 0x00, // wait 50
		0x66,
	})
	binary.LittleEndian.PutUint32(data[0x18:], 150)
	binary.LittleEndian.PutUint32(data[0x20:], 60)

	f, err := parseVGM(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if !f.HasLoop {
		t.Fatal("loop length set but HasLoop is clear")
	}
	if f.LoopSample != 90 {
		t.Errorf("loop sample = %d, want 90", f.LoopSample)
	}
	if f.LoopIndex != 1 {
		t.Errorf("loop index = %d, want 1", f.LoopIndex)
	}
}

// --- Helpers ---

// buildVGM assembles a v1.51 VGM image with the given YMF262 clock:
// a 0x60-byte header with the command stream immediately after it.
// Header fields the test cares about are patched into the result.
func buildVGM(clock uint32, commands []byte) []byte {
	data := make([]byte, 0x60, 0x60+len(commands))
	copy(data, "Vgm ")
	binary.LittleEndian.PutUint32(data[0x08:], 0x00000151)
	binary.LittleEndian.PutUint32(data[0x34:], 0x60-0x34)
	binary.LittleEndian.PutUint32(data[0x5C:], clock)
	data = append(data, commands...)
	binary.LittleEndian.PutUint32(data[0x04:], uint32(len(data)-4))
	return data
}
