package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/user-none/go-chip-ymf262"
)

// chipWrite is a single YMF262 register write from the command stream.
// Sample is the absolute stream position in VGM samples (1/44100 s).
type chipWrite struct {
	Sample uint64
	Reg    uint16
	Value  uint8
}

// vgmFile is a parsed VGM or VGZ command stream reduced to YMF262
// register writes and their timing.
type vgmFile struct {
	Writes       []chipWrite
	Version      uint32
	ClockHz      uint32
	TotalSamples uint64
	LoopSample   uint64 // stream position the loop rewinds to
	LoopIndex    int    // first write at or after LoopSample
	HasLoop      bool
}

// versionString formats the BCD header version, e.g. 0x151 -> "1.51".
func (f *vgmFile) versionString() string {
	return fmt.Sprintf("%x.%02x", f.Version>>8, f.Version&0xFF)
}

// loadVGM reads and parses a VGM or VGZ file.
func loadVGM(path string) (*vgmFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseVGM(data)
}

// parseVGM parses a VGM image, transparently decompressing VGZ. Writes
// addressed to the chip's two ports are kept; commands for other chips
// are skipped by their operand size so the timing stays intact.
func parseVGM(data []byte) (*vgmFile, error) {
	if len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("vgz: %w", err)
		}
		defer gz.Close()
		data, err = io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("vgz: %w", err)
		}
	}
	if len(data) < 0x40 {
		return nil, fmt.Errorf("vgm: file too short")
	}
	if !bytes.Equal(data[0:4], []byte("Vgm ")) {
		return nil, fmt.Errorf("vgm: bad magic")
	}

	f := &vgmFile{
		Version:      binary.LittleEndian.Uint32(data[0x08:0x0C]),
		TotalSamples: uint64(binary.LittleEndian.Uint32(data[0x18:0x1C])),
	}

	loopOffset := binary.LittleEndian.Uint32(data[0x1C:0x20])
	loopSamples := uint64(binary.LittleEndian.Uint32(data[0x20:0x24]))
	loopStart := 0
	if loopOffset != 0 {
		loopStart = 0x1C + int(loopOffset)
	}

	dataStart := 0x40
	if off := binary.LittleEndian.Uint32(data[0x34:0x38]); off != 0 {
		dataStart = 0x34 + int(off)
	}
	if dataStart >= len(data) {
		return nil, fmt.Errorf("vgm: data offset out of range")
	}

	// The YMF262 clock lives at 0x5C (v1.51 headers). Older OPL2 rips
	// carry a YM3812 clock at 0x50 instead; the OPL3 runs those at four
	// times the OPL2 master clock for the same output rate. Bit 30 is
	// the dual-chip flag; only the first chip is played.
	if dataStart >= 0x60 {
		f.ClockHz = binary.LittleEndian.Uint32(data[0x5C:0x60]) & 0x3FFFFFFF
	}
	if f.ClockHz == 0 && dataStart >= 0x54 {
		f.ClockHz = 4 * (binary.LittleEndian.Uint32(data[0x50:0x54]) & 0x3FFFFFFF)
	}
	if f.ClockHz == 0 {
		f.ClockHz = ymf262.DefaultClock
	}

	samplePos := uint64(0)
	for i := dataStart; i < len(data); {
		if loopStart != 0 && !f.HasLoop && i == loopStart {
			f.LoopSample = samplePos
			f.LoopIndex = len(f.Writes)
			f.HasLoop = true
		}
		cmd := data[i]
		switch {
		case cmd == 0x66:
			i = len(data)
		case cmd == 0x5E || cmd == 0x5A:
			// YMF262 port 0, or a YM3812 write played in OPL2 mode
			if i+3 > len(data) {
				return nil, fmt.Errorf("vgm: truncated command 0x%02X at offset 0x%X", cmd, i)
			}
			f.Writes = append(f.Writes, chipWrite{samplePos, uint16(data[i+1]), data[i+2]})
			i += 3
		case cmd == 0x5F:
			if i+3 > len(data) {
				return nil, fmt.Errorf("vgm: truncated command 0x%02X at offset 0x%X", cmd, i)
			}
			f.Writes = append(f.Writes, chipWrite{samplePos, 0x100 | uint16(data[i+1]), data[i+2]})
			i += 3
		case cmd == 0x61:
			if i+3 > len(data) {
				return nil, fmt.Errorf("vgm: truncated command 0x%02X at offset 0x%X", cmd, i)
			}
			samplePos += uint64(binary.LittleEndian.Uint16(data[i+1 : i+3]))
			i += 3
		case cmd == 0x62:
			samplePos += 735
			i++
		case cmd == 0x63:
			samplePos += 882
			i++
		case cmd >= 0x70 && cmd <= 0x7F:
			samplePos += uint64(cmd&0x0F) + 1
			i++
		case cmd >= 0x80 && cmd <= 0x8F:
			// YM2612 DAC write folded into a wait
			samplePos += uint64(cmd & 0x0F)
			i++
		case cmd == 0x67:
			if i+6 >= len(data) || data[i+1] != 0x66 {
				return nil, fmt.Errorf("vgm: bad data block at offset 0x%X", i)
			}
			blockLen := binary.LittleEndian.Uint32(data[i+3 : i+7])
			i += 7 + int(blockLen)
		default:
			n := commandLen(cmd)
			if i+n > len(data) {
				return nil, fmt.Errorf("vgm: truncated command 0x%02X at offset 0x%X", cmd, i)
			}
			i += n
		}
	}

	if len(f.Writes) > 0 {
		f.TotalSamples = max(f.TotalSamples, f.Writes[len(f.Writes)-1].Sample+1)
	}

	// Headers that declare a loop length without a reachable loop
	// offset still loop, counted back from the end.
	if !f.HasLoop && loopSamples > 0 && f.TotalSamples >= loopSamples {
		f.LoopSample = f.TotalSamples - loopSamples
		f.LoopIndex = len(f.Writes)
		for j, w := range f.Writes {
			if w.Sample >= f.LoopSample {
				f.LoopIndex = j
				break
			}
		}
		f.HasLoop = true
	}

	return f, nil
}

// commandLen returns the total byte length of a command the player does
// not act on, so unrelated chip writes are skipped cleanly.
func commandLen(cmd byte) int {
	switch {
	case cmd >= 0x30 && cmd <= 0x3F:
		return 2 // one-operand reserved range
	case cmd >= 0x40 && cmd <= 0x4E:
		return 3 // reserved two-operand range
	case cmd == 0x4F || cmd == 0x50:
		return 2 // Game Gear stereo, SN76489
	case cmd >= 0x51 && cmd <= 0x5D:
		return 3 // other FM chip writes
	case cmd == 0x68:
		return 12 // PCM RAM write
	case cmd == 0x90 || cmd == 0x91 || cmd == 0x95:
		return 5 // DAC stream setup/data/start
	case cmd == 0x92:
		return 6 // DAC stream frequency
	case cmd == 0x93:
		return 11 // DAC stream start
	case cmd == 0x94:
		return 2 // DAC stream stop
	case cmd >= 0xA0 && cmd <= 0xBF:
		return 3 // second-chip and misc two-operand writes
	case cmd >= 0xC0 && cmd <= 0xDF:
		return 4
	case cmd >= 0xE0:
		return 5 // seek and other four-operand commands
	}
	return 1
}
