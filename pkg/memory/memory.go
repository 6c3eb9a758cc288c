// Package memory provides the 1 MiB address space within which the
// emulator executes guest code. Writes are gated by a per-byte read-only
// mask so that loaded ROMs cannot be overwritten by the guest, and
// accesses to the EGA/VGA aperture are routed to the display adapter.
package memory

import (
	"fmt"
	"os"
)

// Size is the full 8086 address space, 1 MiB.
const Size = 0x100000

const (
	apertureStart = 0xA0000
	apertureEnd   = 0xAFFFF
)

// BIOSEnd is the top of the address space; a BIOS image is loaded so
// that its last byte lands at BIOSEnd-1.
const BIOSEnd = 0x100000

// Aperture handles CPU accesses to the display adapter's planar
// framebuffer window. Addresses passed in are relative to 0xA0000.
type Aperture interface {
	ReadAperture(offset uint32) byte
	WriteAperture(offset uint32, value byte)
}

// Bus is the system memory: flat RAM plus the read-only mask and the
// video aperture hook.
type Bus struct {
	ram      [Size]byte
	readonly [Size]bool
	video    Aperture
}

func New() *Bus {
	return &Bus{}
}

// AttachVideo routes aperture accesses to the given adapter. With no
// adapter attached the aperture behaves as plain RAM.
func (b *Bus) AttachVideo(a Aperture) {
	b.video = a
}

// Linear converts a segment:offset pair to a linear address with the
// 8086's 20-bit wraparound (there is no A20 gate on this machine).
func Linear(seg, off uint16) uint32 {
	return (uint32(seg)<<4 + uint32(off)) & 0xFFFFF
}

func (b *Bus) Read8(addr uint32) byte {
	addr &= 0xFFFFF
	if addr >= apertureStart && addr <= apertureEnd && b.video != nil {
		return b.video.ReadAperture(addr - apertureStart)
	}
	return b.ram[addr]
}

// Read16 reads a little-endian word. Misaligned access is legal on the
// 8086 and the two bytes may straddle the aperture edge.
func (b *Bus) Read16(addr uint32) uint16 {
	return uint16(b.Read8(addr)) | uint16(b.Read8(addr+1))<<8
}

func (b *Bus) Write8(addr uint32, value byte) {
	addr &= 0xFFFFF
	if addr >= apertureStart && addr <= apertureEnd && b.video != nil {
		b.video.WriteAperture(addr-apertureStart, value)
		return
	}
	if b.readonly[addr] {
		return
	}
	b.ram[addr] = value
}

func (b *Bus) Write16(addr uint32, value uint16) {
	b.Write8(addr, byte(value))
	b.Write8(addr+1, byte(value>>8))
}

// MarkReadOnly flags [addr, addr+size) as ROM. Writes to these bytes
// are silently dropped.
func (b *Bus) MarkReadOnly(addr, size uint32) {
	for i := uint32(0); i < size && addr+i < Size; i++ {
		b.readonly[addr+i] = true
	}
}

// ReadOnly reports whether addr carries the ROM mask.
func (b *Bus) ReadOnly(addr uint32) bool {
	return b.readonly[addr&0xFFFFF]
}

// LoadBinary copies data into RAM at addr, bypassing both the read-only
// mask and the aperture, and optionally marks the region as ROM.
func (b *Bus) LoadBinary(addr uint32, data []byte, ro bool) {
	copy(b.ram[addr:], data)
	if ro {
		b.MarkReadOnly(addr, uint32(len(data)))
	}
}

// LoadROM loads an option ROM image file at addr and marks it read-only.
// It returns the image size.
func (b *Bus) LoadROM(addr uint32, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("memory: load rom: %w", err)
	}
	if uint32(len(data)) > Size-addr {
		return 0, fmt.Errorf("memory: rom %q does not fit at %05X", path, addr)
	}
	b.LoadBinary(addr, data, true)
	return len(data), nil
}

// LoadBIOS loads the system BIOS so that it ends at the top of the
// address space and marks it read-only. It returns the image size.
func (b *Bus) LoadBIOS(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("memory: load bios: %w", err)
	}
	if len(data) > 0x10000 {
		return 0, fmt.Errorf("memory: bios %q larger than 64K", path)
	}
	addr := uint32(BIOSEnd - len(data))
	b.LoadBinary(addr, data, true)
	return len(data), nil
}

// RAM exposes the backing array for presenters sampling the text-mode
// framebuffer at 0xB8000. Presenter reads are tolerated as racy.
func (b *Bus) RAM() []byte {
	return b.ram[:]
}
