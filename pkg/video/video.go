// Package video models the display adapter families of a PC/XT: the
// MDA and CGA control latches, the EGA attribute controller, the VGA
// sequencer, graphics controller, DAC and CRTC register files, the
// four-plane memory pipeline behind the 0xA0000 aperture, and the
// INT 10h services the core needs.
package video

import (
	"fmt"
	"log/slog"

	"go86/pkg/cpu"
	"go86/pkg/ports"
)

// Family is the adapter generation a mode belongs to.
type Family int

const (
	MDA Family = iota
	CGA
	EGA
	VGA
)

const maxPages = 16

// Cursor is a per-page text cursor position.
type Cursor struct {
	X, Y byte
}

// Timing supplies the status-register bits the guest polls at
// 0x3BA/0x3DA: bit 0 is horizontal retrace, bit 3 display active. The
// adapter only forwards it; pacing is the collaborator's business.
type Timing interface {
	Status() byte
}

// TickTiming is the default Timing: a free-running counter advanced on
// every status read, so a guest polling for retrace always makes
// progress.
type TickTiming struct {
	n uint64
}

func (t *TickTiming) Status() byte {
	t.n++
	var s byte
	if t.n&3 == 0 {
		s |= 0x01 // horizontal retrace
	}
	if t.n&63 < 48 {
		s |= 0x08 // display active
	}
	return s
}

// Adapter is the display adapter state machine.
type Adapter struct {
	log    *slog.Logger
	bus    *ports.Bus
	timing Timing

	mode       byte
	family     Family
	graphics   bool
	width      int
	height     int
	cols, rows int
	base       uint32
	activePage byte
	cursors    [maxPages]Cursor
	noBlanking bool

	// CRTC address latch and data file, shared across families
	crtAddr byte
	crt     [32]byte

	// sequencer (0x3C4/0x3C5)
	seqAddr byte
	seq     [256]byte

	// graphics controller (0x3CE/0x3CF)
	gcAddr byte
	gc     [256]byte

	// DAC (0x3C6-0x3C9): 24-bit entries, 6-bit channels at bits
	// 18..23 (R), 10..15 (G), 2..7 (B)
	dac           [256]uint32
	dacState      byte
	dacReadIdx    byte
	dacWriteIdx   byte
	dacReadPhase  byte
	dacWritePhase byte
	dacMask       byte

	// EGA attribute controller (0x3C0)
	attrFlipflop bool // false = address phase
	attrAddr     byte
	egaPal       [16]uint32
	attrReg      [32]byte

	// MDA/CGA latches
	mdaControl byte
	cgaControl byte
	cgaPalette byte

	// four 64K memory planes and the read latch
	planes [4][0x10000]byte
	latch  uint32
}

func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Adapter{
		log:     logger,
		timing:  &TickTiming{},
		family:  VGA,
		cols:    80,
		rows:    25,
		base:    0xB8000,
		mode:    0x03,
		dacMask: 0xFF,
	}
	// power-on state leaves all planes writable and every bit enabled
	a.seq[seqMapMask] = 0x0F
	a.gc[gcBitMask] = 0xFF
	return a
}

// SetTiming replaces the status-register collaborator.
func (a *Adapter) SetTiming(t Timing) {
	a.timing = t
}

// Install claims the adapter's three port windows and wires the shadow
// fallback for the ports inside them that nobody decodes.
func (a *Adapter) Install(bus *ports.Bus) {
	a.bus = bus
	bus.HandleIn(0x3B0, 0x3BF, ports.InFunc(a.mdaIn))
	bus.HandleOut(0x3B0, 0x3BF, ports.OutFunc(a.mdaOut))
	bus.HandleIn(0x3C0, 0x3CF, ports.InFunc(a.egaIn))
	bus.HandleOut(0x3C0, 0x3CF, ports.OutFunc(a.egaOut))
	bus.HandleIn(0x3D0, 0x3DF, ports.InFunc(a.cgaIn))
	bus.HandleOut(0x3D0, 0x3DF, ports.OutFunc(a.cgaOut))
}

// statusRead services 0x3BA and 0x3DA: resets the attribute flip-flop
// to address mode and returns the low timing bits.
func (a *Adapter) statusRead() byte {
	a.attrFlipflop = false
	return a.timing.Status()&0x03 | 0xF0
}

// ---- ports 0x3B0-0x3BF (MDA) ----

func (a *Adapter) mdaIn(port uint16) byte {
	switch {
	case port <= 0x3B7:
		if port&1 != 0 {
			return a.crt[a.crtAddr]
		}
		// write only, but return it anyway
		return a.crtAddr
	case port == 0x3B8:
		return a.mdaControl
	case port == 0x3BA:
		return a.statusRead()
	}
	return a.bus.Shadow(port)
}

func (a *Adapter) mdaOut(port uint16, value byte) {
	switch {
	case port <= 0x3B7:
		if port&1 != 0 {
			a.crt[a.crtAddr] = value
		} else {
			a.crtAddr = value & 0x1F
		}
	case port == 0x3B8:
		a.mdaControl = value
	default:
		a.bus.SetShadow(port, value)
	}
}

// ---- ports 0x3C0-0x3CF (EGA/VGA) ----

func (a *Adapter) egaIn(port uint16) byte {
	switch port {
	case 0x3C0:
		return a.attrAddr
	case 0x3C4:
		return a.seqAddr
	case 0x3C5:
		return a.seq[a.seqAddr]
	case 0x3C6:
		return a.dacMask
	case 0x3C7:
		return a.dacState & 0x03
	case 0x3C8:
		return a.dacWriteIdx
	case 0x3C9:
		return a.dacDataRead()
	case 0x3CE:
		return a.gcAddr
	case 0x3CF:
		return a.gc[a.gcAddr]
	default:
		return a.bus.Shadow(port)
	}
}

func (a *Adapter) egaOut(port uint16, value byte) {
	switch port {
	case 0x3C0:
		a.attrWrite(value)
	case 0x3C4:
		a.seqAddr = value
	case 0x3C5:
		a.seq[a.seqAddr] = value
	case 0x3C6:
		// pixel mask: stored, not applied
		a.dacMask = value
	case 0x3C7:
		a.dacReadIdx = value
		a.dacReadPhase = 0
		a.dacState = 0x00 // accepting reads
	case 0x3C8:
		a.dacWriteIdx = value
		a.dacWritePhase = 0
		a.dacState = 0x03 // accepting writes
	case 0x3C9:
		a.dacDataWrite(value)
	case 0x3CE:
		a.gcAddr = value
	case 0x3CF:
		a.gc[a.gcAddr] = value
	default:
		a.bus.SetShadow(port, value)
	}
}

// attrWrite is the 0x3C0 flip-flop state machine: address phase, then
// data phase, toggling after every write. Indices below 16 are palette
// entries converted from the 6-bit ..rgbRGB layout.
func (a *Adapter) attrWrite(value byte) {
	if a.attrFlipflop {
		if a.attrAddr < 16 {
			a.egaPal[a.attrAddr] = attrToRGB(value)
		} else {
			a.attrReg[a.attrAddr] = value
		}
	} else {
		a.attrAddr = value & 0x1F
	}
	a.attrFlipflop = !a.attrFlipflop
}

// attrToRGB expands a 6-bit EGA colour (..rgbRGB: primary bits 5..3,
// secondary bits 2..0) into packed 24-bit RGB.
func attrToRGB(value byte) uint32 {
	r := value>>4&2 | value>>2&1
	g := value>>3&2 | value>>1&1
	b := value>>2&2 | value&1
	lut := [4]byte{0x00, 0xAA, 0x55, 0xFF}
	return uint32(lut[r])<<16 | uint32(lut[g])<<8 | uint32(lut[b])
}

// dacDataRead cycles R, G, B per access and auto-increments the read
// index after the blue channel.
func (a *Adapter) dacDataRead() byte {
	var out byte
	switch a.dacReadPhase {
	case 0:
		out = byte(a.dac[a.dacReadIdx] >> 18 & 0x3F)
		a.dacReadPhase = 1
	case 1:
		out = byte(a.dac[a.dacReadIdx] >> 10 & 0x3F)
		a.dacReadPhase = 2
	default:
		out = byte(a.dac[a.dacReadIdx] >> 2 & 0x3F)
		a.dacReadPhase = 0
		a.dacReadIdx++
	}
	return out
}

func (a *Adapter) dacDataWrite(value byte) {
	switch a.dacWritePhase {
	case 0:
		a.dac[a.dacWriteIdx] = a.dac[a.dacWriteIdx]&0x00FFFF | uint32(value)<<18
		a.dacWritePhase = 1
	case 1:
		a.dac[a.dacWriteIdx] = a.dac[a.dacWriteIdx]&0xFF00FF | uint32(value)<<10
		a.dacWritePhase = 2
	default:
		a.dac[a.dacWriteIdx] = a.dac[a.dacWriteIdx]&0xFFFF00 | uint32(value)<<2
		a.dacWritePhase = 0
		a.dacWriteIdx++
	}
}

// ---- ports 0x3D0-0x3DF (CGA) ----

func (a *Adapter) cgaIn(port uint16) byte {
	switch {
	case port <= 0x3D7:
		if port&1 != 0 {
			return a.crt[a.crtAddr]
		}
		return a.crtAddr
	case port == 0x3D8:
		return a.cgaControl
	case port == 0x3D9:
		return a.cgaPalette
	case port == 0x3DA:
		return a.statusRead()
	}
	return a.bus.Shadow(port)
}

func (a *Adapter) cgaOut(port uint16, value byte) {
	switch {
	case port <= 0x3D7:
		if port&1 != 0 {
			a.crt[a.crtAddr] = value
		} else {
			a.crtAddr = value & 0x1F
		}
	case port == 0x3D8:
		a.cgaControl = value
	case port == 0x3D9:
		a.cgaPalette = value
	default:
		a.bus.SetShadow(port, value)
	}
}

// CRTRegister exposes a CRTC data byte (cursor address, display start)
// for presenters.
func (a *Adapter) CRTRegister(index int) byte {
	return a.crt[index&0x1F]
}

// ---- INT 10h ----

// SetVideoMode implements INT 10h AH=00h. Bit 7 of the mode byte asks
// for no display blanking and is stripped before the lookup.
func (a *Adapter) SetVideoMode(al byte) {
	a.noBlanking = al&0x80 != 0
	al &= 0x7F

	a.log.Debug("set video mode", slog.String("mode", fmt.Sprintf("%02Xh", al)))

	switch al {
	case 0x00, 0x01, 0x04, 0x05, 0x0D, 0x13:
		a.cols, a.rows = 40, 25
	case 0x02, 0x03, 0x06, 0x07, 0x0E, 0x0F, 0x10:
		a.cols, a.rows = 80, 25
	case 0x11, 0x12:
		a.cols, a.rows = 80, 30
	}

	a.graphics = true
	switch al {
	case 0x04, 0x05, 0x0D, 0x13:
		a.width, a.height = 320, 200
	case 0x06, 0x0E:
		a.width, a.height = 640, 200
	case 0x0F, 0x10:
		a.width, a.height = 640, 350
	case 0x11, 0x12:
		a.width, a.height = 640, 480
	default:
		a.graphics = false
	}

	switch {
	case al <= 0x07:
		a.base = 0xB8000
	case al >= 0x0D && al <= 0x13:
		a.base = 0xA0000
	}

	switch {
	case al == 0x07:
		a.family = MDA
	case al <= 0x06:
		a.family = CGA
	case al <= 0x10:
		a.family = EGA
	default:
		a.family = VGA
	}

	a.mode = al
}

// Int10 services the video BIOS calls the core provides natively.
// Unhandled functions return false so the vectored BIOS routine runs.
func (a *Adapter) Int10(c *cpu.CPU) bool {
	switch c.AH() {
	case 0x00: // set video mode
		a.SetVideoMode(c.AL())
	case 0x01: // set cursor shape: accepted, not modelled
	case 0x02: // set cursor position
		page := c.BH() & (maxPages - 1)
		a.cursors[page] = Cursor{X: c.DL(), Y: c.DH()}
	case 0x03: // get cursor position and shape
		page := c.BH() & (maxPages - 1)
		cur := a.cursors[page]
		c.AX = 0
		c.SetCH(0)
		c.SetCL(0)
		c.SetDH(cur.Y)
		c.SetDL(cur.X)
	case 0x05: // select active display page
		a.activePage = c.AL() & (maxPages - 1)
	case 0x0F: // report current mode
		c.SetAH(byte(a.cols))
		al := a.mode
		if a.noBlanking {
			al |= 0x80
		}
		c.SetAL(al)
		c.SetBH(a.activePage)
	default:
		return false
	}
	return true
}

// Mode returns the current mode number.
func (a *Adapter) Mode() byte { return a.mode }

// Family returns the adapter generation of the current mode.
func (a *Adapter) Family() Family { return a.family }

// Graphics reports whether the mode is a graphics mode.
func (a *Adapter) Graphics() bool { return a.graphics }

// Resolution returns the pixel geometry of a graphics mode.
func (a *Adapter) Resolution() (int, int) { return a.width, a.height }

// TextSize returns the character cell geometry.
func (a *Adapter) TextSize() (cols, rows int) { return a.cols, a.rows }

// Base returns the framebuffer base the mode uses.
func (a *Adapter) Base() uint32 { return a.base }

// ActivePage returns the displayed text page.
func (a *Adapter) ActivePage() byte { return a.activePage }

// CursorAt returns the cursor of a text page.
func (a *Adapter) CursorAt(page byte) Cursor { return a.cursors[page&(maxPages-1)] }
