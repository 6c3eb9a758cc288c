package video

import (
	"testing"

	"go86/pkg/cpu"
	"go86/pkg/memory"
	"go86/pkg/ports"
)

func newAdapter(t *testing.T) (*Adapter, *ports.Bus) {
	t.Helper()
	bus := ports.New()
	a := New(nil)
	a.Install(bus)
	return a, bus
}

func TestDACRoundTrip(t *testing.T) {
	_, bus := newAdapter(t)

	bus.Out(0x3C8, 7) // write index
	bus.Out(0x3C9, 0x2A)
	bus.Out(0x3C9, 0x15)
	bus.Out(0x3C9, 0x3F)

	bus.Out(0x3C7, 7) // read index
	for i, want := range []byte{0x2A, 0x15, 0x3F} {
		if got := bus.In(0x3C9); got != want {
			t.Errorf("channel %d: expected 0x%02X, got 0x%02X", i, want, got)
		}
	}

	// index auto-increments after blue on both sides
	bus.Out(0x3C8, 0xFF)
	bus.Out(0x3C9, 1)
	bus.Out(0x3C9, 2)
	bus.Out(0x3C9, 3)
	bus.Out(0x3C9, 4) // wrapped to entry 0, red channel
	bus.Out(0x3C7, 0)
	if got := bus.In(0x3C9); got != 4 {
		t.Errorf("index wrap: expected 4, got %d", got)
	}
}

func TestDACStateRegister(t *testing.T) {
	_, bus := newAdapter(t)

	bus.Out(0x3C7, 0)
	if got := bus.In(0x3C7); got != 0x00 {
		t.Errorf("state after read-index write: expected 0, got 0x%02X", got)
	}
	bus.Out(0x3C8, 0)
	if got := bus.In(0x3C7); got != 0x03 {
		t.Errorf("state after write-index write: expected 3, got 0x%02X", got)
	}
}

func TestAttributeFlipFlop(t *testing.T) {
	a, bus := newAdapter(t)

	// address phase, then data phase: palette entry 1 gets bright white
	bus.Out(0x3C0, 0x01)
	bus.Out(0x3C0, 0x3F)
	if got := a.egaPal[1]; got != 0xFFFFFF {
		t.Errorf("palette entry 1: expected 0xFFFFFF, got 0x%06X", got)
	}

	// flip-flop toggled back to address mode after two writes: this
	// write selects an address again
	bus.Out(0x3C0, 0x12)
	if got := bus.In(0x3C0); got != 0x12 {
		t.Errorf("attr address: expected 0x12, got 0x%02X", got)
	}

	// a status read forces address mode regardless of phase
	bus.In(0x3DA)
	bus.Out(0x3C0, 0x05)
	if got := bus.In(0x3C0); got != 0x05 {
		t.Errorf("attr address after 3DA reset: expected 0x05, got 0x%02X", got)
	}

	// indices 16 and up store raw bytes
	bus.In(0x3BA)
	bus.Out(0x3C0, 0x14)
	bus.Out(0x3C0, 0x77)
	if got := a.attrReg[0x14]; got != 0x77 {
		t.Errorf("attr register 0x14: expected 0x77, got 0x%02X", got)
	}
}

func TestAttrToRGB(t *testing.T) {
	cases := []struct {
		in   byte
		want uint32
	}{
		{0x00, 0x000000},
		{0x07, 0xAAAAAA}, // RGB secondary bits only
		{0x38, 0x555555}, // rgb primary bits only
		{0x3F, 0xFFFFFF},
		{0x04, 0xAA0000}, // red secondary
	}
	for _, c := range cases {
		if got := attrToRGB(c.in); got != c.want {
			t.Errorf("attrToRGB(0x%02X): expected 0x%06X, got 0x%06X", c.in, c.want, got)
		}
	}
}

func TestCRTCIndexData(t *testing.T) {
	a, bus := newAdapter(t)

	// CGA range
	bus.Out(0x3D4, 0x0E)
	bus.Out(0x3D5, 0x12)
	if got := a.CRTRegister(0x0E); got != 0x12 {
		t.Errorf("CRTC[0x0E]: expected 0x12, got 0x%02X", got)
	}
	if got := bus.In(0x3D5); got != 0x12 {
		t.Errorf("CRTC data read: expected 0x12, got 0x%02X", got)
	}
	if got := bus.In(0x3D4); got != 0x0E {
		t.Errorf("CRTC address read: expected 0x0E, got 0x%02X", got)
	}

	// the address latch is shared with the MDA window
	bus.Out(0x3B4, 0x0F)
	bus.Out(0x3B5, 0x34)
	if got := bus.In(0x3D5); got != 0x34 {
		t.Errorf("shared CRTC latch: expected 0x34, got 0x%02X", got)
	}
}

func TestStatusRegister(t *testing.T) {
	_, bus := newAdapter(t)
	for i := 0; i < 16; i++ {
		v := bus.In(0x3DA)
		if v&0xF0 != 0xF0 {
			t.Fatalf("status high bits: expected 0xF0 set, got 0x%02X", v)
		}
		if v&^0xF3 != 0 {
			t.Fatalf("status must only carry bits 0-1: got 0x%02X", v)
		}
	}
}

func TestSetVideoMode(t *testing.T) {
	cases := []struct {
		al         byte
		cols, rows int
		w, h       int
		graphics   bool
		base       uint32
	}{
		{0x03, 80, 25, 0, 0, false, 0xB8000},
		{0x04, 40, 25, 320, 200, true, 0xB8000},
		{0x06, 80, 25, 640, 200, true, 0xB8000},
		{0x0D, 40, 25, 320, 200, true, 0xA0000},
		{0x12, 80, 30, 640, 480, true, 0xA0000},
		{0x13, 40, 25, 320, 200, true, 0xA0000},
	}
	for _, c := range cases {
		a := New(nil)
		a.SetVideoMode(c.al)
		if a.Mode() != c.al {
			t.Errorf("mode %02X: stored mode 0x%02X", c.al, a.Mode())
		}
		cols, rows := a.TextSize()
		if cols != c.cols || rows != c.rows {
			t.Errorf("mode %02X: text %dx%d, expected %dx%d", c.al, cols, rows, c.cols, c.rows)
		}
		if a.Graphics() != c.graphics {
			t.Errorf("mode %02X: graphics=%v", c.al, a.Graphics())
		}
		if c.graphics {
			w, h := a.Resolution()
			if w != c.w || h != c.h {
				t.Errorf("mode %02X: %dx%d, expected %dx%d", c.al, w, h, c.w, c.h)
			}
		}
		if a.Base() != c.base {
			t.Errorf("mode %02X: base %05X, expected %05X", c.al, a.Base(), c.base)
		}
	}
}

func TestNoBlankingBit(t *testing.T) {
	a := New(nil)
	a.SetVideoMode(0x93) // mode 13h with bit 7 set
	if a.Mode() != 0x13 {
		t.Errorf("mode: expected 0x13, got 0x%02X", a.Mode())
	}

	mem := memory.New()
	bus := ports.New()
	c := cpu.New(mem, bus, nil)
	c.SetAH(0x0F)
	if !a.Int10(c) {
		t.Fatal("AH=0F must be handled")
	}
	if c.AL() != 0x93 {
		t.Errorf("reported mode: expected 0x93, got 0x%02X", c.AL())
	}
	if c.AH() != 40 {
		t.Errorf("reported columns: expected 40, got %d", c.AH())
	}
}

func TestInt10Cursor(t *testing.T) {
	a := New(nil)
	mem := memory.New()
	bus := ports.New()
	c := cpu.New(mem, bus, nil)

	c.SetAH(0x02)
	c.SetBH(3)
	c.SetDH(12)
	c.SetDL(40)
	if !a.Int10(c) {
		t.Fatal("AH=02 must be handled")
	}

	c.SetAH(0x03)
	c.SetBH(3)
	a.Int10(c)
	if c.DH() != 12 || c.DL() != 40 {
		t.Errorf("cursor readback: expected 12/40, got %d/%d", c.DH(), c.DL())
	}

	c.SetAH(0x05)
	c.SetAL(2)
	a.Int10(c)
	if a.ActivePage() != 2 {
		t.Errorf("active page: expected 2, got %d", a.ActivePage())
	}

	c.SetAH(0x44) // not a core function
	if a.Int10(c) {
		t.Error("unknown function must not claim the interrupt")
	}
}

func TestTextCell(t *testing.T) {
	a := New(nil)
	a.SetVideoMode(0x03)
	mem := memory.New()
	// row 1, column 2 on page 0: offset (1*80+2)*2
	mem.Write8(0xB8000+(80+2)*2, 'A')
	mem.Write8(0xB8000+(80+2)*2+1, 0x1F)
	ch, attr := a.TextCell(mem, 2, 1)
	if ch != 'A' || attr != 0x1F {
		t.Errorf("TextCell: expected 'A'/0x1F, got %c/0x%02X", ch, attr)
	}
}
