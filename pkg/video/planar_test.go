package video

import (
	"testing"

	"go86/pkg/ports"
)

// gcSet programs a graphics-controller register through the ports.
func gcSet(bus *ports.Bus, index, value byte) {
	bus.Out(0x3CE, index)
	bus.Out(0x3CF, value)
}

func seqSet(bus *ports.Bus, index, value byte) {
	bus.Out(0x3C4, index)
	bus.Out(0x3C5, value)
}

func TestWriteMode0Identity(t *testing.T) {
	a, bus := newAdapter(t)
	// sr_enable=0, bit_mask=0xFF, logic op 0, rot 0, all planes: the
	// pipeline is the identity
	gcSet(bus, 0x05, 0x00)
	gcSet(bus, 0x01, 0x00)
	gcSet(bus, 0x08, 0xFF)
	gcSet(bus, 0x03, 0x00)
	seqSet(bus, 0x02, 0x0F)

	a.WriteAperture(5, 0x6C)
	for i := 0; i < 4; i++ {
		if got := a.Plane(i, 5); got != 0x6C {
			t.Errorf("plane %d: expected 0x6C, got 0x%02X", i, got)
		}
	}
}

func TestWriteMode0SetReset(t *testing.T) {
	a, bus := newAdapter(t)
	// sr enabled on all planes, sr value all ones: any write paints
	// 0xFF everywhere
	gcSet(bus, 0x00, 0x0F)
	gcSet(bus, 0x01, 0x0F)
	gcSet(bus, 0x08, 0xFF)
	gcSet(bus, 0x05, 0x00)
	seqSet(bus, 0x02, 0x0F)

	a.WriteAperture(0, 0x12)
	for i := 0; i < 4; i++ {
		if got := a.Plane(i, 0); got != 0xFF {
			t.Errorf("plane %d: expected 0xFF, got 0x%02X", i, got)
		}
	}

	// sr value 0b0101: planes 0 and 2 get 0xFF, planes 1 and 3 get 0
	gcSet(bus, 0x00, 0x05)
	a.WriteAperture(1, 0x12)
	want := [4]byte{0xFF, 0x00, 0xFF, 0x00}
	for i := 0; i < 4; i++ {
		if got := a.Plane(i, 1); got != want[i] {
			t.Errorf("plane %d: expected 0x%02X, got 0x%02X", i, want[i], got)
		}
	}
}

func TestWriteMode0Rotate(t *testing.T) {
	a, bus := newAdapter(t)
	gcSet(bus, 0x05, 0x00)
	gcSet(bus, 0x01, 0x00)
	gcSet(bus, 0x08, 0xFF)
	gcSet(bus, 0x03, 0x01) // rotate right by 1
	seqSet(bus, 0x02, 0x0F)

	a.WriteAperture(0, 0x01)
	if got := a.Plane(0, 0); got != 0x80 {
		t.Errorf("rotated write: expected 0x80, got 0x%02X", got)
	}
}

func TestPlaneWriteEnable(t *testing.T) {
	a, bus := newAdapter(t)
	gcSet(bus, 0x05, 0x00)
	gcSet(bus, 0x01, 0x00)
	gcSet(bus, 0x08, 0xFF)
	seqSet(bus, 0x02, 0x0A) // planes 1 and 3 only

	a.WriteAperture(3, 0x55)
	want := [4]byte{0x00, 0x55, 0x00, 0x55}
	for i := 0; i < 4; i++ {
		if got := a.Plane(i, 3); got != want[i] {
			t.Errorf("plane %d: expected 0x%02X, got 0x%02X", i, want[i], got)
		}
	}
}

func TestLatchAndWriteMode1(t *testing.T) {
	a, bus := newAdapter(t)
	seqSet(bus, 0x02, 0x0F)
	gcSet(bus, 0x08, 0xFF)

	// seed distinct plane bytes at offset 9 through mode 0 writes
	for i := 0; i < 4; i++ {
		seqSet(bus, 0x02, 1<<i)
		a.WriteAperture(9, byte(0x10*(i+1)))
	}
	seqSet(bus, 0x02, 0x0F)

	// a read fills the latch with all four planes
	a.ReadAperture(9)
	if got := a.Latch(); got != 0x40302010 {
		t.Fatalf("latch: expected 0x40302010, got 0x%08X", got)
	}

	// write mode 1 copies the latch regardless of the data byte
	gcSet(bus, 0x05, 0x01)
	a.WriteAperture(100, 0xEE)
	for i := 0; i < 4; i++ {
		want := byte(0x10 * (i + 1))
		if got := a.Plane(i, 100); got != want {
			t.Errorf("plane %d: expected 0x%02X, got 0x%02X", i, want, got)
		}
	}
}

func TestWriteMode2(t *testing.T) {
	a, bus := newAdapter(t)
	seqSet(bus, 0x02, 0x0F)
	gcSet(bus, 0x08, 0xFF)
	gcSet(bus, 0x05, 0x02)

	// low nibble is the colour: 0b0110 paints planes 1 and 2
	a.WriteAperture(0, 0x06)
	want := [4]byte{0x00, 0xFF, 0xFF, 0x00}
	for i := 0; i < 4; i++ {
		if got := a.Plane(i, 0); got != want[i] {
			t.Errorf("plane %d: expected 0x%02X, got 0x%02X", i, want[i], got)
		}
	}
}

func TestWriteMode2BitMask(t *testing.T) {
	a, bus := newAdapter(t)
	seqSet(bus, 0x02, 0x0F)
	gcSet(bus, 0x08, 0xFF)
	gcSet(bus, 0x05, 0x00)
	gcSet(bus, 0x01, 0x00)

	// background byte on every plane, then latch it
	a.WriteAperture(7, 0x55)
	a.ReadAperture(7)

	// masked mode 2 write: only the high nibble bits take the colour
	gcSet(bus, 0x05, 0x02)
	gcSet(bus, 0x08, 0xF0)
	a.WriteAperture(7, 0x0F)
	for i := 0; i < 4; i++ {
		if got := a.Plane(i, 7); got != 0xF5 {
			t.Errorf("plane %d: expected 0xF5, got 0x%02X", i, got)
		}
	}
}

func TestWriteMode3(t *testing.T) {
	a, bus := newAdapter(t)
	seqSet(bus, 0x02, 0x0F)
	gcSet(bus, 0x05, 0x00)
	gcSet(bus, 0x01, 0x00)
	gcSet(bus, 0x08, 0xFF)

	// latch a background of 0x00
	a.WriteAperture(2, 0x00)
	a.ReadAperture(2)

	// sr value 0b0011, bit mask 0xFF, data 0x3C: planes 0-1 get 0x3C
	// from set/reset, planes 2-3 keep the latch
	gcSet(bus, 0x05, 0x03)
	gcSet(bus, 0x00, 0x03)
	a.WriteAperture(2, 0x3C)
	want := [4]byte{0x3C, 0x3C, 0x00, 0x00}
	for i := 0; i < 4; i++ {
		if got := a.Plane(i, 2); got != want[i] {
			t.Errorf("plane %d: expected 0x%02X, got 0x%02X", i, want[i], got)
		}
	}
}

func TestALUOps(t *testing.T) {
	a, bus := newAdapter(t)
	seqSet(bus, 0x02, 0x0F)
	gcSet(bus, 0x01, 0x00)
	gcSet(bus, 0x08, 0xFF)
	gcSet(bus, 0x05, 0x00)

	// plane background 0x0F, latched
	a.WriteAperture(4, 0x0F)
	a.ReadAperture(4)

	cases := []struct {
		op   byte
		want byte
	}{
		{0 << 3, 0x33}, // passthrough
		{1 << 3, 0x03}, // AND latch
		{2 << 3, 0x3F}, // OR latch
		{3 << 3, 0x3C}, // XOR latch
	}
	for _, c := range cases {
		gcSet(bus, 0x03, c.op)
		a.WriteAperture(4, 0x33)
		if got := a.Plane(0, 4); got != c.want {
			t.Errorf("logic op %d: expected 0x%02X, got 0x%02X", c.op>>3, c.want, got)
		}
		// restore the background for the next case
		gcSet(bus, 0x03, 0)
		a.WriteAperture(4, 0x0F)
		a.ReadAperture(4)
	}
}

func TestReadMode0(t *testing.T) {
	a, bus := newAdapter(t)
	gcSet(bus, 0x08, 0xFF)
	for i := 0; i < 4; i++ {
		seqSet(bus, 0x02, 1<<i)
		a.WriteAperture(0, byte(i+1))
	}

	gcSet(bus, 0x05, 0x00) // read mode 0
	for i := byte(0); i < 4; i++ {
		gcSet(bus, 0x04, i) // read map select
		if got := a.ReadAperture(0); got != i+1 {
			t.Errorf("read map %d: expected %d, got %d", i, i+1, got)
		}
	}
}

func TestReadMode1(t *testing.T) {
	a, bus := newAdapter(t)
	gcSet(bus, 0x08, 0xFF)

	// pixel colours across the byte: plane bytes chosen so bit 7 is
	// colour 0b0101 and bit 0 is colour 0b0000
	seqSet(bus, 0x02, 0x01)
	a.WriteAperture(0, 0x80)
	seqSet(bus, 0x02, 0x04)
	a.WriteAperture(0, 0x80)
	seqSet(bus, 0x02, 0x0A)
	a.WriteAperture(0, 0x00)

	gcSet(bus, 0x05, 0x08)            // read mode 1
	gcSet(bus, gcColorCompare, 0x05)  // compare colour 0b0101
	gcSet(bus, gcColorDontCare, 0x0F) // include all planes
	if got := a.ReadAperture(0); got != 0x80 { // only bit 7 matches
		t.Errorf("colour compare: expected 0x80, got 0x%02X", got)
	}

	// excluding planes 1 and 3 from the compare makes every bit whose
	// planes 0 and 2 hold 0b101's bits match
	gcSet(bus, gcColorDontCare, 0x05)
	if got := a.ReadAperture(0); got != 0x80 {
		t.Errorf("partial compare: expected 0x80, got 0x%02X", got)
	}

	// comparing colour 0 matches every other pixel position
	gcSet(bus, gcColorCompare, 0x00)
	gcSet(bus, gcColorDontCare, 0x0F)
	if got := a.ReadAperture(0); got != 0x7F {
		t.Errorf("compare zero: expected 0x7F, got 0x%02X", got)
	}

	// a don't-care mask of zero compares nothing: all bits match
	gcSet(bus, gcColorDontCare, 0x00)
	if got := a.ReadAperture(0); got != 0xFF {
		t.Errorf("nothing compared: expected 0xFF, got 0x%02X", got)
	}
}

func TestRenderChain4(t *testing.T) {
	a, bus := newAdapter(t)
	a.SetVideoMode(0x13)

	// DAC entry 1 = pure red at full 6-bit intensity
	bus.Out(0x3C8, 1)
	bus.Out(0x3C9, 0x3F)
	bus.Out(0x3C9, 0x00)
	bus.Out(0x3C9, 0x00)

	// pixel 0 lives in plane 0, offset 0
	a.planes[0][0] = 1

	pix, w, h := a.RenderRGBA(nil)
	if w != 320 || h != 200 {
		t.Fatalf("resolution: expected 320x200, got %dx%d", w, h)
	}
	if pix[0] != 0xFF || pix[1] != 0x00 || pix[2] != 0x00 || pix[3] != 0xFF {
		t.Errorf("pixel 0: expected red, got %v", pix[:4])
	}
}
