package machine

import (
	"os"
	"path/filepath"
	"testing"
)

// boot loads a program at 0000:0100 and points the CPU at it, skipping
// the BIOS entry path.
func boot(m *Machine, code ...byte) {
	m.Mem.LoadBinary(0x100, code, false)
	m.CPU.CS = 0
	m.CPU.IP = 0x100
	m.CPU.SS = 0x9000
	m.CPU.SP = 0xFFFE
}

func runProgram(t *testing.T, m *Machine) {
	t.Helper()
	for i := 0; i < 100 && !m.CPU.Halted; i++ {
		if err := m.Step(1000); err != nil {
			t.Fatal(err)
		}
	}
	if !m.CPU.Halted {
		t.Fatal("program did not halt")
	}
}

func TestMovScenario(t *testing.T) {
	m := New(nil)
	boot(m, 0xB8, 0x34, 0x12, 0x89, 0xC3, 0xF4)
	runProgram(t, m)
	if m.CPU.AX != 0x1234 || m.CPU.BX != 0x1234 {
		t.Errorf("AX=%04X BX=%04X, expected both 0x1234", m.CPU.AX, m.CPU.BX)
	}
}

func TestIMRThroughPort(t *testing.T) {
	m := New(nil)
	// program the PIC, then OUT 0x21,0x5A from guest code:
	// MOV AL,0x13 / OUT 0x20,AL / MOV AL,0x08 / OUT 0x21,AL /
	// MOV AL,0x01 / OUT 0x21,AL / MOV AL,0x5A / OUT 0x21,AL / HLT
	boot(m,
		0xB0, 0x13, 0xE6, 0x20,
		0xB0, 0x08, 0xE6, 0x21,
		0xB0, 0x01, 0xE6, 0x21,
		0xB0, 0x5A, 0xE6, 0x21,
		0xF4)
	runProgram(t, m)

	if got := m.Ports.In(0x21); got != 0x5A {
		t.Errorf("IMR: expected 0x5A, got 0x%02X", got)
	}

	// a masked IRQ is never returned
	m.PIC.Raise(1) // bit 1 is set in 0x5A
	if _, ok := m.PIC.NextInterrupt(); ok {
		t.Error("masked IRQ1 must not be delivered")
	}
	m.PIC.Raise(0) // bit 0 is clear
	if vec, ok := m.PIC.NextInterrupt(); !ok || vec != 0x08 {
		t.Errorf("IRQ0: expected vector 0x08, got 0x%02X ok=%v", vec, ok)
	}
}

func TestVGAPlaneWriteProgram(t *testing.T) {
	m := New(nil)
	// out 0x3CE,0x05 / out 0x3CF,0x00: write mode 0
	// out 0x3C4,0x02 / out 0x3C5,0x0F: all planes enabled
	// mov byte [A000:0000],0xFF
	boot(m,
		0xBA, 0xCE, 0x03, 0xB0, 0x05, 0xEE,
		0xBA, 0xCF, 0x03, 0xB0, 0x00, 0xEE,
		0xBA, 0xC4, 0x03, 0xB0, 0x02, 0xEE,
		0xBA, 0xC5, 0x03, 0xB0, 0x0F, 0xEE,
		0xB8, 0x00, 0xA0, // mov ax,0xA000
		0x8E, 0xD8, // mov ds,ax
		0xC6, 0x06, 0x00, 0x00, 0xFF, // mov byte [0],0xFF
		0xF4)
	runProgram(t, m)

	for i := 0; i < 4; i++ {
		if got := m.Video.Plane(i, 0); got != 0xFF {
			t.Errorf("plane %d: expected 0xFF, got 0x%02X", i, got)
		}
	}
}

func TestSetResetProgram(t *testing.T) {
	m := New(nil)
	// GC 0=0x0F (sr value), GC 1=0x0F (sr enable), GC 8=0xFF, write
	// mode 0: any data byte paints 0xFF on every plane
	boot(m,
		0xBA, 0xCE, 0x03, 0xB0, 0x00, 0xEE,
		0xBA, 0xCF, 0x03, 0xB0, 0x0F, 0xEE,
		0xBA, 0xCE, 0x03, 0xB0, 0x01, 0xEE,
		0xBA, 0xCF, 0x03, 0xB0, 0x0F, 0xEE,
		0xBA, 0xCE, 0x03, 0xB0, 0x08, 0xEE,
		0xBA, 0xCF, 0x03, 0xB0, 0xFF, 0xEE,
		0xBA, 0xCE, 0x03, 0xB0, 0x05, 0xEE,
		0xBA, 0xCF, 0x03, 0xB0, 0x00, 0xEE,
		0xB8, 0x00, 0xA0,
		0x8E, 0xD8,
		0xC6, 0x06, 0x40, 0x00, 0x12, // mov byte [0x40],0x12
		0xF4)
	runProgram(t, m)

	for i := 0; i < 4; i++ {
		if got := m.Video.Plane(i, 0x40); got != 0xFF {
			t.Errorf("plane %d: expected 0xFF, got 0x%02X", i, got)
		}
	}
}

func TestInt10SetMode(t *testing.T) {
	m := New(nil)
	// MOV AX,0x0013 / INT 10h / HLT
	boot(m, 0xB8, 0x13, 0x00, 0xCD, 0x10, 0xF4)
	runProgram(t, m)

	if m.Video.Mode() != 0x13 {
		t.Errorf("mode: expected 0x13, got 0x%02X", m.Video.Mode())
	}
	w, h := m.Video.Resolution()
	if w != 320 || h != 200 {
		t.Errorf("resolution: expected 320x200, got %dx%d", w, h)
	}
	if m.Video.Base() != 0xA0000 {
		t.Errorf("base: expected 0xA0000, got %05X", m.Video.Base())
	}
}

func TestIRQDelivery(t *testing.T) {
	m := New(nil)
	// IRQ0 vector (0x08) points to a handler that sets BX and halts
	m.Mem.Write16(0x08*4, 0x0200)
	m.Mem.Write16(0x08*4+2, 0x0000)
	m.Mem.LoadBinary(0x200, []byte{0xBB, 0xAD, 0xDE, 0xF4}, false) // MOV BX,0xDEAD / HLT

	// main program: program PIC, STI, then idle
	boot(m,
		0xB0, 0x13, 0xE6, 0x20,
		0xB0, 0x08, 0xE6, 0x21,
		0xB0, 0x01, 0xE6, 0x21,
		0xB0, 0x00, 0xE6, 0x21, // unmask everything
		0xFB, // STI
		0xF4) // HLT until the IRQ arrives
	runProgram(t, m)

	m.PIC.Raise(0)
	if err := m.Step(10); err != nil {
		t.Fatal(err)
	}
	// the CPU woke, vectored, and ran the handler
	for i := 0; i < 10 && !m.CPU.Halted; i++ {
		if err := m.Step(10); err != nil {
			t.Fatal(err)
		}
	}
	if m.CPU.BX != 0xDEAD {
		t.Errorf("IRQ handler did not run: BX=%04X", m.CPU.BX)
	}
}

func TestPressKey(t *testing.T) {
	m := New(nil)
	m.PressKey(0x1C)
	if got := m.Ports.In(0x60); got != 0x1C {
		t.Errorf("port 0x60: expected 0x1C, got 0x%02X", got)
	}
	if !m.PIC.KeyboardWaitingAck() {
		t.Error("keyboard IRQ should be waiting for ack")
	}
}

func TestHardReset(t *testing.T) {
	m := New(nil)
	boot(m, 0xB8, 0x34, 0x12, 0xF4)
	runProgram(t, m)

	m.Reset()
	m.running.Store(true)
	// Run honours the flag between batches; emulate one loop turn
	if m.hardReset.Swap(false) {
		m.CPU.Reset()
	}
	if m.CPU.CS != 0xFFFF || m.CPU.IP != 0 {
		t.Errorf("reset state: CS:IP=%04X:%04X", m.CPU.CS, m.CPU.IP)
	}
}

func TestBootFromFloppy(t *testing.T) {
	m := New(nil)

	img := make([]byte, 1474560)
	// boot sector: MOV AX,0x7777 / HLT
	copy(img, []byte{0xB8, 0x77, 0x77, 0xF4})
	path := filepath.Join(t.TempDir(), "boot.img")
	if err := os.WriteFile(path, img, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := m.InsertDisk(0, path); err != nil {
		t.Fatal(err)
	}
	m.SetBootDrive(0)
	m.Bootstrap()

	if m.CPU.CS != 0 || m.CPU.IP != 0x7C00 {
		t.Fatalf("bootstrap: CS:IP=%04X:%04X", m.CPU.CS, m.CPU.IP)
	}
	runProgram(t, m)
	if m.CPU.AX != 0x7777 {
		t.Errorf("boot sector did not run: AX=%04X", m.CPU.AX)
	}
}

func TestROMProtection(t *testing.T) {
	m := New(nil)
	m.Mem.LoadBinary(0xF0000, []byte{0xAA, 0xBB}, true)

	// MOV AX,0xF000 / MOV DS,AX / MOV byte [0],0x00 / HLT
	boot(m,
		0xB8, 0x00, 0xF0,
		0x8E, 0xD8,
		0xC6, 0x06, 0x00, 0x00, 0x00,
		0xF4)
	runProgram(t, m)

	if got := m.Mem.Read8(0xF0000); got != 0xAA {
		t.Errorf("ROM overwritten: got 0x%02X", got)
	}
}
