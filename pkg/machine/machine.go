// Package machine is the composition root: it owns the memory, port
// bus, PIC, disk service, display adapter, and CPU, wires them
// together, and runs the emulation loop.
package machine

import (
	"errors"
	"log/slog"
	"runtime"
	"sync/atomic"

	"go86/pkg/cpu"
	"go86/pkg/disk"
	"go86/pkg/memory"
	"go86/pkg/pic"
	"go86/pkg/ports"
	"go86/pkg/video"
)

// BatchSize is how many instructions run between interrupt polls and
// presenter yields.
const BatchSize = 10000

// ROM load addresses for an XT-class machine.
const (
	VideoROMAddr = 0xC0000
	IDEROMAddr   = 0xD0000
	BasicROMAddr = 0xF6000
)

// Machine aggregates the core components. The emulation loop runs in a
// single goroutine; presenters may only raise IRQs and sample
// framebuffer bytes.
type Machine struct {
	Mem   *memory.Bus
	Ports *ports.Bus
	PIC   *pic.PIC
	Disks *disk.Service
	Video *video.Adapter
	CPU   *cpu.CPU

	log *slog.Logger

	running   atomic.Bool
	hardReset atomic.Bool
}

// New wires a machine: video on the memory aperture and its port
// windows, the PIC on 0x20-0x21, and the BIOS services intercepted at
// their vectors.
func New(logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}

	mem := memory.New()
	bus := ports.New()
	ctl := pic.New()
	vid := video.New(logger)
	dsk := disk.New(mem, logger)

	ctl.Install(bus)
	vid.Install(bus)
	mem.AttachVideo(vid)

	c := cpu.New(mem, bus, logger)
	c.Intercept(0x10, vid.Int10)
	c.Intercept(0x13, dsk.Int13)
	c.Intercept(0x19, dsk.Bootstrap)

	return &Machine{
		Mem:   mem,
		Ports: bus,
		PIC:   ctl,
		Disks: dsk,
		Video: vid,
		CPU:   c,
		log:   logger,
	}
}

// LoadBIOS loads the system BIOS at the top of memory. Small XT BIOSes
// conventionally get ROM BASIC and a video ROM as well; those are the
// caller's decision via LoadROM.
func (m *Machine) LoadBIOS(path string) (int, error) {
	return m.Mem.LoadBIOS(path)
}

// LoadROM loads an option ROM image read-only at addr.
func (m *Machine) LoadROM(addr uint32, path string) (int, error) {
	return m.Mem.LoadROM(addr, path)
}

// InsertDisk attaches a disk image (or `\\`-prefixed raw device) to a
// drive slot.
func (m *Machine) InsertDisk(drivenum byte, path string) error {
	return m.Disks.Insert(drivenum, path)
}

// EjectDisk detaches a drive's medium.
func (m *Machine) EjectDisk(drivenum byte) {
	m.Disks.Eject(drivenum)
}

// SetBootDrive selects what INT 19h boots.
func (m *Machine) SetBootDrive(drivenum byte) {
	m.Disks.SetBootDrive(drivenum)
}

// Bootstrap short-circuits the BIOS boot: load the boot sector and
// vector to it.
func (m *Machine) Bootstrap() {
	m.Disks.Bootstrap(m.CPU)
}

// Step executes up to n instructions, then delivers a pending unmasked
// IRQ if the CPU will take one. A halted CPU skips straight to the
// interrupt poll, which is what HLT means here: time advances to the
// next interrupt.
func (m *Machine) Step(n int) error {
	for i := 0; i < n && !m.CPU.Halted; i++ {
		if err := m.CPU.Step(); err != nil {
			return err
		}
	}
	m.dispatchIRQ()
	return nil
}

func (m *Machine) dispatchIRQ() {
	if !m.CPU.IF {
		return
	}
	if vector, ok := m.PIC.NextInterrupt(); ok {
		m.CPU.Interrupt(vector)
	}
}

// Run drives batches until Stop is called or the CPU faults. The
// hard-reset flag is honoured between batches.
func (m *Machine) Run() error {
	m.running.Store(true)
	for m.running.Load() {
		if m.hardReset.Swap(false) {
			m.CPU.Reset()
		}
		if err := m.Step(BatchSize); err != nil {
			if !errors.Is(err, cpu.ErrInvalidOpcode) {
				return err
			}
			m.log.Error("emulation stopped", slog.String("error", err.Error()))
			return err
		}
		// brief yield so presenters can sample the framebuffer
		runtime.Gosched()
	}
	return nil
}

// Stop ends Run at the next batch boundary.
func (m *Machine) Stop() {
	m.running.Store(false)
}

// Reset requests a CPU reset at the next batch boundary.
func (m *Machine) Reset() {
	m.hardReset.Store(true)
}

// PressKey deposits a scancode at port 0x60 and raises the keyboard
// IRQ. Safe to call from a presenter goroutine.
func (m *Machine) PressKey(scancode byte) {
	m.Ports.SetShadow(0x60, scancode)
	m.PIC.Raise(1)
}

// TickTimer raises IRQ0, banking the tick if the guest has not
// acknowledged the previous one yet.
func (m *Machine) TickTimer() {
	m.PIC.TickTimer()
}

// Close releases disk handles.
func (m *Machine) Close() {
	m.Disks.Close()
}
