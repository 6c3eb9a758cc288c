// go86 boots a PC/XT-class machine headless: load the BIOS and option
// ROMs, insert disk images, and run the CPU. The graphical and console
// presenters live under cmd/.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"go86/pkg/machine"
)

func main() {
	bios := flag.String("bios", "bios.bin", "system BIOS image")
	videoROM := flag.String("video-rom", "", "video option ROM, loaded at C000:0000")
	ideROM := flag.String("ide-rom", "", "IDE option ROM, loaded at D000:0000")
	basicROM := flag.String("basic-rom", "", "ROM BASIC image, loaded at F600:0000")
	fd0 := flag.String("fd0", "", "floppy image for drive 0")
	fd1 := flag.String("fd1", "", "floppy image for drive 1")
	hd0 := flag.String("hd0", "", "fixed disk image for drive 0x80")
	hd1 := flag.String("hd1", "", "fixed disk image for drive 0x81")
	boot := flag.String("boot", "fd0", "boot drive: fd0, fd1, hd0, hd1, or basic")
	steps := flag.Int("steps", 0, "run this many instructions then dump registers (0 = run until the CPU stops)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	if *verbose {
		lvl.Set(slog.LevelDebug)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	m := machine.New(log)
	defer m.Close()

	if _, err := m.LoadBIOS(*bios); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load BIOS %q: %v\n", *bios, err)
		os.Exit(1)
	}
	for _, rom := range []struct {
		path string
		addr uint32
	}{
		{*videoROM, machine.VideoROMAddr},
		{*ideROM, machine.IDEROMAddr},
		{*basicROM, machine.BasicROMAddr},
	} {
		if rom.path == "" {
			continue
		}
		if _, err := m.LoadROM(rom.addr, rom.path); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load ROM %q: %v\n", rom.path, err)
			os.Exit(1)
		}
	}

	for _, d := range []struct {
		path string
		num  byte
	}{
		{*fd0, 0x00}, {*fd1, 0x01}, {*hd0, 0x80}, {*hd1, 0x81},
	} {
		if d.path == "" {
			continue
		}
		if err := m.InsertDisk(d.num, d.path); err != nil {
			fmt.Fprintf(os.Stderr, "failed to insert disk %q: %v\n", d.path, err)
			os.Exit(1)
		}
	}

	bootDrives := map[string]byte{
		"fd0": 0x00, "fd1": 0x01, "hd0": 0x80, "hd1": 0x81, "basic": 0xFF,
	}
	num, ok := bootDrives[*boot]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown boot drive %q\n", *boot)
		os.Exit(2)
	}
	m.SetBootDrive(num)

	if *steps > 0 {
		for n := 0; n < *steps; n += machine.BatchSize {
			batch := machine.BatchSize
			if rest := *steps - n; rest < batch {
				batch = rest
			}
			if err := m.Step(batch); err != nil {
				fmt.Fprintf(os.Stderr, "emulation fault: %v\n", err)
				break
			}
			if m.CPU.Halted {
				break
			}
		}
		dumpRegisters(m)
		return
	}

	if err := m.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "emulation fault: %v\n", err)
		os.Exit(1)
	}
}

func dumpRegisters(m *machine.Machine) {
	c := m.CPU
	fmt.Printf("AX=%04X BX=%04X CX=%04X DX=%04X SI=%04X DI=%04X BP=%04X SP=%04X\n",
		c.AX, c.BX, c.CX, c.DX, c.SI, c.DI, c.BP, c.SP)
	fmt.Printf("CS=%04X DS=%04X ES=%04X SS=%04X IP=%04X FLAGS=%04X halted=%v\n",
		c.CS, c.DS, c.ES, c.SS, c.IP, c.FlagsWord(), c.Halted)
}
