// Console presenter: renders text-mode video memory into a terminal
// with termbox, for running DOS on a headless box. Graphics modes show
// a placeholder banner; use cmd/desktop for those.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	termbox "github.com/nsf/termbox-go"
	"golang.org/x/term"

	"go86/pkg/machine"
)

// attrColors maps the low three bits of a CGA attribute to termbox
// colours (CGA order: black, blue, green, cyan, red, magenta, brown,
// white).
var attrColors = [8]termbox.Attribute{
	termbox.ColorBlack, termbox.ColorBlue, termbox.ColorGreen, termbox.ColorCyan,
	termbox.ColorRed, termbox.ColorMagenta, termbox.ColorYellow, termbox.ColorWhite,
}

// scancodes maps termbox keys to XT make codes; printable characters
// go through charScancodes.
var scancodes = map[termbox.Key]byte{
	termbox.KeyEsc:        0x01,
	termbox.KeyBackspace2: 0x0E,
	termbox.KeyTab:        0x0F,
	termbox.KeyEnter:      0x1C,
	termbox.KeySpace:      0x39,
	termbox.KeyArrowUp:    0x48,
	termbox.KeyArrowLeft:  0x4B,
	termbox.KeyArrowRight: 0x4D,
	termbox.KeyArrowDown:  0x50,
	termbox.KeyF1:         0x3B,
	termbox.KeyF2:         0x3C,
}

var charScancodes = map[rune]byte{
	'1': 0x02, '2': 0x03, '3': 0x04, '4': 0x05, '5': 0x06,
	'6': 0x07, '7': 0x08, '8': 0x09, '9': 0x0A, '0': 0x0B,
	'-': 0x0C, '=': 0x0D,
	'q': 0x10, 'w': 0x11, 'e': 0x12, 'r': 0x13, 't': 0x14,
	'y': 0x15, 'u': 0x16, 'i': 0x17, 'o': 0x18, 'p': 0x19,
	'a': 0x1E, 's': 0x1F, 'd': 0x20, 'f': 0x21, 'g': 0x22,
	'h': 0x23, 'j': 0x24, 'k': 0x25, 'l': 0x26, ';': 0x27,
	'z': 0x2C, 'x': 0x2D, 'c': 0x2E, 'v': 0x2F, 'b': 0x30,
	'n': 0x31, 'm': 0x32, ',': 0x33, '.': 0x34, '/': 0x35,
}

func main() {
	bios := flag.String("bios", "bios.bin", "system BIOS image")
	fd0 := flag.String("fd0", "", "floppy image for drive 0")
	hd0 := flag.String("hd0", "", "fixed disk image for drive 0x80")
	boot := flag.String("boot", "fd0", "boot drive: fd0, hd0, or basic")
	flag.Parse()

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "the console presenter needs a terminal; use the root command for headless runs")
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	m := machine.New(log)
	defer m.Close()

	if _, err := m.LoadBIOS(*bios); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load BIOS %q: %v\n", *bios, err)
		os.Exit(1)
	}
	if *fd0 != "" {
		if err := m.InsertDisk(0x00, *fd0); err != nil {
			fmt.Fprintf(os.Stderr, "failed to insert %q: %v\n", *fd0, err)
			os.Exit(1)
		}
	}
	if *hd0 != "" {
		if err := m.InsertDisk(0x80, *hd0); err != nil {
			fmt.Fprintf(os.Stderr, "failed to insert %q: %v\n", *hd0, err)
			os.Exit(1)
		}
	}
	switch *boot {
	case "fd0":
		m.SetBootDrive(0x00)
	case "hd0":
		m.SetBootDrive(0x80)
	case "basic":
		m.SetBootDrive(0xFF)
	default:
		fmt.Fprintf(os.Stderr, "unknown boot drive %q\n", *boot)
		os.Exit(2)
	}

	if err := termbox.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "termbox init failed: %v\n", err)
		os.Exit(1)
	}
	defer termbox.Close()

	go func() {
		_ = m.Run()
	}()
	defer m.Stop()

	events := make(chan termbox.Event)
	go func() {
		for {
			events <- termbox.PollEvent()
		}
	}()

	frame := time.NewTicker(time.Second / 30)
	defer frame.Stop()
	timer := time.NewTicker(55 * time.Millisecond) // 18.2 Hz PC timer
	defer timer.Stop()

	for {
		select {
		case ev := <-events:
			if ev.Type != termbox.EventKey {
				continue
			}
			if ev.Key == termbox.KeyCtrlC {
				return
			}
			if code, ok := scancodes[ev.Key]; ok {
				press(m, code)
			} else if code, ok := charScancodes[ev.Ch]; ok {
				press(m, code)
			}
		case <-timer.C:
			m.TickTimer()
		case <-frame.C:
			render(m)
		}
	}
}

// press sends the make code followed by the break code; the terminal
// gives no key-up events to forward.
func press(m *machine.Machine, code byte) {
	m.PressKey(code)
	m.PressKey(code | 0x80)
}

func render(m *machine.Machine) {
	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	if m.Video.Graphics() {
		banner := "graphics mode - use cmd/desktop"
		for i, r := range banner {
			termbox.SetCell(i, 0, r, termbox.ColorWhite, termbox.ColorDefault)
		}
		termbox.Flush()
		return
	}

	cols, rows := m.Video.TextSize()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			ch, attr := m.Video.TextCell(m.Mem, col, row)
			r := rune(ch)
			if ch < 0x20 || ch >= 0x7F {
				r = ' '
			}
			fg := attrColors[attr&7]
			if attr&0x08 != 0 {
				fg |= termbox.AttrBold
			}
			bg := attrColors[attr>>4&7]
			termbox.SetCell(col, row, r, fg, bg)
		}
	}
	termbox.Flush()
}
