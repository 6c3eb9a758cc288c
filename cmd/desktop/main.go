// Desktop presenter: renders the emulated display with ebiten and
// feeds keystrokes to the machine. The emulation loop runs in its own
// goroutine; this process only samples framebuffer bytes and raises
// keyboard IRQs, the two interactions the core permits.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"go86/pkg/machine"
	"go86/pkg/video"
)

const (
	glyphW = 7
	glyphH = 13
)

// scancodes maps ebiten keys to XT (set 1) make codes.
var scancodes = map[ebiten.Key]byte{
	ebiten.KeyEscape: 0x01, ebiten.KeyDigit1: 0x02, ebiten.KeyDigit2: 0x03,
	ebiten.KeyDigit3: 0x04, ebiten.KeyDigit4: 0x05, ebiten.KeyDigit5: 0x06,
	ebiten.KeyDigit6: 0x07, ebiten.KeyDigit7: 0x08, ebiten.KeyDigit8: 0x09,
	ebiten.KeyDigit9: 0x0A, ebiten.KeyDigit0: 0x0B, ebiten.KeyMinus: 0x0C,
	ebiten.KeyEqual: 0x0D, ebiten.KeyBackspace: 0x0E, ebiten.KeyTab: 0x0F,
	ebiten.KeyQ: 0x10, ebiten.KeyW: 0x11, ebiten.KeyE: 0x12, ebiten.KeyR: 0x13,
	ebiten.KeyT: 0x14, ebiten.KeyY: 0x15, ebiten.KeyU: 0x16, ebiten.KeyI: 0x17,
	ebiten.KeyO: 0x18, ebiten.KeyP: 0x19, ebiten.KeyBracketLeft: 0x1A,
	ebiten.KeyBracketRight: 0x1B, ebiten.KeyEnter: 0x1C, ebiten.KeyControlLeft: 0x1D,
	ebiten.KeyA: 0x1E, ebiten.KeyS: 0x1F, ebiten.KeyD: 0x20, ebiten.KeyF: 0x21,
	ebiten.KeyG: 0x22, ebiten.KeyH: 0x23, ebiten.KeyJ: 0x24, ebiten.KeyK: 0x25,
	ebiten.KeyL: 0x26, ebiten.KeySemicolon: 0x27, ebiten.KeyApostrophe: 0x28,
	ebiten.KeyBackquote: 0x29, ebiten.KeyShiftLeft: 0x2A, ebiten.KeyBackslash: 0x2B,
	ebiten.KeyZ: 0x2C, ebiten.KeyX: 0x2D, ebiten.KeyC: 0x2E, ebiten.KeyV: 0x2F,
	ebiten.KeyB: 0x30, ebiten.KeyN: 0x31, ebiten.KeyM: 0x32, ebiten.KeyComma: 0x33,
	ebiten.KeyPeriod: 0x34, ebiten.KeySlash: 0x35, ebiten.KeyShiftRight: 0x36,
	ebiten.KeyAltLeft: 0x38, ebiten.KeySpace: 0x39, ebiten.KeyF1: 0x3B,
	ebiten.KeyF2: 0x3C, ebiten.KeyF3: 0x3D, ebiten.KeyF4: 0x3E, ebiten.KeyF5: 0x3F,
	ebiten.KeyF6: 0x40, ebiten.KeyF7: 0x41, ebiten.KeyF8: 0x42, ebiten.KeyF9: 0x43,
	ebiten.KeyF10: 0x44, ebiten.KeyArrowUp: 0x48, ebiten.KeyArrowLeft: 0x4B,
	ebiten.KeyArrowRight: 0x4D, ebiten.KeyArrowDown: 0x50,
}

type Game struct {
	m          *machine.Machine
	gfx        *ebiten.Image
	gfxW, gfxH int
	frame      uint64
}

func (g *Game) Update() error {
	for key, code := range scancodes {
		if inpututil.IsKeyJustPressed(key) {
			g.m.PressKey(code)
		}
		if inpututil.IsKeyJustReleased(key) {
			g.m.PressKey(code | 0x80) // break code
		}
	}

	// the PC timer runs at 18.2 Hz; fire roughly every third frame
	g.frame++
	if g.frame%3 == 0 {
		g.m.TickTimer()
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.m.Video.Graphics() {
		g.drawGraphics(screen)
		return
	}
	g.drawText(screen)
}

func (g *Game) drawGraphics(screen *ebiten.Image) {
	pix, w, h := g.m.Video.RenderRGBA(g.m.Mem)
	if pix == nil {
		return
	}
	if g.gfx == nil || g.gfxW != w || g.gfxH != h {
		g.gfx = ebiten.NewImage(w, h)
		g.gfxW, g.gfxH = w, h
	}
	g.gfx.WritePixels(pix)

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(sw)/float64(w), float64(sh)/float64(h))
	screen.DrawImage(g.gfx, op)
}

func (g *Game) drawText(screen *ebiten.Image) {
	screen.Fill(color.Black)
	cols, rows := g.m.Video.TextSize()
	face := basicfont.Face7x13
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			ch, attr := g.m.Video.TextCell(g.m.Mem, col, row)
			if ch == 0 || ch == ' ' {
				continue
			}
			rgb := video.CGAColor(attr & 0x0F)
			clr := color.RGBA{byte(rgb >> 16), byte(rgb >> 8), byte(rgb), 0xFF}
			text.Draw(screen, string(rune(ch)), face, col*glyphW, row*glyphH+glyphH-2, clr)
		}
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if g.m.Video.Graphics() {
		return g.m.Video.Resolution()
	}
	cols, rows := g.m.Video.TextSize()
	return cols * glyphW, rows * glyphH
}

func main() {
	bios := flag.String("bios", "bios.bin", "system BIOS image")
	fd0 := flag.String("fd0", "", "floppy image for drive 0")
	hd0 := flag.String("hd0", "", "fixed disk image for drive 0x80")
	boot := flag.String("boot", "fd0", "boot drive: fd0, hd0, or basic")
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

	go func() {
		if err := m.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "emulation fault: %v\n", err)
		}
	}()
	defer m.Stop()

	ebiten.SetWindowSize(640, 400)
	ebiten.SetWindowTitle("go86")
	if err := ebiten.RunGame(&Game{m: m}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
