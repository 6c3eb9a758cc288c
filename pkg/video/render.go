package video

import "go86/pkg/memory"

// cgaColors is the canonical 16-colour CGA/EGA palette as packed RGB.
var cgaColors = [16]uint32{
	0x000000, 0x0000AA, 0x00AA00, 0x00AAAA,
	0xAA0000, 0xAA00AA, 0xAA5500, 0xAAAAAA,
	0x555555, 0x5555FF, 0x55FF55, 0x55FFFF,
	0xFF5555, 0xFF55FF, 0xFFFF55, 0xFFFFFF,
}

// CGAColor returns a packed RGB value for a 4-bit attribute colour.
func CGAColor(idx byte) uint32 {
	return cgaColors[idx&0x0F]
}

// dacRGB expands a 24-bit DAC entry (6-bit channels at 18/10/2) to
// 8-bit channels.
func (a *Adapter) dacRGB(idx byte) uint32 {
	e := a.dac[idx]
	r := byte(e >> 18 & 0x3F)
	g := byte(e >> 10 & 0x3F)
	b := byte(e >> 2 & 0x3F)
	return uint32(r<<2|r>>4)<<16 | uint32(g<<2|g>>4)<<8 | uint32(b<<2|b>>4)
}

// TextCell returns the character and attribute of a text-mode cell on
// the active page. Presenters that render their own glyphs (the
// console) read cells; the desktop presenter draws them with a font.
func (a *Adapter) TextCell(mem *memory.Bus, col, row int) (ch, attr byte) {
	pageSize := uint32(2048)
	if a.cols == 80 {
		pageSize = 4096
	}
	off := a.base + uint32(a.activePage)*pageSize + uint32(row*a.cols+col)*2
	ram := mem.RAM()
	return ram[off&0xFFFFF], ram[(off+1)&0xFFFFF]
}

// RenderRGBA decodes the current graphics mode into an RGBA8888 pixel
// slice. Text modes return nil; they are rendered cell by cell by the
// presenters. Presenter reads race with the guest by design; tearing is
// acceptable, so no locking here.
func (a *Adapter) RenderRGBA(mem *memory.Bus) ([]byte, int, int) {
	if !a.graphics {
		return nil, 0, 0
	}
	w, h := a.width, a.height
	pix := make([]byte, w*h*4)

	switch a.mode {
	case 0x04, 0x05:
		a.renderCGA4(mem, pix)
	case 0x06:
		a.renderCGA2(mem, pix)
	case 0x0D, 0x0E, 0x0F, 0x10, 0x11, 0x12:
		a.renderPlanar(pix)
	case 0x13:
		a.renderChain4(pix)
	}
	return pix, w, h
}

func putRGB(pix []byte, i int, rgb uint32) {
	pix[i] = byte(rgb >> 16)
	pix[i+1] = byte(rgb >> 8)
	pix[i+2] = byte(rgb)
	pix[i+3] = 0xFF
}

// renderCGA4 decodes 320x200 2bpp out of the interleaved CGA buffer at
// 0xB8000. The palette register picks background and one of the two
// fixed colour sets.
func (a *Adapter) renderCGA4(mem *memory.Bus, pix []byte) {
	ram := mem.RAM()
	bg := CGAColor(a.cgaPalette & 0x0F)
	pal := [4]uint32{bg, cgaColors[3], cgaColors[5], cgaColors[7]}
	if a.cgaPalette&0x20 == 0 {
		pal = [4]uint32{bg, cgaColors[2], cgaColors[4], cgaColors[6]}
	}
	for y := 0; y < 200; y++ {
		line := 0xB8000 + uint32(y&1)*0x2000 + uint32(y>>1)*80
		for x := 0; x < 320; x++ {
			b := ram[line+uint32(x>>2)]
			c := b >> (6 - 2*(x&3)) & 3
			putRGB(pix, (y*320+x)*4, pal[c])
		}
	}
}

// renderCGA2 decodes 640x200 1bpp.
func (a *Adapter) renderCGA2(mem *memory.Bus, pix []byte) {
	ram := mem.RAM()
	for y := 0; y < 200; y++ {
		line := 0xB8000 + uint32(y&1)*0x2000 + uint32(y>>1)*80
		for x := 0; x < 640; x++ {
			b := ram[line+uint32(x>>3)]
			if b>>(7-x&7)&1 != 0 {
				putRGB(pix, (y*640+x)*4, cgaColors[15])
			} else {
				putRGB(pix, (y*640+x)*4, cgaColors[0])
			}
		}
	}
}

// renderPlanar decodes the 16-colour planar modes: one bit per plane
// per pixel, colour through the attribute palette.
func (a *Adapter) renderPlanar(pix []byte) {
	stride := a.width / 8
	for y := 0; y < a.height; y++ {
		for x := 0; x < a.width; x++ {
			off := uint32(y*stride + x>>3)
			bit := uint(7 - x&7)
			var idx byte
			for p := uint(0); p < 4; p++ {
				idx |= a.planes[p][off] >> bit & 1 << p
			}
			putRGB(pix, (y*a.width+x)*4, a.egaPal[idx])
		}
	}
}

// renderChain4 decodes mode 13h: pixel i lives in plane i&3 at offset
// i>>2, colour through the DAC.
func (a *Adapter) renderChain4(pix []byte) {
	for i := 0; i < 320*200; i++ {
		idx := a.planes[i&3][i>>2]
		putRGB(pix, i*4, a.dacRGB(idx))
	}
}
