package cpu

// Flag bit positions in the pushed FLAGS word.
const (
	flagCF = 0x0001
	flagPF = 0x0004
	flagAF = 0x0010
	flagZF = 0x0040
	flagSF = 0x0080
	flagTF = 0x0100
	flagIF = 0x0200
	flagDF = 0x0400
	flagOF = 0x0800
)

// FlagsWord packs the flag booleans into the 8086 FLAGS layout. Bit 1
// is always set; bits 12-15 read as set on a real 8086.
func (r *Registers) FlagsWord() uint16 {
	var f uint16 = 0xF002
	if r.CF {
		f |= flagCF
	}
	if r.PF {
		f |= flagPF
	}
	if r.AF {
		f |= flagAF
	}
	if r.ZF {
		f |= flagZF
	}
	if r.SF {
		f |= flagSF
	}
	if r.TF {
		f |= flagTF
	}
	if r.IF {
		f |= flagIF
	}
	if r.DF {
		f |= flagDF
	}
	if r.OF {
		f |= flagOF
	}
	return f
}

// SetFlagsWord unpacks a FLAGS word (POPF, IRET).
func (r *Registers) SetFlagsWord(f uint16) {
	r.CF = f&flagCF != 0
	r.PF = f&flagPF != 0
	r.AF = f&flagAF != 0
	r.ZF = f&flagZF != 0
	r.SF = f&flagSF != 0
	r.TF = f&flagTF != 0
	r.IF = f&flagIF != 0
	r.DF = f&flagDF != 0
	r.OF = f&flagOF != 0
}

// setFlags8 unpacks the low flag byte (SAHF).
func (r *Registers) setFlags8(f byte) {
	r.CF = f&flagCF != 0
	r.PF = f&flagPF != 0
	r.AF = f&flagAF != 0
	r.ZF = f&flagZF != 0
	r.SF = f&flagSF != 0
}

// flags8 packs the low flag byte (LAHF).
func (r *Registers) flags8() byte {
	var f byte = 0x02
	if r.CF {
		f |= flagCF
	}
	if r.PF {
		f |= flagPF
	}
	if r.AF {
		f |= flagAF
	}
	if r.ZF {
		f |= flagZF
	}
	if r.SF {
		f |= flagSF
	}
	return f
}

func (c *CPU) szp8(res byte) {
	c.SF = res&0x80 != 0
	c.ZF = res == 0
	c.PF = parity[res]
}

func (c *CPU) szp16(res uint16) {
	c.SF = res&0x8000 != 0
	c.ZF = res == 0
	c.PF = parity[byte(res)]
}

// add8 computes a+b+carry, setting CF, AF, OF, SF, ZF, PF.
func (c *CPU) add8(a, b byte, carry uint32) byte {
	x, y := uint32(a), uint32(b)
	res := x + y + carry
	c.CF = res&0x100 != 0
	c.AF = (x^y^res)&0x10 != 0
	c.OF = (res^x)&(res^y)&0x80 != 0
	c.szp8(byte(res))
	return byte(res)
}

func (c *CPU) add16(a, b uint16, carry uint32) uint16 {
	x, y := uint32(a), uint32(b)
	res := x + y + carry
	c.CF = res&0x10000 != 0
	c.AF = (x^y^res)&0x10 != 0
	c.OF = (res^x)&(res^y)&0x8000 != 0
	c.szp16(uint16(res))
	return uint16(res)
}

// sub8 computes a-(b+borrow), setting CF, AF, OF, SF, ZF, PF.
func (c *CPU) sub8(a, b byte, borrow uint32) byte {
	x, y := uint32(a), uint32(b)+borrow
	res := x - y
	c.CF = res&0x100 != 0
	c.AF = (x^y^res)&0x10 != 0
	c.OF = (res^x)&(x^y)&0x80 != 0
	c.szp8(byte(res))
	return byte(res)
}

func (c *CPU) sub16(a, b uint16, borrow uint32) uint16 {
	x, y := uint32(a), uint32(b)+borrow
	res := x - y
	c.CF = res&0x10000 != 0
	c.AF = (x^y^res)&0x10 != 0
	c.OF = (res^x)&(x^y)&0x8000 != 0
	c.szp16(uint16(res))
	return uint16(res)
}

// logic8 sets the flags for AND/OR/XOR/TEST results: CF and OF clear.
func (c *CPU) logic8(res byte) byte {
	c.CF, c.OF = false, false
	c.szp8(res)
	return res
}

func (c *CPU) logic16(res uint16) uint16 {
	c.CF, c.OF = false, false
	c.szp16(res)
	return res
}

// parity is true where the index holds an even number of set bits (PF
// is even parity of the low 8 result bits on the 8086).
var parity = [256]bool{
	true, false, false, true, false, true, true, false, false, true, true, false, true, false, false, true,
	false, true, true, false, true, false, false, true, true, false, false, true, false, true, true, false,
	false, true, true, false, true, false, false, true, true, false, false, true, false, true, true, false,
	true, false, false, true, false, true, true, false, false, true, true, false, true, false, false, true,
	false, true, true, false, true, false, false, true, true, false, false, true, false, true, true, false,
	true, false, false, true, false, true, true, false, false, true, true, false, true, false, false, true,
	true, false, false, true, false, true, true, false, false, true, true, false, true, false, false, true,
	false, true, true, false, true, false, false, true, true, false, false, true, false, true, true, false,
	false, true, true, false, true, false, false, true, true, false, false, true, false, true, true, false,
	true, false, false, true, false, true, true, false, false, true, true, false, true, false, false, true,
	true, false, false, true, false, true, true, false, false, true, true, false, true, false, false, true,
	false, true, true, false, true, false, false, true, true, false, false, true, false, true, true, false,
	true, false, false, true, false, true, true, false, false, true, true, false, true, false, false, true,
	false, true, true, false, true, false, false, true, true, false, false, true, false, true, true, false,
	false, true, true, false, true, false, false, true, true, false, false, true, false, true, true, false,
	true, false, false, true, false, true, true, false, false, true, true, false, true, false, false, true,
}
