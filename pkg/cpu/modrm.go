package cpu

import "go86/pkg/memory"

// modRM is the decoded addressing-mode byte. When mod is not 3, ea is
// the effective linear address of the memory operand. numBytes counts
// the bytes consumed after the opcode (the mod-reg-rm byte plus any
// displacement: 1, 2, or 3).
type modRM struct {
	mod, reg, rm byte
	off          uint16 // 16-bit offset before segment translation
	ea           uint32
	numBytes     int
}

// decodeModRM decodes the bytes immediately following an opcode. code
// must hold at least three bytes. It reads register state but mutates
// nothing; the caller advances IP by numBytes.
func (c *CPU) decodeModRM(code []byte) modRM {
	b := code[0]
	m := modRM{
		mod: b >> 6 & 3,
		reg: b >> 3 & 7,
		rm:  b & 7,
	}

	if m.mod == 3 {
		// rm designates a register, no memory operand
		m.numBytes = 1
		return m
	}

	var base uint16
	switch m.rm {
	case 0:
		base = c.BX + c.SI
	case 1:
		base = c.BX + c.DI
	case 2:
		base = c.BP + c.SI
	case 3:
		base = c.BP + c.DI
	case 4:
		base = c.SI
	case 5:
		base = c.DI
	case 6:
		base = c.BP
	case 7:
		base = c.BX
	}

	var disp uint16
	switch m.mod {
	case 0:
		if m.rm == 6 {
			// direct 16-bit address, no register base
			base = 0
			disp = uint16(code[1]) | uint16(code[2])<<8
			m.numBytes = 3
		} else {
			m.numBytes = 1
		}
	case 1:
		disp = signExtend(code[1])
		m.numBytes = 2
	case 2:
		disp = uint16(code[1]) | uint16(code[2])<<8
		m.numBytes = 3
	}

	// default segment is SS when BP takes part in the address
	seg := c.DS
	if m.rm == 2 || m.rm == 3 || (m.rm == 6 && m.mod != 0) {
		seg = c.SS
	}
	if c.segOverride != nil {
		seg = *c.segOverride
	}

	m.off = base + disp
	m.ea = memory.Linear(seg, m.off)
	return m
}

// modRMFetch decodes the mod-reg-rm byte at CS:IP and advances IP past
// it and its displacement.
func (c *CPU) modRMFetch() modRM {
	var code [3]byte
	for i := range code {
		code[i] = c.Mem.Read8(memory.Linear(c.CS, c.IP+uint16(i)))
	}
	m := c.decodeModRM(code[:])
	c.IP += uint16(m.numBytes)
	return m
}

func (c *CPU) readRM8(m modRM) byte {
	if m.mod == 3 {
		return c.reg8(m.rm)
	}
	return c.Mem.Read8(m.ea)
}

func (c *CPU) readRM16(m modRM) uint16 {
	if m.mod == 3 {
		return c.reg16(m.rm)
	}
	return c.Mem.Read16(m.ea)
}

func (c *CPU) writeRM8(m modRM, v byte) {
	if m.mod == 3 {
		c.setReg8(m.rm, v)
		return
	}
	c.Mem.Write8(m.ea, v)
}

func (c *CPU) writeRM16(m modRM, v uint16) {
	if m.mod == 3 {
		c.setReg16(m.rm, v)
		return
	}
	c.Mem.Write16(m.ea, v)
}
