package cpu

import (
	"log/slog"

	"go86/pkg/memory"
)

// grp1b handles opcodes 80/82: immediate ALU ops on r/m8, sub-opcode in
// the reg field.
func (c *CPU) grp1b() {
	m := c.modRMFetch()
	a := c.readRM8(m)
	b := c.fetch8()

	var res byte
	switch m.reg {
	case 0: // ADD
		res = c.add8(a, b, 0)
	case 1: // OR
		res = c.logic8(a | b)
	case 2: // ADC
		res = c.add8(a, b, b2u(c.CF))
	case 3: // SBB
		res = c.sub8(a, b, b2u(c.CF))
	case 4: // AND
		res = c.logic8(a & b)
	case 5: // SUB
		res = c.sub8(a, b, 0)
	case 6: // XOR
		res = c.logic8(a ^ b)
	case 7: // CMP
		c.sub8(a, b, 0)
		return
	}
	c.writeRM8(m, res)
}

// grp1w handles opcodes 81/83: immediate ALU ops on r/m16. Opcode 83
// sign-extends an 8-bit immediate.
func (c *CPU) grp1w(signExt bool) {
	m := c.modRMFetch()
	a := c.readRM16(m)

	var b uint16
	if signExt {
		b = signExtend(c.fetch8())
	} else {
		b = c.fetch16()
	}

	var res uint16
	switch m.reg {
	case 0: // ADD
		res = c.add16(a, b, 0)
	case 1: // OR
		res = c.logic16(a | b)
	case 2: // ADC
		res = c.add16(a, b, b2u(c.CF))
	case 3: // SBB
		res = c.sub16(a, b, b2u(c.CF))
	case 4: // AND
		res = c.logic16(a & b)
	case 5: // SUB
		res = c.sub16(a, b, 0)
	case 6: // XOR
		res = c.logic16(a ^ b)
	case 7: // CMP
		c.sub16(a, b, 0)
		return
	}
	c.writeRM16(m, res)
}

// grp3b handles opcode F6: TEST/NOT/NEG/MUL/IMUL/DIV/IDIV on r/m8.
func (c *CPU) grp3b() {
	m := c.modRMFetch()

	switch m.reg {
	case 0, 1: // TEST r/m8,imm8
		c.logic8(c.readRM8(m) & c.fetch8())
	case 2: // NOT
		c.writeRM8(m, ^c.readRM8(m))
	case 3: // NEG
		v := c.readRM8(m)
		c.writeRM8(m, c.sub8(0, v, 0))
		c.CF = v != 0
	case 4: // MUL
		res := uint16(c.AL()) * uint16(c.readRM8(m))
		c.AX = res
		c.szp8(byte(res))
		c.CF = c.AH() != 0
		c.OF = c.CF
		c.ZF = false
	case 5: // IMUL
		res := uint32(signExtend(c.AL())) * uint32(signExtend(c.readRM8(m)))
		c.AX = uint16(res)
		c.szp8(byte(res))
		if c.AL()&0x80 != 0 {
			c.CF = c.AH() != 0xFF
		} else {
			c.CF = c.AH() != 0
		}
		c.OF = c.CF
		c.ZF = false
	case 6: // DIV
		c.opDIV8(c.AX, c.readRM8(m))
	case 7: // IDIV
		c.opIDIV8(c.AX, c.readRM8(m))
	}
}

// grp3w handles opcode F7, the 16-bit forms.
func (c *CPU) grp3w() {
	m := c.modRMFetch()

	switch m.reg {
	case 0, 1: // TEST r/m16,imm16
		c.logic16(c.readRM16(m) & c.fetch16())
	case 2: // NOT
		c.writeRM16(m, ^c.readRM16(m))
	case 3: // NEG
		v := c.readRM16(m)
		c.writeRM16(m, c.sub16(0, v, 0))
		c.CF = v != 0
	case 4: // MUL
		res := uint32(c.AX) * uint32(c.readRM16(m))
		c.DX, c.AX = uint16(res>>16), uint16(res)
		c.szp16(uint16(res))
		c.CF = c.DX != 0
		c.OF = c.CF
		c.ZF = false
	case 5: // IMUL
		res := uint32(int32(int16(c.AX)) * int32(int16(c.readRM16(m))))
		c.DX, c.AX = uint16(res>>16), uint16(res)
		c.szp16(uint16(res))
		if c.AX&0x8000 != 0 {
			c.CF = c.DX != 0xFFFF
		} else {
			c.CF = c.DX != 0
		}
		c.OF = c.CF
		c.ZF = false
	case 6: // DIV
		c.opDIV16(uint32(c.DX)<<16|uint32(c.AX), c.readRM16(m))
	case 7: // IDIV
		c.opIDIV16(uint32(c.DX)<<16|uint32(c.AX), c.readRM16(m))
	}
}

func (c *CPU) opDIV8(a uint16, b byte) {
	if b == 0 {
		c.divideError()
		return
	}
	if res := a / uint16(b); res > 0xFF {
		c.divideError()
	} else {
		c.SetAL(byte(res))
		c.SetAH(byte(a % uint16(b)))
	}
}

func (c *CPU) opIDIV8(a uint16, b byte) {
	if b == 0 {
		c.divideError()
		return
	}
	d := signExtend(b)
	sign := (a^d)&0x8000 != 0
	if a >= 0x8000 {
		a = -a
	}
	if d >= 0x8000 {
		d = -d
	}
	q, r := a/d, a%d
	if q&0xFF00 != 0 {
		c.divideError()
		return
	}
	if sign {
		q = -q & 0xFF
		r = -r & 0xFF
	}
	c.SetAL(byte(q))
	c.SetAH(byte(r))
}

func (c *CPU) opDIV16(a uint32, b uint16) {
	if b == 0 {
		c.divideError()
		return
	}
	if res := a / uint32(b); res > 0xFFFF {
		c.divideError()
	} else {
		c.AX, c.DX = uint16(res), uint16(a%uint32(b))
	}
}

func (c *CPU) opIDIV16(a uint32, b uint16) {
	if b == 0 {
		c.divideError()
		return
	}
	d := uint32(signExtend16to32(b))
	sign := (a^d)&0x80000000 != 0
	if a >= 0x80000000 {
		a = -a
	}
	if d >= 0x80000000 {
		d = -d
	}
	q, r := a/d, a%d
	if q&0xFFFF0000 != 0 {
		c.divideError()
		return
	}
	if sign {
		q = -q & 0xFFFF
		r = -r & 0xFFFF
	}
	c.AX, c.DX = uint16(q), uint16(r)
}

func signExtend16to32(v uint16) uint32 {
	return uint32(int32(int16(v)))
}

// grp4 handles opcode FE: INC/DEC r/m8. CF is preserved.
func (c *CPU) grp4() {
	m := c.modRMFetch()
	cf := c.CF
	switch m.reg {
	case 0:
		c.writeRM8(m, c.add8(c.readRM8(m), 1, 0))
	case 1:
		c.writeRM8(m, c.sub8(c.readRM8(m), 1, 0))
	default:
		c.log.Warn("grp4: unknown sub-opcode", slog.Int("reg", int(m.reg)))
		return
	}
	c.CF = cf
}

// grp5 handles opcode FF: INC/DEC/CALL/JMP/PUSH on r/m16.
func (c *CPU) grp5() {
	m := c.modRMFetch()
	switch m.reg {
	case 0: // INC
		cf := c.CF
		c.writeRM16(m, c.add16(c.readRM16(m), 1, 0))
		c.CF = cf
	case 1: // DEC
		cf := c.CF
		c.writeRM16(m, c.sub16(c.readRM16(m), 1, 0))
		c.CF = cf
	case 2: // CALL near
		v := c.readRM16(m)
		c.push16(c.IP)
		c.IP = v
	case 3: // CALL far
		ip := c.Mem.Read16(m.ea)
		cs := c.Mem.Read16(m.ea + 2)
		c.push16(c.CS)
		c.push16(c.IP)
		c.CS, c.IP = cs, ip
	case 4: // JMP near
		c.IP = c.readRM16(m)
	case 5: // JMP far
		c.IP = c.Mem.Read16(m.ea)
		c.CS = c.Mem.Read16(m.ea + 2)
	case 6: // PUSH
		c.push16(c.readRM16(m))
	default:
		c.log.Warn("grp5: unknown sub-opcode", slog.Int("reg", int(m.reg)))
	}
}

// shiftRotate8 implements the grp2 shift/rotate sub-opcodes on bytes.
// CF receives the last bit shifted out; OF follows the 8086 rules and
// is meaningful only for a count of 1. Shifts update SZP, rotates
// do not.
func (c *CPU) shiftRotate8(sub, v, count byte) byte {
	if count == 0 {
		return v
	}
	switch sub {
	case 0: // ROL
		for i := byte(0); i < count; i++ {
			msb := v >> 7
			v = v<<1 | msb
			c.CF = msb != 0
		}
		c.OF = (v>>7 != 0) != c.CF
	case 1: // ROR
		for i := byte(0); i < count; i++ {
			lsb := v & 1
			v = v>>1 | lsb<<7
			c.CF = lsb != 0
		}
		c.OF = v>>7&1 != v>>6&1
	case 2: // RCL
		for i := byte(0); i < count; i++ {
			msb := v >> 7
			v = v<<1 | byte(b2u(c.CF))
			c.CF = msb != 0
		}
		c.OF = (v>>7 != 0) != c.CF
	case 3: // RCR
		for i := byte(0); i < count; i++ {
			lsb := v & 1
			v = v>>1 | byte(b2u(c.CF))<<7
			c.CF = lsb != 0
		}
		c.OF = v>>7&1 != v>>6&1
	case 4, 6: // SHL
		for i := byte(0); i < count; i++ {
			c.CF = v&0x80 != 0
			v <<= 1
		}
		c.OF = (v>>7 != 0) != c.CF
		c.szp8(v)
	case 5: // SHR
		c.OF = v&0x80 != 0
		for i := byte(0); i < count; i++ {
			c.CF = v&1 != 0
			v >>= 1
		}
		c.szp8(v)
	case 7: // SAR
		for i := byte(0); i < count; i++ {
			c.CF = v&1 != 0
			v = v>>1 | v&0x80
		}
		c.OF = false
		c.szp8(v)
	}
	return v
}

func (c *CPU) shiftRotate16(sub byte, v uint16, count byte) uint16 {
	if count == 0 {
		return v
	}
	switch sub {
	case 0: // ROL
		for i := byte(0); i < count; i++ {
			msb := v >> 15
			v = v<<1 | msb
			c.CF = msb != 0
		}
		c.OF = (v>>15 != 0) != c.CF
	case 1: // ROR
		for i := byte(0); i < count; i++ {
			lsb := v & 1
			v = v>>1 | lsb<<15
			c.CF = lsb != 0
		}
		c.OF = v>>15&1 != v>>14&1
	case 2: // RCL
		for i := byte(0); i < count; i++ {
			msb := v >> 15
			v = v<<1 | uint16(b2u(c.CF))
			c.CF = msb != 0
		}
		c.OF = (v>>15 != 0) != c.CF
	case 3: // RCR
		for i := byte(0); i < count; i++ {
			lsb := v & 1
			v = v>>1 | uint16(b2u(c.CF))<<15
			c.CF = lsb != 0
		}
		c.OF = v>>15&1 != v>>14&1
	case 4, 6: // SHL
		for i := byte(0); i < count; i++ {
			c.CF = v&0x8000 != 0
			v <<= 1
		}
		c.OF = (v>>15 != 0) != c.CF
		c.szp16(v)
	case 5: // SHR
		c.OF = v&0x8000 != 0
		for i := byte(0); i < count; i++ {
			c.CF = v&1 != 0
			v >>= 1
		}
		c.szp16(v)
	case 7: // SAR
		for i := byte(0); i < count; i++ {
			c.CF = v&1 != 0
			v = v>>1 | v&0x8000
		}
		c.OF = false
		c.szp16(v)
	}
	return v
}

// stringOp executes one string instruction, looping while CX is
// non-zero under a REP prefix. REPE/REPNE terminate the compare and
// scan forms early on a ZF mismatch.
func (c *CPU) stringOp(op byte) {
	if c.repeat == 0 {
		c.stringOnce(op)
		return
	}
	compares := op == 0xA6 || op == 0xA7 || op == 0xAE || op == 0xAF
	for c.CX != 0 {
		c.stringOnce(op)
		c.CX--
		if compares {
			if c.repeat == 0xF3 && !c.ZF {
				break
			}
			if c.repeat == 0xF2 && c.ZF {
				break
			}
		}
	}
}

func (c *CPU) stringOnce(op byte) {
	src := memory.Linear(c.dataSeg(c.DS), c.SI)
	dst := memory.Linear(c.ES, c.DI)

	switch op {
	case 0xA4: // MOVSB
		c.Mem.Write8(dst, c.Mem.Read8(src))
		c.advSI(1)
		c.advDI(1)
	case 0xA5: // MOVSW
		c.Mem.Write16(dst, c.Mem.Read16(src))
		c.advSI(2)
		c.advDI(2)
	case 0xA6: // CMPSB
		c.sub8(c.Mem.Read8(src), c.Mem.Read8(dst), 0)
		c.advSI(1)
		c.advDI(1)
	case 0xA7: // CMPSW
		c.sub16(c.Mem.Read16(src), c.Mem.Read16(dst), 0)
		c.advSI(2)
		c.advDI(2)
	case 0xAA: // STOSB
		c.Mem.Write8(dst, c.AL())
		c.advDI(1)
	case 0xAB: // STOSW
		c.Mem.Write16(dst, c.AX)
		c.advDI(2)
	case 0xAC: // LODSB
		c.SetAL(c.Mem.Read8(src))
		c.advSI(1)
	case 0xAD: // LODSW
		c.AX = c.Mem.Read16(src)
		c.advSI(2)
	case 0xAE: // SCASB
		c.sub8(c.AL(), c.Mem.Read8(dst), 0)
		c.advDI(1)
	case 0xAF: // SCASW
		c.sub16(c.AX, c.Mem.Read16(dst), 0)
		c.advDI(2)
	}
}

func (c *CPU) advSI(n uint16) {
	if c.DF {
		c.SI -= n
	} else {
		c.SI += n
	}
}

func (c *CPU) advDI(n uint16) {
	if c.DF {
		c.DI -= n
	} else {
		c.DI += n
	}
}

func (c *CPU) opDAA() {
	if al := c.AL(); al&0xF > 9 || c.AF {
		v := uint16(al) + 6
		c.SetAL(byte(v))
		c.CF = v&0xFF00 != 0
		c.AF = true
	} else {
		c.AF = false
	}
	if al := c.AL(); al&0xF0 > 0x90 || c.CF {
		c.SetAL(al + 0x60)
		c.CF = true
	} else {
		c.CF = false
	}
	c.szp8(c.AL())
}

func (c *CPU) opDAS() {
	if al := c.AL(); al&0xF > 9 || c.AF {
		v := uint16(al) - 6
		c.SetAL(byte(v))
		c.CF = v&0xFF00 != 0
		c.AF = true
	} else {
		c.AF = false
	}
	if al := c.AL(); al&0xF0 > 0x90 || c.CF {
		c.SetAL(al - 0x60)
		c.CF = true
	} else {
		c.CF = false
	}
	c.szp8(c.AL())
}

func (c *CPU) opAAA() {
	if al := c.AL(); al&0xF > 9 || c.AF {
		c.SetAL(al + 6)
		c.SetAH(c.AH() + 1)
		c.AF, c.CF = true, true
	} else {
		c.AF, c.CF = false, false
	}
	al := c.AL() & 0xF
	c.SetAL(al)
	c.szp8(al)
}

func (c *CPU) opAAS() {
	if al := c.AL(); al&0xF > 9 || c.AF {
		c.SetAL(al - 6)
		c.SetAH(c.AH() - 1)
		c.AF, c.CF = true, true
	} else {
		c.AF, c.CF = false, false
	}
	al := c.AL() & 0xF
	c.SetAL(al)
	c.szp8(al)
}
