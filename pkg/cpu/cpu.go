// Package cpu implements the 8086 instruction-set interpreter: prefix
// handling, ModR/M decoding, a 256-entry opcode dispatch, the 8086 flag
// rules, and interrupt vectoring. Devices hook software interrupts
// through Intercept so BIOS-level services can be serviced natively.
package cpu

import (
	"errors"
	"fmt"
	"log/slog"

	"go86/pkg/memory"
	"go86/pkg/ports"
)

// ErrInvalidOpcode stops the emulation loop: CPU state is already
// partly mutated when the fault is detected, so it is not recoverable.
var ErrInvalidOpcode = errors.New("cpu: invalid opcode")

// InterruptFn intercepts a software interrupt. Returning true means the
// call was handled natively and the vectored BIOS routine is skipped.
type InterruptFn func(c *CPU) bool

// CPU owns the register file and executes instructions against the
// memory and port buses.
type CPU struct {
	Registers

	Mem   *memory.Bus
	Ports *ports.Bus

	// Halted is set by HLT and cleared when an interrupt is delivered.
	Halted bool

	segOverride *uint16
	repeat      byte
	instStart   uint16

	intercepts [256]InterruptFn

	log *slog.Logger
}

func New(mem *memory.Bus, bus *ports.Bus, logger *slog.Logger) *CPU {
	if logger == nil {
		logger = slog.Default()
	}
	c := &CPU{Mem: mem, Ports: bus, log: logger}
	c.Reset()
	return c
}

// Reset puts the register file in the 8086 power-on state: execution
// resumes at FFFF:0000, the BIOS entry point.
func (c *CPU) Reset() {
	c.Registers = Registers{CS: 0xFFFF}
	c.Halted = false
	c.segOverride = nil
	c.repeat = 0
}

// Intercept installs a native handler for software interrupt n.
func (c *CPU) Intercept(n int, fn InterruptFn) {
	c.intercepts[n] = fn
}

func (c *CPU) fetch8() byte {
	v := c.Mem.Read8(memory.Linear(c.CS, c.IP))
	c.IP++
	return v
}

func (c *CPU) fetch16() uint16 {
	v := c.Mem.Read16(memory.Linear(c.CS, c.IP))
	c.IP += 2
	return v
}

func (c *CPU) push16(v uint16) {
	c.SP -= 2
	c.Mem.Write16(memory.Linear(c.SS, c.SP), v)
}

func (c *CPU) pop16() uint16 {
	v := c.Mem.Read16(memory.Linear(c.SS, c.SP))
	c.SP += 2
	return v
}

// dataSeg resolves the data segment for the current instruction: the
// default unless a segment-override prefix was latched.
func (c *CPU) dataSeg(def uint16) uint16 {
	if c.segOverride != nil {
		return *c.segOverride
	}
	return def
}

func signExtend(v byte) uint16 {
	return uint16(int16(int8(v)))
}

// Int runs the software-interrupt sequence for vector n, first giving
// an installed intercept the chance to service the call natively.
func (c *CPU) Int(n int) {
	if fn := c.intercepts[n&0xFF]; fn != nil && fn(c) {
		return
	}
	c.push16(c.FlagsWord())
	c.push16(c.CS)
	c.push16(c.IP)
	c.IP = c.Mem.Read16(uint32(n&0xFF) * 4)
	c.CS = c.Mem.Read16(uint32(n&0xFF)*4 + 2)
	c.IF, c.TF = false, false
}

// Interrupt injects an external interrupt between instructions. It
// wakes a halted CPU.
func (c *CPU) Interrupt(vector byte) {
	c.Halted = false
	c.push16(c.FlagsWord())
	c.push16(c.CS)
	c.push16(c.IP)
	c.IP = c.Mem.Read16(uint32(vector) * 4)
	c.CS = c.Mem.Read16(uint32(vector)*4 + 2)
	c.IF, c.TF = false, false
}

// Step executes one instruction. A REP-prefixed string loop completes
// atomically within the call. A halted CPU does nothing.
func (c *CPU) Step() error {
	if c.Halted {
		return nil
	}

	c.segOverride = nil
	c.repeat = 0
	c.instStart = c.IP

	var op byte
prefixes:
	for {
		switch op = c.fetch8(); op {
		case 0x26: // ES:
			c.segOverride = &c.ES
		case 0x2E: // CS:
			c.segOverride = &c.CS
		case 0x36: // SS:
			c.segOverride = &c.SS
		case 0x3E: // DS:
			c.segOverride = &c.DS
		case 0xF0: // LOCK
		case 0xF2, 0xF3: // REPNE, REP/REPE
			c.repeat = op
		default:
			break prefixes
		}
	}

	return c.execute(op)
}

func (c *CPU) execute(op byte) error {
	switch op {

	// 0x0x

	case 0x00, 0x02: // ADD r/m8,r8 / r8,r/m8
		m := c.modRMFetch()
		if op&2 == 0 {
			c.writeRM8(m, c.add8(c.readRM8(m), c.reg8(m.reg), 0))
		} else {
			c.setReg8(m.reg, c.add8(c.reg8(m.reg), c.readRM8(m), 0))
		}
	case 0x01, 0x03: // ADD r/m16,r16 / r16,r/m16
		m := c.modRMFetch()
		if op&2 == 0 {
			c.writeRM16(m, c.add16(c.readRM16(m), c.reg16(m.reg), 0))
		} else {
			c.setReg16(m.reg, c.add16(c.reg16(m.reg), c.readRM16(m), 0))
		}
	case 0x04: // ADD AL,imm8
		c.SetAL(c.add8(c.AL(), c.fetch8(), 0))
	case 0x05: // ADD AX,imm16
		c.AX = c.add16(c.AX, c.fetch16(), 0)
	case 0x06: // PUSH ES
		c.push16(c.ES)
	case 0x07: // POP ES
		c.ES = c.pop16()
	case 0x08, 0x0A: // OR r/m8,r8 / r8,r/m8
		m := c.modRMFetch()
		if op&2 == 0 {
			c.writeRM8(m, c.logic8(c.readRM8(m)|c.reg8(m.reg)))
		} else {
			c.setReg8(m.reg, c.logic8(c.reg8(m.reg)|c.readRM8(m)))
		}
	case 0x09, 0x0B: // OR r/m16,r16 / r16,r/m16
		m := c.modRMFetch()
		if op&2 == 0 {
			c.writeRM16(m, c.logic16(c.readRM16(m)|c.reg16(m.reg)))
		} else {
			c.setReg16(m.reg, c.logic16(c.reg16(m.reg)|c.readRM16(m)))
		}
	case 0x0C: // OR AL,imm8
		c.SetAL(c.logic8(c.AL() | c.fetch8()))
	case 0x0D: // OR AX,imm16
		c.AX = c.logic16(c.AX | c.fetch16())
	case 0x0E: // PUSH CS
		c.push16(c.CS)
	case 0x0F: // POP CS (8086 only)
		c.CS = c.pop16()

	// 0x1x

	case 0x10, 0x12: // ADC r/m8,r8 / r8,r/m8
		m := c.modRMFetch()
		cf := b2u(c.CF)
		if op&2 == 0 {
			c.writeRM8(m, c.add8(c.readRM8(m), c.reg8(m.reg), cf))
		} else {
			c.setReg8(m.reg, c.add8(c.reg8(m.reg), c.readRM8(m), cf))
		}
	case 0x11, 0x13: // ADC r/m16,r16 / r16,r/m16
		m := c.modRMFetch()
		cf := b2u(c.CF)
		if op&2 == 0 {
			c.writeRM16(m, c.add16(c.readRM16(m), c.reg16(m.reg), cf))
		} else {
			c.setReg16(m.reg, c.add16(c.reg16(m.reg), c.readRM16(m), cf))
		}
	case 0x14: // ADC AL,imm8
		c.SetAL(c.add8(c.AL(), c.fetch8(), b2u(c.CF)))
	case 0x15: // ADC AX,imm16
		c.AX = c.add16(c.AX, c.fetch16(), b2u(c.CF))
	case 0x16: // PUSH SS
		c.push16(c.SS)
	case 0x17: // POP SS
		c.SS = c.pop16()
	case 0x18, 0x1A: // SBB r/m8,r8 / r8,r/m8
		m := c.modRMFetch()
		cf := b2u(c.CF)
		if op&2 == 0 {
			c.writeRM8(m, c.sub8(c.readRM8(m), c.reg8(m.reg), cf))
		} else {
			c.setReg8(m.reg, c.sub8(c.reg8(m.reg), c.readRM8(m), cf))
		}
	case 0x19, 0x1B: // SBB r/m16,r16 / r16,r/m16
		m := c.modRMFetch()
		cf := b2u(c.CF)
		if op&2 == 0 {
			c.writeRM16(m, c.sub16(c.readRM16(m), c.reg16(m.reg), cf))
		} else {
			c.setReg16(m.reg, c.sub16(c.reg16(m.reg), c.readRM16(m), cf))
		}
	case 0x1C: // SBB AL,imm8
		c.SetAL(c.sub8(c.AL(), c.fetch8(), b2u(c.CF)))
	case 0x1D: // SBB AX,imm16
		c.AX = c.sub16(c.AX, c.fetch16(), b2u(c.CF))
	case 0x1E: // PUSH DS
		c.push16(c.DS)
	case 0x1F: // POP DS
		c.DS = c.pop16()

	// 0x2x

	case 0x20, 0x22: // AND r/m8,r8 / r8,r/m8
		m := c.modRMFetch()
		if op&2 == 0 {
			c.writeRM8(m, c.logic8(c.readRM8(m)&c.reg8(m.reg)))
		} else {
			c.setReg8(m.reg, c.logic8(c.reg8(m.reg)&c.readRM8(m)))
		}
	case 0x21, 0x23: // AND r/m16,r16 / r16,r/m16
		m := c.modRMFetch()
		if op&2 == 0 {
			c.writeRM16(m, c.logic16(c.readRM16(m)&c.reg16(m.reg)))
		} else {
			c.setReg16(m.reg, c.logic16(c.reg16(m.reg)&c.readRM16(m)))
		}
	case 0x24: // AND AL,imm8
		c.SetAL(c.logic8(c.AL() & c.fetch8()))
	case 0x25: // AND AX,imm16
		c.AX = c.logic16(c.AX & c.fetch16())
	case 0x27: // DAA
		c.opDAA()
	case 0x28, 0x2A: // SUB r/m8,r8 / r8,r/m8
		m := c.modRMFetch()
		if op&2 == 0 {
			c.writeRM8(m, c.sub8(c.readRM8(m), c.reg8(m.reg), 0))
		} else {
			c.setReg8(m.reg, c.sub8(c.reg8(m.reg), c.readRM8(m), 0))
		}
	case 0x29, 0x2B: // SUB r/m16,r16 / r16,r/m16
		m := c.modRMFetch()
		if op&2 == 0 {
			c.writeRM16(m, c.sub16(c.readRM16(m), c.reg16(m.reg), 0))
		} else {
			c.setReg16(m.reg, c.sub16(c.reg16(m.reg), c.readRM16(m), 0))
		}
	case 0x2C: // SUB AL,imm8
		c.SetAL(c.sub8(c.AL(), c.fetch8(), 0))
	case 0x2D: // SUB AX,imm16
		c.AX = c.sub16(c.AX, c.fetch16(), 0)
	case 0x2F: // DAS
		c.opDAS()

	// 0x3x

	case 0x30, 0x32: // XOR r/m8,r8 / r8,r/m8
		m := c.modRMFetch()
		if op&2 == 0 {
			c.writeRM8(m, c.logic8(c.readRM8(m)^c.reg8(m.reg)))
		} else {
			c.setReg8(m.reg, c.logic8(c.reg8(m.reg)^c.readRM8(m)))
		}
	case 0x31, 0x33: // XOR r/m16,r16 / r16,r/m16
		m := c.modRMFetch()
		if op&2 == 0 {
			c.writeRM16(m, c.logic16(c.readRM16(m)^c.reg16(m.reg)))
		} else {
			c.setReg16(m.reg, c.logic16(c.reg16(m.reg)^c.readRM16(m)))
		}
	case 0x34: // XOR AL,imm8
		c.SetAL(c.logic8(c.AL() ^ c.fetch8()))
	case 0x35: // XOR AX,imm16
		c.AX = c.logic16(c.AX ^ c.fetch16())
	case 0x37: // AAA
		c.opAAA()
	case 0x38, 0x3A: // CMP r/m8,r8 / r8,r/m8
		m := c.modRMFetch()
		if op&2 == 0 {
			c.sub8(c.readRM8(m), c.reg8(m.reg), 0)
		} else {
			c.sub8(c.reg8(m.reg), c.readRM8(m), 0)
		}
	case 0x39, 0x3B: // CMP r/m16,r16 / r16,r/m16
		m := c.modRMFetch()
		if op&2 == 0 {
			c.sub16(c.readRM16(m), c.reg16(m.reg), 0)
		} else {
			c.sub16(c.reg16(m.reg), c.readRM16(m), 0)
		}
	case 0x3C: // CMP AL,imm8
		c.sub8(c.AL(), c.fetch8(), 0)
	case 0x3D: // CMP AX,imm16
		c.sub16(c.AX, c.fetch16(), 0)
	case 0x3F: // AAS
		c.opAAS()

	// 0x4x

	case 0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47: // INC r16
		reg := op - 0x40
		cf := c.CF // INC leaves CF alone
		c.setReg16(reg, c.add16(c.reg16(reg), 1, 0))
		c.CF = cf
	case 0x48, 0x49, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F: // DEC r16
		reg := op - 0x48
		cf := c.CF
		c.setReg16(reg, c.sub16(c.reg16(reg), 1, 0))
		c.CF = cf

	// 0x5x

	case 0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57: // PUSH r16
		c.push16(c.reg16(op - 0x50))
	case 0x58, 0x59, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F: // POP r16
		c.setReg16(op-0x58, c.pop16())

	// 0x7x

	case 0x70: // JO
		c.jmpRel8If(c.OF)
	case 0x71: // JNO
		c.jmpRel8If(!c.OF)
	case 0x72: // JB
		c.jmpRel8If(c.CF)
	case 0x73: // JNB
		c.jmpRel8If(!c.CF)
	case 0x74: // JZ
		c.jmpRel8If(c.ZF)
	case 0x75: // JNZ
		c.jmpRel8If(!c.ZF)
	case 0x76: // JBE
		c.jmpRel8If(c.CF || c.ZF)
	case 0x77: // JA
		c.jmpRel8If(!c.CF && !c.ZF)
	case 0x78: // JS
		c.jmpRel8If(c.SF)
	case 0x79: // JNS
		c.jmpRel8If(!c.SF)
	case 0x7A: // JP
		c.jmpRel8If(c.PF)
	case 0x7B: // JNP
		c.jmpRel8If(!c.PF)
	case 0x7C: // JL
		c.jmpRel8If(c.SF != c.OF)
	case 0x7D: // JGE
		c.jmpRel8If(c.SF == c.OF)
	case 0x7E: // JLE
		c.jmpRel8If(c.SF != c.OF || c.ZF)
	case 0x7F: // JG
		c.jmpRel8If(!c.ZF && c.SF == c.OF)

	// 0x8x

	case 0x80, 0x82: // grp1 r/m8,imm8
		c.grp1b()
	case 0x81: // grp1 r/m16,imm16
		c.grp1w(false)
	case 0x83: // grp1 r/m16,imm8 sign-extended
		c.grp1w(true)
	case 0x84: // TEST r/m8,r8
		m := c.modRMFetch()
		c.logic8(c.readRM8(m) & c.reg8(m.reg))
	case 0x85: // TEST r/m16,r16
		m := c.modRMFetch()
		c.logic16(c.readRM16(m) & c.reg16(m.reg))
	case 0x86: // XCHG r8,r/m8
		m := c.modRMFetch()
		a, b := c.reg8(m.reg), c.readRM8(m)
		c.setReg8(m.reg, b)
		c.writeRM8(m, a)
	case 0x87: // XCHG r16,r/m16
		m := c.modRMFetch()
		a, b := c.reg16(m.reg), c.readRM16(m)
		c.setReg16(m.reg, b)
		c.writeRM16(m, a)
	case 0x88, 0x8A: // MOV r/m8,r8 / r8,r/m8
		m := c.modRMFetch()
		if op&2 == 0 {
			c.writeRM8(m, c.reg8(m.reg))
		} else {
			c.setReg8(m.reg, c.readRM8(m))
		}
	case 0x89, 0x8B: // MOV r/m16,r16 / r16,r/m16
		m := c.modRMFetch()
		if op&2 == 0 {
			c.writeRM16(m, c.reg16(m.reg))
		} else {
			c.setReg16(m.reg, c.readRM16(m))
		}
	case 0x8C: // MOV r/m16,sreg
		m := c.modRMFetch()
		c.writeRM16(m, c.seg(m.reg))
	case 0x8D: // LEA r16,m
		m := c.modRMFetch()
		c.setReg16(m.reg, m.off)
	case 0x8E: // MOV sreg,r/m16
		m := c.modRMFetch()
		c.setSeg(m.reg, c.readRM16(m))
	case 0x8F: // POP r/m16
		m := c.modRMFetch()
		c.writeRM16(m, c.pop16())

	// 0x9x

	case 0x90: // NOP (XCHG AX,AX)
	case 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97: // XCHG AX,r16
		reg := op - 0x90
		v := c.reg16(reg)
		c.setReg16(reg, c.AX)
		c.AX = v
	case 0x98: // CBW
		c.AX = signExtend(c.AL())
	case 0x99: // CWD
		if c.AX&0x8000 != 0 {
			c.DX = 0xFFFF
		} else {
			c.DX = 0
		}
	case 0x9A: // CALL far
		ip := c.fetch16()
		cs := c.fetch16()
		c.push16(c.CS)
		c.push16(c.IP)
		c.CS, c.IP = cs, ip
	case 0x9B: // WAIT
	case 0x9C: // PUSHF
		c.push16(c.FlagsWord())
	case 0x9D: // POPF
		c.SetFlagsWord(c.pop16())
	case 0x9E: // SAHF
		c.setFlags8(c.AH())
	case 0x9F: // LAHF
		c.SetAH(c.flags8())

	// 0xAx

	case 0xA0: // MOV AL,[moffs]
		c.SetAL(c.Mem.Read8(memory.Linear(c.dataSeg(c.DS), c.fetch16())))
	case 0xA1: // MOV AX,[moffs]
		c.AX = c.Mem.Read16(memory.Linear(c.dataSeg(c.DS), c.fetch16()))
	case 0xA2: // MOV [moffs],AL
		c.Mem.Write8(memory.Linear(c.dataSeg(c.DS), c.fetch16()), c.AL())
	case 0xA3: // MOV [moffs],AX
		c.Mem.Write16(memory.Linear(c.dataSeg(c.DS), c.fetch16()), c.AX)
	case 0xA4, 0xA5, 0xA6, 0xA7, 0xAA, 0xAB, 0xAC, 0xAD, 0xAE, 0xAF:
		c.stringOp(op)
	case 0xA8: // TEST AL,imm8
		c.logic8(c.AL() & c.fetch8())
	case 0xA9: // TEST AX,imm16
		c.logic16(c.AX & c.fetch16())

	// 0xBx

	case 0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6, 0xB7: // MOV r8,imm8
		c.setReg8(op-0xB0, c.fetch8())
	case 0xB8, 0xB9, 0xBA, 0xBB, 0xBC, 0xBD, 0xBE, 0xBF: // MOV r16,imm16
		c.setReg16(op-0xB8, c.fetch16())

	// 0xCx

	case 0xC0: // grp2 r/m8,imm8
		m := c.modRMFetch()
		v := c.readRM8(m)
		c.writeRM8(m, c.shiftRotate8(m.reg, v, c.fetch8()))
	case 0xC1: // grp2 r/m16,imm8
		m := c.modRMFetch()
		v := c.readRM16(m)
		c.writeRM16(m, c.shiftRotate16(m.reg, v, c.fetch8()))
	case 0xC2: // RET imm16
		n := c.fetch16()
		c.IP = c.pop16()
		c.SP += n
	case 0xC3: // RET
		c.IP = c.pop16()
	case 0xC4: // LES r16,m32
		m := c.modRMFetch()
		c.setReg16(m.reg, c.Mem.Read16(m.ea))
		c.ES = c.Mem.Read16(m.ea + 2)
	case 0xC5: // LDS r16,m32
		m := c.modRMFetch()
		c.setReg16(m.reg, c.Mem.Read16(m.ea))
		c.DS = c.Mem.Read16(m.ea + 2)
	case 0xC6: // MOV r/m8,imm8
		m := c.modRMFetch()
		c.writeRM8(m, c.fetch8())
	case 0xC7: // MOV r/m16,imm16
		m := c.modRMFetch()
		c.writeRM16(m, c.fetch16())
	case 0xCA: // RETF imm16
		n := c.fetch16()
		c.IP = c.pop16()
		c.CS = c.pop16()
		c.SP += n
	case 0xCB: // RETF
		c.IP = c.pop16()
		c.CS = c.pop16()
	case 0xCC: // INT 3
		c.Int(3)
	case 0xCD: // INT imm8
		c.Int(int(c.fetch8()))
	case 0xCE: // INTO
		if c.OF {
			c.Int(4)
		}
	case 0xCF: // IRET
		c.IP = c.pop16()
		c.CS = c.pop16()
		c.SetFlagsWord(c.pop16())

	// 0xDx

	case 0xD0: // grp2 r/m8,1
		m := c.modRMFetch()
		c.writeRM8(m, c.shiftRotate8(m.reg, c.readRM8(m), 1))
	case 0xD1: // grp2 r/m16,1
		m := c.modRMFetch()
		c.writeRM16(m, c.shiftRotate16(m.reg, c.readRM16(m), 1))
	case 0xD2: // grp2 r/m8,CL
		m := c.modRMFetch()
		c.writeRM8(m, c.shiftRotate8(m.reg, c.readRM8(m), c.CL()))
	case 0xD3: // grp2 r/m16,CL
		m := c.modRMFetch()
		c.writeRM16(m, c.shiftRotate16(m.reg, c.readRM16(m), c.CL()))
	case 0xD4: // AAM imm8
		if base := c.fetch8(); base == 0 {
			c.divideError()
		} else {
			al := c.AL()
			c.SetAH(al / base)
			c.SetAL(al % base)
			c.szp16(c.AX)
		}
	case 0xD5: // AAD imm8
		c.AX = (uint16(c.AL()) + uint16(c.AH())*uint16(c.fetch8())) & 0xFF
		c.szp16(c.AX)
	case 0xD6: // SALC
		if c.CF {
			c.SetAL(0xFF)
		} else {
			c.SetAL(0)
		}
	case 0xD7: // XLAT
		c.SetAL(c.Mem.Read8(memory.Linear(c.dataSeg(c.DS), c.BX+uint16(c.AL()))))
	case 0xD8, 0xD9, 0xDA, 0xDB, 0xDC, 0xDD, 0xDE, 0xDF: // ESC (no FPU)
		c.modRMFetch()

	// 0xEx

	case 0xE0: // LOOPNZ
		c.CX--
		c.jmpRel8If(c.CX != 0 && !c.ZF)
	case 0xE1: // LOOPZ
		c.CX--
		c.jmpRel8If(c.CX != 0 && c.ZF)
	case 0xE2: // LOOP
		c.CX--
		c.jmpRel8If(c.CX != 0)
	case 0xE3: // JCXZ
		c.jmpRel8If(c.CX == 0)
	case 0xE4: // IN AL,imm8
		c.SetAL(c.Ports.In(uint16(c.fetch8())))
	case 0xE5: // IN AX,imm8
		c.AX = c.Ports.In16(uint16(c.fetch8()))
	case 0xE6: // OUT imm8,AL
		c.Ports.Out(uint16(c.fetch8()), c.AL())
	case 0xE7: // OUT imm8,AX
		c.Ports.Out16(uint16(c.fetch8()), c.AX)
	case 0xE8: // CALL rel16
		rel := c.fetch16()
		c.push16(c.IP)
		c.IP += rel
	case 0xE9: // JMP rel16
		rel := c.fetch16()
		c.IP += rel
	case 0xEA: // JMP far
		ip := c.fetch16()
		c.CS = c.fetch16()
		c.IP = ip
	case 0xEB: // JMP rel8
		rel := signExtend(c.fetch8())
		c.IP += rel
	case 0xEC: // IN AL,DX
		c.SetAL(c.Ports.In(c.DX))
	case 0xED: // IN AX,DX
		c.AX = c.Ports.In16(c.DX)
	case 0xEE: // OUT DX,AL
		c.Ports.Out(c.DX, c.AL())
	case 0xEF: // OUT DX,AX
		c.Ports.Out16(c.DX, c.AX)

	// 0xFx

	case 0xF4: // HLT: idle until the next interrupt
		c.Halted = true
	case 0xF5: // CMC
		c.CF = !c.CF
	case 0xF6: // grp3 r/m8
		c.grp3b()
	case 0xF7: // grp3 r/m16
		c.grp3w()
	case 0xF8: // CLC
		c.CF = false
	case 0xF9: // STC
		c.CF = true
	case 0xFA: // CLI
		c.IF = false
	case 0xFB: // STI
		c.IF = true
	case 0xFC: // CLD
		c.DF = false
	case 0xFD: // STD
		c.DF = true
	case 0xFE: // grp4 r/m8
		c.grp4()
	case 0xFF: // grp5 r/m16
		c.grp5()

	default:
		c.log.Error("unhandled opcode",
			slog.String("opcode", fmt.Sprintf("%02X", op)),
			slog.String("at", fmt.Sprintf("%04X:%04X", c.CS, c.instStart)))
		return fmt.Errorf("%w: %02X at %04X:%04X", ErrInvalidOpcode, op, c.CS, c.instStart)
	}
	return nil
}

func (c *CPU) jmpRel8If(cond bool) {
	rel := signExtend(c.fetch8())
	if cond {
		c.IP += rel
	}
}

func (c *CPU) divideError() {
	c.IP = c.instStart
	c.Int(0)
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
