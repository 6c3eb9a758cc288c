package cpu

// Registers is the 8086 register file. The eight general registers are
// stored as words; the byte halves are accessed through the Get/Set
// helpers following the 8086 reg-field encoding.
type Registers struct {
	AX, CX, DX, BX,
	SP, BP, SI, DI uint16

	ES, CS, SS, DS uint16

	IP uint16

	CF, PF, AF, ZF,
	SF, TF, IF, DF, OF bool
}

func (r *Registers) AL() byte { return byte(r.AX) }
func (r *Registers) AH() byte { return byte(r.AX >> 8) }
func (r *Registers) CL() byte { return byte(r.CX) }
func (r *Registers) CH() byte { return byte(r.CX >> 8) }
func (r *Registers) DL() byte { return byte(r.DX) }
func (r *Registers) DH() byte { return byte(r.DX >> 8) }
func (r *Registers) BL() byte { return byte(r.BX) }
func (r *Registers) BH() byte { return byte(r.BX >> 8) }

func (r *Registers) SetAL(v byte) { r.AX = r.AX&0xFF00 | uint16(v) }
func (r *Registers) SetAH(v byte) { r.AX = r.AX&0x00FF | uint16(v)<<8 }
func (r *Registers) SetCL(v byte) { r.CX = r.CX&0xFF00 | uint16(v) }
func (r *Registers) SetCH(v byte) { r.CX = r.CX&0x00FF | uint16(v)<<8 }
func (r *Registers) SetDL(v byte) { r.DX = r.DX&0xFF00 | uint16(v) }
func (r *Registers) SetDH(v byte) { r.DX = r.DX&0x00FF | uint16(v)<<8 }
func (r *Registers) SetBL(v byte) { r.BX = r.BX&0xFF00 | uint16(v) }
func (r *Registers) SetBH(v byte) { r.BX = r.BX&0x00FF | uint16(v)<<8 }

// reg16 returns a word register by its REG-field number.
func (r *Registers) reg16(num byte) uint16 {
	switch num & 7 {
	case 0:
		return r.AX
	case 1:
		return r.CX
	case 2:
		return r.DX
	case 3:
		return r.BX
	case 4:
		return r.SP
	case 5:
		return r.BP
	case 6:
		return r.SI
	default:
		return r.DI
	}
}

func (r *Registers) setReg16(num byte, v uint16) {
	switch num & 7 {
	case 0:
		r.AX = v
	case 1:
		r.CX = v
	case 2:
		r.DX = v
	case 3:
		r.BX = v
	case 4:
		r.SP = v
	case 5:
		r.BP = v
	case 6:
		r.SI = v
	default:
		r.DI = v
	}
}

// reg8 returns a byte register by its REG-field number: the low four
// codes are AL/CL/DL/BL, the high four AH/CH/DH/BH.
func (r *Registers) reg8(num byte) byte {
	switch num & 7 {
	case 0:
		return r.AL()
	case 1:
		return r.CL()
	case 2:
		return r.DL()
	case 3:
		return r.BL()
	case 4:
		return r.AH()
	case 5:
		return r.CH()
	case 6:
		return r.DH()
	default:
		return r.BH()
	}
}

func (r *Registers) setReg8(num byte, v byte) {
	switch num & 7 {
	case 0:
		r.SetAL(v)
	case 1:
		r.SetCL(v)
	case 2:
		r.SetDL(v)
	case 3:
		r.SetBL(v)
	case 4:
		r.SetAH(v)
	case 5:
		r.SetCH(v)
	case 6:
		r.SetDH(v)
	default:
		r.SetBH(v)
	}
}

// seg returns a segment register by its instruction encoding
// (0=ES 1=CS 2=SS 3=DS).
func (r *Registers) seg(num byte) uint16 {
	switch num & 3 {
	case 0:
		return r.ES
	case 1:
		return r.CS
	case 2:
		return r.SS
	default:
		return r.DS
	}
}

func (r *Registers) setSeg(num byte, v uint16) {
	switch num & 3 {
	case 0:
		r.ES = v
	case 1:
		r.CS = v
	case 2:
		r.SS = v
	default:
		r.DS = v
	}
}
