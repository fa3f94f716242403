// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package assembler

import (
	"github.com/vn16/vasm/pkg/ast"
	"github.com/vn16/vasm/pkg/elf16"
	"github.com/vn16/vasm/pkg/lexer"
	"github.com/vn16/vasm/pkg/numeric"
	"github.com/vn16/vasm/pkg/object"
)

// Addressing-mode field values, per the operand descriptor layout:
// mode[3] (bits 7-5) | reserved[1] (bit 4) | register[3] (bits 3-1) |
// L[1] (bit 0). The psw pseudo-register's index 0xF is the one register
// value that also sets bit 4.
const (
	ModeImm        = 0b000
	ModeRegDir     = 0b001
	ModeRegInd     = 0b010
	ModeRegIndOff8 = 0b011
	ModeRegIndOff  = 0b100
	ModeMem        = 0b101
)

// Opcode assigns each mnemonic its 5-bit OC field, in the same order as
// ast.InstrCode's enumeration (which itself mirrors the original parser's
// mnemonic table). No numeric opcode values are given anywhere upstream; the
// declaration order is as good a convention as any, and keeps the table
// trivial to extend.
func Opcode(code ast.InstrCode) uint8 { return uint8(code) - 1 }

// Descriptor packs an operand descriptor byte from its addressing mode and
// encoded register/L field, per the Mode* constants above.
func Descriptor(mode uint8, regEncoded uint8) byte {
	return byte(mode<<5) | byte(regEncoded&0x1F)
}

func fitsSignedByte(v uint16) bool {
	sv := int16(v)
	return sv >= -128 && sv <= 127
}

func isImmediateKind(k lexer.OperandKind) bool {
	return k == lexer.OperandImmediate || k == lexer.OperandImmediateSymbol
}

func isMemKind(k lexer.OperandKind) bool {
	switch k {
	case lexer.OperandRegIndirect, lexer.OperandRegIndirectOffset, lexer.OperandAbsolute,
		lexer.OperandSymbol, lexer.OperandPCRelSymbol:
		return true
	}
	return false
}

// checkAddressingModes enforces the per-mnemonic legal operand forms from
// original_source/h/lexer.h's oneaddr_str/twoaddr_str regex alternatives.
// Register-direct-vs-memory distinctions within a legal class are left to
// sizeOfOperand/encodeOperand; this only rejects the combinations the
// grammar never offers at all.
func checkAddressingModes(line int, instr *ast.Instruction) error {
	switch instr.Code {
	case ast.InstrInt:
		return requireImmediate(line, instr.Op1)
	case ast.InstrNot, ast.InstrPop:
		return forbidImmediate(line, instr.Op1)
	case ast.InstrJmp, ast.InstrJeq, ast.InstrJne, ast.InstrJgt, ast.InstrCall:
		return requireMem(line, instr.Op1)
	case ast.InstrXchg:
		if err := forbidImmediate(line, instr.Op1); err != nil {
			return err
		}
		if err := forbidImmediate(line, instr.Op2); err != nil {
			return err
		}
		return forbidBothMem(line, instr.Op1, instr.Op2)
	case ast.InstrMov, ast.InstrAdd, ast.InstrSub, ast.InstrMul, ast.InstrDiv, ast.InstrCmp,
		ast.InstrAnd, ast.InstrOr, ast.InstrXor, ast.InstrTest:
		if err := forbidImmediate(line, instr.Op1); err != nil {
			return err
		}
		return forbidBothMem(line, instr.Op1, instr.Op2)
	case ast.InstrShl, ast.InstrShr:
		if err := forbidImmediate(line, instr.Op1); err != nil {
			return err
		}
		return forbidMem(line, instr.Op2)
	}
	return nil
}

func requireImmediate(line int, opStr string) error {
	if opStr == pswOperand {
		return semErr(line, opStr, "invalid operand for addressing mode")
	}
	op, ok := lexer.ClassifyOperand(opStr)
	if !ok {
		return lexErr(line, opStr, "unrecognized operand")
	}
	if op.Kind != lexer.OperandImmediate {
		return semErr(line, opStr, "invalid operand for addressing mode")
	}
	return nil
}

func forbidImmediate(line int, opStr string) error {
	if opStr == pswOperand {
		return nil
	}
	op, ok := lexer.ClassifyOperand(opStr)
	if !ok {
		return lexErr(line, opStr, "unrecognized operand")
	}
	if isImmediateKind(op.Kind) {
		return semErr(line, opStr, "invalid operand for addressing mode")
	}
	return nil
}

func requireMem(line int, opStr string) error {
	if opStr == pswOperand {
		return semErr(line, opStr, "invalid operand for addressing mode")
	}
	op, ok := lexer.ClassifyOperand(opStr)
	if !ok {
		return lexErr(line, opStr, "unrecognized operand")
	}
	if !isMemKind(op.Kind) {
		return semErr(line, opStr, "invalid operand for addressing mode")
	}
	return nil
}

func forbidMem(line int, opStr string) error {
	if opStr == pswOperand {
		return nil
	}
	op, ok := lexer.ClassifyOperand(opStr)
	if !ok {
		return lexErr(line, opStr, "unrecognized operand")
	}
	if isMemKind(op.Kind) {
		return semErr(line, opStr, "invalid operand for addressing mode")
	}
	return nil
}

func forbidBothMem(line int, op1Str, op2Str string) error {
	if op1Str == pswOperand || op2Str == pswOperand {
		return nil
	}
	op1, ok1 := lexer.ClassifyOperand(op1Str)
	op2, ok2 := lexer.ClassifyOperand(op2Str)
	if !ok1 || !ok2 {
		return nil // already reported when the operand is sized/encoded
	}
	if isMemKind(op1.Kind) && isMemKind(op2.Kind) {
		return semErr(line, op1Str, "invalid operand for addressing mode: both operands are memory-class")
	}
	return nil
}

// sizeOfOperand implements the Pass-1 size-inference table of §4.7: 1 byte
// if register-only, 2 if register-indirect with a byte-valued numeric
// offset resolvable at parse time or a byte-width immediate, 3 otherwise
// (the conservative form for every symbolic reference).
func sizeOfOperand(line int, opStr string, size ast.OpSize) (int, error) {
	if opStr == pswOperand {
		return 1, nil
	}
	op, ok := lexer.ClassifyOperand(opStr)
	if !ok {
		return 0, lexErr(line, opStr, "unrecognized operand")
	}
	switch op.Kind {
	case lexer.OperandRegByte, lexer.OperandRegWord, lexer.OperandRegIndirect:
		return 1, nil
	case lexer.OperandRegIndirectOffset:
		if op.OffsetIsSymbol {
			return 3, nil
		}
		v, err := numeric.DecodeWord(op.Text)
		if err != nil {
			return 0, numErr(line, op.Text, err.Error())
		}
		if v == 0 {
			return 1, nil // reg[0] collapses to RegInd
		}
		if fitsSignedByte(v) {
			return 2, nil
		}
		return 3, nil
	case lexer.OperandAbsolute, lexer.OperandSymbol, lexer.OperandPCRelSymbol:
		return 3, nil
	case lexer.OperandImmediate, lexer.OperandImmediateSymbol:
		if size == ast.SizeByte {
			return 2, nil
		}
		return 3, nil
	}
	return 0, lexErr(line, opStr, "unrecognized operand")
}

// sizeOfInstruction returns the total encoded size, opcode byte included.
func sizeOfInstruction(line int, instr *ast.Instruction) (int, error) {
	if err := checkAddressingModes(line, instr); err != nil {
		return 0, err
	}
	total := 1
	if instr.OpCnt >= 1 {
		n, err := sizeOfOperand(line, instr.Op1, instr.OpSize)
		if err != nil {
			return 0, err
		}
		total += n
	}
	if instr.OpCnt == 2 {
		n, err := sizeOfOperand(line, instr.Op2, instr.OpSize)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// emitInstruction implements the Pass-2 half of §4.7: opcode byte, then each
// operand's descriptor and payload, in source order.
func (a *Assembler) emitInstruction(line int, instr *ast.Instruction) error {
	sec := a.Registry.Current()
	if !sec.IsExec() {
		return semErr(line, sec.Name, "instruction outside an executable section")
	}
	size, err := sizeOfInstruction(line, instr)
	if err != nil {
		return err
	}
	nextLC := sec.LC + uint16(size)

	s := byte(0)
	if instr.OpSize == ast.SizeWord {
		s = 1
	}
	a.emitByte(Opcode(instr.Code)<<3 | s<<2)

	if instr.OpCnt >= 1 {
		if err := a.encodeOperand(line, instr.Op1, instr.OpSize, sec, nextLC); err != nil {
			return err
		}
	}
	if instr.OpCnt == 2 {
		if err := a.encodeOperand(line, instr.Op2, instr.OpSize, sec, nextLC); err != nil {
			return err
		}
	}
	return nil
}

// encodeOperand emits one operand's descriptor byte and payload. nextLC is
// the section LC immediately after this whole instruction, needed to
// compute a same-section PC-relative displacement without a relocation.
func (a *Assembler) encodeOperand(line int, opStr string, size ast.OpSize, sec *object.Section, nextLC uint16) error {
	if opStr == pswOperand {
		a.emitByte(Descriptor(ModeRegDir, numeric.RegPSW<<1))
		return nil
	}
	op, ok := lexer.ClassifyOperand(opStr)
	if !ok {
		return lexErr(line, opStr, "unrecognized operand")
	}

	switch op.Kind {
	case lexer.OperandRegByte:
		l := uint8(0)
		if op.High {
			l = 1
		}
		a.emitByte(Descriptor(ModeRegDir, op.Reg<<1|l))
		return nil

	case lexer.OperandRegWord:
		a.emitByte(Descriptor(ModeRegDir, op.Reg<<1))
		return nil

	case lexer.OperandRegIndirect:
		a.emitByte(Descriptor(ModeRegInd, op.Reg<<1))
		return nil

	case lexer.OperandRegIndirectOffset:
		return a.encodeRegIndirectOffset(line, op, sec)

	case lexer.OperandAbsolute:
		v, err := numeric.DecodeWord(op.Text)
		if err != nil {
			return numErr(line, op.Text, err.Error())
		}
		a.emitByte(Descriptor(ModeMem, 0))
		a.emitWord(v)
		return nil

	case lexer.OperandSymbol:
		result, err := ResolveSymbol(line, op.Symbol, a.Registry)
		if err != nil {
			return err
		}
		a.emitByte(Descriptor(ModeMem, 0))
		return a.emitRelocatableWord(line, sec, result, elf16.RVN16)

	case lexer.OperandPCRelSymbol:
		return a.encodePCRelative(line, op, sec, nextLC)

	case lexer.OperandImmediate:
		a.emitByte(Descriptor(ModeImm, 0))
		if size == ast.SizeByte {
			v, err := numeric.DecodeByte(op.Text)
			if err != nil {
				return numErr(line, op.Text, err.Error())
			}
			a.emitByte(v)
		} else {
			v, err := numeric.DecodeWord(op.Text)
			if err != nil {
				return numErr(line, op.Text, err.Error())
			}
			a.emitWord(v)
		}
		return nil

	case lexer.OperandImmediateSymbol:
		return a.encodeImmediateSymbol(line, op, size)
	}
	return lexErr(line, opStr, "unrecognized operand")
}

func (a *Assembler) encodeRegIndirectOffset(line int, op lexer.Operand, sec *object.Section) error {
	if !op.OffsetIsSymbol {
		v, err := numeric.DecodeWord(op.Text)
		if err != nil {
			return numErr(line, op.Text, err.Error())
		}
		if v == 0 {
			a.emitByte(Descriptor(ModeRegInd, op.Reg<<1))
			return nil
		}
		if fitsSignedByte(v) {
			a.emitByte(Descriptor(ModeRegIndOff8, op.Reg<<1))
			a.emitByte(byte(v))
			return nil
		}
		a.emitByte(Descriptor(ModeRegIndOff, op.Reg<<1))
		a.emitWord(v)
		return nil
	}
	result, err := ResolveSymbol(line, op.Symbol, a.Registry)
	if err != nil {
		return err
	}
	a.emitByte(Descriptor(ModeRegIndOff, op.Reg<<1))
	return a.emitRelocatableWord(line, sec, result, elf16.RVN16)
}

func (a *Assembler) encodePCRelative(line int, op lexer.Operand, sec *object.Section, nextLC uint16) error {
	result, err := ResolveSymbol(line, op.Symbol, a.Registry)
	if err != nil {
		return err
	}
	a.emitByte(Descriptor(ModeRegIndOff, numeric.RegPC<<1))
	if result.Class == 1 && result.Section == uint16(sec.Index) {
		// Same-section: the displacement is known now, no relocation needed.
		disp := uint16(result.Value - int32(nextLC))
		a.emitWord(disp)
		return nil
	}
	return a.emitRelocatableWord(line, sec, result, elf16.RVNPC16)
}

func (a *Assembler) encodeImmediateSymbol(line int, op lexer.Operand, size ast.OpSize) error {
	a.emitByte(Descriptor(ModeImm, 0))
	result, err := ResolveSymbol(line, op.Symbol, a.Registry)
	if err != nil {
		return err
	}
	if size == ast.SizeByte {
		if result.Class != 0 {
			return semErr(line, op.Symbol, "&sym is forbidden for a byte immediate unless sym is absolute")
		}
		if result.Value < -128 || result.Value > 255 {
			return numErr(line, op.Symbol, "absolute symbol out of byte-immediate range")
		}
		a.emitByte(byte(result.Value))
		return nil
	}
	sec := a.Registry.Current()
	return a.emitRelocatableWord(line, sec, result, elf16.RVN16)
}

// emitRelocatableWord writes a 2-byte payload for a resolved symbol result:
// the raw value if absolute, or the addend in place (zero for a bare symbol)
// plus a relocation record against the underlying relocatable symbol
// otherwise.
func (a *Assembler) emitRelocatableWord(line int, sec *object.Section, result EvalResult, relType uint8) error {
	if result.Class == 0 {
		a.emitWord(uint16(result.Value))
		return nil
	}
	offset := sec.LC
	a.emitWord(uint16(result.Addend(a.Registry)))
	return a.addReloc(line, sec, offset, result.RelSym, relType)
}
