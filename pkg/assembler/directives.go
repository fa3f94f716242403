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

// openNamedSection implements the section-switching half of §4.6, shared
// verbatim by both passes: .text/.data/.bss always resolve to their
// well-known names, .section takes an explicit name and optional quoted
// flags string.
func (a *Assembler) openNamedSection(line int, dir *ast.Directive) error {
	var name, flags string
	hasFlags := false
	switch dir.Code {
	case ast.DirText:
		name = ".text"
	case ast.DirData:
		name = ".data"
	case ast.DirBss:
		name = ".bss"
	case ast.DirSection:
		name = dir.P1
		hasFlags = dir.P2 != ""
		flags = object.SplitSectionFlags(dir.P2)
	}
	_, err := a.Registry.OpenSection(name, flags, hasFlags)
	if err != nil {
		return semErr(line, name, err.Error())
	}
	return nil
}

func (a *Assembler) pass1Directive(line int, dir *ast.Directive) (stop bool, err error) {
	switch dir.Code {
	case ast.DirText, ast.DirData, ast.DirBss, ast.DirSection:
		return false, a.openNamedSection(line, dir)

	case ast.DirEnd:
		a.Registry.EndSection()
		return true, nil

	case ast.DirGlobal:
		return false, nil // promotion is deferred to Pass 2

	case ast.DirExtern:
		for _, name := range lexer.SplitOnCommas(dir.P1) {
			a.Registry.DeclareExtern(name)
		}
		return false, nil

	case ast.DirEqu, ast.DirSet:
		return false, SetEqu(a.Registry, &a.deferred, line, dir.P1, dir.P2, dir.Code == ast.DirSet)

	case ast.DirByte, ast.DirWord:
		sec := a.Registry.Current()
		if sec.IsExec() {
			return false, semErr(line, sec.Name, "data directive in an executable section")
		}
		unit := uint16(1)
		if dir.Code == ast.DirWord {
			unit = 2
		}
		count := uint16(len(lexer.SplitOnCommas(dir.P1)))
		sec.LC += count * unit
		return false, nil

	case ast.DirAlign:
		_, pad, _, err := a.computeAlign(line, dir)
		if err != nil {
			return false, err
		}
		a.Registry.Current().LC += pad
		return false, nil

	case ast.DirSkip:
		n, _, err := a.computeSkip(line, dir)
		if err != nil {
			return false, err
		}
		a.Registry.Current().LC += n
		return false, nil
	}
	return false, semErr(line, dir.Code.String(), "unhandled directive")
}

func (a *Assembler) pass2Directive(line int, dir *ast.Directive) (stop bool, err error) {
	switch dir.Code {
	case ast.DirText, ast.DirData, ast.DirBss, ast.DirSection:
		return false, a.openNamedSection(line, dir)

	case ast.DirEnd:
		a.Registry.EndSection()
		return true, nil

	case ast.DirGlobal:
		for _, name := range lexer.SplitOnCommas(dir.P1) {
			if err := a.Registry.DeclareGlobal(name); err != nil {
				return false, semErr(line, name, err.Error())
			}
		}
		return false, nil

	case ast.DirExtern, ast.DirEqu, ast.DirSet:
		return false, nil // Pass-1-only effects

	case ast.DirByte:
		return false, a.emitData(line, dir, 1)

	case ast.DirWord:
		return false, a.emitData(line, dir, 2)

	case ast.DirAlign:
		return false, a.emitAlign(line, dir)

	case ast.DirSkip:
		return false, a.emitSkip(line, dir)
	}
	return false, semErr(line, dir.Code.String(), "unhandled directive")
}

// computeAlign decodes N[,FILL[,MAX]] and validates the padding, shared by
// both passes so Pass 1's LC advance and Pass 2's fill count can never
// diverge.
func (a *Assembler) computeAlign(line int, dir *ast.Directive) (n, pad uint16, fill byte, err error) {
	n, err = numeric.DecodeWord(dir.P1)
	if err != nil {
		return 0, 0, 0, numErr(line, dir.P1, err.Error())
	}
	if n == 0 || n&(n-1) != 0 {
		return 0, 0, 0, numErr(line, dir.P1, "alignment must be a power of two")
	}
	sec := a.Registry.Current()
	pad = (n - (sec.LC % n)) % n

	maxPad := n
	if dir.P3 != "" {
		m, err := numeric.DecodeWord(dir.P3)
		if err != nil {
			return 0, 0, 0, numErr(line, dir.P3, err.Error())
		}
		maxPad = m
	}
	if pad > maxPad {
		return 0, 0, 0, numErr(line, dir.P1, "alignment padding exceeds MAX")
	}

	if dir.P2 != "" {
		fill, err = numeric.DecodeByte(dir.P2)
		if err != nil {
			return 0, 0, 0, numErr(line, dir.P2, err.Error())
		}
	}
	return n, pad, fill, nil
}

func (a *Assembler) computeSkip(line int, dir *ast.Directive) (n uint16, fill byte, err error) {
	n, err = numeric.DecodeWord(dir.P1)
	if err != nil {
		return 0, 0, numErr(line, dir.P1, err.Error())
	}
	if dir.P2 != "" {
		fill, err = numeric.DecodeByte(dir.P2)
		if err != nil {
			return 0, 0, numErr(line, dir.P2, err.Error())
		}
	}
	return n, fill, nil
}

func (a *Assembler) emitAlign(line int, dir *ast.Directive) error {
	_, pad, fill, err := a.computeAlign(line, dir)
	if err != nil {
		return err
	}
	sec := a.Registry.Current()
	if sec.IsNobits() {
		sec.LC += pad
		return nil
	}
	for i := uint16(0); i < pad; i++ {
		a.emitByte(fill)
	}
	return nil
}

func (a *Assembler) emitSkip(line int, dir *ast.Directive) error {
	n, fill, err := a.computeSkip(line, dir)
	if err != nil {
		return err
	}
	sec := a.Registry.Current()
	if sec.IsNobits() {
		if fill != 0 {
			return semErr(line, dir.P1, "nonzero fill in a NOBITS section")
		}
		sec.LC += n
		return nil
	}
	for i := uint16(0); i < n; i++ {
		a.emitByte(fill)
	}
	return nil
}

// emitData implements the Pass-2 half of .byte/.word: evaluate each
// comma-separated expression, emit it directly if absolute, or emit the
// addend in place (zero for a bare symbol) plus a relocation record if it
// resolves to a single relative symbol. unit is 1 for .byte, 2 for .word.
func (a *Assembler) emitData(line int, dir *ast.Directive, unit uint16) error {
	sec := a.Registry.Current()
	for _, item := range lexer.SplitOnCommas(dir.P1) {
		expr, err := ParseExpression(line, item)
		if err != nil {
			return err
		}
		result, err := Evaluate(line, expr, a.Registry, false)
		if err != nil {
			return err
		}

		if sec.IsNobits() {
			if result.Class != 0 || result.Value != 0 {
				return semErr(line, item, "nonzero data in a NOBITS section")
			}
			sec.LC += unit
			continue
		}

		if unit == 1 {
			if result.Class == 0 {
				if result.Value < -128 || result.Value > 255 {
					return numErr(line, item, "byte value out of range")
				}
				a.emitByte(byte(result.Value))
				continue
			}
			offset := sec.LC
			a.emitByte(byte(result.Addend(a.Registry)))
			if err := a.addReloc(line, sec, offset, result.RelSym, elf16.RVN16); err != nil {
				return err
			}
			continue
		}

		if result.Class == 0 {
			if result.Value < -32768 || result.Value > 65535 {
				return numErr(line, item, "word value out of range")
			}
			a.emitWord(uint16(result.Value))
			continue
		}
		offset := sec.LC
		a.emitWord(uint16(result.Addend(a.Registry)))
		if err := a.addReloc(line, sec, offset, result.RelSym, elf16.RVN16); err != nil {
			return err
		}
	}
	return nil
}
