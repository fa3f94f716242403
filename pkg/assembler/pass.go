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
	"context"

	"github.com/golang/glog"

	"github.com/vn16/vasm/pkg/ast"
	"github.com/vn16/vasm/pkg/object"
)

// lineEntry is the Line Info record of §3: a parsed line plus the LC it
// started at, captured during Pass 1 for Pass 2 to replay.
type lineEntry struct {
	LineNum int
	LC      uint16
	Line    *ast.Line
}

// Assembler drives the two passes, the deferred-.equ fixed point, and owns
// the registry the rest of the package mutates.
type Assembler struct {
	Registry *object.Registry

	deferred []deferredEqu
	lineLog  []lineEntry
}

// NewAssembler returns an Assembler ready to run Pass 1 over source lines.
func NewAssembler() *Assembler {
	return &Assembler{Registry: object.NewRegistry()}
}

func (a *Assembler) emitByte(b byte) {
	sec := a.Registry.Current()
	sec.Content = append(sec.Content, b)
	sec.LC++
}

func (a *Assembler) emitWord(w uint16) {
	a.emitByte(byte(w))
	a.emitByte(byte(w >> 8))
}

// addReloc records a relocation against name at sec's section-relative
// offset, lazily creating .rel<sec> per add_rel_section.
func (a *Assembler) addReloc(line int, sec *object.Section, offset uint16, name string, relType uint8) error {
	sym, ok := a.Registry.LookupSymbol(name)
	if !ok {
		return semErr(line, name, "undefined reference")
	}
	relSec := a.Registry.AddRelSection(sec)
	relSec.Relocs = append(relSec.Relocs, object.RelocRecord{
		Offset:   offset,
		SymIndex: sym.Index,
		Type:     relType,
	})
	return nil
}

// run drives both passes and the deferred-.equ fixed point over lines
// (already split, comments and all -- the directive/instruction handlers
// and lexer strip those per-line). It does not emit an object; call
// elf16.Emit or elf16.Dump on a.Registry afterward. ctx is checked between
// passes so a cancelled or timed-out caller doesn't pay for a pass it no
// longer wants.
func (a *Assembler) run(ctx context.Context, lines []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.runPass1(lines); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	a.Registry.FinalizeSizes()
	a.Registry.ResetLCs()
	if err := a.runPass2(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ResolveDeferred(a.Registry, a.deferred); err != nil {
		return err
	}
	return nil
}

// runPass1 reads the source line by line, sizing each line's content,
// advancing the current section's LC, defining any label at the line's
// start LC, and appending non-empty lines to the line log. It terminates
// successfully at .end or EOF.
func (a *Assembler) runPass1(lines []string) error {
	for i, raw := range lines {
		lineNum := i + 1
		ln, err := ParseLine(lineNum, raw)
		if err != nil {
			return err
		}

		startLC := a.Registry.Current().LC
		if ln.Label != "" {
			if _, err := a.Registry.DefineLabel(ln.Label); err != nil {
				return semErr(lineNum, ln.Label, err.Error())
			}
		}

		switch ln.ContentType {
		case ast.ContentNone:
			continue
		case ast.ContentDirective:
			stop, err := a.pass1Directive(lineNum, ln.Dir)
			if err != nil {
				return err
			}
			a.lineLog = append(a.lineLog, lineEntry{LineNum: lineNum, LC: startLC, Line: ln})
			if stop {
				glog.V(1).Infof("pass 1: .end at line %d", lineNum)
				return nil
			}
		case ast.ContentInstruction:
			sec := a.Registry.Current()
			if !sec.IsExec() {
				return semErr(lineNum, sec.Name, "instruction outside an executable section")
			}
			size, err := sizeOfInstruction(lineNum, ln.Instr)
			if err != nil {
				return err
			}
			sec.LC += uint16(size)
			a.lineLog = append(a.lineLog, lineEntry{LineNum: lineNum, LC: startLC, Line: ln})
		}
	}
	glog.V(1).Infof("pass 1: reached EOF without .end")
	return nil
}

// runPass2 replays the line log (not the source) and emits bytes. Labels
// are never redefined here -- Pass 1 already fixed every symbol's value,
// including forward references -- only directive/instruction side effects
// that Pass 1 deferred are re-processed now.
func (a *Assembler) runPass2() error {
	for _, entry := range a.lineLog {
		ln := entry.Line
		switch ln.ContentType {
		case ast.ContentDirective:
			if stop, err := a.pass2Directive(entry.LineNum, ln.Dir); err != nil {
				return err
			} else if stop {
				return nil
			}
		case ast.ContentInstruction:
			if err := a.emitInstruction(entry.LineNum, ln.Instr); err != nil {
				return err
			}
		}
	}
	return nil
}
