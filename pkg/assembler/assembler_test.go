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

package assembler_test

import (
	"context"
	"testing"

	"github.com/vn16/vasm/pkg/assembler"
	"github.com/vn16/vasm/pkg/ast"
	"github.com/vn16/vasm/pkg/elf16"
	"github.com/vn16/vasm/pkg/object"
)

func assembleSource(src string) (*object.Registry, error) {
	return assembler.AssembleSource(context.Background(), src)
}

func mustAssemble(t *testing.T, src string) *object.Registry {
	t.Helper()
	reg, err := assembleSource(src)
	if err != nil {
		t.Fatalf("AssembleSource: %v", err)
	}
	return reg
}

func TestAssembleHalt(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		reg := mustAssemble(t, ".text\nhalt\n.end\n")
		sec, ok := reg.LookupSection(".text")
		if !ok {
			t.Fatal(".text not found")
		}
		if sec.Size != 1 {
			t.Errorf("size = %d, want 1", sec.Size)
		}
		want := assembler.Opcode(ast.InstrHalt) << 3
		if len(sec.Content) != 1 || sec.Content[0] != want {
			t.Errorf("content = %v, want [%#02x]", sec.Content, want)
		}
	})

	t.Run("Fail_UnknownMnemonic", func(t *testing.T) {
		_, err := assembleSource(".text\nbogus\n.end\n")
		if err == nil {
			t.Errorf("expected a parse error for an unrecognized mnemonic")
		}
	})
}

func TestAssembleWordData(t *testing.T) {
	reg := mustAssemble(t, ".data\nx: .word 0x1234\n.end\n")
	sec, ok := reg.LookupSection(".data")
	if !ok {
		t.Fatal(".data not found")
	}
	want := []byte{0x34, 0x12}
	if string(sec.Content) != string(want) {
		t.Errorf("content = %v, want %v", sec.Content, want)
	}
	sym, ok := reg.LookupSymbol("x")
	if !ok {
		t.Fatal("x not found")
	}
	if sym.Value != 0 || sym.Type != elf16.STTObject || sym.Bind != elf16.STBLocal {
		t.Errorf("unexpected symbol: %+v", sym)
	}
}

func TestAssembleMovRegisters(t *testing.T) {
	reg := mustAssemble(t, ".text\nmov r0, r1\n.end\n")
	sec, _ := reg.LookupSection(".text")
	opByte := assembler.Opcode(ast.InstrMov)<<3 | 1<<2
	want := []byte{opByte, 0x20, 0x22}
	if string(sec.Content) != string(want) {
		t.Errorf("content = %v, want %v", sec.Content, want)
	}
}

func TestAssembleEquByteData(t *testing.T) {
	reg := mustAssemble(t, ".equ K, 7\n.data\n.byte K\n.end\n")
	sec, _ := reg.LookupSection(".data")
	if string(sec.Content) != string([]byte{7}) {
		t.Errorf("content = %v, want [7]", sec.Content)
	}
	sym, ok := reg.LookupSymbol("K")
	if !ok {
		t.Fatal("K not found")
	}
	if !sym.IsAbsolute() || sym.Value != 7 {
		t.Errorf("unexpected K: %+v", sym)
	}
}

func TestAssembleExternCallRelocation(t *testing.T) {
	reg := mustAssemble(t, ".extern foo\n.text\ncall foo\n.end\n")
	relSec, ok := reg.LookupSection(".rel.text")
	if !ok {
		t.Fatal(".rel.text not found")
	}
	if len(relSec.Relocs) != 1 {
		t.Fatalf("relocs = %d, want 1", len(relSec.Relocs))
	}
	rel := relSec.Relocs[0]
	if rel.Type != elf16.RVN16 || rel.Offset != 2 {
		t.Errorf("unexpected relocation: %+v", rel)
	}
	foo, ok := reg.LookupSymbol("foo")
	if !ok {
		t.Fatal("foo not found")
	}
	if foo.Bind != elf16.STBGlobal || !foo.IsUndefined() {
		t.Errorf("unexpected foo: %+v", foo)
	}
}

func TestAssembleSameSectionPCRelNoRelocation(t *testing.T) {
	reg := mustAssemble(t, ".text\nL: jmp $L\n.end\n")
	sec, _ := reg.LookupSection(".text")
	if relSec, ok := reg.LookupSection(".rel.text"); ok && len(relSec.Relocs) != 0 {
		t.Errorf("expected no relocation for a same-section PC-relative reference, got %+v", relSec.Relocs)
	}
	// jmp opcode, descriptor (RegIndOff16, pc), then displacement L(0) - next(4) = -4.
	opByte := assembler.Opcode(ast.InstrJmp)<<3 | 1<<2
	wantDisp := []byte{0xFC, 0xFF}
	want := append([]byte{opByte, assembler.Descriptor(assembler.ModeRegIndOff, 7<<1)}, wantDisp...)
	if string(sec.Content) != string(want) {
		t.Errorf("content = % x, want % x", sec.Content, want)
	}
}

func TestAssembleRedefinitionFails(t *testing.T) {
	_, err := assembleSource(".text\nx: nop\nx: nop\n.end\n")
	if err == nil {
		t.Fatal("expected a redefinition error")
	}
}

func TestAssembleDeferredEquForwardReference(t *testing.T) {
	reg := mustAssemble(t, ".text\n.equ K, L + 2\nL: nop\n.end\n")
	sym, ok := reg.LookupSymbol("K")
	if !ok {
		t.Fatal("K not found")
	}
	if !sym.IsEqu || sym.RelocTarget != "L" {
		t.Errorf("unexpected K: %+v", sym)
	}
}

func TestAssembleCyclicEquFails(t *testing.T) {
	_, err := assembleSource(".equ A, B + 1\n.equ B, A + 1\n.text\n.end\n")
	if err == nil {
		t.Fatal("expected a cyclic .equ error")
	}
}

func TestAssembleAlignPadding(t *testing.T) {
	reg := mustAssemble(t, ".data\n.byte 1\n.align 4\n.end\n")
	sec, _ := reg.LookupSection(".data")
	if sec.Size%4 != 0 {
		t.Errorf("size = %d, not a multiple of 4", sec.Size)
	}
	want := []byte{1, 0, 0, 0}
	if string(sec.Content) != string(want) {
		t.Errorf("content = %v, want %v", sec.Content, want)
	}
}

func TestAssembleNobitsRejectsNonzero(t *testing.T) {
	_, err := assembleSource(".bss\n.byte 1\n.end\n")
	if err == nil {
		t.Fatal("expected a rejection of nonzero data in a NOBITS section")
	}
}

func TestAssembleDataInExecutableSectionFails(t *testing.T) {
	_, err := assembleSource(".text\n.byte 1\n.end\n")
	if err == nil {
		t.Fatal("expected a rejection of data in an executable section")
	}
}

func TestAssembleInt(t *testing.T) {
	t.Run("FixedByteSize", func(t *testing.T) {
		reg := mustAssemble(t, ".text\nint 5\n.end\n")
		sec, _ := reg.LookupSection(".text")
		opByte := assembler.Opcode(ast.InstrInt) << 3 // S=0: int is always byte-sized
		want := []byte{opByte, assembler.Descriptor(assembler.ModeImm, 0), 5}
		if string(sec.Content) != string(want) {
			t.Errorf("content = % x, want % x", sec.Content, want)
		}
	})

	t.Run("Fail_SuffixB", func(t *testing.T) {
		_, err := assembleSource(".text\nintb 5\n.end\n")
		if err == nil {
			t.Error("expected int to reject a size suffix")
		}
	})

	t.Run("Fail_SuffixW", func(t *testing.T) {
		_, err := assembleSource(".text\nintw 5\n.end\n")
		if err == nil {
			t.Error("expected int to reject a size suffix")
		}
	})
}

func TestAssembleAddressingModeLegality(t *testing.T) {
	fail := []struct {
		Name string
		Src  string
	}{
		{"JmpRegisterDirect", ".text\njmp r0\n.end\n"},
		{"CallImmediate", ".text\ncall 100\n.end\n"},
		{"PopImmediate", ".text\npop 5\n.end\n"},
		{"NotImmediate", ".text\nnot 5\n.end\n"},
		{"MovImmediateDestination", ".text\nmov 5, r0\n.end\n"},
		{"MovBothMemory", ".text\nmov [r0], [r1]\n.end\n"},
		{"XchgImmediate", ".text\nxchg r0, 5\n.end\n"},
		{"ShlMemoryShiftAmount", ".text\nshl r0, [r1]\n.end\n"},
	}
	for _, c := range fail {
		t.Run(c.Name, func(t *testing.T) {
			if _, err := assembleSource(c.Src); err == nil {
				t.Errorf("assembleSource(%q) expected an addressing-mode error", c.Src)
			}
		})
	}

	ok := []struct {
		Name string
		Src  string
	}{
		{"JmpAbsolute", ".text\njmp *100\n.end\n"},
		{"PopRegister", ".text\npop r0\n.end\n"},
		{"NotMemory", ".text\nnot [r0]\n.end\n"},
		{"PushImmediate", ".text\npush 5\n.end\n"},
		{"MovRegisterToMemory", ".text\nmov [r0], r1\n.end\n"},
	}
	for _, c := range ok {
		t.Run(c.Name, func(t *testing.T) {
			if _, err := assembleSource(c.Src); err != nil {
				t.Errorf("assembleSource(%q): unexpected error: %v", c.Src, err)
			}
		})
	}
}
