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

package elf16_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/vn16/vasm/pkg/assembler"
	"github.com/vn16/vasm/pkg/elf16"
	"github.com/vn16/vasm/pkg/object"
)

func assembleFixture(t *testing.T) *object.Registry {
	t.Helper()
	reg, err := assembler.AssembleSource(context.Background(), ".extern foo\n.text\ncall foo\nhalt\n.data\nx: .word 0xBEEF\n.end\n")
	if err != nil {
		t.Fatalf("AssembleSource: %v", err)
	}
	return reg
}

func TestEmitHeader(t *testing.T) {
	reg := assembleFixture(t)
	obj, err := elf16.Emit(reg)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(obj) < elf16.EhdrSize {
		t.Fatalf("object too short: %d bytes", len(obj))
	}
	var ehdr elf16.Ehdr
	if err := binary.Read(bytes.NewReader(obj[:elf16.EhdrSize]), binary.LittleEndian, &ehdr); err != nil {
		t.Fatalf("decoding header: %v", err)
	}
	if ehdr.Ident[0] != elf16.ELFMAG0 || ehdr.Ident[1] != elf16.ELFMAG1 ||
		ehdr.Ident[2] != elf16.ELFMAG2 || ehdr.Ident[3] != elf16.ELFMAG3 {
		t.Errorf("bad magic: %v", ehdr.Ident[:4])
	}
	if ehdr.Machine != elf16.EMVN16 {
		t.Errorf("machine = %d, want EM_VN16", ehdr.Machine)
	}
	if ehdr.Type != elf16.ETRel {
		t.Errorf("type = %d, want ET_REL", ehdr.Type)
	}
	// .text, .data, .rel.text, .symtab, .strtab, .shstrtab, plus the NULL
	// section at index 0.
	wantSections := uint16(len(reg.Sections) + 3)
	if ehdr.Shnum != wantSections {
		t.Errorf("shnum = %d, want %d", ehdr.Shnum, wantSections)
	}
	if int(ehdr.Shstrndx) != int(ehdr.Shnum)-1 {
		t.Errorf("shstrndx = %d, want last section (%d)", ehdr.Shstrndx, ehdr.Shnum-1)
	}
}

func TestEmitRelSectionLinkPatched(t *testing.T) {
	reg := assembleFixture(t)
	obj, err := elf16.Emit(reg)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	relSec, ok := reg.LookupSection(".rel.text")
	if !ok {
		t.Fatal(".rel.text not found")
	}
	symtabIndex := uint16(len(reg.Sections))

	shdrs := make([]elf16.Shdr, 0)
	r := bytes.NewReader(obj[elf16.EhdrSize:])
	for i := 0; i < int(symtabIndex)+3; i++ {
		var sh elf16.Shdr
		if err := binary.Read(r, binary.LittleEndian, &sh); err != nil {
			t.Fatalf("decoding shdr %d: %v", i, err)
		}
		shdrs = append(shdrs, sh)
	}
	got := shdrs[relSec.Index]
	if got.Link != symtabIndex {
		t.Errorf(".rel.text Link = %d, want %d (symtab index)", got.Link, symtabIndex)
	}
	if got.Type != elf16.SHTRel {
		t.Errorf(".rel.text Type = %d, want SHT_REL", got.Type)
	}
}

func TestDumpContainsSections(t *testing.T) {
	reg := assembleFixture(t)
	var buf bytes.Buffer
	if err := elf16.Dump(&buf, reg); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		".text", ".data", ".rel.text", "foo", "x",
		".symtab", ".strtab", ".shstrtab",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestDumpContainsStringTableListing(t *testing.T) {
	reg := assembleFixture(t)
	var buf bytes.Buffer
	if err := elf16.Dump(&buf, reg); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "String tables:") {
		t.Fatalf("dump missing String tables listing:\n%s", out)
	}
	for _, want := range []string{"foo", ".text", ".data"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q in string table listing:\n%s", want, out)
		}
	}
}

func TestSTInfoRoundTrip(t *testing.T) {
	info := elf16.STInfo(elf16.STBGlobal, elf16.STTFunc)
	if elf16.STBind(info) != elf16.STBGlobal || elf16.STType(info) != elf16.STTFunc {
		t.Errorf("STInfo/STBind/STType round trip failed: info=%#x", info)
	}
}

func TestRInfoRoundTrip(t *testing.T) {
	info := elf16.RInfo(42, elf16.RVNPC16)
	if elf16.RSym(info) != 42 || elf16.RType(info) != elf16.RVNPC16 {
		t.Errorf("RInfo/RSym/RType round trip failed: info=%#x", info)
	}
}
