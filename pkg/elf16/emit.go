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

package elf16

import (
	"bytes"
	"encoding/binary"

	"github.com/vn16/vasm/pkg/object"
)

// sectionLayout is one row of the finished object's section-header table:
// either a source-declared section or one of the three bookkeeping sections
// (.symtab, .strtab, .shstrtab) that elf16 synthesizes and which have no
// object.Section of their own.
type sectionLayout struct {
	Index   int
	Name    string
	Shdr    Shdr
	Content []byte
}

// layoutSections computes the final section-header table, including file
// offsets, for reg: every source section in registry order, then .symtab,
// .strtab, .shstrtab. Emit and Dump both build their output from this, so
// a textual dump and the binary object it describes never disagree about
// section count, offsets, or sizes.
func layoutSections(reg *object.Registry) ([]sectionLayout, error) {
	// Reuse names added by an earlier call so repeated layouts of one
	// registry (Dump then Emit) produce the same .shstrtab.
	nameOff := func(name string) uint16 {
		for _, e := range reg.ShStrTab.Entries() {
			if e.Name == name {
				return e.Offset
			}
		}
		return reg.ShStrTab.Add(name)
	}
	symtabNameOff := nameOff(".symtab")
	strtabNameOff := nameOff(".strtab")
	shstrtabNameOff := nameOff(".shstrtab")

	symtabIndex := uint16(len(reg.Sections))
	strtabIndex := symtabIndex + 1
	shstrtabIndex := symtabIndex + 2
	total := int(shstrtabIndex) + 1

	for _, sec := range reg.Sections[1:] {
		if sec.Type == SHTRel {
			sec.Link = symtabIndex
		}
	}

	symtabBytes, err := packSymbols(reg)
	if err != nil {
		return nil, err
	}
	strtabBytes := reg.StrTab.Bytes()
	shstrtabBytes := reg.ShStrTab.Bytes()

	entries := make([]sectionLayout, total)
	for _, sec := range reg.Sections {
		shdr := Shdr{
			Name: sec.NameOff, Type: sec.Type, Flags: sec.Flags,
			Size: sec.Size, Link: sec.Link, Info: sec.Info,
			Entsize: sec.EntSize, Addralign: 1,
		}
		var content []byte
		switch sec.Type {
		case SHTNull, SHTNobits:
			// no file content
		case SHTRel:
			content = packRelocs(sec.Relocs)
			shdr.Size = uint16(len(content))
		default:
			content = sec.Content
		}
		entries[sec.Index] = sectionLayout{Index: sec.Index, Name: sec.Name, Shdr: shdr, Content: content}
	}
	entries[symtabIndex] = sectionLayout{
		Index: int(symtabIndex), Name: ".symtab",
		Shdr: Shdr{
			Name: symtabNameOff, Type: SHTSymtab, Entsize: SymSize,
			Size: uint16(len(symtabBytes)), Link: strtabIndex, Addralign: 1,
		},
		Content: symtabBytes,
	}
	entries[strtabIndex] = sectionLayout{
		Index: int(strtabIndex), Name: ".strtab",
		Shdr:    Shdr{Name: strtabNameOff, Type: SHTStrtab, Size: uint16(len(strtabBytes)), Addralign: 1},
		Content: strtabBytes,
	}
	entries[shstrtabIndex] = sectionLayout{
		Index: int(shstrtabIndex), Name: ".shstrtab",
		Shdr:    Shdr{Name: shstrtabNameOff, Type: SHTStrtab, Size: uint16(len(shstrtabBytes)), Addralign: 1},
		Content: shstrtabBytes,
	}

	offset := uint16(EhdrSize) + uint16(total)*uint16(ShdrSize)
	for i := range entries {
		if entries[i].Content == nil {
			continue
		}
		entries[i].Shdr.Offset = offset
		offset += uint16(len(entries[i].Content))
	}

	// Mirror the computed layout back onto the source sections so any other
	// consumer of reg.Sections sees the same offsets without recomputing
	// them.
	for _, sec := range reg.Sections {
		sec.Offset = entries[sec.Index].Shdr.Offset
		sec.Addralign = entries[sec.Index].Shdr.Addralign
	}

	return entries, nil
}

// Emit serializes a finished registry to the ELF16 on-disk format: magic
// header, section-header table, then section contents in section-index
// order.
func Emit(reg *object.Registry) ([]byte, error) {
	entries, err := layoutSections(reg)
	if err != nil {
		return nil, err
	}
	total := len(entries)

	ehdr := Ehdr{
		Type: ETRel, Machine: EMVN16, Version: EVCurrent,
		Shoff: EhdrSize, Ehsize: EhdrSize, Shentsize: ShdrSize,
		Shnum: uint16(total), Shstrndx: uint16(total - 1),
	}
	ehdr.Ident[0], ehdr.Ident[1], ehdr.Ident[2], ehdr.Ident[3] = ELFMAG0, ELFMAG1, ELFMAG2, ELFMAG3
	ehdr.Ident[4], ehdr.Ident[5], ehdr.Ident[6] = ELFCLASS16, ELFDATA2LSB, EVCurrent

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, ehdr); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := binary.Write(buf, binary.LittleEndian, e.Shdr); err != nil {
			return nil, err
		}
	}
	for _, e := range entries {
		buf.Write(e.Content)
	}
	return buf.Bytes(), nil
}

func packSymbols(reg *object.Registry) ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, sym := range reg.Symbols {
		entry := Sym{
			Name: sym.NameOff, Value: sym.Value, Size: sym.Size,
			Info: STInfo(sym.Bind, sym.Type), Shndx: sym.Section,
		}
		if err := binary.Write(buf, binary.LittleEndian, entry); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func packRelocs(relocs []object.RelocRecord) []byte {
	buf := new(bytes.Buffer)
	for _, r := range relocs {
		entry := Rel{Offset: r.Offset, Info: RInfo(uint16(r.SymIndex), r.Type)}
		binary.Write(buf, binary.LittleEndian, entry)
	}
	return buf.Bytes()
}
