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
	"fmt"
	"io"

	"github.com/vn16/vasm/pkg/object"
)

// flagLetters renders sh_flags as the W/A/X/I letters the textual dump
// format uses, one per set bit in a fixed order.
func flagLetters(flags uint16) string {
	s := ""
	if flags&SHFWrite != 0 {
		s += "W"
	}
	if flags&SHFAlloc != 0 {
		s += "A"
	}
	if flags&SHFExecinstr != 0 {
		s += "X"
	}
	if flags&SHFInfoLink != 0 {
		s += "I"
	}
	if s == "" {
		return "-"
	}
	return s
}

func sectionTypeName(t uint16) string {
	switch t {
	case SHTNull:
		return "NULL"
	case SHTProgbits:
		return "PROGBITS"
	case SHTSymtab:
		return "SYMTAB"
	case SHTStrtab:
		return "STRTAB"
	case SHTNobits:
		return "NOBITS"
	case SHTRel:
		return "REL"
	default:
		return "UNKNOWN"
	}
}

func bindName(b uint8) string {
	switch b {
	case STBLocal:
		return "LOCAL"
	case STBGlobal:
		return "GLOBAL"
	case STBWeak:
		return "WEAK"
	default:
		return "?"
	}
}

func typeName(t uint8) string {
	switch t {
	case STTNotype:
		return "NOTYPE"
	case STTObject:
		return "OBJECT"
	case STTFunc:
		return "FUNC"
	case STTSection:
		return "SECTION"
	case STTFile:
		return "FILE"
	default:
		return "?"
	}
}

func shndxName(shndx uint16) string {
	switch shndx {
	case SHNUndef:
		return "UND"
	case SHNAbs:
		return "ABS"
	default:
		return fmt.Sprintf("%d", shndx)
	}
}

// Dump writes a human-readable rendering of reg mirroring a standard ELF
// dump tool's layout: header block, section headers, per-section hex
// dumps, the symbol table, the string tables, and relocation listings. It
// shares layoutSections with Emit, so the section-header table it prints
// (including the .symtab/.strtab/.shstrtab rows, which have no
// object.Section of their own) is exactly the one Emit would serialize.
func Dump(w io.Writer, reg *object.Registry) error {
	fmt.Fprintf(w, "ELF16 object, class=ELFCLASS16 data=ELFDATA2LSB type=ET_REL machine=EM_VN16\n\n")

	entries, err := layoutSections(reg)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Section headers:\n")
	fmt.Fprintf(w, "  [%2s] %-16s %-8s %6s %6s %6s %6s %-4s %4s %4s %5s\n",
		"#", "Name", "Type", "Addr", "Off", "Size", "Entsz", "Flg", "Lnk", "Inf", "Align")
	for _, e := range entries {
		fmt.Fprintf(w, "  [%2d] %-16s %-8s %#06x %#06x %6d %6d %-4s %4d %4d %5d\n",
			e.Index, e.Name, sectionTypeName(e.Shdr.Type), e.Shdr.Addr, e.Shdr.Offset, e.Shdr.Size,
			e.Shdr.Entsize, flagLetters(e.Shdr.Flags), e.Shdr.Link, e.Shdr.Info, e.Shdr.Addralign)
	}
	fmt.Fprintln(w)

	for _, e := range entries[1:] {
		if len(e.Content) == 0 {
			continue
		}
		fmt.Fprintf(w, "Contents of section %s:\n", e.Name)
		dumpHex(w, e.Content)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Symbol table:\n")
	fmt.Fprintf(w, "  [%2s] %-20s %6s %-7s %-7s %4s\n", "#", "Name", "Value", "Bind", "Type", "Ndx")
	for _, sym := range reg.Symbols {
		fmt.Fprintf(w, "  [%2d] %-20s %#06x %-7s %-7s %4s\n",
			sym.Index, sym.Name, sym.Value, bindName(sym.Bind), typeName(sym.Type), shndxName(sym.Section))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "String tables:\n")
	dumpStringTable(w, ".strtab", reg.StrTab)
	dumpStringTable(w, ".shstrtab", reg.ShStrTab)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Relocations:\n")
	for _, sec := range reg.Sections[1:] {
		if sec.Type != SHTRel || len(sec.Relocs) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s:\n", sec.Name)
		for _, r := range sec.Relocs {
			fmt.Fprintf(w, "    offset=%#06x sym=%d type=%d\n", r.Offset, r.SymIndex, r.Type)
		}
	}

	return nil
}

func dumpStringTable(w io.Writer, name string, t *object.StringTable) {
	fmt.Fprintf(w, "  %s:\n", name)
	for _, e := range t.Entries() {
		fmt.Fprintf(w, "    %#06x  %q\n", e.Offset, e.Name)
	}
}

func dumpHex(w io.Writer, data []byte) {
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(w, "  %04x ", i)
		for _, b := range data[i:end] {
			fmt.Fprintf(w, "%02x ", b)
		}
		fmt.Fprintln(w)
	}
}
