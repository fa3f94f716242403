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

package object

// Section is a Section Descriptor plus its content buffer and relocation
// list. Index is the section's shdrtab index, assigned monotonically on
// creation; it becomes the section's final ELF index and is never
// reassigned.
type Section struct {
	Name    string
	Index   int
	Type    uint16
	Flags   uint16
	Size    uint16
	EntSize uint16 // REL sections only: size of one relocation record
	Info    uint16 // REL sections only: shdrtab index of the section being relocated
	Link    uint16 // REL sections only: shdrtab index of .symtab
	NameOff uint16 // offset into .shstrtab, assigned when the section is created

	// Addr, Offset and Addralign mirror the final sh_addr/sh_offset/
	// sh_addralign fields. This is an ET_REL object with no linked load
	// address, so Addr is always 0; Offset and Addralign are filled in by
	// pkg/elf16's layout step (shared by Emit and Dump) once the final
	// section count and content sizes are known.
	Addr      uint16
	Offset    uint16
	Addralign uint16

	// LC is the section's saved location counter, persisted across
	// .section/.text/etc. switches so re-entering a section resumes
	// emission where it left off.
	LC uint16

	Closed bool

	// Content holds the section's bytes. For SHT_NOBITS sections it is
	// logically zero-filled and must stay empty; the directive handler is
	// responsible for rejecting nonzero data before it would be appended
	// here.
	Content []byte

	Relocs []RelocRecord

	// SymIndex is the index of this section's STT_SECTION symbol.
	SymIndex int
}

// IsNobits reports whether the section is SHT_NOBITS (.bss-like).
func (s *Section) IsNobits() bool { return s.Type == SHTNobits }

// IsExec reports whether the section carries SHF_EXECINSTR.
func (s *Section) IsExec() bool { return s.Flags&SHFExecinstr != 0 }
