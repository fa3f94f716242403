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

// Package elf16 defines the on-disk layout of the custom 16-bit little-
// endian ELF variant produced by this assembler, and serializes an
// assembled object (or a textual dump of the same data) to it.
//
// Struct and constant layouts are ported directly from the original
// implementation's ELF header (Elf16_Ehdr, Elf16_Shdr, Elf16_Sym, Elf16_Rel,
// Elf16_Phdr); this is not the standard library's debug/elf format, which
// has no 16-bit variant.
package elf16

import "github.com/vn16/vasm/pkg/object"

// e_ident layout.
const (
	EISize  = 16
	ELFMAG0 = 0x7F
	ELFMAG1 = 'E'
	ELFMAG2 = 'L'
	ELFMAG3 = 'F'

	ELFCLASS16  = 1
	ELFDATA2LSB = 1
	EVCurrent   = 1
)

// Object file types (e_type).
const (
	ETNone = 0
	ETRel  = 1
)

// Machine (e_machine).
const (
	EMVN16 = 1
)

// Section types (sh_type). Defined in pkg/object to avoid an import cycle
// (pkg/object needs them; pkg/elf16 needs pkg/object for Emit/Dump) and
// re-exported here under their original names.
const (
	SHTNull     = object.SHTNull
	SHTProgbits = object.SHTProgbits
	SHTSymtab   = object.SHTSymtab
	SHTStrtab   = object.SHTStrtab
	SHTNobits   = object.SHTNobits
	SHTRel      = object.SHTRel
)

// Section flags (sh_flags), bitwise-OR'd.
const (
	SHFWrite     = object.SHFWrite
	SHFAlloc     = object.SHFAlloc
	SHFExecinstr = object.SHFExecinstr
	SHFInfoLink  = object.SHFInfoLink
)

// Special section indices.
const (
	SHNUndef = object.SHNUndef
	SHNAbs   = object.SHNAbs
)

// Symbol bindings (high nibble of st_info via ELF16_ST_BIND).
const (
	STBLocal  = object.STBLocal
	STBGlobal = object.STBGlobal
	STBWeak   = object.STBWeak
)

// Symbol types (low nibble of st_info via ELF16_ST_TYPE).
const (
	STTNotype  = object.STTNotype
	STTObject  = object.STTObject
	STTFunc    = object.STTFunc
	STTSection = object.STTSection
	STTFile    = object.STTFile
)

// ST_INFO packs a binding and a type into one byte, mirroring
// ELF16_ST_INFO(bind, type) from the original header.
func STInfo(bind, typ uint8) uint8 { return (bind << 4) | (typ & 0xF) }

// STBind and STType unpack an st_info byte.
func STBind(info uint8) uint8 { return info >> 4 }
func STType(info uint8) uint8 { return info & 0xF }

// Relocation types.
const (
	RVNNone = 0
	RVN16   = 1
	RVNPC16 = 2
)

// RInfo packs a symbol index and relocation type into one r_info field,
// mirroring ELF16_R_INFO(sym, type) from the original header.
func RInfo(sym uint16, typ uint8) uint16 { return (sym << 8) | uint16(typ) }

// RSym and RType unpack an r_info field.
func RSym(info uint16) uint16 { return info >> 8 }
func RType(info uint16) uint8 { return uint8(info & 0xFF) }

// Ehdr is the 16-bit ELF file header.
type Ehdr struct {
	Ident     [EISize]byte
	Type      uint16
	Machine   uint16
	Version   uint16
	Entry     uint16
	Phoff     uint16
	Shoff     uint16
	Flags     uint16
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// EhdrSize is the serialized size of Ehdr: 16 identification bytes plus 13
// 16-bit fields.
const EhdrSize = EISize + 13*2

// Shdr is a 16-bit ELF section header: 10 16-bit words.
type Shdr struct {
	Name      uint16
	Type      uint16
	Flags     uint16
	Addr      uint16
	Offset    uint16
	Size      uint16
	Link      uint16
	Info      uint16
	Addralign uint16
	Entsize   uint16
}

const ShdrSize = 10 * 2

// Sym is a 16-bit ELF symbol table entry.
type Sym struct {
	Name  uint16
	Value uint16
	Size  uint16
	Info  uint8
	Other uint8
	Shndx uint16
}

const SymSize = 2 + 2 + 2 + 1 + 1 + 2

// Rel is a 16-bit ELF relocation entry (no addend field; REL convention).
type Rel struct {
	Offset uint16
	Info   uint16
}

const RelSize = object.RelSize

// Phdr is a 16-bit ELF program header. This assembler never emits program
// headers (ET_REL objects have none; program-header layout is a linking/
// executable-layout concern, out of scope), but the struct is carried here
// for parity with the original header.
type Phdr struct {
	Type   uint16
	Offset uint16
	Vaddr  uint16
	Paddr  uint16
	Filesz uint16
	Memsz  uint16
	Flags  uint16
	Align  uint16
}
