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

// These constants mirror the ELF16 on-disk layout (see pkg/elf16, which
// re-exports them) and live here, rather than in pkg/elf16, so that this
// package can reference them without creating an import cycle: pkg/elf16's
// Emit/Dump already depend on pkg/object.Registry.

// Section types (sh_type).
const (
	SHTNull     = 0
	SHTProgbits = 1
	SHTSymtab   = 2
	SHTStrtab   = 3
	SHTNobits   = 8
	SHTRel      = 9
)

// Section flags (sh_flags), bitwise-OR'd.
const (
	SHFWrite     = 0x1
	SHFAlloc     = 0x2
	SHFExecinstr = 0x4
	SHFInfoLink  = 0x40
)

// Special section indices.
const (
	SHNUndef = 0
	SHNAbs   = 0xFFF1
)

// Symbol bindings (high nibble of st_info via ELF16_ST_BIND).
const (
	STBLocal  = 0
	STBGlobal = 1
	STBWeak   = 2
)

// Symbol types (low nibble of st_info via ELF16_ST_TYPE).
const (
	STTNotype  = 0
	STTObject  = 1
	STTFunc    = 2
	STTSection = 3
	STTFile    = 4
)

// RelSize is the serialized size of a relocation entry (see elf16.Rel).
const RelSize = 2 + 2
