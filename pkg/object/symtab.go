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

// Symbol is a Symbol Table Entry. Index is assigned monotonically on
// creation and becomes the symbol's final ELF symtab index; it is never
// reassigned after Pass 1 ends.
type Symbol struct {
	Name    string
	NameOff uint16 // offset into .strtab, assigned when the symbol is created
	Value   uint16
	Size    uint16
	Bind    uint8  // STBLocal | STBGlobal | STBWeak
	Type    uint8  // STTNotype | STTObject | STTFunc | STTSection | STTFile
	Section uint16 // SHNUndef, SHNAbs, or a real section index
	Index   int

	// IsEqu marks a .equ/.set-defined symbol. When IsEqu is true and
	// Section is not SHNAbs, Value holds the addend of a memoized relative
	// expression and RelocTarget names the underlying relocatable symbol a
	// use of this symbol should generate its relocation against; Section
	// (above) then holds that symbol's section (SHNUndef for an .extern
	// target).
	IsEqu       bool
	RelocTarget string
}

// IsAbsolute reports whether the symbol is an SHN_ABS constant.
func (s *Symbol) IsAbsolute() bool { return s.Section == SHNAbs }

// IsUndefined reports whether the symbol has no definition yet (a plain
// .extern, not an unresolved .equ).
func (s *Symbol) IsUndefined() bool { return s.Section == SHNUndef && !s.IsEqu }

// IsRelative reports whether referencing this symbol requires a
// relocation: anything that isn't SHN_ABS.
func (s *Symbol) IsRelative() bool { return !s.IsAbsolute() }
