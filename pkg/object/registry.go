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

// Package object implements the Symbol & Section registry: the symbol
// table, section-header table, section-content buffers, string tables and
// relocation tables, all with the insertion-order iteration the spec
// requires for deterministic ELF indices.
package object

import (
	"strings"
)

// Registry owns every symbol, section, string table and relocation list for
// one assembly job. It is not safe for concurrent use; one assembler
// instance owns one Registry for its entire lifetime.
type Registry struct {
	Sections     []*Section
	sectionIndex map[string]int

	Symbols     []*Symbol
	symbolIndex map[string]int

	ShStrTab *StringTable
	StrTab   *StringTable

	current *Section
}

// NewRegistry returns a registry primed with the NULL section at index 0
// and the null symbol at index 0, per the invariant that both occupy index
// 0 and the empty name maps to them.
func NewRegistry() *Registry {
	r := &Registry{
		sectionIndex: make(map[string]int),
		symbolIndex:  make(map[string]int),
		ShStrTab:     NewStringTable(),
		StrTab:       NewStringTable(),
	}
	null := &Section{Name: "", Index: 0, Type: SHTNull}
	r.Sections = append(r.Sections, null)
	r.sectionIndex[""] = 0
	r.current = null

	nullSym := &Symbol{Name: "", Index: 0, Section: SHNUndef}
	r.Symbols = append(r.Symbols, nullSym)
	r.symbolIndex[""] = 0
	return r
}

// Current returns the currently open section.
func (r *Registry) Current() *Section { return r.current }

// LookupSection returns the section named name, if any.
func (r *Registry) LookupSection(name string) (*Section, bool) {
	idx, ok := r.sectionIndex[name]
	if !ok {
		return nil, false
	}
	return r.Sections[idx], true
}

// LookupSymbol returns the symbol named name, if any.
func (r *Registry) LookupSymbol(name string) (*Symbol, bool) {
	idx, ok := r.symbolIndex[name]
	if !ok {
		return nil, false
	}
	return r.Symbols[idx], true
}

func (r *Registry) addSymbol(sym *Symbol) *Symbol {
	sym.Index = len(r.Symbols)
	sym.NameOff = r.StrTab.Add(sym.Name)
	r.Symbols = append(r.Symbols, sym)
	r.symbolIndex[sym.Name] = sym.Index
	return sym
}

// sectionSymbolType infers a defined label's type from its section: code
// sections produce STT_FUNC labels, everything else STT_OBJECT.
func sectionSymbolType(s *Section) uint8 {
	if s.IsExec() {
		return STTFunc
	}
	return STTObject
}

// DefineLabel implements define_label: a colon-terminated label at the
// current LC of the current section.
func (r *Registry) DefineLabel(name string) (*Symbol, error) {
	if name == r.current.Name {
		// A label matching the current section's own name updates that
		// section's STT_SECTION symbol instead of creating a new one.
		sym := r.Symbols[r.current.SymIndex]
		sym.Value = r.current.LC
		return sym, nil
	}
	if existing, ok := r.LookupSymbol(name); ok {
		if existing.IsUndefined() && existing.Bind == STBGlobal {
			existing.Bind = STBLocal
			existing.Section = uint16(r.current.Index)
			existing.Value = r.current.LC
			existing.Type = sectionSymbolType(r.current)
			return existing, nil
		}
		return nil, &RedefinedError{Name: name}
	}
	sym := &Symbol{
		Name:    name,
		Value:   r.current.LC,
		Bind:    STBLocal,
		Type:    sectionSymbolType(r.current),
		Section: uint16(r.current.Index),
	}
	return r.addSymbol(sym), nil
}

// DeclareExtern implements declare_extern.
func (r *Registry) DeclareExtern(name string) *Symbol {
	if existing, ok := r.LookupSymbol(name); ok {
		return existing
	}
	sym := &Symbol{
		Name:    name,
		Bind:    STBGlobal,
		Type:    STTNotype,
		Section: SHNUndef,
	}
	return r.addSymbol(sym)
}

// DeclareGlobal implements declare_global.
func (r *Registry) DeclareGlobal(name string) error {
	sym, ok := r.LookupSymbol(name)
	if !ok {
		return &UndefinedError{Name: name}
	}
	if sym.IsEqu && sym.Section != SHNAbs {
		return &GlobalOfRelativeEquError{Name: name}
	}
	sym.Bind = STBGlobal
	return nil
}

// DefineAbsolute records a symbol (typically a .equ/.set result) as an
// SHN_ABS constant. redefine, when false, rejects any existing definition
// (the .equ single-assignment rule); when true (.set) it always overwrites.
func (r *Registry) DefineAbsolute(name string, value uint16, redefine bool) (*Symbol, error) {
	if existing, ok := r.LookupSymbol(name); ok {
		if !redefine {
			return nil, &RedefinedError{Name: name}
		}
		existing.Section = SHNAbs
		existing.Value = value
		existing.Type = STTNotype
		existing.IsEqu = true
		existing.RelocTarget = ""
		return existing, nil
	}
	sym := &Symbol{Name: name, Value: value, Bind: STBLocal, Section: SHNAbs, IsEqu: true}
	return r.addSymbol(sym), nil
}

// DefineRelative records a symbol (typically a .equ/.set result) as a
// memoized relative expression template: using name later behaves as if
// the user had written relocTarget's own reference plus addend. redefine
// follows the same rule as in DefineAbsolute.
func (r *Registry) DefineRelative(name string, addend uint16, section uint16, relocTarget string, redefine bool) (*Symbol, error) {
	if existing, ok := r.LookupSymbol(name); ok {
		if !redefine {
			return nil, &RedefinedError{Name: name}
		}
		existing.Section = section
		existing.Value = addend
		existing.IsEqu = true
		existing.RelocTarget = relocTarget
		return existing, nil
	}
	sym := &Symbol{
		Name: name, Value: addend, Bind: STBLocal, Section: section,
		IsEqu: true, RelocTarget: relocTarget,
	}
	return r.addSymbol(sym), nil
}

func (r *Registry) addSection(name string) *Section {
	sec := &Section{Name: name, Index: len(r.Sections)}
	sec.NameOff = r.ShStrTab.Add(name)
	r.Sections = append(r.Sections, sec)
	r.sectionIndex[name] = sec.Index

	symSec := &Symbol{
		Name: name, Bind: STBLocal, Type: STTSection,
		Section: uint16(sec.Index),
	}
	r.addSymbol(symSec)
	sec.SymIndex = symSec.Index
	return sec
}

// inferredFlags maps a well-known section name to its default type/flags.
func inferredFlags(name string) (typ, flags uint16, ok bool) {
	switch name {
	case ".bss":
		return SHTNobits, SHFAlloc | SHFWrite, true
	case ".data":
		return SHTProgbits, SHFAlloc | SHFWrite, true
	case ".text":
		return SHTProgbits, SHFAlloc | SHFExecinstr, true
	case ".rodata":
		return SHTProgbits, SHFAlloc, true
	default:
		return 0, 0, false
	}
}

// parseExplicitFlags decodes a .section flags string: a→ALLOC, e→NOBITS,
// w→WRITE, x→EXECINSTR.
func parseExplicitFlags(flagsStr string) (typ, flags uint16, err error) {
	typ = SHTProgbits
	for _, c := range flagsStr {
		switch c {
		case 'a':
			flags |= SHFAlloc
		case 'e':
			typ = SHTNobits
		case 'w':
			flags |= SHFWrite
		case 'x':
			flags |= SHFExecinstr
		default:
			return 0, 0, &SectionError{Reason: "unknown flag letter " + string(c)}
		}
	}
	return typ, flags, nil
}

// OpenSection implements open_section. flagsStr is the FLAGS text of
// ".section NAME,\"FLAGS\"" with its quotes already removed (see
// SplitSectionFlags); hasExplicitFlags is false when no flags were given,
// and inference by name applies instead.
func (r *Registry) OpenSection(name string, flagsStr string, hasExplicitFlags bool) (*Section, error) {
	sec, existed := r.LookupSection(name)
	if !existed {
		var typ, flags uint16
		if hasExplicitFlags {
			t, f, err := parseExplicitFlags(flagsStr)
			if err != nil {
				return nil, &SectionError{Name: name, Reason: err.Error()}
			}
			typ, flags = t, f
		} else if t, f, ok := inferredFlags(name); ok {
			typ, flags = t, f
		} else {
			return nil, &SectionError{Name: name, Reason: "unknown section with no explicit flags"}
		}
		sec = r.addSection(name)
		sec.Type = typ
		sec.Flags = flags
	}
	r.current = sec
	return sec, nil
}

// EndSection implements end_section: save the final LC as the section's
// size and mark it closed.
func (r *Registry) EndSection() {
	r.current.Size = r.current.LC
	r.current.Closed = true
}

// FinalizeSizes sets every content-bearing section's Size to its final LC.
// A section's size is simply the highest LC it ever reached; EndSection
// captures this for whichever section is open at ".end", and this captures
// it for every other section that was merely suspended, not closed.
func (r *Registry) FinalizeSizes() {
	for _, sec := range r.Sections[1:] {
		if sec.Type == SHTProgbits || sec.Type == SHTNobits {
			sec.Size = sec.LC
		}
	}
}

// ResetLCs zeroes every section's location counter and makes the NULL
// section current again, for the transition from Pass 1 (which only
// measures sizes) to Pass 2 (which re-walks the line log from scratch and
// actually emits bytes at those same offsets).
func (r *Registry) ResetLCs() {
	for _, sec := range r.Sections[1:] {
		sec.LC = 0
	}
	r.current = r.Sections[0]
}

// AddRelSection implements add_rel_section: idempotently create .rel<target>.
// Link (the symtab shdrtab index) is not known until ELF emission time,
// when .symtab itself is assigned an index; the emitter patches Link on
// every SHT_REL section once that index exists.
func (r *Registry) AddRelSection(target *Section) *Section {
	name := ".rel" + target.Name
	if sec, ok := r.LookupSection(name); ok {
		return sec
	}
	sec := r.addSection(name)
	sec.Type = SHTRel
	sec.Flags = SHFInfoLink
	sec.EntSize = RelSize
	sec.Info = uint16(target.Index)
	return sec
}

// SplitSectionFlags is a small helper for the directive handler: given the
// raw p2 text of ".section NAME,\"FLAGS\"", strip surrounding quotes.
func SplitSectionFlags(raw string) string {
	return strings.Trim(raw, `"`)
}
