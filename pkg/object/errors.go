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

import "fmt"

// RedefinedError reports a symbol already in use under a different meaning.
type RedefinedError struct{ Name string }

func (e *RedefinedError) Error() string {
	return fmt.Sprintf("symbol already in use: %s", e.Name)
}

// UndefinedError reports a reference to a symbol with no known definition.
type UndefinedError struct{ Name string }

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined reference: %s", e.Name)
}

// SectionError reports a malformed section declaration (unknown name with
// no explicit flags, or a bad flags string).
type SectionError struct{ Name, Reason string }

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %s: %s", e.Name, e.Reason)
}

// GlobalOfRelativeEquError reports an attempt to promote a relative .equ
// symbol to global binding, which is rejected per the registry contract.
type GlobalOfRelativeEquError struct{ Name string }

func (e *GlobalOfRelativeEquError) Error() string {
	return fmt.Sprintf("cannot promote relative .equ symbol to global: %s", e.Name)
}
