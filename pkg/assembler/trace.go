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

package assembler

import (
	"io"

	"github.com/k0kubun/pp/v3"

	"github.com/vn16/vasm/pkg/object"
)

// Trace pretty-prints the registry's symbol and section tables to w, for
// -v diagnostic runs. It is never on the success path; nothing downstream
// of assembly depends on its output.
func Trace(w io.Writer, reg *object.Registry) {
	pp.Fprintf(w, "sections: %v\n", reg.Sections)
	pp.Fprintf(w, "symbols: %v\n", reg.Symbols)
}
