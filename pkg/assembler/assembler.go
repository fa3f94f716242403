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

// Package assembler implements the VN16 two-pass translation pipeline:
// parsing, the pass driver, the directive and instruction handlers, the
// expression evaluator, and deferred .equ resolution. It hands off a fully
// populated *object.Registry to pkg/elf16 for emission or dumping.
package assembler

import (
	"context"
	"strings"

	"github.com/golang/glog"

	"github.com/vn16/vasm/pkg/object"
)

// AssembleSource is the package's single entry point: split source into
// lines, run both passes and the deferred fixed point, and return the
// populated registry ready for pkg/elf16's Emit or Dump. On error, the
// registry is not meaningfully usable -- callers must discard it, per the
// "no partial object file" error-handling rule. ctx is threaded from the
// caller's outermost operation boundary and checked at each pass boundary,
// so a cancelled context stops the job between passes rather than
// mid-line.
func AssembleSource(ctx context.Context, source string) (*object.Registry, error) {
	a := NewAssembler()
	lines := splitLines(source)
	glog.V(1).Infof("assembling %d source lines", len(lines))
	if err := a.run(ctx, lines); err != nil {
		return nil, err
	}
	return a.Registry, nil
}

// splitLines splits on '\n', trimming a trailing '\r' from each line so
// CRLF input is accepted without the carriage return leaking into the
// lexer's content text.
func splitLines(source string) []string {
	raw := strings.Split(source, "\n")
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = strings.TrimSuffix(l, "\r")
	}
	return out
}
