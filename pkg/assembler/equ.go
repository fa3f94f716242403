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
	"errors"

	"github.com/vn16/vasm/pkg/ast"
	"github.com/vn16/vasm/pkg/object"
)

// deferredEqu is one .equ/.set expression whose immediate evaluation hit an
// undefined symbol and must be retried after Pass 2.
type deferredEqu struct {
	Name     string
	Expr     ast.Expression
	Redefine bool
	Line     int
}

// storeEquResult writes an evaluated expression into the registry as
// either an SHN_ABS constant or a memoized relative template.
func storeEquResult(reg *object.Registry, name string, result EvalResult, redefine bool) error {
	if result.Class == 0 {
		_, err := reg.DefineAbsolute(name, uint16(result.Value), redefine)
		return err
	}
	addend := result.Addend(reg)
	_, err := reg.DefineRelative(name, uint16(addend), result.Section, result.RelSym, redefine)
	return err
}

// SetEqu implements set_equ: attempt immediate evaluation with undefined
// symbols tolerated; store the result if it succeeds, otherwise queue it in
// deferred for the post-Pass-2 fixed-point resolver.
func SetEqu(reg *object.Registry, deferred *[]deferredEqu, line int, name, exprText string, redefine bool) error {
	expr, err := ParseExpression(line, exprText)
	if err != nil {
		return err
	}
	result, err := Evaluate(line, expr, reg, true)
	if err != nil {
		var de *DeferredError
		if errors.As(err, &de) {
			*deferred = append(*deferred, deferredEqu{Name: name, Expr: expr, Redefine: redefine, Line: line})
			return nil
		}
		return err
	}
	return storeEquResult(reg, name, result, redefine)
}

// ResolveDeferred re-evaluates every still-deferred .equ/.set until a full
// iteration resolves nothing, per the fixed-point rule. Any entry left
// unresolved at that point is a fatal cyclic-or-missing-reference error.
func ResolveDeferred(reg *object.Registry, deferred []deferredEqu) error {
	pending := deferred
	for len(pending) > 0 {
		var next []deferredEqu
		progressed := false
		for _, d := range pending {
			result, err := Evaluate(d.Line, d.Expr, reg, true)
			if err != nil {
				var de *DeferredError
				if errors.As(err, &de) {
					next = append(next, d)
					continue
				}
				return err
			}
			if err := storeEquResult(reg, d.Name, result, d.Redefine); err != nil {
				return err
			}
			progressed = true
		}
		if !progressed {
			return semErr(next[0].Line, next[0].Name, "deferred .equ still unresolved: cyclic or missing reference")
		}
		pending = next
	}
	return nil
}
