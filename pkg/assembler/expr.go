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
	"strings"

	"github.com/vn16/vasm/pkg/ast"
	"github.com/vn16/vasm/pkg/elf16"
	"github.com/vn16/vasm/pkg/lexer"
	"github.com/vn16/vasm/pkg/numeric"
	"github.com/vn16/vasm/pkg/object"
)

// DeferredError is returned by Evaluate, instead of a fatal error, when
// allowUndefined is set and the expression references a symbol that does
// not exist in the registry at all yet. set_equ uses this to decide
// whether to queue the expression rather than fail outright.
type DeferredError struct{ Symbol string }

func (e *DeferredError) Error() string { return "references undefined symbol " + e.Symbol }

// operand is the evaluator's internal stack entry, per the design note's
// {value, class, section} record, plus the relocatable symbol name (if
// any) currently contributing to Value, needed to compute a relocation
// addend once evaluation finishes.
type operand struct {
	value   int32
	class   int
	section uint16
	relSym  string
}

// EvalResult is the externally visible outcome of evaluating an
// expression.
type EvalResult struct {
	Value   int32
	Class   int
	Section uint16
	RelSym  string
}

// Addend returns the value to store in the instruction/data bytes for a
// class-1 (single-relative) result: the total value with the contributing
// symbol's own local value subtracted out, since the linker will add the
// symbol's final value (S) to whatever addend is already in place.
func (r EvalResult) Addend(reg *object.Registry) int32 {
	sym, ok := reg.LookupSymbol(r.RelSym)
	if !ok {
		return r.Value
	}
	return r.Value - int32(sym.Value)
}

// ParseExpression tokenizes a raw expression string into a flat
// ast.Expression, folding a unary '-' or '~' into number literals via the
// numeric decoder.
func ParseExpression(line int, raw string) (ast.Expression, error) {
	pieces, ok := lexer.TokenizeExpression(raw)
	if !ok {
		return nil, lexErr(line, raw, "malformed expression")
	}
	expr := make(ast.Expression, 0, len(pieces))
	for _, p := range pieces {
		switch {
		case len(p) == 1 && strings.IndexByte(lexer.ExprOperators, p[0]) >= 0:
			expr = append(expr, ast.ExprToken{Kind: ast.ExprOp, Op: p[0]})
		case lexer.IsLiteral(p):
			v, err := numeric.DecodeWord(p)
			if err != nil {
				return nil, numErr(line, p, err.Error())
			}
			expr = append(expr, ast.ExprToken{Kind: ast.ExprNumber, Num: int64(v)})
		case lexer.IsSymbol(p):
			expr = append(expr, ast.ExprToken{Kind: ast.ExprSymbol, Sym: p})
		default:
			return nil, lexErr(line, p, "malformed expression token")
		}
	}
	return expr, nil
}

// ResolveSymbol looks up a single bare symbol name the way an instruction
// operand does (Mem sym, $sym, &sym, R[sym]): no sub-expression grammar, just
// the same class/section/addend bookkeeping Evaluate uses for everything
// else, via symbolOperand.
func ResolveSymbol(line int, name string, reg *object.Registry) (EvalResult, error) {
	op, err := symbolOperand(line, name, reg, false)
	if err != nil {
		return EvalResult{}, err
	}
	return EvalResult{Value: op.value, Class: op.class, Section: op.section, RelSym: op.relSym}, nil
}

func precedence(op byte) int {
	switch op {
	case '|':
		return 1
	case '^':
		return 2
	case '&':
		return 3
	case '+', '-':
		return 4
	case '*', '/', '%':
		return 5
	}
	return 0
}

// symbolOperand resolves one Symbol token to its evaluator operand,
// transparently substituting an is_equ symbol's memoized relocation
// template.
func symbolOperand(line int, name string, reg *object.Registry, allowUndefined bool) (operand, error) {
	sym, ok := reg.LookupSymbol(name)
	if !ok {
		if allowUndefined {
			return operand{}, &DeferredError{Symbol: name}
		}
		return operand{}, semErr(line, name, "undefined reference")
	}
	if sym.IsAbsolute() {
		return operand{value: int32(sym.Value), class: 0, section: elf16.SHNAbs}, nil
	}
	if sym.IsEqu {
		// Relative .equ: Value is the memoized addend, Section the target
		// section, RelocTarget the real symbol a use should reference.
		if sym.RelocTarget == "" {
			// Still deferred (not yet resolved) -- only reachable when the
			// caller already tolerates it.
			if allowUndefined {
				return operand{}, &DeferredError{Symbol: name}
			}
			return operand{}, semErr(line, name, "equ value still unresolved")
		}
		value := int32(sym.Value)
		if target, ok := reg.LookupSymbol(sym.RelocTarget); ok {
			value += int32(target.Value)
		}
		return operand{value: value, class: 1, section: sym.Section, relSym: sym.RelocTarget}, nil
	}
	// A found-but-unplaced symbol is a declared .extern: a legitimate
	// relocatable reference with value 0 until link time. "undefined
	// reference" (above) is reserved for a name with no registry entry at
	// all -- a typo, not a forward declaration.
	return operand{value: int32(sym.Value), class: 1, section: sym.Section, relSym: sym.Name}, nil
}

func applyBinary(line int, op byte, a, b operand) (operand, error) {
	switch op {
	case '+':
		switch {
		case a.class == 0 && b.class == 0:
			return operand{value: a.value + b.value, class: 0, section: elf16.SHNAbs}, nil
		case a.class == 0 && b.class == 1:
			return operand{value: a.value + b.value, class: 1, section: b.section, relSym: b.relSym}, nil
		case a.class == 1 && b.class == 0:
			return operand{value: a.value + b.value, class: 1, section: a.section, relSym: a.relSym}, nil
		default:
			return operand{}, relErr(line, "+", "'+' between two relative operands is illegal")
		}
	case '-':
		switch {
		case a.class == 0 && b.class == 0:
			return operand{value: a.value - b.value, class: 0, section: elf16.SHNAbs}, nil
		case a.class == 1 && b.class == 0:
			return operand{value: a.value - b.value, class: 1, section: a.section, relSym: a.relSym}, nil
		case a.class == 1 && b.class == 1 && a.section == b.section:
			return operand{value: a.value - b.value, class: 0, section: elf16.SHNAbs}, nil
		default:
			return operand{}, relErr(line, "-", "illegal relative operand combination for '-'")
		}
	default:
		if a.class != 0 || b.class != 0 {
			return operand{}, relErr(line, string(op), "section arithmetic is only defined for absolute operands")
		}
		var v int32
		switch op {
		case '*':
			v = a.value * b.value
		case '/':
			if b.value == 0 {
				return operand{}, numErr(line, "/", "division by zero")
			}
			v = a.value / b.value
		case '%':
			if b.value == 0 {
				return operand{}, numErr(line, "%", "modulo by zero")
			}
			v = a.value % b.value
		case '&':
			v = a.value & b.value
		case '|':
			v = a.value | b.value
		case '^':
			v = a.value ^ b.value
		}
		return operand{value: v, class: 0, section: elf16.SHNAbs}, nil
	}
}

// Evaluate runs the shunting-yard algorithm over expr, producing a single
// EvalResult. allowUndefined, when true, turns a reference to a symbol with
// no registry entry at all (or an unresolved relative .equ) into a
// *DeferredError instead of a fatal semantic error, for set_equ's deferred
// evaluation.
func Evaluate(line int, expr ast.Expression, reg *object.Registry, allowUndefined bool) (EvalResult, error) {
	var operators []byte
	var operands []operand

	popApply := func() error {
		op := operators[len(operators)-1]
		operators = operators[:len(operators)-1]
		b := operands[len(operands)-1]
		a := operands[len(operands)-2]
		operands = operands[:len(operands)-2]
		res, err := applyBinary(line, op, a, b)
		if err != nil {
			return err
		}
		operands = append(operands, res)
		return nil
	}

	for _, tok := range expr {
		switch tok.Kind {
		case ast.ExprNumber:
			operands = append(operands, operand{value: int32(tok.Num), class: 0, section: elf16.SHNAbs})
		case ast.ExprSymbol:
			op, err := symbolOperand(line, tok.Sym, reg, allowUndefined)
			if err != nil {
				return EvalResult{}, err
			}
			operands = append(operands, op)
		case ast.ExprOp:
			switch tok.Op {
			case '(':
				operators = append(operators, '(')
			case ')':
				for len(operators) > 0 && operators[len(operators)-1] != '(' {
					if err := popApply(); err != nil {
						return EvalResult{}, err
					}
				}
				if len(operators) == 0 {
					return EvalResult{}, lexErr(line, ")", "unbalanced parentheses")
				}
				operators = operators[:len(operators)-1] // discard '('
			default:
				for len(operators) > 0 && operators[len(operators)-1] != '(' &&
					precedence(operators[len(operators)-1]) >= precedence(tok.Op) {
					if err := popApply(); err != nil {
						return EvalResult{}, err
					}
				}
				operators = append(operators, tok.Op)
			}
		}
	}
	for len(operators) > 0 {
		if operators[len(operators)-1] == '(' {
			return EvalResult{}, lexErr(line, "(", "unbalanced parentheses")
		}
		if err := popApply(); err != nil {
			return EvalResult{}, err
		}
	}
	if len(operands) != 1 {
		return EvalResult{}, lexErr(line, "", "malformed expression")
	}
	final := operands[0]
	if final.class < 0 || final.class > 1 {
		return EvalResult{}, relErr(line, "", "expression class is illegal")
	}
	return EvalResult{Value: final.value, Class: final.class, Section: final.section, RelSym: final.relSym}, nil
}
