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
	"github.com/vn16/vasm/pkg/lexer"
)

// pseudoOps maps the two pseudo-mnemonics to the real one-address
// instruction they expand to, always on the word-sized psw register.
var pseudoOps = map[string]ast.InstrCode{
	"pushf": ast.InstrPush,
	"popf":  ast.InstrPop,
}

// pswOperand is the synthetic operand text substituted for pushf/popf's
// implicit psw register. It never reaches the lexer's operand classifier;
// the instruction handler recognizes it directly.
const pswOperand = "psw"

// ParseLine turns one raw source line (a trailing comment is stripped by the
// lexer) into an ast.Line. line is the 1-based source line number, used only for error
// reporting.
func ParseLine(line int, raw string) (*ast.Line, error) {
	label, content, ok := lexer.TokenizeLine(raw)
	if !ok {
		return nil, lexErr(line, raw, "malformed source line")
	}
	out := &ast.Line{Label: label}
	if content == "" {
		return out, nil
	}
	if strings.HasPrefix(content, ".") {
		dir, err := parseDirective(line, content)
		if err != nil {
			return nil, err
		}
		out.ContentType = ast.ContentDirective
		out.Dir = dir
		return out, nil
	}
	instr, err := parseInstruction(line, content)
	if err != nil {
		return nil, err
	}
	out.ContentType = ast.ContentInstruction
	out.Instr = instr
	return out, nil
}

func parseDirective(line int, content string) (*ast.Directive, error) {
	name, rest := lexer.SplitFirstToken(content)
	name = strings.ToLower(strings.TrimPrefix(name, "."))
	code, ok := ast.DirectiveByName[name]
	if !ok {
		return nil, lexErr(line, name, "unknown directive")
	}

	dir := &ast.Directive{Code: code}
	switch code {
	case ast.DirText, ast.DirData, ast.DirBss, ast.DirEnd:
		// no parameters
	case ast.DirSection:
		p1, p2 := splitFirstComma(rest)
		dir.P1 = p1
		dir.P2 = p2
	case ast.DirEqu, ast.DirSet:
		p1, p2 := splitFirstComma(rest)
		dir.P1 = p1
		dir.P2 = p2
	case ast.DirAlign, ast.DirSkip:
		parts := lexer.SplitOnCommas(rest)
		if len(parts) > 0 {
			dir.P1 = parts[0]
		}
		if len(parts) > 1 {
			dir.P2 = parts[1]
		}
		if len(parts) > 2 {
			dir.P3 = parts[2]
		}
	case ast.DirGlobal, ast.DirExtern, ast.DirByte, ast.DirWord:
		dir.P1 = rest
	default:
		return nil, lexErr(line, name, "unhandled directive")
	}
	return dir, nil
}

// splitFirstComma splits s on its first top-level comma, trimming
// whitespace from both halves. It is used by directives with exactly two
// ordered parameters where the second parameter's own text may itself
// contain commas (.section's quoted flag string never does, .equ/.set
// expressions may, inside nested calls, but this assembler's expression
// grammar has no comma operator, so a plain first-comma split is exact).
func splitFirstComma(s string) (first, rest string) {
	i := strings.IndexByte(s, ',')
	if i < 0 {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
}

func parseInstruction(line int, content string) (*ast.Instruction, error) {
	tok, rest := lexer.SplitFirstToken(content)
	lower := strings.ToLower(tok)

	if code, ok := pseudoOps[lower]; ok {
		if rest != "" {
			return nil, semErr(line, tok, "pseudo-op takes no explicit operand")
		}
		return &ast.Instruction{Code: code, OpSize: ast.SizeWord, OpCnt: 1, Op1: pswOperand}, nil
	}

	mnemonic, suffix := splitSuffix(lower)
	code, ok := ast.InstrByName[mnemonic]
	if !ok {
		return nil, lexErr(line, tok, "unknown mnemonic")
	}

	size := ast.SizeWord
	switch suffix {
	case "b":
		size = ast.SizeByte
	case "w", "":
		size = ast.SizeWord
	}
	if ast.ZeroAddr[code] {
		size = ast.SizeNone
		if suffix != "" {
			return nil, lexErr(line, tok, "zero-address instruction carries no size suffix")
		}
	}
	if code == ast.InstrInt {
		// int's operand is always the fixed-width byte immediate form; there
		// is no intb/intw.
		if suffix != "" {
			return nil, lexErr(line, tok, "int takes no size suffix")
		}
		size = ast.SizeByte
	}

	operands := lexer.SplitOnCommas(rest)
	instr := &ast.Instruction{Code: code, OpSize: size, OpCnt: len(operands)}

	switch {
	case ast.ZeroAddr[code]:
		if len(operands) != 0 {
			return nil, semErr(line, tok, "zero-address instruction takes no operands")
		}
	case ast.OneAddr[code]:
		if len(operands) != 1 {
			return nil, semErr(line, tok, "instruction takes exactly one operand")
		}
		instr.Op1 = operands[0]
	case ast.TwoAddr[code]:
		if len(operands) != 2 {
			return nil, semErr(line, tok, "instruction takes exactly two operands")
		}
		instr.Op1 = operands[0]
		instr.Op2 = operands[1]
	default:
		return nil, lexErr(line, tok, "mnemonic has no known arity")
	}
	return instr, nil
}

// splitSuffix strips a trailing b/w width suffix from a lowercased
// mnemonic token, but only when the unsuffixed form is itself a known
// non-zero-address mnemonic (zero-address instructions never carry a
// suffix, so "haltw" is rejected as an unknown mnemonic, not parsed as
// "halt"+"w").
func splitSuffix(tok string) (mnemonic, suffix string) {
	if len(tok) < 2 {
		return tok, ""
	}
	last := tok[len(tok)-1]
	if last != 'b' && last != 'w' {
		return tok, ""
	}
	base := tok[:len(tok)-1]
	if code, ok := ast.InstrByName[base]; ok && !ast.ZeroAddr[code] {
		return base, string(last)
	}
	return tok, ""
}
