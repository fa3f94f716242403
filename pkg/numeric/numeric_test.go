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

package numeric_test

import (
	"testing"

	"github.com/vn16/vasm/pkg/numeric"
)

type byteCase struct {
	Name  string
	Input string
	Want  uint8
}

type wordCase struct {
	Name  string
	Input string
	Want  uint16
}

type failCase struct {
	Name  string
	Input string
}

func TestDecodeByte(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		cases := []byteCase{
			{"Empty", "", 0},
			{"Zero", "0", 0},
			{"Decimal", "42", 42},
			{"Hex", "0xFF", 0xFF},
			{"HexLower", "0xab", 0xab},
			{"Binary", "0b1010", 10},
			{"Octal", "017", 0o17},
			{"Negative", "-1", 0xFF},
			{"NegativeSmall", "-128", 0x80},
			{"NegativeWraparound", "-129", 0x7F},
			{"NegativeMaxMagnitude", "-255", 1},
			{"Invert", "~0x0F", 0xF0},
			{"MaxUnsigned", "255", 255},
		}
		for _, c := range cases {
			t.Run(c.Name, func(t *testing.T) {
				got, err := numeric.DecodeByte(c.Input)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != c.Want {
					t.Errorf("numeric.DecodeByte(%q) = %#x, want %#x", c.Input, got, c.Want)
				}
			})
		}
	})

	t.Run("Fail", func(t *testing.T) {
		cases := []failCase{
			{"Overflow", "256"},
			{"NegativeOverflow", "-256"},
			{"InvertOverflow", "~256"},
			{"Malformed", "0xZZ"},
			{"MalformedOctal", "08"},
		}
		for _, c := range cases {
			t.Run(c.Name, func(t *testing.T) {
				if _, err := numeric.DecodeByte(c.Input); err == nil {
					t.Errorf("numeric.DecodeByte(%q) expected an error", c.Input)
				}
			})
		}
	})
}

func TestDecodeWord(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		cases := []wordCase{
			{"Empty", "", 0},
			{"Zero", "0", 0},
			{"Decimal", "1234", 1234},
			{"Hex", "0x1234", 0x1234},
			{"Binary", "0b101010101010", 0b101010101010},
			{"Negative", "-1", 0xFFFF},
			{"NegativeWraparound", "-32769", 0x7FFF},
			{"Invert", "~0x00FF", 0xFF00},
			{"MaxUnsigned", "65535", 65535},
		}
		for _, c := range cases {
			t.Run(c.Name, func(t *testing.T) {
				got, err := numeric.DecodeWord(c.Input)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != c.Want {
					t.Errorf("numeric.DecodeWord(%q) = %#x, want %#x", c.Input, got, c.Want)
				}
			})
		}
	})

	t.Run("Fail", func(t *testing.T) {
		cases := []failCase{
			{"Overflow", "65536"},
			{"NegativeOverflow", "-65536"},
			{"Malformed", "0b1012"},
		}
		for _, c := range cases {
			t.Run(c.Name, func(t *testing.T) {
				if _, err := numeric.DecodeWord(c.Input); err == nil {
					t.Errorf("numeric.DecodeWord(%q) expected an error", c.Input)
				}
			})
		}
	})
}

func TestDecodeRegister(t *testing.T) {
	cases := []struct {
		Name   string
		Input  string
		Want   uint8
		WantOK bool
	}{
		{"R0", "r0", 0, true},
		{"R7", "r7", 14, true},
		{"SPLower", "sp", numeric.RegSP << 1, true},
		{"PCUpper", "PC", numeric.RegPC << 1, true},
		{"Invalid", "r8", 0, false},
		{"NotARegister", "foo", 0, false},
	}
	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			got, ok := numeric.DecodeRegister(c.Input)
			if ok != c.WantOK {
				t.Fatalf("numeric.DecodeRegister(%q) ok = %v, want %v", c.Input, ok, c.WantOK)
			}
			if ok && got != c.Want {
				t.Errorf("numeric.DecodeRegister(%q) = %#x, want %#x", c.Input, got, c.Want)
			}
		})
	}
}
