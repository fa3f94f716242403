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

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"

	"github.com/vn16/vasm/pkg/assembler"
	"github.com/vn16/vasm/pkg/elf16"
)

var elfFlag bool
var outFlag string

const usage = "vasm [-e] [-o OUTPUT] INPUT"

func init() {
	flag.BoolVar(&elfFlag, "e", false, "emit binary ELF16 output instead of a textual dump")
	flag.StringVar(&outFlag, "o", "", "output file; derived from INPUT when absent")
}

// deriveOutputPath replaces INPUT's last extension (the dot after its last
// path separator, if any) with .o, or appends .o when INPUT has none.
func deriveOutputPath(input string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	if ext == "" {
		return input + ".o"
	}
	return strings.TrimSuffix(input, ext) + ".o"
}

func printSourceError(input string, lines []string, err error) {
	if perr, ok := err.(assembler.PositionedError); ok {
		line := perr.GetPosition().Line
		if line >= 1 && line <= len(lines) {
			fmt.Fprintf(os.Stderr, "%s:%d: %s\n%s\n", input, line, err, lines[line-1])
			return
		}
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", input, err)
}

func run() int {
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		flag.PrintDefaults()
		return 1
	}
	input := args[0]

	data, err := os.ReadFile(input)
	if err != nil {
		glog.Errorf("cannot open input: %v", err)
		return 2
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	outPath := outFlag
	if outPath == "" {
		outPath = deriveOutputPath(input)
	}
	out, err := os.Create(outPath)
	if err != nil {
		glog.Errorf("cannot open output: %v", err)
		return 3
	}
	defer out.Close()

	ctx := context.Background()
	reg, asmErr := assembler.AssembleSource(ctx, string(data))
	if asmErr != nil {
		printSourceError(input, lines, asmErr)
		return 0
	}

	if glog.V(1) {
		assembler.Trace(os.Stderr, reg)
	}

	if elfFlag {
		obj, err := elf16.Emit(reg)
		if err != nil {
			glog.Errorf("emitting object: %v", err)
			return 0
		}
		if _, err := out.Write(obj); err != nil {
			glog.Errorf("writing object: %v", err)
			return 3
		}
	} else {
		w := bufio.NewWriter(out)
		if err := elf16.Dump(w, reg); err != nil {
			glog.Errorf("writing dump: %v", err)
			return 0
		}
		w.Flush()
	}

	fmt.Fprintf(os.Stderr, "successfully assembled: %s\n", input)
	return 0
}

func main() {
	os.Exit(run())
}
