// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

package degree

import (
	"fmt"
	"io"

	"github.com/reshop-go/nlcore/nlang/bridge"
	"github.com/reshop-go/nlcore/nlang/instr"
	"github.com/reshop-go/nlcore/nlang/vm"
)

// opNodeStyle mirrors nlang/tree's per-class style table, keyed by opcode
// instead of tree.Class since dump-dot(P, sink) renders the raw program
// directly, without going through the tree IR.
var opNodeStyle = map[instr.Op]string{
	instr.PushVar:   "style=filled,fillcolor=lightblue",
	instr.PushImm:   "style=filled,fillcolor=gray",
	instr.PushZero:  "style=filled,fillcolor=gray",
	instr.MulImmAdd: "style=filled,fillcolor=salmon",
}

func nodeLabel(op instr.Op, arg int32) string {
	switch op {
	case instr.PushVar, instr.UMinVar:
		return fmt.Sprintf("%s\\nvar(%d)", op, arg)
	case instr.PushImm, instr.AddImm, instr.SubImm, instr.MulImm, instr.DivImm, instr.MulImmAdd:
		return fmt.Sprintf("%s\\ncst[%d]", op, arg)
	case instr.Call1, instr.Call2, instr.CallN:
		return fmt.Sprintf("%s\\n%s", op, instr.FuncCode(arg))
	default:
		return op.String()
	}
}

// DumpDotProgram renders P's OpTree form to GraphViz DOT on sink, for
// debugging: every node that contributes a value gets a box, and the
// HEADER/STORE framing instructions are omitted since they carry no
// algebraic content.
func DumpDotProgram(p *vm.Program, sink io.Writer) error {
	ot, err := bridge.BuildOpTree(p)
	if err != nil {
		return err
	}
	return DumpDotOpTree(ot, sink)
}

// DumpDotOpTree renders an already-built OpTree to GraphViz DOT on sink.
func DumpDotOpTree(ot *bridge.OpTree, sink io.Writer) error {
	fmt.Fprintln(sink, "digraph optree {")
	for pc, op := range ot.Instrs {
		if op == instr.Header || op == instr.Store || op == instr.FuncArgCount {
			continue
		}
		label := nodeLabel(op, ot.Args[pc])
		if style := opNodeStyle[op]; style != "" {
			fmt.Fprintf(sink, "  n%d [label=%q,%s];\n", pc, label, style)
		} else {
			fmt.Fprintf(sink, "  n%d [label=%q];\n", pc, label)
		}
		if pc+1 >= len(ot.P) {
			continue
		}
		start, end := ot.P[pc], ot.P[pc+1]
		for _, child := range ot.I[start:end] {
			fmt.Fprintf(sink, "  n%d -> n%d;\n", pc, child)
		}
	}
	fmt.Fprintln(sink, "}")
	return nil
}
