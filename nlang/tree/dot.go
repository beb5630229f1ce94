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

package tree

import (
	"fmt"
	"io"
)

// nodeStyle is the fixed per-class GraphViz style table: variable nodes
// blue, constants gray, a fused multiply-add salmon, everything else the
// default shape. No GraphViz-writing library appears anywhere in the
// example pack, so EmitDot writes the textual DOT language directly with
// fmt.Fprintf onto a plain io.Writer sink.
var nodeStyle = map[Class]string{
	ClassCst: "style=filled,fillcolor=gray",
	ClassVar: "style=filled,fillcolor=lightblue",
}

// EmitDot renders the tree to GraphViz DOT format on sink, for debugging.
func (t *Tree) EmitDot(sink io.Writer) error {
	fmt.Fprintln(sink, "digraph expr {")
	id := 0
	var walk func(n *Node) (string, error)
	walk = func(n *Node) (string, error) {
		if n == nil {
			return "", nil
		}
		myID := fmt.Sprintf("n%d", id)
		id++

		label := n.Class.String()
		style := nodeStyle[n.Class]
		if n.OpArg == OpArgFMA {
			style = "style=filled,fillcolor=salmon"
			label = "MUL_IMM_ADD"
		}
		switch n.OpArg {
		case OpArgCst:
			label = fmt.Sprintf("%s\\ncst[%d]", label, n.Value)
		case OpArgVar:
			label = fmt.Sprintf("%s\\nvar(%d)", label, n.Value)
		}
		if n.Class == ClassCall1 || n.Class == ClassCall2 || n.Class == ClassCallN {
			label = fmt.Sprintf("%s\\n%s", label, n.Func)
		}
		if style != "" {
			fmt.Fprintf(sink, "  %s [label=%q,%s];\n", myID, label, style)
		} else {
			fmt.Fprintf(sink, "  %s [label=%q];\n", myID, label)
		}

		for _, c := range n.Children {
			if c == nil {
				continue
			}
			childID, err := walk(c)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(sink, "  %s -> %s;\n", myID, childID)
		}
		return myID, nil
	}
	if _, err := walk(t.Root); err != nil {
		return err
	}
	fmt.Fprintln(sink, "}")
	return nil
}
