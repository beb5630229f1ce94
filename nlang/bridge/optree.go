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

package bridge

import (
	"fmt"

	"github.com/reshop-go/nlcore/nlang/instr"
	"github.com/reshop-go/nlcore/nlang/nlerr"
	"github.com/reshop-go/nlcore/nlang/vm"
)

// OpTree is the compact CSR (compressed sparse row) adjacency-list form
// of an opcode program: children of node k are I[P[k]:P[k+1]]. Root is
// n-2, the position just before STORE.
type OpTree struct {
	Instrs []instr.Op
	Args   []int32
	P      []int32
	I      []int32
	Root   int
}

// ComputeTreeSizes walks p once and returns the maximum abstract stack
// depth reached and the total number of CSR index entries an OpTree needs
// to represent p, so a caller can pre-size both arrays before BuildOpTree.
func ComputeTreeSizes(p *vm.Program) (maxDepth int, idxSize int, err error) {
	depth := 0
	pendingArity := int32(-1)
	err = vm.Walk(p, func(pc int, op instr.Op, arg int32) error {
		pops := op.StackPops()
		if op == instr.CallN {
			if pendingArity < 0 {
				return fmt.Errorf("%w: CALLN without a preceding FUNC_ARG_COUNT", nlerr.ErrMalformedOpcode)
			}
			pops = int(pendingArity)
		}
		if depth < pops {
			return fmt.Errorf("%w: stack underflow at pc %d", nlerr.ErrMalformedOpcode, pc)
		}
		depth -= pops
		depth += op.StackPushes()
		if op == instr.FuncArgCount {
			pendingArity = arg
		}
		if depth > maxDepth {
			maxDepth = depth
		}
		idxSize += pops
		return nil
	})
	return maxDepth, idxSize, err
}

// BuildOpTree performs the second pass: replaying p's abstract-stack walk
// again, this time filling P/I instead of constructing tree.Node values.
// Node k's children are the stack-slot producers it consumed, identified
// by the program counter that last wrote that slot.
func BuildOpTree(p *vm.Program) (*OpTree, error) {
	if err := vm.Validate(p); err != nil {
		return nil, err
	}
	n := p.Len()
	ot := &OpTree{
		Instrs: append([]instr.Op(nil), p.Instrs...),
		Args:   append([]int32(nil), p.Args...),
		P:      make([]int32, n+1),
	}
	if n == 0 {
		return ot, nil
	}
	ot.Root = n - 2

	// stack holds the program counter of the instruction that produced
	// each live abstract-stack slot, so a node's CSR children are simply
	// whichever pcs it pops.
	var stack []int
	pendingArity := int32(-1)

	children := make([][]int32, n)
	for pc := 0; pc < n; pc++ {
		op := ot.Instrs[pc]
		arg := ot.Args[pc]

		if op == instr.FuncArgCount {
			pendingArity = arg
			continue
		}

		pops := op.StackPops()
		if op == instr.CallN {
			pops = int(pendingArity)
		}
		if pops > 0 {
			start := len(stack) - pops
			kids := make([]int32, pops)
			for i, spc := range stack[start:] {
				kids[i] = int32(spc)
			}
			children[pc] = kids
			stack = stack[:start]
		}

		if op.StackPushes() > 0 {
			stack = append(stack, pc)
		}
	}

	total := int32(0)
	for pc := 0; pc < n; pc++ {
		ot.P[pc] = total
		total += int32(len(children[pc]))
	}
	ot.P[n] = total
	ot.I = make([]int32, 0, total)
	for pc := 0; pc < n; pc++ {
		ot.I = append(ot.I, children[pc]...)
	}
	return ot, nil
}

// OpTreeToOpcodes rebuilds an opcode program from ot by a recursive
// post-order walk from Root: each node's children are emitted first, in
// their CSR order, then the node itself; the program ends in
// STORE(storeIdx).
// Used primarily for testing build-optree/compute-tree-sizes against
// tree-from-opcodes/build-opcodes.
func OpTreeToOpcodes(ot *OpTree, storeIdx int32) (*vm.Program, error) {
	b := &builder{}
	b.emit(instr.Header, 0)

	var walk func(pc int) error
	walk = func(pc int) error {
		start, end := ot.P[pc], ot.P[pc+1]
		for _, childPC := range ot.I[start:end] {
			if err := walk(int(childPC)); err != nil {
				return err
			}
		}
		b.emit(ot.Instrs[pc], ot.Args[pc])
		return nil
	}
	if ot.Root >= 0 {
		if err := walk(ot.Root); err != nil {
			return nil, err
		}
	}
	b.emit(instr.Store, storeIdx)
	b.args[0] = int32(len(b.instrs))
	return &vm.Program{Instrs: b.instrs, Args: b.args}, nil
}
