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

// Package vm implements the opcode-program abstract machine: validation,
// stack-depth computation, and a single-pass Walk that nlang/bridge and
// nlang/degree drive for their opcode walks. nlang/diff calls Validate and
// then walks the instruction arrays with its own loop.
package vm

import (
	"fmt"

	"github.com/reshop-go/nlcore/nlang/instr"
	"github.com/reshop-go/nlcore/nlang/nlerr"
)

// Program is a well-formed-or-not opcode program: parallel Instrs/Args
// arrays, one entry per instruction, mirroring the reference
// instrs[]/args[] C arrays.
type Program struct {
	Instrs []instr.Op
	Args   []int32
}

// Len returns the instruction count.
func (p *Program) Len() int { return len(p.Instrs) }

// at returns the instruction at pc, or an error if pc is out of range.
func (p *Program) at(pc int) (instr.Op, int32, error) {
	if pc < 0 || pc >= len(p.Instrs) {
		return 0, 0, fmt.Errorf("%w: pc %d out of range [0,%d)", nlerr.ErrMalformedOpcode, pc, len(p.Instrs))
	}
	return p.Instrs[pc], p.Args[pc], nil
}

// Validate checks that p is well-formed: HEADER at pc 0 with the
// program's own length, STORE as the last instruction, matching
// Instrs/Args lengths, only known opcodes, and a stack that never
// underflows and settles at depth 1 just before STORE. An empty program
// (zero instructions) is considered well-formed, matching the
// differentiator's degenerate-input contract.
func Validate(p *Program) error {
	if len(p.Instrs) != len(p.Args) {
		return fmt.Errorf("%w: Instrs/Args length mismatch (%d vs %d)", nlerr.ErrMalformedOpcode, len(p.Instrs), len(p.Args))
	}
	if len(p.Instrs) == 0 {
		return nil
	}
	if p.Instrs[0] != instr.Header {
		return fmt.Errorf("%w: program does not start with HEADER", nlerr.ErrMalformedOpcode)
	}
	if int(p.Args[0]) != len(p.Instrs) {
		return fmt.Errorf("%w: HEADER length %d does not match program length %d", nlerr.ErrMalformedOpcode, p.Args[0], len(p.Instrs))
	}
	last := len(p.Instrs) - 1
	if p.Instrs[last] != instr.Store {
		return fmt.Errorf("%w: program does not end with STORE", nlerr.ErrMalformedOpcode)
	}

	depth, err := StackDepth(p)
	if err != nil {
		return err
	}
	if depth != 0 {
		return fmt.Errorf("%w: stack depth %d after STORE, want 0", nlerr.ErrMalformedOpcode, depth)
	}
	return nil
}

// StackDepth replays the whole program on an abstract value stack and
// returns the final depth (0 for a well-formed program, since STORE
// consumes the last value). Returns ErrMalformedOpcode if any instruction
// would underflow the stack or use an unknown opcode.
func StackDepth(p *Program) (int, error) {
	depth := 0
	pendingArity := int32(-1)
	err := Walk(p, func(pc int, op instr.Op, arg int32) error {
		if !op.Valid() {
			return fmt.Errorf("%w: unknown opcode %d", nlerr.ErrMalformedOpcode, op)
		}
		n := op.StackPops()
		if op == instr.CallN {
			if pendingArity < 0 {
				return fmt.Errorf("%w: CALLN without a preceding FUNC_ARG_COUNT", nlerr.ErrMalformedOpcode)
			}
			n = int(pendingArity)
		}
		if depth < n {
			return fmt.Errorf("%w: stack underflow at pc %d (%s)", nlerr.ErrMalformedOpcode, pc, op)
		}
		depth -= n
		depth += op.StackPushes()
		if op == instr.FuncArgCount {
			pendingArity = arg
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return depth, nil
}

// Walk visits every instruction exactly once, in order, invoking visit
// with the program counter, opcode, and the instruction's raw operand
// (variable id, pool index, function code, or announced arity — callers
// interpret the value per op.HasVarOperand/HasImmOperand/HasFuncOperand).
// Walk stops and returns the first error visit produces.
func Walk(p *Program, visit func(pc int, op instr.Op, arg int32) error) error {
	for pc := range p.Instrs {
		op, arg, err := p.at(pc)
		if err != nil {
			return err
		}
		if err := visit(pc, op, arg); err != nil {
			return err
		}
	}
	return nil
}
