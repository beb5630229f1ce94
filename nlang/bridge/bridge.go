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

// Package bridge translates between the two equation representations: the
// linear opcode program (nlang/vm) and the expression-tree IR
// (nlang/tree), plus a compact CSR adjacency-list form (OpTree) used for
// emission and visualisation. The builder here is a small stateful struct
// that walks its source form once and appends to an output buffer, the
// same shape as a single-pass bytecode compiler visiting an expression
// tree (compare sentra's internal/compiler.Compiler walking parser.Expr
// into a bytecode.Chunk).
package bridge

import (
	"fmt"

	"github.com/reshop-go/nlcore/nlang/instr"
	"github.com/reshop-go/nlcore/nlang/nlerr"
	"github.com/reshop-go/nlcore/nlang/pool"
	"github.com/reshop-go/nlcore/nlang/tree"
	"github.com/reshop-go/nlcore/nlang/vm"
)

// TreeFromOpcodes builds a tree.Tree equivalent to p by replaying vm.Walk
// once over a stack of *tree.Node. Each instruction either pushes a fresh
// leaf, wraps the top one or two nodes in a new interior node, or folds an
// immediate into the last node's op-arg when the node's shape allows it.
func TreeFromOpcodes(p *vm.Program, storeIdx *int32) (*tree.Tree, error) {
	if err := vm.Validate(p); err != nil {
		return nil, err
	}
	t := tree.New()
	if p.Len() == 0 {
		return t, nil
	}

	var stack []*tree.Node
	push := func(n *tree.Node) { stack = append(stack, n) }
	pop := func() *tree.Node {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return n
	}

	err := vm.Walk(p, func(pc int, op instr.Op, arg int32) error {
		switch op {
		case instr.NoOp, instr.Header:
			return nil
		case instr.Store:
			if storeIdx != nil {
				*storeIdx = arg
			}
			if len(stack) > 0 {
				t.Root = pop()
			}
			return nil
		case instr.PushVar:
			push(t.NewLeafVar(arg))
		case instr.PushImm:
			push(t.NewLeafConst(pool.Index(arg)))
		case instr.PushZero:
			push(t.NewLeafConst(pool.IdxZero))
		case instr.UMinVar:
			leaf := t.NewLeafVar(arg)
			n := t.AllocFixed(1)
			n.Class = tree.ClassUMin
			n.Children[0] = leaf
			push(n)
		case instr.Add, instr.Sub, instr.Mul, instr.Div:
			b := pop()
			a := pop()
			n := t.AllocFixed(2)
			n.Class = binClass(op)
			n.Children[0] = a
			n.Children[1] = b
			push(n)
		case instr.AddVar, instr.SubVar, instr.MulVar, instr.DivVar:
			a := pop()
			n := t.AllocFixed(1)
			n.Class = binClass(op)
			n.OpArg = tree.OpArgVar
			n.Value = arg
			n.Children[0] = a
			push(n)
		case instr.AddImm, instr.SubImm, instr.MulImm, instr.DivImm:
			a := pop()
			n := t.AllocFixed(1)
			n.Class = binClass(op)
			n.OpArg = tree.OpArgCst
			n.Value = arg
			n.Children[0] = a
			push(n)
		case instr.MulImmAdd:
			// MUL_IMM_ADD(k) computes a + b*pool[k-1]: wrap b in a
			// synthetic OpArgFMA MUL node (a constant-multiply fold, same
			// as OpArgCst for evaluation, but tagged so build-opcodes
			// re-fuses it with its ADD parent instead of re-emitting
			// MUL; ADD separately).
			operand := pop()
			augend := pop()
			mul := t.AllocFixed(1)
			mul.Class = tree.ClassMul
			mul.OpArg = tree.OpArgFMA
			mul.Value = arg
			mul.Children[0] = operand
			add := t.AllocFixed(2)
			add.Class = tree.ClassAdd
			add.Children[0] = augend
			add.Children[1] = mul
			push(add)
		case instr.UMin:
			a := pop()
			n := t.AllocFixed(1)
			n.Class = tree.ClassUMin
			n.Children[0] = a
			push(n)
		case instr.Call1:
			a := pop()
			n := t.AllocFixed(1)
			n.Class = tree.ClassCall1
			n.Func = instr.FuncCode(arg)
			n.Children[0] = a
			push(n)
		case instr.Call2:
			b := pop()
			a := pop()
			n := t.AllocFixed(2)
			n.Class = tree.ClassCall2
			n.Func = instr.FuncCode(arg)
			n.Children[0] = a
			n.Children[1] = b
			push(n)
		case instr.FuncArgCount:
			return nil
		case instr.CallN:
			return fmt.Errorf("%w: CALLN reconstruction from a flat opcode stream needs the FUNC_ARG_COUNT arity, not modeled by tree-from-opcodes", nlerr.ErrUnsupportedDiff)
		default:
			return fmt.Errorf("%w: unhandled instruction %s at pc %d", nlerr.ErrMalformedOpcode, op, pc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func binClass(op instr.Op) tree.Class {
	switch op {
	case instr.Add, instr.AddVar, instr.AddImm:
		return tree.ClassAdd
	case instr.Sub, instr.SubVar, instr.SubImm:
		return tree.ClassSub
	case instr.Mul, instr.MulVar, instr.MulImm:
		return tree.ClassMul
	default:
		return tree.ClassDiv
	}
}

// builder accumulates an opcode program during a post-order tree walk: a
// code-buffer-plus-append emitter specialized to instr.Op/int32 pairs
// instead of raw bytecode.
type builder struct {
	instrs []instr.Op
	args   []int32
}

func (b *builder) emit(op instr.Op, arg int32) {
	b.instrs = append(b.instrs, op)
	b.args = append(b.args, arg)
}

// BuildOpcodes performs a post-order DFS over t, emitting one instruction
// per node, except that an unfolded two-child ADD whose second child is an
// OpArgFMA MUL (the shape TreeFromOpcodes builds for MUL_IMM_ADD) is
// re-fused into the single MUL_IMM_ADD(k) instruction. The emitted program
// is well-formed: HEADER first, STORE(storeIdx) last. The linear part of
// an equation is never part of this representation and must be tracked
// separately by the caller.
func BuildOpcodes(t *tree.Tree, storeIdx int32) (*vm.Program, error) {
	b := &builder{}
	b.emit(instr.Header, 0)

	if t.Root != nil {
		if err := emitNode(b, t.Root); err != nil {
			return nil, err
		}
	} else {
		b.emit(instr.PushZero, 0)
	}
	b.emit(instr.Store, storeIdx)
	b.args[0] = int32(len(b.instrs))
	return &vm.Program{Instrs: b.instrs, Args: b.args}, nil
}

func emitNode(b *builder, n *tree.Node) error {
	if n == nil {
		return fmt.Errorf("%w: nil node reached during opcode emission", nlerr.ErrInvalidNode)
	}
	switch n.Class {
	case tree.ClassCst:
		b.emit(instr.PushImm, n.Value)
		return nil
	case tree.ClassVar:
		b.emit(instr.PushVar, n.Value)
		return nil
	case tree.ClassUMin:
		if err := emitNode(b, n.Children[0]); err != nil {
			return err
		}
		b.emit(instr.UMin, 0)
		return nil
	case tree.ClassCall1:
		if err := emitNode(b, n.Children[0]); err != nil {
			return err
		}
		b.emit(instr.Call1, int32(n.Func))
		return nil
	case tree.ClassCall2:
		if err := emitNode(b, n.Children[0]); err != nil {
			return err
		}
		if err := emitNode(b, n.Children[1]); err != nil {
			return err
		}
		b.emit(instr.Call2, int32(n.Func))
		return nil
	case tree.ClassCallN:
		b.emit(instr.FuncArgCount, int32(len(n.Children)))
		return fmt.Errorf("%w: CALLN emission not modeled by build-opcodes", nlerr.ErrUnsupportedDiff)
	case tree.ClassAdd, tree.ClassSub, tree.ClassMul, tree.ClassDiv:
		return emitBinaryNode(b, n)
	default:
		return fmt.Errorf("%w: unknown node class %s", nlerr.ErrInvalidNode, n.Class)
	}
}

func emitBinaryNode(b *builder, n *tree.Node) error {
	children := nonNilChildren(n)

	// An ADD node whose second child is a synthetic OpArgFMA MUL (the
	// shape tree-from-opcodes builds for MUL_IMM_ADD) re-fuses back into
	// the single MUL_IMM_ADD(k) instruction instead of emitting the
	// equivalent MUL; ADD pair.
	if n.Class == tree.ClassAdd && n.OpArg == tree.OpArgUnset && len(children) == 2 {
		if fma := children[1]; fma.Class == tree.ClassMul && fma.OpArg == tree.OpArgFMA {
			if err := emitNode(b, children[0]); err != nil {
				return err
			}
			if err := emitNode(b, fma.Children[0]); err != nil {
				return err
			}
			b.emit(instr.MulImmAdd, fma.Value)
			return nil
		}
	}

	op, opVar, opImm := opcodesFor(n.Class)
	switch n.OpArg {
	case tree.OpArgVar:
		if len(children) != 1 {
			return fmt.Errorf("%w: folded var operand expects exactly one child, got %d", nlerr.ErrInvalidNode, len(children))
		}
		if err := emitNode(b, children[0]); err != nil {
			return err
		}
		b.emit(opVar, n.Value)
		return nil
	case tree.OpArgCst:
		if len(children) != 1 {
			return fmt.Errorf("%w: folded const operand expects exactly one child, got %d", nlerr.ErrInvalidNode, len(children))
		}
		if err := emitNode(b, children[0]); err != nil {
			return err
		}
		b.emit(opImm, n.Value)
		return nil
	default:
		if len(children) != 2 {
			return fmt.Errorf("%w: unfolded %s expects exactly two children, got %d", nlerr.ErrInvalidNode, n.Class, len(children))
		}
		if err := emitNode(b, children[0]); err != nil {
			return err
		}
		if err := emitNode(b, children[1]); err != nil {
			return err
		}
		b.emit(op, 0)
		return nil
	}
}

func nonNilChildren(n *tree.Node) []*tree.Node {
	out := make([]*tree.Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func opcodesFor(c tree.Class) (plain, withVar, withImm instr.Op) {
	switch c {
	case tree.ClassAdd:
		return instr.Add, instr.AddVar, instr.AddImm
	case tree.ClassSub:
		return instr.Sub, instr.SubVar, instr.SubImm
	case tree.ClassMul:
		return instr.Mul, instr.MulVar, instr.MulImm
	default:
		return instr.Div, instr.DivVar, instr.DivImm
	}
}
