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

package diff

import (
	"github.com/reshop-go/nlcore/nlang/instr"
	"github.com/reshop-go/nlcore/nlang/vm"
)

// derivBuilder accumulates the derivative program P' while Differentiate
// walks the source program P once, left to right. It plays the role of
// gams_diff.c's (*deriv_instrs, *deriv_args, *deriv_len) triple, with Go's
// append doing the amortized-doubling growth addcode hand-rolled in C.
type derivBuilder struct {
	instrs []instr.Op
	args   []int32
}

func (out *derivBuilder) emit(op instr.Op, arg int32) {
	out.instrs = append(out.instrs, op)
	out.args = append(out.args, arg)
}

func (out *derivBuilder) len() int { return len(out.instrs) }

// last returns the index of the most recently emitted instruction, or -1
// if nothing has been emitted yet.
func (out *derivBuilder) last() int { return len(out.instrs) - 1 }

// truncate discards every instruction from index newLen onward, used when
// a CALL1 template turns out to have an identically-zero derivative after
// already having copied the incoming derivative onto the stack.
func (out *derivBuilder) truncate(newLen int) {
	out.instrs = out.instrs[:newLen]
	out.args = out.args[:newLen]
}

// copyblock copies into out the opcode range of p that originally
// produced the value on abstract stack slot s (expend[s-1]+1 .. expend[s]),
// trimming any trailing FUNC_ARG_COUNT left dangling by the copy, per
// gams_diff.c's copyblock.
func (out *derivBuilder) copyblock(s int, expend []int, p *vm.Program) {
	if expend[s] <= -1 {
		return
	}
	start := expend[s-1] + 1
	end := expend[s]
	for i := start; i <= end; i++ {
		out.emit(p.Instrs[i], p.Args[i])
	}
	for len(out.instrs) > 0 && out.instrs[len(out.instrs)-1] == instr.FuncArgCount {
		out.instrs = out.instrs[:len(out.instrs)-1]
		out.args = out.args[:len(out.args)-1]
	}
}

// swap reorders the derivative program's last three segments, ranges
// (a,b] and (b,c], via three reversals. Needed whenever the product or
// quotient rule assembled its two multiplicands in the opposite order
// from what copyblock produced.
func (out *derivBuilder) swap(a, b, c int) {
	reverseRange(out.instrs, out.args, a+1, b)
	reverseRange(out.instrs, out.args, b+1, c)
	reverseRange(out.instrs, out.args, a+1, c)
}

func reverseRange(instrs []instr.Op, args []int32, m, n int) {
	for m < n {
		instrs[m], instrs[n] = instrs[n], instrs[m]
		args[m], args[n] = args[n], args[m]
		m++
		n--
	}
}
