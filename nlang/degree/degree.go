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

// Package degree implements the structural analyser: a single stack-walk
// that classifies an opcode program's algebraic degree (constant, affine,
// polynomial up to DefMaxPoly, a tagged division, or fully nonlinear), plus
// GraphViz dumps of both the raw program and its OpTree form.
package degree

import (
	"fmt"
	"math"

	"github.com/reshop-go/nlcore/nlang/instr"
	"github.com/reshop-go/nlcore/nlang/nlerr"
	"github.com/reshop-go/nlcore/nlang/pool"
	"github.com/reshop-go/nlcore/nlang/vm"
)

// Degree is an opaque algebraic-degree tag. Plain polynomial degrees
// occupy 0..DefMaxPoly; Div-marker values additionally carry the
// numerator/denominator degrees that produced them, packed into the
// unused high bits via MkDiv rather than returned as a second value;
// FullyNonlinear and Malformed are flat sentinels.
type Degree uint32

const (
	// DefMaxPoly is the saturation ceiling for a plain polynomial degree.
	DefMaxPoly Degree = 0x3F

	divBit Degree = 1 << 30

	// FullyNonlinear marks a subexpression with no useful algebraic
	// degree (e.g. sin of a variable).
	FullyNonlinear Degree = 1 << 31

	// Malformed reports that compute-degree's own internal stack
	// bookkeeping found a depth violation (UINT32_MAX in the reference
	// implementation).
	Malformed Degree = 0xFFFFFFFF
)

// MkDiv tags a division whose denominator is not a known constant with
// the degrees of its numerator and denominator, each clamped to
// DefMaxPoly's six bits. A FullyNonlinear operand collapses the whole
// division to FullyNonlinear rather than producing a meaningless tag.
func MkDiv(numer, denom Degree) Degree {
	if numer == FullyNonlinear || denom == FullyNonlinear || numer == Malformed || denom == Malformed {
		return FullyNonlinear
	}
	n := numer
	if n > DefMaxPoly {
		n = DefMaxPoly
	}
	d := denom
	if d > DefMaxPoly {
		d = DefMaxPoly
	}
	return divBit | (n << 6) | d
}

// IsDiv reports whether d is a tagged division marker.
func (d Degree) IsDiv() bool {
	return d != FullyNonlinear && d != Malformed && d&divBit != 0
}

// DivParts unpacks a division marker's numerator and denominator degrees.
// ok is false if d is not a division marker.
func (d Degree) DivParts() (numer, denom Degree, ok bool) {
	if !d.IsDiv() {
		return 0, 0, false
	}
	return (d >> 6) & DefMaxPoly, d & DefMaxPoly, true
}

// String renders d for diagnostics.
func (d Degree) String() string {
	switch {
	case d == Malformed:
		return "malformed"
	case d == FullyNonlinear:
		return "fully-nonlinear"
	case d.IsDiv():
		n, den, _ := d.DivParts()
		return fmt.Sprintf("div(%d,%d)", n, den)
	default:
		return fmt.Sprintf("%d", uint32(d))
	}
}

func satAdd(a, b Degree) Degree {
	if a >= FullyNonlinear || b >= FullyNonlinear {
		return FullyNonlinear
	}
	sum := a + b
	if sum > DefMaxPoly {
		return DefMaxPoly
	}
	return sum
}

func satMax(a, b Degree) Degree {
	if a >= FullyNonlinear || b >= FullyNonlinear {
		return FullyNonlinear
	}
	if a > b {
		return a
	}
	return b
}

// slot tracks both the algebraic degree and, when the subexpression folds
// to a literal, its numeric value -- the latter is only needed to check a
// CALL2 power-family exponent against {0,1,2,3,4}.
type slot struct {
	deg      Degree
	isConst  bool
	constVal float64
}

// Compute performs a single stack-directed walk over p, returning the
// algebraic degree of the value STORE would write. ctr resolves
// PUSH_IMM/immediate-operand pool indices so constant-exponent CALL2s can
// be recognised.
func Compute(p *vm.Program, ctr *pool.Pool) (Degree, error) {
	if err := vm.Validate(p); err != nil {
		return Malformed, err
	}
	var stack []slot
	pop := func(n int) []slot {
		s := stack[len(stack)-n:]
		stack = stack[:len(stack)-n]
		return s
	}
	push := func(s slot) { stack = append(stack, s) }

	pendingArity := int32(-1)
	var result Degree
	err := vm.Walk(p, func(pc int, op instr.Op, arg int32) error {
		switch op {
		case instr.NoOp, instr.Header:
			return nil
		case instr.PushVar:
			push(slot{deg: 1})
		case instr.PushImm:
			v, ok := ctr.Value(pool.Index(arg))
			if !ok {
				return fmt.Errorf("%w: pool index %d", nlerr.ErrNotFound, arg)
			}
			push(slot{isConst: true, constVal: v})
		case instr.PushZero:
			push(slot{isConst: true})
		case instr.UMinVar:
			push(slot{deg: 1})
		case instr.Add, instr.Sub:
			ops := pop(2)
			a, b := ops[0], ops[1]
			s := slot{deg: satMax(a.deg, b.deg), isConst: a.isConst && b.isConst}
			if s.isConst {
				if op == instr.Add {
					s.constVal = a.constVal + b.constVal
				} else {
					s.constVal = a.constVal - b.constVal
				}
			}
			push(s)
		case instr.AddVar, instr.SubVar:
			a := pop(1)[0]
			push(slot{deg: satMax(a.deg, 1)})
		case instr.AddImm, instr.SubImm:
			a := pop(1)[0]
			imm, ok := ctr.Value(pool.Index(arg))
			if !ok {
				return fmt.Errorf("%w: pool index %d", nlerr.ErrNotFound, arg)
			}
			s := slot{deg: a.deg, isConst: a.isConst}
			if s.isConst {
				if op == instr.AddImm {
					s.constVal = a.constVal + imm
				} else {
					s.constVal = a.constVal - imm
				}
			}
			push(s)
		case instr.Mul:
			ops := pop(2)
			a, b := ops[0], ops[1]
			s := slot{deg: satAdd(a.deg, b.deg), isConst: a.isConst && b.isConst}
			if s.isConst {
				s.constVal = a.constVal * b.constVal
			}
			push(s)
		case instr.MulVar:
			a := pop(1)[0]
			push(slot{deg: satAdd(a.deg, 1)})
		case instr.MulImm:
			a := pop(1)[0]
			imm, ok := ctr.Value(pool.Index(arg))
			if !ok {
				return fmt.Errorf("%w: pool index %d", nlerr.ErrNotFound, arg)
			}
			s := slot{deg: a.deg, isConst: a.isConst}
			if s.isConst {
				s.constVal = a.constVal * imm
			}
			push(s)
		case instr.MulImmAdd:
			ops := pop(2)
			augend, operand := ops[0], ops[1]
			imm, ok := ctr.Value(pool.Index(arg))
			if !ok {
				return fmt.Errorf("%w: pool index %d", nlerr.ErrNotFound, arg)
			}
			s := slot{deg: satMax(augend.deg, operand.deg), isConst: augend.isConst && operand.isConst}
			if s.isConst {
				s.constVal = augend.constVal + operand.constVal*imm
			}
			push(s)
		case instr.Div:
			ops := pop(2)
			a, b := ops[0], ops[1]
			if b.isConst {
				push(slot{deg: a.deg, isConst: a.isConst, constVal: safeDiv(a.constVal, b.constVal)})
			} else {
				push(slot{deg: MkDiv(a.deg, b.deg)})
			}
		case instr.DivVar:
			a := pop(1)[0]
			push(slot{deg: MkDiv(a.deg, 1)})
		case instr.DivImm:
			a := pop(1)[0]
			imm, ok := ctr.Value(pool.Index(arg))
			if !ok {
				return fmt.Errorf("%w: pool index %d", nlerr.ErrNotFound, arg)
			}
			s := slot{deg: a.deg, isConst: a.isConst}
			if s.isConst {
				s.constVal = safeDiv(a.constVal, imm)
			}
			push(s)
		case instr.UMin:
			a := pop(1)[0]
			a.constVal = -a.constVal
			push(a)
		case instr.Call1:
			a := pop(1)[0]
			push(call1Degree(instr.FuncCode(arg), a))
		case instr.Call2:
			ops := pop(2)
			a, b := ops[0], ops[1]
			push(call2Degree(instr.FuncCode(arg), a, b))
		case instr.FuncArgCount:
			pendingArity = arg
			return nil
		case instr.CallN:
			if pendingArity < 0 {
				return fmt.Errorf("%w: CALLN without a preceding FUNC_ARG_COUNT", nlerr.ErrMalformedOpcode)
			}
			args := pop(int(pendingArity))
			allConst := true
			for _, a := range args {
				if !a.isConst {
					allConst = false
					break
				}
			}
			if allConst {
				push(slot{isConst: true})
			} else {
				push(slot{deg: FullyNonlinear})
			}
		case instr.Store:
			if len(stack) != 1 {
				return fmt.Errorf("%w: stack depth %d before STORE, want 1", nlerr.ErrMalformedOpcode, len(stack))
			}
			result = pop(1)[0].deg
		default:
			return fmt.Errorf("%w: unhandled instruction %s at pc %d", nlerr.ErrMalformedOpcode, op, pc)
		}
		return nil
	})
	if err != nil {
		return Malformed, err
	}
	return result, nil
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// call1Degree implements the CALL1 rules: sqr doubles the operand's
// degree; every other function maps a constant operand to a constant
// result (degree 0) and a non-constant operand to FullyNonlinear.
func call1Degree(f instr.FuncCode, a slot) slot {
	if f == instr.FnSqr {
		s := slot{deg: satAdd(a.deg, a.deg), isConst: a.isConst}
		if s.isConst {
			s.constVal = a.constVal * a.constVal
		}
		return s
	}
	if a.isConst {
		return slot{isConst: true}
	}
	return slot{deg: FullyNonlinear}
}

func isPowerFamily(f instr.FuncCode) bool {
	switch f {
	case instr.FnRPower, instr.FnPower, instr.FnVCPower, instr.FnCVPower:
		return true
	default:
		return false
	}
}

// call2Degree implements the CALL2 rules: a power-family call with a
// constant exponent in {0,1,2,3,4} reduces to a scaled (or zeroed) base
// degree; anything else, including a power-family call with a
// non-small-integer exponent, goes FullyNonlinear unless both operands
// are constant.
func call2Degree(f instr.FuncCode, a, b slot) slot {
	if isPowerFamily(f) && b.isConst {
		if n, ok := smallExponent(b.constVal); ok {
			if n == 0 {
				return slot{isConst: true, constVal: 1}
			}
			deg := a.deg
			for i := 1; i < n; i++ {
				deg = satAdd(deg, a.deg)
			}
			return slot{deg: deg, isConst: a.isConst}
		}
	}
	if a.isConst && b.isConst {
		return slot{isConst: true}
	}
	return slot{deg: FullyNonlinear}
}

// smallExponent reports whether v is exactly one of 0, 1, 2, 3 or 4.
func smallExponent(v float64) (int, bool) {
	r := math.Round(v)
	if math.Abs(v-r) > 1e-9 || r < 0 || r > 4 {
		return 0, false
	}
	return int(r), true
}
