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
	"math"

	"github.com/reshop-go/nlcore/nlang/instr"
	"github.com/reshop-go/nlcore/nlang/nlerr"
	"github.com/reshop-go/nlcore/nlang/pool"
)

// Binding supplies variable values during Evaluate. VectorBinding and any
// container-backed implementation both satisfy it; behaviour is otherwise
// identical between the two.
type Binding interface {
	Var(i int32) (float64, error)
}

// VectorBinding is a Binding backed by a plain caller-supplied slice,
// 1-based per the rest of the opcode/tree model (index 0 is unused).
type VectorBinding []float64

func (v VectorBinding) Var(i int32) (float64, error) {
	if i <= 0 || int(i) >= len(v) {
		return 0, fmt.Errorf("%w: variable %d out of range", nlerr.ErrNotFound, i)
	}
	return v[i], nil
}

// Evaluate performs a post-order fold of the tree rooted at t.Root,
// returning its scalar value. Floating-point exceptions that the
// reference implementation traps through the FPU's exception flags are
// instead detected explicitly after each primitive operation: a NaN
// result is reported as ErrDomain, an infinite one as ErrOverflow, and a
// zero divisor (DIV, mod) as ErrPole, wrapped with the offending node's
// class. Underflow and range errors are not detected; ErrUnderflow and
// ErrRange are never returned.
func (t *Tree) Evaluate(ctr *pool.Pool, b Binding) (float64, error) {
	return evalNode(t.Root, ctr, b)
}

func evalNode(n *Node, ctr *pool.Pool, b Binding) (float64, error) {
	if n == nil {
		return 0, nil
	}

	operand := func(n *Node) (float64, error) {
		switch n.OpArg {
		case OpArgCst, OpArgFMA:
			// OpArgFMA folds a constant multiplier exactly like OpArgCst
			// does; the only difference is which opcode build-opcodes
			// re-emits it as (see nlang/bridge).
			v, ok := ctr.Value(pool.Index(n.Value))
			if !ok {
				return 0, fmt.Errorf("%w: pool index %d", nlerr.ErrNotFound, n.Value)
			}
			return v, nil
		case OpArgVar:
			return b.Var(n.Value)
		default:
			return 0, nil
		}
	}

	switch n.Class {
	case ClassCst:
		v, ok := ctr.Value(pool.Index(n.Value))
		if !ok {
			return 0, fmt.Errorf("%w: pool index %d", nlerr.ErrNotFound, n.Value)
		}
		return v, nil

	case ClassVar:
		return b.Var(n.Value)

	case ClassUMin:
		v, err := evalNode(n.Children[0], ctr, b)
		if err != nil {
			return 0, err
		}
		return -v, nil

	case ClassAdd, ClassSub:
		acc, err := operand(n)
		if err != nil {
			return 0, err
		}
		if n.Class == ClassSub {
			// SUB's first child is the minuend; the folded op-arg and every
			// further child are subtracted from it (SUB, SUB_VAR, SUB_IMM).
			acc = -acc
		}
		first := true
		for _, c := range n.Children {
			if c == nil {
				continue
			}
			v, err := evalNode(c, ctr, b)
			if err != nil {
				return 0, err
			}
			if n.Class == ClassSub && !first {
				acc -= v
			} else {
				acc += v
			}
			first = false
		}
		return checkFinite(acc, n.Class)

	case ClassMul:
		acc := 1.0
		any := false
		if f, err := operand(n); err == nil && n.OpArg != OpArgUnset {
			acc = f
			any = true
		} else if err != nil {
			return 0, err
		}
		for _, c := range n.Children {
			if c == nil {
				continue
			}
			v, err := evalNode(c, ctr, b)
			if err != nil {
				return 0, err
			}
			if !any {
				acc = v
				any = true
			} else {
				acc *= v
			}
		}
		return checkFinite(acc, n.Class)

	case ClassDiv:
		num, err := evalNode(n.Children[0], ctr, b)
		if err != nil {
			return 0, err
		}
		den := 1.0
		if n.OpArg == OpArgCst || n.OpArg == OpArgVar {
			den, err = operand(n)
		} else if len(n.Children) > 1 {
			den, err = evalNode(n.Children[1], ctr, b)
		}
		if err != nil {
			return 0, err
		}
		if den == 0 {
			return 0, fmt.Errorf("%w: division by zero", nlerr.ErrPole)
		}
		return checkFinite(num/den, n.Class)

	case ClassCall1:
		arg, err := evalNode(n.Children[0], ctr, b)
		if err != nil {
			return 0, err
		}
		v, err := call1(n.Func, arg)
		if err != nil {
			return 0, err
		}
		return checkFinite(v, n.Class)

	case ClassCall2:
		a, err := evalNode(n.Children[0], ctr, b)
		if err != nil {
			return 0, err
		}
		c, err := evalNode(n.Children[1], ctr, b)
		if err != nil {
			return 0, err
		}
		v, err := call2(n.Func, a, c)
		if err != nil {
			return 0, err
		}
		return checkFinite(v, n.Class)

	case ClassCallN:
		args := make([]float64, 0, len(n.Children))
		for _, c := range n.Children {
			if c == nil {
				continue
			}
			v, err := evalNode(c, ctr, b)
			if err != nil {
				return 0, err
			}
			args = append(args, v)
		}
		v, err := callN(n.Func, args)
		if err != nil {
			return 0, err
		}
		return checkFinite(v, n.Class)

	default:
		return 0, fmt.Errorf("%w: cannot evaluate class %s", nlerr.ErrInvalidNode, n.Class)
	}
}

func checkFinite(v float64, c Class) (float64, error) {
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %s produced NaN", nlerr.ErrDomain, c)
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s overflowed", nlerr.ErrOverflow, c)
	}
	return v, nil
}

func call1(f instr.FuncCode, a float64) (float64, error) {
	switch f {
	case instr.FnSqr:
		return a * a, nil
	case instr.FnExp:
		return math.Exp(a), nil
	case instr.FnLog:
		if a <= 0 {
			return 0, fmt.Errorf("%w: log of non-positive %g", nlerr.ErrDomain, a)
		}
		return math.Log(a), nil
	case instr.FnLog10:
		if a <= 0 {
			return 0, fmt.Errorf("%w: log10 of non-positive %g", nlerr.ErrDomain, a)
		}
		return math.Log10(a), nil
	case instr.FnLog2:
		if a <= 0 {
			return 0, fmt.Errorf("%w: log2 of non-positive %g", nlerr.ErrDomain, a)
		}
		return math.Log2(a), nil
	case instr.FnSin:
		return math.Sin(a), nil
	case instr.FnCos:
		return math.Cos(a), nil
	case instr.FnArctan:
		return math.Atan(a), nil
	case instr.FnErf:
		return math.Erf(a), nil
	case instr.FnSqrt:
		if a < 0 {
			return 0, fmt.Errorf("%w: sqrt of negative %g", nlerr.ErrDomain, a)
		}
		return math.Sqrt(a), nil
	case instr.FnAbs:
		return math.Abs(a), nil
	case instr.FnTrunc:
		return math.Trunc(a), nil
	case instr.FnFloor:
		return math.Floor(a), nil
	case instr.FnCeil:
		return math.Ceil(a), nil
	case instr.FnRound:
		return math.Round(a), nil
	case instr.FnSign:
		switch {
		case a > 0:
			return 1, nil
		case a < 0:
			return -1, nil
		default:
			return 0, nil
		}
	case instr.FnSinh:
		return math.Sinh(a), nil
	case instr.FnCosh:
		return math.Cosh(a), nil
	case instr.FnTanh:
		return math.Tanh(a), nil
	case instr.FnTan:
		return math.Tan(a), nil
	case instr.FnArccos:
		return math.Acos(a), nil
	case instr.FnArcsin:
		return math.Asin(a), nil
	case instr.FnGamma:
		return math.Gamma(a), nil
	case instr.FnLogGamma:
		v, _ := math.Lgamma(a)
		return v, nil
	default:
		return 0, fmt.Errorf("%w: CALL1(%s)", nlerr.ErrInvalidNode, f)
	}
}

func call2(f instr.FuncCode, a, c float64) (float64, error) {
	switch f {
	case instr.FnRPower, instr.FnPower, instr.FnVCPower, instr.FnCVPower:
		v := math.Pow(a, c)
		return v, nil
	case instr.FnArctan2:
		return math.Atan2(a, c), nil
	case instr.FnMod:
		if c == 0 {
			return 0, fmt.Errorf("%w: mod by zero", nlerr.ErrPole)
		}
		return math.Mod(a, c), nil
	case instr.FnMin:
		return math.Min(a, c), nil
	case instr.FnMax:
		return math.Max(a, c), nil
	case instr.FnRelOpGE:
		if a >= c {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: CALL2(%s)", nlerr.ErrInvalidNode, f)
	}
}

func callN(f instr.FuncCode, args []float64) (float64, error) {
	switch f {
	case instr.FnIfThen:
		if len(args) != 3 {
			return 0, fmt.Errorf("%w: ifthen wants 3 arguments, got %d", nlerr.ErrInvalidNode, len(args))
		}
		if args[0] != 0 {
			return args[1], nil
		}
		return args[2], nil
	case instr.FnMin:
		m := math.Inf(1)
		for _, a := range args {
			m = math.Min(m, a)
		}
		return m, nil
	case instr.FnMax:
		m := math.Inf(-1)
		for _, a := range args {
			m = math.Max(m, a)
		}
		return m, nil
	default:
		return 0, fmt.Errorf("%w: CALLN(%s)", nlerr.ErrInvalidNode, f)
	}
}
