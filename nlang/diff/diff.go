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

// Package diff implements symbolic differentiation of opcode programs: a
// single stack-directed pass that emits the derivative program while
// consuming the source program, mirroring the reference differentiator
// opcode-for-opcode.
package diff

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/reshop-go/nlcore/nlang/instr"
	"github.com/reshop-go/nlcore/nlang/nlerr"
	"github.com/reshop-go/nlcore/nlang/nlog"
	"github.com/reshop-go/nlcore/nlang/pool"
	"github.com/reshop-go/nlcore/nlang/vm"
)

var log = nlog.New("diff")

// memoCacheSize bounds the LRU cache of already-differentiated
// (program, variable) pairs. Re-differentiating the same equation with
// respect to the same variable is common when a caller builds a Jacobian
// column by column across several equations that share subexpressions.
const memoCacheSize = 256

type memoKey struct {
	sig string
	v   int32
}

var memoCache, _ = lru.New(memoCacheSize)

// Differentiate computes P' = d(P)/dx_v for a well-formed opcode program P
// and a 1-based variable id v, per the stack-directed algorithm in
// external/gams_diff.c's opcode_diff. All constants the derivative needs
// (one, zero, two, half, 1/ln10, 1/ln2, 1/sqrt(2*pi)) live at fixed
// reserved pool indices, so no pool is threaded through: any pool the
// caller evaluates P' against already carries them (pool.New's
// invariant).
func Differentiate(p *vm.Program, v int32) (*vm.Program, error) {
	if key, ok := cacheKey(p, v); ok {
		if cached, ok := memoCache.Get(key); ok {
			cloned := cached.(*vm.Program)
			return &vm.Program{Instrs: append([]instr.Op(nil), cloned.Instrs...), Args: append([]int32(nil), cloned.Args...)}, nil
		}
	}

	result, err := differentiate(p, v)
	if err != nil {
		log.Warn("differentiation failed", "v", v, "err", err)
		return nil, err
	}
	if key, ok := cacheKey(p, v); ok {
		memoCache.Add(key, &vm.Program{Instrs: append([]instr.Op(nil), result.Instrs...), Args: append([]int32(nil), result.Args...)})
	}
	log.Debug("differentiated program", "v", v, "in_len", p.Len(), "out_len", result.Len())
	return result, nil
}

func cacheKey(p *vm.Program, v int32) (memoKey, bool) {
	if p.Len() > 4096 || len(p.Args) != len(p.Instrs) {
		return memoKey{}, false
	}
	buf := make([]byte, 0, p.Len()*5)
	for i, op := range p.Instrs {
		a := uint32(p.Args[i])
		buf = append(buf, byte(op), byte(a), byte(a>>8), byte(a>>16), byte(a>>24))
	}
	return memoKey{sig: string(buf), v: v}, true
}

func differentiate(p *vm.Program, v int32) (*vm.Program, error) {
	if err := vm.Validate(p); err != nil {
		return nil, err
	}
	if p.Len() == 0 {
		return &vm.Program{Instrs: []instr.Op{instr.Header}, Args: []int32{0}}, nil
	}

	n := p.Len()
	out := &derivBuilder{}
	// expend/expderiv/exists are indexed by abstract stack slot; a
	// program of length n can push at most n values, so n+2 slots with
	// headroom for the s-1/s+1 lookahead used by the product/quotient
	// rules is always enough.
	expend := make([]int, n+2)
	expderiv := make([]int, n+2)
	exists := make([]bool, n+2)
	expend[0] = -1
	expderiv[0] = -1

	s := 0
	for k := 0; k < n; k++ {
		op := p.Instrs[k]
		arg := p.Args[k]

		switch op {
		case instr.NoOp:
			// no-op

		case instr.Header:
			out.emit(instr.Header, arg)

		case instr.Store:
			if out.len() == 1 {
				// Only HEADER emitted so far: the derivative is
				// identically zero.
				out.emit(instr.PushImm, int32(pool.IdxZero))
			}
			out.emit(instr.Store, arg)

		case instr.PushVar:
			s++
			if arg == v {
				exists[s] = true
				out.emit(instr.PushImm, int32(pool.IdxOne))
			} else {
				exists[s] = false
			}

		case instr.UMinVar:
			s++
			if arg == v {
				exists[s] = true
				out.emit(instr.PushImm, int32(pool.IdxOne))
				out.emit(instr.UMin, 0)
			} else {
				exists[s] = false
			}

		case instr.PushZero, instr.PushImm:
			s++
			exists[s] = false

		case instr.Add:
			s--
			if exists[s] {
				if exists[s+1] {
					out.emit(instr.Add, 0)
				}
			} else if exists[s+1] {
				exists[s] = true
			}

		case instr.AddVar:
			if arg == v {
				if exists[s] {
					out.emit(instr.AddImm, int32(pool.IdxOne))
				} else {
					out.emit(instr.PushImm, int32(pool.IdxOne))
					exists[s] = true
				}
			}

		case instr.AddImm:
			// no-op

		case instr.Sub:
			s--
			if exists[s] {
				if exists[s+1] {
					out.emit(instr.Sub, 0)
				}
			} else if exists[s+1] {
				out.emit(instr.UMin, 0)
				exists[s] = true
			}

		case instr.SubVar:
			if arg == v {
				if exists[s] {
					out.emit(instr.SubImm, int32(pool.IdxOne))
				} else {
					out.emit(instr.PushImm, int32(pool.IdxOne))
					out.emit(instr.UMin, 0)
					exists[s] = true
				}
			}

		case instr.SubImm:
			// no-op

		case instr.Mul:
			s--
			if exists[s] {
				if exists[s+1] { // u v
					out.copyblock(s, expend, p)
					out.emit(instr.Mul, 0) // v'u
					out.swap(expderiv[s-1], expderiv[s], out.last())
					out.copyblock(s+1, expend, p)
					out.emit(instr.Mul, 0) // u'v
					out.emit(instr.Add, 0) // v'u + u'v
				} else { // u c
					out.copyblock(s+1, expend, p)
					out.emit(instr.Mul, 0)
				}
			} else if exists[s+1] { // c v
				out.copyblock(s, expend, p)
				out.emit(instr.Mul, 0)
				exists[s] = true
			}

		case instr.MulVar:
			if arg == v { // v' = 1
				if exists[s] { // u v
					out.emit(instr.MulVar, v)
					out.copyblock(s, expend, p)
					out.emit(instr.Add, 0)
				} else { // c v
					out.copyblock(s, expend, p)
					exists[s] = true
				}
			} else if exists[s] {
				out.emit(instr.MulVar, arg)
			}

		case instr.MulImm:
			if exists[s] {
				out.emit(instr.MulImm, arg)
			}

		case instr.MulImmAdd:
			s--
			if exists[s] {
				if exists[s+1] {
					out.emit(instr.MulImm, arg)
					out.emit(instr.Add, 0)
				}
			} else if exists[s+1] {
				out.emit(instr.MulImm, arg)
				exists[s] = true
			}

		case instr.Div:
			s--
			if exists[s] {
				if exists[s+1] { // u v
					out.copyblock(s, expend, p)
					out.emit(instr.Mul, 0)  // v'u
					out.emit(instr.UMin, 0) // -v'u
					out.swap(expderiv[s-1], expderiv[s], out.last())
					out.copyblock(s+1, expend, p)
					out.emit(instr.Mul, 0) // u'v
					out.emit(instr.Add, 0) // u'v - v'u
					out.copyblock(s+1, expend, p)
					out.emit(instr.Call1, int32(instr.FnSqr))
					out.emit(instr.Div, 0)
				} else { // u c
					out.copyblock(s+1, expend, p)
					out.emit(instr.Div, 0)
				}
			} else if exists[s+1] { // c v
				out.copyblock(s, expend, p)
				out.emit(instr.Mul, 0)
				out.emit(instr.UMin, 0)
				out.copyblock(s+1, expend, p)
				out.emit(instr.Call1, int32(instr.FnSqr))
				out.emit(instr.Div, 0)
				exists[s] = true
			}

		case instr.DivVar:
			if arg == v { // v' = 1
				if exists[s] { // u v
					out.emit(instr.MulVar, v)
					out.copyblock(s, expend, p)
					out.emit(instr.Sub, 0)
					out.emit(instr.PushVar, v)
					out.emit(instr.Call1, int32(instr.FnSqr))
					out.emit(instr.Div, 0)
				} else { // c v
					out.copyblock(s, expend, p)
					out.emit(instr.UMin, 0)
					out.emit(instr.PushVar, v)
					out.emit(instr.Call1, int32(instr.FnSqr))
					out.emit(instr.Div, 0)
					exists[s] = true
				}
			} else if exists[s] {
				out.emit(instr.DivVar, arg)
			}

		case instr.DivImm:
			if exists[s] {
				out.emit(instr.DivImm, arg)
			}

		case instr.UMin:
			if exists[s] {
				out.emit(instr.UMin, 0)
			}

		case instr.Call1:
			if exists[s] {
				if err := diffCall1(out, s, expend, expderiv, exists, p, instr.FuncCode(arg)); err != nil {
					return nil, err
				}
			}

		case instr.Call2:
			s--
			if err := diffCall2(out, s, expend, expderiv, exists, p, instr.FuncCode(arg)); err != nil {
				return nil, err
			}

		case instr.FuncArgCount, instr.CallN:
			return nil, fmt.Errorf("%w: %s cannot be differentiated", nlerr.ErrUnsupportedDiff, op)

		default:
			return nil, fmt.Errorf("%w: unknown instruction %s at pc %d", nlerr.ErrMalformedOpcode, op, k)
		}

		expderiv[s] = out.last()
		expend[s] = k
	}

	out.args[0] = int32(out.len())
	return &vm.Program{Instrs: out.instrs, Args: out.args}, nil
}

// diffCall1 applies the CALL1 chain-rule template for f, appending to out.
// Called only when the incoming derivative at slot s exists.
func diffCall1(out *derivBuilder, s int, expend []int, expderiv []int, exists []bool, p *vm.Program, f instr.FuncCode) error {
	switch f {
	case instr.FnSqr: // 2u * u'
		out.copyblock(s, expend, p)
		out.emit(instr.MulImm, int32(pool.IdxTwo))
		out.emit(instr.Mul, 0)

	case instr.FnExp: // exp(u) * u'
		out.copyblock(s, expend, p)
		out.emit(instr.Call1, int32(instr.FnExp))
		out.emit(instr.Mul, 0)

	case instr.FnLog: // (1/u) * u'
		out.emit(instr.PushImm, int32(pool.IdxOne))
		out.copyblock(s, expend, p)
		out.emit(instr.Div, 0)
		out.emit(instr.Mul, 0)

	case instr.FnLog10: // (1/ln10 / u) * u'
		out.emit(instr.PushImm, int32(pool.IdxInvLn10))
		out.copyblock(s, expend, p)
		out.emit(instr.Div, 0)
		out.emit(instr.Mul, 0)

	case instr.FnLog2: // (1/ln2 / u) * u'
		out.emit(instr.PushImm, int32(pool.IdxInvLn2))
		out.copyblock(s, expend, p)
		out.emit(instr.Div, 0)
		out.emit(instr.Mul, 0)

	case instr.FnSin: // cos(u) * u'
		out.copyblock(s, expend, p)
		out.emit(instr.Call1, int32(instr.FnCos))
		out.emit(instr.Mul, 0)

	case instr.FnCos: // -sin(u) * u'
		out.copyblock(s, expend, p)
		out.emit(instr.Call1, int32(instr.FnSin))
		out.emit(instr.UMin, 0)
		out.emit(instr.Mul, 0)

	case instr.FnArctan: // (1 / (1+u^2)) * u'
		out.emit(instr.PushImm, int32(pool.IdxOne))
		out.emit(instr.PushImm, int32(pool.IdxOne))
		out.copyblock(s, expend, p)
		out.emit(instr.Call1, int32(instr.FnSqr))
		out.emit(instr.Add, 0)
		out.emit(instr.Div, 0)
		out.emit(instr.Mul, 0)

	case instr.FnErf: // (1/sqrt(2pi)) * exp(-u^2/2) * u'
		out.copyblock(s, expend, p)
		out.emit(instr.Call1, int32(instr.FnSqr))
		out.emit(instr.MulImm, int32(pool.IdxHalf))
		out.emit(instr.UMin, 0)
		out.emit(instr.Call1, int32(instr.FnExp))
		out.emit(instr.MulImm, int32(pool.IdxInvSqrt2Pi))
		out.emit(instr.Mul, 0)

	case instr.FnSqrt: // (1/2) / sqrt(u) * u'
		out.emit(instr.PushImm, int32(pool.IdxHalf))
		out.copyblock(s, expend, p)
		out.emit(instr.Call1, int32(instr.FnSqrt))
		out.emit(instr.Div, 0)
		out.emit(instr.Mul, 0)

	case instr.FnAbs: // ifthen(u >= 0, 1, -1) * u'
		out.copyblock(s, expend, p)
		out.emit(instr.PushImm, int32(pool.IdxZero))
		out.emit(instr.Call2, int32(instr.FnRelOpGE))
		out.emit(instr.PushImm, int32(pool.IdxOne))
		out.emit(instr.PushImm, int32(pool.IdxOne))
		out.emit(instr.UMin, 0)
		out.emit(instr.FuncArgCount, 3)
		out.emit(instr.CallN, int32(instr.FnIfThen))
		out.emit(instr.Mul, 0)

	case instr.FnTrunc, instr.FnFloor, instr.FnCeil, instr.FnRound, instr.FnSign:
		// Identically zero derivative: discard whatever was emitted for
		// the incoming derivative and fall back to the predecessor slot.
		exists[s] = false
		out.truncate(expderiv[s-1] + 1)

	default:
		return fmt.Errorf("%w: CALL1(%s)", nlerr.ErrUnsupportedDiff, f)
	}
	return nil
}

// diffCall2 applies the CALL2 multivariable chain rule for f on (u, v),
// where s is the post-decrement abstract stack slot of u (v sits at
// s+1). exists[s]/exists[s+1] report whether u/v carry a derivative.
func diffCall2(out *derivBuilder, s int, expend []int, expderiv []int, exists []bool, p *vm.Program, f instr.FuncCode) error {
	switch {
	case exists[s] && exists[s+1]: // u v
		switch f {
		case instr.FnRPower: // u^v * (v'*ln(u) + u'*v/u)
			out.copyblock(s, expend, p)
			out.emit(instr.Call1, int32(instr.FnLog))
			out.emit(instr.Mul, 0) // v' * ln(u)
			out.swap(expderiv[s-1], expderiv[s], out.last())
			out.copyblock(s+1, expend, p)
			out.emit(instr.Mul, 0) // u' * v
			out.copyblock(s, expend, p)
			out.emit(instr.Div, 0) // u'*v/u
			out.emit(instr.Add, 0) // v'*ln(u) + u'*v/u
			out.copyblock(s, expend, p)
			out.copyblock(s+1, expend, p)
			out.emit(instr.Call2, int32(instr.FnRPower)) // u^v
			out.emit(instr.Mul, 0)
			return nil
		default:
			return fmt.Errorf("%w: CALL2(%s) with two non-constant arguments", nlerr.ErrUnsupportedDiff, f)
		}
	case exists[s]: // u c
		switch f {
		case instr.FnRPower, instr.FnPower, instr.FnVCPower:
			out.copyblock(s+1, expend, p) // c
			out.emit(instr.Mul, 0)        // u'c
			out.copyblock(s, expend, p)   // u
			out.copyblock(s+1, expend, p) // c
			out.emit(instr.SubImm, int32(pool.IdxOne))
			out.emit(instr.Call2, int32(f)) // power(u,c-1)
			out.emit(instr.Mul, 0)
			return nil
		default:
			return fmt.Errorf("%w: CALL2(%s) with constant exponent", nlerr.ErrUnsupportedDiff, f)
		}
	case exists[s+1]: // c v
		switch f {
		case instr.FnRPower, instr.FnCVPower: // c^v * ln(c) * v'
			out.copyblock(s, expend, p)
			out.copyblock(s+1, expend, p)
			out.emit(instr.Call2, int32(f))
			out.copyblock(s, expend, p)
			out.emit(instr.Call1, int32(instr.FnLog))
			out.emit(instr.Mul, 0)
			out.emit(instr.Mul, 0)
			exists[s] = true
			return nil
		default:
			return fmt.Errorf("%w: CALL2(%s) with constant base", nlerr.ErrUnsupportedDiff, f)
		}
	default:
		return nil
	}
}
