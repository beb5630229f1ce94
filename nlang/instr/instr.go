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

// Package instr defines the opcode and function-code vocabulary shared by
// every component that reads or writes a nonlinear-expression opcode
// program: the VM (nlang/vm), the differentiator (nlang/diff) and the
// opcode/tree bridge (nlang/bridge).
package instr

// Op identifies a single opcode-program instruction. The numeric values
// are fixed by the upstream front end that produces opcode programs as
// integer arrays: reordering this enum breaks wire compatibility with
// every caller, so new opcodes are only ever appended.
type Op uint8

const (
	NoOp Op = iota
	PushVar
	PushImm
	Store
	Add
	AddVar
	AddImm
	Sub
	SubVar
	SubImm
	Mul
	MulVar
	MulImm
	Div
	DivVar
	DivImm
	UMin
	UMinVar
	Header
	End
	Call1
	Call2
	CallN
	FuncArgCount
	MulImmAdd
	PushZero

	// Reserved for future opcodes; not dispatched by this VM.
	Chk
	AddO
	PushO
	Invoc
	StackIn

	opCount
)

// reservedOp is the first opcode value in the reserved tail: named for
// disassembly but not implemented by Validate/Walk.
const reservedOp = Chk

var opNames = [opCount]string{
	NoOp:         "NOOP",
	PushVar:      "PUSH_VAR",
	PushImm:      "PUSH_IMM",
	Store:        "STORE",
	Add:          "ADD",
	AddVar:       "ADD_VAR",
	AddImm:       "ADD_IMM",
	Sub:          "SUB",
	SubVar:       "SUB_VAR",
	SubImm:       "SUB_IMM",
	Mul:          "MUL",
	MulVar:       "MUL_VAR",
	MulImm:       "MUL_IMM",
	Div:          "DIV",
	DivVar:       "DIV_VAR",
	DivImm:       "DIV_IMM",
	UMin:         "UMIN",
	UMinVar:      "UMIN_VAR",
	Header:       "HEADER",
	End:          "END",
	Call1:        "CALL1",
	Call2:        "CALL2",
	CallN:        "CALLN",
	FuncArgCount: "FUNC_ARG_COUNT",
	MulImmAdd:    "MUL_IMM_ADD",
	PushZero:     "PUSH_ZERO",
	Chk:          "CHK",
	AddO:         "ADDO",
	PushO:        "PUSHO",
	Invoc:        "INVOC",
	StackIn:      "STACKIN",
}

// String returns the stable printable name of op, or "INVALID_OP" if op is
// outside the known instruction set.
func (op Op) String() string {
	if op >= opCount {
		return "INVALID_OP"
	}
	return opNames[op]
}

// Valid reports whether op is a known, dispatchable instruction. Opcodes
// in the reserved tail are named but not yet implemented.
func (op Op) Valid() bool { return op < reservedOp }

// HasVarOperand reports whether op carries a 1-based variable id operand.
func (op Op) HasVarOperand() bool {
	switch op {
	case PushVar, AddVar, SubVar, MulVar, DivVar, UMinVar:
		return true
	default:
		return false
	}
}

// HasImmOperand reports whether op carries a 1-based constants-pool index
// operand.
func (op Op) HasImmOperand() bool {
	switch op {
	case PushImm, AddImm, SubImm, MulImm, DivImm, MulImmAdd:
		return true
	default:
		return false
	}
}

// HasFuncOperand reports whether op carries a FuncCode operand.
func (op Op) HasFuncOperand() bool {
	switch op {
	case Call1, Call2, CallN:
		return true
	default:
		return false
	}
}

// StackPops returns how many values op pops off the abstract value stack,
// excluding the case of CALLN whose arity is supplied externally by the
// preceding FUNC_ARG_COUNT instruction (see vm.StackDepth).
func (op Op) StackPops() int {
	switch op {
	case Store, UMin, AddVar, AddImm, SubVar, SubImm, MulVar, MulImm, DivVar, DivImm, Call1:
		return 1
	case Add, Sub, Mul, Div, MulImmAdd, Call2:
		return 2
	default:
		return 0
	}
}

// StackPushes returns how many values op pushes onto the abstract value
// stack.
func (op Op) StackPushes() int {
	switch op {
	case Header, Store, NoOp, End, FuncArgCount:
		return 0
	default:
		return 1
	}
}

// FuncCode identifies the mathematical function a CALL1/CALL2/CALLN
// instruction invokes. Like Op, the numeric values are fixed by the
// upstream front end and only ever extended by appending.
type FuncCode uint8

const (
	FnMapval FuncCode = iota
	FnCeil
	FnFloor
	FnRound
	FnMod
	FnTrunc
	FnSign
	FnMin
	FnMax
	FnSqr
	FnExp
	FnLog
	FnLog10
	FnSqrt
	FnAbs
	FnCos
	FnSin
	FnArctan
	FnErf
	FnLog2
	FnIfThen
	FnRPower
	FnPower
	FnCVPower
	FnVCPower
	FnSinh
	FnCosh
	FnTanh
	FnTan
	FnArccos
	FnArcsin
	FnArctan2
	FnGamma
	FnLogGamma

	// FnRelOpGE computes a boolean (0/1) greater-or-equal comparison; it is
	// not part of the upstream function-code table but is needed to make
	// FnIfThen's condition operand computable.
	FnRelOpGE

	fnCount
)

var fnNames = [fnCount]string{
	FnMapval:   "mapval",
	FnCeil:     "ceil",
	FnFloor:    "floor",
	FnRound:    "round",
	FnMod:      "mod",
	FnTrunc:    "trunc",
	FnSign:     "sign",
	FnMin:      "min",
	FnMax:      "max",
	FnSqr:      "sqr",
	FnExp:      "exp",
	FnLog:      "log",
	FnLog10:    "log10",
	FnSqrt:     "sqrt",
	FnAbs:      "abs",
	FnCos:      "cos",
	FnSin:      "sin",
	FnArctan:   "arctan",
	FnErf:      "erf",
	FnLog2:     "log2",
	FnIfThen:   "ifthen",
	FnRPower:   "rpower",
	FnPower:    "power",
	FnCVPower:  "cvpower",
	FnVCPower:  "vcpower",
	FnSinh:     "sinh",
	FnCosh:     "cosh",
	FnTanh:     "tanh",
	FnTan:      "tan",
	FnArccos:   "arccos",
	FnArcsin:   "arcsin",
	FnArctan2:  "arctan2",
	FnGamma:    "gamma",
	FnLogGamma: "loggamma",
	FnRelOpGE:  "relopge",
}

// String returns the stable printable name of f.
func (f FuncCode) String() string {
	if f >= fnCount {
		return "INVALID_FUNC"
	}
	return fnNames[f]
}

// Valid reports whether f is a known function code.
func (f FuncCode) Valid() bool { return f < fnCount }

// Arity returns the number of arguments f expects when called through
// CALL1/CALL2, or -1 for function codes without a fixed arity (those that
// take a variable argument count through CALLN, such as min, max, ifthen).
func (f FuncCode) Arity() int {
	switch f {
	case FnCeil, FnFloor, FnRound, FnTrunc, FnSign, FnSqr, FnExp, FnLog, FnLog10,
		FnSqrt, FnAbs, FnCos, FnSin, FnArctan, FnErf, FnLog2,
		FnSinh, FnCosh, FnTanh, FnTan, FnArccos, FnArcsin, FnGamma, FnLogGamma:
		return 1
	case FnRPower, FnPower, FnCVPower, FnVCPower, FnArctan2, FnMod, FnRelOpGE:
		return 2
	default:
		return -1
	}
}
