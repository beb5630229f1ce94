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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reshop-go/nlcore/nlang/instr"
	"github.com/reshop-go/nlcore/nlang/pool"
	"github.com/reshop-go/nlcore/nlang/vm"
)

func program(storeIdx int32, ops []instr.Op, args []int32) *vm.Program {
	instrs := append([]instr.Op{instr.Header}, ops...)
	instrs = append(instrs, instr.Store)
	vals := append([]int32{0}, args...)
	vals = append(vals, storeIdx)
	p := &vm.Program{Instrs: instrs, Args: vals}
	p.Args[0] = int32(p.Len())
	return p
}

func TestComputePureConstantIsDegreeZero(t *testing.T) {
	p := program(1, []instr.Op{instr.PushImm}, []int32{int32(pool.IdxTwo)})
	d, err := Compute(p, pool.New())
	require.NoError(t, err)
	require.Equal(t, Degree(0), d)
}

func TestComputeAffineProgramIsDegreeOne(t *testing.T) {
	// 2*x1 + 3 -> MUL_IMM(x1, 2), ADD_IMM(3)
	p := program(1,
		[]instr.Op{instr.PushVar, instr.MulImm, instr.AddImm},
		[]int32{1, int32(pool.IdxTwo), int32(pool.IdxThree)})
	d, err := Compute(p, pool.New())
	require.NoError(t, err)
	require.Equal(t, Degree(1), d)
}

func TestComputeProductOfTwoVariablesIsDegreeTwo(t *testing.T) {
	p := program(1, []instr.Op{instr.PushVar, instr.MulVar}, []int32{1, 2})
	d, err := Compute(p, pool.New())
	require.NoError(t, err)
	require.Equal(t, Degree(2), d)
}

func TestComputeSqrDoublesDegree(t *testing.T) {
	p := program(1, []instr.Op{instr.PushVar, instr.Call1}, []int32{1, int32(instr.FnSqr)})
	d, err := Compute(p, pool.New())
	require.NoError(t, err)
	require.Equal(t, Degree(2), d)
}

func TestComputeNonSqrCall1OfVariableIsFullyNonlinear(t *testing.T) {
	p := program(1, []instr.Op{instr.PushVar, instr.Call1}, []int32{1, int32(instr.FnSin)})
	d, err := Compute(p, pool.New())
	require.NoError(t, err)
	require.Equal(t, FullyNonlinear, d)
}

func TestComputeNonSqrCall1OfConstantStaysConstant(t *testing.T) {
	p := program(1, []instr.Op{instr.PushImm, instr.Call1}, []int32{int32(pool.IdxTwo), int32(instr.FnSin)})
	d, err := Compute(p, pool.New())
	require.NoError(t, err)
	require.Equal(t, Degree(0), d)
}

func TestComputeDivByConstantKeepsNumeratorDegree(t *testing.T) {
	p := program(1, []instr.Op{instr.PushVar, instr.DivImm}, []int32{1, int32(pool.IdxTwo)})
	d, err := Compute(p, pool.New())
	require.NoError(t, err)
	require.Equal(t, Degree(1), d)
}

func TestComputeDivByVariableProducesDivMarker(t *testing.T) {
	p := program(1,
		[]instr.Op{instr.PushVar, instr.PushVar, instr.Div},
		[]int32{1, 2, 0})
	d, err := Compute(p, pool.New())
	require.NoError(t, err)
	require.True(t, d.IsDiv())
	numer, denom, ok := d.DivParts()
	require.True(t, ok)
	require.Equal(t, Degree(1), numer)
	require.Equal(t, Degree(1), denom)
}

func TestComputePowerWithConstantIntegerExponent(t *testing.T) {
	// x1 ** 3
	p := program(1,
		[]instr.Op{instr.PushVar, instr.PushImm, instr.Call2},
		[]int32{1, int32(pool.IdxThree), int32(instr.FnPower)})
	d, err := Compute(p, pool.New())
	require.NoError(t, err)
	require.Equal(t, Degree(3), d)
}

func TestComputePowerWithZeroExponentIsConstant(t *testing.T) {
	p := program(1,
		[]instr.Op{instr.PushVar, instr.PushImm, instr.Call2},
		[]int32{1, int32(pool.IdxZero), int32(instr.FnPower)})
	d, err := Compute(p, pool.New())
	require.NoError(t, err)
	require.Equal(t, Degree(0), d)
}

func TestComputePowerWithNonIntegerExponentIsFullyNonlinear(t *testing.T) {
	p := program(1,
		[]instr.Op{instr.PushVar, instr.PushImm, instr.Call2},
		[]int32{1, int32(pool.IdxTenth), int32(instr.FnPower)})
	d, err := Compute(p, pool.New())
	require.NoError(t, err)
	require.Equal(t, FullyNonlinear, d)
}

func TestComputeCallNAllConstantStaysConstant(t *testing.T) {
	p := program(1,
		[]instr.Op{instr.PushImm, instr.PushImm, instr.PushImm, instr.FuncArgCount, instr.CallN},
		[]int32{int32(pool.IdxOne), int32(pool.IdxTwo), int32(pool.IdxThree), 3, int32(instr.FnMax)})
	d, err := Compute(p, pool.New())
	require.NoError(t, err)
	require.Equal(t, Degree(0), d)
}

func TestComputeCallNWithVariableIsFullyNonlinear(t *testing.T) {
	p := program(1,
		[]instr.Op{instr.PushVar, instr.PushImm, instr.FuncArgCount, instr.CallN},
		[]int32{1, int32(pool.IdxTwo), 2, int32(instr.FnMax)})
	d, err := Compute(p, pool.New())
	require.NoError(t, err)
	require.Equal(t, FullyNonlinear, d)
}

func TestComputeRejectsMalformedProgram(t *testing.T) {
	p := &vm.Program{Instrs: []instr.Op{instr.Header, instr.Add, instr.Store}, Args: []int32{3, 0, 0}}
	_, err := Compute(p, pool.New())
	require.Error(t, err)
}

func TestDumpDotProgramWritesDigraph(t *testing.T) {
	p := program(1, []instr.Op{instr.PushVar, instr.MulVar}, []int32{1, 2})
	var buf bytes.Buffer
	require.NoError(t, DumpDotProgram(p, &buf))
	require.Contains(t, buf.String(), "digraph optree")
}
