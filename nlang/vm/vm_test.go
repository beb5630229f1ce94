package vm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reshop-go/nlcore/nlang/instr"
	"github.com/reshop-go/nlcore/nlang/nlerr"
)

// s1Program builds HEADER(5), PUSH_VAR(2), MUL_VAR(2), UMIN(0), STORE(1):
// the opcode program for -(x2*x2).
func s1Program() *Program {
	return &Program{
		Instrs: []instr.Op{instr.Header, instr.PushVar, instr.MulVar, instr.UMin, instr.Store},
		Args:   []int32{5, 2, 2, 0, 1},
	}
}

func TestValidateWellFormedProgram(t *testing.T) {
	p := s1Program()
	require.NoError(t, Validate(p))
}

func TestValidateEmptyProgram(t *testing.T) {
	p := &Program{}
	assert.NoError(t, Validate(p))
}

func TestValidateRejectsMissingHeader(t *testing.T) {
	p := &Program{
		Instrs: []instr.Op{instr.PushVar, instr.Store},
		Args:   []int32{2, 1},
	}
	err := Validate(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, nlerr.ErrMalformedOpcode))
}

func TestValidateRejectsWrongHeaderLength(t *testing.T) {
	p := s1Program()
	p.Args[0] = 999
	err := Validate(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, nlerr.ErrMalformedOpcode))
}

func TestValidateRejectsMissingStore(t *testing.T) {
	p := &Program{
		Instrs: []instr.Op{instr.Header, instr.PushVar},
		Args:   []int32{2, 1},
	}
	err := Validate(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, nlerr.ErrMalformedOpcode))
}

func TestValidateRejectsStackImbalance(t *testing.T) {
	p := &Program{
		Instrs: []instr.Op{instr.Header, instr.PushVar, instr.PushVar, instr.Store},
		Args:   []int32{4, 1, 2, 1},
	}
	err := Validate(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, nlerr.ErrMalformedOpcode))
}

func TestValidateRejectsUnderflow(t *testing.T) {
	p := &Program{
		Instrs: []instr.Op{instr.Header, instr.Add, instr.Store},
		Args:   []int32{3, 0, 1},
	}
	err := Validate(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, nlerr.ErrMalformedOpcode))
}

func TestStackDepthTracksCallN(t *testing.T) {
	p := &Program{
		Instrs: []instr.Op{instr.Header, instr.PushVar, instr.PushVar, instr.PushVar, instr.FuncArgCount, instr.CallN, instr.Store},
		Args:   []int32{7, 1, 2, 3, 3, int32(instr.FnMax), 1},
	}
	depth, err := StackDepth(p)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
	require.NoError(t, Validate(p))
}

func TestWalkVisitsEveryInstructionInOrder(t *testing.T) {
	p := s1Program()
	var seen []instr.Op
	err := Walk(p, func(pc int, op instr.Op, arg int32) error {
		seen = append(seen, op)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, p.Instrs, seen)
}

func TestWalkPropagatesVisitError(t *testing.T) {
	p := s1Program()
	sentinel := errors.New("boom")
	err := Walk(p, func(pc int, op instr.Op, arg int32) error {
		if pc == 2 {
			return sentinel
		}
		return nil
	})
	assert.ErrorIs(t, err, sentinel)
}
