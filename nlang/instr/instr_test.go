package instr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpStringRoundTrip(t *testing.T) {
	for op := Op(0); op < opCount; op++ {
		assert.NotEmpty(t, op.String())
		assert.NotEqual(t, "INVALID_OP", op.String())
	}
	assert.Equal(t, "INVALID_OP", Op(opCount).String())
	assert.True(t, PushZero.Valid())
	assert.False(t, Chk.Valid())
	assert.False(t, Op(opCount).Valid())
}

func TestFuncCodeStringRoundTrip(t *testing.T) {
	for f := FnMapval; f < fnCount; f++ {
		assert.NotEmpty(t, f.String())
		assert.True(t, f.Valid())
	}
	assert.Equal(t, "INVALID_FUNC", FuncCode(fnCount).String())
}

func TestFuncCodeArity(t *testing.T) {
	assert.Equal(t, 1, FnSqr.Arity())
	assert.Equal(t, 1, FnSign.Arity())
	assert.Equal(t, 2, FnRPower.Arity())
	assert.Equal(t, 2, FnCVPower.Arity())
}

func TestOpOperandClassification(t *testing.T) {
	assert.True(t, PushVar.HasVarOperand())
	assert.False(t, PushImm.HasVarOperand())
	assert.True(t, PushImm.HasImmOperand())
	assert.True(t, MulImmAdd.HasImmOperand())
	assert.True(t, Call2.HasFuncOperand())
	assert.False(t, Add.HasFuncOperand())
}

func TestOpStackEffect(t *testing.T) {
	assert.Equal(t, 0, Header.StackPushes())
	assert.Equal(t, 1, PushVar.StackPushes())
	assert.Equal(t, 2, Add.StackPops())
	assert.Equal(t, 1, UMin.StackPops())
	assert.Equal(t, 1, Store.StackPops())
	assert.Equal(t, 0, Store.StackPushes())
}
