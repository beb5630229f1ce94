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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reshop-go/nlcore/nlang/pool"
)

func TestAllocNodeReservesSlack(t *testing.T) {
	tr := New()
	n := tr.AllocNode(2)
	require.Equal(t, 4, n.ChildrenMax)
	require.Len(t, n.Children, 4)
}

func TestAllocFixedHasNoSlack(t *testing.T) {
	tr := New()
	n := tr.AllocFixed(2)
	require.Equal(t, 2, n.ChildrenMax)
}

func TestCopyProducesIndependentTree(t *testing.T) {
	tr := New()
	leaf := tr.NewLeafVar(1)
	add := tr.AllocFixed(2)
	add.Class = ClassAdd
	add.Children[0] = leaf
	tr.Root = add

	dst := New()
	copied := dst.Copy(tr.Root)
	require.Equal(t, ClassAdd, copied.Class)
	require.NotSame(t, tr.Root, copied)
	require.NotSame(t, tr.Root.Children[0], copied.Children[0])
	require.Equal(t, int32(1), copied.Children[0].Value)
}

func TestCopyWithRosettaCollapsesUnmappedVar(t *testing.T) {
	tr := New()
	tr.Root = tr.NewLeafVar(5)

	dst := New()
	rho := RosettaMap{}
	copied := dst.CopyWithRosetta(tr.Root, rho)
	require.Equal(t, ClassCst, copied.Class)
	require.Equal(t, int32(pool.IdxZero), copied.Value)
}

func TestCopyWithRosettaRemapsVar(t *testing.T) {
	tr := New()
	tr.Root = tr.NewLeafVar(5)

	dst := New()
	rho := RosettaMap{5: 9}
	copied := dst.CopyWithRosetta(tr.Root, rho)
	require.Equal(t, ClassVar, copied.Class)
	require.Equal(t, int32(9), copied.Value)
}

func TestReplaceVarByConstUpdatesEveryOccurrence(t *testing.T) {
	tr := New()
	a := tr.NewLeafVar(2)
	b := tr.NewLeafVar(2)
	add := tr.AllocFixed(2)
	add.Class = ClassAdd
	add.Children[0] = a
	add.Children[1] = b
	tr.Root = add

	tr.ReplaceVarByConst(2, pool.IdxOne)
	require.Equal(t, ClassCst, a.Class)
	require.Equal(t, ClassCst, b.Class)
	require.Equal(t, int32(pool.IdxOne), a.Value)
}

func TestMultiplyByConstFoldsOne(t *testing.T) {
	tr := New()
	pl := pool.New()
	leaf := tr.NewLeafVar(1)
	out, created, err := tr.MultiplyByConst(leaf, pl, 1)
	require.NoError(t, err)
	require.False(t, created)
	require.Same(t, leaf, out)
}

func TestMultiplyByConstWrapsNegativeOneInUMin(t *testing.T) {
	tr := New()
	pl := pool.New()
	leaf := tr.NewLeafVar(1)
	out, created, err := tr.MultiplyByConst(leaf, pl, -1)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, ClassUMin, out.Class)
}

func TestCheckAddCollapsesSingleChild(t *testing.T) {
	tr := New()
	leaf := tr.NewLeafVar(3)
	add := tr.AllocFixed(2)
	add.Class = ClassAdd
	add.Children[0] = leaf

	collapsed, err := tr.CheckAdd(add)
	require.NoError(t, err)
	require.Same(t, leaf, collapsed)
}

func TestCheckAddRejectsEmpty(t *testing.T) {
	tr := New()
	add := tr.AllocFixed(2)
	add.Class = ClassAdd

	_, err := tr.CheckAdd(add)
	require.Error(t, err)
}

func TestFindAddNodeInstallsFreshAddOverVar(t *testing.T) {
	tr := New()
	pl := pool.New()
	tr.Root = tr.NewLeafVar(1)
	coeff := 1.0

	add := tr.FindAddNode(pl, &coeff)
	require.Equal(t, ClassAdd, add.Class)
	require.Same(t, add, tr.Root)
	require.Equal(t, ClassVar, add.Children[0].Class)
}

func TestFindAddNodeAbsorbsUMinIntoCoeff(t *testing.T) {
	tr := New()
	pl := pool.New()
	v := tr.NewLeafVar(1)
	um := tr.AllocFixed(1)
	um.Class = ClassUMin
	um.Children[0] = v
	tr.Root = um
	coeff := 1.0

	add := tr.FindAddNode(pl, &coeff)
	require.Equal(t, -1.0, coeff)
	require.Same(t, add, um.Children[0])
}

func TestEvaluateAddOfConstAndVar(t *testing.T) {
	tr := New()
	pl := pool.New()
	cst := tr.NewLeafConst(pool.IdxTwo)
	v := tr.NewLeafVar(1)
	add := tr.AllocFixed(2)
	add.Class = ClassAdd
	add.Children[0] = cst
	add.Children[1] = v
	tr.Root = add

	got, err := tr.Evaluate(pl, VectorBinding{0, 3})
	require.NoError(t, err)
	require.Equal(t, 5.0, got)
}

func TestEvaluateDivByZeroReportsPole(t *testing.T) {
	tr := New()
	pl := pool.New()
	num := tr.NewLeafConst(pool.IdxOne)
	den := tr.NewLeafConst(pool.IdxZero)
	div := tr.AllocFixed(2)
	div.Class = ClassDiv
	div.Children[0] = num
	div.Children[1] = den
	tr.Root = div

	_, err := tr.Evaluate(pl, VectorBinding{0})
	require.Error(t, err)
}

func TestEmitDotWritesDigraph(t *testing.T) {
	tr := New()
	tr.Root = tr.NewLeafVar(1)
	var buf bytes.Buffer
	require.NoError(t, tr.EmitDot(&buf))
	require.Contains(t, buf.String(), "digraph expr")
}

func TestDumpRendersNodeFields(t *testing.T) {
	tr := New()
	tr.Root = tr.NewLeafVar(7)
	out := Dump(tr.Root)
	require.Contains(t, out, "VAR")
	require.Contains(t, out, "7")
}

func TestDumpNilNode(t *testing.T) {
	require.Equal(t, "<nil>", Dump(nil))
}
