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

import "github.com/reshop-go/nlcore/nlang/pool"

// Copy deep-copies src and everything it reaches into t's own arena. src
// may belong to t or to any other tree; the result never aliases src.
func (t *Tree) Copy(src *Node) *Node {
	return t.copyRec(src, nil)
}

// Rosetta remaps a source variable id to a destination variable id.
// Lookup returns ok == false for a variable that has no image, meaning
// every node that references it collapses to the identically-zero CST.
type Rosetta interface {
	Lookup(v int32) (int32, bool)
}

// RosettaMap is the common map-backed Rosetta.
type RosettaMap map[int32]int32

func (m RosettaMap) Lookup(v int32) (int32, bool) {
	nv, ok := m[v]
	return nv, ok
}

// CopyWithRosetta deep-copies src into t, remapping every variable id i to
// rho.Lookup(i). A subtree rooted at (or folding) a variable with no image
// under rho is replaced by the identically-zero constant.
func (t *Tree) CopyWithRosetta(src *Node, rho Rosetta) *Node {
	return t.copyRec(src, rho)
}

func (t *Tree) copyRec(src *Node, rho Rosetta) *Node {
	if src == nil {
		return nil
	}

	// A bare VAR leaf: remap or collapse, no children to carry over.
	if src.Class == ClassVar {
		if rho == nil {
			return t.NewLeafVar(src.Value)
		}
		nv, ok := rho.Lookup(src.Value)
		if !ok {
			return t.zeroNode()
		}
		return t.NewLeafVar(nv)
	}

	dst := t.allocLike(src)
	dst.Class = src.Class
	dst.Func = src.Func
	dst.OpArg = src.OpArg
	dst.Value = src.Value

	// A folded variable operand on an interior node (e.g. ADD(OpArgVar=i, child)):
	// remap the folded id same as a leaf, but still walk the node's children.
	if src.OpArg == OpArgVar && rho != nil {
		nv, ok := rho.Lookup(src.Value)
		if !ok {
			return t.zeroNode()
		}
		dst.Value = nv
	}
	if dst.OpArg == OpArgVar {
		t.recordVar(dst.Value, dst)
	}

	for i, c := range src.Children {
		if c == nil {
			continue
		}
		dst.Children[i] = t.copyRec(c, rho)
	}
	return dst
}

func (t *Tree) allocLike(src *Node) *Node {
	if src.ChildrenMax == 0 {
		return t.AllocLeaf()
	}
	return t.AllocFixed(src.ChildrenMax)
}

// zeroNode returns a fresh CST(0) leaf; used when a rosetta copy drops a
// variable with no image.
func (t *Tree) zeroNode() *Node {
	n := t.AllocLeaf()
	n.Class = ClassCst
	n.OpArg = OpArgCst
	n.Value = int32(pool.IdxZero)
	return n
}
