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
	"github.com/reshop-go/nlcore/nlang/pool"
)

// ReplaceVarByConst replaces every VAR(v) occurrence, including folded
// op-args, with CST(idx), in place.
func (t *Tree) ReplaceVarByConst(v int32, idx pool.Index) {
	nodes := t.varOccurrences[v]
	delete(t.varOccurrences, v)
	for _, n := range nodes {
		n.OpArg = OpArgCst
		n.Value = int32(idx)
		if n.Class == ClassVar {
			n.Class = ClassCst
		}
		n.invalidateDegree()
	}
}

// ReplaceVarByTree substitutes every VAR(v) occurrence with a fresh deep
// copy of subtree. A node where v was folded into an op-arg is first
// re-expanded into an explicit child before the substitution, since a
// subtree (unlike a constant or variable id) cannot be folded.
func (t *Tree) ReplaceVarByTree(v int32, subtree *Node) {
	nodes := t.varOccurrences[v]
	delete(t.varOccurrences, v)
	for _, n := range nodes {
		copy := t.Copy(subtree)
		if n.Class == ClassVar {
			// n is itself the VAR leaf; every parent already holds a
			// pointer to n, so splice the copy's fields into n in place
			// rather than trying to rewrite the parent's child slot.
			*n = *copy
			continue
		}
		// n folds v into its op-arg: re-expand into an explicit child
		// slot first.
		n.OpArg = OpArgUnset
		n.Value = 0
		idx := t.FindFreeChild(n, 1)
		n.Children[idx] = copy
	}
}

// MultiplyByConst wraps node in MUL(c, node), except for the two folding
// special cases c == 1 (returns node unchanged) and c == -1 (wraps in
// UMIN instead of a constant multiplication). Reports whether a new node
// was created.
func (t *Tree) MultiplyByConst(node *Node, pl *pool.Pool, c float64) (*Node, bool, error) {
	if c == 1 {
		return node, false, nil
	}
	if c == -1 {
		n := t.AllocFixed(1)
		n.Class = ClassUMin
		n.Children[0] = node
		return n, true, nil
	}
	idx, err := pl.GetIndex(c)
	if err != nil {
		return nil, false, err
	}
	n := t.AllocFixed(1)
	n.Class = ClassMul
	n.OpArg = OpArgCst
	n.Value = int32(idx)
	n.Children[0] = node
	return n, true, nil
}

// Scale multiplies the whole tree by c in place, optimizing the case
// where the root is already UMIN (folded into MUL(-c) directly) over
// always wrapping in a fresh node.
func (t *Tree) Scale(pl *pool.Pool, c float64) error {
	if c == 1 {
		return nil
	}
	if t.Root != nil && t.Root.Class == ClassUMin {
		inner := t.Root.Children[0]
		idx, err := pl.GetIndex(-c)
		if err != nil {
			return err
		}
		mul := t.AllocFixed(1)
		mul.Class = ClassMul
		mul.OpArg = OpArgCst
		mul.Value = int32(idx)
		mul.Children[0] = inner
		t.Root = mul
		return nil
	}
	wrapped, _, err := t.MultiplyByConst(t.Root, pl, c)
	if err != nil {
		return err
	}
	t.Root = wrapped
	return nil
}

// ScaleNegate negates the whole tree in place, avoiding the pool lookup
// Scale(-1) would otherwise need.
func (t *Tree) ScaleNegate() {
	if t.Root == nil {
		return
	}
	if t.Root.Class == ClassUMin {
		t.Root = t.Root.Children[0]
		t.Root.invalidateDegree()
		return
	}
	n := t.AllocFixed(1)
	n.Class = ClassUMin
	n.Children[0] = t.Root
	t.Root = n
}

// AddConst adds constant c to node, folding into an existing empty
// ADD op-arg when possible, else appending a child, else building a fresh
// ADD. ctr is the constants pool used to resolve c to a pool index.
func (t *Tree) AddConst(ctr *pool.Pool, node *Node, c float64) (*Node, error) {
	idx, err := ctr.GetIndex(c)
	if err != nil {
		return nil, err
	}
	if node != nil && node.Class == ClassAdd && node.OpArg == OpArgUnset {
		node.OpArg = OpArgCst
		node.Value = int32(idx)
		node.invalidateDegree()
		return node, nil
	}
	if node != nil && node.Class == ClassAdd {
		i := t.FindFreeChild(node, 1)
		node.Children[i] = t.NewLeafConst(idx)
		node.invalidateDegree()
		return node, nil
	}
	add := t.AllocNode(1)
	add.Class = ClassAdd
	add.OpArg = OpArgCst
	add.Value = int32(idx)
	if node != nil {
		add.Children[0] = node
	}
	return add, nil
}

// AddVar adds c*x_v to node: appended as a new child when node is already
// an ADD, else wrapped together with node in a fresh ADD. Unlike AddConst,
// it never folds the variable into an empty ADD op-arg; the term is always
// a VAR leaf child (under a MUL or UMIN when c != 1).
func (t *Tree) AddVar(ctr *pool.Pool, node *Node, v int32, c float64) (*Node, error) {
	term := t.NewLeafVar(v)
	if c != 1 {
		wrapped, _, err := t.MultiplyByConst(term, ctr, c)
		if err != nil {
			return nil, err
		}
		term = wrapped
	}
	if node != nil && node.Class == ClassAdd {
		i := t.FindFreeChild(node, 1)
		node.Children[i] = term
		node.invalidateDegree()
		return node, nil
	}
	add := t.AllocNode(1)
	add.Class = ClassAdd
	if node != nil {
		add.Children[0] = node
		add.Children[1] = term
	} else {
		add.Children[0] = term
	}
	return add, nil
}

// AddBilin appends c*x_v1*x_v2 to node. v2 may be supplied later: with
// v2 == 0 the returned bilin MUL node's Children[1] is left nil for the
// caller to fill in once known.
func (t *Tree) AddBilin(ctr *pool.Pool, node *Node, c float64, v1, v2 int32) (root *Node, bilin *Node, err error) {
	mul := t.AllocFixed(2)
	mul.Class = ClassMul
	mul.Children[0] = t.NewLeafVar(v1)
	if v2 != 0 {
		mul.Children[1] = t.NewLeafVar(v2)
	}
	var term *Node = mul
	if c != 1 {
		term, _, err = t.MultiplyByConst(mul, ctr, c)
		if err != nil {
			return nil, nil, err
		}
	}
	if node != nil && node.Class == ClassAdd {
		i := t.FindFreeChild(node, 1)
		node.Children[i] = term
		node.invalidateDegree()
		return node, mul, nil
	}
	add := t.AllocNode(1)
	add.Class = ClassAdd
	if node != nil {
		add.Children[0] = node
		add.Children[1] = term
	} else {
		add.Children[0] = term
	}
	return add, mul, nil
}

// AddLinTerm splices the linear combination c*sum(a_i * x_i) for i in L
// into node's ADD children, omitting the variable at index skip.
func (t *Tree) AddLinTerm(ctr *pool.Pool, node *Node, coeffs map[int32]float64, skip int32, c float64) (*Node, error) {
	root := node
	var err error
	for v, a := range coeffs {
		if v == skip || a == 0 {
			continue
		}
		root, err = t.AddVar(ctr, root, v, a*c)
		if err != nil {
			return nil, err
		}
	}
	return root, nil
}

// FindAddNode walks from the root, absorbing any top-level MUL/UMIN chain
// into coeff, until it reaches an ADD node (installing a fresh one over a
// SUB, VAR, CALLn, or empty root if needed). It is the single entry point
// every "append a term" operation uses so the tree's head is always an
// ADD node when one is required.
func (t *Tree) FindAddNode(ctr *pool.Pool, coeff *float64) *Node {
	if t.Root == nil {
		add := t.AllocNode(1)
		add.Class = ClassAdd
		t.Root = add
		return add
	}

	// relink installs add in place of n: as t.Root if n was the root, or
	// as parent's child slot n occupied otherwise.
	relink := func(parent *Node, slot int, add *Node) {
		if parent == nil {
			t.Root = add
			return
		}
		parent.Children[slot] = add
	}

	var parent *Node
	slot := -1
	n := t.Root
	for {
		switch n.Class {
		case ClassAdd:
			return n
		case ClassUMin:
			*coeff = -*coeff
			parent, slot, n = n, 0, n.Children[0]
		case ClassMul:
			if n.OpArg == OpArgCst {
				// folded constant multiplier: absorb it into coeff and
				// descend into the lone child.
				if v, ok := ctr.Value(pool.Index(n.Value)); ok {
					*coeff *= v
				}
				parent, slot, n = n, 0, n.Children[0]
				continue
			}
			add := t.AllocNode(1)
			add.Class = ClassAdd
			add.Children[0] = n
			relink(parent, slot, add)
			return add
		default:
			add := t.AllocNode(1)
			add.Class = ClassAdd
			add.Children[0] = n
			relink(parent, slot, add)
			return add
		}
	}
}

// CheckAdd is the post-condition enforcer run after bulk edits: an ADD
// with exactly one effective child collapses to that child (or to the
// bare CST/VAR it folds), and an ADD with zero effective children is
// InvalidNode.
func (t *Tree) CheckAdd(node *Node) (*Node, error) {
	if node.Class != ClassAdd {
		return node, nil
	}
	count := 0
	if node.OpArg != OpArgUnset {
		count++
	}
	var sole *Node
	for _, c := range node.Children {
		if c != nil {
			count++
			sole = c
		}
	}
	if count == 0 {
		return nil, invalidNode("ADD node has no effective children")
	}
	if count > 1 {
		return node, nil
	}
	if node.OpArg == OpArgCst {
		return t.NewLeafConst(pool.Index(node.Value)), nil
	}
	if node.OpArg == OpArgVar {
		return t.NewLeafVar(node.Value), nil
	}
	return sole, nil
}

// ReplaceVarInList renumbers every variable occurrence in the tree
// in place per rho, analogous to CopyWithRosetta but without allocating
// new nodes. A variable with no image under rho is left untouched: this
// operation is a pure renumbering, never a collapse.
func (t *Tree) ReplaceVarInList(rho map[int32]int32) {
	next := make(map[int32][]*Node, len(t.varOccurrences))
	for v, nodes := range t.varOccurrences {
		nv, ok := rho[v]
		if !ok {
			next[v] = append(next[v], nodes...)
			continue
		}
		for _, n := range nodes {
			n.Value = nv
		}
		next[nv] = append(next[nv], nodes...)
	}
	t.varOccurrences = next
}
