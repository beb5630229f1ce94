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

// Package tree implements the expression-tree IR: arena-allocated nodes
// with a small op-arg folding scheme that lets a binary operator carry one
// constant or variable operand without a child node, keeping common
// one-operand-immediate shapes (x+c, x*v) to a single node instead of a
// separate leaf per operand.
package tree

import (
	"fmt"

	"github.com/reshop-go/nlcore/nlang/instr"
	"github.com/reshop-go/nlcore/nlang/nlerr"
	"github.com/reshop-go/nlcore/nlang/pool"
)

// Class identifies the opcode class of a tree node.
type Class uint8

const (
	ClassUnset Class = iota
	ClassCst
	ClassVar
	ClassAdd
	ClassSub
	ClassMul
	ClassDiv
	ClassCall1
	ClassCall2
	ClassCallN
	ClassUMin
)

var classNames = [...]string{
	ClassUnset: "UNSET",
	ClassCst:   "CST",
	ClassVar:   "VAR",
	ClassAdd:   "ADD",
	ClassSub:   "SUB",
	ClassMul:   "MUL",
	ClassDiv:   "DIV",
	ClassCall1: "CALL1",
	ClassCall2: "CALL2",
	ClassCallN: "CALLN",
	ClassUMin:  "UMIN",
}

func (c Class) String() string {
	if int(c) >= len(classNames) {
		return "INVALID_CLASS"
	}
	return classNames[c]
}

// OpArgTag identifies what, if anything, a node's Value field means.
type OpArgTag uint8

const (
	// OpArgUnset: Value is meaningless.
	OpArgUnset OpArgTag = iota
	// OpArgCst: Value is a 1-based constants-pool index folded into this
	// node instead of occupying a child slot.
	OpArgCst
	// OpArgVar: Value is a 1-based variable id folded into this node.
	OpArgVar
	// OpArgFMA: this MUL node is a fused multiply-add produced by
	// MUL_IMM_ADD; Value is the pool index of the constant multiplier and
	// Children[0] is the operand it multiplies. The augend is the sibling
	// child of the enclosing ADD node.
	OpArgFMA
)

// Node is one expression-tree node. Children holds up to ChildrenMax
// children, some of which may be nil free slots reserved for cheap
// insertion (see alloc-node's slack).
type Node struct {
	Class       Class
	OpArg       OpArgTag
	Value       int32 // variable id or pool index, per OpArg
	Func        instr.FuncCode
	Children    []*Node
	ChildrenMax int
	degreeKnown bool
	degreeCache uint32
}

// IsLeaf reports whether n has no children slots at all (CST or VAR).
func (n *Node) IsLeaf() bool { return n.ChildrenMax == 0 }

// invalidateDegree drops any cached polynomial-degree result; called by
// every in-place mutator since a cached degree above a mutated node is no
// longer trustworthy.
func (n *Node) invalidateDegree() {
	n.degreeKnown = false
}

// Tree owns a root node, the arena its nodes are bump-allocated from, and
// the auxiliary indices callers use to navigate by variable id. Trees
// never share nodes: Copy/CopyWithRosetta always produce fresh nodes in
// the destination tree's own arena.
type Tree struct {
	Root  *Node
	arena *nodeArena

	// varOccurrences maps a variable id to every node that references it,
	// either as a child VAR leaf or as a folded OpArgVar operand.
	varOccurrences map[int32][]*Node
}

// New creates an empty tree with no root.
func New() *Tree {
	return &Tree{arena: newNodeArena(), varOccurrences: make(map[int32][]*Node)}
}

// nodeBlockSize is the slab capacity of one nodeArena chain link,
// mirroring nlang/arena's block-chaining growth strategy but specialized
// to *Node slabs so that previously handed-out pointers stay valid across
// growth (chaining a new block, never reallocating an old one).
const nodeBlockSize = 256

// nodeArena bump-allocates Node values out of fixed-capacity slabs,
// chaining a fresh slab on overflow. It plays the same role for tree
// nodes that nlang/arena plays for raw scratch bytes: Release is wholesale
// only (a Tree is always freed as a unit), so unlike nlang/arena there is
// no Stamp/Release pair here.
type nodeArena struct {
	slabs [][]Node
}

func newNodeArena() *nodeArena {
	return &nodeArena{slabs: [][]Node{make([]Node, 0, nodeBlockSize)}}
}

func (a *nodeArena) alloc() *Node {
	last := &a.slabs[len(a.slabs)-1]
	if len(*last) == cap(*last) {
		a.slabs = append(a.slabs, make([]Node, 0, nodeBlockSize))
		last = &a.slabs[len(a.slabs)-1]
	}
	*last = append(*last, Node{})
	return &(*last)[len(*last)-1]
}

// AllocNode returns a node with ChildrenMax == k plus two trailing slack
// slots so that appending one or two siblings later does not force an
// immediate Reserve.
func (t *Tree) AllocNode(k int) *Node {
	n := t.arena.alloc()
	n.ChildrenMax = k + 2
	n.Children = make([]*Node, n.ChildrenMax)
	return n
}

// AllocFixed returns a node with exactly k child slots and no slack.
func (t *Tree) AllocFixed(k int) *Node {
	n := t.arena.alloc()
	n.ChildrenMax = k
	if k > 0 {
		n.Children = make([]*Node, k)
	}
	return n
}

// AllocLeaf returns a childless node (CST or VAR).
func (t *Tree) AllocLeaf() *Node {
	return t.arena.alloc()
}

// Reserve ensures node has at least k additional free child slots,
// allocating a fresh, larger children block and copying the old one over
// if needed.
func (t *Tree) Reserve(node *Node, k int) {
	free := 0
	for _, c := range node.Children {
		if c == nil {
			free++
		}
	}
	if free >= k {
		return
	}
	grown := make([]*Node, node.ChildrenMax+k-free)
	copy(grown, node.Children)
	node.Children = grown
	node.ChildrenMax = len(grown)
}

// FindFreeChild returns the index of node's first nil child slot,
// growing node via Reserve first if fewer than k slots are free from
// that point on.
func (t *Tree) FindFreeChild(node *Node, k int) int {
	t.Reserve(node, k)
	for i, c := range node.Children {
		if c == nil {
			return i
		}
	}
	// Reserve guarantees room; unreachable unless k <= 0.
	return len(node.Children) - 1
}

// recordVar indexes node under variable id v.
func (t *Tree) recordVar(v int32, node *Node) {
	t.varOccurrences[v] = append(t.varOccurrences[v], node)
}

// NewLeafConst builds a standalone CST leaf holding pool index idx.
func (t *Tree) NewLeafConst(idx pool.Index) *Node {
	n := t.AllocLeaf()
	n.Class = ClassCst
	n.OpArg = OpArgCst
	n.Value = int32(idx)
	return n
}

// NewLeafVar builds a standalone VAR leaf for variable v, and indexes it.
func (t *Tree) NewLeafVar(v int32) *Node {
	n := t.AllocLeaf()
	n.Class = ClassVar
	n.OpArg = OpArgVar
	n.Value = v
	t.recordVar(v, n)
	return n
}

func invalidNode(msg string) error {
	return fmt.Errorf("%w: %s", nlerr.ErrInvalidNode, msg)
}
