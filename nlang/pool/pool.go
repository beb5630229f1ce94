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

// Package pool implements the constants pool shared by opcode programs:
// an ordered sequence of float64 literals addressed by 1-based index, with
// sixteen reserved well-known values and copy-on-write ownership semantics.
package pool

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfMemory is the pool's out-of-memory sentinel. No function in this
// package currently returns it: growth goes through Go's append, which does
// not report allocation failure as an error. It is kept so callers can rely
// on a stable sentinel per the error taxonomy.
var ErrOutOfMemory = errors.New("pool: out of memory")

// Index is a 1-based constants-pool slot, as used by PUSH_IMM and friends.
type Index int

// Reserved well-known indices, fixed by the instruction set's external
// contract. Every pool, owned or borrowed, must expose these sixteen slots
// with these exact values at construction time.
const (
	IdxOne Index = iota + 1
	IdxTen
	IdxTenth
	IdxQuarter
	IdxHalf
	IdxTwo
	IdxFour
	IdxZero
	IdxInvSqrt2Pi
	IdxInvLn10
	IdxInvLn2
	IdxPi
	IdxHalfPi
	IdxSqrt2
	IdxThree
	IdxFive

	reservedCount = int(IdxFive)
)

// reservedValues holds the sixteen well-known literals in index order
// (reservedValues[0] corresponds to IdxOne).
var reservedValues = [reservedCount]float64{
	int(IdxOne - 1):        1,
	int(IdxTen - 1):        10,
	int(IdxTenth - 1):      0.1,
	int(IdxQuarter - 1):    0.25,
	int(IdxHalf - 1):       0.5,
	int(IdxTwo - 1):        2,
	int(IdxFour - 1):       4,
	int(IdxZero - 1):       0,
	int(IdxInvSqrt2Pi - 1): 1 / math.Sqrt(2*math.Pi),
	int(IdxInvLn10 - 1):    1 / math.Log(10),
	int(IdxInvLn2 - 1):     1 / math.Log(2),
	int(IdxPi - 1):         math.Pi,
	int(IdxHalfPi - 1):     math.Pi / 2,
	int(IdxSqrt2 - 1):      math.Sqrt2,
	int(IdxThree - 1):      3,
	int(IdxFive - 1):       5,
}

// epsTolerance bounds the near-equality test used to recognize a
// caller-supplied value as one of the reserved well-known constants,
// expressed as a small multiple of machine epsilon.
const epsTolerance = 8 * 0x1p-52

// Pool is an ordered sequence of float64 literals addressed by 1-based
// Index. The zero value is not usable; use New.
//
// A Pool is either owned (this component created it and may grow it in
// place) or borrowed (shared read-only with another owner; growing a
// borrowed pool first clones it, transparently to the caller). refs counts
// live owners of an owned buffer; it is meaningless on a borrowed pool.
type Pool struct {
	values []float64
	owned  bool
	refs   *int
}

// New returns a fresh owned pool pre-populated with the sixteen reserved
// well-known values.
func New() *Pool {
	values := make([]float64, reservedCount, reservedCount+8)
	copy(values, reservedValues[:])
	refs := 1
	return &Pool{values: values, owned: true, refs: &refs}
}

// Borrow returns a read-only, non-owning view over p's backing storage.
// The returned pool shares p's current values but will clone on the first
// growing GetIndex/append call rather than mutate the shared buffer.
func (p *Pool) Borrow() *Pool {
	return &Pool{values: p.values, owned: false}
}

// Len returns the number of populated slots, including the sixteen
// reserved ones.
func (p *Pool) Len() int { return len(p.values) }

// Value returns the float64 stored at idx. Returns false if idx is out of
// range.
func (p *Pool) Value(idx Index) (float64, bool) {
	if idx < 1 || int(idx) > len(p.values) {
		return 0, false
	}
	return p.values[idx-1], true
}

// IsOwned reports whether p owns its backing storage.
func (p *Pool) IsOwned() bool { return p.owned }

// GetIndex returns a 1-based index idx such that Value(idx) == v (within
// tolerance for the reserved well-known set), appending v as a new slot if
// it is not already present. If p is borrowed and appending would grow its
// backing array, p is transparently cloned into a freshly owned buffer
// first; the caller observes only the returned index.
func (p *Pool) GetIndex(v float64) (Index, error) {
	if idx, ok := reservedIndexFor(v); ok {
		return idx, nil
	}
	for i, existing := range p.values {
		if existing == v {
			return Index(i + 1), nil
		}
	}
	return p.append(v)
}

// reservedIndexFor returns the reserved index for v if v nearly equals one
// of the sixteen well-known constants.
func reservedIndexFor(v float64) (Index, bool) {
	for i, rv := range reservedValues {
		if math.Abs(v-rv) <= epsTolerance*math.Max(1, math.Abs(rv)) {
			return Index(i + 1), true
		}
	}
	return 0, false
}

// append grows the pool by one slot holding v, cloning first if p is
// borrowed.
func (p *Pool) append(v float64) (Index, error) {
	if !p.owned {
		p.cloneInPlace()
	}
	p.values = append(p.values, v)
	return Index(len(p.values)), nil
}

// cloneInPlace duplicates a borrowed pool's backing array into a freshly
// owned one with a reference count of 1. A no-op if p is already owned.
func (p *Pool) cloneInPlace() {
	if p.owned {
		return
	}
	cloned := make([]float64, len(p.values), len(p.values)+8)
	copy(cloned, p.values)
	refs := 1
	p.values = cloned
	p.owned = true
	p.refs = &refs
}

// CopyAndOwn returns a new owned pool whose data is a copy of p's,
// resetting the reference count to 1 regardless of p's own ownership.
func (p *Pool) CopyAndOwn() *Pool {
	cloned := make([]float64, len(p.values))
	copy(cloned, p.values)
	refs := 1
	return &Pool{values: cloned, owned: true, refs: &refs}
}

// Acquire increments p's reference count. It is a no-op on a borrowed
// pool, which has no reference count of its own.
func (p *Pool) Acquire() {
	if p.owned && p.refs != nil {
		*p.refs++
	}
}

// Release decrements p's reference count. It reports whether this was the
// last reference (in which case the caller should stop using p's backing
// storage). Releasing a borrowed pool is always a no-op returning false.
func (p *Pool) Release() bool {
	if !p.owned || p.refs == nil {
		return false
	}
	*p.refs--
	if *p.refs <= 0 {
		p.values = nil
		return true
	}
	return false
}

// String renders the pool for debugging.
func (p *Pool) String() string {
	kind := "borrowed"
	if p.owned {
		kind = "owned"
	}
	return fmt.Sprintf("pool(%s, %d slots)", kind, len(p.values))
}
