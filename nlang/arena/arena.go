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

// Package arena implements the scratch memory model shared by the tree IR
// and the differentiator: a linear bump allocator with scoped checkpoints
// (Stamp/Release) and chaining to growable blocks, so that overflow never
// invalidates pointers handed out from an earlier block.
package arena

import (
	"errors"
	"fmt"
)

const (
	// DefaultBlockSize is the capacity of the first block allocated inside
	// a fresh Arena, in bytes.
	DefaultBlockSize = 64 * 1024

	// minBlockSize bounds how small a chained overflow block may be.
	minBlockSize = 4096
)

// ErrOutOfMemory is returned when a request cannot be satisfied even after
// chaining a new block (only reachable on genuine allocation failure).
var ErrOutOfMemory = errors.New("arena: out of memory")

// block is a single bump-allocated region.
type block struct {
	data []byte
	used int
}

func newBlock(size int) *block {
	if size < minBlockSize {
		size = minBlockSize
	}
	return &block{data: make([]byte, size)}
}

func (b *block) alloc(n int) ([]byte, bool) {
	if b.used+n > len(b.data) {
		return nil, false
	}
	out := b.data[b.used : b.used+n]
	// A region rewound by Release still holds its old bytes.
	clear(out)
	b.used += n
	return out, true
}

// Arena is a linear allocator with scoped checkpoints. The zero value is
// not usable; use New.
//
// Arena never frees individual allocations: a tree, call scope, or model
// owns an Arena outright and releases it wholesale by letting it go out of
// scope, or rewinds part of it via Stamp/Release.
type Arena struct {
	blocks []*block
}

// New creates an Arena with one block of DefaultBlockSize bytes.
func New() *Arena {
	return &Arena{blocks: []*block{newBlock(DefaultBlockSize)}}
}

// Stamp is an opaque checkpoint returned by Arena.Stamp and consumed by
// Arena.Release.
type Stamp struct {
	blockIdx int
	used     int
}

// Stamp records the arena's current allocation position. Pass the result
// to Release to rewind the arena back to this point on every exit path,
// including error paths.
func (a *Arena) Stamp() Stamp {
	last := len(a.blocks) - 1
	return Stamp{blockIdx: last, used: a.blocks[last].used}
}

// Release rewinds the arena to s, discarding every allocation made since
// the matching Stamp call. Allocations inside a stamped region never
// survive Release; callers must not retain pointers obtained after Stamp
// past the matching Release.
func (a *Arena) Release(s Stamp) {
	a.blocks = a.blocks[:s.blockIdx+1]
	a.blocks[s.blockIdx].used = s.used
}

// Alloc reserves n bytes and returns a zero-filled slice backed by the
// arena. The slice is valid until the enclosing Stamp (if any) is
// released, or the whole Arena is discarded.
func (a *Arena) Alloc(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("arena: Alloc called with non-positive size %d", n)
	}
	last := a.blocks[len(a.blocks)-1]
	if out, ok := last.alloc(n); ok {
		return out, nil
	}
	// Chain a fresh block sized to fit at least this request.
	next := newBlock(max(n, DefaultBlockSize))
	a.blocks = append(a.blocks, next)
	out, ok := next.alloc(n)
	if !ok {
		return nil, ErrOutOfMemory
	}
	return out, nil
}

// Used returns the total number of bytes allocated across every chained
// block, for diagnostics.
func (a *Arena) Used() int {
	total := 0
	for _, b := range a.blocks {
		total += b.used
	}
	return total
}
