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

// Package nlerr defines the error-kind taxonomy shared by every component
// that validates, differentiates, or evaluates opcode programs and
// expression trees. Every sentinel here is a kind, not a concrete type:
// callers wrap it with fmt.Errorf("%w: ...") to attach positional or
// opcode context, and test it with errors.Is.
package nlerr

import "errors"

var (
	// ErrMalformedOpcode signals a header/store violation, a stack
	// imbalance, or an unknown instruction in an opcode program.
	ErrMalformedOpcode = errors.New("nlcore: malformed opcode program")

	// ErrUnsupportedDiff signals that the differentiator encountered a
	// construct it cannot differentiate: FUNC_ARG_COUNT, CALLN, or an
	// unhandled CALL2 function-code combination.
	ErrUnsupportedDiff = errors.New("nlcore: unsupported differentiation target")

	// ErrInvalidNode signals a broken structural invariant during a tree
	// edit, such as an ADD node left with zero children after
	// normalization.
	ErrInvalidNode = errors.New("nlcore: invalid tree node")

	// ErrOutOfMemory signals an allocation failure in an arena or pool.
	ErrOutOfMemory = errors.New("nlcore: out of memory")

	// ErrDomain signals an evaluation-time domain violation (e.g. log of
	// a negative number).
	ErrDomain = errors.New("nlcore: domain error")

	// ErrPole signals evaluation at a singularity (e.g. division by
	// zero).
	ErrPole = errors.New("nlcore: pole error")

	// ErrOverflow signals a floating-point overflow during evaluation.
	ErrOverflow = errors.New("nlcore: overflow error")

	// ErrUnderflow signals a floating-point underflow during evaluation.
	ErrUnderflow = errors.New("nlcore: underflow error")

	// ErrRange signals a value outside the valid range for an operation.
	ErrRange = errors.New("nlcore: range error")

	// ErrNotFound signals a lookup miss in a linear equation or variable
	// list.
	ErrNotFound = errors.New("nlcore: not found")

	// ErrDuplicate signals a sorted-array insertion found the value
	// already present.
	ErrDuplicate = errors.New("nlcore: duplicate entry")
)
