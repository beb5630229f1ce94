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

import "github.com/davecgh/go-spew/spew"

// dumpConfig disables pointer addresses so two structurally identical
// trees produce identical dumps, which is what a test diff or a bug
// report actually wants to compare.
var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump renders the subtree rooted at n as an indented field-by-field
// listing, for pasting into a bug report or an interactive debug session.
func Dump(n *Node) string {
	if n == nil {
		return "<nil>"
	}
	return dumpConfig.Sdump(n)
}
