// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package worklist

import "encoding/binary"

// IndirectArgsSize is the size of IndirectArgs in its GPU layout.
const IndirectArgsSize = 12

// IndirectArgs sizes a dispatch from a counter produced by an earlier stage.
// The layout matches the three u32 words a GPU indirect dispatch reads.
type IndirectArgs struct {
	GroupsX uint32
	GroupsY uint32
	GroupsZ uint32
}

// ArgsFor returns the arguments that cover count work items with groups of
// GroupSize. A zero count yields {0, 1, 1}: a valid dispatch with no groups.
func ArgsFor(count uint32) IndirectArgs {
	return IndirectArgs{
		GroupsX: (count + GroupSize - 1) / GroupSize,
		GroupsY: 1,
		GroupsZ: 1,
	}
}

// Groups returns the total number of groups.
func (a IndirectArgs) Groups() int {
	return int(a.GroupsX) * int(a.GroupsY) * int(a.GroupsZ)
}

// Bytes encodes the arguments in little-endian GPU layout.
func (a IndirectArgs) Bytes() []byte {
	buf := make([]byte, IndirectArgsSize)
	binary.LittleEndian.PutUint32(buf[0:], a.GroupsX)
	binary.LittleEndian.PutUint32(buf[4:], a.GroupsY)
	binary.LittleEndian.PutUint32(buf[8:], a.GroupsZ)
	return buf
}

// BuildArgs derives both indirect argument records from the counters.
// It must run after every classification append has completed.
func BuildArgs(l *Lists) {
	l.RayArgs = ArgsFor(l.Rays())
	l.TileArgs = ArgsFor(l.Tiles())
}
